package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed schema.json
var schemaJSON []byte

const schemaURL = "https://github.com/pentamassiv/wayland-input/config.schema.json"

// Format is a configuration file format.
type Format string

// Supported formats.
const (
	FormatTOML Format = "toml"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ErrUnknownFormat is returned when no decoder accepts a document.
var ErrUnknownFormat = errors.New("unable to parse config file (tried TOML, JSON, YAML)")

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

// Schema returns the compiled configuration schema.
func Schema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
			schemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		compiledSchema, schemaErr = compiler.Compile(schemaURL)
	})
	return compiledSchema, schemaErr
}

// SchemaJSON returns the raw embedded schema.
func SchemaJSON() []byte {
	return append([]byte(nil), schemaJSON...)
}

// formatFromPath maps a file extension to a Format, "" when unknown.
func formatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return ""
	}
}

// decodeDocument parses data into a generic tree. With an empty format it
// tries TOML, JSON and YAML in turn and reports the one that worked.
func decodeDocument(data []byte, format Format) (map[string]any, Format, error) {
	if format == "" {
		for _, f := range []Format{FormatTOML, FormatJSON, FormatYAML} {
			if doc, _, err := decodeDocument(data, f); err == nil {
				return doc, f, nil
			}
		}
		return nil, "", ErrUnknownFormat
	}

	var doc map[string]any
	switch format {
	case FormatTOML:
		if _, err := toml.Decode(string(data), &doc); err != nil {
			return nil, format, fmt.Errorf("decode TOML: %w", err)
		}
	case FormatJSON:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, format, fmt.Errorf("decode JSON: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, format, fmt.Errorf("decode YAML: %w", err)
		}
	default:
		return nil, format, fmt.Errorf("unsupported format %q", format)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	return doc, format, nil
}

// ValidateDocument checks a decoded document against the schema. The tree
// is round-tripped through JSON so TOML and YAML scalars reach the
// validator as JSON values.
func ValidateDocument(doc map[string]any) error {
	schema, err := Schema()
	if err != nil {
		return err
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("normalize document: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var instance any
	if err := dec.Decode(&instance); err != nil {
		return fmt.Errorf("normalize document: %w", err)
	}
	if err := schema.Validate(instance); err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	return nil
}
