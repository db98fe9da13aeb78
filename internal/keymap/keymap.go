// Package keymap publishes keyboard layout descriptions through anonymous
// shared memory so a compositor can map them.
package keymap

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"

	"golang.org/x/sys/unix"
)

// FormatXKBV1 identifies a libxkbcommon compatible text keymap.
const FormatXKBV1 = 1

// ErrAllocationFailed reports that the shared backing store for a keymap
// could not be created or mapped.
var ErrAllocationFailed = errors.New("keymap: allocation failed")

//go:embed default.xkb
var defaultKeymap []byte

// Default returns a copy of the compiled-in US keymap, NUL terminated.
func Default() []byte {
	return bytes.Clone(defaultKeymap)
}

// Load reads a keymap from path. An empty path yields the default keymap.
func Load(path string) ([]byte, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keymap: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("keymap %s is empty", path)
	}
	// libxkbcommon parses the mapping as a C string.
	if data[len(data)-1] != 0 {
		data = append(data, 0)
	}
	return data, nil
}

// Descriptor is a published keymap: a file the transport hands to the
// compositor, and the number of bytes it should map.
//
// The descriptor is consumed by the transport, which closes File once the
// request carrying it has been written.
type Descriptor struct {
	File *os.File
	Size uint32
}

// Close releases the descriptor if it was never handed to a transport.
func (d *Descriptor) Close() error {
	if d == nil || d.File == nil {
		return nil
	}
	return d.File.Close()
}

// Publisher creates shared keymap buffers.
type Publisher struct {
	// memfd selects memfd_create; when false or unsupported, an unlinked
	// temporary file is used instead.
	memfd bool
	// dir is the directory used for the temporary file fallback.
	dir string
}

// NewPublisher returns a Publisher that prefers memfd_create.
func NewPublisher() *Publisher {
	return &Publisher{memfd: true}
}

// NewTempFilePublisher returns a Publisher that always uses an unlinked
// temporary file in dir (os.TempDir when empty).
func NewTempFilePublisher(dir string) *Publisher {
	return &Publisher{dir: dir}
}

// Publish copies b into a fresh shared mapping and returns its descriptor.
func (p *Publisher) Publish(b []byte) (*Descriptor, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("%w: empty keymap", ErrAllocationFailed)
	}
	if uint64(len(b)) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: keymap of %d bytes does not fit in 32 bits", ErrAllocationFailed, len(b))
	}

	f, err := p.create()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAllocationFailed, err)
	}
	if err := fill(f, b); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %v", ErrAllocationFailed, err)
	}
	return &Descriptor{File: f, Size: uint32(len(b))}, nil
}

func (p *Publisher) create() (*os.File, error) {
	if p.memfd {
		fd, err := unix.MemfdCreate("wlinput-keymap", unix.MFD_CLOEXEC|unix.MFD_ALLOW_SEALING)
		if err == nil {
			return os.NewFile(uintptr(fd), "wlinput-keymap"), nil
		}
		if !errors.Is(err, unix.ENOSYS) {
			return nil, fmt.Errorf("memfd_create: %w", err)
		}
	}
	f, err := os.CreateTemp(p.dir, "wlinput-keymap-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	if err := os.Remove(f.Name()); err != nil {
		f.Close()
		return nil, fmt.Errorf("unlink temp file: %w", err)
	}
	return f, nil
}

// fill sizes f to len(b), maps it shared and copies b in. The mapping is
// released before returning; the contents stay in the backing store.
func fill(f *os.File, b []byte) error {
	fd := int(f.Fd())
	if err := unix.Ftruncate(fd, int64(len(b))); err != nil {
		return fmt.Errorf("ftruncate: %w", err)
	}
	data, err := unix.Mmap(fd, 0, len(b), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return fmt.Errorf("mmap: %w", err)
	}
	copy(data, b)
	if err := unix.Munmap(data); err != nil {
		return fmt.Errorf("munmap: %w", err)
	}
	return nil
}
