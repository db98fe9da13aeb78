package logging

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// RotatorConfig configures a FileRotator.
type RotatorConfig struct {
	Path string
	// MaxSize in megabytes. Zero disables rotation.
	MaxSize    int64
	MaxBackups int
	Compress   bool
}

// FileRotator is an io.Writer that renames the log file once it would grow
// past MaxSize and starts a new one.
type FileRotator struct {
	cfg RotatorConfig

	mu   sync.Mutex
	file *os.File
	size int64
	seq  int

	// bg tracks compression and cleanup started by rotate; bgMu runs them
	// one at a time.
	bg   sync.WaitGroup
	bgMu sync.Mutex
}

// NewFileRotator opens cfg.Path for appending, creating its directory.
func NewFileRotator(cfg RotatorConfig) (*FileRotator, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("log file path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o750); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	r := &FileRotator{cfg: cfg}
	if err := r.openFile(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *FileRotator) openFile() error {
	file, err := os.OpenFile(r.cfg.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return fmt.Errorf("stat log file: %w", err)
	}
	r.file = file
	r.size = info.Size()
	return nil
}

// Write implements io.Writer.
func (r *FileRotator) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		if err := r.openFile(); err != nil {
			return 0, err
		}
	}
	maxBytes := r.cfg.MaxSize * 1024 * 1024
	if maxBytes > 0 && r.size > 0 && r.size+int64(len(p)) > maxBytes {
		if err := r.rotate(); err != nil {
			return 0, fmt.Errorf("rotate log: %w", err)
		}
	}
	n, err := r.file.Write(p)
	r.size += int64(n)
	return n, err
}

// rotatedName returns path-<timestamp>-<seq><ext>. Names sort in
// rotation order.
func (r *FileRotator) rotatedName() string {
	base := filepath.Base(r.cfg.Path)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)
	r.seq++
	stamp := time.Now().Format("20060102-150405")
	return filepath.Join(filepath.Dir(r.cfg.Path), fmt.Sprintf("%s-%s-%04d%s", name, stamp, r.seq, ext))
}

func (r *FileRotator) rotate() error {
	if err := r.file.Close(); err != nil {
		return fmt.Errorf("close current log: %w", err)
	}
	r.file = nil

	rotated := r.rotatedName()
	if err := os.Rename(r.cfg.Path, rotated); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("rename log file: %w", err)
	}
	if err := r.openFile(); err != nil {
		return err
	}

	r.bg.Add(1)
	go func() {
		defer r.bg.Done()
		r.bgMu.Lock()
		defer r.bgMu.Unlock()
		if r.cfg.Compress {
			compressFile(rotated)
		}
		r.cleanup()
	}()
	return nil
}

func compressFile(path string) {
	in, err := os.Open(path)
	if err != nil {
		return
	}
	defer in.Close()

	out, err := os.Create(path + ".gz")
	if err != nil {
		return
	}
	defer out.Close()

	gz := gzip.NewWriter(out)
	gz.Name = filepath.Base(path)
	if _, err := io.Copy(gz, in); err != nil {
		gz.Close()
		os.Remove(path + ".gz")
		return
	}
	if err := gz.Close(); err != nil {
		os.Remove(path + ".gz")
		return
	}
	os.Remove(path)
}

// cleanup keeps the newest MaxBackups rotated files.
func (r *FileRotator) cleanup() {
	files, err := r.Backups()
	if err != nil || r.cfg.MaxBackups <= 0 {
		return
	}
	for i := 0; i < len(files)-r.cfg.MaxBackups; i++ {
		os.Remove(files[i])
	}
}

// Backups lists rotated files, oldest first.
func (r *FileRotator) Backups() ([]string, error) {
	base := filepath.Base(r.cfg.Path)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)
	matches, err := filepath.Glob(filepath.Join(filepath.Dir(r.cfg.Path), name+"-*"+ext+"*"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

// Close waits for pending compression and closes the file.
func (r *FileRotator) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bg.Wait()
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

// Sync flushes the file to disk.
func (r *FileRotator) Sync() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return nil
	}
	return r.file.Sync()
}
