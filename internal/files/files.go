// Package files implements the tabular I/O collaborators around the
// anonymization core: XLSX and CSV reading/writing, upload validation
// and secure deletion of source files.
package files

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/safeshare/safeshare/internal/dataset"
)

// ErrUnsupportedFormat flags a file extension outside the allowed set.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// ErrFileTooLarge flags a source file over the configured ceiling.
var ErrFileTooLarge = errors.New("file exceeds size limit")

// Options bounds what the loaders accept.
type Options struct {
	MaxSizeMB         int
	AllowedExtensions []string
}

// DefaultOptions matches the source boundary contract: 10 MB, XLSX and
// CSV only.
func DefaultOptions() Options {
	return Options{
		MaxSizeMB:         10,
		AllowedExtensions: []string{".xlsx", ".csv"},
	}
}

// Validate checks extension and size before any parsing happens.
func Validate(path string, opts Options) error {
	ext := strings.ToLower(filepath.Ext(path))
	allowed := false
	for _, e := range opts.AllowedExtensions {
		if ext == strings.ToLower(e) {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("%w: %s (allowed: %s)", ErrUnsupportedFormat, ext, strings.Join(opts.AllowedExtensions, ", "))
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}
	limit := int64(opts.MaxSizeMB) * 1024 * 1024
	if info.Size() > limit {
		return fmt.Errorf("%w: %.1f MB (max %d MB)", ErrFileTooLarge, float64(info.Size())/(1024*1024), opts.MaxSizeMB)
	}
	return nil
}

// Read loads a dataset from path, dispatching on the extension.
func Read(path string, opts Options) (*dataset.Dataset, error) {
	if err := Validate(path, opts); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()
	return ReadFrom(f, filepath.Ext(path))
}

// ReadFrom loads a dataset from a reader; ext selects the parser.
func ReadFrom(r io.Reader, ext string) (*dataset.Dataset, error) {
	switch strings.ToLower(ext) {
	case ".xlsx":
		return ReadXLSX(r)
	case ".csv":
		return ReadCSV(r)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}

// Write saves a dataset to path, dispatching on the extension.
func Write(ds *dataset.Dataset, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return WriteXLSX(ds, path)
	case ".csv":
		return WriteCSV(ds, path)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// SecureDelete overwrites a file with zeros before removing it, so the
// original PII does not linger on disk.
func SecureDelete(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to stat file: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("failed to open file for overwrite: %w", err)
	}
	zeros := make([]byte, 64*1024)
	remaining := info.Size()
	for remaining > 0 {
		chunk := int64(len(zeros))
		if remaining < chunk {
			chunk = remaining
		}
		if _, err := f.Write(zeros[:chunk]); err != nil {
			f.Close()
			return fmt.Errorf("failed to overwrite file: %w", err)
		}
		remaining -= chunk
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("failed to sync overwrite: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Remove(path)
}
