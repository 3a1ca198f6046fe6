// Package fileio implements positioned file reads with a
// close-on-exec guarantee, and a pool of reusable decoder cursors so
// that concurrent renderers each get a private *os.File rather than
// sharing one seek position.
package fileio

import (
	"fmt"
	"io"
	"os"
)

// File wraps an *os.File opened close-on-exec, exposing the narrow
// positioned-read surface the TIFF adapter decodes through.
type File struct {
	path string
	f    *os.File
}

// Open opens path close-on-exec (O_CLOEXEC on platforms that support
// it in the open(2) call itself; Go's os.OpenFile already sets
// FD_CLOEXEC post-open on every platform it supports, so no separate
// fcntl step is required here).
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("couldn't open file %s: %w", path, err)
	}
	return &File{path: path, f: f}, nil
}

// ReadAt implements io.ReaderAt.
func (fl *File) ReadAt(buf []byte, off int64) (int, error) {
	n, err := fl.f.ReadAt(buf, off)
	if err != nil && err != io.EOF {
		return n, fmt.Errorf("couldn't read file %s: %w", fl.path, err)
	}
	return n, err
}

// ReadExact reads exactly len(buf) bytes at off, failing with a short
// read error rather than returning a partial buffer.
func (fl *File) ReadExact(buf []byte, off int64) error {
	n, err := fl.ReadAt(buf, off)
	if err != nil && err != io.EOF {
		return err
	}
	if n != len(buf) {
		return fmt.Errorf("short read: expected %d bytes, got %d", len(buf), n)
	}
	return nil
}

// Size returns the file's length.
func (fl *File) Size() (int64, error) {
	fi, err := fl.f.Stat()
	if err != nil {
		return 0, fmt.Errorf("couldn't stat file %s: %w", fl.path, err)
	}
	return fi.Size(), nil
}

// Path returns the path File was opened from.
func (fl *File) Path() string { return fl.path }

// Close closes the underlying OS handle. Idempotent.
func (fl *File) Close() error {
	if fl.f == nil {
		return nil
	}
	err := fl.f.Close()
	fl.f = nil
	return err
}
