package ioblock

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// File wraps a raw file handle with the three primitive operations every
// producer and writer goroutine uses: size, positional read, and
// sequential write. All transfers are byte-granular; callers are
// responsible for any alignment they need on top.
type File struct {
	f    *os.File
	path string
}

// OpenRead opens path for positional reads.
func OpenRead(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ioblock: open %s: %w", path, err)
	}
	return &File{f: f, path: path}, nil
}

// OpenAppend opens or creates path for sequential writes, appending to
// any existing contents.
func OpenAppend(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("ioblock: open %s: %w", path, err)
	}
	return &File{f: f, path: path}, nil
}

// Close releases the underlying handle.
func (f *File) Close() error {
	return f.f.Close()
}

// Size returns the current file size in bytes.
func (f *File) Size() (int64, error) {
	info, err := f.f.Stat()
	if err != nil {
		return 0, fmt.Errorf("ioblock: stat %s: %w", f.path, err)
	}
	return info.Size(), nil
}

// Read fills buf[:length] from offset. A short read at end-of-file is
// expected on a stream's last window and is not an error; Read returns
// the number of bytes actually read in that case. Any other read error
// is returned wrapped.
func (f *File) Read(buf []byte, length int, offset int64) (int, error) {
	n, err := f.f.ReadAt(buf[:length], offset)
	if err != nil && !errors.Is(err, io.EOF) {
		return n, fmt.Errorf("ioblock: read %s at %d: %w", f.path, offset, err)
	}
	return n, nil
}

// Write appends buf[:length] to the file.
func (f *File) Write(buf []byte, length int) (int, error) {
	n, err := f.f.Write(buf[:length])
	if err != nil {
		return n, fmt.Errorf("ioblock: write %s: %w", f.path, err)
	}
	return n, nil
}
