package ioblock

import "fmt"

// Window is one fixed-size streaming read: Offset bytes into the file,
// Length bytes long.
type Window struct {
	Offset int64
	Length int64
}

// Windows partitions a file of fileSize bytes into IOSize-byte windows
// aligned to pageSize. ioSize must be a positive multiple of pageSize.
//
// When fileSize is an exact multiple of ioSize, the last window is a
// full ioSize read rather than a trailing zero-length one: a zero-byte
// read is never issued by this package.
func Windows(fileSize, ioSize, pageSize int64) ([]Window, error) {
	if ioSize <= 0 || pageSize <= 0 {
		return nil, fmt.Errorf("ioblock: ioSize and pageSize must be positive, got %d and %d", ioSize, pageSize)
	}
	if ioSize%pageSize != 0 {
		return nil, fmt.Errorf("ioblock: ioSize %d is not a multiple of pageSize %d", ioSize, pageSize)
	}
	if fileSize < 0 {
		return nil, fmt.Errorf("ioblock: negative fileSize %d", fileSize)
	}
	if fileSize == 0 {
		return nil, nil
	}

	full := fileSize / ioSize
	rem := fileSize % ioSize
	count := full
	if rem > 0 {
		count++
	}

	windows := make([]Window, 0, count)
	for i := int64(0); i < full; i++ {
		windows = append(windows, Window{Offset: i * ioSize, Length: ioSize})
	}
	if rem > 0 {
		windows = append(windows, Window{Offset: full * ioSize, Length: rem})
	}
	return windows, nil
}

// StreamRead reads f window by window, aligned to pageSize, invoking fn
// once per window with that window's bytes. The slice passed to fn is
// reused across calls; fn must not retain it past its call.
func StreamRead(f *File, ioSize, pageSize int64, fn func(buf []byte, offset int64) error) error {
	size, err := f.Size()
	if err != nil {
		return err
	}
	windows, err := Windows(size, ioSize, pageSize)
	if err != nil {
		return err
	}

	buf := make([]byte, ioSize)
	for _, w := range windows {
		n, err := f.Read(buf, int(w.Length), w.Offset)
		if err != nil {
			return err
		}
		if int64(n) != w.Length {
			return fmt.Errorf("ioblock: short read at offset %d: got %d bytes, want %d", w.Offset, n, w.Length)
		}
		if err := fn(buf[:n], w.Offset); err != nil {
			return err
		}
	}
	return nil
}
