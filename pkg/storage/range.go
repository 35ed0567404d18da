package storage

import (
	"errors"
	"fmt"
	"io"
)

// rangeBlockSize is how many bytes one ranged GET fetches
const rangeBlockSize = 4 * 1024 * 1024

// fetchFunc returns n bytes of an object starting at off
type fetchFunc func(off, n int64) ([]byte, error)

// rangeReader serves an object of known size through ranged fetches of
// blockSize bytes, keeping the last block. Seeks cost nothing until the
// next Read outside the cached block.
type rangeReader struct {
	fetch     fetchFunc
	size      int64
	blockSize int64

	off      int64
	block    []byte
	blockOff int64
}

func newRangeReader(fetch fetchFunc, size, blockSize int64) *rangeReader {
	return &rangeReader{fetch: fetch, size: size, blockSize: blockSize, blockOff: -1}
}

func (r *rangeReader) Read(p []byte) (int, error) {
	if r.off >= r.size {
		return 0, io.EOF
	}
	if r.blockOff < 0 || r.off < r.blockOff || r.off >= r.blockOff+int64(len(r.block)) {
		n := r.blockSize
		if rest := r.size - r.off; rest < n {
			n = rest
		}
		block, err := r.fetch(r.off, n)
		if err != nil {
			return 0, err
		}
		if int64(len(block)) != n {
			return 0, fmt.Errorf("short range read at %d: got %d of %d bytes", r.off, len(block), n)
		}
		r.block, r.blockOff = block, r.off
	}

	n := copy(p, r.block[r.off-r.blockOff:])
	r.off += int64(n)
	return n, nil
}

func (r *rangeReader) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = r.off + offset
	case io.SeekEnd:
		abs = r.size + offset
	default:
		return 0, errors.New("invalid whence")
	}
	if abs < 0 {
		return 0, errors.New("negative position")
	}
	r.off = abs
	return abs, nil
}

func (r *rangeReader) Close() error {
	r.block = nil
	return nil
}
