// Package exebuf provides a mutable, seekable, bounds-checked view over an
// in-memory executable image.
package exebuf

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrOutOfBounds is matched by every RangeError.
var ErrOutOfBounds = errors.New("out of bounds")

// RangeError reports a read or seek that would leave the buffer.
type RangeError struct {
	Op  string // "read" or "seek"
	Off int64  // offset the operation started at (or targeted, for seeks)
	N   int    // bytes requested, 0 for seeks
	Len int    // buffer length at the time
}

func (e *RangeError) Error() string {
	if e.Op == "seek" {
		return fmt.Sprintf("exebuf: seek to 0x%X outside buffer of %d bytes", e.Off, e.Len)
	}
	return fmt.Sprintf("exebuf: read of %d bytes at 0x%X past end of buffer (%d bytes)", e.N, e.Off, e.Len)
}

func (e *RangeError) Unwrap() error { return ErrOutOfBounds }

// Image owns a byte slice and a cursor. It is not safe for concurrent use.
type Image struct {
	data []byte
	pos  int
}

// New wraps data without copying it. The Image takes ownership.
func New(data []byte) *Image {
	return &Image{data: data}
}

// Len returns the buffer length.
func (im *Image) Len() int { return len(im.data) }

// Pos returns the cursor position.
func (im *Image) Pos() int { return im.pos }

// Bytes returns the underlying buffer. Writes through it are visible to the Image.
func (im *Image) Bytes() []byte { return im.data }

// SetPos moves the cursor to an absolute offset in [0, Len()].
func (im *Image) SetPos(off int) error {
	if off < 0 || off > len(im.data) {
		return &RangeError{Op: "seek", Off: int64(off), Len: len(im.data)}
	}
	im.pos = off
	return nil
}

// Skip moves the cursor relative to its current position.
func (im *Image) Skip(n int) error {
	if n > len(im.data)-im.pos || n < -im.pos {
		return &RangeError{Op: "seek", Off: int64(im.pos) + int64(n), Len: len(im.data)}
	}
	im.pos += n
	return nil
}

// Seek implements io.Seeker. Seeking outside [0, Len()] fails.
func (im *Image) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = int64(im.pos) + offset
	case io.SeekEnd:
		abs = int64(len(im.data)) + offset
	default:
		return 0, fmt.Errorf("exebuf: invalid whence %d", whence)
	}
	if abs < 0 || abs > int64(len(im.data)) {
		return 0, &RangeError{Op: "seek", Off: abs, Len: len(im.data)}
	}
	im.pos = int(abs)
	return abs, nil
}

func (im *Image) take(n int) ([]byte, error) {
	if n < 0 || n > len(im.data)-im.pos {
		return nil, &RangeError{Op: "read", Off: int64(im.pos), N: n, Len: len(im.data)}
	}
	b := im.data[im.pos : im.pos+n]
	im.pos += n
	return b, nil
}

// ReadU32 reads a little-endian uint32 and advances the cursor.
func (im *Image) ReadU32() (uint32, error) {
	b, err := im.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// U32At reads a little-endian uint32 at off without moving the cursor.
func (im *Image) U32At(off int) (uint32, error) {
	if off < 0 || off > len(im.data)-4 {
		return 0, &RangeError{Op: "read", Off: int64(off), N: 4, Len: len(im.data)}
	}
	return binary.LittleEndian.Uint32(im.data[off:]), nil
}

// Slice returns data[off:off+n] without moving the cursor.
func (im *Image) Slice(off, n int) ([]byte, error) {
	if off < 0 || n < 0 || off > len(im.data) || n > len(im.data)-off {
		return nil, &RangeError{Op: "read", Off: int64(off), N: n, Len: len(im.data)}
	}
	return im.data[off : off+n], nil
}
