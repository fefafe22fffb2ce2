// Package upx undoes UPX compression of Win32 executables packed with the
// NRV2B method.
package upx

import (
	"encoding/binary"
	"errors"
)

var (
	// ErrCorrupt reports a compressed stream that ends early or refers to
	// data before the start of the output.
	ErrCorrupt = errors.New("upx: corrupt NRV2B stream")
	// ErrOutputOverflow reports a stream that decompresses past its bound.
	ErrOutputOverflow = errors.New("upx: decompressed data exceeds size limit")
	// ErrNotPacked reports a hint that does not point into the image.
	ErrNotPacked = errors.New("upx: image does not contain the hinted payload")
)

// farOffset is the distance beyond which matches are one byte longer.
const farOffset = 0xD00

// decoder holds the state of one NRV2B/LE32 decompression.
type decoder struct {
	in    []byte
	ip    int
	bb    uint32 // current bit buffer
	bc    uint   // bits left in bb
	out   []byte
	limit int
	fail  error
}

func (d *decoder) bit() uint32 {
	if d.bc == 0 {
		if d.ip+4 > len(d.in) {
			d.fail = ErrCorrupt
			return 0
		}
		d.bb = binary.LittleEndian.Uint32(d.in[d.ip:])
		d.ip += 4
		d.bc = 32
	}
	d.bc--
	return (d.bb >> d.bc) & 1
}

func (d *decoder) byte() byte {
	if d.ip >= len(d.in) {
		d.fail = ErrCorrupt
		return 0
	}
	b := d.in[d.ip]
	d.ip++
	return b
}

// gamma reads an Elias-gamma style number: a data bit then a stop bit,
// repeated, on top of an implicit leading one.
func (d *decoder) gamma() uint32 {
	v := uint32(1)
	for {
		v = v<<1 | d.bit()
		if d.bit() == 1 || d.fail != nil {
			return v
		}
		if v > 1<<30 {
			d.fail = ErrCorrupt
			return v
		}
	}
}

// Decompress inflates an NRV2B/LE32 stream. It returns the output and the
// number of input bytes consumed, including the end marker. limit bounds
// the output size.
func Decompress(src []byte, limit int) ([]byte, int, error) {
	d := &decoder{in: src, limit: limit}
	lastOff := uint32(1)

	for {
		for d.bit() == 1 {
			if len(d.out) >= d.limit {
				return nil, d.ip, ErrOutputOverflow
			}
			b := d.byte()
			if d.fail != nil {
				return nil, d.ip, d.fail
			}
			d.out = append(d.out, b)
		}

		off := d.gamma()
		if d.fail != nil {
			return nil, d.ip, d.fail
		}
		if off == 2 {
			off = lastOff
		} else {
			off = (off-3)<<8 | uint32(d.byte())
			if d.fail != nil {
				return nil, d.ip, d.fail
			}
			if off == 0xFFFFFFFF {
				return d.out, d.ip, nil
			}
			off++
			lastOff = off
		}

		n := d.bit()<<1 | d.bit()
		if n == 0 {
			n = d.gamma() + 2
		}
		if off > farOffset {
			n++
		}
		n++
		if d.fail != nil {
			return nil, d.ip, d.fail
		}

		if uint64(off) > uint64(len(d.out)) {
			return nil, d.ip, ErrCorrupt
		}
		if len(d.out)+int(n) > d.limit {
			return nil, d.ip, ErrOutputOverflow
		}
		from := len(d.out) - int(off)
		for i := 0; i < int(n); i++ {
			d.out = append(d.out, d.out[from+i])
		}
	}
}
