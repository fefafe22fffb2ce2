package gamedata

import (
	"gm8detect/internal/exebuf"
)

const (
	// HeaderMagic is what MaskedCombine yields at the start of an 8.1 header.
	HeaderMagic = 0xF7140067

	oddLanes  = 0xFF00FF00
	evenLanes = 0x00FF00FF
)

// MaskedCombine merges the odd byte lanes of w1 with the even byte lanes of
// w2. The sum wraps at 32 bits.
func MaskedCombine(w1, w2 uint32) uint32 {
	return (w1 & oddLanes) + (w2 & evenLanes)
}

// Locate scans forward one byte at a time from start for an offset whose two
// little-endian words satisfy MaskedCombine(w1, w2) == HeaderMagic.
//
// The scan stops without reading once i+8 reaches the buffer length, so an
// exhausted search never fails with a read error. On success the cursor is
// left just past the 8 matched bytes.
func Locate(img *exebuf.Image, start uint64) (offset int, found bool, err error) {
	n := uint64(img.Len())
	for i := start; i+8 < n; i++ {
		if err := img.SetPos(int(i)); err != nil {
			return 0, false, err
		}
		w1, err := img.ReadU32()
		if err != nil {
			return 0, false, err
		}
		w2, err := img.ReadU32()
		if err != nil {
			return 0, false, err
		}
		if MaskedCombine(w1, w2) == HeaderMagic {
			return int(i), true, nil
		}
	}
	return 0, false, nil
}
