// Package gm81 recognises GameMaker 8.1 executables and removes the XOR
// layer that 8.1 puts over its game data header.
package gm81

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"unicode/utf16"

	"gm8detect/internal/exebuf"
	"gm8detect/internal/gamedata"
)

const (
	// HeaderOffset is where the stock 8.1 runner stores its header.
	HeaderOffset = 0x39FBC4

	// strictWindow is how many aligned words after HeaderOffset the strict
	// check tries; small runner patches shift the header by a few words.
	strictWindow = 1024
)

// Check looks for the 8.1 header magic at word-aligned offsets starting at
// HeaderOffset. On a match the cursor is left just past the 8-byte magic,
// where Decrypt expects it.
func Check(img *exebuf.Image, log gamedata.Logger) (bool, error) {
	log = gamedata.OrDiscard(log)
	log.Logf("Checking for standard GM8.1 format")

	for i := 0; i < strictWindow; i++ {
		off := HeaderOffset + 4*i
		if off+8 > img.Len() {
			return false, nil
		}
		w1, err := img.U32At(off)
		if err != nil {
			return false, err
		}
		w2, err := img.U32At(off + 4)
		if err != nil {
			return false, err
		}
		if gamedata.MaskedCombine(w1, w2) == gamedata.HeaderMagic {
			if err := img.SetPos(off + 8); err != nil {
				return false, err
			}
			return true, nil
		}
	}
	return false, nil
}

// CheckLazy scans the whole image byte by byte for the header magic. It
// finds headers of runners built with modified offsets.
func CheckLazy(img *exebuf.Image, log gamedata.Logger) (bool, error) {
	log = gamedata.OrDiscard(log)
	log.Logf("Checking for lazy GM8.1 format")

	at, found, err := gamedata.Locate(img, 0)
	if err != nil || !found {
		return false, err
	}
	log.Logf("Found GM8.1 magic at 0x%X", at)
	return true, nil
}

var (
	// Strict is Check as a gamedata.Detector.
	Strict gamedata.Detector = gamedata.DetectorFunc(Check)
	// Lazy is CheckLazy as a gamedata.Detector.
	Lazy gamedata.Detector = gamedata.DetectorFunc(CheckLazy)
	// XorPass is Decrypt as a gamedata.XorPass.
	XorPass gamedata.XorPass = gamedata.XorPassFunc(Decrypt)
)

// HashKey returns the UTF-16LE key string the runner hashes to seed the
// keystream.
func HashKey(key uint32) []byte {
	units := utf16.Encode([]rune(fmt.Sprintf("_MJD%d#RWK", key)))
	out := make([]byte, 2*len(units))
	for i, u := range units {
		binary.LittleEndian.PutUint16(out[2*i:], u)
	}
	return out
}

// seed runs the runner's CRC-32 over key. It uses the IEEE table but skips
// the final inversion.
func seed(key []byte) uint32 {
	return ^crc32.ChecksumIEEE(key)
}

// Keystream is the pair of multiply-with-carry generators used by the XOR
// layer.
type Keystream struct {
	s1, s2 uint32
}

// NewKeystream seeds the generators. Sudalv builds feed the seeds the other
// way round.
func NewKeystream(s1, s2 uint32, mode gamedata.XorMode) *Keystream {
	if mode == gamedata.XorSudalv {
		s1, s2 = s2, s1
	}
	return &Keystream{s1: s1, s2: s2}
}

// Next returns the next mask word.
func (k *Keystream) Next() uint32 {
	k.s1 = (k.s1&0xFFFF)*0x9069 + k.s1>>16
	k.s2 = (k.s2&0xFFFF)*0x4650 + k.s2>>16
	return k.s1<<16 + k.s2&0xFFFF
}

// Decrypt removes the XOR layer. The cursor must sit just past the header
// magic: the next word is the hash key, the one after it the first seed,
// and every whole word after that is masked. The cursor is left after the
// two words it read.
func Decrypt(img *exebuf.Image, log gamedata.Logger, mode gamedata.XorMode) error {
	log = gamedata.OrDiscard(log)

	key, err := img.ReadU32()
	if err != nil {
		return err
	}
	s1, err := img.ReadU32()
	if err != nil {
		return err
	}
	s2 := seed(HashKey(key))
	log.Logf("Decrypting GM8.1 header (%s mode, key %d, seeds 0x%X/0x%X)", mode, key, s1, s2)

	xorWords(img.Bytes()[img.Pos():], NewKeystream(s1, s2, mode))
	return nil
}

func xorWords(data []byte, ks *Keystream) {
	for off := 0; off+4 <= len(data); off += 4 {
		w := binary.LittleEndian.Uint32(data[off:])
		binary.LittleEndian.PutUint32(data[off:], w^ks.Next())
	}
}
