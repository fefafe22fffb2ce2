// Package gm80 recognises unprotected GameMaker 8.0 executables.
package gm80

import (
	"gm8detect/internal/exebuf"
	"gm8detect/internal/gamedata"
)

const (
	// HeaderOffset is where the 8.0 runner stores its game data header.
	HeaderOffset = 0x1E8480

	headerMagic   = 1234321
	headerVersion = 800
	headerLen     = 12
)

// Check reports whether img carries an 8.0 header at HeaderOffset. On a
// match the cursor is left just past the 12-byte header; otherwise it is
// wherever the check stopped. The bytes are never written.
func Check(img *exebuf.Image, log gamedata.Logger) (bool, error) {
	log = gamedata.OrDiscard(log)
	log.Logf("Checking for standard GM8.0 format")
	if img.Len() < HeaderOffset+headerLen {
		return false, nil
	}
	if err := img.SetPos(HeaderOffset); err != nil {
		return false, err
	}

	magic, err := img.ReadU32()
	if err != nil {
		return false, err
	}
	if magic != headerMagic {
		return false, nil
	}
	version, err := img.ReadU32()
	if err != nil {
		return false, err
	}
	if version != headerVersion {
		log.Logf("GM8.0 magic found, but header version is %d (expected %d)", version, headerVersion)
		return false, nil
	}
	if err := img.Skip(headerLen - 8); err != nil {
		return false, err
	}
	return true, nil
}

// Detector is Check as a gamedata.Detector.
var Detector gamedata.Detector = gamedata.DetectorFunc(Check)

