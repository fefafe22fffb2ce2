// Package gamedata identifies which GameMaker 8.x release produced an
// executable and removes antidec protection from its game data header.
//
// Detection is a fixed, ordered chain. The first branch whose probe matches
// commits the whole dispatch: its failures are final and nothing later in
// the chain is tried. Decryption happens in place and is never rolled back,
// so a buffer that failed classification must be discarded by the caller.
package gamedata

import (
	"errors"
	"io"

	"gm8detect/internal/exebuf"
)

const (
	// antidec puts filler over the 12-byte 8.0 header prefix; it is skipped unchecked.
	gm80HeaderSkip = 12
	// distance from a located 8.1 header to the first field after the XOR preamble.
	gm81HeaderSkip = 20
)

// Finder holds the collaborators of one detection order. Nil probes and
// detectors are left out of the chain. XorMode is passed to XorPass; the
// zero value is XorNormal.
type Finder struct {
	Unpacker  Unpacker
	Antidec80 Probe
	Antidec81 Probe
	Decrypter Decrypter
	XorPass   XorPass
	XorMode   XorMode
	GM80      Detector
	GM81      Detector
	GM81Lazy  Detector
}

// Find classifies img. When hint is non-nil the image is unpacked first and
// every later stage runs on the unpacked buffer only; otherwise img is
// decrypted in place. The returned Image is the buffer the cursor position
// refers to.
func (f *Finder) Find(img *exebuf.Image, log Logger, hint *CompressionHint) (GameVersion, *exebuf.Image, error) {
	log = OrDiscard(log)
	if err := f.validate(hint != nil); err != nil {
		return 0, nil, err
	}

	work := img
	if hint != nil {
		unpacked, err := f.Unpacker.Unpack(img, *hint, log)
		if err != nil {
			return 0, nil, err
		}
		log.Logf("Successfully unpacked UPX - output is %d bytes", unpacked.Len())
		work = unpacked
	}

	v, err := Run(f.Branches(hint != nil), work, log)
	if err != nil {
		return 0, nil, err
	}
	return v, work, nil
}

func (f *Finder) validate(packed bool) error {
	if packed && f.Unpacker == nil {
		return errors.New("gamedata: compression hint given but no unpacker configured")
	}
	if (f.Antidec80 != nil || f.Antidec81 != nil) && f.Decrypter == nil {
		return errors.New("gamedata: antidec probe configured without a decrypter")
	}
	if f.Antidec81 != nil && f.XorPass == nil {
		return errors.New("gamedata: antidec81 probe configured without an xor pass")
	}
	return nil
}

// Branches returns the detection order. packed only changes log wording.
func (f *Finder) Branches(packed bool) []Branch {
	suffix := " [no UPX]"
	if packed {
		suffix = ""
	}

	var out []Branch
	if f.Antidec80 != nil {
		out = append(out, ProtectedBranch("antidec80", f.Antidec80, func(img *exebuf.Image, log Logger, s Settings) (GameVersion, error) {
			log.Logf("Found antidec2 loading sequence%s, decrypting with the following values:", suffix)
			log.Logf("%s", s)
			return f.commitAntidec80(img, s)
		}))
	}
	if f.Antidec81 != nil {
		out = append(out, ProtectedBranch("antidec81", f.Antidec81, func(img *exebuf.Image, log Logger, s Settings) (GameVersion, error) {
			log.Logf("Found antidec81 loading sequence%s, decrypting with the following values:", suffix)
			log.Logf("%s", s)
			return f.commitAntidec81(img, log, s)
		}))
	}
	if f.GM80 != nil {
		out = append(out, StandardBranch("gm80", f.GM80, GameMaker80))
	}
	if f.GM81 != nil {
		out = append(out, StandardBranch("gm81", f.GM81, GameMaker81))
	}
	if f.GM81Lazy != nil {
		out = append(out, StandardBranch("gm81-lazy", f.GM81Lazy, GameMaker81))
	}
	return out
}

func (f *Finder) commitAntidec80(img *exebuf.Image, s Settings) (GameVersion, error) {
	ok, err := f.Decrypter.Decrypt(img, s)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrUnknownFormat
	}
	if _, err := img.Seek(int64(s.HeaderStart)+gm80HeaderSkip, io.SeekStart); err != nil {
		return 0, err
	}
	return GameMaker80, nil
}

func (f *Finder) commitAntidec81(img *exebuf.Image, log Logger, s Settings) (GameVersion, error) {
	ok, err := f.Decrypter.Decrypt(img, s)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrUnknownFormat
	}

	at, found, err := Locate(img, uint64(s.HeaderStart)+uint64(s.LoadOffset))
	if err != nil {
		return 0, err
	}
	if !found {
		log.Logf("Didn't find GM81 magic value (0x%X) before EOF, so giving up", HeaderMagic)
		return 0, ErrUnknownFormat
	}

	if err := f.XorPass.Decrypt(img, log, f.XorMode); err != nil {
		return 0, err
	}
	if err := img.SetPos(at + gm81HeaderSkip); err != nil {
		return 0, err
	}
	return GameMaker81, nil
}
