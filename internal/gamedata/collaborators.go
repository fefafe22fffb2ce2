package gamedata

import (
	"gm8detect/internal/exebuf"
)

// Unpacker undoes a generic executable compressor. It must not modify img;
// the returned Image is a new buffer the Finder takes ownership of.
type Unpacker interface {
	Unpack(img *exebuf.Image, hint CompressionHint, log Logger) (*exebuf.Image, error)
}

// Probe checks img for a protector's loader stub. A nil *Settings with a nil
// error means the signature is absent. Probes must not modify the bytes.
type Probe interface {
	Probe(img *exebuf.Image) (*Settings, error)
}

// ProbeFunc adapts a function to Probe.
type ProbeFunc func(img *exebuf.Image) (*Settings, error)

func (f ProbeFunc) Probe(img *exebuf.Image) (*Settings, error) { return f(img) }

// Decrypter reverses a protector's mask cipher in place and reports whether
// the result passed the transform's own consistency check.
type Decrypter interface {
	Decrypt(img *exebuf.Image, s Settings) (bool, error)
}

// DecrypterFunc adapts a function to Decrypter.
type DecrypterFunc func(img *exebuf.Image, s Settings) (bool, error)

func (f DecrypterFunc) Decrypt(img *exebuf.Image, s Settings) (bool, error) { return f(img, s) }

// XorPass removes the 8.1 header XOR layer, starting at the cursor.
type XorPass interface {
	Decrypt(img *exebuf.Image, log Logger, mode XorMode) error
}

// XorPassFunc adapts a function to XorPass.
type XorPassFunc func(img *exebuf.Image, log Logger, mode XorMode) error

func (f XorPassFunc) Decrypt(img *exebuf.Image, log Logger, mode XorMode) error {
	return f(img, log, mode)
}

// Detector is a structural validator for an unprotected release format.
// It may move the cursor but must not modify the bytes.
type Detector interface {
	Check(img *exebuf.Image, log Logger) (bool, error)
}

// DetectorFunc adapts a function to Detector.
type DetectorFunc func(img *exebuf.Image, log Logger) (bool, error)

func (f DetectorFunc) Check(img *exebuf.Image, log Logger) (bool, error) { return f(img, log) }
