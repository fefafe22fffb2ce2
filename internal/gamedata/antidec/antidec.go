// Package antidec detects the two antidec protector variants and reverses
// their mask cipher.
package antidec

import (
	"bytes"
	"errors"

	"gm8detect/internal/exebuf"
	"gm8detect/internal/gamedata"
	"gm8detect/internal/maskcipher"
)

// Prober matches an image against a list of loader stub descriptors.
type Prober struct {
	descriptors []Descriptor
}

// NewProber returns a Prober that tries ds in order.
func NewProber(ds []Descriptor) *Prober {
	return &Prober{descriptors: ds}
}

// Probe returns the settings of the first descriptor whose markers all
// match. Images too short to hold a marker or field simply do not match.
// Neither the bytes nor the cursor are touched.
func (p *Prober) Probe(img *exebuf.Image) (*gamedata.Settings, error) {
	_, s, err := p.Match(img)
	return s, err
}

// Match is Probe that also reports which descriptor matched.
func (p *Prober) Match(img *exebuf.Image) (*Descriptor, *gamedata.Settings, error) {
	for i := range p.descriptors {
		d := &p.descriptors[i]
		s, err := d.read(img)
		if errors.Is(err, exebuf.ErrOutOfBounds) {
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		if s != nil {
			return d, s, nil
		}
	}
	return nil, nil, nil
}

func (d *Descriptor) read(img *exebuf.Image) (*gamedata.Settings, error) {
	for _, m := range d.Markers {
		got, err := img.Slice(m.At, len(m.raw))
		if err != nil {
			return nil, err
		}
		if !bytes.Equal(got, m.raw) {
			return nil, nil
		}
	}

	var s gamedata.Settings
	for _, f := range []struct {
		field Field
		dst   *uint32
	}{
		{d.LoadOffset, &s.LoadOffset},
		{d.HeaderStart, &s.HeaderStart},
		{d.XorMask, &s.XorMask},
		{d.AddMask, &s.AddMask},
		{d.SubMask, &s.SubMask},
	} {
		v, err := img.U32At(f.field.At)
		if err != nil {
			return nil, err
		}
		*f.dst = v - f.field.Base
	}
	return &s, nil
}

// Decrypter reverses the antidec mask cipher over everything from the load
// offset to the end of the image.
type Decrypter struct{}

// Decrypt reports false, without touching the image, when the settings
// point outside it; such settings cannot have come from a loader stub for
// this file.
func (Decrypter) Decrypt(img *exebuf.Image, s gamedata.Settings) (bool, error) {
	n := uint64(img.Len())
	if uint64(s.LoadOffset)+4 > n || uint64(s.HeaderStart) >= n {
		return false, nil
	}
	maskcipher.Decrypt(img.Bytes()[s.LoadOffset:], maskcipher.Masks{
		Xor: s.XorMask,
		Add: s.AddMask,
		Sub: s.SubMask,
	})
	return true, nil
}

// Encrypt applies the cipher the way the protector does. It exists for
// building fixtures and for round-trip checks of recovered settings.
func Encrypt(data []byte, s gamedata.Settings) error {
	if uint64(s.LoadOffset) > uint64(len(data)) {
		return &exebuf.RangeError{Op: "read", Off: int64(s.LoadOffset), Len: len(data)}
	}
	maskcipher.Encrypt(data[s.LoadOffset:], maskcipher.Masks{
		Xor: s.XorMask,
		Add: s.AddMask,
		Sub: s.SubMask,
	})
	return nil
}
