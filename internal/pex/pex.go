// Package pex provides helpers for parsing Win32 PE executables, locating
// sections, and mapping virtual addresses to file offsets.
package pex

import (
	"bytes"
	"debug/pe"
	"errors"
	"fmt"
	"strings"

	"gm8detect/internal/gamedata"
)

// ErrNotPE is returned for inputs that are not 32-bit PE images.
var ErrNotPE = errors.New("pex: not a PE32 executable")

type Image struct {
	All       []byte
	File      *pe.File
	ImageBase uint64
	EntryVA   uint64
	Sections  []Section
}

type Section struct {
	Name           string
	VA, Off        uint64 // VA is absolute (ImageBase applied)
	VirtualSize    uint64
	RawSize        uint64
	Characteristic uint32
}

// Parse reads the headers of a PE32 image held in memory. data is retained,
// not copied.
func Parse(data []byte) (*Image, error) {
	f, err := pe.NewFile(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotPE, err)
	}
	oh, ok := f.OptionalHeader.(*pe.OptionalHeader32)
	if !ok {
		f.Close()
		return nil, fmt.Errorf("%w: no 32-bit optional header", ErrNotPE)
	}

	im := &Image{
		All:       data,
		File:      f,
		ImageBase: uint64(oh.ImageBase),
		EntryVA:   uint64(oh.ImageBase) + uint64(oh.AddressOfEntryPoint),
	}
	for _, s := range f.Sections {
		im.Sections = append(im.Sections, Section{
			Name:           s.Name,
			VA:             im.ImageBase + uint64(s.VirtualAddress),
			Off:            uint64(s.Offset),
			VirtualSize:    uint64(s.VirtualSize),
			RawSize:        uint64(s.Size),
			Characteristic: s.Characteristics,
		})
	}
	return im, nil
}

// Close releases the parsed headers. All stays valid.
func (im *Image) Close() error {
	if im.File == nil {
		return nil
	}
	err := im.File.Close()
	im.File = nil
	return err
}

// Section returns the first section with the given name.
func (im *Image) Section(name string) (Section, bool) {
	for _, s := range im.Sections {
		if s.Name == name {
			return s, true
		}
	}
	return Section{}, false
}

// VA2Off translates a virtual address into a file offset using the raw
// extent of each section. It returns false if VA has no file backing.
func (im *Image) VA2Off(va uint64) (uint64, bool) {
	for _, s := range im.Sections {
		if va >= s.VA && va < s.VA+s.RawSize {
			return s.Off + (va - s.VA), true
		}
	}
	return 0, false
}

// Off2VA is the inverse of VA2Off.
func (im *Image) Off2VA(off uint64) (uint64, bool) {
	for _, s := range im.Sections {
		if s.RawSize > 0 && off >= s.Off && off < s.Off+s.RawSize {
			return s.VA + (off - s.Off), true
		}
	}
	return 0, false
}

// SliceVA returns the file bytes backing [va, va+size).
func (im *Image) SliceVA(va, size uint64) ([]byte, bool) {
	off, ok := im.VA2Off(va)
	if !ok {
		return nil, false
	}
	end := off + size
	if end > uint64(len(im.All)) {
		return nil, false
	}
	return im.All[off:end], true
}

// EntryOffset returns the file offset of the entry point.
func (im *Image) EntryOffset() (uint64, bool) {
	return im.VA2Off(im.EntryVA)
}

// Packed reports whether the section table carries UPX's section names.
func (im *Image) Packed() bool {
	_, ok0 := im.Section("UPX0")
	_, ok1 := im.Section("UPX1")
	return ok0 && ok1
}

// UPXHint derives the unpack parameters from the UPX0/UPX1 sections. UPX0
// is the empty section the payload is inflated into and UPX1 holds the
// compressed stream, so together their virtual sizes bound the output. It
// returns nil when the image is not UPX-packed.
func (im *Image) UPXHint() *gamedata.CompressionHint {
	u0, ok0 := im.Section("UPX0")
	u1, ok1 := im.Section("UPX1")
	if !ok0 || !ok1 {
		return nil
	}
	return &gamedata.CompressionHint{
		MaxSize:    uint32(u0.VirtualSize + u1.VirtualSize),
		DiskOffset: uint32(u1.Off),
	}
}

// SectionNames lists section names in table order.
func (im *Image) SectionNames() string {
	names := make([]string, len(im.Sections))
	for i, s := range im.Sections {
		names[i] = s.Name
	}
	return strings.Join(names, ",")
}
