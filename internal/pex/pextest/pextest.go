// Package pextest builds minimal PE32 images for tests.
package pextest

import (
	"encoding/binary"
)

const (
	// HeaderSize is where the first section's raw data starts.
	HeaderSize = 0x400

	peOffset   = 0x80
	optOffset  = peOffset + 4 + 20
	optSize    = 0xE0
	secOffset  = optOffset + optSize
	secHdrSize = 40
)

// Section is one section to lay out. Raw data is placed back to back after
// the headers in the order given.
type Section struct {
	Name            string
	RVA             uint32
	VirtualSize     uint32
	Data            []byte
	Characteristics uint32
}

// Build returns a PE32 image with the given sections and entry point.
func Build(imageBase, entryRVA uint32, sections []Section) []byte {
	size := HeaderSize
	for _, s := range sections {
		size += len(s.Data)
	}
	buf := make([]byte, size)
	le := binary.LittleEndian

	copy(buf, "MZ")
	le.PutUint32(buf[0x3C:], peOffset)

	copy(buf[peOffset:], "PE\x00\x00")
	fh := buf[peOffset+4:]
	le.PutUint16(fh[0:], 0x14C) // i386
	le.PutUint16(fh[2:], uint16(len(sections)))
	le.PutUint16(fh[16:], optSize)
	le.PutUint16(fh[18:], 0x0102)

	oh := buf[optOffset:]
	le.PutUint16(oh[0:], 0x10B)
	le.PutUint32(oh[16:], entryRVA)
	le.PutUint32(oh[28:], imageBase)
	le.PutUint32(oh[32:], 0x1000)
	le.PutUint32(oh[36:], 0x200)
	le.PutUint32(oh[60:], HeaderSize)
	le.PutUint32(oh[92:], 16)

	off := HeaderSize
	for i, s := range sections {
		sh := buf[secOffset+i*secHdrSize:]
		copy(sh[:8], s.Name)
		le.PutUint32(sh[8:], s.VirtualSize)
		le.PutUint32(sh[12:], s.RVA)
		le.PutUint32(sh[16:], uint32(len(s.Data)))
		if len(s.Data) > 0 {
			le.PutUint32(sh[20:], uint32(off))
		}
		le.PutUint32(sh[36:], s.Characteristics)
		copy(buf[off:], s.Data)
		off += len(s.Data)
	}
	return buf
}
