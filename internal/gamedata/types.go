package gamedata

import (
	"errors"
	"fmt"
)

// ErrUnknownFormat is returned when no branch of the detection order
// matched, or when a protector branch matched but could not be decrypted
// or its header could not be located.
var ErrUnknownFormat = errors.New("unknown game data format")

// GameVersion identifies the release family that produced an executable.
type GameVersion int

const (
	GameMaker80 GameVersion = iota + 1
	GameMaker81
)

func (v GameVersion) String() string {
	switch v {
	case GameMaker80:
		return "GameMaker 8.0"
	case GameMaker81:
		return "GameMaker 8.1"
	default:
		return fmt.Sprintf("GameVersion(%d)", int(v))
	}
}

// CompressionHint says the executable is UPX-packed and where its payload is.
type CompressionHint struct {
	MaxSize    uint32 // upper bound on the decompressed size
	DiskOffset uint32 // file offset of the compressed stream
}

// Settings parameterizes one antidec decrypt attempt.
//
// For the 8.0 variant HeaderStart is an absolute file offset. For the 8.1
// variant it is relative to LoadOffset and only approximate; the real
// header is found with Locate.
type Settings struct {
	LoadOffset  uint32
	HeaderStart uint32
	XorMask     uint32
	AddMask     uint32
	SubMask     uint32
}

func (s Settings) String() string {
	return fmt.Sprintf("exe_load_offset:0x%X header_start:0x%X xor_mask:0x%X add_mask:0x%X sub_mask:0x%X",
		s.LoadOffset, s.HeaderStart, s.XorMask, s.AddMask, s.SubMask)
}

// XorMode selects the keystream variant of the 8.1 header XOR pass.
type XorMode int

const (
	XorNormal XorMode = iota
	XorSudalv
)

func (m XorMode) String() string {
	if m == XorSudalv {
		return "sudalv"
	}
	return "normal"
}
