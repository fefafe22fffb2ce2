package upx

import (
	"fmt"

	"gm8detect/internal/exebuf"
	"gm8detect/internal/gamedata"
)

// HeaderSize is the PE header region kept in front of the unpacked payload.
const HeaderSize = 0x400

// Unpacker implements gamedata.Unpacker for NRV2B-packed images.
type Unpacker struct{}

// Unpack decompresses the stream at hint.DiskOffset. The result is the
// original PE headers, then the decompressed payload, then whatever
// followed the compressed stream on disk (the game data an 8.x runner
// appends to itself). img is not modified.
func (Unpacker) Unpack(img *exebuf.Image, hint gamedata.CompressionHint, log gamedata.Logger) (*exebuf.Image, error) {
	log = gamedata.OrDiscard(log)
	src := img.Bytes()
	if int64(hint.DiskOffset) >= int64(len(src)) {
		return nil, fmt.Errorf("%w: payload at 0x%X, image is %d bytes", ErrNotPacked, hint.DiskOffset, len(src))
	}
	log.Logf("Unpacking UPX payload at 0x%X (up to %d bytes)", hint.DiskOffset, hint.MaxSize)

	payload, used, err := Decompress(src[hint.DiskOffset:], int(hint.MaxSize))
	if err != nil {
		return nil, fmt.Errorf("%w (at input offset 0x%X)", err, int(hint.DiskOffset)+used)
	}

	head := min(HeaderSize, len(src))
	tail := src[int(hint.DiskOffset)+used:]
	out := make([]byte, 0, head+len(payload)+len(tail))
	out = append(out, src[:head]...)
	out = append(out, payload...)
	out = append(out, tail...)
	return exebuf.New(out), nil
}
