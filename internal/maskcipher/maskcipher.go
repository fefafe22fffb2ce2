// Package maskcipher implements the rolling xor/add word cipher antidec
// applies to protected game data.
package maskcipher

import (
	"encoding/binary"
	"math/bits"
)

// Masks is the key schedule state. Xor and Add are applied to each word; Sub
// is how far Xor moves between words.
type Masks struct {
	Xor uint32
	Add uint32
	Sub uint32
}

// step advances the schedule to the next (lower) word.
func (m *Masks) step() {
	m.Add = bits.ReverseBytes32(m.Xor)
	m.Xor -= m.Sub
}

// Decrypt reverses the cipher over data in place.
//
// Words are aligned to the end of data and processed last to first, the
// same direction the protector's loader walks them. Leading bytes that do
// not fill a word are left untouched.
func Decrypt(data []byte, m Masks) {
	for end := len(data); end >= 4; end -= 4 {
		w := binary.LittleEndian.Uint32(data[end-4 : end])
		w = (w ^ m.Xor) + m.Add
		binary.LittleEndian.PutUint32(data[end-4:end], w)
		m.step()
	}
}

// Encrypt is the inverse of Decrypt with the same starting masks.
func Encrypt(data []byte, m Masks) {
	for end := len(data); end >= 4; end -= 4 {
		w := binary.LittleEndian.Uint32(data[end-4 : end])
		w = (w - m.Add) ^ m.Xor
		binary.LittleEndian.PutUint32(data[end-4:end], w)
		m.step()
	}
}
