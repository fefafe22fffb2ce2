// Package disasm decodes 32-bit x86 code into a simple listing used to show
// protector loader stubs.
package disasm

import (
	"fmt"
	"strings"

	"golang.org/x/arch/x86/x86asm"
)

// Inst is a simplified decoded instruction.
type Inst struct {
	VA          uint64   // virtual address of instruction
	Off         int      // file offset of instruction
	Text        string   // operands in Intel syntax
	Op          string   // mnemonic in lowercase
	Raw         []byte   // raw encoding
	Annotations []string // comments to display
}

// Stream is a linear sequence of instructions.
type Stream []Inst

// Decode32 decodes up to max instructions from code, which is mapped at va
// and starts at file offset off. Undecodable bytes become one-byte "db"
// entries so the listing stays aligned with the file.
func Decode32(code []byte, off int, va uint64, max int) Stream {
	var out Stream
	for pos := 0; pos < len(code) && len(out) < max; {
		pc := va + uint64(pos)
		inst, err := x86asm.Decode(code[pos:], 32)
		if err != nil || inst.Len == 0 {
			out = append(out, Inst{
				VA:   pc,
				Off:  off + pos,
				Op:   "db",
				Text: fmt.Sprintf("0x%02x", code[pos]),
				Raw:  code[pos : pos+1],
			})
			pos++
			continue
		}

		text := x86asm.IntelSyntax(inst, pc, nil)
		op, args, _ := strings.Cut(text, " ")
		out = append(out, Inst{
			VA:   pc,
			Off:  off + pos,
			Op:   strings.ToLower(op),
			Text: args,
			Raw:  code[pos : pos+inst.Len],
		})
		pos += inst.Len
	}
	return out
}

// Covering returns the index of the instruction whose encoding contains
// file offset off, or -1.
func (s Stream) Covering(off int) int {
	for i, in := range s {
		if off >= in.Off && off < in.Off+len(in.Raw) {
			return i
		}
	}
	return -1
}

// String formats the instruction with the address, mnemonic and operands
// in fixed columns and annotations after a semicolon.
// This returns plain text; colorization is done after formatting.
func (in Inst) String() string {
	base := fmt.Sprintf("%-10x %-6s %-30s", in.VA, in.Op, in.Text)
	if len(in.Annotations) > 0 {
		return fmt.Sprintf("%s ; %s", base, strings.Join(in.Annotations, ", "))
	}
	return strings.TrimRight(base, " ")
}

// Lines formats the whole stream.
func (s Stream) Lines() []string {
	out := make([]string, len(s))
	for i, in := range s {
		out[i] = in.String()
	}
	return out
}
