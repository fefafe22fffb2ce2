// Package colorize highlights disassembly listings and hex dumps for the
// terminal. Setting GM8DETECT_NO_COLOR turns every function into a no-op.
package colorize

import (
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// Disabled reports whether colour output was turned off.
func Disabled() bool {
	return os.Getenv("GM8DETECT_NO_COLOR") != ""
}

// lexer returns the first registered lexer out of names.
func lexer(names ...string) chroma.Lexer {
	for _, name := range names {
		if l := lexers.Get(name); l != nil {
			return l
		}
	}
	return nil
}

func style() *chroma.Style {
	for _, name := range []string{DisasmDark.Name, "dracula", "monokai"} {
		if s := styles.Get(name); s != nil {
			return s
		}
	}
	return styles.Fallback
}

func formatter() chroma.Formatter {
	for _, name := range []string{"terminal16m", "terminal256"} {
		if f := formatters.Get(name); f != nil {
			return f
		}
	}
	return formatters.Fallback
}

// highlight runs text through the lexer and returns it unchanged on any
// failure.
func highlight(l chroma.Lexer, text string) string {
	if Disabled() || l == nil {
		return text
	}
	it, err := l.Tokenise(nil, text)
	if err != nil {
		return text
	}
	var buf strings.Builder
	if err := formatter().Format(&buf, style(), it); err != nil {
		return text
	}
	return buf.String()
}

// Assembly highlights an x86 listing in Intel syntax.
func Assembly(code string) string {
	return highlight(lexer("nasm", "gas"), code)
}

// Line highlights one listing line of the form "address  mnemonic operands ; note".
// The address is dimmed and the rest goes through the assembly lexer.
func Line(line string) string {
	if Disabled() {
		return line
	}
	if strings.HasPrefix(strings.TrimSpace(line), ";") {
		return fmt.Sprintf("\033[38;2;235;194;237m%s\033[0m", line)
	}
	addr, rest, ok := strings.Cut(line, " ")
	if !ok || !isHex(addr) {
		return Assembly(line)
	}
	return fmt.Sprintf("\033[38;2;79;79;79m%s\033[0m %s", addr, strings.TrimSuffix(Assembly(rest), "\n"))
}

// Listing highlights lines one by one and joins them.
func Listing(lines []string) string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = Line(l)
	}
	return strings.Join(out, "\n")
}

func isHex(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !('0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F') {
			return false
		}
	}
	return true
}

// Hexdump formats data like "hexdump -C", numbering rows from base.
func Hexdump(data []byte, base int) string {
	var b strings.Builder
	for row := 0; row < len(data); row += 16 {
		chunk := data[row:min(row+16, len(data))]
		fmt.Fprintf(&b, "%08x  ", base+row)
		for i := 0; i < 16; i++ {
			if i < len(chunk) {
				fmt.Fprintf(&b, "%02x ", chunk[i])
			} else {
				b.WriteString("   ")
			}
			if i == 7 {
				b.WriteByte(' ')
			}
		}
		b.WriteString(" |")
		for _, c := range chunk {
			if c < 0x20 || c > 0x7E {
				c = '.'
			}
			b.WriteByte(c)
		}
		b.WriteString("|\n")
	}
	return b.String()
}

// HexdumpColor is Hexdump passed through the hexdump lexer.
func HexdumpColor(data []byte, base int) string {
	return highlight(lexer("hexdump"), Hexdump(data, base))
}
