package colorize

import (
	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/styles"
)

// DisasmDark colours x86 listings and hex dumps.
var DisasmDark = styles.Register(chroma.MustNewStyle("disasm-dark", chroma.StyleEntries{
	chroma.Text:       "#E4E4E4",
	chroma.Background: "bg:#1e1e1e",
	chroma.Comment:    "#EBC2ED", // annotations after ';'

	chroma.Keyword:       "#FFFFFF",
	chroma.KeywordPseudo: "#FFFFFF",
	chroma.NameFunction:  "#FFFFFF", // nasm tokenises mnemonics as functions
	chroma.Name:          "#7C9C9D", // registers
	chroma.NameBuiltin:   "#7C9C9D",
	chroma.NameVariable:  "#7C9C9D",
	chroma.NameLabel:     "#4F4F4F", // hexdump offsets

	chroma.LiteralNumber:        "#FF5F87",
	chroma.LiteralNumberHex:     "#FF5F87",
	chroma.LiteralNumberInteger: "#FF5F87",

	chroma.Operator:    "#C0C0C0",
	chroma.Punctuation: "#C0C0C0",
	chroma.String:      "#EACD53", // hexdump ASCII column
}))
