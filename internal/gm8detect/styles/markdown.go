// Package styles holds the colours and markdown theme of the gm8detect
// report and TUI.
package styles

import (
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/charmbracelet/x/exp/charmtone"
)

func boolPtr(b bool) *bool       { return &b }
func stringPtr(s string) *string { return &s }
func uintPtr(u uint) *uint       { return &u }

var (
	Spinner = lipgloss.NewStyle().Foreground(lipgloss.Color(charmtone.Charple.Hex()))
	Menu    = lipgloss.NewStyle().
		Background(lipgloss.Color(charmtone.Charcoal.Hex())).
		Foreground(lipgloss.Color(charmtone.Smoke.Hex())).
		Padding(0, 1)
	Title = lipgloss.NewStyle().
		Foreground(lipgloss.Color(charmtone.Zest.Hex())).
		Background(lipgloss.Color(charmtone.Charple.Hex())).
		Bold(true).
		Padding(0, 1)
	Recognised = lipgloss.NewStyle().Foreground(lipgloss.Color(charmtone.Guac.Hex())).Bold(true)
	Unknown    = lipgloss.NewStyle().Foreground(lipgloss.Color(charmtone.Cherry.Hex()))
	Dim        = lipgloss.NewStyle().Foreground(lipgloss.Color(charmtone.Squid.Hex()))
)

// MarkdownRenderer returns a glamour renderer that wraps prose at width.
func MarkdownRenderer(width int) (*glamour.TermRenderer, error) {
	return glamour.NewTermRenderer(
		glamour.WithStyles(MarkdownStyle()),
		glamour.WithWordWrap(width),
	)
}

// MarkdownStyle is the report theme. It only covers what the report
// emits: a title, section headings, bold file names, the property table,
// inline digests and fenced listings.
func MarkdownStyle() ansi.StyleConfig {
	heading := func(prefix, color string) ansi.StyleBlock {
		return ansi.StyleBlock{StylePrimitive: ansi.StylePrimitive{
			Prefix: prefix,
			Color:  stringPtr(color),
			Bold:   boolPtr(true),
		}}
	}

	cfg := ansi.StyleConfig{
		H1: heading(" ", charmtone.Zest.Hex()),
		H2: heading("## ", charmtone.Malibu.Hex()),
		Strong: ansi.StylePrimitive{
			Color: stringPtr(charmtone.Guac.Hex()),
			Bold:  boolPtr(true),
		},
		Code: ansi.StyleBlock{StylePrimitive: ansi.StylePrimitive{
			Color: stringPtr(charmtone.Cheeky.Hex()),
		}},
		CodeBlock: ansi.StyleCodeBlock{StyleBlock: ansi.StyleBlock{
			StylePrimitive: ansi.StylePrimitive{Color: stringPtr(charmtone.Ash.Hex())},
			Margin:         uintPtr(2),
		}},
		Table: ansi.StyleTable{
			StyleBlock: ansi.StyleBlock{StylePrimitive: ansi.StylePrimitive{
				Color: stringPtr(charmtone.Smoke.Hex()),
			}},
			CenterSeparator: stringPtr("┼"),
			ColumnSeparator: stringPtr("│"),
			RowSeparator:    stringPtr("─"),
		},
	}
	cfg.Document.Color = stringPtr(charmtone.Smoke.Hex())
	cfg.Heading.BlockSuffix = "\n"
	cfg.H1.Suffix = " "
	cfg.H1.BackgroundColor = stringPtr(charmtone.Charple.Hex())
	return cfg
}
