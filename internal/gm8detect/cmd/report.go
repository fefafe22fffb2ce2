package cmd

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"gm8detect/internal/disasm"
	"gm8detect/internal/gamedata/antidec"
	"gm8detect/internal/gm8detect/styles"
	"gm8detect/internal/pex"
	"gm8detect/internal/pipeline"
	"gm8detect/internal/ui/colorize"
)

// Loader stubs are mapped at the default Win32 image base when the section
// table cannot place them.
const defaultImageBase = 0x400000

// x86 instructions are at most 15 bytes.
const maxInstLen = 15

type reportOptions struct {
	Hexdump      bool
	HexdumpBytes int
	Disasm       bool
	DisasmCount  int
}

// headerBytes returns up to n bytes of the image from the header offset.
func headerBytes(res *pipeline.Result, n int) []byte {
	if res.Image == nil || !res.Recognised() {
		return nil
	}
	data := res.Image.Bytes()
	off := res.HeaderOffset
	if off >= len(data) {
		return nil
	}
	return data[off:min(off+n, len(data))]
}

// stubListing disassembles the loader stub that matched, starting at its
// first marker, and annotates the instructions carrying the decrypt
// parameters.
func stubListing(res *pipeline.Result, count int) disasm.Stream {
	if res.Stub == nil || res.Image == nil || res.Settings == nil || len(res.Stub.Markers) == 0 {
		return nil
	}
	data := res.Image.Bytes()
	start := res.Stub.Markers[0].At
	if start >= len(data) {
		return nil
	}

	va := uint64(defaultImageBase) + uint64(start)
	if im, err := pex.Parse(data); err == nil {
		if v, ok := im.Off2VA(uint64(start)); ok {
			va = v
		}
		im.Close()
	}

	s := disasm.Decode32(data[start:min(len(data), start+count*maxInstLen)], start, va, count)
	fields := []struct {
		name  string
		field antidec.Field
		value uint32
	}{
		{"exe_load_offset", res.Stub.LoadOffset, res.Settings.LoadOffset},
		{"header_start", res.Stub.HeaderStart, res.Settings.HeaderStart},
		{"xor_mask", res.Stub.XorMask, res.Settings.XorMask},
		{"add_mask", res.Stub.AddMask, res.Settings.AddMask},
		{"sub_mask", res.Stub.SubMask, res.Settings.SubMask},
	}
	for _, f := range fields {
		if i := s.Covering(f.field.At); i >= 0 {
			s[i].Annotations = append(s[i].Annotations, fmt.Sprintf("%s = 0x%X", f.name, f.value))
		}
	}
	return s
}

// entryListing disassembles the bytes captured at the PE entry point.
func entryListing(res *pipeline.Result, count int) disasm.Stream {
	if len(res.Entry) == 0 {
		return nil
	}
	return disasm.Decode32(res.Entry, int(res.EntryOffset), res.EntryPoint, count)
}

func describeHint(res *pipeline.Result) string {
	if res.Hint == nil {
		return "no"
	}
	s := fmt.Sprintf("payload at 0x%X, up to %s", res.Hint.DiskOffset, humanize.IBytes(uint64(res.Hint.MaxSize)))
	if res.UnpackedSize > 0 {
		s += fmt.Sprintf(", unpacked %s", humanize.IBytes(uint64(res.UnpackedSize)))
	}
	return s
}

// buildReport renders a classification as markdown.
func buildReport(res *pipeline.Result, opts reportOptions) string {
	var b strings.Builder
	b.WriteString("# gm8detect\n\n")
	fmt.Fprintf(&b, "**%s**\n\n", filepath.Base(res.Path))

	b.WriteString("| Property | Value |\n|---|---|\n")
	row := func(k, v string) { fmt.Fprintf(&b, "| %s | %s |\n", k, v) }
	row("Size", fmt.Sprintf("%s (%s bytes)", humanize.IBytes(uint64(res.Size)), humanize.Comma(res.Size)))
	row("SHA-256", "`"+res.Digest+"`")
	if res.Sections != "" {
		row("Sections", res.Sections)
	}
	row("UPX", describeHint(res))
	if res.EntryPoint != 0 {
		row("Entry point", fmt.Sprintf("0x%X (file 0x%X)", res.EntryPoint, res.EntryOffset))
	}
	if res.Recognised() {
		row("Format", res.Version)
		branch := res.Branch
		if res.Descriptor != "" {
			branch += " (" + res.Descriptor + ")"
		}
		row("Detected by", branch)
		row("Header", fmt.Sprintf("0x%X", res.HeaderOffset))
	} else {
		row("Format", "unknown: "+res.Error)
	}
	row("Elapsed", res.Elapsed.Round(time.Microsecond).String())

	if res.Settings != nil {
		fmt.Fprintf(&b, "\n## antidec settings\n\n```\n%s\n```\n", res.Settings)
	}
	if opts.Hexdump {
		if data := headerBytes(res, opts.HexdumpBytes); len(data) > 0 {
			fmt.Fprintf(&b, "\n## Header\n\n```\n%s```\n", colorize.Hexdump(data, res.HeaderOffset))
		}
	}
	if opts.Disasm {
		if s := stubListing(res, opts.DisasmCount); len(s) > 0 {
			fmt.Fprintf(&b, "\n## Loader stub\n\n```\n%s\n```\n", strings.Join(s.Lines(), "\n"))
		} else if s := entryListing(res, opts.DisasmCount); len(s) > 0 {
			fmt.Fprintf(&b, "\n## Entry point\n\n```\n%s\n```\n", strings.Join(s.Lines(), "\n"))
		}
	}
	if len(res.Log) > 0 {
		fmt.Fprintf(&b, "\n## Detection log\n\n```\n%s\n```\n", strings.Join(res.Log, "\n"))
	}
	return b.String()
}

func renderMarkdown(md string, width int) string {
	r, err := styles.MarkdownRenderer(width)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimSuffix(out, "\n")
}
