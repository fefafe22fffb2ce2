package antidec

import (
	_ "embed"
	"encoding/hex"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"gm8detect/internal/gamedata"
)

//go:embed descriptors.yaml
var builtinYAML []byte

// Field locates one uint32 immediate inside a loader stub. Base is
// subtracted from the raw value (wrapping), which turns virtual addresses
// into file offsets.
type Field struct {
	At   int    `yaml:"at"`
	Base uint32 `yaml:"base,omitempty"`
}

// Marker is a byte sequence that must appear at a fixed offset.
type Marker struct {
	At    int    `yaml:"at"`
	Bytes string `yaml:"bytes"` // hex, whitespace ignored

	raw []byte
}

// Descriptor describes one known build of a protector's loader stub.
type Descriptor struct {
	Name        string   `yaml:"name"`
	Markers     []Marker `yaml:"markers"`
	LoadOffset  Field    `yaml:"load_offset"`
	HeaderStart Field    `yaml:"header_start"`
	XorMask     Field    `yaml:"xor_mask"`
	AddMask     Field    `yaml:"add_mask"`
	SubMask     Field    `yaml:"sub_mask"`
}

// Table lists descriptors for both protector variants, in probe order.
// XorMode picks the keystream of the 8.1 header pass: "normal" (the
// default) or "sudalv" for games built with the sudalv loader.
type Table struct {
	XorMode   string       `yaml:"xor_mode,omitempty"`
	Antidec80 []Descriptor `yaml:"antidec80"`
	Antidec81 []Descriptor `yaml:"antidec81"`
}

// ParseTable decodes and validates a YAML descriptor table.
func ParseTable(data []byte) (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse descriptor table: %w", err)
	}
	switch t.XorMode {
	case "", "normal", "sudalv":
	default:
		return nil, fmt.Errorf("descriptor table: unknown xor_mode %q", t.XorMode)
	}
	for _, group := range [][]Descriptor{t.Antidec80, t.Antidec81} {
		for i := range group {
			if err := group[i].compile(); err != nil {
				return nil, err
			}
		}
	}
	return &t, nil
}

// Mode returns the XOR pass mode the table selects.
func (t *Table) Mode() gamedata.XorMode {
	if t.XorMode == "sudalv" {
		return gamedata.XorSudalv
	}
	return gamedata.XorNormal
}

// Builtin returns the descriptor table shipped with the binary.
func Builtin() (*Table, error) {
	return ParseTable(builtinYAML)
}

func (d *Descriptor) compile() error {
	if d.Name == "" {
		return fmt.Errorf("descriptor without a name")
	}
	if len(d.Markers) == 0 {
		return fmt.Errorf("descriptor %s: no markers", d.Name)
	}
	for i := range d.Markers {
		m := &d.Markers[i]
		raw, err := hex.DecodeString(strings.Join(strings.Fields(m.Bytes), ""))
		if err != nil {
			return fmt.Errorf("descriptor %s: marker at 0x%X: %w", d.Name, m.At, err)
		}
		if len(raw) == 0 || m.At < 0 {
			return fmt.Errorf("descriptor %s: empty or negative marker at 0x%X", d.Name, m.At)
		}
		m.raw = raw
	}
	for _, f := range []Field{d.LoadOffset, d.HeaderStart, d.XorMask, d.AddMask, d.SubMask} {
		if f.At < 0 {
			return fmt.Errorf("descriptor %s: negative field offset", d.Name)
		}
	}
	return nil
}
