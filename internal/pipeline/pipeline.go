// Package pipeline wires the default detection collaborators together and
// classifies files on disk.
package pipeline

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"time"

	"gm8detect/internal/exebuf"
	"gm8detect/internal/gamedata"
	"gm8detect/internal/gamedata/antidec"
	"gm8detect/internal/gamedata/gm80"
	"gm8detect/internal/gamedata/gm81"
	"gm8detect/internal/logging"
	"gm8detect/internal/pex"
	"gm8detect/internal/upx"
)

// entryWindow is how much code after the entry point is kept for listings.
const entryWindow = 256

// Result describes one classification. Err is set when the file was read
// but not recognised.
type Result struct {
	Path         string                    `json:"path"`
	Size         int64                     `json:"size"`
	Digest       string                    `json:"sha256"`
	Sections     string                    `json:"sections,omitempty"`
	EntryPoint   uint64                    `json:"entryPoint,omitempty"`
	EntryOffset  uint64                    `json:"entryOffset,omitempty"`
	Hint         *gamedata.CompressionHint `json:"upx,omitempty"`
	UnpackedSize int                       `json:"unpackedSize,omitempty"`
	Branch       string                    `json:"branch,omitempty"`
	Descriptor   string                    `json:"descriptor,omitempty"`
	Settings     *gamedata.Settings        `json:"antidec,omitempty"`
	Version      string                    `json:"version,omitempty"`
	HeaderOffset int                       `json:"headerOffset,omitempty"`
	Error        string                    `json:"error,omitempty"`
	Elapsed      time.Duration             `json:"elapsed"`
	Log          []string                  `json:"log,omitempty"`

	GameVersion gamedata.GameVersion `json:"-"`
	Err         error                `json:"-"`
	Image       *exebuf.Image        `json:"-"` // buffer HeaderOffset refers to
	Stub        *antidec.Descriptor  `json:"-"`
	Entry       []byte               `json:"-"` // code at the entry point, before any decryption
}

// Recognised reports whether a game version was identified.
func (r *Result) Recognised() bool { return r.Err == nil && r.GameVersion != 0 }

// Classifier runs the default detection order. It is safe for concurrent
// use as long as Log is.
type Classifier struct {
	table *antidec.Table
	Log   gamedata.Logger
}

// New returns a Classifier using table, or the built-in descriptor table
// when table is nil.
func New(table *antidec.Table, log gamedata.Logger) (*Classifier, error) {
	if table == nil {
		var err error
		if table, err = antidec.Builtin(); err != nil {
			return nil, err
		}
	}
	return &Classifier{table: table, Log: log}, nil
}

// LoadTable reads a descriptor table override. An empty path selects the
// built-in table.
func LoadTable(path string) (*antidec.Table, error) {
	if path == "" {
		return antidec.Builtin()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read descriptor table: %w", err)
	}
	return antidec.ParseTable(data)
}

// Finder returns the standard detection order with every collaborator
// supplied by this module.
func Finder(table *antidec.Table) *gamedata.Finder {
	return &gamedata.Finder{
		Unpacker:  upx.Unpacker{},
		Antidec80: antidec.NewProber(table.Antidec80),
		Antidec81: antidec.NewProber(table.Antidec81),
		Decrypter: antidec.Decrypter{},
		XorPass:   gm81.XorPass,
		XorMode:   table.Mode(),
		GM80:      gm80.Detector,
		GM81:      gm81.Strict,
		GM81Lazy:  gm81.Lazy,
	}
}

// finderFor is Finder with every probe and detector reporting into res.
func (c *Classifier) finderFor(res *Result) *gamedata.Finder {
	protected := func(name string, p *antidec.Prober) gamedata.Probe {
		return gamedata.ProbeFunc(func(img *exebuf.Image) (*gamedata.Settings, error) {
			d, s, err := p.Match(img)
			if s != nil {
				cp := *s
				res.Branch, res.Descriptor, res.Settings, res.Stub = name, d.Name, &cp, d
			}
			return s, err
		})
	}
	standard := func(name string, d gamedata.Detector) gamedata.Detector {
		return gamedata.DetectorFunc(func(img *exebuf.Image, log gamedata.Logger) (bool, error) {
			ok, err := d.Check(img, log)
			if ok {
				res.Branch = name
			}
			return ok, err
		})
	}

	f := Finder(c.table)
	f.Antidec80 = protected("antidec80", antidec.NewProber(c.table.Antidec80))
	f.Antidec81 = protected("antidec81", antidec.NewProber(c.table.Antidec81))
	f.GM80 = standard("gm80", f.GM80)
	f.GM81 = standard("gm81", f.GM81)
	f.GM81Lazy = standard("gm81-lazy", f.GM81Lazy)
	return f
}

// Classify identifies data, which it takes ownership of and may decrypt in
// place.
func (c *Classifier) Classify(path string, data []byte) *Result {
	start := time.Now()
	res := &Result{
		Path:   path,
		Size:   int64(len(data)),
		Digest: fmt.Sprintf("%x", sha256.Sum256(data)),
	}
	rec := &logging.Recorder{Next: c.Log}

	if im, err := pex.Parse(data); err == nil {
		res.Sections = im.SectionNames()
		res.Hint = im.UPXHint()
		if im.Packed() {
			rec.Logf("UPX sections present, compressed stream at 0x%X", res.Hint.DiskOffset)
		}
		if off, ok := im.EntryOffset(); ok && off < uint64(len(data)) {
			res.EntryPoint, res.EntryOffset = im.EntryVA, off
			if b, ok := im.SliceVA(im.EntryVA, min(entryWindow, uint64(len(data))-off)); ok {
				res.Entry = append([]byte(nil), b...)
			}
		}
		im.Close()
	} else {
		rec.Logf("Not a PE32 image (%v), probing raw bytes", err)
	}

	v, img, err := c.finderFor(res).Find(exebuf.New(data), rec, res.Hint)
	res.Elapsed = time.Since(start)
	res.Log = rec.Lines
	if err != nil {
		res.Err = err
		res.Error = err.Error()
		return res
	}

	res.GameVersion = v
	res.Version = v.String()
	res.Image = img
	res.HeaderOffset = img.Pos()
	if res.Hint != nil {
		res.UnpackedSize = img.Len()
	}
	return res
}

// ClassifyFile reads and classifies path. Only I/O failures are returned as
// errors; detection failures are reported in the Result.
func (c *Classifier) ClassifyFile(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return c.Classify(path, data), nil
}

// IsUnknown reports whether err means no supported format was found, as
// opposed to a malformed or truncated file.
func IsUnknown(err error) bool {
	return errors.Is(err, gamedata.ErrUnknownFormat)
}
