package gamedata

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"gm8detect/internal/exebuf"
)

// recorder collects the names of collaborators as they are called.
type recorder struct {
	calls []string
	imgs  []*exebuf.Image
}

func (r *recorder) hit(name string, img *exebuf.Image) {
	r.calls = append(r.calls, name)
	r.imgs = append(r.imgs, img)
}

type fakes struct {
	rec        *recorder
	a80, a81   *Settings
	decryptOK  bool
	decryptErr error
	gm80       bool
	gm81       bool
	gm81Lazy   bool
	unpacked   *exebuf.Image
	unpackErr  error
	xorModes   []XorMode
	xorErr     error
}

func (fk *fakes) finder() *Finder {
	probe := func(name string, s **Settings) Probe {
		return ProbeFunc(func(img *exebuf.Image) (*Settings, error) {
			fk.rec.hit(name, img)
			return *s, nil
		})
	}
	detector := func(name string, ok *bool) Detector {
		return DetectorFunc(func(img *exebuf.Image, _ Logger) (bool, error) {
			fk.rec.hit(name, img)
			return *ok, nil
		})
	}
	return &Finder{
		Unpacker: unpackerFunc(func(img *exebuf.Image, _ CompressionHint, _ Logger) (*exebuf.Image, error) {
			fk.rec.hit("unpack", img)
			return fk.unpacked, fk.unpackErr
		}),
		Antidec80: probe("antidec80", &fk.a80),
		Antidec81: probe("antidec81", &fk.a81),
		Decrypter: DecrypterFunc(func(img *exebuf.Image, s Settings) (bool, error) {
			fk.rec.hit("decrypt", img)
			// Leave a visible mark so tests can check mutation is kept.
			img.Bytes()[0] = 0xDD
			return fk.decryptOK, fk.decryptErr
		}),
		XorPass: XorPassFunc(func(img *exebuf.Image, _ Logger, mode XorMode) error {
			fk.rec.hit("xor", img)
			fk.xorModes = append(fk.xorModes, mode)
			return fk.xorErr
		}),
		GM80:     detector("gm80", &fk.gm80),
		GM81:     detector("gm81", &fk.gm81),
		GM81Lazy: detector("gm81-lazy", &fk.gm81Lazy),
	}
}

type unpackerFunc func(img *exebuf.Image, hint CompressionHint, log Logger) (*exebuf.Image, error)

func (f unpackerFunc) Unpack(img *exebuf.Image, hint CompressionHint, log Logger) (*exebuf.Image, error) {
	return f(img, hint, log)
}

func TestFindAntidec80(t *testing.T) {
	fk := &fakes{
		rec:       &recorder{},
		a80:       &Settings{LoadOffset: 0x40, HeaderStart: 0x100},
		decryptOK: true,
		gm80:      true, // must never be consulted
	}
	img := exebuf.New(make([]byte, 0x400))

	v, work, err := fk.finder().Find(img, nil, nil)
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if v != GameMaker80 {
		t.Errorf("version = %v, want %v", v, GameMaker80)
	}
	if work != img {
		t.Error("without a hint the caller's image must be the working image")
	}
	if img.Pos() != 0x100+12 {
		t.Errorf("cursor = 0x%X, want 0x%X", img.Pos(), 0x100+12)
	}
	if want := []string{"antidec80", "decrypt"}; !reflect.DeepEqual(fk.rec.calls, want) {
		t.Errorf("calls = %v, want %v", fk.rec.calls, want)
	}
}

func TestFindAntidec80DecryptFailureIsFinal(t *testing.T) {
	fk := &fakes{
		rec:       &recorder{},
		a80:       &Settings{HeaderStart: 0x10},
		decryptOK: false,
		gm80:      true,
		gm81:      true,
	}
	img := exebuf.New(make([]byte, 0x100))

	_, _, err := fk.finder().Find(img, nil, nil)
	if !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("err = %v, want ErrUnknownFormat", err)
	}
	if want := []string{"antidec80", "decrypt"}; !reflect.DeepEqual(fk.rec.calls, want) {
		t.Errorf("calls = %v, want %v (no fallback)", fk.rec.calls, want)
	}
	if img.Bytes()[0] != 0xDD {
		t.Error("decrypt mutation must survive a failed dispatch")
	}
}

func TestFindAntidec81Scenario(t *testing.T) {
	buf := make([]byte, 4096)
	putMagic(buf, 0x300)

	fk := &fakes{
		rec:       &recorder{},
		a81:       &Settings{LoadOffset: 0x100, HeaderStart: 0x200},
		decryptOK: true,
	}
	img := exebuf.New(buf)

	v, _, err := fk.finder().Find(img, nil, nil)
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if v != GameMaker81 {
		t.Errorf("version = %v, want %v", v, GameMaker81)
	}
	if img.Pos() != 0x31C {
		t.Errorf("cursor = 0x%X, want 0x31C", img.Pos())
	}
	if !reflect.DeepEqual(fk.xorModes, []XorMode{XorNormal}) {
		t.Errorf("xor modes = %v, want [normal]", fk.xorModes)
	}
	if want := []string{"antidec80", "antidec81", "decrypt", "xor"}; !reflect.DeepEqual(fk.rec.calls, want) {
		t.Errorf("calls = %v, want %v", fk.rec.calls, want)
	}
}

func TestFindAntidec81SudalvMode(t *testing.T) {
	buf := make([]byte, 4096)
	putMagic(buf, 0x300)

	fk := &fakes{
		rec:       &recorder{},
		a81:       &Settings{LoadOffset: 0x100, HeaderStart: 0x200},
		decryptOK: true,
	}
	f := fk.finder()
	f.XorMode = XorSudalv

	if _, _, err := f.Find(exebuf.New(buf), nil, nil); err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if !reflect.DeepEqual(fk.xorModes, []XorMode{XorSudalv}) {
		t.Errorf("xor modes = %v, want [sudalv]", fk.xorModes)
	}
}

func TestFindAntidec81MagicMissing(t *testing.T) {
	buf := make([]byte, 4096)
	putMagic(buf, 0x300)
	buf[0x303] = 0x00 // break the 0xF7 lane

	fk := &fakes{
		rec:       &recorder{},
		a81:       &Settings{LoadOffset: 0x100, HeaderStart: 0x200},
		decryptOK: true,
		gm81Lazy:  true,
	}
	var logs []string
	log := LoggerFunc(func(format string, args ...any) { logs = append(logs, fmt.Sprintf(format, args...)) })

	_, _, err := fk.finder().Find(exebuf.New(buf), log, nil)
	if !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("err = %v, want ErrUnknownFormat", err)
	}
	if len(fk.xorModes) != 0 {
		t.Error("xor pass must not run when the header is not found")
	}
	for _, c := range fk.rec.calls {
		if strings.HasPrefix(c, "gm8") {
			t.Errorf("standard detector %s ran after a protector match", c)
		}
	}
	if !containsPrefix(logs, "Didn't find GM81 magic") {
		t.Errorf("expected a give-up log line, got %q", logs)
	}
}

func TestFindAntidec81DecryptFailure(t *testing.T) {
	fk := &fakes{
		rec:       &recorder{},
		a81:       &Settings{},
		decryptOK: false,
		gm80:      true,
	}
	_, _, err := fk.finder().Find(exebuf.New(make([]byte, 64)), nil, nil)
	if !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("err = %v, want ErrUnknownFormat", err)
	}
	if want := []string{"antidec80", "antidec81", "decrypt"}; !reflect.DeepEqual(fk.rec.calls, want) {
		t.Errorf("calls = %v, want %v", fk.rec.calls, want)
	}
}

func TestFindStandardOrder(t *testing.T) {
	tests := []struct {
		name      string
		gm80      bool
		gm81      bool
		lazy      bool
		want      GameVersion
		wantErr   error
		wantCalls []string
	}{
		{
			name:      "gm80",
			gm80:      true,
			gm81:      true,
			want:      GameMaker80,
			wantCalls: []string{"antidec80", "antidec81", "gm80"},
		},
		{
			name:      "gm81 strict",
			gm81:      true,
			lazy:      true,
			want:      GameMaker81,
			wantCalls: []string{"antidec80", "antidec81", "gm80", "gm81"},
		},
		{
			name:      "gm81 lazy",
			lazy:      true,
			want:      GameMaker81,
			wantCalls: []string{"antidec80", "antidec81", "gm80", "gm81", "gm81-lazy"},
		},
		{
			name:      "nothing",
			wantErr:   ErrUnknownFormat,
			wantCalls: []string{"antidec80", "antidec81", "gm80", "gm81", "gm81-lazy"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fk := &fakes{rec: &recorder{}, gm80: tt.gm80, gm81: tt.gm81, gm81Lazy: tt.lazy}
			v, _, err := fk.finder().Find(exebuf.New(make([]byte, 32)), nil, nil)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
			} else if err != nil {
				t.Fatalf("Find failed: %v", err)
			}
			if v != tt.want {
				t.Errorf("version = %v, want %v", v, tt.want)
			}
			if !reflect.DeepEqual(fk.rec.calls, tt.wantCalls) {
				t.Errorf("calls = %v, want %v", fk.rec.calls, tt.wantCalls)
			}
		})
	}
}

func TestFindWithHintUsesUnpackedImageOnly(t *testing.T) {
	packed := exebuf.New(make([]byte, 16))
	unpacked := exebuf.New(make([]byte, 0x400))

	fk := &fakes{
		rec:       &recorder{},
		a80:       &Settings{HeaderStart: 0x80},
		decryptOK: true,
		unpacked:  unpacked,
	}
	var logs []string
	log := LoggerFunc(func(format string, args ...any) { logs = append(logs, fmt.Sprintf(format, args...)) })

	v, work, err := fk.finder().Find(packed, log, &CompressionHint{MaxSize: 0x400, DiskOffset: 0x10})
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if v != GameMaker80 || work != unpacked {
		t.Fatalf("got %v on %p, want GameMaker80 on the unpacked image", v, work)
	}
	if fk.rec.imgs[0] != packed {
		t.Error("unpacker must receive the original image")
	}
	for i, im := range fk.rec.imgs[1:] {
		if im != unpacked {
			t.Errorf("%s ran against the packed image", fk.rec.calls[i+1])
		}
	}
	if packed.Bytes()[0] != 0 {
		t.Error("packed image was mutated")
	}
	if unpacked.Pos() != 0x80+12 {
		t.Errorf("cursor = 0x%X, want 0x8C", unpacked.Pos())
	}
	if !containsPrefix(logs, "Successfully unpacked UPX") {
		t.Errorf("missing unpack log line in %q", logs)
	}
	if containsPrefix(logs, "Found antidec2 loading sequence [no UPX]") {
		t.Error("packed path should not be tagged [no UPX]")
	}
}

func TestFindUnpackErrorPropagatesVerbatim(t *testing.T) {
	boom := errors.New("corrupt stream")
	fk := &fakes{rec: &recorder{}, unpackErr: boom, gm80: true}
	_, _, err := fk.finder().Find(exebuf.New(make([]byte, 8)), nil, &CompressionHint{})
	if err != boom {
		t.Fatalf("err = %v, want the unpacker's error unchanged", err)
	}
	if want := []string{"unpack"}; !reflect.DeepEqual(fk.rec.calls, want) {
		t.Errorf("calls = %v, want %v", fk.rec.calls, want)
	}
}

func TestFindCollaboratorErrorsShortCircuit(t *testing.T) {
	boom := errors.New("read failed")

	t.Run("probe", func(t *testing.T) {
		f := &Finder{
			Antidec80: ProbeFunc(func(*exebuf.Image) (*Settings, error) { return nil, boom }),
			Decrypter: DecrypterFunc(func(*exebuf.Image, Settings) (bool, error) { return true, nil }),
			GM80:      DetectorFunc(func(*exebuf.Image, Logger) (bool, error) { t.Error("gm80 ran"); return true, nil }),
		}
		if _, _, err := f.Find(exebuf.New(nil), nil, nil); err != boom {
			t.Errorf("err = %v, want %v", err, boom)
		}
	})

	t.Run("xor pass", func(t *testing.T) {
		buf := make([]byte, 64)
		putMagic(buf, 8)
		fk := &fakes{rec: &recorder{}, a81: &Settings{}, decryptOK: true, xorErr: boom}
		if _, _, err := fk.finder().Find(exebuf.New(buf), nil, nil); err != boom {
			t.Errorf("err = %v, want %v", err, boom)
		}
	})

	t.Run("out of range header", func(t *testing.T) {
		fk := &fakes{rec: &recorder{}, a80: &Settings{HeaderStart: 0x1000}, decryptOK: true}
		_, _, err := fk.finder().Find(exebuf.New(make([]byte, 16)), nil, nil)
		if !errors.Is(err, exebuf.ErrOutOfBounds) {
			t.Errorf("err = %v, want ErrOutOfBounds", err)
		}
	})
}

func TestFindNilLoggerMatchesDiscard(t *testing.T) {
	for _, log := range []Logger{nil, Discard} {
		fk := &fakes{rec: &recorder{}, gm81: true}
		v, _, err := fk.finder().Find(exebuf.New(make([]byte, 8)), log, nil)
		if err != nil || v != GameMaker81 {
			t.Errorf("logger %T: got %v, %v", log, v, err)
		}
	}
}

func TestFindValidatesConfiguration(t *testing.T) {
	tests := []struct {
		name string
		f    *Finder
		hint *CompressionHint
	}{
		{"hint without unpacker", &Finder{}, &CompressionHint{}},
		{"probe without decrypter", &Finder{Antidec80: ProbeFunc(func(*exebuf.Image) (*Settings, error) { return nil, nil })}, nil},
		{"antidec81 without xor", &Finder{
			Antidec81: ProbeFunc(func(*exebuf.Image) (*Settings, error) { return nil, nil }),
			Decrypter: DecrypterFunc(func(*exebuf.Image, Settings) (bool, error) { return true, nil }),
		}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := tt.f.Find(exebuf.New(nil), nil, tt.hint)
			if err == nil || errors.Is(err, ErrUnknownFormat) {
				t.Errorf("expected a configuration error, got %v", err)
			}
		})
	}
}

func TestSettingsString(t *testing.T) {
	s := Settings{LoadOffset: 0x400000, HeaderStart: 0x1A, XorMask: 0xAB, AddMask: 0x1, SubMask: 0xFF}
	want := "exe_load_offset:0x400000 header_start:0x1A xor_mask:0xAB add_mask:0x1 sub_mask:0xFF"
	if got := s.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func containsPrefix(lines []string, prefix string) bool {
	for _, l := range lines {
		if strings.HasPrefix(l, prefix) {
			return true
		}
	}
	return false
}
