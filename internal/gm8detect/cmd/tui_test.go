package cmd

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea/v2"

	"gm8detect/internal/pipeline"
)

func TestModelFile(t *testing.T) {
	t.Setenv("GM8DETECT_NO_COLOR", "1")
	a := testApp(t)
	res := a.classifier.Classify("game.exe", protectedImage(t))

	m := newModel(a, "game.exe", false)
	if !m.loading || m.mode != viewReport {
		t.Fatalf("initial state: loading=%v mode=%v", m.loading, m.mode)
	}
	if m.Init() == nil {
		t.Fatal("Init returned no command")
	}

	updated, _ := m.Update(resultMsg{res: res})
	m = updated.(model)
	if m.loading || m.result != res {
		t.Fatal("result not stored")
	}
	if !strings.Contains(m.View(), "R: report") {
		t.Errorf("menu missing:\n%s", m.View())
	}

	updated, _ = m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m = updated.(model)
	if m.width != 120 || m.height != 40 {
		t.Errorf("size = %dx%d", m.width, m.height)
	}

	if got := m.nextMode(); got != viewBytes {
		t.Errorf("nextMode from report = %v", got)
	}
	m.mode = viewBytes
	if got := m.nextMode(); got != viewReport {
		t.Errorf("nextMode from bytes = %v", got)
	}
	bytesView := m.bytesView()
	for _, want := range []string{"00000354", "loop", "exe_load_offset = 0x100"} {
		if !strings.Contains(bytesView, want) {
			t.Errorf("bytes view missing %q:\n%s", want, bytesView)
		}
	}
}

func TestModelError(t *testing.T) {
	a := testApp(t)
	m := newModel(a, "missing.exe", false)
	updated, _ := m.Update(resultMsg{err: errors.New("read missing.exe: no such file")})
	m = updated.(model)
	if m.err == nil || m.loading {
		t.Errorf("error not recorded: %+v", m.err)
	}
}

func TestModelDirectory(t *testing.T) {
	a := testApp(t)
	dir := t.TempDir()
	m := newModel(a, dir, true)
	if m.mode != viewFiles {
		t.Fatalf("mode = %v, want files", m.mode)
	}
	if !strings.Contains(m.View(), "Scanning") {
		t.Errorf("no scanning indicator:\n%s", m.View())
	}

	results := []*pipeline.Result{
		a.classifier.Classify(dir+"/a.exe", standardImage()),
		a.classifier.Classify(dir+"/b.exe", []byte("junk")),
	}
	updated, _ := m.Update(scanDoneMsg{results: results})
	m = updated.(model)
	if m.loading {
		t.Error("still loading after scan")
	}
	items := m.files.Items()
	if len(items) != 2 {
		t.Fatalf("list has %d items", len(items))
	}
	if items[0].(fileItem).rel != "a.exe" {
		t.Errorf("relative name = %q", items[0].(fileItem).rel)
	}

	if m.openSelected() == nil {
		t.Fatal("openSelected returned no command")
	}
	if !m.loading || m.mode != viewReport || m.current != results[0].Path {
		t.Errorf("after open: loading=%v mode=%v current=%q", m.loading, m.mode, m.current)
	}
	updated, _ = m.Update(resultMsg{res: results[0]})
	m = updated.(model)

	m.result = results[0]
	m.mode = viewBytes
	if got := m.nextMode(); got != viewFiles {
		t.Errorf("nextMode from bytes in a directory = %v", got)
	}
}
