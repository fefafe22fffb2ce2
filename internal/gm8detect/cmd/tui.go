package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/v2/list"
	"github.com/charmbracelet/bubbles/v2/spinner"
	"github.com/charmbracelet/bubbles/v2/viewport"
	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/lipgloss/v2"

	"gm8detect/internal/gm8detect/styles"
	"gm8detect/internal/pipeline"
	"gm8detect/internal/ui/colorize"
)

type viewMode int

const (
	viewReport viewMode = iota
	viewBytes
	viewFiles
)

type resultMsg struct {
	res *pipeline.Result
	err error
}

type scanDoneMsg struct {
	results []*pipeline.Result
	err     error
}

func classifyCmd(c *pipeline.Classifier, path string) tea.Cmd {
	return func() tea.Msg {
		res, err := c.ClassifyFile(path)
		return resultMsg{res: res, err: err}
	}
}

func scanDirCmd(c *pipeline.Classifier, root string, workers int) tea.Cmd {
	return func() tea.Msg {
		paths, err := pipeline.Collect(root, true)
		if err != nil {
			return scanDoneMsg{err: err}
		}
		results, err := c.Scan(context.Background(), paths, workers, nil)
		return scanDoneMsg{results: results, err: err}
	}
}

type fileItem struct {
	res *pipeline.Result
	rel string
}

func (i fileItem) FilterValue() string { return i.rel }

type itemDelegate struct{}

func (d itemDelegate) Height() int                               { return 1 }
func (d itemDelegate) Spacing() int                              { return 0 }
func (d itemDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }

func (d itemDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	i, ok := listItem.(fileItem)
	if !ok {
		return
	}
	indicator := " "
	if index == m.Index() {
		indicator = ">"
	}
	status := styles.Unknown.Render(fmt.Sprintf("%-14s", "unknown"))
	if i.res.Recognised() {
		status = styles.Recognised.Render(fmt.Sprintf("%-14s", i.res.Version))
	}
	fmt.Fprintf(w, " %s  %s %s", indicator, status, i.rel)
}

type model struct {
	viewport viewport.Model
	files    list.Model
	spinner  spinner.Model
	mode     viewMode
	app      *app
	target   string
	current  string // file being classified
	isDir    bool
	result   *pipeline.Result
	err      error
	loading  bool
	width    int
	height   int
}

func newModel(a *app, target string, isDir bool) model {
	vp := viewport.New()
	vp.SetWidth(80)
	vp.SetHeight(24)

	files := list.New([]list.Item{}, itemDelegate{}, 80, 24)
	files.Title = "Executables"
	files.SetShowStatusBar(true)
	files.SetFilteringEnabled(true)
	files.Styles.Title = styles.Title

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.Spinner

	m := model{
		viewport: vp,
		files:    files,
		spinner:  s,
		app:      a,
		target:   target,
		current:  target,
		isDir:    isDir,
		loading:  true,
		width:    80,
		height:   24,
	}
	if isDir {
		m.mode = viewFiles
	}
	m.updateContent()
	return m
}

func (m model) Init() tea.Cmd {
	load := classifyCmd(m.app.classifier, m.target)
	if m.isDir {
		load = scanDirCmd(m.app.classifier, m.target, m.app.cfg.Workers)
	}
	return tea.Batch(load, m.spinner.Tick)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case resultMsg:
		m.loading = false
		m.result, m.err = msg.res, msg.err
		m.mode = viewReport
		m.updateContent()
		m.viewport.GotoTop()
		return m, nil

	case scanDoneMsg:
		m.loading = false
		m.err = msg.err
		items := make([]list.Item, len(msg.results))
		for i, res := range msg.results {
			rel, err := filepath.Rel(m.target, res.Path)
			if err != nil {
				rel = res.Path
			}
			items[i] = fileItem{res: res, rel: rel}
		}
		cmd = m.files.SetItems(items)
		m.updateContent()
		return m, cmd

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		m.spinner, cmd = m.spinner.Update(msg)
		m.updateContent()
		return m, cmd

	case tea.WindowSizeMsg:
		if msg.Width != m.width || msg.Height != m.height {
			m.width = msg.Width
			m.height = msg.Height
			m.viewport.SetWidth(msg.Width)
			m.viewport.SetHeight(msg.Height - 2)
			m.files.SetWidth(msg.Width)
			m.files.SetHeight(msg.Height - 2)
			m.updateContent()
		}

	case tea.KeyMsg:
		filtering := m.mode == viewFiles && m.files.FilterState() == list.Filtering
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "q":
			if !filtering {
				return m, tea.Quit
			}
		case "r":
			if !filtering && m.result != nil {
				m.mode = viewReport
				m.updateContent()
				return m, nil
			}
		case "b":
			if !filtering && m.result != nil {
				m.mode = viewBytes
				m.updateContent()
				m.viewport.GotoTop()
				return m, nil
			}
		case "f", "esc":
			if !filtering && m.isDir && m.mode != viewFiles {
				m.mode = viewFiles
				return m, nil
			}
		case "tab":
			if !filtering && m.result != nil {
				m.mode = m.nextMode()
				m.updateContent()
				return m, nil
			}
		case "enter":
			if m.mode == viewFiles && !filtering {
				if load := m.openSelected(); load != nil {
					return m, load
				}
			}
		}
	}

	if m.mode == viewFiles {
		m.files, cmd = m.files.Update(msg)
	} else {
		m.viewport, cmd = m.viewport.Update(msg)
	}
	return m, cmd
}

func (m model) nextMode() viewMode {
	switch m.mode {
	case viewReport:
		return viewBytes
	case viewBytes:
		if m.isDir {
			return viewFiles
		}
		return viewReport
	default:
		return viewReport
	}
}

func (m model) View() string {
	content := m.viewport.View()
	if m.mode == viewFiles {
		content = m.files.View()
		switch {
		case m.loading:
			content = fmt.Sprintf("\n  %s Scanning %s...", m.spinner.View(), m.target)
		case m.err != nil:
			content = "\n  " + styles.Unknown.Render(m.err.Error())
		}
	}

	var menu string
	switch {
	case m.mode == viewFiles:
		menu = " Enter: open • /: filter • Q: quit "
	case m.isDir:
		menu = " R: report • B: bytes • F: files • Tab: cycle • Q: quit "
	default:
		menu = " R: report • B: bytes • Tab: cycle • Q: quit "
	}
	return content + "\n" + styles.Menu.Width(m.width).Render(menu)
}

// bytesView shows the header bytes and the annotated loader stub, or the
// entry point when there is no stub, in colour.
func (m *model) bytesView() string {
	opts := m.app.reportOptions()
	var parts []string
	if data := headerBytes(m.result, opts.HexdumpBytes); len(data) > 0 {
		parts = append(parts, styles.Dim.Render("; game data header"), colorize.HexdumpColor(data, m.result.HeaderOffset))
	}
	if s := stubListing(m.result, opts.DisasmCount); len(s) > 0 {
		parts = append(parts, styles.Dim.Render("; "+m.result.Descriptor+" loader stub"), colorize.Listing(s.Lines()))
	} else if s := entryListing(m.result, opts.DisasmCount); len(s) > 0 {
		parts = append(parts, styles.Dim.Render("; entry point"), colorize.Listing(s.Lines()))
	}
	if len(parts) == 0 {
		return styles.Dim.Render("; nothing to show")
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// openSelected starts classifying the file highlighted in the files view.
func (m *model) openSelected() tea.Cmd {
	item, ok := m.files.SelectedItem().(fileItem)
	if !ok {
		return nil
	}
	m.loading = true
	m.current = item.res.Path
	m.mode = viewReport
	m.updateContent()
	return tea.Batch(classifyCmd(m.app.classifier, m.current), m.spinner.Tick)
}

func (m *model) updateContent() {
	width := m.width
	if width == 0 {
		width = 80
	}

	var content string
	switch {
	case m.loading:
		name := m.current
		if cwd, err := os.Getwd(); err == nil {
			if rel, err := filepath.Rel(cwd, m.current); err == nil {
				name = rel
			}
		}
		content = fmt.Sprintf("\n  %s Classifying %s...", m.spinner.View(), name)
	case m.err != nil:
		content = renderMarkdown(fmt.Sprintf("# gm8detect\n\n%s", m.err), width-2)
	case m.result == nil:
		return
	case m.mode == viewBytes:
		content = m.bytesView()
	default:
		opts := m.app.reportOptions()
		content = renderMarkdown(buildReport(m.result, opts), width-2)
	}
	m.viewport.SetContent(strings.TrimSuffix(content, "\n"))
}
