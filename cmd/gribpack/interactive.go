package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/gribpack/config"
	"github.com/wippyai/gribpack/samples"
	"github.com/wippyai/gribpack/session"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	fieldStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type modelState int

const (
	stateList modelState = iota
	stateGoto
	stateDetail
)

type browserModel struct {
	err      error
	cfg      *config.Config
	dec      *decoder
	filename string
	msg      []byte
	fields   []session.Field
	input    textinput.Model
	detail   viewport.Model
	selected int
	height   int
	state    modelState
}

func newBrowserModel(cfg *config.Config, filename string) *browserModel {
	return &browserModel{
		cfg:      cfg,
		filename: filename,
		detail:   viewport.New(80, 20),
		height:   24,
		state:    stateList,
	}
}

type loadedMsg struct {
	err    error
	dec    *decoder
	msg    []byte
	fields []session.Field
}

type detailMsg struct {
	err     error
	content string
}

func (m *browserModel) Init() tea.Cmd {
	return m.load
}

func (m *browserModel) load() tea.Msg {
	ctx := context.Background()

	msg, err := os.ReadFile(m.filename)
	if err != nil {
		return loadedMsg{err: err}
	}
	dec, err := openDecoder(ctx, m.cfg)
	if err != nil {
		return loadedMsg{err: err}
	}
	fields, err := dec.session.Scan(ctx, msg)
	if err != nil {
		dec.Close(ctx)
		return loadedMsg{err: err}
	}
	return loadedMsg{dec: dec, msg: msg, fields: fields}
}

func (m *browserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.height = msg.Height
		m.detail.Width = msg.Width
		m.detail.Height = max(msg.Height-6, 3)

	case tea.KeyMsg:
		if m.state == stateGoto {
			return m.updateGoto(msg)
		}
		switch msg.String() {
		case "ctrl+c", "q":
			if m.dec != nil {
				m.dec.Close(context.Background())
				m.dec = nil
			}
			return m, tea.Quit

		case "up", "k":
			if m.state == stateList && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateList && m.selected < len(m.fields)-1 {
				m.selected++
			}

		case "g":
			if m.state == stateList && len(m.fields) > 0 {
				m.input = textinput.New()
				m.input.Placeholder = fmt.Sprintf("1-%d", len(m.fields))
				m.input.Prompt = "field: "
				m.input.Width = 10
				m.input.Focus()
				m.state = stateGoto
				return m, textinput.Blink
			}

		case "enter":
			if m.state == stateList && len(m.fields) > 0 {
				return m, m.loadDetail
			}

		case "esc":
			if m.state == stateDetail {
				m.state = stateList
			}
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.dec = msg.dec
		m.msg = msg.msg
		m.fields = msg.fields

	case detailMsg:
		m.err = msg.err
		m.detail.SetContent(msg.content)
		m.detail.GotoTop()
		m.state = stateDetail
	}

	if m.state == stateDetail {
		var cmd tea.Cmd
		m.detail, cmd = m.detail.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *browserModel) updateGoto(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.state = stateList
		return m, nil
	case "enter":
		if n, err := strconv.Atoi(strings.TrimSpace(m.input.Value())); err == nil && n >= 1 && n <= len(m.fields) {
			m.selected = n - 1
		}
		m.state = stateList
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// loadDetail packages the selected field, renders it and releases it.
func (m *browserModel) loadDetail() tea.Msg {
	ctx := context.Background()
	f := m.fields[m.selected]

	h, err := m.dec.session.Process(ctx, m.msg, f.Index)
	if err != nil {
		return detailMsg{err: err}
	}
	defer m.dec.session.Release(h)

	v, err := m.dec.session.View(h)
	if err != nil {
		return detailMsg{err: err}
	}
	ptr, _ := m.dec.session.Pointer(h)

	var b strings.Builder
	row := func(name, format string, args ...any) {
		b.WriteString(fieldStyle.Render(fmt.Sprintf("%-10s", name)))
		b.WriteString(valueStyle.Render(fmt.Sprintf(format, args...)))
		b.WriteString("\n")
	}
	row("package", "0x%08x", ptr)
	row("metadata", "%d bytes at 0x%08x", v.Package.MetadataLen, v.Package.MetadataPtr)
	row("data", "%d points at 0x%08x", v.Package.NumPoints, v.Package.DataPtr)

	sum := samples.Summarize(v.Samples)
	if sum.Valid > 0 {
		row("values", "min %g  max %g  mean %g  stddev %g", sum.Min, sum.Max, sum.Mean, sum.StdDev)
		row("median", "%g", sum.Median)
	}
	row("missing", "%d of %d", sum.Missing, sum.Count)
	b.WriteString("\n")

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, v.Metadata, "", "  "); err != nil {
		b.Write(v.Metadata)
	} else {
		b.Write(pretty.Bytes())
	}
	return detailMsg{content: b.String()}
}

func (m *browserModel) View() string {
	if m.err != nil && m.state != stateDetail {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}
	if m.dec == nil {
		return "Loading decoder..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("GRIB2 Fields"))
	b.WriteString(" ")
	b.WriteString(m.filename)
	b.WriteString("\n\n")

	switch m.state {
	case stateList, stateGoto:
		if len(m.fields) == 0 {
			b.WriteString("No fields decoded.\n")
		}
		first, last := window(m.selected, len(m.fields), max(m.height-6, 1))
		for i := first; i < last; i++ {
			line := describe(m.fields[i])
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + line))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		if m.state == stateGoto {
			b.WriteString(m.input.View())
			b.WriteString("\n")
			b.WriteString(helpStyle.Render("enter jump • esc cancel"))
		} else {
			b.WriteString(helpStyle.Render("↑/↓ select • g go to • enter inspect • q quit"))
		}

	case stateDetail:
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
			b.WriteString("\n\n")
		} else {
			b.WriteString(m.detail.View())
			b.WriteString("\n")
		}
		b.WriteString(helpStyle.Render("↑/↓ scroll • esc back • q quit"))
	}
	return b.String()
}

// window returns the visible [first, last) range of n rows that keeps
// selected on screen.
func window(selected, n, rows int) (int, int) {
	if n <= rows {
		return 0, n
	}
	first := selected - rows/2
	first = max(0, min(first, n-rows))
	return first, first + rows
}

func runInteractive(cfg *config.Config, filename string) error {
	p := tea.NewProgram(newBrowserModel(cfg, filename), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
