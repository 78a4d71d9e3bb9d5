// SPDX-License-Identifier: MIT
package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"voiceshield/internal/analysis"
	"voiceshield/internal/audio"
	"voiceshield/internal/control"
	"voiceshield/internal/filter"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D7D7D"))

	faultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F5F")).
			Bold(true)
)

const (
	refreshInterval = 100 * time.Millisecond
	meterWidth      = 30
	intStep         = 1.0
	floatStep       = 0.01
	coarseFactor    = 10
)

// ScreenType defines which screen is currently active
type ScreenType int

const (
	PanelScreen ScreenType = iota
	DeviceScreen
)

// Controller is the control surface the panel drives.
type Controller interface {
	State() []control.FilterState
	Toggle(name string) error
	SetParam(name, param string, value float64) error
}

// ReportFunc returns the latest monitor report, if one exists.
type ReportFunc func() (analysis.Report, bool)

// hostDevices is replaced in tests.
var hostDevices = audio.HostDevices

type keyMap struct {
	Quit, Up, Down, Toggle, Dec, Inc, DecCoarse, IncCoarse, Devices, Back key.Binding
}

var keys = keyMap{
	Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c")),
	Up:        key.NewBinding(key.WithKeys("up", "k")),
	Down:      key.NewBinding(key.WithKeys("down", "j")),
	Toggle:    key.NewBinding(key.WithKeys(" ", "enter")),
	Dec:       key.NewBinding(key.WithKeys("left", "h")),
	Inc:       key.NewBinding(key.WithKeys("right", "l")),
	DecCoarse: key.NewBinding(key.WithKeys("shift+left", "H")),
	IncCoarse: key.NewBinding(key.WithKeys("shift+right", "L")),
	Devices:   key.NewBinding(key.WithKeys("d")),
	Back:      key.NewBinding(key.WithKeys("esc", "d")),
}

// row is one selectable line: a filter header when param is empty.
type row struct {
	filter string
	param  string
}

type tickMsg time.Time

type devicesMsg struct {
	devices []audio.Device
}

type errMsg struct {
	err error
}

// PanelModel is the Bubble Tea model for the live filter panel.
type PanelModel struct {
	ctrl    Controller
	reports ReportFunc

	state    []control.FilterState
	rows     []row
	selected int

	report    analysis.Report
	hasReport bool

	devices      []audio.Device
	activeScreen ScreenType

	viewport viewport.Model
	ready    bool
	status   string
	err      error
}

// NewPanelModel creates a panel over ctrl. reports may be nil when the
// monitor is disabled.
func NewPanelModel(ctrl Controller, reports ReportFunc) PanelModel {
	m := PanelModel{ctrl: ctrl, reports: reports, activeScreen: PanelScreen}
	m.refresh()
	return m
}

// Init starts the refresh ticker.
func (m PanelModel) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchDevices() tea.Msg {
	devices, err := hostDevices()
	if err != nil {
		return errMsg{err}
	}
	return devicesMsg{devices}
}

// refresh reloads the filter state and monitor report.
func (m *PanelModel) refresh() {
	m.state = m.ctrl.State()
	rows := make([]row, 0, len(m.rows))
	for _, f := range m.state {
		rows = append(rows, row{filter: f.Name})
		for _, p := range f.Params {
			rows = append(rows, row{filter: f.Name, param: p.Name})
		}
	}
	m.rows = rows
	m.selected = min(m.selected, max(0, len(m.rows)-1))

	if m.reports != nil {
		m.report, m.hasReport = m.reports()
	}
}

func (m *PanelModel) render() {
	if !m.ready {
		return
	}
	if m.activeScreen == DeviceScreen {
		m.viewport.SetContent(m.renderDevices())
		return
	}
	m.viewport.SetContent(m.renderPanel())
}

func (m PanelModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-6)
			m.viewport.Style = lipgloss.NewStyle()
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 6
		}
		m.render()

	case tickMsg:
		m.refresh()
		m.render()
		cmds = append(cmds, tick())

	case devicesMsg:
		m.devices = msg.devices
		m.render()

	case errMsg:
		m.err = msg.err

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			return m, tea.Quit
		}
		if m.activeScreen == DeviceScreen {
			if key.Matches(msg, keys.Back) {
				m.activeScreen = PanelScreen
				m.render()
			}
			break
		}
		if c := m.handlePanelKey(msg); c != nil {
			cmds = append(cmds, c)
		}
		// Arrow keys are consumed here, not by the viewport.
		return m, tea.Batch(cmds...)
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *PanelModel) handlePanelKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, keys.Up):
		if m.selected > 0 {
			m.selected--
		}
	case key.Matches(msg, keys.Down):
		if m.selected < len(m.rows)-1 {
			m.selected++
		}
	case key.Matches(msg, keys.Toggle):
		if r, ok := m.current(); ok {
			m.setResult(m.ctrl.Toggle(r.filter), "toggled "+r.filter)
		}
	case key.Matches(msg, keys.DecCoarse):
		m.adjust(-coarseFactor)
	case key.Matches(msg, keys.IncCoarse):
		m.adjust(coarseFactor)
	case key.Matches(msg, keys.Dec):
		m.adjust(-1)
	case key.Matches(msg, keys.Inc):
		m.adjust(1)
	case key.Matches(msg, keys.Devices):
		m.activeScreen = DeviceScreen
		m.render()
		return fetchDevices
	default:
		return nil
	}
	m.refresh()
	m.render()
	return nil
}

func (m PanelModel) current() (row, bool) {
	if m.selected < 0 || m.selected >= len(m.rows) {
		return row{}, false
	}
	return m.rows[m.selected], true
}

// adjust moves the selected parameter by steps increments, clamped to its
// bounds.
func (m *PanelModel) adjust(steps float64) {
	r, ok := m.current()
	if !ok || r.param == "" {
		return
	}
	p, ok := m.param(r)
	if !ok {
		return
	}

	step := floatStep
	if p.Kind == filter.KindInt.String() {
		step = intStep
	}
	v := math.Round((p.Value+steps*step)/step) * step
	v = math.Max(p.Min, math.Min(p.Max, v))
	if v == p.Value {
		return
	}
	m.setResult(m.ctrl.SetParam(r.filter, r.param, v), fmt.Sprintf("%s.%s = %s", r.filter, r.param, formatValue(p.Kind, v)))
}

func (m PanelModel) param(r row) (control.ParamState, bool) {
	for _, f := range m.state {
		if f.Name != r.filter {
			continue
		}
		for _, p := range f.Params {
			if p.Name == r.param {
				return p, true
			}
		}
	}
	return control.ParamState{}, false
}

func (m *PanelModel) setResult(err error, ok string) {
	if err != nil {
		m.status = "error: " + err.Error()
		return
	}
	m.status = ok
}

// View renders the UI
func (m PanelModel) View() string {
	if !m.ready {
		return "Initializing..."
	}

	if m.err != nil {
		return fmt.Sprintf("Error: %v\n\nPress q to exit.", m.err)
	}

	var title, help string
	if m.activeScreen == PanelScreen {
		title = titleStyle.Render("VoiceShield Filters")
		help = infoStyle.Render("↑/↓: Select • Space: Toggle • ←/→: Adjust (shift ×10) • d: Devices • q: Quit")
	} else {
		title = titleStyle.Render("Audio Device List")
		help = infoStyle.Render("Esc: Back • q: Quit")
	}

	return fmt.Sprintf("%s\n\n%s\n%s\n%s\n%s", title, m.viewport.View(), m.renderLevels(), dimStyle.Render(m.status), help)
}

func (m PanelModel) renderPanel() string {
	if len(m.rows) == 0 {
		return "No filters in chain."
	}

	var sb strings.Builder
	i := 0
	for _, f := range m.state {
		check := "[ ]"
		if f.Enabled {
			check = "[x]"
		}
		line := fmt.Sprintf("%s %s", check, f.Name)
		if f.Faulted {
			line += " " + faultStyle.Render("FAULTED")
		}
		sb.WriteString(m.decorate(i, line))
		i++

		for _, p := range f.Params {
			line := fmt.Sprintf("    %-12s %10s  [%s, %s]",
				p.Name, formatValue(p.Kind, p.Value), formatValue(p.Kind, p.Min), formatValue(p.Kind, p.Max))
			sb.WriteString(m.decorate(i, line))
			i++
		}
	}
	return sb.String()
}

func (m PanelModel) decorate(i int, line string) string {
	if i == m.selected {
		return highlightStyle.Render("▶ "+line) + "\n"
	}
	return "  " + line + "\n"
}

func (m PanelModel) renderLevels() string {
	if !m.hasReport {
		return dimStyle.Render("monitor: no data")
	}
	return fmt.Sprintf("L %s %5.1f dB\nR %s %5.1f dB",
		meter(m.report.Peak[0]), dbfs(m.report.RMS[0]),
		meter(m.report.Peak[1]), dbfs(m.report.RMS[1]))
}

// renderDevices formats the device list
func (m PanelModel) renderDevices() string {
	if len(m.devices) == 0 {
		return "No audio devices found."
	}

	var sb strings.Builder
	for _, device := range m.devices {
		fmt.Fprintf(&sb, "[%d] %s (%s)\n", device.ID, device.Name, device.Kind())
		fmt.Fprintf(&sb, "    Input channels: %d, Output channels: %d\n", device.MaxInputChannels, device.MaxOutputChannels)
		fmt.Fprintf(&sb, "    Default sample rate: %.0f Hz\n\n", device.DefaultSampleRate)
	}
	return sb.String()
}

func formatValue(kind string, v float64) string {
	if kind == filter.KindInt.String() {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}

func meter(level float64) string {
	n := int(math.Round(math.Max(0, math.Min(1, level)) * meterWidth))
	return highlightStyle.Render(strings.Repeat("█", n)) + dimStyle.Render(strings.Repeat("░", meterWidth-n))
}

func dbfs(rms float64) float64 {
	if rms <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(rms)
}

// Run launches the panel and blocks until the user quits.
func Run(ctrl Controller, reports ReportFunc) error {
	p := tea.NewProgram(
		NewPanelModel(ctrl, reports),
		tea.WithAltScreen(),
	)
	_, err := p.Run()
	return err
}
