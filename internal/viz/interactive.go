package viz

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/branchgrow/internal/config"
	"github.com/san-kum/branchgrow/internal/engine"
)

var presetInfo = map[string]string{
	"default":   "three dragon branches",
	"lightning": "fast jagged bolts",
	"dense":     "crowded, background only",
	"sparse":    "one slow wanderer",
	"dragon":    "deep dragon curves",
	"fast":      "small canvas, relaxed sync",
}

const (
	stateMenu = iota
	stateConfig
	stateSim
)

// field is one editable setting on the config screen.
type field struct {
	name string
	get  func(c *config.Config) float64
	set  func(c *config.Config, v float64)
}

var fields = []field{
	{"branches", func(c *config.Config) float64 { return float64(c.Branches) }, func(c *config.Config, v float64) { c.Branches = int(v) }},
	{"lifetime_ms", func(c *config.Config) float64 { return float64(c.Lifetime) }, func(c *config.Config, v float64) { c.Lifetime = int64(v) }},
	{"iterations", func(c *config.Config) float64 { return float64(c.Iterations) }, func(c *config.Config, v float64) { c.Iterations = int(v) }},
	{"seg_mean", func(c *config.Config) float64 { return c.Segment.Mean }, func(c *config.Config, v float64) { c.Segment.Mean = v }},
	{"color_speed", func(c *config.Config) float64 { return c.ColorSpeed }, func(c *config.Config, v float64) { c.ColorSpeed = v }},
	{"seed", func(c *config.Config) float64 { return float64(c.Seed) }, func(c *config.Config, v float64) { c.Seed = int64(v) }},
}

// step sizes for h/l on the config screen
var fieldSteps = map[string]float64{
	"branches": 1, "lifetime_ms": 1000, "iterations": 1,
	"seg_mean": 1, "color_speed": 0.005, "seed": 1,
}

type app struct {
	state, cursor int
	presets       []string
	selected      string
	cfg           *config.Config
	fieldCursor   int
	editing       bool
	editBuf       string
	err           string
	orch          *engine.Orchestrator
	liveModel     Model
}

func NewInteractiveApp() *app {
	return &app{
		state:   stateMenu,
		presets: config.ListPresets(),
	}
}

func (m app) Init() tea.Cmd { return nil }

func (m app) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	default:
		if m.state == stateSim {
			newLive, cmd := m.liveModel.Update(msg)
			m.liveModel = newLive.(Model)
			return m, cmd
		}
	}
	return m, nil
}

func (m app) handleKey(msg tea.KeyMsg) (app, tea.Cmd) {
	switch m.state {
	case stateMenu:
		return m.menuKey(msg)
	case stateConfig:
		return m.configKey(msg)
	case stateSim:
		if msg.String() == "esc" {
			m.stop()
			m.state = stateConfig
			return m, nil
		}
		newLive, cmd := m.liveModel.Update(msg)
		m.liveModel = newLive.(Model)
		if k := msg.String(); k == "q" || k == "ctrl+c" {
			m.stop()
		}
		return m, cmd
	}
	return m, nil
}

func (m app) menuKey(msg tea.KeyMsg) (app, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.presets)-1 {
			m.cursor++
		}
	case "enter", " ":
		m.selected = m.presets[m.cursor]
		m.cfg = config.GetPreset(m.selected)
		m.state, m.fieldCursor, m.err = stateConfig, 0, ""
	}
	return m, nil
}

func (m app) configKey(msg tea.KeyMsg) (app, tea.Cmd) {
	f := fields[m.fieldCursor]
	if m.editing {
		switch msg.String() {
		case "enter":
			if v, err := strconv.ParseFloat(m.editBuf, 64); err == nil {
				f.set(m.cfg, v)
			}
			m.editing, m.editBuf = false, ""
		case "esc":
			m.editing, m.editBuf = false, ""
		case "backspace":
			if len(m.editBuf) > 0 {
				m.editBuf = m.editBuf[:len(m.editBuf)-1]
			}
		default:
			if len(msg.String()) == 1 {
				c := msg.String()[0]
				if (c >= '0' && c <= '9') || c == '.' || c == '-' {
					m.editBuf += string(c)
				}
			}
		}
		return m, nil
	}
	switch msg.String() {
	case "q", "esc":
		m.state = stateMenu
	case "up", "k":
		if m.fieldCursor > 0 {
			m.fieldCursor--
		}
	case "down", "j":
		if m.fieldCursor < len(fields)-1 {
			m.fieldCursor++
		}
	case "enter", " ":
		m.editing, m.editBuf = true, strconv.FormatFloat(f.get(m.cfg), 'f', -1, 64)
	case "left", "h":
		f.set(m.cfg, f.get(m.cfg)-fieldSteps[f.name])
	case "right", "l":
		f.set(m.cfg, f.get(m.cfg)+fieldSteps[f.name])
	case "s":
		cmd := m.start()
		return m, cmd
	}
	return m, nil
}

func (m *app) start() tea.Cmd {
	if err := m.cfg.Validate(); err != nil {
		m.err = err.Error()
		return nil
	}
	s, _ := m.cfg.Settings()
	o, err := engine.New(s)
	if err != nil {
		m.err = err.Error()
		return nil
	}
	m.orch, m.err = o, ""
	m.liveModel = NewModel(o, m.selected, m.cfg.Dt)
	m.state = stateSim
	return m.liveModel.Init()
}

func (m *app) stop() {
	if m.orch != nil {
		m.orch.Close()
		m.orch = nil
	}
}

func (m app) View() string {
	switch m.state {
	case stateMenu:
		return m.viewMenu()
	case stateConfig:
		return m.viewConfig()
	case stateSim:
		return m.liveModel.View()
	}
	return ""
}

var (
	cursorStyle = lipgloss.NewStyle().Bold(true)
	keyStyle    = lipgloss.NewStyle().Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#555566"))
)

func hints(pairs ...string) string {
	var b strings.Builder
	for i := 0; i+1 < len(pairs); i += 2 {
		b.WriteString(keyStyle.Foreground(CurrentTheme.Secondary).Render(pairs[i]))
		b.WriteString(KeyHint.Render(" " + pairs[i+1] + "  "))
	}
	return b.String()
}

func (m app) viewMenu() string {
	var b strings.Builder
	b.WriteString("\n\n    " + GradientText("BRANCHGROW", CurrentTheme.Primary, CurrentTheme.Secondary) +
		"\n    " + Subtle.Render("l-system growth on a shared canvas") + "\n    " + Separator(26) + "\n\n")
	for i, name := range m.presets {
		desc := presetInfo[name]
		if i == m.cursor {
			b.WriteString(fmt.Sprintf("    %s %s  %s\n",
				cursorStyle.Foreground(CurrentTheme.Secondary).Render("▸"),
				lipgloss.NewStyle().Foreground(CurrentTheme.Text).Bold(true).Render(fmt.Sprintf("%-12s", name)),
				lipgloss.NewStyle().Foreground(CurrentTheme.Accent).Render(desc)))
		} else {
			b.WriteString(fmt.Sprintf("    %s  %s\n", dimStyle.Render(fmt.Sprintf("  %-12s", name)), dimStyle.Render(desc)))
		}
	}
	b.WriteString("\n    " + hints("j/k", "navigate", "enter", "select", "q", "quit") + "\n")
	return b.String()
}

func (m app) viewConfig() string {
	var b strings.Builder
	b.WriteString("\n\n    " + lipgloss.NewStyle().Foreground(CurrentTheme.Secondary).Bold(true).Render(strings.ToUpper(m.selected)) +
		"\n    " + Subtle.Render(presetInfo[m.selected]) + "\n    " + Separator(26) + "\n\n")
	for i, f := range fields {
		valStr := fmt.Sprintf("%10s", strconv.FormatFloat(f.get(m.cfg), 'f', -1, 64))
		if m.editing && i == m.fieldCursor {
			valStr = fmt.Sprintf("%10s", m.editBuf+"_")
		}
		if i == m.fieldCursor {
			b.WriteString(fmt.Sprintf("    %s %s %s\n",
				cursorStyle.Foreground(CurrentTheme.Secondary).Render("▸"),
				lipgloss.NewStyle().Foreground(CurrentTheme.Text).Bold(true).Render(fmt.Sprintf("%-12s", f.name)),
				lipgloss.NewStyle().Foreground(CurrentTheme.Accent).Bold(true).Render(valStr)))
		} else {
			b.WriteString(fmt.Sprintf("    %s %s\n", dimStyle.Render(fmt.Sprintf("  %-12s", f.name)), dimStyle.Render(valStr)))
		}
	}
	if m.err != "" {
		b.WriteString("\n    " + StatusRecording.UnsetBlink().Render(m.err) + "\n")
	}
	b.WriteString("\n    " + hints("j/k", "select", "h/l", "adjust", "enter", "edit", "s", "start", "esc", "back") + "\n")
	return b.String()
}

// RunInteractive opens the preset menu.
func RunInteractive() error {
	_, err := tea.NewProgram(NewInteractiveApp(), tea.WithAltScreen()).Run()
	return err
}
