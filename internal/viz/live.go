package viz

import (
	"fmt"
	"image"
	"image/color/palette"
	"image/gif"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	xdraw "golang.org/x/image/draw"

	"github.com/san-kum/branchgrow/internal/engine"
	"github.com/san-kum/branchgrow/internal/export"
)

const (
	width           = 80
	height          = 24
	historyCapacity = 600
	frameRate       = 60
)

var (
	canvasStyle = lipgloss.NewStyle().Padding(1, 2)
	statsStyle  = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(lipgloss.Color("240")).Padding(1, 2).Width(45)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(12)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(2)
)

func liveHints() string {
	return hints("SP", "pause", "R", "reset", "Q", "quit") + "\n" +
		hints("T", "theme", "G", "record", "S", "snap") + "\n" +
		hints("+/-", "zoom", "hjkl", "pan", "?", "help")
}

type TickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(time.Second/frameRate, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// Model drives an orchestrator from the bubbletea frame clock and renders
// its canvas as braille.
type Model struct {
	orch     *engine.Orchestrator
	title    string
	dt       float64
	canvas   *Canvas
	scaler   *Scaler
	camera   *Camera
	running  bool
	stats    engine.Stats
	coverage []float64
	live     []float64

	recording bool
	frames    []*image.Paletted
	showHelp  bool
	message   string

	// OutDir receives snapshots and recordings.
	OutDir string
}

// NewModel wraps o. dt is the simulated seconds per frame; zero uses the
// display frame time.
func NewModel(o *engine.Orchestrator, title string, dt float64) Model {
	if dt <= 0 {
		dt = 1.0 / frameRate
	}
	s := o.Settings()
	return Model{
		orch:     o,
		title:    title,
		dt:       dt,
		canvas:   NewCanvas(width, height),
		scaler:   NewScaler(s.Width, s.Height),
		camera:   NewCamera(),
		running:  true,
		stats:    o.Stats(),
		coverage: make([]float64, 0, historyCapacity),
		live:     make([]float64, 0, historyCapacity),
		OutDir:   ".",
	}
}

func (m Model) Init() tea.Cmd {
	return tick()
}

// Update handles input events and advances the orchestrator.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			m.orch.Drain()
			m.orch.Reset()
			m.coverage = m.coverage[:0]
			m.live = m.live[:0]
		case "n":
			if !m.running {
				m.step()
			}
		case "+", "=":
			m.camera.ZoomIn()
		case "-", "_":
			m.camera.ZoomOut()
		case "left", "h":
			m.camera.Pan(-1, 0)
		case "right", "l":
			m.camera.Pan(1, 0)
		case "up", "k":
			m.camera.Pan(0, -1)
		case "down", "j":
			m.camera.Pan(0, 1)
		case "0":
			m.camera.Reset()
		case "s":
			m.message = m.savePNG()
		case "g":
			if m.recording {
				m.message = m.saveGIF()
				m.recording = false
				m.frames = nil
			} else {
				m.recording = true
				m.frames = make([]*image.Paletted, 0)
			}
		case "?":
			m.showHelp = !m.showHelp
		case "t":
			names := ThemeNames()
			for i, name := range names {
				if name == CurrentTheme.Name {
					SetTheme(names[(i+1)%len(names)])
					break
				}
			}
		}
	case TickMsg:
		if m.running {
			m.step()
		}
		small := m.draw()
		if m.recording {
			m.captureFrame(small)
		}
		return m, tick()
	}
	return m, nil
}

// step advances one frame and records the sidebar history.
func (m *Model) step() {
	m.orch.Tick(m.dt)
	m.stats = m.orch.Stats()

	m.coverage = appendCapped(m.coverage, m.stats.Coverage*100)
	m.live = appendCapped(m.live, float64(m.stats.Live))
}

func appendCapped(s []float64, v float64) []float64 {
	s = append(s, v)
	if len(s) > historyCapacity {
		s = s[1:]
	}
	return s
}

func (m *Model) draw() *image.RGBA {
	c := m.orch.Canvas()
	view := m.camera.Viewport(c.Width(), c.Height())
	return m.scaler.Render(m.canvas, c, view)
}

// View renders the TUI interface.
func (m Model) View() string {
	canvasView := canvasStyle.Render(m.canvas.Render())

	var s strings.Builder
	header := lipgloss.NewStyle().Foreground(CurrentTheme.Secondary).Bold(true).MarginBottom(1)
	s.WriteString(header.Render(strings.ToUpper(m.title)) + "\n")

	status := StatusRunning.Render("RUNNING")
	if !m.running {
		status = StatusPaused.Render("PAUSED")
	}
	if m.recording {
		status += " " + StatusRecording.Render("● REC")
	}
	s.WriteString(status + "\n\n")

	if len(m.coverage) > 1 {
		chart := asciigraph.Plot(m.coverage, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("Coverage %"))
		s.WriteString(graphStyle.Render(chart) + "\n\n")
	}

	st := m.stats
	row := func(label, value string) {
		s.WriteString(labelStyle.Render(label) + valueStyle.Render(value) + "\n")
	}
	row("Time", fmt.Sprintf("%.2fs", st.Time))
	row("Tick", fmt.Sprintf("%d", st.Tick))
	row("Generation", fmt.Sprintf("%d", st.Generation))
	row("Live", fmt.Sprintf("%d/%d", st.Live, st.Population))
	row("Coverage", ProgressBar(st.Coverage, 12)+fmt.Sprintf(" %.2f%%", st.Coverage*100))
	row("Faults", fmt.Sprintf("%d", st.Faults))
	row("Zoom", fmt.Sprintf("%.2fx", m.camera.Zoom))
	row("Mode", m.orch.Settings().Mode.String())
	if len(m.live) > 0 {
		row("Activity", SparklineChart(m.live, 20))
	}
	if m.message != "" {
		s.WriteString("\n" + Subtle.Render(m.message) + "\n")
	}

	s.WriteString(helpStyle.Render("\n─────────────────────\n" + liveHints()))
	statsView := statsStyle.BorderForeground(CurrentTheme.Muted).Render(s.String())
	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsView)
	if m.showHelp {
		return `
╔══════════════════════════════════════╗
║          KEYBOARD SHORTCUTS          ║
╠══════════════════════════════════════╣
║  Space    - Pause/Resume growth      ║
║  N        - Single step when paused  ║
║  R        - Respawn population       ║
║  Q        - Quit                     ║
║  +/-      - Zoom in/out              ║
║  Arrows   - Pan (also h/j/k/l)       ║
║  0        - Reset camera             ║
║  S        - Save PNG snapshot        ║
║  G        - Toggle GIF recording     ║
║  T        - Cycle themes             ║
║  ?        - Toggle this help         ║
╚══════════════════════════════════════╝
` + "\n\n" + mainView
	}
	return mainView
}

func (m *Model) captureFrame(small *image.RGBA) {
	frame := image.NewPaletted(small.Bounds(), palette.Plan9)
	xdraw.FloydSteinberg.Draw(frame, frame.Bounds(), small, image.Point{})
	m.frames = append(m.frames, frame)
}

func (m *Model) saveGIF() string {
	if len(m.frames) == 0 {
		return ""
	}
	anim := gif.GIF{LoopCount: 0}
	for _, frame := range m.frames {
		anim.Image = append(anim.Image, frame)
		anim.Delay = append(anim.Delay, 2)
	}
	path := filepath.Join(m.OutDir, fmt.Sprintf("growth_%d.gif", time.Now().Unix()))
	f, err := os.Create(path)
	if err != nil {
		return err.Error()
	}
	defer f.Close()
	if err := gif.EncodeAll(f, &anim); err != nil {
		return err.Error()
	}
	return "saved " + path
}

func (m *Model) savePNG() string {
	path := filepath.Join(m.OutDir, fmt.Sprintf("growth_%d.png", time.Now().Unix()))
	if err := export.SavePNG(path, m.orch.Canvas()); err != nil {
		return err.Error()
	}
	return "saved " + path
}

// Run starts a full-screen viewer on o and blocks until the user quits.
func Run(o *engine.Orchestrator, title string, dt float64, outDir string) error {
	m := NewModel(o, title, dt)
	if outDir != "" {
		m.OutDir = outDir
	}
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
