package render

import (
	"fmt"
	"math"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"robotfleet/internal/fleet"
)

// teaProgram abstracts bubbletea.Program for testing.
type teaProgram interface {
	Send(tea.Msg)
}

// viewModelMsg carries a freshly published view model.
type viewModelMsg struct{ vm fleet.ViewModel }

// adminMsg reports the admin HTTP address.
type adminMsg struct{ addr string }

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	criticalStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// TUIRenderer renders the fleet using a bubbletea TUI.
type TUIRenderer struct {
	program    teaProgram
	done       chan struct{}
	sendSignal atomic.Bool
}

// NewTUIRenderer starts a bubbletea program and returns a TUIRenderer.
// When the user quits the TUI the process receives an interrupt.
func NewTUIRenderer() *TUIRenderer {
	r := &TUIRenderer{done: make(chan struct{})}
	r.sendSignal.Store(true)
	p := tea.NewProgram(newTUIModel(), tea.WithAltScreen())
	r.program = p
	go func() {
		_, _ = p.Run()
		close(r.done)
		if r.sendSignal.Load() {
			if proc, err := os.FindProcess(os.Getpid()); err == nil {
				_ = proc.Signal(os.Interrupt)
			}
		}
	}()
	return r
}

// Render implements fleet.Renderer.
func (r *TUIRenderer) Render(vm fleet.ViewModel) error {
	r.program.Send(viewModelMsg{vm: vm})
	return nil
}

// SetAdminAddr shows where the admin UI is listening.
func (r *TUIRenderer) SetAdminAddr(addr string) {
	r.program.Send(adminMsg{addr: addr})
}

// Close shuts down the TUI program and waits for cleanup.
func (r *TUIRenderer) Close() error {
	r.sendSignal.Store(false)
	if r.program != nil {
		r.program.Send(tea.Quit())
	}
	if r.done != nil {
		<-r.done
	}
	return nil
}

type tuiModel struct {
	table        table.Model
	vm           fleet.ViewModel
	admin        string
	width        int
	height       int
	showMap      bool
	criticalOnly bool
	help         bool
}

func newTUIModel() tuiModel {
	cols := []table.Column{
		{Title: "", Width: 1},
		{Title: "ID", Width: 12},
		{Title: "City", Width: 18},
		{Title: "Status", Width: 7},
		{Title: "Battery", Width: 7},
		{Title: "CPU", Width: 6},
		{Title: "RAM", Width: 8},
		{Title: "Last Updated", Width: 19},
	}
	t := table.New(table.WithColumns(cols), table.WithFocused(true), table.WithHeight(10))
	return tuiModel{table: t}
}

func (m tuiModel) Init() tea.Cmd { return nil }

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetWidth(msg.Width)
		m.resizeTable()
	case viewModelMsg:
		m.vm = msg.vm
		m.refreshRows()
	case adminMsg:
		m.admin = msg.addr
	case tea.KeyMsg:
		if m.help {
			switch msg.String() {
			case "?", "h", "esc":
				m.help = false
			case "q", "ctrl+c":
				return m, tea.Quit
			}
			return m, nil
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "m":
			m.showMap = !m.showMap
			return m, nil
		case "c":
			m.criticalOnly = !m.criticalOnly
			m.refreshRows()
			return m, nil
		case "h", "?":
			m.help = true
			return m, nil
		}
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *tuiModel) resizeTable() {
	h := m.height - 6
	if h < 3 {
		h = 3
	}
	m.table.SetHeight(h)
}

func (m *tuiModel) refreshRows() {
	rows := make([]table.Row, 0, len(m.vm.Robots))
	for _, rb := range m.visibleRobots() {
		mark := " "
		if rb.Critical {
			mark = "!"
		}
		rows = append(rows, table.Row{
			mark,
			rb.ID,
			rb.Label(),
			rb.Status(),
			fmt.Sprintf("%d%%", rb.BatteryPercent),
			fmt.Sprintf("%.1f%%", rb.CPUPercent),
			fmt.Sprintf("%.0f MB", rb.RAMMegabytes),
			rb.LastUpdated,
		})
	}
	m.table.SetRows(rows)
}

func (m tuiModel) visibleRobots() []fleet.RobotView {
	if !m.criticalOnly {
		return m.vm.Robots
	}
	var out []fleet.RobotView
	for _, rb := range m.vm.Robots {
		if rb.Critical {
			out = append(out, rb)
		}
	}
	return out
}

func (m tuiModel) View() string {
	if m.help {
		return m.renderHelp()
	}
	var body string
	if m.showMap {
		body = strings.Join(plotMap(m.visibleRobots(), m.width, m.height-6), "\n")
	} else {
		body = m.table.View()
	}
	return strings.Join([]string{m.renderHeader(), body, m.renderFooter()}, "\n")
}

func (m tuiModel) renderHeader() string {
	title := titleStyle.Render("Robot Fleet")
	stats := fmt.Sprintf("robots=%d pending=%d ", len(m.vm.Robots), m.vm.PendingCount())
	crit := fmt.Sprintf("critical=%d", m.vm.CriticalCount())
	if m.vm.CriticalCount() > 0 {
		crit = criticalStyle.Render(crit)
	}
	line := title + "  " + stats + crit
	if !m.vm.UpdatedAt.IsZero() {
		line += mutedStyle.Render(fmt.Sprintf("  updated %s", m.vm.UpdatedAt.Format(time.TimeOnly)))
	}
	return line
}

func (m tuiModel) renderFooter() string {
	var parts []string
	if m.criticalOnly {
		parts = append(parts, "filter: critical")
	}
	if m.admin != "" {
		parts = append(parts, "admin: "+m.admin)
	}
	parts = append(parts, "? help  q quit")
	return mutedStyle.Render(strings.Join(parts, "  |  "))
}

func (m tuiModel) renderHelp() string {
	text := "Key Bindings:\n" +
		" q    quit\n" +
		" m    toggle map view (o healthy, ! critical)\n" +
		" c    show only critical robots (offline or battery below 20%)\n" +
		" ↑/↓  move selection in the list\n" +
		" h/?  toggle this help view\n\n" +
		"Locations are resolved in the background; rows show Loading... until the lookup for the current snapshot finishes."
	if m.width > 0 {
		return wordwrap.String(text, m.width)
	}
	return text
}

// plotMap draws robot positions on a width x height character grid
// bounded by the robots' extent. Critical robots win shared cells.
func plotMap(robots []fleet.RobotView, width, height int) []string {
	if width < 2 {
		width = 2
	}
	if height < 2 {
		height = 2
	}
	if len(robots) == 0 {
		return []string{"No position data"}
	}
	minLat, maxLat := math.Inf(1), math.Inf(-1)
	minLon, maxLon := math.Inf(1), math.Inf(-1)
	for _, rb := range robots {
		c := rb.Coordinates
		minLat = math.Min(minLat, c.Lat)
		maxLat = math.Max(maxLat, c.Lat)
		minLon = math.Min(minLon, c.Lon)
		maxLon = math.Max(maxLon, c.Lon)
	}
	if maxLat-minLat < 1 {
		minLat, maxLat = minLat-0.5, maxLat+0.5
	}
	if maxLon-minLon < 1 {
		minLon, maxLon = minLon-0.5, maxLon+0.5
	}

	grid := make([][]byte, height)
	for i := range grid {
		grid[i] = []byte(strings.Repeat(".", width))
	}
	for _, rb := range robots {
		x := int((rb.Coordinates.Lon - minLon) / (maxLon - minLon) * float64(width-1))
		y := int((maxLat - rb.Coordinates.Lat) / (maxLat - minLat) * float64(height-1))
		if rb.Critical {
			grid[y][x] = '!'
		} else if grid[y][x] != '!' {
			grid[y][x] = 'o'
		}
	}
	lines := make([]string, height)
	for i, row := range grid {
		lines[i] = string(row)
	}
	return lines
}
