// Package tui is a live terminal view of a stepping grid simulation: per-step
// aggregate metrics, the most loaded lines as colored bars, and the trip log.
package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/gridshield/gridsim/internal/grid"
	"github.com/gridshield/gridsim/internal/sim"
)

var (
	titleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)
	dim        = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	green      = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	yellow     = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	red        = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	magenta    = lipgloss.NewStyle().Foreground(lipgloss.Color("213"))
)

const (
	barWidth = 30
	topLines = 12
)

type tickMsg time.Time

type model struct {
	initial  *sim.State
	state    *sim.State
	stats    sim.StepStats
	maxSteps int
	paused   bool
	tripLog  []string
}

// Run drives the live view until the user quits or maxSteps is reached.
func Run(initial *sim.State, maxSteps int) error {
	m := model{initial: initial, state: initial, maxSteps: maxSteps}
	_, err := tea.NewProgram(m).Run()
	return err
}

func tick() tea.Cmd {
	return tea.Tick(800*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Init() tea.Cmd {
	return tick()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.paused = !m.paused
		case "s":
			m.advance()
		case "r":
			m.state = m.initial
			m.stats = sim.StepStats{}
			m.tripLog = nil
		}
	case tickMsg:
		if !m.paused && m.state.Step < m.maxSteps {
			m.advance()
		}
		return m, tick()
	}
	return m, nil
}

func (m *model) advance() {
	next, stats := sim.SimulateStep(m.state)
	m.state = next
	m.stats = stats
	for _, id := range stats.NewTrips {
		m.tripLog = append(m.tripLog, fmt.Sprintf("step %d: %s tripped", next.Step, id))
	}
	if len(m.tripLog) > 6 {
		m.tripLog = m.tripLog[len(m.tripLog)-6:]
	}
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("gridsim live"))
	b.WriteString(dim.Render(fmt.Sprintf("  seed %d  step %d/%d", m.state.Seed, m.state.Step, m.maxSteps)))
	if m.paused {
		b.WriteString(yellow.Render("  [paused]"))
	}
	b.WriteString("\n\n")

	met := m.state.Metrics
	b.WriteString(fmt.Sprintf("  load %8.1f MW   generation %8.1f MW   reserve %6.1f%%\n",
		met.TotalLoadMW, met.TotalGenerationMW, met.ReserveMarginPct))
	line := fmt.Sprintf("  blackout probability %.3f   tripped %d/%d",
		met.BlackoutProbability, len(m.state.Tripped), m.state.Graph.EdgeCount())
	if met.BlackoutProbability > 0.3 {
		b.WriteString(red.Render(line))
	} else {
		b.WriteString(line)
	}
	b.WriteString("\n")
	if m.stats.Duration > 0 {
		info := fmt.Sprintf("  cascade %d iterations in %s", m.stats.CascadeIterations, m.stats.Duration.Round(time.Millisecond))
		if !m.stats.Converged {
			info += "  (iteration cap hit)"
		}
		if m.stats.OverBudget {
			info += "  over budget"
		}
		b.WriteString(dim.Render(info))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	for _, e := range topLoaded(m.state) {
		b.WriteString("  " + renderBar(e, m.state.Utilizations[e.ID]) + "\n")
	}

	if len(m.tripLog) > 0 {
		b.WriteString("\n")
		for _, entry := range m.tripLog {
			b.WriteString(magenta.Render("  " + entry))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(dim.Render("  space pause · s step · r reset · q quit"))
	b.WriteString("\n")
	return b.String()
}

// topLoaded picks the highest-utilization edges, tripped ones first so trips
// stay visible, with edge id breaking ties.
func topLoaded(s *sim.State) []grid.Edge {
	edges := s.Graph.Edges()
	sort.SliceStable(edges, func(i, j int) bool {
		ti, tj := edges[i].State == grid.EdgeTripped, edges[j].State == grid.EdgeTripped
		if ti != tj {
			return ti
		}
		ui, uj := s.Utilizations[edges[i].ID], s.Utilizations[edges[j].ID]
		if ui != uj {
			return ui > uj
		}
		return edges[i].ID < edges[j].ID
	})
	if len(edges) > topLines {
		edges = edges[:topLines]
	}
	return edges
}

func renderBar(e grid.Edge, utilization float64) string {
	if e.State == grid.EdgeTripped {
		return fmt.Sprintf("%-4s %s", e.ID, dim.Render(strings.Repeat("·", barWidth)+"  tripped"))
	}

	filled := int(utilization * barWidth)
	if filled > barWidth {
		filled = barWidth
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)

	style := green
	switch {
	case utilization > sim.CriticalUtilization:
		style = red
	case utilization > sim.WarningUtilization:
		style = yellow
	}
	return fmt.Sprintf("%-4s %s %5.1f%%", e.ID, style.Render(bar), utilization*100)
}
