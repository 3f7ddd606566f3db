// Package ui is a terminal dashboard that follows a tournament as it
// plays.
package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vctt94/pokertourney/pkg/tournament"
)

// screenState represents what the dashboard is doing
type screenState int

const (
	stateRunning screenState = iota
	statePaused
	stateFinished
)

const maxLogLines = 10

// Model contains all the state for the dashboard.
type Model struct {
	ctx    context.Context
	source Source
	title  string

	state   screenState
	pending bool // a frame request is in flight
	delay   time.Duration
	frame   Frame
	frames  int
	log     []string
	err     error

	showStandings bool
	selectedTable int
	width         int

	renderer *Renderer
}

// NewModel creates a dashboard over src that asks for a new frame every
// delay.
func NewModel(ctx context.Context, title string, src Source, delay time.Duration) *Model {
	if delay <= 0 {
		delay = 200 * time.Millisecond
	}
	m := &Model{
		ctx:    ctx,
		source: src,
		title:  title,
		state:  stateRunning,
		delay:  delay,
		width:  120,
	}
	m.renderer = &Renderer{ui: m}
	return m
}

func (m *Model) Init() tea.Cmd {
	return m.request()
}

// request fetches the next frame unless one is already on its way.
func (m *Model) request() tea.Cmd {
	if m.pending || m.state != stateRunning {
		return nil
	}
	m.pending = true
	return nextFrameCmd(m.ctx, m.source)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m, m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case tickMsg:
		return m, m.request()

	case frameMsg:
		m.pending = false
		m.apply(Frame(msg))
		if m.state == stateRunning {
			return m, tickCmd(m.delay)
		}

	case errorMsg:
		m.pending = false
		err := error(msg)
		if errors.Is(err, ErrSourceDone) || errors.Is(err, io.EOF) {
			m.state = stateFinished
			return m, nil
		}
		m.err = err
		m.state = statePaused
	}
	return m, nil
}

// apply takes a new frame and records what happened in it.
func (m *Model) apply(f Frame) {
	m.frame = f
	m.frames++
	if m.selectedTable >= len(f.Tables) {
		m.selectedTable = max(0, len(f.Tables)-1)
	}
	m.log = append(m.log, describe(f.Info)...)
	if len(m.log) > maxLogLines {
		m.log = m.log[len(m.log)-maxLogLines:]
	}
	if f.Done {
		m.state = stateFinished
		m.showStandings = true
	}
}

// describe turns the notable parts of a step into log lines.
func describe(info tournament.Info) []string {
	var out []string
	for _, e := range info.Eliminations {
		out = append(out, EliminationStyle.Render(fmt.Sprintf(
			"hand %d: player %d out in place %d at table %d", e.Hand, e.PlayerID, e.Place, e.TableID)))
	}
	for _, t := range info.Broken {
		out = append(out, MoveStyle.Render(fmt.Sprintf("table %d broken", t)))
	}
	for _, mv := range info.Moves {
		out = append(out, MoveStyle.Render(fmt.Sprintf(
			"player %d moved from table %d to table %d seat %d (%s)", mv.PlayerID, mv.From, mv.To, mv.Seat, mv.Reason)))
	}
	if info.Winner >= 0 {
		out = append(out, LeaderStyle.Render(fmt.Sprintf("player %d wins the tournament", info.Winner)))
	}
	return out
}

func (m *Model) View() string {
	return m.renderer.Render()
}

// Run shows the dashboard until the user quits.
func Run(ctx context.Context, title string, src Source, delay time.Duration) error {
	p := tea.NewProgram(NewModel(ctx, title, src, delay), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
