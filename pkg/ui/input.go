package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

const (
	minDelay = 10 * time.Millisecond
	maxDelay = 2 * time.Second
)

// handleKey processes keyboard input.
func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "ctrl+c", "q":
		return tea.Quit
	case " ", "p":
		switch m.state {
		case stateRunning:
			m.state = statePaused
		case statePaused:
			m.state = stateRunning
			return m.request()
		}
	case "n":
		// Single step while paused.
		if m.state == statePaused && !m.pending {
			m.pending = true
			return nextFrameCmd(m.ctx, m.source)
		}
	case "+", "=":
		m.delay = max(minDelay, m.delay/2)
	case "-", "_":
		m.delay = min(maxDelay, m.delay*2)
	case "s":
		m.showStandings = !m.showStandings
	case "left", "h":
		m.selectedTable = max(0, m.selectedTable-1)
	case "right", "l":
		if n := len(m.frame.Tables); n > 0 {
			m.selectedTable = min(n-1, m.selectedTable+1)
		}
	}
	return nil
}
