package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vctt94/pokertourney/pkg/tournament"
)

const tableBoxWidth = 22

// Renderer handles all rendering of the dashboard.
type Renderer struct {
	ui *Model
}

// Render draws the whole screen.
func (r *Renderer) Render() string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render(r.ui.title) + "\n\n")
	b.WriteString(r.RenderStats() + "\n")

	if r.ui.frames == 0 {
		b.WriteString(BlurredStyle.Render("Waiting for the first hand...") + "\n")
	} else if r.ui.showStandings {
		b.WriteString(r.RenderStandings())
	} else {
		b.WriteString(r.RenderTables())
	}

	if len(r.ui.log) > 0 {
		b.WriteString("\n" + strings.Join(r.ui.log, "\n") + "\n")
	}
	if r.ui.state == stateFinished && r.ui.frame.Info.Winner >= 0 {
		b.WriteString("\n" + WinnerStyle.Render(fmt.Sprintf("Winner: player %d", r.ui.frame.Info.Winner)) + "\n")
	}
	if r.ui.err != nil {
		b.WriteString("\n" + ErrorStyle.Render(fmt.Sprintf("Error: %v", r.ui.err)) + "\n")
	}
	b.WriteString(r.RenderHelp())
	return b.String()
}

// RenderStats renders the progress line.
func (r *Renderer) RenderStats() string {
	st := r.ui.frame.Stats
	state := "running"
	switch r.ui.state {
	case statePaused:
		state = "paused"
	case stateFinished:
		state = "finished"
	}
	lines := []string{
		fmt.Sprintf("Hands %d | Level %d (%s) | Players %d left, %d out | Tables %d | %s",
			st.HandsPlayed, st.BlindLevel+1, st.Blinds, st.RemainingPlayers, st.EliminatedPlayers,
			st.ActiveTables, state),
		fmt.Sprintf("Average stack %.0f | Chip leader %s | Speed %s",
			st.AverageStack,
			LeaderStyle.Render(fmt.Sprintf("player %d (%d)", st.ChipLeader, st.ChipLeaderStack)),
			r.ui.delay),
	}
	return InfoStyle.Render(strings.Join(lines, "\n"))
}

// RenderTables draws one box per table, wrapping to the terminal width.
func (r *Renderer) RenderTables() string {
	f := r.ui.frame
	if len(f.Tables) == 0 {
		return r.renderTableCounts()
	}

	perRow := max(1, r.ui.width/(tableBoxWidth+4))
	var rows []string
	var row []string
	for i, t := range f.Tables {
		row = append(row, r.renderTable(t, i == r.ui.selectedTable))
		if len(row) == perRow {
			rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...) + "\n"
}

func (r *Renderer) renderTable(t tournament.TableView, selected bool) string {
	f := r.ui.frame
	var b strings.Builder
	fmt.Fprintf(&b, "Table %d (%d/%d)\n", t.ID, t.Count(), len(t.Seats))
	for seat, pid := range t.Seats {
		if pid == tournament.EmptySeat {
			b.WriteString(EmptySeatStyle.Render(fmt.Sprintf("%d: -", seat)) + "\n")
			continue
		}
		line := fmt.Sprintf("%d: p%-3d %7d", seat, pid, f.Stacks[pid])
		if pid == f.Stats.ChipLeader {
			line = LeaderStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}
	style := TableStyle
	switch {
	case selected:
		style = SelectedTableStyle
	case t.ID == f.Info.TableID:
		style = ActiveTableStyle
	}
	return style.Width(tableBoxWidth).Render(strings.TrimRight(b.String(), "\n"))
}

// renderTableCounts is used when only per-table counts are known.
func (r *Renderer) renderTableCounts() string {
	counts := r.ui.frame.Stats.TableCounts
	if len(counts) == 0 {
		return ""
	}
	ids := make([]int, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	var b strings.Builder
	for _, id := range ids {
		fmt.Fprintf(&b, "Table %d: %d players\n", id, counts[id])
	}
	return b.String()
}

// RenderStandings lists the results table.
func (r *Renderer) RenderStandings() string {
	st := r.ui.frame.Standings
	if len(st) == 0 {
		return BlurredStyle.Render("Standings are shown when the tournament ends.") + "\n"
	}
	var b strings.Builder
	b.WriteString(FocusedStyle.Render(fmt.Sprintf("%-6s %-8s %-6s %s", "Place", "Player", "Hand", "Stack")) + "\n")
	for _, s := range st {
		hand := "-"
		if s.Hand > 0 {
			hand = fmt.Sprint(s.Hand)
		}
		fmt.Fprintf(&b, "%-6d %-8d %-6s %d\n", s.Place, s.PlayerID, hand, s.Stack)
	}
	return b.String()
}

// RenderHelp renders the key bindings.
func (r *Renderer) RenderHelp() string {
	return HelpStyle.Render("space: pause/resume  n: next hand  +/-: speed  s: standings  ←/→: select table  q: quit")
}
