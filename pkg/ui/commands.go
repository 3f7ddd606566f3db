package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

type frameMsg Frame
type errorMsg error
type tickMsg struct{}

func nextFrameCmd(ctx context.Context, src Source) tea.Cmd {
	return func() tea.Msg {
		f, err := src.Next(ctx)
		if err != nil {
			return errorMsg(err)
		}
		return frameMsg(f)
	}
}

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}
