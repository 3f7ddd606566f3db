package ui

import (
	"context"
	"errors"
	"fmt"

	"github.com/vctt94/pokertourney/pkg/agent"
	"github.com/vctt94/pokertourney/pkg/poker"
	"github.com/vctt94/pokertourney/pkg/server"
	"github.com/vctt94/pokertourney/pkg/tournament"
)

// Frame is one picture of a tournament.
type Frame struct {
	Stats     tournament.Stats
	Tables    []tournament.TableView // nil when the source cannot see seating
	Stacks    map[int]int64
	Info      tournament.Info
	Standings []tournament.Standing
	Done      bool
}

// Source produces frames for the dashboard. Next blocks until there is
// something new to show.
type Source interface {
	Next(ctx context.Context) (Frame, error)
}

// ErrSourceDone is returned by Next after the last frame.
var ErrSourceDone = errors.New("no more frames")

// LocalSource plays a tournament in process with agents and yields one
// frame per completed hand.
type LocalSource struct {
	ctrl   *tournament.Controller
	agents []agent.Agent
	obs    tournament.Observation
	mask   poker.ActionMask
	done   bool
}

// NewLocalSource resets ctrl with cfg. Player i is played by
// agents[i%len(agents)].
func NewLocalSource(ctrl *tournament.Controller, cfg tournament.Config, agents []agent.Agent) (*LocalSource, error) {
	if len(agents) == 0 {
		return nil, fmt.Errorf("no agents")
	}
	obs, info, err := ctrl.Reset(cfg)
	if err != nil {
		return nil, err
	}
	return &LocalSource{ctrl: ctrl, agents: agents, obs: obs, mask: info.ActionMask}, nil
}

func (s *LocalSource) Next(ctx context.Context) (Frame, error) {
	if s.done {
		return Frame{}, ErrSourceDone
	}
	for {
		if err := ctx.Err(); err != nil {
			return Frame{}, err
		}
		a := s.agents[s.obs.PlayerID%len(s.agents)]
		action := a.Act(s.obs, s.mask)
		if !s.mask.Allows(action) {
			action = agent.Passive(s.mask)
		}
		res, err := s.ctrl.Step(action)
		if err != nil {
			return Frame{}, err
		}
		s.obs, s.mask = res.Observation, res.Info.ActionMask
		ended := res.Terminated || res.Truncated
		if !res.Info.HandComplete && !ended {
			continue
		}
		s.done = ended
		return s.frame(res.Info), nil
	}
}

func (s *LocalSource) frame(info tournament.Info) Frame {
	f := Frame{
		Stats:  s.ctrl.Stats(),
		Tables: s.ctrl.Tables(),
		Stacks: make(map[int]int64),
		Info:   info,
		Done:   s.done,
	}
	for _, p := range s.ctrl.Players() {
		if p.Alive {
			f.Stacks[p.ID] = p.Stack
		}
	}
	if s.done {
		f.Standings = s.ctrl.Standings()
	}
	return f
}

// RemoteSource follows a session on a tournament server.
type RemoteSource struct {
	stream *server.EventStream
	done   bool
}

// NewRemoteSource wraps a watch stream.
func NewRemoteSource(stream *server.EventStream) *RemoteSource {
	return &RemoteSource{stream: stream}
}

func (s *RemoteSource) Next(ctx context.Context) (Frame, error) {
	if s.done {
		return Frame{}, ErrSourceDone
	}
	ev, err := s.stream.Recv()
	if err != nil {
		return Frame{}, err
	}
	switch ev.Type {
	case server.EventTypeFinished, server.EventTypeTruncated, server.EventTypeClosed:
		s.done = true
	}
	return Frame{
		Stats:     ev.Stats,
		Info:      ev.Info,
		Standings: ev.Standings,
		Done:      s.done,
	}, nil
}
