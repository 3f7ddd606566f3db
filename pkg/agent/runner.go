package agent

import (
	"context"
	"fmt"

	"github.com/decred/slog"

	"github.com/vctt94/pokertourney/pkg/tournament"
)

// Result summarizes one finished episode.
type Result struct {
	Steps       int
	HandsPlayed int
	Terminated  bool
	Truncated   bool
	Winner      int
	Standings   []tournament.Standing
	Rewards     map[int]float64 // summed per player
}

// Runner drives a controller with one agent per player id.
type Runner struct {
	log    slog.Logger
	agents []Agent

	// OnStep, when set, is called after every step. Returning an error
	// stops the run.
	OnStep func(tournament.StepResult) error
}

// NewRunner creates a runner. Player i is played by agents[i%len(agents)].
func NewRunner(log slog.Logger, agents []Agent) *Runner {
	if log == nil {
		log = slog.Disabled
	}
	return &Runner{log: log, agents: agents}
}

// Run resets c with cfg and plays until the episode ends or ctx is done.
func (r *Runner) Run(ctx context.Context, c *tournament.Controller, cfg tournament.Config) (Result, error) {
	if len(r.agents) == 0 {
		return Result{}, fmt.Errorf("no agents")
	}
	obs, info, err := c.Reset(cfg)
	if err != nil {
		return Result{}, err
	}

	res := Result{Winner: -1, Rewards: make(map[int]float64)}
	mask := info.ActionMask
	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		pid := obs.PlayerID
		a := r.agents[pid%len(r.agents)]
		action := a.Act(obs, mask)
		if !mask.Allows(action) {
			r.log.Warnf("Agent %s chose illegal %s for player %d, playing passively", a.Name(), action, pid)
			action = Passive(mask)
		}

		step, err := c.Step(action)
		if err != nil {
			return res, fmt.Errorf("step %d: %w", res.Steps, err)
		}
		res.Steps++
		res.Rewards[pid] += step.Reward
		if r.OnStep != nil {
			if err := r.OnStep(step); err != nil {
				return res, err
			}
		}

		if step.Terminated || step.Truncated {
			res.Terminated, res.Truncated = step.Terminated, step.Truncated
			res.Winner = step.Info.Winner
			res.HandsPlayed = c.HandsPlayed()
			res.Standings = c.Standings()
			r.log.Infof("Episode over after %d steps and %d hands (winner %d)",
				res.Steps, res.HandsPlayed, res.Winner)
			return res, nil
		}
		obs, mask = step.Observation, step.Info.ActionMask
	}
}
