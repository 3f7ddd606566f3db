package tournament

import (
	"errors"
	"fmt"

	"github.com/vctt94/pokertourney/pkg/poker"
)

var (
	// ErrNotStarted is returned by Step before the first Reset.
	ErrNotStarted = errors.New("tournament not started")

	// ErrEmptyTable means a table with no players reached the balancer.
	// The table set and the ledger are out of sync.
	ErrEmptyTable = errors.New("table has no players")
)

// ConfigurationError reports an invalid configuration value.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// IllegalActionError is returned when the awaited seat submits an action
// outside its mask. No state is changed.
type IllegalActionError struct {
	Action poker.Action
	Mask   poker.ActionMask
}

func (e *IllegalActionError) Error() string {
	return fmt.Sprintf("illegal action %s, legal actions are %s", e.Action, e.Mask)
}

// EpisodeTerminatedError is returned by Step once the tournament has ended.
type EpisodeTerminatedError struct {
	Truncated bool
}

func (e *EpisodeTerminatedError) Error() string {
	if e.Truncated {
		return "episode truncated, call Reset"
	}
	return "episode terminated, call Reset"
}
