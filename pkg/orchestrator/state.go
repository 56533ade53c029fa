package orchestrator

import (
	"fmt"
	"time"
)

// State is a stage of an orchestration run
type State string

const (
	StateIdle          State = "idle"
	StateQuotingSwap   State = "quoting_swap"
	StateEstimatingGas State = "estimating_gas"
	StateQuotingBridge State = "quoting_bridge"
	StateRequotingSwap State = "requoting_swap"
	StateSubmitting    State = "submitting"
	StateSucceeded     State = "succeeded"
	StateFailed        State = "failed"
)

// IsTerminal reports whether no further transition can follow s
func (s State) IsTerminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// Transition is reported to observers every time a run changes state
type Transition struct {
	RunID string
	From  State
	To    State
	// Elapsed is the time spent in From.
	Elapsed time.Duration
	// Err is set when To is StateFailed.
	Err error
}

// Observer is notified of run progress. Implementations must not block.
type Observer interface {
	OnTransition(t Transition)
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(t Transition)

func (f ObserverFunc) OnTransition(t Transition) {
	f(t)
}

type observers []Observer

// Observers fans a transition out to every non-nil observer
func Observers(list ...Observer) Observer {
	var out observers
	for _, o := range list {
		if o != nil {
			out = append(out, o)
		}
	}
	return out
}

func (o observers) OnTransition(t Transition) {
	for _, obs := range o {
		obs.OnTransition(t)
	}
}

// RunError records the stage a run failed in. Err carries the error kind
// from the apperrors package.
type RunError struct {
	Stage State
	Err   error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// Cause lets github.com/pkg/errors walk through the run error
func (e *RunError) Cause() error {
	return e.Err
}
