// Package boot provides guarded lazy initialization for resources that are
// expensive or unavailable at startup.
package boot

import (
	"context"
	"sync"
)

// State describes where a Gate is in its lifecycle.
type State int

const (
	// StateUninitialized means Init has never been attempted.
	StateUninitialized State = iota

	// StateInitializing means an Init call is in flight.
	StateInitializing

	// StateReady means Init completed successfully.
	StateReady

	// StateFailed means the last Init attempt returned an error.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Gate serializes initialization of a lazily built resource. Exactly one
// caller runs the init function at a time; callers arriving during a run
// wait for its outcome instead of starting another. A failed run leaves the
// gate retryable: the next Ensure call attempts init again.
type Gate struct {
	mu    sync.Mutex
	state State
	done  chan struct{}
	err   error
	init  func(ctx context.Context) error
}

// NewGate creates a gate around the given init function.
func NewGate(init func(ctx context.Context) error) *Gate {
	return &Gate{init: init}
}

// State returns the gate's current lifecycle state.
func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Ensure makes sure initialization has run. The first caller executes the
// init function; concurrent callers block until it finishes and share its
// result. Waiting callers honor their own context's cancellation without
// aborting the in-flight init.
func (g *Gate) Ensure(ctx context.Context) error {
	g.mu.Lock()

	switch g.state {
	case StateReady:
		g.mu.Unlock()
		return nil

	case StateInitializing:
		done := g.done
		g.mu.Unlock()

		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}

		g.mu.Lock()
		defer g.mu.Unlock()
		if g.state == StateReady {
			return nil
		}
		return g.err

	default: // StateUninitialized or StateFailed: this caller runs init.
		g.state = StateInitializing
		g.done = make(chan struct{})
		done := g.done
		g.mu.Unlock()

		err := g.init(ctx)

		g.mu.Lock()
		if err != nil {
			g.state = StateFailed
			g.err = err
		} else {
			g.state = StateReady
			g.err = nil
		}
		g.mu.Unlock()
		close(done)

		return err
	}
}
