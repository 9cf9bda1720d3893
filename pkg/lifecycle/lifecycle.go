// Package lifecycle implements the uniform component state machine shared
// by every resolver/filter node: constructed -> initialized -> (validated)*
// -> destroyed, with mutation only permitted before initialize and
// invocation only permitted while initialized. Grounded on the service
// layer's system/framework/lifecycle graceful-shutdown tracker, adapted from
// a shutdown tracker into a general component state machine.
package lifecycle

import (
	"sync"
	"sync/atomic"

	"github.com/R3E-Network/attribute-engine/pkg/attrerrors"
)

// State is one of the three lifecycle states of a component.
type State int32

const (
	StateConstructed State = iota
	StateInitialized
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateConstructed:
		return "constructed"
	case StateInitialized:
		return "initialized"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// Component is embedded by every resolver/filter node to provide the
// uniform lifecycle guard rails described in spec.md 4.1. It is not itself
// thread-safe for mutation (mutation only happens pre-init, single
// goroutine, by contract) but State()/CheckInvocable() are safe for
// concurrent readers post-init.
type Component struct {
	id    string
	state atomic.Int32
	mu    sync.Mutex
}

// NewComponent constructs a Component identified by id, in the constructed
// state.
func NewComponent(id string) *Component {
	c := &Component{id: id}
	c.state.Store(int32(StateConstructed))
	return c
}

// ID returns the component's configured id.
func (c *Component) ID() string {
	return c.id
}

// State returns the current lifecycle state.
func (c *Component) State() State {
	return State(c.state.Load())
}

// CheckMutable returns an *attrerrors.ComponentError if the component is not
// in the constructed state, i.e. mutation is no longer permitted. Call this
// from every setter.
func (c *Component) CheckMutable() error {
	switch c.State() {
	case StateConstructed:
		return nil
	case StateDestroyed:
		return attrerrors.Destroyed(c.id)
	default:
		return attrerrors.Unmodifiable(c.id)
	}
}

// CheckInvocable returns an *attrerrors.ComponentError if the component is
// not initialized, i.e. invocation (resolve/matches/apply/...) is not
// permitted. Call this at the top of every invocation method.
func (c *Component) CheckInvocable() error {
	switch c.State() {
	case StateInitialized:
		return nil
	case StateDestroyed:
		return attrerrors.Destroyed(c.id)
	default:
		return attrerrors.Uninitialized(c.id)
	}
}

// Initialize transitions constructed -> initialized. It is one-shot: a
// second call returns an error rather than silently succeeding. doInit runs
// while holding the component's mutation lock, so it may safely call
// CheckMutable-guarded setters internally if needed.
func (c *Component) Initialize(doInit func() error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.State() {
	case StateInitialized:
		return attrerrors.ComponentInitialization(c.id, "already initialized")
	case StateDestroyed:
		return attrerrors.Destroyed(c.id)
	}

	if doInit != nil {
		if err := doInit(); err != nil {
			return err
		}
	}

	c.state.Store(int32(StateInitialized))
	return nil
}

// Destroy transitions to destroyed. It is idempotent: destroying an
// already-destroyed or never-initialized component is a no-op success.
func (c *Component) Destroy(doDestroy func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.State() == StateDestroyed {
		return
	}
	if doDestroy != nil {
		doDestroy()
	}
	c.state.Store(int32(StateDestroyed))
}

// Identified is implemented by every node that carries a stable id.
type Identified interface {
	ID() string
}

// Lifecycled is implemented by every resolver/filter node.
type Lifecycled interface {
	Identified
	State() State
}
