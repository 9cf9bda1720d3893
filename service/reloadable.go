// Package service implements the spec.md 4.6 ReloadableService pin-count
// protocol: an atomically-swapped component handle, reference-counted
// pinning, and deferred destruction of a replaced component once every
// caller holding it has released. Grounded on the teacher's
// system/framework/lifecycle.GracefulShutdown in-flight counter and
// OperationGuard RAII pattern, adapted from "track in-flight work, block
// new work during shutdown" into "track pins, swap the pinned target on
// reload".
package service

import (
	"sync"
	"sync/atomic"

	"github.com/R3E-Network/attribute-engine/pkg/attrerrors"
)

// Destroyable is implemented by anything a ReloadableService can build and
// eventually tear down.
type Destroyable interface {
	Destroy()
}

// generation wraps one built component together with its own pin count and
// retired/destroyed flags, so an outgoing generation can keep draining
// in-flight pins after a newer one has already become current.
type generation[T Destroyable] struct {
	component T
	pins      int64
	retired   int32
	destroyed int32
}

func (g *generation[T]) pin() { atomic.AddInt64(&g.pins, 1) }

// unpin releases a pin and destroys the generation if it is both retired
// and now unpinned.
func (g *generation[T]) unpin() {
	if atomic.AddInt64(&g.pins, -1) == 0 && atomic.LoadInt32(&g.retired) != 0 {
		g.destroyIfNeeded()
	}
}

func (g *generation[T]) destroyIfNeeded() {
	if atomic.CompareAndSwapInt32(&g.destroyed, 0, 1) {
		g.component.Destroy()
	}
}

// retire marks the generation as replaced, destroying it immediately if it
// already has no outstanding pins.
func (g *generation[T]) retire() {
	atomic.StoreInt32(&g.retired, 1)
	if atomic.LoadInt64(&g.pins) == 0 {
		g.destroyIfNeeded()
	}
}

// Handle is a pinned reference to a ReloadableService's current component;
// callers must call Unpin exactly once, on every exit path, per spec.md 4.6.
type Handle[T Destroyable] struct {
	gen  *generation[T]
	once sync.Once
}

// Get returns the pinned component.
func (h *Handle[T]) Get() T {
	return h.gen.component
}

// Unpin releases the pin. Safe to call multiple times; only the first call
// has effect.
func (h *Handle[T]) Unpin() {
	h.once.Do(h.gen.unpin)
}

// Builder constructs and fully initializes a new generation's component,
// returning an error if construction or initialization fails.
type Builder[T Destroyable] func() (T, error)

// ReloadableService implements spec.md 4.6: the current component handle is
// swapped atomically on a successful reload; the outgoing component is
// marked pending-destroy and actually destroyed once its pin count reaches
// zero, so in-flight requests that pinned it before the swap always observe
// a consistent, fully-initialized graph through to completion.
type ReloadableService[T Destroyable] struct {
	mu       sync.Mutex // serializes Reload calls only
	current  atomic.Pointer[generation[T]]
	build    Builder[T]
	failFast bool
}

// New constructs a ReloadableService with an already-built initial
// component. failFast controls Reload's behavior when the new build fails:
// true surfaces the error immediately, false retains the previous component
// and returns a non-fatal wrapped error for logging.
func New[T Destroyable](build Builder[T], initial T, failFast bool) *ReloadableService[T] {
	s := &ReloadableService[T]{build: build, failFast: failFast}
	s.current.Store(&generation[T]{component: initial})
	return s
}

// GetServiceableComponent returns a pinned Handle to the current component
// (spec.md 4.6). The caller must call Handle.Unpin() on every exit path.
func (s *ReloadableService[T]) GetServiceableComponent() *Handle[T] {
	for {
		gen := s.current.Load()
		gen.pin()
		if atomic.LoadInt32(&gen.destroyed) != 0 {
			// Lost a race against a reload that retired and fully drained
			// this generation between Load and pin; it never should have
			// accepted this pin. Back it out and retry against whatever is
			// current now.
			gen.unpin()
			continue
		}
		return &Handle[T]{gen: gen}
	}
}

// Reload builds a new component via Builder, and on success atomically
// swaps it in as current; the previous component is destroyed once its pin
// count drains to zero (spec.md 4.6).
func (s *ReloadableService[T]) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := s.build()
	if err != nil {
		if s.failFast {
			return attrerrors.ComponentInitializationWrap("reloadable-service", "reload build failed", err)
		}
		return attrerrors.ComponentInitializationWrap("reloadable-service", "reload build failed, retaining previous component", err)
	}

	prevGen := s.current.Load()
	s.current.Store(&generation[T]{component: next})
	prevGen.retire()
	return nil
}
