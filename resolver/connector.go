package resolver

import (
	"context"
	"sync"
	"time"

	"github.com/R3E-Network/attribute-engine/attribute"
	"github.com/R3E-Network/attribute-engine/pkg/attrerrors"
	"github.com/R3E-Network/attribute-engine/pkg/lifecycle"
)

// Connector is the common contract for every data connector variant
// (spec.md 4.3): resolve(ctx) -> map<attrId, Attribute>, or the special
// no-results value (represented here as a nil map with a nil error,
// distinguished from failure which returns a non-nil error).
type Connector interface {
	lifecycle.Lifecycled
	Dependencies() Dependencies

	// Resolve runs the connector's lookup. A nil map with a nil error means
	// "no results" (spec.md 4.3); a non-nil error means failure.
	Resolve(ctx context.Context, rctx *Context) (map[string]*attribute.Attribute, error)

	// FailoverConnectorID returns the configured failover target, or "" if
	// none.
	FailoverConnectorID() string
	// NoRetryDelay returns the configured cool-down window.
	NoRetryDelay() time.Duration
	// ExportedAttributeIDs returns the set of attribute ids this connector
	// exports directly into resolvedAttributes (spec.md glossary: "Export"),
	// and whether it exports all produced attributes regardless of id.
	ExportedAttributeIDs() ([]string, bool)

	// RecordFailure/RecordSuccess/LastFailure are used by the resolver
	// engine to implement the failover/cool-down protocol (spec.md 4.3);
	// they must be safe under concurrent access (spec.md 5).
	RecordFailure(at time.Time)
	RecordSuccess(at time.Time)
	LastFailure() (time.Time, bool)
}

// BaseConnector provides the lifecycle plumbing and shared fields
// (id, failoverConnectorId, noRetryDelay, exportAttributes, lastSuccess,
// lastFail) common to every connector variant, mirroring spec.md 6's
// "Data connector" configuration surface. Concrete connectors embed this and
// implement Resolve plus any extra setters.
type BaseConnector struct {
	*lifecycle.Component

	deps Dependencies

	failoverConnectorID string
	noRetryDelay        time.Duration
	exportAll           bool
	exportIDs           []string
	noResultIsError     bool

	mu          sync.RWMutex
	lastSuccess time.Time
	lastFail    time.Time
	hasFailed   bool
}

// NewBaseConnector constructs a BaseConnector in the constructed lifecycle
// state.
func NewBaseConnector(id string) *BaseConnector {
	return &BaseConnector{Component: lifecycle.NewComponent(id)}
}

func (b *BaseConnector) Dependencies() Dependencies { return b.deps }

// SetDependencies is a mutator, permitted only pre-initialize.
func (b *BaseConnector) SetDependencies(d Dependencies) error {
	if err := b.CheckMutable(); err != nil {
		return err
	}
	b.deps = d
	return nil
}

func (b *BaseConnector) SetFailoverConnectorID(id string) error {
	if err := b.CheckMutable(); err != nil {
		return err
	}
	b.failoverConnectorID = id
	return nil
}

func (b *BaseConnector) FailoverConnectorID() string { return b.failoverConnectorID }

func (b *BaseConnector) SetNoRetryDelay(d time.Duration) error {
	if err := b.CheckMutable(); err != nil {
		return err
	}
	b.noRetryDelay = d
	return nil
}

func (b *BaseConnector) NoRetryDelay() time.Duration { return b.noRetryDelay }

func (b *BaseConnector) SetExportAttributes(ids []string) error {
	if err := b.CheckMutable(); err != nil {
		return err
	}
	b.exportIDs = ids
	return nil
}

func (b *BaseConnector) SetExportAllAttributes(all bool) error {
	if err := b.CheckMutable(); err != nil {
		return err
	}
	b.exportAll = all
	return nil
}

func (b *BaseConnector) ExportedAttributeIDs() ([]string, bool) {
	return b.exportIDs, b.exportAll
}

func (b *BaseConnector) SetNoResultIsError(v bool) error {
	if err := b.CheckMutable(); err != nil {
		return err
	}
	b.noResultIsError = v
	return nil
}

func (b *BaseConnector) NoResultIsError() bool { return b.noResultIsError }

func (b *BaseConnector) RecordFailure(at time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastFail = at
	b.hasFailed = true
}

func (b *BaseConnector) RecordSuccess(at time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastSuccess = at
	// lastFail is intentionally not cleared: spec.md 4.3 compares lastFail
	// only against the cool-down window, it is never reset by success.
}

func (b *BaseConnector) LastFailure() (time.Time, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastFail, b.hasFailed
}

func (b *BaseConnector) LastSuccess() time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastSuccess
}

// CheckNoResult applies the connector's noResultIsError flag to a "no
// results" outcome, turning it into a *attrerrors.ComponentError when
// configured to do so.
func (b *BaseConnector) CheckNoResult() error {
	if b.noResultIsError {
		return attrerrors.Resolution(b.ID(), "connector produced no results and noResultIsError is set")
	}
	return nil
}
