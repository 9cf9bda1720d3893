// Package attrengine wires a resolver.Engine and a filter.Engine into a
// single reloadable unit (spec.md 4.6): Builder constructs and initializes
// both graphs, the resulting Snapshot is handed to service.ReloadableService,
// and Service exposes one request-scoped Resolve-then-Filter call.
package attrengine

import (
	"context"

	"github.com/R3E-Network/attribute-engine/attribute"
	"github.com/R3E-Network/attribute-engine/filter"
	"github.com/R3E-Network/attribute-engine/pkg/attrerrors"
	"github.com/R3E-Network/attribute-engine/pkg/attrlog"
	"github.com/R3E-Network/attribute-engine/resolver"
	"github.com/R3E-Network/attribute-engine/service"
)

// Snapshot is one fully-initialized, immutable resolver+filter graph
// generation (spec.md 5: "Configuration graphs ... are immutable after
// initialization; concurrent readers need no synchronization").
type Snapshot struct {
	Resolver *resolver.Engine
	Filter   *filter.Engine
}

// Destroy implements service.Destroyable.
func (s *Snapshot) Destroy() {
	if s.Resolver != nil {
		s.Resolver.Destroy()
	}
	if s.Filter != nil {
		s.Filter.Destroy()
	}
}

// Builder constructs a Snapshot's resolver and filter engines from
// configuration and fully initializes both, called once at startup and
// again on every Reload.
type Builder func() (*Snapshot, error)

// Service is the reloadable facade a caller actually talks to: it pins the
// current Snapshot for exactly the duration of one Resolve+Filter request
// (spec.md 4.6).
type Service struct {
	reloadable *service.ReloadableService[*Snapshot]

	propagateResolutionExceptions bool
	logger                        *attrlog.Logger
}

// New constructs a Service around an already-built initial Snapshot.
// failFast governs Reload's behavior on build failure; propagateResolutionExceptions
// governs whether a failed Resolve surfaces its error or returns an empty
// result (spec.md 4.6, 7).
func New(build Builder, initial *Snapshot, failFast, propagateResolutionExceptions bool, logger *attrlog.Logger) *Service {
	if logger == nil {
		logger = attrlog.Default()
	}
	return &Service{
		reloadable: service.New(service.Builder[*Snapshot](build), initial, failFast),
		propagateResolutionExceptions: propagateResolutionExceptions,
		logger:                        logger,
	}
}

// Reload builds a new Snapshot and swaps it in atomically, per spec.md 4.6.
func (s *Service) Reload() error {
	return s.reloadable.Reload()
}

// ResolveAndFilter runs one request's full resolve-then-filter pipeline
// against a single pinned Snapshot, so the request observes a consistent
// graph generation even if a Reload completes mid-flight (spec.md 5:
// "Reload safety").
func (s *Service) ResolveAndFilter(ctx context.Context, issuerID, recipientID, principal string, requestedAttributeNames []string) (map[string]*attribute.Attribute, error) {
	handle := s.reloadable.GetServiceableComponent()
	defer handle.Unpin()
	snap := handle.Get()

	rctx := resolver.NewContext(principal, issuerID, recipientID, requestedAttributeNames)
	if err := snap.Resolver.Resolve(ctx, rctx); err != nil {
		if s.propagateResolutionExceptions {
			return nil, err
		}
		s.logger.WithContext(ctx).WithError(err).Warn("resolution failed, returning empty result")
		return map[string]*attribute.Attribute{}, nil
	}

	fctx := filter.NewContext(issuerID, recipientID, rctx.ResolvedAttributes)
	if err := snap.Filter.Filter(ctx, fctx); err != nil {
		return nil, attrerrors.FilterWrap("attrengine", "filter stage failed", err)
	}
	return fctx.PostfilteredAttributes, nil
}
