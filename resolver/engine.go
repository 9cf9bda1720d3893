// Package resolver implements the dependency-graph evaluator over attribute
// definitions and data connectors described in spec.md 4.5: initialization
// performs cycle/unknown-dependency analysis; per-request resolution walks
// the graph lazily, demand-driven, applying connector failover/cool-down and
// the finalization pipeline.
package resolver

import (
	"context"
	"time"

	"github.com/R3E-Network/attribute-engine/attribute"
	"github.com/R3E-Network/attribute-engine/pkg/attrerrors"
	"github.com/R3E-Network/attribute-engine/pkg/attrlog"
	"github.com/R3E-Network/attribute-engine/pkg/attrmetrics"
	"github.com/R3E-Network/attribute-engine/pkg/lifecycle"
)

// Engine is the resolver described in spec.md 4.5. It is constructed with
// NewEngine, populated with AddDefinition/AddConnector while in the
// constructed lifecycle state, then Initialize()'d before any Resolve call.
type Engine struct {
	*lifecycle.Component

	definitions map[string]Definition
	connectors  map[string]Connector

	stripNulls bool

	logger  *attrlog.Logger
	metrics *attrmetrics.Recorder
}

// NewEngine constructs an Engine identified by id, in the constructed
// lifecycle state. stripNulls controls the spec.md 4.5 step-5 null-stripping
// behavior applied at finalization.
func NewEngine(id string, stripNulls bool, logger *attrlog.Logger, metrics *attrmetrics.Recorder) *Engine {
	if logger == nil {
		logger = attrlog.Default()
	}
	if metrics == nil {
		metrics = attrmetrics.NoOp()
	}
	return &Engine{
		Component:   lifecycle.NewComponent(id),
		definitions: make(map[string]Definition),
		connectors:  make(map[string]Connector),
		stripNulls:  stripNulls,
		logger:      logger,
		metrics:     metrics,
	}
}

// AddDefinition registers an attribute definition. Permitted only before
// Initialize.
func (e *Engine) AddDefinition(d Definition) error {
	if err := e.CheckMutable(); err != nil {
		return err
	}
	if d == nil {
		return attrerrors.NilArgument(e.ID(), "definition")
	}
	e.definitions[d.ID()] = d
	return nil
}

// AddConnector registers a data connector. Permitted only before
// Initialize.
func (e *Engine) AddConnector(c Connector) error {
	if err := e.CheckMutable(); err != nil {
		return err
	}
	if c == nil {
		return attrerrors.NilArgument(e.ID(), "connector")
	}
	e.connectors[c.ID()] = c
	return nil
}

// Initialize indexes all plugins, detects duplicate ids, unknown
// dependencies and cyclic dependencies (spec.md 4.5 "Initialization"), then
// initializes every plugin's own lifecycle.
func (e *Engine) Initialize() error {
	return e.Component.Initialize(func() error {
		combined := make(map[string]bool, len(e.definitions)+len(e.connectors))
		for id := range e.definitions {
			if combined[id] {
				return attrerrors.DuplicateID(e.ID(), id)
			}
			combined[id] = true
		}
		for id := range e.connectors {
			if combined[id] {
				return attrerrors.DuplicateID(e.ID(), id)
			}
			combined[id] = true
		}

		visited := make(map[string]bool)
		for id := range combined {
			if err := e.checkCycle(id, id, combined, visited, map[string]bool{}, nil); err != nil {
				return err
			}
		}

		for _, d := range e.definitions {
			if err := initIfLifecycled(d); err != nil {
				return err
			}
		}
		for _, c := range e.connectors {
			if err := initIfLifecycled(c); err != nil {
				return err
			}
		}
		return nil
	})
}

// initializer is implemented by definitions/connectors that embed
// *lifecycle.Component (via BaseDefinition/BaseConnector), mirroring
// spec.md 4.1's per-node lifecycle.
type initializer interface {
	Initialize(doInit func() error) error
}

func initIfLifecycled(v interface{}) error {
	if init, ok := v.(initializer); ok {
		return init.Initialize(nil)
	}
	return nil
}

// destroyer is implemented by definitions/connectors that embed
// *lifecycle.Component, mirroring spec.md 4.1's per-node lifecycle.
type destroyer interface {
	Destroy(doDestroy func())
}

func destroyIfLifecycled(v interface{}) {
	if d, ok := v.(destroyer); ok {
		d.Destroy(nil)
	}
}

// Destroy implements service.Destroyable: it destroys every plugin, then
// the engine's own lifecycle component (spec.md 4.6: a replaced
// ReloadableService component is destroyed once its pin count reaches
// zero).
func (e *Engine) Destroy() {
	e.Component.Destroy(func() {
		for _, d := range e.definitions {
			destroyIfLifecycled(d)
		}
		for _, c := range e.connectors {
			destroyIfLifecycled(c)
		}
	})
}

// checkCycle performs a DFS from id along its dependency edges, using path
// (and the parallel stack, which records the same membership in DFS order)
// to detect a return to any id already on the current walk (spec.md 4.5:
// "if the walk re-encounters an id already on the path, raise
// CyclicDependencyError naming every id on the cycle") and visited to
// memoize fully explored subtrees so repeat work is avoided across origins.
func (e *Engine) checkCycle(origin, id string, combined map[string]bool, visited, path map[string]bool, stack []string) error {
	if path[id] {
		return attrerrors.Cyclic(e.ID(), cycleMembers(stack, id)...)
	}
	if visited[id] {
		return nil
	}
	path[id] = true
	stack = append(stack, id)
	defer delete(path, id)

	deps := e.dependenciesOf(id)
	for _, depID := range deps {
		if !combined[depID] {
			return attrerrors.UnknownDependency(id, depID)
		}
		if err := e.checkCycle(origin, depID, combined, visited, path, stack); err != nil {
			return err
		}
	}
	visited[id] = true
	return nil
}

// cycleMembers returns the distinct ids forming the cycle closed by
// re-encountering closingID: the portion of stack from closingID's first
// occurrence onward, plus closingID itself to make the loop explicit.
func cycleMembers(stack []string, closingID string) []string {
	for i, id := range stack {
		if id == closingID {
			members := append([]string{}, stack[i:]...)
			return append(members, closingID)
		}
	}
	return append(append([]string{}, stack...), closingID)
}

func (e *Engine) dependenciesOf(id string) []string {
	if d, ok := e.definitions[id]; ok {
		return d.Dependencies().PluginIDs()
	}
	if c, ok := e.connectors[id]; ok {
		return c.Dependencies().PluginIDs()
	}
	return nil
}

// Resolve runs the spec.md 4.5 per-request algorithm, populating
// ctx.ResolvedAttributes.
func (e *Engine) Resolve(stdctx context.Context, rctx *Context) (err error) {
	if checkErr := e.CheckInvocable(); checkErr != nil {
		return checkErr
	}
	if rctx == nil {
		return attrerrors.NilArgument(e.ID(), "ResolutionContext")
	}

	start := time.Now()
	if rctx.Parent != nil && rctx.Parent.Timer != nil {
		rctx.Parent.Timer.Start("resolve")
	}

	rctx.attachWork()
	defer func() {
		rctx.detachWork()
		if rctx.Parent != nil && rctx.Parent.Timer != nil {
			rctx.Parent.Timer.Stop("resolve")
		}
		e.metrics.ObserveResolveDuration(time.Since(start))
		e.logger.LogResolve(stdctx, "*", time.Since(start), err)
	}()

	// Step 2: resolve every exporting connector first so their exports are
	// available regardless of whether a definition depends on them.
	for id, c := range e.connectors {
		if ids, all := c.ExportedAttributeIDs(); all || len(ids) > 0 {
			if resolveErr := e.resolveConnector(stdctx, rctx, id); resolveErr != nil {
				return resolveErr
			}
		}
	}

	// Step 3: determine ids to resolve.
	var ids []string
	if rctx.HasRequestedNames() {
		for id := range rctx.RequestedAttributeNames {
			ids = append(ids, id)
		}
	} else {
		for id := range e.definitions {
			ids = append(ids, id)
		}
	}

	// Step 4.
	for _, id := range ids {
		if resolveErr := e.resolveDefinition(stdctx, rctx, id); resolveErr != nil {
			return resolveErr
		}
	}

	// Step 5: finalize attribute-definition results.
	for id, attr := range rctx.Work.AllResolved() {
		d, isDefinition := e.definitions[id]
		if !isDefinition {
			continue
		}
		if attr == nil || d.DependencyOnly() {
			continue
		}
		values := attribute.FinalizeValues(attr.Values, e.stripNulls)
		if len(values) == 0 {
			continue
		}
		rctx.ResolvedAttributes[attr.ID] = &attribute.Attribute{
			ID:                  attr.ID,
			Values:              values,
			DisplayNames:        attr.DisplayNames,
			DisplayDescriptions: attr.DisplayDescriptions,
		}
	}

	// Step 6: export connector-sourced attributes.
	for id, c := range e.connectors {
		exportIDs, exportAll := c.ExportedAttributeIDs()
		if !exportAll && len(exportIDs) == 0 {
			continue
		}
		result := rctx.Work.ConnectorResult(id)
		if result == nil {
			continue
		}
		for attrID, attr := range result {
			if !exportAll {
				if !containsString(exportIDs, attrID) {
					continue
				}
			}
			if _, exists := rctx.ResolvedAttributes[attrID]; exists {
				e.logger.WithContext(stdctx).WithField("attribute_id", attrID).
					WithField("connector_id", id).
					Debug("connector export skipped: attribute already released by a definition")
				continue
			}
			values := attribute.FinalizeValues(attr.Values, e.stripNulls)
			if len(values) == 0 {
				continue
			}
			rctx.ResolvedAttributes[attrID] = &attribute.Attribute{
				ID:                  attrID,
				Values:              values,
				DisplayNames:        attr.DisplayNames,
				DisplayDescriptions: attr.DisplayDescriptions,
			}
		}
	}

	return nil
}

// resolveConnector implements the spec.md 4.3 failover/cool-down protocol:
// if the connector is within its cool-down window, its configured failover
// runs instead (recording a FailoverRecord); a connector call that raises a
// resolution error likewise engages failover; a connector with no
// configured failover returns a ResolutionError that wraps the connector's
// error, or that names the cool-down window when the call was skipped.
func (e *Engine) resolveConnector(stdctx context.Context, rctx *Context, id string) error {
	if rctx.Work.IsConnectorResolved(id) {
		return nil
	}
	c, ok := e.connectors[id]
	if !ok {
		rctx.Work.RecordConnector(id, nil)
		return nil
	}

	deps := c.Dependencies()
	for _, ad := range deps.AttributeDependencies {
		if err := e.resolveDefinition(stdctx, rctx, ad.PluginID); err != nil {
			return err
		}
	}
	for _, cd := range deps.DataConnectorDependencies {
		if err := e.resolveConnector(stdctx, rctx, cd.PluginID); err != nil {
			return err
		}
	}

	now := time.Now()
	if lastFail, failed := c.LastFailure(); failed && now.Before(lastFail.Add(c.NoRetryDelay())) {
		e.logger.LogCoolDown(stdctx, id, lastFail.Add(c.NoRetryDelay()).Sub(now))
		return e.engageFailover(stdctx, rctx, id, nil)
	}

	start := time.Now()
	result, err := c.Resolve(stdctx, rctx)
	e.logger.LogConnectorCall(stdctx, id, time.Since(start), err)

	if err != nil {
		c.RecordFailure(now)
		e.metrics.IncConnectorFailure(id)
		return e.engageFailover(stdctx, rctx, id, err)
	}

	c.RecordSuccess(now)
	if result == nil {
		if resultErr := checkNoResult(c); resultErr != nil {
			return attrerrors.ResolutionWrap(id, "connector produced no results", resultErr)
		}
	}
	rctx.Work.RecordConnector(id, result)
	return nil
}

// noResultChecker is implemented by BaseConnector to surface the
// noResultIsError configuration flag without widening the public Connector
// interface.
type noResultChecker interface {
	CheckNoResult() error
}

func checkNoResult(c Connector) error {
	if nrc, ok := c.(noResultChecker); ok {
		return nrc.CheckNoResult()
	}
	return nil
}

// engageFailover runs id's configured failover connector, recording a
// FailoverRecord. If no failover is configured, the original error (nil for
// a cool-down skip, meaning "no error to report, just propagate as
// resolution failure") is surfaced as a *attrerrors.ComponentError.
func (e *Engine) engageFailover(stdctx context.Context, rctx *Context, id string, cause error) error {
	c := e.connectors[id]
	failoverID := c.FailoverConnectorID()
	if failoverID == "" {
		if cause != nil {
			return attrerrors.ResolutionWrap(id, "connector failed and no failover is configured", cause)
		}
		return attrerrors.Resolution(id, "connector is within its cool-down window and no failover is configured")
	}

	rctx.Work.RecordFailover(id, failoverID)
	e.logger.LogFailover(stdctx, id, failoverID)
	e.metrics.IncConnectorFailover(id, failoverID)

	if err := e.resolveConnector(stdctx, rctx, failoverID); err != nil {
		return err
	}
	// Alias id's result to the failover connector's result so downstream
	// dependents that reference id directly still see B's output, per
	// spec.md 8 ("Failover ordering"): "the resolved attributes are exactly
	// B's output, not A's."
	rctx.Work.RecordConnector(id, rctx.Work.ConnectorResult(failoverID))
	return nil
}

func (e *Engine) resolveDefinition(stdctx context.Context, rctx *Context, id string) error {
	if rctx.Work.IsResolved(id) {
		return nil
	}
	d, ok := e.definitions[id]
	if !ok {
		// Requested ids may legitimately be absent (spec.md 4.5 step 4).
		e.logger.WithContext(stdctx).WithField("attribute_id", id).Debug("requested attribute id is unknown, skipping")
		return nil
	}

	deps := d.Dependencies()
	ordered := make([]*attribute.Attribute, 0, len(deps.AttributeDependencies)+len(deps.DataConnectorDependencies))
	byID := make(map[string]*attribute.Attribute)

	for _, ad := range deps.AttributeDependencies {
		if err := e.resolveDefinition(stdctx, rctx, ad.PluginID); err != nil {
			return err
		}
		attr, _ := rctx.Work.Get(ad.PluginID)
		resolved := attr
		if resolved != nil && ad.SourceAttributeID != "" && ad.SourceAttributeID != resolved.ID {
			resolved = nil
		}
		ordered = append(ordered, resolved)
		byID[ad.PluginID] = resolved
	}

	for _, cd := range deps.DataConnectorDependencies {
		if err := e.resolveConnector(stdctx, rctx, cd.PluginID); err != nil {
			return err
		}
		result := rctx.Work.ConnectorResult(cd.PluginID)
		for _, attrID := range cd.ExportedAttributeIDs {
			var attr *attribute.Attribute
			if result != nil {
				attr = result[attrID]
			}
			ordered = append(ordered, attr)
			byID[cd.PluginID+"#"+attrID] = attr
		}
	}

	start := time.Now()
	produced, err := d.Resolve(rctx, NewResolvedDependencies(ordered, byID))
	e.logger.LogResolve(stdctx, id, time.Since(start), err)
	if err != nil {
		return attrerrors.ResolutionWrap(id, "attribute definition resolution failed", err)
	}
	rctx.Work.Record(id, produced)
	return nil
}

func containsString(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
