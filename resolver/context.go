package resolver

import (
	"time"

	"github.com/R3E-Network/attribute-engine/attribute"
)

// Principal is an opaque subject principal attached to a SubjectContext; the
// Subject data connector (resolver/connector/subject) extracts attributes
// from whichever principals are present. Concrete principal kinds (JWT
// claims, a static map, ...) implement this.
type Principal interface {
	// Attributes returns the named attribute values this principal
	// contributes.
	Attributes() map[string][]attribute.Value
}

// SubjectContext carries the principal(s) attached to the current subject,
// consumed by the Subject data connector (spec.md 4.3).
type SubjectContext struct {
	Principals []Principal
}

// Timer is the minimal interface a ProfileRequestContext's metric
// subcontext must satisfy (spec.md 4.5 step 8: "if a parent
// ProfileRequestContext carries a metric/timer subcontext, start a timer at
// step 1 and stop at step 7").
type Timer interface {
	Start(name string)
	Stop(name string)
}

// ProfileRequestContext is the opaque parent context a ResolutionContext may
// be nested under, carrying an optional Timer.
type ProfileRequestContext struct {
	Timer Timer
}

// WorkContext is resolver-internal scratch state: recorded
// attribute-definition/data-connector results, and failover bookkeeping. It
// is attached at resolver entry and detached at exit (spec.md 3).
type WorkContext struct {
	// resolvedPlugins maps an attribute-definition plugin id to its produced
	// attribute. A nil *attribute.Attribute records "resolved to nothing" so
	// repeat visits short-circuit instead of re-resolving (spec.md 4.5 step
	// 4: "if already recorded ... return").
	resolvedPlugins map[string]*attribute.Attribute
	resolvedSet     map[string]bool // tracks presence even for nil results

	// connectorResults maps a data-connector plugin id to its produced
	// attribute map (nil entry = "no results"), and connectorDone tracks
	// which connectors have already been invoked this request so the
	// failover/cool-down protocol and dependency resolution never invoke a
	// connector twice.
	connectorResults map[string]map[string]*attribute.Attribute
	connectorDone    map[string]bool

	FailoverRecords []FailoverRecord
}

// NewWorkContext constructs an empty WorkContext.
func NewWorkContext() *WorkContext {
	return &WorkContext{
		resolvedPlugins:  make(map[string]*attribute.Attribute),
		resolvedSet:      make(map[string]bool),
		connectorResults: make(map[string]map[string]*attribute.Attribute),
		connectorDone:    make(map[string]bool),
	}
}

// IsConnectorResolved reports whether connectorID has already been invoked
// this request.
func (w *WorkContext) IsConnectorResolved(connectorID string) bool {
	return w.connectorDone[connectorID]
}

// RecordConnector stores the result of invoking connectorID, which may be
// nil (no-results).
func (w *WorkContext) RecordConnector(connectorID string, result map[string]*attribute.Attribute) {
	w.connectorResults[connectorID] = result
	w.connectorDone[connectorID] = true
}

// ConnectorResult returns the recorded result for connectorID, if any.
func (w *WorkContext) ConnectorResult(connectorID string) map[string]*attribute.Attribute {
	return w.connectorResults[connectorID]
}

// AllConnectorResults returns every (connectorID, result) pair recorded.
func (w *WorkContext) AllConnectorResults() map[string]map[string]*attribute.Attribute {
	out := make(map[string]map[string]*attribute.Attribute, len(w.connectorResults))
	for k, v := range w.connectorResults {
		out[k] = v
	}
	return out
}

// IsResolved reports whether pluginID has already been recorded (possibly as
// nil).
func (w *WorkContext) IsResolved(pluginID string) bool {
	return w.resolvedSet[pluginID]
}

// Get returns the recorded result for pluginID and whether it was resolved
// at all.
func (w *WorkContext) Get(pluginID string) (*attribute.Attribute, bool) {
	attr, ok := w.resolvedSet[pluginID]
	if !ok {
		return nil, false
	}
	return w.resolvedPlugins[pluginID], attr
}

// Record stores the result of resolving pluginID, which may be nil.
func (w *WorkContext) Record(pluginID string, attr *attribute.Attribute) {
	w.resolvedPlugins[pluginID] = attr
	w.resolvedSet[pluginID] = true
}

// AllResolved returns every (pluginID, attribute) pair recorded, including
// nils.
func (w *WorkContext) AllResolved() map[string]*attribute.Attribute {
	out := make(map[string]*attribute.Attribute, len(w.resolvedPlugins))
	for k, v := range w.resolvedPlugins {
		out[k] = v
	}
	return out
}

// RecordFailover appends a FailoverRecord.
func (w *WorkContext) RecordFailover(from, to string) {
	w.FailoverRecords = append(w.FailoverRecords, FailoverRecord{FromConnectorID: from, ToConnectorID: to})
}

// Context is the per-request resolution environment (spec.md 3:
// "ResolutionContext"). It is created per request, uniquely owned by the
// requesting goroutine, and never shared across requests.
type Context struct {
	Principal    string
	IssuerID     string
	RecipientID  string

	// RequestedAttributeNames: empty means "resolve all known attribute
	// definitions" (spec.md 4.5 step 3).
	RequestedAttributeNames map[string]struct{}

	Subject *SubjectContext
	Parent  *ProfileRequestContext

	// Work is attached at resolver entry, detached at exit; nil outside of
	// an in-flight resolve call.
	Work *WorkContext

	// ResolvedAttributes is populated by resolveAttributes (spec.md 6:
	// "Resolver.resolve(ResolutionContext) -> void").
	ResolvedAttributes map[string]*attribute.Attribute

	RequestedAt time.Time
}

// NewContext constructs a Context for the given principal/issuer/recipient.
// requestedAttributeNames may be nil or empty to mean "resolve all".
func NewContext(principal, issuerID, recipientID string, requestedAttributeNames []string) *Context {
	names := make(map[string]struct{}, len(requestedAttributeNames))
	for _, n := range requestedAttributeNames {
		names[n] = struct{}{}
	}
	return &Context{
		Principal:               principal,
		IssuerID:                issuerID,
		RecipientID:             recipientID,
		RequestedAttributeNames: names,
		ResolvedAttributes:      make(map[string]*attribute.Attribute),
		RequestedAt:             time.Now(),
	}
}

// HasRequestedNames reports whether the caller asked for a specific subset
// of attribute ids (as opposed to "resolve all").
func (c *Context) HasRequestedNames() bool {
	return len(c.RequestedAttributeNames) > 0
}

// Requested reports whether id was explicitly requested (only meaningful
// when HasRequestedNames is true).
func (c *Context) Requested(id string) bool {
	_, ok := c.RequestedAttributeNames[id]
	return ok
}

// attachWork attaches a fresh WorkContext, per spec.md 4.5 step 1.
func (c *Context) attachWork() *WorkContext {
	c.Work = NewWorkContext()
	return c.Work
}

// detachWork detaches the WorkContext, per spec.md 4.5 step 7 ("always,
// including on exception").
func (c *Context) detachWork() {
	c.Work = nil
}
