package filter

import (
	"context"
	"time"

	"github.com/R3E-Network/attribute-engine/attribute"
	"github.com/R3E-Network/attribute-engine/pkg/attrerrors"
	"github.com/R3E-Network/attribute-engine/pkg/attrlog"
	"github.com/R3E-Network/attribute-engine/pkg/attrmetrics"
	"github.com/R3E-Network/attribute-engine/pkg/lifecycle"
)

// FailMode governs what the engine does when a matcher returns Fail while
// computing an attribute's permit or deny set (spec.md 4.7 step 3).
type FailMode int

const (
	// FailDenyAll treats a Fail as deny-all for the failing rule: a failed
	// permit matcher permits nothing, a failed deny matcher denies every
	// value that rule's permit matcher selected, and a failed requirement
	// rule leaves its policy inapplicable — the safe default (spec.md 9).
	FailDenyAll FailMode = iota
	// FailAbort raises a FilterError that aborts the whole Filter call.
	FailAbort
)

// Engine is the filter engine described in spec.md 4.7. It is constructed
// with NewEngine, populated with AddPolicy while in the constructed
// lifecycle state, then Initialize()'d before any Filter call.
type Engine struct {
	*lifecycle.Component

	policies []FilterPolicy
	failMode FailMode

	logger  *attrlog.Logger
	metrics *attrmetrics.Recorder
}

// NewEngine constructs an Engine identified by id.
func NewEngine(id string, failMode FailMode, logger *attrlog.Logger, metrics *attrmetrics.Recorder) *Engine {
	if logger == nil {
		logger = attrlog.Default()
	}
	if metrics == nil {
		metrics = attrmetrics.NoOp()
	}
	return &Engine{
		Component: lifecycle.NewComponent(id),
		failMode:  failMode,
		logger:    logger,
		metrics:   metrics,
	}
}

// AddPolicy registers a FilterPolicy. Permitted only before Initialize.
func (e *Engine) AddPolicy(p FilterPolicy) error {
	if err := e.CheckMutable(); err != nil {
		return err
	}
	e.policies = append(e.policies, p)
	return nil
}

// Initialize validates every policy's well-formedness (spec.md 4.7:
// "every AttributeRule refers to a well-formed attribute id pattern").
// Matchers and rules in this engine are plain Go object graphs assembled at
// construction time rather than indirect references resolved by id.
// Initialize checks only each policy's id, requirement rule and attribute
// rules; it does not walk matcher or rule composition, so a
// self-referencing matcher or rule is not detected here.
func (e *Engine) Initialize() error {
	return e.Component.Initialize(func() error {
		for _, p := range e.policies {
			if err := p.validate(); err != nil {
				return err
			}
		}
		return nil
	})
}

// Destroy implements service.Destroyable.
func (e *Engine) Destroy() {
	e.Component.Destroy(nil)
}

// Filter implements spec.md 4.7's per-request algorithm, populating
// ctx.PostfilteredAttributes.
func (e *Engine) Filter(goCtx context.Context, ctx *Context) error {
	if err := e.CheckInvocable(); err != nil {
		return err
	}
	start := time.Now()

	applicable := make([]FilterPolicy, 0, len(e.policies))
	for _, p := range e.policies {
		switch p.RequirementRule.Evaluate(ctx) {
		case TristateTrue:
			applicable = append(applicable, p)
		case TristateFail:
			if e.failMode == FailAbort {
				return attrerrors.Filter(e.ID(), "policy requirement rule "+p.ID+" failed")
			}
			// safe default: a failed requirement rule simply does not apply.
		}
	}

	out := make(map[string]*attribute.Attribute, len(ctx.PrefilteredAttributes))
	for attrID, attr := range ctx.PrefilteredAttributes {
		var permitUnion, denyUnion []attribute.Value
		for _, p := range applicable {
			for _, rule := range p.AttributeRules {
				if !rule.appliesTo(attrID) {
					continue
				}
				permit, err := rule.permitMatcher().GetMatchingValues(attr, ctx)
				if err != nil {
					if e.failMode == FailAbort {
						return attrerrors.FilterWrap(e.ID(), "permit matcher failed for attribute "+attrID, err)
					}
					permit = nil
				}
				var deny []attribute.Value
				if rule.DenyRule != nil {
					deny, err = rule.DenyRule.GetMatchingValues(attr, ctx)
					if err != nil {
						if e.failMode == FailAbort {
							return attrerrors.FilterWrap(e.ID(), "deny matcher failed for attribute "+attrID, err)
						}
						// FailDenyAll: treat the failed deny matcher as denying
						// everything this rule would otherwise have permitted.
						deny = permit
					}
				}
				permitted := subtract(permit, deny)
				permitUnion = union(permitUnion, permitted)
				denyUnion = union(denyUnion, deny)
			}
		}

		kept := subtract(permitUnion, denyUnion)
		e.logger.LogFilterDecision(goCtx, policyIDs(applicable), attrID, len(kept), len(attr.Values)-len(kept))
		if len(kept) == 0 {
			continue
		}
		out[attrID] = &attribute.Attribute{
			ID:                  attrID,
			Values:              kept,
			DisplayNames:        attr.DisplayNames,
			DisplayDescriptions: attr.DisplayDescriptions,
		}
	}

	ctx.PostfilteredAttributes = out
	e.metrics.ObserveFilterDuration(time.Since(start))
	return nil
}

func subtract(values, remove []attribute.Value) []attribute.Value {
	if len(remove) == 0 {
		return values
	}
	out := make([]attribute.Value, 0, len(values))
	for _, v := range values {
		if !contains(remove, v) {
			out = append(out, v)
		}
	}
	return out
}

func policyIDs(policies []FilterPolicy) string {
	if len(policies) == 0 {
		return ""
	}
	out := policies[0].ID
	for _, p := range policies[1:] {
		out += "," + p.ID
	}
	return out
}
