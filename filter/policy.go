package filter

import "github.com/R3E-Network/attribute-engine/pkg/attrerrors"

// AttributeRule binds a permit/deny matcher pair to either a single
// attribute id or every attribute ("any attribute" wildcard), per spec.md
// 6's component configuration surface.
type AttributeRule struct {
	AttributeID  string
	AnyAttribute bool
	PermitRule   Matcher // nil defaults to MatchesAll (spec.md 4.7)
	DenyRule     Matcher // nil means "nothing denied"
}

func (r AttributeRule) validate(policyID string) error {
	if !r.AnyAttribute && r.AttributeID == "" {
		return attrerrors.ComponentInitialization(policyID, "attribute rule must name an attribute id or set anyAttribute")
	}
	return nil
}

// appliesTo reports whether this rule governs attributeID.
func (r AttributeRule) appliesTo(attributeID string) bool {
	return r.AnyAttribute || r.AttributeID == attributeID
}

// permitMatcher returns the configured permit matcher, defaulting to
// MatchesAll when none is set (spec.md 4.7 step 1).
func (r AttributeRule) permitMatcher() Matcher {
	if r.PermitRule == nil {
		return MatchesAll{}
	}
	return r.PermitRule
}

// FilterPolicy gates a set of AttributeRules behind a requirement rule
// (spec.md 4.7): the rules only apply to a request when RequirementRule
// evaluates TRUE.
type FilterPolicy struct {
	ID              string
	RequirementRule Rule
	AttributeRules  []AttributeRule
}

func (p FilterPolicy) validate() error {
	if p.ID == "" {
		return attrerrors.ComponentInitialization("filter-policy", "policy id must not be empty")
	}
	if p.RequirementRule == nil {
		return attrerrors.ComponentInitialization(p.ID, "policy requires a requirementRule")
	}
	for _, rule := range p.AttributeRules {
		if err := rule.validate(p.ID); err != nil {
			return err
		}
	}
	return nil
}
