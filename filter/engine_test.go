package filter

import (
	"context"
	"testing"

	"github.com/R3E-Network/attribute-engine/attribute"
	"github.com/R3E-Network/attribute-engine/pkg/attrerrors"
)

func TestFilterDenyOverridesPermit(t *testing.T) {
	e := NewEngine("test", FailDenyAll, nil, nil)
	if err := e.AddPolicy(FilterPolicy{
		ID:              "release",
		RequirementRule: MatchesAllRule,
		AttributeRules: []AttributeRule{
			{AttributeID: "dept", PermitRule: MatchesAll{}, DenyRule: StringMatcher{MatchString: strPtr("secret")}},
		},
	}); err != nil {
		t.Fatal(err)
	}
	if err := e.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	ctx := NewContext("issuer", "recipient", map[string]*attribute.Attribute{
		"dept": attrWithValues("dept", "engineering", "secret"),
	})
	if err := e.Filter(context.Background(), ctx); err != nil {
		t.Fatalf("filter: %v", err)
	}
	out, ok := ctx.PostfilteredAttributes["dept"]
	if !ok {
		t.Fatal("expected dept attribute to survive")
	}
	if len(out.Values) != 1 || !out.Values[0].Equal(attribute.String("engineering")) {
		t.Errorf("deny should have removed secret, got %v", out.Values)
	}
}

func TestFilterDropsAttributeWithNoApplicablePermit(t *testing.T) {
	e := NewEngine("test", FailDenyAll, nil, nil)
	if err := e.AddPolicy(FilterPolicy{
		ID:              "release",
		RequirementRule: MatchesAllRule,
		AttributeRules: []AttributeRule{
			{AttributeID: "other", PermitRule: MatchesAll{}},
		},
	}); err != nil {
		t.Fatal(err)
	}
	if err := e.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	ctx := NewContext("issuer", "recipient", map[string]*attribute.Attribute{
		"dept": attrWithValues("dept", "engineering"),
	})
	if err := e.Filter(context.Background(), ctx); err != nil {
		t.Fatalf("filter: %v", err)
	}
	if _, ok := ctx.PostfilteredAttributes["dept"]; ok {
		t.Error("attribute with no applicable permit should be dropped (default-deny)")
	}
}

func TestFilterSkipsPoliciesWhoseRequirementRuleIsFalse(t *testing.T) {
	e := NewEngine("test", FailDenyAll, nil, nil)
	if err := e.AddPolicy(FilterPolicy{
		ID:              "inapplicable",
		RequirementRule: MatchesNoneRule,
		AttributeRules: []AttributeRule{
			{AnyAttribute: true, PermitRule: MatchesAll{}},
		},
	}); err != nil {
		t.Fatal(err)
	}
	if err := e.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	ctx := NewContext("issuer", "recipient", map[string]*attribute.Attribute{
		"dept": attrWithValues("dept", "engineering"),
	})
	if err := e.Filter(context.Background(), ctx); err != nil {
		t.Fatalf("filter: %v", err)
	}
	if len(ctx.PostfilteredAttributes) != 0 {
		t.Errorf("inapplicable policy should not release anything, got %v", ctx.PostfilteredAttributes)
	}
}

func TestFilterFailDenyAllTreatsRequirementFailAsInapplicable(t *testing.T) {
	e := NewEngine("test", FailDenyAll, nil, nil)
	if err := e.AddPolicy(FilterPolicy{
		ID:              "failing",
		RequirementRule: AlwaysFailRule,
		AttributeRules: []AttributeRule{
			{AnyAttribute: true, PermitRule: MatchesAll{}},
		},
	}); err != nil {
		t.Fatal(err)
	}
	if err := e.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	ctx := NewContext("issuer", "recipient", map[string]*attribute.Attribute{
		"dept": attrWithValues("dept", "engineering"),
	})
	if err := e.Filter(context.Background(), ctx); err != nil {
		t.Fatalf("filter should not error under FailDenyAll: %v", err)
	}
	if len(ctx.PostfilteredAttributes) != 0 {
		t.Errorf("got %v", ctx.PostfilteredAttributes)
	}
}

func TestFilterFailAbortPropagatesRequirementFailure(t *testing.T) {
	e := NewEngine("test", FailAbort, nil, nil)
	if err := e.AddPolicy(FilterPolicy{
		ID:              "failing",
		RequirementRule: AlwaysFailRule,
		AttributeRules: []AttributeRule{
			{AnyAttribute: true, PermitRule: MatchesAll{}},
		},
	}); err != nil {
		t.Fatal(err)
	}
	if err := e.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	ctx := NewContext("issuer", "recipient", map[string]*attribute.Attribute{
		"dept": attrWithValues("dept", "engineering"),
	})
	err := e.Filter(context.Background(), ctx)
	if !attrerrors.IsKind(err, attrerrors.KindFilter) {
		t.Errorf("expected filter error under FailAbort, got %v", err)
	}
}

func TestEngineInitializeRejectsMalformedPolicy(t *testing.T) {
	e := NewEngine("test", FailDenyAll, nil, nil)
	if err := e.AddPolicy(FilterPolicy{ID: "bad", RequirementRule: MatchesAllRule, AttributeRules: []AttributeRule{{}}}); err != nil {
		t.Fatal(err)
	}
	if err := e.Initialize(); err == nil {
		t.Fatal("expected validation error for attribute rule with no id and no anyAttribute")
	}
}

func TestFilterBeforeInitializeIsRejected(t *testing.T) {
	e := NewEngine("test", FailDenyAll, nil, nil)
	ctx := NewContext("issuer", "recipient", map[string]*attribute.Attribute{})
	err := e.Filter(context.Background(), ctx)
	if !attrerrors.IsKind(err, attrerrors.KindUninitialized) {
		t.Errorf("got %v", err)
	}
}
