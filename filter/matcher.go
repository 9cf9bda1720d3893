package filter

import (
	"regexp"
	"strings"

	"github.com/R3E-Network/attribute-engine/attribute"
	"github.com/R3E-Network/attribute-engine/pkg/attrerrors"
	"github.com/R3E-Network/attribute-engine/pkg/attrscript"
)

// Matcher is implemented by every value-predicate matcher and boolean
// combinator (spec.md 4.7): "getMatchingValues(attr, ctx) -> subset of
// attr.values". A non-nil error represents the matcher returning Fail.
type Matcher interface {
	GetMatchingValues(attr *attribute.Attribute, ctx *Context) ([]attribute.Value, error)
}

// MatchesAll is the constant matcher returning every value unchanged.
type MatchesAll struct{}

func (MatchesAll) GetMatchingValues(attr *attribute.Attribute, _ *Context) ([]attribute.Value, error) {
	if attr == nil {
		return nil, nil
	}
	out := make([]attribute.Value, len(attr.Values))
	copy(out, attr.Values)
	return out, nil
}

// MatchesNone is the constant matcher returning no values.
type MatchesNone struct{}

func (MatchesNone) GetMatchingValues(*attribute.Attribute, *Context) ([]attribute.Value, error) {
	return nil, nil
}

// StringMatcher matches String values against a configured matchString.
// Per spec.md 8's boundary behaviors, the configured match target is
// itself tristate: MatchString == nil matches only EmptyNull values;
// MatchString pointing at "" matches only EmptyZeroLength values; any other
// pointed-at string is compared (optionally case-insensitively) against
// String value payloads.
type StringMatcher struct {
	MatchString *string
	IgnoreCase  bool
}

func (m StringMatcher) GetMatchingValues(attr *attribute.Attribute, _ *Context) ([]attribute.Value, error) {
	if attr == nil {
		return nil, nil
	}
	var out []attribute.Value
	for _, v := range attr.Values {
		if m.matches(v) {
			out = append(out, v)
		}
	}
	return out, nil
}

func (m StringMatcher) matches(v attribute.Value) bool {
	if m.MatchString == nil {
		return v.Kind() == attribute.KindEmptyNull
	}
	if *m.MatchString == "" {
		return v.Kind() == attribute.KindEmptyZeroLength
	}
	if !v.IsString() {
		return false
	}
	if m.IgnoreCase {
		return strings.EqualFold(v.StringValue(), *m.MatchString)
	}
	return v.StringValue() == *m.MatchString
}

// RegexMatcher matches String values via a full-string regex match.
type RegexMatcher struct {
	re *regexp.Regexp
}

// NewRegexMatcher compiles pattern, anchoring it to a full-string match.
func NewRegexMatcher(pattern string) (*RegexMatcher, error) {
	re, err := regexp.Compile("^(?:" + pattern + ")$")
	if err != nil {
		return nil, attrerrors.ComponentInitializationWrap("regex-matcher", "invalid regex pattern", err)
	}
	return &RegexMatcher{re: re}, nil
}

func (m *RegexMatcher) GetMatchingValues(attr *attribute.Attribute, _ *Context) ([]attribute.Value, error) {
	if attr == nil {
		return nil, nil
	}
	var out []attribute.Value
	for _, v := range attr.Values {
		if v.IsString() && m.re.MatchString(v.StringValue()) {
			out = append(out, v)
		}
	}
	return out, nil
}

// ScopeMetadata maps a SAML entity id to the shibmd:Scope values asserted in
// its metadata (spec.md glossary: "shibmd:Scope").
type ScopeMetadata map[string][]string

// Scopes returns the configured scopes for entityID, or nil if unknown.
func (m ScopeMetadata) Scopes(entityID string) []string {
	return m[entityID]
}

// AttributeScopeMatchesShibMDScope matches ScopedString values whose scope
// component is exactly one of the recipient entity's asserted scopes, or a
// subdomain of one (candidate ends with "."+scope), mirroring Shibboleth's
// non-regexp shibmd:Scope comparison.
type AttributeScopeMatchesShibMDScope struct {
	Metadata ScopeMetadata
}

func (m AttributeScopeMatchesShibMDScope) GetMatchingValues(attr *attribute.Attribute, ctx *Context) ([]attribute.Value, error) {
	if attr == nil || ctx == nil {
		return nil, nil
	}
	scopes := m.Metadata.Scopes(ctx.RecipientID)
	if len(scopes) == 0 {
		return nil, nil
	}
	var out []attribute.Value
	for _, v := range attr.Values {
		if v.Kind() != attribute.KindScopedString {
			continue
		}
		for _, scope := range scopes {
			if v.Scope() == scope || strings.HasSuffix(v.Scope(), "."+scope) {
				out = append(out, v)
				break
			}
		}
	}
	return out, nil
}

// AttributeValueMatchesShibMDScope matches plain String values that equal
// one of the recipient entity's asserted scopes exactly.
type AttributeValueMatchesShibMDScope struct {
	Metadata ScopeMetadata
}

func (m AttributeValueMatchesShibMDScope) GetMatchingValues(attr *attribute.Attribute, ctx *Context) ([]attribute.Value, error) {
	if attr == nil || ctx == nil {
		return nil, nil
	}
	scopes := m.Metadata.Scopes(ctx.RecipientID)
	if len(scopes) == 0 {
		return nil, nil
	}
	var out []attribute.Value
	for _, v := range attr.Values {
		if !v.IsString() {
			continue
		}
		for _, scope := range scopes {
			if v.StringValue() == scope {
				out = append(out, v)
				break
			}
		}
	}
	return out, nil
}

// ScriptedMatcher evaluates a script once per value, binding "value" (its
// string payload) and "resolutionContext" (issuer/recipient); the script
// must assign output = { matches: true|false }.
type ScriptedMatcher struct {
	script string
	engine *attrscript.Engine
}

// NewScriptedMatcher constructs a ScriptedMatcher.
func NewScriptedMatcher(script string) *ScriptedMatcher {
	return &ScriptedMatcher{script: script, engine: attrscript.New(0)}
}

func (m *ScriptedMatcher) GetMatchingValues(attr *attribute.Attribute, ctx *Context) ([]attribute.Value, error) {
	if attr == nil {
		return nil, nil
	}
	var out []attribute.Value
	for _, v := range attr.Values {
		bindings := map[string]interface{}{
			"value": v.StringValue(),
			"resolutionContext": map[string]interface{}{
				"issuerId":    ctx.IssuerID,
				"recipientId": ctx.RecipientID,
			},
		}
		result, err := m.engine.Eval(m.script, bindings)
		if err != nil {
			return nil, attrerrors.FilterWrap("scripted-matcher", "script evaluation failed", err)
		}
		if result.Output == nil {
			continue
		}
		if matches, ok := result.Output["matches"].(bool); ok && matches {
			out = append(out, v)
		}
	}
	return out, nil
}
