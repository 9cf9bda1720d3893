package definition

import (
	"regexp"

	"github.com/R3E-Network/attribute-engine/attribute"
	"github.com/R3E-Network/attribute-engine/pkg/attrerrors"
	"github.com/R3E-Network/attribute-engine/resolver"
)

// RegexSplit applies a configured regex to each string input value; on a
// full match it emits String(group[1]), and silently drops non-matches
// (spec.md 4.4).
type RegexSplit struct {
	*resolver.BaseDefinition
	id string
	re *regexp.Regexp
}

// NewRegexSplit compiles pattern (optionally case-insensitive) and
// constructs a RegexSplit definition.
func NewRegexSplit(id, pattern string, caseInsensitive bool) (*RegexSplit, error) {
	if caseInsensitive {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, attrerrors.ComponentInitializationWrap(id, "invalid regex pattern", err)
	}
	return &RegexSplit{BaseDefinition: resolver.NewBaseDefinition(id), id: id, re: re}, nil
}

// Resolve implements resolver.Definition.
func (d *RegexSplit) Resolve(_ *resolver.Context, deps resolver.ResolvedDependencies) (*attribute.Attribute, error) {
	input := deps.Merged()
	if len(input) == 0 {
		return nil, nil
	}

	var values []attribute.Value
	for _, v := range input {
		if !v.IsString() {
			continue
		}
		match := d.re.FindStringSubmatch(v.StringValue())
		if match == nil || len(match) < 2 {
			continue
		}
		if match[0] != v.StringValue() {
			continue // require a full match, per spec.md 4.4
		}
		values = append(values, attribute.String(match[1]))
	}
	if len(values) == 0 {
		return nil, nil
	}
	return attribute.New(d.id, values...), nil
}
