package definition

import (
	"github.com/R3E-Network/attribute-engine/attribute"
	"github.com/R3E-Network/attribute-engine/pkg/attrerrors"
	"github.com/R3E-Network/attribute-engine/resolver"
)

// Scoped emits ScopedString(v, scope) for each string input value
// (spec.md 4.4). Non-string input is a ResolutionError.
type Scoped struct {
	*resolver.BaseDefinition
	id    string
	scope string
}

// NewScoped constructs a Scoped definition with a constant scope.
func NewScoped(id, scope string) *Scoped {
	return &Scoped{BaseDefinition: resolver.NewBaseDefinition(id), id: id, scope: scope}
}

// Resolve implements resolver.Definition.
func (d *Scoped) Resolve(_ *resolver.Context, deps resolver.ResolvedDependencies) (*attribute.Attribute, error) {
	input := deps.Merged()
	if len(input) == 0 {
		return nil, nil
	}

	values := make([]attribute.Value, 0, len(input))
	for _, v := range input {
		// Empty sentinels carry no string payload to scope; pass them through
		// unchanged so null-stripping (attribute.FinalizeValues) still
		// applies at finalization rather than surfacing a spurious error.
		if v.IsEmpty() {
			values = append(values, v)
			continue
		}
		if !v.IsString() {
			return nil, attrerrors.Resolution(d.id, "scoped definition requires string input values")
		}
		values = append(values, attribute.ScopedString(v.StringValue(), d.scope))
	}
	return attribute.New(d.id, values...), nil
}
