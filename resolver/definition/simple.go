// Package definition implements the spec.md 4.4 attribute-definition
// variants: pure transforms over already-resolved dependency values.
package definition

import (
	"github.com/R3E-Network/attribute-engine/attribute"
	"github.com/R3E-Network/attribute-engine/resolver"
)

// Simple copies its dependencies' merged values to output unchanged.
type Simple struct {
	*resolver.BaseDefinition
	id string
}

// NewSimple constructs a Simple definition.
func NewSimple(id string) *Simple {
	return &Simple{BaseDefinition: resolver.NewBaseDefinition(id), id: id}
}

// Resolve implements resolver.Definition.
func (d *Simple) Resolve(_ *resolver.Context, deps resolver.ResolvedDependencies) (*attribute.Attribute, error) {
	values := deps.Merged()
	if len(values) == 0 {
		return nil, nil
	}
	return attribute.New(d.id, values...), nil
}
