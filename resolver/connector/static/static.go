// Package static implements the spec.md 4.3 "Static" data connector: a
// pre-configured map of attributes returned unchanged on every call. It
// never fails.
package static

import (
	"context"

	"github.com/R3E-Network/attribute-engine/attribute"
	"github.com/R3E-Network/attribute-engine/resolver"
)

// Connector returns a fixed set of attributes configured at construction
// time.
type Connector struct {
	*resolver.BaseConnector

	attributes map[string]*attribute.Attribute
}

// New constructs a static Connector from a set of pre-built attributes.
func New(id string, attributes ...*attribute.Attribute) *Connector {
	byID := make(map[string]*attribute.Attribute, len(attributes))
	for _, a := range attributes {
		byID[a.ID] = a
	}
	return &Connector{
		BaseConnector: resolver.NewBaseConnector(id),
		attributes:    byID,
	}
}

// Resolve returns a copy of the configured attribute map; static connectors
// have no dependencies and cannot fail.
func (c *Connector) Resolve(_ context.Context, _ *resolver.Context) (map[string]*attribute.Attribute, error) {
	out := make(map[string]*attribute.Attribute, len(c.attributes))
	for id, a := range c.attributes {
		out[id] = a.Clone()
	}
	return out, nil
}
