package definition

import (
	"github.com/R3E-Network/attribute-engine/attribute"
	"github.com/R3E-Network/attribute-engine/pkg/attrerrors"
	"github.com/R3E-Network/attribute-engine/resolver"
)

// ValueMapping maps an input string to an output string, reporting whether
// it matched at all.
type ValueMapping func(input string) (string, bool)

// Mapped presents each input value to an ordered list of ValueMappings; the
// first match wins. Unmatched values are dropped, passed through unchanged,
// or replaced by a configured default, per spec.md 4.4.
type Mapped struct {
	*resolver.BaseDefinition
	id           string
	mappings     []ValueMapping
	passThrough  bool
	defaultValue *string
}

// NewMapped constructs a Mapped definition. It is a ComponentInitialization
// error to combine passThrough with a non-nil defaultValue (spec.md 4.4,
// 8).
func NewMapped(id string, mappings []ValueMapping, passThrough bool, defaultValue *string) (*Mapped, error) {
	if passThrough && defaultValue != nil {
		return nil, attrerrors.ComponentInitialization(id, "mapped definition cannot combine passThru with a default value")
	}
	return &Mapped{
		BaseDefinition: resolver.NewBaseDefinition(id),
		id:             id,
		mappings:       mappings,
		passThrough:    passThrough,
		defaultValue:   defaultValue,
	}, nil
}

// Resolve implements resolver.Definition.
func (d *Mapped) Resolve(_ *resolver.Context, deps resolver.ResolvedDependencies) (*attribute.Attribute, error) {
	input := deps.Merged()
	if len(input) == 0 {
		return nil, nil
	}

	var values []attribute.Value
	for _, v := range input {
		if !v.IsString() {
			continue
		}
		mapped, matched := d.mapOne(v.StringValue())
		switch {
		case matched:
			values = append(values, attribute.String(mapped))
		case d.passThrough:
			values = append(values, v)
		case d.defaultValue != nil:
			values = append(values, attribute.String(*d.defaultValue))
		default:
			// dropped
		}
	}
	if len(values) == 0 {
		return nil, nil
	}
	return attribute.New(d.id, values...), nil
}

func (d *Mapped) mapOne(input string) (string, bool) {
	for _, m := range d.mappings {
		if out, ok := m(input); ok {
			return out, true
		}
	}
	return "", false
}

// ExactMapping returns a ValueMapping matching input exactly.
func ExactMapping(from, to string) ValueMapping {
	return func(input string) (string, bool) {
		if input == from {
			return to, true
		}
		return "", false
	}
}
