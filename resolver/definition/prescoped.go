package definition

import (
	"strings"

	"github.com/R3E-Network/attribute-engine/attribute"
	"github.com/R3E-Network/attribute-engine/pkg/attrerrors"
	"github.com/R3E-Network/attribute-engine/resolver"
)

// Prescoped splits each string input value on a configured delimiter,
// emitting ScopedString(parts[0], parts[1]) (spec.md 4.4). Fewer than two
// parts is a ResolutionError.
type Prescoped struct {
	*resolver.BaseDefinition
	id        string
	delimiter string
}

// NewPrescoped constructs a Prescoped definition.
func NewPrescoped(id, delimiter string) *Prescoped {
	return &Prescoped{BaseDefinition: resolver.NewBaseDefinition(id), id: id, delimiter: delimiter}
}

// Resolve implements resolver.Definition.
func (d *Prescoped) Resolve(_ *resolver.Context, deps resolver.ResolvedDependencies) (*attribute.Attribute, error) {
	input := deps.Merged()
	if len(input) == 0 {
		return nil, nil
	}

	values := make([]attribute.Value, 0, len(input))
	for _, v := range input {
		if v.IsEmpty() {
			values = append(values, v)
			continue
		}
		if !v.IsString() {
			return nil, attrerrors.Resolution(d.id, "prescoped definition requires string input values")
		}
		parts := strings.SplitN(v.StringValue(), d.delimiter, 2)
		if len(parts) < 2 {
			return nil, attrerrors.Resolution(d.id, "prescoped value lacks the configured delimiter: "+v.StringValue())
		}
		values = append(values, attribute.ScopedString(parts[0], parts[1]))
	}
	return attribute.New(d.id, values...), nil
}
