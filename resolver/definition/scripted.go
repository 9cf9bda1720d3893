package definition

import (
	"fmt"

	"github.com/PaesslerAG/jsonpath"

	"github.com/R3E-Network/attribute-engine/attribute"
	"github.com/R3E-Network/attribute-engine/pkg/attrerrors"
	"github.com/R3E-Network/attribute-engine/pkg/attrscript"
	"github.com/R3E-Network/attribute-engine/resolver"
)

// Scripted evaluates a script with every declared dependency's attribute
// values bound by id, plus a jsonPath(path) helper over the same
// dependencies viewed as a single JSON-shaped document, and the
// resolution context bound as "resolutionContext" (spec.md 4.4).
type Scripted struct {
	*resolver.BaseDefinition
	id     string
	script string
	engine *attrscript.Engine
}

// NewScripted constructs a Scripted definition.
func NewScripted(id, script string) *Scripted {
	return &Scripted{
		BaseDefinition: resolver.NewBaseDefinition(id),
		id:             id,
		script:         script,
		engine:         attrscript.New(0),
	}
}

// Resolve implements resolver.Definition. The engine resolves declared
// dependencies before calling Resolve, so deps already holds every
// dependency's output.
func (d *Scripted) Resolve(rctx *resolver.Context, deps resolver.ResolvedDependencies) (*attribute.Attribute, error) {
	if d.script == "" {
		return nil, attrerrors.Resolution(d.id, "scripted definition has no script configured")
	}

	view := make(map[string]interface{})
	bindings := map[string]interface{}{
		"resolutionContext": map[string]interface{}{
			"principal":   rctx.Principal,
			"issuerId":    rctx.IssuerID,
			"recipientId": rctx.RecipientID,
		},
	}
	for _, attr := range deps.List() {
		if attr == nil {
			continue
		}
		strs := valuesToStringsDef(attr.Values)
		bindings[attr.ID] = strs
		view[attr.ID] = strs
	}
	bindings["jsonPath"] = func(path string) interface{} {
		v, err := jsonpath.Get(path, view)
		if err != nil {
			return nil
		}
		return v
	}

	result, err := d.engine.Eval(d.script, bindings)
	if err != nil {
		return nil, attrerrors.ResolutionWrap(d.id, "script evaluation failed", err)
	}
	if result.Output == nil {
		return nil, nil
	}

	raw, ok := result.Output["values"]
	if !ok {
		raw, ok = result.Output[d.id]
	}
	if !ok {
		return nil, nil
	}
	values := coerceValuesDef(raw)
	if len(values) == 0 {
		return nil, nil
	}
	return attribute.New(d.id, values...), nil
}

func valuesToStringsDef(values []attribute.Value) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v.IsString() {
			out = append(out, v.StringValue())
		}
	}
	return out
}

func coerceValuesDef(raw interface{}) []attribute.Value {
	switch v := raw.(type) {
	case string:
		return []attribute.Value{attribute.String(v)}
	case []interface{}:
		values := make([]attribute.Value, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				values = append(values, attribute.String(s))
			}
		}
		return values
	case nil:
		return []attribute.Value{attribute.EmptyNull()}
	default:
		return []attribute.Value{attribute.String(fmt.Sprint(v))}
	}
}
