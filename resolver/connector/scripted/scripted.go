// Package scripted implements the spec.md 4.3 "Scripted" data connector:
// invokes pkg/attrscript with the resolution context and this connector's
// resolved dependencies bound as named variables.
package scripted

import (
	"context"
	"fmt"

	"github.com/R3E-Network/attribute-engine/attribute"
	"github.com/R3E-Network/attribute-engine/pkg/attrerrors"
	"github.com/R3E-Network/attribute-engine/pkg/attrscript"
	"github.com/R3E-Network/attribute-engine/resolver"
)

// Connector evaluates a script with its declared dependencies' attribute
// values bound by id, and the resolution context's principal/issuer/
// recipient bound as "resolutionContext".
type Connector struct {
	*resolver.BaseConnector

	script string
	engine *attrscript.Engine
}

// New constructs a Scripted Connector.
func New(id, script string) *Connector {
	return &Connector{
		BaseConnector: resolver.NewBaseConnector(id),
		script:        script,
		engine:        attrscript.New(0),
	}
}

// Resolve implements resolver.Connector. Dependency attributes must already
// be present in rctx.Work (the resolver engine resolves declared
// dependencies before invoking a connector).
func (c *Connector) Resolve(_ context.Context, rctx *resolver.Context) (map[string]*attribute.Attribute, error) {
	if c.script == "" {
		return nil, attrerrors.Resolution(c.ID(), "Scripted connector has no script configured")
	}

	bindings := map[string]interface{}{
		"resolutionContext": map[string]interface{}{
			"principal":   rctx.Principal,
			"issuerId":    rctx.IssuerID,
			"recipientId": rctx.RecipientID,
		},
	}
	for _, dep := range c.Dependencies().AttributeDependencies {
		if attr, ok := rctx.Work.Get(dep.PluginID); ok && attr != nil {
			bindings[dep.PluginID] = valuesToStrings(attr.Values)
		}
	}

	result, err := c.engine.Eval(c.script, bindings)
	if err != nil {
		return nil, attrerrors.ResolutionWrap(c.ID(), "script evaluation failed", err)
	}

	out := make(map[string]*attribute.Attribute, len(result.Output))
	for id, raw := range result.Output {
		out[id] = attribute.New(id, coerceValues(raw)...)
	}
	return out, nil
}

func valuesToStrings(values []attribute.Value) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v.IsString() {
			out = append(out, v.StringValue())
		}
	}
	return out
}

func coerceValues(raw interface{}) []attribute.Value {
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
