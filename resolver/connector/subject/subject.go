// Package subject implements the spec.md 4.3 "Subject" data connector:
// attribute values extracted from the principal(s) attached to the
// request's SubjectContext. Principal extraction from a signed JWT is
// grounded on the teacher's infrastructure/serviceauth package
// (golang-jwt/jwt/v5 claims parsing).
package subject

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/R3E-Network/attribute-engine/attribute"
	"github.com/R3E-Network/attribute-engine/resolver"
)

// JWTPrincipal adapts a verified JWT's claims into a resolver.Principal:
// every string-valued claim becomes a single-valued attribute named after
// the claim key, except "scope"/"scp" which is split on spaces into
// multiple values. Claims of other types (numbers, booleans, arrays,
// objects) are omitted.
type JWTPrincipal struct {
	claims jwt.MapClaims
}

// ParseJWTPrincipal verifies tokenString with keyFunc (the standard
// jwt.Keyfunc signature) and wraps its claims as a Principal.
func ParseJWTPrincipal(tokenString string, keyFunc jwt.Keyfunc) (*JWTPrincipal, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, keyFunc)
	if err != nil {
		return nil, fmt.Errorf("subject: parse JWT: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("subject: JWT failed validation")
	}
	return &JWTPrincipal{claims: claims}, nil
}

// Attributes implements resolver.Principal.
func (p *JWTPrincipal) Attributes() map[string][]attribute.Value {
	out := make(map[string][]attribute.Value, len(p.claims))
	for k, v := range p.claims {
		switch k {
		case "scope", "scp":
			out[k] = splitScopeClaim(v)
		default:
			if s, ok := v.(string); ok {
				out[k] = []attribute.Value{attribute.String(s)}
			}
		}
	}
	return out
}

func splitScopeClaim(v interface{}) []attribute.Value {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	var values []attribute.Value
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ' ' {
			if i > start {
				values = append(values, attribute.String(s[start:i]))
			}
			start = i + 1
		}
	}
	return values
}

// StaticPrincipal adapts a plain map into a resolver.Principal, useful for
// tests and for non-JWT subject sources.
type StaticPrincipal struct {
	Values map[string][]attribute.Value
}

// Attributes implements resolver.Principal.
func (p StaticPrincipal) Attributes() map[string][]attribute.Value { return p.Values }

// Connector extracts attributes from every principal attached to the
// request's SubjectContext, merging values by attribute id in principal
// order.
type Connector struct {
	*resolver.BaseConnector
}

// New constructs a Subject Connector.
func New(id string) *Connector {
	return &Connector{BaseConnector: resolver.NewBaseConnector(id)}
}

// Resolve implements resolver.Connector. An empty SubjectContext produces no
// results; whether that is an error is governed by noResultIsError
// (checked by the resolver engine via CheckNoResult).
func (c *Connector) Resolve(_ context.Context, rctx *resolver.Context) (map[string]*attribute.Attribute, error) {
	if rctx.Subject == nil || len(rctx.Subject.Principals) == 0 {
		return nil, nil
	}

	merged := make(map[string][]attribute.Value)
	for _, p := range rctx.Subject.Principals {
		for id, values := range p.Attributes() {
			merged[id] = append(merged[id], values...)
		}
	}
	if len(merged) == 0 {
		return nil, nil
	}

	out := make(map[string]*attribute.Attribute, len(merged))
	for id, values := range merged {
		out[id] = attribute.New(id, values...)
	}
	return out, nil
}
