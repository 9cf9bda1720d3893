// Package filter implements the spec.md 4.7 filter engine: value-predicate
// matchers, boolean matcher combinators, tristate policy requirement rules,
// and the per-request deny-overrides-permit evaluation algorithm.
package filter

import "github.com/R3E-Network/attribute-engine/attribute"

// Context is the request-scoped filter environment (spec.md glossary:
// "FilterContext"): prefiltered and postfiltered attribute maps, plus
// access to issuer/recipient metadata that scope matchers consult.
type Context struct {
	IssuerID    string
	RecipientID string

	PrefilteredAttributes  map[string]*attribute.Attribute
	PostfilteredAttributes map[string]*attribute.Attribute
}

// NewContext constructs a Context over a pre-resolved attribute set.
func NewContext(issuerID, recipientID string, attrs map[string]*attribute.Attribute) *Context {
	return &Context{
		IssuerID:               issuerID,
		RecipientID:            recipientID,
		PrefilteredAttributes:  attrs,
		PostfilteredAttributes: make(map[string]*attribute.Attribute),
	}
}
