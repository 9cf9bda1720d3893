package filter

import "github.com/R3E-Network/attribute-engine/attribute"

// And returns the intersection of its children's matching subsets
// (spec.md 4.7).
type And struct {
	Children []Matcher
}

func (c And) GetMatchingValues(attr *attribute.Attribute, ctx *Context) ([]attribute.Value, error) {
	if len(c.Children) == 0 {
		return MatchesAll{}.GetMatchingValues(attr, ctx)
	}
	result, err := c.Children[0].GetMatchingValues(attr, ctx)
	if err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, nil
	}
	for _, child := range c.Children[1:] {
		next, err := child.GetMatchingValues(attr, ctx)
		if err != nil {
			return nil, err
		}
		result = intersect(result, next)
		if len(result) == 0 {
			return nil, nil
		}
	}
	return result, nil
}

// Or returns the union of its children's matching subsets (spec.md 4.7).
type Or struct {
	Children []Matcher
}

func (c Or) GetMatchingValues(attr *attribute.Attribute, ctx *Context) ([]attribute.Value, error) {
	var result []attribute.Value
	for _, child := range c.Children {
		next, err := child.GetMatchingValues(attr, ctx)
		if err != nil {
			return nil, err
		}
		result = union(result, next)
	}
	return result, nil
}

// Not returns attr.values minus its child's matching subset (spec.md 4.7).
type Not struct {
	Child Matcher
}

func (c Not) GetMatchingValues(attr *attribute.Attribute, ctx *Context) ([]attribute.Value, error) {
	if attr == nil {
		return nil, nil
	}
	excluded, err := c.Child.GetMatchingValues(attr, ctx)
	if err != nil {
		return nil, err
	}
	var out []attribute.Value
	for _, v := range attr.Values {
		if !contains(excluded, v) {
			out = append(out, v)
		}
	}
	return out, nil
}

func contains(values []attribute.Value, v attribute.Value) bool {
	for _, existing := range values {
		if existing.Equal(v) {
			return true
		}
	}
	return false
}

func intersect(a, b []attribute.Value) []attribute.Value {
	var out []attribute.Value
	for _, v := range a {
		if contains(b, v) {
			out = append(out, v)
		}
	}
	return out
}

func union(a, b []attribute.Value) []attribute.Value {
	out := make([]attribute.Value, 0, len(a)+len(b))
	out = append(out, a...)
	for _, v := range b {
		if !contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}
