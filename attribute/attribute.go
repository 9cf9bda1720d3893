package attribute

import "fmt"

// Attribute is a named, ordered, deduplicated sequence of values, per
// spec.md 3. Values preserve insertion order through the pipeline; dedup
// happens only at finalization (see FinalizeValues / Dedupe).
type Attribute struct {
	ID                  string
	Values              []Value
	DisplayNames        map[string]string // locale -> name
	DisplayDescriptions map[string]string // locale -> description
}

// New constructs an Attribute with the given id and values. id must be
// non-empty per spec.md 3; callers that need validation should use
// NewValidated.
func New(id string, values ...Value) *Attribute {
	return &Attribute{ID: id, Values: values}
}

// NewValidated constructs an Attribute, validating the non-empty-id
// invariant from spec.md 3.
func NewValidated(id string, values ...Value) (*Attribute, error) {
	if id == "" {
		return nil, fmt.Errorf("attribute id must not be empty")
	}
	return New(id, values...), nil
}

// Clone returns a deep-enough copy (values are immutable so a slice copy
// suffices) safe for independent mutation.
func (a *Attribute) Clone() *Attribute {
	if a == nil {
		return nil
	}
	values := make([]Value, len(a.Values))
	copy(values, a.Values)
	clone := &Attribute{ID: a.ID, Values: values}
	if a.DisplayNames != nil {
		clone.DisplayNames = make(map[string]string, len(a.DisplayNames))
		for k, v := range a.DisplayNames {
			clone.DisplayNames[k] = v
		}
	}
	if a.DisplayDescriptions != nil {
		clone.DisplayDescriptions = make(map[string]string, len(a.DisplayDescriptions))
		for k, v := range a.DisplayDescriptions {
			clone.DisplayDescriptions[k] = v
		}
	}
	return clone
}

// Dedupe returns a new value slice with structural duplicates removed,
// preserving first-occurrence order, per spec.md 8 ("Deduplication").
func Dedupe(values []Value) []Value {
	out := make([]Value, 0, len(values))
	for _, v := range values {
		duplicate := false
		for _, seen := range out {
			if seen.Equal(v) {
				duplicate = true
				break
			}
		}
		if !duplicate {
			out = append(out, v)
		}
	}
	return out
}

// StripNulls removes EmptyNull and EmptyZeroLength values, per spec.md 4.5
// step 5 and the stripNulls open question in spec.md 9: this spec mandates
// removing EmptyAttributeValue instances before dedup when stripNulls is
// set, with no broader null-equals-empty-string inference.
func StripNulls(values []Value) []Value {
	out := make([]Value, 0, len(values))
	for _, v := range values {
		if v.IsEmpty() {
			continue
		}
		out = append(out, v)
	}
	return out
}

// FinalizeValues applies the spec.md 4.5 step-5 post-processing pipeline to
// a raw value slice: optional null stripping, then mandatory dedup
// preserving first-occurrence order.
func FinalizeValues(values []Value, stripNulls bool) []Value {
	if stripNulls {
		values = StripNulls(values)
	}
	return Dedupe(values)
}

// Merge concatenates the values of several attributes in order, used by
// attribute definitions to build their combined dependency input set
// (spec.md 4.4: "consume their dependencies' attributes merged into a set
// of values").
func Merge(attrs ...*Attribute) []Value {
	var out []Value
	for _, a := range attrs {
		if a == nil {
			continue
		}
		out = append(out, a.Values...)
	}
	return out
}
