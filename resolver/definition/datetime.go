package definition

import (
	"strconv"
	"time"

	"github.com/R3E-Network/attribute-engine/attribute"
	"github.com/R3E-Network/attribute-engine/pkg/attrerrors"
	"github.com/R3E-Network/attribute-engine/resolver"
)

// TimeFormatKind selects how a DateTime definition reads or writes a
// timestamp value.
type TimeFormatKind int

const (
	EpochSeconds TimeFormatKind = iota
	EpochMillis
	Layout
)

// TimeFormat pairs a TimeFormatKind with the Go time layout it needs, if
// any (spec.md 4.4: "epoch-seconds, epoch-millis, or a formatted
// timestamp per configured formatter").
type TimeFormat struct {
	Kind   TimeFormatKind
	Layout string
}

func (f TimeFormat) parse(s string) (time.Time, error) {
	switch f.Kind {
	case EpochSeconds:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return time.Time{}, err
		}
		return time.Unix(n, 0).UTC(), nil
	case EpochMillis:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return time.Time{}, err
		}
		return time.UnixMilli(n).UTC(), nil
	default:
		return time.Parse(f.Layout, s)
	}
}

func (f TimeFormat) format(t time.Time) string {
	switch f.Kind {
	case EpochSeconds:
		return strconv.FormatInt(t.Unix(), 10)
	case EpochMillis:
		return strconv.FormatInt(t.UnixMilli(), 10)
	default:
		return t.Format(f.Layout)
	}
}

// DateTime reinterprets each string input value as a timestamp, trying
// inputFormats in order, and re-renders it via outputFormat (spec.md 4.4).
// When ignoreConversionErrors is set, values that match no input format are
// dropped rather than raising a ResolutionError.
type DateTime struct {
	*resolver.BaseDefinition
	id                     string
	inputFormats           []TimeFormat
	outputFormat           TimeFormat
	ignoreConversionErrors bool
}

// NewDateTime constructs a DateTime definition.
func NewDateTime(id string, inputFormats []TimeFormat, outputFormat TimeFormat, ignoreConversionErrors bool) *DateTime {
	return &DateTime{
		BaseDefinition:         resolver.NewBaseDefinition(id),
		id:                     id,
		inputFormats:           inputFormats,
		outputFormat:           outputFormat,
		ignoreConversionErrors: ignoreConversionErrors,
	}
}

// Resolve implements resolver.Definition.
func (d *DateTime) Resolve(_ *resolver.Context, deps resolver.ResolvedDependencies) (*attribute.Attribute, error) {
	input := deps.Merged()
	if len(input) == 0 {
		return nil, nil
	}

	values := make([]attribute.Value, 0, len(input))
	for _, v := range input {
		if !v.IsString() {
			if d.ignoreConversionErrors {
				continue
			}
			return nil, attrerrors.Resolution(d.id, "date-time definition requires string input values")
		}
		t, err := d.parse(v.StringValue())
		if err != nil {
			if d.ignoreConversionErrors {
				continue
			}
			return nil, attrerrors.ResolutionWrap(d.id, "unable to parse date-time value: "+v.StringValue(), err)
		}
		values = append(values, attribute.String(d.outputFormat.format(t)))
	}
	if len(values) == 0 {
		return nil, nil
	}
	return attribute.New(d.id, values...), nil
}

func (d *DateTime) parse(s string) (time.Time, error) {
	var lastErr error
	for _, f := range d.inputFormats {
		t, err := f.parse(s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = attrerrors.Resolution(d.id, "no input formats configured")
	}
	return time.Time{}, lastErr
}
