package definition_test

import (
	"testing"

	"github.com/R3E-Network/attribute-engine/attribute"
	"github.com/R3E-Network/attribute-engine/pkg/attrerrors"
	"github.com/R3E-Network/attribute-engine/resolver"
	"github.com/R3E-Network/attribute-engine/resolver/definition"
)

func mergedDeps(values ...attribute.Value) resolver.ResolvedDependencies {
	return resolver.NewResolvedDependencies([]*attribute.Attribute{attribute.New("src", values...)}, nil)
}

func TestScopedResolve(t *testing.T) {
	d := definition.NewScoped("scoped", "example.org")
	out, err := d.Resolve(nil, mergedDeps(attribute.String("jdoe")))
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Values) != 1 || !out.Values[0].Equal(attribute.ScopedString("jdoe", "example.org")) {
		t.Errorf("got %v", out.Values)
	}
}

func TestScopedResolveRejectsNonString(t *testing.T) {
	d := definition.NewScoped("scoped", "example.org")
	_, err := d.Resolve(nil, mergedDeps(attribute.Bytes([]byte("x"))))
	if !attrerrors.IsKind(err, attrerrors.KindResolution) {
		t.Errorf("got %v", err)
	}
}

func TestScopedPassesThroughEmptySentinels(t *testing.T) {
	d := definition.NewScoped("scoped", "s")
	out, err := d.Resolve(nil, mergedDeps(attribute.String("x"), attribute.EmptyNull(), attribute.String("x")))
	if err != nil {
		t.Fatal(err)
	}
	final := attribute.FinalizeValues(out.Values, true)
	if len(final) != 1 || !final[0].Equal(attribute.ScopedString("x", "s")) {
		t.Errorf("got %v", final)
	}
}

func TestPrescopedSplitsOnDelimiter(t *testing.T) {
	d := definition.NewPrescoped("prescoped", "@")
	out, err := d.Resolve(nil, mergedDeps(attribute.String("jdoe@example.org")))
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Values) != 1 || !out.Values[0].Equal(attribute.ScopedString("jdoe", "example.org")) {
		t.Errorf("got %v", out.Values)
	}
}

func TestPrescopedMissingDelimiterIsResolutionError(t *testing.T) {
	d := definition.NewPrescoped("prescoped", "@")
	_, err := d.Resolve(nil, mergedDeps(attribute.String("nodelimiterhere")))
	if !attrerrors.IsKind(err, attrerrors.KindResolution) {
		t.Errorf("got %v", err)
	}
}

func TestRegexSplitFullMatchOnly(t *testing.T) {
	d, err := definition.NewRegexSplit("regex", `urn:mace:dir:(\w+)`, false)
	if err != nil {
		t.Fatal(err)
	}
	out, err := d.Resolve(nil, mergedDeps(attribute.String("urn:mace:dir:engineering"), attribute.String("not-a-match")))
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Values) != 1 || !out.Values[0].Equal(attribute.String("engineering")) {
		t.Errorf("got %v", out.Values)
	}
}

func TestRegexSplitInvalidPatternFailsAtConstruction(t *testing.T) {
	_, err := definition.NewRegexSplit("regex", `(unterminated`, false)
	if !attrerrors.IsKind(err, attrerrors.KindComponentInitialization) {
		t.Errorf("got %v", err)
	}
}

func TestMappedFirstMatchWins(t *testing.T) {
	d, err := definition.NewMapped("mapped", []definition.ValueMapping{
		definition.ExactMapping("staff", "employee"),
		definition.ExactMapping("staff", "other"),
	}, false, nil)
	if err != nil {
		t.Fatal(err)
	}
	out, err := d.Resolve(nil, mergedDeps(attribute.String("staff")))
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Values) != 1 || !out.Values[0].Equal(attribute.String("employee")) {
		t.Errorf("got %v", out.Values)
	}
}

func TestMappedDropsUnmatchedByDefault(t *testing.T) {
	d, err := definition.NewMapped("mapped", []definition.ValueMapping{definition.ExactMapping("staff", "employee")}, false, nil)
	if err != nil {
		t.Fatal(err)
	}
	out, err := d.Resolve(nil, mergedDeps(attribute.String("visitor")))
	if err != nil {
		t.Fatal(err)
	}
	if out != nil {
		t.Errorf("expected nil attribute for fully-dropped input, got %v", out)
	}
}

func TestMappedPassThroughUnmatched(t *testing.T) {
	d, err := definition.NewMapped("mapped", nil, true, nil)
	if err != nil {
		t.Fatal(err)
	}
	out, err := d.Resolve(nil, mergedDeps(attribute.String("visitor")))
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Values) != 1 || !out.Values[0].Equal(attribute.String("visitor")) {
		t.Errorf("got %v", out.Values)
	}
}

func TestMappedRejectsPassThroughWithDefault(t *testing.T) {
	def := "fallback"
	_, err := definition.NewMapped("mapped", nil, true, &def)
	if !attrerrors.IsKind(err, attrerrors.KindComponentInitialization) {
		t.Errorf("got %v", err)
	}
}

func TestDateTimeEpochToLayout(t *testing.T) {
	d := definition.NewDateTime("dt",
		[]definition.TimeFormat{{Kind: definition.EpochSeconds}},
		definition.TimeFormat{Kind: definition.Layout, Layout: "2006-01-02"},
		false)
	out, err := d.Resolve(nil, mergedDeps(attribute.String("0")))
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Values) != 1 || !out.Values[0].Equal(attribute.String("1970-01-01")) {
		t.Errorf("got %v", out.Values)
	}
}

func TestDateTimeIgnoreConversionErrors(t *testing.T) {
	d := definition.NewDateTime("dt",
		[]definition.TimeFormat{{Kind: definition.EpochSeconds}},
		definition.TimeFormat{Kind: definition.EpochSeconds},
		true)
	out, err := d.Resolve(nil, mergedDeps(attribute.String("not-a-number")))
	if err != nil {
		t.Fatal(err)
	}
	if out != nil {
		t.Errorf("expected nil for dropped unparseable value, got %v", out)
	}
}

func TestDateTimeErrorsWithoutIgnoreFlag(t *testing.T) {
	d := definition.NewDateTime("dt",
		[]definition.TimeFormat{{Kind: definition.EpochSeconds}},
		definition.TimeFormat{Kind: definition.EpochSeconds},
		false)
	_, err := d.Resolve(nil, mergedDeps(attribute.String("not-a-number")))
	if !attrerrors.IsKind(err, attrerrors.KindResolution) {
		t.Errorf("got %v", err)
	}
}

func TestTemplateEqualCardinality(t *testing.T) {
	tmpl, err := definition.NewTemplate("full", []string{"first", "last"}, "{{.first}} {{.last}}")
	if err != nil {
		t.Fatal(err)
	}
	deps := resolver.NewResolvedDependencies(nil, map[string]*attribute.Attribute{
		"first": attribute.New("first", attribute.String("Jane")),
		"last":  attribute.New("last", attribute.String("Doe")),
	})
	out, err := tmpl.Resolve(nil, deps)
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Values) != 1 || !out.Values[0].Equal(attribute.String("Jane Doe")) {
		t.Errorf("got %v", out.Values)
	}
}

func TestTemplateCardinalityMismatchIsResolutionError(t *testing.T) {
	tmpl, err := definition.NewTemplate("full", []string{"first", "last"}, "{{.first}} {{.last}}")
	if err != nil {
		t.Fatal(err)
	}
	deps := resolver.NewResolvedDependencies(nil, map[string]*attribute.Attribute{
		"first": attribute.New("first", attribute.String("Jane"), attribute.String("Extra")),
		"last":  attribute.New("last", attribute.String("Doe")),
	})
	_, err = tmpl.Resolve(nil, deps)
	if !attrerrors.IsKind(err, attrerrors.KindResolution) {
		t.Errorf("got %v", err)
	}
}

func TestTemplateInvalidTextFailsAtConstruction(t *testing.T) {
	_, err := definition.NewTemplate("bad", []string{"x"}, "{{.Unterminated")
	if !attrerrors.IsKind(err, attrerrors.KindComponentInitialization) {
		t.Errorf("got %v", err)
	}
}

func TestSimpleResolveMergesAndPassesThroughEmpty(t *testing.T) {
	d := definition.NewSimple("s")
	out, err := d.Resolve(nil, mergedDeps(attribute.String("a"), attribute.String("b")))
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Values) != 2 {
		t.Errorf("got %v", out.Values)
	}
}

func TestSimpleResolveEmptyInputReturnsNil(t *testing.T) {
	d := definition.NewSimple("s")
	out, err := d.Resolve(nil, resolver.NewResolvedDependencies(nil, nil))
	if err != nil {
		t.Fatal(err)
	}
	if out != nil {
		t.Errorf("expected nil, got %v", out)
	}
}
