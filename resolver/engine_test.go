package resolver_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/R3E-Network/attribute-engine/attribute"
	"github.com/R3E-Network/attribute-engine/pkg/attrerrors"
	"github.com/R3E-Network/attribute-engine/resolver"
	"github.com/R3E-Network/attribute-engine/resolver/connector/static"
	"github.com/R3E-Network/attribute-engine/resolver/definition"
)

// failingConnector always fails, used to exercise failover/cool-down.
type failingConnector struct {
	*resolver.BaseConnector
	calls int
}

func newFailingConnector(id string) *failingConnector {
	return &failingConnector{BaseConnector: resolver.NewBaseConnector(id)}
}

func (c *failingConnector) Resolve(context.Context, *resolver.Context) (map[string]*attribute.Attribute, error) {
	c.calls++
	return nil, attrerrors.Resolution(c.ID(), "simulated failure")
}

func TestResolveWithStaticConnectorAndSimpleDefinition(t *testing.T) {
	e := resolver.NewEngine("test", true, nil, nil)

	conn := static.New("source", attribute.New("dept", attribute.String("engineering")))
	if err := conn.SetExportAllAttributes(true); err != nil {
		t.Fatal(err)
	}
	if err := e.AddConnector(conn); err != nil {
		t.Fatal(err)
	}

	def := definition.NewSimple("derived")
	if err := def.SetDependencies(resolver.Dependencies{
		DataConnectorDependencies: []resolver.DataConnectorDependency{
			{PluginID: "source", ExportedAttributeIDs: []string{"dept"}},
		},
	}); err != nil {
		t.Fatal(err)
	}
	if err := e.AddDefinition(def); err != nil {
		t.Fatal(err)
	}

	if err := e.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	rctx := resolver.NewContext("principal", "issuer", "recipient", nil)
	if err := e.Resolve(context.Background(), rctx); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if _, ok := rctx.ResolvedAttributes["dept"]; !ok {
		t.Error("expected exported dept attribute")
	}
	derived, ok := rctx.ResolvedAttributes["derived"]
	if !ok {
		t.Fatal("expected derived attribute")
	}
	if len(derived.Values) != 1 || !derived.Values[0].Equal(attribute.String("engineering")) {
		t.Errorf("got %v", derived.Values)
	}
}

func TestDependencyOnlySuppressesRelease(t *testing.T) {
	e := resolver.NewEngine("test", true, nil, nil)

	conn := static.New("source", attribute.New("raw", attribute.String("x")))
	if err := conn.SetExportAllAttributes(true); err != nil {
		t.Fatal(err)
	}
	if err := e.AddConnector(conn); err != nil {
		t.Fatal(err)
	}

	hidden := definition.NewSimple("hidden")
	if err := hidden.SetDependencies(resolver.Dependencies{
		DataConnectorDependencies: []resolver.DataConnectorDependency{
			{PluginID: "source", ExportedAttributeIDs: []string{"raw"}},
		},
	}); err != nil {
		t.Fatal(err)
	}
	if err := hidden.SetDependencyOnly(true); err != nil {
		t.Fatal(err)
	}
	if err := e.AddDefinition(hidden); err != nil {
		t.Fatal(err)
	}

	visible := definition.NewSimple("visible")
	if err := visible.SetDependencies(resolver.Dependencies{
		AttributeDependencies: []resolver.AttributeDependency{{PluginID: "hidden"}},
	}); err != nil {
		t.Fatal(err)
	}
	if err := e.AddDefinition(visible); err != nil {
		t.Fatal(err)
	}

	if err := e.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	rctx := resolver.NewContext("p", "i", "r", nil)
	if err := e.Resolve(context.Background(), rctx); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if _, ok := rctx.ResolvedAttributes["hidden"]; ok {
		t.Error("dependency-only definition should not be released")
	}
	if _, ok := rctx.ResolvedAttributes["visible"]; !ok {
		t.Error("visible definition depending on hidden should still resolve")
	}
}

func TestInitializeDetectsCycle(t *testing.T) {
	e := resolver.NewEngine("test", false, nil, nil)

	a := definition.NewSimple("a")
	if err := a.SetDependencies(resolver.Dependencies{
		AttributeDependencies: []resolver.AttributeDependency{{PluginID: "b"}},
	}); err != nil {
		t.Fatal(err)
	}
	b := definition.NewSimple("b")
	if err := b.SetDependencies(resolver.Dependencies{
		AttributeDependencies: []resolver.AttributeDependency{{PluginID: "a"}},
	}); err != nil {
		t.Fatal(err)
	}
	if err := e.AddDefinition(a); err != nil {
		t.Fatal(err)
	}
	if err := e.AddDefinition(b); err != nil {
		t.Fatal(err)
	}

	err := e.Initialize()
	if err == nil {
		t.Fatal("expected cycle detection error")
	}
	if !attrerrors.IsKind(err, attrerrors.KindComponentInitialization) {
		t.Errorf("got %v", err)
	}

	var compErr *attrerrors.ComponentError
	if !errors.As(err, &compErr) {
		t.Fatalf("expected *attrerrors.ComponentError, got %T", err)
	}
	cycle, ok := compErr.Details["cycle"].([]string)
	if !ok {
		t.Fatalf("expected cycle detail, got %v", compErr.Details)
	}
	seen := map[string]bool{}
	for _, id := range cycle {
		seen[id] = true
	}
	if !seen["a"] || !seen["b"] {
		t.Errorf("expected cycle to name both \"a\" and \"b\", got %v", cycle)
	}
}

func TestInitializeDetectsUnknownDependency(t *testing.T) {
	e := resolver.NewEngine("test", false, nil, nil)

	a := definition.NewSimple("a")
	if err := a.SetDependencies(resolver.Dependencies{
		AttributeDependencies: []resolver.AttributeDependency{{PluginID: "missing"}},
	}); err != nil {
		t.Fatal(err)
	}
	if err := e.AddDefinition(a); err != nil {
		t.Fatal(err)
	}

	if err := e.Initialize(); err == nil {
		t.Fatal("expected unknown dependency error")
	}
}

func TestInitializeDetectsDuplicateID(t *testing.T) {
	e := resolver.NewEngine("test", false, nil, nil)
	if err := e.AddDefinition(definition.NewSimple("dup")); err != nil {
		t.Fatal(err)
	}
	if err := e.AddConnector(static.New("dup")); err != nil {
		t.Fatal(err)
	}
	if err := e.Initialize(); err == nil {
		t.Fatal("expected duplicate id error")
	}
}

func TestConnectorFailoverAliasesResult(t *testing.T) {
	e := resolver.NewEngine("test", false, nil, nil)

	primary := newFailingConnector("primary")
	if err := primary.SetExportAllAttributes(true); err != nil {
		t.Fatal(err)
	}
	if err := primary.SetFailoverConnectorID("backup"); err != nil {
		t.Fatal(err)
	}
	backup := static.New("backup", attribute.New("value", attribute.String("from-backup")))
	if err := backup.SetExportAllAttributes(true); err != nil {
		t.Fatal(err)
	}

	if err := e.AddConnector(primary); err != nil {
		t.Fatal(err)
	}
	if err := e.AddConnector(backup); err != nil {
		t.Fatal(err)
	}
	if err := e.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	rctx := resolver.NewContext("p", "i", "r", nil)
	if err := e.Resolve(context.Background(), rctx); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	attr, ok := rctx.ResolvedAttributes["value"]
	if !ok {
		t.Fatal("expected failover-sourced attribute exported under primary's export set")
	}
	if len(attr.Values) != 1 || !attr.Values[0].Equal(attribute.String("from-backup")) {
		t.Errorf("got %v", attr.Values)
	}
	if primary.calls != 1 {
		t.Errorf("expected primary invoked once, got %d", primary.calls)
	}
}

func TestConnectorCoolDownSkipsRetryAndEngagesFailover(t *testing.T) {
	e := resolver.NewEngine("test", false, nil, nil)

	primary := newFailingConnector("primary")
	if err := primary.SetExportAllAttributes(true); err != nil {
		t.Fatal(err)
	}
	if err := primary.SetNoRetryDelay(time.Hour); err != nil {
		t.Fatal(err)
	}
	if err := primary.SetFailoverConnectorID("backup"); err != nil {
		t.Fatal(err)
	}
	backup := static.New("backup", attribute.New("value", attribute.String("from-backup")))
	if err := backup.SetExportAllAttributes(true); err != nil {
		t.Fatal(err)
	}

	if err := e.AddConnector(primary); err != nil {
		t.Fatal(err)
	}
	if err := e.AddConnector(backup); err != nil {
		t.Fatal(err)
	}
	if err := e.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	// first request: primary fails, records failure, failover engages.
	rctx1 := resolver.NewContext("p", "i", "r", nil)
	if err := e.Resolve(context.Background(), rctx1); err != nil {
		t.Fatalf("resolve 1: %v", err)
	}
	if primary.calls != 1 {
		t.Fatalf("expected 1 call, got %d", primary.calls)
	}

	// second request: primary is within cool-down, should not be called again.
	rctx2 := resolver.NewContext("p", "i", "r", nil)
	if err := e.Resolve(context.Background(), rctx2); err != nil {
		t.Fatalf("resolve 2: %v", err)
	}
	if primary.calls != 1 {
		t.Errorf("expected primary not retried during cool-down, got %d calls", primary.calls)
	}
	if _, ok := rctx2.ResolvedAttributes["value"]; !ok {
		t.Error("expected failover result during cool-down")
	}
}

func TestConnectorFailureWithNoFailoverPropagatesError(t *testing.T) {
	e := resolver.NewEngine("test", false, nil, nil)
	primary := newFailingConnector("primary")
	if err := primary.SetExportAllAttributes(true); err != nil {
		t.Fatal(err)
	}
	if err := e.AddConnector(primary); err != nil {
		t.Fatal(err)
	}
	if err := e.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	rctx := resolver.NewContext("p", "i", "r", nil)
	err := e.Resolve(context.Background(), rctx)
	if err == nil {
		t.Fatal("expected resolve to fail")
	}
	if !attrerrors.IsKind(err, attrerrors.KindResolution) {
		t.Errorf("got %v", err)
	}
}

func TestResolveRequestedNamesOnlyResolvesSubset(t *testing.T) {
	e := resolver.NewEngine("test", false, nil, nil)
	a := definition.NewSimple("a")
	if err := a.SetDependencies(resolver.Dependencies{}); err != nil {
		t.Fatal(err)
	}
	b := definition.NewSimple("b")
	if err := e.AddDefinition(a); err != nil {
		t.Fatal(err)
	}
	if err := e.AddDefinition(b); err != nil {
		t.Fatal(err)
	}
	if err := e.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	rctx := resolver.NewContext("p", "i", "r", []string{"a"})
	if err := e.Resolve(context.Background(), rctx); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if _, ok := rctx.ResolvedAttributes["b"]; ok {
		t.Error("did not request b, should not be resolved")
	}
}
