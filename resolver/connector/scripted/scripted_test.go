package scripted

import (
	"context"
	"testing"

	"github.com/R3E-Network/attribute-engine/attribute"
	"github.com/R3E-Network/attribute-engine/resolver"
)

func TestResolveBindsDependenciesAndResolutionContext(t *testing.T) {
	conn := New("scripted", `
		var output = { greeting: resolutionContext.principal + "/" + dept[0] };
	`)
	if err := conn.SetDependencies(resolver.Dependencies{
		AttributeDependencies: []resolver.AttributeDependency{{PluginID: "dept"}},
	}); err != nil {
		t.Fatal(err)
	}

	rctx := resolver.NewContext("jdoe", "issuer", "recipient", nil)
	rctx.Work = resolver.NewWorkContext()
	rctx.Work.Record("dept", attribute.New("dept", attribute.String("engineering")))

	out, err := conn.Resolve(context.Background(), rctx)
	if err != nil {
		t.Fatal(err)
	}
	attr, ok := out["greeting"]
	if !ok || len(attr.Values) != 1 || !attr.Values[0].Equal(attribute.String("jdoe/engineering")) {
		t.Errorf("got %v", out)
	}
}

func TestResolveRequiresScript(t *testing.T) {
	conn := New("scripted", "")
	rctx := resolver.NewContext("p", "i", "r", nil)
	rctx.Work = resolver.NewWorkContext()
	_, err := conn.Resolve(context.Background(), rctx)
	if err == nil {
		t.Fatal("expected error for empty script")
	}
}
