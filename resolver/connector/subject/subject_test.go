package subject

import (
	"context"
	"testing"

	"github.com/golang-jwt/jwt/v5"

	"github.com/R3E-Network/attribute-engine/attribute"
	"github.com/R3E-Network/attribute-engine/resolver"
)

func TestStaticPrincipalResolve(t *testing.T) {
	conn := New("subject")
	rctx := resolver.NewContext("p", "i", "r", nil)
	rctx.Subject = &resolver.SubjectContext{
		Principals: []resolver.Principal{
			StaticPrincipal{Values: map[string][]attribute.Value{
				"mail": {attribute.String("jdoe@example.org")},
			}},
		},
	}

	out, err := conn.Resolve(context.Background(), rctx)
	if err != nil {
		t.Fatal(err)
	}
	attr, ok := out["mail"]
	if !ok || len(attr.Values) != 1 || !attr.Values[0].Equal(attribute.String("jdoe@example.org")) {
		t.Errorf("got %v", out)
	}
}

func TestResolveWithNoSubjectContextProducesNoResults(t *testing.T) {
	conn := New("subject")
	rctx := resolver.NewContext("p", "i", "r", nil)
	out, err := conn.Resolve(context.Background(), rctx)
	if err != nil {
		t.Fatal(err)
	}
	if out != nil {
		t.Errorf("expected nil result, got %v", out)
	}
}

func TestMergesMultiplePrincipalsByAttributeID(t *testing.T) {
	conn := New("subject")
	rctx := resolver.NewContext("p", "i", "r", nil)
	rctx.Subject = &resolver.SubjectContext{
		Principals: []resolver.Principal{
			StaticPrincipal{Values: map[string][]attribute.Value{"role": {attribute.String("admin")}}},
			StaticPrincipal{Values: map[string][]attribute.Value{"role": {attribute.String("staff")}}},
		},
	}
	out, err := conn.Resolve(context.Background(), rctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(out["role"].Values) != 2 {
		t.Errorf("got %v", out["role"].Values)
	}
}

func TestJWTPrincipalSplitsScopeClaim(t *testing.T) {
	secret := []byte("test-secret")
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"scope": "read write admin",
		"sub":   "jdoe",
	})
	signed, err := token.SignedString(secret)
	if err != nil {
		t.Fatal(err)
	}

	principal, err := ParseJWTPrincipal(signed, func(*jwt.Token) (interface{}, error) { return secret, nil })
	if err != nil {
		t.Fatal(err)
	}
	attrs := principal.Attributes()
	if len(attrs["scope"]) != 3 {
		t.Errorf("got %v", attrs["scope"])
	}
	if len(attrs["sub"]) != 1 || !attrs["sub"][0].Equal(attribute.String("jdoe")) {
		t.Errorf("got %v", attrs["sub"])
	}
}

func TestParseJWTPrincipalRejectsInvalidSignature(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "jdoe"})
	signed, err := token.SignedString([]byte("secret-a"))
	if err != nil {
		t.Fatal(err)
	}
	_, err = ParseJWTPrincipal(signed, func(*jwt.Token) (interface{}, error) { return []byte("secret-b"), nil })
	if err == nil {
		t.Fatal("expected signature verification failure")
	}
}
