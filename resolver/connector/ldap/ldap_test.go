package ldap

import (
	"context"
	"errors"
	"testing"

	"github.com/R3E-Network/attribute-engine/attribute"
	"github.com/R3E-Network/attribute-engine/pkg/attrcache"
	"github.com/R3E-Network/attribute-engine/resolver"
)

type fakeExecutor struct {
	results []SearchResult
	err     error
	calls   int
}

func (f *fakeExecutor) Search(ctx context.Context, req SearchRequest) ([]SearchResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

func buildRequest(rctx *resolver.Context) (SearchRequest, error) {
	return SearchRequest{BaseDN: "dc=example,dc=org", Filter: "(uid=" + rctx.Principal + ")"}, nil
}

func mapMail(results []SearchResult) (map[string]*attribute.Attribute, error) {
	if len(results) == 0 {
		return nil, nil
	}
	mails := results[0].Attributes["mail"]
	values := make([]attribute.Value, 0, len(mails))
	for _, m := range mails {
		values = append(values, attribute.String(m))
	}
	return map[string]*attribute.Attribute{"mail": attribute.New("mail", values...)}, nil
}

func TestResolveRequiresCollaborators(t *testing.T) {
	conn := New("ldap", Config{})
	rctx := resolver.NewContext("jdoe", "issuer", "recipient", nil)
	_, err := conn.Resolve(context.Background(), rctx)
	if err == nil {
		t.Fatal("expected error for missing collaborators")
	}
}

func TestResolveSearchesAndMapsResults(t *testing.T) {
	executor := &fakeExecutor{results: []SearchResult{
		{DN: "uid=jdoe,dc=example,dc=org", Attributes: map[string][]string{"mail": {"jdoe@example.org"}}},
	}}
	conn := New("ldap", Config{Executor: executor, BuildRequest: buildRequest, MapResults: mapMail})

	rctx := resolver.NewContext("jdoe", "issuer", "recipient", nil)
	out, err := conn.Resolve(context.Background(), rctx)
	if err != nil {
		t.Fatal(err)
	}
	attr, ok := out["mail"]
	if !ok || len(attr.Values) != 1 || !attr.Values[0].Equal(attribute.String("jdoe@example.org")) {
		t.Errorf("got %v", out)
	}
	if executor.calls != 1 {
		t.Errorf("expected 1 search call, got %d", executor.calls)
	}
}

func TestResolveWrapsSearchError(t *testing.T) {
	executor := &fakeExecutor{err: errors.New("ldap down")}
	conn := New("ldap", Config{Executor: executor, BuildRequest: buildRequest, MapResults: mapMail})

	rctx := resolver.NewContext("jdoe", "issuer", "recipient", nil)
	_, err := conn.Resolve(context.Background(), rctx)
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestResolveCachesByRequestFingerprint(t *testing.T) {
	executor := &fakeExecutor{results: []SearchResult{
		{DN: "uid=jdoe,dc=example,dc=org", Attributes: map[string][]string{"mail": {"jdoe@example.org"}}},
	}}
	cache := attrcache.New(attrcache.DefaultConfig())
	defer cache.Close()
	conn := New("ldap", Config{Executor: executor, BuildRequest: buildRequest, MapResults: mapMail, Cache: cache})

	rctx := resolver.NewContext("jdoe", "issuer", "recipient", nil)
	if _, err := conn.Resolve(context.Background(), rctx); err != nil {
		t.Fatal(err)
	}
	if _, err := conn.Resolve(context.Background(), rctx); err != nil {
		t.Fatal(err)
	}
	if executor.calls != 1 {
		t.Errorf("expected cached second call, executor called %d times", executor.calls)
	}
}

func TestSearchRequestFingerprintDistinguishesFilters(t *testing.T) {
	a := SearchRequest{BaseDN: "dc=example,dc=org", Filter: "(uid=a)"}
	b := SearchRequest{BaseDN: "dc=example,dc=org", Filter: "(uid=b)"}
	if a.Fingerprint() == b.Fingerprint() {
		t.Error("expected distinct fingerprints")
	}
}
