// Package ldap implements the spec.md 4.3 "LDAP" data connector. The
// concrete directory transport is an external collaborator per spec.md 1
// ("the concrete LDAP/SQL/HTTP transport libraries are treated as injected
// clients"); this package models it as an injected SearchExecutor, mirroring
// the teacher's RepositoryInterface injected-client pattern
// (infrastructure/database/repository_interface.go).
package ldap

import (
	"context"
	"fmt"

	"github.com/R3E-Network/attribute-engine/attribute"
	"github.com/R3E-Network/attribute-engine/pkg/attrcache"
	"github.com/R3E-Network/attribute-engine/pkg/attrerrors"
	"github.com/R3E-Network/attribute-engine/resolver"
)

// SearchRequest is the built search: a base DN, filter and requested
// attribute names, produced by a FilterBuilder from the resolution context.
type SearchRequest struct {
	BaseDN     string
	Filter     string
	Attributes []string
}

// Fingerprint returns a stable cache key for this request.
func (r SearchRequest) Fingerprint() string {
	return r.BaseDN + "|" + r.Filter
}

// SearchResult is a single directory entry's attribute values, keyed by
// LDAP attribute name.
type SearchResult struct {
	DN         string
	Attributes map[string][]string
}

// SearchExecutor is the injected directory client; a real implementation
// wraps a pooled *ldap.Conn (go-ldap/ldap or similar), kept out of this
// module's dependency surface per spec.md 1.
type SearchExecutor interface {
	Search(ctx context.Context, req SearchRequest) ([]SearchResult, error)
}

// FilterBuilder builds a SearchRequest from the resolution context (e.g.
// binding the principal name into a filter template).
type FilterBuilder func(rctx *resolver.Context) (SearchRequest, error)

// MappingStrategy maps raw directory results into attributes, keyed by
// output attribute id.
type MappingStrategy func(results []SearchResult) (map[string]*attribute.Attribute, error)

// Connector executes an LDAP search built from the resolution context,
// mapping the response through a MappingStrategy, with optional result
// caching keyed by the built request's fingerprint.
type Connector struct {
	*resolver.BaseConnector

	executor      SearchExecutor
	buildRequest  FilterBuilder
	mapResults    MappingStrategy
	cache         *attrcache.Cache
	cacheTTLHint  bool
}

// Config collects the Connector's required collaborators.
type Config struct {
	Executor     SearchExecutor
	BuildRequest FilterBuilder
	MapResults   MappingStrategy
	Cache        *attrcache.Cache // optional
}

// New constructs an LDAP Connector.
func New(id string, cfg Config) *Connector {
	return &Connector{
		BaseConnector: resolver.NewBaseConnector(id),
		executor:      cfg.Executor,
		buildRequest:  cfg.BuildRequest,
		mapResults:    cfg.MapResults,
		cache:         cfg.Cache,
	}
}

// Resolve implements resolver.Connector.
func (c *Connector) Resolve(ctx context.Context, rctx *resolver.Context) (map[string]*attribute.Attribute, error) {
	if c.executor == nil || c.buildRequest == nil || c.mapResults == nil {
		return nil, attrerrors.Resolution(c.ID(), "LDAP connector missing executor/filter-builder/mapping-strategy")
	}

	req, err := c.buildRequest(rctx)
	if err != nil {
		return nil, attrerrors.ResolutionWrap(c.ID(), "build LDAP search request", err)
	}

	if c.cache != nil {
		if cached, ok := c.cache.Get(cacheKey(c.ID(), req.Fingerprint())); ok {
			if attrs, ok := cached.(map[string]*attribute.Attribute); ok {
				return attrs, nil
			}
		}
	}

	results, err := c.executor.Search(ctx, req)
	if err != nil {
		return nil, attrerrors.ResolutionWrap(c.ID(), "LDAP search failed", err)
	}

	attrs, err := c.mapResults(results)
	if err != nil {
		return nil, attrerrors.ResolutionWrap(c.ID(), "map LDAP results", err)
	}

	if c.cache != nil {
		c.cache.Set(cacheKey(c.ID(), req.Fingerprint()), attrs, 0)
	}
	return attrs, nil
}

func cacheKey(connectorID, fingerprint string) string {
	return fmt.Sprintf("ldap:%s:%s", connectorID, fingerprint)
}
