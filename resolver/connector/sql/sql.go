// Package sql implements the spec.md 4.3 "SQL" data connector: a statement
// built from the resolution context, executed via jmoiron/sqlx against a
// lib/pq-backed *sqlx.DB, mapped into attributes through an injected
// MappingStrategy. Outbound calls are wrapped in pkg/attrresilience
// (sony/gobreaker/v2 + cenkalti/backoff/v4) per SPEC_FULL.md 3, and results
// may be cached via pkg/attrcache keyed by the built statement's
// fingerprint. Grounded on the teacher's generic repository helpers
// (infrastructure/database/generic_repository.go) for the
// build-execute-map-wrap shape, adapted from its REST-query style to a real
// parameterized SQL statement.
package sql

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/R3E-Network/attribute-engine/attribute"
	"github.com/R3E-Network/attribute-engine/pkg/attrcache"
	"github.com/R3E-Network/attribute-engine/pkg/attrerrors"
	"github.com/R3E-Network/attribute-engine/pkg/attrresilience"
	"github.com/R3E-Network/attribute-engine/resolver"
)

// Statement is the built query: SQL text plus positional arguments.
type Statement struct {
	Query string
	Args  []interface{}
}

// Fingerprint returns a stable cache key for this statement.
func (s Statement) Fingerprint() string {
	key := s.Query
	for _, a := range s.Args {
		key += fmt.Sprintf("|%v", a)
	}
	return key
}

// StatementBuilder builds a Statement from the resolution context.
type StatementBuilder func(rctx *resolver.Context) (Statement, error)

// RowMapper maps the rows returned by a query into attributes, keyed by
// output attribute id. Rows is the raw sqlx.Rows-scanned data as a slice of
// column-name-keyed maps, to keep the connector schema-agnostic.
type RowMapper func(rows []map[string]interface{}) (map[string]*attribute.Attribute, error)

// Connector executes a SQL query built from the resolution context.
type Connector struct {
	*resolver.BaseConnector

	db            *sqlx.DB
	buildStatement StatementBuilder
	mapRows       RowMapper
	cache         *attrcache.Cache
	breaker       *attrresilience.CircuitBreaker
	retry         attrresilience.RetryConfig
}

// Config collects the Connector's required collaborators.
type Config struct {
	DB             *sqlx.DB
	BuildStatement StatementBuilder
	MapRows        RowMapper
	Cache          *attrcache.Cache               // optional
	Breaker        *attrresilience.CircuitBreaker // optional
	Retry          attrresilience.RetryConfig      // zero value disables retry
}

// New constructs a SQL Connector.
func New(id string, cfg Config) *Connector {
	return &Connector{
		BaseConnector:  resolver.NewBaseConnector(id),
		db:             cfg.DB,
		buildStatement: cfg.BuildStatement,
		mapRows:        cfg.MapRows,
		cache:          cfg.Cache,
		breaker:        cfg.Breaker,
		retry:          cfg.Retry,
	}
}

// Resolve implements resolver.Connector.
func (c *Connector) Resolve(ctx context.Context, rctx *resolver.Context) (map[string]*attribute.Attribute, error) {
	if c.db == nil || c.buildStatement == nil || c.mapRows == nil {
		return nil, attrerrors.Resolution(c.ID(), "SQL connector missing db/statement-builder/row-mapper")
	}

	stmt, err := c.buildStatement(rctx)
	if err != nil {
		return nil, attrerrors.ResolutionWrap(c.ID(), "build SQL statement", err)
	}

	cacheKey := fmt.Sprintf("sql:%s:%s", c.ID(), stmt.Fingerprint())
	if c.cache != nil {
		if cached, ok := c.cache.Get(cacheKey); ok {
			if attrs, ok := cached.(map[string]*attribute.Attribute); ok {
				return attrs, nil
			}
		}
	}

	var rows []map[string]interface{}
	run := func() error {
		var queryErr error
		rows, queryErr = c.query(ctx, stmt)
		return queryErr
	}

	if c.retry.MaxAttempts > 0 {
		run = withRetry(ctx, c.retry, run)
	}
	if c.breaker != nil {
		if err := c.breaker.Execute(ctx, run); err != nil {
			return nil, attrerrors.ResolutionWrap(c.ID(), "SQL query failed", err)
		}
	} else if err := run(); err != nil {
		return nil, attrerrors.ResolutionWrap(c.ID(), "SQL query failed", err)
	}

	attrs, err := c.mapRows(rows)
	if err != nil {
		return nil, attrerrors.ResolutionWrap(c.ID(), "map SQL rows", err)
	}

	if c.cache != nil {
		c.cache.Set(cacheKey, attrs, 0)
	}
	return attrs, nil
}

func (c *Connector) query(ctx context.Context, stmt Statement) ([]map[string]interface{}, error) {
	rows, err := c.db.QueryxContext(ctx, stmt.Query, stmt.Args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []map[string]interface{}
	for rows.Next() {
		row := make(map[string]interface{})
		if err := rows.MapScan(row); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func withRetry(ctx context.Context, cfg attrresilience.RetryConfig, fn func() error) func() error {
	return func() error {
		return attrresilience.Retry(ctx, cfg, fn)
	}
}
