// Package httpscript implements the spec.md 4.3 "HTTP+Script" data
// connector: issue an HTTP request (configurable TLS trust material,
// optional client certificate, response size cap), then feed the response
// body to a script that returns a map of attributes. HTTP client shaping is
// grounded on infrastructure/httputil/client.go (timeout/max-body-size
// defaults); the script step reuses pkg/attrscript (the same goja engine as
// the Scripted connector/definition, per SPEC_FULL.md 3), with
// tidwall/gjson exposed to the script for quick body introspection without
// requiring a full JSON unmarshal. Outbound calls are wrapped in
// pkg/attrresilience and optionally pkg/ratelimit. Results may be cached via
// pkg/attrcache keyed by the built request's fingerprint, same as the SQL
// and LDAP connectors.
package httpscript

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"net/http"

	"github.com/tidwall/gjson"

	"github.com/R3E-Network/attribute-engine/attribute"
	"github.com/R3E-Network/attribute-engine/pkg/attrcache"
	"github.com/R3E-Network/attribute-engine/pkg/attrerrors"
	"github.com/R3E-Network/attribute-engine/pkg/attrresilience"
	"github.com/R3E-Network/attribute-engine/pkg/attrscript"
	"github.com/R3E-Network/attribute-engine/pkg/ratelimit"
	"github.com/R3E-Network/attribute-engine/resolver"
)

const defaultMaxResponseSize = 1 << 20 // 1MiB, mirrors the teacher's ClientDefaults.MaxBodyBytes

// RequestBuilder builds the outbound *http.Request from the resolution
// context (e.g. binding the principal/recipient into the URL or body).
type RequestBuilder func(ctx context.Context, rctx *resolver.Context) (*http.Request, error)

// Config collects the Connector's required collaborators and options.
type Config struct {
	Client          *http.Client
	BuildRequest    RequestBuilder
	Script          string // goja script; see pkg/attrscript for the output convention
	MaxResponseSize int64  // 0 -> defaultMaxResponseSize
	CertificateAuthority *x509.CertPool  // optional, appended to the client's TLS trust
	ClientCertificate    *tls.Certificate // optional mTLS client cert
	Limiter              *ratelimit.Limiter // optional
	Breaker              *attrresilience.CircuitBreaker // optional
	Retry                attrresilience.RetryConfig
	Cache                *attrcache.Cache // optional
}

// Connector issues an HTTP call and post-processes the body with a script.
type Connector struct {
	*resolver.BaseConnector

	client          *http.Client
	buildRequest    RequestBuilder
	script          string
	maxResponseSize int64
	limiter         *ratelimit.Limiter
	breaker         *attrresilience.CircuitBreaker
	retry           attrresilience.RetryConfig
	cache           *attrcache.Cache
	engine          *attrscript.Engine
}

// New constructs an HTTP+Script Connector. When cfg carries TLS trust
// material (CertificateAuthority/ClientCertificate), it is applied to
// a cloned transport so the caller's original client is left untouched.
func New(id string, cfg Config) *Connector {
	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}
	if cfg.CertificateAuthority != nil || cfg.ClientCertificate != nil {
		client = withTLSMaterial(client, cfg.CertificateAuthority, cfg.ClientCertificate)
	}

	maxSize := cfg.MaxResponseSize
	if maxSize <= 0 {
		maxSize = defaultMaxResponseSize
	}

	return &Connector{
		BaseConnector:   resolver.NewBaseConnector(id),
		client:          client,
		buildRequest:    cfg.BuildRequest,
		script:          cfg.Script,
		maxResponseSize: maxSize,
		limiter:         cfg.Limiter,
		breaker:         cfg.Breaker,
		retry:           cfg.Retry,
		cache:           cfg.Cache,
		engine:          attrscript.New(0),
	}
}

func withTLSMaterial(base *http.Client, ca *x509.CertPool, clientCert *tls.Certificate) *http.Client {
	transport, ok := base.Transport.(*http.Transport)
	if !ok || transport == nil {
		transport = http.DefaultTransport.(*http.Transport).Clone()
	} else {
		transport = transport.Clone()
	}
	if transport.TLSClientConfig == nil {
		transport.TLSClientConfig = &tls.Config{}
	} else {
		transport.TLSClientConfig = transport.TLSClientConfig.Clone()
	}
	if ca != nil {
		transport.TLSClientConfig.RootCAs = ca
	}
	if clientCert != nil {
		transport.TLSClientConfig.Certificates = []tls.Certificate{*clientCert}
	}

	clone := *base
	clone.Transport = transport
	return &clone
}

// Resolve implements resolver.Connector.
func (c *Connector) Resolve(ctx context.Context, rctx *resolver.Context) (map[string]*attribute.Attribute, error) {
	if c.buildRequest == nil || c.script == "" {
		return nil, attrerrors.Resolution(c.ID(), "HTTP+Script connector missing request builder or script")
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, attrerrors.ResolutionWrap(c.ID(), "rate limiter wait failed", err)
		}
	}

	var cacheKey string
	if c.cache != nil {
		probe, err := c.buildRequest(ctx, rctx)
		if err != nil {
			return nil, attrerrors.ResolutionWrap(c.ID(), "build HTTP request", err)
		}
		fingerprint, err := requestFingerprint(probe)
		if err != nil {
			return nil, attrerrors.ResolutionWrap(c.ID(), "fingerprint HTTP request", err)
		}
		cacheKey = fmt.Sprintf("httpscript:%s:%s", c.ID(), fingerprint)
		if cached, ok := c.cache.Get(cacheKey); ok {
			if attrs, ok := cached.(map[string]*attribute.Attribute); ok {
				return attrs, nil
			}
		}
	}

	var body []byte
	run := func() error {
		req, err := c.buildRequest(ctx, rctx)
		if err != nil {
			return err
		}
		b, err := c.do(req)
		if err != nil {
			return err
		}
		body = b
		return nil
	}

	if c.retry.MaxAttempts > 0 {
		run = wrapRetry(ctx, c.retry, run)
	}
	if c.breaker != nil {
		if err := c.breaker.Execute(ctx, run); err != nil {
			return nil, attrerrors.ResolutionWrap(c.ID(), "HTTP call failed", err)
		}
	} else if err := run(); err != nil {
		return nil, attrerrors.ResolutionWrap(c.ID(), "HTTP call failed", err)
	}

	result, err := c.engine.Eval(c.script, map[string]interface{}{
		"body": string(body),
		"json": func(path string) interface{} {
			return gjson.GetBytes(body, path).Value()
		},
	})
	if err != nil {
		return nil, attrerrors.ResolutionWrap(c.ID(), "HTTP response script failed", err)
	}

	attrs := attributesFromScriptOutput(result.Output)
	if c.cache != nil {
		c.cache.Set(cacheKey, attrs, 0)
	}
	return attrs, nil
}

// requestFingerprint returns a stable cache key for req: its method, URL and
// body. The body is fully read and discarded here; req is only ever used
// for fingerprinting (the actual call rebuilds its own request), so there is
// nothing to restore.
func requestFingerprint(req *http.Request) (string, error) {
	key := req.Method + " " + req.URL.String()
	if req.Body == nil {
		return key, nil
	}
	defer req.Body.Close()
	data, err := io.ReadAll(req.Body)
	if err != nil {
		return "", err
	}
	return key + "|" + string(data), nil
}

func (c *Connector) do(req *http.Request) ([]byte, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("http status %d", resp.StatusCode)
	}

	limited := io.LimitReader(resp.Body, c.maxResponseSize+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > c.maxResponseSize {
		return nil, fmt.Errorf("response exceeded max size of %d bytes", c.maxResponseSize)
	}
	return body, nil
}

func wrapRetry(ctx context.Context, cfg attrresilience.RetryConfig, fn func() error) func() error {
	return func() error {
		return attrresilience.Retry(ctx, cfg, fn)
	}
}

// attributesFromScriptOutput converts a script's output map (attribute id ->
// string or []string) into Attribute values.
func attributesFromScriptOutput(output map[string]interface{}) map[string]*attribute.Attribute {
	if output == nil {
		return nil
	}
	out := make(map[string]*attribute.Attribute, len(output))
	for id, raw := range output {
		out[id] = attribute.New(id, coerceValues(raw)...)
	}
	return out
}

func coerceValues(raw interface{}) []attribute.Value {
	switch v := raw.(type) {
	case string:
		return []attribute.Value{attribute.String(v)}
	case []interface{}:
		values := make([]attribute.Value, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				values = append(values, attribute.String(s))
			}
		}
		return values
	case nil:
		return []attribute.Value{attribute.EmptyNull()}
	default:
		return []attribute.Value{attribute.String(fmt.Sprint(v))}
	}
}
