package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/cursograph/pkg/cache"
	"github.com/matzehuels/cursograph/pkg/errors"
	"github.com/matzehuels/cursograph/pkg/httputil"
	"github.com/matzehuels/cursograph/pkg/observability"
)

const (
	httpTimeout  = 15 * time.Second
	maxBodyBytes = 32 << 20

	// HeaderRequestID carries the per-request correlation id.
	HeaderRequestID = "X-Request-ID"

	cacheNamespace = "backend"
)

// Options configures a [Client].
type Options struct {
	BaseURL   string    // backend root, e.g. https://api.example.edu
	Token     string    // bearer token; empty sends no Authorization header
	Selectors Selectors // nil means DefaultSelectors

	HTTP   *http.Client    // nil means a client with a 15s timeout
	Retry  httputil.Policy // zero means httputil.DefaultPolicy
	Logger *log.Logger     // nil discards

	// Cache, when set, stores fetched bodies for CacheTTL so repeated
	// one-shot commands do not hit the backend.
	Cache    cache.Cache
	Keyer    cache.Keyer
	CacheTTL time.Duration
}

// Client fetches raw records for a selector.
type Client struct {
	base      *url.URL
	token     string
	selectors Selectors
	http      *http.Client
	retry     httputil.Policy
	logger    *log.Logger
	cache     cache.Cache
	keyer     cache.Keyer
	cacheTTL  time.Duration
}

// NewClient validates opts and returns a client. An empty or non-absolute
// BaseURL is an INVALID_CONFIG error.
func NewClient(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "backend url %q must be absolute", opts.BaseURL)
	}
	c := &Client{
		base:      base,
		token:     opts.Token,
		selectors: opts.Selectors,
		http:      opts.HTTP,
		retry:     opts.Retry,
		logger:    opts.Logger,
		cache:     opts.Cache,
		keyer:     opts.Keyer,
		cacheTTL:  opts.CacheTTL,
	}
	if c.selectors == nil {
		c.selectors = DefaultSelectors()
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: httpTimeout}
	}
	if c.retry.Attempts == 0 {
		c.retry = httputil.DefaultPolicy
	}
	if c.logger == nil {
		c.logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if c.cache == nil {
		c.cache = cache.NewNullCache()
	}
	if c.keyer == nil {
		c.keyer = cache.NewDefaultKeyer()
	}
	if c.cacheTTL <= 0 {
		c.cacheTTL = cache.TTLHTTP
	}
	return c, nil
}

// Selectors returns the client's selectors.
func (c *Client) Selectors() Selectors { return c.selectors }

// Selector resolves name against the client's selectors.
func (c *Client) Selector(name string) (Selector, error) { return c.selectors.Lookup(name) }

// Fetch GETs the records behind selector name and returns the raw body.
//
// Network failures and 5xx responses are retried under the client's policy.
// A 404 is NOT_FOUND, 401 and 403 are UNAUTHORIZED, and any other non-2xx
// is NETWORK_ERROR. Context cancellation is returned as ctx.Err().
func (c *Client) Fetch(ctx context.Context, name string) ([]byte, error) {
	sel, err := c.Selector(name)
	if err != nil {
		return nil, err
	}
	var body []byte
	err = c.retry.Do(ctx, func() error {
		var err error
		body, err = c.get(ctx, sel.Path)
		return err
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	return body, nil
}

// Cached is Fetch through the client's cache. With refresh set the cache is
// bypassed but still updated.
func (c *Client) Cached(ctx context.Context, name string, refresh bool) ([]byte, error) {
	key := c.keyer.HTTPKey(cacheNamespace, name)
	if !refresh {
		if data, ok, err := c.cache.Get(ctx, key); err == nil && ok {
			observability.Cache().OnCacheHit(ctx, cache.KeyTypeHTTP)
			return data, nil
		}
		observability.Cache().OnCacheMiss(ctx, cache.KeyTypeHTTP)
	}
	data, err := c.Fetch(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(ctx, key, data, c.cacheTTL); err != nil {
		c.logger.Warn("cache write failed", "selector", name, "err", err)
	} else {
		observability.Cache().OnCacheSet(ctx, cache.KeyTypeHTTP, len(data))
	}
	return data, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	u := c.base.JoinPath(path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "build request for %s", path)
	}
	reqID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(HeaderRequestID, reqID)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	hooks := observability.HTTP()
	hooks.OnRequest(ctx, req.Method, u.Host, u.Path)
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		hooks.OnError(ctx, req.Method, u.Host, u.Path, err)
		c.logger.Debug("backend request failed", "path", u.Path, "request_id", reqID, "err", err)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, httputil.Retryable(errors.Wrap(errors.ErrCodeNetwork, err, "GET %s", u.Path))
	}
	defer resp.Body.Close()
	hooks.OnResponse(ctx, req.Method, u.Host, u.Path, resp.StatusCode, time.Since(start))
	c.logger.Debug("backend response", "path", u.Path, "status", resp.StatusCode, "request_id", reqID)

	if err := checkStatus(resp.StatusCode, u.Path); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, httputil.Retryable(errors.Wrap(errors.ErrCodeNetwork, err, "read %s", u.Path))
	}
	if len(data) > maxBodyBytes {
		return nil, errors.New(errors.ErrCodeInvalidInput, "response from %s exceeds %d bytes", u.Path, maxBodyBytes)
	}
	return data, nil
}

func checkStatus(code int, path string) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return errors.New(errors.ErrCodeNotFound, "%s not found", path)
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		return errors.New(errors.ErrCodeUnauthorized, "backend rejected credentials for %s (status %d)", path, code)
	case code >= 500:
		return httputil.Retryable(errors.New(errors.ErrCodeNetwork, "backend error on %s: status %d", path, code))
	default:
		return errors.New(errors.ErrCodeNetwork, "unexpected status %d from %s", code, path)
	}
}

// String describes the client for logs.
func (c *Client) String() string { return fmt.Sprintf("source.Client(%s)", c.base) }
