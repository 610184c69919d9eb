// Package httpcache provides an opt-in caching RoundTripper for read-only
// Hookbase API calls.
package httpcache

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultTTL        = 30 * time.Second
	defaultMaxEntries = 256
)

type Config struct {
	Enabled    bool
	TTL        time.Duration
	MaxEntries int
}

// ConfigFromEnv reads HOOKBASE_HTTP_CACHE_* over base.
func ConfigFromEnv(base Config) Config {
	cfg := base
	if cfg.TTL == 0 {
		cfg.TTL = defaultTTL
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = defaultMaxEntries
	}

	if v := strings.TrimSpace(os.Getenv("HOOKBASE_HTTP_CACHE_ENABLED")); v != "" {
		cfg.Enabled = v == "1" || strings.EqualFold(v, "true") || strings.EqualFold(v, "yes")
	}
	if v := strings.TrimSpace(os.Getenv("HOOKBASE_HTTP_CACHE_TTL_SECONDS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.TTL = time.Duration(n) * time.Second
		}
	}
	if v := strings.TrimSpace(os.Getenv("HOOKBASE_HTTP_CACHE_MAX_ENTRIES")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxEntries = n
		}
	}
	return cfg
}

// Transport serves fresh GET responses from the cache and revalidates stale
// ones with If-None-Match. Only 2xx responses are stored.
type Transport struct {
	base  http.RoundTripper
	cache *Cache
	now   func() time.Time

	keyHeaders []string
}

// NewTransport wraps base. When cfg is disabled, base is returned unchanged.
func NewTransport(base http.RoundTripper, cfg Config) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	if !cfg.Enabled {
		return base
	}
	return &Transport{
		base:       base,
		cache:      New(cfg.TTL, cfg.MaxEntries),
		now:        time.Now,
		keyHeaders: []string{"Authorization", "Accept"},
	}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, fmt.Errorf("httpcache: nil request")
	}
	fp := fingerprint(req.Header, t.keyHeaders)
	if req.Method != http.MethodGet {
		resp, err := t.base.RoundTrip(req)
		if err == nil {
			// any write may change what a cached read would return
			t.cache.purge(fp)
		}
		return resp, err
	}

	key := req.Method + " " + req.URL.String() + " " + fp

	ent, ok := t.cache.lookup(key)
	if ok && ent.fresh(t.cache.ttl, t.now()) {
		return cachedResponse(req, ent), nil
	}

	out := req
	if ok && ent.etag != "" {
		out = req.Clone(req.Context())
		out.Header.Set("If-None-Match", ent.etag)
	}

	resp, err := t.base.RoundTrip(out)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if ok && resp.StatusCode == http.StatusNotModified {
		t.cache.refresh(key, t.now())
		return cachedResponse(req, ent), nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		t.cache.store(key, resp.StatusCode, resp.Header, body, t.now())
	} else {
		t.cache.forget(key)
	}
	return withBody(req, resp, body), nil
}

func withBody(req *http.Request, resp *http.Response, body []byte) *http.Response {
	return &http.Response{
		StatusCode:    resp.StatusCode,
		Status:        resp.Status,
		Header:        cloneHeader(resp.Header),
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       req,
		Proto:         resp.Proto,
		ProtoMajor:    resp.ProtoMajor,
		ProtoMinor:    resp.ProtoMinor,
	}
}

func cachedResponse(req *http.Request, ent entry) *http.Response {
	return &http.Response{
		StatusCode:    ent.status,
		Status:        fmt.Sprintf("%d %s", ent.status, http.StatusText(ent.status)),
		Header:        cloneHeader(ent.header),
		Body:          io.NopCloser(bytes.NewReader(ent.body)),
		ContentLength: int64(len(ent.body)),
		Request:       req,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
	}
}
