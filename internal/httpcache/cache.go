package httpcache

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
)

type entry struct {
	key      string
	status   int
	header   http.Header
	body     []byte
	etag     string
	storedAt time.Time
}

func (e entry) fresh(ttl time.Duration, now time.Time) bool {
	return ttl > 0 && now.Sub(e.storedAt) < ttl
}

// Cache is a bounded LRU of GET responses.
type Cache struct {
	ttl        time.Duration
	maxEntries int

	mu      sync.Mutex
	entries map[string]*list.Element
	lru     *list.List // front = most recently used
}

func New(ttl time.Duration, maxEntries int) *Cache {
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    map[string]*list.Element{},
		lru:        list.New(),
	}
}

func (c *Cache) lookup(key string) (entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.entries[key]
	if !ok {
		return entry{}, false
	}
	c.lru.MoveToFront(el)
	return el.Value.(entry), true
}

func (c *Cache) store(key string, status int, header http.Header, body []byte, now time.Time) entry {
	ent := entry{
		key:      key,
		status:   status,
		header:   cloneHeader(header),
		body:     append([]byte(nil), body...),
		etag:     strings.TrimSpace(header.Get("ETag")),
		storedAt: now,
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[key]; ok {
		el.Value = ent
		c.lru.MoveToFront(el)
		return ent
	}
	c.entries[key] = c.lru.PushFront(ent)

	for c.lru.Len() > c.maxEntries {
		back := c.lru.Back()
		delete(c.entries, back.Value.(entry).key)
		c.lru.Remove(back)
	}
	return ent
}

func (c *Cache) refresh(key string, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[key]; ok {
		ent := el.Value.(entry)
		ent.storedAt = now
		el.Value = ent
		c.lru.MoveToFront(el)
	}
}

func (c *Cache) forget(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[key]; ok {
		delete(c.entries, key)
		c.lru.Remove(el)
	}
}

// purge drops every entry stored under the credential fingerprint fp.
func (c *Cache) purge(fp string) {
	suffix := " " + fp
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, el := range c.entries {
		if strings.HasSuffix(key, suffix) {
			delete(c.entries, key)
			c.lru.Remove(el)
		}
	}
}

// Len returns the number of cached responses.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

func cloneHeader(h http.Header) http.Header {
	out := make(http.Header, len(h))
	for k, vv := range h {
		out[k] = append([]string(nil), vv...)
	}
	return out
}

// fingerprint hashes the named request headers so entries never leak across credentials.
func fingerprint(h http.Header, keys []string) string {
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		k = http.CanonicalHeaderKey(strings.TrimSpace(k))
		if v := strings.TrimSpace(h.Get(k)); k != "" && v != "" {
			pairs = append(pairs, k+"\x00"+v)
		}
	}
	sort.Strings(pairs)

	sum := sha256.New()
	for _, p := range pairs {
		sum.Write([]byte(p))
		sum.Write([]byte{0})
	}
	return hex.EncodeToString(sum.Sum(nil))
}
