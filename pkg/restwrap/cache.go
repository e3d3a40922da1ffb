package restwrap

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/fivetwenty-io/restwrap/internal/constants"
)

// Static errors for err113 compliance.
var (
	ErrKeyNotFound  = errors.New("key not found")
	ErrEntryExpired = errors.New("entry expired")
)

// Cache stores raw responses keyed by request.
type Cache interface {
	Get(ctx context.Context, key string) (*CacheEntry, error)
	Set(ctx context.Context, key string, entry *CacheEntry) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Has(ctx context.Context, key string) bool
}

// CacheEntry is one cached response.
type CacheEntry struct {
	StatusCode int         `json:"status_code"`
	Headers    http.Header `json:"headers,omitempty"`
	Data       []byte      `json:"data"`
	ETag       string      `json:"etag,omitempty"`
	StoredAt   time.Time   `json:"stored_at"`
	ExpiresAt  time.Time   `json:"expires_at"`
}

// Expired reports whether the entry is past its expiry.
func (e *CacheEntry) Expired() bool {
	return !e.ExpiresAt.IsZero() && time.Now().After(e.ExpiresAt)
}

// CacheOptions are applied by CachingTransport whatever the backend.
type CacheOptions struct {
	// TTL is how long a response stays valid.
	TTL time.Duration `mapstructure:"ttl" yaml:"ttl"`
	// KeyPrefix namespaces keys, e.g. per API.
	KeyPrefix string `mapstructure:"key_prefix" yaml:"key_prefix"`
}

// DefaultCacheOptions returns default cache options.
func DefaultCacheOptions() *CacheOptions {
	return &CacheOptions{
		TTL: constants.DefaultCacheTTL,
	}
}

// MemoryCache is an in-process Cache bounded to maxSize entries. The oldest
// entry is evicted first.
type MemoryCache struct {
	mutex   sync.RWMutex
	entries map[string]*CacheEntry
	order   []string
	maxSize int
}

// NewMemoryCache creates a memory cache holding at most maxSize entries.
func NewMemoryCache(maxSize int) *MemoryCache {
	if maxSize <= 0 {
		maxSize = constants.DefaultCacheSize
	}

	return &MemoryCache{
		entries: make(map[string]*CacheEntry),
		maxSize: maxSize,
	}
}

// Get returns a live entry.
func (c *MemoryCache) Get(ctx context.Context, key string) (*CacheEntry, error) {
	c.mutex.RLock()
	entry, ok := c.entries[key]
	c.mutex.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}

	if entry.Expired() {
		_ = c.Delete(ctx, key)

		return nil, fmt.Errorf("%w: %s", ErrEntryExpired, key)
	}

	return entry, nil
}

// Set stores an entry, evicting the oldest one when full.
func (c *MemoryCache) Set(ctx context.Context, key string, entry *CacheEntry) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if _, exists := c.entries[key]; !exists {
		if len(c.order) >= c.maxSize {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.entries, oldest)
		}

		c.order = append(c.order, key)
	}

	c.entries[key] = entry

	return nil
}

// Delete removes an entry.
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if _, exists := c.entries[key]; !exists {
		return nil
	}

	delete(c.entries, key)

	for i, existing := range c.order {
		if existing == key {
			c.order = append(c.order[:i], c.order[i+1:]...)

			break
		}
	}

	return nil
}

// Clear removes every entry.
func (c *MemoryCache) Clear(ctx context.Context) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries = make(map[string]*CacheEntry)
	c.order = nil

	return nil
}

// Has reports whether a live entry exists.
func (c *MemoryCache) Has(ctx context.Context, key string) bool {
	_, err := c.Get(ctx, key)

	return err == nil
}

// Len returns the number of stored entries, expired ones included.
func (c *MemoryCache) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return len(c.entries)
}

// CachingTransport serves repeated successful GET requests from cache.
// Other methods and non-2xx answers always reach next.
type CachingTransport struct {
	next        Transport
	cache       Cache
	options     *CacheOptions
	credentials TokenSource
}

// NewCachingTransport wraps next with cache. Nil options use DefaultCacheOptions.
func NewCachingTransport(next Transport, cache Cache, options *CacheOptions) *CachingTransport {
	if options == nil {
		options = DefaultCacheOptions()
	}

	return &CachingTransport{next: next, cache: cache, options: options}
}

// WithCredentials scopes keys of requests without an Authorization header to
// the current token of source. Use it when next authenticates the request
// itself, so callers holding different tokens never share entries.
func (t *CachingTransport) WithCredentials(source TokenSource) *CachingTransport {
	t.credentials = source

	return t
}

// CacheKey derives the storage key of a request. Keys are hex digests so they
// are valid for every backend.
func (t *CachingTransport) CacheKey(req *RawRequest) string {
	return t.cacheKey(req, req.Headers.Get("Authorization"))
}

func (t *CachingTransport) cacheKey(req *RawRequest, authorization string) string {
	material, _ := json.Marshal([]string{
		string(req.Method),
		req.URL,
		req.Headers.Get("Accept"),
		authorization,
	})
	sum := sha256.Sum256(material)

	return t.options.KeyPrefix + hex.EncodeToString(sum[:])
}

func (t *CachingTransport) requestKey(ctx context.Context, req *RawRequest) (string, error) {
	authorization := req.Headers.Get("Authorization")
	if authorization == "" && t.credentials != nil {
		token, err := t.credentials.GetToken(ctx)
		if err != nil {
			return "", err
		}

		authorization = "Bearer " + token
	}

	return t.cacheKey(req, authorization), nil
}

// Send implements Transport.
func (t *CachingTransport) Send(ctx context.Context, req *RawRequest) (*RawResponse, error) {
	if req.Method != MethodGet {
		return t.next.Send(ctx, req)
	}

	key, err := t.requestKey(ctx, req)
	if err != nil {
		return t.next.Send(ctx, req)
	}

	entry, err := t.cache.Get(ctx, key)
	if err == nil {
		return &RawResponse{
			StatusCode: entry.StatusCode,
			Headers:    entry.Headers.Clone(),
			Body:       entry.Data,
		}, nil
	}

	resp, err := t.next.Send(ctx, req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		now := time.Now()
		_ = t.cache.Set(ctx, key, &CacheEntry{
			StatusCode: resp.StatusCode,
			Headers:    resp.Headers.Clone(),
			Data:       resp.Body,
			ETag:       resp.Headers.Get("ETag"),
			StoredAt:   now,
			ExpiresAt:  now.Add(t.options.TTL),
		})
	}

	return resp, nil
}
