package crypto

import (
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/felipeadeildo/insper-sync/internal/syncerr"
)

// cacheTTL is the bounded TTL the portal's public key is held for
// before a refetch is attempted.
const cacheTTL = 1 * time.Hour

// PublicKeyCache fetches and caches the portal's PEM-encoded RSA public
// key. The cache is process-wide, read-mostly, and tolerates a racing
// double-fetch on miss: both writers produce identical bytes, so no
// mutex is required around the fetch itself (spec §9).
type PublicKeyCache struct {
	baseURL    string
	httpClient *http.Client

	mu      sync.RWMutex
	key     []byte
	expires time.Time
}

// NewPublicKeyCache builds a cache against baseURL (e.g.
// "https://sga.insper.edu.br") using client for the warm-up and key
// fetch requests. client must not set a User-Agent header (the portal
// blocks requests that carry one).
func NewPublicKeyCache(baseURL string, client *http.Client) *PublicKeyCache {
	return &PublicKeyCache{baseURL: baseURL, httpClient: client}
}

// GetPublicKey returns the cached PEM-encoded public key, fetching it
// if absent or expired. An HTTP non-200 response surfaces as a
// CryptoError and does not populate the cache.
func (c *PublicKeyCache) GetPublicKey() ([]byte, error) {
	if key, ok := c.cached(); ok {
		return key, nil
	}
	return c.fetch()
}

func (c *PublicKeyCache) cached() ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.key == nil || time.Now().After(c.expires) {
		return nil, false
	}
	return c.key, true
}

func (c *PublicKeyCache) fetch() ([]byte, error) {
	// Warm-up GET so the portal issues the session cookies it expects
	// to see on the subsequent key fetch.
	warmup, err := c.httpClient.Get(c.baseURL + "/AOnline/auth")
	if err != nil {
		return nil, syncerr.NewCryptoError("public key warm-up", err)
	}
	warmup.Body.Close()

	resp, err := c.httpClient.Get(c.baseURL + "/AOnline/config-properties/public-key")
	if err != nil {
		return nil, syncerr.NewCryptoError("public key fetch", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, syncerr.NewCryptoError("public key fetch", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, syncerr.NewCryptoError("public key fetch", err)
	}

	c.mu.Lock()
	c.key = body
	c.expires = time.Now().Add(cacheTTL)
	c.mu.Unlock()

	return body, nil
}
