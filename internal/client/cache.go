package client

import (
	"net/http"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// Cache holds one http.Client per keystore path. Concurrent first use of a
// path builds the client once; later calls return the cached value.
type Cache struct {
	mu      sync.RWMutex
	clients map[string]*http.Client
	group   singleflight.Group
}

// NewCache returns an empty Cache.
func NewCache() *Cache {
	return &Cache{clients: make(map[string]*http.Client)}
}

// Get returns the client cached under key, calling build when there is none.
// A failed build is not cached.
func (c *Cache) Get(key string, build func() (*http.Client, error)) (*http.Client, error) {
	if hc, ok := c.lookup(key); ok {
		return hc, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		if hc, ok := c.lookup(key); ok {
			return hc, nil
		}
		hc, err := build()
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.clients[key] = hc
		c.mu.Unlock()

		log.Debug().
			Str("event", "http_client_built").
			Str("keystore", key).
			Msg("http client cached")

		return hc, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*http.Client), nil
}

// Len reports how many clients are cached.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.clients)
}

func (c *Cache) lookup(key string) (*http.Client, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	hc, ok := c.clients[key]

	return hc, ok
}
