package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Cache caches normalized provider records so that repeated pipeline runs
// within the TTL do not re-issue provider requests.
type Cache struct {
	client *Client
	prefix string
}

// TTLProvider is how long a cached provider record stays fresh.
// Government series update monthly at most; one hour is conservative.
const TTLProvider = 1 * time.Hour

// NewCache creates a new cache helper.
func NewCache(client *Client, prefix string) *Cache {
	return &Cache{
		client: client,
		prefix: prefix,
	}
}

// Get retrieves a cached value. A miss is not an error.
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !c.client.Enabled() {
		return false, nil
	}

	fullKey := fmt.Sprintf("%s:cache:%s", c.prefix, key)
	data, err := c.client.Redis().Get(ctx, fullKey).Bytes()
	if err != nil {
		return false, nil
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("cache unmarshal failed: %w", err)
	}

	return true, nil
}

// Set stores a value in cache with TTL.
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !c.client.Enabled() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal failed: %w", err)
	}

	fullKey := fmt.Sprintf("%s:cache:%s", c.prefix, key)
	return c.client.Redis().Set(ctx, fullKey, data, ttl).Err()
}

// ProviderKey builds the cache key for one provider record.
func ProviderKey(provider, regionCode string) string {
	return fmt.Sprintf("provider:%s:%s", provider, regionCode)
}
