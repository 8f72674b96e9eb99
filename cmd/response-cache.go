package main

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// responseCache is a read-through cache over redis for upstream archive
// responses.  it is strictly best-effort: when redis is unconfigured,
// unreachable, or holds something undecodable, callers simply go to the
// archive directly.  facet payloads expire in minutes (they track the
// term), item metadata and manifests in hours (they are effectively
// static).

type responseCache struct {
	client      *redis.Client
	facetExpire time.Duration
	itemExpire  time.Duration
}

// newResponseCache connects to redis if a host is configured; otherwise it
// returns a disabled cache whose lookups always miss.
func newResponseCache(cfg *serviceConfigCache) *responseCache {
	c := responseCache{
		facetExpire: time.Duration(integerWithMinimum(cfg.FacetExpireMinutes, 1)) * time.Minute,
		itemExpire:  time.Duration(integerWithMinimum(cfg.ItemExpireHours, 1)) * time.Hour,
	}

	if cfg.RedisHost == "" {
		log.Printf("[CACHE] no redis host configured; response caching is disabled")
		return &c
	}

	c.client = redis.NewClient(&redis.Options{
		Addr:     cfg.RedisHost,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})

	log.Printf("[CACHE] using redis at %s (db %d)", cfg.RedisHost, cfg.RedisDB)

	return &c
}

func (c *responseCache) enabled() bool {
	return c.client != nil
}

// get attempts a cache hit, decoding into out.  any failure is a miss.
func (c *responseCache) get(ctx context.Context, key string, out interface{}) bool {
	if c.client == nil {
		return false
	}

	payload, err := c.client.Get(ctx, key).Bytes()

	if err == redis.Nil {
		return false
	}

	if err != nil {
		log.Printf("[CACHE] GET %s failed: %s", key, err.Error())
		return false
	}

	if jsonErr := json.Unmarshal(payload, out); jsonErr != nil {
		log.Printf("[CACHE] unmarshal for %s failed: %s", key, jsonErr.Error())
		return false
	}

	return true
}

// set stores a value with the given expiration.  failures are logged and
// otherwise ignored.
func (c *responseCache) set(ctx context.Context, key string, val interface{}, expire time.Duration) {
	if c.client == nil {
		return
	}

	payload, jsonErr := json.Marshal(val)
	if jsonErr != nil {
		log.Printf("[CACHE] marshal for %s failed: %s", key, jsonErr.Error())
		return
	}

	if err := c.client.Set(ctx, key, payload, expire).Err(); err != nil {
		log.Printf("[CACHE] SET %s failed: %s", key, err.Error())
	}
}
