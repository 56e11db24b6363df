// Package redis stores search enrichments in Redis so repeated identifications of the
// same species skip the external search round trip.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kirillkom/plant-id-assistant/internal/core/domain"
)

const defaultPrefix = "plantid:"

type EnrichmentCache struct {
	client goredis.UniversalClient
	prefix string
}

func New(addr string) *EnrichmentCache {
	return NewWithClient(goredis.NewClient(&goredis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
	}))
}

func NewWithClient(client goredis.UniversalClient) *EnrichmentCache {
	return &EnrichmentCache{client: client, prefix: defaultPrefix}
}

func (c *EnrichmentCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *EnrichmentCache) Close() error {
	return c.client.Close()
}

// Get treats every failure as a miss.
func (c *EnrichmentCache) Get(ctx context.Context, key string) (domain.Enrichment, bool) {
	raw, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return domain.Enrichment{}, false
	}
	if err != nil {
		slog.Warn("enrichment_cache_get_failed", "key", key, "error", err)
		return domain.Enrichment{}, false
	}

	var value domain.Enrichment
	if err := json.Unmarshal(raw, &value); err != nil {
		slog.Warn("enrichment_cache_decode_failed", "key", key, "error", err)
		return domain.Enrichment{}, false
	}
	return value, true
}

func (c *EnrichmentCache) Set(ctx context.Context, key string, value domain.Enrichment, ttl time.Duration) {
	raw, err := json.Marshal(value)
	if err != nil {
		slog.Warn("enrichment_cache_encode_failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, c.prefix+key, string(raw), jitterTTL(ttl)).Err(); err != nil {
		slog.Warn("enrichment_cache_set_failed", "key", key, "error", err)
	}
}

// jitterTTL spreads expiry by up to 10% so entries written together do not expire together.
func jitterTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 0
	}
	jitter := float64(ttl) * 0.1 * (rand.Float64()*2 - 1)
	return ttl + time.Duration(jitter)
}
