package store

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"veristry/pkg/platform/sentinel"
)

var consumeDurationMs = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "veristry_digest_consume_duration_ms",
	Help:    "Latency of digest check-and-consume in milliseconds",
	Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
})

// Redis key prefix for consumed digests.
const consumedDigestKeyPrefix = "cds:digest:"

// Redis is a Redis-backed digest store for deployments where multiple
// instances must share the consumed-digest set. SETNX gives the atomic
// check-then-set; keys carry no TTL because consumption is permanent.
type Redis struct {
	client *redis.Client
}

// NewRedis constructs a Redis-backed digest store.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (s *Redis) Consume(ctx context.Context, digest common.Hash) error {
	start := time.Now()
	defer func() {
		consumeDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	// Store "1" as a simple marker; key existence is what matters.
	ok, err := s.client.SetNX(ctx, consumedDigestKeyPrefix+digest.Hex(), "1", 0).Result()
	if err != nil {
		return fmt.Errorf("consume digest: %w", err)
	}
	if !ok {
		return sentinel.ErrAlreadyUsed
	}
	return nil
}

func (s *Redis) IsConsumed(ctx context.Context, digest common.Hash) (bool, error) {
	n, err := s.client.Exists(ctx, consumedDigestKeyPrefix+digest.Hex()).Result()
	if err != nil {
		return false, fmt.Errorf("check digest: %w", err)
	}
	return n > 0, nil
}

func (s *Redis) Release(ctx context.Context, digest common.Hash) error {
	if err := s.client.Del(ctx, consumedDigestKeyPrefix+digest.Hex()).Err(); err != nil {
		return fmt.Errorf("release digest: %w", err)
	}
	return nil
}
