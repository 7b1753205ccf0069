package repo

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/charliechat-core/server/internal/agent/model"
	errx "github.com/charliechat-core/server/internal/core/error"
	logx "github.com/charliechat-core/server/pkg/logger"
)

// CachedRetriever decorates a Retriever with a Redis read-through cache.
// Cache faults are logged and never fail the retrieval.
type CachedRetriever struct {
	inner  model.Retriever
	rdb    redis.Cmdable
	ttl    time.Duration
	baseID string
	group  singleflight.Group
}

func NewCachedRetriever(inner model.Retriever, rdb redis.Cmdable, baseID string, ttl time.Duration) *CachedRetriever {
	return &CachedRetriever{inner: inner, rdb: rdb, ttl: ttl, baseID: baseID}
}

var _ model.Retriever = (*CachedRetriever)(nil)

func (r *CachedRetriever) passagesKey(query string, k int) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(query))))
	return fmt.Sprintf("knowledge:%s:%d:%s", r.baseID, k, hex.EncodeToString(sum[:16]))
}

func (r *CachedRetriever) Retrieve(ctx context.Context, query string, k int) ([]model.Passage, error) {
	key := r.passagesKey(query, k)

	cached, err := r.load(ctx, key)
	if err == nil {
		logx.Debug().Str("key", key).Int("count", len(cached)).Msg("knowledge cache hit")
		return cached, nil
	}
	if !errors.Is(err, redis.Nil) {
		logx.Warn().Err(err).Str("key", key).Msg("knowledge cache read failed")
	}

	v, err, _ := r.group.Do(key, func() (any, error) {
		passages, err := r.inner.Retrieve(ctx, query, k)
		if err != nil {
			return nil, err
		}
		if len(passages) > 0 {
			if err := r.store(ctx, key, passages); err != nil {
				logx.Warn().Err(err).Str("key", key).Msg("knowledge cache write failed")
			}
		}
		return passages, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]model.Passage), nil
}

func (r *CachedRetriever) load(ctx context.Context, key string) ([]model.Passage, error) {
	raw, err := r.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil, errx.WrapRedis(err)
	}
	var passages []model.Passage
	if err := json.Unmarshal(raw, &passages); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to unmarshal cached passages")
		return nil, fmt.Errorf("unmarshal cached passages: %w", err)
	}
	return passages, nil
}

func (r *CachedRetriever) store(ctx context.Context, key string, passages []model.Passage) error {
	b, err := json.Marshal(passages)
	if err != nil {
		return fmt.Errorf("marshal passages: %w", err)
	}
	if err := r.rdb.Set(ctx, key, b, r.ttl).Err(); err != nil {
		return errx.WrapRedis(err)
	}
	return nil
}
