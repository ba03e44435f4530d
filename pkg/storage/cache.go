package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/peter-kozarec/botplatform/pkg/common"
)

const cacheComponentName = "storage.cache"

const DefaultCacheTTL = 10 * time.Minute

// CachedStore puts a redis read-through cache in front of a primary store. Writes go to the
// primary first. Cache failures are logged and never fail a call.
type CachedStore struct {
	logger  *zap.Logger
	primary StateStore
	rdb     redis.Cmdable
	ttl     time.Duration
	prefix  string
}

type CacheOption func(*CachedStore)

func WithCacheTTL(ttl time.Duration) CacheOption {
	return func(c *CachedStore) {
		c.ttl = ttl
	}
}

func WithCachePrefix(prefix string) CacheOption {
	return func(c *CachedStore) {
		c.prefix = prefix
	}
}

func NewCachedStore(logger *zap.Logger, primary StateStore, rdb redis.Cmdable, options ...CacheOption) *CachedStore {
	c := &CachedStore{
		logger:  logger.Named(cacheComponentName),
		primary: primary,
		rdb:     rdb,
		ttl:     DefaultCacheTTL,
		prefix:  "legstate:",
	}

	for _, option := range options {
		option(c)
	}

	return c
}

func (c *CachedStore) Save(ctx context.Context, key string, state common.LegState) error {
	if err := c.primary.Save(ctx, key, state); err != nil {
		return err
	}
	c.cache(ctx, key, state)
	return nil
}

func (c *CachedStore) Load(ctx context.Context, key string) (common.LegState, bool, error) {
	if key == "" {
		return common.LegState{}, false, ErrEmptyKey
	}

	blob, err := c.rdb.Get(ctx, c.key(key)).Bytes()
	switch {
	case err == nil:
		if state, err := DecodeState(blob); err == nil {
			return state, true, nil
		}
		c.logger.Warn("dropping undecodable cache entry", zap.String("key", key))
		c.rdb.Del(ctx, c.key(key))
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
	}

	state, ok, err := c.primary.Load(ctx, key)
	if err != nil || !ok {
		return state, ok, err
	}

	c.cache(ctx, key, state)
	return state, true, nil
}

func (c *CachedStore) cache(ctx context.Context, key string, state common.LegState) {
	blob, err := EncodeState(state)
	if err != nil {
		c.logger.Warn("unable to encode cache entry", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.rdb.Set(ctx, c.key(key), blob, c.ttl).Err(); err != nil {
		c.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *CachedStore) key(key string) string {
	return fmt.Sprintf("%s%s", c.prefix, key)
}
