package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/peter-kozarec/botplatform/internal/config"
	"github.com/peter-kozarec/botplatform/pkg/storage"
)

// openStore returns the configured leg state store, fronted by redis when an address is set,
// together with a function that releases it.
func openStore(ctx context.Context, logger *zap.Logger, cfg config.StateConfig) (storage.StateStore, func(), error) {
	var (
		store   storage.StateStore
		closers []func()
	)

	switch cfg.Backend {
	case config.StateMemory, "":
		store = storage.NewMemory()
	case config.StateSQLite:
		s, err := storage.OpenSQLite(ctx, logger, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		store = s
		closers = append(closers, func() {
			if err := s.Close(); err != nil {
				logger.Warn("unable to close sqlite state store", zap.Error(err))
			}
		})
	case config.StatePostgres:
		p, err := storage.OpenPostgres(ctx, logger, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		store = p
		closers = append(closers, p.Close)
	default:
		return nil, nil, fmt.Errorf("%w: unknown state backend %q", config.ErrInvalidConfig, cfg.Backend)
	}

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		store = storage.NewCachedStore(logger, store, rdb, storage.WithCacheTTL(cfg.RedisTTL))
		closers = append(closers, func() {
			if err := rdb.Close(); err != nil {
				logger.Warn("unable to close redis client", zap.Error(err))
			}
		})
	}

	return store, func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}, nil
}
