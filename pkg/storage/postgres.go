package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/peter-kozarec/botplatform/pkg/common"
)

const postgresComponentName = "storage.postgres"

const postgresSchema = `CREATE TABLE IF NOT EXISTS leg_state (
	key TEXT PRIMARY KEY,
	state BYTEA NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

type Postgres struct {
	logger *zap.Logger
	pool   *pgxpool.Pool
}

// OpenPostgres connects a pool to dsn and makes sure the state table exists.
func OpenPostgres(ctx context.Context, logger *zap.Logger, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to create postgres pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to reach postgres: %w", err)
	}

	p := NewPostgres(logger, pool)
	if err := p.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

func NewPostgres(logger *zap.Logger, pool *pgxpool.Pool) *Postgres {
	return &Postgres{
		logger: logger.Named(postgresComponentName),
		pool:   pool,
	}
}

func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("unable to migrate postgres state store: %w", err)
	}
	return nil
}

func (p *Postgres) Save(ctx context.Context, key string, state common.LegState) error {
	if key == "" {
		return ErrEmptyKey
	}

	blob, err := EncodeState(state)
	if err != nil {
		return err
	}

	_, err = p.pool.Exec(ctx,
		`INSERT INTO leg_state (key, state, updated_at) VALUES ($1, $2, now())
		 ON CONFLICT (key) DO UPDATE SET state = EXCLUDED.state, updated_at = now()`,
		key, blob)
	if err != nil {
		return fmt.Errorf("unable to save state %s: %w", key, err)
	}
	return nil
}

func (p *Postgres) Load(ctx context.Context, key string) (common.LegState, bool, error) {
	if key == "" {
		return common.LegState{}, false, ErrEmptyKey
	}

	var blob []byte
	err := p.pool.QueryRow(ctx, `SELECT state FROM leg_state WHERE key = $1`, key).Scan(&blob)
	if errors.Is(err, pgx.ErrNoRows) {
		return common.LegState{}, false, nil
	}
	if err != nil {
		return common.LegState{}, false, fmt.Errorf("unable to load state %s: %w", key, err)
	}

	state, err := DecodeState(blob)
	if err != nil {
		return common.LegState{}, false, err
	}
	return state, true, nil
}

func (p *Postgres) Close() {
	p.pool.Close()
}
