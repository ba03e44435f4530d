package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/peter-kozarec/botplatform/pkg/common"
)

const sqliteComponentName = "storage.sqlite"

const sqliteSchema = `CREATE TABLE IF NOT EXISTS leg_state (
	key TEXT PRIMARY KEY,
	state BLOB NOT NULL,
	updated_unix_millis INTEGER NOT NULL
)`

type SQLite struct {
	logger *zap.Logger
	db     *sql.DB
}

func OpenSQLite(ctx context.Context, logger *zap.Logger, path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("unable to create state directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("unable to open sqlite state store: %w", err)
	}
	// a single connection serializes writers and keeps :memory: databases shared
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("unable to migrate sqlite state store: %w", err)
	}

	s := &SQLite{
		logger: logger.Named(sqliteComponentName),
		db:     db,
	}
	s.logger.Info("state store opened", zap.String("path", path))
	return s, nil
}

func (s *SQLite) Save(ctx context.Context, key string, state common.LegState) error {
	if key == "" {
		return ErrEmptyKey
	}

	blob, err := EncodeState(state)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO leg_state (key, state, updated_unix_millis) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET state = excluded.state, updated_unix_millis = excluded.updated_unix_millis`,
		key, blob, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("unable to save state %s: %w", key, err)
	}
	return nil
}

func (s *SQLite) Load(ctx context.Context, key string) (common.LegState, bool, error) {
	if key == "" {
		return common.LegState{}, false, ErrEmptyKey
	}

	var blob []byte
	err := s.db.QueryRowContext(ctx, `SELECT state FROM leg_state WHERE key = ?`, key).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
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

func (s *SQLite) Close() error {
	return s.db.Close()
}
