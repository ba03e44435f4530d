package historical

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/peter-kozarec/botplatform/pkg/bus"
	"github.com/peter-kozarec/botplatform/pkg/datasource"
)

type recorder struct {
	mu     sync.Mutex
	events []bus.Event
}

func (r *recorder) Publish(ev bus.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "replay.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`CREATE TABLE snapshots (symbol TEXT, ts INTEGER, price REAL, bid TEXT, ask TEXT)`)
	require.NoError(t, err)

	rows := []struct {
		symbol   string
		ts       int64
		price    float64
		bid, ask string
	}{
		{"ETH-USDT", 1000, 2000.5, "2000", "2001"},
		{"BTC-USDT", 1000, 43250.5, "43250", "43251"},
		{"BTC-USDT", 3000, 43260.25, "43260", "43260.5"},
		{"BTC-USDT", 2000, 43255, "43254.5", "43255.5"},
	}
	for _, r := range rows {
		_, err := db.Exec(`INSERT INTO snapshots VALUES (?, ?, ?, ?, ?)`, r.symbol, r.ts, r.price, r.bid, r.ask)
		require.NoError(t, err)
	}
	return db
}

func TestReplay_RunInTimestampOrder(t *testing.T) {
	db := openTestDB(t)
	r, err := NewReplay(zap.NewNop(), db, "snapshots", []string{"BTC-USDT"})
	require.NoError(t, err)

	rec := &recorder{}
	require.NoError(t, r.Run(context.Background(), rec))
	require.Len(t, rec.events, 3)

	var ts []int64
	for _, ev := range rec.events {
		assert.Equal(t, Source, ev.Source)
		s, err := bus.MarketSnapshotFromEvent(ev)
		require.NoError(t, err)
		assert.Equal(t, "BTC-USDT", s.Symbol)
		assert.Equal(t, s.TimeStamp, ev.TimeStamp)
		ts = append(ts, s.TimeStamp)
	}
	assert.Equal(t, []int64{1000, 2000, 3000}, ts)

	first, err := bus.MarketSnapshotFromEvent(rec.events[0])
	require.NoError(t, err)
	assert.Equal(t, "43250.5", first.Price.String())
	assert.Equal(t, "43250", first.Bid.String())
	assert.Equal(t, "43251", first.Ask.String())
}

func TestReplay_RangeAndAllSymbols(t *testing.T) {
	db := openTestDB(t)
	r, err := NewReplay(zap.NewNop(), db, "snapshots", nil, WithRange(1000, 2000))
	require.NoError(t, err)

	require.NoError(t, r.Open(context.Background()))
	defer func() { _ = r.Close() }()

	var symbols []string
	for {
		s, err := r.GetNext(context.Background())
		if errors.Is(err, datasource.ErrEof) {
			break
		}
		require.NoError(t, err)
		symbols = append(symbols, s.Symbol)
	}
	assert.Equal(t, []string{"BTC-USDT", "ETH-USDT", "BTC-USDT"}, symbols)
}

func TestReplay_Pacing(t *testing.T) {
	db := openTestDB(t)
	r, err := NewReplay(zap.NewNop(), db, "snapshots", []string{"BTC-USDT"}, WithSpeed(100))
	require.NoError(t, err)

	start := time.Now()
	require.NoError(t, r.Run(context.Background(), &recorder{}))
	// 2s of recorded time at 100x
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestReplay_Errors(t *testing.T) {
	db := openTestDB(t)

	_, err := NewReplay(zap.NewNop(), db, "snapshots; DROP TABLE x", nil)
	require.ErrorIs(t, err, ErrInvalidTable)

	r, err := NewReplay(zap.NewNop(), db, "snapshots", nil)
	require.NoError(t, err)
	_, err = r.GetNext(context.Background())
	require.ErrorIs(t, err, ErrNotOpen)

	r, err = NewReplay(zap.NewNop(), db, "missing", nil)
	require.NoError(t, err)
	require.Error(t, r.Run(context.Background(), &recorder{}))
}
