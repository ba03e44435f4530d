package historical

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/peter-kozarec/botplatform/pkg/bus"
	"github.com/peter-kozarec/botplatform/pkg/common"
	"github.com/peter-kozarec/botplatform/pkg/datasource"
	"github.com/peter-kozarec/botplatform/pkg/utility/fixed"
)

const (
	componentName = "datasource.historical.replay"
	Source        = "HistoricalReplay"
)

var (
	ErrInvalidTable = errors.New("invalid replay table name")
	ErrNotOpen      = errors.New("replay is not open")

	tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

type Option func(*Replay)

// WithSpeed paces the replay by recorded timestamps, speed times faster than real time.
// Zero replays as fast as the bus accepts events.
func WithSpeed(speed float64) Option {
	return func(r *Replay) {
		r.speed = speed
	}
}

// WithRange limits the replay to snapshots with from <= timestamp <= to, in unix milliseconds.
func WithRange(from, to int64) Option {
	return func(r *Replay) {
		r.from = from
		r.to = to
	}
}

// Replay reads recorded snapshots from a table with the columns
// symbol, ts (unix ms), price, bid, ask and publishes them in timestamp order.
// Any database/sql driver works. The cmd wires duckdb.
type Replay struct {
	logger  *zap.Logger
	db      *sql.DB
	table   string
	symbols []string

	speed    float64
	from, to int64

	rows   *sql.Rows
	lastTs int64
	count  int64
}

func NewReplay(logger *zap.Logger, db *sql.DB, table string, symbols []string, options ...Option) (*Replay, error) {
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTable, table)
	}

	r := &Replay{
		logger:  logger.Named(componentName),
		db:      db,
		table:   table,
		symbols: append([]string(nil), symbols...),
	}

	for _, option := range options {
		option(r)
	}

	return r, nil
}

func (r *Replay) Open(ctx context.Context) error {
	query, args := r.query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("unable to query %s: %w", r.table, err)
	}
	r.rows = rows
	return nil
}

func (r *Replay) Close() error {
	if r.rows == nil {
		return nil
	}
	err := r.rows.Close()
	r.rows = nil
	return err
}

func (r *Replay) GetNext(ctx context.Context) (common.MarketSnapshot, error) {
	if r.rows == nil {
		return common.MarketSnapshot{}, ErrNotOpen
	}

	if !r.rows.Next() {
		if err := r.rows.Err(); err != nil {
			return common.MarketSnapshot{}, fmt.Errorf("unable to read %s: %w", r.table, err)
		}
		return common.MarketSnapshot{}, datasource.ErrEof
	}

	var (
		symbol          string
		ts              int64
		price, bid, ask string
	)
	if err := r.rows.Scan(&symbol, &ts, &price, &bid, &ask); err != nil {
		return common.MarketSnapshot{}, fmt.Errorf("unable to scan %s row: %w", r.table, err)
	}

	snapshot, err := newSnapshot(symbol, ts, price, bid, ask)
	if err != nil {
		return common.MarketSnapshot{}, err
	}

	if err := r.pace(ctx, ts); err != nil {
		return common.MarketSnapshot{}, err
	}

	r.count++
	return snapshot, nil
}

// Run opens the replay, publishes every row and closes it again.
func (r *Replay) Run(ctx context.Context, publisher bus.Publisher) error {
	if err := r.Open(ctx); err != nil {
		return err
	}
	defer func() { _ = r.Close() }()

	r.logger.Info("replay started", zap.String("table", r.table), zap.Strings("symbols", r.symbols), zap.Float64("speed", r.speed))
	err := datasource.Drain(ctx, datasource.CreateSnapshotDispatcher(publisher, Source, r))
	r.logger.Info("replay finished", zap.Int64("snapshots", r.count), zap.Error(err))
	return err
}

func (r *Replay) query() (string, []any) {
	var (
		where []string
		args  []any
	)

	if len(r.symbols) > 0 {
		marks := make([]string, len(r.symbols))
		for i, s := range r.symbols {
			marks[i] = "?"
			args = append(args, s)
		}
		where = append(where, fmt.Sprintf("symbol IN (%s)", strings.Join(marks, ", ")))
	}
	if r.from != 0 {
		where = append(where, "ts >= ?")
		args = append(args, r.from)
	}
	if r.to != 0 {
		where = append(where, "ts <= ?")
		args = append(args, r.to)
	}

	query := fmt.Sprintf(`SELECT symbol, ts, CAST(price AS VARCHAR), CAST(bid AS VARCHAR), CAST(ask AS VARCHAR) FROM %s`, r.table)
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY ts, symbol"

	return query, args
}

func (r *Replay) pace(ctx context.Context, ts int64) error {
	defer func() { r.lastTs = ts }()

	if r.speed <= 0 || r.lastTs == 0 || ts <= r.lastTs {
		return nil
	}

	wait := time.Duration(float64(time.Duration(ts-r.lastTs)*time.Millisecond) / r.speed)
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func newSnapshot(symbol string, ts int64, price, bid, ask string) (common.MarketSnapshot, error) {
	p, err := fixed.Parse(price)
	if err != nil {
		return common.MarketSnapshot{}, fmt.Errorf("price of %s at %d: %w", symbol, ts, err)
	}
	b, err := fixed.Parse(bid)
	if err != nil {
		return common.MarketSnapshot{}, fmt.Errorf("bid of %s at %d: %w", symbol, ts, err)
	}
	a, err := fixed.Parse(ask)
	if err != nil {
		return common.MarketSnapshot{}, fmt.Errorf("ask of %s at %d: %w", symbol, ts, err)
	}

	return common.MarketSnapshot{
		Symbol:    symbol,
		Price:     p,
		Bid:       b,
		Ask:       a,
		Bids:      []common.OrderBookLevel{{Price: b, Size: fixed.Zero}},
		Asks:      []common.OrderBookLevel{{Price: a, Size: fixed.Zero}},
		Trades:    []common.Trade{},
		TimeStamp: ts,
	}, nil
}
