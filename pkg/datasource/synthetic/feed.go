package synthetic

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/peter-kozarec/botplatform/pkg/bus"
	"github.com/peter-kozarec/botplatform/pkg/common"
	"github.com/peter-kozarec/botplatform/pkg/datasource"
	"github.com/peter-kozarec/botplatform/pkg/utility/fixed"
)

const (
	componentName = "datasource.synthetic.feed"
	Source        = "FakeMarketEngine"

	DefaultInterval = 500 * time.Millisecond
	priceDigits     = 4
)

type Mode string

const (
	ModeSine   Mode = "sine"
	ModeRandom Mode = "random"
	// ModeGBM walks the price as a geometric brownian motion.
	ModeGBM Mode = "gbm"
)

var (
	ErrUnknownMode = errors.New("unknown synthetic feed mode")
	ErrNoSymbols   = errors.New("no symbols to generate")

	halfSpread = fixed.MustParse("0.5")
	levelSize  = fixed.One
	tradeSize  = fixed.MustParse("0.1")
)

func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeSine, ModeRandom, ModeGBM:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

type Option func(*Feed)

func WithMode(mode Mode) Option {
	return func(f *Feed) {
		f.mode = mode
	}
}

func WithInterval(interval time.Duration) Option {
	return func(f *Feed) {
		f.interval = interval
	}
}

func WithRand(rng *rand.Rand) Option {
	return func(f *Feed) {
		f.rng = rng
	}
}

func WithClock(clock func() time.Time) Option {
	return func(f *Feed) {
		f.clock = clock
	}
}

// WithSteps ends the feed after n snapshots. Zero means no end.
func WithSteps(n int64) Option {
	return func(f *Feed) {
		f.steps = n
	}
}

// WithGBM sets drift and volatility per step for ModeGBM.
func WithGBM(mu, sigma float64) Option {
	return func(f *Feed) {
		f.mu = mu
		f.sigma = sigma
	}
}

// Feed generates snapshots around a price of 100 for a fixed set of symbols. Every round
// yields one snapshot per symbol.
type Feed struct {
	logger  *zap.Logger
	symbols []string

	mode     Mode
	interval time.Duration
	rng      *rand.Rand
	clock    func() time.Time
	steps    int64

	mu, sigma float64

	t     float64
	last  float64
	next  int
	count int64
}

func NewFeed(logger *zap.Logger, symbols []string, options ...Option) *Feed {
	f := &Feed{
		logger:   logger.Named(componentName),
		symbols:  append([]string(nil), symbols...),
		mode:     ModeSine,
		interval: DefaultInterval,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		clock:    time.Now,
		mu:       0,
		sigma:    0.001,
		last:     100,
	}

	for _, option := range options {
		option(f)
	}

	return f
}

func (f *Feed) GetNext(_ context.Context) (common.MarketSnapshot, error) {
	if len(f.symbols) == 0 {
		return common.MarketSnapshot{}, ErrNoSymbols
	}
	if f.steps > 0 && f.count >= f.steps {
		return common.MarketSnapshot{}, datasource.ErrEof
	}

	price, err := f.generatePrice()
	if err != nil {
		return common.MarketSnapshot{}, err
	}

	symbol := f.symbols[f.next]
	f.next = (f.next + 1) % len(f.symbols)
	f.count++

	return newSnapshot(symbol, price, f.clock().UnixMilli()), nil
}

// Run publishes one round of snapshots every interval.
func (f *Feed) Run(ctx context.Context, publisher bus.Publisher) error {
	if len(f.symbols) == 0 {
		return ErrNoSymbols
	}

	dispatch := datasource.CreateSnapshotDispatcher(publisher, Source, f)

	f.logger.Info("synthetic feed started",
		zap.Strings("symbols", f.symbols),
		zap.String("mode", string(f.mode)),
		zap.Duration("interval", f.interval))
	defer f.logger.Info("synthetic feed stopped", zap.Int64("snapshots", f.count))

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			for range f.symbols {
				if err := dispatch(ctx); err != nil {
					if errors.Is(err, datasource.ErrEof) {
						return nil
					}
					return err
				}
			}
		}
	}
}

func (f *Feed) generatePrice() (fixed.Point, error) {
	var price float64

	switch f.mode {
	case ModeSine:
		f.t += 0.1
		price = 100 + math.Sin(f.t)*5
	case ModeRandom:
		price = 100 + (f.rng.Float64()*2 - 1)
	case ModeGBM:
		z := f.rng.NormFloat64()
		f.last *= math.Exp(f.mu - f.sigma*f.sigma/2 + f.sigma*z)
		price = f.last
	default:
		return fixed.Zero, fmt.Errorf("%w: %q", ErrUnknownMode, f.mode)
	}

	return fixed.FromFloat64(price).Rescale(priceDigits), nil
}

func newSnapshot(symbol string, price fixed.Point, ts int64) common.MarketSnapshot {
	bid := price.Sub(halfSpread)
	ask := price.Add(halfSpread)

	return common.MarketSnapshot{
		Symbol: symbol,
		Price:  price,
		Bid:    bid,
		Ask:    ask,
		Bids:   []common.OrderBookLevel{{Price: bid, Size: levelSize}},
		Asks:   []common.OrderBookLevel{{Price: ask, Size: levelSize}},
		Trades: []common.Trade{{
			Price:     price,
			Size:      tradeSize,
			Side:      common.OrderSideBuy,
			TimeStamp: ts,
		}},
		TimeStamp: ts,
	}
}
