package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/peter-kozarec/botplatform/internal/config"
	"github.com/peter-kozarec/botplatform/internal/ops"
	"github.com/peter-kozarec/botplatform/pkg/bus"
	"github.com/peter-kozarec/botplatform/pkg/datasource"
	"github.com/peter-kozarec/botplatform/pkg/datasource/historical"
	"github.com/peter-kozarec/botplatform/pkg/datasource/synthetic"
	"github.com/peter-kozarec/botplatform/pkg/exchange"
	"github.com/peter-kozarec/botplatform/pkg/exchange/bingx"
	"github.com/peter-kozarec/botplatform/pkg/exchange/sandbox"
	"github.com/peter-kozarec/botplatform/pkg/middleware"
	"github.com/peter-kozarec/botplatform/pkg/runtime"
	"github.com/peter-kozarec/botplatform/pkg/signals"
	"github.com/peter-kozarec/botplatform/pkg/strategy"
	"github.com/peter-kozarec/botplatform/pkg/utility"
)

const (
	componentName = "app"

	DefaultReplayDriver = "duckdb"

	saveTimeout  = 5 * time.Second
	idleInterval = 10 * time.Millisecond
)

type Option func(*App)

// WithReplayDriver selects the database/sql driver the replay source opens its DSN with.
func WithReplayDriver(driver string) Option {
	return func(a *App) {
		a.replayDriver = driver
	}
}

func WithMonitorFlags(flags middleware.MonitorFlags) Option {
	return func(a *App) {
		a.monitorFlags = flags
	}
}

// WithRegistry registers the metrics on registry instead of a fresh one.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(a *App) {
		a.registry = registry
	}
}

// App wires the bus, an exchange backend, market data producers and the hedge runtime for one
// configuration and runs them until the context is done or the producers run dry.
type App struct {
	logger *zap.Logger
	cfg    *config.Config

	replayDriver string
	monitorFlags middleware.MonitorFlags
	registry     *prometheus.Registry
}

func New(logger *zap.Logger, cfg *config.Config, options ...Option) *App {
	a := &App{
		logger:       logger.Named(componentName),
		cfg:          cfg,
		replayDriver: DefaultReplayDriver,
		monitorFlags: middleware.MonitorFailures,
	}

	for _, option := range options {
		option(a)
	}

	if a.registry == nil {
		a.registry = prometheus.NewRegistry()
		a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	return a
}

type wiring struct {
	exchange  exchange.Exchange
	producers []datasource.Producer
	closers   []func()
}

func (w *wiring) close() {
	for i := len(w.closers) - 1; i >= 0; i-- {
		w.closers[i]()
	}
}

// Run blocks until ctx is done, the configured run duration elapses, every producer is
// exhausted and the bus has drained, or a component fails. Leg state is restored before the
// first event and saved after the bus stops.
func (a *App) Run(ctx context.Context) error {
	if a.cfg.RunDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.RunDuration)
		defer cancel()
	}

	store, closeStore, err := openStore(ctx, a.logger, a.cfg.State)
	if err != nil {
		return fmt.Errorf("unable to open state store: %w", err)
	}
	defer closeStore()

	b := bus.NewBus(a.logger.Named("bus"))

	w, err := a.wire(b)
	if err != nil {
		return err
	}
	defer w.close()

	engine := strategy.NewEngine(a.logger)
	for _, symbol := range a.cfg.Symbols {
		engine.Register(strategy.NewHedge(symbol, strategy.WithBaseSize(a.cfg.BaseSize)))
	}
	if err := engine.RestoreState(ctx, store); err != nil {
		return fmt.Errorf("unable to restore leg state: %w", err)
	}

	monitor := middleware.NewMonitor(a.logger, a.monitorFlags)
	telemetry := middleware.NewTelemetry(a.logger, a.registry)

	runtimeOptions := []runtime.Option{
		runtime.WithMiddleware(middleware.Chain(monitor.Middleware, telemetry.Middleware)),
	}
	if a.cfg.SignalsWindow > 0 {
		zscore, err := signals.NewZScore(a.cfg.SignalsWindow)
		if err != nil {
			return err
		}
		runtimeOptions = append(runtimeOptions, runtime.WithSignals(zscore))
	}
	rt := runtime.NewRuntime(a.logger, b, w.exchange, engine, runtimeOptions...)

	a.logger.Info("starting",
		zap.String("execution_id", utility.GetExecutionID().String()),
		zap.String("mode", string(a.cfg.Mode)),
		zap.Strings("symbols", a.cfg.Symbols),
		zap.Strings("strategies", engine.Names()))

	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	g, gctx := errgroup.WithContext(runCtx)
	b.Start(gctx)

	g.Go(func() error {
		pg, pctx := errgroup.WithContext(gctx)
		for _, p := range w.producers {
			pg.Go(func() error { return p.Run(pctx, b) })
		}
		if err := pg.Wait(); err != nil {
			return err
		}

		a.logger.Info("producers finished, draining bus")
		waitIdle(gctx, b)
		stop()
		return nil
	})

	if a.cfg.OpsAddr != "" {
		srv := ops.NewServer(a.logger, a.cfg.OpsAddr, w.exchange, b, a.registry)
		g.Go(func() error { return srv.Run(gctx) })
	}

	err = g.Wait()
	b.Stop()

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), saveTimeout)
	defer cancel()
	if saveErr := engine.SaveState(saveCtx, store); saveErr != nil {
		a.logger.Error("unable to save leg state", zap.Error(saveErr))
	}

	b.PrintStatistics()
	rt.PrintStatistics()
	telemetry.PrintStatistics()

	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}

func (a *App) wire(b *bus.Bus) (*wiring, error) {
	w := &wiring{}

	switch a.cfg.Mode {
	case config.ModeSandbox:
		mode, err := synthetic.ParseMode(a.cfg.Feed.Mode)
		if err != nil {
			return nil, err
		}
		w.exchange = a.simulator(b)
		w.producers = append(w.producers, synthetic.NewFeed(a.logger, a.cfg.Symbols,
			synthetic.WithMode(mode),
			synthetic.WithInterval(a.cfg.Feed.Interval)))

	case config.ModeReplay:
		db, err := sql.Open(a.replayDriver, a.cfg.Replay.DSN)
		if err != nil {
			return nil, fmt.Errorf("unable to open replay database: %w", err)
		}
		w.closers = append(w.closers, func() {
			if err := db.Close(); err != nil {
				a.logger.Warn("unable to close replay database", zap.Error(err))
			}
		})

		replay, err := historical.NewReplay(a.logger, db, a.cfg.Replay.Table, a.cfg.Symbols,
			historical.WithSpeed(a.cfg.Replay.Speed))
		if err != nil {
			w.close()
			return nil, err
		}
		w.exchange = a.simulator(b)
		w.producers = append(w.producers, replay)

	case config.ModeLive:
		client := bingx.NewClient(a.logger, a.cfg.BingX.APIKey, a.cfg.BingX.APISecret, a.cfg.BingX.RestURL)
		adapter := bingx.NewAdapter(a.logger, client, bingx.WithStream(bingx.NewStream(a.logger, a.cfg.BingX.WSURL)))
		w.exchange = adapter
		w.producers = append(w.producers, datasource.NewStreamProducer(a.logger, adapter, bingx.StreamSource, a.cfg.Symbols))

	default:
		return nil, fmt.Errorf("%w: unknown mode %q", config.ErrInvalidConfig, a.cfg.Mode)
	}

	return w, nil
}

// simulator builds a sandbox that tracks the last price of every snapshot on the bus. It
// subscribes before the runtime so that orders fill at the price of the tick that caused them.
func (a *App) simulator(b *bus.Bus) *sandbox.Simulator {
	sim := sandbox.NewSimulator(a.logger)
	b.Subscribe(bus.MarketSnapshotEvent, bus.MarketSnapshotHandler(sim.OnMarketSnapshot))
	return sim
}

func waitIdle(ctx context.Context, b *bus.Bus) {
	ticker := time.NewTicker(idleInterval)
	defer ticker.Stop()

	for !b.Idle() {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
