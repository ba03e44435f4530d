package datasource

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/peter-kozarec/botplatform/pkg/bus"
	"github.com/peter-kozarec/botplatform/pkg/common"
	"github.com/peter-kozarec/botplatform/pkg/exchange"
)

const (
	streamComponentName = "datasource.stream"

	DefaultReconnectDelay    = time.Second
	DefaultMaxReconnectDelay = 30 * time.Second
)

type StreamOption func(*StreamProducer)

func WithReconnectDelay(delay, maxDelay time.Duration) StreamOption {
	return func(s *StreamProducer) {
		s.delay = delay
		s.maxDelay = maxDelay
	}
}

// StreamProducer publishes the snapshots of a market streamer, reconnecting with exponential
// backoff whenever the stream ends.
type StreamProducer struct {
	logger   *zap.Logger
	streamer exchange.MarketStreamer
	source   string
	symbols  []string

	delay    time.Duration
	maxDelay time.Duration
}

func NewStreamProducer(logger *zap.Logger, streamer exchange.MarketStreamer, source string, symbols []string, options ...StreamOption) *StreamProducer {
	s := &StreamProducer{
		logger:   logger.Named(streamComponentName),
		streamer: streamer,
		source:   source,
		symbols:  append([]string(nil), symbols...),
		delay:    DefaultReconnectDelay,
		maxDelay: DefaultMaxReconnectDelay,
	}

	for _, option := range options {
		option(s)
	}

	return s
}

func (s *StreamProducer) Run(ctx context.Context, publisher bus.Publisher) error {
	publish := func(snapshot common.MarketSnapshot) error {
		ev, err := bus.NewMarketSnapshotEvent(s.source, snapshot)
		if err != nil {
			return fmt.Errorf("unable to encode snapshot of %s: %w", snapshot.Symbol, err)
		}
		if snapshot.TimeStamp != 0 {
			ev.TimeStamp = snapshot.TimeStamp
		}
		publisher.Publish(ev)
		return nil
	}

	delay := s.delay
	for {
		start := time.Now()
		err := s.streamer.StreamMarketData(ctx, s.symbols, publish)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if errors.Is(err, exchange.ErrNotSupported) {
			return err
		}

		// a stream that stayed up for a while starts the backoff over
		if time.Since(start) > s.maxDelay {
			delay = s.delay
		}

		s.logger.Warn("market stream ended, reconnecting", zap.Error(err), zap.Duration("delay", delay))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay = min(delay*2, s.maxDelay)
	}
}
