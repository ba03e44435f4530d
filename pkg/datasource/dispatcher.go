package datasource

import (
	"context"
	"errors"
	"fmt"

	"github.com/peter-kozarec/botplatform/pkg/bus"
	"github.com/peter-kozarec/botplatform/pkg/common"
)

var ErrEof = errors.New("EOF")

// SnapshotSource yields market snapshots one at a time and ErrEof when exhausted.
type SnapshotSource interface {
	GetNext(ctx context.Context) (common.MarketSnapshot, error)
}

// Producer publishes market data on the bus until its data ends or ctx is done.
type Producer interface {
	Run(ctx context.Context, publisher bus.Publisher) error
}

// CreateSnapshotDispatcher returns a step function that moves one snapshot from ds onto the bus.
func CreateSnapshotDispatcher(p bus.Publisher, source string, ds SnapshotSource) func(context.Context) error {
	return func(ctx context.Context) error {
		snapshot, err := ds.GetNext(ctx)
		if err != nil {
			return err
		}

		ev, err := bus.NewMarketSnapshotEvent(source, snapshot)
		if err != nil {
			return fmt.Errorf("unable to encode snapshot of %s: %w", snapshot.Symbol, err)
		}
		if snapshot.TimeStamp != 0 {
			ev.TimeStamp = snapshot.TimeStamp
		}

		p.Publish(ev)
		return nil
	}
}

// Drain runs dispatch until the source is exhausted, which is not an error, or ctx is done.
func Drain(ctx context.Context, dispatch func(context.Context) error) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := dispatch(ctx); err != nil {
			if errors.Is(err, ErrEof) {
				return nil
			}
			return err
		}
	}
}
