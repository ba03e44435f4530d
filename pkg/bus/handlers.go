package bus

import (
	"context"

	"github.com/peter-kozarec/botplatform/pkg/common"
)

type EventHandler[T any] func(context.Context, T) error

// Typed adapts a handler of a decoded payload type to a bus Handler.
// A payload that fails to decode is reported as a handler failure.
func Typed[T any](decode func(Event) (T, error), fn EventHandler[T]) Handler {
	return func(ctx context.Context, ev Event) error {
		v, err := decode(ev)
		if err != nil {
			return err
		}
		return fn(ctx, v)
	}
}

func MarketSnapshotHandler(fn EventHandler[common.MarketSnapshot]) Handler {
	return Typed(MarketSnapshotFromEvent, fn)
}

func OrderUpdateHandler(fn EventHandler[common.OrderUpdate]) Handler {
	return Typed(OrderUpdateFromEvent, fn)
}

func MergeHandlers(handlers ...Handler) Handler {
	return func(ctx context.Context, ev Event) error {
		for _, handler := range handlers {
			if err := handler(ctx, ev); err != nil {
				return err
			}
		}
		return nil
	}
}
