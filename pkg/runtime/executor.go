package runtime

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/peter-kozarec/botplatform/pkg/bus"
	"github.com/peter-kozarec/botplatform/pkg/common"
	"github.com/peter-kozarec/botplatform/pkg/exchange"
)

const (
	executorComponentName = "runtime.executor"
	ExecutorSource        = "LocalExecutionEngine"
)

// Executor places orders on an exchange and publishes every resulting update on the bus.
type Executor struct {
	logger    *zap.Logger
	publisher bus.Publisher
	exchange  exchange.Exchange

	placed   uint64
	failed   uint64
	rejected uint64
}

func NewExecutor(logger *zap.Logger, publisher bus.Publisher, ex exchange.Exchange) *Executor {
	return &Executor{
		logger:    logger.Named(executorComponentName),
		publisher: publisher,
		exchange:  ex,
	}
}

// Submit places the orders one by one and stops at the first exchange failure. Updates of
// orders placed before the failure are still published.
func (e *Executor) Submit(ctx context.Context, orders []common.OrderIntent) error {
	for _, order := range orders {
		update, err := e.exchange.PlaceOrder(ctx, order)
		if err != nil {
			e.failed++
			e.logger.Warn("unable to place order", append(order.Fields(), zap.Error(err))...)
			return fmt.Errorf("unable to place order %s: %w", order.ClientID, err)
		}

		e.placed++
		if update.Status == common.OrderStatusRejected {
			e.rejected++
			e.logger.Warn("order rejected", update.Fields()...)
		} else {
			e.logger.Debug("order placed", update.Fields()...)
		}

		if err := e.publish(update); err != nil {
			return err
		}
	}
	return nil
}

// HandleUpdate republishes an update that reached the process outside of Submit, e.g. from an
// exchange order stream.
func (e *Executor) HandleUpdate(_ context.Context, update common.OrderUpdate) error {
	return e.publish(update)
}

func (e *Executor) publish(update common.OrderUpdate) error {
	ev, err := bus.NewOrderUpdateEvent(ExecutorSource, update)
	if err != nil {
		return fmt.Errorf("unable to encode order update %s: %w", update.OrderID, err)
	}
	if update.TimeStamp != 0 {
		ev.TimeStamp = update.TimeStamp
	}
	e.publisher.Publish(ev)
	return nil
}

func (e *Executor) PrintStatistics() {
	e.logger.Info("execution statistics",
		zap.Uint64("placed", e.placed),
		zap.Uint64("failed", e.failed),
		zap.Uint64("rejected", e.rejected))
}
