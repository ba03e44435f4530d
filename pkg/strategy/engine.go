package strategy

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/peter-kozarec/botplatform/pkg/common"
	"github.com/peter-kozarec/botplatform/pkg/storage"
)

const engineComponentName = "strategy.engine"

// Engine fans ticks and order updates out to registered strategies in registration order.
// It runs on the bus consumer and is not safe for concurrent use.
type Engine struct {
	logger *zap.Logger

	names      []string
	strategies map[string]Strategy
}

func NewEngine(logger *zap.Logger) *Engine {
	return &Engine{
		logger:     logger.Named(engineComponentName),
		strategies: make(map[string]Strategy),
	}
}

// Register stores s under its name. A strategy registered under an existing name replaces the
// old one and keeps its position.
func (e *Engine) Register(s Strategy) {
	name := s.Name()
	if _, ok := e.strategies[name]; !ok {
		e.names = append(e.names, name)
	} else {
		e.logger.Warn("strategy replaced", zap.String("name", name))
	}
	e.strategies[name] = s
}

func (e *Engine) OnTick(ctx common.StrategyContext) []common.ActionIntent {
	var intents []common.ActionIntent
	for _, name := range e.names {
		intents = append(intents, e.strategies[name].OnTick(ctx)...)
	}
	return intents
}

func (e *Engine) OnOrderUpdate(update common.OrderUpdate) {
	for _, name := range e.names {
		e.strategies[name].OnOrderUpdate(update)
	}
}

func (e *Engine) Names() []string {
	return append([]string(nil), e.names...)
}

func (e *Engine) Get(name string) (Strategy, bool) {
	s, ok := e.strategies[name]
	return s, ok
}

// SaveState writes the state of every Stateful strategy, one record per leg.
func (e *Engine) SaveState(ctx context.Context, store storage.StateStore) error {
	for _, name := range e.names {
		stateful, ok := e.strategies[name].(Stateful)
		if !ok {
			continue
		}
		for key, state := range stateful.State() {
			if err := store.Save(ctx, key, state); err != nil {
				return fmt.Errorf("unable to save state of %s: %w", name, err)
			}
		}
		e.logger.Info("strategy state saved", zap.String("name", name))
	}
	return nil
}

// RestoreState loads whatever the store has for the legs of every Stateful strategy. Legs
// without a stored record keep their current state.
func (e *Engine) RestoreState(ctx context.Context, store storage.StateStore) error {
	for _, name := range e.names {
		stateful, ok := e.strategies[name].(Stateful)
		if !ok {
			continue
		}

		restored := make(map[string]common.LegState)
		for key := range stateful.State() {
			state, found, err := store.Load(ctx, key)
			if err != nil {
				return fmt.Errorf("unable to load state of %s: %w", name, err)
			}
			if found {
				restored[key] = state
			}
		}

		stateful.LoadState(restored)
		e.logger.Info("strategy state restored", zap.String("name", name), zap.Int("legs", len(restored)))
	}
	return nil
}
