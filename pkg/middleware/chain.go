package middleware

import (
	"github.com/peter-kozarec/botplatform/pkg/bus"
)

// Middleware wraps a bus handler.
type Middleware = func(bus.Handler) bus.Handler

func Noop(handler bus.Handler) bus.Handler { return handler }

// Chain composes wrappers so that the first one is the outermost.
func Chain[T any](wrappers ...func(T) T) func(T) T {
	return func(handler T) T {
		for i := len(wrappers) - 1; i >= 0; i-- {
			handler = wrappers[i](handler)
		}
		return handler
	}
}
