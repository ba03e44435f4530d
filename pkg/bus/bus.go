package bus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

var ErrHandlerPanic = errors.New("event handler panicked")

type Handler func(context.Context, Event) error

// Publisher is the producer side of the bus.
type Publisher interface {
	Publish(ev Event)
}

// Bus is an in-process publish/subscribe router. Events are queued without bound and
// dispatched by a single consumer goroutine, one event at a time, to every handler
// subscribed to the event type in subscription order.
//
// Stop is observed between events. An event that is being dispatched is delivered to all
// of its handlers, events still queued are dropped and counted.
type Bus struct {
	logger *zap.Logger

	queueMu sync.Mutex
	queue   []Event
	wake    chan struct{}

	subMu       sync.RWMutex
	subscribers map[string][]Handler

	busy atomic.Bool

	runMu   sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}

	// Statistics
	runTime       atomic.Int64
	publishCount  atomic.Uint64
	dispatchCount atomic.Uint64
	dispatchFails atomic.Uint64
	droppedCount  atomic.Uint64
}

func NewBus(logger *zap.Logger) *Bus {
	done := make(chan struct{})
	close(done)

	return &Bus{
		logger:      logger,
		wake:        make(chan struct{}, 1),
		subscribers: make(map[string][]Handler),
		done:        done,
	}
}

// Publish enqueues the event and returns immediately. It is safe for concurrent use.
func (b *Bus) Publish(ev Event) {
	b.queueMu.Lock()
	b.queue = append(b.queue, ev)
	b.queueMu.Unlock()

	b.publishCount.Add(1)

	select {
	case b.wake <- struct{}{}:
	default:
	}
}

// Subscribe registers h for events of eventType after all previously registered handlers.
func (b *Bus) Subscribe(eventType string, h Handler) {
	b.subMu.Lock()
	defer b.subMu.Unlock()

	b.subscribers[eventType] = append(b.subscribers[eventType], h)
}

// Start launches the consumer. Calling Start on a running bus does nothing.
// Handlers receive a context that carries the values of ctx but not its cancellation.
func (b *Bus) Start(ctx context.Context) {
	b.runMu.Lock()
	defer b.runMu.Unlock()

	if b.running && !isClosed(b.done) {
		return
	}

	b.running = true
	b.stop = make(chan struct{})
	b.done = make(chan struct{})

	go b.run(ctx, b.stop, b.done)
}

// Stop signals the consumer and waits for it to exit. It must not be called from a handler.
func (b *Bus) Stop() {
	b.runMu.Lock()
	defer b.runMu.Unlock()

	if !b.running {
		return
	}

	close(b.stop)
	<-b.done
	b.running = false
}

// Done is closed when the consumer exits.
func (b *Bus) Done() <-chan struct{} {
	b.runMu.Lock()
	defer b.runMu.Unlock()

	return b.done
}

func (b *Bus) Pending() int {
	b.queueMu.Lock()
	defer b.queueMu.Unlock()

	return len(b.queue)
}

// Idle reports whether the queue is empty and no event is being dispatched.
func (b *Bus) Idle() bool {
	return !b.busy.Load() && b.Pending() == 0
}

func (b *Bus) run(ctx context.Context, stop, done chan struct{}) {
	defer close(done)

	start := time.Now()
	defer func() {
		b.runTime.Add(int64(time.Since(start)))
		if dropped := b.clear(); dropped > 0 {
			b.logger.Warn("pending events dropped", zap.Int("count", dropped))
		}
	}()

	handlerCtx := context.WithoutCancel(ctx)

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		default:
		}

		b.busy.Store(true)
		ev, ok := b.pop()
		if !ok {
			b.busy.Store(false)
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			case <-b.wake:
			}
			continue
		}

		b.dispatch(handlerCtx, ev)
		b.busy.Store(false)
	}
}

func (b *Bus) pop() (Event, bool) {
	b.queueMu.Lock()
	defer b.queueMu.Unlock()

	if len(b.queue) == 0 {
		return Event{}, false
	}

	ev := b.queue[0]
	b.queue[0] = Event{}
	b.queue = b.queue[1:]
	return ev, true
}

func (b *Bus) clear() int {
	b.queueMu.Lock()
	defer b.queueMu.Unlock()

	n := len(b.queue)
	b.queue = nil
	b.droppedCount.Add(uint64(n))
	return n
}

func (b *Bus) dispatch(ctx context.Context, ev Event) {
	b.subMu.RLock()
	handlers := b.subscribers[ev.Type]
	b.subMu.RUnlock()

	for idx, h := range handlers {
		if err := invoke(ctx, h, ev); err != nil {
			b.dispatchFails.Add(1)
			b.logger.Warn("event handler failed",
				append(ev.Fields(), zap.Int("handler", idx), zap.Error(err))...)
		}
	}

	// counted once every handler has returned
	b.dispatchCount.Add(1)
}

func invoke(ctx context.Context, h Handler, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
		}
	}()
	return h(ctx, ev)
}

func isClosed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}
