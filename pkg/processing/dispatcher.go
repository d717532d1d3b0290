package processing

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/f1grid/livetiming-ingest-go/log"
	"github.com/f1grid/livetiming-ingest-go/pkg/livetiming"
	"github.com/f1grid/livetiming-ingest-go/pkg/repository/api"
)

// Handler consumes one topic tick. A non-nil error is fatal to the
// pipeline; recoverable conditions are handled (and logged) inside.
type Handler func(ctx context.Context, payload json.RawMessage) error

const defaultQueueSize = 128

type (
	// Dispatcher routes decoded frames to per-topic handlers. Every
	// registered topic gets its own worker goroutine consuming an
	// ordered queue: topics proceed concurrently, ticks within one
	// topic never interleave. Updates for registered topics are also
	// appended to the raw event log, best effort.
	Dispatcher struct {
		handlers map[livetiming.Topic]Handler
		rawlog   api.RawlogRepository
		queueLen int
		l        *log.Logger
	}
	DispatcherOption func(*Dispatcher)

	queueItem struct {
		payload json.RawMessage
		raw     bool // append to the raw event log before handling
	}
)

func WithRawlog(rawlog api.RawlogRepository) DispatcherOption {
	return func(d *Dispatcher) { d.rawlog = rawlog }
}

func WithQueueSize(n int) DispatcherOption {
	return func(d *Dispatcher) { d.queueLen = n }
}

func WithDispatcherLogger(l *log.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.l = l }
}

func NewDispatcher(opts ...DispatcherOption) *Dispatcher {
	ret := &Dispatcher{
		handlers: make(map[livetiming.Topic]Handler),
		queueLen: defaultQueueSize,
		l:        log.Default().Named("processing.dispatch"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Register binds a handler to a topic. Must be called before Run.
func (d *Dispatcher) Register(topic livetiming.Topic, handler Handler) {
	d.handlers[topic] = handler
}

// Run consumes frames until the channel closes or the context ends.
// It returns the first fatal handler error, if any.
//
//nolint:gocognit,funlen // dispatch loop reads best in one piece
func (d *Dispatcher) Run(ctx context.Context, frames <-chan livetiming.Frame) error {
	queues := make(map[livetiming.Topic]chan queueItem, len(d.handlers))
	errCh := make(chan error, len(d.handlers))
	var wg sync.WaitGroup
	for topic, handler := range d.handlers {
		q := make(chan queueItem, d.queueLen)
		queues[topic] = q
		wg.Add(1)
		go func(topic livetiming.Topic, handler Handler, q <-chan queueItem) {
			defer wg.Done()
			d.work(ctx, topic, handler, q, errCh)
		}(topic, handler, q)
	}
	shutdown := func() {
		for _, q := range queues {
			close(q)
		}
		wg.Wait()
	}

	for {
		select {
		case <-ctx.Done():
			shutdown()
			return nil
		case err := <-errCh:
			shutdown()
			return err
		case frame, ok := <-frames:
			if !ok {
				shutdown()
				select {
				case err := <-errCh:
					return err
				default:
					return nil
				}
			}
			if err := d.route(frame, queues, errCh); err != nil {
				shutdown()
				return err
			}
		}
	}
}

// route enqueues one frame. Snapshot results fan out in observed key
// order; updates for unregistered topics are dropped with a debug log.
//
//nolint:whitespace // can't make both editor and linter happy
func (d *Dispatcher) route(
	frame livetiming.Frame, queues map[livetiming.Topic]chan queueItem, errCh <-chan error,
) error {
	enqueue := func(q chan queueItem, item queueItem) error {
		select {
		case q <- item:
			return nil
		case err := <-errCh:
			return err
		}
	}

	switch f := frame.(type) {
	case livetiming.Snapshot:
		for _, topic := range f.Order {
			if q, ok := queues[topic]; ok {
				if err := enqueue(q, queueItem{payload: f.Result[topic]}); err != nil {
					return err
				}
			}
		}
	case livetiming.Update:
		q, ok := queues[f.Topic]
		if !ok {
			d.l.Debug("no handler for topic", log.String("topic", string(f.Topic)))
			return nil
		}
		return enqueue(q, queueItem{payload: f.Payload, raw: true})
	}
	return nil
}

//nolint:whitespace // can't make both editor and linter happy
func (d *Dispatcher) work(
	ctx context.Context, topic livetiming.Topic, handler Handler,
	q <-chan queueItem, errCh chan<- error,
) {
	for item := range q {
		if item.raw && d.rawlog != nil {
			if err := d.rawlog.Create(ctx, string(topic), item.payload); err != nil {
				d.l.Warn("could not append raw event",
					log.String("topic", string(topic)), log.ErrorField(err))
			}
		}
		if err := handler(ctx, item.payload); err != nil {
			errCh <- fmt.Errorf("handler %s: %w", topic, err)
			return
		}
	}
}
