package audit

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/eprintd/authcore/logging"
)

// Config controls dispatcher buffering behavior.
type Config struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// Dispatcher decouples audit delivery from the request path: Emit enqueues
// and returns, a single goroutine forwards to the sink. A nil *Dispatcher
// is valid and drops everything, so call sites never need an enabled check.
type Dispatcher struct {
	sink       Sink
	log        logging.Logger
	queue      chan Event
	stop       chan struct{}
	drained    chan struct{}
	dropIfFull bool
	dropped    atomic.Uint64
	closing    atomic.Bool
	closeOnce  sync.Once
}

// NewDispatcher returns nil when auditing is disabled. Dropped events are
// reported through log, never through the sink.
func NewDispatcher(cfg Config, sink Sink, log logging.Logger) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}
	if log == nil {
		log = logging.Nop{}
	}

	d := &Dispatcher{
		sink:       sink,
		log:        log,
		queue:      make(chan Event, cfg.BufferSize),
		stop:       make(chan struct{}),
		drained:    make(chan struct{}),
		dropIfFull: cfg.DropIfFull,
	}
	go d.forward()
	return d
}

// forward is the single consumer. After a stop request it empties the
// queue before signalling drained.
func (d *Dispatcher) forward() {
	defer close(d.drained)
	ctx := context.Background()

	for {
		select {
		case event := <-d.queue:
			d.sink.Emit(ctx, event)
		case <-d.stop:
			for {
				select {
				case event := <-d.queue:
					d.sink.Emit(ctx, event)
				default:
					if n := d.dropped.Load(); n > 0 {
						d.log.Warn(ctx, "audit events dropped", "count", n)
					}
					return
				}
			}
		}
	}
}

// Emit queues an event for delivery. Under DropIfFull a full queue drops
// the event and counts it; otherwise Emit blocks until the queue accepts
// the event, the context ends, or the dispatcher closes.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil || d.closing.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if d.dropIfFull {
		select {
		case d.queue <- event:
		case <-d.stop:
		default:
			// Warn once; the running total is logged again at close.
			if d.dropped.Add(1) == 1 {
				d.log.Warn(ctx, "audit queue full, dropping events")
			}
		}
		return
	}

	select {
	case d.queue <- event:
	case <-ctx.Done():
	case <-d.stop:
	}
}

// Close stops intake, waits for the queue to drain, and releases the
// forwarding goroutine. Safe to call repeatedly and on a nil receiver.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closing.Store(true)
		close(d.stop)
		<-d.drained
	})
}

// Dropped reports how many events were discarded under DropIfFull pressure.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
