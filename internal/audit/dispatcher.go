package audit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Config controls dispatcher buffering.
//
// With DropIfFull an Emit on a full buffer returns immediately and counts
// the event as dropped, unless Critical marks it; otherwise Emit blocks
// until there is room, the caller's context ends or the dispatcher closes.
type Config struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool

	// Critical events wait for room even with DropIfFull.
	Critical func(Event) bool
	// Now stamps events that arrive without a Timestamp. Defaults to time.Now.
	Now func() time.Time
}

// Dispatcher forwards events to a sink from a single background goroutine
// in the order they were accepted. A nil *Dispatcher is valid and discards
// everything.
type Dispatcher struct {
	cfg   Config
	sink  Sink
	queue chan Event
	done  chan struct{}
	wg    sync.WaitGroup

	dropped   atomic.Uint64
	dropMu    sync.Mutex
	dropsByID map[string]uint64

	closed    atomic.Bool
	closeOnce sync.Once
}

// NewDispatcher starts a dispatcher, or returns nil when cfg is disabled.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if sink == nil {
		sink = NoOpSink{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	d := &Dispatcher{
		cfg:       cfg,
		sink:      sink,
		queue:     make(chan Event, max(cfg.BufferSize, 1)),
		done:      make(chan struct{}),
		dropsByID: make(map[string]uint64),
	}
	d.wg.Add(1)
	go d.loop()
	return d
}

func (d *Dispatcher) loop() {
	defer d.wg.Done()
	for {
		select {
		case event := <-d.queue:
			d.sink.Emit(context.Background(), event)
		case <-d.done:
			for {
				select {
				case event := <-d.queue:
					d.sink.Emit(context.Background(), event)
				default:
					return
				}
			}
		}
	}
}

// Emit queues event for delivery. It never returns an error; lost events
// show up in Dropped.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = d.cfg.Now().UTC()
	}

	if d.cfg.DropIfFull && !d.critical(event) {
		select {
		case d.queue <- event:
		case <-d.done:
		default:
			d.drop(event)
		}
		return
	}

	select {
	case d.queue <- event:
	case <-ctx.Done():
		d.drop(event)
	case <-d.done:
	}
}

func (d *Dispatcher) critical(event Event) bool {
	return d.cfg.Critical != nil && d.cfg.Critical(event)
}

func (d *Dispatcher) drop(event Event) {
	d.dropped.Add(1)
	d.dropMu.Lock()
	d.dropsByID[event.EventType]++
	d.dropMu.Unlock()
}

// Close stops accepting events and waits until queued ones are delivered.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}

// Dropped reports how many events never reached the queue.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// DroppedByType breaks Dropped down by EventType.
func (d *Dispatcher) DroppedByType() map[string]uint64 {
	out := map[string]uint64{}
	if d == nil {
		return out
	}
	d.dropMu.Lock()
	defer d.dropMu.Unlock()
	for k, v := range d.dropsByID {
		out[k] = v
	}
	return out
}
