package notify

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Config controls a Dispatcher.
type Config struct {
	BufferSize int
	// DropIfFull drops notices instead of blocking the producer when the
	// buffer is full.
	DropIfFull bool
	// DefaultTTL is applied to notices without ExpiresAt. Zero means notices
	// never expire.
	DefaultTTL time.Duration
}

// DefaultConfig returns the settings used by goLMS clients.
func DefaultConfig() Config {
	return Config{
		BufferSize: 64,
		DropIfFull: true,
		DefaultTTL: 5 * time.Second,
	}
}

// Dispatcher delivers notices to a Sink on a dedicated goroutine.
type Dispatcher struct {
	cfg       Config
	sink      Sink
	now       func() time.Time
	ch        chan Notice
	done      chan struct{}
	wg        sync.WaitGroup
	emitted   atomic.Uint64
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

// NewDispatcher starts a Dispatcher. A nil sink discards notices.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		cfg:  cfg,
		sink: sink,
		now:  time.Now,
		ch:   make(chan Notice, cfg.BufferSize),
		done: make(chan struct{}),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case n := <-d.ch:
			d.sink.Emit(context.Background(), n)
		case <-d.done:
			for {
				select {
				case n := <-d.ch:
					d.sink.Emit(context.Background(), n)
				default:
					return
				}
			}
		}
	}
}

// Notify queues n, filling ID, Level, CreatedAt and ExpiresAt when unset.
// A nil Dispatcher is a valid no-op notifier.
func (d *Dispatcher) Notify(ctx context.Context, n Notice) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	n = n.withDefaults(d.now(), d.cfg.DefaultTTL)

	if d.cfg.DropIfFull {
		select {
		case d.ch <- n:
			d.emitted.Add(1)
		case <-d.done:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.ch <- n:
		d.emitted.Add(1)
	case <-ctx.Done():
		d.dropped.Add(1)
	case <-d.done:
	}
}

// Close stops accepting notices and drains what is queued.
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

// Emitted returns the number of queued notices.
func (d *Dispatcher) Emitted() uint64 {
	if d == nil {
		return 0
	}
	return d.emitted.Load()
}

// Dropped returns the number of notices lost to a full buffer or a canceled context.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
