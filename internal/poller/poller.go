// Package poller runs a function on a fixed interval with a cancellable handle.
package poller

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// State is the scheduler state.
type State int32

const (
	// Idle means no run is in progress.
	Idle State = iota
	// Fetching means a run is in progress.
	Fetching
)

func (s State) String() string {
	if s == Fetching {
		return "fetching"
	}
	return "idle"
}

// Func is one poll. A returned error is logged and the next tick retries;
// there is no backoff.
type Func func(ctx context.Context) error

// Poller invokes a Func every interval. Runs never overlap.
type Poller struct {
	name     string
	interval time.Duration
	fn       Func
	logger   *slog.Logger
}

// New creates a poller. A nil logger uses slog.Default().
func New(name string, interval time.Duration, fn Func, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{name: name, interval: interval, fn: fn, logger: logger}
}

// Handle controls a running poller.
type Handle struct {
	trigger  chan struct{}
	cancel   context.CancelFunc
	done     chan struct{}
	state    atomic.Int32
	runs     atomic.Int64
	failures atomic.Int64
	stopOnce sync.Once
}

// Start launches the poll loop. The first run happens immediately. The loop
// ends when ctx is cancelled or Stop is called.
func (p *Poller) Start(ctx context.Context) *Handle {
	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{
		trigger: make(chan struct{}, 1),
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	go func() {
		defer close(h.done)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		p.logger.Info("Poller started", "poller", p.name, "interval", p.interval)

		p.run(ctx, h)
		for {
			select {
			case <-ticker.C:
				p.run(ctx, h)
			case <-h.trigger:
				p.run(ctx, h)
				ticker.Reset(p.interval)
			case <-ctx.Done():
				p.logger.Info("Poller shutting down", "poller", p.name, "reason", ctx.Err())
				return
			}
		}
	}()
	return h
}

func (p *Poller) run(ctx context.Context, h *Handle) {
	if ctx.Err() != nil {
		return
	}
	h.state.Store(int32(Fetching))
	defer h.state.Store(int32(Idle))

	h.runs.Add(1)
	if err := p.fn(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		h.failures.Add(1)
		p.logger.Warn("Poll failed", "poller", p.name, "error", err)
	}
}

// Trigger requests an immediate run. Requests made while a run is pending
// are coalesced into one.
func (h *Handle) Trigger() {
	select {
	case h.trigger <- struct{}{}:
	default:
	}
}

// Stop ends the loop and waits for an in-progress run to return. It is safe
// to call more than once.
func (h *Handle) Stop() {
	h.stopOnce.Do(h.cancel)
	<-h.done
}

// Done is closed when the loop has exited.
func (h *Handle) Done() <-chan struct{} { return h.done }

// State reports whether a run is in progress.
func (h *Handle) State() State { return State(h.state.Load()) }

// Runs returns the number of runs started.
func (h *Handle) Runs() int64 { return h.runs.Load() }

// Failures returns the number of runs that returned an error.
func (h *Handle) Failures() int64 { return h.failures.Load() }
