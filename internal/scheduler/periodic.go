// Package scheduler runs the background refresh and slideshow tasks of a
// group.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Periodic runs a task on a fixed interval, in a single goroutine.
//
// Start is a no-op if already running. Stop waits for the goroutine to exit,
// so the task never runs after Stop returns. Both are safe to call in any
// order, from any goroutine, but never from within the task itself. A Start
// racing with a Stop waits for the stopped goroutine to exit first.
type Periodic struct {
	name      string
	task      func(context.Context)
	immediate bool
	logger    *slog.Logger

	// lifecycleMu serializes Start and Stop, and is held by Stop until the
	// goroutine has exited.
	lifecycleMu sync.Mutex

	mu       sync.Mutex
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
	resetC   chan time.Duration
}

// PeriodicParams contains the parameters for building a new Periodic.
type PeriodicParams struct {
	Name     string
	Task     func(context.Context)
	Interval time.Duration
	// Immediate runs the task once as soon as the scheduler starts, instead
	// of waiting for the first interval.
	Immediate bool
	Logger    *slog.Logger
}

// NewPeriodic builds a stopped Periodic.
func NewPeriodic(params PeriodicParams) *Periodic {
	return &Periodic{
		name:      params.Name,
		task:      params.Task,
		immediate: params.Immediate,
		interval:  params.Interval,
		logger:    params.Logger.With("scheduler", params.Name),
	}
}

// Start starts the periodic task, unless it is already running.
func (p *Periodic) Start() {
	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		return
	}

	if p.interval <= 0 {
		p.logger.Error("Refusing to start scheduler with non-positive interval", "interval", p.interval)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})
	p.resetC = make(chan time.Duration, 1)

	p.logger.Debug("Starting scheduler", "interval", p.interval)

	go p.loop(ctx, p.interval, p.resetC, p.done)
}

// Stop stops the periodic task and waits for it to exit. An in-flight task
// is not interrupted.
func (p *Periodic) Stop() {
	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()

	p.mu.Lock()
	if p.cancel == nil {
		p.mu.Unlock()
		return
	}

	p.cancel()
	p.cancel = nil
	done := p.done
	p.mu.Unlock()

	<-done

	p.logger.Debug("Stopped scheduler")
}

// Running returns true if the periodic task is running.
func (p *Periodic) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.cancel != nil
}

// SetInterval changes the interval. A running task is rescheduled from now.
func (p *Periodic) SetInterval(d time.Duration) {
	if d <= 0 {
		p.logger.Warn("Ignoring non-positive interval", "interval", d)
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if d == p.interval {
		return
	}
	p.interval = d

	if p.cancel == nil {
		return
	}

	// Replace any pending reset.
	select {
	case <-p.resetC:
	default:
	}
	p.resetC <- d
}

func (p *Periodic) loop(ctx context.Context, interval time.Duration, resetC <-chan time.Duration, done chan<- struct{}) {
	defer close(done)

	// An in-flight task is bounded by its own timeouts, not by Stop.
	taskCtx := context.WithoutCancel(ctx)

	if p.immediate {
		p.task(taskCtx)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case d := <-resetC:
			ticker.Reset(d)
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			p.task(taskCtx)
		}
	}
}
