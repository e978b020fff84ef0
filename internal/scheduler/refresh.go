package scheduler

import (
	"context"
	"log/slog"
	"time"

	"git.netflux.io/rob/backdrop/internal/domain"
	"git.netflux.io/rob/backdrop/internal/feed"
)

// Connection is the subset of [feed.Conn] used by the refresh scheduler.
type Connection interface {
	CheckHealth(ctx context.Context) bool
	NeedsRestart(categories domain.CategorySet) bool
	Subscribe(categories domain.CategorySet, onEvent feed.OnEventFunc)
	MarkFailed()
}

// Refresh periodically health-checks the image service and (re)establishes
// the subscription when needed.
type Refresh struct {
	*Periodic

	conn       Connection
	categories func() domain.CategorySet
	onEvent    feed.OnEventFunc
	logger     *slog.Logger
}

// RefreshParams contains the parameters for building a new Refresh.
type RefreshParams struct {
	Conn       Connection
	Categories func() domain.CategorySet // the categories currently wanted
	OnEvent    feed.OnEventFunc
	Interval   time.Duration
	Logger     *slog.Logger
}

// NewRefresh builds a stopped refresh scheduler. Once started, its first tick
// runs immediately.
func NewRefresh(params RefreshParams) *Refresh {
	r := &Refresh{
		conn:       params.Conn,
		categories: params.Categories,
		onEvent:    params.OnEvent,
		logger:     params.Logger,
	}
	r.Periodic = NewPeriodic(PeriodicParams{
		Name:      "refresh",
		Task:      r.Tick,
		Interval:  params.Interval,
		Immediate: true,
		Logger:    params.Logger,
	})

	return r
}

// Tick runs a single refresh.
func (r *Refresh) Tick(ctx context.Context) {
	categories := r.categories()
	if categories.IsEmpty() {
		r.logger.Debug("No category enabled, skipping refresh")
		return
	}

	if !r.conn.CheckHealth(ctx) {
		r.logger.Warn("Image service unhealthy, will retry on next refresh")
		r.conn.MarkFailed()
		return
	}

	if !r.conn.NeedsRestart(categories) {
		return
	}

	r.conn.Subscribe(categories, r.onEvent)
}
