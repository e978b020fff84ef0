// Package multiplexer routes received images into per-category caches.
package multiplexer

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"git.netflux.io/rob/backdrop/internal/domain"
	"git.netflux.io/rob/backdrop/internal/rotating"
)

// Source is a single enabled category cache, as seen by the selector.
type Source struct {
	Category domain.Category
	Cache    *rotating.Cache[domain.ImageRecord]
}

// Stats holds counters and cache sizes of a Multiplexer.
type Stats struct {
	Received uint64
	Dropped  uint64
	Sizes    map[domain.Category]int
}

// Multiplexer owns one rotating cache per category.
//
// OnEvent may be called from the transport goroutine concurrently with any
// other method.
type Multiplexer struct {
	caches   map[domain.Category]*rotating.Cache[domain.ImageRecord] // read-only after New
	logger   *slog.Logger
	received atomic.Uint64
	dropped  atomic.Uint64

	mu      sync.Mutex
	enabled domain.CategorySet
}

// NewParams contains the parameters for building a new Multiplexer.
type NewParams struct {
	Capacity int
	Enabled  domain.CategorySet
	Logger   *slog.Logger
}

// New builds a new Multiplexer with empty caches.
func New(params NewParams) *Multiplexer {
	m := &Multiplexer{
		caches:  make(map[domain.Category]*rotating.Cache[domain.ImageRecord], len(domain.Categories)),
		logger:  params.Logger.With("component", "multiplexer"),
		enabled: params.Enabled,
	}
	for _, c := range domain.Categories {
		m.caches[c] = rotating.New[domain.ImageRecord](params.Capacity)
	}

	return m
}

// OnEvent dispatches rec to the cache of its category. Records of unknown or
// disabled categories are dropped.
func (m *Multiplexer) OnEvent(rec domain.ImageRecord) {
	m.received.Add(1)

	if !rec.Category.IsValid() {
		m.dropped.Add(1)
		m.logger.Warn("Dropping image with unknown category", "id", rec.ID, "url", rec.URL, "category", int(rec.Category))
		return
	}

	// The lock is held while pushing so that a concurrent SetEnabled cannot
	// clear the cache before a stale record lands in it.
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.enabled.Has(rec.Category) {
		m.dropped.Add(1)
		m.logger.Debug("Dropping image of disabled category", "id", rec.ID, "category", rec.Category)
		return
	}

	m.caches[rec.Category].Push(rec)
}

// SetEnabled replaces the set of enabled categories, and returns true if it
// changed. Caches of categories being disabled are cleared.
func (m *Multiplexer) SetEnabled(categories domain.CategorySet) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.enabled.Equal(categories) {
		return false
	}

	for _, c := range m.enabled.Slice() {
		if !categories.Has(c) {
			m.logger.Info("Clearing cache of disabled category", "category", c)
			m.caches[c].Clear()
		}
	}
	m.enabled = categories

	return true
}

// Enabled returns the set of enabled categories.
func (m *Multiplexer) Enabled() domain.CategorySet {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.enabled
}

// Sources returns the caches of the enabled categories, in selection order.
func (m *Multiplexer) Sources() []Source {
	m.mu.Lock()
	defer m.mu.Unlock()

	sources := make([]Source, 0, m.enabled.Len())
	for _, c := range m.enabled.Slice() {
		sources = append(sources, Source{Category: c, Cache: m.caches[c]})
	}

	return sources
}

// Stats returns a snapshot of the counters and cache sizes.
func (m *Multiplexer) Stats() Stats {
	sizes := make(map[domain.Category]int, len(m.caches))
	for c, cache := range m.caches {
		sizes[c] = cache.Len()
	}

	return Stats{
		Received: m.received.Load(),
		Dropped:  m.dropped.Load(),
		Sizes:    sizes,
	}
}
