// Package selector implements the "next image" policy of a group.
package selector

import (
	"cmp"
	"log/slog"
	"math/rand/v2"
	"slices"
	"sync"

	"git.netflux.io/rob/backdrop/internal/domain"
	"git.netflux.io/rob/backdrop/internal/multiplexer"
)

// maxAttempts bounds the number of times a selection is recomputed when a
// cache drains between sizing and taking.
const maxAttempts = 3

// SourceProvider returns the live caches to select from.
type SourceProvider interface {
	Sources() []multiplexer.Source
}

// Selector picks the next image from the static paths followed by the live
// caches, in that order.
type Selector struct {
	sources      SourceProvider
	lowWaterMark int
	intN         func(int) int
	logger       *slog.Logger

	mu          sync.Mutex
	staticPaths []string
	mode        domain.SelectionMode
	cursor      int
}

// NewParams contains the parameters for building a new Selector.
type NewParams struct {
	Sources      SourceProvider
	LowWaterMark int
	IntN         func(int) int // defaults to rand.IntN
	Logger       *slog.Logger
}

// New builds a Selector with no static paths, in sequential mode.
func New(params NewParams) *Selector {
	intN := params.IntN
	if intN == nil {
		intN = rand.IntN
	}

	return &Selector{
		sources:      params.Sources,
		lowWaterMark: params.LowWaterMark,
		intN:         intN,
		logger:       params.Logger.With("component", "selector"),
		cursor:       -1,
	}
}

// Configure replaces the static paths and the selection mode. The cursor is
// reset if the static paths changed.
func (s *Selector) Configure(staticPaths []string, mode domain.SelectionMode) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !slices.Equal(s.staticPaths, staticPaths) {
		s.staticPaths = slices.Clone(staticPaths)
		s.cursor = -1
	}
	s.mode = mode
}

// Next returns the next image, or false if no source has any content.
//
// Selecting a live image takes it from its cache, which may requeue it
// depending on the low-water mark.
func (s *Selector) Next() (domain.SelectedImage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for attempt := range maxAttempts {
		sources := s.sources.Sources()
		sizes := make([]int, len(sources))
		total := len(s.staticPaths)
		for i, src := range sources {
			sizes[i] = src.Cache.Len()
			total += sizes[i]
		}

		if total == 0 {
			return domain.SelectedImage{}, false
		}

		var idx int
		if s.mode == domain.SelectionModeRandom {
			idx = s.intN(total)
		} else {
			// A retry reuses the slot already claimed, wrapping if the index
			// space shrank.
			if attempt == 0 {
				s.cursor++
			}
			if s.cursor >= total || s.cursor < 0 {
				s.cursor = 0
			}
			idx = s.cursor
		}

		if idx < len(s.staticPaths) {
			path := s.staticPaths[idx]
			return domain.SelectedImage{URL: path, InfoURL: path}, true
		}

		idx -= len(s.staticPaths)
		for i, src := range sources {
			if idx >= sizes[i] {
				idx -= sizes[i]
				continue
			}

			if rec, ok := src.Cache.TakeAndMaybeRequeue(s.lowWaterMark); ok {
				return domain.SelectedImage{URL: rec.URL, InfoURL: cmp.Or(rec.InfoURL, rec.URL)}, true
			}

			s.logger.Debug("Cache drained during selection, retrying", "category", src.Category, "attempt", attempt)
			break
		}
	}

	// Live caches kept draining under us. Static paths never drain.
	if len(s.staticPaths) == 0 {
		return domain.SelectedImage{}, false
	}

	var idx int
	if s.mode == domain.SelectionModeRandom {
		idx = s.intN(len(s.staticPaths))
	} else {
		s.cursor = 0
	}

	path := s.staticPaths[idx]
	s.logger.Debug("Falling back to static path", "path", path)

	return domain.SelectedImage{URL: path, InfoURL: path}, true
}
