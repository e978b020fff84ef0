// Package display models the surfaces which show the selected background
// image.
package display

import (
	"log/slog"
	"maps"
	"slices"
	"sync"
)

// Surface shows an image. Show is called from scheduler goroutines and must
// not block: a surface with its own rendering thread must hand the URL over
// to it.
type Surface interface {
	Show(url string)
}

// Registry is the set of surfaces registered with a group, keyed by a stable
// identifier owned by the display layer.
//
// Surfaces may be unregistered while a dispatch is in progress.
type Registry struct {
	mu       sync.Mutex
	surfaces map[string]Surface
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{surfaces: make(map[string]Surface)}
}

// Register adds or replaces the surface with the given id.
func (r *Registry) Register(id string, s Surface) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.surfaces[id] = s
}

// Unregister removes the surface with the given id, and returns false if it
// was not registered.
func (r *Registry) Unregister(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.surfaces[id]; !ok {
		return false
	}
	delete(r.surfaces, id)

	return true
}

// Len returns the number of registered surfaces.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.surfaces)
}

// IDs returns the registered identifiers, sorted.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return slices.Sorted(maps.Keys(r.surfaces))
}

// Show calls Show on every registered surface and returns the number of
// surfaces notified.
func (r *Registry) Show(url string) int {
	r.mu.Lock()
	surfaces := slices.Collect(maps.Values(r.surfaces))
	r.mu.Unlock()

	for _, s := range surfaces {
		s.Show(url)
	}

	return len(surfaces)
}

// LogSurface is a Surface which only logs the images it is asked to show.
type LogSurface struct {
	Logger *slog.Logger
}

// Show implements Surface.
func (s LogSurface) Show(url string) {
	s.Logger.Info("Showing image", "url", url)
}
