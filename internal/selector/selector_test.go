package selector_test

import (
	"testing"

	"git.netflux.io/rob/backdrop/internal/domain"
	"git.netflux.io/rob/backdrop/internal/multiplexer"
	"git.netflux.io/rob/backdrop/internal/optional"
	"git.netflux.io/rob/backdrop/internal/rotating"
	"git.netflux.io/rob/backdrop/internal/selector"
	"git.netflux.io/rob/backdrop/internal/testhelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMultiplexer(t *testing.T, categories ...domain.Category) *multiplexer.Multiplexer {
	t.Helper()

	return multiplexer.New(multiplexer.NewParams{
		Capacity: 30,
		Enabled:  domain.NewCategorySet(categories...),
		Logger:   testhelpers.NewNopLogger(),
	})
}

func push(t *testing.T, m *multiplexer.Multiplexer, url, infoURL string, c domain.Category) {
	t.Helper()

	rec, err := domain.NewImageRecord(domain.ImageRecordParams{URL: url, InfoURL: infoURL, Category: optional.New(c)})
	require.NoError(t, err)
	m.OnEvent(rec)
}

func next(t *testing.T, s *selector.Selector) domain.SelectedImage {
	t.Helper()

	img, ok := s.Next()
	require.True(t, ok)
	return img
}

func TestSelectorEmpty(t *testing.T) {
	s := selector.New(selector.NewParams{
		Sources:      newMultiplexer(t, domain.CategoryNormal),
		LowWaterMark: 6,
		Logger:       testhelpers.NewTestLogger(t),
	})

	for _, mode := range []domain.SelectionMode{domain.SelectionModeSequential, domain.SelectionModeRandom} {
		s.Configure(nil, mode)
		img, ok := s.Next()
		assert.False(t, ok)
		assert.True(t, img.IsZero())
	}
}

func TestSelectorStaticPathsWrap(t *testing.T) {
	s := selector.New(selector.NewParams{
		Sources:      newMultiplexer(t, domain.CategoryNormal),
		LowWaterMark: 6,
		Logger:       testhelpers.NewTestLogger(t),
	})
	s.Configure([]string{"a.png", "b.png"}, domain.SelectionModeSequential)

	assert.Equal(t, domain.SelectedImage{URL: "a.png", InfoURL: "a.png"}, next(t, s))
	assert.Equal(t, domain.SelectedImage{URL: "b.png", InfoURL: "b.png"}, next(t, s))
	assert.Equal(t, domain.SelectedImage{URL: "a.png", InfoURL: "a.png"}, next(t, s))
}

func TestSelectorSequentialCoverage(t *testing.T) {
	m := newMultiplexer(t, domain.CategoryNormal)
	push(t, m, "https://example.com/1.png", "https://example.com/info/1", domain.CategoryNormal)
	push(t, m, "https://example.com/2.png", "", domain.CategoryNormal)

	s := selector.New(selector.NewParams{Sources: m, LowWaterMark: 6, Logger: testhelpers.NewTestLogger(t)})
	s.Configure([]string{"a.png", "b.png", "c.png"}, domain.SelectionModeSequential)

	var got []domain.SelectedImage
	for range 5 {
		got = append(got, next(t, s))
	}

	assert.Equal(
		t,
		[]domain.SelectedImage{
			{URL: "a.png", InfoURL: "a.png"},
			{URL: "b.png", InfoURL: "b.png"},
			{URL: "c.png", InfoURL: "c.png"},
			{URL: "https://example.com/1.png", InfoURL: "https://example.com/info/1"},
			{URL: "https://example.com/2.png", InfoURL: "https://example.com/2.png"},
		},
		got,
	)

	// Both live images were requeued, so the sixth call wraps to the start.
	assert.Equal(t, domain.SelectedImage{URL: "a.png", InfoURL: "a.png"}, next(t, s))
	assert.Equal(t, 2, m.Stats().Sizes[domain.CategoryNormal])
}

func TestSelectorCursorWrapsWhenSourcesShrink(t *testing.T) {
	m := newMultiplexer(t, domain.CategoryPoster)
	push(t, m, "p1", "", domain.CategoryPoster)
	push(t, m, "p2", "", domain.CategoryPoster)

	s := selector.New(selector.NewParams{Sources: m, LowWaterMark: 6, Logger: testhelpers.NewTestLogger(t)})
	s.Configure([]string{"a.png"}, domain.SelectionModeSequential)

	assert.Equal(t, "a.png", next(t, s).URL)
	assert.Equal(t, "p1", next(t, s).URL)

	// Disabling the category clears its cache, shrinking the index space
	// below the cursor.
	require.True(t, m.SetEnabled(domain.NewCategorySet(domain.CategoryNormal)))
	assert.Equal(t, "a.png", next(t, s).URL)
	assert.Equal(t, "a.png", next(t, s).URL)
}

func TestSelectorRandom(t *testing.T) {
	m := newMultiplexer(t, domain.CategoryNormal, domain.CategorySexy)
	push(t, m, "n1", "", domain.CategoryNormal)
	push(t, m, "s1", "https://example.com/s1", domain.CategorySexy)

	var draws []int
	picks := []int{3, 0, 2}
	s := selector.New(selector.NewParams{
		Sources:      m,
		LowWaterMark: 6,
		IntN: func(n int) int {
			draws = append(draws, n)
			pick := picks[0]
			picks = picks[1:]
			return pick
		},
		Logger: testhelpers.NewTestLogger(t),
	})
	s.Configure([]string{"a.png", "b.png"}, domain.SelectionModeRandom)

	assert.Equal(t, domain.SelectedImage{URL: "s1", InfoURL: "https://example.com/s1"}, next(t, s))
	assert.Equal(t, domain.SelectedImage{URL: "a.png", InfoURL: "a.png"}, next(t, s))
	assert.Equal(t, domain.SelectedImage{URL: "n1", InfoURL: "n1"}, next(t, s))
	assert.Equal(t, []int{4, 4, 4}, draws)
}

func TestSelectorLiveImageRetires(t *testing.T) {
	m := multiplexer.New(multiplexer.NewParams{
		Capacity: 2,
		Enabled:  domain.NewCategorySet(domain.CategoryNormal),
		Logger:   testhelpers.NewNopLogger(),
	})
	push(t, m, "n1", "", domain.CategoryNormal)
	push(t, m, "n2", "", domain.CategoryNormal)

	// With capacity 2 and low-water mark 1, a take from the full cache leaves
	// free capacity 1, which is not above the mark: the image retires.
	s := selector.New(selector.NewParams{Sources: m, LowWaterMark: 1, Logger: testhelpers.NewTestLogger(t)})

	assert.Equal(t, "n1", next(t, s).URL)
	assert.Equal(t, 1, m.Stats().Sizes[domain.CategoryNormal])

	// Now free capacity after removal is 2, so n2 is requeued.
	assert.Equal(t, "n2", next(t, s).URL)
	assert.Equal(t, "n2", next(t, s).URL)
	assert.Equal(t, 1, m.Stats().Sizes[domain.CategoryNormal])
}

// refillingSources puts one image back into its cache every time the
// selector sizes the sources.
type refillingSources struct {
	t     *testing.T
	cache *rotating.Cache[domain.ImageRecord]
}

func (r refillingSources) Sources() []multiplexer.Source {
	rec, err := domain.NewImageRecord(domain.ImageRecordParams{URL: "live.png", Category: optional.New(domain.CategoryNormal)})
	require.NoError(r.t, err)
	r.cache.Push(rec)

	return []multiplexer.Source{{Category: domain.CategoryNormal, Cache: r.cache}}
}

func TestSelectorFallsBackToStaticPathWhenCachesDrain(t *testing.T) {
	cache := rotating.New[domain.ImageRecord](30)
	var draws int
	s := selector.New(selector.NewParams{
		Sources:      refillingSources{t: t, cache: cache},
		LowWaterMark: 6,
		// Drains the cache between sizing and taking, and always picks the
		// last slot, which is the live image.
		IntN: func(n int) int {
			draws++
			cache.Clear()
			return n - 1
		},
		Logger: testhelpers.NewTestLogger(t),
	})
	s.Configure([]string{"a.png"}, domain.SelectionModeRandom)

	assert.Equal(t, domain.SelectedImage{URL: "a.png", InfoURL: "a.png"}, next(t, s))
	// Three drained attempts, then one draw among the static paths.
	assert.Equal(t, 4, draws)
}
