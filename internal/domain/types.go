package domain

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"git.netflux.io/rob/backdrop/internal/optional"
)

// AppName is the name of the app.
const AppName = "backdrop"

// BuildInfo holds information about the build.
type BuildInfo struct {
	GoVersion string
	Version   string
	Commit    string
	Date      string
}

// Category is the classification of a live image.
type Category int

// Known categories, in selection order.
const (
	CategoryNormal Category = iota
	CategoryPoster
	CategorySexy
	CategoryPorn
)

// Categories lists every known category in selection order.
var Categories = []Category{CategoryNormal, CategoryPoster, CategorySexy, CategoryPorn}

var categoryNames = [...]string{"normal", "poster", "sexy", "porn"}

// IsValid returns true if c is one of the known categories.
func (c Category) IsValid() bool {
	return c >= CategoryNormal && c <= CategoryPorn
}

// String implements the fmt.Stringer interface.
func (c Category) String() string {
	if !c.IsValid() {
		return "unknown"
	}

	return categoryNames[c]
}

// ParseCategory parses a category name, case-insensitively.
func ParseCategory(s string) (Category, bool) {
	i := slices.Index(categoryNames[:], strings.ToLower(strings.TrimSpace(s)))
	if i < 0 {
		return 0, false
	}

	return Category(i), true
}

// CategorySet is the set of categories a caller wants streamed.
//
// The zero value is the empty set, meaning nothing is requested.
type CategorySet uint8

// NewCategorySet returns a set containing the given categories. Invalid
// categories are ignored.
func NewCategorySet(categories ...Category) CategorySet {
	var s CategorySet
	for _, c := range categories {
		s = s.With(c)
	}
	return s
}

// With returns a copy of the set with c added.
func (s CategorySet) With(c Category) CategorySet {
	if !c.IsValid() {
		return s
	}

	return s | 1<<c
}

// Without returns a copy of the set with c removed.
func (s CategorySet) Without(c Category) CategorySet {
	if !c.IsValid() {
		return s
	}

	return s &^ (1 << c)
}

// Has returns true if c is in the set.
func (s CategorySet) Has(c Category) bool {
	return c.IsValid() && s&(1<<c) != 0
}

// IsEmpty returns true if no category is requested.
func (s CategorySet) IsEmpty() bool {
	return s == 0
}

// Len returns the number of categories in the set.
func (s CategorySet) Len() int {
	var n int
	for _, c := range Categories {
		if s.Has(c) {
			n++
		}
	}
	return n
}

// Equal returns true if both sets contain exactly the same categories.
func (s CategorySet) Equal(other CategorySet) bool {
	return s == other
}

// Slice returns the categories in the set, in selection order.
func (s CategorySet) Slice() []Category {
	var out []Category
	for _, c := range Categories {
		if s.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

// String implements the fmt.Stringer interface.
func (s CategorySet) String() string {
	names := make([]string, 0, len(Categories))
	for _, c := range s.Slice() {
		names = append(names, c.String())
	}
	return "{" + strings.Join(names, ",") + "}"
}

// ImageRecord is the metadata of a single live image. It is immutable once
// built, use [NewImageRecord] to construct one.
type ImageRecord struct {
	ID         string
	URL        string
	InfoURL    string
	Title      optional.V[string]
	Category   Category
	ReceivedAt time.Time
}

// ImageRecordParams holds the fields used to build an [ImageRecord].
type ImageRecordParams struct {
	ID         string
	URL        string
	InfoURL    string // defaults to URL
	Title      optional.V[string]
	Category   optional.V[Category]
	ReceivedAt time.Time
}

// NewImageRecord validates the params and builds an ImageRecord.
//
// URL and Category are required, a *ValidationError listing every missing
// field is returned otherwise.
func NewImageRecord(params ImageRecordParams) (ImageRecord, error) {
	var missing []string
	if strings.TrimSpace(params.URL) == "" {
		missing = append(missing, "url")
	}
	if !params.Category.Present || !params.Category.Value.IsValid() {
		missing = append(missing, "category")
	}
	if len(missing) > 0 {
		return ImageRecord{}, &ValidationError{Missing: missing}
	}

	return ImageRecord{
		ID:         params.ID,
		URL:        params.URL,
		InfoURL:    cmp.Or(params.InfoURL, params.URL),
		Title:      params.Title,
		Category:   params.Category.Value,
		ReceivedAt: params.ReceivedAt,
	}, nil
}

// SelectedImage is the result of a selection, ready for display.
type SelectedImage struct {
	URL     string
	InfoURL string
}

// IsZero returns true if nothing was selected.
func (s SelectedImage) IsZero() bool {
	return s.URL == ""
}

// ConnectionState is the state of a subscription connection.
type ConnectionState int

const (
	ConnectionStateIdle ConnectionState = iota
	ConnectionStateConnecting
	ConnectionStateSubscribed
	ConnectionStateFailed
)

// String implements the fmt.Stringer interface.
func (s ConnectionState) String() string {
	switch s {
	case ConnectionStateIdle:
		return "idle"
	case ConnectionStateConnecting:
		return "connecting"
	case ConnectionStateSubscribed:
		return "subscribed"
	case ConnectionStateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// CanTransitionTo reports whether moving from s to next is a legal
// transition. Any state may return to idle on teardown.
func (s ConnectionState) CanTransitionTo(next ConnectionState) bool {
	if next == ConnectionStateIdle {
		return true
	}

	switch s {
	case ConnectionStateIdle:
		return next == ConnectionStateConnecting || next == ConnectionStateFailed
	case ConnectionStateConnecting:
		return next == ConnectionStateSubscribed || next == ConnectionStateFailed
	case ConnectionStateSubscribed:
		return next == ConnectionStateFailed
	case ConnectionStateFailed:
		return next == ConnectionStateConnecting
	default:
		return false
	}
}

// SelectionMode controls how the next image is chosen.
type SelectionMode int

const (
	SelectionModeSequential SelectionMode = iota
	SelectionModeRandom
)

// String implements the fmt.Stringer interface.
func (m SelectionMode) String() string {
	if m == SelectionModeRandom {
		return "random"
	}
	return "sequential"
}
