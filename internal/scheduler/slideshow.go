package scheduler

import (
	"context"
	"log/slog"
	"time"

	"git.netflux.io/rob/backdrop/internal/domain"
)

// ImageSource returns the next image to display.
type ImageSource interface {
	Next() (domain.SelectedImage, bool)
}

// Slideshow periodically selects the next image and hands it to OnImage.
type Slideshow struct {
	*Periodic

	source  ImageSource
	onImage func(domain.SelectedImage)
	logger  *slog.Logger
}

// SlideshowParams contains the parameters for building a new Slideshow.
type SlideshowParams struct {
	Source  ImageSource
	OnImage func(domain.SelectedImage)
	Pause   time.Duration
	Logger  *slog.Logger
}

// NewSlideshow builds a stopped slideshow. Once started, the first image is
// shown after one pause.
func NewSlideshow(params SlideshowParams) *Slideshow {
	s := &Slideshow{
		source:  params.Source,
		onImage: params.OnImage,
		logger:  params.Logger,
	}
	s.Periodic = NewPeriodic(PeriodicParams{
		Name:     "slideshow",
		Task:     s.tick,
		Interval: params.Pause,
		Logger:   params.Logger,
	})

	return s
}

func (s *Slideshow) tick(context.Context) {
	img, ok := s.source.Next()
	if !ok {
		s.logger.Debug("Nothing to show yet")
		return
	}

	s.onImage(img)
}
