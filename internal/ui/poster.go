package ui

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/reactionsync/internal/ffmpeg"
	"github.com/kikiluvv/reactionsync/internal/session"
)

const posterTimeout = 15 * time.Second

// FrameGrabber extracts a still frame from a video
type FrameGrabber interface {
	ProbeDuration(ctx context.Context, path string) (float64, error)
	Poster(ctx context.Context, input string, at time.Duration, maxW, maxH uint) (image.Image, error)
}

// Posters fetches and caches a preview frame per file. Results are delivered
// on the control thread.
type Posters struct {
	logger  zerolog.Logger
	grabber FrameGrabber
	sched   session.Scheduler

	mu    sync.Mutex
	cache map[string]image.Image
}

// NewPosters returns nil when grabber is nil; a nil *Posters never fetches.
func NewPosters(logger zerolog.Logger, grabber FrameGrabber, sched session.Scheduler) *Posters {
	if grabber == nil {
		return nil
	}
	return &Posters{
		logger:  logger.With().Str("component", "posters").Logger(),
		grabber: grabber,
		sched:   sched,
		cache:   make(map[string]image.Image),
	}
}

// Fetch calls done with the poster for path. Cached frames are delivered
// immediately; failures are logged and done is never called.
func (p *Posters) Fetch(ctx context.Context, path string, done func(image.Image)) {
	if p == nil || path == "" {
		return
	}

	p.mu.Lock()
	img, ok := p.cache[path]
	p.mu.Unlock()
	if ok {
		done(img)
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(ctx, posterTimeout)
		defer cancel()

		var at time.Duration
		if d, err := p.grabber.ProbeDuration(ctx, path); err == nil {
			at = ffmpeg.PosterTime(time.Duration(d * float64(time.Second)))
		}

		img, err := p.grabber.Poster(ctx, path, at, ffmpeg.DefaultPosterWidth, ffmpeg.DefaultPosterHeight)
		if err != nil {
			p.logger.Debug().Err(err).Str("path", path).Msg("no poster")
			return
		}

		p.mu.Lock()
		p.cache[path] = img
		p.mu.Unlock()
		p.sched.Post(func() { done(img) })
	}()
}
