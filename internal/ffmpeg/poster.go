package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"time"

	"github.com/nfnt/resize"

	"github.com/kikiluvv/reactionsync/pkg/util"
)

// maxPosterOffset caps how far into a long file the poster frame is taken
const maxPosterOffset = 30 * time.Second

// PosterTime picks the frame to show before playback: a tenth of the way in,
// at most 30s.
func PosterTime(duration time.Duration) time.Duration {
	if duration <= 0 {
		return 0
	}
	return min(duration/10, maxPosterOffset)
}

// Poster grabs the frame at `at` and scales it to fit maxW x maxH
func (e *Executor) Poster(ctx context.Context, input string, at time.Duration, maxW, maxH uint) (image.Image, error) {
	if input == "" {
		return nil, fmt.Errorf("input path is required")
	}

	e.logger.Debug().
		Str("input", input).
		Dur("at", at).
		Msg("extracting poster frame")

	var out bytes.Buffer
	err := e.Run(ctx, RunOptions{
		Args: []string{
			"-ss", util.FormatDuration(at),
			"-i", input,
			"-frames:v", "1",
			"-f", "image2pipe",
			"-vcodec", "png",
			"-",
		},
		Stdout: &out,
		LogHandler: func(line string) {
			e.logger.Debug().Str("ffmpeg", line).Msg("poster extraction")
		},
	})
	if err != nil {
		return nil, fmt.Errorf("poster extraction failed: %w", err)
	}

	img, err := png.Decode(&out)
	if err != nil {
		return nil, fmt.Errorf("failed to decode poster frame: %w", err)
	}
	return FitPoster(img, maxW, maxH), nil
}

// FitPoster scales img down to fit maxW x maxH keeping its aspect ratio.
// Smaller images are returned as is.
func FitPoster(img image.Image, maxW, maxH uint) image.Image {
	b := img.Bounds()
	if uint(b.Dx()) <= maxW && uint(b.Dy()) <= maxH {
		return img
	}
	return resize.Thumbnail(maxW, maxH, img, resize.Bilinear)
}
