// Package ffmpeg shells out to ffprobe and ffmpeg for metadata the player
// has not reported yet and for poster frames.
package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/reactionsync/pkg/util"
)

// ErrNotFound is returned by New when ffmpeg or ffprobe is missing
var ErrNotFound = errors.New("ffmpeg: binary not found")

// Executor runs ffmpeg and ffprobe
type Executor struct {
	logger      zerolog.Logger
	ffmpegPath  string
	ffprobePath string
}

// New finds both binaries, preferring copies bundled next to the executable
func New(logger zerolog.Logger) (*Executor, error) {
	ffmpegPath, err := util.FindBinary("ffmpeg")
	if err != nil {
		return nil, fmt.Errorf("%w: ffmpeg: %v", ErrNotFound, err)
	}

	ffprobePath, err := util.FindBinary("ffprobe")
	if err != nil {
		return nil, fmt.Errorf("%w: ffprobe: %v", ErrNotFound, err)
	}

	return &Executor{
		logger:      logger.With().Str("component", "ffmpeg").Logger(),
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
	}, nil
}

// RunOptions configures one ffmpeg invocation
type RunOptions struct {
	Args []string
	// Stdout receives the process output; nil discards it.
	Stdout io.Writer
	// LogHandler receives stderr line by line.
	LogHandler func(line string)
}

// Run executes ffmpeg. The last stderr lines are folded into the error on
// failure.
func (e *Executor) Run(ctx context.Context, opts RunOptions) error {
	if len(opts.Args) == 0 {
		return fmt.Errorf("no arguments provided")
	}

	args := append([]string{"-y", "-hide_banner", "-loglevel", "error"}, opts.Args...)

	e.logger.Debug().
		Str("cmd", "ffmpeg").
		Strs("args", args).
		Msg("executing ffmpeg")

	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)
	if opts.Stdout != nil {
		cmd.Stdout = opts.Stdout
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	tail := &lineTail{max: 5}
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			line := scanner.Text()
			tail.add(line)
			if opts.LogHandler != nil {
				opts.LogHandler(line)
			}
		}
	}()
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if msg := tail.String(); msg != "" {
			return fmt.Errorf("ffmpeg execution failed: %w: %s", err, msg)
		}
		return fmt.Errorf("ffmpeg execution failed: %w", err)
	}
	return nil
}

// probe runs ffprobe and returns its stdout
func (e *Executor) probe(ctx context.Context, args ...string) ([]byte, error) {
	e.logger.Debug().
		Str("cmd", "ffprobe").
		Strs("args", args).
		Msg("executing ffprobe")

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.ffprobePath, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("ffprobe failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

type lineTail struct {
	mu    sync.Mutex
	max   int
	lines []string
}

func (t *lineTail) add(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = append(t.lines, line)
	if len(t.lines) > t.max {
		t.lines = t.lines[len(t.lines)-t.max:]
	}
}

func (t *lineTail) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.TrimSpace(strings.Join(t.lines, "; "))
}
