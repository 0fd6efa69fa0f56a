// Package extract obtains time-ordered transcripts for videos using an
// ordered chain of independent methods with fallback.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/clipquery/clipquery/internal/video"
)

// Extraction method names, in chain order.
const (
	MethodCaptionsAPI = "captions_api"
	MethodCaptionFile = "caption_file"
	MethodSpeech      = "speech"
)

// Result is a successful extraction: the transcript plus the method that
// produced it.
type Result struct {
	Segments []video.Segment
	Method   string
}

// Method is one transcript extraction strategy. Implementations return the
// raw segments or an error describing why this method cannot serve the video.
type Method interface {
	Name() string
	Extract(ctx context.Context, id video.ID) ([]video.Segment, error)
}

// Attempt records one failed method within a ChainError.
type Attempt struct {
	Method string
	Reason error
}

// ChainError aggregates the per-method failure reasons after every method in
// the chain has been exhausted.
type ChainError struct {
	Attempts []Attempt
}

func (e *ChainError) Error() string {
	parts := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		parts[i] = fmt.Sprintf("%s: %v", a.Method, a.Reason)
	}
	return "transcript extraction failed: " + strings.Join(parts, "; ")
}

// Chain tries each method in order and stops at the first success. A method
// failure never aborts the chain; it is recorded and the next method runs.
type Chain struct {
	methods []Method
	timeout time.Duration
}

// NewChain builds a chain over the given methods. Each method gets its own
// timeout; methods are not retried individually.
func NewChain(timeout time.Duration, methods ...Method) *Chain {
	return &Chain{methods: methods, timeout: timeout}
}

// Run executes the chain for the given video. On success the segments are
// normalized (empty texts dropped, sorted by start time). When every method
// fails the returned error is a *ChainError carrying all failure reasons.
func (c *Chain) Run(ctx context.Context, id video.ID) (Result, error) {
	chainErr := &ChainError{}

	for _, m := range c.methods {
		mctx, cancel := context.WithTimeout(ctx, c.timeout)
		segs, err := m.Extract(mctx, id)
		cancel()

		if err == nil {
			segs = normalize(segs)
			err = validate(segs)
		}
		if err != nil {
			slog.Warn("extraction method failed",
				"video", string(id), "method", m.Name(), "error", err)
			chainErr.Attempts = append(chainErr.Attempts, Attempt{Method: m.Name(), Reason: err})
			continue
		}

		slog.Info("transcript extracted",
			"video", string(id), "method", m.Name(), "segments", len(segs))
		return Result{Segments: segs, Method: m.Name()}, nil
	}

	return Result{}, chainErr
}

// normalize drops whitespace-only segments and sorts by start time.
func normalize(segs []video.Segment) []video.Segment {
	out := segs[:0]
	for _, s := range segs {
		s.Text = strings.TrimSpace(s.Text)
		if s.Text != "" {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

// validate enforces the method success criteria: a non-empty sequence with
// non-decreasing start times.
func validate(segs []video.Segment) error {
	if len(segs) == 0 {
		return fmt.Errorf("no transcript segments")
	}
	for i := 1; i < len(segs); i++ {
		if segs[i].Start < segs[i-1].Start {
			return fmt.Errorf("segments out of order at index %d", i)
		}
	}
	return nil
}
