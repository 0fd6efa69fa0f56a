// Package pipeline sequences the processing components. The Coordinator is
// the only place cross-component calls happen.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/clipquery/clipquery/internal/answer"
	"github.com/clipquery/clipquery/internal/cache"
	"github.com/clipquery/clipquery/internal/classify"
	"github.com/clipquery/clipquery/internal/extract"
	"github.com/clipquery/clipquery/internal/frames"
	"github.com/clipquery/clipquery/internal/video"
)

// frameWindowPadding widens the region around a timestamp mentioned in a
// question, in seconds.
const frameWindowPadding = 30

// visualUnavailableNote is appended to a degraded answer when frame sampling
// failed for a visual question.
const visualUnavailableNote = "\n\n(Note: visual evidence was unavailable, so this answer is based on the transcript alone.)"

// extractor runs the transcript extraction chain.
type extractor interface {
	Run(ctx context.Context, id video.ID) (extract.Result, error)
}

// titler resolves a video's display title.
type titler interface {
	Title(ctx context.Context, id video.ID) string
}

// classifier routes a question to text or visual answering.
type classifier interface {
	Classify(ctx context.Context, question string) classify.Classification
}

// sampler produces frames for a video region.
type sampler interface {
	Sample(ctx context.Context, id video.ID, duration float64, win frames.Window) ([]video.Frame, error)
}

// synthesizer produces the final answer text.
type synthesizer interface {
	Synthesize(ctx context.Context, question, title string, segments []video.Segment, frms []video.Frame) (answer.Result, error)
}

// chapterer derives chapters from a transcript.
type chapterer interface {
	Generate(ctx context.Context, title string, segments []video.Segment) ([]video.Chapter, error)
}

// Coordinator exposes the two pipeline operations and owns their sequencing.
type Coordinator struct {
	cache      *cache.Cache
	chain      extractor
	titles     titler
	classifier classifier
	sampler    sampler
	synth      synthesizer
	chapters   chapterer
}

// New wires a Coordinator from its components.
func New(c *cache.Cache, chain extractor, titles titler, cls classifier, smp sampler, syn synthesizer, chp chapterer) *Coordinator {
	return &Coordinator{
		cache:      c,
		chain:      chain,
		titles:     titles,
		classifier: cls,
		sampler:    smp,
		synth:      syn,
		chapters:   chp,
	}
}

// ProcessVideo resolves the URL to an identity and ensures its record is
// cached, extracting the transcript and deriving chapters on a miss.
func (co *Coordinator) ProcessVideo(ctx context.Context, rawURL string) (*cache.Record, error) {
	id, err := video.ParseID(rawURL)
	if err != nil {
		return nil, err
	}
	return co.ensureRecord(ctx, id)
}

func (co *Coordinator) ensureRecord(ctx context.Context, id video.ID) (*cache.Record, error) {
	return co.cache.GetOrCreate(ctx, id, func(ctx context.Context) (*cache.Record, error) {
		// A client disconnect must not abandon extraction mid-flight; the
		// completed record still benefits every later caller.
		ctx = context.WithoutCancel(ctx)

		res, err := co.chain.Run(ctx, id)
		if err != nil {
			return nil, err
		}

		title := co.titles.Title(ctx, id)

		chs, err := co.chapters.Generate(ctx, title, res.Segments)
		if err != nil {
			// Chapters are navigation sugar; the transcript is still usable.
			slog.Warn("chapter generation failed", "video", string(id), "error", err)
			chs = nil
		}

		return &cache.Record{
			ID:       id,
			Title:    title,
			Method:   res.Method,
			Segments: res.Segments,
			Chapters: chs,
		}, nil
	})
}

// AnswerQuestion ensures the video is processed, classifies the question,
// gathers visual evidence when needed, and synthesizes the answer.
func (co *Coordinator) AnswerQuestion(ctx context.Context, rawURL, question string) (answer.Result, error) {
	id, err := video.ParseID(rawURL)
	if err != nil {
		return answer.Result{}, err
	}

	rec, err := co.ensureRecord(ctx, id)
	if err != nil {
		return answer.Result{}, fmt.Errorf("video is not ready for questions: %w", err)
	}

	var frms []video.Frame
	var degraded bool
	if co.classifier.Classify(ctx, question) == classify.Visual {
		frms, err = co.sampler.Sample(ctx, id, rec.Duration(), deriveWindow(question, rec.Duration()))
		if err != nil {
			// A transcript-only answer with a note beats failing the request.
			slog.Warn("frame sampling failed, degrading to text answer",
				"video", string(id), "error", err)
			frms = nil
			degraded = true
		}
	}

	res, err := co.synth.Synthesize(ctx, question, rec.Title, rec.Segments, frms)
	if err != nil {
		return answer.Result{}, err
	}
	if degraded {
		res.Text += visualUnavailableNote
	}
	return res, nil
}

// Summarize answers a fixed whole-video summary question.
func (co *Coordinator) Summarize(ctx context.Context, rawURL string) (answer.Result, error) {
	return co.AnswerQuestion(ctx, rawURL,
		"Summarize this video: its main topic, key points, and conclusions.")
}

// Record returns the cached record for a processed video without triggering
// extraction.
func (co *Coordinator) Record(id video.ID) (*cache.Record, error) {
	return co.cache.Get(id)
}

// deriveWindow narrows frame sampling to the region around a timestamp
// mentioned in the question. Without one the whole video is sampled
// sparsely.
func deriveWindow(question string, duration float64) frames.Window {
	ts := video.ParseTimestamps(question)
	if len(ts) == 0 {
		return frames.Window{}
	}

	center := float64(ts[0])
	win := frames.Window{Start: center - frameWindowPadding, End: center + frameWindowPadding}
	if win.Start < 0 {
		win.Start = 0
	}
	if duration > 0 && win.End > duration {
		win.End = duration
	}
	return win
}
