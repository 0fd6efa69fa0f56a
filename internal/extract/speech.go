package extract

import (
	"context"
	"fmt"
	"os"

	"github.com/clipquery/clipquery/internal/video"
)

// transcriber is the slice of the inference engine the speech method needs.
type transcriber interface {
	Transcribe(ctx context.Context, model string, path string) ([]video.Segment, error)
}

// Speech downloads the audio track and runs speech recognition on it. The
// most expensive method, but works for any video with an audio track.
type Speech struct {
	runner *Runner
	engine transcriber
	model  string
}

// NewSpeech creates the method over the given yt-dlp runner and engine.
func NewSpeech(runner *Runner, engine transcriber, model string) *Speech {
	return &Speech{runner: runner, engine: engine, model: model}
}

func (s *Speech) Name() string { return MethodSpeech }

func (s *Speech) Extract(ctx context.Context, id video.ID) ([]video.Segment, error) {
	path, err := s.runner.DownloadAudio(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("downloading audio: %w", err)
	}
	defer os.Remove(path)

	segs, err := s.engine.Transcribe(ctx, s.model, path)
	if err != nil {
		return nil, fmt.Errorf("transcribing audio: %w", err)
	}
	return segs, nil
}
