package extract

import (
	"context"
	"fmt"
	"os"

	"github.com/clipquery/clipquery/internal/video"
)

// CaptionFile downloads the subtitle file with yt-dlp and parses it. Covers
// videos whose captions the direct API does not serve.
type CaptionFile struct {
	runner *Runner
}

// NewCaptionFile creates the method over the given yt-dlp runner.
func NewCaptionFile(runner *Runner) *CaptionFile {
	return &CaptionFile{runner: runner}
}

func (c *CaptionFile) Name() string { return MethodCaptionFile }

func (c *CaptionFile) Extract(ctx context.Context, id video.ID) ([]video.Segment, error) {
	path, err := c.runner.DownloadSubtitles(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("downloading subtitles: %w", err)
	}
	defer os.Remove(path)

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading subtitle file: %w", err)
	}

	segs := ParseVTT(string(content))
	if len(segs) == 0 {
		return nil, fmt.Errorf("subtitle file contained no usable cues")
	}
	return segs, nil
}
