// Package frames extracts evenly-strided video frames for visual evidence.
package frames

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/clipquery/clipquery/internal/extract"
	"github.com/clipquery/clipquery/internal/video"
)

// Window narrows sampling to a time region. The zero value means the whole
// video.
type Window struct {
	Start float64
	End   float64
}

// IsZero reports whether the window covers the whole video.
func (w Window) IsZero() bool { return w.Start == 0 && w.End == 0 }

// source provides the downloaded video file and its metadata.
type source interface {
	DownloadVideo(ctx context.Context, id video.ID) (string, error)
	Probe(ctx context.Context, id video.ID) (extract.Metadata, error)
}

// frameExtractor writes strided JPEG frames from a video file into a
// directory. Split out so tests can substitute the ffmpeg invocation.
type frameExtractor interface {
	ExtractFrames(ctx context.Context, videoPath, outDir string, win Window, interval float64) error
}

// Sampler produces frame sequences and caches them per (identity, window).
// The source video is downloaded at most once per identity.
type Sampler struct {
	src       source
	extractor frameExtractor
	dir       string
	interval  int
	maxFrames int

	mu    sync.RWMutex
	cache map[string][]video.Frame
	group singleflight.Group
}

// New creates a Sampler. interval is the default stride in seconds;
// maxFrames bounds a whole-video sample, stretching the stride for long
// videos.
func New(src source, ffmpegBin, dir string, interval, maxFrames int) *Sampler {
	return &Sampler{
		src:       src,
		extractor: &ffmpegExtractor{bin: ffmpegBin},
		dir:       dir,
		interval:  interval,
		maxFrames: maxFrames,
		cache:     make(map[string][]video.Frame),
	}
}

// Sample returns frames for the given video, optionally narrowed to a
// window. duration is the known video duration in seconds; pass 0 to probe
// it. Concurrent calls for the same (identity, window) collapse into one
// extraction.
func (s *Sampler) Sample(ctx context.Context, id video.ID, duration float64, win Window) ([]video.Frame, error) {
	key := cacheKey(id, win)

	s.mu.RLock()
	cached, ok := s.cache[key]
	s.mu.RUnlock()
	if ok {
		return cached, nil
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		s.mu.RLock()
		if cached, ok := s.cache[key]; ok {
			s.mu.RUnlock()
			return cached, nil
		}
		s.mu.RUnlock()

		frames, err := s.sample(ctx, id, duration, win)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		s.cache[key] = frames
		s.mu.Unlock()
		return frames, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]video.Frame), nil
}

func (s *Sampler) sample(ctx context.Context, id video.ID, duration float64, win Window) ([]video.Frame, error) {
	if duration <= 0 && win.IsZero() {
		md, err := s.src.Probe(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("probing video duration: %w", err)
		}
		duration = md.Duration
	}

	path, err := s.src.DownloadVideo(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("downloading video: %w", err)
	}

	span := duration
	if !win.IsZero() {
		span = win.End - win.Start
	}
	interval := planInterval(span, s.interval, s.maxFrames)

	jobDir := filepath.Join(s.dir, "frames-"+uuid.New().String())
	if err := os.MkdirAll(jobDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating frame dir: %w", err)
	}
	defer os.RemoveAll(jobDir)

	if err := s.extractor.ExtractFrames(ctx, path, jobDir, win, interval); err != nil {
		return nil, fmt.Errorf("extracting frames: %w", err)
	}

	frames, err := collectFrames(ctx, jobDir, win.Start, interval)
	if err != nil {
		return nil, err
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("no frames extracted")
	}

	slog.Debug("frames sampled",
		"video", string(id), "window", cacheKey(id, win), "frames", len(frames), "interval", interval)
	return frames, nil
}

// planInterval stretches the stride so a span never yields more than
// maxFrames frames.
func planInterval(span float64, interval, maxFrames int) float64 {
	iv := float64(interval)
	if span <= 0 {
		return iv
	}
	if span/iv > float64(maxFrames) {
		return span / float64(maxFrames)
	}
	return iv
}

// collectFrames loads extracted JPEGs into memory, in stride order, reading
// files concurrently.
func collectFrames(ctx context.Context, dir string, windowStart, interval float64) ([]video.Frame, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading frame dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".jpg") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	frames := make([]video.Frame, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(filepath.Join(dir, name))
			if err != nil {
				return fmt.Errorf("reading frame %s: %w", name, err)
			}
			frames[i] = video.Frame{
				Timestamp: windowStart + float64(i)*interval,
				Path:      name,
				Data:      data,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return frames, nil
}

func cacheKey(id video.ID, win Window) string {
	if win.IsZero() {
		return string(id) + "|full"
	}
	return fmt.Sprintf("%s|%.0f-%.0f", id, win.Start, win.End)
}
