package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/clipquery/clipquery/internal/video"
)

// Runner invokes the yt-dlp binary for caption, audio, and video downloads.
// All artifacts land in dir under names derived from the video ID.
type Runner struct {
	bin string
	dir string
}

// NewRunner creates a Runner using the given binary and download directory.
func NewRunner(bin, dir string) *Runner {
	return &Runner{bin: bin, dir: dir}
}

func (r *Runner) run(ctx context.Context, args ...string) error {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("creating download dir: %w", err)
	}

	cmd := exec.CommandContext(ctx, r.bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return fmt.Errorf("running %s: %w", r.bin, err)
		}
		return fmt.Errorf("running %s: %w: %s", r.bin, err, lastLine(msg))
	}
	return nil
}

func lastLine(s string) string {
	lines := strings.Split(s, "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

func watchURL(id video.ID) string {
	return "https://www.youtube.com/watch?v=" + string(id)
}

// DownloadSubtitles fetches the English subtitle track (manual or
// auto-generated) as WebVTT and returns the file path.
func (r *Runner) DownloadSubtitles(ctx context.Context, id video.ID) (string, error) {
	out := filepath.Join(r.dir, string(id))
	err := r.run(ctx,
		"--skip-download",
		"--write-subs", "--write-auto-subs",
		"--sub-langs", "en.*",
		"--sub-format", "vtt",
		"--no-playlist", "--quiet",
		"-o", out,
		watchURL(id),
	)
	if err != nil {
		return "", err
	}

	matches, err := filepath.Glob(out + "*.vtt")
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no subtitle file produced")
	}
	return matches[0], nil
}

// DownloadAudio fetches the best audio track for transcription and returns
// the file path.
func (r *Runner) DownloadAudio(ctx context.Context, id video.ID) (string, error) {
	out := filepath.Join(r.dir, string(id)+".audio.%(ext)s")
	err := r.run(ctx,
		"-f", "bestaudio[ext=m4a]/bestaudio",
		"--no-playlist", "--quiet",
		"-o", out,
		watchURL(id),
	)
	if err != nil {
		return "", err
	}

	matches, err := filepath.Glob(filepath.Join(r.dir, string(id)+".audio.*"))
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no audio file produced")
	}
	return matches[0], nil
}

// DownloadVideo fetches a bounded-quality MP4 for frame extraction and
// returns the file path. An existing download for the same ID is reused.
func (r *Runner) DownloadVideo(ctx context.Context, id video.ID) (string, error) {
	out := filepath.Join(r.dir, string(id)+".mp4")
	if _, err := os.Stat(out); err == nil {
		return out, nil
	}

	err := r.run(ctx,
		"-f", "best[height<=480][ext=mp4]/best[ext=mp4]/best",
		"--no-playlist", "--quiet",
		"-o", out,
		watchURL(id),
	)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(out); err != nil {
		return "", fmt.Errorf("no video file produced")
	}
	return out, nil
}

// Metadata holds the subset of the probe output the pipeline needs.
type Metadata struct {
	Title    string  `json:"title"`
	Duration float64 `json:"duration"`
}

// Probe fetches video metadata without downloading media.
func (r *Runner) Probe(ctx context.Context, id video.ID) (Metadata, error) {
	cmd := exec.CommandContext(ctx, r.bin, "-J", "--no-playlist", "--quiet", watchURL(id))
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return Metadata{}, fmt.Errorf("probing metadata: %w: %s", err, lastLine(stderr.String()))
	}

	var md Metadata
	if err := json.Unmarshal(stdout.Bytes(), &md); err != nil {
		return Metadata{}, fmt.Errorf("decoding metadata: %w", err)
	}
	return md, nil
}
