package frames

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// ffmpegExtractor shells out to ffmpeg for strided JPEG extraction.
type ffmpegExtractor struct {
	bin string
}

func (f *ffmpegExtractor) ExtractFrames(ctx context.Context, videoPath, outDir string, win Window, interval float64) error {
	args := []string{"-y"}
	if !win.IsZero() {
		args = append(args,
			"-ss", strconv.FormatFloat(win.Start, 'f', 2, 64),
			"-to", strconv.FormatFloat(win.End, 'f', 2, 64),
		)
	}
	args = append(args,
		"-i", videoPath,
		"-vf", fmt.Sprintf("fps=1/%g", interval),
		"-q:v", "4",
		filepath.Join(outDir, "%05d.jpg"),
	)

	cmd := exec.CommandContext(ctx, f.bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return fmt.Errorf("running %s: %w", f.bin, err)
		}
		lines := strings.Split(msg, "\n")
		return fmt.Errorf("running %s: %w: %s", f.bin, err, strings.TrimSpace(lines[len(lines)-1]))
	}
	return nil
}
