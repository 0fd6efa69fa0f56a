package frames

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/clipquery/clipquery/internal/extract"
	"github.com/clipquery/clipquery/internal/video"
)

// fakeSource implements source, counting downloads.
type fakeSource struct {
	downloads atomic.Int32
	duration  float64
}

func (f *fakeSource) DownloadVideo(ctx context.Context, id video.ID) (string, error) {
	f.downloads.Add(1)
	return "/tmp/fake-" + string(id) + ".mp4", nil
}

func (f *fakeSource) Probe(ctx context.Context, id video.ID) (extract.Metadata, error) {
	return extract.Metadata{Title: "fake", Duration: f.duration}, nil
}

// fakeExtractor implements frameExtractor by writing n dummy JPEG files.
type fakeExtractor struct {
	n     int
	err   error
	calls atomic.Int32
	wins  []Window
}

func (f *fakeExtractor) ExtractFrames(ctx context.Context, videoPath, outDir string, win Window, interval float64) error {
	f.calls.Add(1)
	f.wins = append(f.wins, win)
	if f.err != nil {
		return f.err
	}
	for i := 1; i <= f.n; i++ {
		name := filepath.Join(outDir, fmt.Sprintf("%05d.jpg", i))
		if err := os.WriteFile(name, []byte{0xff, 0xd8, byte(i)}, 0o644); err != nil {
			return err
		}
	}
	return nil
}

func newTestSampler(t *testing.T, src *fakeSource, ex *fakeExtractor) *Sampler {
	t.Helper()
	s := New(src, "ffmpeg", t.TempDir(), 5, 200)
	s.extractor = ex
	return s
}

func TestPlanInterval(t *testing.T) {
	tests := []struct {
		span float64
		want float64
	}{
		{span: 100, want: 5},    // 20 frames, under the cap
		{span: 1000, want: 5},   // exactly 200 frames
		{span: 2000, want: 10},  // stretched to stay at 200
		{span: 10000, want: 50}, // long video
		{span: 0, want: 5},
	}
	for _, tt := range tests {
		if got := planInterval(tt.span, 5, 200); got != tt.want {
			t.Errorf("planInterval(%v) = %v, want %v", tt.span, got, tt.want)
		}
	}
}

func TestSampleWholeVideo(t *testing.T) {
	src := &fakeSource{duration: 60}
	ex := &fakeExtractor{n: 12}
	s := newTestSampler(t, src, ex)

	frames, err := s.Sample(context.Background(), "abc12345678", 60, Window{})
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if len(frames) != 12 {
		t.Fatalf("got %d frames, want 12", len(frames))
	}
	if frames[0].Timestamp != 0 || frames[3].Timestamp != 15 {
		t.Errorf("timestamps = %v, %v; want stride of 5", frames[0].Timestamp, frames[3].Timestamp)
	}
}

func TestSampleWindow(t *testing.T) {
	src := &fakeSource{duration: 600}
	ex := &fakeExtractor{n: 12}
	s := newTestSampler(t, src, ex)

	win := Window{Start: 120, End: 180}
	frames, err := s.Sample(context.Background(), "abc12345678", 600, win)
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if len(ex.wins) != 1 || ex.wins[0] != win {
		t.Errorf("extractor windows = %v, want %v", ex.wins, win)
	}
	if frames[0].Timestamp != 120 {
		t.Errorf("first timestamp = %v, want window start", frames[0].Timestamp)
	}
	if frames[2].Timestamp != 130 {
		t.Errorf("third timestamp = %v, want 130", frames[2].Timestamp)
	}
}

func TestSampleCachedPerWindow(t *testing.T) {
	src := &fakeSource{duration: 600}
	ex := &fakeExtractor{n: 4}
	s := newTestSampler(t, src, ex)

	win := Window{Start: 120, End: 180}
	if _, err := s.Sample(context.Background(), "abc12345678", 600, win); err != nil {
		t.Fatalf("first Sample: %v", err)
	}
	if _, err := s.Sample(context.Background(), "abc12345678", 600, win); err != nil {
		t.Fatalf("second Sample: %v", err)
	}
	if ex.calls.Load() != 1 {
		t.Errorf("extraction ran %d times for the same window, want 1", ex.calls.Load())
	}

	// A different window extracts again but reuses the download.
	if _, err := s.Sample(context.Background(), "abc12345678", 600, Window{Start: 300, End: 360}); err != nil {
		t.Fatalf("third Sample: %v", err)
	}
	if ex.calls.Load() != 2 {
		t.Errorf("extraction ran %d times for two windows, want 2", ex.calls.Load())
	}
}

func TestSampleFailure(t *testing.T) {
	src := &fakeSource{duration: 600}
	ex := &fakeExtractor{err: fmt.Errorf("ffmpeg exploded")}
	s := newTestSampler(t, src, ex)

	if _, err := s.Sample(context.Background(), "abc12345678", 600, Window{}); err == nil {
		t.Fatal("Sample succeeded despite extractor failure, want error")
	}

	// Failures are not cached; the next call tries again.
	ex.err = nil
	ex.n = 2
	if _, err := s.Sample(context.Background(), "abc12345678", 600, Window{}); err != nil {
		t.Fatalf("Sample after failure: %v", err)
	}
}

func TestSampleEmptyOutput(t *testing.T) {
	src := &fakeSource{duration: 600}
	ex := &fakeExtractor{n: 0}
	s := newTestSampler(t, src, ex)

	if _, err := s.Sample(context.Background(), "abc12345678", 600, Window{}); err == nil {
		t.Fatal("Sample succeeded with zero frames, want error")
	}
}
