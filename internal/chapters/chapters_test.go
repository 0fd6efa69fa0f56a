package chapters

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/clipquery/clipquery/internal/engine"
	"github.com/clipquery/clipquery/internal/video"
)

// mockChatter implements chatter for testing.
type mockChatter struct {
	response string
	err      error
	calls    int
}

func (m *mockChatter) Chat(ctx context.Context, model string, messages []engine.Message, jsonSchema *engine.Schema) (string, error) {
	m.calls++
	return m.response, m.err
}

// makeSegments builds n segments, 4 seconds each, with varied text.
func makeSegments(n int) []video.Segment {
	segs := make([]video.Segment, n)
	for i := range segs {
		segs[i] = video.Segment{
			Start: float64(i * 4),
			End:   float64(i*4 + 4),
			Text:  fmt.Sprintf("discussing topic number %d in detail", i),
		}
	}
	return segs
}

func TestStructuralBucketing(t *testing.T) {
	segs := makeSegments(200)
	chs := Structural(segs)

	// 200 segments with a minimum bucket of 50 gives 4 content chapters
	// plus the conclusion.
	if len(chs) != 5 {
		t.Fatalf("got %d chapters, want 5", len(chs))
	}
	for i := 1; i < len(chs); i++ {
		if chs[i].Seconds < chs[i-1].Seconds {
			t.Fatalf("chapters not sorted: %+v", chs)
		}
	}

	last := chs[len(chs)-1]
	if last.Title != "Conclusion" {
		t.Errorf("final chapter = %q, want Conclusion", last.Title)
	}
	if last.Seconds != 800 {
		t.Errorf("conclusion at %d, want last segment end 800", last.Seconds)
	}
}

func TestStructuralLargeTranscriptUsesWiderBuckets(t *testing.T) {
	segs := makeSegments(1500)
	chs := Structural(segs)

	// bucket = 1500/15 = 100, so 15 content chapters plus the conclusion.
	if len(chs) != 16 {
		t.Errorf("got %d chapters, want 16", len(chs))
	}
}

func TestStructuralEmpty(t *testing.T) {
	if chs := Structural(nil); chs != nil {
		t.Errorf("Structural(nil) = %+v, want nil", chs)
	}
}

func TestDeriveTitle(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"so today we are going to talk about neural networks", "Talk Neural Networks"},
		{"welcome to the channel everyone", "Channel Everyone"},
		{"the quick brown fox jumps", "Quick Brown Fox"},
		{"um so like you know", "Know"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := deriveTitle(tt.text); got != tt.want {
			t.Errorf("deriveTitle(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestDeriveTitleTruncates(t *testing.T) {
	got := deriveTitle("internationalization considerations notwithstanding anything")
	if len(got) > maxTitleLen+3 {
		t.Errorf("title %q exceeds bound", got)
	}
	if got[len(got)-3:] != "..." {
		t.Errorf("truncated title %q missing ellipsis", got)
	}
}

func TestGenerateUsesStructuralFirst(t *testing.T) {
	mock := &mockChatter{err: errors.New("should not be called")}
	g := New(mock, "gpt-4o-mini")

	chs, err := g.Generate(context.Background(), "Test", makeSegments(200))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(chs) == 0 {
		t.Fatal("no chapters")
	}
	if mock.calls != 0 {
		t.Errorf("model called %d times despite usable structural result", mock.calls)
	}
}

func TestGenerateFallsBackToGenerative(t *testing.T) {
	mock := &mockChatter{response: "0:00:00 - Introduction\n0:05:30 - Main Argument\n0:12:00 - Closing Thoughts"}
	g := New(mock, "gpt-4o-mini")

	// Segments whose text yields no structural titles.
	segs := []video.Segment{
		{Start: 0, End: 4, Text: "um so"},
		{Start: 4, End: 8, Text: "like, you know..."},
	}
	chs, err := g.Generate(context.Background(), "Test", segs)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if mock.calls != 1 {
		t.Fatalf("model called %d times, want 1", mock.calls)
	}
	if len(chs) != 3 || chs[1].Seconds != 330 || chs[1].Title != "Main Argument" {
		t.Errorf("chapters = %+v", chs)
	}
}

func TestGenerateBothStrategiesFail(t *testing.T) {
	mock := &mockChatter{err: errors.New("model down")}
	g := New(mock, "gpt-4o-mini")

	if _, err := g.Generate(context.Background(), "Test", nil); err == nil {
		t.Fatal("Generate succeeded with no segments and a dead model, want error")
	}
}

func TestParseChapterLines(t *testing.T) {
	text := `Here are the chapters:

**0:00:00 - Introduction**
0:02:30 – En Dash Chapter
1:15:04 - Late Section
garbage line
0:01:00 - Out Of Order`

	chs := ParseChapterLines(text)
	if len(chs) != 4 {
		t.Fatalf("got %d chapters, want 4", len(chs))
	}
	if chs[0].Seconds != 0 || chs[0].Title != "Introduction" {
		t.Errorf("chapter 0 = %+v, want markdown stripped", chs[0])
	}
	if chs[1].Seconds != 60 {
		t.Errorf("chapters not sorted: %+v", chs)
	}
	if chs[2].Title != "En Dash Chapter" {
		t.Errorf("en-dash line not parsed: %+v", chs[2])
	}
	if chs[3].Seconds != 4504 {
		t.Errorf("late section seconds = %d, want 4504", chs[3].Seconds)
	}
}

func TestParseChapterLinesEmpty(t *testing.T) {
	if chs := ParseChapterLines("no chapters in this text"); chs != nil {
		t.Errorf("ParseChapterLines = %+v, want nil", chs)
	}
}
