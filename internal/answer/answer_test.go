package answer

import (
	"context"
	"errors"
	"net"
	"reflect"
	"strings"
	"testing"

	"github.com/clipquery/clipquery/internal/engine"
	"github.com/clipquery/clipquery/internal/video"
)

// mockEngine implements synthesisEngine for testing.
type mockEngine struct {
	chatResponse   string
	chatErr        error
	visionResponse string
	visionErr      error

	chatCalls   int
	visionCalls int
	lastPrompt  string
	lastImages  [][]byte
}

func (m *mockEngine) Chat(ctx context.Context, model string, messages []engine.Message, jsonSchema *engine.Schema) (string, error) {
	m.chatCalls++
	if len(messages) > 0 {
		m.lastPrompt = messages[len(messages)-1].Content
	}
	return m.chatResponse, m.chatErr
}

func (m *mockEngine) ChatVision(ctx context.Context, model string, prompt string, images [][]byte) (string, error) {
	m.visionCalls++
	m.lastPrompt = prompt
	m.lastImages = images
	return m.visionResponse, m.visionErr
}

var testSegments = []video.Segment{
	{Start: 0, End: 70, Text: "welcome to the talk"},
	{Start: 70, End: 150, Text: "the main topic begins"},
}

func TestSynthesizeText(t *testing.T) {
	mock := &mockEngine{chatResponse: "The talk begins with a welcome (0:00:00) and the topic starts at (0:01:10)."}
	s := New(mock, "gpt-4o-mini", "gpt-4o")

	res, err := s.Synthesize(context.Background(), "What is this about?", "Test Talk", testSegments, nil)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if res.Method != MethodText {
		t.Errorf("method = %v, want text", res.Method)
	}
	if !reflect.DeepEqual(res.Citations, []int{0, 70}) {
		t.Errorf("citations = %v, want [0 70]", res.Citations)
	}
	if mock.visionCalls != 0 {
		t.Errorf("vision called %d times for text question", mock.visionCalls)
	}
	if !strings.Contains(mock.lastPrompt, "[0:00:00] welcome to the talk") {
		t.Errorf("transcript missing from prompt: %q", mock.lastPrompt)
	}
}

func TestSynthesizeVisual(t *testing.T) {
	mock := &mockEngine{visionResponse: "The car shown at (0:02:30) is red."}
	s := New(mock, "gpt-4o-mini", "gpt-4o")

	frames := []video.Frame{
		{Timestamp: 145, Data: []byte{1}},
		{Timestamp: 150, Data: []byte{2}},
	}
	res, err := s.Synthesize(context.Background(), "What color is the car?", "Test Talk", testSegments, frames)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if res.Method != MethodVisual {
		t.Errorf("method = %v, want visual", res.Method)
	}
	if len(mock.lastImages) != 2 {
		t.Errorf("engine received %d images, want 2", len(mock.lastImages))
	}
	if !strings.Contains(mock.lastPrompt, "frame 1 at 0:02:25") {
		t.Errorf("frame timestamps missing from prompt: %q", mock.lastPrompt)
	}
}

func TestSynthesizeFailureIsTyped(t *testing.T) {
	mock := &mockEngine{chatErr: errors.New("model unavailable")}
	s := New(mock, "gpt-4o-mini", "gpt-4o")

	_, err := s.Synthesize(context.Background(), "Why?", "Test Talk", testSegments, nil)

	var synthErr *SynthesisError
	if !errors.As(err, &synthErr) {
		t.Fatalf("error = %T, want *SynthesisError", err)
	}
	if synthErr.Method != MethodText {
		t.Errorf("error method = %v, want text", synthErr.Method)
	}
	if mock.chatCalls != 1 {
		t.Errorf("chat called %d times for non-transient error, want 1", mock.chatCalls)
	}
}

func TestSynthesizeRetriesTransient(t *testing.T) {
	mock := &mockEngine{chatErr: &net.OpError{Op: "dial", Err: errors.New("connection refused")}}
	s := New(mock, "gpt-4o-mini", "gpt-4o")

	if _, err := s.Synthesize(context.Background(), "Why?", "Test Talk", testSegments, nil); err == nil {
		t.Fatal("Synthesize succeeded, want error")
	}
	if mock.chatCalls != 2 {
		t.Errorf("chat called %d times, want 1 attempt + 1 retry", mock.chatCalls)
	}
}

func TestSynthesizeEmptyResponse(t *testing.T) {
	mock := &mockEngine{chatResponse: ""}
	s := New(mock, "gpt-4o-mini", "gpt-4o")

	var synthErr *SynthesisError
	if _, err := s.Synthesize(context.Background(), "Why?", "Test Talk", testSegments, nil); !errors.As(err, &synthErr) {
		t.Fatalf("error = %v, want *SynthesisError on empty response", err)
	}
}

func TestCitations(t *testing.T) {
	tests := []struct {
		text string
		want []int
	}{
		{"see (0:02:30) for details", []int{150}},
		{"between (1:00:00) and (1:02:05)", []int{3600, 3725}},
		{"ten hours in (10:00:00)", []int{36000}},
		{"no citations here", nil},
		{"malformed (2:3:04) and (0:99:00) are skipped", nil},
		{"unparenthesized 0:02:30 does not count", nil},
	}
	for _, tt := range tests {
		if got := Citations(tt.text); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Citations(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}
