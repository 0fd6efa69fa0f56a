package classify

import (
	"context"
	"errors"
	"testing"

	"github.com/clipquery/clipquery/internal/engine"
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

func TestClassifyKeywordPreFilter(t *testing.T) {
	mock := &mockChatter{err: errors.New("should not be called")}
	c := New(mock, "gpt-4o-mini")

	visual := []string{
		"What color is the car at 2:30?",
		"How many people are in the room?",
		"What is she wearing in the intro?",
		"What text is written on the whiteboard?",
	}
	for _, q := range visual {
		if got := c.Classify(context.Background(), q); got != Visual {
			t.Errorf("Classify(%q) = %v, want visual", q, got)
		}
	}
	if mock.calls != 0 {
		t.Errorf("model called %d times for keyword matches, want 0", mock.calls)
	}
}

func TestClassifyModelEscalation(t *testing.T) {
	mock := &mockChatter{response: `{"kind":"visual"}`}
	c := New(mock, "gpt-4o-mini")

	if got := c.Classify(context.Background(), "Is the presenter indoors?"); got != Visual {
		t.Errorf("Classify = %v, want visual from model", got)
	}
	if mock.calls != 1 {
		t.Errorf("model called %d times, want 1", mock.calls)
	}
}

func TestClassifyModelSaysText(t *testing.T) {
	mock := &mockChatter{response: `{"kind":"text"}`}
	c := New(mock, "gpt-4o-mini")

	if got := c.Classify(context.Background(), "What is this video about?"); got != Text {
		t.Errorf("Classify = %v, want text", got)
	}
}

func TestClassifyDegradesToTextOnError(t *testing.T) {
	mock := &mockChatter{err: errors.New("connection refused")}
	c := New(mock, "gpt-4o-mini")

	if got := c.Classify(context.Background(), "Summarize the main argument"); got != Text {
		t.Errorf("Classify = %v, want text on model failure", got)
	}
	if mock.calls != 2 {
		t.Errorf("model called %d times, want 1 attempt + 1 retry", mock.calls)
	}
}

func TestClassifyDegradesToTextOnBadJSON(t *testing.T) {
	mock := &mockChatter{response: "not json"}
	c := New(mock, "gpt-4o-mini")

	if got := c.Classify(context.Background(), "Explain the second section"); got != Text {
		t.Errorf("Classify = %v, want text on malformed response", got)
	}
}

func TestClassifyEmptyQuestion(t *testing.T) {
	mock := &mockChatter{err: errors.New("should not be called")}
	c := New(mock, "gpt-4o-mini")

	if got := c.Classify(context.Background(), ""); got != Text {
		t.Errorf("Classify(\"\") = %v, want text", got)
	}
}
