// Package answer synthesizes answers to video questions, embedding
// machine-parseable timestamp citations.
package answer

import (
	"context"
	"fmt"
	"time"

	"github.com/clipquery/clipquery/internal/engine"
	"github.com/clipquery/clipquery/internal/video"
)

// Method records which evidence path produced an answer.
type Method string

const (
	MethodText   Method = "text"
	MethodVisual Method = "visual"
)

const synthesisTimeout = 90 * time.Second

// SynthesisError is a failed synthesis call. Synthesis is the one step the
// pipeline cannot degrade around, so the error surfaces to the caller.
type SynthesisError struct {
	Method Method
	Err    error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("%s synthesis failed: %v", e.Method, e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }

// Result is a synthesized answer. Citations are the parsed (H:MM:SS)
// timestamps embedded in Text, in seconds.
type Result struct {
	Text      string
	Method    Method
	Citations []int
}

// synthesisEngine is the slice of the inference engine synthesis needs.
type synthesisEngine interface {
	Chat(ctx context.Context, model string, messages []engine.Message, jsonSchema *engine.Schema) (string, error)
	ChatVision(ctx context.Context, model string, prompt string, images [][]byte) (string, error)
}

// Synthesizer produces answers from transcript segments, optionally grounded
// in sampled frames.
type Synthesizer struct {
	client      synthesisEngine
	chatModel   string
	visionModel string
}

// New creates a Synthesizer using the given engine and model names.
func New(client synthesisEngine, chatModel, visionModel string) *Synthesizer {
	return &Synthesizer{client: client, chatModel: chatModel, visionModel: visionModel}
}

// Synthesize answers the question from the transcript, using frames as
// visual evidence when supplied. The answer embeds (H:MM:SS) citations.
func (s *Synthesizer) Synthesize(ctx context.Context, question, title string, segments []video.Segment, frames []video.Frame) (Result, error) {
	method := MethodText
	if len(frames) > 0 {
		method = MethodVisual
	}

	ctx, cancel := context.WithTimeout(ctx, synthesisTimeout)
	defer cancel()

	text, err := s.ask(ctx, question, title, segments, frames)
	if err != nil && isTransient(err) {
		// One retry for transient network-class failures.
		text, err = s.ask(ctx, question, title, segments, frames)
	}
	if err != nil {
		return Result{}, &SynthesisError{Method: method, Err: err}
	}
	if text == "" {
		return Result{}, &SynthesisError{Method: method, Err: fmt.Errorf("empty response")}
	}

	return Result{
		Text:      text,
		Method:    method,
		Citations: Citations(text),
	}, nil
}

func (s *Synthesizer) ask(ctx context.Context, question, title string, segments []video.Segment, frames []video.Frame) (string, error) {
	if len(frames) == 0 {
		return s.client.Chat(ctx, s.chatModel, textPrompt(question, title, segments), nil)
	}

	images := make([][]byte, len(frames))
	for i, f := range frames {
		images[i] = f.Data
	}
	return s.client.ChatVision(ctx, s.visionModel, visualPrompt(question, title, segments, frames), images)
}
