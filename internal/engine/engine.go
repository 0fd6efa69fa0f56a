package engine

import (
	"context"
	"encoding/json"

	"github.com/clipquery/clipquery/internal/video"
)

// Message represents a single chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Schema describes the expected JSON output structure for structured chat
// responses.
type Schema struct {
	Type                 string                    `json:"type"`
	Properties           map[string]SchemaProperty `json:"properties"`
	Required             []string                  `json:"required,omitempty"`
	AdditionalProperties bool                      `json:"additionalProperties"`
}

// SchemaProperty describes a single field within a Schema.
type SchemaProperty struct {
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Enum        []string `json:"enum,omitempty"`
}

// MarshalJSON lets a *Schema be passed directly as a response format schema.
func (s *Schema) MarshalJSON() ([]byte, error) {
	type alias Schema
	return json.Marshal((*alias)(s))
}

// Engine abstracts a model inference backend (the OpenAI API or any
// compatible server). Consumers such as question classification and answer
// synthesis use this interface instead of depending on a concrete client.
type Engine interface {
	// Chat sends messages to the given model and returns the assistant's
	// response. When jsonSchema is non-nil, structured JSON output is
	// requested.
	Chat(ctx context.Context, model string, messages []Message, jsonSchema *Schema) (string, error)

	// ChatVision sends a prompt together with JPEG-encoded images to a
	// vision-capable model and returns the assistant's response.
	ChatVision(ctx context.Context, model string, prompt string, images [][]byte) (string, error)

	// Transcribe runs speech recognition on the audio file at path and
	// returns timestamped transcript segments.
	Transcribe(ctx context.Context, model string, path string) ([]video.Segment, error)

	// IsRunning reports whether the inference backend is reachable.
	IsRunning(ctx context.Context) bool
}
