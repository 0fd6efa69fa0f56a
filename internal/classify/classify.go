// Package classify routes questions to text-only or visual answering.
package classify

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/clipquery/clipquery/internal/engine"
)

// Classification of a question.
type Classification string

const (
	Text   Classification = "text"
	Visual Classification = "visual"
)

const classifyTimeout = 10 * time.Second

// chatter is the slice of the inference engine classification needs.
type chatter interface {
	Chat(ctx context.Context, model string, messages []engine.Message, jsonSchema *engine.Schema) (string, error)
}

// visualKeywords trip the fast pre-filter: questions about what can only be
// seen, not heard.
var visualKeywords = []string{
	"color", "colour", "look like", "looks like", "wearing", "appearance",
	"how many", "count", "on screen", "on the screen", "visible", "shown",
	"show", "see in", "background", "logo", "text on", "written",
	"holding", "standing", "sitting", "left of", "right of", "behind",
	"in front of", "what is on", "outfit", "dressed",
}

// Classifier decides whether a question needs visual evidence. A keyword
// heuristic answers the obvious cases; the rest escalate to a model call.
type Classifier struct {
	client chatter
	model  string
}

// New creates a Classifier using the given engine and model name.
func New(client chatter, model string) *Classifier {
	return &Classifier{client: client, model: model}
}

// Classify labels the question TEXT or VISUAL. It never fails: any model
// error degrades to TEXT, because a transcript-only answer beats a hard
// failure.
func (c *Classifier) Classify(ctx context.Context, question string) Classification {
	if question == "" {
		return Text
	}

	if matchesVisualKeyword(question) {
		return Visual
	}

	ctx, cancel := context.WithTimeout(ctx, classifyTimeout)
	defer cancel()

	result, err := c.ask(ctx, question)
	if err != nil {
		// One retry for transient failures before degrading.
		result, err = c.ask(ctx, question)
	}
	if err != nil {
		slog.Warn("question classification failed, defaulting to text", "error", err)
		return Text
	}
	return result
}

func (c *Classifier) ask(ctx context.Context, question string) (Classification, error) {
	raw, err := c.client.Chat(ctx, c.model, buildPrompt(question), classificationSchema())
	if err != nil {
		return Text, err
	}

	var parsed struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		slog.Warn("failed to unmarshal classification", "error", err, "response", raw)
		return Text, nil
	}
	if strings.EqualFold(parsed.Kind, string(Visual)) {
		return Visual, nil
	}
	return Text, nil
}

func matchesVisualKeyword(question string) bool {
	q := strings.ToLower(question)
	for _, kw := range visualKeywords {
		if strings.Contains(q, kw) {
			return true
		}
	}
	return false
}

func buildPrompt(question string) []engine.Message {
	return []engine.Message{
		{
			Role: engine.RoleSystem,
			Content: `Decide whether a question about a video requires looking at video frames or can be answered from the spoken transcript alone.

"text" questions cover what people said, discussed, or explained.
"visual" questions cover colors, objects, people's appearance, actions, counting visible things, on-screen text, or spatial relationships.`,
		},
		{
			Role:    engine.RoleUser,
			Content: "Question: " + question,
		},
	}
}

func classificationSchema() *engine.Schema {
	return &engine.Schema{
		Type: "object",
		Properties: map[string]engine.SchemaProperty{
			"kind": {Type: "string", Description: "Either \"text\" or \"visual\"", Enum: []string{"text", "visual"}},
		},
		Required: []string{"kind"},
	}
}
