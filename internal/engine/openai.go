package engine

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/clipquery/clipquery/internal/video"
)

// OpenAIEngine talks to the OpenAI API or any server implementing the same
// wire protocol.
type OpenAIEngine struct {
	client *openai.Client
}

// NewOpenAI creates an engine targeting the given base URL with the given key.
func NewOpenAI(baseURL, apiKey string) *OpenAIEngine {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIEngine{client: openai.NewClientWithConfig(cfg)}
}

// Chat sends messages to the given model and returns the assistant's response.
// When jsonSchema is non-nil, a strict JSON schema response format is attached.
func (e *OpenAIEngine) Chat(ctx context.Context, model string, messages []Message, jsonSchema *Schema) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:    model,
		Messages: make([]openai.ChatCompletionMessage, len(messages)),
	}
	for i, m := range messages {
		req.Messages[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}
	if jsonSchema != nil {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "response",
				Schema: jsonSchema,
				Strict: true,
			},
		}
	}

	resp, err := e.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: empty choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// ChatVision sends a prompt with JPEG images inlined as data URLs.
func (e *OpenAIEngine) ChatVision(ctx context.Context, model string, prompt string, images [][]byte) (string, error) {
	parts := make([]openai.ChatMessagePart, 0, len(images)+1)
	parts = append(parts, openai.ChatMessagePart{
		Type: openai.ChatMessagePartTypeText,
		Text: prompt,
	})
	for _, img := range images {
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(img),
				Detail: openai.ImageURLDetailAuto,
			},
		})
	}

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, MultiContent: parts},
		},
	})
	if err != nil {
		return "", fmt.Errorf("vision completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("vision completion: empty choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// Transcribe runs speech recognition and returns timestamped segments in the
// order the API produced them.
func (e *OpenAIEngine) Transcribe(ctx context.Context, model string, path string) ([]video.Segment, error) {
	resp, err := e.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    model,
		FilePath: path,
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("transcription: %w", err)
	}

	segs := make([]video.Segment, 0, len(resp.Segments))
	for _, s := range resp.Segments {
		segs = append(segs, video.Segment{
			Start: s.Start,
			End:   s.End,
			Text:  s.Text,
		})
	}
	return segs, nil
}

// IsRunning reports whether the backend answers a model listing request.
func (e *OpenAIEngine) IsRunning(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := e.client.ListModels(ctx)
	return err == nil
}
