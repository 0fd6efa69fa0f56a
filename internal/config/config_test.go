package config

import (
	"testing"
)

// memBackend is an in-memory ConfigBackend for tests.
type memBackend struct {
	data map[string]any
}

func (b *memBackend) GetString(key string) (string, bool, error) {
	v, ok := b.data[key]
	if !ok {
		return "", false, nil
	}
	s, _ := v.(string)
	return s, true, nil
}

func (b *memBackend) GetInt(key string) (int, bool, error) {
	v, ok := b.data[key]
	if !ok {
		return 0, false, nil
	}
	i, _ := v.(int)
	return i, true, nil
}

func (b *memBackend) SetString(key, val string) error { b.data[key] = val; return nil }
func (b *memBackend) SetInt(key string, val int) error { b.data[key] = val; return nil }
func (b *memBackend) Delete(key string) error          { delete(b.data, key); return nil }

func TestDefaults(t *testing.T) {
	t.Setenv("CLIPQUERY_MODEL_API_KEY", "test-key")

	cfg, err := loadWith(&memBackend{data: map[string]any{}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 4400 {
		t.Errorf("Server.Port = %d, want 4400", cfg.Server.Port)
	}
	if cfg.Model.BaseURL != "https://api.openai.com/v1" {
		t.Errorf("Model.BaseURL = %q", cfg.Model.BaseURL)
	}
	if cfg.Model.TranscribeModel != "whisper-1" {
		t.Errorf("Model.TranscribeModel = %q, want whisper-1", cfg.Model.TranscribeModel)
	}
	if cfg.Tools.YTDLP != "yt-dlp" {
		t.Errorf("Tools.YTDLP = %q, want yt-dlp", cfg.Tools.YTDLP)
	}
	if cfg.Frames.IntervalSec != 5 {
		t.Errorf("Frames.IntervalSec = %d, want 5", cfg.Frames.IntervalSec)
	}
	if cfg.Frames.MaxFrames != 200 {
		t.Errorf("Frames.MaxFrames = %d, want 200", cfg.Frames.MaxFrames)
	}
	if cfg.Model.APIKey != "test-key" {
		t.Errorf("Model.APIKey = %q, want test-key", cfg.Model.APIKey)
	}
}

func TestBackendValues(t *testing.T) {
	t.Setenv("CLIPQUERY_MODEL_API_KEY", "test-key")

	b := &memBackend{data: map[string]any{
		"server.port":      5500,
		"model.chat_model": "gpt-4.1-mini",
		"tools.ffmpeg":     "/opt/ffmpeg/bin/ffmpeg",
	}}
	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 5500 {
		t.Errorf("Server.Port = %d, want 5500", cfg.Server.Port)
	}
	if cfg.Model.ChatModel != "gpt-4.1-mini" {
		t.Errorf("Model.ChatModel = %q", cfg.Model.ChatModel)
	}
	if cfg.Tools.FFmpeg != "/opt/ffmpeg/bin/ffmpeg" {
		t.Errorf("Tools.FFmpeg = %q", cfg.Tools.FFmpeg)
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("CLIPQUERY_MODEL_API_KEY", "env-key")
	t.Setenv("CLIPQUERY_SERVER_PORT", "6600")
	t.Setenv("CLIPQUERY_MODEL_VISION_MODEL", "gpt-4.1")

	b := &memBackend{data: map[string]any{"server.port": 5500}}
	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 6600 {
		t.Errorf("Server.Port = %d, want env override 6600", cfg.Server.Port)
	}
	if cfg.Model.VisionModel != "gpt-4.1" {
		t.Errorf("Model.VisionModel = %q, want gpt-4.1", cfg.Model.VisionModel)
	}
}

func TestMissingAPIKey(t *testing.T) {
	t.Setenv("CLIPQUERY_MODEL_API_KEY", "")

	if _, err := loadWith(&memBackend{data: map[string]any{}}); err == nil {
		t.Fatal("Load succeeded without API key, want error")
	}
}

func TestSetKeyRejectsSecret(t *testing.T) {
	if err := SetKey("model.api_key", "sneaky"); err == nil {
		t.Fatal("SetKey accepted a secret key, want error")
	}
}
