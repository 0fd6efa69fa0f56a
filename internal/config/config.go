package config

import (
	"fmt"
)

type Config struct {
	Server  ServerConfig
	Model   ModelConfig
	Tools   ToolsConfig
	Extract ExtractConfig
	Frames  FramesConfig
	Storage StorageConfig
	Log     LogConfig
}

type ServerConfig struct {
	Port int
}

// ModelConfig points at an OpenAI-compatible API used for classification,
// answer synthesis, and speech transcription.
type ModelConfig struct {
	BaseURL         string
	APIKey          string
	ChatModel       string
	VisionModel     string
	TranscribeModel string
}

// ToolsConfig names the external binaries the extractor and frame sampler
// shell out to.
type ToolsConfig struct {
	YTDLP  string
	FFmpeg string
}

type ExtractConfig struct {
	MethodTimeout string
}

type FramesConfig struct {
	IntervalSec int
	MaxFrames   int
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4400,
		},
		Model: ModelConfig{
			BaseURL:         "https://api.openai.com/v1",
			ChatModel:       "gpt-4o-mini",
			VisionModel:     "gpt-4o",
			TranscribeModel: "whisper-1",
		},
		Tools: ToolsConfig{
			YTDLP:  "yt-dlp",
			FFmpeg: "ffmpeg",
		},
		Extract: ExtractConfig{
			MethodTimeout: "2m",
		},
		Frames: FramesConfig{
			IntervalSec: 5,
			MaxFrames:   200,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the JSON file backend at
// $XDG_CONFIG_HOME/clipquery/config.json, then applies CLIPQUERY_* environment
// overrides. The model API key is env-only (CLIPQUERY_MODEL_API_KEY) and is
// required.
func Load() (Config, error) {
	return loadWith(newFileBackend())
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if cfg.Model.APIKey == "" {
		return Config{}, fmt.Errorf("missing required config: model API key. " +
			"Set it via environment variable CLIPQUERY_MODEL_API_KEY")
	}

	return cfg, nil
}
