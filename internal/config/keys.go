package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "CLIPQUERY_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "model.base_url", typ: kString, env: "CLIPQUERY_MODEL_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Model.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Model.BaseURL },
	},
	{
		key: "model.api_key", typ: kString, env: "CLIPQUERY_MODEL_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Model.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Model.APIKey },
	},
	{
		key: "model.chat_model", typ: kString, env: "CLIPQUERY_MODEL_CHAT_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Model.ChatModel = v.(string) },
		extract: func(cfg Config) any { return cfg.Model.ChatModel },
	},
	{
		key: "model.vision_model", typ: kString, env: "CLIPQUERY_MODEL_VISION_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Model.VisionModel = v.(string) },
		extract: func(cfg Config) any { return cfg.Model.VisionModel },
	},
	{
		key: "model.transcribe_model", typ: kString, env: "CLIPQUERY_MODEL_TRANSCRIBE_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Model.TranscribeModel = v.(string) },
		extract: func(cfg Config) any { return cfg.Model.TranscribeModel },
	},
	{
		key: "tools.ytdlp", typ: kString, env: "CLIPQUERY_TOOLS_YTDLP",
		apply:   func(cfg *Config, v any) { cfg.Tools.YTDLP = v.(string) },
		extract: func(cfg Config) any { return cfg.Tools.YTDLP },
	},
	{
		key: "tools.ffmpeg", typ: kString, env: "CLIPQUERY_TOOLS_FFMPEG",
		apply:   func(cfg *Config, v any) { cfg.Tools.FFmpeg = v.(string) },
		extract: func(cfg Config) any { return cfg.Tools.FFmpeg },
	},
	{
		key: "extract.method_timeout", typ: kString, env: "CLIPQUERY_EXTRACT_METHOD_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Extract.MethodTimeout = v.(string) },
		extract: func(cfg Config) any { return cfg.Extract.MethodTimeout },
	},
	{
		key: "frames.interval_sec", typ: kInt, env: "CLIPQUERY_FRAMES_INTERVAL_SEC",
		apply:   func(cfg *Config, v any) { cfg.Frames.IntervalSec = v.(int) },
		extract: func(cfg Config) any { return cfg.Frames.IntervalSec },
	},
	{
		key: "frames.max_frames", typ: kInt, env: "CLIPQUERY_FRAMES_MAX_FRAMES",
		apply:   func(cfg *Config, v any) { cfg.Frames.MaxFrames = v.(int) },
		extract: func(cfg Config) any { return cfg.Frames.MaxFrames },
	},
	{
		key: "storage.data_dir", typ: kString, env: "CLIPQUERY_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "log.level", typ: kString, env: "CLIPQUERY_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
