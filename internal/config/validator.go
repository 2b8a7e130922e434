package config

import (
	"fmt"
	"log/slog"
)

// Validate checks if the configuration is valid
func Validate(cfg *Config) error {
	if _, err := cfg.Vocabulary(); err != nil {
		return fmt.Errorf("labels: %w", err)
	}

	if cfg.Threshold <= 0 || cfg.Threshold >= 1 {
		return fmt.Errorf("threshold must be in (0, 1), got %v", cfg.Threshold)
	}
	if cfg.TopK < 1 {
		return fmt.Errorf("top_k must be >= 1, got %d", cfg.TopK)
	}
	if cfg.ImageSize < 1 {
		return fmt.Errorf("image_size must be >= 1, got %d", cfg.ImageSize)
	}
	if cfg.RefreshRateHz < 1 {
		return fmt.Errorf("refresh_rate_hz must be >= 1, got %d", cfg.RefreshRateHz)
	}
	if cfg.Camera.DeviceID < 0 {
		return fmt.Errorf("camera.device_id must be >= 0, got %d", cfg.Camera.DeviceID)
	}

	switch cfg.Embedder.Kind {
	case EmbedderPixel:
	case EmbedderProcess:
		if cfg.Embedder.Script == "" {
			return fmt.Errorf("embedder.script is required for the %s embedder", EmbedderProcess)
		}
		if cfg.Embedder.Python == "" {
			cfg.Embedder.Python = "python3"
		}
	default:
		return fmt.Errorf("embedder.kind must be %s or %s, got %q", EmbedderPixel, EmbedderProcess, cfg.Embedder.Kind)
	}

	if cfg.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}

	// Set default topic if a broker is configured
	if cfg.MQTT.Broker != "" && cfg.MQTT.Topic == "" {
		cfg.MQTT.Topic = "mudra/translations"
	}

	if cfg.Plugins.TimeoutMs <= 0 {
		cfg.Plugins.TimeoutMs = 5000
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch cfg.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", cfg.Log.Format)
	}

	return nil
}
