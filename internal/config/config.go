// Package config loads the translator's YAML configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ayusman/mudra/internal/classifier"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/translate"
)

// Embedder kinds
const (
	EmbedderPixel   = "pixel"
	EmbedderProcess = "process"
)

// Config represents the complete translator configuration.
type Config struct {
	Labels        []string       `yaml:"labels"`
	Threshold     float64        `yaml:"threshold"`
	TopK          int            `yaml:"top_k"`
	ImageSize     int            `yaml:"image_size"`
	RefreshRateHz int            `yaml:"refresh_rate_hz"`
	ResetOnStart  bool           `yaml:"reset_on_start"` // forget the last word on every start
	Camera        CameraConfig   `yaml:"camera"`
	Embedder      EmbedderConfig `yaml:"embedder"`
	Server        ServerConfig   `yaml:"server"`
	Store         StoreConfig    `yaml:"store"`
	MQTT          MQTTConfig     `yaml:"mqtt"`
	Plugins       PluginsConfig  `yaml:"plugins"`
	Tray          TrayConfig     `yaml:"tray"`
	Log           LogConfig      `yaml:"log"`
}

// CameraConfig contains camera settings
type CameraConfig struct {
	DeviceID int `yaml:"device_id"`
}

// EmbedderConfig selects how frames are turned into feature vectors.
type EmbedderConfig struct {
	Kind   string `yaml:"kind"`   // pixel, process
	Script string `yaml:"script"` // embedding script for the process kind
	Python string `yaml:"python"` // interpreter running Script
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Addr      string `yaml:"addr"`
	StaticDir string `yaml:"static_dir"`
}

// StoreConfig contains translation history settings
type StoreConfig struct {
	Path string `yaml:"path"` // empty keeps history in memory
}

// MQTTConfig contains MQTT broker settings. An empty broker disables publishing.
type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	Topic    string `yaml:"topic"`
	ClientID string `yaml:"client_id"`
}

// PluginsConfig contains plugin hook settings
type PluginsConfig struct {
	Dir       string `yaml:"dir"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

// TrayConfig contains system tray settings
type TrayConfig struct {
	Enabled bool `yaml:"enabled"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Labels:        append([]string(nil), gesture.DefaultLabels...),
		Threshold:     translate.DefaultThreshold,
		TopK:          classifier.DefaultTopK,
		ImageSize:     classifier.DefaultImageSize,
		RefreshRateHz: translate.DefaultRefreshRate,
		Embedder: EmbedderConfig{
			Kind:   EmbedderPixel,
			Python: "python3",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		MQTT: MQTTConfig{
			Topic:    "mudra/translations",
			ClientID: "mudra",
		},
		Plugins: PluginsConfig{
			TimeoutMs: 5000,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads and parses a YAML configuration file over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Vocabulary builds the gesture vocabulary from the configured labels.
func (c *Config) Vocabulary() (*gesture.Vocabulary, error) {
	return gesture.NewVocabulary(c.Labels...)
}

// LogLevel returns the configured slog level.
func (c *Config) LogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}
