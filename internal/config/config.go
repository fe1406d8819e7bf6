// Package config loads and validates the YAML configuration shared by
// the CLI and the web server.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/1hanhT2/Audio-Joiner-for-NEC/internal/mix"
)

// Config is the complete runtime configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Paths    PathsConfig    `yaml:"paths"`
	Tools    ToolsConfig    `yaml:"tools"`
	Defaults DefaultsConfig `yaml:"defaults"`
	Download DownloadConfig `yaml:"download"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig configures the web server.
type ServerConfig struct {
	Address         string `yaml:"address"`
	Port            int    `yaml:"port"`
	ShutdownTimeout int    `yaml:"shutdown_timeout"` // seconds
}

// PathsConfig locates the directories a run touches.
type PathsConfig struct {
	BackgroundDir string `yaml:"background_dir"`
	OutputDir     string `yaml:"output_dir"`
	WorkDir       string `yaml:"work_dir"` // empty means the system temp dir
	KeepWork      bool   `yaml:"keep_work"`
}

// ToolsConfig names the external binaries.
type ToolsConfig struct {
	FFmpeg  string `yaml:"ffmpeg"`
	FFprobe string `yaml:"ffprobe"`
	YtDlp   string `yaml:"ytdlp"`
}

// DefaultsConfig holds processing parameter defaults, overridable per
// run from CLI flags or the web form.
type DefaultsConfig struct {
	Speed            float64 `yaml:"speed"`
	SilenceSeconds   float64 `yaml:"silence_seconds"`
	BackgroundGainDB float64 `yaml:"background_gain_db"`
	Format           string  `yaml:"format"`
}

// DownloadConfig tunes remote acquisition.
type DownloadConfig struct {
	MaxAudioBitrate int `yaml:"max_audio_bitrate"` // kbps
	Retries         int `yaml:"retries"`
	Timeout         int `yaml:"timeout"` // seconds, per attempt
}

// LoggingConfig selects log level and output encoding.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// Default returns a configuration that works without any file: current
// directory for backgrounds and outputs, conventional binary names.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Address:         "0.0.0.0",
			Port:            8080,
			ShutdownTimeout: 10,
		},
		Paths: PathsConfig{
			BackgroundDir: ".",
			OutputDir:     ".",
		},
		Tools: ToolsConfig{
			FFmpeg:  "ffmpeg",
			FFprobe: "ffprobe",
			YtDlp:   "yt-dlp",
		},
		Defaults: DefaultsConfig{
			Speed:            1.0,
			SilenceSeconds:   5.0,
			BackgroundGainDB: -6.0,
			Format:           "mp3",
		},
		Download: DownloadConfig{
			MaxAudioBitrate: 160,
			Retries:         2,
			Timeout:         600,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the file at path over the defaults and validates the
// result.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Tools.Validate(); err != nil {
		return fmt.Errorf("tools: %w", err)
	}
	if err := c.Defaults.Validate(); err != nil {
		return fmt.Errorf("defaults: %w", err)
	}
	if err := c.Download.Validate(); err != nil {
		return fmt.Errorf("download: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	return nil
}

func (s *ServerConfig) Validate() error {
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("port %d out of range", s.Port)
	}
	if s.ShutdownTimeout < 0 {
		return fmt.Errorf("shutdown_timeout must be >= 0")
	}
	return nil
}

func (t *ToolsConfig) Validate() error {
	if t.FFmpeg == "" || t.FFprobe == "" || t.YtDlp == "" {
		return fmt.Errorf("tool binary names must not be empty")
	}
	return nil
}

func (d *DefaultsConfig) Validate() error {
	if d.Speed <= 0 {
		return fmt.Errorf("speed must be > 0")
	}
	if d.SilenceSeconds < 0 {
		return fmt.Errorf("silence_seconds must be >= 0")
	}
	if _, err := mix.ParseFormat(d.Format); err != nil {
		return fmt.Errorf("format %q not one of mp3, wav, m4a", d.Format)
	}
	return nil
}

func (d *DownloadConfig) Validate() error {
	if d.MaxAudioBitrate <= 0 {
		return fmt.Errorf("max_audio_bitrate must be > 0")
	}
	if d.Retries < 0 {
		return fmt.Errorf("retries must be >= 0")
	}
	if d.Timeout <= 0 {
		return fmt.Errorf("timeout must be > 0")
	}
	return nil
}

func (l *LoggingConfig) Validate() error {
	switch l.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("level %q not one of debug, info, warn, error", l.Level)
	}
	switch l.Format {
	case "text", "json":
	default:
		return fmt.Errorf("format %q not one of text, json", l.Format)
	}
	return nil
}

// GetDownloadTimeout returns the per-attempt download limit.
func (d *DownloadConfig) GetDownloadTimeout() time.Duration {
	return time.Duration(d.Timeout) * time.Second
}

// GetShutdownTimeout returns the graceful-shutdown limit.
func (s *ServerConfig) GetShutdownTimeout() time.Duration {
	return time.Duration(s.ShutdownTimeout) * time.Second
}
