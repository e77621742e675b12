// Package config loads the run configuration of the triangle program from an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/Carmen-Shannon/oxy-triangle/engine/renderer/surface"
	"gopkg.in/yaml.v3"
)

// maxConfigSize bounds the file read by Load.
const maxConfigSize = 1024 * 1024

// ErrInvalid is wrapped by every validation failure returned from Load and Validate.
var ErrInvalid = errors.New("invalid configuration")

// Config holds everything the triangle program can be told from outside.
type Config struct {
	Title                string     `yaml:"title"`
	Width                int        `yaml:"width"`
	Height               int        `yaml:"height"`
	PresentMode          string     `yaml:"present_mode"`
	ClearColor           [4]float64 `yaml:"clear_color"`
	ForceFallbackAdapter bool       `yaml:"force_fallback_adapter"`
	Profiling            bool       `yaml:"profiling"`
	LogLevel             string     `yaml:"log_level"`

	// ShaderPath replaces the embedded WGSL source when set.
	ShaderPath string `yaml:"shader_path"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Title:       "oxy-triangle",
		Width:       800,
		Height:      600,
		PresentMode: surface.PresentModeVSync.String(),
		ClearColor:  [4]float64{0.3, 0.3, 0.3, 1.0},
		LogLevel:    "info",
	}
}

// Load reads the YAML file at path over the defaults. A missing file, or an empty path, yields the defaults.
//
// Parameters:
//   - path: the file to read
//
// Returns:
//   - Config: the merged and validated configuration
//   - error: a read, parse or validation error
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to stat config %s: %w", path, err)
	}
	if info.Size() > maxConfigSize {
		return cfg, fmt.Errorf("%w: %s is %d bytes, limit is %d", ErrInvalid, path, info.Size(), maxConfigSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks every field that has a restricted range.
func (c Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("%w: window size %dx%d", ErrInvalid, c.Width, c.Height)
	}
	if _, err := c.Present(); err != nil {
		return err
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	for i, v := range c.ClearColor {
		if v < 0 || v > 1 {
			return fmt.Errorf("%w: clear_color[%d] = %v is outside [0, 1]", ErrInvalid, i, v)
		}
	}
	return nil
}

// Present returns the parsed present mode.
func (c Config) Present() (surface.PresentMode, error) {
	mode, err := surface.ParsePresentMode(c.PresentMode)
	if err != nil {
		return mode, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return mode, nil
}

// Level returns the parsed log level.
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return level, fmt.Errorf("%w: log_level %q", ErrInvalid, c.LogLevel)
	}
	return level, nil
}

// Shader returns the WGSL source to compile: the file at ShaderPath when set, otherwise fallback.
func (c Config) Shader(fallback string) (string, error) {
	if c.ShaderPath == "" {
		return fallback, nil
	}
	data, err := os.ReadFile(c.ShaderPath)
	if err != nil {
		return "", fmt.Errorf("failed to read shader %s: %w", c.ShaderPath, err)
	}
	return string(data), nil
}
