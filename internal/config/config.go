// Package config holds configuration for the demo pipeline binary.
//
// Values load from environment variables with sane defaults; a YAML file
// can override the whole document for declarative pipeline specs.
package config

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all pipeline application configuration.
type Config struct {
	Engine   EngineConfig   `yaml:"engine"`
	Source   SourceConfig   `yaml:"source"`
	Estimate EstimateConfig `yaml:"estimate"`
	Record   RecordConfig   `yaml:"record"`
	Control  ControlConfig  `yaml:"control"`
	Logging  LogConfig      `yaml:"logging"`
}

// EngineConfig holds core pipeline engine configuration.
type EngineConfig struct {
	QueueCapacity int  `envconfig:"PIPELINE_QUEUE_CAPACITY" default:"4" yaml:"queue_capacity"`
	Replicas      int  `envconfig:"PIPELINE_REPLICAS" default:"2" yaml:"replicas"`
	MultiThread   bool `envconfig:"PIPELINE_MULTITHREAD" default:"true" yaml:"multi_thread"`
}

// SourceConfig holds synthetic frame source configuration.
type SourceConfig struct {
	FPS    float64 `envconfig:"SOURCE_FPS" default:"30" yaml:"fps"`
	Frames int     `envconfig:"SOURCE_FRAMES" default:"300" yaml:"frames"`
	Size   int     `envconfig:"SOURCE_SIZE" default:"64" yaml:"size"`
}

// EstimateConfig holds the heavy-compute stage configuration.
type EstimateConfig struct {
	Enabled bool `envconfig:"ESTIMATE_ENABLED" default:"true" yaml:"enabled"`
}

// RecordConfig holds result recording configuration.
type RecordConfig struct {
	Enabled bool   `envconfig:"RECORD_ENABLED" default:"true" yaml:"enabled"`
	Path    string `envconfig:"RECORD_PATH" default:"results.jsonl.gz" yaml:"path"`
}

// ControlConfig holds the control API server configuration.
type ControlConfig struct {
	Host string `envconfig:"CONTROL_HOST" default:"0.0.0.0" yaml:"host"`
	Port string `envconfig:"CONTROL_PORT" default:"8000" yaml:"port"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info" yaml:"level"`
	Development bool   `envconfig:"LOG_DEV" default:"false" yaml:"development"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns defaults.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// LoadFile overlays a YAML document on top of environment configuration.
func LoadFile(path string) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects contradictory configurations before any pipeline
// resource is built. Derived outputs must not depend on disabled stages.
func (c *Config) Validate() error {
	if c.Engine.QueueCapacity < 1 {
		return fmt.Errorf("engine.queue_capacity must be at least 1, got %d", c.Engine.QueueCapacity)
	}
	if c.Engine.Replicas < 1 {
		return fmt.Errorf("engine.replicas must be at least 1, got %d", c.Engine.Replicas)
	}
	if c.Source.FPS <= 0 {
		return fmt.Errorf("source.fps must be positive, got %v", c.Source.FPS)
	}
	if c.Record.Enabled && !c.Estimate.Enabled {
		return fmt.Errorf("record output requires the estimate stage to be enabled")
	}
	return nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			QueueCapacity: 4,
			Replicas:      2,
			MultiThread:   true,
		},
		Source: SourceConfig{
			FPS:    30,
			Frames: 300,
			Size:   64,
		},
		Estimate: EstimateConfig{
			Enabled: true,
		},
		Record: RecordConfig{
			Enabled: true,
			Path:    "results.jsonl.gz",
		},
		Control: ControlConfig{
			Host: "0.0.0.0",
			Port: "8000",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
	}
}
