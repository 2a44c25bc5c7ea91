package config

import (
	"fmt"
	"time"

	"github.com/fluxorio/fluxor-streams/pkg/reactivestreams"
)

// StreamsConfig configures a streams runtime
type StreamsConfig struct {
	Context     ContextConfig     `yaml:"context" json:"context"`
	ReadStream  ReadStreamConfig  `yaml:"read_stream" json:"read_stream"`
	WriteStream WriteStreamConfig `yaml:"write_stream" json:"write_stream"`
	Logging     LoggingConfig     `yaml:"logging" json:"logging"`
	Metrics     MetricsConfig     `yaml:"metrics" json:"metrics"`
}

// ContextConfig configures the execution lane
type ContextConfig struct {
	Name              string `yaml:"name" json:"name"`
	ShutdownTimeoutMs int    `yaml:"shutdown_timeout_ms" json:"shutdown_timeout_ms"`
}

// ShutdownTimeout returns the shutdown timeout as a duration
func (c ContextConfig) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutMs) * time.Millisecond
}

// ReadStreamConfig holds ReadStream defaults
type ReadStreamConfig struct {
	BatchSize int `yaml:"batch_size" json:"batch_size"`
}

// WriteStreamConfig holds WriteStream defaults
type WriteStreamConfig struct {
	WriteQueueMaxSize int `yaml:"write_queue_max_size" json:"write_queue_max_size"`
}

// LoggingConfig selects the zap logger
type LoggingConfig struct {
	Level    string `yaml:"level" json:"level"`
	Encoding string `yaml:"encoding" json:"encoding"`
}

// MetricsConfig toggles Prometheus metrics
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	Namespace string `yaml:"namespace" json:"namespace"`
}

// DefaultStreamsConfig returns the configuration used for missing keys
func DefaultStreamsConfig() StreamsConfig {
	return StreamsConfig{
		Context: ContextConfig{
			Name:              "streams",
			ShutdownTimeoutMs: 5000,
		},
		ReadStream: ReadStreamConfig{
			BatchSize: reactivestreams.DefaultBatchSize,
		},
		WriteStream: WriteStreamConfig{
			WriteQueueMaxSize: reactivestreams.DefaultWriteQueueMaxSize,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Encoding: "json",
		},
		Metrics: MetricsConfig{
			Namespace: "fluxor",
		},
	}
}

// StreamsValidators returns the validators applied by LoadStreamsConfig
func StreamsValidators() []Validator {
	return []Validator{
		RequiredFields("Context.Name"),
		RangeValidator("Context.ShutdownTimeoutMs", 1, float64(time.Hour/time.Millisecond)),
		RangeValidator("ReadStream.BatchSize", 1, 1<<20),
		RangeValidator("WriteStream.WriteQueueMaxSize", 1, 1<<24),
		OneOfValidator("Logging.Level", "debug", "info", "warn", "error"),
		OneOfValidator("Logging.Encoding", "json", "console"),
	}
}

// Validate checks c against StreamsValidators
func (c *StreamsConfig) Validate() error {
	return Validate(c, StreamsValidators()...)
}

// LoadStreamsConfig builds a StreamsConfig from defaults, then the file at
// path (skipped when path is empty), then environment overrides with
// envPrefix, and validates the result.
func LoadStreamsConfig(path, envPrefix string) (StreamsConfig, error) {
	cfg := DefaultStreamsConfig()

	if path != "" {
		if err := Load(path, &cfg); err != nil {
			return StreamsConfig{}, fmt.Errorf("failed to load config file: %w", err)
		}
	}
	if err := ApplyEnvOverrides(envPrefix, &cfg); err != nil {
		return StreamsConfig{}, fmt.Errorf("failed to apply env overrides: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return StreamsConfig{}, err
	}
	return cfg, nil
}
