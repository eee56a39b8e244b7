// Package config loads brain configuration from ~/.brain/brain.yaml,
// layering the file over built-in defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"gopkg.in/yaml.v3"

	"github.com/Tar-ive/brain-system-sub000/internal/memory"
	"github.com/Tar-ive/brain-system-sub000/internal/relevance"
	"github.com/Tar-ive/brain-system-sub000/internal/sink"
)

// Config holds all brain configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Engine   EngineConfig   `yaml:"engine"`
	Sinks    []sink.Config  `yaml:"sinks,omitempty"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type EngineConfig struct {
	ConfidenceThreshold float64           `yaml:"confidence_threshold"`
	DedupWindowSeconds  int               `yaml:"dedup_window_seconds"`
	DecayRate           float64           `yaml:"decay_rate"`
	ScoringWeights      relevance.Weights `yaml:"scoring_weights"`
	WorkerPoolSize      int               `yaml:"worker_pool_size,omitempty"`
	SinkQueue           int               `yaml:"sink_queue,omitempty"`
	SinkTimeoutSeconds  int               `yaml:"sink_timeout_seconds,omitempty"`
	Retention           RetentionConfig   `yaml:"retention"`
}

// RetentionConfig controls the periodic cleanup pass. A zero
// MaxAgeDays disables it.
type RetentionConfig struct {
	MaxAgeDays      int     `yaml:"max_age_days"`
	ImportanceFloor float64 `yaml:"importance_floor"`
	IntervalHours   int     `yaml:"interval_hours"`
}

type LogConfig struct {
	Level string `yaml:"level"` // "debug", "info", "warn", "error"
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Bind: "127.0.0.1",
			Port: 7171,
		},
		Database: DatabaseConfig{
			Path: "", // resolved at runtime via store.DefaultDBPath()
		},
		Engine: EngineConfig{
			ConfidenceThreshold: 0.75,
			DedupWindowSeconds:  3600,
			DecayRate:           relevance.DefaultDecayRate,
			ScoringWeights:      relevance.DefaultWeights(),
			Retention: RetentionConfig{
				ImportanceFloor: 0.3,
				IntervalHours:   24,
			},
		},
		Log: LogConfig{Level: "info"},
	}
}

// Dir returns the absolute path to ~/.brain/.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", goerr.Wrap(err, "cannot determine home directory")
	}
	return filepath.Join(home, ".brain"), nil
}

// Path returns the config file location: $BRAIN_CONFIG when set,
// ~/.brain/brain.yaml otherwise.
func Path() (string, error) {
	if p := os.Getenv("BRAIN_CONFIG"); p != "" {
		return p, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "brain.yaml"), nil
}

// Load reads and parses one config file, layered over defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, goerr.Wrap(err, "read config", goerr.V("path", path))
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, goerr.Wrap(err, "invalid config yaml",
			goerr.T(memory.TagValidation), goerr.V("path", path))
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadOrDefault loads Path() when the file exists and falls back to
// defaults when it does not. BRAIN_DB overrides the database path
// either way.
func LoadOrDefault() (Config, error) {
	path, err := Path()
	if err != nil {
		return Default(), err
	}
	cfg, err := Load(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return cfg, err
		}
		cfg = Default()
	}
	if db := os.Getenv("BRAIN_DB"); db != "" {
		cfg.Database.Path = db
	}
	return cfg, nil
}

// Validate rejects out-of-range settings, so a bad config file fails
// at startup rather than at first use.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return goerr.New("server port out of range",
			goerr.T(memory.TagValidation), goerr.V("port", c.Server.Port))
	}
	if t := c.Engine.ConfidenceThreshold; t <= 0 || t > 1 {
		return goerr.Wrap(memory.ErrConfidenceRange, "bad confidence_threshold",
			goerr.V("threshold", t))
	}
	if c.Engine.DedupWindowSeconds < 0 {
		return goerr.New("dedup_window_seconds must not be negative",
			goerr.T(memory.TagValidation), goerr.V("seconds", c.Engine.DedupWindowSeconds))
	}
	if d := c.Engine.DecayRate; d <= 0 || d > 1 {
		return goerr.Wrap(memory.ErrBadWeights, "bad decay_rate", goerr.V("decay_rate", d))
	}
	if err := c.Engine.ScoringWeights.Validate(); err != nil {
		return err
	}
	if f := c.Engine.Retention.ImportanceFloor; f < 0 || f > 1 {
		return goerr.New("retention importance_floor out of range",
			goerr.T(memory.TagValidation), goerr.V("floor", f))
	}
	if c.Engine.Retention.MaxAgeDays < 0 {
		return goerr.New("retention max_age_days must not be negative",
			goerr.T(memory.TagValidation), goerr.V("days", c.Engine.Retention.MaxAgeDays))
	}

	seen := make(map[string]bool)
	for i, sc := range c.Sinks {
		if sc.Name == "" {
			return goerr.New("sink name must not be empty",
				goerr.T(memory.TagValidation), goerr.V("index", i))
		}
		if seen[sc.Name] {
			return goerr.New("duplicate sink name",
				goerr.T(memory.TagValidation), goerr.V("name", sc.Name))
		}
		seen[sc.Name] = true
		if _, err := sink.New(sc); err != nil {
			return err
		}
	}
	return nil
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}

// DedupWindow returns the dedup window as a duration.
func (e EngineConfig) DedupWindow() time.Duration {
	return time.Duration(e.DedupWindowSeconds) * time.Second
}

// SinkTimeout returns the per-note sink timeout; zero means the
// replicator default.
func (e EngineConfig) SinkTimeout() time.Duration {
	return time.Duration(e.SinkTimeoutSeconds) * time.Second
}

// MaxAge returns the retention age as a duration; zero disables
// cleanup.
func (r RetentionConfig) MaxAge() time.Duration {
	return time.Duration(r.MaxAgeDays) * 24 * time.Hour
}

// Interval returns the cleanup cadence.
func (r RetentionConfig) Interval() time.Duration {
	return time.Duration(r.IntervalHours) * time.Hour
}
