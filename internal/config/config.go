// Package config loads the dataset build settings from the environment.
package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/couchcryptid/storm-ml-dataset/internal/domain"
)

// Config holds all build settings, populated from STORMML_* environment
// variables with documented defaults.
type Config struct {
	DataDir     string
	StormsDir   string // subdirectory of DataDir holding the storm directories
	DatasetName string
	Workers     int
	LandMask    string // path to land_mask.hdf5, relative paths resolve against DataDir

	Params domain.Params

	LogLevel  string
	LogFormat string

	// Optional run-report publishing; disabled when no brokers are set.
	KafkaBrokers []string
	KafkaTopic   string

	// Optional metrics/health endpoint; disabled when empty.
	HTTPAddr string

	ShutdownTimeout time.Duration
}

// KafkaEnabled reports whether a run report should be published.
func (c *Config) KafkaEnabled() bool { return len(c.KafkaBrokers) > 0 }

// Load reads configuration from the environment, applying defaults where
// unset. Validation failures are returned as errors naming the variable.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("STORMML")
	v.AutomaticEnv()

	p := domain.DefaultParams()
	v.SetDefault("DATA_DIR", ".")
	v.SetDefault("STORMS_DIR", "storms")
	v.SetDefault("DATASET_NAME", "")
	v.SetDefault("WORKERS", runtime.NumCPU())
	v.SetDefault("LAND_MASK", "land_mask.hdf5")
	v.SetDefault("HOURS_BEFORE", p.HoursBefore)
	v.SetDefault("HOURS_AFTER", p.HoursAfter)
	v.SetDefault("COASTAL_DIST_CUTOFF", p.CoastalDistCutoff)
	v.SetDefault("MAX_DEPTH", p.MaxDepth)
	v.SetDefault("MIN_DEPTH", p.MinDepth)
	v.SetDefault("RADIUS", p.Radius)
	v.SetDefault("DOWNSAMPLE_FACTOR", p.DownsampleFactor)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_TOPIC", "dataset-run-reports")
	v.SetDefault("HTTP_ADDR", "")
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")

	shutdownTimeout, err := time.ParseDuration(v.GetString("SHUTDOWN_TIMEOUT"))
	if err != nil || shutdownTimeout <= 0 {
		return nil, errors.New("invalid STORMML_SHUTDOWN_TIMEOUT")
	}

	cfg := &Config{
		DataDir:     v.GetString("DATA_DIR"),
		StormsDir:   v.GetString("STORMS_DIR"),
		DatasetName: v.GetString("DATASET_NAME"),
		Workers:     v.GetInt("WORKERS"),
		LandMask:    v.GetString("LAND_MASK"),
		Params: domain.Params{
			HoursBefore:       v.GetFloat64("HOURS_BEFORE"),
			HoursAfter:        v.GetFloat64("HOURS_AFTER"),
			CoastalDistCutoff: v.GetFloat64("COASTAL_DIST_CUTOFF"),
			MaxDepth:          v.GetFloat64("MAX_DEPTH"),
			MinDepth:          v.GetFloat64("MIN_DEPTH"),
			Radius:            v.GetFloat64("RADIUS"),
			DownsampleFactor:  v.GetInt("DOWNSAMPLE_FACTOR"),
		},
		LogLevel:        v.GetString("LOG_LEVEL"),
		LogFormat:       v.GetString("LOG_FORMAT"),
		KafkaBrokers:    splitBrokers(v.GetString("KAFKA_BROKERS")),
		KafkaTopic:      strings.TrimSpace(v.GetString("KAFKA_TOPIC")),
		HTTPAddr:        v.GetString("HTTP_ADDR"),
		ShutdownTimeout: shutdownTimeout,
	}

	if cfg.Workers < 1 {
		return nil, errors.New("STORMML_WORKERS must be at least 1")
	}
	if cfg.Params.DownsampleFactor < 1 {
		return nil, errors.New("STORMML_DOWNSAMPLE_FACTOR must be at least 1")
	}
	if cfg.Params.HoursBefore < 0 || cfg.Params.HoursAfter < 0 {
		return nil, errors.New("landfall window hours must not be negative")
	}
	if cfg.Params.MinDepth >= cfg.Params.MaxDepth {
		return nil, fmt.Errorf("STORMML_MIN_DEPTH (%g) must be below STORMML_MAX_DEPTH (%g)",
			cfg.Params.MinDepth, cfg.Params.MaxDepth)
	}
	if cfg.KafkaEnabled() && cfg.KafkaTopic == "" {
		return nil, errors.New("STORMML_KAFKA_TOPIC is required when brokers are set")
	}

	return cfg, nil
}

// splitBrokers parses a comma-separated broker list, ignoring empty entries.
func splitBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
