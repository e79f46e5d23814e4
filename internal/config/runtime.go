package config

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"stl-viewer/internal/catalog"
	"stl-viewer/internal/logging"
	"stl-viewer/internal/metrics"
	"stl-viewer/internal/storage"
)

// Setup loads path (when set), applies flags and defaults, then validates.
func Setup(path string, flags Flags) (Config, error) {
	var cfg Config
	if path != "" {
		var err error
		if cfg, err = Load(path); err != nil {
			return Config{}, err
		}
	}
	cfg.Resolve(flags)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Runtime holds the services commands share.
type Runtime struct {
	Logger   *zap.Logger
	Resolver *storage.Resolver
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics
}

// NewRuntime builds the logger, storage resolver and metrics for c. An S3
// client is only created when the config has an s3 section.
func (c *Config) NewRuntime(ctx context.Context) (*Runtime, error) {
	log, err := logging.New(c.Log)
	if err != nil {
		return nil, err
	}

	res := &storage.Resolver{MaxObjectSize: c.MaxFileSize}
	if c.S3 != nil {
		client, err := storage.NewS3Client(ctx, *c.S3)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		res.S3 = client
	}

	reg := prometheus.NewRegistry()
	return &Runtime{
		Logger:   log,
		Resolver: res,
		Registry: reg,
		Metrics:  metrics.New(reg),
	}, nil
}

// Scanner returns a catalog scanner using c's discovery settings.
func (c *Config) Scanner(rt *Runtime) *catalog.Scanner {
	return &catalog.Scanner{
		Extension:    c.Extension,
		MaxFileSize:  c.MaxFileSize,
		FallbackName: c.FallbackFile,
		WorkDir:      c.WorkDir,
		Resolver:     rt.Resolver,
		Logger:       rt.Logger,
		Metrics:      rt.Metrics,
	}
}
