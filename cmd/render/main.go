package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"stl-viewer/internal/batch"
	"stl-viewer/internal/config"
	"stl-viewer/internal/preview"
)

func main() {
	// CLI flags
	configFile := flag.String("config", "", "Path to config.json file")
	roots := flag.String("roots", "", "Comma-separated storage roots (dirs or s3://bucket/prefix)")
	outputDir := flag.String("output", "", "Output directory (default: ./stl-previews)")
	format := flag.String("format", "", "Image format: webp or tga (default: webp)")
	workers := flag.Int("workers", 0, "Number of worker goroutines (default: NumCPU)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	metricsFile := flag.String("metrics-file", "", "Write Prometheus metrics to this file when done")
	testN := flag.Int("test", 0, "Render only the first N catalog entries")
	zoom := flag.Float64("zoom", 0, "Move the camera closer (negative) or further (positive)")
	pitch := flag.Float64("pitch", 0, "Extra camera pitch in radians")
	yaw := flag.Float64("yaw", 0, "Extra camera yaw in radians")

	flag.Parse()

	// CLI flags override config file
	cfg, err := config.Setup(*configFile, config.Flags{
		Roots:     splitRoots(*roots),
		OutputDir: *outputDir,
		Format:    *format,
		Workers:   *workers,
		LogLevel:  *logLevel,
		Zoom:      *zoom,
		Pitch:     *pitch,
		Yaw:       *yaw,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	imgFormat, _ := preview.ParseFormat(cfg.ImageFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := cfg.NewRuntime(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	log := rt.Logger
	defer log.Sync()

	entries := cfg.Scanner(rt).Scan(ctx, cfg.Roots).Entries()

	// Limit for testing
	if *testN > 0 && *testN < len(entries) {
		entries = entries[:*testN]
	}

	if len(entries) == 0 {
		fmt.Println("No STL files to render.")
		os.Exit(0)
	}

	fmt.Printf("STL previews -> %s\n", strings.ToUpper(string(imgFormat)))
	fmt.Printf("Files: %d, Workers: %d\n", len(entries), cfg.Workers)
	fmt.Printf("Output: %s\n", cfg.OutputDir)
	fmt.Println("------------------------------------------------------------")

	start := time.Now()

	// Run batch
	results := batch.Run(ctx, batch.Config{
		Resolver:         rt.Resolver,
		MaxTriangles:     cfg.MaxTriangles,
		OutputDir:        cfg.OutputDir,
		Format:           imgFormat,
		Camera:           cfg.Camera,
		RenderSize:       cfg.RenderSize,
		Supersample:      cfg.Supersample,
		Workers:          cfg.Workers,
		Logger:           log,
		Metrics:          rt.Metrics,
		ProgressInterval: 2 * time.Second,
	}, entries)

	elapsed := time.Since(start)
	fmt.Println("------------------------------------------------------------")
	fmt.Printf("Done in %.1fs\n", elapsed.Seconds())

	// Count results
	success, failed := 0, 0
	var errs []batch.Result
	for _, r := range results {
		if r.Success {
			success++
		} else {
			failed++
			errs = append(errs, r)
		}
	}

	fmt.Printf("Rendered: %d/%d\n", success, len(entries))

	if len(errs) > 0 {
		fmt.Printf("\nFailed (%d):\n", failed)
		limit := 20
		if len(errs) < limit {
			limit = len(errs)
		}
		for _, e := range errs[:limit] {
			fmt.Printf("  %s [%s]: %s\n", e.Entry.Name, e.ErrorKind, e.Error)
		}
	}

	// Write manifest
	manifestPath := filepath.Join(cfg.OutputDir, "manifest.json")
	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		log.Warn("create output dir", zap.Error(err))
	}
	manifest := batch.NewManifest(results, imgFormat)
	if err := batch.WriteManifest(manifestPath, manifest); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: manifest write failed: %v\n", err)
	} else {
		fmt.Printf("Manifest: %s (run %s)\n", manifestPath, manifest.RunID)
	}

	if *metricsFile != "" {
		if err := prometheus.WriteToTextfile(*metricsFile, rt.Registry); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: metrics write failed: %v\n", err)
		}
	}

	if failed > 0 {
		os.Exit(1)
	}
}

func splitRoots(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, r := range strings.Split(s, ",") {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}
