// Package batch renders a preview image for every catalog entry.
package batch

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"stl-viewer/internal/catalog"
	"stl-viewer/internal/logging"
	"stl-viewer/internal/metrics"
	"stl-viewer/internal/postprocess"
	"stl-viewer/internal/preview"
	"stl-viewer/internal/raster"
	"stl-viewer/internal/stl"
	"stl-viewer/internal/storage"
)

// Config holds all shared resources for a batch run. Nothing in it is
// mutated by workers.
type Config struct {
	Resolver     *storage.Resolver
	MaxTriangles int
	OutputDir    string
	Format       preview.Format
	Camera       raster.Camera
	RenderSize   int
	Supersample  int
	Workers      int
	Logger       *zap.Logger
	Metrics      *metrics.Metrics

	// ProgressInterval between progress log lines; zero disables them.
	ProgressInterval time.Duration
}

// ErrorKindCanceled marks entries skipped because the context ended.
const ErrorKindCanceled = "canceled"

// Result holds the outcome of processing one entry.
type Result struct {
	Entry     catalog.FileEntry
	Image     string // relative to OutputDir; empty on failure
	Triangles int
	Min, Max  stl.Vector3
	Success   bool
	ErrorKind string
	Error     string
}

// Run processes entries using a worker pool. Each worker owns one Mesh that
// it reloads per entry, so decodes never share state. Results are returned
// in entry order.
func Run(ctx context.Context, cfg Config, entries []catalog.FileEntry) []Result {
	log := logging.OrNop(cfg.Logger)
	total := len(entries)
	results := make([]Result, total)
	images := imageNames(entries, cfg.Format)
	var processed atomic.Int64

	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	start := time.Now()

	// Progress reporter
	done := make(chan struct{})
	if cfg.ProgressInterval > 0 {
		go func() {
			ticker := time.NewTicker(cfg.ProgressInterval)
			defer ticker.Stop()
			for {
				select {
				case <-done:
					return
				case <-ticker.C:
					p := processed.Load()
					if p > 0 {
						elapsed := time.Since(start).Seconds()
						log.Info("render progress",
							zap.Int64("done", p),
							zap.Int("total", total),
							zap.Float64("per_sec", float64(p)/elapsed),
						)
					}
				}
			}
		}()
	}

	// Worker pool
	work := make(chan int, workers*2)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var mesh stl.Mesh
			for idx := range work {
				if ctx.Err() != nil {
					results[idx] = failed(entries[idx], ErrorKindCanceled, ctx.Err())
				} else {
					results[idx] = processEntry(ctx, cfg, log, &mesh, entries[idx], images[idx])
				}
				processed.Add(1)
			}
		}()
	}

	// Send work
	for i := range entries {
		work <- i
	}
	close(work)

	wg.Wait()
	close(done)

	return results
}

func processEntry(ctx context.Context, cfg Config, log *zap.Logger, mesh *stl.Mesh, entry catalog.FileEntry, imageName string) Result {
	log = log.With(zap.String("path", entry.Path))
	dec := stl.Decoder{MaxTriangles: cfg.MaxTriangles, Logger: log}

	began := time.Now()
	err := load(ctx, cfg.Resolver, &dec, mesh, entry.Path)
	kind := stl.ErrorKind(err)
	cfg.Metrics.RecordDecode(kind, mesh.Len(), time.Since(began))
	if err != nil {
		return failed(entry, kind, err)
	}

	img := raster.RenderMesh(mesh, cfg.Camera, cfg.RenderSize, cfg.Supersample)
	if cfg.Supersample > 1 {
		img = postprocess.Downsample(img, cfg.RenderSize)
	}

	outPath := filepath.Join(cfg.OutputDir, imageName)
	if err := writeImage(outPath, img, cfg.Format); err != nil {
		log.Warn("preview write failed", zap.Error(err))
		return failed(entry, "write", err)
	}

	return Result{
		Entry:     entry,
		Image:     imageName,
		Triangles: mesh.Len(),
		Min:       mesh.Min(),
		Max:       mesh.Max(),
		Success:   true,
		ErrorKind: kind,
	}
}

// load opens path through the resolver and decodes it into mesh. Open
// failures count as unavailable I/O, like a failed local open.
func load(ctx context.Context, r *storage.Resolver, dec *stl.Decoder, mesh *stl.Mesh, path string) error {
	rc, err := r.Open(ctx, path)
	if err != nil {
		mesh.Clear()
		return fmt.Errorf("%w: open %s: %v", stl.ErrIoUnavailable, path, err)
	}
	defer rc.Close()
	return dec.Load(mesh, rc)
}

func writeImage(path string, img *image.NRGBA, f preview.Format) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()

	return preview.Encode(out, img, f)
}

func failed(entry catalog.FileEntry, kind string, err error) Result {
	return Result{
		Entry:     entry,
		ErrorKind: kind,
		Error:     err.Error(),
	}
}

// imageNames maps each entry to "<stem><ext>". Entries whose stem is
// already taken (case-insensitively) get the first free "-N" suffix in
// catalog order, so output names are unique and stable across runs.
func imageNames(entries []catalog.FileEntry, f preview.Format) []string {
	names := make([]string, len(entries))
	taken := make(map[string]bool, len(entries))
	for i, e := range entries {
		stem := strings.TrimSuffix(e.Name, filepath.Ext(e.Name))
		name := stem
		for n := 2; taken[strings.ToLower(name)]; n++ {
			name = fmt.Sprintf("%s-%d", stem, n)
		}
		taken[strings.ToLower(name)] = true
		names[i] = name + f.Ext()
	}
	return names
}
