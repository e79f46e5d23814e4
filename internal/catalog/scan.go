// Package catalog discovers plausible STL files across storage roots.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"stl-viewer/internal/logging"
	"stl-viewer/internal/metrics"
	"stl-viewer/internal/stl"
	"stl-viewer/internal/storage"
)

const (
	DefaultExtension   = "stl"
	DefaultMaxFileSize = 100 << 20 // 100 MiB
)

// Scan-level conditions. Both are recovered inside Scan and only logged.
var (
	ErrRootUnavailable = errors.New("catalog: root unavailable")
	ErrNotPlausible    = errors.New("catalog: not a plausible stl file")
)

// Exclusion reasons, used as metric labels.
const (
	reasonHidden    = "hidden"
	reasonExtension = "extension"
	reasonDirectory = "directory"
	reasonSize      = "size"
	reasonDuplicate = "duplicate"
)

// Scanner builds catalogs. The zero value scans for .stl files up to
// DefaultMaxFileSize on local directories, with no fallback file.
type Scanner struct {
	Extension    string // without the dot, matched case-insensitively
	MaxFileSize  int64
	FallbackName string // checked in WorkDir after all roots; empty disables
	WorkDir      string // directory or s3:// location; defaults to the process working directory
	Resolver     *storage.Resolver
	Logger       *zap.Logger
	Metrics      *metrics.Metrics
}

// CheckPlausible reports whether a file of size bytes could be a binary STL
// within the configured ceiling: at least a header and a count field.
func CheckPlausible(size, maxSize int64) error {
	if size < stl.MinFileSize {
		return fmt.Errorf("%w: %d bytes, below %d", ErrNotPlausible, size, stl.MinFileSize)
	}
	if size > maxSize {
		return fmt.Errorf("%w: %d bytes, above %d", ErrNotPlausible, size, maxSize)
	}
	return nil
}

// Scan lists each root in order, keeps plausible STL candidates, and
// returns them sorted by name. Roots that cannot be opened contribute
// nothing; no condition aborts the scan.
func (s *Scanner) Scan(ctx context.Context, roots []string) *Catalog {
	log := logging.OrNop(s.Logger)
	b := &builder{seen: make(map[string]bool)}

	for _, loc := range roots {
		root, err := s.Resolver.Root(loc)
		if err != nil {
			s.skipRoot(log, loc, err)
			continue
		}
		objs, err := root.List(ctx)
		if err != nil {
			s.skipRoot(log, loc, err)
			continue
		}
		for _, obj := range objs {
			s.consider(log, b, obj)
		}
	}

	if s.FallbackName != "" {
		s.considerFallback(ctx, log, b)
	}

	sort.SliceStable(b.entries, func(i, j int) bool {
		a, c := b.entries[i], b.entries[j]
		if a.Name != c.Name {
			return a.Name < c.Name
		}
		return a.Path < c.Path
	})

	s.Metrics.RecordScan(len(b.entries))
	log.Info("catalog scanned", zap.Strings("roots", roots), zap.Int("files", len(b.entries)))
	return &Catalog{entries: b.entries}
}

type builder struct {
	entries []FileEntry
	seen    map[string]bool
}

func (s *Scanner) consider(log *zap.Logger, b *builder, obj storage.Object) {
	reason := ""
	var err error
	switch {
	case strings.HasPrefix(obj.Name, "."):
		reason = reasonHidden
	case !s.matchExtension(obj.Name):
		reason = reasonExtension
	case obj.Dir:
		reason = reasonDirectory
	case b.seen[obj.Path]:
		reason = reasonDuplicate
	default:
		if err = CheckPlausible(obj.Size, s.maxFileSize()); err != nil {
			reason = reasonSize
		}
	}

	if reason != "" {
		s.Metrics.RecordExcluded(reason)
		if err != nil {
			log.Debug("entry excluded", zap.String("path", obj.Path), zap.Error(err))
		}
		return
	}

	b.seen[obj.Path] = true
	b.entries = append(b.entries, FileEntry{Name: obj.Name, Path: obj.Path, Size: obj.Size})
	log.Debug("found", zap.String("name", obj.Name), zap.Int64("size", obj.Size))
}

// considerFallback checks FallbackName in WorkDir, which may be any location
// the resolver understands. A missing fallback is not worth a log line.
func (s *Scanner) considerFallback(ctx context.Context, log *zap.Logger, b *builder) {
	workDir := s.WorkDir
	if workDir == "" {
		workDir = "."
	}
	root, err := s.Resolver.Root(workDir)
	if err != nil {
		log.Debug("fallback location unavailable", zap.String("work_dir", workDir), zap.Error(err))
		return
	}
	if obj, err := root.Stat(ctx, s.FallbackName); err == nil {
		s.consider(log, b, obj)
	}
}

func (s *Scanner) skipRoot(log *zap.Logger, loc string, err error) {
	s.Metrics.RecordRootSkipped()
	log.Debug("root skipped", zap.String("root", loc), zap.Error(fmt.Errorf("%w: %w", ErrRootUnavailable, err)))
}

func (s *Scanner) matchExtension(name string) bool {
	want := s.Extension
	if want == "" {
		want = DefaultExtension
	}
	ext := filepath.Ext(name)
	if len(ext) < 2 {
		return false
	}
	return strings.EqualFold(ext[1:], strings.TrimPrefix(want, "."))
}

func (s *Scanner) maxFileSize() int64 {
	if s.MaxFileSize <= 0 {
		return DefaultMaxFileSize
	}
	return s.MaxFileSize
}
