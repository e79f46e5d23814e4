package batch

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"stl-viewer/internal/preview"
)

// Manifest describes one render run.
type Manifest struct {
	RunID       string          `json:"run_id"`
	GeneratedAt time.Time       `json:"generated_at"`
	Format      preview.Format  `json:"format"`
	Rendered    int             `json:"rendered"`
	Failed      int             `json:"failed"`
	Entries     []ManifestEntry `json:"entries"`
}

// ManifestEntry represents one catalog entry in the output manifest.
type ManifestEntry struct {
	Name      string      `json:"name"`
	Path      string      `json:"path"`
	Size      int64       `json:"size"`
	Image     string      `json:"image,omitempty"`
	Triangles int         `json:"triangles,omitempty"`
	Min       *[3]float32 `json:"min,omitempty"`
	Max       *[3]float32 `json:"max,omitempty"`
	Error     string      `json:"error,omitempty"`
	ErrorKind string      `json:"error_kind,omitempty"`
}

// NewManifest builds a manifest for results under a fresh run ID.
func NewManifest(results []Result, f preview.Format) Manifest {
	m := Manifest{
		RunID:       uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
		Format:      f,
		Entries:     make([]ManifestEntry, len(results)),
	}
	for i, r := range results {
		e := ManifestEntry{
			Name: r.Entry.Name,
			Path: r.Entry.Path,
			Size: r.Entry.Size,
		}
		if r.Success {
			m.Rendered++
			e.Image = r.Image
			e.Triangles = r.Triangles
			// JSON has no NaN or Inf; such bounds are left out
			if r.Min.IsFinite() && r.Max.IsFinite() {
				lo := [3]float32{r.Min.X, r.Min.Y, r.Min.Z}
				hi := [3]float32{r.Max.X, r.Max.Y, r.Max.Z}
				e.Min, e.Max = &lo, &hi
			}
		} else {
			m.Failed++
			e.Error = r.Error
			e.ErrorKind = r.ErrorKind
		}
		m.Entries[i] = e
	}
	return m
}

// WriteManifest writes m as indented JSON to path.
func WriteManifest(path string, m Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("batch: manifest: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
