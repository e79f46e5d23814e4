package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"stl-viewer/internal/catalog"
	"stl-viewer/internal/logging"
	"stl-viewer/internal/preview"
	"stl-viewer/internal/raster"
	"stl-viewer/internal/stl"
	"stl-viewer/internal/storage"
)

// DefaultFallbackFile is looked for in the working directory after all roots.
const DefaultFallbackFile = "bitcoin.stl"

// Config holds all configurable paths, limits and render settings.
type Config struct {
	// Discovery
	Roots        []string `json:"roots"`
	Extension    string   `json:"extension"`
	MaxFileSize  int64    `json:"max_file_size"`
	FallbackFile string   `json:"fallback_file"`
	WorkDir      string   `json:"work_dir"`

	// Decoding
	MaxTriangles int `json:"max_triangles"`

	// Render settings
	OutputDir   string        `json:"output_dir"`
	RenderSize  int           `json:"render_size"`
	Supersample int           `json:"supersample"`
	ImageFormat string        `json:"image_format"`
	Workers     int           `json:"workers"`
	Camera      raster.Camera `json:"camera"`

	Log logging.Config    `json:"log"`
	S3  *storage.S3Config `json:"s3,omitempty"`
}

// Load reads a JSON config file and returns Config.
// Fields not set in the file keep their zero values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return cfg, nil
}

// Resolve fills in any empty fields with defaults.
// CLI flags take priority when non-zero/non-empty.
func (c *Config) Resolve(flags Flags) {
	// CLI flags override config file
	if len(flags.Roots) > 0 {
		c.Roots = flags.Roots
	}
	if flags.OutputDir != "" {
		c.OutputDir = flags.OutputDir
	}
	if flags.Format != "" {
		c.ImageFormat = flags.Format
	}
	if flags.Workers > 0 {
		c.Workers = flags.Workers
	}
	if flags.LogLevel != "" {
		c.Log.Level = flags.LogLevel
	}

	if len(c.Roots) == 0 {
		c.Roots = []string{"."}
	}
	if c.Extension == "" {
		c.Extension = catalog.DefaultExtension
	}
	if c.MaxFileSize == 0 {
		c.MaxFileSize = catalog.DefaultMaxFileSize
	}
	if c.FallbackFile == "" {
		c.FallbackFile = DefaultFallbackFile
	}
	if c.WorkDir == "" {
		c.WorkDir, _ = os.Getwd()
	}
	if c.MaxTriangles <= 0 {
		c.MaxTriangles = stl.DefaultMaxTriangles
	}

	if c.OutputDir == "" {
		c.OutputDir = filepath.Join(c.WorkDir, "stl-previews")
	} else if !filepath.IsAbs(c.OutputDir) {
		c.OutputDir = filepath.Join(c.WorkDir, c.OutputDir)
	}

	// Defaults for render settings
	if c.RenderSize <= 0 {
		c.RenderSize = 256
	}
	if c.Supersample <= 0 {
		c.Supersample = 2
	}
	if c.ImageFormat == "" {
		c.ImageFormat = string(preview.WebP)
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.Camera == (raster.Camera{}) {
		c.Camera = raster.DefaultCamera()
	}
	c.Camera = c.Camera.Zoom(flags.Zoom).Rotate(flags.Pitch, flags.Yaw)

	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
}

// Validate reports settings that Resolve cannot repair.
func (c *Config) Validate() error {
	var errs []error
	if c.MaxFileSize < 0 {
		errs = append(errs, fmt.Errorf("config: max_file_size must not be negative, got %d", c.MaxFileSize))
	}
	if c.Extension == "" {
		errs = append(errs, errors.New("config: extension must not be empty"))
	}
	if _, err := preview.ParseFormat(c.ImageFormat); err != nil {
		errs = append(errs, fmt.Errorf("config: %w", err))
	}
	return errors.Join(errs...)
}

// Flags holds CLI flag values that override config file settings.
type Flags struct {
	Roots     []string
	OutputDir string
	Format    string
	Workers   int
	LogLevel  string

	// Camera adjustments relative to the configured camera
	Zoom       float64 // added to the distance
	Pitch, Yaw float64 // radians
}
