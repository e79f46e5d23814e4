package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Dir is a local directory root.
type Dir struct {
	path string
}

// NewDir returns a root for the directory at path. The directory is not
// touched until List or Stat.
func NewDir(path string) *Dir {
	return &Dir{path: path}
}

func (d *Dir) Location() string { return d.path }

// List returns the directory's immediate entries. Sizes follow symlinks;
// entries that vanish or cannot be stat'ed mid-listing are left out.
func (d *Dir) List(ctx context.Context) ([]Object, error) {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		return nil, fmt.Errorf("storage: list %s: %w", d.path, err)
	}

	objs := make([]Object, 0, len(entries))
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		obj, err := d.stat(e.Name())
		if err != nil {
			continue
		}
		objs = append(objs, obj)
	}
	return objs, nil
}

// Stat describes one named entry of the directory.
func (d *Dir) Stat(ctx context.Context, name string) (Object, error) {
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}
	return d.stat(name)
}

func (d *Dir) stat(name string) (Object, error) {
	path := resolvePath(filepath.Join(d.path, name))
	info, err := os.Stat(path)
	if err != nil {
		return Object{}, fmt.Errorf("storage: stat %s: %w", path, err)
	}
	return Object{
		Name: name,
		Path: path,
		Size: info.Size(),
		Dir:  info.IsDir(),
	}, nil
}

// resolvePath makes local paths absolute with symlinks evaluated, so the
// same file reached through different spellings of a root, or through a
// linked directory, has one identity.
func resolvePath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = filepath.Clean(path)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	return abs
}

func openFile(path string) (io.ReadSeekCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", path, err)
	}
	return f, nil
}
