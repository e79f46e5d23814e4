package catalog

import (
	"errors"
	"fmt"
)

// FileEntry is one discovered file. Path is its identity.
type FileEntry struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Size int64  `json:"size"`
}

// Catalog is an immutable, name-sorted list of entries produced by a scan.
// The zero value is an empty catalog.
type Catalog struct {
	entries []FileEntry
}

var ErrIndexOutOfRange = errors.New("catalog: index out of range")

// Count returns the number of entries.
func (c *Catalog) Count() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}

// Get returns the entry at index, or ErrIndexOutOfRange.
func (c *Catalog) Get(index int) (FileEntry, error) {
	if index < 0 || index >= c.Count() {
		return FileEntry{}, fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, index, c.Count())
	}
	return c.entries[index], nil
}

// Entries returns a copy of the entries in catalog order.
func (c *Catalog) Entries() []FileEntry {
	if c.Count() == 0 {
		return nil
	}
	out := make([]FileEntry, len(c.entries))
	copy(out, c.entries)
	return out
}
