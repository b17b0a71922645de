package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/librarian-dev/librarian/internal/spec"
)

// catalogVersion is the current catalog file format version.
const catalogVersion = 1

// catalogFile is the on-disk shape of the catalog.
type catalogFile struct {
	Version int                  `json:"version"`
	Specs   []*spec.LanguageSpec `json:"specs"`
}

// Catalog persists the registry contents to a JSON file. Writes replace
// the file atomically via a temp file and rename, under an advisory lock
// so two librarian processes cannot interleave a replacement.
type Catalog struct {
	path string
	lock *flock.Flock
}

// NewCatalog creates a Catalog persisting to path.
func NewCatalog(path string) *Catalog {
	return &Catalog{
		path: path,
		lock: flock.New(path + ".lock"),
	}
}

// Path returns the catalog file path.
func (c *Catalog) Path() string {
	return c.path
}

// Load reads the catalog from disk. A missing file is not an error and
// yields an empty spec list; a malformed file is reported loudly, never
// silently truncated to the entries that happened to parse.
func (c *Catalog) Load() ([]*spec.LanguageSpec, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read catalog %s: %w", c.path, err)
	}

	var file catalogFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("catalog %s is damaged: %w", c.path, err)
	}
	if file.Version > catalogVersion {
		return nil, fmt.Errorf("catalog %s has unsupported format version %d", c.path, file.Version)
	}

	for _, s := range file.Specs {
		if s == nil || s.Name == "" {
			return nil, fmt.Errorf("catalog %s is damaged: entry without a name", c.path)
		}
	}
	return file.Specs, nil
}

// Save replaces the catalog with the given specs.
func (c *Catalog) Save(specs []*spec.LanguageSpec) error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0750); err != nil {
		return fmt.Errorf("failed to create catalog directory: %w", err)
	}

	if err := c.lock.Lock(); err != nil {
		return fmt.Errorf("failed to lock catalog %s: %w", c.path, err)
	}
	defer func() {
		_ = c.lock.Unlock()
	}()

	data, err := json.MarshalIndent(catalogFile{Version: catalogVersion, Specs: specs}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal catalog: %w", err)
	}

	// Write to a temp file first so a crash never leaves a half-written
	// catalog behind.
	tempPath := c.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary catalog file: %w", err)
	}

	if err := os.Rename(tempPath, c.path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to replace catalog %s: %w", c.path, err)
	}

	return nil
}
