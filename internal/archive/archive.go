// Package archive opens the tar.gz package container a language spec
// ships in. Opening is strict: a container that cannot be fully parsed,
// contains unsafe member paths, or lacks the manifest is rejected before
// any of its content is used.
package archive

import (
	"archive/tar"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
)

const (
	// ManifestName is the required manifest member at the container root.
	ManifestName = "spec.json"

	// maxMembers bounds the number of container members.
	maxMembers = 10_000

	// maxMemberSize bounds a single extracted member.
	maxMemberSize = 64 * 1024 * 1024
)

// Archive is a fully parsed package container.
type Archive struct {
	// Manifest is the raw content of the spec.json member.
	Manifest []byte

	files map[string][]byte
}

// Open parses a tar.gz container from raw bytes. It fails if the gzip or
// tar layers are malformed, a member path escapes the container root, or
// the manifest member is missing.
func Open(data []byte) (*Archive, error) {
	gzReader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("malformed package: not a gzip stream: %w", err)
	}
	defer gzReader.Close()

	tarReader := tar.NewReader(gzReader)

	a := &Archive{files: make(map[string][]byte)}
	var members int

	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("malformed package: bad tar header: %w", err)
		}

		members++
		if members > maxMembers {
			return nil, fmt.Errorf("malformed package: more than %d members", maxMembers)
		}

		name := filepath.ToSlash(filepath.Clean(header.Name))
		if !filepath.IsLocal(name) {
			return nil, fmt.Errorf("unsafe member path: %s", header.Name)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			continue
		case tar.TypeReg:
			content, err := io.ReadAll(io.LimitReader(tarReader, maxMemberSize+1))
			if err != nil {
				return nil, fmt.Errorf("failed to read member %s: %w", name, err)
			}
			if len(content) > maxMemberSize {
				return nil, fmt.Errorf("member %s exceeds size limit", name)
			}
			a.files[name] = content
		default:
			// Symlinks, devices and the like have no place in a
			// package container.
			return nil, fmt.Errorf("unsupported member type %d for %s", header.Typeflag, name)
		}
	}

	manifest, ok := a.files[ManifestName]
	if !ok {
		return nil, fmt.Errorf("malformed package: missing %s", ManifestName)
	}
	a.Manifest = manifest
	delete(a.files, ManifestName)

	return a, nil
}

// Has reports whether the container carries the given member path.
func (a *Archive) Has(path string) bool {
	_, ok := a.files[filepath.ToSlash(filepath.Clean(path))]
	return ok
}

// Files returns the member paths excluding the manifest, unordered.
func (a *Archive) Files() []string {
	paths := make([]string, 0, len(a.files))
	for p := range a.files {
		paths = append(paths, p)
	}
	return paths
}

// ExtractTo writes all non-manifest members below dir, preserving their
// relative paths. Member paths were already vetted by Open, but the
// destination is re-checked against traversal before each write.
func (a *Archive) ExtractTo(dir string) error {
	for name, content := range a.files {
		target := filepath.Join(dir, filepath.FromSlash(name))
		if !strings.HasPrefix(filepath.Clean(target), filepath.Clean(dir)+string(os.PathSeparator)) {
			return fmt.Errorf("unsafe extraction path: %s", name)
		}

		if err := os.MkdirAll(filepath.Dir(target), 0750); err != nil {
			return fmt.Errorf("failed to create directory for %s: %w", name, err)
		}
		if err := os.WriteFile(target, content, 0600); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
	}
	return nil
}
