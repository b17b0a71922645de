package archive

import (
	"archive/tar"
	"bytes"
	"fmt"
	"time"

	"github.com/klauspost/compress/gzip"
)

// Build assembles a tar.gz package container from a manifest and a set
// of auxiliary members. It is the writing counterpart of Open and is
// used by local packaging tooling and tests.
func Build(manifest []byte, files map[string][]byte) ([]byte, error) {
	var buf bytes.Buffer
	gzWriter := gzip.NewWriter(&buf)
	tarWriter := tar.NewWriter(gzWriter)

	write := func(name string, content []byte) error {
		header := &tar.Header{
			Name:    name,
			Mode:    0644,
			Size:    int64(len(content)),
			ModTime: time.Now(),
		}
		if err := tarWriter.WriteHeader(header); err != nil {
			return fmt.Errorf("failed to write header for %s: %w", name, err)
		}
		if _, err := tarWriter.Write(content); err != nil {
			return fmt.Errorf("failed to write member %s: %w", name, err)
		}
		return nil
	}

	if err := write(ManifestName, manifest); err != nil {
		return nil, err
	}
	for name, content := range files {
		if err := write(name, content); err != nil {
			return nil, err
		}
	}

	if err := tarWriter.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize tar stream: %w", err)
	}
	if err := gzWriter.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize gzip stream: %w", err)
	}

	return buf.Bytes(), nil
}
