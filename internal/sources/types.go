// Package sources fetches package archives from the configured remote
// origins. All remote traffic in the pipeline goes through a Handler;
// every Handler consults the shared trust state before touching the
// network and refuses to fetch once the channel is compromised.
package sources

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/librarian-dev/librarian/internal/validator"
)

// ErrNetworkBlocked marks a fetch refused because the trust state is
// compromised or because this fetch itself detected a hostile redirect.
// Fatal for the request, not the process.
var ErrNetworkBlocked = errors.New("network blocked")

// FetchResult contains the raw bytes of a fetched package archive.
type FetchResult struct {
	// Data is the raw archive bytes.
	Data []byte

	// Checksum is the SHA-256 hex digest of Data.
	Checksum string

	// Provenance records the origin and how the package was addressed.
	Provenance validator.Provenance
}

// NewFetchResult creates a FetchResult, computing the data checksum.
func NewFetchResult(data []byte, prov validator.Provenance) *FetchResult {
	return &FetchResult{
		Data:       data,
		Checksum:   fmt.Sprintf("%x", sha256.Sum256(data)),
		Provenance: prov,
	}
}

// Handler fetches a named, versioned package from one origin type.
type Handler interface {
	// Fetch retrieves the package archive for name/version. Version may
	// be empty where the origin supports a floating latest pointer.
	Fetch(ctx context.Context, name, version string) (*FetchResult, error)
}
