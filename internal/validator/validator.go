// Package validator checks a fetched package against its declared
// identity before any of its content reaches the decoder, and assigns
// the trust level governing whether the package may carry a loader hook.
package validator

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/librarian-dev/librarian/internal/archive"
	"github.com/librarian-dev/librarian/internal/config"
)

// ErrValidationFailed marks identity or integrity mismatches. These are
// never retried; the mismatch detail is surfaced verbatim.
var ErrValidationFailed = errors.New("package validation failed")

// TrustLevel classifies a validated package.
type TrustLevel string

const (
	// TrustStandard is the level of ordinary data-only specs.
	TrustStandard TrustLevel = "standard"

	// TrustElevated is required for specs carrying a loader hook. It is
	// granted only to packages from the code-hosting platform pinned to
	// an immutable ref, never to the mutable package index.
	TrustElevated TrustLevel = "elevated"
)

// Provenance records where a package came from and how it was addressed.
type Provenance struct {
	// Source is the origin type, config.SourceTypeIndex or
	// config.SourceTypeGit.
	Source string

	// Ref is the address within the origin (URL or pinned git ref).
	Ref string

	// Pinned is true when the package was addressed by an immutable
	// ref (git tag or commit), false for mutable index pointers.
	Pinned bool
}

// Expected is the identity the caller declared for a package.
type Expected struct {
	Name string

	// Version is optional; when empty, the manifest's version is
	// adopted without an equality check.
	Version string

	// Checksum is an optional hex-encoded SHA-256 digest of the raw
	// archive bytes.
	Checksum string
}

// ValidatedPackage is a package that passed identity and integrity
// checks, ready for decoding.
type ValidatedPackage struct {
	Archive    *archive.Archive
	Name       string
	Version    string
	Checksum   string
	Trust      TrustLevel
	Provenance Provenance
}

// manifestIdentity is the minimal slice of the manifest the validator
// reads. Full manifest decoding is the decoder's job; unknown fields are
// deliberately tolerated here and rejected there.
type manifestIdentity struct {
	Name            string `json:"name"`
	Version         string `json:"version"`
	NeedsLoaderHook bool   `json:"needs_loader_hook"`
	ExtraFiles      []struct {
		Path string `json:"path"`
	} `json:"extra_files"`
}

// PackageValidator validates fetched package bytes.
type PackageValidator struct{}

// New creates a PackageValidator.
func New() *PackageValidator {
	return &PackageValidator{}
}

// Validate checks, in order: the archive is a well-formed container, the
// embedded manifest identity matches the expected name/version, the
// declared checksum (if any) matches the raw bytes, and every declared
// extra file is present in the container. On success it returns the
// package tagged with its trust level.
func (*PackageValidator) Validate(data []byte, expected Expected, prov Provenance) (*ValidatedPackage, error) {
	if expected.Name == "" {
		return nil, fmt.Errorf("%w: expected name cannot be empty", ErrValidationFailed)
	}

	a, err := archive.Open(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	var identity manifestIdentity
	if err := json.Unmarshal(a.Manifest, &identity); err != nil {
		return nil, fmt.Errorf("%w: manifest is not valid JSON: %v", ErrValidationFailed, err)
	}

	if identity.Name != expected.Name {
		return nil, fmt.Errorf("%w: manifest name %q does not match requested %q",
			ErrValidationFailed, identity.Name, expected.Name)
	}

	if expected.Version != "" && identity.Version != expected.Version {
		return nil, fmt.Errorf("%w: manifest version %q does not match requested %q",
			ErrValidationFailed, identity.Version, expected.Version)
	}
	if identity.Version == "" {
		return nil, fmt.Errorf("%w: manifest declares no version", ErrValidationFailed)
	}

	checksum := fmt.Sprintf("%x", sha256.Sum256(data))
	if expected.Checksum != "" && !strings.EqualFold(checksum, expected.Checksum) {
		return nil, fmt.Errorf("%w: checksum mismatch: expected %s, got %s",
			ErrValidationFailed, expected.Checksum, checksum)
	}

	for _, extra := range identity.ExtraFiles {
		if !a.Has(extra.Path) {
			return nil, fmt.Errorf("%w: declared extra file %q missing from package",
				ErrValidationFailed, extra.Path)
		}
	}

	return &ValidatedPackage{
		Archive:    a,
		Name:       identity.Name,
		Version:    identity.Version,
		Checksum:   checksum,
		Trust:      trustLevel(identity.NeedsLoaderHook, prov),
		Provenance: prov,
	}, nil
}

// trustLevel grants elevated trust only to hook-carrying packages from a
// pinned code-hosting ref. Everything else, including hook-carrying
// packages served by the mutable index, stays standard; the decoder
// rejects those with HookNotElevated.
func trustLevel(needsHook bool, prov Provenance) TrustLevel {
	if needsHook && prov.Source == config.SourceTypeGit && prov.Pinned {
		return TrustElevated
	}
	return TrustStandard
}
