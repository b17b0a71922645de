// Package installer orchestrates the acquisition pipeline: fetch,
// validate, decode, register. Every request runs the full pipeline or
// fails without mutating the registry.
package installer

import (
	"errors"
	"time"

	"github.com/librarian-dev/librarian/internal/spec"
)

// ErrDependencyCycle marks a recursive install that reached a spec
// already being installed further up the same dependency chain. Fatal
// for that sub-tree only.
var ErrDependencyCycle = errors.New("dependency cycle detected")

// ErrPersistenceFailure marks a catalog write that failed after the
// in-memory registration. The registration is rolled back.
var ErrPersistenceFailure = errors.New("catalog persistence failed")

// Status classifies a finished install request.
type Status string

const (
	// StatusInstalled means the spec was registered and persisted.
	StatusInstalled Status = "installed"

	// StatusRejected means the package failed validation or decoding.
	StatusRejected Status = "rejected"

	// StatusNetworkBlocked means the fetch was refused because the
	// network trust state is compromised.
	StatusNetworkBlocked Status = "network_blocked"

	// StatusTimeout means the request exceeded its deadline.
	StatusTimeout Status = "timeout"

	// StatusCancelled means the caller cancelled the request.
	StatusCancelled Status = "cancelled"

	// StatusFailed means an operational failure: transport, catalog
	// persistence or loader hook.
	StatusFailed Status = "failed"
)

// Warning codes attached to otherwise successful outcomes.
const (
	// WarnMissingDependency flags a declared dependency that is not
	// installed and was not installed by this request.
	WarnMissingDependency = "missing_dependency"

	// WarnDependencyCycle flags a dependency skipped because it closed
	// a cycle in the install chain.
	WarnDependencyCycle = "dependency_cycle"

	// WarnDowngrade flags a registration replacing a newer version.
	WarnDowngrade = "downgrade"
)

// Warning is a non-fatal observation about an install.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// InstallRequest describes one package to install.
type InstallRequest struct {
	// Name of the package.
	Name string

	// Version to install. Empty means the index latest pointer; the git
	// source rejects an empty version.
	Version string

	// Source selects the origin type, config.SourceTypeIndex or
	// config.SourceTypeGit. Empty means index.
	Source string

	// Checksum is an optional expected hex SHA-256 of the archive.
	Checksum string

	// Recursive installs missing dependencies through the same
	// pipeline. Without it, missing dependencies become warnings.
	Recursive bool
}

// Outcome is the result of one install request. Status is authoritative:
// a request either installed fully or did not touch the registry.
type Outcome struct {
	RequestID string
	Name      string
	Version   string
	Status    Status
	Spec      *spec.LanguageSpec
	Err       error
	Warnings  []Warning
	Duration  time.Duration
}

// Installed reports whether the request succeeded.
func (o *Outcome) Installed() bool {
	return o.Status == StatusInstalled
}

// Summary is a catalog listing entry.
type Summary struct {
	Name         string
	Version      string
	Dependencies []string
	HasHook      bool
}
