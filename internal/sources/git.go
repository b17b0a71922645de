package sources

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/librarian-dev/librarian/internal/config"
	git2 "github.com/librarian-dev/librarian/internal/git"
	"github.com/librarian-dev/librarian/internal/trust"
	"github.com/librarian-dev/librarian/internal/validator"
)

// gitHandler fetches archives from the code-hosting platform, pinned to
// a release tag. This is the only provenance eligible for elevated
// trust.
type gitHandler struct {
	gitClient  git2.Client
	trustState *trust.State
	cfg        *config.GitConfig
}

// NewGitHandler creates a Handler for the code-hosting platform.
func NewGitHandler(cfg *config.Config, trustState *trust.State, client git2.Client) (Handler, error) {
	if cfg.Sources.Git == nil || cfg.Sources.Git.BaseURL == "" {
		return nil, fmt.Errorf("code-hosting platform is not configured")
	}

	if client == nil {
		client = git2.NewDefaultClient()
	}

	return &gitHandler{
		gitClient:  client,
		trustState: trustState,
		cfg:        cfg.Sources.Git,
	}, nil
}

// Fetch clones the spec's repository at the release tag for version and
// reads the package archive out of the working tree. A version is
// required: the platform origin only serves pinned refs.
func (h *gitHandler) Fetch(ctx context.Context, name, version string) (*FetchResult, error) {
	if h.trustState.Compromised() {
		return nil, fmt.Errorf("%w: network trust compromised: %s", ErrNetworkBlocked, h.trustState.Reason())
	}

	if version == "" {
		return nil, fmt.Errorf("git source requires an explicit version, it serves no latest pointer")
	}

	repoURL := fmt.Sprintf("%s/%s.git", strings.TrimSuffix(h.cfg.BaseURL, "/"), url.PathEscape(name))
	cloneConfig := &git2.CloneConfig{
		URL: repoURL,
		Tag: "v" + strings.TrimPrefix(version, "v"),
	}

	if h.cfg.Auth != nil && h.cfg.Auth.Username != "" {
		password, err := h.cfg.Auth.GetPassword()
		if err != nil {
			return nil, fmt.Errorf("failed to get git password: %w", err)
		}
		cloneConfig.Auth = &git2.AuthConfig{
			Username: h.cfg.Auth.Username,
			Password: password,
		}
	}

	startTime := time.Now()
	slog.Info("Cloning package repository", "repository", repoURL, "tag", cloneConfig.Tag)

	repoInfo, err := h.gitClient.Clone(ctx, cloneConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to clone %s at %s: %w", repoURL, cloneConfig.Tag, err)
	}
	defer func() {
		if cleanupErr := h.gitClient.Cleanup(ctx, repoInfo); cleanupErr != nil {
			slog.Error("Failed to cleanup repository clone", "error", cleanupErr)
		}
	}()

	archivePath := h.archivePath(name, version)
	data, err := h.gitClient.GetFileContent(repoInfo, archivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s from %s: %w", archivePath, repoURL, err)
	}

	slog.Info("Cloned package repository",
		"repository", repoURL,
		"tag", cloneConfig.Tag,
		"duration", time.Since(startTime).String(),
		"archive_bytes", len(data))

	return NewFetchResult(data, validator.Provenance{
		Source: config.SourceTypeGit,
		Ref:    cloneConfig.Ref(),
		Pinned: cloneConfig.Pinned(),
	}), nil
}

// archivePath resolves the configured archive path template.
func (h *gitHandler) archivePath(name, version string) string {
	path := h.cfg.ArchivePath
	if path == "" {
		path = "dist/{name}-{version}.tar.gz"
	}
	path = strings.ReplaceAll(path, "{name}", name)
	return strings.ReplaceAll(path, "{version}", strings.TrimPrefix(version, "v"))
}
