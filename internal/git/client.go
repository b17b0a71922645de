// Package git wraps go-git for fetching package archives from the
// code-hosting platform. Clones are shallow where possible and live in
// in-memory filesystems that are discarded after the archive is read.
package git

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/cache"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/storage/filesystem"
)

// CloneConfig describes a single clone operation. At most one of Tag,
// Commit and Branch may be set; Tag and Commit are pinned refs.
type CloneConfig struct {
	URL    string
	Branch string
	Tag    string
	Commit string
	Auth   *AuthConfig
}

// AuthConfig holds HTTP basic credentials for private platforms.
type AuthConfig struct {
	Username string
	Password string
}

// Pinned reports whether the clone is addressed by an immutable ref.
func (c *CloneConfig) Pinned() bool {
	return c.Tag != "" || c.Commit != ""
}

// Ref returns the ref the clone is addressed by, for provenance records.
func (c *CloneConfig) Ref() string {
	switch {
	case c.Commit != "":
		return c.Commit
	case c.Tag != "":
		return c.Tag
	case c.Branch != "":
		return c.Branch
	default:
		return "HEAD"
	}
}

// RepositoryInfo is an open in-memory clone.
type RepositoryInfo struct {
	Repository *gogit.Repository
	RemoteURL  string

	objectCache cache.Object
}

// Client defines the interface for Git operations.
type Client interface {
	// Clone clones a repository with the given configuration.
	Clone(ctx context.Context, config *CloneConfig) (*RepositoryInfo, error)

	// GetFileContent retrieves the content of a file at the clone's
	// checked-out revision.
	GetFileContent(repoInfo *RepositoryInfo, path string) ([]byte, error)

	// Cleanup releases the clone's in-memory storage.
	Cleanup(ctx context.Context, repoInfo *RepositoryInfo) error
}

type defaultClient struct{}

// NewDefaultClient creates a Client backed by go-git.
func NewDefaultClient() Client {
	return &defaultClient{}
}

// Clone clones a repository with the given configuration.
func (c *defaultClient) Clone(ctx context.Context, config *CloneConfig) (*RepositoryInfo, error) {
	cloneOptions := &gogit.CloneOptions{
		URL: config.URL,
	}

	if config.Auth != nil && config.Auth.Username != "" {
		cloneOptions.Auth = &githttp.BasicAuth{
			Username: config.Auth.Username,
			Password: config.Auth.Password,
		}
		slog.Debug("Using Git HTTP basic authentication", "username", config.Auth.Username)
	}

	// Commit-addressed clones need the full history so the commit is
	// reachable; ref-addressed clones stay shallow and single-branch.
	if config.Commit == "" {
		cloneOptions.Depth = 1
		cloneOptions.SingleBranch = true
		if config.Tag != "" {
			cloneOptions.ReferenceName = plumbing.NewTagReferenceName(config.Tag)
		} else if config.Branch != "" {
			cloneOptions.ReferenceName = plumbing.NewBranchReferenceName(config.Branch)
		}
	}

	// go-git wants separate filesystems for the storer and the checked
	// out files.
	worktreeFS := memfs.New()
	storerFS := memfs.New()
	storerCache := cache.NewObjectLRUDefault()
	storer := filesystem.NewStorage(storerFS, storerCache)

	repo, err := gogit.CloneContext(ctx, storer, worktreeFS, cloneOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to clone repository: %w", err)
	}

	if config.Commit != "" {
		workTree, err := repo.Worktree()
		if err != nil {
			return nil, fmt.Errorf("failed to get worktree: %w", err)
		}
		if err := workTree.Checkout(&gogit.CheckoutOptions{
			Hash: plumbing.NewHash(config.Commit),
		}); err != nil {
			return nil, fmt.Errorf("failed to checkout commit %s: %w", config.Commit, err)
		}
	}

	return &RepositoryInfo{
		Repository:  repo,
		RemoteURL:   config.URL,
		objectCache: storerCache,
	}, nil
}

// GetFileContent retrieves the content of a file at the clone's
// checked-out revision.
func (*defaultClient) GetFileContent(repoInfo *RepositoryInfo, path string) ([]byte, error) {
	if repoInfo == nil || repoInfo.Repository == nil {
		return nil, fmt.Errorf("repository is nil")
	}

	ref, err := repoInfo.Repository.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to get HEAD reference: %w", err)
	}

	commit, err := repoInfo.Repository.CommitObject(ref.Hash())
	if err != nil {
		return nil, fmt.Errorf("failed to get commit object: %w", err)
	}

	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to get tree: %w", err)
	}

	file, err := tree.File(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get file %s: %w", path, err)
	}

	content, err := file.Contents()
	if err != nil {
		return nil, fmt.Errorf("failed to read file contents: %w", err)
	}

	return []byte(content), nil
}

// Cleanup releases the clone's in-memory storage.
func (*defaultClient) Cleanup(_ context.Context, repoInfo *RepositoryInfo) error {
	if repoInfo == nil || repoInfo.Repository == nil {
		return fmt.Errorf("repository is nil")
	}

	if repoInfo.objectCache != nil {
		repoInfo.objectCache.Clear()
	}

	if worktree, err := repoInfo.Repository.Worktree(); err == nil && worktree.Filesystem != nil {
		_ = util.RemoveAll(worktree.Filesystem, "/")
	}

	repoInfo.objectCache = nil
	repoInfo.Repository = nil
	return nil
}
