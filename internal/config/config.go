// Package config provides configuration loading and management for the
// librarian plugin pipeline.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// SourceTypeIndex selects the public package index as the package
	// origin. The index serves mutable "latest" pointers, so packages
	// fetched from it can never reach elevated trust.
	SourceTypeIndex = "index"

	// SourceTypeGit selects the code-hosting platform as the package
	// origin. Git fetches are pinned to a tag or commit and are the only
	// provenance eligible for elevated trust.
	SourceTypeGit = "git"
)

// EnvPrefix is the prefix for librarian environment variables.
const EnvPrefix = "LIBRARIAN"

const (
	// DefaultFetchTimeout bounds a single package fetch.
	DefaultFetchTimeout = 60 * time.Second

	// DefaultWorkers is the size of the install worker pool.
	DefaultWorkers = 4

	// pluginsDirName is the home subdirectory holding extracted spec
	// resources.
	pluginsDirName = "plugins"
)

// Option defines the interface for configuration options.
type Option func(*loaderConfig) error

// loaderConfig defines the configuration for loading a configuration.
type loaderConfig struct {
	path string
}

// WithConfigPath loads configuration from a YAML file.
func WithConfigPath(path string) Option {
	return func(cfg *loaderConfig) error {
		if path == "" {
			return fmt.Errorf("path is required")
		}

		// Resolve symlinks to prevent symlink attacks.
		// Note that this calls filepath.Clean internally.
		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return fmt.Errorf("failed to evaluate symlinks: %w", err)
		}

		// Validate the path to prevent path traversal attacks
		if !filepath.IsAbs(realPath) {
			if !filepath.IsLocal(realPath) {
				return fmt.Errorf("path is not local or contains invalid traversal: %s", path)
			}
		}

		cfg.path = realPath
		return nil
	}
}

// Config represents the root configuration structure.
type Config struct {
	// Home is the librarian home directory holding the catalog file and
	// extracted plugin resources. Defaults to ~/.librarian.
	Home string `yaml:"home,omitempty"`

	// Sources configures the remote package origins.
	Sources SourcesConfig `yaml:"sources"`

	// Fetch configures network fetch behavior.
	Fetch FetchConfig `yaml:"fetch,omitempty"`

	// Install configures the install pipeline.
	Install InstallConfig `yaml:"install,omitempty"`
}

// SourcesConfig defines the remote origins packages may be fetched from.
type SourcesConfig struct {
	// Index configures the public package index.
	Index *IndexConfig `yaml:"index,omitempty"`

	// Git configures the code-hosting platform.
	Git *GitConfig `yaml:"git,omitempty"`

	// AllowedHosts is the redirect allow-list. A redirect whose target
	// host is not listed here marks the network channel compromised.
	AllowedHosts []string `yaml:"allowedHosts,omitempty"`
}

// IndexConfig defines the public package index origin.
type IndexConfig struct {
	// Endpoint is the base index URL, e.g. "https://index.librarian.dev".
	Endpoint string `yaml:"endpoint"`
}

// GitConfig defines the code-hosting platform origin.
type GitConfig struct {
	// BaseURL is the platform namespace cloned from, e.g.
	// "https://github.com/librarian-plugins". The repository for a spec
	// named "cpp" is <baseURL>/cpp.git.
	BaseURL string `yaml:"baseURL"`

	// ArchivePath is the path of the package archive inside the
	// repository, relative to its root. "{name}" and "{version}" are
	// substituted. Defaults to "dist/{name}-{version}.tar.gz".
	ArchivePath string `yaml:"archivePath,omitempty"`

	// Auth holds optional HTTP basic credentials for private platforms.
	Auth *GitAuthConfig `yaml:"auth,omitempty"`
}

// GitAuthConfig defines Git authentication settings.
type GitAuthConfig struct {
	Username string `yaml:"username"`

	// PasswordFile is the path to a file containing the password or
	// token. The file content has surrounding whitespace trimmed.
	PasswordFile string `yaml:"passwordFile,omitempty"`
}

// FetchConfig defines network fetch behavior.
type FetchConfig struct {
	// Timeout bounds a single fetch, e.g. "60s". Defaults to
	// DefaultFetchTimeout.
	Timeout string `yaml:"timeout,omitempty"`

	// RetryOnTimeout enables bounded backoff retry of fetches that fail
	// with a timeout. Other failures are never retried.
	RetryOnTimeout bool `yaml:"retryOnTimeout,omitempty"`

	// MaxRetries caps timeout retries when RetryOnTimeout is set.
	MaxRetries int `yaml:"maxRetries,omitempty"`
}

// InstallConfig defines install pipeline behavior.
type InstallConfig struct {
	// Workers is the size of the bounded install worker pool.
	Workers int `yaml:"workers,omitempty"`
}

// GetPassword reads the Git password from PasswordFile, falling back to
// the LIBRARIAN_GIT_PASSWORD environment variable.
func (g *GitAuthConfig) GetPassword() (string, error) {
	if g.PasswordFile != "" {
		cleanPath := filepath.Clean(g.PasswordFile)

		data, err := os.ReadFile(cleanPath)
		if err != nil {
			return "", fmt.Errorf("failed to read password from file %s: %w", g.PasswordFile, err)
		}
		return strings.TrimSpace(string(data)), nil
	}

	if envPassword := os.Getenv("LIBRARIAN_GIT_PASSWORD"); envPassword != "" {
		return envPassword, nil
	}

	return "", fmt.Errorf("no git password configured: set passwordFile or LIBRARIAN_GIT_PASSWORD")
}

// LoadConfig loads and parses configuration from a YAML file.
func LoadConfig(opts ...Option) (*Config, error) {
	loaderCfg := &loaderConfig{}
	for _, opt := range opts {
		if err := opt(loaderCfg); err != nil {
			return nil, err
		}
	}

	if loaderCfg.path == "" {
		return nil, fmt.Errorf("path is required")
	}

	data, err := os.ReadFile(loaderCfg.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Default returns a configuration with all defaults applied and no
// remote sources. Used when no config file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Home == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		c.Home = filepath.Join(home, ".librarian")
	}
	if c.Install.Workers <= 0 {
		c.Install.Workers = DefaultWorkers
	}
	if c.Sources.Git != nil && c.Sources.Git.ArchivePath == "" {
		c.Sources.Git.ArchivePath = "dist/{name}-{version}.tar.gz"
	}
}

// Validate performs validation on the configuration.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if c.Sources.Index != nil {
		if err := validateHTTPSEndpoint(c.Sources.Index.Endpoint, "sources.index.endpoint"); err != nil {
			return err
		}
	}

	if c.Sources.Git != nil {
		if err := validateHTTPSEndpoint(c.Sources.Git.BaseURL, "sources.git.baseURL"); err != nil {
			return err
		}
	}

	if c.Fetch.Timeout != "" {
		if _, err := time.ParseDuration(c.Fetch.Timeout); err != nil {
			return fmt.Errorf("fetch.timeout: invalid duration %q: %w", c.Fetch.Timeout, err)
		}
	}

	if c.Fetch.MaxRetries < 0 {
		return fmt.Errorf("fetch.maxRetries cannot be negative")
	}

	return nil
}

// FetchTimeout returns the parsed fetch timeout.
func (c *Config) FetchTimeout() time.Duration {
	if c.Fetch.Timeout == "" {
		return DefaultFetchTimeout
	}
	d, err := time.ParseDuration(c.Fetch.Timeout)
	if err != nil {
		return DefaultFetchTimeout
	}
	return d
}

// CatalogPath returns the location of the on-disk catalog file.
func (c *Config) CatalogPath() string {
	return filepath.Join(c.Home, "catalog.json")
}

// PluginsDir returns the directory holding extracted spec resources.
func (c *Config) PluginsDir() string {
	return filepath.Join(c.Home, pluginsDirName)
}

// EnsureHome creates the home directory layout if it does not exist.
func (c *Config) EnsureHome() error {
	if err := os.MkdirAll(c.Home, 0750); err != nil {
		return fmt.Errorf("failed to create home directory: %w", err)
	}
	if err := os.MkdirAll(c.PluginsDir(), 0750); err != nil {
		return fmt.Errorf("failed to create plugins directory: %w", err)
	}
	return nil
}

// validateHTTPSEndpoint checks that an endpoint is a well-formed HTTPS
// URL. Plain HTTP is allowed only for loopback hosts, which keeps local
// test setups working without weakening remote fetches.
func validateHTTPSEndpoint(endpoint, field string) error {
	if endpoint == "" {
		return fmt.Errorf("%s cannot be empty", field)
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("%s: invalid URL: %w", field, err)
	}

	switch u.Scheme {
	case "https":
	case "http":
		host := u.Hostname()
		if host != "localhost" && host != "127.0.0.1" && host != "::1" {
			return fmt.Errorf("%s: plain http is only allowed for loopback hosts, got %q", field, endpoint)
		}
	default:
		return fmt.Errorf("%s: unsupported scheme %q", field, u.Scheme)
	}

	if u.Host == "" {
		return fmt.Errorf("%s: missing host", field)
	}

	return nil
}
