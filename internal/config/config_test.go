package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "librarian.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		yamlContent string
		wantErr     string
		check       func(t *testing.T, cfg *Config)
	}{
		{
			name: "full_config",
			yamlContent: `home: /tmp/librarian-test
sources:
  index:
    endpoint: https://index.librarian.dev
  git:
    baseURL: https://github.com/librarian-plugins
  allowedHosts:
    - index.librarian.dev
    - cdn.librarian.dev
    - github.com
fetch:
  timeout: 90s
  retryOnTimeout: true
  maxRetries: 3
install:
  workers: 8`,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "/tmp/librarian-test", cfg.Home)
				assert.Equal(t, "https://index.librarian.dev", cfg.Sources.Index.Endpoint)
				assert.Equal(t, "https://github.com/librarian-plugins", cfg.Sources.Git.BaseURL)
				assert.Equal(t, "dist/{name}-{version}.tar.gz", cfg.Sources.Git.ArchivePath)
				assert.Equal(t, []string{"index.librarian.dev", "cdn.librarian.dev", "github.com"}, cfg.Sources.AllowedHosts)
				assert.Equal(t, 90*time.Second, cfg.FetchTimeout())
				assert.True(t, cfg.Fetch.RetryOnTimeout)
				assert.Equal(t, 8, cfg.Install.Workers)
			},
		},
		{
			name: "minimal_config_applies_defaults",
			yamlContent: `sources:
  index:
    endpoint: https://index.librarian.dev`,
			check: func(t *testing.T, cfg *Config) {
				assert.NotEmpty(t, cfg.Home)
				assert.Equal(t, DefaultWorkers, cfg.Install.Workers)
				assert.Equal(t, DefaultFetchTimeout, cfg.FetchTimeout())
				assert.Equal(t, filepath.Join(cfg.Home, "catalog.json"), cfg.CatalogPath())
			},
		},
		{
			name: "loopback_http_endpoint_allowed",
			yamlContent: `sources:
  index:
    endpoint: http://127.0.0.1:8080`,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "http://127.0.0.1:8080", cfg.Sources.Index.Endpoint)
			},
		},
		{
			name: "plain_http_remote_endpoint_rejected",
			yamlContent: `sources:
  index:
    endpoint: http://index.librarian.dev`,
			wantErr: "plain http is only allowed for loopback hosts",
		},
		{
			name: "empty_index_endpoint_rejected",
			yamlContent: `sources:
  index:
    endpoint: ""`,
			wantErr: "sources.index.endpoint cannot be empty",
		},
		{
			name: "bad_timeout_rejected",
			yamlContent: `sources:
  index:
    endpoint: https://index.librarian.dev
fetch:
  timeout: soon`,
			wantErr: "invalid duration",
		},
		{
			name:        "malformed_yaml_rejected",
			yamlContent: "sources: [not a mapping",
			wantErr:     "failed to parse YAML config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := writeConfigFile(t, tt.yamlContent)
			cfg, err := LoadConfig(WithConfigPath(path))

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}

			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := LoadConfig(WithConfigPath(filepath.Join(t.TempDir(), "absent.yaml")))
	require.Error(t, err)
}

func TestLoadConfig_NoPath(t *testing.T) {
	t.Parallel()

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "path is required")
}

func TestConfig_EnsureHome(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Home = filepath.Join(t.TempDir(), "librarian-home")

	require.NoError(t, cfg.EnsureHome())

	info, err := os.Stat(cfg.PluginsDir())
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	// EnsureHome is idempotent.
	require.NoError(t, cfg.EnsureHome())
}

func TestGitAuthConfig_GetPassword(t *testing.T) {
	t.Parallel()

	t.Run("from_file_trims_whitespace", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "token")
		require.NoError(t, os.WriteFile(path, []byte("  s3cret\n"), 0600))

		auth := &GitAuthConfig{Username: "ci", PasswordFile: path}
		password, err := auth.GetPassword()

		require.NoError(t, err)
		assert.Equal(t, "s3cret", password)
	})

	t.Run("missing_file_fails", func(t *testing.T) {
		t.Parallel()

		auth := &GitAuthConfig{Username: "ci", PasswordFile: filepath.Join(t.TempDir(), "absent")}
		_, err := auth.GetPassword()

		require.Error(t, err)
	})
}
