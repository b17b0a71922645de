package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/spf13/viper"

	"github.com/librarian-dev/librarian/internal/config"
	"github.com/librarian-dev/librarian/internal/hooks"
	"github.com/librarian-dev/librarian/internal/installer"
	"github.com/librarian-dev/librarian/internal/registry"
	"github.com/librarian-dev/librarian/internal/sources"
	"github.com/librarian-dev/librarian/internal/spec"
	"github.com/librarian-dev/librarian/internal/telemetry"
	"github.com/librarian-dev/librarian/internal/trust"
)

var (
	metricsOnce sync.Once
	metrics     telemetry.Metrics
)

// pipelineMetrics returns the process-wide metrics instance. Prometheus
// collectors register once per process.
func pipelineMetrics() telemetry.Metrics {
	metricsOnce.Do(func() {
		metrics = telemetry.NewProm("librarian")
	})
	return metrics
}

// loadConfig reads the config file named by --config, falling back to
// built-in defaults when no file is given.
func loadConfig() (*config.Config, error) {
	path := viper.GetString("config")
	if path == "" {
		return config.Default(), nil
	}
	return config.LoadConfig(config.WithConfigPath(path))
}

// registerHooks populates the vetted loader hook table. Hooks are
// defined here, locally, at process start; packages can only select one
// by symbol name.
func registerHooks(table *hooks.Table) error {
	return table.Register("announce_spec", func(_ context.Context, s *spec.LanguageSpec) error {
		slog.Info("Loaded language spec", "name", s.Name, "version", s.Version)
		return nil
	})
}

// buildInstaller wires the pipeline from configuration: sources behind
// the shared trust state, schema decoder over the vetted hook table,
// registry seeded from the on-disk catalog.
func buildInstaller(cfg *config.Config) (*installer.Installer, error) {
	if err := cfg.EnsureHome(); err != nil {
		return nil, fmt.Errorf("failed to initialize home directory: %w", err)
	}

	table := hooks.NewTable()
	if err := registerHooks(table); err != nil {
		return nil, fmt.Errorf("failed to register loader hooks: %w", err)
	}

	decoder, err := spec.NewDecoder(table)
	if err != nil {
		return nil, fmt.Errorf("failed to compile manifest schema: %w", err)
	}

	trustState := trust.NewState()
	inst := installer.New(
		cfg,
		sources.NewHandlerFactory(cfg, trustState),
		decoder,
		registry.New(),
		registry.NewCatalog(cfg.CatalogPath()),
		trustState,
		pipelineMetrics(),
	)

	if err := inst.LoadCatalog(); err != nil {
		return nil, err
	}
	return inst, nil
}
