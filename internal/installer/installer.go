package installer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"

	"github.com/librarian-dev/librarian/internal/config"
	"github.com/librarian-dev/librarian/internal/registry"
	"github.com/librarian-dev/librarian/internal/sources"
	"github.com/librarian-dev/librarian/internal/spec"
	"github.com/librarian-dev/librarian/internal/telemetry"
	"github.com/librarian-dev/librarian/internal/trust"
	"github.com/librarian-dev/librarian/internal/validator"
	"github.com/librarian-dev/librarian/internal/versions"
)

// Installer runs install requests through the pipeline stages and keeps
// the registry and its on-disk catalog consistent.
type Installer struct {
	cfg        *config.Config
	factory    sources.HandlerFactory
	validator  *validator.PackageValidator
	decoder    *spec.Decoder
	registry   *registry.Registry
	catalog    *registry.Catalog
	trustState *trust.State
	metrics    telemetry.Metrics

	// persistMu serializes registry mutation together with the catalog
	// write, so a concurrent Save can never drop another request's
	// registration.
	persistMu sync.Mutex
}

// New creates an Installer. A nil metrics falls back to no-op metrics.
func New(
	cfg *config.Config,
	factory sources.HandlerFactory,
	decoder *spec.Decoder,
	reg *registry.Registry,
	catalog *registry.Catalog,
	trustState *trust.State,
	metrics telemetry.Metrics,
) *Installer {
	if metrics == nil {
		metrics = telemetry.Noop{}
	}
	return &Installer{
		cfg:        cfg,
		factory:    factory,
		validator:  validator.New(),
		decoder:    decoder,
		registry:   reg,
		catalog:    catalog,
		trustState: trustState,
		metrics:    metrics,
	}
}

// Install runs one request through the full pipeline.
func (i *Installer) Install(ctx context.Context, req InstallRequest) *Outcome {
	return i.install(ctx, req, map[string]struct{}{})
}

// install is the recursive pipeline entry. inProgress is the set of
// package names currently being installed further up this chain; a
// request for a name already in the set closes a dependency cycle.
func (i *Installer) install(ctx context.Context, req InstallRequest, inProgress map[string]struct{}) *Outcome {
	outcome := &Outcome{
		RequestID: uuid.NewString(),
		Name:      req.Name,
		Version:   req.Version,
	}
	start := time.Now()
	defer func() {
		outcome.Duration = time.Since(start)
		i.metrics.IncInstallOutcome(string(outcome.Status))
		i.metrics.ObserveInstallDuration(string(outcome.Status), outcome.Duration.Seconds())
	}()

	logger := slog.With("request_id", outcome.RequestID, "name", req.Name, "version", req.Version)

	if req.Name == "" {
		return i.fail(outcome, StatusRejected, fmt.Errorf("install request has no package name"))
	}
	inProgress[req.Name] = struct{}{}
	defer delete(inProgress, req.Name)

	// Fetching.
	if err := i.checkpoint(ctx, logger, "fetching"); err != nil {
		return i.fail(outcome, statusForContextErr(err), err)
	}
	result, err := i.fetch(ctx, req)
	if err != nil {
		i.metrics.IncFetch(sourceLabel(req.Source), "error")
		return i.fail(outcome, statusForFetchErr(ctx, err), fmt.Errorf("fetch failed: %w", err))
	}
	i.metrics.IncFetch(sourceLabel(req.Source), "ok")
	logger.Info("Fetched package archive", "bytes", len(result.Data), "checksum", result.Checksum)

	// Validating.
	if err := i.checkpoint(ctx, logger, "validating"); err != nil {
		return i.fail(outcome, statusForContextErr(err), err)
	}
	expected := validator.Expected{Name: req.Name, Version: req.Version, Checksum: req.Checksum}
	pkg, err := i.validator.Validate(result.Data, expected, result.Provenance)
	if err != nil {
		return i.fail(outcome, StatusRejected, err)
	}
	outcome.Version = pkg.Version

	// Decoding.
	if err := i.checkpoint(ctx, logger, "decoding"); err != nil {
		return i.fail(outcome, statusForContextErr(err), err)
	}
	languageSpec, err := i.decoder.Decode(ctx, pkg)
	if err != nil {
		return i.fail(outcome, StatusRejected, err)
	}

	// Registering. The cancellation checkpoint is the last one: once
	// registration starts, the catalog write runs to completion.
	if err := i.checkpoint(ctx, logger, "registering"); err != nil {
		return i.fail(outcome, statusForContextErr(err), err)
	}

	// Dependencies resolve before the spec itself registers, so a cycle
	// in a recursive install aborts with nothing from its chain in the
	// registry.
	warnings, err := i.resolveDependencies(ctx, req, languageSpec, inProgress)
	outcome.Warnings = append(outcome.Warnings, warnings...)
	if err != nil {
		return i.fail(outcome, StatusRejected, err)
	}

	if prev, ok := i.registry.Get(req.Name); ok && versions.IsNewerVersion(prev.Version, languageSpec.Version) {
		msg := fmt.Sprintf("replacing %s %s with older version %s", req.Name, prev.Version, languageSpec.Version)
		logger.Warn("Registering a downgrade", "installed", prev.Version, "requested", languageSpec.Version)
		outcome.Warnings = append(outcome.Warnings, Warning{Code: WarnDowngrade, Message: msg})
	}
	if err := i.register(languageSpec); err != nil {
		return i.fail(outcome, StatusFailed, err)
	}

	// The loader hook runs exactly once, after the spec it configures is
	// registered.
	if err := languageSpec.RunLoaderHook(ctx); err != nil {
		return i.fail(outcome, StatusFailed, fmt.Errorf("loader hook %q failed: %w", languageSpec.LoaderHook, err))
	}

	outcome.Status = StatusInstalled
	outcome.Spec = languageSpec
	logger.Info("Installed language spec", "trust", string(pkg.Trust), "warnings", len(outcome.Warnings))
	return outcome
}

// fetch retrieves the package archive, retrying on timeout when
// configured. Only timeouts are retried; every other failure is
// permanent.
func (i *Installer) fetch(ctx context.Context, req InstallRequest) (*sources.FetchResult, error) {
	handler, err := i.factory.CreateHandler(req.Source)
	if err != nil {
		return nil, err
	}

	attempt := func() (*sources.FetchResult, error) {
		attemptCtx, cancel := context.WithTimeout(ctx, i.cfg.FetchTimeout())
		defer cancel()

		result, err := handler.Fetch(attemptCtx, req.Name, req.Version)
		if err != nil {
			if isTimeout(err) && ctx.Err() == nil {
				return nil, err
			}
			return nil, backoff.Permanent(err)
		}
		return result, nil
	}

	if !i.cfg.Fetch.RetryOnTimeout {
		result, err := attempt()
		var permanent *backoff.PermanentError
		if errors.As(err, &permanent) {
			return result, permanent.Unwrap()
		}
		return result, err
	}

	return backoff.Retry(ctx, attempt,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(uint(i.cfg.Fetch.MaxRetries+1)))
}

// register puts the spec and persists the catalog, rolling the registry
// back if the catalog write fails.
func (i *Installer) register(s *spec.LanguageSpec) error {
	i.persistMu.Lock()
	defer i.persistMu.Unlock()

	prev := i.registry.Put(s)
	if err := i.catalog.Save(i.registry.List()); err != nil {
		if prev != nil {
			i.registry.Put(prev)
		} else {
			i.registry.Remove(s.Name)
		}
		return fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
	}
	return nil
}

// resolveDependencies handles the spec's declared dependencies before
// the spec itself registers: already installed ones are satisfied, and
// the rest are either installed recursively or surfaced as warnings. A
// cycle is a warning on a plain install; on a recursive install it
// returns an error so nothing from the cyclic chain registers.
func (i *Installer) resolveDependencies(ctx context.Context, req InstallRequest, s *spec.LanguageSpec, inProgress map[string]struct{}) ([]Warning, error) {
	var warnings []Warning
	for _, dep := range s.Dependencies {
		if _, ok := inProgress[dep]; ok {
			if req.Recursive {
				return warnings, fmt.Errorf("%w: %s depends on %s, which is still installing", ErrDependencyCycle, s.Name, dep)
			}
			warnings = append(warnings, Warning{
				Code:    WarnDependencyCycle,
				Message: fmt.Sprintf("dependency %s closes an install cycle", dep),
			})
			continue
		}
		if _, ok := i.registry.Get(dep); ok {
			continue
		}
		if !req.Recursive {
			warnings = append(warnings, Warning{
				Code:    WarnMissingDependency,
				Message: fmt.Sprintf("dependency %s is not installed", dep),
			})
			continue
		}

		subRequest := InstallRequest{Name: dep, Source: req.Source, Recursive: true}
		subOutcome := i.install(ctx, subRequest, inProgress)
		if subOutcome.Installed() {
			continue
		}
		if errors.Is(subOutcome.Err, ErrDependencyCycle) {
			return warnings, fmt.Errorf("installing dependency %s: %w", dep, subOutcome.Err)
		}
		warnings = append(warnings, Warning{
			Code:    WarnMissingDependency,
			Message: fmt.Sprintf("dependency %s failed to install: %v", dep, subOutcome.Err),
		})
	}
	return warnings, nil
}

// ListInstalled returns a summary of every registered spec, name-sorted.
func (i *Installer) ListInstalled() []Summary {
	specs := i.registry.List()
	out := make([]Summary, 0, len(specs))
	for _, s := range specs {
		out = append(out, Summary{
			Name:         s.Name,
			Version:      s.Version,
			Dependencies: s.Dependencies,
			HasHook:      s.NeedsLoaderHook,
		})
	}
	return out
}

// Remove unregisters name and persists the catalog. Removing an absent
// name reports false without touching the catalog. A failed catalog
// write rolls the removal back.
func (i *Installer) Remove(_ context.Context, name string) (bool, error) {
	i.persistMu.Lock()
	defer i.persistMu.Unlock()

	prev, ok := i.registry.Get(name)
	if !ok {
		return false, nil
	}

	i.registry.Remove(name)
	if err := i.catalog.Save(i.registry.List()); err != nil {
		i.registry.Put(prev)
		return false, fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
	}

	slog.Info("Removed language spec", "name", name, "version", prev.Version)
	return true, nil
}

// LoadCatalog seeds the registry from the on-disk catalog.
func (i *Installer) LoadCatalog() error {
	specs, err := i.catalog.Load()
	if err != nil {
		return err
	}
	for _, s := range specs {
		i.registry.Put(s)
	}
	return nil
}

func (i *Installer) fail(outcome *Outcome, status Status, err error) *Outcome {
	outcome.Status = status
	outcome.Err = err
	slog.Error("Install request did not complete",
		"request_id", outcome.RequestID,
		"name", outcome.Name,
		"status", string(status),
		"error", err)
	return outcome
}

// checkpoint marks a stage boundary: it logs the transition and honors
// cancellation before the stage starts.
func (*Installer) checkpoint(ctx context.Context, logger *slog.Logger, stage string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	logger.Debug("Install stage", "stage", stage)
	return nil
}

func statusForContextErr(err error) Status {
	if errors.Is(err, context.DeadlineExceeded) {
		return StatusTimeout
	}
	return StatusCancelled
}

func statusForFetchErr(ctx context.Context, err error) Status {
	switch {
	case errors.Is(err, sources.ErrNetworkBlocked):
		return StatusNetworkBlocked
	case errors.Is(ctx.Err(), context.Canceled):
		return StatusCancelled
	case isTimeout(err):
		return StatusTimeout
	default:
		return StatusFailed
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func sourceLabel(source string) string {
	if source == "" {
		return config.SourceTypeIndex
	}
	return source
}
