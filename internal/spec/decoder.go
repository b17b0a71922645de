package spec

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/librarian-dev/librarian/internal/validator"
)

// Decode failure modes. The installer maps these to distinct rejection
// outcomes; none of them ever partially applies.
var (
	// ErrSchemaViolation marks a manifest with unknown, missing or
	// malformed fields.
	ErrSchemaViolation = errors.New("manifest schema violation")

	// ErrHookNotElevated marks a manifest declaring a loader hook in a
	// package whose trust level is standard.
	ErrHookNotElevated = errors.New("loader hook requires elevated package trust")

	// ErrHookSymbolUnknown marks a declared hook symbol with no vetted
	// local implementation.
	ErrHookSymbolUnknown = errors.New("loader hook symbol has no vetted implementation")
)

//go:embed manifest_schema.json
var manifestSchemaJSON []byte

const manifestSchemaURL = "https://librarian.dev/schemas/manifest.schema.json"

// Decoder converts a validated package into a LanguageSpec through a
// restricted, schema-driven decode. It never reconstructs executable
// objects from package bytes; a declared hook only selects from the
// locally vetted resolver.
type Decoder struct {
	schema *jsonschema.Schema
	hooks  HookResolver
}

// NewDecoder compiles the manifest schema and returns a Decoder wired to
// the given hook resolver.
func NewDecoder(hooks HookResolver) (*Decoder, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(manifestSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to parse manifest schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(manifestSchemaURL, doc); err != nil {
		return nil, fmt.Errorf("failed to add manifest schema resource: %w", err)
	}

	schema, err := compiler.Compile(manifestSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("failed to compile manifest schema: %w", err)
	}

	return &Decoder{schema: schema, hooks: hooks}, nil
}

// Decode builds a LanguageSpec from the package manifest field by field.
// The manifest must satisfy the compiled schema exactly; any unknown or
// malformed field is a SchemaViolation. Hook declarations are gated on
// the package trust level and resolved against the vetted table.
func (d *Decoder) Decode(_ context.Context, pkg *validator.ValidatedPackage) (*LanguageSpec, error) {
	if pkg == nil || pkg.Archive == nil {
		return nil, fmt.Errorf("%w: no package content", ErrSchemaViolation)
	}

	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(pkg.Archive.Manifest))
	if err != nil {
		return nil, fmt.Errorf("%w: manifest is not valid JSON: %v", ErrSchemaViolation, err)
	}
	if err := d.schema.Validate(instance); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaViolation, err)
	}

	// The schema already pinned the shape; the strict decode guards
	// against any drift between schema and struct.
	decoder := json.NewDecoder(bytes.NewReader(pkg.Archive.Manifest))
	decoder.DisallowUnknownFields()

	var s LanguageSpec
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaViolation, err)
	}

	if s.Name != pkg.Name || s.Version != pkg.Version {
		// The validator matched these against the same manifest; a
		// mismatch here means the package changed between stages.
		return nil, fmt.Errorf("%w: manifest identity diverged from validated package", ErrSchemaViolation)
	}

	if s.NeedsLoaderHook {
		if err := d.resolveHook(&s, pkg); err != nil {
			return nil, err
		}
	} else if s.LoaderHook != "" {
		return nil, fmt.Errorf("%w: loader_hook declared without needs_loader_hook", ErrSchemaViolation)
	}

	slog.Debug("Decoded language spec",
		"name", s.Name,
		"version", s.Version,
		"dependencies", len(s.Dependencies),
		"loader_hook", s.LoaderHook)

	return &s, nil
}

// resolveHook gates and resolves the spec's declared loader hook.
func (d *Decoder) resolveHook(s *LanguageSpec, pkg *validator.ValidatedPackage) error {
	if pkg.Trust != validator.TrustElevated {
		return fmt.Errorf("%w: %q declares hook %q but package trust is %s (source %s)",
			ErrHookNotElevated, s.Name, s.LoaderHook, pkg.Trust, pkg.Provenance.Source)
	}

	if d.hooks == nil {
		return fmt.Errorf("%w: no hook table configured", ErrHookSymbolUnknown)
	}

	hook, ok := d.hooks.Resolve(s.LoaderHook)
	if !ok {
		return fmt.Errorf("%w: %q", ErrHookSymbolUnknown, s.LoaderHook)
	}

	s.hook = hook
	return nil
}
