// Package spec defines the LanguageSpec installable unit and the
// schema-driven decoder that builds one from a validated package.
package spec

import "context"

// Step is a declarative command descriptor. Steps carry no executable
// code; an execution component outside this pipeline interprets them.
type Step struct {
	// Name is an optional human-readable label for the step.
	Name string `json:"name,omitempty"`

	// Command is the argv of the step.
	Command []string `json:"command"`
}

// ExtraFile describes an auxiliary resource shipped inside the package.
type ExtraFile struct {
	// Path is the member path inside the package container.
	Path string `json:"path"`

	// Kind is "file" or "template". Empty means "file".
	Kind string `json:"kind,omitempty"`
}

// Hook is a vetted callback run once after a spec is registered. Hooks
// are defined locally at process start; remote packages can only select
// one by symbol name, never supply one.
type Hook func(ctx context.Context, s *LanguageSpec) error

// HookResolver resolves a loader hook symbol to its local
// implementation.
type HookResolver interface {
	// Resolve returns the hook registered under symbol, if any.
	Resolve(symbol string) (Hook, bool)
}

// LanguageSpec is a named, versioned descriptor teaching the tool how to
// build and run a language toolchain. A LanguageSpec is immutable once
// registered; updates replace the registry entry wholesale.
type LanguageSpec struct {
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	Dependencies []string `json:"dependencies,omitempty"`

	BuildSteps []Step `json:"build_steps,omitempty"`
	RunSteps   []Step `json:"run_steps,omitempty"`

	FileExtensions []string `json:"file_extensions,omitempty"`
	ProjectFiles   []string `json:"project_files,omitempty"`
	Comments       []string `json:"comments,omitempty"`

	ExtraFiles []ExtraFile `json:"extra_files,omitempty"`

	NeedsLoaderHook bool   `json:"needs_loader_hook,omitempty"`
	LoaderHook      string `json:"loader_hook,omitempty"`

	// hook is the resolved local implementation of LoaderHook. It is
	// attached by the decoder and never serialized.
	hook Hook
}

// RunLoaderHook runs the attached loader hook once. It is a no-op for
// specs without one.
func (s *LanguageSpec) RunLoaderHook(ctx context.Context) error {
	if s.hook == nil {
		return nil
	}
	return s.hook(ctx, s)
}

// HasLoaderHook reports whether a resolved hook is attached.
func (s *LanguageSpec) HasLoaderHook() bool {
	return s.hook != nil
}
