// Package hooks holds the vetted loader-hook table. The table is
// populated at process start from locally declared implementations and
// is the only place a spec's loader_hook symbol can resolve against;
// remote packages never supply callbacks.
package hooks

import (
	"fmt"
	"sort"
	"sync"

	"github.com/librarian-dev/librarian/internal/spec"
)

// Table maps hook symbols to their local implementations. It implements
// spec.HookResolver.
type Table struct {
	mu    sync.RWMutex
	hooks map[string]spec.Hook
}

// NewTable creates an empty hook table.
func NewTable() *Table {
	return &Table{hooks: make(map[string]spec.Hook)}
}

// Register adds a hook under the given symbol. Registering the same
// symbol twice is an error; vetted hooks are pinned, not replaced.
func (t *Table) Register(symbol string, hook spec.Hook) error {
	if symbol == "" {
		return fmt.Errorf("hook symbol cannot be empty")
	}
	if hook == nil {
		return fmt.Errorf("hook implementation for %q cannot be nil", symbol)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.hooks[symbol]; exists {
		return fmt.Errorf("hook symbol %q is already registered", symbol)
	}

	t.hooks[symbol] = hook
	return nil
}

// Resolve returns the hook registered under symbol, if any.
func (t *Table) Resolve(symbol string) (spec.Hook, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	hook, ok := t.hooks[symbol]
	return hook, ok
}

// Symbols returns the registered symbols, sorted.
func (t *Table) Symbols() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	symbols := make([]string, 0, len(t.hooks))
	for symbol := range t.hooks {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}
