package hooks_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/librarian-dev/librarian/internal/hooks"
	"github.com/librarian-dev/librarian/internal/spec"
)

func noopHook(context.Context, *spec.LanguageSpec) error { return nil }

func TestTable_RegisterAndResolve(t *testing.T) {
	t.Parallel()

	table := hooks.NewTable()
	require.NoError(t, table.Register("cpp_post_install", noopHook))

	hook, ok := table.Resolve("cpp_post_install")
	assert.True(t, ok)
	assert.NotNil(t, hook)

	_, ok = table.Resolve("unknown_symbol")
	assert.False(t, ok)
}

func TestTable_RejectsDuplicateAndInvalid(t *testing.T) {
	t.Parallel()

	table := hooks.NewTable()
	require.NoError(t, table.Register("cpp_post_install", noopHook))

	err := table.Register("cpp_post_install", noopHook)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")

	require.Error(t, table.Register("", noopHook))
	require.Error(t, table.Register("nil_hook", nil))
}

func TestTable_Symbols(t *testing.T) {
	t.Parallel()

	table := hooks.NewTable()
	require.NoError(t, table.Register("zig_post_install", noopHook))
	require.NoError(t, table.Register("cpp_post_install", noopHook))

	assert.Equal(t, []string{"cpp_post_install", "zig_post_install"}, table.Symbols())
}
