package app

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/librarian-dev/librarian/internal/hooks"
)

func TestNewRootCmd(t *testing.T) {
	root := NewRootCmd()

	var names []string
	for _, sub := range root.Commands() {
		names = append(names, sub.Name())
	}
	assert.Contains(t, names, "install")
	assert.Contains(t, names, "list")
	assert.Contains(t, names, "remove")
	assert.Contains(t, names, "version")
}

func TestRegisterHooks(t *testing.T) {
	table := hooks.NewTable()
	require.NoError(t, registerHooks(table))

	_, ok := table.Resolve("announce_spec")
	assert.True(t, ok)
}

func TestListCommand_EmptyCatalog(t *testing.T) {
	home := t.TempDir()
	configPath := filepath.Join(t.TempDir(), "librarian.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(fmt.Sprintf("home: %s\n", home)), 0600))

	root := NewRootCmd()
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetErr(out)
	root.SetArgs([]string{"list", "--config", configPath})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "no language specs installed")
}
