package registry_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/librarian-dev/librarian/internal/registry"
	"github.com/librarian-dev/librarian/internal/spec"
)

func newSpec(name, version string) *spec.LanguageSpec {
	return &spec.LanguageSpec{Name: name, Version: version}
}

func TestRegistry_PutGetRemove(t *testing.T) {
	t.Parallel()

	reg := registry.New()

	_, ok := reg.Get("cpp")
	assert.False(t, ok)

	prev := reg.Put(newSpec("cpp", "1.2.0"))
	assert.Nil(t, prev, "first Put has nothing to replace")

	got, ok := reg.Get("cpp")
	require.True(t, ok)
	assert.Equal(t, "1.2.0", got.Version)

	prev = reg.Put(newSpec("cpp", "1.3.0"))
	require.NotNil(t, prev)
	assert.Equal(t, "1.2.0", prev.Version)

	got, _ = reg.Get("cpp")
	assert.Equal(t, "1.3.0", got.Version)

	assert.True(t, reg.Remove("cpp"))
	assert.False(t, reg.Remove("cpp"), "removing an absent name is a no-op")
	_, ok = reg.Get("cpp")
	assert.False(t, ok)
}

func TestRegistry_ListSortedByName(t *testing.T) {
	t.Parallel()

	reg := registry.New()
	reg.Put(newSpec("rust", "1.0.0"))
	reg.Put(newSpec("cpp", "1.2.0"))
	reg.Put(newSpec("go", "2.0.0"))

	list := reg.List()
	require.Len(t, list, 3)
	assert.Equal(t, "cpp", list[0].Name)
	assert.Equal(t, "go", list[1].Name)
	assert.Equal(t, "rust", list[2].Name)
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	reg := registry.New()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("lang-%d", i%4)
			reg.Put(newSpec(name, "1.0.0"))
			reg.Get(name)
			reg.List()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 4, reg.Len())
}
