package trust_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/librarian-dev/librarian/internal/trust"
)

func TestState_StartsTrusted(t *testing.T) {
	t.Parallel()

	s := trust.NewState()

	assert.False(t, s.Compromised())
	assert.Empty(t, s.Reason())
	assert.True(t, s.CompromisedAt().IsZero())
}

func TestState_CompromiseIsOneWay(t *testing.T) {
	t.Parallel()

	s := trust.NewState()

	require.True(t, s.Compromise("redirect to evil.example.com"))
	assert.True(t, s.Compromised())
	assert.Equal(t, "redirect to evil.example.com", s.Reason())
	assert.False(t, s.CompromisedAt().IsZero())

	// A second compromise must not overwrite the original reason.
	assert.False(t, s.Compromise("a different reason"))
	assert.Equal(t, "redirect to evil.example.com", s.Reason())
}

func TestState_ConcurrentCompromise(t *testing.T) {
	t.Parallel()

	s := trust.NewState()

	const goroutines = 32
	transitions := make(chan bool, goroutines)

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			transitions <- s.Compromise("concurrent")
		}()
	}
	wg.Wait()
	close(transitions)

	// Exactly one goroutine performs the transition.
	var winners int
	for won := range transitions {
		if won {
			winners++
		}
	}
	assert.Equal(t, 1, winners)
	assert.True(t, s.Compromised())
}
