package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Resolve(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(&SubAgent{Name: "researcher", Description: "Finds facts."})
	reg.MustRegister(&SubAgent{Name: "code-reviewer", Description: "Reviews code."})

	t.Run("exact match", func(t *testing.T) {
		sub := reg.Resolve("code-reviewer")
		require.NotNil(t, sub)
		assert.Equal(t, "code-reviewer", sub.Name)
	})

	t.Run("requested name contains registered name", func(t *testing.T) {
		sub := reg.Resolve("the Researcher agent")
		require.NotNil(t, sub)
		assert.Equal(t, "researcher", sub.Name)
	})

	t.Run("registered name contains requested name", func(t *testing.T) {
		sub := reg.Resolve("reviewer")
		require.NotNil(t, sub)
		assert.Equal(t, "code-reviewer", sub.Name)
	})

	t.Run("unmatched name falls back to first registered", func(t *testing.T) {
		sub := reg.Resolve("archivist")
		require.NotNil(t, sub)
		assert.Equal(t, "researcher", sub.Name)
	})

	t.Run("empty registry resolves to nil", func(t *testing.T) {
		assert.Nil(t, NewRegistry().Resolve("anyone"))
	})
}

func TestRegistry_Register(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(&SubAgent{Name: "a"}))
	require.NoError(t, reg.Register(&SubAgent{Name: "b"}))

	assert.ErrorIs(t, reg.Register(&SubAgent{Name: "a"}), ErrAgentAlreadyRegistered)
	assert.Equal(t, 2, reg.Len())
	assert.Equal(t, []string{"a", "b"}, reg.Names())
	assert.True(t, reg.Has("b"))
	assert.Nil(t, reg.Get("c"))
}

func TestIsConversational(t *testing.T) {
	assert.True(t, isConversational("hello"))
	assert.True(t, isConversational("  Thanks!  "))
	assert.True(t, isConversational("How are you?"))
	assert.False(t, isConversational("hello, can you analyze this dataset"))
	assert.False(t, isConversational("compute the answer"))
}
