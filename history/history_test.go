package history

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	ai "github.com/spetersoncode/reins"
)

func userMsg(i int) ai.Message {
	return ai.Message{Role: ai.RoleUser, Content: fmt.Sprintf("message %d", i)}
}

func TestHistory_Append(t *testing.T) {
	t.Run("unbounded by default", func(t *testing.T) {
		h := New()
		for i := 0; i < 50; i++ {
			h.Append(userMsg(i))
		}

		assert.Equal(t, 50, h.Len())
	})

	t.Run("evicts oldest beyond cap", func(t *testing.T) {
		h := New(WithMaxMessages(3))
		for i := 0; i < 5; i++ {
			h.Append(userMsg(i))
		}

		msgs := h.Messages()
		require.Len(t, msgs, 3)
		assert.Equal(t, "message 2", msgs[0].Content)
		assert.Equal(t, "message 4", msgs[2].Content)
	})

	t.Run("system messages survive trimming", func(t *testing.T) {
		h := New(WithMaxMessages(2))
		h.Append(ai.Message{Role: ai.RoleSystem, Content: "be helpful"})
		for i := 0; i < 5; i++ {
			h.Append(userMsg(i))
		}

		msgs := h.Messages()
		require.Len(t, msgs, 3)
		assert.Equal(t, ai.RoleSystem, msgs[0].Role)
		assert.Equal(t, "message 3", msgs[1].Content)
		assert.Equal(t, "message 4", msgs[2].Content)
	})

	t.Run("pinned system message consumes one slot", func(t *testing.T) {
		h := New(WithMaxMessages(3), WithKeepSystemMessage(true))
		h.Append(ai.Message{Role: ai.RoleSystem, Content: "be helpful"})
		for i := 0; i < 5; i++ {
			h.Append(userMsg(i))
		}

		msgs := h.Messages()
		require.Len(t, msgs, 3)
		assert.Equal(t, ai.RoleSystem, msgs[0].Role)
		assert.Equal(t, "message 3", msgs[1].Content)
	})

	t.Run("order is preserved", func(t *testing.T) {
		h := New()
		h.Append(userMsg(0), ai.Message{Role: ai.RoleAssistant, Content: "reply"}, userMsg(1))

		msgs := h.Messages()
		require.Len(t, msgs, 3)
		assert.Equal(t, ai.RoleAssistant, msgs[1].Role)
	})
}

func TestHistory_Clone(t *testing.T) {
	h := New(WithMaxMessages(10))
	h.Append(userMsg(0), userMsg(1))

	clone := h.Clone()
	clone.Append(userMsg(2))

	assert.Equal(t, 2, h.Len())
	assert.Equal(t, 3, clone.Len())
}

func TestHistory_Last(t *testing.T) {
	h := New()
	for i := 0; i < 5; i++ {
		h.Append(userMsg(i))
	}

	last := h.Last(2)
	require.Len(t, last, 2)
	assert.Equal(t, "message 3", last[0].Content)
	assert.Equal(t, "message 4", last[1].Content)

	assert.Len(t, h.Last(10), 5)
	assert.Nil(t, h.Last(0))
}

func TestHistory_SyncReload(t *testing.T) {
	ctx := context.Background()
	adapter := NewMemoryAdapter()

	h := New(WithAdapter(adapter))
	h.Append(userMsg(0), userMsg(1))
	require.NoError(t, h.Sync(ctx, "conv-1"))

	t.Run("reload restores messages", func(t *testing.T) {
		restored := New(WithAdapter(adapter))
		require.NoError(t, restored.Reload(ctx, "conv-1"))

		msgs := restored.Messages()
		require.Len(t, msgs, 2)
		assert.Equal(t, "message 0", msgs[0].Content)
	})

	t.Run("reload applies trimming", func(t *testing.T) {
		restored := New(WithAdapter(adapter), WithMaxMessages(1))
		require.NoError(t, restored.Reload(ctx, "conv-1"))

		msgs := restored.Messages()
		require.Len(t, msgs, 1)
		assert.Equal(t, "message 1", msgs[0].Content)
	})

	t.Run("missing key", func(t *testing.T) {
		restored := New(WithAdapter(adapter))
		assert.ErrorIs(t, restored.Reload(ctx, "no-such-key"), ErrKeyNotFound)
	})
}

func TestMemoryAdapter(t *testing.T) {
	ctx := context.Background()
	a := NewMemoryAdapter()

	require.NoError(t, a.Set(ctx, "k", json.RawMessage(`"v"`)))

	got, ok, err := a.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, json.RawMessage(`"v"`), got)

	has, err := a.Has(ctx, "k")
	require.NoError(t, err)
	assert.True(t, has)

	keys, err := a.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"k"}, keys)

	n, err := a.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, a.Delete(ctx, "k"))
	_, ok, err = a.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}
