package vault

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/phanshaw/legendary-tribble/internal/core/schema/envelope"
)

func widget(t *testing.T, payload string) envelope.Envelope {
	t.Helper()
	env, err := envelope.New("futureWidget", 4, []byte(payload))
	require.NoError(t, err)
	return env
}

func TestVault(t *testing.T) {
	t.Run("preserves envelopes verbatim", func(t *testing.T) {
		v := New()
		env := widget(t, `{"mystery":[1,2,3]}`)
		v.Put(env)

		got, ok := v.Get("futureWidget")
		require.True(t, ok)
		require.Equal(t, env.TypeID, got.TypeID)
		require.Equal(t, env.Version, got.Version)
		require.Equal(t, string(env.Payload), string(got.Payload))
		require.NoError(t, v.Verify())
	})

	t.Run("put replaces same type", func(t *testing.T) {
		v := New()
		v.Put(widget(t, `{"a":1}`))
		v.Put(widget(t, `{"a":2}`))

		require.Equal(t, 1, v.Len())
		got, _ := v.Get("futureWidget")
		require.JSONEq(t, `{"a":2}`, string(got.Payload))
	})

	t.Run("list keeps intake order", func(t *testing.T) {
		v := New()
		b, err := envelope.New("beta", 1, []byte(`{}`))
		require.NoError(t, err)
		a, err := envelope.New("alpha", 1, []byte(`{}`))
		require.NoError(t, err)
		v.Put(b)
		v.Put(a)

		list := v.List()
		require.Len(t, list, 2)
		require.Equal(t, "beta", list[0].TypeID)
		require.Equal(t, "alpha", list[1].TypeID)
	})

	t.Run("callers cannot mutate stored payloads", func(t *testing.T) {
		v := New()
		v.Put(widget(t, `{"a":1}`))

		got, _ := v.Get("futureWidget")
		got.Payload[1] = 'X'

		again, _ := v.Get("futureWidget")
		require.JSONEq(t, `{"a":1}`, string(again.Payload))
		require.NoError(t, v.Verify())
	})

	t.Run("remove is explicit and idempotent", func(t *testing.T) {
		v := New()
		v.Put(widget(t, `{}`))
		v.Remove("futureWidget")
		v.Remove("futureWidget")

		require.Equal(t, 0, v.Len())
		require.Empty(t, v.List())
	})

	t.Run("clone is independent", func(t *testing.T) {
		v := New()
		v.Put(widget(t, `{"a":1}`))

		c := v.Clone()
		c.Remove("futureWidget")
		require.Equal(t, 1, v.Len())
		require.Equal(t, 0, c.Len())
	})
}
