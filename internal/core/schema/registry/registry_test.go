package registry

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func noop(p map[string]any) (map[string]any, error) { return p, nil }

func TestRegister(t *testing.T) {
	t.Run("basic", func(t *testing.T) {
		r := New()
		require.NoError(t, r.Register(Descriptor{TypeID: "transform", CurrentVersion: 1}))

		d, ok := r.Lookup("transform")
		require.True(t, ok)
		require.Equal(t, 1, d.CurrentVersion)
	})

	t.Run("idempotent re-registration", func(t *testing.T) {
		r := New()
		d := Descriptor{
			TypeID:         "transform",
			CurrentVersion: 2,
			Migrations:     map[int]MigrationFunc{1: noop},
		}
		require.NoError(t, r.Register(d))
		require.NoError(t, r.Register(d))
	})

	t.Run("conflicting definition", func(t *testing.T) {
		r := New()
		require.NoError(t, r.Register(Descriptor{TypeID: "transform", CurrentVersion: 1}))

		err := r.Register(Descriptor{
			TypeID:         "transform",
			CurrentVersion: 2,
			Migrations:     map[int]MigrationFunc{1: noop},
		})
		require.ErrorIs(t, err, ErrDuplicateType)
	})

	t.Run("broken migration chain", func(t *testing.T) {
		r := New()
		err := r.Register(Descriptor{
			TypeID:         "transform",
			CurrentVersion: 3,
			Migrations:     map[int]MigrationFunc{1: noop}, // 2 -> 3 missing
		})
		require.ErrorIs(t, err, ErrInvalidDescriptor)
	})

	t.Run("migration outside range", func(t *testing.T) {
		r := New()
		err := r.Register(Descriptor{
			TypeID:         "transform",
			CurrentVersion: 2,
			Migrations:     map[int]MigrationFunc{1: noop, 2: noop},
		})
		require.ErrorIs(t, err, ErrInvalidDescriptor)
	})

	t.Run("invalid descriptor", func(t *testing.T) {
		r := New()
		require.ErrorIs(t, r.Register(Descriptor{TypeID: "", CurrentVersion: 1}), ErrInvalidDescriptor)
		require.ErrorIs(t, r.Register(Descriptor{TypeID: "x", CurrentVersion: 0}), ErrInvalidDescriptor)
	})
}

func TestLookupAbsence(t *testing.T) {
	r := New()
	_, ok := r.Lookup("futureWidget")
	require.False(t, ok)

	_, ok = r.CurrentVersionOf("futureWidget")
	require.False(t, ok)
}

func TestCurrentVersionOf(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(Descriptor{
		TypeID:         "annotation",
		CurrentVersion: 2,
		Migrations:     map[int]MigrationFunc{1: noop},
	}))

	v, ok := r.CurrentVersionOf("annotation")
	require.True(t, ok)
	require.Equal(t, 2, v)
}

func TestTypes(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(Descriptor{TypeID: "material", CurrentVersion: 1}))
	require.NoError(t, r.Register(Descriptor{TypeID: "annotation", CurrentVersion: 1}))
	require.Equal(t, []string{"annotation", "material"}, r.Types())
}
