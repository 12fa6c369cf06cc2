package scene

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/phanshaw/legendary-tribble/internal/core/events/bus"
	"github.com/phanshaw/legendary-tribble/internal/core/schema/envelope"
)

func env(t *testing.T, typeID string, version int, payload string) envelope.Envelope {
	t.Helper()
	e, err := envelope.New(typeID, version, []byte(payload))
	require.NoError(t, err)
	return e
}

func TestCreateEntity(t *testing.T) {
	t.Run("fresh unique ids", func(t *testing.T) {
		s := New()
		a, err := s.CreateEntity("Bracket", nil)
		require.NoError(t, err)
		b, err := s.CreateEntity("Bolt", nil)
		require.NoError(t, err)
		require.NotEqual(t, a.ID(), b.ID())
		require.Equal(t, 2, s.Len())
	})

	t.Run("under a parent", func(t *testing.T) {
		s := New()
		parent, err := s.CreateEntity("Assembly", nil)
		require.NoError(t, err)
		pid := parent.ID()
		child, err := s.CreateEntity("Part", &pid)
		require.NoError(t, err)

		got, ok := s.Parent(child.ID())
		require.True(t, ok)
		require.Equal(t, pid, got)
		require.Equal(t, []EntityID{child.ID()}, s.Children(pid))
	})

	t.Run("missing parent", func(t *testing.T) {
		s := New()
		bogus := EntityID("nope")
		_, err := s.CreateEntity("Part", &bogus)
		require.ErrorIs(t, err, ErrParentNotFound)
		require.Equal(t, 0, s.Len())
	})
}

func TestReparent(t *testing.T) {
	s := New()
	root, _ := s.CreateEntity("root", nil)
	rid := root.ID()
	mid, _ := s.CreateEntity("mid", &rid)
	mid2 := mid.ID()
	leaf, _ := s.CreateEntity("leaf", &mid2)

	t.Run("cycle via descendant rejected", func(t *testing.T) {
		lid := leaf.ID()
		err := s.Reparent(root.ID(), &lid)
		require.ErrorIs(t, err, ErrCycle)
		// scene unchanged on failure
		_, ok := s.Parent(root.ID())
		require.False(t, ok)
	})

	t.Run("self parent rejected", func(t *testing.T) {
		err := s.Reparent(mid.ID(), &mid2)
		require.ErrorIs(t, err, ErrCycle)
	})

	t.Run("detach to root", func(t *testing.T) {
		require.NoError(t, s.Reparent(leaf.ID(), nil))
		_, ok := s.Parent(leaf.ID())
		require.False(t, ok)
	})

	t.Run("unknown entity", func(t *testing.T) {
		require.ErrorIs(t, s.Reparent("ghost", &rid), ErrEntityNotFound)
	})
}

func TestAttachComponent(t *testing.T) {
	t.Run("replaces same type", func(t *testing.T) {
		s := New()
		e, _ := s.CreateEntity("Bracket", nil)

		require.NoError(t, s.AttachComponent(e.ID(), env(t, "transform", 1, `{"position":{"x":0,"y":0,"z":0}}`)))
		require.NoError(t, s.AttachComponent(e.ID(), env(t, "transform", 2, `{"position":{"x":1,"y":0,"z":0}}`)))

		comps := e.Components()
		require.Len(t, comps, 1)
		require.Equal(t, 2, comps[0].Version)
		require.JSONEq(t, `{"position":{"x":1,"y":0,"z":0}}`, string(comps[0].Payload))
	})

	t.Run("unknown entity", func(t *testing.T) {
		s := New()
		err := s.AttachComponent("ghost", env(t, "transform", 1, `{}`))
		require.ErrorIs(t, err, ErrEntityNotFound)
	})

	t.Run("invalid envelope", func(t *testing.T) {
		s := New()
		e, _ := s.CreateEntity("Bracket", nil)
		err := s.AttachComponent(e.ID(), envelope.Envelope{TypeID: "transform"})
		require.Error(t, err)
		require.Empty(t, e.Components())
	})
}

func TestRemoveComponent(t *testing.T) {
	s := New()
	e, _ := s.CreateEntity("Bracket", nil)
	require.NoError(t, s.AttachComponent(e.ID(), env(t, "material", 1, `{"color":"#808080"}`)))

	require.NoError(t, s.RemoveComponent(e.ID(), "material"))
	require.False(t, e.HasComponent("material"))
	// removing an absent component is a no-op
	require.NoError(t, s.RemoveComponent(e.ID(), "material"))

	require.ErrorIs(t, s.RemoveComponent("ghost", "material"), ErrEntityNotFound)
}

func TestStates(t *testing.T) {
	t.Run("capture and apply", func(t *testing.T) {
		s := New()
		e, _ := s.CreateEntity("Bracket", nil)
		require.NoError(t, s.AttachComponent(e.ID(), env(t, "transform", 3, `{"position":{"x":0,"y":0,"z":0}}`)))

		s.CaptureState("Intro")
		require.NoError(t, s.AttachComponent(e.ID(), env(t, "transform", 3, `{"position":{"x":9,"y":0,"z":0}}`)))

		require.NoError(t, s.ApplyState("Intro"))
		comp, ok := e.Component("transform")
		require.True(t, ok)
		require.JSONEq(t, `{"position":{"x":0,"y":0,"z":0}}`, string(comp.Payload))
	})

	t.Run("missing state", func(t *testing.T) {
		s := New()
		require.ErrorIs(t, s.ApplyState("nope"), ErrStateNotFound)
	})

	t.Run("recapture overwrites", func(t *testing.T) {
		s := New()
		e, _ := s.CreateEntity("Bracket", nil)
		require.NoError(t, s.AttachComponent(e.ID(), env(t, "material", 1, `{"color":"#111111"}`)))
		s.CaptureState("Look")
		require.NoError(t, s.AttachComponent(e.ID(), env(t, "material", 1, `{"color":"#222222"}`)))
		s.CaptureState("Look")

		require.Len(t, s.States(), 1)
		require.NoError(t, s.ApplyState("Look"))
		comp, _ := e.Component("material")
		require.JSONEq(t, `{"color":"#222222"}`, string(comp.Payload))
	})

	t.Run("restored opaque envelopes never apply", func(t *testing.T) {
		s := New()
		e, _ := s.CreateEntity("Bracket", nil)
		id := e.ID()

		snaps := map[EntityID][]envelope.Envelope{
			id: {env(t, "material", 1, `{"color":"#111111"}`)},
		}
		opaque := map[EntityID][]envelope.Envelope{
			id: {env(t, "futureWidget", 9, `{"a":2}`)},
		}
		st := s.RestoreState("Intro", snaps, opaque)
		require.Equal(t, 1, st.Len())

		require.NoError(t, s.ApplyState("Intro"))
		require.True(t, e.HasComponent("material"))
		require.False(t, e.HasComponent("futureWidget"))

		got, ok := st.Opaque(id)
		require.True(t, ok)
		require.Len(t, got, 1)
		require.Equal(t, `{"a":2}`, string(got[0].Payload))
	})

	t.Run("delete prunes opaque entries", func(t *testing.T) {
		s := New()
		e, _ := s.CreateEntity("Bracket", nil)
		id := e.ID()
		st := s.RestoreState("Intro", nil, map[EntityID][]envelope.Envelope{
			id: {env(t, "futureWidget", 9, `{"a":2}`)},
		})
		require.Equal(t, 1, st.Len())

		require.NoError(t, s.DeleteEntity(id))
		_, ok := st.Opaque(id)
		require.False(t, ok)
		require.Equal(t, 0, st.Len())
	})

	t.Run("entities absent from snapshot are untouched", func(t *testing.T) {
		s := New()
		a, _ := s.CreateEntity("A", nil)
		require.NoError(t, s.AttachComponent(a.ID(), env(t, "material", 1, `{"color":"#111111"}`)))
		s.CaptureState("Intro")

		b, _ := s.CreateEntity("B", nil)
		require.NoError(t, s.AttachComponent(b.ID(), env(t, "material", 1, `{"color":"#333333"}`)))

		require.NoError(t, s.ApplyState("Intro"))
		comp, ok := b.Component("material")
		require.True(t, ok)
		require.JSONEq(t, `{"color":"#333333"}`, string(comp.Payload))
	})
}

func TestDeleteEntityCascade(t *testing.T) {
	s := New()
	parent, _ := s.CreateEntity("parent", nil)
	pid := parent.ID()
	c1, _ := s.CreateEntity("child1", &pid)
	c2, _ := s.CreateEntity("child2", &pid)
	require.NoError(t, s.AttachComponent(c1.ID(), env(t, "material", 1, `{}`)))

	s.CaptureState("Intro")
	st, _ := s.State("Intro")
	require.Equal(t, 3, st.Len())

	require.NoError(t, s.DeleteEntity(pid))

	require.Equal(t, 0, s.Len())
	for _, id := range []EntityID{pid, c1.ID(), c2.ID()} {
		_, ok := s.Entity(id)
		require.False(t, ok)
		_, ok = st.Snapshot(id)
		require.False(t, ok)
	}

	// states keep working, simply omitting the deleted entities
	require.NoError(t, s.ApplyState("Intro"))

	require.ErrorIs(t, s.DeleteEntity(pid), ErrEntityNotFound)
}

func TestSceneEvents(t *testing.T) {
	b := bus.New()
	var types []string
	for _, et := range []string{
		EventEntityCreated, EventEntityDeleted,
		EventComponentAttached, EventComponentRemoved,
		EventStateCaptured, EventStateApplied,
	} {
		b.Subscribe(et, func(e bus.Event) { types = append(types, e.Type) })
	}

	s := New(WithBus(b))
	e, _ := s.CreateEntity("Bracket", nil)
	require.NoError(t, s.AttachComponent(e.ID(), env(t, "material", 1, `{}`)))
	s.CaptureState("Intro")
	require.NoError(t, s.ApplyState("Intro"))
	require.NoError(t, s.RemoveComponent(e.ID(), "material"))
	require.NoError(t, s.DeleteEntity(e.ID()))

	require.Equal(t, []string{
		EventEntityCreated,
		EventComponentAttached,
		EventStateCaptured,
		EventStateApplied,
		EventComponentRemoved,
		EventEntityDeleted,
	}, types)
}

func TestMetadata(t *testing.T) {
	s := New()
	s.SetMetadata("author", "phanshaw")

	m := s.Metadata()
	require.Equal(t, "phanshaw", m["author"])

	// mutation of the copy does not leak back
	m["author"] = "other"
	require.Equal(t, "phanshaw", s.Metadata()["author"])
}
