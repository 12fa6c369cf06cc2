package bus

import "testing"

func TestPublishSubscribe(t *testing.T) {
	b := New()
	var got []Event
	b.Subscribe("scene.entity.created", func(e Event) {
		got = append(got, e)
	})

	b.Publish("scene.entity.created", "scene", "e1")
	b.Publish("scene.entity.deleted", "scene", "e1")

	if len(got) != 1 {
		t.Fatalf("expected 1 event, got %d", len(got))
	}
	if got[0].Type != "scene.entity.created" || got[0].Data != "e1" {
		t.Fatalf("unexpected event: %+v", got[0])
	}
	if got[0].ID == "" {
		t.Fatal("event id not assigned")
	}
}

func TestCancel(t *testing.T) {
	b := New()
	count := 0
	cancel := b.Subscribe("ev", func(Event) { count++ })

	b.Publish("ev", "test", nil)
	cancel()
	cancel() // idempotent
	b.Publish("ev", "test", nil)

	if count != 1 {
		t.Fatalf("expected 1 delivery, got %d", count)
	}
}

func TestMultipleSubscribers(t *testing.T) {
	b := New()
	a, c := 0, 0
	b.Subscribe("ev", func(Event) { a++ })
	b.Subscribe("ev", func(Event) { c++ })

	b.Publish("ev", "test", nil)

	if a != 1 || c != 1 {
		t.Fatalf("expected both handlers called once: %d %d", a, c)
	}
}
