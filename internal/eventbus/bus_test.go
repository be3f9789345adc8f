package eventbus

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestPublishDeliversToSubscribers(t *testing.T) {
	b := New()
	defer b.Close(context.Background())

	var mu sync.Mutex
	var got []Event
	done := make(chan struct{})

	b.Subscribe(EventTypePresence, func(ev Event) {
		mu.Lock()
		got = append(got, ev)
		mu.Unlock()
		close(done)
	})

	b.Publish(Event{Type: EventTypePresence, Status: "Free", Source: "test"})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handler never invoked")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0].Status != "Free" {
		t.Errorf("got %+v, want one Free event", got)
	}
}

func TestPublishSkipsOtherTypes(t *testing.T) {
	b := New()
	defer b.Close(context.Background())

	called := make(chan struct{}, 1)
	b.Subscribe(EventTypePower, func(Event) {
		called <- struct{}{}
	})

	b.Publish(Event{Type: EventTypePresence, Status: "Busy"})

	select {
	case <-called:
		t.Error("power handler received a presence event")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPublishAfterCloseDropsEvent(t *testing.T) {
	b := New()
	b.Subscribe(EventTypePresence, func(Event) {})
	b.Close(context.Background())

	// Must not panic or block.
	b.Publish(Event{Type: EventTypePresence, Status: "Free"})
}
