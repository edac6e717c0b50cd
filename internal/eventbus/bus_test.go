package eventbus

import (
	"testing"
	"time"

	"seoscan/internal/model"
)

func TestBroadcast_DropsOldestWhenSubscriberFull(t *testing.T) {
	b := &Bus{subscribers: make(map[int64]chan model.TaskEvent)}
	ch := make(chan model.TaskEvent, 2)
	b.subscribers[0] = ch

	for i := 0; i < 5; i++ {
		b.broadcast(model.TaskEvent{ID: int64(i), Type: model.EventPageCompleted})
	}

	if len(ch) != 2 {
		t.Fatalf("expected channel to stay at capacity 2, got %d", len(ch))
	}

	first := <-ch
	second := <-ch
	if first.ID != 3 || second.ID != 4 {
		t.Errorf("expected the two most recent events (3,4), got (%d,%d)", first.ID, second.ID)
	}
}

func TestSubscribeUnsubscribe(t *testing.T) {
	b := &Bus{subscribers: make(map[int64]chan model.TaskEvent)}
	ch, unsubscribe := b.Subscribe()

	b.broadcast(model.TaskEvent{ID: 1, Type: model.EventStarted})

	select {
	case ev := <-ch:
		if ev.ID != 1 {
			t.Errorf("event ID = %d, want 1", ev.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}

	unsubscribe()

	if _, ok := <-ch; ok {
		t.Error("expected channel to be closed after unsubscribe")
	}
}

func TestBroadcast_NeverBlocksWriter(t *testing.T) {
	b := &Bus{subscribers: make(map[int64]chan model.TaskEvent)}
	ch := make(chan model.TaskEvent) // unbuffered, no reader
	b.subscribers[0] = ch

	done := make(chan struct{})
	go func() {
		b.broadcast(model.TaskEvent{ID: 1})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked on a slow subscriber")
	}
}
