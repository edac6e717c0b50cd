// Package eventbus implements the Task-Event Bus: an append-only
// event log persisted through the store, paired with an in-process
// pub/sub broadcaster for live subscribers (the SSE live-progress
// endpoint).
package eventbus

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"seoscan/internal/metrics"
	"seoscan/internal/model"
	"seoscan/internal/store"
)

const subscriberBuffer = 32

// Bus records task events durably and fans them out to live
// subscribers without ever blocking on a slow one.
type Bus struct {
	store *store.Store

	mu          sync.Mutex
	subscribers map[int64]chan model.TaskEvent
	nextSubID   int64
}

// New creates a Bus backed by st.
func New(st *store.Store) *Bus {
	return &Bus{
		store:       st,
		subscribers: make(map[int64]chan model.TaskEvent),
	}
}

// Record inserts a new task event and synchronously broadcasts it to
// every live subscriber.
func (b *Bus) Record(ctx context.Context, jobID uuid.UUID, eventType model.TaskEventType, payload map[string]any) (model.TaskEvent, error) {
	ev, err := b.store.AppendTaskEvent(ctx, jobID, eventType, payload)
	if err != nil {
		return model.TaskEvent{}, err
	}
	metrics.RecordTaskEvent(string(eventType))
	b.broadcast(ev)
	return ev, nil
}

// Subscribe registers a new live listener and returns its event
// channel plus an unsubscribe function. The channel is closed once
// unsubscribe is called.
func (b *Bus) Subscribe() (<-chan model.TaskEvent, func()) {
	b.mu.Lock()
	id := b.nextSubID
	b.nextSubID++
	ch := make(chan model.TaskEvent, subscriberBuffer)
	b.subscribers[id] = ch
	b.mu.Unlock()

	unsubscribe := func() {
		b.mu.Lock()
		if existing, ok := b.subscribers[id]; ok {
			delete(b.subscribers, id)
			close(existing)
		}
		b.mu.Unlock()
	}
	return ch, unsubscribe
}

// broadcast fans ev out to every subscriber channel without blocking.
// A subscriber that cannot keep up has its oldest buffered event
// dropped to make room; the writer never waits on a reader.
func (b *Bus) broadcast(ev model.TaskEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subscribers {
		select {
		case ch <- ev:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- ev:
			default:
			}
		}
	}
}

// RecentEvents returns the last limit task events for jobID in
// chronological order, used to prime a newly connected subscriber
// before it starts receiving live events.
func (b *Bus) RecentEvents(ctx context.Context, jobID uuid.UUID, limit int) ([]model.TaskEvent, error) {
	all, err := b.store.ListTaskEventsSince(ctx, jobID, 0)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || len(all) <= limit {
		return all, nil
	}
	return all[len(all)-limit:], nil
}
