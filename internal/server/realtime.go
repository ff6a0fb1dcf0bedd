package server

import (
	"context"
	"sync"
	"time"
)

const (
	// RealtimeEventViewChanged is the SSE event name for a cycle that
	// appended changes to an entity's views.
	RealtimeEventViewChanged = "view-change"
	realtimeEventHeartbeat   = "heartbeat"
	realtimeSourceBackend    = "facet-backend"
)

// RealtimeMessage notifies subscribers that a projection cycle appended
// changes to the named views of one entity.
type RealtimeMessage struct {
	EntityID  string
	EventType string
	ViewNames []string
	Timestamp time.Time
}

// RealtimeDispatcher fans change notifications out to the subscribers of an
// entity. Delivery is best effort: a subscriber with a full buffer misses
// the notification and recovers through the cursor query.
type RealtimeDispatcher struct {
	mu          sync.RWMutex
	subscribers map[string]map[int64]*realtimeSubscriber
	nextID      int64
	bufferSize  int
}

type realtimeSubscriber struct {
	id     int64
	stream chan RealtimeMessage
}

// NewRealtimeDispatcher constructs a dispatcher with a default buffer size.
func NewRealtimeDispatcher() *RealtimeDispatcher {
	return &RealtimeDispatcher{
		subscribers: make(map[string]map[int64]*realtimeSubscriber),
		bufferSize:  16,
	}
}

// Subscribe registers a stream for the entity's notifications. The returned
// cleanup unregisters it; cancellation of ctx does the same.
func (d *RealtimeDispatcher) Subscribe(ctx context.Context, entityID string) (<-chan RealtimeMessage, func()) {
	if entityID == "" {
		ch := make(chan RealtimeMessage)
		close(ch)
		return ch, func() {}
	}
	subscriber := &realtimeSubscriber{
		id:     d.nextSequence(),
		stream: make(chan RealtimeMessage, d.bufferSize),
	}
	d.registerSubscriber(entityID, subscriber)
	cleanup := func() {
		d.unregisterSubscriber(entityID, subscriber.id)
	}
	go func() {
		<-ctx.Done()
		cleanup()
	}()
	return subscriber.stream, cleanup
}

// Publish delivers a message to every subscriber of the message's entity.
func (d *RealtimeDispatcher) Publish(message RealtimeMessage) {
	if message.EntityID == "" || message.EventType == "" {
		return
	}
	d.mu.RLock()
	subscribers := d.subscribers[message.EntityID]
	if len(subscribers) == 0 {
		d.mu.RUnlock()
		return
	}
	copies := make([]*realtimeSubscriber, 0, len(subscribers))
	for _, subscriber := range subscribers {
		copies = append(copies, subscriber)
	}
	d.mu.RUnlock()
	for _, subscriber := range copies {
		select {
		case subscriber.stream <- message:
		default:
		}
	}
}

// NotifyChanges publishes a view-change notification for one projection
// cycle. It satisfies the projector's Notifier dependency.
func (d *RealtimeDispatcher) NotifyChanges(entityID string, viewNames []string) {
	d.Publish(RealtimeMessage{
		EntityID:  entityID,
		EventType: RealtimeEventViewChanged,
		ViewNames: viewNames,
		Timestamp: time.Now().UTC(),
	})
}

func (d *RealtimeDispatcher) nextSequence() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	return d.nextID
}

func (d *RealtimeDispatcher) registerSubscriber(entityID string, subscriber *realtimeSubscriber) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.subscribers[entityID]; !ok {
		d.subscribers[entityID] = make(map[int64]*realtimeSubscriber)
	}
	d.subscribers[entityID][subscriber.id] = subscriber
}

func (d *RealtimeDispatcher) unregisterSubscriber(entityID string, subscriberID int64) {
	d.mu.Lock()
	subscribers := d.subscribers[entityID]
	if subscribers != nil {
		delete(subscribers, subscriberID)
		if len(subscribers) == 0 {
			delete(d.subscribers, entityID)
		}
	}
	d.mu.Unlock()
}
