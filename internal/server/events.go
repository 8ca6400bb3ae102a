package server

import (
	"context"
	"sync"
	"time"
)

const (
	// ResourceTopic identifies topic change events.
	ResourceTopic = "topic"
	// ResourceDailyTrack identifies daily track change events.
	ResourceDailyTrack = "daily_track"

	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"

	eventTypeChange        = "change"
	eventTypeHeartbeat     = "heartbeat"
	eventSourceBackend     = "dailytrack-backend"
	allResources           = ""
	defaultEventBufferSize = 16
)

// ChangeEvent describes a committed write.
type ChangeEvent struct {
	Resource  string    `json:"resource"`
	Action    string    `json:"action"`
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

// EventDispatcher fans change events out to stream subscribers. Publishing
// never blocks; a subscriber whose buffer is full misses the event.
type EventDispatcher struct {
	mu          sync.RWMutex
	subscribers map[string]map[int64]*eventSubscriber
	nextID      int64
	bufferSize  int
}

type eventSubscriber struct {
	id     int64
	stream chan ChangeEvent
}

func NewEventDispatcher() *EventDispatcher {
	return &EventDispatcher{
		subscribers: make(map[string]map[int64]*eventSubscriber),
		bufferSize:  defaultEventBufferSize,
	}
}

// Subscribe registers a subscriber for one resource, or every resource when
// resource is empty. The subscription ends when ctx is done or cleanup runs.
func (d *EventDispatcher) Subscribe(ctx context.Context, resource string) (<-chan ChangeEvent, func()) {
	subscriber := &eventSubscriber{
		id:     d.nextSequence(),
		stream: make(chan ChangeEvent, d.bufferSize),
	}
	d.registerSubscriber(resource, subscriber)
	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			d.unregisterSubscriber(resource, subscriber.id)
		})
	}
	go func() {
		<-ctx.Done()
		cleanup()
	}()
	return subscriber.stream, cleanup
}

func (d *EventDispatcher) Publish(event ChangeEvent) {
	if event.Resource == "" || event.Action == "" {
		return
	}
	d.mu.RLock()
	targets := make([]*eventSubscriber, 0, len(d.subscribers[event.Resource])+len(d.subscribers[allResources]))
	for _, subscriber := range d.subscribers[event.Resource] {
		targets = append(targets, subscriber)
	}
	for _, subscriber := range d.subscribers[allResources] {
		targets = append(targets, subscriber)
	}
	d.mu.RUnlock()
	for _, subscriber := range targets {
		select {
		case subscriber.stream <- event:
		default:
		}
	}
}

// SubscriberCount reports how many streams are attached.
func (d *EventDispatcher) SubscriberCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	total := 0
	for _, subscribers := range d.subscribers {
		total += len(subscribers)
	}
	return total
}

func (d *EventDispatcher) nextSequence() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	return d.nextID
}

func (d *EventDispatcher) registerSubscriber(resource string, subscriber *eventSubscriber) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.subscribers[resource]; !ok {
		d.subscribers[resource] = make(map[int64]*eventSubscriber)
	}
	d.subscribers[resource][subscriber.id] = subscriber
}

func (d *EventDispatcher) unregisterSubscriber(resource string, subscriberID int64) {
	d.mu.Lock()
	subscribers := d.subscribers[resource]
	if subscribers != nil {
		delete(subscribers, subscriberID)
		if len(subscribers) == 0 {
			delete(d.subscribers, resource)
		}
	}
	d.mu.Unlock()
}

func validResourceFilter(resource string) bool {
	switch resource {
	case allResources, ResourceTopic, ResourceDailyTrack:
		return true
	default:
		return false
	}
}
