package app

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventType identifies the kind of job event
type EventType string

const (
	EventProgress EventType = "progress"
	EventLog      EventType = "log"
	EventDone     EventType = "done"
	EventError    EventType = "error"
)

// Event is one job notification. VideoID and Timestamp are assigned at
// publish time; the remaining fields depend on Type.
type Event struct {
	VideoID   uint      `json:"video_id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"ts"`

	// progress
	Percent float64 `json:"percent,omitempty"`
	Speed   string  `json:"speed,omitempty"`
	ETA     string  `json:"eta,omitempty"`

	// log
	Level   string `json:"level,omitempty"`
	Message string `json:"message,omitempty"`

	// done
	Title    string `json:"title,omitempty"`
	FilePath string `json:"file_path,omitempty"`

	// error
	Error string `json:"error,omitempty"`
}

// IsTerminal reports whether the event ends a job's stream.
func (e Event) IsTerminal() bool {
	return e.Type == EventDone || e.Type == EventError
}

// Subscription is a live attachment to one video's event stream.
type Subscription struct {
	ID      string
	VideoID uint
	Events  <-chan Event
	ch      chan Event
}

// EventBus fans job events out to subscribers keyed by video ID. It owns
// no durable state; subscriptions are ephemeral and rebuilt on restart.
// Events published with no subscribers attached are dropped (no replay).
type EventBus struct {
	logger *zap.Logger
	mu     sync.RWMutex
	subs   map[uint]map[string]chan Event
}

// NewEventBus creates a new event bus. Initialized once at process start
// and injected into the orchestrator and HTTP layer.
func NewEventBus(logger *zap.Logger) *EventBus {
	return &EventBus{
		logger: logger,
		subs:   make(map[uint]map[string]chan Event),
	}
}

// Subscribe attaches to a video's event stream. The returned subscription
// receives events published after this call, until Unsubscribe.
func (b *EventBus) Subscribe(videoID uint) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, 64)
	sub := &Subscription{
		ID:      uuid.New().String(),
		VideoID: videoID,
		Events:  ch,
		ch:      ch,
	}

	if b.subs[videoID] == nil {
		b.subs[videoID] = make(map[string]chan Event)
	}
	b.subs[videoID][sub.ID] = ch

	return sub
}

// Unsubscribe detaches a subscription and closes its channel. Detaching
// an observer never cancels the underlying job. Safe to call twice.
func (b *EventBus) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	byID, ok := b.subs[sub.VideoID]
	if !ok {
		return
	}
	ch, ok := byID[sub.ID]
	if !ok {
		return
	}
	delete(byID, sub.ID)
	if len(byID) == 0 {
		delete(b.subs, sub.VideoID)
	}
	close(ch)
}

// Publish stamps the event with videoID and the current time and fans it
// out to all current subscribers for that video. Never blocks: a
// subscriber whose buffer is full loses the event.
func (b *EventBus) Publish(videoID uint, event Event) {
	event.VideoID = videoID
	event.Timestamp = time.Now()

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs[videoID] {
		select {
		case ch <- event:
		default:
			if b.logger != nil {
				b.logger.Warn("event subscriber buffer full, dropping event",
					zap.Uint("video_id", videoID),
					zap.String("type", string(event.Type)))
			}
		}
	}
}

// SubscriberCount returns the number of active subscriptions for a video.
func (b *EventBus) SubscriberCount(videoID uint) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[videoID])
}
