package events

import (
	"context"
	"sync"
	"time"
)

const TopicUserEvents = "user_events"

const (
	TypeLoggedIn       = "user_logged_in"
	TypeRegistered     = "user_registered"
	TypeLoggedOut      = "user_logged_out"
	TypeSessionRefresh = "session_refreshed"
	TypeSessionExpired = "session_expired"
)

// Event is the JSON body published for session lifecycle changes.
type Event struct {
	Type   string    `json:"type"`
	Email  string    `json:"email,omitempty"`
	Reason string    `json:"reason,omitempty"`
	At     time.Time `json:"at"`
}

func New(typ, email, reason string) Event {
	return Event{Type: typ, Email: email, Reason: reason, At: time.Now().UTC()}
}

type Publisher interface {
	PublishEvent(ctx context.Context, topic, key string, event any) error
	Close() error
}

type NopPublisher struct{}

func (NopPublisher) PublishEvent(context.Context, string, string, any) error { return nil }
func (NopPublisher) Close() error                                            { return nil }

type Published struct {
	Topic string
	Key   string
	Event any
}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Published
}

func (r *Recorder) PublishEvent(_ context.Context, topic, key string, event any) error {
	r.mu.Lock()
	r.events = append(r.events, Published{Topic: topic, Key: key, Event: event})
	r.mu.Unlock()
	return nil
}

func (r *Recorder) Close() error { return nil }

func (r *Recorder) Events() []Published {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Published(nil), r.events...)
}

// Types lists the Type of every recorded Event in publish order.
func (r *Recorder) Types() []string {
	var out []string
	for _, p := range r.Events() {
		if e, ok := p.Event.(Event); ok {
			out = append(out, e.Type)
		}
	}
	return out
}
