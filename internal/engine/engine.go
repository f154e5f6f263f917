// Package engine implements the agent coordination core: task lifecycle,
// agent presence, mention fan-out, and the activity audit trail.
//
// Operations on unknown agents or tasks are benign no-ops returning
// (nil, nil): concurrent callers racing a delete-free store simply find
// nothing to do. Malformed enum values are rejected before any mutation.
package engine

import (
	"github.com/groundctl/groundctl/internal/store"
)

// Event is a real-time state-change notice for live-feed consumers.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// EventSink receives engine events. Publish must not block.
type EventSink interface {
	Publish(Event)
}

// Engine coordinates agents, tasks, messages, notifications, and the
// activity log on top of the entity store.
type Engine struct {
	store  *store.Store
	events EventSink
}

// New creates an Engine over the given store.
func New(s *store.Store) *Engine {
	return &Engine{store: s}
}

// SetEvents wires an event sink for live-feed broadcasts. Optional.
func (e *Engine) SetEvents(sink EventSink) {
	e.events = sink
}

func (e *Engine) publish(typ string, payload interface{}) {
	if e.events != nil {
		e.events.Publish(Event{Type: typ, Payload: payload})
	}
}

// truncate returns at most n runes of s.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
