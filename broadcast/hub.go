// Package broadcast fans complaint events out to live observers (websocket clients) and,
// when Redis is configured, across API instances.
package broadcast

import (
	"context"
	"sync"

	"cmrp/models"

	"github.com/sirupsen/logrus"
)

// EventType names a live update
type EventType string

// EventNewComplaint is the only event on the public feed. Later changes carry officer
// and admin fields and are never broadcast.
const EventNewComplaint EventType = "new_complaint"

// Event is the wire payload: {"event":"new_complaint","complaint":{...}}
type Event struct {
	Type      EventType         `json:"event"`
	Complaint *models.Complaint `json:"complaint"`
}

// Observer receives events. Send must not block for long; an error removes the observer.
type Observer interface {
	ID() string
	Send(Event) error
	Close() error
}

// Publisher is what services depend on to announce changes
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Hub is the in-process observer registry
type Hub struct {
	mu        sync.RWMutex
	observers map[string]Observer
	logger    logrus.FieldLogger
}

// NewHub creates an empty hub
func NewHub(logger logrus.FieldLogger) *Hub {
	return &Hub{
		observers: make(map[string]Observer),
		logger:    logger.WithField("component", "broadcast"),
	}
}

// Connect registers an observer
func (h *Hub) Connect(o Observer) {
	h.mu.Lock()
	h.observers[o.ID()] = o
	n := len(h.observers)
	h.mu.Unlock()

	h.logger.WithField("observer", o.ID()).WithField("observers", n).Debug("observer connected")
}

// Disconnect removes and closes an observer. Safe to call more than once.
func (h *Hub) Disconnect(o Observer) {
	h.mu.Lock()
	_, ok := h.observers[o.ID()]
	delete(h.observers, o.ID())
	h.mu.Unlock()

	if ok {
		if err := o.Close(); err != nil {
			h.logger.WithError(err).WithField("observer", o.ID()).Debug("observer close failed")
		}
	}
}

// Len reports the number of connected observers
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.observers)
}

// Broadcast delivers ev to a snapshot of the observers. Failed observers are disconnected;
// delivery to the rest continues. Returns how many observers accepted the event.
func (h *Hub) Broadcast(ctx context.Context, ev Event) int {
	h.mu.RLock()
	snapshot := make([]Observer, 0, len(h.observers))
	for _, o := range h.observers {
		snapshot = append(snapshot, o)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, o := range snapshot {
		if err := o.Send(ev); err != nil {
			h.logger.WithError(err).WithField("observer", o.ID()).Debug("dropping observer")
			h.Disconnect(o)
			continue
		}
		delivered++
	}
	return delivered
}

// Publish broadcasts locally; it never fails.
func (h *Hub) Publish(ctx context.Context, ev Event) error {
	h.Broadcast(ctx, ev)
	return nil
}
