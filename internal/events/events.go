// Package events carries the domain events the workflow engine consumes and
// produces: document lifecycle notifications feed the launcher, arbitrary
// domain events feed the trigger dispatcher, and every completed transition
// is published back onto the bus.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Well-known event types.
const (
	TypeDocumentCreated     = "document.created"
	TypeDocumentTypeChanged = "document.type_changed"
	TypeWorkflowTransition  = "workflow.transitioned"
)

type Event struct {
	Type       string     `json:"type"`
	Label      string     `json:"label,omitempty"`
	ActorID    *uuid.UUID `json:"actor_id,omitempty"`
	DocumentID uuid.UUID  `json:"document_id"`
	InstanceID *uuid.UUID `json:"instance_id,omitempty"`
	At         time.Time  `json:"at"`
}

type Handler func(ctx context.Context, ev Event)

type Bus interface {
	Publish(ctx context.Context, ev Event) error
	// Subscribe registers a handler for every published event. Handlers run
	// on bus goroutines and must not block indefinitely.
	Subscribe(h Handler)
	Close() error
}
