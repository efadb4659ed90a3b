package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/orvane/docflow-backend/internal/errs"
	"github.com/orvane/docflow-backend/internal/events"
	"github.com/orvane/docflow-backend/internal/logger"
	"github.com/orvane/docflow-backend/internal/repos"
)

// TriggerDispatcher forces transitions whose trigger-event set contains an
// observed domain event for the instance's document. Receiving an event no
// transition cares about is not an error.
type TriggerDispatcher struct {
	log       *logger.Logger
	templates repos.WorkflowTemplateRepo
	instances repos.WorkflowInstanceRepo
	logs      repos.WorkflowLogRepo
	engine    *Engine
}

func NewTriggerDispatcher(baseLog *logger.Logger, templates repos.WorkflowTemplateRepo, instances repos.WorkflowInstanceRepo, logs repos.WorkflowLogRepo, engine *Engine) *TriggerDispatcher {
	return &TriggerDispatcher{
		log:       baseLog.With("component", "TriggerDispatcher"),
		templates: templates,
		instances: instances,
		logs:      logs,
		engine:    engine,
	}
}

// OnEvent checks every workflow instance of the document for transitions
// that declare eventType as a trigger and are legally available from the
// instance's current state, and fires the first one in declaration order.
func (d *TriggerDispatcher) OnEvent(ctx context.Context, eventType string, documentID uuid.UUID, sourceInstanceID *uuid.UUID) error {
	triggered, err := d.templates.ListTransitionsByTriggerEvent(ctx, nil, eventType)
	if err != nil {
		return err
	}
	if len(triggered) == 0 {
		return nil
	}

	instances, err := d.instances.ListByDocument(ctx, nil, documentID)
	if err != nil {
		return err
	}

	for _, inst := range instances {
		// never re-trigger the instance that produced the event
		if sourceInstanceID != nil && inst.ID == *sourceInstanceID {
			continue
		}
		var hasCandidate bool
		for _, t := range triggered {
			if t.TemplateID == inst.TemplateID {
				hasCandidate = true
				break
			}
		}
		if !hasCandidate {
			continue
		}

		full, err := d.instances.GetByID(ctx, nil, inst.ID)
		if err != nil {
			d.log.Warn("Trigger dispatch: instance load failed", "instance_id", inst.ID, "error", err)
			continue
		}
		currentID, err := d.logs.CurrentStateID(ctx, nil, full)
		if err != nil {
			d.log.Warn("Trigger dispatch: current state failed", "instance_id", inst.ID, "error", err)
			continue
		}

		for _, t := range triggered {
			if t.TemplateID != full.TemplateID || t.OriginStateID != currentID {
				continue
			}
			transition := transitionByID(full.Template, t.ID)
			if transition == nil {
				continue
			}
			comment := fmt.Sprintf("Transitioned by event %q", eventType)
			if _, err := d.engine.DoTransition(ctx, full, transition, nil, comment); err != nil {
				if errors.Is(err, errs.ErrConditionNotMet) || errors.Is(err, errs.ErrInvalidTransition) {
					d.log.Debug("Trigger transition not taken", "instance_id", full.ID, "transition", transition.Label, "error", err)
				} else {
					d.log.Warn("Trigger transition failed", "instance_id", full.ID, "transition", transition.Label, "error", err)
				}
			}
			// first available transition per instance, fired or not
			break
		}
	}
	return nil
}

// Bind subscribes the dispatcher to a domain event bus.
func (d *TriggerDispatcher) Bind(bus events.Bus) {
	bus.Subscribe(func(ctx context.Context, ev events.Event) {
		if ev.DocumentID == uuid.Nil {
			return
		}
		if err := d.OnEvent(ctx, ev.Type, ev.DocumentID, ev.InstanceID); err != nil {
			d.log.Warn("Event trigger dispatch failed", "event_type", ev.Type, "document_id", ev.DocumentID, "error", err)
		}
	})
}
