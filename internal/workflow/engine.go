// Package workflow implements the per-document finite-state machine: the
// transition engine, the launcher, the escalation scheduler and the event
// trigger dispatcher. All transition paths, interactive or automatic,
// converge on Engine.DoTransition.
package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/orvane/docflow-backend/internal/actions"
	"github.com/orvane/docflow-backend/internal/errs"
	"github.com/orvane/docflow-backend/internal/events"
	"github.com/orvane/docflow-backend/internal/expr"
	"github.com/orvane/docflow-backend/internal/locks"
	"github.com/orvane/docflow-backend/internal/logger"
	"github.com/orvane/docflow-backend/internal/repos"
	"github.com/orvane/docflow-backend/internal/types"
)

const lockTTL = 30 * time.Second

type Engine struct {
	log       *logger.Logger
	instances repos.WorkflowInstanceRepo
	logs      repos.WorkflowLogRepo
	evaluator expr.Evaluator
	runner    *actions.Runner
	locker    locks.InstanceLocker
	bus       events.Bus
	tracer    trace.Tracer
}

func NewEngine(baseLog *logger.Logger, instances repos.WorkflowInstanceRepo, logs repos.WorkflowLogRepo, evaluator expr.Evaluator, runner *actions.Runner, locker locks.InstanceLocker, bus events.Bus) *Engine {
	return &Engine{
		log:       baseLog.With("component", "TransitionEngine"),
		instances: instances,
		logs:      logs,
		evaluator: evaluator,
		runner:    runner,
		locker:    locker,
		bus:       bus,
		tracer:    otel.Tracer("workflow"),
	}
}

// DoTransitionByID resolves the instance and transition and delegates to
// DoTransition. Entry point for handlers.
func (e *Engine) DoTransitionByID(ctx context.Context, instanceID, transitionID uuid.UUID, userID *uuid.UUID, comment string) (*types.WorkflowLogEntry, error) {
	inst, err := e.instances.GetByID(ctx, nil, instanceID)
	if err != nil {
		return nil, err
	}
	transition := transitionByID(inst.Template, transitionID)
	if transition == nil {
		return nil, fmt.Errorf("%w: transition %s not in template", errs.ErrInvalidTransition, transitionID)
	}
	return e.DoTransition(ctx, inst, transition, userID, comment)
}

// DoTransition validates and performs one transition:
//
//  1. serialize on the per-instance lock
//  2. fail with ErrInvalidTransition unless the transition's origin state is
//     the instance's current state
//  3. fail with ErrConditionNotMet when the transition condition renders
//     false
//  4. append the log entry (revalidated transactionally under a row lock)
//  5. release the lock, then run exit actions of the departed state and
//     entry actions of the new one, each isolated per the action contract
//  6. publish workflow.transitioned
//
// A failing action never rolls back the appended entry; the instance is
// never left partially transitioned.
func (e *Engine) DoTransition(ctx context.Context, inst *types.WorkflowInstance, transition *types.WorkflowTransition, userID *uuid.UUID, comment string) (*types.WorkflowLogEntry, error) {
	ctx, span := e.tracer.Start(ctx, "workflow.DoTransition",
		trace.WithAttributes(
			attribute.String("workflow.instance_id", inst.ID.String()),
			attribute.String("workflow.transition_id", transition.ID.String()),
		))
	defer span.End()

	if transition.TemplateID != inst.TemplateID {
		return nil, fmt.Errorf("%w: transition belongs to another template", errs.ErrInvalidTransition)
	}

	release, err := e.locker.Acquire(ctx, inst.ID, lockTTL)
	if err != nil {
		return nil, err
	}
	locked := true
	defer func() {
		if locked {
			release()
		}
	}()

	currentID, err := e.logs.CurrentStateID(ctx, nil, inst)
	if err != nil {
		return nil, err
	}
	if currentID != transition.OriginStateID {
		return nil, errs.ErrInvalidTransition
	}
	currentState := stateByID(inst.Template, currentID)
	destinationState := stateByID(inst.Template, transition.DestinationStateID)
	if currentState == nil || destinationState == nil {
		return nil, fmt.Errorf("%w: transition references unknown state", errs.ErrInvalidTransition)
	}

	evalCtx := evalContext(inst, currentState)
	if transition.Condition != "" {
		rendered, err := e.evaluator.Render(transition.Condition, evalCtx)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errs.ErrConditionNotMet, err)
		}
		if !expr.Truthy(rendered) {
			return nil, errs.ErrConditionNotMet
		}
	}

	entry, err := e.logs.Append(ctx, nil, inst.ID, transition, userID, comment)
	if err != nil {
		return nil, err
	}

	// The log entry is durable; actions are isolated and need no lock.
	release()
	locked = false

	ec := &actions.ExecContext{Document: inst.Document, Instance: inst, UserID: userID}
	if err := e.runner.RunPhase(ctx, currentState, types.WhenOnExit, ec, evalCtx); err != nil {
		return entry, err
	}
	if err := e.runner.RunPhase(ctx, destinationState, types.WhenOnEntry, ec, evalContext(inst, destinationState)); err != nil {
		return entry, err
	}

	if e.bus != nil {
		instID := inst.ID
		if err := e.bus.Publish(ctx, events.Event{
			Type:       events.TypeWorkflowTransition,
			Label:      transition.Label,
			ActorID:    userID,
			DocumentID: inst.DocumentID,
			InstanceID: &instID,
			At:         entry.CreatedAt,
		}); err != nil {
			e.log.Warn("Transition event publish failed", "instance_id", inst.ID, "error", err)
		}
	}

	e.log.Info("Workflow transitioned",
		"instance_id", inst.ID,
		"transition", transition.Label,
		"from_state", currentState.Label,
		"to_state", destinationState.Label,
	)
	return entry, nil
}

// CurrentState resolves the instance's derived state object.
func (e *Engine) CurrentState(ctx context.Context, inst *types.WorkflowInstance) (*types.WorkflowState, error) {
	id, err := e.logs.CurrentStateID(ctx, nil, inst)
	if err != nil {
		return nil, err
	}
	state := stateByID(inst.Template, id)
	if state == nil {
		return nil, errs.ErrNotFound
	}
	return state, nil
}
