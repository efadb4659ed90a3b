package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/orvane/docflow-backend/internal/expr"
	"github.com/orvane/docflow-backend/internal/logger"
	"github.com/orvane/docflow-backend/internal/repos"
	"github.com/orvane/docflow-backend/internal/types"
)

// EscalationScheduler fires timer-driven transitions on instances that have
// dwelled in a state longer than a configured amount. Invoked per instance
// or as a periodic batch scan.
type EscalationScheduler struct {
	log       *logger.Logger
	instances repos.WorkflowInstanceRepo
	logs      repos.WorkflowLogRepo
	errorLog  repos.ActionErrorLogRepo
	evaluator expr.Evaluator
	engine    *Engine
	tracer    trace.Tracer
	interval  time.Duration
	workers   int
	now       func() time.Time
}

func NewEscalationScheduler(baseLog *logger.Logger, instances repos.WorkflowInstanceRepo, logs repos.WorkflowLogRepo, errorLog repos.ActionErrorLogRepo, evaluator expr.Evaluator, engine *Engine, interval time.Duration, workers int) *EscalationScheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	if workers < 1 {
		workers = 4
	}
	return &EscalationScheduler{
		log:       baseLog.With("component", "EscalationScheduler"),
		instances: instances,
		logs:      logs,
		errorLog:  errorLog,
		evaluator: evaluator,
		engine:    engine,
		tracer:    otel.Tracer("workflow"),
		interval:  interval,
		workers:   workers,
		now:       time.Now,
	}
}

// CheckEscalation evaluates the current state's escalations in ascending
// priority and fires the first eligible one. At most one escalation fires
// per check.
func (s *EscalationScheduler) CheckEscalation(ctx context.Context, instanceID uuid.UUID) error {
	inst, err := s.instances.GetByID(ctx, nil, instanceID)
	if err != nil {
		return err
	}

	currentID, err := s.logs.CurrentStateID(ctx, nil, inst)
	if err != nil {
		return err
	}
	state := stateByID(inst.Template, currentID)
	if state == nil || len(state.Escalations) == 0 {
		return nil
	}

	enteredAt, err := s.logs.StateEnteredAt(ctx, nil, inst)
	if err != nil {
		return err
	}
	elapsed := s.now().Sub(enteredAt)

	// Escalations come preloaded in ascending priority order.
	for _, esc := range state.Escalations {
		if esc == nil || !esc.Enabled {
			continue
		}
		if elapsed < esc.Dwell() {
			continue
		}
		if esc.Condition != "" {
			rendered, err := s.evaluator.Render(esc.Condition, evalContext(inst, state))
			if err != nil {
				s.recordFailure(ctx, esc, err)
				continue
			}
			if !expr.Truthy(rendered) {
				continue
			}
		}
		transition := esc.Transition
		if transition == nil {
			transition = transitionByID(inst.Template, esc.TransitionID)
		}
		if transition == nil {
			s.recordFailure(ctx, esc, fmt.Errorf("escalation transition %s not found", esc.TransitionID))
			continue
		}

		// First match wins: one escalation per check, successful or not.
		if _, err := s.engine.DoTransition(ctx, inst, transition, nil, esc.Comment); err != nil {
			s.recordFailure(ctx, esc, err)
			return nil
		}
		if err := s.errorLog.Clear(ctx, nil, types.ErrorLogOwnerEscalation, esc.ID); err != nil {
			s.log.Warn("Escalation error log clear failed", "escalation_id", esc.ID, "error", err)
		}
		s.log.Info("Escalation fired",
			"instance_id", inst.ID,
			"escalation_id", esc.ID,
			"transition", transition.Label,
		)
		return nil
	}
	return nil
}

// CheckEscalationAll scans all instances whose template has at least one
// enabled escalation. Failures on one instance never abort the scan of the
// others.
func (s *EscalationScheduler) CheckEscalationAll(ctx context.Context) {
	ctx, span := s.tracer.Start(ctx, "workflow.CheckEscalationAll")
	defer span.End()

	ids, err := s.instances.ListEscalatable(ctx, nil)
	if err != nil {
		s.log.Warn("Escalation scan query failed", "error", err)
		return
	}
	if len(ids) == 0 {
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for _, id := range ids {
		instanceID := id
		g.Go(func() error {
			if err := s.CheckEscalation(gctx, instanceID); err != nil {
				s.log.Warn("Escalation check failed", "instance_id", instanceID, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// Start runs the periodic scan until ctx is cancelled.
func (s *EscalationScheduler) Start(ctx context.Context) {
	s.log.Info("Starting escalation scheduler", "interval", s.interval, "workers", s.workers)
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				s.log.Info("Escalation scheduler stopped")
				return
			case <-ticker.C:
				s.CheckEscalationAll(ctx)
			}
		}
	}()
}

func (s *EscalationScheduler) recordFailure(ctx context.Context, esc *types.StateEscalation, cause error) {
	s.log.Warn("Escalation failed", "escalation_id", esc.ID, "error", cause)
	if err := s.errorLog.Append(ctx, nil, types.ErrorLogOwnerEscalation, esc.ID, fmt.Sprintf("%T", cause), cause.Error()); err != nil {
		s.log.Warn("Escalation error log append failed", "escalation_id", esc.ID, "error", err)
	}
}
