package actions

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/orvane/docflow-backend/internal/expr"
	"github.com/orvane/docflow-backend/internal/logger"
	"github.com/orvane/docflow-backend/internal/repos"
	"github.com/orvane/docflow-backend/internal/types"
)

// Execution modes. Production isolates failures into the per-action error
// log; strict re-raises them so tests see the real error.
const (
	ModeProduction = "production"
	ModeStrict     = "strict"
)

// Runner executes configured StateActions under the isolation contract:
// a condition that renders false skips the action silently, a success
// clears the action's rolling error log, and a failure appends one entry
// to that log without aborting the surrounding transition or the sibling
// actions of the same phase.
type Runner struct {
	registry  *Registry
	evaluator expr.Evaluator
	errorLog  repos.ActionErrorLogRepo
	log       *logger.Logger
	mode      string
	timeout   time.Duration
}

func NewRunner(registry *Registry, evaluator expr.Evaluator, errorLog repos.ActionErrorLogRepo, baseLog *logger.Logger, mode string) *Runner {
	if mode != ModeStrict {
		mode = ModeProduction
	}
	return &Runner{
		registry:  registry,
		evaluator: evaluator,
		errorLog:  errorLog,
		log:       baseLog.With("component", "ActionRunner"),
		mode:      mode,
		timeout:   60 * time.Second,
	}
}

// RunPhase executes the enabled actions of one phase in declared order.
// Always returns nil in production mode; in strict mode the first action
// failure is returned.
func (r *Runner) RunPhase(ctx context.Context, state *types.WorkflowState, when string, ec *ExecContext, evalCtx map[string]any) error {
	for _, sa := range state.ActionsFor(when) {
		if err := r.RunOne(ctx, sa, ec, evalCtx); err != nil {
			return err
		}
	}
	return nil
}

// RunOne executes a single StateAction under the isolation contract.
func (r *Runner) RunOne(ctx context.Context, sa *types.StateAction, ec *ExecContext, evalCtx map[string]any) error {
	if sa.Condition != "" {
		rendered, err := r.evaluator.Render(sa.Condition, evalCtx)
		if err != nil {
			return r.fail(ctx, sa, fmt.Errorf("condition render: %w", err))
		}
		if !expr.Truthy(rendered) {
			return nil
		}
	}

	impl, ok := r.registry.Get(sa.ActionType)
	if !ok {
		return r.fail(ctx, sa, fmt.Errorf("unknown action_type %q", sa.ActionType))
	}

	rendered, err := r.renderFields(sa, impl, evalCtx)
	if err != nil {
		return r.fail(ctx, sa, err)
	}

	execCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	if err := r.invoke(execCtx, impl, rendered, ec); err != nil {
		return r.fail(ctx, sa, err)
	}

	if err := r.errorLog.Clear(ctx, nil, types.ErrorLogOwnerAction, sa.ID); err != nil {
		r.log.Warn("Action error log clear failed", "action_id", sa.ID, "error", err)
	}
	return nil
}

func (r *Runner) renderFields(sa *types.StateAction, impl Action, evalCtx map[string]any) (map[string]string, error) {
	config := map[string]any{}
	if len(sa.Configuration) > 0 {
		if err := json.Unmarshal(sa.Configuration, &config); err != nil {
			return nil, fmt.Errorf("configuration decode: %w", err)
		}
	}
	rendered := make(map[string]string, len(config))
	for _, field := range impl.Fields() {
		raw, ok := config[field.Name]
		if !ok {
			if field.Required {
				return nil, fmt.Errorf("missing required field %q", field.Name)
			}
			continue
		}
		value := fmt.Sprintf("%v", raw)
		if field.Type == FieldTypeTemplate {
			out, err := r.evaluator.Render(value, evalCtx)
			if err != nil {
				return nil, fmt.Errorf("field %q render: %w", field.Name, err)
			}
			value = out
		}
		rendered[field.Name] = value
	}
	return rendered, nil
}

func (r *Runner) invoke(ctx context.Context, impl Action, rendered map[string]string, ec *ExecContext) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("action panic: %v", rec)
		}
	}()
	return impl.Execute(ctx, rendered, ec)
}

func (r *Runner) fail(ctx context.Context, sa *types.StateAction, cause error) error {
	r.log.Warn("State action failed",
		"action_id", sa.ID,
		"action_type", sa.ActionType,
		"error", cause,
	)
	if err := r.errorLog.Append(ctx, nil, types.ErrorLogOwnerAction, sa.ID, fmt.Sprintf("%T", cause), cause.Error()); err != nil {
		r.log.Warn("Action error log append failed", "action_id", sa.ID, "error", err)
	}
	if r.mode == ModeStrict {
		return cause
	}
	return nil
}
