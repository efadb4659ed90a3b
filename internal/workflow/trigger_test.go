package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/orvane/docflow-backend/internal/actions"
	"github.com/orvane/docflow-backend/internal/events"
	"github.com/orvane/docflow-backend/internal/testutil"
	"github.com/orvane/docflow-backend/internal/types"
)

func newTestDispatcher(t *testing.T, env *testEnv) *TriggerDispatcher {
	t.Helper()
	return NewTriggerDispatcher(testutil.Logger(t), env.templates, env.instances, env.logs, env.engine)
}

func addTrigger(t *testing.T, env *testEnv, transitionID uuid.UUID, eventType string) {
	t.Helper()
	trg := &types.TransitionTrigger{ID: uuid.New(), TransitionID: transitionID, EventType: eventType}
	if err := env.db.Create(trg).Error; err != nil {
		t.Fatalf("create trigger: %v", err)
	}
}

func TestTriggerFiresEligibleTransition(t *testing.T) {
	env := newTestEnv(t, actions.ModeStrict)
	fx := seedApproval(t, env)
	addTrigger(t, env, fx.submit.ID, events.TypeDocumentTypeChanged)
	dispatcher := newTestDispatcher(t, env)

	inst := launchInstance(t, env, fx)
	if err := dispatcher.OnEvent(context.Background(), events.TypeDocumentTypeChanged, fx.doc.ID, nil); err != nil {
		t.Fatalf("OnEvent: %v", err)
	}
	if got := currentStateLabel(t, env, inst.ID); got != "Review" {
		t.Fatalf("after event: want=Review got=%s", got)
	}
}

func TestTriggerIgnoresUnrelatedEvent(t *testing.T) {
	env := newTestEnv(t, actions.ModeStrict)
	fx := seedApproval(t, env)
	addTrigger(t, env, fx.submit.ID, events.TypeDocumentTypeChanged)
	dispatcher := newTestDispatcher(t, env)

	inst := launchInstance(t, env, fx)
	if err := dispatcher.OnEvent(context.Background(), "document.touched", fx.doc.ID, nil); err != nil {
		t.Fatalf("OnEvent: %v", err)
	}
	if got := currentStateLabel(t, env, inst.ID); got != "Draft" {
		t.Fatalf("unrelated event moved the instance: got=%s", got)
	}
}

func TestTriggerSkipsIneligibleOrigin(t *testing.T) {
	env := newTestEnv(t, actions.ModeStrict)
	fx := seedApproval(t, env)
	// Approve departs Review; an instance in Draft must not move.
	addTrigger(t, env, fx.approve.ID, events.TypeDocumentTypeChanged)
	dispatcher := newTestDispatcher(t, env)

	inst := launchInstance(t, env, fx)
	if err := dispatcher.OnEvent(context.Background(), events.TypeDocumentTypeChanged, fx.doc.ID, nil); err != nil {
		t.Fatalf("OnEvent: %v", err)
	}
	if got := currentStateLabel(t, env, inst.ID); got != "Draft" {
		t.Fatalf("ineligible trigger moved the instance: got=%s", got)
	}
}

func TestTriggerSkipsSourceInstance(t *testing.T) {
	env := newTestEnv(t, actions.ModeStrict)
	fx := seedApproval(t, env)
	addTrigger(t, env, fx.submit.ID, events.TypeWorkflowTransition)
	dispatcher := newTestDispatcher(t, env)

	inst := launchInstance(t, env, fx)
	src := inst.ID
	if err := dispatcher.OnEvent(context.Background(), events.TypeWorkflowTransition, fx.doc.ID, &src); err != nil {
		t.Fatalf("OnEvent: %v", err)
	}
	if got := currentStateLabel(t, env, inst.ID); got != "Draft" {
		t.Fatalf("dispatcher re-triggered the source instance: got=%s", got)
	}
}

func TestTriggerViaBus(t *testing.T) {
	env := newTestEnv(t, actions.ModeStrict)
	fx := seedApproval(t, env)
	addTrigger(t, env, fx.submit.ID, events.TypeDocumentTypeChanged)
	dispatcher := newTestDispatcher(t, env)

	bus := events.NewMemoryBus(testutil.Logger(t))
	t.Cleanup(func() { _ = bus.Close() })
	dispatcher.Bind(bus)

	inst := launchInstance(t, env, fx)
	if err := bus.Publish(context.Background(), events.Event{
		Type:       events.TypeDocumentTypeChanged,
		DocumentID: fx.doc.ID,
	}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	bus.Drain(time.Second)

	deadline := time.After(2 * time.Second)
	for {
		if got := currentStateLabel(t, env, inst.ID); got == "Review" {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("after bus event: want=Review got=%s", currentStateLabel(t, env, inst.ID))
		case <-time.After(10 * time.Millisecond):
		}
	}
}
