package workflow

import (
	"context"
	"strings"
	"testing"

	"github.com/orvane/docflow-backend/internal/actions"
	"github.com/orvane/docflow-backend/internal/types"
)

const approvalYAML = `
internal_name: invoice-approval
label: Invoice Approval
auto_launch: true
document_types: [Invoice]
states:
  - label: Draft
    initial: true
    actions:
      - label: Notify owner
        when: on-entry
        action_type: test.record
        configuration:
          note: "{{ .document.label }} is back in draft"
  - label: Review
    completion: 50
    escalations:
      - transition: Approve
        priority: 1
        unit: days
        amount: 3
        comment: auto-approved after three days
  - label: Approved
    completion: 100
transitions:
  - label: Submit
    from: Draft
    to: Review
    fields:
      - name: summary
        label: Summary of changes
        type: char
        required: true
  - label: Approve
    from: Review
    to: Approved
    condition: "{{ .document.description }}"
  - label: Reject
    from: Review
    to: Draft
    triggers: [document.type_changed]
`

func newTestLoader(t *testing.T, env *testEnv) *Loader {
	t.Helper()
	if _, ok := env.registry.Get("test.record"); !ok {
		if err := env.registry.Register(&recordAction{name: "test.record"}); err != nil {
			t.Fatalf("Register: %v", err)
		}
	}
	return NewLoader(env.templates, env.documents, env.registry)
}

func TestLoaderParseAndSaveRoundTrip(t *testing.T) {
	env := newTestEnv(t, actions.ModeStrict)
	seedApproval(t, env) // provides the Invoice document type
	ctx := context.Background()

	// the fixture already persisted invoice-approval, use a fresh name
	raw := strings.Replace(approvalYAML, "internal_name: invoice-approval", "internal_name: invoice-approval-v2", 1)

	loader := newTestLoader(t, env)
	def, err := loader.Parse([]byte(raw))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, err := loader.Save(ctx, def); err != nil {
		t.Fatalf("Save: %v", err)
	}

	tpl, err := env.templates.GetByInternalName(ctx, nil, "invoice-approval-v2")
	if err != nil {
		t.Fatalf("GetByInternalName: %v", err)
	}
	if len(tpl.States) != 3 || len(tpl.Transitions) != 3 {
		t.Fatalf("graph size: want states=3 transitions=3 got states=%d transitions=%d", len(tpl.States), len(tpl.Transitions))
	}
	initial := tpl.InitialState()
	if initial == nil || initial.Label != "Draft" {
		t.Fatalf("initial state: want=Draft got=%v", initial)
	}
	if !tpl.AutoLaunch {
		t.Fatalf("auto_launch not preserved")
	}

	var review *types.WorkflowState
	for _, s := range tpl.States {
		if s.Label == "Review" {
			review = s
		}
	}
	if review == nil || len(review.Escalations) != 1 {
		t.Fatalf("review escalations: want=1 got=%v", review)
	}
	esc := review.Escalations[0]
	if esc.Unit != types.EscalationUnitDays || esc.Amount != 3 {
		t.Fatalf("escalation dwell: want=3 days got=%d %s", esc.Amount, esc.Unit)
	}
	var approve *types.WorkflowTransition
	for _, tr := range tpl.Transitions {
		if tr.Label == "Approve" {
			approve = tr
		}
	}
	if approve == nil || esc.TransitionID != approve.ID {
		t.Fatalf("escalation not wired to Approve transition")
	}

	draft := tpl.InitialState()
	entry := draft.ActionsFor(types.WhenOnEntry)
	if len(entry) != 1 || entry[0].ActionType != "test.record" {
		t.Fatalf("draft entry actions: want 1 test.record got=%v", entry)
	}
}

func TestLoaderValidateRejectsBadDefinitions(t *testing.T) {
	env := newTestEnv(t, actions.ModeStrict)
	loader := newTestLoader(t, env)

	cases := []struct {
		name string
		edit func(*TemplateDef)
		want string
	}{
		{
			name: "no initial state",
			edit: func(def *TemplateDef) { def.States[0].Initial = false },
			want: "exactly 1 initial state",
		},
		{
			name: "two initial states",
			edit: func(def *TemplateDef) { def.States[1].Initial = true },
			want: "exactly 1 initial state",
		},
		{
			name: "duplicate state label",
			edit: func(def *TemplateDef) { def.States[1].Label = "Draft" },
			want: "duplicate state",
		},
		{
			name: "transition to unknown state",
			edit: func(def *TemplateDef) { def.Transitions[0].To = "Limbo" },
			want: "unknown destination state",
		},
		{
			name: "escalation with unknown transition",
			edit: func(def *TemplateDef) { def.States[1].Escalations[0].Transition = "Vanish" },
			want: "unknown transition",
		},
		{
			name: "escalation with bad unit",
			edit: func(def *TemplateDef) { def.States[1].Escalations[0].Unit = "fortnights" },
			want: "invalid unit",
		},
		{
			name: "escalation with zero amount",
			edit: func(def *TemplateDef) { def.States[1].Escalations[0].Amount = 0 },
			want: "non-positive amount",
		},
		{
			name: "action with bad phase",
			edit: func(def *TemplateDef) { def.States[0].Actions[0].When = "sometimes" },
			want: "invalid phase",
		},
		{
			name: "action with unknown type",
			edit: func(def *TemplateDef) { def.States[0].Actions[0].ActionType = "does.not.exist" },
			want: "unknown action_type",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			def, err := loader.Parse([]byte(approvalYAML))
			if err != nil {
				t.Fatalf("Parse baseline: %v", err)
			}
			tc.edit(def)
			err = loader.Validate(def)
			if err == nil {
				t.Fatalf("Validate accepted a bad definition")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error: want substring %q got %q", tc.want, err.Error())
			}
		})
	}
}
