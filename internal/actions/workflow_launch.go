package actions

import (
	"context"
	"fmt"
	"strings"
)

// WorkflowLaunchAction enqueues additional workflow launches for the same
// document, by template internal name. Launches happen asynchronously so a
// launched workflow's own entry actions never nest inside this execution.
type WorkflowLaunchAction struct {
	launcher LaunchEnqueuer
}

func (a *WorkflowLaunchAction) Type() string { return "workflow.launch" }

func (a *WorkflowLaunchAction) Fields() []FieldSpec {
	return []FieldSpec{
		{Name: "templates", Label: "Template internal names, comma separated", Type: FieldTypeTemplate, Required: true},
	}
}

func (a *WorkflowLaunchAction) Execute(ctx context.Context, rendered map[string]string, ec *ExecContext) error {
	if a.launcher == nil {
		return fmt.Errorf("workflow.launch: no launcher configured")
	}
	if ec == nil || ec.Document == nil {
		return fmt.Errorf("workflow.launch: no document in context")
	}
	var names []string
	for _, part := range strings.Split(rendered["templates"], ",") {
		if name := strings.TrimSpace(part); name != "" {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return fmt.Errorf("workflow.launch: no template names configured")
	}
	a.launcher.EnqueueLaunch(ctx, ec.Document.ID, names)
	return nil
}
