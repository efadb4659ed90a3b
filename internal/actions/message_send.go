package actions

import (
	"context"
	"fmt"
	"strings"
)

// MessageSendAction renders recipients, subject and body and hands the
// message to the configured Messenger.
type MessageSendAction struct {
	messenger Messenger
}

func (a *MessageSendAction) Type() string { return "message.send" }

func (a *MessageSendAction) Fields() []FieldSpec {
	return []FieldSpec{
		{Name: "recipients", Label: "Recipients, comma separated", Type: FieldTypeTemplate, Required: true},
		{Name: "subject", Label: "Subject", Type: FieldTypeTemplate, Required: true},
		{Name: "body", Label: "Body", Type: FieldTypeTemplate},
	}
}

func (a *MessageSendAction) Execute(ctx context.Context, rendered map[string]string, _ *ExecContext) error {
	if a.messenger == nil {
		return fmt.Errorf("message.send: no messenger configured")
	}
	var recipients []string
	for _, part := range strings.Split(rendered["recipients"], ",") {
		if r := strings.TrimSpace(part); r != "" {
			recipients = append(recipients, r)
		}
	}
	if len(recipients) == 0 {
		return fmt.Errorf("message.send: no recipients")
	}
	return a.messenger.Send(ctx, recipients, rendered["subject"], rendered["body"])
}
