package actions

import (
	"context"
	"strings"

	"github.com/orvane/docflow-backend/internal/logger"
)

// LogMessenger writes outbound messages to the application log. It stands in
// for a real mail or chat integration when none is configured.
type LogMessenger struct {
	log *logger.Logger
}

func NewLogMessenger(baseLog *logger.Logger) *LogMessenger {
	return &LogMessenger{log: baseLog.With("messenger", "log")}
}

func (m *LogMessenger) Send(_ context.Context, recipients []string, subject, body string) error {
	m.log.Info("message sent",
		"recipients", strings.Join(recipients, ","),
		"subject", subject,
		"body_len", len(body),
	)
	return nil
}
