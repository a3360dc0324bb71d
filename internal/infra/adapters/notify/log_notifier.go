// File: internal/infra/adapters/notify/log_notifier.go
package notify

import (
	"context"

	"github.com/rs/zerolog"

	"design-market/internal/domain/ports/adapter"
)

var _ adapter.Notifier = (*LogNotifier)(nil)

// LogNotifier writes notifications to the log. It stands in for the real
// delivery transport, which lives outside this engine.
type LogNotifier struct {
	log *zerolog.Logger
}

func NewLogNotifier(logger *zerolog.Logger) *LogNotifier {
	l := logger.With().Str("component", "Notifier").Logger()
	return &LogNotifier{log: &l}
}

func (n *LogNotifier) Notify(ctx context.Context, userID, message string) error {
	n.log.Info().Str("user_id", userID).Str("message", message).Msg("notify")
	return nil
}
