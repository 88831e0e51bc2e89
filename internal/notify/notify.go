// Package notify abstracts the user-notification capability the monitor
// alerts through.
package notify

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rugscan/rugscan/internal/domain"
)

// Alert is one user-facing notification about a watched token.
type Alert struct {
	ID       string
	Address  domain.Address
	Token    string
	Severity domain.FlagSeverity
	Title    string
	Message  string
}

// Notifier delivers alerts to the user.
type Notifier interface {
	Notify(ctx context.Context, alert Alert) error
}

// NewAlert builds an alert with a fresh id.
func NewAlert(addr domain.Address, token string, change domain.Change) Alert {
	title := "Watchlist warning"
	if change.Severity == domain.FlagCritical {
		title = "Watchlist risk alert"
	}
	return Alert{
		ID:       uuid.NewString(),
		Address:  addr,
		Token:    token,
		Severity: change.Severity,
		Title:    title,
		Message:  change.Message,
	}
}

// LogNotifier writes alerts to the structured log. It is the default
// sink when no platform notification channel is attached.
type LogNotifier struct {
	Logger zerolog.Logger
}

func (n *LogNotifier) Notify(ctx context.Context, alert Alert) error {
	n.Logger.Warn().
		Str("alert_id", alert.ID).
		Str("token", alert.Address.Key()).
		Str("severity", string(alert.Severity)).
		Str("title", alert.Title).
		Msg(alert.Message)
	return nil
}
