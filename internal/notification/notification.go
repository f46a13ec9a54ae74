package notification

import (
	"context"
	"log/slog"
	"time"
)

const (
	// KindEntryAdded indicates a new ledger entry was recorded.
	KindEntryAdded = "entry_added"
	// KindEntryUpdated indicates an existing entry was replaced.
	KindEntryUpdated = "entry_updated"
	// KindEntryDeleted indicates an entry was removed and its effect reversed.
	KindEntryDeleted = "entry_deleted"
)

// Message describes a ledger mutation event.
type Message struct {
	Kind       string    `json:"kind"`
	EntryID    uint64    `json:"entry_id"`
	EntryType  string    `json:"entry_type"`
	Amount     float64   `json:"amount"`
	Category   string    `json:"category"`
	Balance    float64   `json:"balance"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Notifier delivers mutation events to downstream systems. Delivery is
// best-effort; callers ignore errors beyond logging.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier writes events to the structured logger. It is the default
// when no broker is configured.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the event to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("ledger event",
		"kind", message.Kind,
		"entry_id", message.EntryID,
		"entry_type", message.EntryType,
		"amount", message.Amount,
		"balance", message.Balance,
	)
	return nil
}
