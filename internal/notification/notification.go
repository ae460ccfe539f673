// Package notification carries finished-event payloads out of the transfer
// engine. Delivery is strictly best-effort: a failure is logged and swallowed,
// never surfaced to the financial operation that produced the message, and
// never retried in a way that could double-deliver.
package notification

import (
	"context"
	"log/slog"
)

// Action kinds understood by clients.
const (
	ActionTransfer   = "transfer"
	ActionDeposit    = "deposit"
	ActionWithdrawal = "withdrawal"
	ActionSavings    = "savings"
)

// Message describes a notification payload.
type Message struct {
	RecipientID     string `json:"recipient_id"`
	Title           string `json:"title"`
	Message         string `json:"message"`
	ActionKind      string `json:"action_kind"`
	TargetReference string `json:"target_reference"`
}

// Notifier delivers notifications to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier is a stub implementation that writes notifications to the
// logger. Used in development and tests.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier stub.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification",
		"recipient", message.RecipientID,
		"title", message.Title,
		"action", message.ActionKind,
		"target", message.TargetReference,
	)
	return nil
}

// Dispatcher fans a message out to the in-app inbox and the downstream
// notifier. It is invoked after the ledger mutation commits; both legs are
// best-effort.
type Dispatcher struct {
	inbox    Repository
	notifier Notifier
	logger   *slog.Logger
}

// NewDispatcher builds a dispatcher. inbox and notifier may each be nil.
func NewDispatcher(inbox Repository, notifier Notifier, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{inbox: inbox, notifier: notifier, logger: logger}
}

// Dispatch stores and forwards the message. Failures are logged and dropped.
func (d *Dispatcher) Dispatch(ctx context.Context, messages ...Message) {
	if d == nil {
		return
	}
	for _, msg := range messages {
		if d.inbox != nil {
			if err := d.inbox.Add(ctx, msg); err != nil && d.logger != nil {
				d.logger.Warn("store notification", "recipient", msg.RecipientID, "error", err)
			}
		}
		if d.notifier != nil {
			if err := d.notifier.Send(ctx, msg); err != nil && d.logger != nil {
				d.logger.Warn("send notification", "recipient", msg.RecipientID, "error", err)
			}
		}
	}
}
