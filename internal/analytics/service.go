// Package analytics feeds the external analysis service. It renders a user's
// recent ledger activity and notifications into a plain-text context block,
// ships it with each chat message, and routes transfer instructions out of
// the conversation into the PIN-confirmation flow instead of the model.
package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ile-bank/ile_bank/internal/confirm"
	"github.com/ile-bank/ile_bank/internal/ledger"
	"github.com/ile-bank/ile_bank/internal/money"
	"github.com/ile-bank/ile_bank/internal/notification"
	"github.com/ile-bank/ile_bank/internal/retry"
	"github.com/ile-bank/ile_bank/internal/transfer"
)

// ErrUnavailable indicates the analysis service could not be reached.
var ErrUnavailable = errors.New("analysis service unavailable")

const (
	exportHistoryLimit = 25
	exportInboxLimit   = 10
	chatTimeout        = 15 * time.Second
)

// Service builds exports and brokers chat traffic.
type Service struct {
	ledger    ledger.Ledger
	inbox     notification.Repository
	transfers *transfer.Service
	url       string
	http      *http.Client
	policy    retry.Policy
	logger    *slog.Logger
}

// NewService builds an analytics service. url may be empty, in which case
// chat falls back to a local reply.
func NewService(l ledger.Ledger, inbox notification.Repository, transfers *transfer.Service, url string, logger *slog.Logger) *Service {
	return &Service{
		ledger:    l,
		inbox:     inbox,
		transfers: transfers,
		url:       url,
		http:      &http.Client{Timeout: chatTimeout},
		policy:    retry.DefaultPolicy,
		logger:    logger,
	}
}

// Export renders the user's recent activity as the context block sent to the
// analysis service.
func (s *Service) Export(ctx context.Context, userID string) (string, error) {
	entries, err := s.ledger.History(ctx, userID, ledger.HistoryQuery{Limit: exportHistoryLimit})
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("=== RECENT TRANSACTIONS ===\n")
	if len(entries) == 0 {
		b.WriteString("(none)\n")
	}
	for _, e := range entries {
		verb := "received"
		if e.Direction == ledger.DirectionDebit {
			verb = "sent"
		}
		fmt.Fprintf(&b, "%s | %s %s | %s | %s | %s\n",
			e.CreatedAt.Format("2006-01-02"),
			verb,
			money.FormatNaira(e.Amount),
			e.Source,
			e.Status,
			e.Reference,
		)
	}

	if s.inbox != nil {
		stored, err := s.inbox.Recent(ctx, userID, exportInboxLimit)
		if err == nil && len(stored) > 0 {
			b.WriteString("=== RECENT NOTIFICATIONS ===\n")
			for _, n := range stored {
				fmt.Fprintf(&b, "%s: %s\n", n.Title, n.Message)
			}
		}
	}
	return b.String(), nil
}

// Reply is the chat response surface.
type Reply struct {
	Kind      string           `json:"kind"` // "answer" or "confirmation_required"
	Message   string           `json:"message"`
	Pending   *confirm.Pending `json:"pending,omitempty"`
	Reference string           `json:"reference,omitempty"`
}

// Chat handles one user message. A recognizable transfer instruction never
// reaches the analysis service; it becomes a pending confirmation.
func (s *Service) Chat(ctx context.Context, userID, message string) (Reply, error) {
	if intent, err := transfer.ParseIntent(message); err == nil {
		p, err := s.transfers.Propose(ctx, userID, intent.Recipient, intent.Amount)
		if err != nil {
			return Reply{}, err
		}
		return Reply{
			Kind: "confirmation_required",
			Message: fmt.Sprintf("You are about to send %s to %s. Enter your transaction PIN to confirm.",
				money.FormatNaira(p.Amount), p.RecipientName),
			Pending: &p,
		}, nil
	}

	export, err := s.Export(ctx, userID)
	if err != nil {
		return Reply{}, err
	}
	answer, err := s.forward(ctx, message, export)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("analysis service call failed", "error", err)
		}
		return Reply{}, ErrUnavailable
	}
	return Reply{Kind: "answer", Message: answer}, nil
}

func (s *Service) forward(ctx context.Context, message, export string) (string, error) {
	if s.url == "" {
		return "", errors.New("no analysis service configured")
	}

	payload, err := json.Marshal(map[string]string{
		"message": message,
		"context": export,
	})
	if err != nil {
		return "", err
	}

	var answer string
	err = retry.Do(ctx, s.policy, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("analysis service status %d", resp.StatusCode)
		}

		var body struct {
			Reply string `json:"reply"`
		}
		if err := json.Unmarshal(raw, &body); err != nil {
			return err
		}
		answer = body.Reply
		return nil
	})
	return answer, err
}
