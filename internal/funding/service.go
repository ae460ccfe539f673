// Package funding starts wallet deposits. Initialization records a pending
// ledger entry and opens a hosted checkout with the processor; the money only
// lands when the settlement webhook confirms the charge.
package funding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/ile-bank/ile_bank/internal/identity"
	"github.com/ile-bank/ile_bank/internal/ledger"
	"github.com/ile-bank/ile_bank/internal/money"
	"github.com/ile-bank/ile_bank/internal/notification"
	"github.com/ile-bank/ile_bank/internal/processor"
)

// ErrInvalidAmount rejects zero and negative deposits.
var ErrInvalidAmount = errors.New("amount must be greater than zero")

// Service initializes deposits.
type Service struct {
	users       *identity.Service
	ledger      ledger.Ledger
	processor   processor.Client
	dispatch    *notification.Dispatcher
	callbackURL string
	logger      *slog.Logger
}

// NewService builds a funding service. callbackURL is where the checkout
// redirects after payment.
func NewService(users *identity.Service, l ledger.Ledger, p processor.Client, dispatch *notification.Dispatcher, callbackURL string, logger *slog.Logger) *Service {
	return &Service{users: users, ledger: l, processor: p, dispatch: dispatch, callbackURL: callbackURL, logger: logger}
}

// Session is the client's handle on an initialized deposit.
type Session struct {
	Reference        string `json:"reference"`
	AuthorizationURL string `json:"authorization_url"`
	Amount           int64  `json:"amount"`
}

// Initialize opens a checkout session and records the deposit as pending.
// The reference ties the eventual webhook settlement back to this entry.
func (s *Service) Initialize(ctx context.Context, userID string, amount int64) (Session, error) {
	if amount <= 0 {
		return Session{}, ErrInvalidAmount
	}
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return Session{}, err
	}

	reference := "DEP-" + uuid.New().String()
	session, err := s.processor.InitializeDeposit(ctx, user.Email, amount, s.callbackURL, map[string]string{
		"user_id":   user.ID,
		"wallet_id": user.WalletID,
		"reference": reference,
	})
	if err != nil {
		return Session{}, err
	}
	// Some processors issue their own reference; the webhook settles on the
	// one they report, so the pending entry must carry that one.
	if session.Reference != "" {
		reference = session.Reference
	}

	if err := s.ledger.PendingCredit(ctx, ledger.CreditArgs{
		WalletID:  user.WalletID,
		UserID:    user.ID,
		Amount:    amount,
		Source:    ledger.SourceDeposit,
		Reference: reference,
		Detail:    "Wallet deposit",
	}); err != nil && !errors.Is(err, ledger.ErrDuplicateReference) {
		// Without the pending entry the webhook still settles the deposit;
		// the entry just appears at settlement time instead.
		s.logger.Warn("record pending deposit", "reference", reference, "error", err)
	}

	return Session{Reference: reference, AuthorizationURL: session.AuthorizationURL, Amount: amount}, nil
}

// Simulate settles a deposit directly, bypassing the processor. Only wired
// up in development builds.
func (s *Service) Simulate(ctx context.Context, userID string, amount int64) (ledger.CreditResult, error) {
	if amount <= 0 {
		return ledger.CreditResult{}, ErrInvalidAmount
	}
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return ledger.CreditResult{}, err
	}

	reference := "DEP-sim-" + uuid.New().String()
	result, err := s.ledger.Credit(ctx, ledger.CreditArgs{
		WalletID:  user.WalletID,
		UserID:    user.ID,
		Amount:    amount,
		Source:    ledger.SourceDeposit,
		Reference: reference,
		Detail:    "Simulated deposit",
	})
	if err != nil {
		return ledger.CreditResult{}, err
	}

	s.dispatch.Dispatch(ctx, notification.Message{
		RecipientID:     user.ID,
		Title:           "Deposit successful",
		Message:         fmt.Sprintf("Your wallet was funded with %s.", money.FormatNaira(amount)),
		ActionKind:      notification.ActionDeposit,
		TargetReference: result.Reference,
	})
	return result, nil
}
