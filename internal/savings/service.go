// Package savings manages fixed-term locks carved out of a wallet. Funds
// move into a lock at creation and come back either at maturity or through an
// early break, which forfeits a flat penalty.
package savings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ile-bank/ile_bank/internal/identity"
	"github.com/ile-bank/ile_bank/internal/ledger"
	"github.com/ile-bank/ile_bank/internal/money"
	"github.com/ile-bank/ile_bank/internal/notification"
)

// BreakPenaltyBps is the early-break penalty in basis points (2%).
const BreakPenaltyBps = 200

// Durations lists the accepted lock terms.
var Durations = []string{"7days", "14days", "21days", "30days", "3months", "6months", "12months"}

var durationSpans = map[string]time.Duration{
	"7days":    7 * 24 * time.Hour,
	"14days":   14 * 24 * time.Hour,
	"21days":   21 * 24 * time.Hour,
	"30days":   30 * 24 * time.Hour,
	"3months":  90 * 24 * time.Hour,
	"6months":  180 * 24 * time.Hour,
	"12months": 365 * 24 * time.Hour,
}

var (
	// ErrInvalidDuration rejects a term outside the accepted list.
	ErrInvalidDuration = errors.New("invalid savings duration")

	// ErrInvalidAmount rejects zero and negative principal.
	ErrInvalidAmount = errors.New("amount must be greater than zero")
)

// Service creates, lists and breaks savings locks.
type Service struct {
	users    *identity.Service
	ledger   ledger.Ledger
	dispatch *notification.Dispatcher
	logger   *slog.Logger
}

// NewService builds a savings service.
func NewService(users *identity.Service, l ledger.Ledger, dispatch *notification.Dispatcher, logger *slog.Logger) *Service {
	return &Service{users: users, ledger: l, dispatch: dispatch, logger: logger}
}

// Lock is the API view of a savings lock.
type Lock struct {
	ID           string    `json:"id"`
	Amount       int64     `json:"amount"`
	Duration     string    `json:"duration"`
	StartDate    time.Time `json:"start_date"`
	MaturityDate time.Time `json:"maturity_date"`
	Status       string    `json:"status"`
}

// Create locks part of the user's balance for a fixed term. The PIN gates
// the movement like any other debit.
func (s *Service) Create(ctx context.Context, userID, pin string, amount int64, duration string) (Lock, error) {
	if amount <= 0 {
		return Lock{}, ErrInvalidAmount
	}
	if _, ok := durationSpans[duration]; !ok {
		return Lock{}, ErrInvalidDuration
	}
	if err := s.users.VerifyPIN(ctx, userID, pin); err != nil {
		return Lock{}, err
	}
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return Lock{}, err
	}

	reference := "SAV-" + uuid.New().String()
	result, err := s.ledger.LockSavings(ctx, ledger.SavingsArgs{
		WalletID:  user.WalletID,
		UserID:    user.ID,
		Amount:    amount,
		Duration:  duration,
		Reference: reference,
		Detail:    fmt.Sprintf("Savings lock for %s", duration),
	})
	if err != nil {
		return Lock{}, err
	}

	s.dispatch.Dispatch(ctx, notification.Message{
		RecipientID:     user.ID,
		Title:           "Savings created",
		Message:         fmt.Sprintf("You locked %s for %s.", money.FormatNaira(amount), duration),
		ActionKind:      notification.ActionSavings,
		TargetReference: reference,
	})

	return Lock{
		ID:           result.LockID,
		Amount:       amount,
		Duration:     duration,
		StartDate:    result.StartDate,
		MaturityDate: result.StartDate.Add(durationSpans[duration]),
		Status:       ledger.SavingsActive,
	}, nil
}

// BreakResult is the outcome of an early break.
type BreakResult struct {
	LockID    string `json:"lock_id"`
	Principal int64  `json:"principal"`
	Penalty   int64  `json:"penalty"`
	Payout    int64  `json:"payout"`
	Balance   int64  `json:"balance"`
}

// Break ends a lock before maturity: the principal minus the penalty returns
// to the wallet.
func (s *Service) Break(ctx context.Context, userID, pin, lockID string) (BreakResult, error) {
	if err := s.users.VerifyPIN(ctx, userID, pin); err != nil {
		return BreakResult{}, err
	}

	reference := "BRK-" + uuid.New().String()
	result, err := s.ledger.BreakSavings(ctx, ledger.BreakArgs{
		LockID:     lockID,
		UserID:     userID,
		PenaltyBps: BreakPenaltyBps,
		Reference:  reference,
		Detail:     "Early savings break (2% penalty)",
	})
	if err != nil {
		return BreakResult{}, err
	}

	s.dispatch.Dispatch(ctx, notification.Message{
		RecipientID: userID,
		Title:       "Savings broken",
		Message: fmt.Sprintf("Your savings of %s was broken early. %s was returned after a %s penalty.",
			money.FormatNaira(result.Principal),
			money.FormatNaira(result.Payout),
			money.FormatNaira(result.Penalty)),
		ActionKind:      notification.ActionSavings,
		TargetReference: reference,
	})

	return BreakResult{
		LockID:    result.LockID,
		Principal: result.Principal,
		Penalty:   result.Penalty,
		Payout:    result.Payout,
		Balance:   result.Balance,
	}, nil
}

// List returns the user's savings locks, active and finished.
func (s *Service) List(ctx context.Context, userID string) ([]Lock, error) {
	locks, err := s.ledger.SavingsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]Lock, 0, len(locks))
	for _, l := range locks {
		out = append(out, Lock{
			ID:           l.ID,
			Amount:       l.Amount,
			Duration:     l.Duration,
			StartDate:    l.StartDate,
			MaturityDate: l.StartDate.Add(durationSpans[l.Duration]),
			Status:       l.Status,
		})
	}
	return out, nil
}
