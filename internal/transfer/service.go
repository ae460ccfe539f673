// Package transfer moves money between internal wallets. It supports a
// direct PIN-checked transfer and a two-step conversational flow where the
// proposal is parked until the PIN confirms it.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/ile-bank/ile_bank/internal/confirm"
	"github.com/ile-bank/ile_bank/internal/identity"
	"github.com/ile-bank/ile_bank/internal/ledger"
	"github.com/ile-bank/ile_bank/internal/money"
	"github.com/ile-bank/ile_bank/internal/notification"
)

var (
	// ErrInvalidAmount rejects zero and negative amounts.
	ErrInvalidAmount = errors.New("amount must be greater than zero")

	// ErrSelfTransfer rejects a transfer whose sender and recipient are the
	// same wallet.
	ErrSelfTransfer = errors.New("cannot transfer to your own wallet")

	// ErrRecipientNotFound indicates the recipient identifier matched no user.
	ErrRecipientNotFound = errors.New("recipient not found")

	// ErrNoPendingTransfer indicates confirmation arrived with nothing to
	// confirm.
	ErrNoPendingTransfer = errors.New("no transfer awaiting confirmation")

	// ErrConfirmationExpired indicates the pending transfer outlived its
	// window and must be proposed again.
	ErrConfirmationExpired = errors.New("transfer confirmation expired")
)

// Service executes wallet-to-wallet transfers.
type Service struct {
	users    *identity.Service
	ledger   ledger.Ledger
	pending  confirm.Store
	dispatch *notification.Dispatcher
	logger   *slog.Logger
}

// NewService builds a transfer service.
func NewService(users *identity.Service, l ledger.Ledger, pending confirm.Store, dispatch *notification.Dispatcher, logger *slog.Logger) *Service {
	return &Service{users: users, ledger: l, pending: pending, dispatch: dispatch, logger: logger}
}

// Input describes a direct transfer request.
type Input struct {
	SenderID  string
	Recipient string // username or internal account number
	Amount    int64  // minor units
	PIN       string
	Remark    string
}

// Result is the sender-facing outcome of a completed transfer.
type Result struct {
	Reference     string `json:"reference"`
	Amount        int64  `json:"amount"`
	RecipientID   string `json:"recipient_id"`
	RecipientName string `json:"recipient_name"`
	Balance       int64  `json:"balance"`
}

// Execute runs a direct transfer: PIN check, recipient resolution, then the
// atomic ledger posting. Notifications go out only after the posting commits.
func (s *Service) Execute(ctx context.Context, input Input) (Result, error) {
	if input.Amount <= 0 {
		return Result{}, ErrInvalidAmount
	}
	if err := s.users.VerifyPIN(ctx, input.SenderID, input.PIN); err != nil {
		return Result{}, err
	}

	sender, recipient, err := s.resolveParties(ctx, input.SenderID, input.Recipient)
	if err != nil {
		return Result{}, err
	}
	return s.post(ctx, sender, recipient, input.Amount, input.Remark)
}

// Propose parks a transfer intent and returns the summary the client shows
// while asking for the PIN. Any previous pending transfer for the user is
// replaced.
func (s *Service) Propose(ctx context.Context, senderID, recipientIdentifier string, amount int64) (confirm.Pending, error) {
	if amount <= 0 {
		return confirm.Pending{}, ErrInvalidAmount
	}
	sender, recipient, err := s.resolveParties(ctx, senderID, recipientIdentifier)
	if err != nil {
		return confirm.Pending{}, err
	}

	// Surface an obvious shortfall now rather than after the PIN round-trip.
	// The authoritative check still happens inside the ledger posting.
	w, err := s.ledger.Wallet(ctx, sender.WalletID)
	if err != nil {
		return confirm.Pending{}, err
	}
	if w.Balance < amount {
		return confirm.Pending{}, ledger.ErrInsufficientFunds
	}

	p := confirm.New(sender.ID, amount, recipient.ID, displayName(recipient))
	if err := s.pending.Put(ctx, p); err != nil {
		return confirm.Pending{}, err
	}
	return p, nil
}

// Confirm completes a pending transfer once the PIN verifies. The record is
// consumed atomically before anything moves, so concurrent confirms execute
// the proposal at most once. A wrong PIN or a failed posting restores the
// record so the user can retry within the window.
func (s *Service) Confirm(ctx context.Context, senderID, pin string) (Result, error) {
	p, err := s.pending.Take(ctx, senderID)
	switch {
	case errors.Is(err, confirm.ErrExpired):
		return Result{}, ErrConfirmationExpired
	case errors.Is(err, confirm.ErrNotFound):
		return Result{}, ErrNoPendingTransfer
	case err != nil:
		return Result{}, err
	}

	if err := s.users.VerifyPIN(ctx, senderID, pin); err != nil {
		s.restore(ctx, p)
		return Result{}, err
	}

	sender, err := s.users.Get(ctx, senderID)
	if err != nil {
		s.restore(ctx, p)
		return Result{}, err
	}
	recipient, err := s.users.Get(ctx, p.RecipientID)
	if err != nil {
		return Result{}, ErrRecipientNotFound
	}

	result, err := s.post(ctx, sender, recipient, p.Amount, "")
	if err != nil {
		s.restore(ctx, p)
		return Result{}, err
	}
	return result, nil
}

// restore puts a consumed proposal back after a recoverable failure.
func (s *Service) restore(ctx context.Context, p confirm.Pending) {
	if err := s.pending.Put(ctx, p); err != nil && s.logger != nil {
		s.logger.Warn("restore pending transfer", "user_id", p.UserID, "error", err)
	}
}

// Cancel withdraws an outstanding proposal.
func (s *Service) Cancel(ctx context.Context, senderID string) error {
	if _, err := s.pending.Get(ctx, senderID); err != nil {
		if errors.Is(err, confirm.ErrNotFound) || errors.Is(err, confirm.ErrExpired) {
			return ErrNoPendingTransfer
		}
		return err
	}
	return s.pending.Delete(ctx, senderID)
}

func (s *Service) resolveParties(ctx context.Context, senderID, recipientIdentifier string) (identity.User, identity.User, error) {
	sender, err := s.users.Get(ctx, senderID)
	if err != nil {
		return identity.User{}, identity.User{}, err
	}
	recipient, err := s.users.Resolve(ctx, recipientIdentifier)
	if err != nil {
		return identity.User{}, identity.User{}, ErrRecipientNotFound
	}
	if recipient.ID == sender.ID {
		return identity.User{}, identity.User{}, ErrSelfTransfer
	}
	return sender, recipient, nil
}

func (s *Service) post(ctx context.Context, sender, recipient identity.User, amount int64, remark string) (Result, error) {
	reference := "TRF-" + uuid.New().String()
	fromDetail := fmt.Sprintf("Transfer to %s", displayName(recipient))
	toDetail := fmt.Sprintf("Transfer from %s", displayName(sender))
	if remark != "" {
		fromDetail = fmt.Sprintf("%s: %s", fromDetail, remark)
		toDetail = fmt.Sprintf("%s: %s", toDetail, remark)
	}

	posted, err := s.ledger.Transfer(ctx, ledger.TransferArgs{
		FromWalletID: sender.WalletID,
		ToWalletID:   recipient.WalletID,
		FromUserID:   sender.ID,
		ToUserID:     recipient.ID,
		Amount:       amount,
		Reference:    reference,
		FromDetail:   fromDetail,
		ToDetail:     toDetail,
	})
	if err != nil {
		return Result{}, err
	}

	formatted := money.FormatNaira(amount)
	s.dispatch.Dispatch(ctx,
		notification.Message{
			RecipientID:     sender.ID,
			Title:           "Transfer sent",
			Message:         fmt.Sprintf("You sent %s to %s.", formatted, displayName(recipient)),
			ActionKind:      notification.ActionTransfer,
			TargetReference: posted.Reference,
		},
		notification.Message{
			RecipientID:     recipient.ID,
			Title:           "Money received",
			Message:         fmt.Sprintf("%s sent you %s.", displayName(sender), formatted),
			ActionKind:      notification.ActionTransfer,
			TargetReference: posted.Reference,
		},
	)

	return Result{
		Reference:     posted.Reference,
		Amount:        amount,
		RecipientID:   recipient.ID,
		RecipientName: displayName(recipient),
		Balance:       posted.FromBalance,
	}, nil
}

func displayName(u identity.User) string {
	if u.Name != "" {
		return u.Name
	}
	return u.Username
}
