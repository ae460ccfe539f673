// Package payout moves wallet funds out to external bank accounts through
// the payment processor, and manages the saved settlement bank the payout
// goes to. The processor call runs outside any ledger transaction; if the
// books cannot record an accepted payout the wallet is locked for manual
// reconciliation rather than left silently wrong.
package payout

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

var (
	// ErrInvalidAmount rejects zero and negative withdrawals.
	ErrInvalidAmount = errors.New("amount must be greater than zero")

	// ErrNoBankDetails indicates the user has no saved settlement bank.
	ErrNoBankDetails = errors.New("no bank details on file")

	// ErrReconciliationRequired indicates the processor accepted the payout
	// but the ledger could not record it cleanly. The wallet is locked until
	// an operator reconciles the books.
	ErrReconciliationRequired = errors.New("payout accepted but not recorded; wallet locked for reconciliation")
)

// Service executes withdrawals and manages saved bank details.
type Service struct {
	users     *identity.Service
	ledger    ledger.Ledger
	processor processor.Client
	dispatch  *notification.Dispatcher
	logger    *slog.Logger
}

// NewService builds a payout service.
func NewService(users *identity.Service, l ledger.Ledger, p processor.Client, dispatch *notification.Dispatcher, logger *slog.Logger) *Service {
	return &Service{users: users, ledger: l, processor: p, dispatch: dispatch, logger: logger}
}

// Result is the outcome of a completed withdrawal.
type Result struct {
	Reference string `json:"reference"`
	Amount    int64  `json:"amount"`
	Status    string `json:"status"`
	Balance   int64  `json:"balance"`
}

// Withdraw sends amount to the user's saved bank. The funds check happens
// twice: a fast pre-check before touching the processor, and the
// authoritative one inside the ledger debit.
func (s *Service) Withdraw(ctx context.Context, userID, pin string, amount int64) (Result, error) {
	if amount <= 0 {
		return Result{}, ErrInvalidAmount
	}
	if err := s.users.VerifyPIN(ctx, userID, pin); err != nil {
		return Result{}, err
	}
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return Result{}, err
	}
	if !user.HasBank() {
		return Result{}, ErrNoBankDetails
	}

	w, err := s.ledger.Wallet(ctx, user.WalletID)
	if err != nil {
		return Result{}, err
	}
	if w.Locked {
		return Result{}, ledger.ErrWalletLocked
	}
	if w.Balance < amount {
		return Result{}, ledger.ErrInsufficientFunds
	}

	recipient, err := s.processor.CreateRecipient(ctx, user.Bank.AccountName, user.Bank.AccountNumber, user.Bank.BankCode)
	if err != nil {
		return Result{}, err
	}

	reference := "WDR-" + uuid.New().String()
	accepted, err := s.processor.InitiatePayout(ctx, processor.PayoutArgs{
		RecipientCode: recipient.Code,
		Amount:        amount,
		Reference:     reference,
		Reason:        "Wallet withdrawal",
	})
	if err != nil {
		return Result{}, err
	}

	// Money has left through the processor; the debit below must land.
	debit, err := s.ledger.Debit(ctx, ledger.DebitArgs{
		WalletID:  user.WalletID,
		UserID:    user.ID,
		Amount:    amount,
		Source:    ledger.SourceWithdrawal,
		Reference: reference,
		Detail:    fmt.Sprintf("Withdrawal to %s (%s)", user.Bank.BankName, user.Bank.AccountNumber),
	})
	if err != nil {
		return Result{}, s.reconcile(ctx, user, amount, reference, err)
	}

	s.dispatch.Dispatch(ctx, notification.Message{
		RecipientID:     user.ID,
		Title:           "Withdrawal initiated",
		Message:         fmt.Sprintf("%s is on its way to your %s account.", money.FormatNaira(amount), user.Bank.BankName),
		ActionKind:      notification.ActionWithdrawal,
		TargetReference: reference,
	})

	return Result{Reference: reference, Amount: amount, Status: accepted.Status, Balance: debit.Balance}, nil
}

// reconcile force-records an accepted payout the normal debit refused, then
// locks the wallet so nothing else moves until an operator looks.
func (s *Service) reconcile(ctx context.Context, user identity.User, amount int64, reference string, cause error) error {
	s.logger.Error("payout bookkeeping failed",
		"user_id", user.ID,
		"reference", reference,
		"amount", amount,
		"error", cause,
	)

	if _, err := s.ledger.Debit(ctx, ledger.DebitArgs{
		WalletID:  user.WalletID,
		UserID:    user.ID,
		Amount:    amount,
		Source:    ledger.SourceWithdrawal,
		Reference: reference,
		Detail:    "Withdrawal (forced reconciliation record)",
		Force:     true,
	}); err != nil {
		s.logger.Error("forced payout record failed", "reference", reference, "error", err)
	}
	if err := s.ledger.SetLocked(ctx, user.WalletID, true); err != nil {
		s.logger.Error("lock wallet for reconciliation", "wallet_id", user.WalletID, "error", err)
	}
	return fmt.Errorf("%w: %v", ErrReconciliationRequired, cause)
}

// Banks lists the processor's supported banks.
func (s *Service) Banks(ctx context.Context) ([]processor.Bank, error) {
	return s.processor.Banks(ctx)
}

// SaveBank verifies the account with the processor and stores it as the
// user's settlement bank.
func (s *Service) SaveBank(ctx context.Context, userID, bankName, bankCode, accountNumber string) (identity.BankDetail, error) {
	resolved, err := s.processor.ResolveAccount(ctx, accountNumber, bankCode)
	if err != nil {
		return identity.BankDetail{}, err
	}
	detail := identity.BankDetail{
		BankName:      bankName,
		BankCode:      bankCode,
		AccountName:   resolved.AccountName,
		AccountNumber: resolved.AccountNumber,
	}
	if err := s.users.SaveBank(ctx, userID, detail); err != nil {
		return identity.BankDetail{}, err
	}
	return detail, nil
}
