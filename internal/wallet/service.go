// Package wallet exposes the read side of a user's money: the balance
// overview shown on the dashboard and the transaction history feed. All
// balance state lives in the ledger; this service shapes it for the API.
package wallet

import (
	"context"
	"time"

	"github.com/ile-bank/ile_bank/internal/identity"
	"github.com/ile-bank/ile_bank/internal/ledger"
	"github.com/ile-bank/ile_bank/internal/money"
)

// Service reads wallet state from the ledger.
type Service struct {
	users  identity.Repository
	ledger ledger.Ledger
}

// NewService builds a wallet service instance.
func NewService(users identity.Repository, l ledger.Ledger) *Service {
	return &Service{users: users, ledger: l}
}

// Overview is the dashboard snapshot of a user's wallet.
type Overview struct {
	WalletID         string    `json:"wallet_id"`
	AccountNumber    string    `json:"account_number"`
	Balance          int64     `json:"balance"`
	BalanceFormatted string    `json:"balance_formatted"`
	Inflow           int64     `json:"inflow"`
	Outflow          int64     `json:"outflow"`
	Locked           bool      `json:"locked"`
	AsOf             time.Time `json:"as_of"`
}

// Overview returns the balance snapshot for a user's wallet.
func (s *Service) Overview(ctx context.Context, userID string) (Overview, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return Overview{}, err
	}
	w, err := s.ledger.Wallet(ctx, user.WalletID)
	if err != nil {
		return Overview{}, err
	}
	return Overview{
		WalletID:         w.ID,
		AccountNumber:    user.AccountNumber,
		Balance:          w.Balance,
		BalanceFormatted: money.FormatNaira(w.Balance),
		Inflow:           w.Inflow,
		Outflow:          w.Outflow,
		Locked:           w.Locked,
		AsOf:             time.Now().UTC(),
	}, nil
}

// History lists the user's ledger entries, newest first.
func (s *Service) History(ctx context.Context, userID string, q ledger.HistoryQuery) ([]ledger.Entry, error) {
	return s.ledger.History(ctx, userID, q)
}

// Receipt fetches both sides of a financial event by reference.
func (s *Service) Receipt(ctx context.Context, reference string) ([]ledger.Entry, error) {
	return s.ledger.EntriesByReference(ctx, reference)
}
