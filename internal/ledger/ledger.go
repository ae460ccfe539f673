package ledger

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrInsufficientFunds occurs when a wallet lacks available balance to
	// cover a requested debit.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrWalletLocked indicates the wallet is flagged for reconciliation and
	// refuses outbound movement.
	ErrWalletLocked = errors.New("wallet locked")

	// ErrWalletNotFound indicates the wallet does not exist.
	ErrWalletNotFound = errors.New("wallet not found")

	// ErrDuplicateReference indicates an entry with the provided reference was
	// already applied and the operation should be treated as idempotent.
	ErrDuplicateReference = errors.New("duplicate reference")

	// ErrSavingsNotFound indicates the savings lock does not exist.
	ErrSavingsNotFound = errors.New("savings lock not found")

	// ErrSavingsNotActive indicates the savings lock was already broken or completed.
	ErrSavingsNotActive = errors.New("savings lock not active")
)

// Direction marks which side of a financial event an entry records.
type Direction string

const (
	DirectionDebit  Direction = "debit"
	DirectionCredit Direction = "credit"
)

// Status tracks the lifecycle of an entry. Entries are immutable after
// creation except for the Pending -> Completed|Failed transition.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Source is the closed set of event categories an entry can originate from.
type Source string

const (
	SourceTransfer     Source = "transfer"
	SourceDeposit      Source = "deposit"
	SourceWithdrawal   Source = "withdrawal"
	SourceSavingsLock  Source = "savings_lock"
	SourceSavingsBreak Source = "savings_break"
)

// Savings lock states.
const (
	SavingsActive    = "active"
	SavingsCompleted = "completed"
	SavingsBroken    = "broken"
)

// Wallet is the balance record for one user, in minor currency units.
type Wallet struct {
	ID        string
	OwnerID   string
	Balance   int64
	Inflow    int64
	Outflow   int64
	Locked    bool
	CreatedAt time.Time
}

// Entry is one side of a financial event. The (reference, direction) pair is
// unique; a transfer writes two entries sharing one reference.
type Entry struct {
	ID        string
	WalletID  string
	UserID    string
	Amount    int64
	Direction Direction
	Status    Status
	Source    Source
	Reference string
	Detail    string
	CreatedAt time.Time
}

// SavingsLock is a time-locked sub-balance carved out of a wallet.
type SavingsLock struct {
	ID        string
	WalletID  string
	UserID    string
	Amount    int64
	Duration  string
	StartDate time.Time
	Status    string
}

// TransferArgs describes an atomic debit/credit pair between two wallets.
type TransferArgs struct {
	FromWalletID string
	ToWalletID   string
	FromUserID   string
	ToUserID     string
	Amount       int64
	Reference    string
	FromDetail   string
	ToDetail     string
}

// TransferResult captures the outcome of a transfer posting.
type TransferResult struct {
	Reference   string
	FromBalance int64
	ToBalance   int64
}

// CreditArgs describes an inbound settlement into a wallet.
type CreditArgs struct {
	WalletID  string
	UserID    string
	Amount    int64
	Source    Source
	Reference string
	Detail    string
}

// CreditResult captures the outcome of a credit posting.
type CreditResult struct {
	Reference string
	Balance   int64
}

// DebitArgs describes an outbound movement from a wallet. Force skips the
// funds and lock checks; it is reserved for recording an external payout that
// already executed, so the books reflect it even when the balance goes
// negative.
type DebitArgs struct {
	WalletID  string
	UserID    string
	Amount    int64
	Source    Source
	Reference string
	Detail    string
	Force     bool
}

// DebitResult captures the outcome of a debit posting.
type DebitResult struct {
	Reference string
	Balance   int64
}

// SavingsArgs describes funds being locked out of a wallet for a fixed term.
type SavingsArgs struct {
	WalletID  string
	UserID    string
	Amount    int64
	Duration  string
	Reference string
	Detail    string
}

// SavingsResult captures the outcome of creating a savings lock.
type SavingsResult struct {
	LockID    string
	Balance   int64
	StartDate time.Time
}

// BreakArgs describes an early savings break. PenaltyBps is the penalty in
// basis points applied to the principal.
type BreakArgs struct {
	LockID     string
	UserID     string
	PenaltyBps int64
	Reference  string
	Detail     string
}

// BreakResult captures the outcome of breaking a savings lock.
type BreakResult struct {
	LockID    string
	Principal int64
	Penalty   int64
	Payout    int64
	Balance   int64
}

// HistoryQuery filters and bounds a wallet history listing.
type HistoryQuery struct {
	Source Source
	Limit  int
}

// Ledger is the contract implemented by ledger backends (Postgres in
// production, in-memory for tests). Every mutating operation runs as a single
// atomic unit: the balance change and its entries either both apply or
// neither does, and the funds check observes the balance under that unit.
type Ledger interface {
	CreateWallet(ctx context.Context, walletID, ownerID string) error
	Wallet(ctx context.Context, walletID string) (Wallet, error)
	SetLocked(ctx context.Context, walletID string, locked bool) error

	Transfer(ctx context.Context, args TransferArgs) (TransferResult, error)
	PendingCredit(ctx context.Context, args CreditArgs) error
	Credit(ctx context.Context, args CreditArgs) (CreditResult, error)
	Debit(ctx context.Context, args DebitArgs) (DebitResult, error)

	LockSavings(ctx context.Context, args SavingsArgs) (SavingsResult, error)
	BreakSavings(ctx context.Context, args BreakArgs) (BreakResult, error)
	SavingsByUser(ctx context.Context, userID string) ([]SavingsLock, error)

	EntriesByReference(ctx context.Context, reference string) ([]Entry, error)
	History(ctx context.Context, userID string, q HistoryQuery) ([]Entry, error)
}
