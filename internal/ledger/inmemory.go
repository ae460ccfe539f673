package ledger

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

type refKey struct {
	reference string
	direction Direction
}

type inMemoryLedger struct {
	mu       sync.RWMutex
	wallets  map[string]*Wallet
	entries  []Entry
	byRef    map[refKey]int
	savings  map[string]*SavingsLock
}

// NewInMemory creates a concurrency-safe in-memory ledger useful for unit
// tests and local development. A single mutex serialises mutations, which
// gives the same lost-update protection the Postgres backend gets from row
// locks.
func NewInMemory() Ledger {
	return &inMemoryLedger{
		wallets: make(map[string]*Wallet),
		byRef:   make(map[refKey]int),
		savings: make(map[string]*SavingsLock),
	}
}

func (l *inMemoryLedger) CreateWallet(_ context.Context, walletID, ownerID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.wallets[walletID]; exists {
		return errors.New("wallet exists")
	}
	l.wallets[walletID] = &Wallet{ID: walletID, OwnerID: ownerID, CreatedAt: time.Now().UTC()}
	return nil
}

func (l *inMemoryLedger) Wallet(_ context.Context, walletID string) (Wallet, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	w, ok := l.wallets[walletID]
	if !ok {
		return Wallet{}, ErrWalletNotFound
	}
	return *w, nil
}

func (l *inMemoryLedger) SetLocked(_ context.Context, walletID string, locked bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	w, ok := l.wallets[walletID]
	if !ok {
		return ErrWalletNotFound
	}
	w.Locked = locked
	return nil
}

func (l *inMemoryLedger) Transfer(_ context.Context, args TransferArgs) (TransferResult, error) {
	if args.Amount <= 0 {
		return TransferResult{}, ErrInsufficientFunds
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.byRef[refKey{args.Reference, DirectionDebit}]; exists {
		return TransferResult{}, ErrDuplicateReference
	}

	from, ok := l.wallets[args.FromWalletID]
	if !ok {
		return TransferResult{}, ErrWalletNotFound
	}
	to, ok := l.wallets[args.ToWalletID]
	if !ok {
		return TransferResult{}, ErrWalletNotFound
	}
	if from.Locked {
		return TransferResult{}, ErrWalletLocked
	}
	if from.Balance < args.Amount {
		return TransferResult{}, ErrInsufficientFunds
	}

	from.Balance -= args.Amount
	from.Outflow += args.Amount
	to.Balance += args.Amount
	to.Inflow += args.Amount

	now := time.Now().UTC()
	l.appendEntry(Entry{
		ID: uuid.NewString(), WalletID: from.ID, UserID: args.FromUserID,
		Amount: args.Amount, Direction: DirectionDebit, Status: StatusCompleted,
		Source: SourceTransfer, Reference: args.Reference, Detail: args.FromDetail, CreatedAt: now,
	})
	l.appendEntry(Entry{
		ID: uuid.NewString(), WalletID: to.ID, UserID: args.ToUserID,
		Amount: args.Amount, Direction: DirectionCredit, Status: StatusCompleted,
		Source: SourceTransfer, Reference: args.Reference, Detail: args.ToDetail, CreatedAt: now,
	})

	return TransferResult{Reference: args.Reference, FromBalance: from.Balance, ToBalance: to.Balance}, nil
}

func (l *inMemoryLedger) PendingCredit(_ context.Context, args CreditArgs) error {
	if args.Amount <= 0 {
		return ErrInsufficientFunds
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.byRef[refKey{args.Reference, DirectionCredit}]; exists {
		return ErrDuplicateReference
	}
	if _, ok := l.wallets[args.WalletID]; !ok {
		return ErrWalletNotFound
	}

	l.appendEntry(Entry{
		ID: uuid.NewString(), WalletID: args.WalletID, UserID: args.UserID,
		Amount: args.Amount, Direction: DirectionCredit, Status: StatusPending,
		Source: args.Source, Reference: args.Reference, Detail: args.Detail, CreatedAt: time.Now().UTC(),
	})
	return nil
}

func (l *inMemoryLedger) Credit(_ context.Context, args CreditArgs) (CreditResult, error) {
	if args.Amount <= 0 {
		return CreditResult{}, ErrInsufficientFunds
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.wallets[args.WalletID]
	if !ok {
		return CreditResult{}, ErrWalletNotFound
	}

	if idx, exists := l.byRef[refKey{args.Reference, DirectionCredit}]; exists {
		existing := &l.entries[idx]
		if existing.Status == StatusCompleted {
			return CreditResult{Reference: args.Reference, Balance: w.Balance}, ErrDuplicateReference
		}
		// Complete the pending entry recorded at initialization time. The
		// settled amount is authoritative, so the entry is updated to match
		// what actually credits the balance.
		existing.Status = StatusCompleted
		existing.Amount = args.Amount
		w.Balance += args.Amount
		w.Inflow += args.Amount
		return CreditResult{Reference: args.Reference, Balance: w.Balance}, nil
	}

	w.Balance += args.Amount
	w.Inflow += args.Amount
	l.appendEntry(Entry{
		ID: uuid.NewString(), WalletID: w.ID, UserID: args.UserID,
		Amount: args.Amount, Direction: DirectionCredit, Status: StatusCompleted,
		Source: args.Source, Reference: args.Reference, Detail: args.Detail, CreatedAt: time.Now().UTC(),
	})
	return CreditResult{Reference: args.Reference, Balance: w.Balance}, nil
}

func (l *inMemoryLedger) Debit(_ context.Context, args DebitArgs) (DebitResult, error) {
	if args.Amount <= 0 {
		return DebitResult{}, ErrInsufficientFunds
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.byRef[refKey{args.Reference, DirectionDebit}]; exists {
		return DebitResult{}, ErrDuplicateReference
	}
	w, ok := l.wallets[args.WalletID]
	if !ok {
		return DebitResult{}, ErrWalletNotFound
	}
	if !args.Force {
		if w.Locked {
			return DebitResult{}, ErrWalletLocked
		}
		if w.Balance < args.Amount {
			return DebitResult{}, ErrInsufficientFunds
		}
	}

	w.Balance -= args.Amount
	w.Outflow += args.Amount
	l.appendEntry(Entry{
		ID: uuid.NewString(), WalletID: w.ID, UserID: args.UserID,
		Amount: args.Amount, Direction: DirectionDebit, Status: StatusCompleted,
		Source: args.Source, Reference: args.Reference, Detail: args.Detail, CreatedAt: time.Now().UTC(),
	})
	return DebitResult{Reference: args.Reference, Balance: w.Balance}, nil
}

func (l *inMemoryLedger) LockSavings(_ context.Context, args SavingsArgs) (SavingsResult, error) {
	if args.Amount <= 0 {
		return SavingsResult{}, ErrInsufficientFunds
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.wallets[args.WalletID]
	if !ok {
		return SavingsResult{}, ErrWalletNotFound
	}
	if w.Locked {
		return SavingsResult{}, ErrWalletLocked
	}
	if w.Balance < args.Amount {
		return SavingsResult{}, ErrInsufficientFunds
	}

	now := time.Now().UTC()
	lock := &SavingsLock{
		ID:        uuid.NewString(),
		WalletID:  w.ID,
		UserID:    args.UserID,
		Amount:    args.Amount,
		Duration:  args.Duration,
		StartDate: now,
		Status:    SavingsActive,
	}
	w.Balance -= args.Amount
	w.Outflow += args.Amount
	l.savings[lock.ID] = lock
	l.appendEntry(Entry{
		ID: uuid.NewString(), WalletID: w.ID, UserID: args.UserID,
		Amount: args.Amount, Direction: DirectionDebit, Status: StatusCompleted,
		Source: SourceSavingsLock, Reference: args.Reference, Detail: args.Detail, CreatedAt: now,
	})
	return SavingsResult{LockID: lock.ID, Balance: w.Balance, StartDate: now}, nil
}

func (l *inMemoryLedger) BreakSavings(_ context.Context, args BreakArgs) (BreakResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	lock, ok := l.savings[args.LockID]
	if !ok || lock.UserID != args.UserID {
		return BreakResult{}, ErrSavingsNotFound
	}
	if lock.Status != SavingsActive {
		return BreakResult{}, ErrSavingsNotActive
	}
	w, ok := l.wallets[lock.WalletID]
	if !ok {
		return BreakResult{}, ErrWalletNotFound
	}

	penalty := lock.Amount * args.PenaltyBps / 10_000
	payout := lock.Amount - penalty

	lock.Status = SavingsBroken
	w.Balance += payout
	w.Inflow += payout
	l.appendEntry(Entry{
		ID: uuid.NewString(), WalletID: w.ID, UserID: args.UserID,
		Amount: lock.Amount, Direction: DirectionCredit, Status: StatusCompleted,
		Source: SourceSavingsBreak, Reference: args.Reference, Detail: args.Detail, CreatedAt: time.Now().UTC(),
	})
	return BreakResult{LockID: lock.ID, Principal: lock.Amount, Penalty: penalty, Payout: payout, Balance: w.Balance}, nil
}

func (l *inMemoryLedger) SavingsByUser(_ context.Context, userID string) ([]SavingsLock, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var locks []SavingsLock
	for _, lock := range l.savings {
		if lock.UserID == userID {
			locks = append(locks, *lock)
		}
	}
	return locks, nil
}

func (l *inMemoryLedger) EntriesByReference(_ context.Context, reference string) ([]Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []Entry
	for _, e := range l.entries {
		if e.Reference == reference {
			out = append(out, e)
		}
	}
	return out, nil
}

func (l *inMemoryLedger) History(_ context.Context, userID string, q HistoryQuery) ([]Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []Entry
	// Most recent first: entries are appended in commit order.
	for i := len(l.entries) - 1; i >= 0; i-- {
		e := l.entries[i]
		if e.UserID != userID {
			continue
		}
		if q.Source != "" && e.Source != q.Source {
			continue
		}
		out = append(out, e)
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

func (l *inMemoryLedger) appendEntry(e Entry) {
	l.byRef[refKey{e.Reference, e.Direction}] = len(l.entries)
	l.entries = append(l.entries, e)
}
