package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
)

func newTestLedger(t *testing.T) (Ledger, string, string) {
	t.Helper()
	l := NewInMemory()
	ctx := context.Background()
	from := uuid.NewString()
	to := uuid.NewString()
	if err := l.CreateWallet(ctx, from, uuid.NewString()); err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	if err := l.CreateWallet(ctx, to, uuid.NewString()); err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	return l, from, to
}

func TestTransferMovesFundsAndWritesEntryPair(t *testing.T) {
	l, from, to := newTestLedger(t)
	ctx := context.Background()
	SeedBalance(l, from, 5_000)

	res, err := l.Transfer(ctx, TransferArgs{
		FromWalletID: from, ToWalletID: to, Amount: 2_000, Reference: "TRF-1",
	})
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if res.FromBalance != 3_000 || res.ToBalance != 2_000 {
		t.Fatalf("unexpected balances: %+v", res)
	}

	entries, err := l.EntriesByReference(ctx, "TRF-1")
	if err != nil {
		t.Fatalf("entries by reference: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	var sawDebit, sawCredit bool
	for _, e := range entries {
		if e.Status != StatusCompleted || e.Source != SourceTransfer || e.Amount != 2_000 {
			t.Fatalf("unexpected entry: %+v", e)
		}
		switch e.Direction {
		case DirectionDebit:
			sawDebit = true
		case DirectionCredit:
			sawCredit = true
		}
	}
	if !sawDebit || !sawCredit {
		t.Fatalf("expected one debit and one credit, got %+v", entries)
	}
}

func TestTransferInsufficientFundsMutatesNothing(t *testing.T) {
	l, from, to := newTestLedger(t)
	ctx := context.Background()
	SeedBalance(l, from, 1_000)

	if _, err := l.Transfer(ctx, TransferArgs{FromWalletID: from, ToWalletID: to, Amount: 1_500, Reference: "TRF-2"}); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}

	w, _ := l.Wallet(ctx, from)
	if w.Balance != 1_000 {
		t.Fatalf("sender balance mutated: %d", w.Balance)
	}
	if entries, _ := l.EntriesByReference(ctx, "TRF-2"); len(entries) != 0 {
		t.Fatalf("entries written on failed transfer: %+v", entries)
	}
}

func TestTransferLockedWallet(t *testing.T) {
	l, from, to := newTestLedger(t)
	ctx := context.Background()
	SeedBalance(l, from, 5_000)
	if err := l.SetLocked(ctx, from, true); err != nil {
		t.Fatalf("set locked: %v", err)
	}

	if _, err := l.Transfer(ctx, TransferArgs{FromWalletID: from, ToWalletID: to, Amount: 100, Reference: "TRF-3"}); !errors.Is(err, ErrWalletLocked) {
		t.Fatalf("expected wallet locked, got %v", err)
	}
}

func TestCreditIsIdempotentPerReference(t *testing.T) {
	l, from, _ := newTestLedger(t)
	ctx := context.Background()

	args := CreditArgs{WalletID: from, Amount: 50_000, Source: SourceDeposit, Reference: "R1"}
	res, err := l.Credit(ctx, args)
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
	if res.Balance != 50_000 {
		t.Fatalf("expected balance 50000, got %d", res.Balance)
	}

	res, err = l.Credit(ctx, args)
	if !errors.Is(err, ErrDuplicateReference) {
		t.Fatalf("expected duplicate reference, got %v", err)
	}
	if res.Balance != 50_000 {
		t.Fatalf("replay changed balance: %d", res.Balance)
	}
	if entries, _ := l.EntriesByReference(ctx, "R1"); len(entries) != 1 {
		t.Fatalf("replay wrote extra entries: %+v", entries)
	}
}

func TestCreditCompletesPendingEntry(t *testing.T) {
	l, from, _ := newTestLedger(t)
	ctx := context.Background()

	args := CreditArgs{WalletID: from, Amount: 10_000, Source: SourceDeposit, Reference: "DEP-1", Detail: "wallet funding"}
	if err := l.PendingCredit(ctx, args); err != nil {
		t.Fatalf("pending credit: %v", err)
	}
	w, _ := l.Wallet(ctx, from)
	if w.Balance != 0 {
		t.Fatalf("pending credit changed balance: %d", w.Balance)
	}

	res, err := l.Credit(ctx, args)
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
	if res.Balance != 10_000 {
		t.Fatalf("expected balance 10000, got %d", res.Balance)
	}
	entries, _ := l.EntriesByReference(ctx, "DEP-1")
	if len(entries) != 1 || entries[0].Status != StatusCompleted {
		t.Fatalf("expected one completed entry, got %+v", entries)
	}
}

func TestCreditSettlesAdjustedAmount(t *testing.T) {
	l, from, _ := newTestLedger(t)
	ctx := context.Background()

	if err := l.PendingCredit(ctx, CreditArgs{WalletID: from, Amount: 10_000, Source: SourceDeposit, Reference: "DEP-2", Detail: "wallet funding"}); err != nil {
		t.Fatalf("pending credit: %v", err)
	}

	// The settlement amount differs from the initialized one, e.g. a partial
	// card charge. The entry must record what actually landed.
	res, err := l.Credit(ctx, CreditArgs{WalletID: from, Amount: 7_500, Source: SourceDeposit, Reference: "DEP-2", Detail: "wallet funding"})
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
	if res.Balance != 7_500 {
		t.Fatalf("expected balance 7500, got %d", res.Balance)
	}
	entries, _ := l.EntriesByReference(ctx, "DEP-2")
	if len(entries) != 1 || entries[0].Amount != 7_500 || entries[0].Status != StatusCompleted {
		t.Fatalf("expected entry settled at 7500, got %+v", entries)
	}
}

func TestDebitRespectsLockAndForce(t *testing.T) {
	l, from, _ := newTestLedger(t)
	ctx := context.Background()
	SeedBalance(l, from, 1_000)
	if err := l.SetLocked(ctx, from, true); err != nil {
		t.Fatalf("set locked: %v", err)
	}

	if _, err := l.Debit(ctx, DebitArgs{WalletID: from, Amount: 500, Source: SourceWithdrawal, Reference: "WDL-1"}); !errors.Is(err, ErrWalletLocked) {
		t.Fatalf("expected wallet locked, got %v", err)
	}

	// Forced debit records an already-executed payout even past zero.
	res, err := l.Debit(ctx, DebitArgs{WalletID: from, Amount: 1_500, Source: SourceWithdrawal, Reference: "WDL-2", Force: true})
	if err != nil {
		t.Fatalf("forced debit: %v", err)
	}
	if res.Balance != -500 {
		t.Fatalf("expected balance -500, got %d", res.Balance)
	}
}

func TestSavingsBreakAppliesPenalty(t *testing.T) {
	l, from, _ := newTestLedger(t)
	ctx := context.Background()
	SeedBalance(l, from, 10_000)

	lock, err := l.LockSavings(ctx, SavingsArgs{WalletID: from, UserID: "u1", Amount: 10_000, Duration: "30days", Reference: "SAV-1"})
	if err != nil {
		t.Fatalf("lock savings: %v", err)
	}
	if lock.Balance != 0 {
		t.Fatalf("expected balance 0 after lock, got %d", lock.Balance)
	}

	res, err := l.BreakSavings(ctx, BreakArgs{LockID: lock.LockID, UserID: "u1", PenaltyBps: 200, Reference: "BRK-1"})
	if err != nil {
		t.Fatalf("break savings: %v", err)
	}
	if res.Penalty != 200 || res.Payout != 9_800 || res.Balance != 9_800 {
		t.Fatalf("unexpected break result: %+v", res)
	}

	if _, err := l.BreakSavings(ctx, BreakArgs{LockID: lock.LockID, UserID: "u1", PenaltyBps: 200, Reference: "BRK-2"}); !errors.Is(err, ErrSavingsNotActive) {
		t.Fatalf("expected savings not active, got %v", err)
	}
}

func TestConcurrentTransfersNeverOverdraw(t *testing.T) {
	l, from, to := newTestLedger(t)
	ctx := context.Background()
	SeedBalance(l, from, 5_000)

	const n = 10
	var wg sync.WaitGroup
	results := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = l.Transfer(ctx, TransferArgs{
				FromWalletID: from, ToWalletID: to, Amount: 1_000, Reference: uuid.NewString(),
			})
		}(i)
	}
	wg.Wait()

	var succeeded int
	for _, err := range results {
		if err == nil {
			succeeded++
		} else if !errors.Is(err, ErrInsufficientFunds) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded != 5 {
		t.Fatalf("expected 5 successful transfers, got %d", succeeded)
	}
	w, _ := l.Wallet(ctx, from)
	if w.Balance != 0 {
		t.Fatalf("expected final balance 0, got %d", w.Balance)
	}
	recipient, _ := l.Wallet(ctx, to)
	if recipient.Balance != 5_000 {
		t.Fatalf("expected recipient balance 5000, got %d", recipient.Balance)
	}
}
