package transfer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/ile-bank/ile_bank/internal/confirm"
	"github.com/ile-bank/ile_bank/internal/identity"
	"github.com/ile-bank/ile_bank/internal/ledger"
	"github.com/ile-bank/ile_bank/internal/notification"
)

type fixture struct {
	service *Service
	ledger  ledger.Ledger
	pending *confirm.MemoryStore
	inbox   notification.Repository
	sender  identity.User
	other   identity.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	led := ledger.NewInMemory()
	users := identity.NewService(identity.NewMemoryRepository(), led)

	sender, err := users.Register(ctx, identity.Credentials{
		Name: "Ada Obi", Email: "ada@example.com", Username: "ada", Password: "correct horse",
	})
	if err != nil {
		t.Fatalf("register sender: %v", err)
	}
	if err := users.SetPIN(ctx, sender.ID, "", "1234"); err != nil {
		t.Fatalf("set pin: %v", err)
	}

	other, err := users.Register(ctx, identity.Credentials{
		Name: "Bisi Ade", Email: "bisi@example.com", Username: "bisi", Password: "battery staple",
	})
	if err != nil {
		t.Fatalf("register recipient: %v", err)
	}

	ledger.SeedBalance(led, sender.WalletID, 500_000)

	pending := confirm.NewMemoryStore()
	inbox := notification.NewMemoryInbox()
	logger := slog.Default()
	dispatch := notification.NewDispatcher(inbox, notification.NewLoggerNotifier(logger), logger)

	return &fixture{
		service: NewService(users, led, pending, dispatch, logger),
		ledger:  led,
		pending: pending,
		inbox:   inbox,
		sender:  sender,
		other:   other,
	}
}

func TestExecuteTransfer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.service.Execute(ctx, Input{
		SenderID: f.sender.ID, Recipient: "bisi", Amount: 200_000, PIN: "1234", Remark: "rent",
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result.Balance != 300_000 {
		t.Errorf("sender balance = %d, want 300000", result.Balance)
	}
	if result.RecipientName != "Bisi Ade" {
		t.Errorf("recipient name = %q", result.RecipientName)
	}

	recipientWallet, err := f.ledger.Wallet(ctx, f.other.WalletID)
	if err != nil {
		t.Fatalf("recipient wallet: %v", err)
	}
	if recipientWallet.Balance != 200_000 {
		t.Errorf("recipient balance = %d, want 200000", recipientWallet.Balance)
	}

	entries, err := f.ledger.EntriesByReference(ctx, result.Reference)
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}

	// Both parties get an inbox message.
	for _, uid := range []string{f.sender.ID, f.other.ID} {
		stored, err := f.inbox.Recent(ctx, uid, 10)
		if err != nil {
			t.Fatalf("inbox for %s: %v", uid, err)
		}
		if len(stored) != 1 {
			t.Errorf("inbox for %s has %d messages, want 1", uid, len(stored))
		}
	}
}

func TestExecuteTransferRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		input Input
		want  error
	}{
		{"wrong pin", Input{SenderID: f.sender.ID, Recipient: "bisi", Amount: 1_000, PIN: "0000"}, identity.ErrInvalidPIN},
		{"zero amount", Input{SenderID: f.sender.ID, Recipient: "bisi", Amount: 0, PIN: "1234"}, ErrInvalidAmount},
		{"self transfer", Input{SenderID: f.sender.ID, Recipient: "ada", Amount: 1_000, PIN: "1234"}, ErrSelfTransfer},
		{"unknown recipient", Input{SenderID: f.sender.ID, Recipient: "nobody", Amount: 1_000, PIN: "1234"}, ErrRecipientNotFound},
		{"insufficient funds", Input{SenderID: f.sender.ID, Recipient: "bisi", Amount: 1_000_000, PIN: "1234"}, ledger.ErrInsufficientFunds},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := f.service.Execute(ctx, tc.input); !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}

	// Nothing moved.
	w, err := f.ledger.Wallet(ctx, f.sender.WalletID)
	if err != nil {
		t.Fatalf("wallet: %v", err)
	}
	if w.Balance != 500_000 {
		t.Errorf("balance = %d, want 500000 untouched", w.Balance)
	}
}

func TestProposeThenConfirm(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.service.Propose(ctx, f.sender.ID, "bisi", 100_000)
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	if p.RecipientName != "Bisi Ade" {
		t.Errorf("recipient name = %q", p.RecipientName)
	}
	if remaining := time.Until(p.ExpiresAt); remaining <= 0 || remaining > confirm.TTL {
		t.Errorf("expiry out of range: %v", remaining)
	}

	result, err := f.service.Confirm(ctx, f.sender.ID, "1234")
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if result.Amount != 100_000 || result.Balance != 400_000 {
		t.Errorf("result = %+v", result)
	}

	// The pending record is consumed.
	if _, err := f.service.Confirm(ctx, f.sender.ID, "1234"); !errors.Is(err, ErrNoPendingTransfer) {
		t.Fatalf("second confirm err = %v, want ErrNoPendingTransfer", err)
	}
}

func TestConfirmConsumesPendingOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.service.Propose(ctx, f.sender.ID, "bisi", 200_000); err != nil {
		t.Fatalf("propose: %v", err)
	}

	const racers = 4
	results := make(chan error, racers)
	var start sync.WaitGroup
	start.Add(1)
	for i := 0; i < racers; i++ {
		go func() {
			start.Wait()
			_, err := f.service.Confirm(ctx, f.sender.ID, "1234")
			results <- err
		}()
	}
	start.Done()

	var succeeded int
	for i := 0; i < racers; i++ {
		err := <-results
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrNoPendingTransfer):
		default:
			t.Errorf("unexpected confirm error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("confirms succeeded = %d, want 1", succeeded)
	}

	w, err := f.ledger.Wallet(ctx, f.other.WalletID)
	if err != nil {
		t.Fatalf("recipient wallet: %v", err)
	}
	if w.Balance != 200_000 {
		t.Errorf("recipient balance = %d, want 200000", w.Balance)
	}
}

func TestConfirmWrongPINLeavesPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.service.Propose(ctx, f.sender.ID, "bisi", 50_000); err != nil {
		t.Fatalf("propose: %v", err)
	}

	if _, err := f.service.Confirm(ctx, f.sender.ID, "9999"); !errors.Is(err, identity.ErrInvalidPIN) {
		t.Fatalf("err = %v, want ErrInvalidPIN", err)
	}

	// Retry with the right PIN still succeeds.
	if _, err := f.service.Confirm(ctx, f.sender.ID, "1234"); err != nil {
		t.Fatalf("retry confirm: %v", err)
	}
}

func TestConfirmExpired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	stale := confirm.New(f.sender.ID, 50_000, f.other.ID, "Bisi Ade")
	stale.CreatedAt = stale.CreatedAt.Add(-10 * time.Minute)
	stale.ExpiresAt = stale.ExpiresAt.Add(-10 * time.Minute)
	if err := f.pending.Put(ctx, stale); err != nil {
		t.Fatalf("put stale: %v", err)
	}

	if _, err := f.service.Confirm(ctx, f.sender.ID, "1234"); !errors.Is(err, ErrConfirmationExpired) {
		t.Fatalf("err = %v, want ErrConfirmationExpired", err)
	}

	// The stale record is gone entirely.
	if _, err := f.service.Confirm(ctx, f.sender.ID, "1234"); !errors.Is(err, ErrNoPendingTransfer) {
		t.Fatalf("err = %v, want ErrNoPendingTransfer", err)
	}
}

func TestProposeInsufficientFunds(t *testing.T) {
	f := newFixture(t)
	if _, err := f.service.Propose(context.Background(), f.sender.ID, "bisi", 10_000_000); !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("err = %v, want ErrInsufficientFunds", err)
	}
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.service.Cancel(ctx, f.sender.ID); !errors.Is(err, ErrNoPendingTransfer) {
		t.Fatalf("cancel without pending: err = %v", err)
	}

	if _, err := f.service.Propose(ctx, f.sender.ID, "bisi", 10_000); err != nil {
		t.Fatalf("propose: %v", err)
	}
	if err := f.service.Cancel(ctx, f.sender.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := f.service.Confirm(ctx, f.sender.ID, "1234"); !errors.Is(err, ErrNoPendingTransfer) {
		t.Fatalf("confirm after cancel: err = %v", err)
	}
}
