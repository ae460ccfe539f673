package payout

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ile-bank/ile_bank/internal/identity"
	"github.com/ile-bank/ile_bank/internal/ledger"
	"github.com/ile-bank/ile_bank/internal/logging"
	"github.com/ile-bank/ile_bank/internal/notification"
	"github.com/ile-bank/ile_bank/internal/processor"
)

func newTestService(t *testing.T, led ledger.Ledger, proc processor.Client) (*Service, identity.User, *identity.Service) {
	t.Helper()
	ctx := context.Background()

	users := identity.NewService(identity.NewMemoryRepository(), led)
	user, err := users.Register(ctx, identity.Credentials{
		Email: "ada@example.com", Username: "ada", Password: "correct horse",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := users.SetPIN(ctx, user.ID, "", "1234"); err != nil {
		t.Fatalf("set pin: %v", err)
	}
	ledger.SeedBalance(led, user.WalletID, 500_000)

	logger := logging.Discard()
	dispatch := notification.NewDispatcher(notification.NewMemoryInbox(), nil, logger)
	return NewService(users, led, proc, dispatch, logger), user, users
}

func saveTestBank(t *testing.T, svc *Service, userID string) {
	t.Helper()
	if _, err := svc.SaveBank(context.Background(), userID, "Access Bank", "044", "0123456789"); err != nil {
		t.Fatalf("save bank: %v", err)
	}
}

func TestWithdraw(t *testing.T) {
	led := ledger.NewInMemory()
	svc, user, _ := newTestService(t, led, processor.NewStaticClient())
	saveTestBank(t, svc, user.ID)
	ctx := context.Background()

	result, err := svc.Withdraw(ctx, user.ID, "1234", 200_000)
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if result.Balance != 300_000 {
		t.Errorf("balance = %d, want 300000", result.Balance)
	}
	if !strings.HasPrefix(result.Reference, "WDR-") {
		t.Errorf("reference = %q", result.Reference)
	}

	entries, err := led.EntriesByReference(ctx, result.Reference)
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 1 || entries[0].Source != ledger.SourceWithdrawal {
		t.Fatalf("entries = %+v", entries)
	}
}

func TestWithdrawRejections(t *testing.T) {
	led := ledger.NewInMemory()
	svc, user, _ := newTestService(t, led, processor.NewStaticClient())
	ctx := context.Background()

	// No bank on file yet.
	if _, err := svc.Withdraw(ctx, user.ID, "1234", 1_000); !errors.Is(err, ErrNoBankDetails) {
		t.Fatalf("err = %v, want ErrNoBankDetails", err)
	}

	saveTestBank(t, svc, user.ID)
	cases := []struct {
		name   string
		pin    string
		amount int64
		want   error
	}{
		{"zero amount", "1234", 0, ErrInvalidAmount},
		{"wrong pin", "0000", 1_000, identity.ErrInvalidPIN},
		{"insufficient funds", "1234", 5_000_000, ledger.ErrInsufficientFunds},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Withdraw(ctx, user.ID, tc.pin, tc.amount); !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}

	// Nothing left the wallet.
	w, _ := led.Wallet(ctx, user.WalletID)
	if w.Balance != 500_000 {
		t.Errorf("balance = %d, want 500000", w.Balance)
	}
}

func TestWithdrawProcessorRejection(t *testing.T) {
	led := ledger.NewInMemory()
	proc := processor.NewStaticClient()
	proc.FailPayout = true
	svc, user, _ := newTestService(t, led, proc)
	saveTestBank(t, svc, user.ID)

	if _, err := svc.Withdraw(context.Background(), user.ID, "1234", 1_000); !errors.Is(err, processor.ErrRejected) {
		t.Fatalf("err = %v, want ErrRejected", err)
	}
	w, _ := led.Wallet(context.Background(), user.WalletID)
	if w.Balance != 500_000 {
		t.Errorf("balance = %d, want 500000 untouched", w.Balance)
	}
}

// debitRefusingLedger accepts only forced debits, simulating a bookkeeping
// failure after the processor already moved the money.
type debitRefusingLedger struct {
	ledger.Ledger
}

func (l *debitRefusingLedger) Debit(ctx context.Context, args ledger.DebitArgs) (ledger.DebitResult, error) {
	if !args.Force {
		return ledger.DebitResult{}, errors.New("storage unavailable")
	}
	return l.Ledger.Debit(ctx, args)
}

func TestWithdrawReconciliation(t *testing.T) {
	inner := ledger.NewInMemory()
	led := &debitRefusingLedger{Ledger: inner}
	svc, user, _ := newTestService(t, led, processor.NewStaticClient())
	ledger.SeedBalance(inner, user.WalletID, 500_000)
	saveTestBank(t, svc, user.ID)
	ctx := context.Background()

	_, err := svc.Withdraw(ctx, user.ID, "1234", 200_000)
	if !errors.Is(err, ErrReconciliationRequired) {
		t.Fatalf("err = %v, want ErrReconciliationRequired", err)
	}

	// The payout was force-recorded and the wallet is locked.
	w, err := inner.Wallet(ctx, user.WalletID)
	if err != nil {
		t.Fatalf("wallet: %v", err)
	}
	if !w.Locked {
		t.Error("wallet should be locked for reconciliation")
	}
	if w.Balance != 300_000 {
		t.Errorf("balance = %d, want 300000 after forced record", w.Balance)
	}
}

func TestSaveBankStoresResolvedName(t *testing.T) {
	led := ledger.NewInMemory()
	svc, user, users := newTestService(t, led, processor.NewStaticClient())

	detail, err := svc.SaveBank(context.Background(), user.ID, "Access Bank", "044", "0123456789")
	if err != nil {
		t.Fatalf("save bank: %v", err)
	}
	if detail.AccountName == "" {
		t.Error("account name should come from the processor resolve")
	}

	stored, err := users.Get(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if !stored.HasBank() {
		t.Error("bank details not persisted")
	}
}
