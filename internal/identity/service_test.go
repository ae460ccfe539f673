package identity

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ile-bank/ile_bank/internal/ledger"
)

func newTestService(t *testing.T) (*Service, ledger.Ledger) {
	t.Helper()
	led := ledger.NewInMemory()
	return NewService(NewMemoryRepository(), led), led
}

func TestRegisterProvisionsWalletAndAccountNumber(t *testing.T) {
	svc, led := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, Credentials{
		Name: "Ada", Email: "Ada@Example.com", Username: "Ada", Password: "correcthorse",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Email != "ada@example.com" || user.Username != "ada" {
		t.Fatalf("expected lowercased identifiers, got %+v", user)
	}
	if !strings.HasPrefix(user.AccountNumber, "25") || len(user.AccountNumber) != 10 {
		t.Fatalf("unexpected account number %q", user.AccountNumber)
	}
	if _, err := led.Wallet(ctx, user.WalletID); err != nil {
		t.Fatalf("wallet not provisioned: %v", err)
	}
}

func TestAuthenticate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, Credentials{Email: "ada@example.com", Password: "correcthorse"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	got, err := svc.Authenticate(ctx, "ada@example.com", "correcthorse")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if got.ID != user.ID {
		t.Fatalf("expected user %s, got %s", user.ID, got.ID)
	}

	if _, err := svc.Authenticate(ctx, "ada@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if _, err := svc.Authenticate(ctx, "nobody@example.com", "correcthorse"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials for unknown user, got %v", err)
	}
}

func TestPINLifecycle(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, Credentials{Email: "ada@example.com", Password: "correcthorse"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := svc.VerifyPIN(ctx, user.ID, "1234"); !errors.Is(err, ErrPINNotSet) {
		t.Fatalf("expected pin not set, got %v", err)
	}
	if err := svc.SetPIN(ctx, user.ID, "", "12ab"); err == nil {
		t.Fatal("expected rejection of non-numeric pin")
	}
	if err := svc.SetPIN(ctx, user.ID, "", "1234"); err != nil {
		t.Fatalf("set pin: %v", err)
	}
	if err := svc.VerifyPIN(ctx, user.ID, "1234"); err != nil {
		t.Fatalf("verify pin: %v", err)
	}
	if err := svc.VerifyPIN(ctx, user.ID, "4321"); !errors.Is(err, ErrInvalidPIN) {
		t.Fatalf("expected invalid pin, got %v", err)
	}

	// Rotation requires the current PIN.
	if err := svc.SetPIN(ctx, user.ID, "0000", "5678"); !errors.Is(err, ErrInvalidPIN) {
		t.Fatalf("expected invalid pin on rotation, got %v", err)
	}
	if err := svc.SetPIN(ctx, user.ID, "1234", "5678"); err != nil {
		t.Fatalf("rotate pin: %v", err)
	}
	if err := svc.VerifyPIN(ctx, user.ID, "5678"); err != nil {
		t.Fatalf("verify rotated pin: %v", err)
	}
}

func TestResolveByUsernameAndAccountNumber(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, Credentials{Email: "ada@example.com", Username: "ada", Password: "correcthorse"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	byName, err := svc.Resolve(ctx, "ADA")
	if err != nil || byName.ID != user.ID {
		t.Fatalf("resolve by username: %v %+v", err, byName)
	}
	byAccount, err := svc.Resolve(ctx, user.AccountNumber)
	if err != nil || byAccount.ID != user.ID {
		t.Fatalf("resolve by account number: %v %+v", err, byAccount)
	}
	if _, err := svc.Resolve(ctx, "ghost"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected user not found, got %v", err)
	}
}
