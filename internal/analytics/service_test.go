package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ile-bank/ile_bank/internal/confirm"
	"github.com/ile-bank/ile_bank/internal/identity"
	"github.com/ile-bank/ile_bank/internal/ledger"
	"github.com/ile-bank/ile_bank/internal/logging"
	"github.com/ile-bank/ile_bank/internal/notification"
	"github.com/ile-bank/ile_bank/internal/retry"
	"github.com/ile-bank/ile_bank/internal/transfer"
)

type fixture struct {
	service *Service
	user    identity.User
	ledger  ledger.Ledger
	inbox   notification.Repository
}

func newFixture(t *testing.T, url string) *fixture {
	t.Helper()
	ctx := context.Background()

	led := ledger.NewInMemory()
	users := identity.NewService(identity.NewMemoryRepository(), led)
	user, err := users.Register(ctx, identity.Credentials{
		Name: "Ada Obi", Email: "ada@example.com", Username: "ada", Password: "correct horse",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := users.Register(ctx, identity.Credentials{
		Name: "Bisi Ade", Email: "bisi@example.com", Username: "bisi", Password: "battery staple",
	}); err != nil {
		t.Fatalf("register recipient: %v", err)
	}
	ledger.SeedBalance(led, user.WalletID, 500_000)

	logger := logging.Discard()
	inbox := notification.NewMemoryInbox()
	dispatch := notification.NewDispatcher(inbox, nil, logger)
	transfers := transfer.NewService(users, led, confirm.NewMemoryStore(), dispatch, logger)

	svc := NewService(led, inbox, transfers, url, logger)
	svc.policy = retry.Policy{Attempts: 2, BaseWait: time.Millisecond, MaxWait: time.Millisecond}
	return &fixture{service: svc, user: user, ledger: led, inbox: inbox}
}

func TestExportFormatsActivity(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()

	if _, err := f.ledger.Credit(ctx, ledger.CreditArgs{
		WalletID: f.user.WalletID, UserID: f.user.ID, Amount: 250_000,
		Source: ledger.SourceDeposit, Reference: "DEP-x1",
	}); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := f.inbox.Add(ctx, notification.Message{
		RecipientID: f.user.ID, Title: "Deposit successful", Message: "Your wallet was funded with ₦2,500.00.",
	}); err != nil {
		t.Fatalf("inbox add: %v", err)
	}

	export, err := f.service.Export(ctx, f.user.ID)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	for _, want := range []string{
		"=== RECENT TRANSACTIONS ===",
		"received ₦2,500.00",
		"DEP-x1",
		"=== RECENT NOTIFICATIONS ===",
		"Deposit successful",
	} {
		if !strings.Contains(export, want) {
			t.Errorf("export missing %q:\n%s", want, export)
		}
	}
}

func TestChatRoutesTransferIntent(t *testing.T) {
	f := newFixture(t, "")

	reply, err := f.service.Chat(context.Background(), f.user.ID, "send 1000 to bisi")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if reply.Kind != "confirmation_required" {
		t.Fatalf("kind = %q", reply.Kind)
	}
	if reply.Pending == nil || reply.Pending.Amount != 100_000 {
		t.Fatalf("pending = %+v", reply.Pending)
	}
	if !strings.Contains(reply.Message, "₦1,000.00") || !strings.Contains(reply.Message, "Bisi Ade") {
		t.Errorf("message = %q", reply.Message)
	}
}

func TestChatForwardsToAnalysisService(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Message string `json:"message"`
			Context string `json:"context"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		if body.Message != "how much did I spend this week" {
			t.Errorf("message = %q", body.Message)
		}
		if !strings.Contains(body.Context, "=== RECENT TRANSACTIONS ===") {
			t.Error("context block missing")
		}
		json.NewEncoder(w).Encode(map[string]string{"reply": "You spent nothing."})
	}))
	defer srv.Close()

	f := newFixture(t, srv.URL)
	reply, err := f.service.Chat(context.Background(), f.user.ID, "how much did I spend this week")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if reply.Kind != "answer" || reply.Message != "You spent nothing." {
		t.Fatalf("reply = %+v", reply)
	}
}

func TestChatUnavailableService(t *testing.T) {
	f := newFixture(t, "")
	if _, err := f.service.Chat(context.Background(), f.user.ID, "hello there"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}
