package processor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ile-bank/ile_bank/internal/retry"
)

func newTestClient(t *testing.T, handler http.Handler) (*HTTPClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewHTTPClient(srv.URL, "sk_test_secret")
	c.policy = retry.Policy{Attempts: 3, BaseWait: time.Millisecond, MaxWait: 5 * time.Millisecond}
	return c, srv
}

func TestHTTPClientResolveAccount(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sk_test_secret" {
			t.Errorf("authorization header = %q", got)
		}
		if r.URL.Path != "/bank/resolve" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("account_number"); got != "0123456789" {
			t.Errorf("account_number = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"status": true,
			"data":   map[string]string{"account_number": "0123456789", "account_name": "ADA OBI"},
		})
	}))

	resolved, err := c.ResolveAccount(context.Background(), "0123456789", "058")
	if err != nil {
		t.Fatalf("ResolveAccount: %v", err)
	}
	if resolved.AccountName != "ADA OBI" {
		t.Errorf("account name = %q", resolved.AccountName)
	}
}

func TestHTTPClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"status": true,
			"data":   []map[string]string{{"name": "Access Bank", "code": "044"}},
		})
	}))

	banks, err := c.Banks(context.Background())
	if err != nil {
		t.Fatalf("Banks after retries: %v", err)
	}
	if len(banks) != 1 || banks[0].Code != "044" {
		t.Errorf("banks = %+v", banks)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

func TestHTTPClientRejectionIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{"status": false, "message": "invalid bank code"})
	}))

	_, err := c.ResolveAccount(context.Background(), "0123456789", "000")
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("err = %v, want ErrRejected", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}

func TestHTTPClientUnavailableAfterBudget(t *testing.T) {
	var calls atomic.Int32
	c, srv := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	_ = srv

	_, err := c.Banks(context.Background())
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

func TestHTTPClientInitializeDeposit(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["email"] != "ada@example.com" {
			t.Errorf("email = %v", body["email"])
		}
		if body["amount"] != float64(500_000) {
			t.Errorf("amount = %v", body["amount"])
		}
		meta, _ := body["metadata"].(map[string]any)
		if meta["user_id"] != "u-1" {
			t.Errorf("metadata user_id = %v", meta["user_id"])
		}
		json.NewEncoder(w).Encode(map[string]any{
			"status": true,
			"data": map[string]string{
				"authorization_url": "https://checkout.example.com/abc",
				"reference":         "DEP-abc",
			},
		})
	}))

	session, err := c.InitializeDeposit(context.Background(), "ada@example.com", 500_000, "https://app.example.com/done", map[string]string{"user_id": "u-1"})
	if err != nil {
		t.Fatalf("InitializeDeposit: %v", err)
	}
	if session.Reference != "DEP-abc" {
		t.Errorf("reference = %q", session.Reference)
	}
}
