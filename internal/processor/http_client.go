package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ile-bank/ile_bank/internal/retry"
)

const requestTimeout = 10 * time.Second

// HTTPClient implements Client against the processor's REST API using bearer
// authentication with the shared secret key. Transient failures are retried
// with the configured backoff policy; 4xx responses are terminal.
type HTTPClient struct {
	baseURL string
	secret  string
	http    *http.Client
	policy  retry.Policy
}

// NewHTTPClient builds a processor connector.
func NewHTTPClient(baseURL, secret string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		secret:  secret,
		http:    &http.Client{Timeout: requestTimeout},
		policy:  retry.DefaultPolicy,
	}
}

type apiEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *HTTPClient) call(ctx context.Context, method, path string, body any, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return err
		}
	}

	// Only transport failures and 5xx responses are retried. A 4xx or a
	// status:false envelope is the processor's final answer, so the retried
	// fn reports success and terminal carries the verdict out.
	var terminal error
	err := retry.Do(ctx, c.policy, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+c.secret)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		if resp.StatusCode >= 500 {
			return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
		}

		var envelope apiEnvelope
		if err := json.Unmarshal(raw, &envelope); err != nil {
			return fmt.Errorf("decode processor response: %w", err)
		}
		if resp.StatusCode >= 400 || !envelope.Status {
			terminal = fmt.Errorf("%w: %s", ErrRejected, envelope.Message)
			return nil
		}
		if out != nil {
			return json.Unmarshal(envelope.Data, out)
		}
		return nil
	})
	if err != nil {
		return err
	}
	return terminal
}

// Banks fetches the processor's bank directory.
func (c *HTTPClient) Banks(ctx context.Context) ([]Bank, error) {
	var banks []Bank
	if err := c.call(ctx, http.MethodGet, "/bank", nil, &banks); err != nil {
		return nil, err
	}
	return banks, nil
}

// ResolveAccount verifies an external account with the processor.
func (c *HTTPClient) ResolveAccount(ctx context.Context, accountNumber, bankCode string) (ResolvedAccount, error) {
	path := fmt.Sprintf("/bank/resolve?account_number=%s&bank_code=%s",
		url.QueryEscape(accountNumber), url.QueryEscape(bankCode))
	var resolved ResolvedAccount
	if err := c.call(ctx, http.MethodGet, path, nil, &resolved); err != nil {
		return ResolvedAccount{}, err
	}
	return resolved, nil
}

// CreateRecipient registers a payout destination with the processor.
func (c *HTTPClient) CreateRecipient(ctx context.Context, name, accountNumber, bankCode string) (Recipient, error) {
	body := map[string]string{
		"type":           "nuban",
		"name":           name,
		"account_number": accountNumber,
		"bank_code":      bankCode,
		"currency":       "NGN",
	}
	var data struct {
		RecipientCode string `json:"recipient_code"`
	}
	if err := c.call(ctx, http.MethodPost, "/transferrecipient", body, &data); err != nil {
		return Recipient{}, err
	}
	return Recipient{Code: data.RecipientCode}, nil
}

// InitiatePayout asks the processor to move funds to a recipient.
func (c *HTTPClient) InitiatePayout(ctx context.Context, args PayoutArgs) (Payout, error) {
	body := map[string]any{
		"source":    "balance",
		"amount":    args.Amount,
		"recipient": args.RecipientCode,
		"reference": args.Reference,
		"reason":    args.Reason,
	}
	var data struct {
		Reference string `json:"reference"`
		Status    string `json:"status"`
	}
	if err := c.call(ctx, http.MethodPost, "/transfer", body, &data); err != nil {
		return Payout{}, err
	}
	return Payout{Reference: data.Reference, Status: data.Status}, nil
}

// InitializeDeposit opens a hosted checkout session for wallet funding.
func (c *HTTPClient) InitializeDeposit(ctx context.Context, email string, amount int64, callbackURL string, metadata map[string]string) (DepositSession, error) {
	body := map[string]any{
		"email":        email,
		"amount":       amount,
		"callback_url": callbackURL,
		"metadata":     metadata,
	}
	var data struct {
		AuthorizationURL string `json:"authorization_url"`
		Reference        string `json:"reference"`
	}
	if err := c.call(ctx, http.MethodPost, "/transaction/initialize", body, &data); err != nil {
		return DepositSession{}, err
	}
	return DepositSession{AuthorizationURL: data.AuthorizationURL, Reference: data.Reference}, nil
}
