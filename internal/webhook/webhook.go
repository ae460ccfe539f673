// Package webhook receives settlement events from the payment processor.
// Authenticity comes from an HMAC-SHA512 signature over the raw body;
// idempotency comes from the ledger's reference uniqueness, so redelivered
// events acknowledge without moving money twice.
package webhook

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrBadSignature indicates the payload signature did not verify.
	ErrBadSignature = errors.New("webhook signature mismatch")

	// ErrMalformedEvent indicates the payload parsed but lacks the fields a
	// settlement needs.
	ErrMalformedEvent = errors.New("malformed webhook event")
)

// EventChargeSuccess is the processor's successful-deposit event.
const EventChargeSuccess = "charge.success"

// Event is a parsed settlement notification.
type Event struct {
	Kind      string
	Reference string
	Amount    int64 // minor units
	UserID    string
	WalletID  string
}

// VerifySignature checks the hex HMAC-SHA512 of body against the signature
// header using a constant-time comparison.
func VerifySignature(secret, body []byte, signature string) error {
	mac := hmac.New(sha512.New, secret)
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrBadSignature
	}
	return nil
}

// Sign computes the hex HMAC-SHA512 signature for a payload. Used by tests
// and the deposit simulator.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha512.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

type rawEvent struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
		Amount    int64  `json:"amount"`
		Metadata  struct {
			UserID   string `json:"user_id"`
			WalletID string `json:"wallet_id"`
		} `json:"metadata"`
	} `json:"data"`
}

// ParseEvent decodes a webhook body. Only charge.success events require the
// settlement fields; other kinds pass through for acknowledgement.
func ParseEvent(body []byte) (Event, error) {
	var raw rawEvent
	if err := json.Unmarshal(body, &raw); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if raw.Event == "" {
		return Event{}, fmt.Errorf("%w: missing event kind", ErrMalformedEvent)
	}

	event := Event{
		Kind:      raw.Event,
		Reference: raw.Data.Reference,
		Amount:    raw.Data.Amount,
		UserID:    raw.Data.Metadata.UserID,
		WalletID:  raw.Data.Metadata.WalletID,
	}
	if event.Kind == EventChargeSuccess {
		if event.Reference == "" || event.Amount <= 0 || event.WalletID == "" {
			return Event{}, fmt.Errorf("%w: incomplete settlement", ErrMalformedEvent)
		}
	}
	return event, nil
}
