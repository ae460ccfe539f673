// Package confirm holds short-lived, single-use records for operations
// awaiting a transaction-PIN second factor. At most one record exists per
// user; storing a new one silently replaces the old. Records live for five
// minutes and expiry is enforced at read time, so a stale record is rejected
// even if no sweep has removed it yet.
package confirm

import (
	"context"
	"errors"
	"time"
)

// TTL is the fixed lifetime of a pending confirmation.
const TTL = 5 * time.Minute

var (
	// ErrNotFound indicates no confirmation is outstanding for the user.
	ErrNotFound = errors.New("no pending confirmation")

	// ErrExpired indicates the confirmation outlived its window; the stale
	// record is deleted on detection.
	ErrExpired = errors.New("confirmation expired")
)

// Pending describes a transfer proposal held until the PIN arrives.
type Pending struct {
	UserID        string    `json:"user_id"`
	Amount        int64     `json:"amount"`
	RecipientID   string    `json:"recipient_id"`
	RecipientName string    `json:"recipient_name"`
	CreatedAt     time.Time `json:"created_at"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// Store keeps pending confirmations keyed by subject user. The in-memory
// implementation is only suitable for a single engine instance; a restart
// drops in-flight confirmations. The Redis implementation survives restarts
// and serves multi-instance deployments.
type Store interface {
	Put(ctx context.Context, p Pending) error
	Get(ctx context.Context, userID string) (Pending, error)
	// Take atomically removes and returns the user's confirmation. Exactly
	// one of several concurrent callers receives the record; the rest get
	// ErrNotFound.
	Take(ctx context.Context, userID string) (Pending, error)
	Delete(ctx context.Context, userID string) error
}

// New stamps a Pending with its creation and expiry times.
func New(userID string, amount int64, recipientID, recipientName string) Pending {
	now := time.Now().UTC()
	return Pending{
		UserID:        userID,
		Amount:        amount,
		RecipientID:   recipientID,
		RecipientName: recipientName,
		CreatedAt:     now,
		ExpiresAt:     now.Add(TTL),
	}
}
