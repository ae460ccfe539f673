// Package processor talks to the external payment processor: bank directory
// lookups, account verification, payout execution and hosted deposit
// initialization. The processor settles asynchronously and reports back
// through the webhook handled by internal/webhook.
package processor

import (
	"context"
	"errors"
)

// ErrUnavailable indicates the processor could not be reached within the
// retry budget. The caller surfaces it as a terminal failure rather than
// blocking.
var ErrUnavailable = errors.New("payment processor unavailable")

// ErrRejected indicates the processor refused the request (bad account,
// failed verification). Not retryable.
var ErrRejected = errors.New("payment processor rejected request")

// Bank is one entry of the processor's bank directory.
type Bank struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

// ResolvedAccount is the processor's view of a bank account.
type ResolvedAccount struct {
	AccountNumber string `json:"account_number"`
	AccountName   string `json:"account_name"`
}

// Recipient identifies a processor-side transfer recipient.
type Recipient struct {
	Code string
}

// PayoutArgs describes an outbound settlement to an external bank account.
type PayoutArgs struct {
	RecipientCode string
	Amount        int64 // minor units
	Reference     string
	Reason        string
}

// Payout is the processor's acknowledgement of an initiated transfer.
type Payout struct {
	Reference string
	Status    string
}

// DepositSession is a hosted checkout handle for funding a wallet.
type DepositSession struct {
	AuthorizationURL string
	Reference        string
}

// Client is the contract for the processor connector. Every call takes a
// context and runs under a bounded timeout; none of them may be invoked
// while a ledger transaction is open.
type Client interface {
	Banks(ctx context.Context) ([]Bank, error)
	ResolveAccount(ctx context.Context, accountNumber, bankCode string) (ResolvedAccount, error)
	CreateRecipient(ctx context.Context, name, accountNumber, bankCode string) (Recipient, error)
	InitiatePayout(ctx context.Context, args PayoutArgs) (Payout, error)
	InitializeDeposit(ctx context.Context, email string, amount int64, callbackURL string, metadata map[string]string) (DepositSession, error)
}
