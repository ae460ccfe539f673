package processor

import (
	"context"
	"fmt"
	"sync/atomic"
)

// StaticClient is an in-process Client for development and tests. It accepts
// every request and hands back deterministic synthetic references.
type StaticClient struct {
	seq atomic.Int64

	// FailPayout makes InitiatePayout return ErrRejected when set.
	FailPayout bool
	// Unreachable makes every call return ErrUnavailable when set.
	Unreachable bool
}

// NewStaticClient returns a permissive stub connector.
func NewStaticClient() *StaticClient { return &StaticClient{} }

func (s *StaticClient) Banks(ctx context.Context) ([]Bank, error) {
	if s.Unreachable {
		return nil, ErrUnavailable
	}
	return []Bank{
		{Name: "Access Bank", Code: "044"},
		{Name: "Guaranty Trust Bank", Code: "058"},
		{Name: "Zenith Bank", Code: "057"},
	}, nil
}

func (s *StaticClient) ResolveAccount(ctx context.Context, accountNumber, bankCode string) (ResolvedAccount, error) {
	if s.Unreachable {
		return ResolvedAccount{}, ErrUnavailable
	}
	if len(accountNumber) != 10 {
		return ResolvedAccount{}, fmt.Errorf("%w: unknown account", ErrRejected)
	}
	return ResolvedAccount{AccountNumber: accountNumber, AccountName: "STATIC ACCOUNT HOLDER"}, nil
}

func (s *StaticClient) CreateRecipient(ctx context.Context, name, accountNumber, bankCode string) (Recipient, error) {
	if s.Unreachable {
		return Recipient{}, ErrUnavailable
	}
	return Recipient{Code: fmt.Sprintf("RCP_static_%d", s.seq.Add(1))}, nil
}

func (s *StaticClient) InitiatePayout(ctx context.Context, args PayoutArgs) (Payout, error) {
	if s.Unreachable {
		return Payout{}, ErrUnavailable
	}
	if s.FailPayout {
		return Payout{}, fmt.Errorf("%w: payout declined", ErrRejected)
	}
	return Payout{Reference: args.Reference, Status: "pending"}, nil
}

func (s *StaticClient) InitializeDeposit(ctx context.Context, email string, amount int64, callbackURL string, metadata map[string]string) (DepositSession, error) {
	if s.Unreachable {
		return DepositSession{}, ErrUnavailable
	}
	ref := fmt.Sprintf("DEP-static-%d", s.seq.Add(1))
	return DepositSession{
		AuthorizationURL: "https://checkout.static.local/" + ref,
		Reference:        ref,
	}, nil
}
