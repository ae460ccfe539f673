package identity

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/ile-bank/ile_bank/internal/ledger"
)

var (
	// ErrInvalidCredentials covers both unknown users and wrong passwords so
	// login failures are indistinguishable.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidPIN indicates the supplied transaction PIN does not match.
	ErrInvalidPIN = errors.New("invalid pin")

	// ErrPINNotSet indicates the user has not created a transaction PIN yet.
	ErrPINNotSet = errors.New("transaction pin not set")
)

var pinPattern = regexp.MustCompile(`^\d{4}$`)

// Internal account numbers start with this prefix, which also identifies
// in-house transfers on inbound payout requests.
const accountNumberPrefix = "25"

// Service manages the identity lifecycle and transaction-PIN checks.
type Service struct {
	repo   Repository
	ledger ledger.Ledger
}

// NewService creates a new identity service.
func NewService(repo Repository, l ledger.Ledger) *Service {
	return &Service{repo: repo, ledger: l}
}

// Register creates a user, provisions their wallet and assigns an internal
// account number. The transaction PIN is created separately.
func (s *Service) Register(ctx context.Context, creds Credentials) (User, error) {
	if creds.Email == "" || creds.Password == "" {
		return User{}, errors.New("email and password are required")
	}
	if len(creds.Password) < 8 {
		return User{}, errors.New("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	accountNumber, err := newAccountNumber()
	if err != nil {
		return User{}, err
	}

	user := User{
		ID:            uuid.New().String(),
		Name:          creds.Name,
		Email:         strings.ToLower(creds.Email),
		Username:      strings.ToLower(creds.Username),
		AccountNumber: accountNumber,
		PasswordHash:  hash,
		WalletID:      uuid.New().String(),
		CreatedAt:     time.Now().UTC(),
	}

	if err := s.ledger.CreateWallet(ctx, user.WalletID, user.ID); err != nil {
		return User{}, err
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return User{}, err
	}

	return user, nil
}

// Authenticate verifies login credentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (User, error) {
	user, err := s.repo.FindByEmail(ctx, strings.ToLower(email))
	if err != nil {
		return User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return user, nil
}

// Get fetches a user by id.
func (s *Service) Get(ctx context.Context, id string) (User, error) {
	return s.repo.FindByID(ctx, id)
}

// SetPIN creates or rotates the transaction PIN. Rotating requires the
// current PIN.
func (s *Service) SetPIN(ctx context.Context, userID, currentPIN, newPIN string) error {
	if !pinPattern.MatchString(newPIN) {
		return errors.New("pin must be exactly 4 digits")
	}

	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.HasPIN() {
		if currentPIN == "" {
			return errors.New("current pin is required")
		}
		if bcrypt.CompareHashAndPassword(user.PINHash, []byte(currentPIN)) != nil {
			return ErrInvalidPIN
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPIN), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.repo.UpdatePIN(ctx, userID, hash)
}

// VerifyPIN checks the transaction PIN against the stored hash.
func (s *Service) VerifyPIN(ctx context.Context, userID, pin string) error {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if !user.HasPIN() {
		return ErrPINNotSet
	}
	if bcrypt.CompareHashAndPassword(user.PINHash, []byte(pin)) != nil {
		return ErrInvalidPIN
	}
	return nil
}

// SaveBank stores verified settlement bank details.
func (s *Service) SaveBank(ctx context.Context, userID string, bank BankDetail) error {
	return s.repo.UpdateBank(ctx, userID, bank)
}

// Resolve finds a user by username or internal account number.
func (s *Service) Resolve(ctx context.Context, identifier string) (User, error) {
	identifier = strings.TrimSpace(identifier)
	if isAccountNumber(identifier) {
		return s.repo.FindByAccountNumber(ctx, identifier)
	}
	return s.repo.FindByUsername(ctx, strings.ToLower(identifier))
}

func isAccountNumber(s string) bool {
	if len(s) != 10 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func newAccountNumber() (string, error) {
	max := big.NewInt(100_000_000)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%08d", accountNumberPrefix, n), nil
}
