package identity

import "time"

// User represents a registered wallet owner. PasswordHash guards login;
// PINHash guards money movement and is set separately after registration.
type User struct {
	ID            string
	Name          string
	Email         string
	Username      string
	AccountNumber string
	PasswordHash  []byte
	PINHash       []byte
	WalletID      string
	TokenVersion  int
	Bank          BankDetail
	CreatedAt     time.Time
}

// BankDetail is the user's saved external settlement account.
type BankDetail struct {
	BankName      string
	BankCode      string
	AccountName   string
	AccountNumber string
}

// HasPIN reports whether a transaction PIN has been created.
func (u User) HasPIN() bool {
	return len(u.PINHash) > 0
}

// HasBank reports whether settlement bank details are on file.
func (u User) HasBank() bool {
	return u.Bank.AccountNumber != "" && u.Bank.BankCode != ""
}

// Credentials carries a registration or login request.
type Credentials struct {
	Name     string
	Email    string
	Username string
	Password string
}
