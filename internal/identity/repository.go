package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrUserNotFound indicates no user matches the lookup.
var ErrUserNotFound = errors.New("user not found")

// Repository persists users.
type Repository interface {
	Create(ctx context.Context, user User) error
	FindByID(ctx context.Context, id string) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
	FindByUsername(ctx context.Context, username string) (User, error)
	FindByAccountNumber(ctx context.Context, accountNumber string) (User, error)
	UpdatePIN(ctx context.Context, id string, pinHash []byte) error
	UpdateBank(ctx context.Context, id string, bank BankDetail) error
	UpdateTokenVersion(ctx context.Context, id string, version int) error
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed identity repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, name, email, username, account_number, password_hash, pin_hash, wallet_id,
    token_version, bank_name, bank_code, bank_account_name, bank_account_number, created_at`

// Create inserts a new user.
func (r *PostgresRepository) Create(ctx context.Context, user User) error {
	userID, err := uuid.Parse(user.ID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO users
        (id, name, email, username, account_number, password_hash, pin_hash, wallet_id,
         token_version, bank_name, bank_code, bank_account_name, bank_account_number, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		userID, user.Name, user.Email, user.Username, user.AccountNumber, user.PasswordHash,
		user.PINHash, user.WalletID, user.TokenVersion, user.Bank.BankName, user.Bank.BankCode,
		user.Bank.AccountName, user.Bank.AccountNumber, user.CreatedAt.UTC())
	return err
}

func (r *PostgresRepository) findOne(ctx context.Context, where string, arg any) (User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg)
	var (
		u         User
		id        uuid.UUID
		createdAt time.Time
	)
	err := row.Scan(&id, &u.Name, &u.Email, &u.Username, &u.AccountNumber, &u.PasswordHash,
		&u.PINHash, &u.WalletID, &u.TokenVersion, &u.Bank.BankName, &u.Bank.BankCode,
		&u.Bank.AccountName, &u.Bank.AccountNumber, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, err
	}
	u.ID = id.String()
	u.CreatedAt = createdAt.UTC()
	return u, nil
}

// FindByID fetches a user by identifier.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (User, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return User{}, ErrUserNotFound
	}
	return r.findOne(ctx, `id = $1`, userID)
}

// FindByEmail fetches a user by email.
func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (User, error) {
	return r.findOne(ctx, `email = $1`, email)
}

// FindByUsername fetches a user by username.
func (r *PostgresRepository) FindByUsername(ctx context.Context, username string) (User, error) {
	return r.findOne(ctx, `username = $1`, username)
}

// FindByAccountNumber fetches a user by internal account number.
func (r *PostgresRepository) FindByAccountNumber(ctx context.Context, accountNumber string) (User, error) {
	return r.findOne(ctx, `account_number = $1`, accountNumber)
}

// UpdatePIN stores a new transaction PIN hash.
func (r *PostgresRepository) UpdatePIN(ctx context.Context, id string, pinHash []byte) error {
	return r.updateOne(ctx, `UPDATE users SET pin_hash = $1 WHERE id = $2`, pinHash, id)
}

// UpdateBank stores verified settlement bank details.
func (r *PostgresRepository) UpdateBank(ctx context.Context, id string, bank BankDetail) error {
	userID, err := uuid.Parse(id)
	if err != nil {
		return ErrUserNotFound
	}
	tag, err := r.db.Exec(ctx, `UPDATE users SET bank_name = $1, bank_code = $2,
        bank_account_name = $3, bank_account_number = $4 WHERE id = $5`,
		bank.BankName, bank.BankCode, bank.AccountName, bank.AccountNumber, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// UpdateTokenVersion bumps the token version, invalidating older tokens.
func (r *PostgresRepository) UpdateTokenVersion(ctx context.Context, id string, version int) error {
	return r.updateOne(ctx, `UPDATE users SET token_version = $1 WHERE id = $2`, version, id)
}

func (r *PostgresRepository) updateOne(ctx context.Context, query string, value any, id string) error {
	userID, err := uuid.Parse(id)
	if err != nil {
		return ErrUserNotFound
	}
	tag, err := r.db.Exec(ctx, query, value, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}
