package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresLedger persists wallets, entries and savings locks in PostgreSQL.
// Each mutating operation runs in a single transaction; wallet rows are taken
// FOR UPDATE so the funds check and the balance write cannot interleave with
// a concurrent mutation of the same wallet.
type PostgresLedger struct {
	db *pgxpool.Pool
}

// NewPostgresLedger constructs a Postgres-backed ledger implementation.
func NewPostgresLedger(db *pgxpool.Pool) *PostgresLedger {
	return &PostgresLedger{db: db}
}

type lockedWallet struct {
	id      uuid.UUID
	balance int64
	inflow  int64
	outflow int64
	locked  bool
}

func walletForUpdate(ctx context.Context, tx pgx.Tx, walletID string) (lockedWallet, error) {
	id, err := uuid.Parse(walletID)
	if err != nil {
		return lockedWallet{}, ErrWalletNotFound
	}
	var w lockedWallet
	err = tx.QueryRow(ctx, `SELECT id, balance, inflow, outflow, locked FROM wallets WHERE id = $1 FOR UPDATE`, id).
		Scan(&w.id, &w.balance, &w.inflow, &w.outflow, &w.locked)
	if errors.Is(err, pgx.ErrNoRows) {
		return lockedWallet{}, ErrWalletNotFound
	}
	return w, err
}

func insertEntry(ctx context.Context, tx pgx.Tx, e Entry) error {
	_, err := tx.Exec(ctx, `INSERT INTO entries
        (id, wallet_id, user_id, amount, direction, status, source, reference, detail, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		uuid.New(), e.WalletID, e.UserID, e.Amount, e.Direction, e.Status, e.Source, e.Reference, e.Detail, e.CreatedAt)
	return err
}

func referenceExists(ctx context.Context, tx pgx.Tx, reference string, direction Direction) (string, Status, bool, error) {
	var id uuid.UUID
	var status Status
	err := tx.QueryRow(ctx, `SELECT id, status FROM entries WHERE reference = $1 AND direction = $2`, reference, direction).
		Scan(&id, &status)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", "", false, nil
	}
	if err != nil {
		return "", "", false, err
	}
	return id.String(), status, true, nil
}

func applyDelta(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, delta int64) (int64, error) {
	var balance int64
	column := "inflow"
	if delta < 0 {
		column = "outflow"
	}
	stream := delta
	if stream < 0 {
		stream = -stream
	}
	err := tx.QueryRow(ctx, fmt.Sprintf(`UPDATE wallets SET balance = balance + $1, %s = %s + $2
        WHERE id = $3 RETURNING balance`, column, column), delta, stream, walletID).Scan(&balance)
	return balance, err
}

// CreateWallet inserts a zero-balance wallet for the owner.
func (l *PostgresLedger) CreateWallet(ctx context.Context, walletID, ownerID string) error {
	wid, err := uuid.Parse(walletID)
	if err != nil {
		return err
	}
	oid, err := uuid.Parse(ownerID)
	if err != nil {
		return err
	}
	_, err = l.db.Exec(ctx, `INSERT INTO wallets (id, owner_id, balance, inflow, outflow, locked, created_at)
        VALUES ($1, $2, 0, 0, 0, FALSE, $3)`, wid, oid, time.Now().UTC())
	return err
}

// Wallet fetches the balance record without taking locks; the result is a
// snapshot and not authoritative inside a mutating operation.
func (l *PostgresLedger) Wallet(ctx context.Context, walletID string) (Wallet, error) {
	id, err := uuid.Parse(walletID)
	if err != nil {
		return Wallet{}, ErrWalletNotFound
	}
	row := l.db.QueryRow(ctx, `SELECT id, owner_id, balance, inflow, outflow, locked, created_at
        FROM wallets WHERE id = $1`, id)
	var w Wallet
	var wid, oid uuid.UUID
	var createdAt time.Time
	if err := row.Scan(&wid, &oid, &w.Balance, &w.Inflow, &w.Outflow, &w.Locked, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Wallet{}, ErrWalletNotFound
		}
		return Wallet{}, err
	}
	w.ID = wid.String()
	w.OwnerID = oid.String()
	w.CreatedAt = createdAt.UTC()
	return w, nil
}

// SetLocked flags or unflags a wallet for reconciliation.
func (l *PostgresLedger) SetLocked(ctx context.Context, walletID string, locked bool) error {
	id, err := uuid.Parse(walletID)
	if err != nil {
		return ErrWalletNotFound
	}
	tag, err := l.db.Exec(ctx, `UPDATE wallets SET locked = $1 WHERE id = $2`, locked, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrWalletNotFound
	}
	return nil
}

// Transfer debits the sender, credits the recipient and writes the entry pair
// in one transaction. Wallet rows are locked in id order so two opposing
// transfers cannot deadlock.
func (l *PostgresLedger) Transfer(ctx context.Context, args TransferArgs) (TransferResult, error) {
	if args.Amount <= 0 {
		return TransferResult{}, fmt.Errorf("amount must be positive")
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return TransferResult{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	first, second := args.FromWalletID, args.ToWalletID
	if second < first {
		first, second = second, first
	}
	if _, err := walletForUpdate(ctx, tx, first); err != nil {
		return TransferResult{}, err
	}
	if _, err := walletForUpdate(ctx, tx, second); err != nil {
		return TransferResult{}, err
	}

	from, err := walletForUpdate(ctx, tx, args.FromWalletID)
	if err != nil {
		return TransferResult{}, err
	}
	if from.locked {
		return TransferResult{}, ErrWalletLocked
	}
	if from.balance < args.Amount {
		return TransferResult{}, ErrInsufficientFunds
	}

	if _, _, exists, err := referenceExists(ctx, tx, args.Reference, DirectionDebit); err != nil {
		return TransferResult{}, err
	} else if exists {
		return TransferResult{}, ErrDuplicateReference
	}

	to, err := walletForUpdate(ctx, tx, args.ToWalletID)
	if err != nil {
		return TransferResult{}, err
	}

	fromBalance, err := applyDelta(ctx, tx, from.id, -args.Amount)
	if err != nil {
		return TransferResult{}, err
	}
	toBalance, err := applyDelta(ctx, tx, to.id, args.Amount)
	if err != nil {
		return TransferResult{}, err
	}

	now := time.Now().UTC()
	if err := insertEntry(ctx, tx, Entry{
		WalletID: args.FromWalletID, UserID: args.FromUserID, Amount: args.Amount,
		Direction: DirectionDebit, Status: StatusCompleted, Source: SourceTransfer,
		Reference: args.Reference, Detail: args.FromDetail, CreatedAt: now,
	}); err != nil {
		return TransferResult{}, err
	}
	if err := insertEntry(ctx, tx, Entry{
		WalletID: args.ToWalletID, UserID: args.ToUserID, Amount: args.Amount,
		Direction: DirectionCredit, Status: StatusCompleted, Source: SourceTransfer,
		Reference: args.Reference, Detail: args.ToDetail, CreatedAt: now,
	}); err != nil {
		return TransferResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return TransferResult{}, err
	}

	return TransferResult{Reference: args.Reference, FromBalance: fromBalance, ToBalance: toBalance}, nil
}

// PendingCredit records a deposit awaiting settlement without touching the
// balance. The webhook completes it later.
func (l *PostgresLedger) PendingCredit(ctx context.Context, args CreditArgs) error {
	if args.Amount <= 0 {
		return fmt.Errorf("amount must be positive")
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if _, err := walletForUpdate(ctx, tx, args.WalletID); err != nil {
		return err
	}
	if _, _, exists, err := referenceExists(ctx, tx, args.Reference, DirectionCredit); err != nil {
		return err
	} else if exists {
		return ErrDuplicateReference
	}

	if err := insertEntry(ctx, tx, Entry{
		WalletID: args.WalletID, UserID: args.UserID, Amount: args.Amount,
		Direction: DirectionCredit, Status: StatusPending, Source: args.Source,
		Reference: args.Reference, Detail: args.Detail, CreatedAt: time.Now().UTC(),
	}); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// Credit applies an inbound settlement exactly once per reference. A pending
// entry for the reference transitions to completed; a completed one makes the
// call a no-op signalled by ErrDuplicateReference.
func (l *PostgresLedger) Credit(ctx context.Context, args CreditArgs) (CreditResult, error) {
	if args.Amount <= 0 {
		return CreditResult{}, fmt.Errorf("amount must be positive")
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return CreditResult{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	w, err := walletForUpdate(ctx, tx, args.WalletID)
	if err != nil {
		return CreditResult{}, err
	}

	entryID, status, exists, err := referenceExists(ctx, tx, args.Reference, DirectionCredit)
	if err != nil {
		return CreditResult{}, err
	}
	if exists && status == StatusCompleted {
		return CreditResult{Reference: args.Reference, Balance: w.balance}, ErrDuplicateReference
	}

	if exists {
		// The settled amount is authoritative; the pending entry recorded at
		// initialization time is updated to match what credits the balance.
		if _, err := tx.Exec(ctx, `UPDATE entries SET status = $1, amount = $2 WHERE id = $3`, StatusCompleted, args.Amount, entryID); err != nil {
			return CreditResult{}, err
		}
	} else if err := insertEntry(ctx, tx, Entry{
		WalletID: args.WalletID, UserID: args.UserID, Amount: args.Amount,
		Direction: DirectionCredit, Status: StatusCompleted, Source: args.Source,
		Reference: args.Reference, Detail: args.Detail, CreatedAt: time.Now().UTC(),
	}); err != nil {
		return CreditResult{}, err
	}

	balance, err := applyDelta(ctx, tx, w.id, args.Amount)
	if err != nil {
		return CreditResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return CreditResult{}, err
	}

	return CreditResult{Reference: args.Reference, Balance: balance}, nil
}

// Debit posts an outbound movement. Unless forced, the wallet must be
// unlocked and hold sufficient funds at the moment the row lock is held.
func (l *PostgresLedger) Debit(ctx context.Context, args DebitArgs) (DebitResult, error) {
	if args.Amount <= 0 {
		return DebitResult{}, fmt.Errorf("amount must be positive")
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return DebitResult{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	w, err := walletForUpdate(ctx, tx, args.WalletID)
	if err != nil {
		return DebitResult{}, err
	}
	if !args.Force {
		if w.locked {
			return DebitResult{}, ErrWalletLocked
		}
		if w.balance < args.Amount {
			return DebitResult{}, ErrInsufficientFunds
		}
	}

	if _, _, exists, err := referenceExists(ctx, tx, args.Reference, DirectionDebit); err != nil {
		return DebitResult{}, err
	} else if exists {
		return DebitResult{}, ErrDuplicateReference
	}

	balance, err := applyDelta(ctx, tx, w.id, -args.Amount)
	if err != nil {
		return DebitResult{}, err
	}

	if err := insertEntry(ctx, tx, Entry{
		WalletID: args.WalletID, UserID: args.UserID, Amount: args.Amount,
		Direction: DirectionDebit, Status: StatusCompleted, Source: args.Source,
		Reference: args.Reference, Detail: args.Detail, CreatedAt: time.Now().UTC(),
	}); err != nil {
		return DebitResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return DebitResult{}, err
	}

	return DebitResult{Reference: args.Reference, Balance: balance}, nil
}

// LockSavings withholds funds from the wallet and opens an active savings
// lock, with the ledger entry written in the same transaction.
func (l *PostgresLedger) LockSavings(ctx context.Context, args SavingsArgs) (SavingsResult, error) {
	if args.Amount <= 0 {
		return SavingsResult{}, fmt.Errorf("amount must be positive")
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return SavingsResult{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	w, err := walletForUpdate(ctx, tx, args.WalletID)
	if err != nil {
		return SavingsResult{}, err
	}
	if w.locked {
		return SavingsResult{}, ErrWalletLocked
	}
	if w.balance < args.Amount {
		return SavingsResult{}, ErrInsufficientFunds
	}

	now := time.Now().UTC()
	lockID := uuid.New()
	if _, err := tx.Exec(ctx, `INSERT INTO savings (id, wallet_id, user_id, amount, duration, start_date, status)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		lockID, args.WalletID, args.UserID, args.Amount, args.Duration, now, SavingsActive); err != nil {
		return SavingsResult{}, err
	}

	balance, err := applyDelta(ctx, tx, w.id, -args.Amount)
	if err != nil {
		return SavingsResult{}, err
	}

	if err := insertEntry(ctx, tx, Entry{
		WalletID: args.WalletID, UserID: args.UserID, Amount: args.Amount,
		Direction: DirectionDebit, Status: StatusCompleted, Source: SourceSavingsLock,
		Reference: args.Reference, Detail: args.Detail, CreatedAt: now,
	}); err != nil {
		return SavingsResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return SavingsResult{}, err
	}

	return SavingsResult{LockID: lockID.String(), Balance: balance, StartDate: now}, nil
}

// BreakSavings ends an active lock early, credits the wallet with the
// principal minus penalty and records the break entry. The lock stays active
// if any step fails.
func (l *PostgresLedger) BreakSavings(ctx context.Context, args BreakArgs) (BreakResult, error) {
	lockID, err := uuid.Parse(args.LockID)
	if err != nil {
		return BreakResult{}, ErrSavingsNotFound
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return BreakResult{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	var walletID, userID uuid.UUID
	var amount int64
	var status string
	err = tx.QueryRow(ctx, `SELECT wallet_id, user_id, amount, status FROM savings WHERE id = $1 FOR UPDATE`, lockID).
		Scan(&walletID, &userID, &amount, &status)
	if errors.Is(err, pgx.ErrNoRows) {
		return BreakResult{}, ErrSavingsNotFound
	}
	if err != nil {
		return BreakResult{}, err
	}
	if userID.String() != args.UserID {
		return BreakResult{}, ErrSavingsNotFound
	}
	if status != SavingsActive {
		return BreakResult{}, ErrSavingsNotActive
	}

	w, err := walletForUpdate(ctx, tx, walletID.String())
	if err != nil {
		return BreakResult{}, err
	}

	penalty := amount * args.PenaltyBps / 10_000
	payout := amount - penalty

	if _, err := tx.Exec(ctx, `UPDATE savings SET status = $1 WHERE id = $2`, SavingsBroken, lockID); err != nil {
		return BreakResult{}, err
	}

	balance, err := applyDelta(ctx, tx, w.id, payout)
	if err != nil {
		return BreakResult{}, err
	}

	if err := insertEntry(ctx, tx, Entry{
		WalletID: walletID.String(), UserID: args.UserID, Amount: amount,
		Direction: DirectionCredit, Status: StatusCompleted, Source: SourceSavingsBreak,
		Reference: args.Reference, Detail: args.Detail, CreatedAt: time.Now().UTC(),
	}); err != nil {
		return BreakResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return BreakResult{}, err
	}

	return BreakResult{LockID: args.LockID, Principal: amount, Penalty: penalty, Payout: payout, Balance: balance}, nil
}

// SavingsByUser lists the user's locks, most recent first.
func (l *PostgresLedger) SavingsByUser(ctx context.Context, userID string) ([]SavingsLock, error) {
	rows, err := l.db.Query(ctx, `SELECT id, wallet_id, user_id, amount, duration, start_date, status
        FROM savings WHERE user_id = $1 ORDER BY start_date DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var locks []SavingsLock
	for rows.Next() {
		var lock SavingsLock
		var id, wid, uid uuid.UUID
		var start time.Time
		if err := rows.Scan(&id, &wid, &uid, &lock.Amount, &lock.Duration, &start, &lock.Status); err != nil {
			return nil, err
		}
		lock.ID = id.String()
		lock.WalletID = wid.String()
		lock.UserID = uid.String()
		lock.StartDate = start.UTC()
		locks = append(locks, lock)
	}
	return locks, rows.Err()
}

// EntriesByReference returns every entry recorded under the reference.
func (l *PostgresLedger) EntriesByReference(ctx context.Context, reference string) ([]Entry, error) {
	rows, err := l.db.Query(ctx, `SELECT id, wallet_id, user_id, amount, direction, status, source, reference, detail, created_at
        FROM entries WHERE reference = $1 ORDER BY created_at`, reference)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

// History lists the user's entries, most recent first.
func (l *PostgresLedger) History(ctx context.Context, userID string, q HistoryQuery) ([]Entry, error) {
	query := `SELECT id, wallet_id, user_id, amount, direction, status, source, reference, detail, created_at
        FROM entries WHERE user_id = $1`
	params := []any{userID}
	if q.Source != "" {
		query += ` AND source = $2`
		params = append(params, q.Source)
	}
	query += ` ORDER BY created_at DESC`
	if q.Limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, q.Limit)
	}

	rows, err := l.db.Query(ctx, query, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

func scanEntries(rows pgx.Rows) ([]Entry, error) {
	var out []Entry
	for rows.Next() {
		var e Entry
		var id, wid, uid uuid.UUID
		var createdAt time.Time
		if err := rows.Scan(&id, &wid, &uid, &e.Amount, &e.Direction, &e.Status, &e.Source, &e.Reference, &e.Detail, &createdAt); err != nil {
			return nil, err
		}
		e.ID = id.String()
		e.WalletID = wid.String()
		e.UserID = uid.String()
		e.CreatedAt = createdAt.UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}
