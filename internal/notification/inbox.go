package notification

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Stored is an in-app inbox record of a dispatched message.
type Stored struct {
	ID              string
	RecipientID     string
	Title           string
	Message         string
	ActionKind      string
	TargetReference string
	Viewed          bool
	CreatedAt       time.Time
}

// Repository is the in-app notification inbox.
type Repository interface {
	Add(ctx context.Context, message Message) error
	Recent(ctx context.Context, recipientID string, limit int) ([]Stored, error)
	MarkViewed(ctx context.Context, recipientID, id string) error
}

// PostgresRepository stores inbox records in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed inbox.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Add inserts an inbox record.
func (r *PostgresRepository) Add(ctx context.Context, m Message) error {
	_, err := r.db.Exec(ctx, `INSERT INTO notifications
        (id, recipient_id, title, message, action_kind, target_reference, viewed, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, FALSE, $7)`,
		uuid.New(), m.RecipientID, m.Title, m.Message, m.ActionKind, m.TargetReference, time.Now().UTC())
	return err
}

// Recent lists the newest records for a recipient.
func (r *PostgresRepository) Recent(ctx context.Context, recipientID string, limit int) ([]Stored, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.Query(ctx, `SELECT id, recipient_id, title, message, action_kind, target_reference, viewed, created_at
        FROM notifications WHERE recipient_id = $1 ORDER BY created_at DESC LIMIT $2`, recipientID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Stored
	for rows.Next() {
		var s Stored
		var id uuid.UUID
		var createdAt time.Time
		if err := rows.Scan(&id, &s.RecipientID, &s.Title, &s.Message, &s.ActionKind, &s.TargetReference, &s.Viewed, &createdAt); err != nil {
			return nil, err
		}
		s.ID = id.String()
		s.CreatedAt = createdAt.UTC()
		out = append(out, s)
	}
	return out, rows.Err()
}

// MarkViewed flags a record as seen.
func (r *PostgresRepository) MarkViewed(ctx context.Context, recipientID, id string) error {
	_, err := r.db.Exec(ctx, `UPDATE notifications SET viewed = TRUE WHERE id = $1 AND recipient_id = $2`, id, recipientID)
	return err
}

type memoryInbox struct {
	mu      sync.RWMutex
	records []Stored
}

// NewMemoryInbox constructs an in-memory inbox for tests.
func NewMemoryInbox() Repository {
	return &memoryInbox{}
}

func (r *memoryInbox) Add(_ context.Context, m Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, Stored{
		ID:              uuid.NewString(),
		RecipientID:     m.RecipientID,
		Title:           m.Title,
		Message:         m.Message,
		ActionKind:      m.ActionKind,
		TargetReference: m.TargetReference,
		CreatedAt:       time.Now().UTC(),
	})
	return nil
}

func (r *memoryInbox) Recent(_ context.Context, recipientID string, limit int) ([]Stored, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if limit <= 0 {
		limit = 20
	}
	var out []Stored
	for i := len(r.records) - 1; i >= 0 && len(out) < limit; i-- {
		if r.records[i].RecipientID == recipientID {
			out = append(out, r.records[i])
		}
	}
	return out, nil
}

func (r *memoryInbox) MarkViewed(_ context.Context, recipientID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.records {
		if r.records[i].ID == id && r.records[i].RecipientID == recipientID {
			r.records[i].Viewed = true
		}
	}
	return nil
}
