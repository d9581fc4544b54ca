package audit

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
)

// Repository is the data access contract for the activity log.
type Repository interface {
	// Log inserts an entry and sets its ID.
	Log(ctx context.Context, entry *Entry) error

	// ListByUser returns the user's most recent entries, newest first.
	ListByUser(ctx context.Context, userID string, limit int) ([]Entry, error)
}

// mariadbRepository implements Repository on the account_activity table.
type mariadbRepository struct {
	db *sql.DB
}

// NewRepository creates a repository backed by the given DB pool.
func NewRepository(db *sql.DB) Repository {
	return &mariadbRepository{db: db}
}

func (r *mariadbRepository) Log(ctx context.Context, entry *Entry) error {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO account_activity (user_id, action, ip, created_at) VALUES (?, ?, ?, ?)`,
		entry.UserID, entry.Action, entry.IP, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting activity entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting activity entry id: %w", err)
	}
	entry.ID = id
	return nil
}

func (r *mariadbRepository) ListByUser(ctx context.Context, userID string, limit int) ([]Entry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, action, ip, created_at
		 FROM account_activity
		 WHERE user_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing activity: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Action, &e.IP, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning activity entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating activity rows: %w", err)
	}
	return entries, nil
}

// MemoryRepository is an in-process Repository for BACKEND=memory.
type MemoryRepository struct {
	mu      sync.Mutex
	entries []Entry
	nextID  int64
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) Log(_ context.Context, entry *Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	entry.ID = r.nextID
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *MemoryRepository) ListByUser(_ context.Context, userID string, limit int) ([]Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Entry
	for _, e := range r.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
