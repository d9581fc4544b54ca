package backend

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
)

// mysqlDuplicateEntry is the MariaDB/MySQL error number for a unique key
// violation.
const mysqlDuplicateEntry = 1062

var (
	_ AccountRepository = (*MariaDBAccounts)(nil)
	_ Store             = (*MariaDBStore)(nil)
)

// MariaDBAccounts implements AccountRepository with hand-written queries
// against the accounts table.
type MariaDBAccounts struct {
	db *sql.DB
}

// NewMariaDBAccounts creates an account repository on the given pool.
func NewMariaDBAccounts(db *sql.DB) *MariaDBAccounts {
	return &MariaDBAccounts{db: db}
}

// Create inserts a new account row. A duplicate email reports
// CodeEmailAlreadyInUse, which covers the race between EmailExists and
// the insert.
func (r *MariaDBAccounts) Create(ctx context.Context, account *Account) error {
	query := `INSERT INTO accounts (uid, email, password_hash, created_at)
	          VALUES (?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		account.UID,
		account.Email,
		account.PasswordHash,
		account.CreatedAt,
	)
	if err != nil {
		var myErr *mysql.MySQLError
		if errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry {
			return newError(CodeEmailAlreadyInUse, err)
		}
		return fmt.Errorf("inserting account: %w", err)
	}
	return nil
}

// FindByEmail returns the account for email or CodeUserNotFound.
func (r *MariaDBAccounts) FindByEmail(ctx context.Context, email string) (*Account, error) {
	query := `SELECT uid, email, password_hash, created_at, last_login_at
	          FROM accounts WHERE email = ?`

	a := &Account{}
	err := r.db.QueryRowContext(ctx, query, email).Scan(
		&a.UID,
		&a.Email,
		&a.PasswordHash,
		&a.CreatedAt,
		&a.LastLoginAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, newError(CodeUserNotFound, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("querying account by email: %w", err)
	}
	return a, nil
}

// EmailExists reports whether an account with email exists.
func (r *MariaDBAccounts) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM accounts WHERE email = ?)`, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking email existence: %w", err)
	}
	return exists, nil
}

// UpdateLastLogin stamps last_login_at.
func (r *MariaDBAccounts) UpdateLastLogin(ctx context.Context, uid string, at time.Time) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE accounts SET last_login_at = ? WHERE uid = ?`, at, uid); err != nil {
		return fmt.Errorf("updating last login: %w", err)
	}
	return nil
}

// MariaDBStore implements Store on the documents table. Each document is
// a JSON column keyed by (collection, id). Server timestamps are taken
// from the database clock inside the write transaction.
type MariaDBStore struct {
	db *sql.DB
}

// NewMariaDBStore creates a document store on the given pool.
func NewMariaDBStore(db *sql.DB) *MariaDBStore {
	return &MariaDBStore{db: db}
}

// Get returns the document or CodeNotFound.
func (s *MariaDBStore) Get(ctx context.Context, collection, id string) (Document, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM documents WHERE collection = ? AND id = ?`,
		collection, id,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, newError(CodeNotFound, nil)
	}
	if err != nil {
		return nil, internalError("querying document: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, internalError("decoding document: %w", err)
	}
	return doc, nil
}

// Set writes the document in a transaction. With merge the current row is
// locked, decoded and overlaid before writing back.
func (s *MariaDBStore) Set(ctx context.Context, collection, id string, doc Document, merge bool) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return internalError("beginning transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var now time.Time
	if err := tx.QueryRowContext(ctx, `SELECT UTC_TIMESTAMP(6)`).Scan(&now); err != nil {
		return internalError("reading server time: %w", err)
	}
	resolved := resolveFieldValues(doc, now)

	if merge {
		var raw []byte
		err := tx.QueryRowContext(ctx,
			`SELECT data FROM documents WHERE collection = ? AND id = ? FOR UPDATE`,
			collection, id,
		).Scan(&raw)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return internalError("locking document: %w", err)
		default:
			var current Document
			if err := json.Unmarshal(raw, &current); err != nil {
				return internalError("decoding document: %w", err)
			}
			resolved = mergeDocuments(current, resolved)
		}
	}

	data, err := json.Marshal(resolved)
	if err != nil {
		return internalError("encoding document: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO documents (collection, id, data, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON DUPLICATE KEY UPDATE data = VALUES(data), updated_at = VALUES(updated_at)`,
		collection, id, data, now, now,
	)
	if err != nil {
		return internalError("writing document: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return internalError("committing document: %w", err)
	}
	return nil
}
