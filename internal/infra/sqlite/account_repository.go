package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"dsa-tracker/internal/domain"
	"modernc.org/sqlite"
)

// sqlite3 extended result code SQLITE_CONSTRAINT_UNIQUE.
const constraintUnique = 2067

const createAccountsTable = `
CREATE TABLE IF NOT EXISTS accounts (
	"id" TEXT PRIMARY KEY,
	"name" TEXT NOT NULL,
	"email" TEXT NOT NULL UNIQUE COLLATE NOCASE,
	"password_hash" TEXT NOT NULL,
	"created_at" TEXT NOT NULL,
	"completed_topics" TEXT NOT NULL DEFAULT '[]'
);`

// AccountRepository stores accounts in a single SQLite file. Completions are
// kept as a JSON document per account.
type AccountRepository struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and ensures the schema exists.
func Open(ctx context.Context, path string) (*AccountRepository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// a single connection serializes writers and keeps ":memory:" databases shared
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, createAccountsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("create accounts table: %w", err)
	}
	return &AccountRepository{db: db}, nil
}

func (r *AccountRepository) Close() error {
	return r.db.Close()
}

const accountColumns = `id, name, email, password_hash, created_at, completed_topics`

func (r *AccountRepository) Create(ctx context.Context, acc domain.Account) error {
	completed, err := marshalCompleted(acc.CompletedTopics)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO accounts(`+accountColumns+`) VALUES(?, ?, ?, ?, ?, ?)`,
		acc.ID, acc.Name, acc.Email, acc.PasswordHash, acc.CreatedAt.UTC().Format(time.RFC3339Nano), completed)
	if err != nil {
		var sqliteErr *sqlite.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code() == constraintUnique {
			return domain.ErrAccountExists
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (domain.Account, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = ?`, email)
	return scanAccount(row)
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (domain.Account, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	return scanAccount(row)
}

func (r *AccountRepository) UpdateCompletion(ctx context.Context, id string, mutate func(*domain.Account) bool) (domain.Account, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Account{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	acc, err := scanAccount(tx.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id))
	if err != nil {
		return domain.Account{}, err
	}
	if !mutate(&acc) {
		return acc, nil
	}

	completed, err := marshalCompleted(acc.CompletedTopics)
	if err != nil {
		return domain.Account{}, err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE accounts SET completed_topics = ? WHERE id = ?`, completed, id); err != nil {
		return domain.Account{}, fmt.Errorf("update completion: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.Account{}, fmt.Errorf("commit: %w", err)
	}
	return acc, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (domain.Account, error) {
	var (
		acc       domain.Account
		createdAt string
		completed string
	)
	err := row.Scan(&acc.ID, &acc.Name, &acc.Email, &acc.PasswordHash, &createdAt, &completed)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Account{}, domain.ErrAccountNotFound
	}
	if err != nil {
		return domain.Account{}, fmt.Errorf("scan account: %w", err)
	}
	if acc.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return domain.Account{}, fmt.Errorf("parse created_at: %w", err)
	}
	if err := json.Unmarshal([]byte(completed), &acc.CompletedTopics); err != nil {
		return domain.Account{}, fmt.Errorf("unmarshal completed topics: %w", err)
	}
	return acc, nil
}

func marshalCompleted(completed []domain.CompletedTopic) (string, error) {
	if completed == nil {
		completed = []domain.CompletedTopic{}
	}
	raw, err := json.Marshal(completed)
	if err != nil {
		return "", fmt.Errorf("marshal completed topics: %w", err)
	}
	return string(raw), nil
}
