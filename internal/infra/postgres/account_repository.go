package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"dsa-tracker/internal/domain"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

const uniqueViolation = "23505"

// AccountRepository stores accounts in Postgres with completions as JSONB.
type AccountRepository struct {
	pool *pgxpool.Pool
}

func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

const accountColumns = `id, name, email, password_hash, created_at, completed_topics`

func (r *AccountRepository) Create(ctx context.Context, acc domain.Account) error {
	completed, err := marshalCompleted(acc.CompletedTopics)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO accounts (`+accountColumns+`) VALUES ($1, $2, $3, $4, $5, $6::jsonb)`,
		acc.ID, acc.Name, acc.Email, acc.PasswordHash, acc.CreatedAt, completed)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrAccountExists
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (domain.Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE lower(email) = lower($1)`, email)
	return scanAccount(row)
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (domain.Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	return scanAccount(row)
}

// UpdateCompletion locks the account row so concurrent toggles serialize.
func (r *AccountRepository) UpdateCompletion(ctx context.Context, id string, mutate func(*domain.Account) bool) (domain.Account, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.Account{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	acc, err := scanAccount(tx.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1 FOR UPDATE`, id))
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
	if _, err := tx.Exec(ctx, `UPDATE accounts SET completed_topics = $2::jsonb WHERE id = $1`, id, completed); err != nil {
		return domain.Account{}, fmt.Errorf("update completion: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Account{}, fmt.Errorf("commit: %w", err)
	}
	return acc, nil
}

func scanAccount(row pgx.Row) (domain.Account, error) {
	var (
		acc domain.Account
		raw []byte
	)
	err := row.Scan(&acc.ID, &acc.Name, &acc.Email, &acc.PasswordHash, &acc.CreatedAt, &raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Account{}, domain.ErrAccountNotFound
	}
	if err != nil {
		return domain.Account{}, fmt.Errorf("scan account: %w", err)
	}
	if err := json.Unmarshal(raw, &acc.CompletedTopics); err != nil {
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
