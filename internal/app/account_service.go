package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"dsa-tracker/internal/auth"
	"dsa-tracker/internal/domain"
	"github.com/google/uuid"
)

// AccountRepository abstracts how accounts are stored (in-memory, SQLite, Postgres).
type AccountRepository interface {
	Create(ctx context.Context, acc domain.Account) error
	GetByEmail(ctx context.Context, email string) (domain.Account, error)
	GetByID(ctx context.Context, id string) (domain.Account, error)
	// UpdateCompletion applies mutate atomically and persists the result when it reports a change.
	UpdateCompletion(ctx context.Context, id string, mutate func(*domain.Account) bool) (domain.Account, error)
}

// CatalogRepository loads the topic catalog (from cache/backing store).
type CatalogRepository interface {
	ListTopics(ctx context.Context) ([]domain.Topic, error)
}

// TokenIssuer mints bearer tokens for an account.
type TokenIssuer interface {
	IssueToken(accountID string) (string, error)
}

// AccountService contains the backend use cases behind the HTTP endpoints.
type AccountService struct {
	accounts AccountRepository
	catalog  CatalogRepository
	tokens   TokenIssuer
	now      func() time.Time
	newID    func() string
}

func NewAccountService(accounts AccountRepository, catalog CatalogRepository, tokens TokenIssuer) *AccountService {
	return &AccountService{
		accounts: accounts,
		catalog:  catalog,
		tokens:   tokens,
		now:      time.Now,
		newID:    func() string { return uuid.NewString() },
	}
}

// Signup registers a new account with no completed topics and returns a token for it.
func (s *AccountService) Signup(ctx context.Context, name, email, password string) (string, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" || email == "" || strings.TrimSpace(password) == "" {
		return "", domain.ErrMissingFields
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return "", err
	}
	acc := domain.Account{
		ID:              s.newID(),
		Name:            name,
		Email:           email,
		PasswordHash:    hash,
		CreatedAt:       s.now(),
		CompletedTopics: []domain.CompletedTopic{},
	}
	if err := s.accounts.Create(ctx, acc); err != nil {
		return "", err
	}
	return s.tokens.IssueToken(acc.ID)
}

// Login checks credentials and returns a fresh token.
func (s *AccountService) Login(ctx context.Context, email, password string) (string, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return "", domain.ErrInvalidCredentials
	}
	acc, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return "", domain.ErrInvalidCredentials
		}
		return "", err
	}
	if !auth.CheckPassword(acc.PasswordHash, password) {
		return "", domain.ErrInvalidCredentials
	}
	return s.tokens.IssueToken(acc.ID)
}

// Me returns the public view of the account.
func (s *AccountService) Me(ctx context.Context, accountID string) (domain.User, error) {
	acc, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return domain.User{}, err
	}
	return acc.Public(), nil
}

// Topics returns the full catalog.
func (s *AccountService) Topics(ctx context.Context) ([]domain.Topic, error) {
	return s.catalog.ListTopics(ctx)
}

// MarkCompletion sets the completion state of a catalog subtopic for the account.
// The server is the only place completion membership is computed.
func (s *AccountService) MarkCompletion(ctx context.Context, accountID string, c domain.Completion) (domain.User, error) {
	topics, err := s.catalog.ListTopics(ctx)
	if err != nil {
		return domain.User{}, err
	}
	if err := checkCatalog(topics, c); err != nil {
		return domain.User{}, err
	}

	acc, err := s.accounts.UpdateCompletion(ctx, accountID, func(a *domain.Account) bool {
		return a.MarkCompletion(c.TopicID, c.SubtopicID, c.IsComplete)
	})
	if err != nil {
		return domain.User{}, err
	}
	return acc.Public(), nil
}

func checkCatalog(topics []domain.Topic, c domain.Completion) error {
	for _, t := range topics {
		if t.ID != c.TopicID {
			continue
		}
		if _, ok := t.Subtopic(c.SubtopicID); !ok {
			return domain.ErrSubtopicNotFound
		}
		return nil
	}
	return domain.ErrTopicNotFound
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
