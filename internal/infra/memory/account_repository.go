package memory

import (
	"context"
	"strings"
	"sync"

	"dsa-tracker/internal/domain"
)

// AccountRepository keeps accounts in memory, keyed by id with an email index.
type AccountRepository struct {
	mu      sync.RWMutex
	byID    map[string]domain.Account
	byEmail map[string]string
}

func NewAccountRepository() *AccountRepository {
	return &AccountRepository{
		byID:    make(map[string]domain.Account),
		byEmail: make(map[string]string),
	}
}

func (r *AccountRepository) Create(_ context.Context, acc domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	email := strings.ToLower(acc.Email)
	if _, ok := r.byEmail[email]; ok {
		return domain.ErrAccountExists
	}
	r.byID[acc.ID] = cloneAccount(acc)
	r.byEmail[email] = acc.ID
	return nil
}

func (r *AccountRepository) GetByEmail(_ context.Context, email string) (domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[strings.ToLower(email)]
	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound
	}
	return cloneAccount(r.byID[id]), nil
}

func (r *AccountRepository) GetByID(_ context.Context, id string) (domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	acc, ok := r.byID[id]
	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound
	}
	return cloneAccount(acc), nil
}

func (r *AccountRepository) UpdateCompletion(_ context.Context, id string, mutate func(*domain.Account) bool) (domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, ok := r.byID[id]
	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound
	}
	acc = cloneAccount(acc)
	if mutate(&acc) {
		r.byID[id] = acc
	}
	return cloneAccount(acc), nil
}

// Callers must not share slices with the stored record.
func cloneAccount(acc domain.Account) domain.Account {
	if acc.CompletedTopics == nil {
		return acc
	}
	completed := make([]domain.CompletedTopic, len(acc.CompletedTopics))
	for i, ct := range acc.CompletedTopics {
		completed[i] = domain.CompletedTopic{
			TopicID:     ct.TopicID,
			SubtopicIDs: append([]int(nil), ct.SubtopicIDs...),
		}
	}
	acc.CompletedTopics = completed
	return acc
}
