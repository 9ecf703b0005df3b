package app

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"dsa-tracker/internal/domain"
	"dsa-tracker/internal/log"
)

// Durable storage keys.
const (
	UserKey  = "user"
	TokenKey = "token"
)

// Storage abstracts the durable key-value store behind a session (file, Redis, etc).
type Storage interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// UserFetcher resolves the user behind the stored token.
type UserFetcher interface {
	GetUserData(ctx context.Context) (domain.User, error)
}

// Snapshot is a copy of the session state handed to subscribers.
type Snapshot struct {
	User           *domain.User
	LoginModalOpen bool
	SelectedTab    domain.AuthTab
	IsLoading      bool
}

// Session is the single source of truth for who is logged in plus the transient
// UI flags. Every mutation is atomic, but concurrent writers are not ordered:
// the last write wins.
type Session struct {
	storage Storage

	mu             sync.RWMutex
	user           *domain.User
	loginModalOpen bool
	selectedTab    domain.AuthTab
	isLoading      bool
	subscribers    map[chan Snapshot]struct{}
}

func NewSession(storage Storage) *Session {
	return &Session{
		storage:     storage,
		selectedTab: domain.TabSignup,
		subscribers: make(map[chan Snapshot]struct{}),
	}
}

// User returns a copy of the current user, or nil when logged out.
func (s *Session) User() *domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyUser(s.user)
}

func (s *Session) LoginModalOpen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loginModalOpen
}

func (s *Session) SelectedTab() domain.AuthTab {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectedTab
}

func (s *Session) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isLoading
}

// Snapshot returns the full current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// UpdateUser adopts user and persists it under UserKey. A nil user logs out.
func (s *Session) UpdateUser(ctx context.Context, user *domain.User) error {
	if user == nil {
		return s.Logout(ctx)
	}

	s.mu.Lock()
	s.user = copyUser(user)
	s.broadcastLocked()
	s.mu.Unlock()

	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	if err := s.storage.Set(ctx, UserKey, string(raw)); err != nil {
		return fmt.Errorf("persist user: %w", err)
	}
	return nil
}

// Logout clears the persisted user and token and drops the in-memory user.
// It makes no network call and does not cancel in-flight work.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	s.user = nil
	s.broadcastLocked()
	s.mu.Unlock()

	if err := s.storage.Delete(ctx, UserKey); err != nil {
		return fmt.Errorf("clear user: %w", err)
	}
	if err := s.storage.Delete(ctx, TokenKey); err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	return nil
}

func (s *Session) SetLoginModalOpen(open bool) {
	s.UpdateLoginModalOpen(func(bool) bool { return open })
}

func (s *Session) UpdateLoginModalOpen(fn func(open bool) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loginModalOpen = fn(s.loginModalOpen)
	s.broadcastLocked()
}

func (s *Session) SetSelectedTab(tab domain.AuthTab) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectedTab = tab
	s.broadcastLocked()
}

func (s *Session) SetIsLoading(loading bool) {
	s.UpdateIsLoading(func(bool) bool { return loading })
}

func (s *Session) UpdateIsLoading(fn func(loading bool) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isLoading = fn(s.isLoading)
	s.broadcastLocked()
}

// Hydrate restores the session at startup. It is a no-op when a user is already
// in memory. A persisted user record is trusted as-is without a network call;
// otherwise a persisted token is resolved through users. When the token cannot
// be resolved the token is kept and the session stays logged out.
func (s *Session) Hydrate(ctx context.Context, users UserFetcher) error {
	if s.User() != nil {
		return nil
	}

	raw, ok, err := s.storage.Get(ctx, UserKey)
	if err != nil {
		return fmt.Errorf("read persisted user: %w", err)
	}
	if ok {
		var user *domain.User
		err := json.Unmarshal([]byte(raw), &user)
		switch {
		case err != nil:
			log.Log.WithError(err).Warn("ignoring unreadable persisted user")
		case user == nil || (user.Name == "" && user.Email == ""):
			log.Log.Warn("ignoring empty persisted user")
		default:
			s.adoptIfAbsent(user)
			return nil
		}
	}

	token, ok, err := s.storage.Get(ctx, TokenKey)
	if err != nil {
		return fmt.Errorf("read persisted token: %w", err)
	}
	if !ok || token == "" {
		return nil
	}

	user, err := users.GetUserData(ctx)
	if err != nil {
		log.Log.WithError(err).Warn("could not resolve user from stored token")
		return fmt.Errorf("hydrate from token: %w", err)
	}
	s.adoptIfAbsent(&user)
	return nil
}

// adoptIfAbsent sets the in-memory user without persisting it, unless a user
// was committed while hydration was in flight.
func (s *Session) adoptIfAbsent(user *domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user != nil {
		return
	}
	s.user = copyUser(user)
	s.broadcastLocked()
}

// Subscribe returns a channel that receives a snapshot now and after every change.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *Session) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	// sent under the lock so no broadcast can land ahead of it; the buffer is empty
	ch <- s.snapshotLocked()
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) broadcastLocked() {
	snap := s.snapshotLocked()
	for ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			// slow subscriber: drop its oldest snapshot so the newest always lands
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		User:           copyUser(s.user),
		LoginModalOpen: s.loginModalOpen,
		SelectedTab:    s.selectedTab,
		IsLoading:      s.isLoading,
	}
}

func copyUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	cp := *u
	if u.CompletedTopics != nil {
		cp.CompletedTopics = make([]domain.CompletedTopic, len(u.CompletedTopics))
		for i, ct := range u.CompletedTopics {
			cp.CompletedTopics[i] = domain.CompletedTopic{TopicID: ct.TopicID}
			if ct.SubtopicIDs != nil {
				cp.CompletedTopics[i].SubtopicIDs = make([]int, len(ct.SubtopicIDs))
				copy(cp.CompletedTopics[i].SubtopicIDs, ct.SubtopicIDs)
			}
		}
	}
	return &cp
}
