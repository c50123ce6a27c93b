package auth

import (
	"context"
	"sync"
	"time"

	"github.com/OldStager01/cold-autoscaler/pkg/database/queries"
)

// UserStore looks up operator accounts for login and records successful
// logins.
type UserStore interface {
	GetByUsername(ctx context.Context, username string) (*queries.User, error)
	RecordLogin(ctx context.Context, userID int) error
}

// StaticUsers is an in-memory UserStore used when no database is
// configured. Passwords are kept as bcrypt hashes.
type StaticUsers struct {
	mu    sync.RWMutex
	users map[string]*queries.User
}

func NewStaticUsers() *StaticUsers {
	return &StaticUsers{users: make(map[string]*queries.User)}
}

// Add hashes password and registers the account.
func (s *StaticUsers) Add(username, password string) error {
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[username] = &queries.User{
		ID:           len(s.users) + 1,
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	}
	return nil
}

func (s *StaticUsers) GetByUsername(_ context.Context, username string) (*queries.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[username]
	if !ok {
		return nil, queries.ErrUserNotFound
	}
	u := *user
	return &u, nil
}

func (s *StaticUsers) RecordLogin(_ context.Context, userID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.users {
		if user.ID == userID {
			now := time.Now()
			user.LastLoginAt = &now
			return nil
		}
	}
	return queries.ErrUserNotFound
}
