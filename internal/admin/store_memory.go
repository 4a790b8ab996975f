package admin

import (
	"context"
	"strings"
	"sync"
	"time"

	"certregistry/pkg/platform/sentinel"
)

// InMemory is a mutex-guarded admin account store.
type InMemory struct {
	mu     sync.RWMutex
	nextID int64
	users  map[string]*User
}

// NewInMemory constructs an empty in-memory admin store.
func NewInMemory() *InMemory {
	return &InMemory{users: make(map[string]*User)}
}

func (s *InMemory) Create(_ context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(u.Username)
	if _, exists := s.users[key]; exists {
		return sentinel.ErrDuplicate
	}

	s.nextID++
	u.ID = s.nextID
	u.CreatedAt = time.Now()
	cp := *u
	s.users[key] = &cp
	return nil
}

func (s *InMemory) FindByUsername(_ context.Context, username string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if u, ok := s.users[strings.ToLower(username)]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, sentinel.ErrNotFound
}
