package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"certregistry/internal/standard"
	"certregistry/pkg/platform/sentinel"
)

// InMemory is a mutex-guarded standard catalog for tests and local runs.
type InMemory struct {
	mu        sync.RWMutex
	nextID    int64
	standards map[int64]*standard.Standard
}

// NewInMemory constructs an empty in-memory catalog.
func NewInMemory() *InMemory {
	return &InMemory{standards: make(map[int64]*standard.Standard)}
}

func (s *InMemory) Create(_ context.Context, st *standard.Standard) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.standards {
		if strings.EqualFold(existing.Name, st.Name) {
			return sentinel.ErrDuplicate
		}
	}

	s.nextID++
	st.ID = s.nextID
	st.CreatedAt = time.Now()
	cp := *st
	s.standards[st.ID] = &cp
	return nil
}

func (s *InMemory) Update(_ context.Context, st *standard.Standard) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.standards[st.ID]; !ok {
		return sentinel.ErrNotFound
	}
	for id, existing := range s.standards {
		if id != st.ID && strings.EqualFold(existing.Name, st.Name) {
			return sentinel.ErrDuplicate
		}
	}
	cp := *st
	cp.CreatedAt = s.standards[st.ID].CreatedAt
	s.standards[st.ID] = &cp
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id int64) (*standard.Standard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if st, ok := s.standards[id]; ok {
		cp := *st
		return &cp, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) FindByName(_ context.Context, name string) (*standard.Standard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, st := range s.standards {
		if strings.EqualFold(st.Name, name) {
			cp := *st
			return &cp, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) List(_ context.Context) ([]*standard.Standard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*standard.Standard, 0, len(s.standards))
	for _, st := range s.standards {
		cp := *st
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *InMemory) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.standards[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.standards, id)
	return nil
}
