package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"certregistry/internal/certificate"
	"certregistry/pkg/platform/sentinel"
)

// In-memory stores keep unit tests and local development lightweight. They
// intentionally favor clarity over performance.

// InMemory is a mutex-guarded certificate store.
type InMemory struct {
	mu     sync.RWMutex
	nextID int64
	certs  map[int64]*certificate.Certificate
	clock  certificate.Clock

	// standardNames lets Stats group by standard without a join.
	standardNames map[int64]string
}

// NewInMemory constructs an empty in-memory certificate store.
func NewInMemory() *InMemory {
	return &InMemory{
		certs:         make(map[int64]*certificate.Certificate),
		standardNames: make(map[int64]string),
		clock:         time.Now,
	}
}

// WithClock overrides timestamp stamping for tests.
func (s *InMemory) WithClock(clock certificate.Clock) *InMemory {
	if clock != nil {
		s.clock = clock
	}
	return s
}

// RegisterStandardName teaches the store a standard's display name for Stats.
func (s *InMemory) RegisterStandardName(id int64, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.standardNames[id] = name
}

func (s *InMemory) Create(_ context.Context, c *certificate.Certificate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.certs {
		if existing.NumberPart == c.NumberPart {
			return sentinel.ErrDuplicate
		}
	}

	s.nextID++
	c.ID = s.nextID
	now := s.clock()
	c.CreatedAt = now
	c.UpdatedAt = now
	s.certs[c.ID] = clone(c)
	return nil
}

func (s *InMemory) Update(_ context.Context, c *certificate.Certificate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.certs[c.ID]; !ok {
		return sentinel.ErrNotFound
	}
	for id, existing := range s.certs {
		if id != c.ID && existing.NumberPart == c.NumberPart {
			return sentinel.ErrDuplicate
		}
	}
	c.UpdatedAt = s.clock()
	s.certs[c.ID] = clone(c)
	return nil
}

func (s *InMemory) UpdateStatusFields(_ context.Context, c *certificate.Certificate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.certs[c.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	existing.Status = c.Status
	existing.FirstInspectionStatus = c.FirstInspectionStatus
	existing.SecondInspectionStatus = c.SecondInspectionStatus
	existing.FirstInspectionDate = copyDate(c.FirstInspectionDate)
	existing.SecondInspectionDate = copyDate(c.SecondInspectionDate)
	existing.UpdatedAt = s.clock()
	c.UpdatedAt = existing.UpdatedAt
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id int64) (*certificate.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.certs[id]; ok {
		return clone(c), nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) FindByNumberPart(_ context.Context, numberPart string) (*certificate.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.certs {
		if c.NumberPart == numberPart {
			return clone(c), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) List(_ context.Context) ([]*certificate.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*certificate.Certificate, 0, len(s.certs))
	for _, c := range s.certs {
		out = append(out, clone(c))
	}
	// Newest first, matching the staff list view.
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemory) ListNotifiable(_ context.Context) ([]*certificate.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*certificate.Certificate
	for _, c := range s.certs {
		if c.NotificationsEnabled {
			out = append(out, clone(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *InMemory) SearchByNumber(_ context.Context, fragment string, exact bool) ([]*certificate.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*certificate.Certificate
	for _, c := range s.certs {
		if exact {
			if strings.EqualFold(c.NumberPart, fragment) {
				out = append(out, clone(c))
			}
		} else if strings.Contains(c.NumberPart, fragment) {
			out = append(out, clone(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NumberPart < out[j].NumberPart })
	return out, nil
}

func (s *InMemory) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.certs[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.certs, id)
	return nil
}

func (s *InMemory) HighestNumberPart(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	highest := ""
	for _, c := range s.certs {
		if c.NumberPart > highest {
			highest = c.NumberPart
		}
	}
	return highest, nil
}

func (s *InMemory) Stats(_ context.Context) (*certificate.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &certificate.Stats{
		Total:            len(s.certs),
		ByStatus:         make(map[certificate.Status]int),
		FirstInspection:  make(map[certificate.InspectionStatus]int),
		SecondInspection: make(map[certificate.InspectionStatus]int),
		ByStandard:       make(map[string]int),
	}
	for _, c := range s.certs {
		stats.ByStatus[c.Status]++
		stats.FirstInspection[c.FirstInspectionStatus]++
		stats.SecondInspection[c.SecondInspectionStatus]++
		name := s.standardNames[c.StandardID]
		if name == "" {
			name = c.StandardName
		}
		stats.ByStandard[name]++
	}
	return stats, nil
}

func clone(c *certificate.Certificate) *certificate.Certificate {
	cp := *c
	cp.FirstInspectionDate = copyDate(c.FirstInspectionDate)
	cp.SecondInspectionDate = copyDate(c.SecondInspectionDate)
	return &cp
}

func copyDate(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	cp := *t
	return &cp
}

// InMemoryAuditors is a mutex-guarded auditor store.
type InMemoryAuditors struct {
	mu       sync.RWMutex
	nextID   int64
	auditors map[int64]*certificate.Auditor
	clock    certificate.Clock
}

// NewInMemoryAuditors constructs an empty in-memory auditor store.
func NewInMemoryAuditors() *InMemoryAuditors {
	return &InMemoryAuditors{
		auditors: make(map[int64]*certificate.Auditor),
		clock:    time.Now,
	}
}

func (s *InMemoryAuditors) Create(_ context.Context, a *certificate.Auditor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	a.ID = s.nextID
	a.CreatedAt = s.clock()
	cp := *a
	s.auditors[a.ID] = &cp
	return nil
}

func (s *InMemoryAuditors) FindByID(_ context.Context, id int64) (*certificate.Auditor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if a, ok := s.auditors[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryAuditors) ListByCertificate(_ context.Context, certificateID int64) ([]*certificate.Auditor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*certificate.Auditor
	for _, a := range s.auditors {
		if a.CertificateID == certificateID {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *InMemoryAuditors) CountByCertificate(_ context.Context, certificateID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, a := range s.auditors {
		if a.CertificateID == certificateID {
			count++
		}
	}
	return count, nil
}

func (s *InMemoryAuditors) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.auditors[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.auditors, id)
	return nil
}

func (s *InMemoryAuditors) DeleteByCertificate(_ context.Context, certificateID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, a := range s.auditors {
		if a.CertificateID == certificateID {
			delete(s.auditors, id)
		}
	}
	return nil
}
