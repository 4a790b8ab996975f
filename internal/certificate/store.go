package certificate

import (
	"context"
	"time"
)

// Stores are interface-driven to keep the domain logic testable and to allow
// swapping in-memory and PostgreSQL persistence without rewiring business
// code.

// Store persists certificates. Implementations enforce uniqueness of the
// certificate number part and return sentinel.ErrDuplicate on violation.
type Store interface {
	Create(ctx context.Context, c *Certificate) error
	Update(ctx context.Context, c *Certificate) error
	// UpdateStatusFields persists only the derived fields touched by
	// recomputation (status, inspection statuses, updated_at).
	UpdateStatusFields(ctx context.Context, c *Certificate) error
	FindByID(ctx context.Context, id int64) (*Certificate, error)
	FindByNumberPart(ctx context.Context, numberPart string) (*Certificate, error)
	List(ctx context.Context) ([]*Certificate, error)
	ListNotifiable(ctx context.Context) ([]*Certificate, error)
	SearchByNumber(ctx context.Context, fragment string, exact bool) ([]*Certificate, error)
	Delete(ctx context.Context, id int64) error
	// HighestNumberPart returns the lexicographically greatest number part in
	// use, or "" when the registry is empty.
	HighestNumberPart(ctx context.Context) (string, error)
	Stats(ctx context.Context) (*Stats, error)
}

// AuditorStore persists auditors. Deleting a certificate removes its auditors
// (enforced by both implementations; PostgreSQL also cascades).
type AuditorStore interface {
	Create(ctx context.Context, a *Auditor) error
	FindByID(ctx context.Context, id int64) (*Auditor, error)
	ListByCertificate(ctx context.Context, certificateID int64) ([]*Auditor, error)
	CountByCertificate(ctx context.Context, certificateID int64) (int, error)
	Delete(ctx context.Context, id int64) error
	DeleteByCertificate(ctx context.Context, certificateID int64) error
}

// Stats aggregates registry counts for the staff dashboard.
type Stats struct {
	Total            int                      `json:"total"`
	ByStatus         map[Status]int           `json:"by_status"`
	FirstInspection  map[InspectionStatus]int `json:"first_inspection"`
	SecondInspection map[InspectionStatus]int `json:"second_inspection"`
	ByStandard       map[string]int           `json:"by_standard"`
}

// Clock abstracts "today" for stores that stamp created_at/updated_at.
type Clock func() time.Time
