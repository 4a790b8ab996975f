package standard

import (
	"context"
	"errors"
	"log/slog"

	dErrors "certregistry/pkg/domain-errors"
	"certregistry/pkg/platform/sentinel"
)

// Service manages the ISO standard catalog. It also serves as the standard
// directory for the certificate module: number prefixes and printed names are
// resolved through it.
type Service struct {
	store  Store
	logger *slog.Logger
}

// NewService constructs the standard service.
func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Create adds a standard to the catalog.
func (s *Service) Create(ctx context.Context, st *Standard) (*Standard, error) {
	if err := st.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, st); err != nil {
		if errors.Is(err, sentinel.ErrDuplicate) {
			return nil, dErrors.New(dErrors.CodeConflict, "standard name already in use")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create standard")
	}
	s.logger.InfoContext(ctx, "standard created", "standard_id", st.ID, "name", st.Name)
	return st, nil
}

// Update edits a catalog entry. Certificates keep the standard name snapshot
// taken at issuance; edits here affect new certificates only.
func (s *Service) Update(ctx context.Context, st *Standard) (*Standard, error) {
	if err := st.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, st); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "standard not found")
		case errors.Is(err, sentinel.ErrDuplicate):
			return nil, dErrors.New(dErrors.CodeConflict, "standard name already in use")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update standard")
	}
	return st, nil
}

// Get loads one standard.
func (s *Service) Get(ctx context.Context, id int64) (*Standard, error) {
	st, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "standard not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load standard")
	}
	return st, nil
}

// List returns the whole catalog.
func (s *Service) List(ctx context.Context) ([]*Standard, error) {
	out, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list standards")
	}
	return out, nil
}

// Delete removes a catalog entry. Existing certificates are untouched: they
// carry their own name snapshot and keep their issued numbers.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "standard not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete standard")
	}
	return nil
}

// Prefix resolves a standard's number prefix.
// Satisfies certificate.StandardDirectory.
func (s *Service) Prefix(ctx context.Context, standardID int64) (string, error) {
	st, err := s.Get(ctx, standardID)
	if err != nil {
		return "", err
	}
	return st.Prefix, nil
}

// CertificateName resolves the full text printed on certificates.
// Satisfies certificate.StandardDirectory.
func (s *Service) CertificateName(ctx context.Context, standardID int64) (string, error) {
	st, err := s.Get(ctx, standardID)
	if err != nil {
		return "", err
	}
	return st.CertificateName, nil
}
