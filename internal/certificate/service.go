package certificate

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"certregistry/internal/certificate/metrics"
	dErrors "certregistry/pkg/domain-errors"
	"certregistry/pkg/platform/sentinel"
)

// StandardDirectory is the read-only view of ISO standards the service needs.
type StandardDirectory interface {
	Prefix(ctx context.Context, standardID int64) (string, error)
	CertificateName(ctx context.Context, standardID int64) (string, error)
}

// ArtifactGenerator produces and removes rendered artifacts (QR codes, files).
// It is an external collaborator: failures are logged, never fatal to the
// record operation.
type ArtifactGenerator interface {
	GenerateQR(ctx context.Context, certificateID int64) (string, error)
	RemoveCertificateFiles(ctx context.Context, c *Certificate, auditors []*Auditor)
}

// EventPublisher emits lifecycle events for downstream consumers.
type EventPublisher interface {
	CertificateCreated(ctx context.Context, c *Certificate)
	StatusChanged(ctx context.Context, c *Certificate, from, to Status)
}

// Service orchestrates certificate lifecycle operations: creation, status
// recomputation, inspection checks, search read-repair, and the batch sweep.
type Service struct {
	store     Store
	auditors  AuditorStore
	standards StandardDirectory
	artifacts ArtifactGenerator
	events    EventPublisher
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// Option configures optional service collaborators.
type Option func(*Service)

// WithArtifacts wires the QR/file collaborator.
func WithArtifacts(a ArtifactGenerator) Option {
	return func(s *Service) { s.artifacts = a }
}

// WithEvents wires the lifecycle event publisher.
func WithEvents(e EventPublisher) Option {
	return func(s *Service) { s.events = e }
}

// WithMetrics wires module metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService constructs the certificate service.
func NewService(store Store, auditors AuditorStore, standards StandardDirectory, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:     store,
		auditors:  auditors,
		standards: standards,
		logger:    logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Create validates and persists a new certificate. Inspection dates are
// scheduled here, once, from the start date; the status is derived before the
// first write so a backdated certificate is stored with its true state.
func (s *Service) Create(ctx context.Context, c *Certificate, today time.Time) (*Certificate, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	if c.StandardName == "" {
		name, err := s.standards.CertificateName(ctx, c.StandardID)
		if err != nil {
			return nil, wrapStoreErr(err, "ISO standard not found")
		}
		c.StandardName = name
	}

	ScheduleInspections(c)

	c.Status = CalculateStatus(c, today)
	if err := s.store.Create(ctx, c); err != nil {
		if errors.Is(err, sentinel.ErrDuplicate) {
			return nil, dErrors.New(dErrors.CodeConflict, "certificate number already in use")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create certificate")
	}

	s.metrics.IncrementCreated()
	s.generateQR(ctx, c)

	if s.events != nil {
		s.events.CertificateCreated(ctx, c)
	}
	return c, nil
}

// Update applies admin edits. Last write wins; the status is recomputed from
// the edited fields unless the certificate is revoked. Inspection dates are
// NOT rescheduled when the start date changes.
func (s *Service) Update(ctx context.Context, c *Certificate, today time.Time) (*Certificate, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	current, err := s.store.FindByID(ctx, c.ID)
	if err != nil {
		return nil, wrapStoreErr(err, "certificate not found")
	}

	// Creation-time schedule stands; ignore attempts to move it.
	c.FirstInspectionDate = current.FirstInspectionDate
	c.SecondInspectionDate = current.SecondInspectionDate
	c.CreatedAt = current.CreatedAt
	c.QRCodePath = current.QRCodePath

	from := current.Status
	if current.Status == StatusRevoked {
		c.Status = StatusRevoked
	} else {
		c.Status = CalculateStatus(c, today)
	}

	if err := s.store.Update(ctx, c); err != nil {
		if errors.Is(err, sentinel.ErrDuplicate) {
			return nil, dErrors.New(dErrors.CodeConflict, "certificate number already in use")
		}
		return nil, wrapStoreErr(err, "certificate not found")
	}

	if from != c.Status {
		s.recordTransition(ctx, c, from, c.Status)
	}
	return c, nil
}

// Get loads one certificate, repairing status drift on read the way the
// public views do.
func (s *Service) Get(ctx context.Context, id int64, today time.Time) (*Certificate, error) {
	c, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, wrapStoreErr(err, "certificate not found")
	}
	s.repairDrift(ctx, c, today)
	return c, nil
}

// List returns all certificates, newest first, with read-repair applied.
func (s *Service) List(ctx context.Context, today time.Time) ([]*Certificate, error) {
	certs, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list certificates")
	}
	for _, c := range certs {
		s.repairDrift(ctx, c, today)
	}
	return certs, nil
}

// Search answers the public verification query. Queries in the printed form
// "№SMK.01001QS" (or with an extra dot before the prefix) match the number
// part exactly; anything else matches as a fragment. Statuses are recomputed
// before returning so a visitor never sees stale state.
func (s *Service) Search(ctx context.Context, query string, today time.Time) ([]*Certificate, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveSearchLatency(time.Since(start)) }()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	fragment, exact := parseSearchQuery(query)
	certs, err := s.store.SearchByNumber(ctx, fragment, exact)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "search failed")
	}
	for _, c := range certs {
		s.repairDrift(ctx, c, today)
	}
	return certs, nil
}

// parseSearchQuery extracts the number part from a printed certificate
// number. "№SMK.01001.QS" and "SMK.01001QS" select the exact part "01001";
// a bare fragment falls back to substring matching.
func parseSearchQuery(query string) (fragment string, exact bool) {
	query = strings.TrimPrefix(query, "№")
	parts := strings.Split(query, ".")
	if len(parts) >= 2 && strings.EqualFold(parts[0], "SMK") {
		part := parts[1]
		// Printed numbers append the standard prefix directly to the five
		// digits; keep only the digits.
		if len(part) > 5 {
			part = part[:5]
		}
		return part, true
	}
	return query, false
}

// RecomputeStatus re-derives one certificate's status for "today" and
// persists it only when it drifted. Idempotent.
func (s *Service) RecomputeStatus(ctx context.Context, id int64, today time.Time) (Status, error) {
	c, err := s.store.FindByID(ctx, id)
	if err != nil {
		return "", wrapStoreErr(err, "certificate not found")
	}
	s.repairDrift(ctx, c, today)
	return c.Status, nil
}

// InspectionCheckResult reports the outcome of ScheduleInspectionCheck.
type InspectionCheckResult struct {
	Flipped   bool   `json:"flipped"`
	NewStatus Status `json:"new_status"`
}

// ScheduleInspectionCheck flips overdue pending inspections to failed and
// recomputes the status. Re-running it is a no-op once the inspections have
// left pending.
func (s *Service) ScheduleInspectionCheck(ctx context.Context, id int64, today time.Time) (*InspectionCheckResult, error) {
	c, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, wrapStoreErr(err, "certificate not found")
	}

	check := ApplyInspectionChecks(c, today)
	from := c.Status
	changed := Recompute(c, today)

	if check.Flipped() || changed {
		if err := s.store.UpdateStatusFields(ctx, c); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist inspection check")
		}
		s.observeInspectionCheck(ctx, c, check, from, changed)
	}

	return &InspectionCheckResult{Flipped: check.Flipped(), NewStatus: c.Status}, nil
}

// UpdateInspections applies an admin's inspection outcome edits. Marking an
// inspection passed stamps its date with today, recording when the control
// was actually cleared.
func (s *Service) UpdateInspections(ctx context.Context, id int64, first, second *InspectionStatus, today time.Time) (*Certificate, error) {
	c, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, wrapStoreErr(err, "certificate not found")
	}

	if first != nil {
		if !first.IsValid() {
			return nil, dErrors.New(dErrors.CodeBadRequest, "invalid first inspection status")
		}
		c.FirstInspectionStatus = *first
		if *first == InspectionPassed {
			d := today
			c.FirstInspectionDate = &d
		}
	}
	if second != nil {
		if !second.IsValid() {
			return nil, dErrors.New(dErrors.CodeBadRequest, "invalid second inspection status")
		}
		c.SecondInspectionStatus = *second
		if *second == InspectionPassed {
			d := today
			c.SecondInspectionDate = &d
		}
	}

	from := c.Status
	Recompute(c, today)
	if err := s.store.UpdateStatusFields(ctx, c); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update inspections")
	}
	if from != c.Status {
		s.recordTransition(ctx, c, from, c.Status)
	}
	return c, nil
}

// Revoke is the explicit administrative override. A revoked certificate stays
// revoked until reinstated, regardless of its dates.
func (s *Service) Revoke(ctx context.Context, id int64) (*Certificate, error) {
	c, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, wrapStoreErr(err, "certificate not found")
	}
	if c.Status == StatusRevoked {
		return nil, dErrors.New(dErrors.CodeConflict, "certificate is already revoked")
	}

	from := c.Status
	c.Status = StatusRevoked
	if err := s.store.UpdateStatusFields(ctx, c); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke certificate")
	}
	s.recordTransition(ctx, c, from, StatusRevoked)
	return c, nil
}

// Reinstate clears a revocation; the stored status becomes whatever the
// engine derives from the current field values.
func (s *Service) Reinstate(ctx context.Context, id int64, today time.Time) (*Certificate, error) {
	c, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, wrapStoreErr(err, "certificate not found")
	}
	if c.Status != StatusRevoked {
		return nil, dErrors.New(dErrors.CodeConflict, "certificate is not revoked")
	}

	c.Status = CalculateStatus(c, today)
	if err := s.store.UpdateStatusFields(ctx, c); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to reinstate certificate")
	}
	s.recordTransition(ctx, c, StatusRevoked, c.Status)
	return c, nil
}

// Delete removes a certificate, its auditors, and their rendered artifacts.
func (s *Service) Delete(ctx context.Context, id int64) error {
	c, err := s.store.FindByID(ctx, id)
	if err != nil {
		return wrapStoreErr(err, "certificate not found")
	}

	auditors, err := s.auditors.ListByCertificate(ctx, id)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list auditors")
	}
	if err := s.auditors.DeleteByCertificate(ctx, id); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete auditors")
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return wrapStoreErr(err, "certificate not found")
	}

	if s.artifacts != nil {
		s.artifacts.RemoveCertificateFiles(ctx, c, auditors)
	}
	return nil
}

// FullNumber renders the printed certificate number using the standard's
// prefix. A missing standard degrades to an empty prefix rather than failing
// a read path.
func (s *Service) FullNumber(ctx context.Context, c *Certificate) string {
	prefix, err := s.standards.Prefix(ctx, c.StandardID)
	if err != nil {
		prefix = ""
	}
	return c.FullNumber(prefix)
}

// NextNumber suggests the next free certificate number part.
func (s *Service) NextNumber(ctx context.Context) (string, error) {
	highest, err := s.store.HighestNumberPart(ctx)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to read number sequence")
	}
	return NextNumberPart(highest), nil
}

// Statistics aggregates registry counts for the staff dashboard.
func (s *Service) Statistics(ctx context.Context) (*Stats, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to compute statistics")
	}
	return stats, nil
}

// AddAuditor attaches an auditor to a certificate and assigns its audit
// number from the sibling count and the standard's prefix. The number never
// changes afterwards.
func (s *Service) AddAuditor(ctx context.Context, certificateID int64, fullName string) (*Auditor, error) {
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "auditor name is required")
	}

	c, err := s.store.FindByID(ctx, certificateID)
	if err != nil {
		return nil, wrapStoreErr(err, "certificate not found")
	}

	count, err := s.auditors.CountByCertificate(ctx, certificateID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count auditors")
	}
	prefix, err := s.standards.Prefix(ctx, c.StandardID)
	if err != nil {
		return nil, wrapStoreErr(err, "ISO standard not found")
	}

	a := &Auditor{
		CertificateID: certificateID,
		FullName:      fullName,
		AuditNumber:   FormatAuditNumber(count+1, prefix),
	}
	if err := s.auditors.Create(ctx, a); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create auditor")
	}
	return a, nil
}

// ListAuditors returns a certificate's auditors in assignment order.
func (s *Service) ListAuditors(ctx context.Context, certificateID int64) ([]*Auditor, error) {
	if _, err := s.store.FindByID(ctx, certificateID); err != nil {
		return nil, wrapStoreErr(err, "certificate not found")
	}
	auditors, err := s.auditors.ListByCertificate(ctx, certificateID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list auditors")
	}
	return auditors, nil
}

// RemoveAuditor deletes one auditor. Remaining audit numbers keep their
// original ordinals.
func (s *Service) RemoveAuditor(ctx context.Context, certificateID, auditorID int64) error {
	a, err := s.auditors.FindByID(ctx, auditorID)
	if err != nil {
		return wrapStoreErr(err, "auditor not found")
	}
	if a.CertificateID != certificateID {
		return dErrors.New(dErrors.CodeNotFound, "auditor not found")
	}
	if err := s.auditors.Delete(ctx, auditorID); err != nil {
		return wrapStoreErr(err, "auditor not found")
	}
	return nil
}

// SweepResult summarizes a full-status refresh.
type SweepResult struct {
	Checked int `json:"checked"`
	Updated int `json:"updated"`
}

// RefreshAllStatuses walks every certificate, flips overdue pending
// inspections, and repairs status drift. It runs sequentially with no
// transactional grouping: the per-certificate work is idempotent, so a crash
// mid-sweep is fixed by re-running.
func (s *Service) RefreshAllStatuses(ctx context.Context, today time.Time) (*SweepResult, error) {
	start := time.Now()
	certs, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list certificates")
	}

	result := &SweepResult{Checked: len(certs)}
	for _, c := range certs {
		check := ApplyInspectionChecks(c, today)
		from := c.Status
		changed := Recompute(c, today)
		if !check.Flipped() && !changed {
			continue
		}
		if err := s.store.UpdateStatusFields(ctx, c); err != nil {
			s.logger.ErrorContext(ctx, "failed to persist status refresh",
				"certificate_id", c.ID,
				"error", err,
			)
			continue
		}
		result.Updated++
		s.observeInspectionCheck(ctx, c, check, from, changed)
	}

	s.metrics.ObserveSweep(time.Since(start), result.Updated)
	s.logger.InfoContext(ctx, "status refresh sweep finished",
		"checked", result.Checked,
		"updated", result.Updated,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

// repairDrift recomputes on read and persists only when the stored status is
// stale. Errors during the persist are logged, not surfaced: the caller still
// gets the freshly derived status.
func (s *Service) repairDrift(ctx context.Context, c *Certificate, today time.Time) {
	from := c.Status
	if !Recompute(c, today) {
		return
	}
	if err := s.store.UpdateStatusFields(ctx, c); err != nil {
		s.logger.WarnContext(ctx, "failed to persist status repair",
			"certificate_id", c.ID,
			"error", err,
		)
		return
	}
	s.recordTransition(ctx, c, from, c.Status)
}

func (s *Service) observeInspectionCheck(ctx context.Context, c *Certificate, check InspectionCheck, from Status, changed bool) {
	if check.FirstFlipped {
		s.metrics.RecordInspectionFailed("first")
		s.logger.WarnContext(ctx, "first inspection overdue, marked failed",
			"certificate_id", c.ID,
			"number_part", c.NumberPart,
		)
	}
	if check.SecondFlipped {
		s.metrics.RecordInspectionFailed("second")
		s.logger.WarnContext(ctx, "second inspection overdue, marked failed",
			"certificate_id", c.ID,
			"number_part", c.NumberPart,
		)
	}
	if changed {
		s.recordTransition(ctx, c, from, c.Status)
	}
}

func (s *Service) recordTransition(ctx context.Context, c *Certificate, from, to Status) {
	s.metrics.RecordTransition(string(from), string(to))
	s.logger.InfoContext(ctx, "certificate status changed",
		"certificate_id", c.ID,
		"number_part", c.NumberPart,
		"from", from,
		"to", to,
	)
	if s.events != nil {
		s.events.StatusChanged(ctx, c, from, to)
	}
}

func (s *Service) generateQR(ctx context.Context, c *Certificate) {
	if s.artifacts == nil {
		return
	}
	path, err := s.artifacts.GenerateQR(ctx, c.ID)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to generate QR code",
			"certificate_id", c.ID,
			"error", err,
		)
		return
	}
	c.QRCodePath = path
	if err := s.store.Update(ctx, c); err != nil {
		s.logger.WarnContext(ctx, "failed to persist QR code path",
			"certificate_id", c.ID,
			"error", err,
		)
	}
}

func wrapStoreErr(err error, notFoundMsg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, notFoundMsg)
	}
	// Collaborators may already return coded errors; keep their code instead
	// of downgrading to an internal storage failure.
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "storage failure")
}
