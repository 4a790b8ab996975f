package certificate_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"certregistry/internal/certificate"
	"certregistry/internal/certificate/store"
	dErrors "certregistry/pkg/domain-errors"
)

// stubStandards satisfies the standard directory with a fixed catalog.
type stubStandards struct {
	prefixes map[int64]string
	names    map[int64]string
}

func (s *stubStandards) Prefix(_ context.Context, id int64) (string, error) {
	if p, ok := s.prefixes[id]; ok {
		return p, nil
	}
	return "", dErrors.New(dErrors.CodeNotFound, "standard not found")
}

func (s *stubStandards) CertificateName(_ context.Context, id int64) (string, error) {
	if n, ok := s.names[id]; ok {
		return n, nil
	}
	return "", dErrors.New(dErrors.CodeNotFound, "standard not found")
}

// recordingEvents captures lifecycle events for assertions.
type recordingEvents struct {
	created     []int64
	transitions []string
}

func (e *recordingEvents) CertificateCreated(_ context.Context, c *certificate.Certificate) {
	e.created = append(e.created, c.ID)
}

func (e *recordingEvents) StatusChanged(_ context.Context, _ *certificate.Certificate, from, to certificate.Status) {
	e.transitions = append(e.transitions, string(from)+"->"+string(to))
}

type ServiceSuite struct {
	suite.Suite
	ctx      context.Context
	service  *certificate.Service
	certs    *store.InMemory
	auditors *store.InMemoryAuditors
	events   *recordingEvents
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.certs = store.NewInMemory()
	s.auditors = store.NewInMemoryAuditors()
	s.events = &recordingEvents{}

	standards := &stubStandards{
		prefixes: map[int64]string{1: "QS", 2: "EM"},
		names:    map[int64]string{1: "ISO 9001-2015", 2: "ISO 14001-2016"},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.service = certificate.NewService(s.certs, s.auditors, standards, logger,
		certificate.WithEvents(s.events))
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (s *ServiceSuite) newCert(part string) *certificate.Certificate {
	return &certificate.Certificate{
		NumberPart:    part,
		StandardID:    1,
		OrgName:       "Acme LLC",
		OrgINN:        "7701234567",
		StartDate:     day(2024, time.January, 10),
		ExpiryDate:    day(2027, time.January, 10),
		ValidityYears: 3,
	}
}

func (s *ServiceSuite) TestCreate() {
	s.Run("schedules inspections and derives status", func() {
		created, err := s.service.Create(s.ctx, s.newCert("01001"), day(2024, time.February, 1))
		s.Require().NoError(err)

		s.NotZero(created.ID)
		s.Equal(certificate.StatusActive, created.Status)
		s.Equal("ISO 9001-2015", created.StandardName)
		s.Require().NotNil(created.FirstInspectionDate)
		s.Equal(day(2025, time.January, 10), *created.FirstInspectionDate)
		s.Equal(day(2026, time.January, 10), *created.SecondInspectionDate)
		s.Equal(certificate.InspectionPending, created.FirstInspectionStatus)
		s.Equal([]int64{created.ID}, s.events.created)
	})

	s.Run("backdated certificate is stored expired", func() {
		c := s.newCert("01002")
		c.StartDate = day(2019, time.January, 10)
		c.ExpiryDate = day(2022, time.January, 10)

		created, err := s.service.Create(s.ctx, c, day(2024, time.February, 1))
		s.Require().NoError(err)
		s.Equal(certificate.StatusExpired, created.Status)
	})

	s.Run("duplicate number returns conflict", func() {
		_, err := s.service.Create(s.ctx, s.newCert("01003"), day(2024, time.February, 1))
		s.Require().NoError(err)

		_, err = s.service.Create(s.ctx, s.newCert("01003"), day(2024, time.February, 1))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("unknown standard returns not found", func() {
		c := s.newCert("01004")
		c.StandardID = 99
		_, err := s.service.Create(s.ctx, c, day(2024, time.February, 1))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("invalid number part returns bad request", func() {
		c := s.newCert("bad")
		_, err := s.service.Create(s.ctx, c, day(2024, time.February, 1))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})
}

func (s *ServiceSuite) TestUpdate() {
	today := day(2024, time.February, 1)
	created, err := s.service.Create(s.ctx, s.newCert("01001"), today)
	s.Require().NoError(err)

	s.Run("edits fields and recomputes status", func() {
		edit := s.newCert("01001")
		edit.ID = created.ID
		edit.OrgName = "Acme Holdings LLC"
		edit.ExpiryDate = day(2023, time.January, 10)

		updated, err := s.service.Update(s.ctx, edit, day(2024, time.March, 1))
		s.Require().NoError(err)
		s.Equal("Acme Holdings LLC", updated.OrgName)
		s.Equal(certificate.StatusExpired, updated.Status)
	})

	s.Run("does not reschedule inspections on start date change", func() {
		edit := s.newCert("01001")
		edit.ID = created.ID
		edit.StartDate = day(2020, time.June, 1)
		edit.ExpiryDate = day(2029, time.June, 1)

		updated, err := s.service.Update(s.ctx, edit, day(2024, time.March, 1))
		s.Require().NoError(err)
		s.Equal(day(2025, time.January, 10), *updated.FirstInspectionDate)
		s.Equal(day(2026, time.January, 10), *updated.SecondInspectionDate)
	})

	s.Run("revoked status survives edits", func() {
		_, err := s.service.Revoke(s.ctx, created.ID)
		s.Require().NoError(err)

		edit := s.newCert("01001")
		edit.ID = created.ID
		updated, err := s.service.Update(s.ctx, edit, day(2024, time.March, 1))
		s.Require().NoError(err)
		s.Equal(certificate.StatusRevoked, updated.Status)
	})
}

func (s *ServiceSuite) TestSearch() {
	today := day(2024, time.February, 1)
	_, err := s.service.Create(s.ctx, s.newCert("01001"), today)
	s.Require().NoError(err)
	_, err = s.service.Create(s.ctx, s.newCert("01010"), today)
	s.Require().NoError(err)

	s.Run("printed number matches exactly", func() {
		results, err := s.service.Search(s.ctx, "№SMK.01001QS", today)
		s.Require().NoError(err)
		s.Require().Len(results, 1)
		s.Equal("01001", results[0].NumberPart)
	})

	s.Run("dotted printed number matches exactly", func() {
		results, err := s.service.Search(s.ctx, "№SMK.01001.QS", today)
		s.Require().NoError(err)
		s.Require().Len(results, 1)
		s.Equal("01001", results[0].NumberPart)
	})

	s.Run("bare fragment matches as substring", func() {
		results, err := s.service.Search(s.ctx, "010", today)
		s.Require().NoError(err)
		s.Len(results, 2)

		results, err = s.service.Search(s.ctx, "0100", today)
		s.Require().NoError(err)
		s.Require().Len(results, 1)
		s.Equal("01001", results[0].NumberPart)
	})

	s.Run("empty query returns nothing", func() {
		results, err := s.service.Search(s.ctx, "  ", today)
		s.Require().NoError(err)
		s.Empty(results)
	})

	s.Run("search repairs drifted statuses", func() {
		results, err := s.service.Search(s.ctx, "01001", day(2028, time.January, 1))
		s.Require().NoError(err)
		s.Require().Len(results, 1)
		s.Equal(certificate.StatusExpired, results[0].Status)

		stored, err := s.certs.FindByID(s.ctx, results[0].ID)
		s.Require().NoError(err)
		s.Equal(certificate.StatusExpired, stored.Status)
	})
}

func (s *ServiceSuite) TestInspectionLifecycle() {
	today := day(2024, time.February, 1)
	created, err := s.service.Create(s.ctx, s.newCert("01001"), today)
	s.Require().NoError(err)

	s.Run("check before the date changes nothing", func() {
		result, err := s.service.ScheduleInspectionCheck(s.ctx, created.ID, day(2024, time.December, 1))
		s.Require().NoError(err)
		s.False(result.Flipped)
		s.Equal(certificate.StatusActive, result.NewStatus)
	})

	s.Run("overdue pending inspection flips to failed", func() {
		result, err := s.service.ScheduleInspectionCheck(s.ctx, created.ID, day(2025, time.January, 15))
		s.Require().NoError(err)
		s.True(result.Flipped)
		s.Equal(certificate.StatusInspectionFailed, result.NewStatus)

		stored, err := s.certs.FindByID(s.ctx, created.ID)
		s.Require().NoError(err)
		s.Equal(certificate.InspectionFailed, stored.FirstInspectionStatus)
	})

	s.Run("re-running the check is a no-op", func() {
		result, err := s.service.ScheduleInspectionCheck(s.ctx, created.ID, day(2025, time.January, 16))
		s.Require().NoError(err)
		s.False(result.Flipped)
	})

	s.Run("marking passed stamps the date with today", func() {
		passed := certificate.InspectionPassed
		examDay := day(2025, time.January, 20)
		updated, err := s.service.UpdateInspections(s.ctx, created.ID, &passed, nil, examDay)
		s.Require().NoError(err)

		s.Equal(certificate.InspectionPassed, updated.FirstInspectionStatus)
		s.Require().NotNil(updated.FirstInspectionDate)
		s.Equal(examDay, *updated.FirstInspectionDate)
		s.Equal(certificate.StatusActive, updated.Status)
	})
}

func (s *ServiceSuite) TestRevokeAndReinstate() {
	today := day(2024, time.February, 1)
	created, err := s.service.Create(s.ctx, s.newCert("01001"), today)
	s.Require().NoError(err)

	s.Run("revoke pins the status", func() {
		revoked, err := s.service.Revoke(s.ctx, created.ID)
		s.Require().NoError(err)
		s.Equal(certificate.StatusRevoked, revoked.Status)

		status, err := s.service.RecomputeStatus(s.ctx, created.ID, day(2028, time.January, 1))
		s.Require().NoError(err)
		s.Equal(certificate.StatusRevoked, status)
	})

	s.Run("revoking twice is a conflict", func() {
		_, err := s.service.Revoke(s.ctx, created.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("reinstate re-derives from the fields", func() {
		reinstated, err := s.service.Reinstate(s.ctx, created.ID, day(2024, time.June, 1))
		s.Require().NoError(err)
		s.Equal(certificate.StatusActive, reinstated.Status)
	})

	s.Run("reinstating a non-revoked certificate is a conflict", func() {
		_, err := s.service.Reinstate(s.ctx, created.ID, today)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func (s *ServiceSuite) TestAuditors() {
	today := day(2024, time.February, 1)
	created, err := s.service.Create(s.ctx, s.newCert("01001"), today)
	s.Require().NoError(err)

	s.Run("assigns ordinal audit numbers with the standard prefix", func() {
		first, err := s.service.AddAuditor(s.ctx, created.ID, "Ivanova A.")
		s.Require().NoError(err)
		s.Equal("№AUD.01QS", first.AuditNumber)

		second, err := s.service.AddAuditor(s.ctx, created.ID, "Petrov B.")
		s.Require().NoError(err)
		s.Equal("№AUD.02QS", second.AuditNumber)
	})

	s.Run("removal does not renumber survivors", func() {
		auditors, err := s.service.ListAuditors(s.ctx, created.ID)
		s.Require().NoError(err)
		s.Require().Len(auditors, 2)

		s.Require().NoError(s.service.RemoveAuditor(s.ctx, created.ID, auditors[0].ID))

		remaining, err := s.service.ListAuditors(s.ctx, created.ID)
		s.Require().NoError(err)
		s.Require().Len(remaining, 1)
		s.Equal("№AUD.02QS", remaining[0].AuditNumber)
	})

	s.Run("missing standard surfaces as not found", func() {
		orphan := s.newCert("01003")
		orphan.StandardID = 99
		orphan.StandardName = "ISO 9001-2015"
		created, err := s.service.Create(s.ctx, orphan, today)
		s.Require().NoError(err)

		_, err = s.service.AddAuditor(s.ctx, created.ID, "Sidorova V.")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("auditor of another certificate is not found", func() {
		other, err := s.service.Create(s.ctx, s.newCert("01002"), today)
		s.Require().NoError(err)

		remaining, err := s.service.ListAuditors(s.ctx, created.ID)
		s.Require().NoError(err)
		s.Require().Len(remaining, 1)

		err = s.service.RemoveAuditor(s.ctx, other.ID, remaining[0].ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("deleting the certificate removes its auditors", func() {
		s.Require().NoError(s.service.Delete(s.ctx, created.ID))

		count, err := s.auditors.CountByCertificate(s.ctx, created.ID)
		s.Require().NoError(err)
		s.Zero(count)
	})
}

func (s *ServiceSuite) TestRefreshAllStatuses() {
	today := day(2024, time.February, 1)

	fresh, err := s.service.Create(s.ctx, s.newCert("01001"), today)
	s.Require().NoError(err)

	stale := s.newCert("01002")
	stale.StartDate = day(2022, time.January, 10)
	stale.ExpiryDate = day(2025, time.January, 10)
	staleCreated, err := s.service.Create(s.ctx, stale, today)
	s.Require().NoError(err)

	result, err := s.service.RefreshAllStatuses(s.ctx, day(2025, time.June, 1))
	s.Require().NoError(err)
	s.Equal(2, result.Checked)
	s.Equal(2, result.Updated)

	expired, err := s.certs.FindByID(s.ctx, staleCreated.ID)
	s.Require().NoError(err)
	s.Equal(certificate.StatusExpired, expired.Status)
	s.Equal(certificate.InspectionFailed, expired.FirstInspectionStatus)

	flipped, err := s.certs.FindByID(s.ctx, fresh.ID)
	s.Require().NoError(err)
	s.Equal(certificate.InspectionFailed, flipped.FirstInspectionStatus)
	s.Equal(certificate.StatusInspectionFailed, flipped.Status)

	s.Run("second run changes nothing", func() {
		again, err := s.service.RefreshAllStatuses(s.ctx, day(2025, time.June, 1))
		s.Require().NoError(err)
		s.Zero(again.Updated)
	})
}

func (s *ServiceSuite) TestNextNumber() {
	part, err := s.service.NextNumber(s.ctx)
	s.Require().NoError(err)
	s.Equal("01001", part)

	_, err = s.service.Create(s.ctx, s.newCert("01005"), day(2024, time.February, 1))
	s.Require().NoError(err)

	part, err = s.service.NextNumber(s.ctx)
	s.Require().NoError(err)
	s.Equal("01006", part)
}
