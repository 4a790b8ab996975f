package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"certregistry/internal/certificate"
	"certregistry/pkg/platform/sentinel"
)

type MemoryStoreSuite struct {
	suite.Suite
	store    *InMemory
	auditors *InMemoryAuditors
	ctx      context.Context
	now      time.Time
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	s.store = NewInMemory().WithClock(func() time.Time { return s.now })
	s.auditors = NewInMemoryAuditors()
}

func (s *MemoryStoreSuite) newCert(part string) *certificate.Certificate {
	return &certificate.Certificate{
		NumberPart: part,
		StandardID: 1,
		OrgName:    "Acme LLC",
		StartDate:  time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC),
		ExpiryDate: time.Date(2027, time.January, 10, 0, 0, 0, 0, time.UTC),
		Status:     certificate.StatusActive,
	}
}

func (s *MemoryStoreSuite) TestCreateAndFind() {
	s.Run("assigns IDs and timestamps", func() {
		c := s.newCert("01001")
		s.Require().NoError(s.store.Create(s.ctx, c))

		s.NotZero(c.ID)
		s.Equal(s.now, c.CreatedAt)

		found, err := s.store.FindByID(s.ctx, c.ID)
		s.Require().NoError(err)
		s.Equal("01001", found.NumberPart)
	})

	s.Run("rejects duplicate number parts", func() {
		err := s.store.Create(s.ctx, s.newCert("01001"))
		s.Require().ErrorIs(err, sentinel.ErrDuplicate)
	})

	s.Run("returns ErrNotFound for unknown IDs", func() {
		_, err := s.store.FindByID(s.ctx, 999)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("finds by number part", func() {
		found, err := s.store.FindByNumberPart(s.ctx, "01001")
		s.Require().NoError(err)
		s.Equal("01001", found.NumberPart)
	})
}

func (s *MemoryStoreSuite) TestMutationIsolation() {
	c := s.newCert("01001")
	s.Require().NoError(s.store.Create(s.ctx, c))

	// Mutating a returned copy must not leak into the store.
	found, err := s.store.FindByID(s.ctx, c.ID)
	s.Require().NoError(err)
	found.OrgName = "Tampered"

	again, err := s.store.FindByID(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Equal("Acme LLC", again.OrgName)
}

func (s *MemoryStoreSuite) TestUpdateStatusFields() {
	c := s.newCert("01001")
	s.Require().NoError(s.store.Create(s.ctx, c))

	c.Status = certificate.StatusExpired
	c.FirstInspectionStatus = certificate.InspectionFailed
	c.OrgName = "Should Not Persist"
	s.Require().NoError(s.store.UpdateStatusFields(s.ctx, c))

	found, err := s.store.FindByID(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(certificate.StatusExpired, found.Status)
	s.Equal(certificate.InspectionFailed, found.FirstInspectionStatus)
	s.Equal("Acme LLC", found.OrgName)
}

func (s *MemoryStoreSuite) TestSearchByNumber() {
	for _, part := range []string{"01001", "01002", "11001"} {
		s.Require().NoError(s.store.Create(s.ctx, s.newCert(part)))
	}

	s.Run("exact match", func() {
		out, err := s.store.SearchByNumber(s.ctx, "01001", true)
		s.Require().NoError(err)
		s.Require().Len(out, 1)
		s.Equal("01001", out[0].NumberPart)
	})

	s.Run("fragment match", func() {
		out, err := s.store.SearchByNumber(s.ctx, "100", false)
		s.Require().NoError(err)
		s.Len(out, 3)
	})

	s.Run("no match", func() {
		out, err := s.store.SearchByNumber(s.ctx, "99999", false)
		s.Require().NoError(err)
		s.Empty(out)
	})
}

func (s *MemoryStoreSuite) TestHighestNumberPart() {
	highest, err := s.store.HighestNumberPart(s.ctx)
	s.Require().NoError(err)
	s.Empty(highest)

	for _, part := range []string{"01005", "01002", "01010"} {
		s.Require().NoError(s.store.Create(s.ctx, s.newCert(part)))
	}

	highest, err = s.store.HighestNumberPart(s.ctx)
	s.Require().NoError(err)
	s.Equal("01010", highest)
}

func (s *MemoryStoreSuite) TestListOrdering() {
	first := s.newCert("01001")
	s.Require().NoError(s.store.Create(s.ctx, first))

	s.now = s.now.Add(time.Hour)
	second := s.newCert("01002")
	s.Require().NoError(s.store.Create(s.ctx, second))

	out, err := s.store.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(out, 2)
	s.Equal("01002", out[0].NumberPart)
}

func (s *MemoryStoreSuite) TestListNotifiable() {
	enabled := s.newCert("01001")
	enabled.NotificationsEnabled = true
	enabled.ClientEmail = "client@example.com"
	s.Require().NoError(s.store.Create(s.ctx, enabled))
	s.Require().NoError(s.store.Create(s.ctx, s.newCert("01002")))

	out, err := s.store.ListNotifiable(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(out, 1)
	s.Equal("01001", out[0].NumberPart)
}

func (s *MemoryStoreSuite) TestStats() {
	s.store.RegisterStandardName(1, "ISO 9001-2015")

	active := s.newCert("01001")
	s.Require().NoError(s.store.Create(s.ctx, active))

	expired := s.newCert("01002")
	expired.Status = certificate.StatusExpired
	s.Require().NoError(s.store.Create(s.ctx, expired))

	stats, err := s.store.Stats(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, stats.Total)
	s.Equal(1, stats.ByStatus[certificate.StatusActive])
	s.Equal(1, stats.ByStatus[certificate.StatusExpired])
	s.Equal(2, stats.ByStandard["ISO 9001-2015"])
}

func (s *MemoryStoreSuite) TestAuditors() {
	c := s.newCert("01001")
	s.Require().NoError(s.store.Create(s.ctx, c))

	a1 := &certificate.Auditor{CertificateID: c.ID, FullName: "Ivanova A.", AuditNumber: "№AUD.01QS"}
	a2 := &certificate.Auditor{CertificateID: c.ID, FullName: "Petrov B.", AuditNumber: "№AUD.02QS"}
	s.Require().NoError(s.auditors.Create(s.ctx, a1))
	s.Require().NoError(s.auditors.Create(s.ctx, a2))

	s.Run("lists in insertion order", func() {
		out, err := s.auditors.ListByCertificate(s.ctx, c.ID)
		s.Require().NoError(err)
		s.Require().Len(out, 2)
		s.Equal("Ivanova A.", out[0].FullName)
	})

	s.Run("counts per certificate", func() {
		count, err := s.auditors.CountByCertificate(s.ctx, c.ID)
		s.Require().NoError(err)
		s.Equal(2, count)
	})

	s.Run("deletes by certificate", func() {
		s.Require().NoError(s.auditors.DeleteByCertificate(s.ctx, c.ID))
		count, err := s.auditors.CountByCertificate(s.ctx, c.ID)
		s.Require().NoError(err)
		s.Zero(count)
	})
}
