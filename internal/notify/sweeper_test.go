package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"certregistry/internal/certificate"
	"certregistry/internal/certificate/store"
)

type fakeMailer struct {
	sent []Message
	fail bool
}

func (m *fakeMailer) Send(_ context.Context, msg Message) error {
	if m.fail {
		return errors.New("smtp unavailable")
	}
	m.sent = append(m.sent, msg)
	return nil
}

type fixedStandards struct{}

func (fixedStandards) Prefix(context.Context, int64) (string, error) { return "QS", nil }
func (fixedStandards) CertificateName(context.Context, int64) (string, error) {
	return "ISO 9001-2015", nil
}

type SweeperSuite struct {
	suite.Suite
	ctx     context.Context
	store   *store.InMemory
	mailer  *fakeMailer
	sweeper *Sweeper
}

func TestSweeperSuite(t *testing.T) {
	suite.Run(t, new(SweeperSuite))
}

func (s *SweeperSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = store.NewInMemory()
	s.mailer = &fakeMailer{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.sweeper = NewSweeper(s.store, NewMemoryLog(), s.mailer, fixedStandards{},
		DefaultThresholds(), "staff@example.com", logger)
}

func (s *SweeperSuite) addCert(c *certificate.Certificate) *certificate.Certificate {
	s.Require().NoError(s.store.Create(s.ctx, c))
	return c
}

func (s *SweeperSuite) TestRun() {
	c := notifiableCert()
	c.ClientEmail = "client@example.com"
	s.addCert(c)
	today := day(2026, time.December, 11) // 30 days before expiry

	s.Run("sends staff and client copies once", func() {
		result, err := s.sweeper.Run(s.ctx, today)
		s.Require().NoError(err)
		s.Equal(1, result.Scanned)
		s.Equal(2, result.Sent)
		s.Zero(result.Failures)

		s.Require().Len(s.mailer.sent, 2)
		s.Equal("staff@example.com", s.mailer.sent[0].To)
		s.Contains(s.mailer.sent[0].Subject, "№SMK.01001QS")
		s.Contains(s.mailer.sent[0].Subject, "30 days")
		s.Equal("client@example.com", s.mailer.sent[1].To)
		s.Contains(s.mailer.sent[1].Body, "Dear Acme")
	})

	s.Run("second run on the same day is deduplicated", func() {
		result, err := s.sweeper.Run(s.ctx, today)
		s.Require().NoError(err)
		s.Zero(result.Sent)
		s.Equal(1, result.Deduplicated)
		s.Len(s.mailer.sent, 2)
	})
}

func (s *SweeperSuite) TestRunWithoutClientEmail() {
	s.addCert(notifiableCert())

	result, err := s.sweeper.Run(s.ctx, day(2026, time.December, 11))
	s.Require().NoError(err)
	s.Equal(1, result.Sent)
	s.Require().Len(s.mailer.sent, 1)
	s.Equal("staff@example.com", s.mailer.sent[0].To)
}

func (s *SweeperSuite) TestRunRepairsExpiryAndNotifies() {
	c := notifiableCert()
	c.ExpiryDate = day(2024, time.June, 1)
	c.FirstInspectionStatus = certificate.InspectionPassed
	c.SecondInspectionStatus = certificate.InspectionPassed
	s.addCert(c)

	result, err := s.sweeper.Run(s.ctx, day(2024, time.June, 2))
	s.Require().NoError(err)
	s.Equal(1, result.Sent)

	stored, err := s.store.FindByID(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(certificate.StatusExpired, stored.Status)
	s.Contains(s.mailer.sent[0].Subject, "has expired")
}

func (s *SweeperSuite) TestRunCountsFailures() {
	s.addCert(notifiableCert())
	s.mailer.fail = true

	result, err := s.sweeper.Run(s.ctx, day(2026, time.December, 11))
	s.Require().NoError(err)
	s.Zero(result.Sent)
	s.Equal(1, result.Failures)
}

func (s *SweeperSuite) TestNotificationsDueToday() {
	s.addCert(notifiableCert())

	due, err := s.sweeper.NotificationsDueToday(s.ctx, day(2026, time.December, 11))
	s.Require().NoError(err)
	s.Require().Len(due, 1)
	s.Equal(CategoryExpiryWarning, due[0].Category)
	s.Equal("01001", due[0].NumberPart)

	// Dry inspection never consumes the log: a following Run still delivers.
	result, err := s.sweeper.Run(s.ctx, day(2026, time.December, 11))
	s.Require().NoError(err)
	s.Equal(1, result.Sent)
}

func (s *SweeperSuite) TestMemoryLogMarksOncePerDay() {
	log := NewMemoryLog()

	first, err := log.MarkOnce(s.ctx, 1, CategoryExpiryWarning, day(2026, time.December, 11))
	s.Require().NoError(err)
	s.True(first)

	again, err := log.MarkOnce(s.ctx, 1, CategoryExpiryWarning, day(2026, time.December, 11))
	s.Require().NoError(err)
	s.False(again)

	nextDay, err := log.MarkOnce(s.ctx, 1, CategoryExpiryWarning, day(2026, time.December, 12))
	s.Require().NoError(err)
	s.True(nextDay)

	otherCategory, err := log.MarkOnce(s.ctx, 1, CategoryStatusChange, day(2026, time.December, 11))
	s.Require().NoError(err)
	s.True(otherCategory)
}
