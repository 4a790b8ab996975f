package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"certregistry/internal/certificate"
)

type TriggerSuite struct {
	suite.Suite
	th Thresholds
}

func TestTriggerSuite(t *testing.T) {
	suite.Run(t, new(TriggerSuite))
}

func (s *TriggerSuite) SetupTest() {
	s.th = DefaultThresholds()
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func datePtr(t time.Time) *time.Time { return &t }

func notifiableCert() *certificate.Certificate {
	return &certificate.Certificate{
		ID:                     1,
		NumberPart:             "01001",
		OrgName:                "Acme",
		NotificationsEnabled:   true,
		StartDate:              day(2024, time.January, 10),
		ExpiryDate:             day(2027, time.January, 10),
		FirstInspectionDate:    datePtr(day(2025, time.January, 10)),
		FirstInspectionStatus:  certificate.InspectionPending,
		SecondInspectionDate:   datePtr(day(2026, time.January, 10)),
		SecondInspectionStatus: certificate.InspectionPending,
		Status:                 certificate.StatusActive,
	}
}

func (s *TriggerSuite) TestNeedsNotification() {
	tests := []struct {
		name  string
		today time.Time
		want  bool
	}{
		{"30 days before expiry", day(2026, time.December, 11), true},
		{"15 days before expiry", day(2026, time.December, 26), true},
		{"7 days before expiry is not a single-check threshold", day(2027, time.January, 3), false},
		{"between thresholds", day(2026, time.December, 20), false},
		{"on the expiry date", day(2027, time.January, 10), false},
		{"after expiry", day(2027, time.February, 1), false},
	}
	for _, tc := range tests {
		s.Run(tc.name, func() {
			s.Equal(tc.want, NeedsNotification(notifiableCert(), tc.today, s.th))
		})
	}

	s.Run("disabled certificates never match", func() {
		c := notifiableCert()
		c.NotificationsEnabled = false
		s.False(NeedsNotification(c, day(2026, time.December, 11), s.th))
	})
}

func (s *TriggerSuite) TestDueCategories() {
	s.Run("batch thresholds include 7 and 1 days", func() {
		for _, daysLeft := range []int{30, 15, 7, 1} {
			today := day(2027, time.January, 10).AddDate(0, 0, -daysLeft)
			due := DueCategories(notifiableCert(), today, s.th)
			s.Require().Len(due, 1, "days_left=%d", daysLeft)
			s.Equal(CategoryExpiryWarning, due[0].Category)
			s.Equal(daysLeft, due[0].DaysLeft)
		}
	})

	s.Run("inspection reminder fires ahead of a pending inspection", func() {
		due := DueCategories(notifiableCert(), day(2024, time.December, 11), s.th)
		s.Require().Len(due, 1)
		s.Equal(CategoryFirstInspection, due[0].Category)
		s.Equal(30, due[0].DaysLeft)
	})

	s.Run("reminders key off the date, not the recorded outcome", func() {
		c := notifiableCert()
		c.FirstInspectionStatus = certificate.InspectionPassed
		due := DueCategories(c, day(2024, time.December, 11), s.th)
		s.Require().Len(due, 1)
		s.Equal(CategoryFirstInspection, due[0].Category)
	})

	s.Run("second inspection reminder", func() {
		due := DueCategories(notifiableCert(), day(2026, time.January, 3), s.th)
		s.Require().Len(due, 1)
		s.Equal(CategorySecondInspection, due[0].Category)
		s.Equal(7, due[0].DaysLeft)
	})

	s.Run("off-threshold days produce nothing", func() {
		s.Empty(DueCategories(notifiableCert(), day(2024, time.June, 1), s.th))
	})

	s.Run("disabled certificates produce nothing", func() {
		c := notifiableCert()
		c.NotificationsEnabled = false
		s.Empty(DueCategories(c, day(2024, time.December, 11), s.th))
	})

	s.Run("custom thresholds override the defaults", func() {
		th := Thresholds{BatchExpiryDays: []int{10}, InspectionDays: []int{10}}
		due := DueCategories(notifiableCert(), day(2026, time.December, 31), th)
		s.Require().Len(due, 1)
		s.Equal(CategoryExpiryWarning, due[0].Category)
		s.Equal(10, due[0].DaysLeft)
	})
}
