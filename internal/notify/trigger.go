package notify

import (
	"time"

	"certregistry/internal/certificate"
)

// Category labels one kind of reminder. Categories key the notification log,
// so a certificate receives at most one reminder per category per day.
type Category string

const (
	CategoryExpiryWarning    Category = "expiry_warning"
	CategoryFirstInspection  Category = "first_inspection_reminder"
	CategorySecondInspection Category = "second_inspection_reminder"
	CategoryStatusChange     Category = "status_change"
)

// Decision is one reminder the sweep should deliver.
type Decision struct {
	Category Category `json:"category"`

	// DaysLeft is the calendar distance to the triggering date. Zero or
	// negative for status changes.
	DaysLeft int `json:"days_left"`
}

// NeedsNotification is the single-certificate check: reminders are due when
// notifications are enabled and the days until expiry sit exactly on one of
// the configured thresholds. Certificates past expiry never match.
func NeedsNotification(c *certificate.Certificate, today time.Time, th Thresholds) bool {
	if !c.NotificationsEnabled {
		return false
	}
	return contains(th.SingleExpiryDays, certificate.DaysUntil(today, c.ExpiryDate))
}

// DueCategories is the batch decision for one certificate on one day. Expiry
// warnings use the batch threshold set; inspection reminders fire ahead of
// each scheduled inspection date regardless of its recorded outcome (passing
// stamps the date with the pass day, so cleared inspections fall off the
// thresholds on their own). Disabled certificates get nothing.
func DueCategories(c *certificate.Certificate, today time.Time, th Thresholds) []Decision {
	if !c.NotificationsEnabled {
		return nil
	}

	var due []Decision

	if d := certificate.DaysUntil(today, c.ExpiryDate); contains(th.BatchExpiryDays, d) {
		due = append(due, Decision{Category: CategoryExpiryWarning, DaysLeft: d})
	}

	if c.FirstInspectionDate != nil {
		if d := certificate.DaysUntil(today, *c.FirstInspectionDate); contains(th.InspectionDays, d) {
			due = append(due, Decision{Category: CategoryFirstInspection, DaysLeft: d})
		}
	}
	if c.SecondInspectionDate != nil {
		if d := certificate.DaysUntil(today, *c.SecondInspectionDate); contains(th.InspectionDays, d) {
			due = append(due, Decision{Category: CategorySecondInspection, DaysLeft: d})
		}
	}

	return due
}
