// Package notify decides when expiry and inspection reminders are due and
// delivers them.
package notify

// Thresholds holds the day counts at which reminders fire. The single-record
// check and the batch sweep historically used different expiry sets; both are
// configuration here, so unifying them is a config edit.
type Thresholds struct {
	// SingleExpiryDays drives NeedsNotification for one certificate.
	SingleExpiryDays []int

	// BatchExpiryDays drives expiry warnings during the sweep.
	BatchExpiryDays []int

	// InspectionDays drives reminders ahead of each scheduled inspection.
	InspectionDays []int
}

// DefaultThresholds returns the historical reminder schedule.
func DefaultThresholds() Thresholds {
	return Thresholds{
		SingleExpiryDays: []int{30, 15},
		BatchExpiryDays:  []int{30, 15, 7, 1},
		InspectionDays:   []int{30, 15, 7},
	}
}

func contains(days []int, d int) bool {
	for _, day := range days {
		if day == d {
			return true
		}
	}
	return false
}
