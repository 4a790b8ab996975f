package certificate

import "time"

// ScheduleInspections fixes the two inspection dates relative to the start
// date: first at +1 year, second at +2 years. Called exactly once, when the
// certificate is first saved. Later edits to the start date do not reschedule
// inspections; the original dates stand. (Deliberate: matches the issuing
// workflow, where inspection appointments are made at issuance.)
func ScheduleInspections(c *Certificate) {
	first := c.StartDate.AddDate(1, 0, 0)
	second := c.StartDate.AddDate(2, 0, 0)
	c.FirstInspectionDate = &first
	c.SecondInspectionDate = &second
	if c.FirstInspectionStatus == "" {
		c.FirstInspectionStatus = InspectionPending
	}
	if c.SecondInspectionStatus == "" {
		c.SecondInspectionStatus = InspectionPending
	}
}

// InspectionCheck reports what ApplyInspectionChecks changed.
type InspectionCheck struct {
	FirstFlipped  bool
	SecondFlipped bool
}

// Flipped reports whether any pending inspection was marked failed.
func (r InspectionCheck) Flipped() bool {
	return r.FirstFlipped || r.SecondFlipped
}

// ApplyInspectionChecks marks overdue inspections that are still pending as
// failed. An inspection is overdue once today reaches its scheduled date.
// Each flip happens at most once: re-running the check is a no-op after the
// status leaves pending. The caller recomputes the overall status afterwards.
//
// First is evaluated before second so logs and reminders fire in schedule
// order; the final state is order-independent since the flags are independent.
func ApplyInspectionChecks(c *Certificate, today time.Time) InspectionCheck {
	var result InspectionCheck

	if c.FirstInspectionDate != nil && SameOrAfter(today, *c.FirstInspectionDate) &&
		c.FirstInspectionStatus == InspectionPending {
		c.FirstInspectionStatus = InspectionFailed
		result.FirstFlipped = true
	}

	if c.SecondInspectionDate != nil && SameOrAfter(today, *c.SecondInspectionDate) &&
		c.SecondInspectionStatus == InspectionPending {
		c.SecondInspectionStatus = InspectionFailed
		result.SecondFlipped = true
	}

	return result
}
