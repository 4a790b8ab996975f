package certificate

import "time"

// CalculateStatus derives a certificate's lifecycle status from "today" and
// its inspection outcomes. This is pure domain logic - no I/O, no side
// effects - and calling it twice with the same date yields the same result.
//
// Rule priority (first match wins):
//  1. Past expiry date - expired, regardless of inspection flags
//  2. Second inspection elapsed and failed - inspection_failed
//  3. First inspection elapsed and failed - inspection_failed
//  4. Otherwise - active
//
// Revoked and pending are never produced here: they are administrator-only
// states, and callers skip recomputation entirely for revoked certificates.
// An elapsed inspection still marked pending is NOT failed by this function;
// ApplyInspectionChecks performs that transition before status derivation.
func CalculateStatus(c *Certificate, today time.Time) Status {
	if DateAfter(today, c.ExpiryDate) {
		return StatusExpired
	}

	if c.SecondInspectionDate != nil && DateAfter(today, *c.SecondInspectionDate) &&
		c.SecondInspectionStatus == InspectionFailed {
		return StatusInspectionFailed
	}

	if c.FirstInspectionDate != nil && DateAfter(today, *c.FirstInspectionDate) &&
		c.FirstInspectionStatus == InspectionFailed {
		return StatusInspectionFailed
	}

	return StatusActive
}

// Recompute applies CalculateStatus to c and reports whether the stored
// status drifted. Revoked certificates are left untouched: the manual
// override holds until an administrator reinstates the certificate.
func Recompute(c *Certificate, today time.Time) (changed bool) {
	if c.Status == StatusRevoked {
		return false
	}
	next := CalculateStatus(c, today)
	if next == c.Status {
		return false
	}
	c.Status = next
	return true
}
