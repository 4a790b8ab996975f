package certificate

import (
	"fmt"
	"regexp"
	"time"

	dErrors "certregistry/pkg/domain-errors"
)

// Status is the derived lifecycle state of a certificate.
type Status string

const (
	StatusActive           Status = "active"
	StatusInspectionFailed Status = "inspection_failed"
	StatusExpired          Status = "expired"
	StatusRevoked          Status = "revoked"
	StatusPending          Status = "pending"
)

// IsValid reports whether s is one of the known lifecycle states. The string
// values are stored and exposed verbatim; they must not change.
func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusInspectionFailed, StatusExpired, StatusRevoked, StatusPending:
		return true
	}
	return false
}

// InspectionStatus is the outcome of a scheduled inspection.
type InspectionStatus string

const (
	InspectionPending InspectionStatus = "pending"
	InspectionPassed  InspectionStatus = "passed"
	InspectionFailed  InspectionStatus = "failed"
)

func (s InspectionStatus) IsValid() bool {
	switch s {
	case InspectionPending, InspectionPassed, InspectionFailed:
		return true
	}
	return false
}

// numberPartPattern constrains the unique certificate number fragment.
var numberPartPattern = regexp.MustCompile(`^\d{5}$`)

// Certificate is the aggregate root for an issued compliance certificate.
//
// Invariants:
//   - NumberPart is a 5-digit string, unique across all certificates
//   - Status is always one of the Status constants; revoked and pending are
//     reachable only through explicit admin action, never derivation
//   - Inspection dates are fixed at creation (+1y, +2y from StartDate) and
//     never rescheduled, even when StartDate is edited afterwards
//   - Auditors belong exclusively to one certificate and are removed with it
type Certificate struct {
	ID         int64  `json:"id"`
	NumberPart string `json:"number_part"`

	StandardID   int64  `json:"standard_id"`
	StandardName string `json:"standard_name"`

	// Organization details, shown on the certificate.
	OrgName           string `json:"org_name"`
	OrgINN            string `json:"org_inn"`
	OrgAddress        string `json:"org_address"`
	QualitySystem     string `json:"quality_system"`
	CertificationArea string `json:"certification_area"`

	StartDate     time.Time `json:"start_date"`
	ExpiryDate    time.Time `json:"expiry_date"`
	ValidityYears int       `json:"validity_years"`

	FirstInspectionDate    *time.Time       `json:"first_inspection_date,omitempty"`
	FirstInspectionStatus  InspectionStatus `json:"first_inspection_status"`
	SecondInspectionDate   *time.Time       `json:"second_inspection_date,omitempty"`
	SecondInspectionStatus InspectionStatus `json:"second_inspection_status"`

	Status Status `json:"status"`

	NotificationsEnabled bool   `json:"notifications_enabled"`
	ClientEmail          string `json:"client_email,omitempty"`

	QRCodePath string `json:"qr_code_path,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Auditor is a person associated with an audit for one certificate. The audit
// number is assigned once from the auditor's ordinal position and the parent
// standard's prefix, and is immutable afterwards.
type Auditor struct {
	ID            int64     `json:"id"`
	CertificateID int64     `json:"certificate_id"`
	FullName      string    `json:"full_name"`
	AuditNumber   string    `json:"audit_number"`
	ArtifactPath  string    `json:"artifact_path,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// FullNumber renders the public certificate number, e.g. "№SMK.01001QS".
func (c *Certificate) FullNumber(prefix string) string {
	return fmt.Sprintf("№SMK.%s%s", c.NumberPart, prefix)
}

// FormatAuditNumber renders an audit number for the n-th auditor (1-based),
// e.g. "№AUD.01QS".
func FormatAuditNumber(ordinal int, prefix string) string {
	return fmt.Sprintf("№AUD.%02d%s", ordinal, prefix)
}

// NextNumberPart returns the number part following the highest one in use.
// The sequence starts at "01001" on an empty registry.
func NextNumberPart(highest string) string {
	if highest == "" {
		return "01001"
	}
	var n int
	fmt.Sscanf(highest, "%d", &n)
	return fmt.Sprintf("%05d", n+1)
}

// Validate checks the fields an admin supplies when creating or updating a
// certificate. Derived fields (status, inspection dates) are not checked here.
func (c *Certificate) Validate() error {
	if !numberPartPattern.MatchString(c.NumberPart) {
		return dErrors.New(dErrors.CodeBadRequest, "certificate number must be exactly 5 digits")
	}
	if c.OrgName == "" {
		return dErrors.New(dErrors.CodeBadRequest, "organization name is required")
	}
	if c.StandardID == 0 {
		return dErrors.New(dErrors.CodeBadRequest, "ISO standard is required")
	}
	if c.StartDate.IsZero() || c.ExpiryDate.IsZero() {
		return dErrors.New(dErrors.CodeBadRequest, "start and expiry dates are required")
	}
	if c.ValidityYears != 0 && (c.ValidityYears < 1 || c.ValidityYears > 3) {
		return dErrors.New(dErrors.CodeBadRequest, "validity period must be between 1 and 3 years")
	}
	if c.FirstInspectionStatus != "" && !c.FirstInspectionStatus.IsValid() {
		return dErrors.New(dErrors.CodeBadRequest, "invalid first inspection status")
	}
	if c.SecondInspectionStatus != "" && !c.SecondInspectionStatus.IsValid() {
		return dErrors.New(dErrors.CodeBadRequest, "invalid second inspection status")
	}
	return nil
}

// DaysUntil counts whole days from today until target, matching date
// subtraction on calendar dates. Both arguments are truncated to their
// calendar day first, so wall-clock components never shift the count.
func DaysUntil(today, target time.Time) int {
	ty, tm, td := today.Date()
	gy, gm, gd := target.Date()
	from := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	to := time.Date(gy, gm, gd, 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours() / 24)
}

// SameOrAfter reports whether day a falls on or after day b, comparing
// calendar dates only.
func SameOrAfter(a, b time.Time) bool {
	return DaysUntil(b, a) >= 0
}

// DateAfter reports whether day a falls strictly after day b.
func DateAfter(a, b time.Time) bool {
	return DaysUntil(b, a) > 0
}
