package handler

import (
	"strings"
	"time"

	"certregistry/internal/certificate"
	dErrors "certregistry/pkg/domain-errors"
)

const dateLayout = "2006-01-02"

// CertificateRequest is the HTTP body for creating or updating a certificate.
// Dates arrive as "YYYY-MM-DD".
type CertificateRequest struct {
	NumberPart        string `json:"number_part"`
	StandardID        int64  `json:"standard_id"`
	OrgName           string `json:"org_name"`
	OrgINN            string `json:"org_inn"`
	OrgAddress        string `json:"org_address"`
	QualitySystem     string `json:"quality_system"`
	CertificationArea string `json:"certification_area"`

	StartDate     string `json:"start_date"`
	ExpiryDate    string `json:"expiry_date"`
	ValidityYears int    `json:"validity_years"`

	NotificationsEnabled bool   `json:"notifications_enabled"`
	ClientEmail          string `json:"client_email"`

	// Parsed values (populated by Validate)
	parsedStart  time.Time
	parsedExpiry time.Time
}

// Validate validates and parses the request.
// Implements the Validator interface for httputil.DecodeAndPrepare.
func (r *CertificateRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	r.NumberPart = strings.TrimSpace(r.NumberPart)
	r.OrgName = strings.TrimSpace(r.OrgName)
	r.ClientEmail = strings.TrimSpace(r.ClientEmail)

	start, err := time.Parse(dateLayout, r.StartDate)
	if err != nil {
		return dErrors.New(dErrors.CodeBadRequest, "start_date must be YYYY-MM-DD")
	}
	expiry, err := time.Parse(dateLayout, r.ExpiryDate)
	if err != nil {
		return dErrors.New(dErrors.CodeBadRequest, "expiry_date must be YYYY-MM-DD")
	}
	if !expiry.After(start) {
		return dErrors.New(dErrors.CodeBadRequest, "expiry_date must be after start_date")
	}
	r.parsedStart = start
	r.parsedExpiry = expiry

	if r.NotificationsEnabled && r.ClientEmail == "" {
		return dErrors.New(dErrors.CodeBadRequest, "client_email is required when notifications are enabled")
	}
	return nil
}

// ToDomain builds the domain certificate from the validated request.
func (r *CertificateRequest) ToDomain() *certificate.Certificate {
	return &certificate.Certificate{
		NumberPart:           r.NumberPart,
		StandardID:           r.StandardID,
		OrgName:              r.OrgName,
		OrgINN:               r.OrgINN,
		OrgAddress:           r.OrgAddress,
		QualitySystem:        r.QualitySystem,
		CertificationArea:    r.CertificationArea,
		StartDate:            r.parsedStart,
		ExpiryDate:           r.parsedExpiry,
		ValidityYears:        r.ValidityYears,
		NotificationsEnabled: r.NotificationsEnabled,
		ClientEmail:          r.ClientEmail,
	}
}

// InspectionsRequest is the HTTP body for editing inspection outcomes. Absent
// fields leave the corresponding inspection untouched.
type InspectionsRequest struct {
	FirstStatus  *string `json:"first_inspection_status"`
	SecondStatus *string `json:"second_inspection_status"`
}

// Validate implements the Validator interface for httputil.DecodeAndPrepare.
func (r *InspectionsRequest) Validate() error {
	if r == nil || (r.FirstStatus == nil && r.SecondStatus == nil) {
		return dErrors.New(dErrors.CodeBadRequest, "at least one inspection status is required")
	}
	if r.FirstStatus != nil && !certificate.InspectionStatus(*r.FirstStatus).IsValid() {
		return dErrors.New(dErrors.CodeBadRequest, "invalid first inspection status")
	}
	if r.SecondStatus != nil && !certificate.InspectionStatus(*r.SecondStatus).IsValid() {
		return dErrors.New(dErrors.CodeBadRequest, "invalid second inspection status")
	}
	return nil
}

// First returns the parsed first inspection status, or nil.
func (r *InspectionsRequest) First() *certificate.InspectionStatus {
	if r.FirstStatus == nil {
		return nil
	}
	s := certificate.InspectionStatus(*r.FirstStatus)
	return &s
}

// Second returns the parsed second inspection status, or nil.
func (r *InspectionsRequest) Second() *certificate.InspectionStatus {
	if r.SecondStatus == nil {
		return nil
	}
	s := certificate.InspectionStatus(*r.SecondStatus)
	return &s
}

// AuditorRequest is the HTTP body for attaching an auditor.
type AuditorRequest struct {
	FullName string `json:"full_name"`
}

// Validate implements the Validator interface for httputil.DecodeAndPrepare.
func (r *AuditorRequest) Validate() error {
	if r == nil || strings.TrimSpace(r.FullName) == "" {
		return dErrors.New(dErrors.CodeBadRequest, "full_name is required")
	}
	return nil
}
