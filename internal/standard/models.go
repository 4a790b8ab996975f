// Package standard manages the ISO standard catalog certificates are issued
// against.
package standard

import (
	"strings"
	"time"

	dErrors "certregistry/pkg/domain-errors"
)

// Standard is one catalog entry. Name is the short lookup key ("ISO 9001"),
// CertificateName the full text printed on certificates, and Prefix the
// two-letter suffix appended to certificate and audit numbers.
type Standard struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	CertificateName string    `json:"certificate_name"`
	Prefix          string    `json:"prefix"`
	CreatedAt       time.Time `json:"created_at"`
}

// Validate checks a standard before it is stored.
func (s *Standard) Validate() error {
	s.Name = strings.TrimSpace(s.Name)
	s.CertificateName = strings.TrimSpace(s.CertificateName)
	s.Prefix = strings.TrimSpace(s.Prefix)

	if s.Name == "" {
		return dErrors.New(dErrors.CodeBadRequest, "standard name is required")
	}
	if s.CertificateName == "" {
		return dErrors.New(dErrors.CodeBadRequest, "certificate name is required")
	}
	if s.Prefix == "" {
		return dErrors.New(dErrors.CodeBadRequest, "number prefix is required")
	}
	return nil
}
