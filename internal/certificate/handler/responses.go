package handler

import (
	"time"

	"certregistry/internal/certificate"
)

// CertificateResponse is the HTTP representation of a certificate. It embeds
// the domain record and adds the printed number.
type CertificateResponse struct {
	*certificate.Certificate
	FullNumber string `json:"full_number"`
}

// SearchResponse is the body of the public verification endpoint.
type SearchResponse struct {
	Query   string                 `json:"query"`
	Results []*CertificateResponse `json:"results"`
}

// ListResponse is the body of the staff certificate list.
type ListResponse struct {
	Certificates []*CertificateResponse `json:"certificates"`
	Total        int                    `json:"total"`
}

// AuditorsResponse lists a certificate's auditors.
type AuditorsResponse struct {
	Auditors []*certificate.Auditor `json:"auditors"`
}

// NextNumberResponse carries the next free certificate number part.
type NextNumberResponse struct {
	NumberPart string `json:"number_part"`
}

// StatusResponse reports a recomputed status.
type StatusResponse struct {
	ID     int64              `json:"id"`
	Status certificate.Status `json:"status"`
	AsOf   time.Time          `json:"as_of"`
}
