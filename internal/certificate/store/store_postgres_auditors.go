package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"certregistry/internal/certificate"
	"certregistry/pkg/platform/sentinel"
)

// PostgresAuditors persists auditors in PostgreSQL. Certificate deletion
// cascades at the schema level; DeleteByCertificate exists for callers that
// want artifact cleanup to observe the removed rows first.
type PostgresAuditors struct {
	db    *sql.DB
	clock certificate.Clock
}

// NewPostgresAuditors constructs a PostgreSQL-backed auditor store.
func NewPostgresAuditors(db *sql.DB) *PostgresAuditors {
	return &PostgresAuditors{db: db, clock: time.Now}
}

func (p *PostgresAuditors) Create(ctx context.Context, a *certificate.Auditor) error {
	now := p.clock()
	err := p.db.QueryRowContext(ctx, `
		INSERT INTO auditors (certificate_id, full_name, audit_number, artifact_path, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, a.CertificateID, a.FullName, a.AuditNumber, nullString(a.ArtifactPath), now).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("create auditor: %w", err)
	}
	a.CreatedAt = now
	return nil
}

func (p *PostgresAuditors) FindByID(ctx context.Context, id int64) (*certificate.Auditor, error) {
	var (
		a            certificate.Auditor
		artifactPath sql.NullString
	)
	err := p.db.QueryRowContext(ctx, `
		SELECT id, certificate_id, full_name, audit_number, artifact_path, created_at
		FROM auditors WHERE id = $1
	`, id).Scan(&a.ID, &a.CertificateID, &a.FullName, &a.AuditNumber, &artifactPath, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find auditor: %w", err)
	}
	a.ArtifactPath = artifactPath.String
	return &a, nil
}

func (p *PostgresAuditors) ListByCertificate(ctx context.Context, certificateID int64) ([]*certificate.Auditor, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, certificate_id, full_name, audit_number, artifact_path, created_at
		FROM auditors WHERE certificate_id = $1 ORDER BY id
	`, certificateID)
	if err != nil {
		return nil, fmt.Errorf("list auditors: %w", err)
	}
	defer rows.Close()

	var out []*certificate.Auditor
	for rows.Next() {
		var (
			a            certificate.Auditor
			artifactPath sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.CertificateID, &a.FullName, &a.AuditNumber, &artifactPath, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan auditor row: %w", err)
		}
		a.ArtifactPath = artifactPath.String
		out = append(out, &a)
	}
	return out, rows.Err()
}

func (p *PostgresAuditors) CountByCertificate(ctx context.Context, certificateID int64) (int, error) {
	var count int
	err := p.db.QueryRowContext(ctx,
		`SELECT count(*) FROM auditors WHERE certificate_id = $1`, certificateID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count auditors: %w", err)
	}
	return count, nil
}

func (p *PostgresAuditors) Delete(ctx context.Context, id int64) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM auditors WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete auditor: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (p *PostgresAuditors) DeleteByCertificate(ctx context.Context, certificateID int64) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM auditors WHERE certificate_id = $1`, certificateID)
	if err != nil {
		return fmt.Errorf("delete auditors for certificate: %w", err)
	}
	return nil
}
