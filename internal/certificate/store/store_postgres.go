package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"certregistry/internal/certificate"
	"certregistry/pkg/platform/sentinel"
)

// Postgres persists certificates in PostgreSQL.
type Postgres struct {
	db    *sql.DB
	clock certificate.Clock
}

// PostgresOption configures a Postgres store instance.
type PostgresOption func(*Postgres)

// WithPostgresClock sets the clock function for testability.
func WithPostgresClock(clock certificate.Clock) PostgresOption {
	return func(p *Postgres) {
		if clock != nil {
			p.clock = clock
		}
	}
}

// NewPostgres constructs a PostgreSQL-backed certificate store.
func NewPostgres(db *sql.DB, opts ...PostgresOption) *Postgres {
	p := &Postgres{
		db:    db,
		clock: time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

const certificateColumns = `
	id, number_part, standard_id, standard_name,
	org_name, org_inn, org_address, quality_system, certification_area,
	start_date, expiry_date, validity_years,
	first_inspection_date, first_inspection_status,
	second_inspection_date, second_inspection_status,
	status, notifications_enabled, client_email, qr_code_path,
	created_at, updated_at`

func (p *Postgres) Create(ctx context.Context, c *certificate.Certificate) error {
	now := p.clock()
	query := `
		INSERT INTO certificates (
			number_part, standard_id, standard_name,
			org_name, org_inn, org_address, quality_system, certification_area,
			start_date, expiry_date, validity_years,
			first_inspection_date, first_inspection_status,
			second_inspection_date, second_inspection_status,
			status, notifications_enabled, client_email, qr_code_path,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)
		RETURNING id
	`
	err := p.db.QueryRowContext(ctx, query,
		c.NumberPart, c.StandardID, c.StandardName,
		c.OrgName, c.OrgINN, c.OrgAddress, c.QualitySystem, c.CertificationArea,
		c.StartDate, c.ExpiryDate, c.ValidityYears,
		nullTime(c.FirstInspectionDate), string(c.FirstInspectionStatus),
		nullTime(c.SecondInspectionDate), string(c.SecondInspectionStatus),
		string(c.Status), c.NotificationsEnabled, nullString(c.ClientEmail), nullString(c.QRCodePath),
		now, now,
	).Scan(&c.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrDuplicate
		}
		return fmt.Errorf("create certificate: %w", err)
	}
	c.CreatedAt = now
	c.UpdatedAt = now
	return nil
}

func (p *Postgres) Update(ctx context.Context, c *certificate.Certificate) error {
	now := p.clock()
	query := `
		UPDATE certificates SET
			number_part = $2, standard_id = $3, standard_name = $4,
			org_name = $5, org_inn = $6, org_address = $7,
			quality_system = $8, certification_area = $9,
			start_date = $10, expiry_date = $11, validity_years = $12,
			first_inspection_date = $13, first_inspection_status = $14,
			second_inspection_date = $15, second_inspection_status = $16,
			status = $17, notifications_enabled = $18, client_email = $19,
			qr_code_path = $20, updated_at = $21
		WHERE id = $1
	`
	res, err := p.db.ExecContext(ctx, query,
		c.ID, c.NumberPart, c.StandardID, c.StandardName,
		c.OrgName, c.OrgINN, c.OrgAddress, c.QualitySystem, c.CertificationArea,
		c.StartDate, c.ExpiryDate, c.ValidityYears,
		nullTime(c.FirstInspectionDate), string(c.FirstInspectionStatus),
		nullTime(c.SecondInspectionDate), string(c.SecondInspectionStatus),
		string(c.Status), c.NotificationsEnabled, nullString(c.ClientEmail),
		nullString(c.QRCodePath), now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrDuplicate
		}
		return fmt.Errorf("update certificate: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return sentinel.ErrNotFound
	}
	c.UpdatedAt = now
	return nil
}

func (p *Postgres) UpdateStatusFields(ctx context.Context, c *certificate.Certificate) error {
	now := p.clock()
	query := `
		UPDATE certificates SET
			status = $2,
			first_inspection_date = $3, first_inspection_status = $4,
			second_inspection_date = $5, second_inspection_status = $6,
			updated_at = $7
		WHERE id = $1
	`
	res, err := p.db.ExecContext(ctx, query,
		c.ID, string(c.Status),
		nullTime(c.FirstInspectionDate), string(c.FirstInspectionStatus),
		nullTime(c.SecondInspectionDate), string(c.SecondInspectionStatus),
		now,
	)
	if err != nil {
		return fmt.Errorf("update certificate status: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return sentinel.ErrNotFound
	}
	c.UpdatedAt = now
	return nil
}

func (p *Postgres) FindByID(ctx context.Context, id int64) (*certificate.Certificate, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT `+certificateColumns+` FROM certificates WHERE id = $1`, id)
	return scanCertificate(row)
}

func (p *Postgres) FindByNumberPart(ctx context.Context, numberPart string) (*certificate.Certificate, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT `+certificateColumns+` FROM certificates WHERE number_part = $1`, numberPart)
	return scanCertificate(row)
}

func (p *Postgres) List(ctx context.Context) ([]*certificate.Certificate, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT `+certificateColumns+` FROM certificates ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list certificates: %w", err)
	}
	defer rows.Close()
	return scanCertificates(rows)
}

func (p *Postgres) ListNotifiable(ctx context.Context) ([]*certificate.Certificate, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT `+certificateColumns+` FROM certificates WHERE notifications_enabled ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list notifiable certificates: %w", err)
	}
	defer rows.Close()
	return scanCertificates(rows)
}

func (p *Postgres) SearchByNumber(ctx context.Context, fragment string, exact bool) ([]*certificate.Certificate, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if exact {
		rows, err = p.db.QueryContext(ctx,
			`SELECT `+certificateColumns+` FROM certificates WHERE lower(number_part) = lower($1) ORDER BY number_part`,
			fragment)
	} else {
		rows, err = p.db.QueryContext(ctx,
			`SELECT `+certificateColumns+` FROM certificates WHERE number_part LIKE '%' || $1 || '%' ORDER BY number_part`,
			fragment)
	}
	if err != nil {
		return nil, fmt.Errorf("search certificates: %w", err)
	}
	defer rows.Close()
	return scanCertificates(rows)
}

func (p *Postgres) Delete(ctx context.Context, id int64) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM certificates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete certificate: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (p *Postgres) HighestNumberPart(ctx context.Context) (string, error) {
	var highest sql.NullString
	err := p.db.QueryRowContext(ctx,
		`SELECT max(number_part) FROM certificates`).Scan(&highest)
	if err != nil {
		return "", fmt.Errorf("highest number part: %w", err)
	}
	return highest.String, nil
}

func (p *Postgres) Stats(ctx context.Context) (*certificate.Stats, error) {
	stats := &certificate.Stats{
		ByStatus:         make(map[certificate.Status]int),
		FirstInspection:  make(map[certificate.InspectionStatus]int),
		SecondInspection: make(map[certificate.InspectionStatus]int),
		ByStandard:       make(map[string]int),
	}

	rows, err := p.db.QueryContext(ctx, `
		SELECT status, first_inspection_status, second_inspection_status, standard_name
		FROM certificates
	`)
	if err != nil {
		return nil, fmt.Errorf("certificate stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status, first, second, standard string
		if err := rows.Scan(&status, &first, &second, &standard); err != nil {
			return nil, fmt.Errorf("scan stats row: %w", err)
		}
		stats.Total++
		stats.ByStatus[certificate.Status(status)]++
		stats.FirstInspection[certificate.InspectionStatus(first)]++
		stats.SecondInspection[certificate.InspectionStatus(second)]++
		stats.ByStandard[standard]++
	}
	return stats, rows.Err()
}

func scanCertificate(row *sql.Row) (*certificate.Certificate, error) {
	var (
		c            certificate.Certificate
		firstDate    sql.NullTime
		secondDate   sql.NullTime
		firstStatus  string
		secondStatus string
		status       string
		clientEmail  sql.NullString
		qrCodePath   sql.NullString
	)
	err := row.Scan(
		&c.ID, &c.NumberPart, &c.StandardID, &c.StandardName,
		&c.OrgName, &c.OrgINN, &c.OrgAddress, &c.QualitySystem, &c.CertificationArea,
		&c.StartDate, &c.ExpiryDate, &c.ValidityYears,
		&firstDate, &firstStatus, &secondDate, &secondStatus,
		&status, &c.NotificationsEnabled, &clientEmail, &qrCodePath,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan certificate: %w", err)
	}
	applyNullable(&c, firstDate, secondDate, firstStatus, secondStatus, status, clientEmail, qrCodePath)
	return &c, nil
}

func scanCertificates(rows *sql.Rows) ([]*certificate.Certificate, error) {
	var out []*certificate.Certificate
	for rows.Next() {
		var (
			c            certificate.Certificate
			firstDate    sql.NullTime
			secondDate   sql.NullTime
			firstStatus  string
			secondStatus string
			status       string
			clientEmail  sql.NullString
			qrCodePath   sql.NullString
		)
		err := rows.Scan(
			&c.ID, &c.NumberPart, &c.StandardID, &c.StandardName,
			&c.OrgName, &c.OrgINN, &c.OrgAddress, &c.QualitySystem, &c.CertificationArea,
			&c.StartDate, &c.ExpiryDate, &c.ValidityYears,
			&firstDate, &firstStatus, &secondDate, &secondStatus,
			&status, &c.NotificationsEnabled, &clientEmail, &qrCodePath,
			&c.CreatedAt, &c.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan certificate row: %w", err)
		}
		applyNullable(&c, firstDate, secondDate, firstStatus, secondStatus, status, clientEmail, qrCodePath)
		out = append(out, &c)
	}
	return out, rows.Err()
}

func applyNullable(c *certificate.Certificate, firstDate, secondDate sql.NullTime,
	firstStatus, secondStatus, status string, clientEmail, qrCodePath sql.NullString) {
	if firstDate.Valid {
		t := firstDate.Time
		c.FirstInspectionDate = &t
	}
	if secondDate.Valid {
		t := secondDate.Time
		c.SecondInspectionDate = &t
	}
	c.FirstInspectionStatus = certificate.InspectionStatus(firstStatus)
	c.SecondInspectionStatus = certificate.InspectionStatus(secondStatus)
	c.Status = certificate.Status(status)
	c.ClientEmail = clientEmail.String
	c.QRCodePath = qrCodePath.String
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
