package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"certregistry/internal/standard"
	"certregistry/pkg/platform/sentinel"
)

// Postgres persists the standard catalog in PostgreSQL. Name uniqueness is
// enforced by a unique index and surfaced as sentinel.ErrDuplicate.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed catalog.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) Create(ctx context.Context, st *standard.Standard) error {
	now := time.Now()
	err := p.db.QueryRowContext(ctx, `
		INSERT INTO iso_standards (name, certificate_name, prefix, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, st.Name, st.CertificateName, st.Prefix, now).Scan(&st.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrDuplicate
		}
		return fmt.Errorf("create standard: %w", err)
	}
	st.CreatedAt = now
	return nil
}

func (p *Postgres) Update(ctx context.Context, st *standard.Standard) error {
	res, err := p.db.ExecContext(ctx, `
		UPDATE iso_standards
		SET name = $2, certificate_name = $3, prefix = $4
		WHERE id = $1
	`, st.ID, st.Name, st.CertificateName, st.Prefix)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrDuplicate
		}
		return fmt.Errorf("update standard: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (p *Postgres) FindByID(ctx context.Context, id int64) (*standard.Standard, error) {
	return p.findOne(ctx, `WHERE id = $1`, id)
}

func (p *Postgres) FindByName(ctx context.Context, name string) (*standard.Standard, error) {
	return p.findOne(ctx, `WHERE lower(name) = lower($1)`, name)
}

func (p *Postgres) findOne(ctx context.Context, where string, arg any) (*standard.Standard, error) {
	var st standard.Standard
	err := p.db.QueryRowContext(ctx,
		`SELECT id, name, certificate_name, prefix, created_at FROM iso_standards `+where,
		arg,
	).Scan(&st.ID, &st.Name, &st.CertificateName, &st.Prefix, &st.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find standard: %w", err)
	}
	return &st, nil
}

func (p *Postgres) List(ctx context.Context) ([]*standard.Standard, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, name, certificate_name, prefix, created_at FROM iso_standards ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list standards: %w", err)
	}
	defer rows.Close()

	var out []*standard.Standard
	for rows.Next() {
		var st standard.Standard
		if err := rows.Scan(&st.ID, &st.Name, &st.CertificateName, &st.Prefix, &st.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan standard row: %w", err)
		}
		out = append(out, &st)
	}
	return out, rows.Err()
}

func (p *Postgres) Delete(ctx context.Context, id int64) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM iso_standards WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete standard: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
