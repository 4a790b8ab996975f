package admin

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"certregistry/pkg/platform/sentinel"
)

// Postgres persists admin accounts in PostgreSQL.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed admin store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) Create(ctx context.Context, u *User) error {
	now := time.Now()
	err := p.db.QueryRowContext(ctx, `
		INSERT INTO admin_users (username, password_hash, created_at)
		VALUES ($1, $2, $3)
		RETURNING id
	`, u.Username, u.PasswordHash, now).Scan(&u.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return sentinel.ErrDuplicate
		}
		return fmt.Errorf("create admin user: %w", err)
	}
	u.CreatedAt = now
	return nil
}

func (p *Postgres) FindByUsername(ctx context.Context, username string) (*User, error) {
	var u User
	err := p.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, created_at
		FROM admin_users WHERE lower(username) = lower($1)
	`, username).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find admin user: %w", err)
	}
	return &u, nil
}
