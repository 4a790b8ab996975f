// Package admin handles staff accounts and authentication for the protected
// registry surface.
package admin

import (
	"context"
	"time"
)

// User is one staff account. Only the bcrypt hash of the password is stored.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Store abstracts staff account persistence.
type Store interface {
	Create(ctx context.Context, u *User) error
	FindByUsername(ctx context.Context, username string) (*User, error)
}
