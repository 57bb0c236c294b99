// Package users maps provider-assigned external identities to local user
// records.
package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/platinummonkey/capsule/pkg/provider"
)

// uniqueViolation is the PostgreSQL error code raised when an INSERT hits
// the unique constraint on external_id.
const uniqueViolation = pq.ErrorCode("23505")

// User is a local account created on first successful login for a given
// external identity. Profile fields are snapshotted at creation and not
// refreshed on later logins.
type User struct {
	ID         string    `json:"id"`
	ExternalID int64     `json:"external_id"`
	Login      string    `json:"login"`
	Name       string    `json:"name"`
	AvatarURL  string    `json:"avatar_url"`
	CreatedAt  time.Time `json:"created_at"`
}

// Directory is the only write path that creates users
type Directory struct {
	db *sql.DB
}

// NewDirectory creates a new user directory
func NewDirectory(db *sql.DB) *Directory {
	return &Directory{db: db}
}

// UpsertByExternalID returns the user for the given external identity,
// creating one on first sight. Two concurrent first logins for the same
// identity race on the INSERT; the unique constraint on external_id is the
// authority, and the loser of the race falls back to fetching the row the
// winner created.
func (d *Directory) UpsertByExternalID(ctx context.Context, identity *provider.Identity) (*User, error) {
	user, err := d.getByExternalID(ctx, identity.ExternalID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	user = &User{
		ID:         uuid.NewString(),
		ExternalID: identity.ExternalID,
		Login:      identity.Login,
		Name:       identity.Name,
		AvatarURL:  identity.AvatarURL,
	}

	err = d.db.QueryRowContext(ctx, `
		INSERT INTO users (id, external_id, login, name, avatar_url, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING created_at
	`, user.ID, user.ExternalID, user.Login, user.Name, user.AvatarURL).Scan(&user.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			// Lost the race to a concurrent first login; the row exists now
			user, err = d.getByExternalID(ctx, identity.ExternalID)
			if err != nil {
				return nil, fmt.Errorf("failed to fetch user after duplicate insert: %w", err)
			}
			return user, nil
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// GetByID fetches a user by its local ID
func (d *Directory) GetByID(ctx context.Context, id string) (*User, error) {
	user := &User{}
	err := d.db.QueryRowContext(ctx, `
		SELECT id, external_id, login, name, avatar_url, created_at
		FROM users WHERE id = $1
	`, id).Scan(&user.ID, &user.ExternalID, &user.Login, &user.Name, &user.AvatarURL, &user.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	return user, nil
}

func (d *Directory) getByExternalID(ctx context.Context, externalID int64) (*User, error) {
	user := &User{}
	err := d.db.QueryRowContext(ctx, `
		SELECT id, external_id, login, name, avatar_url, created_at
		FROM users WHERE external_id = $1
	`, externalID).Scan(&user.ID, &user.ExternalID, &user.Login, &user.Name, &user.AvatarURL, &user.CreatedAt)
	if err != nil {
		return nil, err
	}
	return user, nil
}
