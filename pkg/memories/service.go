// Package memories implements the diary entries owned by users: listing
// with excerpts, single-entry reads with a visibility check, and
// owner-guarded mutation.
package memories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no memory exists with the given ID
	ErrNotFound = errors.New("memory not found")

	// ErrNotOwner is returned when the caller is not the memory's owner
	// and the memory is not public
	ErrNotOwner = errors.New("memory does not belong to the requesting user")
)

// Service implements memory CRUD using PostgreSQL
type Service struct {
	db *sql.DB
}

// NewService creates a new memories service
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// List returns the caller's memories ordered oldest first, with content
// truncated to an excerpt.
func (s *Service) List(ctx context.Context, userID string) ([]Summary, error) {
	query := `
		SELECT id, cover_url, content, created_at
		FROM memories
		WHERE user_id = $1
		ORDER BY created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memories: %w", err)
	}
	defer rows.Close()

	summaries := make([]Summary, 0)
	for rows.Next() {
		var sum Summary
		var content string
		if err := rows.Scan(&sum.ID, &sum.CoverURL, &content, &sum.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan memory: %w", err)
		}
		sum.Excerpt = excerpt(content)
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate memories: %w", err)
	}
	return summaries, nil
}

// Get returns a single memory. Private memories are only visible to their
// owner; public ones are visible to anyone, including unauthenticated
// callers (userID == "").
func (s *Service) Get(ctx context.Context, id, userID string) (*Memory, error) {
	mem, err := s.getByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !mem.IsPublic && mem.UserID != userID {
		return nil, ErrNotOwner
	}
	return mem, nil
}

// Create inserts a new memory owned by userID
func (s *Service) Create(ctx context.Context, userID string, req *CreateRequest) (*Memory, error) {
	mem := &Memory{
		UserID:   userID,
		CoverURL: req.CoverURL,
		Content:  req.Content,
		IsPublic: req.IsPublic,
	}
	query := `
		INSERT INTO memories (user_id, cover_url, content, is_public)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	err := s.db.QueryRowContext(ctx, query, mem.UserID, mem.CoverURL, mem.Content, mem.IsPublic).
		Scan(&mem.ID, &mem.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory: %w", err)
	}
	return mem, nil
}

// Update replaces the mutable fields of a memory. Only the owner may
// update; the owner itself never changes.
func (s *Service) Update(ctx context.Context, id, userID string, req *UpdateRequest) (*Memory, error) {
	mem, err := s.getByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if mem.UserID != userID {
		return nil, ErrNotOwner
	}

	query := `
		UPDATE memories
		SET cover_url = $1, content = $2, is_public = $3
		WHERE id = $4
	`
	if _, err := s.db.ExecContext(ctx, query, req.CoverURL, req.Content, req.IsPublic, id); err != nil {
		return nil, fmt.Errorf("failed to update memory: %w", err)
	}

	mem.CoverURL = req.CoverURL
	mem.Content = req.Content
	mem.IsPublic = req.IsPublic
	return mem, nil
}

// Delete removes a memory. Only the owner may delete.
func (s *Service) Delete(ctx context.Context, id, userID string) error {
	mem, err := s.getByID(ctx, id)
	if err != nil {
		return err
	}
	if mem.UserID != userID {
		return ErrNotOwner
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM memories WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete memory: %w", err)
	}
	return nil
}

func (s *Service) getByID(ctx context.Context, id string) (*Memory, error) {
	query := `
		SELECT id, user_id, cover_url, content, is_public, created_at
		FROM memories
		WHERE id = $1
	`
	mem := &Memory{}
	err := s.db.QueryRowContext(ctx, query, id).
		Scan(&mem.ID, &mem.UserID, &mem.CoverURL, &mem.Content, &mem.IsPublic, &mem.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get memory: %w", err)
	}
	return mem, nil
}
