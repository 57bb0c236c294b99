package memories

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryColumns() []string {
	return []string{"id", "user_id", "cover_url", "content", "is_public", "created_at"}
}

func expectGetByID(mock sqlmock.Sqlmock, id, userID, content string, isPublic bool) {
	mock.ExpectQuery("SELECT id, user_id, cover_url, content, is_public, created_at").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(memoryColumns()).
			AddRow(id, userID, "https://example.com/c.png", content, isPublic,
				time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)))
}

func TestExcerpt(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "short content unchanged",
			input:    "a short memory",
			expected: "a short memory",
		},
		{
			name:     "exactly at the limit unchanged",
			input:    strings.Repeat("x", 115),
			expected: strings.Repeat("x", 115),
		},
		{
			name:     "long content truncated",
			input:    strings.Repeat("x", 200),
			expected: strings.Repeat("x", 115) + "...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, excerpt(tt.input))
		})
	}
}

func TestExcerptMultibyte(t *testing.T) {
	input := strings.Repeat("ö", 200)
	out := excerpt(input)
	assert.Equal(t, strings.Repeat("ö", 115)+"...", out)
}

func TestList(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	long := strings.Repeat("m", 300)
	mock.ExpectQuery("SELECT id, cover_url, content, created_at").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "cover_url", "content", "created_at"}).
			AddRow("mem-1", "https://example.com/1.png", "short", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)).
			AddRow("mem-2", "https://example.com/2.png", long, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)))

	svc := NewService(db)
	summaries, err := svc.List(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, "short", summaries[0].Excerpt)
	assert.Equal(t, strings.Repeat("m", 115)+"...", summaries[1].Excerpt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListEmpty(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT id, cover_url, content, created_at").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "cover_url", "content", "created_at"}))

	svc := NewService(db)
	summaries, err := svc.List(context.Background(), "user-1")
	require.NoError(t, err)
	assert.NotNil(t, summaries)
	assert.Empty(t, summaries)
}

func TestGetOwnPrivateMemory(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectGetByID(mock, "mem-1", "user-1", "private thoughts", false)

	svc := NewService(db)
	mem, err := svc.Get(context.Background(), "mem-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, "private thoughts", mem.Content)
}

func TestGetPrivateMemoryAsStranger(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectGetByID(mock, "mem-1", "user-1", "private thoughts", false)

	svc := NewService(db)
	_, err = svc.Get(context.Background(), "mem-1", "user-2")
	assert.ErrorIs(t, err, ErrNotOwner)
}

func TestGetPublicMemoryAnonymously(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectGetByID(mock, "mem-1", "user-1", "shared trip", true)

	svc := NewService(db)
	mem, err := svc.Get(context.Background(), "mem-1", "")
	require.NoError(t, err)
	assert.Equal(t, "shared trip", mem.Content)
}

func TestGetMissingMemory(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT id, user_id, cover_url, content, is_public, created_at").
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows(memoryColumns()))

	svc := NewService(db)
	_, err = svc.Get(context.Background(), "nope", "user-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	created := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("INSERT INTO memories").
		WithArgs("user-1", "https://example.com/c.png", "a new memory", true).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("mem-9", created))

	svc := NewService(db)
	mem, err := svc.Create(context.Background(), "user-1", &CreateRequest{
		CoverURL: "https://example.com/c.png",
		Content:  "a new memory",
		IsPublic: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "mem-9", mem.ID)
	assert.Equal(t, "user-1", mem.UserID)
	assert.Equal(t, created, mem.CreatedAt)
}

func TestUpdatePreservesOwner(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectGetByID(mock, "mem-1", "user-1", "old content", false)
	// The owner column is never part of the update statement
	mock.ExpectExec("UPDATE memories").
		WithArgs("https://example.com/new.png", "new content", true, "mem-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	svc := NewService(db)
	mem, err := svc.Update(context.Background(), "mem-1", "user-1", &UpdateRequest{
		CoverURL: "https://example.com/new.png",
		Content:  "new content",
		IsPublic: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "user-1", mem.UserID)
	assert.Equal(t, "new content", mem.Content)
	assert.True(t, mem.IsPublic)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateByStranger(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectGetByID(mock, "mem-1", "user-1", "old content", true)

	svc := NewService(db)
	_, err = svc.Update(context.Background(), "mem-1", "user-2", &UpdateRequest{Content: "defaced"})
	assert.ErrorIs(t, err, ErrNotOwner)
	// No UPDATE was expected; a stray one fails here
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectGetByID(mock, "mem-1", "user-1", "content", false)
	mock.ExpectExec("DELETE FROM memories").
		WithArgs("mem-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	svc := NewService(db)
	require.NoError(t, svc.Delete(context.Background(), "mem-1", "user-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteByStranger(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectGetByID(mock, "mem-1", "user-1", "content", true)

	svc := NewService(db)
	err = svc.Delete(context.Background(), "mem-1", "user-2")
	assert.ErrorIs(t, err, ErrNotOwner)
	assert.NoError(t, mock.ExpectationsWereMet())
}
