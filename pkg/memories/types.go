package memories

import "time"

// excerptLength is the number of content characters kept in list summaries
const excerptLength = 115

// Memory is a single diary entry owned by a user. Content is free-form
// text; CoverURL points at a previously uploaded asset.
type Memory struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	CoverURL  string    `json:"coverUrl"`
	Content   string    `json:"content"`
	IsPublic  bool      `json:"isPublic"`
	CreatedAt time.Time `json:"createdAt"`
}

// Summary is the listing shape: full content is replaced by a truncated
// excerpt.
type Summary struct {
	ID        string    `json:"id"`
	CoverURL  string    `json:"coverUrl"`
	Excerpt   string    `json:"excerpt"`
	CreatedAt time.Time `json:"createdAt"`
}

// CreateRequest carries the caller-supplied fields of a new memory
type CreateRequest struct {
	CoverURL string `json:"coverUrl"`
	Content  string `json:"content"`
	IsPublic bool   `json:"isPublic"`
}

// UpdateRequest carries the mutable fields of an existing memory
type UpdateRequest struct {
	CoverURL string `json:"coverUrl"`
	Content  string `json:"content"`
	IsPublic bool   `json:"isPublic"`
}

// excerpt truncates content for list views. Truncation is rune-aware so a
// multi-byte character is never split.
func excerpt(content string) string {
	runes := []rune(content)
	if len(runes) <= excerptLength {
		return content
	}
	return string(runes[:excerptLength]) + "..."
}
