package types

import "time"

// Post represents a short content record published by a user.
type Post struct {
	// ID is the unique identifier of the post.
	ID string `json:"id" db:"id"`

	// AuthorID references the user who created the post.
	AuthorID string `json:"authorId" db:"author_id"`

	// Title is the headline of the post.
	Title string `json:"title" db:"title"`

	// Content is the body text of the post.
	Content string `json:"content" db:"content"`

	// CreatedAt is the timestamp at which the post was created.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
