package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/heroverse/apiserver/types"
	"github.com/jmoiron/sqlx"
)

// PostRepository handles persistence for posts in Postgres.
type PostRepository struct {
	db *sqlx.DB
}

func NewPostRepository(db *sqlx.DB) *PostRepository {
	return &PostRepository{db: db}
}

func (r *PostRepository) List(ctx context.Context, offset, limit int) ([]types.Post, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 10
	}

	const countQuery = `SELECT COUNT(1) FROM posts`
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery); err != nil {
		return nil, 0, err
	}

	const listQuery = `
		SELECT id, author_id, title, content, created_at
		FROM posts
		ORDER BY created_at, id
		OFFSET $1 LIMIT $2`
	posts := make([]types.Post, 0, limit)
	if err := r.db.SelectContext(ctx, &posts, listQuery, offset, limit); err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

func (r *PostRepository) Get(ctx context.Context, id string) (types.Post, error) {
	if _, err := uuid.Parse(id); err != nil {
		return types.Post{}, ErrNotFound
	}

	const query = `
		SELECT id, author_id, title, content, created_at
		FROM posts
		WHERE id = $1`
	var post types.Post
	if err := r.db.GetContext(ctx, &post, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Post{}, ErrNotFound
		}
		return types.Post{}, err
	}
	return post, nil
}

func (r *PostRepository) Create(ctx context.Context, post types.Post) (types.Post, error) {
	post.ID = uuid.NewString()
	post.CreatedAt = time.Now().UTC()

	const query = `
		INSERT INTO posts (id, author_id, title, content, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.db.ExecContext(ctx, query, post.ID, post.AuthorID, post.Title, post.Content, post.CreatedAt); err != nil {
		if pqCode(err) == pqForeignKeyViolation {
			return types.Post{}, ErrNotFound
		}
		return types.Post{}, err
	}
	return post, nil
}
