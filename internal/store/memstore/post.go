package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/heroverse/apiserver/internal/store"
	"github.com/heroverse/apiserver/types"
)

// PostRepository is an in-memory, creation-ordered post collection.
type PostRepository struct {
	mu    sync.RWMutex
	posts []types.Post
}

func NewPostRepository() *PostRepository {
	return &PostRepository{}
}

func (r *PostRepository) List(ctx context.Context, offset, limit int) ([]types.Post, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total := len(r.posts)
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}
	end := offset + limit
	if limit < 1 || end > total {
		end = total
	}

	posts := make([]types.Post, end-offset)
	copy(posts, r.posts[offset:end])
	return posts, total, nil
}

func (r *PostRepository) Get(ctx context.Context, id string) (types.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, post := range r.posts {
		if post.ID == id {
			return post, nil
		}
	}
	return types.Post{}, store.ErrNotFound
}

func (r *PostRepository) Create(ctx context.Context, post types.Post) (types.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	post.ID = uuid.NewString()
	post.CreatedAt = time.Now()
	r.posts = append(r.posts, post)
	return post, nil
}
