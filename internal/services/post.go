package services

import (
	"context"
	"strings"

	"github.com/heroverse/apiserver/types"
)

// PostRepository defines persistence operations for posts.
type PostRepository interface {
	List(ctx context.Context, offset, limit int) ([]types.Post, int, error)
	Get(ctx context.Context, id string) (types.Post, error)
	Create(ctx context.Context, post types.Post) (types.Post, error)
}

// PostService encapsulates post use-cases.
type PostService struct {
	repo PostRepository
}

func NewPostService(repo PostRepository) *PostService {
	return &PostService{repo: repo}
}

func (s *PostService) List(ctx context.Context, page, size int) (types.Page[types.Post], error) {
	page, size = NormalizePage(page, size)

	items, total, err := s.repo.List(ctx, types.PageOffset(page, size), size)
	if err != nil {
		return types.Page[types.Post]{}, err
	}
	return types.Page[types.Post]{
		Items: items,
		Total: total,
		Page:  page,
		Size:  size,
		Pages: types.PageCount(total, size),
	}, nil
}

func (s *PostService) Get(ctx context.Context, id string) (types.Post, error) {
	return s.repo.Get(ctx, id)
}

func (s *PostService) Create(ctx context.Context, authorID, title, content string) (types.Post, error) {
	title = strings.TrimSpace(title)
	content = strings.TrimSpace(content)
	if title == "" {
		return types.Post{}, invalid("title is required")
	}
	if content == "" {
		return types.Post{}, invalid("content is required")
	}
	return s.repo.Create(ctx, types.Post{
		AuthorID: authorID,
		Title:    title,
		Content:  content,
	})
}
