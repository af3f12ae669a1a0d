package services

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"reclaimAPI/internal/apperr"
	"reclaimAPI/internal/docstore"
	"reclaimAPI/internal/types/post"
)

const anonymousAuthor = "Anonymous"

type PostService struct {
	store docstore.Store
	now   func() time.Time
}

func NewPostService(store docstore.Store) *PostService {
	return &PostService{store: store, now: time.Now}
}

func (s *PostService) CreatePost(ctx context.Context, req post.CreatePostRequest) (*post.Post, error) {
	const op = "posts.CreatePost"
	title := strings.TrimSpace(req.Title)
	content := strings.TrimSpace(req.Content)
	if title == "" || content == "" {
		return nil, apperr.New(op, apperr.ErrInvalidInput, "title and content are required")
	}
	author := strings.TrimSpace(req.Author)
	if author == "" {
		author = anonymousAuthor
	}

	p := post.Post{
		ID:        uuid.NewString(),
		Title:     title,
		Content:   content,
		Author:    author,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.Create(ctx, post.Collection, p.ID, p); err != nil {
		return nil, storeErr(op, err)
	}
	return &p, nil
}

// ListPosts returns posts newest first.
func (s *PostService) ListPosts(ctx context.Context) ([]post.Post, error) {
	const op = "posts.ListPosts"
	snaps, err := s.store.Query(ctx, post.Collection)
	if err != nil {
		return nil, storeErr(op, err)
	}
	posts := make([]post.Post, 0, len(snaps))
	for _, snap := range snaps {
		var p post.Post
		if err := snap.DataTo(&p); err != nil {
			return nil, storeErr(op, err)
		}
		p.ID = snap.ID()
		posts = append(posts, p)
	}
	slices.SortStableFunc(posts, func(a, b post.Post) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return posts, nil
}
