package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reclaimAPI/internal/apperr"
	"reclaimAPI/internal/docstore"
	"reclaimAPI/internal/types/post"
)

func TestCreateAndListPosts(t *testing.T) {
	ctx := context.Background()
	svc := NewPostService(docstore.NewMemoryStore())

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	first, err := svc.CreatePost(ctx, post.CreatePostRequest{Title: "Day one", Content: "Made it."})
	require.NoError(t, err)
	assert.Equal(t, "Anonymous", first.Author)
	assert.NotEmpty(t, first.ID)

	now = now.Add(time.Hour)
	_, err = svc.CreatePost(ctx, post.CreatePostRequest{Title: "Day two", Content: "Still here.", Author: "sam"})
	require.NoError(t, err)

	posts, err := svc.ListPosts(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "Day two", posts[0].Title)
	assert.Equal(t, "sam", posts[0].Author)
	assert.Equal(t, first.ID, posts[1].ID)
}

func TestCreatePostRequiresTitleAndContent(t *testing.T) {
	svc := NewPostService(docstore.NewMemoryStore())

	_, err := svc.CreatePost(context.Background(), post.CreatePostRequest{Title: "  ", Content: "x"})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, err = svc.CreatePost(context.Background(), post.CreatePostRequest{Title: "x"})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}
