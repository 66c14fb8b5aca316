package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/inkblog/models"
	"github.com/cppla/inkblog/repository"
)

func TestBuildCommentTree(t *testing.T) {
	one, two := uint(1), uint(2)
	missing := uint(99)
	flat := []*models.Comment{
		{ID: 1},
		{ID: 2, ParentID: &one},
		{ID: 3, ParentID: &two},
		{ID: 4},
		{ID: 5, ParentID: &missing},
	}
	roots := BuildCommentTree(flat)
	require.Len(t, roots, 3)
	assert.Equal(t, uint(1), roots[0].ID)
	require.Len(t, roots[0].Replies, 1)
	assert.Equal(t, uint(3), roots[0].Replies[0].Replies[0].ID)
	assert.Equal(t, uint(5), roots[2].ID)
	assert.NotNil(t, roots[1].Replies)
}

func TestCommentService(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	posts := repository.NewPostRepository(db)
	svc := NewCommentService(posts, repository.NewCommentRepository(db))

	author := &models.User{Username: "a", Provider: "github", ProviderID: "1"}
	other := &models.User{Username: "b", Provider: "github", ProviderID: "2"}
	require.NoError(t, db.Create(author).Error)
	require.NoError(t, db.Create(other).Error)
	p1 := &models.Post{UserID: author.ID, Title: "p1", ContentMarkdown: "x"}
	p2 := &models.Post{UserID: author.ID, Title: "p2", ContentMarkdown: "y"}
	require.NoError(t, posts.Save(ctx, p1, []string{"go"}))
	require.NoError(t, posts.Save(ctx, p2, []string{"go"}))

	root, err := svc.Create(ctx, p1.ID, author.ID, nil, "  hello <script>x</script> ")
	require.NoError(t, err)
	assert.Equal(t, "hello", root.Content)
	assert.Equal(t, "a", root.User.Username)

	_, err = svc.Create(ctx, p1.ID, other.ID, &root.ID, "reply")
	require.NoError(t, err)

	var appErr *models.AppError
	_, err = svc.Create(ctx, p2.ID, other.ID, &root.ID, "wrong post")
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeValidation, appErr.Code)

	_, err = svc.Create(ctx, 999, other.ID, nil, "no post")
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeNotFound, appErr.Code)

	_, err = svc.Create(ctx, p1.ID, other.ID, nil, "<script>alert(1)</script>")
	require.ErrorAs(t, err, &appErr)

	tree, err := svc.Tree(ctx, p1.ID)
	require.NoError(t, err)
	require.Len(t, tree, 1)
	require.Len(t, tree[0].Replies, 1)

	_, err = svc.Delete(ctx, root.ID, other.ID, false)
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeForbidden, appErr.Code)

	n, err := svc.Delete(ctx, root.ID, other.ID, true)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}
