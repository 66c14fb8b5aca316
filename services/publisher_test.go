package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/cppla/inkblog/models"
	"github.com/cppla/inkblog/repository"
	"github.com/cppla/inkblog/storage"
)

type publishFixture struct {
	db        *gorm.DB
	store     *faultyStore
	local     *storage.LocalStore
	posts     repository.PostRepository
	uploads   repository.UploadRepository
	publisher *Publisher
	author    *models.User
}

func newPublishFixture(t *testing.T, opts PublisherOptions) *publishFixture {
	t.Helper()
	db := newTestDB(t)
	store, local := newFaultyStore(t)
	posts := repository.NewPostRepository(db)
	uploads := repository.NewUploadRepository(db)
	author := &models.User{Username: "admin", Provider: "github", ProviderID: "1", Role: models.RoleAdmin}
	require.NoError(t, db.Create(author).Error)

	return &publishFixture{
		db: db, store: store, local: local, posts: posts, uploads: uploads, author: author,
		publisher: NewPublisher(store, posts, uploads, NewPromoter(store, 1), NewSweeper(store, uploads), opts),
	}
}

func (f *publishFixture) input(content, session string) PublishInput {
	return PublishInput{AuthorID: f.author.ID, Title: "Hello", Content: content, Hashtags: []string{"Go"}, SessionID: session}
}

func (f *publishFixture) postCount(t *testing.T) int64 {
	var n int64
	require.NoError(t, f.db.Model(&models.Post{}).Count(&n).Error)
	return n
}

func TestPublish_NoImages(t *testing.T) {
	f := newPublishFixture(t, PublisherOptions{})
	content := "just words and an ![external](https://elsewhere.org/x.png)"

	out, err := f.publisher.Publish(context.Background(), f.input(content, ""))
	require.NoError(t, err)
	assert.Equal(t, content, out.Post.ContentMarkdown)
	assert.Empty(t, out.Post.ThumbnailURL)
	assert.Empty(t, out.Promotion.Items)
	assert.Equal(t, StateTempSwept, out.State)
}

func TestPublish_RewritesAllPromotedImages(t *testing.T) {
	f := newPublishFixture(t, PublisherOptions{})
	p1, u1 := putTemp(t, f.store, f.uploads, "s1")
	p2, u2 := putTemp(t, f.store, f.uploads, "s1")
	content := "![a](" + u1 + ") text ![b](" + u2 + ")"

	out, err := f.publisher.Publish(context.Background(), f.input(content, "s1"))
	require.NoError(t, err)

	perm1 := f.store.PublicURL(permanentOf(t, p1))
	perm2 := f.store.PublicURL(permanentOf(t, p2))
	assert.Equal(t, "![a]("+perm1+") text ![b]("+perm2+")", out.Post.ContentMarkdown)
	assert.Equal(t, perm1, out.Post.ThumbnailURL)
	assert.NotContains(t, out.Post.ContentMarkdown, "temp/")

	stored, err := f.posts.GetByID(context.Background(), out.Post.ID)
	require.NoError(t, err)
	assert.Equal(t, out.Post.ContentMarkdown, stored.ContentMarkdown)
	assert.Equal(t, []string{"go"}, stored.HashtagNames())

	var row models.UploadedFile
	require.NoError(t, f.db.Where("path = ?", permanentOf(t, p1)).First(&row).Error)
	assert.False(t, row.IsTemporary)
	assert.Equal(t, perm1, row.URL)
}

func TestPublish_CopyFailureKeepsTempURL(t *testing.T) {
	f := newPublishFixture(t, PublisherOptions{})
	p1, u1 := putTemp(t, f.store, f.uploads, "s1")
	f.store.copyErr[p1] = errors.New("copy refused")
	content := "![a](" + u1 + ")"

	out, err := f.publisher.Publish(context.Background(), f.input(content, "s1"))
	require.NoError(t, err)
	assert.Equal(t, content, out.Post.ContentMarkdown)
	assert.Empty(t, out.Post.ThumbnailURL)
	assert.Equal(t, []string{p1}, out.Promotion.Failed())
}

func TestPublish_ThumbnailSkipsFailedImage(t *testing.T) {
	f := newPublishFixture(t, PublisherOptions{})
	p1, u1 := putTemp(t, f.store, f.uploads, "s1")
	p2, u2 := putTemp(t, f.store, f.uploads, "s1")
	f.store.copyErr[p1] = errors.New("copy refused")

	out, err := f.publisher.Publish(context.Background(), f.input("![a]("+u1+")\n![b]("+u2+")", "s1"))
	require.NoError(t, err)
	assert.Equal(t, f.store.PublicURL(permanentOf(t, p2)), out.Post.ThumbnailURL)
	assert.Contains(t, out.Post.ContentMarkdown, u1)
}

func TestPublish_FatalPromotionWritesNothing(t *testing.T) {
	f := newPublishFixture(t, PublisherOptions{})
	p1, u1 := putTemp(t, f.store, f.uploads, "s1")
	f.store.deleteErr[p1] = errors.New("delete refused")

	out, err := f.publisher.Publish(context.Background(), f.input("![a]("+u1+")", "s1"))
	require.Error(t, err)
	assert.Nil(t, out)
	var perr *PromotionError
	assert.ErrorAs(t, err, &perr)
	assert.Zero(t, f.postCount(t))
}

func TestPublish_StrictModeRejectsPartialPromotion(t *testing.T) {
	f := newPublishFixture(t, PublisherOptions{StrictPromotion: true})
	p1, u1 := putTemp(t, f.store, f.uploads, "s1")
	p2, u2 := putTemp(t, f.store, f.uploads, "s1")
	f.store.copyErr[p1] = errors.New("copy refused")

	_, err := f.publisher.Publish(context.Background(), f.input("![a]("+u1+") ![b]("+u2+")", "s1"))
	require.ErrorIs(t, err, ErrStrictPromotion)
	assert.Zero(t, f.postCount(t))
	assert.True(t, exists(t, f.local, p2), "promoted image is moved back so the draft stays valid")
	assert.False(t, exists(t, f.local, permanentOf(t, p2)))
}

func TestPublish_SweepFailureIsWarning(t *testing.T) {
	f := newPublishFixture(t, PublisherOptions{})
	_, u1 := putTemp(t, f.store, f.uploads, "s1")
	leftover, _ := putTemp(t, f.store, f.uploads, "s1")
	f.store.deleteErr[leftover] = errors.New("denied")

	out, err := f.publisher.Publish(context.Background(), f.input("![a]("+u1+")", "s1"))
	require.NoError(t, err)
	require.Len(t, out.Warnings, 1)
	assert.Equal(t, StatePersisted, out.State)
	assert.Equal(t, int64(1), f.postCount(t))
}

func TestPublish_SweepIsScopedToSession(t *testing.T) {
	f := newPublishFixture(t, PublisherOptions{})
	_, u1 := putTemp(t, f.store, f.uploads, "s1")
	mineUnused, _ := putTemp(t, f.store, f.uploads, "s1")
	otherDraft, _ := putTemp(t, f.store, f.uploads, "s2")

	_, err := f.publisher.Publish(context.Background(), f.input("![a]("+u1+")", "s1"))
	require.NoError(t, err)
	assert.False(t, exists(t, f.local, mineUnused))
	assert.True(t, exists(t, f.local, otherDraft))
}

func TestPublish_Validation(t *testing.T) {
	f := newPublishFixture(t, PublisherOptions{})
	in := f.input("x", "")
	in.Title = "   "
	_, err := f.publisher.Publish(context.Background(), in)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeValidation, appErr.Code)

	in = f.input("x", "")
	in.Hashtags = []string{"#", " "}
	_, err = f.publisher.Publish(context.Background(), in)
	require.ErrorAs(t, err, &appErr)
}

func TestRepublish(t *testing.T) {
	f := newPublishFixture(t, PublisherOptions{})
	p1, u1 := putTemp(t, f.store, f.uploads, "s1")
	out, err := f.publisher.Publish(context.Background(), f.input("![a]("+u1+")", "s1"))
	require.NoError(t, err)
	perm1 := f.store.PublicURL(permanentOf(t, p1))

	p2, u2 := putTemp(t, f.store, f.uploads, "s2")
	in := f.input("![b]("+u2+") then ![a]("+perm1+")", "s2")
	in.Title = "Updated"
	in.Hashtags = []string{"rust"}
	again, err := f.publisher.Republish(context.Background(), out.Post.ID, in)
	require.NoError(t, err)
	assert.Equal(t, []string{perm1[len("/static/uploads/"):]}, again.Promotion.Skipped())

	stored, err := f.posts.GetByID(context.Background(), out.Post.ID)
	require.NoError(t, err)
	assert.Equal(t, "Updated", stored.Title)
	assert.Equal(t, []string{"rust"}, stored.HashtagNames())
	assert.Equal(t, f.store.PublicURL(permanentOf(t, p2)), stored.ThumbnailURL)
	assert.False(t, strings.Contains(stored.ContentMarkdown, "temp/"))
	assert.Equal(t, int64(1), f.postCount(t))

	_, err = f.publisher.Republish(context.Background(), 999, in)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeNotFound, appErr.Code)
}

func TestUnpublish_RemovesUnsharedImages(t *testing.T) {
	f := newPublishFixture(t, PublisherOptions{})
	shared, su := putTemp(t, f.store, f.uploads, "s1")
	own, ou := putTemp(t, f.store, f.uploads, "s1")
	first, err := f.publisher.Publish(context.Background(), f.input("![s]("+su+") ![o]("+ou+")", "s1"))
	require.NoError(t, err)

	sharedURL := f.store.PublicURL(permanentOf(t, shared))
	_, err = f.publisher.Publish(context.Background(), f.input("![s]("+sharedURL+")", ""))
	require.NoError(t, err)

	require.NoError(t, f.publisher.Unpublish(context.Background(), first.Post.ID))
	assert.True(t, exists(t, f.local, permanentOf(t, shared)))
	assert.False(t, exists(t, f.local, permanentOf(t, own)))
	assert.Equal(t, int64(1), f.postCount(t))

	err = f.publisher.Unpublish(context.Background(), first.Post.ID)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
}

func TestPublish_ThumbnailIsFirstPromotedImage(t *testing.T) {
	f := newPublishFixture(t, PublisherOptions{})
	old := "permanent/image/old.png"
	require.NoError(t, f.store.Put(context.Background(), old, strings.NewReader("png"), 3, "image/png"))
	p1, u1 := putTemp(t, f.store, f.uploads, "s1")

	content := "![old](" + f.store.PublicURL(old) + ") ![new](" + u1 + ")"
	out, err := f.publisher.Publish(context.Background(), f.input(content, "s1"))
	require.NoError(t, err)
	assert.Equal(t, f.store.PublicURL(permanentOf(t, p1)), out.Post.ThumbnailURL)
}

func TestPublish_ThumbnailFallsBackToPermanentImage(t *testing.T) {
	f := newPublishFixture(t, PublisherOptions{})
	old := "permanent/image/old.png"
	require.NoError(t, f.store.Put(context.Background(), old, strings.NewReader("png"), 3, "image/png"))

	out, err := f.publisher.Publish(context.Background(), f.input("![old]("+f.store.PublicURL(old)+")", ""))
	require.NoError(t, err)
	assert.Equal(t, f.store.PublicURL(old), out.Post.ThumbnailURL)
}

func TestPublish_CancelledMidBatchRestoresDraft(t *testing.T) {
	f := newPublishFixture(t, PublisherOptions{})
	p1, u1 := putTemp(t, f.store, f.uploads, "s1")
	p2, u2 := putTemp(t, f.store, f.uploads, "s1")
	content := "![a](" + u1 + ") ![b](" + u2 + ")"

	ctx, cancel := context.WithCancel(context.Background())
	f.store.onDelete = cancel
	_, err := f.publisher.Publish(ctx, f.input(content, "s1"))
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, f.postCount(t))
	assert.True(t, exists(t, f.local, p1))
	assert.False(t, exists(t, f.local, permanentOf(t, p1)))
	assert.True(t, exists(t, f.local, p2))

	f.store.onDelete = nil
	out, err := f.publisher.Publish(context.Background(), f.input(content, "s1"))
	require.NoError(t, err)
	assert.Empty(t, out.Promotion.Failed())
	assert.NotContains(t, out.Post.ContentMarkdown, "temp/")
	assert.True(t, exists(t, f.local, permanentOf(t, p1)))
}

func TestRepublish_DeletesDroppedImages(t *testing.T) {
	f := newPublishFixture(t, PublisherOptions{})
	keep, ku := putTemp(t, f.store, f.uploads, "s1")
	drop, du := putTemp(t, f.store, f.uploads, "s1")
	shared, su := putTemp(t, f.store, f.uploads, "s1")
	out, err := f.publisher.Publish(context.Background(), f.input("![k]("+ku+") ![d]("+du+") ![s]("+su+")", "s1"))
	require.NoError(t, err)

	sharedURL := f.store.PublicURL(permanentOf(t, shared))
	_, err = f.publisher.Publish(context.Background(), f.input("![s]("+sharedURL+")", ""))
	require.NoError(t, err)

	keepURL := f.store.PublicURL(permanentOf(t, keep))
	_, err = f.publisher.Republish(context.Background(), out.Post.ID, f.input("![k]("+keepURL+")", ""))
	require.NoError(t, err)
	assert.True(t, exists(t, f.local, permanentOf(t, keep)))
	assert.False(t, exists(t, f.local, permanentOf(t, drop)))
	assert.True(t, exists(t, f.local, permanentOf(t, shared)))
}
