package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cppla/inkblog/markdown"
	"github.com/cppla/inkblog/metrics"
	"github.com/cppla/inkblog/models"
	"github.com/cppla/inkblog/repository"
	"github.com/cppla/inkblog/storage"
	"github.com/cppla/inkblog/utils"
)

// ErrStrictPromotion is returned in strict mode when any image failed to promote.
var ErrStrictPromotion = errors.New("one or more images could not be promoted")

// State is a step of the publication flow. Steps only move forward.
type State int

const (
	StateDraft State = iota
	StatePathsExtracted
	StatePromoted
	StateContentRewritten
	StatePersisted
	StateTempSwept
)

var stateNames = [...]string{"draft", "paths_extracted", "promoted", "content_rewritten", "persisted", "temp_swept"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// PublishInput is an already validated author submission.
type PublishInput struct {
	AuthorID  uint
	Title     string
	Content   string
	Hashtags  []string
	SessionID string
}

// PublishOutcome describes a successful publish.
type PublishOutcome struct {
	Post      *models.Post
	Promotion PromotionResult
	State     State
	// Warnings carry non-fatal problems found after the post was persisted.
	Warnings []string
}

// PublisherOptions tune the publication flow.
type PublisherOptions struct {
	// StrictPromotion fails the publish when any image copy fails instead of
	// keeping its temp URL in the content.
	StrictPromotion bool
}

// Publisher runs extraction, promotion, rewrite, persistence and sweep.
type Publisher struct {
	store    storage.Store
	posts    repository.PostRepository
	uploads  repository.UploadRepository
	promoter *Promoter
	sweeper  *Sweeper
	opts     PublisherOptions
}

// NewPublisher wires a Publisher.
func NewPublisher(store storage.Store, posts repository.PostRepository, uploads repository.UploadRepository,
	promoter *Promoter, sweeper *Sweeper, opts PublisherOptions) *Publisher {
	return &Publisher{
		store:    store,
		posts:    posts,
		uploads:  uploads,
		promoter: promoter,
		sweeper:  sweeper,
		opts:     opts,
	}
}

// Publish creates a new post.
func (p *Publisher) Publish(ctx context.Context, in PublishInput) (*PublishOutcome, error) {
	return p.run(ctx, &models.Post{UserID: in.AuthorID}, in)
}

// Republish replaces the title, content and hashtags of an existing post.
func (p *Publisher) Republish(ctx context.Context, postID uint, in PublishInput) (*PublishOutcome, error) {
	existing, err := p.posts.GetByID(ctx, postID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, models.NewNotFoundError("Post", postID)
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	out, err := p.run(ctx, &models.Post{ID: existing.ID, UserID: existing.UserID, CreatedAt: existing.CreatedAt}, in)
	if err != nil {
		return nil, err
	}

	kept := make(map[string]bool)
	for _, path := range markdown.ExtractImagePaths(out.Post.ContentMarkdown, p.store) {
		kept[path] = true
	}
	var dropped []string
	for _, path := range markdown.ExtractImagePaths(existing.ContentMarkdown, p.store) {
		if !kept[path] {
			dropped = append(dropped, path)
		}
	}
	p.deleteOrphans(ctx, postID, dropped)
	return out, nil
}

func (p *Publisher) run(ctx context.Context, post *models.Post, in PublishInput) (out *PublishOutcome, err error) {
	start := time.Now()
	defer func() {
		result := "ok"
		if err != nil {
			result = "error"
		}
		metrics.ObservePublish(result, start)
	}()

	title := utils.StripTags(in.Title)
	if title == "" {
		return nil, models.NewValidationError("title must not be blank")
	}
	tags := models.NormalizeHashtags(in.Hashtags)
	if len(tags) == 0 || len(tags) > 10 {
		return nil, models.NewValidationError("between 1 and 10 hashtags are required")
	}

	log := utils.Logger.With(zap.Uint("post_id", post.ID), zap.String("session", in.SessionID))
	out = &PublishOutcome{State: StateDraft}
	step := func(s State, fields ...zap.Field) {
		out.State = s
		log.Debug("publish "+s.String(), fields...)
	}

	paths := markdown.ExtractImagePaths(in.Content, p.store)
	step(StatePathsExtracted, zap.Int("images", len(paths)))

	content := in.Content
	if len(paths) > 0 {
		res, err := p.promoter.Promote(ctx, paths)
		out.Promotion = res
		if err != nil {
			var perr *PromotionError
			if !errors.As(err, &perr) {
				// Cancelled mid batch: put back what already moved.
				p.undo(context.WithoutCancel(ctx), res)
			}
			return nil, fmt.Errorf("publish aborted: %w", err)
		}
		step(StatePromoted,
			zap.Int("promoted", len(res.Succeeded())),
			zap.Int("failed", len(res.Failed())),
			zap.Int("skipped", len(res.Skipped())))

		if failed := res.Failed(); p.opts.StrictPromotion && len(failed) > 0 {
			p.undo(ctx, res)
			return nil, fmt.Errorf("%w: %s", ErrStrictPromotion, strings.Join(failed, ", "))
		}
		content = markdown.RewriteURLs(content, res.Promotions(), p.store)
	} else {
		out.Promotion = PromotionResult{Items: []PathOutcome{}}
	}

	post.Title = title
	post.ContentMarkdown = content
	post.ThumbnailURL = ""
	if thumb, ok := p.thumbnail(content, out.Promotion); ok {
		post.ThumbnailURL = p.store.PublicURL(thumb)
	}
	step(StateContentRewritten, zap.String("thumbnail", post.ThumbnailURL))

	if err := p.posts.Save(ctx, post, tags); err != nil {
		p.undo(ctx, out.Promotion)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, models.NewNotFoundError("Post", post.ID)
		}
		return nil, models.NewInternalError(err)
	}
	out.Post = post
	step(StatePersisted, zap.Uint("post_id", post.ID))

	for _, pr := range out.Promotion.Promotions() {
		if err := p.uploads.MarkPromoted(ctx, pr.From, pr.To, p.store.PublicURL(pr.To)); err != nil {
			log.Warn("upload bookkeeping update failed", zap.String("path", pr.From), zap.Error(err))
		}
	}

	if _, err := p.sweeper.SweepScope(ctx, in.SessionID); err != nil {
		log.Warn("post-publish sweep failed", zap.Error(err))
		out.Warnings = append(out.Warnings, err.Error())
		return out, nil
	}
	step(StateTempSwept)
	return out, nil
}

// thumbnail picks the first image promoted by this run, in content order.
// When nothing was promoted it falls back to the first permanent image.
func (p *Publisher) thumbnail(content string, res PromotionResult) (string, bool) {
	promotions := res.Promotions()
	if len(promotions) == 0 {
		return markdown.FirstPermanentThumbnail(content, p.store)
	}
	promoted := make(map[string]bool, len(promotions))
	for _, pr := range promotions {
		promoted[pr.To] = true
	}
	return markdown.FirstThumbnailWhere(content, p.store, func(path string) bool { return promoted[path] })
}

// undo moves promoted objects back to temp so the same draft can be submitted again.
func (p *Publisher) undo(ctx context.Context, res PromotionResult) {
	promotions := res.Promotions()
	if len(promotions) == 0 {
		return
	}
	if stuck := p.promoter.Demote(ctx, promotions); len(stuck) > 0 {
		utils.Logger.Warn("some promoted images could not be restored to temp", zap.Int("count", len(stuck)))
	}
}

// Unpublish deletes a post and the permanent images only it referenced.
func (p *Publisher) Unpublish(ctx context.Context, postID uint) error {
	post, err := p.posts.GetByID(ctx, postID)
	if errors.Is(err, repository.ErrNotFound) {
		return models.NewNotFoundError("Post", postID)
	}
	if err != nil {
		return models.NewInternalError(err)
	}
	if err := p.posts.Delete(ctx, postID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return models.NewNotFoundError("Post", postID)
		}
		return models.NewInternalError(err)
	}

	p.deleteOrphans(ctx, postID, markdown.ExtractImagePaths(post.ContentMarkdown, p.store))
	return nil
}

// deleteOrphans removes the permanent images among paths that no post other
// than postID still embeds. Failures are logged only.
func (p *Publisher) deleteOrphans(ctx context.Context, postID uint, paths []string) {
	var orphans []string
	for _, path := range dedupe(paths) {
		if !storage.IsPermanent(path) {
			continue
		}
		n, err := p.posts.CountReferencing(ctx, path, postID)
		if err != nil || n > 0 {
			continue
		}
		orphans = append(orphans, path)
	}
	if len(orphans) == 0 {
		return
	}
	if err := p.store.Delete(ctx, orphans); err != nil {
		utils.Logger.Warn("failed to delete orphaned post images", zap.Uint("post_id", postID), zap.Error(err))
		return
	}
	if err := p.uploads.DeleteByPaths(ctx, orphans); err != nil {
		utils.Logger.Warn("upload bookkeeping cleanup failed", zap.Uint("post_id", postID), zap.Error(err))
	}
}
