package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/inkblog/markdown"
	"github.com/cppla/inkblog/repository"
	"github.com/cppla/inkblog/services"
	"github.com/cppla/inkblog/utils"
)

// PostController manages publishing, reading and liking posts.
type PostController struct {
	posts     repository.PostRepository
	likes     repository.LikeRepository
	comments  *services.CommentService
	publisher *services.Publisher
}

// NewPostController creates a new PostController instance.
func NewPostController(posts repository.PostRepository, likes repository.LikeRepository,
	comments *services.CommentService, publisher *services.Publisher) *PostController {
	return &PostController{posts: posts, likes: likes, comments: comments, publisher: publisher}
}

type postRequest struct {
	Title     string   `json:"title" binding:"required,min=1,max=200"`
	Content   string   `json:"content" binding:"max=100000"`
	Hashtags  []string `json:"hashtags" binding:"required,min=1,max=10,dive,min=1,max=30"`
	SessionID string   `json:"session_id" binding:"omitempty,uuid"`
}

func (r postRequest) input(authorID uint) services.PublishInput {
	return services.PublishInput{
		AuthorID:  authorID,
		Title:     r.Title,
		Content:   r.Content,
		Hashtags:  r.Hashtags,
		SessionID: r.SessionID,
	}
}

func publishResponse(out *services.PublishOutcome, fresh gin.H) gin.H {
	warnings := out.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	return gin.H{
		"post": fresh,
		"promotion": gin.H{
			"promoted": out.Promotion.Succeeded(),
			"failed":   out.Promotion.Failed(),
			"skipped":  out.Promotion.Skipped(),
		},
		"warnings": warnings,
	}
}

// CreatePost publishes a new post, promoting its draft images.
func (p *PostController) CreatePost(ctx *gin.Context) {
	var req postRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		utils.Error(ctx, http.StatusBadRequest, 40021, "title cannot be empty")
		return
	}
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	out, err := p.publisher.Publish(ctx.Request.Context(), req.input(userID))
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.InvalidatePostCaches()
	utils.Success(ctx, publishResponse(out, p.reload(ctx, out)))
}

// UpdatePost republishes an existing post.
func (p *PostController) UpdatePost(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40023, "invalid post id")
		return
	}
	var req postRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		utils.Error(ctx, http.StatusBadRequest, 40021, "title cannot be empty")
		return
	}
	userID, _ := getUserID(ctx)

	out, err := p.publisher.Republish(ctx.Request.Context(), id, req.input(userID))
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.InvalidatePostCaches()
	utils.Success(ctx, publishResponse(out, p.reload(ctx, out)))
}

// reload fetches the stored post so the response carries author and counters.
func (p *PostController) reload(ctx *gin.Context, out *services.PublishOutcome) gin.H {
	if fresh, err := p.posts.GetByID(ctx.Request.Context(), out.Post.ID); err == nil {
		return postResponse(fresh)
	}
	return postResponse(out.Post)
}

// DeletePost removes a post and the images only it referenced.
func (p *PostController) DeletePost(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40023, "invalid post id")
		return
	}
	if err := p.publisher.Unpublish(ctx.Request.Context(), id); err != nil {
		respondError(ctx, err)
		return
	}
	utils.InvalidatePostCaches()
	utils.Success(ctx, gin.H{"message": "post deleted"})
}

// ListPosts returns paginated posts, optionally filtered by hashtag or search term.
func (p *PostController) ListPosts(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))
	search := strings.TrimSpace(ctx.Query("search"))
	hashtag := strings.TrimSpace(ctx.Query("hashtag"))

	// Only cache unsearched lists to avoid key explosion
	cacheKey := ""
	if search == "" {
		cacheKey = fmt.Sprintf("%stag=%s:page=%d:size=%d", utils.CachePostsListPrefix, strings.ToLower(hashtag), page, pageSize)
		if b, ok := utils.CacheGetBytes(cacheKey); ok {
			utils.CachedSuccess(ctx, b)
			return
		}
	}

	posts, total, err := p.posts.List(ctx.Request.Context(), repository.ListPostsQuery{
		Page: page, PageSize: pageSize, Hashtag: hashtag, Search: search,
	})
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50022, "failed to list posts")
		return
	}

	items := make([]gin.H, 0, len(posts))
	for i := range posts {
		item := postResponse(&posts[i])
		delete(item, "content_markdown")
		items = append(items, item)
	}
	payload := gin.H{
		"items": items,
		"pagination": gin.H{
			"page":        page,
			"page_size":   pageSize,
			"total":       total,
			"total_pages": int((total + int64(pageSize) - 1) / int64(pageSize)),
		},
	}
	if cacheKey != "" {
		utils.CacheSetJSON(cacheKey, utils.JSONResponse{Code: 0, Message: "success", Data: payload}, 10*time.Minute)
	}
	utils.Success(ctx, payload)
}

// GetPost returns a post with rendered HTML and its comment tree.
func (p *PostController) GetPost(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40023, "invalid post id")
		return
	}
	c := ctx.Request.Context()

	post, err := p.posts.GetByID(c, id)
	if errors.Is(err, repository.ErrNotFound) {
		utils.Error(ctx, http.StatusNotFound, 40401, "post not found")
		return
	}
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50023, "failed to load post")
		return
	}
	if err := p.posts.IncrementViews(c, id); err == nil {
		post.ViewCount++
	}

	html, err := markdown.Render(post.ContentMarkdown)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50024, "failed to render post")
		return
	}

	tree, err := p.comments.Tree(c, id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	comments := make([]gin.H, 0, len(tree))
	for _, cm := range tree {
		comments = append(comments, commentResponse(cm))
	}

	liked := false
	if uid, ok := getUserID(ctx); ok {
		liked, _ = p.likes.IsLiked(c, id, uid)
	}

	resp := postResponse(post)
	resp["content_html"] = html
	resp["comments"] = comments
	resp["liked"] = liked
	utils.Success(ctx, resp)
}

// ToggleLike likes or unlikes a post for the current user.
func (p *PostController) ToggleLike(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40023, "invalid post id")
		return
	}
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	c := ctx.Request.Context()
	if _, err := p.posts.GetByID(c, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40401, "post not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50023, "failed to load post")
		return
	}
	liked, count, err := p.likes.Toggle(c, id, userID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50025, "failed to update like")
		return
	}
	utils.InvalidateByPrefix(utils.CachePostsListPrefix)
	utils.Success(ctx, gin.H{"liked": liked, "likes_count": count})
}
