package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/inkblog/services"
	"github.com/cppla/inkblog/utils"
)

// CommentController exposes nested comments.
type CommentController struct {
	svc *services.CommentService
}

// NewCommentController creates a CommentController.
func NewCommentController(svc *services.CommentService) *CommentController {
	return &CommentController{svc: svc}
}

// ListComments returns the comment tree of a post.
func (c *CommentController) ListComments(ctx *gin.Context) {
	postID, ok := parseID(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40023, "invalid post id")
		return
	}
	tree, err := c.svc.Tree(ctx.Request.Context(), postID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	items := make([]gin.H, 0, len(tree))
	for _, cm := range tree {
		items = append(items, commentResponse(cm))
	}
	utils.Success(ctx, gin.H{"items": items})
}

// CreateComment adds a comment or a reply.
func (c *CommentController) CreateComment(ctx *gin.Context) {
	postID, ok := parseID(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40023, "invalid post id")
		return
	}
	var req struct {
		Content  string `json:"content" binding:"required"`
		ParentID *uint  `json:"parent_id"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40024, "invalid request payload")
		return
	}
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40111, "unauthorized")
		return
	}

	comment, err := c.svc.Create(ctx.Request.Context(), postID, userID, req.ParentID, req.Content)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.InvalidateByPrefix(utils.CachePostsListPrefix)
	utils.Success(ctx, gin.H{"comment": commentResponse(comment)})
}

// DeleteComment removes a comment and its replies. Authors and admins only.
func (c *CommentController) DeleteComment(ctx *gin.Context) {
	commentID, ok := parseID(ctx, "commentId")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40025, "invalid comment id")
		return
	}
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40112, "unauthorized")
		return
	}
	n, err := c.svc.Delete(ctx.Request.Context(), commentID, userID, isAdmin(ctx))
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.InvalidateByPrefix(utils.CachePostsListPrefix)
	utils.Success(ctx, gin.H{"deleted": n})
}
