package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/inkblog/middleware"
	"github.com/cppla/inkblog/models"
	"github.com/cppla/inkblog/services"
	"github.com/cppla/inkblog/utils"
)

func parsePagination(pageStr, sizeStr string) (int, int) {
	page := 1
	pageSize := 10
	if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
		page = p
	}
	if s, err := strconv.Atoi(sizeStr); err == nil && s > 0 && s <= 100 {
		pageSize = s
	}
	return page, pageSize
}

func getUserID(ctx *gin.Context) (uint, bool) {
	return middleware.CurrentUserID(ctx)
}

func isAdmin(ctx *gin.Context) bool {
	return middleware.IsAdmin(ctx)
}

func parseID(ctx *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(ctx.Param(name)), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// respondError maps service errors onto the response envelope.
func respondError(ctx *gin.Context, err error) {
	var appErr *models.AppError
	var promoErr *services.PromotionError
	switch {
	case errors.As(err, &appErr):
		switch appErr.Code {
		case models.CodeValidation:
			utils.Error(ctx, http.StatusBadRequest, 40020, appErr.Message)
		case models.CodeNotFound:
			utils.Error(ctx, http.StatusNotFound, 40401, appErr.Message)
		case models.CodeForbidden:
			utils.Error(ctx, http.StatusForbidden, 40302, appErr.Message)
		case models.CodeConflict:
			utils.Error(ctx, http.StatusConflict, 40901, appErr.Message)
		default:
			utils.Sugar.Errorw("request failed", "path", ctx.FullPath(), "error", err)
			utils.Error(ctx, http.StatusInternalServerError, 50000, "internal server error")
		}
	case errors.As(err, &promoErr):
		utils.Sugar.Errorw("publish aborted", "path", promoErr.Path, "error", err)
		utils.Error(ctx, http.StatusBadGateway, 50220, "publish failed: image storage could not finalize "+promoErr.Path)
	case errors.Is(err, services.ErrStrictPromotion):
		utils.Error(ctx, http.StatusUnprocessableEntity, 42220, err.Error())
	default:
		utils.Sugar.Errorw("request failed", "path", ctx.FullPath(), "error", err)
		utils.Error(ctx, http.StatusInternalServerError, 50000, "internal server error")
	}
}

func authorResponse(u models.User) gin.H {
	return gin.H{
		"id":         u.ID,
		"username":   u.Username,
		"avatar_url": u.AvatarURL,
	}
}

func postResponse(p *models.Post) gin.H {
	return gin.H{
		"id":               p.ID,
		"title":            p.Title,
		"content_markdown": p.ContentMarkdown,
		"thumbnail_url":    p.ThumbnailURL,
		"view_count":       p.ViewCount,
		"likes_count":      p.LikesCount,
		"comments_count":   p.CommentsCount,
		"hashtags":         p.HashtagNames(),
		"author":           authorResponse(p.User),
		"created_at":       p.CreatedAt,
		"updated_at":       p.UpdatedAt,
	}
}

func commentResponse(c *models.Comment) gin.H {
	replies := make([]gin.H, 0, len(c.Replies))
	for _, r := range c.Replies {
		replies = append(replies, commentResponse(r))
	}
	return gin.H{
		"id":         c.ID,
		"post_id":    c.PostID,
		"parent_id":  c.ParentID,
		"content":    c.Content,
		"author":     authorResponse(c.User),
		"created_at": c.CreatedAt,
		"replies":    replies,
	}
}
