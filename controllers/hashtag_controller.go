package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/inkblog/repository"
	"github.com/cppla/inkblog/utils"
)

// HashtagController lists hashtags for the tag cloud.
type HashtagController struct {
	hashtags repository.HashtagRepository
}

// NewHashtagController creates a HashtagController.
func NewHashtagController(hashtags repository.HashtagRepository) *HashtagController {
	return &HashtagController{hashtags: hashtags}
}

// ListHashtags returns every hashtag with its post count, most used first.
func (h *HashtagController) ListHashtags(ctx *gin.Context) {
	if b, ok := utils.CacheGetBytes(utils.CacheHashtagsKey); ok {
		utils.CachedSuccess(ctx, b)
		return
	}
	items, err := h.hashtags.ListWithCounts(ctx.Request.Context())
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50040, "failed to list hashtags")
		return
	}
	if items == nil {
		items = []repository.HashtagCount{}
	}
	payload := gin.H{"items": items}
	utils.CacheSetJSON(utils.CacheHashtagsKey, utils.JSONResponse{Code: 0, Message: "success", Data: payload}, 10*time.Minute)
	utils.Success(ctx, payload)
}
