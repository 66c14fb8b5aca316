package controllers

import (
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/inkblog/models"
	"github.com/cppla/inkblog/utils"
)

// StatsController provides blog statistics such as counts and daily page views.
type StatsController struct {
	db *gorm.DB
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(db *gorm.DB) *StatsController {
	return &StatsController{db: db}
}

// GetStats returns aggregate statistics for the blog.
func (s *StatsController) GetStats(ctx *gin.Context) {
	var cached utils.JSONResponse
	if utils.CacheGetJSON(utils.CacheStatsKey, &cached) {
		utils.Success(ctx, cached.Data)
		return
	}

	var userCount, postCount, commentCount, hashtagCount, dailyViews int64

	// Fallback to 0 instead of failing the whole endpoint
	if err := s.db.Model(&models.User{}).Count(&userCount).Error; err != nil {
		userCount = 0
	}
	if err := s.db.Model(&models.Post{}).Count(&postCount).Error; err != nil {
		postCount = 0
	}
	if err := s.db.Model(&models.Comment{}).Count(&commentCount).Error; err != nil {
		commentCount = 0
	}
	if err := s.db.Model(&models.Hashtag{}).Count(&hashtagCount).Error; err != nil {
		hashtagCount = 0
	}

	// Sum today's post reads; compare by local midnight to match the DATE column
	now := time.Now().In(time.Local)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if err := s.db.Model(&models.PageView{}).
		Where("date = ?", today).
		Select("COALESCE(SUM(count),0)").
		Scan(&dailyViews).Error; err != nil {
		dailyViews = 0
	}

	payload := gin.H{
		"user_count":       userCount,
		"post_count":       postCount,
		"comment_count":    commentCount,
		"hashtag_count":    hashtagCount,
		"daily_view_count": dailyViews,
	}
	utils.CacheSetJSON(utils.CacheStatsKey, utils.JSONResponse{Data: payload}, 5*time.Minute)
	utils.Success(ctx, payload)
}

// GetPostStats returns PV and counters for a given post id.
func (s *StatsController) GetPostStats(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		utils.Error(ctx, 400, 40023, "invalid post id")
		return
	}

	var pv int64
	if err := s.db.Model(&models.PageView{}).
		Where("post_id = ?", id).
		Select("COALESCE(SUM(count),0)").
		Scan(&pv).Error; err != nil {
		pv = 0
	}

	var post models.Post
	if err := s.db.Select("id", "likes_count", "comments_count", "view_count").First(&post, id).Error; err != nil {
		utils.Error(ctx, 404, 40401, "post not found")
		return
	}

	utils.Success(ctx, gin.H{
		"pv":             pv,
		"view_count":     post.ViewCount,
		"likes_count":    post.LikesCount,
		"comments_count": post.CommentsCount,
	})
}
