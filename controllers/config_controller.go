package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/cppla/inkblog/config"
	"github.com/cppla/inkblog/utils"
)

// ConfigController serves environment-driven UI configuration.
type ConfigController struct{}

func NewConfigController() *ConfigController { return &ConfigController{} }

// GetSite returns the site title, description and upload limits the editor needs.
func (c *ConfigController) GetSite(ctx *gin.Context) {
	cfg := config.Get()
	utils.Success(ctx, gin.H{
		"title":              cfg.SiteTitle,
		"description":        cfg.SiteDescription,
		"notice_html":        cfg.NoticeHTML,
		"upload_max_size_mb": cfg.UploadMaxSizeMB,
		"upload_extensions":  allowedImageExtensions(),
		"max_hashtags":       10,
	})
}

// GetNotice returns announcement content configured via config.
func (c *ConfigController) GetNotice(ctx *gin.Context) {
	utils.Success(ctx, gin.H{"html": config.Get().NoticeHTML})
}
