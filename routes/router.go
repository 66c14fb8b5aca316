package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/cppla/inkblog/config"
	"github.com/cppla/inkblog/controllers"
	"github.com/cppla/inkblog/metrics"
	"github.com/cppla/inkblog/middleware"
	"github.com/cppla/inkblog/repository"
	"github.com/cppla/inkblog/services"
	"github.com/cppla/inkblog/storage"
	"github.com/cppla/inkblog/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB, store storage.Store) *gin.Engine {
	// Load config and set Gin mode from configuration
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Replace default console logger with file-based zap logger
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		// fallback to default recovery if logger failed to init
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}

	r.Use(cors.New(corsCfg))
	r.Use(metrics.GinMiddleware())
	// Record PV after each request
	r.Use(middleware.PageViewRecorder(db))

	// The local driver has no CDN in front of it, so serve its directory directly
	if local, ok := store.(*storage.LocalStore); ok {
		r.Static(storage.LocalURLPrefix, local.Root())
	}

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	postRepo := repository.NewPostRepository(db)
	likeRepo := repository.NewLikeRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	uploadRepo := repository.NewUploadRepository(db)
	hashtagRepo := repository.NewHashtagRepository(db)
	userRepo := repository.NewUserRepository(db)

	sweeper := services.NewSweeper(store, uploadRepo)
	promoter := services.NewPromoter(store, cfg.PromotionConcurrency)
	publisher := services.NewPublisher(store, postRepo, uploadRepo, promoter, sweeper,
		services.PublisherOptions{StrictPromotion: cfg.StrictPromotion})
	commentSvc := services.NewCommentService(postRepo, commentRepo)

	authController := controllers.NewAuthController(userRepo)
	postController := controllers.NewPostController(postRepo, likeRepo, commentSvc, publisher)
	commentController := controllers.NewCommentController(commentSvc)
	uploadController := controllers.NewUploadController(store, uploadRepo, sweeper)
	hashtagController := controllers.NewHashtagController(hashtagRepo)
	statsController := controllers.NewStatsController(db)
	configController := controllers.NewConfigController()
	adminController := controllers.NewAdminController(sweeper)

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware())
	authGroup.GET("/oauth/:provider/login", authController.OAuthRedirect)
	authGroup.GET("/oauth/:provider/callback", authController.OAuthCallback)
	authGroup.POST("/logout", middleware.AuthRequired(), authController.Logout)
	authGroup.GET("/me", middleware.AuthRequired(), authController.Me)

	public := api.Group("")
	public.Use(middleware.OptionalAuth())
	public.GET("/posts", postController.ListPosts)
	public.GET("/posts/:id", postController.GetPost)
	public.GET("/posts/:id/comments", commentController.ListComments)
	public.GET("/posts/:id/stats", statsController.GetPostStats)
	public.GET("/hashtags", hashtagController.ListHashtags)
	public.GET("/stats", statsController.GetStats)
	public.GET("/config/site", configController.GetSite)
	public.GET("/config/notice", configController.GetNotice)

	protected := api.Group("")
	protected.Use(middleware.AuthRequired(), middleware.RateLimitMiddleware())
	protected.POST("/posts/:id/like", postController.ToggleLike)
	protected.POST("/posts/:id/comments", commentController.CreateComment)
	protected.DELETE("/comments/:commentId", commentController.DeleteComment)

	// Authoring is restricted to admins
	authoring := api.Group("")
	authoring.Use(middleware.AuthRequired(), middleware.AdminRequired(), middleware.RateLimitMiddleware())
	authoring.POST("/posts", postController.CreatePost)
	authoring.PUT("/posts/:id", postController.UpdatePost)
	authoring.DELETE("/posts/:id", postController.DeletePost)
	authoring.POST("/uploads", middleware.RateLimitPerMinute("upload", 30), uploadController.Upload)
	authoring.DELETE("/uploads/:uploadId", uploadController.DeleteUpload)
	authoring.POST("/drafts/session", uploadController.StartSession)
	authoring.DELETE("/drafts/session/:sessionId", uploadController.AbandonSession)
	authoring.POST("/admin/temp/sweep", adminController.SweepTemp)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "route not found")
	})

	return r
}
