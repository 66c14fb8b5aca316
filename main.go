package main

import (
	"context"
	"time"

	"github.com/cppla/inkblog/config"
	"github.com/cppla/inkblog/models"
	"github.com/cppla/inkblog/repository"
	"github.com/cppla/inkblog/routes"
	"github.com/cppla/inkblog/services"
	"github.com/cppla/inkblog/storage"
	"github.com/cppla/inkblog/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(
		&models.User{},
		&models.Post{},
		&models.Hashtag{},
		&models.Comment{},
		&models.Like{},
		&models.UploadedFile{},
		&models.PageView{},
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := storage.New(ctx, cfg)
	if err != nil {
		utils.Sugar.Fatalf("storage init failed: %v", err)
	}

	r := routes.SetupRouter(db, store)

	// Reclaim temp uploads from drafts that were never published
	sweeper := services.NewSweeper(store, repository.NewUploadRepository(db))
	ttl := time.Duration(cfg.TempTTLMinutes) * time.Minute
	utils.StartTempCleaner(ctx, time.Duration(cfg.CleanerIntervalMinutes)*time.Minute, func(c context.Context) (int, error) {
		return sweeper.SweepExpired(c, ttl)
	})

	utils.Sugar.Infof("Starting server on port %s (graceful), storage driver %s", cfg.AppPort, cfg.StorageDriver)
	if err := utils.GraceServer(":"+cfg.AppPort, r, cancel); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
