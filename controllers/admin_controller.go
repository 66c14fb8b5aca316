package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/inkblog/services"
	"github.com/cppla/inkblog/utils"
)

// AdminController exposes maintenance operations on the media store.
type AdminController struct {
	sweeper *services.Sweeper
}

// NewAdminController creates an AdminController.
func NewAdminController(sweeper *services.Sweeper) *AdminController {
	return &AdminController{sweeper: sweeper}
}

// SweepTemp clears the temp namespace. With ?older_than_minutes=N only objects
// older than N minutes are removed; without it every session is wiped.
func (a *AdminController) SweepTemp(ctx *gin.Context) {
	var req struct {
		OlderThanMinutes int `form:"older_than_minutes" binding:"omitempty,min=1"`
	}
	if err := ctx.ShouldBindQuery(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40050, "invalid older_than_minutes")
		return
	}

	var (
		n   int
		err error
	)
	if req.OlderThanMinutes > 0 {
		n, err = a.sweeper.SweepExpired(ctx.Request.Context(), time.Duration(req.OlderThanMinutes)*time.Minute)
	} else {
		n, err = a.sweeper.SweepAll(ctx.Request.Context())
	}

	var sweepErr *services.SweepError
	if errors.As(err, &sweepErr) {
		utils.Success(ctx, gin.H{"deleted": 0, "warnings": []string{sweepErr.Error()}})
		return
	}
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"deleted": n, "warnings": []string{}})
}
