package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/cppla/inkblog/config"
	"github.com/cppla/inkblog/models"
	"github.com/cppla/inkblog/repository"
	"github.com/cppla/inkblog/services"
	"github.com/cppla/inkblog/storage"
	"github.com/cppla/inkblog/utils"
)

var imageContentTypes = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
}

func allowedImageExtensions() []string {
	return []string{"jpg", "jpeg", "png", "gif", "webp"}
}

// UploadController stores draft images in the temp namespace and manages authoring sessions.
type UploadController struct {
	store   storage.Store
	uploads repository.UploadRepository
	sweeper *services.Sweeper
}

// NewUploadController creates an UploadController.
func NewUploadController(store storage.Store, uploads repository.UploadRepository, sweeper *services.Sweeper) *UploadController {
	return &UploadController{store: store, uploads: uploads, sweeper: sweeper}
}

// StartSession allocates a temp namespace for a new draft and opportunistically
// sweeps temp objects older than the configured TTL.
func (u *UploadController) StartSession(ctx *gin.Context) {
	ttl := time.Duration(config.Get().TempTTLMinutes) * time.Minute
	if n, err := u.sweeper.SweepExpired(ctx.Request.Context(), ttl); err != nil {
		utils.Sugar.Warnw("expired temp sweep failed", "error", err)
	} else if n > 0 {
		utils.Sugar.Infow("swept expired temp objects", "count", n)
	}
	utils.Success(ctx, gin.H{"session_id": uuid.NewString(), "expires_in": int(ttl.Seconds())})
}

// AbandonSession discards every temp image of a draft the author gave up on.
func (u *UploadController) AbandonSession(ctx *gin.Context) {
	sessionID := strings.TrimSpace(ctx.Param("sessionId"))
	if _, err := uuid.Parse(sessionID); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40030, "invalid session id")
		return
	}
	n, err := u.sweeper.SweepScope(ctx.Request.Context(), sessionID)
	if err != nil {
		utils.Sugar.Warnw("session sweep failed", "session", sessionID, "error", err)
		utils.Error(ctx, http.StatusBadGateway, 50230, "failed to discard session images")
		return
	}
	utils.Success(ctx, gin.H{"deleted": n})
}

// Upload stores one image under the session's temp namespace and returns its URL.
func (u *UploadController) Upload(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40113, "unauthorized")
		return
	}
	sessionID := strings.TrimSpace(ctx.PostForm("session_id"))
	if sessionID != "" {
		if _, err := uuid.Parse(sessionID); err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40030, "invalid session id")
			return
		}
	}

	fh, err := ctx.FormFile("file")
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40031, "missing file")
		return
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(fh.Filename), "."))
	contentType, ok := imageContentTypes[ext]
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40032, "unsupported file type")
		return
	}
	maxBytes := int64(config.Get().UploadMaxSizeMB) << 20
	if fh.Size <= 0 || fh.Size > maxBytes {
		utils.Error(ctx, http.StatusBadRequest, 40033, fmt.Sprintf("file must be between 1 byte and %d MB", config.Get().UploadMaxSizeMB))
		return
	}

	src, err := fh.Open()
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40031, "unreadable file")
		return
	}
	defer src.Close()

	path := storage.NewTempImagePath(sessionID, ext)
	if err := u.store.Put(ctx.Request.Context(), path, src, fh.Size, contentType); err != nil {
		utils.Sugar.Errorw("upload put failed", "path", path, "error", err)
		utils.Error(ctx, http.StatusBadGateway, 50231, "failed to store file")
		return
	}

	rec := &models.UploadedFile{
		ID:          uuid.NewString(),
		UserID:      userID,
		SessionID:   sessionID,
		Name:        filepath.Base(fh.Filename),
		URL:         u.store.PublicURL(path),
		Path:        path,
		Size:        fh.Size,
		UploadedAt:  time.Now(),
		IsTemporary: true,
	}
	if err := u.uploads.Create(ctx.Request.Context(), rec); err != nil {
		// the blob stays in temp/ and the sweeper reclaims it
		utils.Sugar.Warnw("upload bookkeeping failed", "path", path, "error", err)
	}

	utils.Success(ctx, gin.H{
		"id":           rec.ID,
		"name":         rec.Name,
		"url":          rec.URL,
		"path":         rec.Path,
		"size":         rec.Size,
		"uploaded_at":  rec.UploadedAt,
		"is_temporary": rec.IsTemporary,
		"markdown":     fmt.Sprintf("![%s](%s)", strings.TrimSuffix(rec.Name, filepath.Ext(rec.Name)), rec.URL),
	})
}

// DeleteUpload removes a temp upload that the author dropped from the draft.
func (u *UploadController) DeleteUpload(ctx *gin.Context) {
	id := strings.TrimSpace(ctx.Param("uploadId"))
	c := ctx.Request.Context()
	rec, err := u.uploads.GetByID(c, id)
	if errors.Is(err, repository.ErrNotFound) {
		utils.Error(ctx, http.StatusNotFound, 40402, "upload not found")
		return
	}
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50032, "failed to load upload")
		return
	}
	userID, _ := getUserID(ctx)
	if rec.UserID != userID && !isAdmin(ctx) {
		utils.Error(ctx, http.StatusForbidden, 40303, "not your upload")
		return
	}
	if !rec.IsTemporary || !storage.IsTemp(rec.Path) {
		utils.Error(ctx, http.StatusConflict, 40902, "published images are removed with their post")
		return
	}
	if err := u.store.Delete(c, []string{rec.Path}); err != nil {
		utils.Error(ctx, http.StatusBadGateway, 50232, "failed to delete file")
		return
	}
	if err := u.uploads.DeleteByPaths(c, []string{rec.Path}); err != nil {
		utils.Sugar.Warnw("upload bookkeeping delete failed", "path", rec.Path, "error", err)
	}
	utils.Success(ctx, gin.H{"message": "upload deleted"})
}
