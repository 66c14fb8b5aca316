package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/inkblog/models"
)

// PageViewRecorder aggregates successful post reads per day and path.
func PageViewRecorder(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Only record successful page views (2xx) for GET requests.
		if c.Request.Method != "GET" {
			return
		}
		status := c.Writer.Status()
		if status < 200 || status >= 400 {
			return
		}

		// Only post reads count: /api/v1/posts/:id
		if c.FullPath() != "/api/v1/posts/:id" {
			return
		}
		postID, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			return
		}
		path := c.Request.URL.Path

		// Use local midnight to align with DATE column
		now := time.Now().In(time.Local)
		localMidnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

		// Atomic upsert to avoid duplicate key errors under concurrency
		_ = db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "date"}, {Name: "path"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"count": gorm.Expr("count + 1"), "updated_at": time.Now()}),
		}).Create(&models.PageView{Date: localMidnight, Path: path, PostID: uint(postID), Count: 1}).Error
	}
}
