package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/cppla/inkblog/config"
	"github.com/cppla/inkblog/models"
	"github.com/cppla/inkblog/services"
)

func TestRespondError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", models.NewValidationError("bad"), http.StatusBadRequest, `"code":40020`},
		{"not found", models.NewNotFoundError("Post", 9), http.StatusNotFound, `"code":40401`},
		{"forbidden", models.NewForbiddenError("no"), http.StatusForbidden, `"code":40302`},
		{"conflict", models.NewConflictError("dup"), http.StatusConflict, `"code":40901`},
		{"internal", models.NewInternalError(errors.New("db down")), http.StatusInternalServerError, `"code":50000`},
		{"promotion", fmt.Errorf("publish aborted: %w", &services.PromotionError{Path: "temp/image/a.png", Err: errors.New("boom")}), http.StatusBadGateway, `"code":50220`},
		{"strict", fmt.Errorf("%w: 1 image", services.ErrStrictPromotion), http.StatusUnprocessableEntity, `"code":42220`},
		{"unknown", errors.New("???"), http.StatusInternalServerError, `"code":50000`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			ctx, _ := gin.CreateTestContext(w)
			ctx.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			respondError(ctx, tc.err)
			assert.Equal(t, tc.status, w.Code)
			assert.Contains(t, w.Body.String(), tc.code)
		})
	}
}

func TestParsePagination(t *testing.T) {
	p, s := parsePagination("", "")
	assert.Equal(t, 1, p)
	assert.Equal(t, 10, s)

	p, s = parsePagination("3", "50")
	assert.Equal(t, 3, p)
	assert.Equal(t, 50, s)

	p, s = parsePagination("-1", "1000")
	assert.Equal(t, 1, p)
	assert.Equal(t, 10, s)
}

func TestIsAdminUsername(t *testing.T) {
	config.Set(config.AppConfig{JWTSecret: "test-secret", AdminUsernames: []string{"Alice", " bob "}})
	assert.True(t, isAdminUsername("alice"))
	assert.True(t, isAdminUsername("BOB"))
	assert.False(t, isAdminUsername("carol"))
	assert.False(t, isAdminUsername(" "))
}

