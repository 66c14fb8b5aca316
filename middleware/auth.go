package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/inkblog/models"
	"github.com/cppla/inkblog/utils"
)

const (
	// ContextUserIDKey is the key used to store authenticated user ID in Gin context.
	ContextUserIDKey = "user_id"
	// ContextUsernameKey stores the username inside Gin context.
	ContextUsernameKey = "username"
	// ContextRoleKey stores the role claim.
	ContextRoleKey = "role"
	// ContextTokenKey stores the raw bearer token, used by logout.
	ContextTokenKey = "token"
)

// AuthRequired ensures the request is authenticated via JWT.
func AuthRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token, status, code, msg := bearerToken(ctx)
		if code != 0 {
			utils.Error(ctx, status, code, msg)
			return
		}
		if !authenticate(ctx, token) {
			return
		}
		ctx.Next()
	}
}

// OptionalAuth attaches the user identity when a valid token is present and
// lets anonymous requests through unchanged.
func OptionalAuth() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token, _, code, _ := bearerToken(ctx)
		if code == 0 && !utils.IsTokenBlacklisted(token) {
			if claims, err := utils.ParseToken(token); err == nil {
				setIdentity(ctx, token, claims)
			}
		}
		ctx.Next()
	}
}

// AdminRequired rejects authenticated users without the admin role. It must run after AuthRequired.
func AdminRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !IsAdmin(ctx) {
			utils.Error(ctx, http.StatusForbidden, 40301, "admin role required")
			return
		}
		ctx.Next()
	}
}

// CurrentUserID returns the authenticated user id, if any.
func CurrentUserID(ctx *gin.Context) (uint, bool) {
	v, ok := ctx.Get(ContextUserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok && id != 0
}

// IsAdmin reports whether the request carries an admin identity.
func IsAdmin(ctx *gin.Context) bool {
	return ctx.GetString(ContextRoleKey) == models.RoleAdmin
}

func bearerToken(ctx *gin.Context) (token string, status, code int, msg string) {
	authHeader := ctx.GetHeader("Authorization")
	if authHeader == "" {
		return "", http.StatusUnauthorized, 40101, "authorization header missing"
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", http.StatusUnauthorized, 40102, "invalid authorization header format"
	}
	token = strings.TrimSpace(parts[1])
	if token == "" {
		return "", http.StatusUnauthorized, 40103, "empty bearer token"
	}
	return token, 0, 0, ""
}

func authenticate(ctx *gin.Context, token string) bool {
	if utils.IsTokenBlacklisted(token) {
		utils.Error(ctx, http.StatusUnauthorized, 40104, "token revoked")
		return false
	}
	claims, err := utils.ParseToken(token)
	if err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40105, "invalid token")
		return false
	}
	setIdentity(ctx, token, claims)
	return true
}

func setIdentity(ctx *gin.Context, token string, claims *utils.Claims) {
	ctx.Set(ContextUserIDKey, claims.UserID)
	ctx.Set(ContextUsernameKey, claims.Username)
	ctx.Set(ContextRoleKey, claims.Role)
	ctx.Set(ContextTokenKey, token)
}
