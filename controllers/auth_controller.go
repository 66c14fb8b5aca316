package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"

	"github.com/cppla/inkblog/config"
	"github.com/cppla/inkblog/middleware"
	"github.com/cppla/inkblog/models"
	"github.com/cppla/inkblog/repository"
	"github.com/cppla/inkblog/utils"
)

const tokenTTL = 72 * time.Hour

// identityFetcher resolves the provider profile behind an access token.
type identityFetcher func(ctx context.Context, token *oauth2.Token) (*repository.OAuthIdentity, error)

// AuthController handles social login and session endpoints.
type AuthController struct {
	users repository.UserRepository
	// fetchers is keyed by provider name
	fetchers map[string]identityFetcher
}

// NewAuthController creates a new AuthController instance.
func NewAuthController(users repository.UserRepository) *AuthController {
	return &AuthController{
		users: users,
		fetchers: map[string]identityFetcher{
			"github": fetchGitHubUser,
			"google": fetchGoogleUser,
		},
	}
}

// OAuthRedirect generates a provider-specific authorization URL.
func (a *AuthController) OAuthRedirect(ctx *gin.Context) {
	provider := strings.ToLower(ctx.Param("provider"))
	cfg, err := oauthConfig(provider)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40004, err.Error())
		return
	}

	state := uuid.NewString()
	utils.SaveState(state, provider, 10*time.Minute)

	url := cfg.AuthCodeURL(state, oauth2.AccessTypeOffline)
	utils.Success(ctx, gin.H{"authorization_url": url, "state": state})
}

// OAuthCallback exchanges the authorization code for a user identity and issues a JWT.
func (a *AuthController) OAuthCallback(ctx *gin.Context) {
	provider := strings.ToLower(ctx.Param("provider"))
	code := ctx.Query("code")
	state := ctx.Query("state")

	if code == "" || state == "" {
		utils.Error(ctx, http.StatusBadRequest, 40005, "missing code or state")
		return
	}

	if !utils.ConsumeState(state, provider) {
		utils.Error(ctx, http.StatusBadRequest, 40006, "invalid or expired state")
		return
	}

	cfg, err := oauthConfig(provider)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40004, err.Error())
		return
	}

	token, err := cfg.Exchange(ctx.Request.Context(), code)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40007, "failed to exchange code")
		return
	}

	fetch, ok := a.fetchers[provider]
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40004, "unsupported provider: "+provider)
		return
	}
	identity, err := fetch(ctx.Request.Context(), token)
	if err != nil {
		utils.Sugar.Warnw("oauth profile fetch failed", "provider", provider, "error", err)
		utils.Error(ctx, http.StatusBadGateway, 50205, "failed to fetch user profile")
		return
	}
	identity.Provider = provider

	user, err := a.users.UpsertOAuth(ctx.Request.Context(), *identity, isAdminUsername(identity.Username))
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50006, "failed to persist user")
		return
	}

	jwtToken, err := utils.GenerateToken(user.ID, user.Username, user.Role, tokenTTL)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to generate token")
		return
	}

	utils.Success(ctx, gin.H{"token": jwtToken, "user": userResponse(*user)})
}

// Logout invalidates the token by blacklisting it until expiration.
func (a *AuthController) Logout(ctx *gin.Context) {
	token := ctx.GetString(middleware.ContextTokenKey)
	claims, err := utils.ParseToken(token)
	if err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40105, "invalid token")
		return
	}

	expiresAt := time.Now().Add(tokenTTL)
	if claims.RegisteredClaims.ExpiresAt != nil {
		expiresAt = claims.RegisteredClaims.ExpiresAt.Time
	}

	utils.BlacklistToken(token, expiresAt)
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// Me returns the current authenticated user's information.
func (a *AuthController) Me(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}

	user, err := a.users.GetByID(ctx.Request.Context(), userID)
	if errors.Is(err, repository.ErrNotFound) {
		utils.Error(ctx, http.StatusNotFound, 40401, "user not found")
		return
	}
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50007, "failed to load user")
		return
	}

	utils.Success(ctx, userResponse(*user))
}

func oauthConfig(provider string) (*oauth2.Config, error) {
	cfg := config.Get()
	switch provider {
	case "github":
		if cfg.GitHubClientID == "" || cfg.GitHubClientSecret == "" {
			return nil, fmt.Errorf("github oauth not configured")
		}
		return &oauth2.Config{
			ClientID:     cfg.GitHubClientID,
			ClientSecret: cfg.GitHubClientSecret,
			RedirectURL:  fmt.Sprintf("%s/api/v1/auth/oauth/github/callback", cfg.OAuthRedirectBase),
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     github.Endpoint,
		}, nil
	case "google":
		if cfg.GoogleClientID == "" || cfg.GoogleClientSecret == "" {
			return nil, fmt.Errorf("google oauth not configured")
		}
		return &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  fmt.Sprintf("%s/api/v1/auth/oauth/google/callback", cfg.OAuthRedirectBase),
			Scopes:       []string{"openid", "profile", "email"},
			Endpoint:     google.Endpoint,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

func getJSON(ctx context.Context, token *oauth2.Token, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: %s", url, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func fetchGitHubUser(ctx context.Context, token *oauth2.Token) (*repository.OAuthIdentity, error) {
	var payload struct {
		ID        int64  `json:"id"`
		Login     string `json:"login"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := getJSON(ctx, token, "https://api.github.com/user", &payload); err != nil {
		return nil, err
	}

	// email is optional; private addresses only show up on the emails endpoint
	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	email := ""
	if err := getJSON(ctx, token, "https://api.github.com/user/emails", &emails); err == nil {
		for _, e := range emails {
			if e.Primary && e.Verified {
				email = e.Email
				break
			}
		}
	}

	return &repository.OAuthIdentity{
		ProviderID: fmt.Sprintf("%d", payload.ID),
		Username:   payload.Login,
		Email:      email,
		AvatarURL:  payload.AvatarURL,
	}, nil
}

func fetchGoogleUser(ctx context.Context, token *oauth2.Token) (*repository.OAuthIdentity, error) {
	var payload struct {
		ID      string `json:"id"`
		Email   string `json:"email"`
		Picture string `json:"picture"`
	}
	if err := getJSON(ctx, token, "https://www.googleapis.com/oauth2/v2/userinfo", &payload); err != nil {
		return nil, err
	}
	return &repository.OAuthIdentity{
		ProviderID: payload.ID,
		Username:   payload.Email,
		Email:      payload.Email,
		AvatarURL:  payload.Picture,
	}, nil
}

// isAdminUsername checks whether given username is configured as an admin (case-insensitive)
func isAdminUsername(username string) bool {
	uname := strings.TrimSpace(username)
	if uname == "" {
		return false
	}
	for _, u := range config.Get().AdminUsernames {
		if strings.EqualFold(strings.TrimSpace(u), uname) {
			return true
		}
	}
	return false
}

func userResponse(user models.User) gin.H {
	return gin.H{
		"id":         user.ID,
		"username":   user.Username,
		"email":      user.Email,
		"provider":   user.Provider,
		"avatar_url": user.AvatarURL,
		"bio":        user.Bio,
		"role":       user.Role,
		"is_admin":   user.IsAdmin(),
		"created_at": user.CreatedAt,
	}
}
