package config

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// AppConfig holds environment driven configuration values.
// Sensitive data should never have defaults inside code and must be provided via env files or the environment.
type AppConfig struct {
	AppPort            string
	JWTSecret          string
	DatabaseURI        string
	DBDriver           string
	DBHost             string
	DBPort             string
	DBUser             string
	DBPassword         string
	DBName             string
	GitHubClientID     string
	GitHubClientSecret string
	GoogleClientID     string
	GoogleClientSecret string
	RateLimitPerMinute int
	AllowedOrigins     []string
	OAuthRedirectBase  string
	// Gin framework configuration
	GinMode string
	GinPath string
	// Site information shown by the frontend
	SiteTitle       string
	SiteDescription string
	NoticeHTML      string
	// Redis for caching and oauth state
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
	// Object storage
	StorageDriver          string // s3 | local
	StorageBucket          string
	StorageRegion          string
	StorageEndpoint        string
	StorageAccessKeyID     string
	StorageSecretAccessKey string
	StoragePublicBaseURL   string
	StorageUsePathStyle    bool
	StorageLocalDir        string
	// Uploads and temp namespace lifecycle
	UploadMaxSizeMB        int
	TempTTLMinutes         int
	CleanerIntervalMinutes int
	// Publishing
	StrictPromotion      bool
	PromotionConcurrency int
	// Admins
	AdminUsernames []string
}

var cfg AppConfig
var loaded bool

// Load loads the application configuration from environment variables. It should be called once during boot.
func Load() AppConfig {
	if loaded {
		return cfg
	}

	// Precedence: .env -> config/config.json -> defaults -> environment variable overrides
	// 0) .env only seeds the process environment; a missing file is fine
	_ = godotenv.Load()

	// 1) Try to load JSON config (supports both flat and nested grouped keys)
	if err := loadJSONConfig(filepath.Join("config", "config.json"), &cfg); err != nil {
		log.Printf("invalid config/config.json: %v", err)
	}

	// 2) Fill defaults for any zero values
	applyDefaults(&cfg)

	// 3) Override from environment variables when set
	applyEnvOverrides(&cfg)

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set in environment variables")
	}

	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	if !loaded {
		return Load()
	}
	return cfg
}

// Set replaces the cached configuration. Tests and tooling use it to skip file and env loading.
func Set(c AppConfig) {
	applyDefaults(&c)
	cfg = c
	loaded = true
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// loadJSONConfig reads JSON file into cfg if present. Returns error only for invalid JSON.
func loadJSONConfig(path string, out *AppConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return nil // silently ignore missing file
	}
	defer f.Close()

	var raw map[string]any
	dec := json.NewDecoder(f)
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	applyJSON(raw, out)
	return nil
}

func applyJSON(raw map[string]any, out *AppConfig) {
	// Helper to read string/int/bool safely
	getString := func(m map[string]any, key string) string {
		if v, ok := m[key]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
		return ""
	}
	getInt := func(m map[string]any, key string) int {
		if v, ok := m[key]; ok {
			switch t := v.(type) {
			case float64:
				return int(t)
			case int:
				return t
			case json.Number:
				i, _ := t.Int64()
				return int(i)
			}
		}
		return 0
	}
	getBool := func(m map[string]any, key string) bool {
		if v, ok := m[key]; ok {
			if b, ok := v.(bool); ok {
				return b
			}
		}
		return false
	}
	getStringSlice := func(m map[string]any, key string) []string {
		if v, ok := m[key]; ok {
			if arr, ok := v.([]any); ok {
				res := make([]string, 0, len(arr))
				for _, it := range arr {
					if s, ok := it.(string); ok {
						res = append(res, s)
					}
				}
				return res
			}
		}
		return nil
	}

	// Try grouped sections first
	if app, ok := raw["app"].(map[string]any); ok {
		out.AppPort = getString(app, "AppPort")
		out.JWTSecret = getString(app, "JWTSecret")
		if v := getInt(app, "RateLimitPerMinute"); v != 0 {
			out.RateLimitPerMinute = v
		}
		if list := getStringSlice(app, "AllowedOrigins"); len(list) > 0 {
			out.AllowedOrigins = list
		}
		if v := getString(app, "OAuthRedirectBase"); v != "" {
			out.OAuthRedirectBase = v
		}
		if list := getStringSlice(app, "AdminUsernames"); len(list) > 0 {
			out.AdminUsernames = list
		}
	}

	if g, ok := raw["gin"].(map[string]any); ok {
		if v := getString(g, "Mode"); v != "" {
			out.GinMode = v
		}
		if v := getString(g, "LogPath"); v != "" {
			out.GinPath = v
		}
	}

	if dbs, ok := raw["database"].(map[string]any); ok {
		out.DatabaseURI = getString(dbs, "DatabaseURI")
		out.DBDriver = getString(dbs, "Driver")
		out.DBHost = getString(dbs, "DBHost")
		out.DBPort = getString(dbs, "DBPort")
		out.DBUser = getString(dbs, "DBUser")
		out.DBPassword = getString(dbs, "DBPassword")
		out.DBName = getString(dbs, "DBName")
	}

	if rds, ok := raw["redis"].(map[string]any); ok {
		out.RedisHost = getString(rds, "RedisHost")
		if v := getInt(rds, "RedisPort"); v != 0 {
			out.RedisPort = v
		}
		if v := getInt(rds, "RedisDB"); v != 0 {
			out.RedisDB = v
		}
		out.RedisPassword = getString(rds, "RedisPassword")
	}

	if oa, ok := raw["oauth"].(map[string]any); ok {
		out.GitHubClientID = getString(oa, "GitHubClientID")
		out.GitHubClientSecret = getString(oa, "GitHubClientSecret")
		out.GoogleClientID = getString(oa, "GoogleClientID")
		out.GoogleClientSecret = getString(oa, "GoogleClientSecret")
	}

	if st, ok := raw["site"].(map[string]any); ok {
		out.SiteTitle = getString(st, "Title")
		out.SiteDescription = getString(st, "Description")
		out.NoticeHTML = getString(st, "NoticeHTML")
	}

	if adm, ok := raw["admin"].(map[string]any); ok {
		if list := getStringSlice(adm, "Usernames"); len(list) > 0 {
			out.AdminUsernames = list
		}
	}

	if lg, ok := raw["log"].(map[string]any); ok {
		if v := getString(lg, "Level"); v != "" {
			out.LogLevel = v
		}
		if v := getString(lg, "Path"); v != "" {
			out.LogPath = v
		}
		if v := getString(lg, "GinMode"); v != "" {
			out.GinMode = v
		}
		if v := getString(lg, "GinPath"); v != "" {
			out.GinPath = v
		}
		if v := getInt(lg, "MaxSizeMB"); v != 0 {
			out.LogMaxSizeMB = v
		}
		if v := getInt(lg, "MaxBackups"); v != 0 {
			out.LogMaxBackups = v
		}
		if v := getInt(lg, "MaxAgeDays"); v != 0 {
			out.LogMaxAgeDays = v
		}
		out.LogCompress = getBool(lg, "Compress")
	}

	if s, ok := raw["storage"].(map[string]any); ok {
		out.StorageDriver = getString(s, "Driver")
		out.StorageBucket = getString(s, "Bucket")
		out.StorageRegion = getString(s, "Region")
		out.StorageEndpoint = getString(s, "Endpoint")
		out.StorageAccessKeyID = getString(s, "AccessKeyID")
		out.StorageSecretAccessKey = getString(s, "SecretAccessKey")
		out.StoragePublicBaseURL = getString(s, "PublicBaseURL")
		out.StorageUsePathStyle = getBool(s, "UsePathStyle")
		out.StorageLocalDir = getString(s, "LocalDir")
	}

	if up, ok := raw["uploads"].(map[string]any); ok {
		if v := getInt(up, "MaxSizeMB"); v != 0 {
			out.UploadMaxSizeMB = v
		}
		if v := getInt(up, "TempTTLMinutes"); v != 0 {
			out.TempTTLMinutes = v
		}
		if v := getInt(up, "CleanerIntervalMinutes"); v != 0 {
			out.CleanerIntervalMinutes = v
		}
	}

	if pb, ok := raw["publish"].(map[string]any); ok {
		out.StrictPromotion = getBool(pb, "StrictPromotion")
		if v := getInt(pb, "PromotionConcurrency"); v != 0 {
			out.PromotionConcurrency = v
		}
	}

	// Also support reading flat keys directly for backward compatibility
	if v, ok := raw["AppPort"]; ok && out.AppPort == "" {
		out.AppPort, _ = v.(string)
	}
	if v, ok := raw["JWTSecret"]; ok && out.JWTSecret == "" {
		out.JWTSecret, _ = v.(string)
	}
	if v, ok := raw["DatabaseURI"]; ok && out.DatabaseURI == "" {
		out.DatabaseURI, _ = v.(string)
	}
	if v, ok := raw["LogLevel"]; ok && out.LogLevel == "" {
		out.LogLevel, _ = v.(string)
	}
	if v, ok := raw["AdminUsernames"]; ok && len(out.AdminUsernames) == 0 {
		if arr, ok := v.([]any); ok {
			for _, it := range arr {
				if s, ok := it.(string); ok {
					out.AdminUsernames = append(out.AdminUsernames, s)
				}
			}
		}
	}
}

// applyDefaults sets sane defaults for zero-value fields.
func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "8080"
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.GinPath == "" {
		c.GinPath = "logs/go_gin.log"
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 60
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.OAuthRedirectBase == "" {
		c.OAuthRedirectBase = "http://localhost:8080"
	}
	if c.DBDriver == "" {
		c.DBDriver = "postgres"
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBPort == "" {
		if c.DBDriver == "mysql" {
			c.DBPort = "3306"
		} else {
			c.DBPort = "5432"
		}
	}
	if c.DBUser == "" {
		c.DBUser = "postgres"
	}
	if c.DBName == "" {
		c.DBName = "inkblog"
	}
	if c.RedisHost == "" {
		c.RedisHost = "127.0.0.1"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogMaxSizeMB == 0 {
		c.LogMaxSizeMB = 100
	}
	if c.LogMaxBackups == 0 {
		c.LogMaxBackups = 3
	}
	if c.LogMaxAgeDays == 0 {
		c.LogMaxAgeDays = 7
	}
	if c.SiteTitle == "" {
		c.SiteTitle = "inkblog"
	}
	if c.StorageDriver == "" {
		c.StorageDriver = "local"
	}
	if c.StorageRegion == "" {
		c.StorageRegion = "auto"
	}
	if c.StorageLocalDir == "" {
		c.StorageLocalDir = filepath.Join("static", "uploads")
	}
	if c.UploadMaxSizeMB == 0 {
		c.UploadMaxSizeMB = 10
	}
	if c.TempTTLMinutes == 0 {
		c.TempTTLMinutes = 24 * 60
	}
	if c.CleanerIntervalMinutes == 0 {
		c.CleanerIntervalMinutes = 30
	}
	if c.PromotionConcurrency == 0 {
		c.PromotionConcurrency = 1
	}
}

// applyEnvOverrides maps known environment variables onto config values when present.
func applyEnvOverrides(c *AppConfig) {
	if v := getEnv("APP_PORT", ""); v != "" {
		c.AppPort = v
	}
	if v := getEnv("JWT_SECRET", ""); v != "" {
		c.JWTSecret = v
	}
	if v := getEnv("GIN_MODE", ""); v != "" {
		c.GinMode = v
	}
	if v := getEnv("GIN_PATH", ""); v != "" {
		c.GinPath = v
	}
	if v := getEnv("DATABASE_URI", ""); v != "" {
		c.DatabaseURI = v
	}
	if v := getEnv("DB_DRIVER", ""); v != "" {
		c.DBDriver = v
	}
	if v := getEnv("DB_HOST", ""); v != "" {
		c.DBHost = v
	}
	if v := getEnv("DB_PORT", ""); v != "" {
		c.DBPort = v
	}
	if v := getEnv("DB_USER", ""); v != "" {
		c.DBUser = v
	}
	if v := getEnv("DB_PASSWORD", ""); v != "" {
		c.DBPassword = v
	}
	if v := getEnv("DB_NAME", ""); v != "" {
		c.DBName = v
	}
	if v := getEnv("GITHUB_CLIENT_ID", ""); v != "" {
		c.GitHubClientID = v
	}
	if v := getEnv("GITHUB_CLIENT_SECRET", ""); v != "" {
		c.GitHubClientSecret = v
	}
	if v := getEnv("GOOGLE_CLIENT_ID", ""); v != "" {
		c.GoogleClientID = v
	}
	if v := getEnv("GOOGLE_CLIENT_SECRET", ""); v != "" {
		c.GoogleClientSecret = v
	}
	if v := getEnv("RATE_LIMIT_PER_MINUTE", ""); v != "" {
		c.RateLimitPerMinute = mustParseInt(v)
	}
	if v := getEnv("CORS_ALLOWED_ORIGINS", ""); v != "" {
		c.AllowedOrigins = readListEnv("CORS_ALLOWED_ORIGINS", c.AllowedOrigins)
	}
	if v := getEnv("OAUTH_REDIRECT_BASE_URL", ""); v != "" {
		c.OAuthRedirectBase = v
	}
	if v := getEnv("ADMIN_USERNAMES", ""); v != "" {
		c.AdminUsernames = readListEnv("ADMIN_USERNAMES", c.AdminUsernames)
	}
	if v := getEnv("SITE_TITLE", ""); v != "" {
		c.SiteTitle = v
	}
	if v := getEnv("SITE_DESCRIPTION", ""); v != "" {
		c.SiteDescription = v
	}
	if v := getEnv("REDIS_HOST", ""); v != "" {
		c.RedisHost = v
	}
	if v := getEnv("REDIS_PORT", ""); v != "" {
		c.RedisPort = mustParseInt(v)
	}
	if v := getEnv("REDIS_DB", ""); v != "" {
		c.RedisDB = mustParseInt(v)
	}
	if v := getEnv("REDIS_PASSWORD", ""); v != "" {
		c.RedisPassword = v
	}
	if v := getEnv("LOG_LEVEL", ""); v != "" {
		c.LogLevel = v
	}
	if v := getEnv("LOG_PATH", ""); v != "" {
		c.LogPath = v
	}
	if v := getEnv("LOG_MAX_SIZE_MB", ""); v != "" {
		c.LogMaxSizeMB = mustParseInt(v)
	}
	if v := getEnv("LOG_MAX_BACKUPS", ""); v != "" {
		c.LogMaxBackups = mustParseInt(v)
	}
	if v := getEnv("LOG_MAX_AGE_DAYS", ""); v != "" {
		c.LogMaxAgeDays = mustParseInt(v)
	}
	if v := getEnv("LOG_COMPRESS", ""); v != "" {
		c.LogCompress = v == "true"
	}
	// Storage env overrides
	if v := getEnv("STORAGE_DRIVER", ""); v != "" {
		c.StorageDriver = v
	}
	if v := getEnv("STORAGE_BUCKET", ""); v != "" {
		c.StorageBucket = v
	}
	if v := getEnv("STORAGE_REGION", ""); v != "" {
		c.StorageRegion = v
	}
	if v := getEnv("STORAGE_ENDPOINT", ""); v != "" {
		c.StorageEndpoint = v
	}
	if v := getEnv("STORAGE_ACCESS_KEY_ID", ""); v != "" {
		c.StorageAccessKeyID = v
	}
	if v := getEnv("STORAGE_SECRET_ACCESS_KEY", ""); v != "" {
		c.StorageSecretAccessKey = v
	}
	if v := getEnv("STORAGE_PUBLIC_BASE_URL", ""); v != "" {
		c.StoragePublicBaseURL = v
	}
	if v := getEnv("STORAGE_USE_PATH_STYLE", ""); v != "" {
		c.StorageUsePathStyle = v == "true"
	}
	if v := getEnv("STORAGE_LOCAL_DIR", ""); v != "" {
		c.StorageLocalDir = v
	}
	if v := getEnv("UPLOAD_MAX_SIZE_MB", ""); v != "" {
		c.UploadMaxSizeMB = mustParseInt(v)
	}
	if v := getEnv("TEMP_TTL_MINUTES", ""); v != "" {
		c.TempTTLMinutes = mustParseInt(v)
	}
	if v := getEnv("CLEANER_INTERVAL_MINUTES", ""); v != "" {
		c.CleanerIntervalMinutes = mustParseInt(v)
	}
	if v := getEnv("STRICT_PROMOTION", ""); v != "" {
		c.StrictPromotion = v == "true"
	}
	if v := getEnv("PROMOTION_CONCURRENCY", ""); v != "" {
		c.PromotionConcurrency = mustParseInt(v)
	}
}

func mustParseInt(val string) int {
	i, err := strconv.Atoi(val)
	if err != nil {
		log.Fatalf("invalid integer value %s: %v", val, err)
	}
	return i
}

func readListEnv(key string, defaults []string) []string {
	if raw := os.Getenv(key); raw != "" {
		return splitAndTrim(raw)
	}
	return defaults
}

func splitAndTrim(raw string) []string {
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(item)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
