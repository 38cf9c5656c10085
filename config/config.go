package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds environment driven configuration values.
// Sensitive data should never have defaults inside code and must be provided via env files or the environment.
type AppConfig struct {
	AppPort            string
	JWTSecret          string
	RateLimitPerMinute int
	AllowedOrigins     []string
	// PublicBaseURL is the site origin used to build links in notification emails.
	PublicBaseURL string
	// Gin framework configuration
	GinMode string
	GinPath string
	// Storage: "mysql" (default) or "mongo"
	DBDriver    string
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	MongoURI    string
	MongoDB     string
	// SMTP for comment notification emails
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	SMTPFromName string
	SMTPTLS      bool
	// Redis for response and sentiment caching
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
	// Sentiment enrichment; empty URL disables it
	SentimentURL          string
	SentimentToken        string
	SentimentTimeoutMs    int
	SentimentCacheMinutes int
	// Asset store
	AssetsDir                string
	AssetsPublicPrefix       string
	AssetsMaxBytes           int
	AssetsMaxWidth           int
	AssetsJPEGQuality        int
	AssetsCleanupIntervalSec int
}

var cfg AppConfig
var loaded bool

// Load loads the application configuration. It should be called once during boot.
func Load() AppConfig {
	if loaded {
		return cfg
	}

	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	c, err := LoadFrom(filepath.Join("config", "config.json"))
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	if err := c.Validate(); err != nil {
		log.Fatal(err)
	}

	cfg = c
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

// LoadFrom builds a configuration with the precedence
// JSON file -> defaults -> environment variable overrides.
func LoadFrom(path string) (AppConfig, error) {
	var c AppConfig
	if err := loadJSONConfig(path, &c); err != nil {
		return c, fmt.Errorf("parse %s: %w", path, err)
	}
	applyDefaults(&c)
	if err := applyEnvOverrides(&c); err != nil {
		return c, err
	}
	return c, nil
}

// Validate reports settings the service cannot run without.
func (c AppConfig) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must be set in environment variables")
	}
	switch c.DBDriver {
	case "mysql", "mongo":
	default:
		return fmt.Errorf("unsupported database driver %q", c.DBDriver)
	}
	return nil
}

// SentimentTimeout is the bound on a single sentiment call.
func (c AppConfig) SentimentTimeout() time.Duration {
	return time.Duration(c.SentimentTimeoutMs) * time.Millisecond
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
	if err := json.NewDecoder(f).Decode(&raw); err != nil {
		return err
	}

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

	if app, ok := raw["app"].(map[string]any); ok {
		out.AppPort = getString(app, "AppPort")
		out.JWTSecret = getString(app, "JWTSecret")
		out.RateLimitPerMinute = getInt(app, "RateLimitPerMinute")
		out.AllowedOrigins = getStringSlice(app, "AllowedOrigins")
		out.PublicBaseURL = getString(app, "PublicBaseURL")
	}

	if g, ok := raw["gin"].(map[string]any); ok {
		out.GinMode = getString(g, "Mode")
		out.GinPath = getString(g, "LogPath")
	}

	if dbs, ok := raw["database"].(map[string]any); ok {
		out.DBDriver = getString(dbs, "Driver")
		out.DatabaseURI = getString(dbs, "DatabaseURI")
		out.DBHost = getString(dbs, "DBHost")
		out.DBPort = getString(dbs, "DBPort")
		out.DBUser = getString(dbs, "DBUser")
		out.DBPassword = getString(dbs, "DBPassword")
		out.DBName = getString(dbs, "DBName")
		out.MongoURI = getString(dbs, "MongoURI")
		out.MongoDB = getString(dbs, "MongoDB")
	}

	if rds, ok := raw["redis"].(map[string]any); ok {
		out.RedisHost = getString(rds, "RedisHost")
		out.RedisPort = getInt(rds, "RedisPort")
		out.RedisDB = getInt(rds, "RedisDB")
		out.RedisPassword = getString(rds, "RedisPassword")
	}

	if sm, ok := raw["smtp"].(map[string]any); ok {
		out.SMTPHost = getString(sm, "SMTPHost")
		out.SMTPPort = getInt(sm, "SMTPPort")
		out.SMTPUsername = getString(sm, "SMTPUsername")
		out.SMTPPassword = getString(sm, "SMTPPassword")
		out.SMTPFrom = getString(sm, "SMTPFrom")
		out.SMTPFromName = getString(sm, "SMTPFromName")
		out.SMTPTLS = getBool(sm, "SMTPTLS")
	}

	if lg, ok := raw["log"].(map[string]any); ok {
		out.LogLevel = getString(lg, "Level")
		out.LogPath = getString(lg, "Path")
		out.LogMaxSizeMB = getInt(lg, "MaxSizeMB")
		out.LogMaxBackups = getInt(lg, "MaxBackups")
		out.LogMaxAgeDays = getInt(lg, "MaxAgeDays")
		out.LogCompress = getBool(lg, "Compress")
	}

	if st, ok := raw["sentiment"].(map[string]any); ok {
		out.SentimentURL = getString(st, "URL")
		out.SentimentToken = getString(st, "Token")
		out.SentimentTimeoutMs = getInt(st, "TimeoutMs")
		out.SentimentCacheMinutes = getInt(st, "CacheMinutes")
	}

	if as, ok := raw["assets"].(map[string]any); ok {
		out.AssetsDir = getString(as, "Dir")
		out.AssetsPublicPrefix = getString(as, "PublicPrefix")
		out.AssetsMaxBytes = getInt(as, "MaxBytes")
		out.AssetsMaxWidth = getInt(as, "MaxWidth")
		out.AssetsJPEGQuality = getInt(as, "JPEGQuality")
		out.AssetsCleanupIntervalSec = getInt(as, "CleanupIntervalSec")
	}

	return nil
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
		c.RateLimitPerMinute = 120
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.PublicBaseURL == "" {
		c.PublicBaseURL = "http://localhost:8080"
	}
	if c.DBDriver == "" {
		c.DBDriver = "mysql"
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBPort == "" {
		c.DBPort = "3306"
	}
	if c.DBUser == "" {
		c.DBUser = "root"
	}
	if c.DBName == "" {
		c.DBName = "postfeed"
	}
	if c.MongoURI == "" {
		c.MongoURI = "mongodb://127.0.0.1:27017"
	}
	if c.MongoDB == "" {
		c.MongoDB = "postfeed"
	}
	if c.SMTPPort == 0 {
		c.SMTPPort = 587
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
	if c.SentimentTimeoutMs == 0 {
		c.SentimentTimeoutMs = 3000
	}
	if c.SentimentCacheMinutes == 0 {
		c.SentimentCacheMinutes = 60
	}
	if c.AssetsDir == "" {
		c.AssetsDir = filepath.Join("static", "uploads")
	}
	if c.AssetsPublicPrefix == "" {
		c.AssetsPublicPrefix = "/static/uploads"
	}
	if c.AssetsMaxBytes == 0 {
		c.AssetsMaxBytes = 10 * 1024 * 1024
	}
	if c.AssetsMaxWidth == 0 {
		c.AssetsMaxWidth = 1600
	}
	if c.AssetsJPEGQuality == 0 {
		c.AssetsJPEGQuality = 85
	}
	if c.AssetsCleanupIntervalSec == 0 {
		c.AssetsCleanupIntervalSec = 300
	}
}

// applyEnvOverrides maps known environment variables onto config values when present.
func applyEnvOverrides(c *AppConfig) error {
	strs := map[string]*string{
		"APP_PORT":             &c.AppPort,
		"JWT_SECRET":           &c.JWTSecret,
		"PUBLIC_BASE_URL":      &c.PublicBaseURL,
		"GIN_MODE":             &c.GinMode,
		"GIN_PATH":             &c.GinPath,
		"DB_DRIVER":            &c.DBDriver,
		"DATABASE_URI":         &c.DatabaseURI,
		"DB_HOST":              &c.DBHost,
		"DB_PORT":              &c.DBPort,
		"DB_USER":              &c.DBUser,
		"DB_PASSWORD":          &c.DBPassword,
		"DB_NAME":              &c.DBName,
		"MONGO_URI":            &c.MongoURI,
		"MONGO_DB":             &c.MongoDB,
		"SMTP_HOST":            &c.SMTPHost,
		"SMTP_USERNAME":        &c.SMTPUsername,
		"SMTP_PASSWORD":        &c.SMTPPassword,
		"SMTP_FROM":            &c.SMTPFrom,
		"SMTP_FROM_NAME":       &c.SMTPFromName,
		"REDIS_HOST":           &c.RedisHost,
		"REDIS_PASSWORD":       &c.RedisPassword,
		"LOG_LEVEL":            &c.LogLevel,
		"LOG_PATH":             &c.LogPath,
		"SENTIMENT_URL":        &c.SentimentURL,
		"SENTIMENT_TOKEN":      &c.SentimentToken,
		"ASSETS_DIR":           &c.AssetsDir,
		"ASSETS_PUBLIC_PREFIX": &c.AssetsPublicPrefix,
	}
	for key, dst := range strs {
		if v := getEnv(key, ""); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"RATE_LIMIT_PER_MINUTE":       &c.RateLimitPerMinute,
		"SMTP_PORT":                   &c.SMTPPort,
		"REDIS_PORT":                  &c.RedisPort,
		"REDIS_DB":                    &c.RedisDB,
		"LOG_MAX_SIZE_MB":             &c.LogMaxSizeMB,
		"LOG_MAX_BACKUPS":             &c.LogMaxBackups,
		"LOG_MAX_AGE_DAYS":            &c.LogMaxAgeDays,
		"SENTIMENT_TIMEOUT_MS":        &c.SentimentTimeoutMs,
		"SENTIMENT_CACHE_MINUTES":     &c.SentimentCacheMinutes,
		"ASSETS_MAX_BYTES":            &c.AssetsMaxBytes,
		"ASSETS_MAX_WIDTH":            &c.AssetsMaxWidth,
		"ASSETS_JPEG_QUALITY":         &c.AssetsJPEGQuality,
		"ASSETS_CLEANUP_INTERVAL_SEC": &c.AssetsCleanupIntervalSec,
	}
	for key, dst := range ints {
		v := getEnv(key, "")
		if v == "" {
			continue
		}
		i, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid integer value for %s: %q", key, v)
		}
		*dst = i
	}

	if v := getEnv("SMTP_TLS", ""); v != "" {
		c.SMTPTLS = v == "true"
	}
	if v := getEnv("LOG_COMPRESS", ""); v != "" {
		c.LogCompress = v == "true"
	}
	if v := getEnv("CORS_ALLOWED_ORIGINS", ""); v != "" {
		c.AllowedOrigins = splitAndTrim(v)
	}
	return nil
}

func splitAndTrim(raw string) []string {
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
