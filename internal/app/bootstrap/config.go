// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/hearthsocial/hearth/internal/app/system/auditlog"
	"github.com/hearthsocial/hearth/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// minSecretLen is the shortest accepted JWT secret and session key.
const minSecretLen = 32

// appConfigKeys defines the configuration keys for Hearth.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: HEARTH_MONGO_URI, HEARTH_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "hearth", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	{Name: "jwt_secret", Default: "dev-only-jwt-secret-change-me-0123456789", Desc: "HS256 secret for bearer tokens (at least 32 chars)"},
	{Name: "jwt_ttl", Default: "24h", Desc: "Bearer token lifetime (e.g., 24h, 90m)"},

	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session and socket ticket signing key (at least 32 chars)"},
	{Name: "session_name", Default: "hearth-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},

	{Name: "cors_origins", Default: "*", Desc: "Comma-separated browser origins allowed to call the API"},

	// Media storage
	{Name: "storage_type", Default: "local", Desc: "Media backend: 'local' or 's3'"},
	{Name: "storage_local_path", Default: "./uploads/media", Desc: "Local directory for uploaded media"},
	{Name: "storage_local_url", Default: "/media/files", Desc: "URL prefix for serving local media"},
	{Name: "storage_s3_region", Default: "", Desc: "AWS region for S3"},
	{Name: "storage_s3_bucket", Default: "", Desc: "S3 bucket name"},
	{Name: "storage_s3_prefix", Default: "media/", Desc: "S3 key prefix"},
	{Name: "storage_public_url", Default: "", Desc: "Public base URL for S3 objects (CDN); blank uses the bucket URL"},

	// Realtime
	{Name: "nats_url", Default: "", Desc: "NATS server URL for cross-instance events (blank keeps delivery in process)"},
	{Name: "redis_addr", Default: "", Desc: "Redis address for presence (blank uses in-process presence)"},
	{Name: "redis_password", Default: "", Desc: "Redis password"},
	{Name: "redis_db", Default: 0, Desc: "Redis database number"},

	{Name: "login_rate_limit", Default: 10, Desc: "Login attempts per minute per IP and per identifier"},

	// Audit trail
	{Name: "audit_auth", Default: "all", Desc: "Login/logout audit events: all, db, log, off"},
	{Name: "audit_account", Default: "all", Desc: "Registration/password/deletion audit events: all, db, log, off"},
	{Name: "audit_moderation", Default: "all", Desc: "Group moderation audit events: all, db, log, off"},

	{Name: "siteadmin_email", Default: "", Desc: "Email of a registered user promoted to site admin on startup"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, HEARTH_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "HEARTH", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	// Operation timeouts come from HEARTH_TIMEOUT_* before anything connects.
	if n := timeouts.ConfigureFromEnv("HEARTH"); n > 0 {
		logger.Info("timeouts overridden from environment", zap.Int("count", n), zap.Any("timeouts", timeouts.Current()))
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		JWTSecret: appValues.String("jwt_secret"),
		JWTTTL:    appValues.Duration("jwt_ttl", 24*time.Hour),

		SessionKey:    appValues.String("session_key"),
		SessionName:   appValues.String("session_name"),
		SessionDomain: appValues.String("session_domain"),

		CORSOrigins: splitList(appValues.String("cors_origins")),

		// Media storage
		StorageType:      strings.ToLower(strings.TrimSpace(appValues.String("storage_type"))),
		StorageLocalPath: appValues.String("storage_local_path"),
		StorageLocalURL:  appValues.String("storage_local_url"),
		StorageS3Region:  appValues.String("storage_s3_region"),
		StorageS3Bucket:  appValues.String("storage_s3_bucket"),
		StorageS3Prefix:  appValues.String("storage_s3_prefix"),
		StoragePublicURL: appValues.String("storage_public_url"),

		// Realtime
		NATSURL:       appValues.String("nats_url"),
		RedisAddr:     appValues.String("redis_addr"),
		RedisPassword: appValues.String("redis_password"),
		RedisDB:       appValues.Int("redis_db"),

		LoginRateLimit: appValues.Int("login_rate_limit"),

		// Audit trail
		AuditAuth:       strings.ToLower(appValues.String("audit_auth")),
		AuditAccount:    strings.ToLower(appValues.String("audit_account")),
		AuditModeration: strings.ToLower(appValues.String("audit_moderation")),

		SiteAdminEmail: appValues.String("siteadmin_email"),
	}

	return coreCfg, appCfg, nil
}

// splitList splits a comma-separated value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// Hearth checks the MongoDB URI format, the secret lengths and the
// storage settings before anything tries to connect.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	if len(appCfg.JWTSecret) < minSecretLen {
		return fmt.Errorf("jwt_secret must be at least %d characters", minSecretLen)
	}
	if len(appCfg.SessionKey) < minSecretLen {
		return fmt.Errorf("session_key must be at least %d characters", minSecretLen)
	}
	if appCfg.JWTTTL <= 0 {
		return fmt.Errorf("jwt_ttl must be positive")
	}
	if appCfg.LoginRateLimit < 1 {
		return fmt.Errorf("login_rate_limit must be at least 1")
	}

	for name, mode := range map[string]string{
		"audit_auth":       appCfg.AuditAuth,
		"audit_account":    appCfg.AuditAccount,
		"audit_moderation": appCfg.AuditModeration,
	} {
		if !auditlog.ValidMode(mode) {
			return fmt.Errorf("%s must be one of all, db, log, off; got %q", name, mode)
		}
	}

	switch appCfg.StorageType {
	case "local":
		if appCfg.StorageLocalPath == "" {
			return fmt.Errorf("storage_type 'local' requires storage_local_path")
		}
		if !strings.HasPrefix(appCfg.StorageLocalURL, "/") {
			return fmt.Errorf("storage_local_url must start with '/'")
		}
	case "s3":
		if appCfg.StorageS3Bucket == "" || appCfg.StorageS3Region == "" {
			return fmt.Errorf("storage_type 's3' requires storage_s3_bucket and storage_s3_region")
		}
	default:
		return fmt.Errorf("storage_type must be 'local' or 's3', got %q", appCfg.StorageType)
	}

	if coreCfg != nil && coreCfg.Env == "prod" && strings.HasPrefix(appCfg.JWTSecret, "dev-only") {
		logger.Warn("running in prod with the development jwt_secret")
	}
	return nil
}
