// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig covers the
// framework-level settings (ports, TLS, log level); everything specific to
// Hearth lives here and is passed to every lifecycle hook.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Bearer tokens
	JWTSecret string        // HS256 signing secret, at least 32 bytes
	JWTTTL    time.Duration // token lifetime

	// Cookie session fallback and socket tickets
	SessionKey    string // signs session cookies and WebSocket tickets
	SessionName   string // cookie name (default: hearth-session)
	SessionDomain string // cookie domain (blank means current host)

	// Browser origins allowed by CORS and the WebSocket upgrade. Empty or "*" allows any.
	CORSOrigins []string

	// Media storage
	StorageType      string // "local" or "s3"
	StorageLocalPath string // directory for local uploads
	StorageLocalURL  string // URL prefix the local directory is served under
	StorageS3Region  string
	StorageS3Bucket  string
	StorageS3Prefix  string
	StoragePublicURL string // optional CDN base for S3 objects

	// Realtime fan-out and presence. Both optional.
	NATSURL       string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Login attempts allowed per minute per IP and per identifier.
	LoginRateLimit int

	// Audit destinations per category: all, db, log or off.
	AuditAuth       string
	AuditAccount    string
	AuditModeration string

	// Email of a registered user to promote to site admin at startup.
	SiteAdminEmail string
}
