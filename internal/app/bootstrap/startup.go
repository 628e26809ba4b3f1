// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/waffle/config"
	"github.com/hearthsocial/hearth/internal/app/membership"
	"github.com/hearthsocial/hearth/internal/app/store/audit"
	userstore "github.com/hearthsocial/hearth/internal/app/store/users"
	"github.com/hearthsocial/hearth/internal/app/system/auditlog"
	"github.com/hearthsocial/hearth/internal/app/system/mediastore"
	"github.com/hearthsocial/hearth/internal/app/system/metrics"
	"github.com/hearthsocial/hearth/internal/app/system/ratelimit"
	"github.com/hearthsocial/hearth/internal/app/system/realtime"
	"github.com/hearthsocial/hearth/internal/app/system/workers"
	"github.com/hearthsocial/hearth/internal/app/system/wsauth"
	"go.uber.org/zap"
)

// Services holds the long-lived components built once at startup.
type Services struct {
	Metrics    *metrics.Metrics
	Hub        *realtime.Hub
	Membership *membership.Service
	Media      mediastore.Store
	LocalMedia *mediastore.Local // nil when media lives in S3
	Tickets    *wsauth.Signer
	Limiter    *ratelimit.LoginLimiter
	Audit      *auditlog.Logger
	Presence   *workers.PresenceRefresh
}

// presenceRefreshEvery keeps online marks alive well inside PresenceTTL.
const presenceRefreshEvery = realtime.PresenceTTL / 4

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built. Hearth
// builds its shared services here: metrics, the realtime hub, the media
// store, socket tickets and the membership service.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	svc := deps.Services
	svc.Metrics = metrics.New()

	opts := realtime.Options{
		Metrics:        svc.Metrics,
		AllowedOrigins: appCfg.CORSOrigins,
	}
	if deps.NATS != nil {
		opts.Bridge = deps.NATS
	}
	if deps.Redis != nil {
		opts.Presence = realtime.NewRedisPresence(deps.Redis)
	}
	hub, err := realtime.NewHub(opts, logger)
	if err != nil {
		return fmt.Errorf("realtime hub: %w", err)
	}
	svc.Hub = hub

	if err := buildMediaStore(ctx, appCfg, svc, logger); err != nil {
		return err
	}

	tickets, err := wsauth.NewSigner([]byte(appCfg.SessionKey), wsauth.DefaultTTL)
	if err != nil {
		return fmt.Errorf("socket tickets: %w", err)
	}
	svc.Tickets = tickets

	svc.Limiter = ratelimit.NewLoginLimiter(appCfg.LoginRateLimit)

	svc.Audit = auditlog.New(audit.New(deps.MongoDatabase), logger, auditlog.Config{
		Auth:       appCfg.AuditAuth,
		Account:    appCfg.AuditAccount,
		Moderation: appCfg.AuditModeration,
	})

	svc.Membership = membership.New(deps.MongoDatabase, svc.Metrics, logger)
	svc.Membership.Notifier = hub

	if appCfg.SiteAdminEmail != "" {
		if err := ensureSiteAdmin(ctx, deps, appCfg.SiteAdminEmail, logger); err != nil {
			return err
		}
	}

	// Local presence needs no refresh; only shared presence keys expire.
	if deps.Redis != nil {
		svc.Presence = workers.NewPresenceRefresh(hub, logger, presenceRefreshEvery)
		svc.Presence.Start()
	}

	return nil
}

func buildMediaStore(ctx context.Context, appCfg AppConfig, svc *Services, logger *zap.Logger) error {
	switch appCfg.StorageType {
	case "s3":
		store, err := mediastore.NewS3(ctx, mediastore.S3Config{
			Region:    appCfg.StorageS3Region,
			Bucket:    appCfg.StorageS3Bucket,
			Prefix:    appCfg.StorageS3Prefix,
			PublicURL: appCfg.StoragePublicURL,
		})
		if err != nil {
			return fmt.Errorf("s3 media store: %w", err)
		}
		svc.Media = store
		logger.Info("media stored in S3", zap.String("bucket", appCfg.StorageS3Bucket))
	default:
		local, err := mediastore.NewLocal(appCfg.StorageLocalPath, appCfg.StorageLocalURL)
		if err != nil {
			return fmt.Errorf("local media store: %w", err)
		}
		svc.Media = local
		svc.LocalMedia = local
		logger.Info("media stored locally", zap.String("path", local.Root()))
	}
	return nil
}

// ensureSiteAdmin promotes the registered user with email to site admin.
// An unknown email is logged and skipped so a fresh deployment can boot
// before that account signs up.
func ensureSiteAdmin(ctx context.Context, deps DBDeps, email string, logger *zap.Logger) error {
	users := userstore.New(deps.MongoDatabase)

	u, err := users.GetByEmail(ctx, email)
	if errors.Is(err, userstore.ErrNotFound) {
		logger.Warn("siteadmin_email does not match a registered user", zap.String("email", email))
		return nil
	}
	if err != nil {
		return fmt.Errorf("look up site admin: %w", err)
	}
	if u.IsAdmin {
		return nil
	}
	if err := users.SetAdmin(ctx, u.ID, true); err != nil {
		return fmt.Errorf("promote site admin: %w", err)
	}
	logger.Info("promoted user to site admin", zap.String("user_id", u.ID.Hex()), zap.String("username", u.Username))
	return nil
}
