// internal/app/bootstrap/shutdown.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Shutdown stops background work, then closes the realtime bridge, Redis
// and MongoDB in that order.
func Shutdown(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if svc := deps.Services; svc != nil {
		if svc.Presence != nil {
			svc.Presence.Stop()
		}
		if svc.Limiter != nil {
			svc.Limiter.Close()
		}
		if svc.Hub != nil {
			// Closes the NATS bridge when one is attached.
			svc.Hub.Close()
		} else if deps.NATS != nil {
			deps.NATS.Close()
		}
	} else if deps.NATS != nil {
		deps.NATS.Close()
	}

	if deps.Redis != nil {
		if err := deps.Redis.Close(); err != nil {
			logger.Warn("redis close failed", zap.Error(err))
		}
	}

	if deps.MongoClient != nil {
		logger.Info("disconnecting Hearth MongoDB client")
		if err := deps.MongoClient.Disconnect(ctx); err != nil {
			logger.Error("MongoDB disconnect failed", zap.Error(err))
			return err
		}
	}
	return nil
}
