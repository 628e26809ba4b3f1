// internal/app/bootstrap/routes.go
package bootstrap

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	auditlogfeature "github.com/hearthsocial/hearth/internal/app/features/auditlog"
	uierrors "github.com/hearthsocial/hearth/internal/app/features/errors"
	friendsfeature "github.com/hearthsocial/hearth/internal/app/features/friends"
	groupsfeature "github.com/hearthsocial/hearth/internal/app/features/groups"
	healthfeature "github.com/hearthsocial/hearth/internal/app/features/health"
	loginfeature "github.com/hearthsocial/hearth/internal/app/features/login"
	logoutfeature "github.com/hearthsocial/hearth/internal/app/features/logout"
	mediafeature "github.com/hearthsocial/hearth/internal/app/features/media"
	messagesfeature "github.com/hearthsocial/hearth/internal/app/features/messages"
	postsfeature "github.com/hearthsocial/hearth/internal/app/features/posts"
	realtimefeature "github.com/hearthsocial/hearth/internal/app/features/realtime"
	statsfeature "github.com/hearthsocial/hearth/internal/app/features/stats"
	usersfeature "github.com/hearthsocial/hearth/internal/app/features/users"
	userstore "github.com/hearthsocial/hearth/internal/app/store/users"
	"github.com/hearthsocial/hearth/internal/app/system/auth"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// the Startup hook have completed. Hearth is a JSON API: every feature
// router is mounted under its resource prefix, behind CORS, request metrics
// and the middleware that resolves the caller from a bearer token or the
// session cookie.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	svc := deps.Services
	if svc == nil || svc.Hub == nil {
		return nil, errors.New("bootstrap: Startup has not built services")
	}
	db := deps.MongoDatabase

	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	tokens := auth.NewTokenService(appCfg.JWTSecret, appCfg.JWTTTL)
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.JWTTTL, secure, tokens, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	// Fresh user data on each request, so admin changes and deletions take
	// effect immediately.
	sessionMgr.SetUserFetcher(userstore.NewFetcher(db))

	errLog := uierrors.NewErrorLogger(logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(corsOptions(appCfg.CORSOrigins)))
	r.Use(svc.Metrics.Middleware)
	r.Use(sessionMgr.LoadSessionUser)

	r.NotFound(uierrors.NotFound)
	r.MethodNotAllowed(uierrors.MethodNotAllowed)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	r.Handle("/metrics", svc.Metrics.Handler())

	// Locally stored media is served by the app itself; S3 media is served
	// from the bucket or CDN.
	if svc.LocalMedia != nil {
		prefix := strings.TrimRight(appCfg.StorageLocalURL, "/")
		r.Handle(prefix+"/*", fileserver.Handler(prefix, svc.LocalMedia.Root()))
	}

	// Authentication
	loginHandler := loginfeature.NewHandler(db, sessionMgr, svc.Limiter, errLog, logger)
	loginHandler.Audit = svc.Audit
	loginHandler.Groups = svc.Membership
	r.Mount("/auth", loginfeature.Routes(loginHandler))

	logoutHandler := logoutfeature.NewHandler(sessionMgr, logger)
	logoutHandler.Audit = svc.Audit
	r.Mount("/auth/logout", logoutfeature.Routes(logoutHandler))

	// Social graph
	friendsHandler := friendsfeature.NewHandler(db, svc.Hub, errLog, logger)
	r.Mount("/users/friends", friendsfeature.Routes(friendsHandler, sessionMgr))

	usersHandler := usersfeature.NewHandler(db, svc.Membership, sessionMgr, errLog, logger)
	usersHandler.Audit = svc.Audit
	r.Mount("/users", usersfeature.Routes(usersHandler, sessionMgr))

	// Groups and the membership lifecycle
	groupsHandler := groupsfeature.NewHandler(svc.Membership, errLog, logger)
	groupsHandler.Audit = svc.Audit
	r.Mount("/groups", groupsfeature.Routes(groupsHandler, sessionMgr))

	// Content
	postsHandler := postsfeature.NewHandler(db, errLog, logger)
	postsHandler.Audit = svc.Audit
	r.Mount("/posts", postsfeature.Routes(postsHandler, sessionMgr))

	mediaHandler := mediafeature.NewHandler(svc.Media, errLog, logger)
	r.Mount("/media", mediafeature.Routes(mediaHandler, sessionMgr))

	// Direct messages and the realtime relay
	messagesHandler := messagesfeature.NewHandler(db, svc.Hub, svc.Metrics, errLog, logger)
	r.Mount("/messages", messagesfeature.Routes(messagesHandler, sessionMgr))

	realtimeHandler := realtimefeature.NewHandler(db, svc.Tickets, svc.Hub, errLog, logger)
	r.Mount("/realtime", realtimefeature.Routes(realtimeHandler, sessionMgr))

	// Statistics
	statsHandler := statsfeature.NewHandler(db, errLog, logger)
	r.Mount("/stats", statsfeature.Routes(statsHandler, sessionMgr))

	// Audit trail
	auditHandler := auditlogfeature.NewHandler(db, errLog, logger)
	r.Mount("/audit", auditlogfeature.Routes(auditHandler, sessionMgr))

	return r, nil
}

// corsOptions allows credentialed requests from origins, or from any origin
// when origins is empty or "*".
func corsOptions(origins []string) cors.Options {
	opts := cors.Options{
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	for _, o := range origins {
		if o == "*" {
			origins = nil
			break
		}
	}
	if len(origins) == 0 {
		// Echo the request origin; a literal "*" is not valid with credentials.
		opts.AllowOriginFunc = func(*http.Request, string) bool { return true }
		return opts
	}
	opts.AllowedOrigins = origins
	return opts
}
