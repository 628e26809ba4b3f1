// internal/app/features/users/handler.go
package users

import (
	uierrors "github.com/hearthsocial/hearth/internal/app/features/errors"
	"github.com/hearthsocial/hearth/internal/app/membership"
	membershipstore "github.com/hearthsocial/hearth/internal/app/store/memberships"
	messagestore "github.com/hearthsocial/hearth/internal/app/store/messages"
	poststore "github.com/hearthsocial/hearth/internal/app/store/posts"
	userstore "github.com/hearthsocial/hearth/internal/app/store/users"
	"github.com/hearthsocial/hearth/internal/app/system/auditlog"
	"github.com/hearthsocial/hearth/internal/app/system/auth"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves profiles, user search and account deletion.
type Handler struct {
	Client      *mongo.Client
	Users       *userstore.Store
	Posts       *poststore.Store
	Messages    *messagestore.Store
	Memberships *membershipstore.Store
	Groups      *membership.Service
	SessionMgr  *auth.SessionManager
	Audit       *auditlog.Logger
	ErrLog      *uierrors.ErrorLogger
	Log         *zap.Logger
}

func NewHandler(db *mongo.Database, svc *membership.Service, sessionMgr *auth.SessionManager, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Client:      db.Client(),
		Users:       userstore.New(db),
		Posts:       poststore.New(db),
		Messages:    messagestore.New(db),
		Memberships: membershipstore.New(db),
		Groups:      svc,
		SessionMgr:  sessionMgr,
		ErrLog:      errLog,
		Log:         logger,
	}
}
