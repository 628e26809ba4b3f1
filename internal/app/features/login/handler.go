// internal/app/features/login/handler.go
package login

// Terminology: User Identifiers
//   - UserID / userID / user_id: The MongoDB ObjectID (_id) that uniquely identifies a user record
//   - Identifier: what the user types to log in, a username or an email

import (
	"context"
	"net/http"
	"time"

	uierrors "github.com/hearthsocial/hearth/internal/app/features/errors"
	userstore "github.com/hearthsocial/hearth/internal/app/store/users"
	"github.com/hearthsocial/hearth/internal/app/system/auditlog"
	"github.com/hearthsocial/hearth/internal/app/system/auth"
	"github.com/hearthsocial/hearth/internal/app/system/ratelimit"
	"github.com/hearthsocial/hearth/internal/app/system/respond"
	"github.com/hearthsocial/hearth/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// GroupRepairer rebuilds a user's denormalized groups set.
type GroupRepairer interface {
	RepairUserGroups(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error)
}

type Handler struct {
	Users *userstore.Store
	// Groups, when set, repairs the user's groups set on every login.
	Groups     GroupRepairer
	SessionMgr *auth.SessionManager
	Limiter    *ratelimit.LoginLimiter
	Audit      *auditlog.Logger
	ErrLog     *uierrors.ErrorLogger
	Log        *zap.Logger
}

func NewHandler(
	db *mongo.Database,
	sessionMgr *auth.SessionManager,
	limiter *ratelimit.LoginLimiter,
	errLog *uierrors.ErrorLogger,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		Users:      userstore.New(db),
		SessionMgr: sessionMgr,
		Limiter:    limiter,
		ErrLog:     errLog,
		Log:        logger,
	}
}

// authResponse is returned by register and login.
type authResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// issue signs a bearer token for u, sets the fallback session cookie and
// writes the response with status.
func (h *Handler) issue(w http.ResponseWriter, r *http.Request, op string, status int, u *models.User) {
	token, exp, err := h.SessionMgr.Tokens().Issue(u.ID.Hex())
	if err != nil {
		h.ErrLog.Write(w, r, op, err)
		return
	}
	if err := h.SessionMgr.StartSession(w, r, u.ID.Hex()); err != nil {
		// The bearer token is the primary credential; a cookie failure only
		// costs the fallback.
		h.Log.Warn("start session failed", zap.String("user_id", u.ID.Hex()), zap.Error(err))
	}
	respond.JSON(w, status, authResponse{Token: token, ExpiresAt: exp, User: u})
}
