// internal/app/features/logout/handler.go
package logout

import (
	"net/http"

	"github.com/hearthsocial/hearth/internal/app/system/auditlog"
	"github.com/hearthsocial/hearth/internal/app/system/auth"
	"github.com/hearthsocial/hearth/internal/app/system/authz"
	"github.com/hearthsocial/hearth/internal/app/system/respond"
	"go.uber.org/zap"
)

type Handler struct {
	Log        *zap.Logger
	SessionMgr *auth.SessionManager
	Audit      *auditlog.Logger
}

func NewHandler(sessionMgr *auth.SessionManager, logger *zap.Logger) *Handler {
	return &Handler{
		Log:        logger,
		SessionMgr: sessionMgr,
	}
}

// HandleLogout handles POST /auth/logout.
//
// Bearer tokens are stateless and simply expire; the client discards its
// copy. The session cookie is deleted here.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if id, ok := authz.UserID(r); ok {
		h.Audit.Logout(r.Context(), r, &id)
	}
	if err := h.SessionMgr.EndSession(w, r); err != nil {
		h.Log.Error("logout: save session", zap.Error(err))
	}
	respond.NoContent(w)
}
