// internal/app/features/login/login.go
package login

import (
	"context"
	"errors"
	"net/http"
	"strings"

	userstore "github.com/hearthsocial/hearth/internal/app/store/users"
	"github.com/hearthsocial/hearth/internal/app/system/apperr"
	"github.com/hearthsocial/hearth/internal/app/system/auth"
	"github.com/hearthsocial/hearth/internal/app/system/respond"
	"github.com/hearthsocial/hearth/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// loginInput accepts either username or email as the identifier.
type loginInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (in loginInput) identifier() string {
	if s := strings.TrimSpace(in.Email); s != "" {
		return s
	}
	return strings.TrimSpace(in.Username)
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /auth/login                                                             |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in loginInput
	if err := respond.Decode(r, &in); err != nil {
		h.ErrLog.Write(w, r, "auth.login", err)
		return
	}
	id := in.identifier()
	if id == "" || in.Password == "" {
		h.ErrLog.Write(w, r, "auth.login", apperr.Invalid("Username or email and password are required."))
		return
	}

	if h.Limiter != nil {
		if err := h.Limiter.Check(r, id); err != nil {
			h.Log.Warn("login rate limited", zap.String("identifier", id))
			h.Audit.LoginRateLimited(r.Context(), r, id)
			h.ErrLog.Write(w, r, "auth.login", err)
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.GetByLogin(ctx, id)
	if errors.Is(err, userstore.ErrNotFound) {
		// Same answer as a wrong password so accounts cannot be enumerated.
		h.Audit.LoginFailed(ctx, r, nil, id, "unknown identifier")
		h.ErrLog.Write(w, r, "auth.login", apperr.ErrInvalidCredentials)
		return
	}
	if err != nil {
		h.ErrLog.Write(w, r, "auth.login", err)
		return
	}
	if !auth.CheckPassword(u.PasswordHash, in.Password) {
		h.Audit.LoginFailed(ctx, r, &u.ID, id, "wrong password")
		h.ErrLog.Write(w, r, "auth.login", apperr.ErrInvalidCredentials)
		return
	}

	if h.Limiter != nil {
		h.Limiter.ResetIdentifier(id)
	}
	h.Audit.LoginSuccess(ctx, r, u.ID, id)
	if h.Groups != nil {
		if ids, err := h.Groups.RepairUserGroups(ctx, u.ID); err != nil {
			h.Log.Warn("groups repair on login failed", zap.String("user_id", u.ID.Hex()), zap.Error(err))
		} else {
			u.Groups = ids
		}
	}
	h.issue(w, r, "auth.login", http.StatusOK, u)
}
