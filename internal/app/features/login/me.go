// internal/app/features/login/me.go
package login

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/hearthsocial/hearth/internal/app/features/errors"
	userstore "github.com/hearthsocial/hearth/internal/app/store/users"
	"github.com/hearthsocial/hearth/internal/app/system/authz"
	"github.com/hearthsocial/hearth/internal/app/system/respond"
	"github.com/hearthsocial/hearth/internal/app/system/timeouts"
)

// ServeMe handles GET /auth/me and returns the caller's own account,
// including email and pending friend requests.
func (h *Handler) ServeMe(w http.ResponseWriter, r *http.Request) {
	caller, ok := authz.UserID(r)
	if !ok {
		uierrors.Unauthenticated(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.GetByID(ctx, caller)
	if errors.Is(err, userstore.ErrNotFound) {
		uierrors.Unauthenticated(w)
		return
	}
	if err != nil {
		h.ErrLog.Write(w, r, "auth.me", err)
		return
	}
	respond.OK(w, map[string]any{"user": u})
}
