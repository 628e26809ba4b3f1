// internal/app/features/realtime/online.go
package realtime

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/hearthsocial/hearth/internal/app/features/errors"
	userstore "github.com/hearthsocial/hearth/internal/app/store/users"
	"github.com/hearthsocial/hearth/internal/app/system/apperr"
	"github.com/hearthsocial/hearth/internal/app/system/authz"
	"github.com/hearthsocial/hearth/internal/app/system/respond"
	"github.com/hearthsocial/hearth/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ServeOnline handles GET /realtime/online: the caller's friends that are
// connected right now.
func (h *Handler) ServeOnline(w http.ResponseWriter, r *http.Request) {
	caller, ok := authz.UserID(r)
	if !ok {
		uierrors.Unauthenticated(w)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	me, err := h.Users.GetByID(ctx, caller)
	if err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			err = apperr.ErrUserNotFound
		}
		h.ErrLog.Write(w, r, "realtime.online", err)
		return
	}
	online := []primitive.ObjectID{}
	if len(me.Friends) > 0 {
		if online, err = h.Hub.OnlineAmong(ctx, me.Friends); err != nil {
			h.ErrLog.Write(w, r, "realtime.online", err)
			return
		}
	}
	respond.OK(w, map[string]any{"online": online})
}
