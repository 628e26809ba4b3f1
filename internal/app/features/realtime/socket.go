// internal/app/features/realtime/socket.go
package realtime

import (
	"context"
	"net/http"

	"github.com/dalemusser/waffle/pantry/query"
	"github.com/hearthsocial/hearth/internal/app/system/apperr"
	"github.com/hearthsocial/hearth/internal/app/system/respond"
	"github.com/hearthsocial/hearth/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// ServeSocket handles GET /realtime/ws?ticket=. The ticket is the only
// credential; the route sits outside the signed-in group.
func (h *Handler) ServeSocket(w http.ResponseWriter, r *http.Request) {
	userID, err := h.Tickets.Verify(query.Get(r, "ticket"))
	if err != nil {
		h.Log.Debug("socket ticket rejected", zap.String("remote", r.RemoteAddr), zap.Error(err))
		respond.Error(w, apperr.ErrUnauthenticated.WithMessage("Invalid or expired socket ticket."))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	exists, err := h.Users.Exists(ctx, userID)
	cancel()
	if err != nil {
		h.ErrLog.Write(w, r, "realtime.socket", err)
		return
	}
	if !exists {
		respond.Error(w, apperr.ErrUnauthenticated)
		return
	}

	// Serve blocks for the lifetime of the connection.
	h.Hub.Serve(w, r, userID)
}
