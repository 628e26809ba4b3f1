// internal/app/features/stats/me.go
package stats

import (
	"context"
	"net/http"

	uierrors "github.com/hearthsocial/hearth/internal/app/features/errors"
	statsstore "github.com/hearthsocial/hearth/internal/app/store/stats"
	"github.com/hearthsocial/hearth/internal/app/system/authz"
	"github.com/hearthsocial/hearth/internal/app/system/respond"
	"github.com/hearthsocial/hearth/internal/app/system/timeouts"
)

// ServeMe handles GET /stats/me.
func (h *Handler) ServeMe(w http.ResponseWriter, r *http.Request) {
	caller, ok := authz.UserID(r)
	if !ok {
		uierrors.Unauthenticated(w)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	respond.OK(w, statsstore.FetchUserCounts(ctx, h.DB, caller))
}
