// internal/app/features/groups/groupdelete.go
package groups

import (
	"context"
	"net/http"

	uierrors "github.com/hearthsocial/hearth/internal/app/features/errors"
	"github.com/hearthsocial/hearth/internal/app/system/authz"
	"github.com/hearthsocial/hearth/internal/app/system/respond"
	"github.com/hearthsocial/hearth/internal/app/system/timeouts"
)

// HandleDelete handles DELETE /groups/{id}.
// The cascade touches every member's user document, so it gets the long timeout.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	caller, ok := authz.UserID(r)
	if !ok {
		uierrors.Unauthenticated(w)
		return
	}
	groupID, err := respond.PathID(r, "id")
	if err != nil {
		h.ErrLog.Write(w, r, "groups.delete", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	if err := h.Svc.DeleteGroup(ctx, groupID, caller); err != nil {
		h.ErrLog.Write(w, r, "groups.delete", err)
		return
	}
	h.Audit.GroupDeleted(ctx, r, caller, groupID)
	respond.NoContent(w)
}
