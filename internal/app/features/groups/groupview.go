// internal/app/features/groups/groupview.go
package groups

import (
	"net/http"

	"github.com/hearthsocial/hearth/internal/app/system/respond"
)

// ServeGroup handles GET /groups/{id}.
//
// Non-members of a private group get the restricted view:
//
//	{ "id", "name", "is_private": true, "admin", "restricted": true, "members": [], "my_state" }
func (h *Handler) ServeGroup(w http.ResponseWriter, r *http.Request) {
	t, ok := h.resolve(w, r)
	if !ok {
		return
	}
	defer t.cancel()

	view, err := h.Svc.View(t.ctx, t.groupID, t.caller)
	if err != nil {
		h.ErrLog.Write(w, r, "groups.view", err)
		return
	}
	respond.OK(w, view)
}
