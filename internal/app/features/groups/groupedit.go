// internal/app/features/groups/groupedit.go
package groups

import (
	"net/http"

	"github.com/hearthsocial/hearth/internal/app/system/respond"
)

// HandleUpdate handles PUT /groups/{id}. Only the admin may edit.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	t, ok := h.resolve(w, r)
	if !ok {
		return
	}
	defer t.cancel()

	var in groupInput
	if err := respond.Decode(r, &in); err != nil {
		h.ErrLog.Write(w, r, "groups.update", err)
		return
	}
	if _, err := h.Svc.UpdateGroup(t.ctx, t.groupID, t.caller, in.toService()); err != nil {
		h.ErrLog.Write(w, r, "groups.update", err)
		return
	}
	view, err := h.Svc.View(t.ctx, t.groupID, t.caller)
	if err != nil {
		h.ErrLog.Write(w, r, "groups.update", err)
		return
	}
	respond.OK(w, view)
}
