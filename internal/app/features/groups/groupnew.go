// internal/app/features/groups/groupnew.go
package groups

import (
	"context"
	"net/http"

	uierrors "github.com/hearthsocial/hearth/internal/app/features/errors"
	"github.com/hearthsocial/hearth/internal/app/membership"
	"github.com/hearthsocial/hearth/internal/app/system/authz"
	"github.com/hearthsocial/hearth/internal/app/system/respond"
	"github.com/hearthsocial/hearth/internal/app/system/timeouts"
)

// groupInput is the JSON body of create and update. Absent fields are nil.
type groupInput struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	IsPrivate   *bool   `json:"is_private"`
}

func (in groupInput) toService() membership.GroupInput {
	return membership.GroupInput{Name: in.Name, Description: in.Description, IsPrivate: in.IsPrivate}
}

// HandleCreate handles POST /groups.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	caller, ok := authz.UserID(r)
	if !ok {
		uierrors.Unauthenticated(w)
		return
	}
	var in groupInput
	if err := respond.Decode(r, &in); err != nil {
		h.ErrLog.Write(w, r, "groups.create", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	g, err := h.Svc.CreateGroup(ctx, caller, in.toService())
	if err != nil {
		h.ErrLog.Write(w, r, "groups.create", err)
		return
	}
	h.Audit.GroupCreated(ctx, r, caller, g.ID, g.Name, g.IsPrivate)
	view, err := h.Svc.View(ctx, g.ID, caller)
	if err != nil {
		h.ErrLog.Write(w, r, "groups.create", err)
		return
	}
	respond.Created(w, view)
}
