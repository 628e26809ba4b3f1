// internal/app/features/groups/list.go
package groups

import (
	"context"
	"net/http"

	"github.com/dalemusser/waffle/pantry/query"
	uierrors "github.com/hearthsocial/hearth/internal/app/features/errors"
	"github.com/hearthsocial/hearth/internal/app/membership"
	"github.com/hearthsocial/hearth/internal/app/system/authz"
	"github.com/hearthsocial/hearth/internal/app/system/normalize"
	"github.com/hearthsocial/hearth/internal/app/system/paging"
	"github.com/hearthsocial/hearth/internal/app/system/respond"
	"github.com/hearthsocial/hearth/internal/app/system/timeouts"
)

type listResponse struct {
	Groups []membership.Summary `json:"groups"`
	Next   string               `json:"next,omitempty"`
}

// ServeList handles GET /groups: public groups plus the caller's own.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "groups.list", normalize.QueryParam(query.Get(r, "q")))
}

// ServeSearch handles GET /groups/search?name=.
func (h *Handler) ServeSearch(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "groups.search", normalize.QueryParam(query.Get(r, "name")))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, op, q string) {
	caller, ok := authz.UserID(r)
	if !ok {
		uierrors.Unauthenticated(w)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	rows, next, err := h.Svc.List(ctx, caller, q, paging.ParseKeyset(r))
	if err != nil {
		h.ErrLog.Write(w, r, op, err)
		return
	}
	respond.OK(w, listResponse{Groups: rows, Next: next})
}

// ServeMine handles GET /groups/my.
func (h *Handler) ServeMine(w http.ResponseWriter, r *http.Request) {
	caller, ok := authz.UserID(r)
	if !ok {
		uierrors.Unauthenticated(w)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	rows, err := h.Svc.MyGroups(ctx, caller)
	if err != nil {
		h.ErrLog.Write(w, r, "groups.mine", err)
		return
	}
	respond.OK(w, listResponse{Groups: rows})
}

// ServeInvitations handles GET /groups/invitations.
func (h *Handler) ServeInvitations(w http.ResponseWriter, r *http.Request) {
	caller, ok := authz.UserID(r)
	if !ok {
		uierrors.Unauthenticated(w)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	rows, err := h.Svc.MyInvitations(ctx, caller)
	if err != nil {
		h.ErrLog.Write(w, r, "groups.invitations", err)
		return
	}
	respond.OK(w, map[string]any{"invitations": rows})
}

// ServeRequests handles GET /groups/{id}/requests (admin only).
func (h *Handler) ServeRequests(w http.ResponseWriter, r *http.Request) {
	t, ok := h.resolve(w, r)
	if !ok {
		return
	}
	defer t.cancel()

	rows, err := h.Svc.PendingRequests(t.ctx, t.groupID, t.caller)
	if err != nil {
		h.ErrLog.Write(w, r, "groups.requests", err)
		return
	}
	respond.OK(w, map[string]any{"requests": rows})
}
