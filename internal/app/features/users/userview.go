// internal/app/features/users/userview.go
package users

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
	"github.com/hearthsocial/hearth/internal/domain/models"
)

// profileResponse is another user's profile plus the caller's relationship
// to them.
type profileResponse struct {
	User models.PublicUser `json:"user"`
	// IsFriend is true when the caller and the user are friends.
	IsFriend bool `json:"is_friend"`
	// RequestSent is true when the caller's friend request awaits the user.
	RequestSent bool `json:"request_sent"`
	// RequestReceived is true when the user's friend request awaits the caller.
	RequestReceived bool `json:"request_received"`
}

// ServeUser handles GET /users/{id}.
func (h *Handler) ServeUser(w http.ResponseWriter, r *http.Request) {
	caller, ok := authz.UserID(r)
	if !ok {
		uierrors.Unauthenticated(w)
		return
	}
	id, err := respond.PathID(r, "id")
	if err != nil {
		h.ErrLog.Write(w, r, "users.get", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.GetByID(ctx, id)
	if errors.Is(err, userstore.ErrNotFound) {
		h.ErrLog.Write(w, r, "users.get", apperr.ErrUserNotFound)
		return
	}
	if err != nil {
		h.ErrLog.Write(w, r, "users.get", err)
		return
	}

	resp := profileResponse{
		User:        u.Public(),
		IsFriend:    u.HasFriend(caller),
		RequestSent: u.HasRequestFrom(caller),
	}
	if caller != id && !resp.IsFriend {
		me, err := h.Users.GetByID(ctx, caller)
		if err != nil && !errors.Is(err, userstore.ErrNotFound) {
			h.ErrLog.Write(w, r, "users.get", err)
			return
		}
		if me != nil {
			resp.RequestReceived = me.HasRequestFrom(id)
		}
	}
	respond.OK(w, resp)
}

// ServeFriends handles GET /users/{id}/friends.
func (h *Handler) ServeFriends(w http.ResponseWriter, r *http.Request) {
	if _, ok := authz.UserID(r); !ok {
		uierrors.Unauthenticated(w)
		return
	}
	id, err := respond.PathID(r, "id")
	if err != nil {
		h.ErrLog.Write(w, r, "users.friends", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	u, err := h.Users.GetByID(ctx, id)
	if errors.Is(err, userstore.ErrNotFound) {
		h.ErrLog.Write(w, r, "users.friends", apperr.ErrUserNotFound)
		return
	}
	if err != nil {
		h.ErrLog.Write(w, r, "users.friends", err)
		return
	}
	friends, err := h.Users.GetMany(ctx, u.Friends)
	if err != nil {
		h.ErrLog.Write(w, r, "users.friends", err)
		return
	}
	respond.OK(w, map[string]any{"friends": models.PublicUsers(friends)})
}
