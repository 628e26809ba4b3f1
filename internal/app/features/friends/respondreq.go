// internal/app/features/friends/respondreq.go
package friends

import (
	"errors"
	"net/http"

	userstore "github.com/hearthsocial/hearth/internal/app/store/users"
	"github.com/hearthsocial/hearth/internal/app/system/apperr"
	"github.com/hearthsocial/hearth/internal/app/system/respond"
)

// HandleAccept handles POST /users/friends/accept/{userID}.
func (h *Handler) HandleAccept(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, caller, requester, ok := h.pair(w, r, "friends.accept")
	if !ok {
		return
	}
	defer cancel()

	if err := h.Users.RemoveFriendRequest(ctx, caller, requester); err != nil {
		if errors.Is(err, userstore.ErrNoChange) {
			err = apperr.ErrFriendRequestNotFound
		}
		h.ErrLog.Write(w, r, "friends.accept", err)
		return
	}
	if err := h.Users.AddFriendship(ctx, caller, requester); err != nil {
		h.ErrLog.Write(w, r, "friends.accept", err)
		return
	}
	h.notify(requester, EventFriendAccepted, caller)
	respond.OK(w, map[string]string{"status": StatusAccepted})
}

// HandleReject handles POST /users/friends/reject/{userID}.
func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, caller, requester, ok := h.pair(w, r, "friends.reject")
	if !ok {
		return
	}
	defer cancel()

	if err := h.Users.RemoveFriendRequest(ctx, caller, requester); err != nil {
		if errors.Is(err, userstore.ErrNoChange) {
			err = apperr.ErrFriendRequestNotFound
		}
		h.ErrLog.Write(w, r, "friends.reject", err)
		return
	}
	respond.NoContent(w)
}

// HandleUnfriend handles DELETE /users/friends/{userID}.
func (h *Handler) HandleUnfriend(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, caller, friend, ok := h.pair(w, r, "friends.remove")
	if !ok {
		return
	}
	defer cancel()

	if err := h.Users.RemoveFriendship(ctx, caller, friend); err != nil {
		if errors.Is(err, userstore.ErrNoChange) {
			err = apperr.ErrNotFriends
		}
		h.ErrLog.Write(w, r, "friends.remove", err)
		return
	}
	respond.NoContent(w)
}
