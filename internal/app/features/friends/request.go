// internal/app/features/friends/request.go
package friends

import (
	"context"
	"errors"
	"net/http"

	userstore "github.com/hearthsocial/hearth/internal/app/store/users"
	"github.com/hearthsocial/hearth/internal/app/system/apperr"
	"github.com/hearthsocial/hearth/internal/app/system/respond"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Outcomes of a friend request.
const (
	StatusRequested = "requested"
	StatusAccepted  = "accepted"
)

// HandleRequest handles POST /users/friends/request/{userID}.
//
// When the target already sent the caller a request, this accepts it instead
// of queueing a second one.
func (h *Handler) HandleRequest(w http.ResponseWriter, r *http.Request) {
	ctx, cancel, caller, target, ok := h.pair(w, r, "friends.request")
	if !ok {
		return
	}
	defer cancel()

	status, err := h.request(ctx, caller, target)
	if err != nil {
		h.ErrLog.Write(w, r, "friends.request", err)
		return
	}
	switch status {
	case StatusAccepted:
		h.notify(target, EventFriendAccepted, caller)
		respond.OK(w, map[string]string{"status": status})
	default:
		h.notify(target, EventFriendRequest, caller)
		respond.Created(w, map[string]string{"status": status})
	}
}

func (h *Handler) request(ctx context.Context, caller, target primitive.ObjectID) (string, error) {
	if caller == target {
		return "", apperr.ErrCannotFriendSelf
	}
	other, err := h.Users.GetByID(ctx, target)
	if errors.Is(err, userstore.ErrNotFound) {
		return "", apperr.ErrUserNotFound
	}
	if err != nil {
		return "", err
	}
	me, err := h.Users.GetByID(ctx, caller)
	if err != nil {
		return "", err
	}

	if me.HasFriend(target) {
		return "", apperr.ErrAlreadyFriends
	}
	if me.HasRequestFrom(target) {
		// Mutual request. Whoever pulls the inbox entry first makes the
		// friendship; a concurrent accept of the same entry loses here.
		if err := h.Users.RemoveFriendRequest(ctx, caller, target); err != nil {
			if errors.Is(err, userstore.ErrNoChange) {
				return "", apperr.ErrAlreadyFriends
			}
			return "", err
		}
		if err := h.Users.AddFriendship(ctx, caller, target); err != nil {
			return "", err
		}
		return StatusAccepted, nil
	}

	err = h.Users.AddFriendRequest(ctx, target, caller)
	if errors.Is(err, userstore.ErrNoChange) {
		if other.HasFriend(caller) {
			return "", apperr.ErrAlreadyFriends
		}
		return "", apperr.ErrFriendRequestPending
	}
	if err != nil {
		return "", err
	}
	return StatusRequested, nil
}
