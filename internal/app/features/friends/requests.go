// internal/app/features/friends/requests.go
package friends

import (
	"context"
	"net/http"
	"time"

	uierrors "github.com/hearthsocial/hearth/internal/app/features/errors"
	"github.com/hearthsocial/hearth/internal/app/system/authz"
	"github.com/hearthsocial/hearth/internal/app/system/respond"
	"github.com/hearthsocial/hearth/internal/app/system/timeouts"
	"github.com/hearthsocial/hearth/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type requestEntry struct {
	User   models.PublicUser `json:"user"`
	SentAt time.Time         `json:"sent_at"`
}

// ServeRequests handles GET /users/friends/requests: the caller's inbox,
// oldest first. Requests from deleted accounts are skipped.
func (h *Handler) ServeRequests(w http.ResponseWriter, r *http.Request) {
	caller, ok := authz.UserID(r)
	if !ok {
		uierrors.Unauthenticated(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	me, err := h.Users.GetByID(ctx, caller)
	if err != nil {
		h.ErrLog.Write(w, r, "friends.requests", err)
		return
	}
	ids := make([]primitive.ObjectID, len(me.FriendRequests))
	for i, fr := range me.FriendRequests {
		ids[i] = fr.Requester
	}
	users, err := h.Users.GetMany(ctx, ids)
	if err != nil {
		h.ErrLog.Write(w, r, "friends.requests", err)
		return
	}
	byID := make(map[primitive.ObjectID]models.PublicUser, len(users))
	for i := range users {
		byID[users[i].ID] = users[i].Public()
	}

	out := make([]requestEntry, 0, len(me.FriendRequests))
	for _, fr := range me.FriendRequests {
		if u, ok := byID[fr.Requester]; ok {
			out = append(out, requestEntry{User: u, SentAt: fr.SentAt})
		}
	}
	respond.OK(w, map[string]any{"requests": out})
}
