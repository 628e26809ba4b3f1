// internal/app/features/messages/inbox.go
package messages

import (
	"context"
	"net/http"

	uierrors "github.com/hearthsocial/hearth/internal/app/features/errors"
	messagestore "github.com/hearthsocial/hearth/internal/app/store/messages"
	"github.com/hearthsocial/hearth/internal/app/system/authz"
	"github.com/hearthsocial/hearth/internal/app/system/respond"
	"github.com/hearthsocial/hearth/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type conversationSummary struct {
	messagestore.Summary
	PeerUsername string `json:"peer_username"`
}

// ServeConversations handles GET /messages/conversations: the latest
// message and unread count of every room, most recent first.
func (h *Handler) ServeConversations(w http.ResponseWriter, r *http.Request) {
	caller, ok := authz.UserID(r)
	if !ok {
		uierrors.Unauthenticated(w)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	rows, err := h.Messages.Conversations(ctx, caller)
	if err != nil {
		h.ErrLog.Write(w, r, "messages.conversations", err)
		return
	}
	peers := make([]primitive.ObjectID, 0, len(rows))
	for _, s := range rows {
		peers = append(peers, s.Peer)
	}
	names := map[primitive.ObjectID]string{}
	if len(peers) > 0 {
		users, err := h.Users.GetMany(ctx, peers)
		if err != nil {
			h.ErrLog.Write(w, r, "messages.conversations", err)
			return
		}
		for _, u := range users {
			names[u.ID] = u.Username
		}
	}

	out := make([]conversationSummary, 0, len(rows))
	for _, s := range rows {
		out = append(out, conversationSummary{Summary: s, PeerUsername: names[s.Peer]})
	}
	respond.OK(w, map[string]any{"conversations": out})
}

// ServeUnread handles GET /messages/unread.
func (h *Handler) ServeUnread(w http.ResponseWriter, r *http.Request) {
	caller, ok := authz.UserID(r)
	if !ok {
		uierrors.Unauthenticated(w)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	n, err := h.Messages.UnreadCount(ctx, caller)
	if err != nil {
		h.ErrLog.Write(w, r, "messages.unread", err)
		return
	}
	respond.OK(w, map[string]int64{"count": n})
}
