// internal/app/features/messages/conversation.go
package messages

import (
	"context"
	"net/http"

	uierrors "github.com/hearthsocial/hearth/internal/app/features/errors"
	"github.com/hearthsocial/hearth/internal/app/system/authz"
	"github.com/hearthsocial/hearth/internal/app/system/paging"
	"github.com/hearthsocial/hearth/internal/app/system/realtime"
	"github.com/hearthsocial/hearth/internal/app/system/respond"
	"github.com/hearthsocial/hearth/internal/app/system/roomid"
	"github.com/hearthsocial/hearth/internal/app/system/timeouts"
	"github.com/hearthsocial/hearth/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type conversationResponse struct {
	RoomID   string           `json:"room_id"`
	Messages []models.Message `json:"messages"`
	// Next is the before cursor for older messages; empty at the start of
	// the conversation.
	Next string `json:"next,omitempty"`
}

type readEvent struct {
	Reader string `json:"reader"`
	Count  int64  `json:"count"`
}

// withPeer resolves the caller and the {userId} path parameter.
func (h *Handler) withPeer(w http.ResponseWriter, r *http.Request, op string) (caller, other primitive.ObjectID, ok bool) {
	caller, ok = authz.UserID(r)
	if !ok {
		uierrors.Unauthenticated(w)
		return caller, other, false
	}
	other, err := respond.PathID(r, "userId")
	if err != nil {
		h.ErrLog.Write(w, r, op, err)
		return caller, other, false
	}
	return caller, other, true
}

// ServeConversation handles GET /messages/{userId}. Opening a conversation
// marks the caller's incoming messages in it as read.
func (h *Handler) ServeConversation(w http.ResponseWriter, r *http.Request) {
	caller, other, ok := h.withPeer(w, r, "messages.conversation")
	if !ok {
		return
	}
	page, err := paging.Parse(r)
	if err != nil {
		h.ErrLog.Write(w, r, "messages.conversation", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.peer(ctx, caller, other); err != nil {
		h.ErrLog.Write(w, r, "messages.conversation", err)
		return
	}
	room := roomid.For(caller, other)
	rows, hasMore, err := h.Messages.Conversation(ctx, room, page)
	if err != nil {
		h.ErrLog.Write(w, r, "messages.conversation", err)
		return
	}
	if n, err := h.markRead(ctx, room, caller); err != nil {
		h.ErrLog.Write(w, r, "messages.conversation", err)
		return
	} else if n > 0 {
		for i := range rows {
			if rows[i].Receiver == caller {
				rows[i].IsRead = true
			}
		}
	}

	// Rows are oldest first, so the cursor is the first row.
	var next string
	if hasMore && len(rows) > 0 {
		next = paging.EncodeBefore(rows[0].CreatedAt, rows[0].ID)
	}
	respond.OK(w, conversationResponse{RoomID: room, Messages: rows, Next: next})
}

// HandleMarkRead handles PUT /messages/{userId}/read.
func (h *Handler) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	caller, other, ok := h.withPeer(w, r, "messages.mark_read")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.peer(ctx, caller, other); err != nil {
		h.ErrLog.Write(w, r, "messages.mark_read", err)
		return
	}
	n, err := h.markRead(ctx, roomid.For(caller, other), caller)
	if err != nil {
		h.ErrLog.Write(w, r, "messages.mark_read", err)
		return
	}
	respond.OK(w, map[string]int64{"marked": n})
}

// markRead flags the reader's incoming messages and tells the room.
func (h *Handler) markRead(ctx context.Context, room string, reader primitive.ObjectID) (int64, error) {
	n, err := h.Messages.MarkRead(ctx, room, reader)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		h.publish(room, realtime.EventMessageRead, readEvent{Reader: reader.Hex(), Count: n})
	}
	return n, nil
}
