// internal/app/features/messages/send.go
package messages

import (
	"context"
	"net/http"
	"strings"

	uierrors "github.com/hearthsocial/hearth/internal/app/features/errors"
	"github.com/hearthsocial/hearth/internal/app/system/apperr"
	"github.com/hearthsocial/hearth/internal/app/system/authz"
	"github.com/hearthsocial/hearth/internal/app/system/htmlsanitize"
	"github.com/hearthsocial/hearth/internal/app/system/inputval"
	"github.com/hearthsocial/hearth/internal/app/system/realtime"
	"github.com/hearthsocial/hearth/internal/app/system/respond"
	"github.com/hearthsocial/hearth/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type sendInput struct {
	Receiver string `json:"receiver"`
	Content  string `json:"content"`
}

func (in *sendInput) validate() (primitive.ObjectID, error) {
	receiver, err := primitive.ObjectIDFromHex(strings.TrimSpace(in.Receiver))
	if err != nil {
		return primitive.NilObjectID, apperr.ErrBadID.WithMessage("receiver must be a user id.")
	}
	in.Content = htmlsanitize.PlainText(in.Content)
	switch {
	case in.Content == "":
		return primitive.NilObjectID, apperr.Invalid("Message content is required.")
	case inputval.TooLong(in.Content, inputval.MaxMessageText):
		return primitive.NilObjectID, apperr.Invalid("Message content must be at most 2000 characters.")
	}
	return receiver, nil
}

// HandleSend handles POST /messages. The message is stored first; the live
// event to the room never affects the response.
func (h *Handler) HandleSend(w http.ResponseWriter, r *http.Request) {
	caller, ok := authz.UserID(r)
	if !ok {
		uierrors.Unauthenticated(w)
		return
	}
	var in sendInput
	if err := respond.Decode(r, &in); err != nil {
		h.ErrLog.Write(w, r, "messages.send", err)
		return
	}
	receiver, err := in.validate()
	if err != nil {
		h.ErrLog.Write(w, r, "messages.send", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.peer(ctx, caller, receiver); err != nil {
		h.ErrLog.Write(w, r, "messages.send", err)
		return
	}
	msg, err := h.Messages.Create(ctx, caller, receiver, in.Content)
	if err != nil {
		h.ErrLog.Write(w, r, "messages.send", err)
		return
	}
	h.Metrics.MessageSent()
	h.publish(msg.RoomID, realtime.EventMessageNew, msg)

	respond.Created(w, map[string]any{"message": msg})
}
