// internal/app/features/friends/handler.go
package friends

import (
	"context"
	"net/http"

	uierrors "github.com/hearthsocial/hearth/internal/app/features/errors"
	"github.com/hearthsocial/hearth/internal/app/membership"
	userstore "github.com/hearthsocial/hearth/internal/app/store/users"
	"github.com/hearthsocial/hearth/internal/app/system/authz"
	"github.com/hearthsocial/hearth/internal/app/system/respond"
	"github.com/hearthsocial/hearth/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Events pushed to the other party.
const (
	EventFriendRequest  = "friend:request"
	EventFriendAccepted = "friend:accepted"
)

// Handler serves the friend graph: requests, accept, reject and unfriend.
type Handler struct {
	Users *userstore.Store
	// Notifier is optional; nil disables live events.
	Notifier membership.Notifier
	ErrLog   *uierrors.ErrorLogger
	Log      *zap.Logger
}

func NewHandler(db *mongo.Database, notifier membership.Notifier, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Users:    userstore.New(db),
		Notifier: notifier,
		ErrLog:   errLog,
		Log:      logger,
	}
}

func (h *Handler) notify(userID primitive.ObjectID, event string, from primitive.ObjectID) {
	if h.Notifier != nil {
		h.Notifier.NotifyUser(userID, event, map[string]string{"user_id": from.Hex()})
	}
}

// pair resolves the caller and the {userID} path parameter. On failure it
// writes the response and returns ok=false.
func (h *Handler) pair(w http.ResponseWriter, r *http.Request, op string) (ctx context.Context, cancel context.CancelFunc, caller, other primitive.ObjectID, ok bool) {
	caller, ok = authz.UserID(r)
	if !ok {
		uierrors.Unauthenticated(w)
		return nil, nil, caller, other, false
	}
	other, err := respond.PathID(r, "userID")
	if err != nil {
		h.ErrLog.Write(w, r, op, err)
		return nil, nil, caller, other, false
	}
	ctx, cancel = context.WithTimeout(r.Context(), timeouts.Short())
	return ctx, cancel, caller, other, true
}
