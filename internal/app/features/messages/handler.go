// internal/app/features/messages/handler.go
package messages

import (
	"context"

	uierrors "github.com/hearthsocial/hearth/internal/app/features/errors"
	messagestore "github.com/hearthsocial/hearth/internal/app/store/messages"
	userstore "github.com/hearthsocial/hearth/internal/app/store/users"
	"github.com/hearthsocial/hearth/internal/app/system/apperr"
	"github.com/hearthsocial/hearth/internal/app/system/metrics"
	"github.com/hearthsocial/hearth/internal/app/system/realtime"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Publisher delivers an event to both participants of a room.
type Publisher interface {
	PublishRoom(room string, evt realtime.Event) error
}

// Handler serves direct messages. Persisting a message is the source of
// truth; live delivery through Publisher is best effort.
type Handler struct {
	Messages *messagestore.Store
	Users    *userstore.Store
	// Publisher and Metrics are optional.
	Publisher Publisher
	Metrics   *metrics.Metrics
	ErrLog    *uierrors.ErrorLogger
	Log       *zap.Logger
}

func NewHandler(db *mongo.Database, pub Publisher, m *metrics.Metrics, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Messages:  messagestore.New(db),
		Users:     userstore.New(db),
		Publisher: pub,
		Metrics:   m,
		ErrLog:    errLog,
		Log:       logger,
	}
}

// publish sends evt to room and only logs failures.
func (h *Handler) publish(room, typ string, data any) {
	if h.Publisher == nil {
		return
	}
	evt, err := realtime.NewEvent(typ, data)
	if err == nil {
		err = h.Publisher.PublishRoom(room, evt)
	}
	if err != nil {
		h.Log.Warn("realtime publish failed",
			zap.String("room", room),
			zap.String("type", typ),
			zap.Error(err))
	}
}

// peer checks that other is an existing user distinct from caller.
func (h *Handler) peer(ctx context.Context, caller, other primitive.ObjectID) error {
	if caller == other {
		return apperr.Invalid("You cannot message yourself.")
	}
	ok, err := h.Users.Exists(ctx, other)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.ErrUserNotFound
	}
	return nil
}
