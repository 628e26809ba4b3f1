// internal/app/features/realtime/handler.go
package realtime

import (
	"context"
	"net/http"

	uierrors "github.com/hearthsocial/hearth/internal/app/features/errors"
	userstore "github.com/hearthsocial/hearth/internal/app/store/users"
	"github.com/hearthsocial/hearth/internal/app/system/wsauth"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Hub is the part of the connection hub the endpoints use.
type Hub interface {
	Serve(w http.ResponseWriter, r *http.Request, userID primitive.ObjectID)
	OnlineAmong(ctx context.Context, ids []primitive.ObjectID) ([]primitive.ObjectID, error)
}

// Handler issues socket tickets, upgrades sockets and reports presence.
type Handler struct {
	Users   *userstore.Store
	Tickets *wsauth.Signer
	Hub     Hub
	ErrLog  *uierrors.ErrorLogger
	Log     *zap.Logger
}

func NewHandler(db *mongo.Database, tickets *wsauth.Signer, hub Hub, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Users:   userstore.New(db),
		Tickets: tickets,
		Hub:     hub,
		ErrLog:  errLog,
		Log:     logger,
	}
}
