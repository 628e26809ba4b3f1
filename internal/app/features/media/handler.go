// internal/app/features/media/handler.go
package media

import (
	uierrors "github.com/hearthsocial/hearth/internal/app/features/errors"
	"github.com/hearthsocial/hearth/internal/app/system/mediastore"
	"go.uber.org/zap"
)

// Handler accepts image and video uploads.
type Handler struct {
	Store  mediastore.Store
	ErrLog *uierrors.ErrorLogger
	Log    *zap.Logger
}

func NewHandler(store mediastore.Store, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{Store: store, ErrLog: errLog, Log: logger}
}
