// internal/app/features/stats/handler.go
package stats

import (
	"strconv"

	uierrors "github.com/hearthsocial/hearth/internal/app/features/errors"
	"github.com/hearthsocial/hearth/internal/app/system/apperr"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Query bounds.
const (
	DefaultDays  = 7
	MaxDays      = 90
	DefaultLimit = 10
	MaxLimit     = 50
)

// Handler serves read-only usage statistics.
type Handler struct {
	DB     *mongo.Database
	ErrLog *uierrors.ErrorLogger
	Log    *zap.Logger
}

func NewHandler(db *mongo.Database, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{DB: db, ErrLog: errLog, Log: logger}
}

// boundedInt parses s as a positive integer, using def when s is empty and
// clamping to max.
func boundedInt(s, name string, def, max int) (int, error) {
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, apperr.Invalid(name + " must be a positive integer.")
	}
	if n > max {
		n = max
	}
	return n, nil
}
