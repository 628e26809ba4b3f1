// internal/app/features/groups/handler.go
package groups

import (
	"context"
	"net/http"

	uierrors "github.com/hearthsocial/hearth/internal/app/features/errors"
	"github.com/hearthsocial/hearth/internal/app/membership"
	"github.com/hearthsocial/hearth/internal/app/system/auditlog"
	"github.com/hearthsocial/hearth/internal/app/system/authz"
	"github.com/hearthsocial/hearth/internal/app/system/respond"
	"github.com/hearthsocial/hearth/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler is the shared dependency container for the groups feature.
// Every state change goes through the membership Service; the handlers only
// parse input, resolve the caller and shape the response.
type Handler struct {
	Svc    *membership.Service
	Audit  *auditlog.Logger
	ErrLog *uierrors.ErrorLogger
	Log    *zap.Logger
}

// NewHandler constructs a groups Handler.
func NewHandler(svc *membership.Service, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Svc:    svc,
		ErrLog: errLog,
		Log:    logger,
	}
}

// target bundles what most group routes need: the caller, the group id from
// the path and a context bounded by the short timeout.
type target struct {
	ctx     context.Context
	cancel  context.CancelFunc
	caller  primitive.ObjectID
	groupID primitive.ObjectID
}

// resolve reads the caller and {id}. On failure it writes the response and
// returns ok=false.
func (h *Handler) resolve(w http.ResponseWriter, r *http.Request) (target, bool) {
	caller, ok := authz.UserID(r)
	if !ok {
		uierrors.Unauthenticated(w)
		return target{}, false
	}
	groupID, err := respond.PathID(r, "id")
	if err != nil {
		h.ErrLog.Write(w, r, "groups.resolve", err)
		return target{}, false
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	return target{ctx: ctx, cancel: cancel, caller: caller, groupID: groupID}, true
}
