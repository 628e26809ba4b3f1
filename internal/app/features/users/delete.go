// internal/app/features/users/delete.go
package users

import (
	"context"
	"net/http"

	uierrors "github.com/hearthsocial/hearth/internal/app/features/errors"
	"github.com/hearthsocial/hearth/internal/app/system/authz"
	"github.com/hearthsocial/hearth/internal/app/system/respond"
	"github.com/hearthsocial/hearth/internal/app/system/timeouts"
	"github.com/hearthsocial/hearth/internal/app/system/txn"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// HandleDeleteMe handles DELETE /users/me.
func (h *Handler) HandleDeleteMe(w http.ResponseWriter, r *http.Request) {
	caller, ok := authz.UserID(r)
	if !ok {
		uierrors.Unauthenticated(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	err := txn.Run(ctx, h.Client, func(ctx context.Context) error {
		return h.deleteAccount(ctx, caller)
	})
	if err != nil {
		h.ErrLog.Write(w, r, "users.delete", err)
		return
	}
	h.Audit.AccountDeleted(ctx, r, caller)
	if err := h.SessionMgr.EndSession(w, r); err != nil {
		h.Log.Warn("end session after account delete", zap.Error(err))
	}
	respond.NoContent(w)
}

// deleteAccount removes the user and everything hanging off them. Groups the
// user administers go through the group delete cascade first. The user
// document is removed last so a failed run can be retried when no
// transaction is available.
func (h *Handler) deleteAccount(ctx context.Context, userID primitive.ObjectID) error {
	groups, err := h.Groups.DeleteGroupsAdministeredBy(ctx, userID)
	if err != nil {
		return err
	}
	memberships, err := h.Memberships.DeleteByUser(ctx, userID)
	if err != nil {
		return err
	}
	if err := h.Users.ForgetUser(ctx, userID); err != nil {
		return err
	}
	posts, err := h.Posts.DeleteByAuthor(ctx, userID)
	if err != nil {
		return err
	}
	if err := h.Posts.ForgetUser(ctx, userID); err != nil {
		return err
	}
	messages, err := h.Messages.DeleteByUser(ctx, userID)
	if err != nil {
		return err
	}
	if _, err := h.Users.Delete(ctx, userID); err != nil {
		return err
	}

	h.Log.Info("account deleted",
		zap.String("user_id", userID.Hex()),
		zap.Int("groups", groups),
		zap.Int64("memberships", memberships),
		zap.Int64("posts", posts),
		zap.Int64("messages", messages))
	return nil
}
