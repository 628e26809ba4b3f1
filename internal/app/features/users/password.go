// internal/app/features/users/password.go
package users

import (
	"context"
	"net/http"
	"unicode/utf8"

	uierrors "github.com/hearthsocial/hearth/internal/app/features/errors"
	"github.com/hearthsocial/hearth/internal/app/system/apperr"
	"github.com/hearthsocial/hearth/internal/app/system/auth"
	"github.com/hearthsocial/hearth/internal/app/system/authz"
	"github.com/hearthsocial/hearth/internal/app/system/respond"
	"github.com/hearthsocial/hearth/internal/app/system/timeouts"
)

var errWrongPassword = apperr.New(apperr.KindInvalidInput, "wrong_password", "Current password is incorrect.")

type passwordInput struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// HandleChangePassword handles PUT /users/me/password.
func (h *Handler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	caller, ok := authz.UserID(r)
	if !ok {
		uierrors.Unauthenticated(w)
		return
	}
	var in passwordInput
	if err := respond.Decode(r, &in); err != nil {
		h.ErrLog.Write(w, r, "users.password", err)
		return
	}
	if utf8.RuneCountInString(in.NewPassword) < auth.MinPasswordLen {
		h.ErrLog.Write(w, r, "users.password", apperr.Invalid("Password must be at least 8 characters."))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.GetByID(ctx, caller)
	if err != nil {
		h.ErrLog.Write(w, r, "users.password", err)
		return
	}
	if !auth.CheckPassword(u.PasswordHash, in.CurrentPassword) {
		h.ErrLog.Write(w, r, "users.password", errWrongPassword)
		return
	}

	hash, err := auth.HashPassword(in.NewPassword)
	if err != nil {
		h.ErrLog.Write(w, r, "users.password", err)
		return
	}
	if err := h.Users.UpdatePassword(ctx, caller, hash); err != nil {
		h.ErrLog.Write(w, r, "users.password", err)
		return
	}
	h.Audit.PasswordChanged(ctx, r, caller)
	respond.NoContent(w)
}
