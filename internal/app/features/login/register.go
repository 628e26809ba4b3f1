// internal/app/features/login/register.go
package login

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	userstore "github.com/hearthsocial/hearth/internal/app/store/users"
	"github.com/hearthsocial/hearth/internal/app/system/apperr"
	"github.com/hearthsocial/hearth/internal/app/system/auth"
	"github.com/hearthsocial/hearth/internal/app/system/inputval"
	"github.com/hearthsocial/hearth/internal/app/system/respond"
	"github.com/hearthsocial/hearth/internal/app/system/timeouts"
	"github.com/hearthsocial/hearth/internal/domain/models"
)

type registerInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (in *registerInput) validate() error {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	switch {
	case !inputval.IsValidUsername(in.Username):
		return apperr.Invalid("Username must be 3-30 letters, digits, '_', '.' or '-'.")
	case !inputval.IsValidEmail(in.Email):
		return apperr.Invalid("A valid email is required.")
	case utf8.RuneCountInString(in.Password) < auth.MinPasswordLen:
		return apperr.Invalid("Password must be at least 8 characters.")
	}
	return nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /auth/register                                                          |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var in registerInput
	if err := respond.Decode(r, &in); err != nil {
		h.ErrLog.Write(w, r, "auth.register", err)
		return
	}
	if err := in.validate(); err != nil {
		h.ErrLog.Write(w, r, "auth.register", err)
		return
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		h.ErrLog.Write(w, r, "auth.register", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.Create(ctx, models.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
	})
	switch {
	case errors.Is(err, userstore.ErrDuplicateUsername):
		h.ErrLog.Write(w, r, "auth.register", apperr.ErrUsernameTaken)
		return
	case errors.Is(err, userstore.ErrDuplicateEmail):
		h.ErrLog.Write(w, r, "auth.register", apperr.ErrEmailTaken)
		return
	case err != nil:
		h.ErrLog.Write(w, r, "auth.register", err)
		return
	}

	h.Audit.UserRegistered(ctx, r, u.ID, u.Username)
	h.issue(w, r, "auth.register", http.StatusCreated, &u)
}
