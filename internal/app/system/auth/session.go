package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/sessions"
	"github.com/hearthsocial/hearth/internal/app/system/apperr"
	"github.com/hearthsocial/hearth/internal/app/system/respond"
	"go.uber.org/zap"
)

/*─────────────────────────────────────────────────────────────────────────────*
| Current-User helper                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

// SessionUser is what the middleware injects into r.Context().
type SessionUser struct {
	ID       string
	Username string
	IsAdmin  bool // site administrator, not group admin
}

type ctxKey string

const currentUserKey ctxKey = "currentUser"

// CurrentUser returns the user & "found?" flag.
func CurrentUser(r *http.Request) (*SessionUser, bool) {
	u, ok := r.Context().Value(currentUserKey).(*SessionUser)
	return u, ok && u != nil
}

// WithTestUser injects u into the request context. Used by handler tests to
// bypass token and cookie handling.
func WithTestUser(r *http.Request, u *SessionUser) *http.Request {
	return withUser(r, u)
}

// UserFetcher loads fresh user data for an authenticated id. Returning nil
// means the account no longer exists and the request is treated as anonymous.
type UserFetcher interface {
	FetchUser(ctx context.Context, userID string) *SessionUser
}

/*─────────────────────────────────────────────────────────────────────────────*
| Session manager                                                            |
*─────────────────────────────────────────────────────────────────────────────*/

const (
	isAuthKey = "is_authenticated"
	userIDKey = "user_id"
)

// SessionManager resolves the caller of each request.
//
// The primary credential is a bearer token in the Authorization header. A
// signed session cookie, set at login, is accepted as a fallback so the
// browser client can also authenticate plain navigations.
type SessionManager struct {
	store   *sessions.CookieStore
	name    string
	tokens  *TokenService
	fetcher UserFetcher
	log     *zap.Logger
}

// NewSessionManager builds the cookie store and binds the token service.
//
// In production (secure=true), cookies are Secure + SameSite=None so a client
// served from another origin can send them. Local dev over plain http needs
// secure=false.
func NewSessionManager(sessionKey, name, domain string, maxAge time.Duration, secure bool, tokens *TokenService, logger *zap.Logger) (*SessionManager, error) {
	if sessionKey == "" {
		return nil, fmt.Errorf("session key is empty; provide ≥32 random chars")
	}
	if len(sessionKey) < 32 {
		logger.Warn("session key is short; 32+ chars recommended",
			zap.Int("length", len(sessionKey)))
	}
	if tokens == nil {
		return nil, fmt.Errorf("token service is required")
	}

	store := sessions.NewCookieStore([]byte(sessionKey))
	opts := &sessions.Options{
		Domain:   domain,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		Secure:   secure,
		HttpOnly: true,
	}
	if secure {
		opts.SameSite = http.SameSiteNoneMode
	} else {
		opts.SameSite = http.SameSiteLaxMode
	}
	store.Options = opts

	logger.Info("session store initialized",
		zap.Bool("secure", secure),
		zap.String("domain", domain))

	return &SessionManager{store: store, name: name, tokens: tokens, log: logger}, nil
}

// SetUserFetcher installs the loader used to refresh the user on every request.
func (sm *SessionManager) SetUserFetcher(f UserFetcher) { sm.fetcher = f }

// Tokens returns the bearer token service.
func (sm *SessionManager) Tokens() *TokenService { return sm.tokens }

// LoadSessionUser injects the user into context if the request carries a valid
// bearer token or session cookie. A present but invalid bearer token is
// rejected outright instead of silently falling back to the cookie.
func (sm *SessionManager) LoadSessionUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := ""

		if raw := bearerToken(r.Header.Get("Authorization")); raw != "" {
			claims, err := sm.tokens.Validate(raw)
			if err != nil {
				e := apperr.New(apperr.KindUnauthenticated, "token_invalid", "Invalid token.")
				if err == ErrTokenExpired {
					e = apperr.New(apperr.KindUnauthenticated, "token_expired", "Token has expired.")
				}
				respond.Error(w, e)
				return
			}
			userID = claims.UserID
		} else if sess, err := sm.store.Get(r, sm.name); err == nil {
			if isAuth, _ := sess.Values[isAuthKey].(bool); isAuth {
				userID, _ = sess.Values[userIDKey].(string)
			}
		}

		if userID != "" {
			u := &SessionUser{ID: userID}
			if sm.fetcher != nil {
				u = sm.fetcher.FetchUser(r.Context(), userID)
			}
			if u != nil {
				r = withUser(r, u)
			}
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSignedIn answers 401 unless LoadSessionUser found a user.
func (sm *SessionManager) RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); !ok {
			respond.Error(w, apperr.ErrUnauthenticated)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSiteAdmin answers 401 for anonymous callers and 403 for non-admins.
func (sm *SessionManager) RequireSiteAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := CurrentUser(r)
		if !ok {
			respond.Error(w, apperr.ErrUnauthenticated)
			return
		}
		if !u.IsAdmin {
			respond.Error(w, apperr.ErrNotAuthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// StartSession marks the cookie session as authenticated for userID.
func (sm *SessionManager) StartSession(w http.ResponseWriter, r *http.Request, userID string) error {
	sess, _ := sm.store.Get(r, sm.name)
	sess.Values[isAuthKey] = true
	sess.Values[userIDKey] = userID
	return sess.Save(r, w)
}

// EndSession clears the cookie session.
func (sm *SessionManager) EndSession(w http.ResponseWriter, r *http.Request) error {
	sess, _ := sm.store.Get(r, sm.name)
	sess.Values = map[interface{}]interface{}{}
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}

// helpers

func withUser(r *http.Request, u *SessionUser) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentUserKey, u))
}

// bearerToken extracts the token from an "Authorization: Bearer x" header.
func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
