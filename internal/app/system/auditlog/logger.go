// internal/app/system/auditlog/logger.go
package auditlog

// Terminology: User Identifiers
//   - UserID / userID / user_id: The MongoDB ObjectID (_id) that uniquely identifies a user record
//   - Identifier: what the user typed to log in, a username or an email

import (
	"context"
	"net/http"
	"time"

	"github.com/hearthsocial/hearth/internal/app/store/audit"
	"github.com/hearthsocial/hearth/internal/app/system/ratelimit"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Destinations for a category of events.
const (
	ModeAll = "all" // MongoDB + zap
	ModeDB  = "db"  // MongoDB only
	ModeLog = "log" // zap only
	ModeOff = "off" // disabled
)

// Config holds audit logging configuration.
type Config struct {
	// Auth controls login and logout events.
	Auth string
	// Account controls registration, password and deletion events.
	Account string
	// Moderation controls group administration events.
	Moderation string
}

// ValidMode reports whether m is one of the Mode constants.
func ValidMode(m string) bool {
	switch m {
	case ModeAll, ModeDB, ModeLog, ModeOff:
		return true
	}
	return false
}

// Logger records audit events to MongoDB (via audit.Store) and zap.
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

// logToZap logs the event to zap with consistent structure.
func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
		zap.String("ip", event.IP),
	}

	if event.UserID != nil {
		fields = append(fields, zap.String("user_id", event.UserID.Hex()))
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.GroupID != nil {
		fields = append(fields, zap.String("group_id", event.GroupID.Hex()))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

func (l *Logger) modeFor(category string) string {
	switch category {
	case audit.CategoryAuth:
		return l.config.Auth
	case audit.CategoryAccount:
		return l.config.Account
	case audit.CategoryModeration:
		return l.config.Moderation
	}
	return ModeAll
}

// Log records an audit event based on configuration.
// A nil Logger is a no-op so handlers and tests can run without one.
//
// The database write is detached from ctx: an event is recorded even when
// the request that caused it has been cancelled.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	mode := l.modeFor(event.Category)
	if mode == ModeOff {
		return
	}
	if mode == ModeAll || mode == ModeLog {
		l.logToZap(event)
	}
	if mode == ModeAll || mode == ModeDB {
		wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := l.store.Log(wctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

func newEvent(r *http.Request, category, eventType string, success bool) audit.Event {
	return audit.Event{
		Timestamp: time.Now().UTC(),
		Category:  category,
		EventType: eventType,
		IP:        ratelimit.ClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   success,
	}
}

func ptr(id primitive.ObjectID) *primitive.ObjectID { return &id }

// --- Authentication Events ---

// LoginSuccess logs a successful login.
func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, userID primitive.ObjectID, identifier string) {
	e := newEvent(r, audit.CategoryAuth, audit.EventLoginSuccess, true)
	e.UserID = ptr(userID)
	e.Details = map[string]string{"identifier": identifier}
	l.Log(ctx, e)
}

// LoginFailed logs a rejected login. userID is nil when the identifier
// matched no account.
func (l *Logger) LoginFailed(ctx context.Context, r *http.Request, userID *primitive.ObjectID, identifier, reason string) {
	e := newEvent(r, audit.CategoryAuth, audit.EventLoginFailed, false)
	e.UserID = userID
	e.FailureReason = reason
	e.Details = map[string]string{"identifier": identifier}
	l.Log(ctx, e)
}

// LoginRateLimited logs a login refused by the rate limiter.
func (l *Logger) LoginRateLimited(ctx context.Context, r *http.Request, identifier string) {
	e := newEvent(r, audit.CategoryAuth, audit.EventLoginRateLimited, false)
	e.FailureReason = "rate limited"
	e.Details = map[string]string{"identifier": identifier}
	l.Log(ctx, e)
}

// Logout logs a logout. userID is nil for an anonymous caller.
func (l *Logger) Logout(ctx context.Context, r *http.Request, userID *primitive.ObjectID) {
	e := newEvent(r, audit.CategoryAuth, audit.EventLogout, true)
	e.UserID = userID
	l.Log(ctx, e)
}

// --- Account Events ---

// UserRegistered logs a new account.
func (l *Logger) UserRegistered(ctx context.Context, r *http.Request, userID primitive.ObjectID, username string) {
	e := newEvent(r, audit.CategoryAccount, audit.EventUserRegistered, true)
	e.UserID = ptr(userID)
	e.Details = map[string]string{"username": username}
	l.Log(ctx, e)
}

// PasswordChanged logs a password change.
func (l *Logger) PasswordChanged(ctx context.Context, r *http.Request, userID primitive.ObjectID) {
	e := newEvent(r, audit.CategoryAccount, audit.EventPasswordChanged, true)
	e.UserID = ptr(userID)
	l.Log(ctx, e)
}

// AccountDeleted logs a self-service account deletion.
func (l *Logger) AccountDeleted(ctx context.Context, r *http.Request, userID primitive.ObjectID) {
	e := newEvent(r, audit.CategoryAccount, audit.EventAccountDeleted, true)
	e.UserID = ptr(userID)
	l.Log(ctx, e)
}

// --- Moderation Events ---

// GroupCreated logs a new group and its admin.
func (l *Logger) GroupCreated(ctx context.Context, r *http.Request, actorID, groupID primitive.ObjectID, name string, private bool) {
	e := newEvent(r, audit.CategoryModeration, audit.EventGroupCreated, true)
	e.ActorID = ptr(actorID)
	e.GroupID = ptr(groupID)
	e.Details = map[string]string{"name": name, "private": boolToString(private)}
	l.Log(ctx, e)
}

// GroupDeleted logs the deletion of a group by its admin.
func (l *Logger) GroupDeleted(ctx context.Context, r *http.Request, actorID, groupID primitive.ObjectID) {
	e := newEvent(r, audit.CategoryModeration, audit.EventGroupDeleted, true)
	e.ActorID = ptr(actorID)
	e.GroupID = ptr(groupID)
	l.Log(ctx, e)
}

// MemberApproved logs an admin approving a join request.
func (l *Logger) MemberApproved(ctx context.Context, r *http.Request, actorID, targetID, groupID primitive.ObjectID) {
	l.membership(ctx, r, audit.EventMemberApproved, actorID, targetID, groupID)
}

// MemberRejected logs an admin rejecting a join request.
func (l *Logger) MemberRejected(ctx context.Context, r *http.Request, actorID, targetID, groupID primitive.ObjectID) {
	l.membership(ctx, r, audit.EventMemberRejected, actorID, targetID, groupID)
}

// MemberRemoved logs an admin removing a member.
func (l *Logger) MemberRemoved(ctx context.Context, r *http.Request, actorID, targetID, groupID primitive.ObjectID) {
	l.membership(ctx, r, audit.EventMemberRemoved, actorID, targetID, groupID)
}

func (l *Logger) membership(ctx context.Context, r *http.Request, eventType string, actorID, targetID, groupID primitive.ObjectID) {
	e := newEvent(r, audit.CategoryModeration, eventType, true)
	e.ActorID = ptr(actorID)
	e.UserID = ptr(targetID)
	e.GroupID = ptr(groupID)
	l.Log(ctx, e)
}

// PostRemovedByModerator logs a group admin deleting another user's post.
func (l *Logger) PostRemovedByModerator(ctx context.Context, r *http.Request, actorID, authorID, groupID, postID primitive.ObjectID) {
	e := newEvent(r, audit.CategoryModeration, audit.EventPostRemovedByMod, true)
	e.ActorID = ptr(actorID)
	e.UserID = ptr(authorID)
	e.GroupID = ptr(groupID)
	e.Details = map[string]string{"post_id": postID.Hex()}
	l.Log(ctx, e)
}

func boolToString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
