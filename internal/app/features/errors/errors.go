// internal/app/features/errors/errors.go
package errors

import (
	"net/http"

	"github.com/hearthsocial/hearth/internal/app/system/apperr"
	"github.com/hearthsocial/hearth/internal/app/system/auth"
	"github.com/hearthsocial/hearth/internal/app/system/respond"
	"go.uber.org/zap"
)

// ErrorLogger writes error responses and logs the ones the caller cannot fix.
// Handlers share one instance built in bootstrap.
type ErrorLogger struct {
	Log *zap.Logger
}

// NewErrorLogger constructs an ErrorLogger.
func NewErrorLogger(logger *zap.Logger) *ErrorLogger {
	return &ErrorLogger{Log: logger}
}

// Write maps err onto an HTTP error response.
//
// Application errors (*apperr.Error) keep their Kind and message. Anything
// else is logged with the request path and user and answered with a generic
// 500 that carries no internal detail.
func (l *ErrorLogger) Write(w http.ResponseWriter, r *http.Request, op string, err error) {
	e := apperr.As(err)
	if e.Kind == apperr.KindServer {
		fields := []zap.Field{
			zap.String("op", op),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		}
		if u, ok := auth.CurrentUser(r); ok {
			fields = append(fields, zap.String("user_id", u.ID))
		}
		l.Log.Error("request failed", fields...)
		respond.Error(w, apperr.ErrServer)
		return
	}
	respond.Error(w, e)
}

// Unauthenticated answers 401 for requests without a signed-in user.
func Unauthenticated(w http.ResponseWriter) {
	respond.Error(w, apperr.ErrUnauthenticated)
}

// NotFound answers unknown routes in the JSON error shape.
func NotFound(w http.ResponseWriter, r *http.Request) {
	respond.Error(w, apperr.New(apperr.KindNotFound, "route_not_found", "No such endpoint."))
}

// MethodNotAllowed answers known routes called with the wrong verb.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusMethodNotAllowed, map[string]any{
		"error": map[string]string{"code": "method_not_allowed", "message": "Method not allowed."},
	})
}
