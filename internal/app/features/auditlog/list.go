// internal/app/features/auditlog/list.go
package auditlog

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/dalemusser/waffle/pantry/query"
	"github.com/hearthsocial/hearth/internal/app/store/audit"
	"github.com/hearthsocial/hearth/internal/app/system/apperr"
	"github.com/hearthsocial/hearth/internal/app/system/respond"
	"github.com/hearthsocial/hearth/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type listResponse struct {
	Events []audit.Event `json:"events"`
	Total  int64         `json:"total"`
	Limit  int64         `json:"limit"`
	Offset int64         `json:"offset"`
}

// ServeList handles GET /audit.
//
// Filters: category, event_type, user, group (ObjectID hex), since and
// until (RFC 3339), limit and offset.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		h.ErrLog.Write(w, r, "audit.list", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	events, err := h.Events.Query(ctx, filter)
	if err != nil {
		h.ErrLog.Write(w, r, "audit.list", err)
		return
	}
	total, err := h.Events.CountByFilter(ctx, filter)
	if err != nil {
		h.ErrLog.Write(w, r, "audit.list", err)
		return
	}
	respond.OK(w, listResponse{Events: events, Total: total, Limit: filter.Limit, Offset: filter.Offset})
}

func parseFilter(r *http.Request) (audit.QueryFilter, error) {
	f := audit.QueryFilter{
		Category:  query.Get(r, "category"),
		EventType: query.Get(r, "event_type"),
		Limit:     DefaultLimit,
	}

	for _, p := range []struct {
		name string
		dst  **primitive.ObjectID
	}{{"user", &f.UserID}, {"group", &f.GroupID}} {
		if s := query.Get(r, p.name); s != "" {
			id, err := primitive.ObjectIDFromHex(s)
			if err != nil {
				return f, apperr.ErrBadID
			}
			*p.dst = &id
		}
	}

	for _, p := range []struct {
		name string
		dst  **time.Time
	}{{"since", &f.StartTime}, {"until", &f.EndTime}} {
		if s := query.Get(r, p.name); s != "" {
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				return f, apperr.Invalid(p.name + " must be an RFC 3339 time.")
			}
			*p.dst = &t
		}
	}

	if s := query.Get(r, "limit"); s != "" {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil || n < 1 {
			return f, apperr.Invalid("limit must be a positive integer.")
		}
		f.Limit = min(n, MaxLimit)
	}
	if s := query.Get(r, "offset"); s != "" {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil || n < 0 {
			return f, apperr.Invalid("offset must be zero or more.")
		}
		f.Offset = n
	}
	return f, nil
}
