// internal/app/features/stats/admin.go
package stats

import (
	"context"
	"net/http"
	"time"

	"github.com/dalemusser/waffle/pantry/query"
	statsstore "github.com/hearthsocial/hearth/internal/app/store/stats"
	"github.com/hearthsocial/hearth/internal/app/system/respond"
	"github.com/hearthsocial/hearth/internal/app/system/timeouts"
)

// ServeOverview handles GET /stats/overview.
func (h *Handler) ServeOverview(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	respond.OK(w, statsstore.FetchOverview(ctx, h.DB))
}

// ServePostsPerDay handles GET /stats/posts-per-day?days=N.
func (h *Handler) ServePostsPerDay(w http.ResponseWriter, r *http.Request) {
	days, err := boundedInt(query.Get(r, "days"), "days", DefaultDays, MaxDays)
	if err != nil {
		h.ErrLog.Write(w, r, "stats.posts_per_day", err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	rows, err := statsstore.PostsPerDay(ctx, h.DB, days, time.Now())
	if err != nil {
		h.ErrLog.Write(w, r, "stats.posts_per_day", err)
		return
	}
	respond.OK(w, map[string]any{"days": rows})
}

// ServeTopGroups handles GET /stats/top-groups?limit=N.
func (h *Handler) ServeTopGroups(w http.ResponseWriter, r *http.Request) {
	limit, err := boundedInt(query.Get(r, "limit"), "limit", DefaultLimit, MaxLimit)
	if err != nil {
		h.ErrLog.Write(w, r, "stats.top_groups", err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	rows, err := statsstore.TopGroups(ctx, h.DB, limit)
	if err != nil {
		h.ErrLog.Write(w, r, "stats.top_groups", err)
		return
	}
	respond.OK(w, map[string]any{"groups": rows})
}
