// internal/app/features/posts/handler.go
package posts

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/hearthsocial/hearth/internal/app/features/errors"
	"github.com/hearthsocial/hearth/internal/app/policy/grouppolicy"
	groupstore "github.com/hearthsocial/hearth/internal/app/store/groups"
	membershipstore "github.com/hearthsocial/hearth/internal/app/store/memberships"
	poststore "github.com/hearthsocial/hearth/internal/app/store/posts"
	userstore "github.com/hearthsocial/hearth/internal/app/store/users"
	"github.com/hearthsocial/hearth/internal/app/system/apperr"
	"github.com/hearthsocial/hearth/internal/app/system/auditlog"
	"github.com/hearthsocial/hearth/internal/app/system/authz"
	"github.com/hearthsocial/hearth/internal/app/system/respond"
	"github.com/hearthsocial/hearth/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves posts, likes, comments and the feeds.
type Handler struct {
	Posts       *poststore.Store
	Groups      *groupstore.Store
	Memberships *membershipstore.Store
	Users       *userstore.Store
	Audit       *auditlog.Logger
	ErrLog      *uierrors.ErrorLogger
	Log         *zap.Logger
}

func NewHandler(db *mongo.Database, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Posts:       poststore.New(db),
		Groups:      groupstore.New(db),
		Memberships: membershipstore.New(db),
		Users:       userstore.New(db),
		ErrLog:      errLog,
		Log:         logger,
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Access                                                                       |
*─────────────────────────────────────────────────────────────────────────────*/

// groupAccess loads a group and the caller's state in it.
func (h *Handler) groupAccess(ctx context.Context, groupID, caller primitive.ObjectID) (models.Group, string, error) {
	g, err := h.Groups.GetByID(ctx, groupID)
	if errors.Is(err, groupstore.ErrNotFound) {
		return models.Group{}, "", apperr.ErrGroupNotFound
	}
	if err != nil {
		return models.Group{}, "", err
	}
	m, err := h.Memberships.Get(ctx, groupID, caller)
	if err != nil && !errors.Is(err, membershipstore.ErrNotFound) {
		return models.Group{}, "", err
	}
	return g, grouppolicy.StateOf(g, caller, m), nil
}

// loadReadable loads a post the caller may read. For group posts it also
// returns the group's admin (NilObjectID otherwise) for delete checks.
func (h *Handler) loadReadable(ctx context.Context, postID, caller primitive.ObjectID) (models.Post, primitive.ObjectID, error) {
	return h.loadPost(ctx, postID, caller, nil)
}

// loadPost is loadReadable, except that when owned reports true for the
// post the group read check is skipped and the admin is left zero. Authors
// keep control of their own content after leaving a group.
func (h *Handler) loadPost(ctx context.Context, postID, caller primitive.ObjectID, owned func(models.Post) bool) (models.Post, primitive.ObjectID, error) {
	p, err := h.Posts.GetByID(ctx, postID)
	if errors.Is(err, poststore.ErrNotFound) {
		return models.Post{}, primitive.NilObjectID, apperr.ErrPostNotFound
	}
	if err != nil {
		return models.Post{}, primitive.NilObjectID, err
	}
	if p.Group == nil || (owned != nil && owned(p)) {
		return p, primitive.NilObjectID, nil
	}
	g, state, err := h.groupAccess(ctx, *p.Group, caller)
	if errors.Is(err, apperr.ErrGroupNotFound) {
		// Orphan left by an interrupted group delete.
		return models.Post{}, primitive.NilObjectID, apperr.ErrPostNotFound
	}
	if err != nil {
		return models.Post{}, primitive.NilObjectID, err
	}
	if !grouppolicy.CanReadPosts(g, state) {
		return models.Post{}, primitive.NilObjectID, apperr.ErrNotAuthorized
	}
	return p, g.Admin, nil
}

// readableGroups returns the groups whose posts the caller may see: the ones
// they belong to plus every public group.
func (h *Handler) readableGroups(ctx context.Context, caller primitive.ObjectID) ([]primitive.ObjectID, map[primitive.ObjectID]bool, error) {
	mine, err := h.Memberships.GroupIDsForUser(ctx, caller)
	if err != nil {
		return nil, nil, err
	}
	public, err := h.Groups.PublicIDs(ctx)
	if err != nil {
		return nil, nil, err
	}
	memberOf := make(map[primitive.ObjectID]bool, len(mine))
	seen := make(map[primitive.ObjectID]bool, len(mine)+len(public))
	ids := make([]primitive.ObjectID, 0, len(mine)+len(public))
	for _, id := range mine {
		memberOf[id] = true
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, id := range public {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids, memberOf, nil
}

// recheck drops group posts the caller may no longer see. Privacy is read
// again because a group can turn private between the query and now. Posts
// of groups that no longer exist are dropped too.
func (h *Handler) recheck(ctx context.Context, rows []models.Post, memberOf map[primitive.ObjectID]bool) ([]models.Post, error) {
	var gids []primitive.ObjectID
	for _, p := range rows {
		if p.Group != nil {
			gids = append(gids, *p.Group)
		}
	}
	if len(gids) == 0 {
		return rows, nil
	}
	privacy, err := h.Groups.PrivacyByID(ctx, gids)
	if err != nil {
		return nil, err
	}
	out := rows[:0:0]
	for _, p := range rows {
		if p.Group != nil {
			private, exists := privacy[*p.Group]
			if !exists || !grouppolicy.VisiblePost(*p.Group, private, memberOf) {
				continue
			}
		}
		out = append(out, p)
	}
	return out, nil
}

// target resolves the caller and the {id} path parameter. On failure it
// writes the response and returns ok=false.
func (h *Handler) target(w http.ResponseWriter, r *http.Request, op string) (caller, postID primitive.ObjectID, ok bool) {
	caller, ok = authz.UserID(r)
	if !ok {
		uierrors.Unauthenticated(w)
		return caller, postID, false
	}
	postID, err := respond.PathID(r, "id")
	if err != nil {
		h.ErrLog.Write(w, r, op, err)
		return caller, postID, false
	}
	return caller, postID, true
}
