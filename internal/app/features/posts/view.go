// internal/app/features/posts/view.go
package posts

import (
	"context"
	"time"

	"github.com/hearthsocial/hearth/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// postView is a post as returned to clients.
type postView struct {
	models.Post
	AuthorUsername string        `json:"author_username"`
	LikeCount      int           `json:"like_count"`
	CommentCount   int           `json:"comment_count"`
	LikedByMe      bool          `json:"liked_by_me"`
	Comments       []commentView `json:"comments"`
}

type commentView struct {
	models.Comment
	AuthorUsername string `json:"author_username"`
}

// views decorates rows with author names and counters for caller.
// Authors that no longer exist are shown with an empty username.
func (h *Handler) views(ctx context.Context, caller primitive.ObjectID, rows []models.Post) ([]postView, error) {
	seen := map[primitive.ObjectID]bool{}
	var ids []primitive.ObjectID
	add := func(id primitive.ObjectID) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, p := range rows {
		add(p.Author)
		for _, c := range p.Comments {
			add(c.Author)
		}
	}
	names := make(map[primitive.ObjectID]string, len(ids))
	if len(ids) > 0 {
		users, err := h.Users.GetMany(ctx, ids)
		if err != nil {
			return nil, err
		}
		for _, u := range users {
			names[u.ID] = u.Username
		}
	}

	out := make([]postView, 0, len(rows))
	for _, p := range rows {
		v := postView{
			Post:           p,
			AuthorUsername: names[p.Author],
			LikeCount:      len(p.Likes),
			CommentCount:   len(p.Comments),
			LikedByMe:      p.LikedBy(caller),
			Comments:       make([]commentView, 0, len(p.Comments)),
		}
		for _, c := range p.Comments {
			v.Comments = append(v.Comments, commentView{Comment: c, AuthorUsername: names[c.Author]})
		}
		out = append(out, v)
	}
	return out, nil
}

func (h *Handler) view(ctx context.Context, caller primitive.ObjectID, p models.Post) (postView, error) {
	vs, err := h.views(ctx, caller, []models.Post{p})
	if err != nil {
		return postView{}, err
	}
	return vs[0], nil
}

// pageResponse is the shape of every post listing.
type pageResponse struct {
	Posts []postView `json:"posts"`
	// Next is the before cursor for the following page; empty on the last page.
	Next string `json:"next,omitempty"`
}

func sortKey(p models.Post) (time.Time, primitive.ObjectID) { return p.CreatedAt, p.ID }
