// internal/domain/models/post.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Media types a post can carry.
const (
	MediaNone  = "none"
	MediaImage = "image"
	MediaVideo = "video"
)

// Post is user-authored content, optionally scoped to a group.
type Post struct {
	ID        primitive.ObjectID   `bson:"_id" json:"id"`
	Author    primitive.ObjectID   `bson:"author" json:"author"`
	Group     *primitive.ObjectID  `bson:"group,omitempty" json:"group,omitempty"`
	Text      string               `bson:"text" json:"text"`
	Media     Media                `bson:"media" json:"media"`
	Likes     []primitive.ObjectID `bson:"likes" json:"likes"`
	Comments  []Comment            `bson:"comments" json:"comments"`
	CreatedAt time.Time            `bson:"created_at" json:"created_at"`
	EditedAt  *time.Time           `bson:"edited_at,omitempty" json:"edited_at,omitempty"`
}

// Media describes an attachment stored by the media backend.
type Media struct {
	Type string `bson:"type" json:"type"` // none | image | video
	URL  string `bson:"url,omitempty" json:"url,omitempty"`
}

// Comment is embedded in its parent Post, ordered by CreatedAt.
type Comment struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	Author    primitive.ObjectID `bson:"author" json:"author"`
	Text      string             `bson:"text" json:"text"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	EditedAt  *time.Time         `bson:"edited_at,omitempty" json:"edited_at,omitempty"`
}

// LikedBy reports whether id is in the post's like set.
func (p *Post) LikedBy(id primitive.ObjectID) bool {
	for _, l := range p.Likes {
		if l == id {
			return true
		}
	}
	return false
}

// FindComment returns the comment with the given id, or nil.
func (p *Post) FindComment(id primitive.ObjectID) *Comment {
	for i := range p.Comments {
		if p.Comments[i].ID == id {
			return &p.Comments[i]
		}
	}
	return nil
}
