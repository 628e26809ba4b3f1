// internal/app/store/posts/poststore.go
package poststore

import (
	"context"
	"errors"
	"time"

	"github.com/hearthsocial/hearth/internal/app/system/paging"
	"github.com/hearthsocial/hearth/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("posts")}
}

var (
	// ErrNotFound is returned when no post matches.
	ErrNotFound = errors.New("post not found")
	// ErrCommentNotFound is returned when the post has no comment with the id.
	ErrCommentNotFound = errors.New("comment not found")
)

// noGroup matches posts that are not scoped to a group.
var noGroup = bson.M{"group": nil}

// Create inserts p. Likes and comments start empty.
func (s *Store) Create(ctx context.Context, p models.Post) (models.Post, error) {
	p.ID = primitive.NewObjectID()
	if p.Media.Type == "" {
		p.Media.Type = models.MediaNone
	}
	p.Likes = []primitive.ObjectID{}
	p.Comments = []models.Comment{}
	p.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	p.EditedAt = nil
	if _, err := s.c.InsertOne(ctx, p); err != nil {
		return models.Post{}, err
	}
	return p, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Post, error) {
	var p models.Post
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Post{}, ErrNotFound
		}
		return models.Post{}, err
	}
	return p, nil
}

func (s *Store) findOneAndUpdate(ctx context.Context, filter, update bson.M, notFound error) (models.Post, error) {
	var p models.Post
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err := s.c.FindOneAndUpdate(ctx, filter, update, opts).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Post{}, notFound
		}
		return models.Post{}, err
	}
	return p, nil
}

// UpdateText replaces the post body and stamps edited_at.
func (s *Store) UpdateText(ctx context.Context, id primitive.ObjectID, text string) (models.Post, error) {
	return s.findOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"text":      text,
		"edited_at": time.Now().UTC(),
	}}, ErrNotFound)
}

// Delete removes a post. Returns the number of documents deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// ToggleLike adds userID to the like set, or removes it when already present,
// and returns the updated post. Each branch is conditional on the current
// membership of the set so a double click cannot double count.
func (s *Store) ToggleLike(ctx context.Context, postID, userID primitive.ObjectID) (models.Post, bool, error) {
	p, err := s.findOneAndUpdate(ctx,
		bson.M{"_id": postID, "likes": bson.M{"$ne": userID}},
		bson.M{"$addToSet": bson.M{"likes": userID}}, ErrNotFound)
	if err == nil {
		return p, true, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return models.Post{}, false, err
	}

	p, err = s.findOneAndUpdate(ctx,
		bson.M{"_id": postID, "likes": userID},
		bson.M{"$pull": bson.M{"likes": userID}}, ErrNotFound)
	if err != nil {
		return models.Post{}, false, err
	}
	return p, false, nil
}

// AddComment appends a comment and returns it.
func (s *Store) AddComment(ctx context.Context, postID, author primitive.ObjectID, text string) (models.Comment, error) {
	c := models.Comment{
		ID:        primitive.NewObjectID(),
		Author:    author,
		Text:      text,
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	res, err := s.c.UpdateByID(ctx, postID, bson.M{"$push": bson.M{"comments": c}})
	if err != nil {
		return models.Comment{}, err
	}
	if res.MatchedCount == 0 {
		return models.Comment{}, ErrNotFound
	}
	return c, nil
}

// UpdateComment replaces a comment's text and stamps its edited_at.
func (s *Store) UpdateComment(ctx context.Context, postID, commentID primitive.ObjectID, text string) (models.Comment, error) {
	p, err := s.findOneAndUpdate(ctx,
		bson.M{"_id": postID, "comments._id": commentID},
		bson.M{"$set": bson.M{
			"comments.$.text":      text,
			"comments.$.edited_at": time.Now().UTC(),
		}}, ErrCommentNotFound)
	if err != nil {
		return models.Comment{}, err
	}
	c := p.FindComment(commentID)
	if c == nil {
		return models.Comment{}, ErrCommentNotFound
	}
	return *c, nil
}

// DeleteComment removes a comment from its post.
func (s *Store) DeleteComment(ctx context.Context, postID, commentID primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": postID, "comments._id": commentID},
		bson.M{"$pull": bson.M{"comments": bson.M{"_id": commentID}}})
	if err != nil {
		return err
	}
	if res.ModifiedCount == 0 {
		return ErrCommentNotFound
	}
	return nil
}

func (s *Store) page(ctx context.Context, filter bson.M, page paging.Page) ([]models.Post, bool, error) {
	if w := page.Window("created_at"); w != nil {
		filter = bson.M{"$and": []bson.M{filter, w}}
	}
	cur, err := s.c.Find(ctx, filter, page.FindOptions("created_at"))
	if err != nil {
		return nil, false, err
	}
	defer cur.Close(ctx)

	rows := []models.Post{}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, false, err
	}
	hasMore := paging.Trim(&rows, page.Limit)
	return rows, hasMore, nil
}

// FeedQuery names the sources a feed is assembled from.
type FeedQuery struct {
	Self    primitive.ObjectID
	Friends []primitive.ObjectID
	// Groups are the groups whose posts are candidates: the caller's own
	// groups plus every public group.
	Groups []primitive.ObjectID
}

// Feed returns one newest-first page of candidate feed posts. Group posts
// still need a visibility re-check by the caller.
func (s *Store) Feed(ctx context.Context, q FeedQuery, page paging.Page) ([]models.Post, bool, error) {
	or := []bson.M{{"author": q.Self}}
	if len(q.Friends) > 0 {
		or = append(or, bson.M{"author": bson.M{"$in": q.Friends}, "group": nil})
	}
	if len(q.Groups) > 0 {
		or = append(or, bson.M{"group": bson.M{"$in": q.Groups}})
	}
	return s.page(ctx, bson.M{"$or": or}, page)
}

// ByGroup returns one newest-first page of the group's posts.
func (s *Store) ByGroup(ctx context.Context, groupID primitive.ObjectID, page paging.Page) ([]models.Post, bool, error) {
	return s.page(ctx, bson.M{"group": groupID}, page)
}

// ByAuthor returns the author's non-group posts plus their posts in groups.
func (s *Store) ByAuthor(ctx context.Context, author primitive.ObjectID, groups []primitive.ObjectID, page paging.Page) ([]models.Post, bool, error) {
	or := []bson.M{noGroup}
	if len(groups) > 0 {
		or = append(or, bson.M{"group": bson.M{"$in": groups}})
	}
	return s.page(ctx, bson.M{"author": author, "$or": or}, page)
}

// DeleteByGroup removes every post in the group.
func (s *Store) DeleteByGroup(ctx context.Context, groupID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"group": groupID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteByAuthor removes every post written by author.
func (s *Store) DeleteByAuthor(ctx context.Context, author primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"author": author})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// ForgetUser removes the user's likes and comments from other users' posts.
func (s *Store) ForgetUser(ctx context.Context, userID primitive.ObjectID) error {
	_, err := s.c.UpdateMany(ctx,
		bson.M{"$or": []bson.M{{"likes": userID}, {"comments.author": userID}}},
		bson.M{"$pull": bson.M{
			"likes":    userID,
			"comments": bson.M{"author": userID},
		}})
	return err
}

// Count returns the number of posts.
func (s *Store) Count(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{})
}
