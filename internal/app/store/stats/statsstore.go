package statsstore

import (
	"context"
	"time"

	"github.com/hearthsocial/hearth/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Counts is the set of site totals served by the overview endpoint.
type Counts struct {
	Users    int64 `json:"users"`
	Groups   int64 `json:"groups"`
	Posts    int64 `json:"posts"`
	Messages int64 `json:"messages"`
}

// FetchOverview returns the site totals.
// Intentionally tolerant: on error it returns 0 for that counter.
func FetchOverview(ctx context.Context, db *mongo.Database) Counts {
	var out Counts
	count := func(coll string, dst *int64) {
		if n, err := db.Collection(coll).EstimatedDocumentCount(ctx); err == nil {
			*dst = n
		}
	}
	count("users", &out.Users)
	count("groups", &out.Groups)
	count("posts", &out.Posts)
	count("messages", &out.Messages)
	return out
}

// DayCount is the number of posts created on one UTC day.
type DayCount struct {
	Date  string `bson:"_id" json:"date"` // YYYY-MM-DD
	Posts int64  `bson:"posts" json:"posts"`
}

// PostsPerDay returns one row per UTC day for the days ending at now,
// oldest first. Days without posts are included with a zero count.
func PostsPerDay(ctx context.Context, db *mongo.Database, days int, now time.Time) ([]DayCount, error) {
	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	start := today.AddDate(0, 0, -(days - 1))

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"created_at": bson.M{"$gte": start}}}},
		{{Key: "$group", Value: bson.M{
			"_id":   bson.M{"$dateToString": bson.M{"format": "%Y-%m-%d", "date": "$created_at"}},
			"posts": bson.M{"$sum": 1},
		}}},
	}
	cur, err := db.Collection("posts").Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var rows []DayCount
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	byDay := make(map[string]int64, len(rows))
	for _, r := range rows {
		byDay[r.Date] = r.Posts
	}

	out := make([]DayCount, 0, days)
	for d := start; !d.After(today); d = d.AddDate(0, 0, 1) {
		key := d.Format("2006-01-02")
		out = append(out, DayCount{Date: key, Posts: byDay[key]})
	}
	return out, nil
}

// GroupCount is a group with its member count (admin included).
type GroupCount struct {
	GroupID primitive.ObjectID `bson:"_id" json:"group_id"`
	Name    string             `bson:"name" json:"name"`
	Members int64              `bson:"members" json:"members"`
}

// TopGroups returns the limit groups with the most members.
func TopGroups(ctx context.Context, db *mongo.Database, limit int) ([]GroupCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"state": models.StateMember}}},
		{{Key: "$group", Value: bson.M{"_id": "$group_id", "members": bson.M{"$sum": 1}}}},
		{{Key: "$sort", Value: bson.D{{Key: "members", Value: -1}, {Key: "_id", Value: 1}}}},
		{{Key: "$limit", Value: limit}},
		{{Key: "$lookup", Value: bson.M{
			"from":         "groups",
			"localField":   "_id",
			"foreignField": "_id",
			"as":           "group",
		}}},
		{{Key: "$unwind", Value: "$group"}},
		{{Key: "$project", Value: bson.M{"members": 1, "name": "$group.name"}}},
	}
	cur, err := db.Collection("group_memberships").Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []GroupCount{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UserCounts summarizes one user's activity.
type UserCounts struct {
	Posts         int64 `json:"posts"`
	LikesReceived int64 `json:"likes_received"`
	Comments      int64 `json:"comments"`
	Friends       int64 `json:"friends"`
	Groups        int64 `json:"groups"`
}

// FetchUserCounts returns activity totals for userID.
// Intentionally tolerant: on error it returns 0 for that counter.
func FetchUserCounts(ctx context.Context, db *mongo.Database, userID primitive.ObjectID) UserCounts {
	var out UserCounts
	posts := db.Collection("posts")

	if n, err := posts.CountDocuments(ctx, bson.M{"author": userID}); err == nil {
		out.Posts = n
	}
	out.LikesReceived = sumInt(ctx, posts, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"author": userID}}},
		{{Key: "$group", Value: bson.M{"_id": nil, "n": bson.M{"$sum": bson.M{"$size": "$likes"}}}}},
	})
	out.Comments = sumInt(ctx, posts, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"comments.author": userID}}},
		{{Key: "$unwind", Value: "$comments"}},
		{{Key: "$match", Value: bson.M{"comments.author": userID}}},
		{{Key: "$group", Value: bson.M{"_id": nil, "n": bson.M{"$sum": 1}}}},
	})
	if n, err := db.Collection("group_memberships").CountDocuments(ctx, bson.M{"user_id": userID, "state": models.StateMember}); err == nil {
		out.Groups = n
	}

	var u struct {
		Friends []primitive.ObjectID `bson:"friends"`
	}
	if err := db.Collection("users").FindOne(ctx, bson.M{"_id": userID}).Decode(&u); err == nil {
		out.Friends = int64(len(u.Friends))
	}
	return out
}

func sumInt(ctx context.Context, c *mongo.Collection, pipeline mongo.Pipeline) int64 {
	cur, err := c.Aggregate(ctx, pipeline)
	if err != nil {
		return 0
	}
	defer cur.Close(ctx)
	var row struct {
		N int64 `bson:"n"`
	}
	if cur.Next(ctx) && cur.Decode(&row) == nil {
		return row.N
	}
	return 0
}
