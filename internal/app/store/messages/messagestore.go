// internal/app/store/messages/messagestore.go
package messagestore

import (
	"context"
	"time"

	"github.com/hearthsocial/hearth/internal/app/system/paging"
	"github.com/hearthsocial/hearth/internal/app/system/roomid"
	"github.com/hearthsocial/hearth/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("messages")}
}

// Create stores a message from sender to receiver in their shared room.
func (s *Store) Create(ctx context.Context, sender, receiver primitive.ObjectID, content string) (models.Message, error) {
	m := models.Message{
		ID:        primitive.NewObjectID(),
		Sender:    sender,
		Receiver:  receiver,
		Content:   content,
		RoomID:    roomid.For(sender, receiver),
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	if _, err := s.c.InsertOne(ctx, m); err != nil {
		return models.Message{}, err
	}
	return m, nil
}

// Conversation returns one page of the room's history. Rows are selected
// newest first and returned oldest first, ready for display.
func (s *Store) Conversation(ctx context.Context, room string, page paging.Page) ([]models.Message, bool, error) {
	filter := bson.M{"room_id": room}
	if w := page.Window("created_at"); w != nil {
		filter = bson.M{"$and": []bson.M{filter, w}}
	}
	cur, err := s.c.Find(ctx, filter, page.FindOptions("created_at"))
	if err != nil {
		return nil, false, err
	}
	defer cur.Close(ctx)

	rows := []models.Message{}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, false, err
	}
	hasMore := paging.Trim(&rows, page.Limit)
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return rows, hasMore, nil
}

// MarkRead flags every unread message addressed to receiver in room as read
// and returns how many changed.
func (s *Store) MarkRead(ctx context.Context, room string, receiver primitive.ObjectID) (int64, error) {
	res, err := s.c.UpdateMany(ctx,
		bson.M{"room_id": room, "receiver": receiver, "is_read": false},
		bson.M{"$set": bson.M{"is_read": true}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// UnreadCount returns the number of unread messages addressed to userID.
func (s *Store) UnreadCount(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"receiver": userID, "is_read": false})
}

// Summary is one inbox row: a room with its latest message.
type Summary struct {
	RoomID      string             `bson:"_id" json:"room_id"`
	LastMessage models.Message     `bson:"last" json:"last_message"`
	Unread      int64              `bson:"unread" json:"unread"`
	Peer        primitive.ObjectID `bson:"-" json:"peer"`
}

// Conversations returns the latest message and unread count of every room
// userID takes part in, most recently active first.
func (s *Store) Conversations(ctx context.Context, userID primitive.ObjectID) ([]Summary, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"$or": []bson.M{{"sender": userID}, {"receiver": userID}}}}},
		{{Key: "$sort", Value: bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}}},
		{{Key: "$group", Value: bson.M{
			"_id":  "$room_id",
			"last": bson.M{"$first": "$$ROOT"},
			"unread": bson.M{"$sum": bson.M{"$cond": bson.A{
				bson.M{"$and": bson.A{
					bson.M{"$eq": bson.A{"$receiver", userID}},
					bson.M{"$eq": bson.A{"$is_read", false}},
				}},
				1, 0,
			}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "last.created_at", Value: -1}, {Key: "last._id", Value: -1}}}},
	}
	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []Summary{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	for i := range out {
		if peer, err := roomid.Peer(out[i].RoomID, userID); err == nil {
			out[i].Peer = peer
		}
	}
	return out, nil
}

// DeleteByUser removes every message userID sent or received.
func (s *Store) DeleteByUser(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"$or": []bson.M{{"sender": userID}, {"receiver": userID}}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// Count returns the number of messages.
func (s *Store) Count(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{})
}
