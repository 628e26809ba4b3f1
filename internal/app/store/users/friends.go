package userstore

import (
	"context"
	"time"

	"github.com/hearthsocial/hearth/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Friend graph and denormalized group set.
//
// Every write here is a single-document conditional update so concurrent
// requests cannot push duplicate inbox entries. Mutual friendship spans two
// documents and is written as two $addToSet calls, which are idempotent.

// AddFriendRequest appends requester to target's inbox unless they are
// already friends or a request from requester is already queued. It returns
// ErrNoChange when the precondition fails.
func (s *Store) AddFriendRequest(ctx context.Context, target, requester primitive.ObjectID) error {
	filter := bson.M{
		"_id":                       target,
		"friends":                   bson.M{"$ne": requester},
		"friend_requests.requester": bson.M{"$ne": requester},
	}
	update := bson.M{"$push": bson.M{"friend_requests": models.FriendRequest{
		Requester: requester,
		SentAt:    time.Now().UTC(),
	}}}
	res, err := s.c.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNoChange
	}
	return nil
}

// RemoveFriendRequest pulls requester's entry from target's inbox. It returns
// ErrNoChange when there was no such entry, so two concurrent accept/reject
// calls see exactly one success.
func (s *Store) RemoveFriendRequest(ctx context.Context, target, requester primitive.ObjectID) error {
	filter := bson.M{"_id": target, "friend_requests.requester": requester}
	update := bson.M{"$pull": bson.M{"friend_requests": bson.M{"requester": requester}}}
	res, err := s.c.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.ModifiedCount == 0 {
		return ErrNoChange
	}
	return nil
}

// AddFriendship records a and b as friends of each other.
func (s *Store) AddFriendship(ctx context.Context, a, b primitive.ObjectID) error {
	now := time.Now().UTC()
	if _, err := s.c.UpdateByID(ctx, a, bson.M{
		"$addToSet": bson.M{"friends": b},
		"$set":      bson.M{"updated_at": now},
	}); err != nil {
		return err
	}
	_, err := s.c.UpdateByID(ctx, b, bson.M{
		"$addToSet": bson.M{"friends": a},
		"$set":      bson.M{"updated_at": now},
	})
	return err
}

// RemoveFriendship removes a and b from each other's friend sets. It returns
// ErrNoChange when a did not list b as a friend.
func (s *Store) RemoveFriendship(ctx context.Context, a, b primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": a, "friends": b}, bson.M{"$pull": bson.M{"friends": b}})
	if err != nil {
		return err
	}
	if _, err := s.c.UpdateOne(ctx, bson.M{"_id": b}, bson.M{"$pull": bson.M{"friends": a}}); err != nil {
		return err
	}
	if res.ModifiedCount == 0 {
		return ErrNoChange
	}
	return nil
}

// ForgetUser removes id from every other user's friend set and inbox.
func (s *Store) ForgetUser(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.UpdateMany(ctx,
		bson.M{"$or": []bson.M{{"friends": id}, {"friend_requests.requester": id}}},
		bson.M{"$pull": bson.M{
			"friends":         id,
			"friend_requests": bson.M{"requester": id},
		}})
	return err
}

// AddGroup adds groupID to the user's groups set.
func (s *Store) AddGroup(ctx context.Context, userID, groupID primitive.ObjectID) error {
	_, err := s.c.UpdateByID(ctx, userID, bson.M{"$addToSet": bson.M{"groups": groupID}})
	return err
}

// RemoveGroup removes groupID from the user's groups set.
func (s *Store) RemoveGroup(ctx context.Context, userID, groupID primitive.ObjectID) error {
	_, err := s.c.UpdateByID(ctx, userID, bson.M{"$pull": bson.M{"groups": groupID}})
	return err
}

// RemoveGroupFromAll removes groupID from every user's groups set and
// returns how many users were touched.
func (s *Store) RemoveGroupFromAll(ctx context.Context, groupID primitive.ObjectID) (int64, error) {
	res, err := s.c.UpdateMany(ctx, bson.M{"groups": groupID}, bson.M{"$pull": bson.M{"groups": groupID}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// SetGroups overwrites the user's groups set. Used to repair the
// denormalized copy from group_memberships.
func (s *Store) SetGroups(ctx context.Context, userID primitive.ObjectID, groups []primitive.ObjectID) error {
	if groups == nil {
		groups = []primitive.ObjectID{}
	}
	res, err := s.c.UpdateByID(ctx, userID, bson.M{"$set": bson.M{"groups": groups}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
