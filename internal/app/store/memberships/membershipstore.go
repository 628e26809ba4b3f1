// internal/app/store/memberships/membershipstore.go
package membershipstore

import (
	"context"
	"errors"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/hearthsocial/hearth/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store persists one record per (user, group). Every state change is a
// compare-and-swap on the state field: the filter names the expected state,
// so of two concurrent transitions from the same state exactly one matches.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("group_memberships")}
}

var (
	// ErrNotFound is returned when the (user, group) pair has no record.
	ErrNotFound = errors.New("membership not found")
	// ErrDuplicate is returned when a record for the pair already exists.
	ErrDuplicate = errors.New("membership already exists")
	// ErrStateMismatch is returned when a conditional write found the record
	// missing or in a different state than expected.
	ErrStateMismatch = errors.New("membership is not in the expected state")

	errBadState = errors.New(`state must be "pending", "invited" or "member"`)
	errBadRole  = errors.New(`role must be "admin" or "member"`)
)

func validState(s string) bool {
	return s == models.StatePending || s == models.StateInvited || s == models.StateMember
}

// Get loads the record for (groupID, userID).
func (s *Store) Get(ctx context.Context, groupID, userID primitive.ObjectID) (*models.GroupMembership, error) {
	var m models.GroupMembership
	if err := s.c.FindOne(ctx, bson.M{"group_id": groupID, "user_id": userID}).Decode(&m); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

// Insert creates the record for a pair that currently has none.
func (s *Store) Insert(ctx context.Context, groupID, userID primitive.ObjectID, state, role string, invitedBy *primitive.ObjectID) (models.GroupMembership, error) {
	if !validState(state) {
		return models.GroupMembership{}, errBadState
	}
	if role != models.RoleAdmin && role != models.RoleMember {
		return models.GroupMembership{}, errBadRole
	}

	now := time.Now().UTC()
	m := models.GroupMembership{
		ID:        primitive.NewObjectID(),
		GroupID:   groupID,
		UserID:    userID,
		State:     state,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if state == models.StateInvited {
		m.InvitedBy = invitedBy
	}
	if _, err := s.c.InsertOne(ctx, m); err != nil {
		if wafflemongo.IsDup(err) {
			return models.GroupMembership{}, ErrDuplicate
		}
		return models.GroupMembership{}, err
	}
	return m, nil
}

// Transition moves a non-admin record from one state to another and returns
// the updated record. created_at is reset because it records when the
// current state was entered. invitedBy is stored only for the invited state.
func (s *Store) Transition(ctx context.Context, groupID, userID primitive.ObjectID, from, to string, invitedBy *primitive.ObjectID) (models.GroupMembership, error) {
	if !validState(from) || !validState(to) {
		return models.GroupMembership{}, errBadState
	}

	now := time.Now().UTC()
	update := bson.M{"$set": bson.M{"state": to, "created_at": now, "updated_at": now}}
	if to == models.StateInvited && invitedBy != nil {
		update["$set"].(bson.M)["invited_by"] = *invitedBy
	} else {
		update["$unset"] = bson.M{"invited_by": ""}
	}

	filter := bson.M{
		"group_id": groupID,
		"user_id":  userID,
		"state":    from,
		"role":     models.RoleMember,
	}
	var m models.GroupMembership
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err := s.c.FindOneAndUpdate(ctx, filter, update, opts).Decode(&m); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.GroupMembership{}, ErrStateMismatch
		}
		return models.GroupMembership{}, err
	}
	return m, nil
}

// DeleteInState removes a non-admin record only if it is in state.
func (s *Store) DeleteInState(ctx context.Context, groupID, userID primitive.ObjectID, state string) error {
	res, err := s.c.DeleteOne(ctx, bson.M{
		"group_id": groupID,
		"user_id":  userID,
		"state":    state,
		"role":     models.RoleMember,
	})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrStateMismatch
	}
	return nil
}

func (s *Store) list(ctx context.Context, filter bson.M) ([]models.GroupMembership, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.GroupMembership{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListByGroup returns the group's records in state, oldest first.
func (s *Store) ListByGroup(ctx context.Context, groupID primitive.ObjectID, state string) ([]models.GroupMembership, error) {
	return s.list(ctx, bson.M{"group_id": groupID, "state": state})
}

// ListAllByGroup returns every record of the group regardless of state.
func (s *Store) ListAllByGroup(ctx context.Context, groupID primitive.ObjectID) ([]models.GroupMembership, error) {
	return s.list(ctx, bson.M{"group_id": groupID})
}

// ListByUser returns the user's records in state, oldest first.
func (s *Store) ListByUser(ctx context.Context, userID primitive.ObjectID, state string) ([]models.GroupMembership, error) {
	return s.list(ctx, bson.M{"user_id": userID, "state": state})
}

// GroupIDsForUser returns the ids of groups where userID is a member.
func (s *Store) GroupIDsForUser(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error) {
	rows, err := s.ListByUser(ctx, userID, models.StateMember)
	if err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(rows))
	for _, m := range rows {
		ids = append(ids, m.GroupID)
	}
	return ids, nil
}

// StatesForUser maps each of groupIDs that has a record for userID to the
// record's state.
func (s *Store) StatesForUser(ctx context.Context, userID primitive.ObjectID, groupIDs []primitive.ObjectID) (map[primitive.ObjectID]string, error) {
	out := make(map[primitive.ObjectID]string, len(groupIDs))
	if len(groupIDs) == 0 {
		return out, nil
	}
	rows, err := s.list(ctx, bson.M{"user_id": userID, "group_id": bson.M{"$in": groupIDs}})
	if err != nil {
		return nil, err
	}
	for _, m := range rows {
		out[m.GroupID] = m.State
	}
	return out, nil
}

// CountByGroup returns the number of records of the group in state.
func (s *Store) CountByGroup(ctx context.Context, groupID primitive.ObjectID, state string) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"group_id": groupID, "state": state})
}

// DeleteByGroup removes every record of the group.
func (s *Store) DeleteByGroup(ctx context.Context, groupID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"group_id": groupID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteByUser removes every record of the user.
func (s *Store) DeleteByUser(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
