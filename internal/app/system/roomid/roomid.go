// Package roomid derives the conversation key shared by two users.
package roomid

import (
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrMalformed is returned when a room id does not hold two ObjectIDs.
var ErrMalformed = errors.New("malformed room id")

const sep = "_"

// For returns the room id for a and b: both hex ids sorted
// lexicographically and joined with "_". For(a, b) == For(b, a).
func For(a, b primitive.ObjectID) string {
	x, y := a.Hex(), b.Hex()
	if y < x {
		x, y = y, x
	}
	return x + sep + y
}

// Participants splits a room id back into its two user ids.
func Participants(room string) (primitive.ObjectID, primitive.ObjectID, error) {
	parts := strings.Split(room, sep)
	if len(parts) != 2 {
		return primitive.NilObjectID, primitive.NilObjectID, ErrMalformed
	}
	a, err := primitive.ObjectIDFromHex(parts[0])
	if err != nil {
		return primitive.NilObjectID, primitive.NilObjectID, ErrMalformed
	}
	b, err := primitive.ObjectIDFromHex(parts[1])
	if err != nil {
		return primitive.NilObjectID, primitive.NilObjectID, ErrMalformed
	}
	return a, b, nil
}

// Peer returns the participant of room that is not self.
func Peer(room string, self primitive.ObjectID) (primitive.ObjectID, error) {
	a, b, err := Participants(room)
	if err != nil {
		return primitive.NilObjectID, err
	}
	switch self {
	case a:
		return b, nil
	case b:
		return a, nil
	}
	return primitive.NilObjectID, ErrMalformed
}
