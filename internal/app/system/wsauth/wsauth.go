// internal/app/system/wsauth/wsauth.go
// Package wsauth issues and verifies the short-lived tickets used to open a
// WebSocket. Browsers cannot set an Authorization header on the upgrade
// request, so the client first trades its bearer token for a ticket and then
// passes the ticket as a query parameter.
package wsauth

import (
	"errors"
	"time"

	"github.com/gorilla/securecookie"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultTTL is how long a ticket stays valid.
const DefaultTTL = 30 * time.Second

const ticketName = "hearth_ws_ticket"

var ErrInvalidTicket = errors.New("invalid or expired websocket ticket")

type ticket struct {
	UserID string `json:"uid"`
}

// Signer signs and verifies tickets.
type Signer struct {
	codec *securecookie.SecureCookie
	ttl   time.Duration
}

// NewSigner derives a signer from key, which must be at least 32 bytes.
// A ttl <= 0 selects DefaultTTL.
func NewSigner(key []byte, ttl time.Duration) (*Signer, error) {
	if len(key) < 32 {
		return nil, errors.New("wsauth: key must be at least 32 bytes")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	codec := securecookie.New(key, nil)
	codec.MaxAge(int(ttl / time.Second))
	codec.SetSerializer(securecookie.JSONEncoder{})
	return &Signer{codec: codec, ttl: ttl}, nil
}

// TTL returns the ticket lifetime.
func (s *Signer) TTL() time.Duration { return s.ttl }

// Issue returns a ticket for userID and its expiry.
func (s *Signer) Issue(userID primitive.ObjectID) (string, time.Time, error) {
	v, err := s.codec.Encode(ticketName, ticket{UserID: userID.Hex()})
	if err != nil {
		return "", time.Time{}, err
	}
	return v, time.Now().Add(s.ttl), nil
}

// Verify returns the user a ticket was issued to.
func (s *Signer) Verify(value string) (primitive.ObjectID, error) {
	if value == "" {
		return primitive.NilObjectID, ErrInvalidTicket
	}
	var t ticket
	if err := s.codec.Decode(ticketName, value, &t); err != nil {
		return primitive.NilObjectID, ErrInvalidTicket
	}
	id, err := primitive.ObjectIDFromHex(t.UserID)
	if err != nil {
		return primitive.NilObjectID, ErrInvalidTicket
	}
	return id, nil
}
