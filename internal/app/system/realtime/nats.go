package realtime

import (
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Subjects. A room subject carries events for both participants of a
// conversation; a user subject carries events for one user.
const (
	SubjectRoomPrefix = "hearth.rooms."
	SubjectUserPrefix = "hearth.users."
)

// RoomSubject returns the subject for room.
func RoomSubject(room string) string { return SubjectRoomPrefix + room }

// UserSubject returns the subject for userID.
func UserSubject(userID string) string { return SubjectUserPrefix + userID }

// Bridge fans events out across instances.
type Bridge interface {
	Publish(subject string, data []byte) error
	// Subscribe calls handle for every event published on room and user
	// subjects by any instance.
	Subscribe(handle func(subject string, data []byte)) error
	Close()
}

// NATSBridge is a Bridge over a NATS connection.
type NATSBridge struct {
	nc   *nats.Conn
	subs []*nats.Subscription
	log  *zap.Logger
}

// ConnectNATS dials url with reconnects enabled.
func ConnectNATS(url string, logger *zap.Logger) (*NATSBridge, error) {
	nc, err := nats.Connect(url,
		nats.Name("hearth"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, err
	}
	return &NATSBridge{nc: nc, log: logger}, nil
}

func (b *NATSBridge) Publish(subject string, data []byte) error {
	return b.nc.Publish(subject, data)
}

func (b *NATSBridge) Subscribe(handle func(subject string, data []byte)) error {
	for _, subject := range []string{SubjectRoomPrefix + "*", SubjectUserPrefix + "*"} {
		sub, err := b.nc.Subscribe(subject, func(msg *nats.Msg) {
			handle(msg.Subject, msg.Data)
		})
		if err != nil {
			return err
		}
		b.subs = append(b.subs, sub)
	}
	return nil
}

// Close drains subscriptions and closes the connection.
func (b *NATSBridge) Close() {
	for _, s := range b.subs {
		_ = s.Unsubscribe()
	}
	if err := b.nc.Drain(); err != nil {
		b.log.Warn("nats drain failed", zap.Error(err))
		b.nc.Close()
	}
}

// splitSubject returns the kind ("room" or "user") and the id of subject.
func splitSubject(subject string) (kind, id string, ok bool) {
	switch {
	case strings.HasPrefix(subject, SubjectRoomPrefix):
		return "room", strings.TrimPrefix(subject, SubjectRoomPrefix), true
	case strings.HasPrefix(subject, SubjectUserPrefix):
		return "user", strings.TrimPrefix(subject, SubjectUserPrefix), true
	}
	return "", "", false
}
