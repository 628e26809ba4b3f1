package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hearthsocial/hearth/internal/app/system/metrics"
	"github.com/hearthsocial/hearth/internal/app/system/roomid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Hub owns the WebSocket connections of this instance and routes events to
// them, either directly or through a Bridge.
type Hub struct {
	reg      *Registry
	bridge   Bridge
	presence Presence
	metrics  *metrics.Metrics
	log      *zap.Logger
	upgrader websocket.Upgrader
}

// Options configures a Hub. Bridge and Presence are optional.
type Options struct {
	Bridge         Bridge
	Presence       Presence
	Metrics        *metrics.Metrics
	AllowedOrigins []string
}

// NewHub builds a hub. When opts.Bridge is set the hub subscribes to it and
// delivers every bridged event to local connections.
func NewHub(opts Options, logger *zap.Logger) (*Hub, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Hub{
		reg:     NewRegistry(),
		bridge:  opts.Bridge,
		metrics: opts.Metrics,
		log:     logger,
	}
	h.presence = opts.Presence
	if h.presence == nil {
		h.presence = NewLocalPresence(h.reg)
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(opts.AllowedOrigins),
	}
	if h.bridge != nil {
		if err := h.bridge.Subscribe(h.deliverBridged); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// originChecker allows any origin when allowed is empty or contains "*".
func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	if len(set) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// Registry exposes the local connection registry.
func (h *Hub) Registry() *Registry { return h.reg }

/*─────────────────────────────────────────────────────────────────────────────*
| Connections                                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

// Serve upgrades the request and runs the connection until it closes. The
// caller has already authenticated userID.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID primitive.ObjectID) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an error response.
		h.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	c := newConn(ws, userID.Hex())
	h.attach(c)
	h.metrics.ConnectionOpened()

	go c.writeLoop()
	c.readLoop(h.handleInbound)

	c.close()
	h.detach(c)
	h.metrics.ConnectionClosed()
}

func (h *Hub) attach(c sender) {
	if h.reg.Add(c) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := h.presence.MarkOnline(ctx, c.UserID()); err != nil {
			h.log.Warn("mark online failed", zap.String("user_id", c.UserID()), zap.Error(err))
		}
	}
}

func (h *Hub) detach(c sender) {
	if h.reg.Remove(c) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := h.presence.MarkOffline(ctx, c.UserID()); err != nil {
			h.log.Warn("mark offline failed", zap.String("user_id", c.UserID()), zap.Error(err))
		}
	}
}

// inbound is what clients may send.
type inbound struct {
	Type string `json:"type"`
	To   string `json:"to,omitempty"`
}

// typingData is relayed to the peer of a typing notice.
type typingData struct {
	From string `json:"from"`
}

func (h *Hub) handleInbound(c *Conn, data []byte) {
	h.handleFrame(c, data)
}

func (h *Hub) handleFrame(c sender, data []byte) {
	var in inbound
	if err := json.Unmarshal(data, &in); err != nil {
		h.replyError(c, "malformed event")
		return
	}
	switch in.Type {
	case "ping":
		h.sendTo(c, Event{Type: EventPong})
	case EventTyping:
		to, err := primitive.ObjectIDFromHex(in.To)
		if err != nil || in.To == c.UserID() {
			h.replyError(c, "invalid typing target")
			return
		}
		evt, _ := NewEvent(EventTyping, typingData{From: c.UserID()})
		h.SendUser(to, evt)
	default:
		h.replyError(c, "unknown event type")
	}
}

func (h *Hub) replyError(c sender, msg string) {
	evt, _ := NewEvent(EventError, map[string]string{"message": msg})
	h.sendTo(c, evt)
}

func (h *Hub) sendTo(c sender, evt Event) {
	data, err := evt.encode()
	if err != nil {
		return
	}
	if !c.TrySend(data) {
		h.metrics.EventDropped()
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Publishing                                                                   |
*─────────────────────────────────────────────────────────────────────────────*/

// PublishRoom delivers evt to both participants of a direct-message room.
func (h *Hub) PublishRoom(room string, evt Event) error {
	a, b, err := roomid.Participants(room)
	if err != nil {
		return err
	}
	data, err := evt.encode()
	if err != nil {
		return err
	}
	if h.bridge != nil {
		err := h.bridge.Publish(RoomSubject(room), data)
		if err == nil {
			return nil
		}
		h.log.Warn("bridge publish failed; delivering locally", zap.String("room", room), zap.Error(err))
	}
	h.deliver(a.Hex(), data)
	if b != a {
		h.deliver(b.Hex(), data)
	}
	return nil
}

// SendUser delivers evt to every connection of userID.
func (h *Hub) SendUser(userID primitive.ObjectID, evt Event) {
	data, err := evt.encode()
	if err != nil {
		h.log.Warn("encode event failed", zap.String("type", evt.Type), zap.Error(err))
		return
	}
	if h.bridge != nil {
		err := h.bridge.Publish(UserSubject(userID.Hex()), data)
		if err == nil {
			return
		}
		h.log.Warn("bridge publish failed; delivering locally", zap.String("user_id", userID.Hex()), zap.Error(err))
	}
	h.deliver(userID.Hex(), data)
}

// NotifyUser sends a typed event with payload to userID.
func (h *Hub) NotifyUser(userID primitive.ObjectID, event string, payload any) {
	evt, err := NewEvent(event, payload)
	if err != nil {
		h.log.Warn("encode event failed", zap.String("type", event), zap.Error(err))
		return
	}
	h.SendUser(userID, evt)
}

// deliverBridged handles an event received from the bridge.
func (h *Hub) deliverBridged(subject string, data []byte) {
	kind, id, ok := splitSubject(subject)
	if !ok {
		return
	}
	switch kind {
	case "room":
		a, b, err := roomid.Participants(id)
		if err != nil {
			h.log.Debug("bridged event for bad room", zap.String("subject", subject))
			return
		}
		h.deliver(a.Hex(), data)
		if b != a {
			h.deliver(b.Hex(), data)
		}
	case "user":
		h.deliver(id, data)
	}
}

func (h *Hub) deliver(userID string, data []byte) {
	_, dropped := h.reg.Send(userID, data)
	for i := 0; i < dropped; i++ {
		h.metrics.EventDropped()
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Presence                                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

// RefreshPresence extends the online marks of every locally connected user.
func (h *Hub) RefreshPresence(ctx context.Context) error {
	return h.presence.Refresh(ctx, h.reg.Users())
}

// OnlineAmong returns the subset of ids that are connected anywhere.
func (h *Hub) OnlineAmong(ctx context.Context, ids []primitive.ObjectID) ([]primitive.ObjectID, error) {
	hexes := make([]string, len(ids))
	for i, id := range ids {
		hexes[i] = id.Hex()
	}
	online, err := h.presence.Online(ctx, hexes)
	if err != nil {
		return nil, err
	}
	out := make([]primitive.ObjectID, 0, len(online))
	for _, s := range online {
		if oid, err := primitive.ObjectIDFromHex(s); err == nil {
			out = append(out, oid)
		}
	}
	return out, nil
}

// Close releases the bridge.
func (h *Hub) Close() {
	if h.bridge != nil {
		h.bridge.Close()
	}
}
