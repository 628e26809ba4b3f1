// internal/app/features/realtime/ticket.go
package realtime

import (
	"net/http"
	"time"

	uierrors "github.com/hearthsocial/hearth/internal/app/features/errors"
	"github.com/hearthsocial/hearth/internal/app/system/authz"
	"github.com/hearthsocial/hearth/internal/app/system/respond"
)

type ticketResponse struct {
	Ticket    string    `json:"ticket"`
	ExpiresAt time.Time `json:"expires_at"`
}

// HandleTicket handles POST /realtime/ticket. Browsers cannot set headers on
// a WebSocket upgrade, so the client trades its bearer token for a ticket
// and passes it in the socket URL.
func (h *Handler) HandleTicket(w http.ResponseWriter, r *http.Request) {
	caller, ok := authz.UserID(r)
	if !ok {
		uierrors.Unauthenticated(w)
		return
	}
	ticket, exp, err := h.Tickets.Issue(caller)
	if err != nil {
		h.ErrLog.Write(w, r, "realtime.ticket", err)
		return
	}
	respond.OK(w, ticketResponse{Ticket: ticket, ExpiresAt: exp})
}
