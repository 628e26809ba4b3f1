// internal/app/features/groups/membership.go
package groups

import (
	"context"
	"net/http"

	"github.com/hearthsocial/hearth/internal/app/system/apperr"
	"github.com/hearthsocial/hearth/internal/app/system/respond"
	"github.com/hearthsocial/hearth/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

/*─────────────────────────────────────────────────────────────────────────────*
| Caller-initiated transitions                                               |
*─────────────────────────────────────────────────────────────────────────────*/

type joinResponse struct {
	Membership          models.GroupMembership `json:"membership"`
	InvitationCancelled bool                   `json:"invitation_cancelled"`
}

// HandleJoin handles POST /groups/{id}/join.
func (h *Handler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	t, ok := h.resolve(w, r)
	if !ok {
		return
	}
	defer t.cancel()

	res, err := h.Svc.RequestJoin(t.ctx, t.groupID, t.caller)
	if err != nil {
		h.ErrLog.Write(w, r, "groups.join", err)
		return
	}
	respond.OK(w, joinResponse{Membership: res.Membership, InvitationCancelled: res.InvitationCancelled})
}

type respondInput struct {
	Accept *bool `json:"accept"`
}

// HandleRespond handles PUT /groups/{id}/invitation {"accept": bool}.
func (h *Handler) HandleRespond(w http.ResponseWriter, r *http.Request) {
	t, ok := h.resolve(w, r)
	if !ok {
		return
	}
	defer t.cancel()

	var in respondInput
	if err := respond.Decode(r, &in); err != nil {
		h.ErrLog.Write(w, r, "groups.respond", err)
		return
	}
	if in.Accept == nil {
		h.ErrLog.Write(w, r, "groups.respond", apperr.Invalid("accept is required."))
		return
	}

	m, err := h.Svc.RespondToInvitation(t.ctx, t.groupID, t.caller, *in.Accept)
	if err != nil {
		h.ErrLog.Write(w, r, "groups.respond", err)
		return
	}
	respond.OK(w, map[string]any{"accepted": *in.Accept, "membership": m})
}

// HandleLeave handles DELETE /groups/{id}/leave.
func (h *Handler) HandleLeave(w http.ResponseWriter, r *http.Request) {
	t, ok := h.resolve(w, r)
	if !ok {
		return
	}
	defer t.cancel()

	if err := h.Svc.Leave(t.ctx, t.groupID, t.caller); err != nil {
		h.ErrLog.Write(w, r, "groups.leave", err)
		return
	}
	respond.NoContent(w)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Transitions on another user                                                |
*─────────────────────────────────────────────────────────────────────────────*/

type inviteResponse struct {
	Membership       models.GroupMembership `json:"membership"`
	RequestCancelled bool                   `json:"request_cancelled"`
}

// HandleInvite handles POST /groups/{id}/invite/{userID}.
func (h *Handler) HandleInvite(w http.ResponseWriter, r *http.Request) {
	t, ok := h.resolve(w, r)
	if !ok {
		return
	}
	defer t.cancel()

	userID, err := respond.PathID(r, "userID")
	if err != nil {
		h.ErrLog.Write(w, r, "groups.invite", err)
		return
	}
	res, err := h.Svc.Invite(t.ctx, t.groupID, t.caller, userID)
	if err != nil {
		h.ErrLog.Write(w, r, "groups.invite", err)
		return
	}
	respond.Created(w, inviteResponse{Membership: res.Membership, RequestCancelled: res.RequestCancelled})
}

// HandleApprove handles POST /groups/{id}/approve/{userID}.
func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	t, ok := h.resolve(w, r)
	if !ok {
		return
	}
	defer t.cancel()

	userID, err := respond.PathID(r, "userID")
	if err != nil {
		h.ErrLog.Write(w, r, "groups.approve", err)
		return
	}
	m, err := h.Svc.ApproveRequest(t.ctx, t.groupID, t.caller, userID)
	if err != nil {
		h.ErrLog.Write(w, r, "groups.approve", err)
		return
	}
	h.Audit.MemberApproved(t.ctx, r, t.caller, userID, t.groupID)
	respond.OK(w, map[string]any{"membership": m})
}

// HandleReject handles POST /groups/{id}/reject/{userID}.
func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	h.adminRemoval(w, r, "groups.reject", h.Svc.RejectRequest, h.Audit.MemberRejected)
}

// HandleRemoveMember handles DELETE /groups/{id}/members/{userID}.
func (h *Handler) HandleRemoveMember(w http.ResponseWriter, r *http.Request) {
	h.adminRemoval(w, r, "groups.remove_member", h.Svc.RemoveMember, h.Audit.MemberRemoved)
}

type removalFunc = func(ctx context.Context, groupID, callerID, targetID primitive.ObjectID) error

type removalAudit = func(ctx context.Context, r *http.Request, actorID, targetID, groupID primitive.ObjectID)

func (h *Handler) adminRemoval(w http.ResponseWriter, r *http.Request, op string, fn removalFunc, record removalAudit) {
	t, ok := h.resolve(w, r)
	if !ok {
		return
	}
	defer t.cancel()

	userID, err := respond.PathID(r, "userID")
	if err != nil {
		h.ErrLog.Write(w, r, op, err)
		return
	}
	if err := fn(t.ctx, t.groupID, t.caller, userID); err != nil {
		h.ErrLog.Write(w, r, op, err)
		return
	}
	record(t.ctx, r, t.caller, userID, t.groupID)
	respond.NoContent(w)
}
