package handlers

import (
	"errors"

	"github.com/chatd/chatd/internal/session"
	"github.com/chatd/chatd/internal/store/adapter/mysql"
	"github.com/chatd/chatd/internal/store/types"
	"github.com/chatd/chatd/internal/wire"
)

// HandleGroupSearch implements GROUP_SEARCH_REQ: name substring search over
// GROUP-type conversations, grounded on
// original_source/src/server/session/group.cpp.
func HandleGroupSearch(d *Deps) session.Handler {
	return func(s *session.Session, payload string) {
		var req wire.GroupSearchReq
		if !decode(s, "GROUP_SEARCH_RESP", payload, &req, d) {
			return
		}
		convs, err := d.Store.GroupSearch(req.Query)
		if err != nil {
			fail(s, "GROUP_SEARCH_RESP", wire.ErrServerErrorDB, "search failed", d.Logger)
			return
		}
		out := make([]wire.GroupSummary, 0, len(convs))
		for _, c := range convs {
			count, err := d.Store.MemberCount(c.ID)
			if err != nil {
				continue
			}
			out = append(out, wire.GroupSummary{
				ConversationID: wire.ID(c.ID),
				Name:           c.Name,
				MemberCount:    count,
			})
		}
		reply(s, "GROUP_SEARCH_RESP", wire.GroupSearchResp{Envelope: wire.OK(), Groups: out}, d.Logger)
	}
}

// HandleGroupJoin implements GROUP_JOIN_REQ: raise a pending join request
// unless the caller is already a member or already has one pending.
func HandleGroupJoin(d *Deps) session.Handler {
	return func(s *session.Session, payload string) {
		var req wire.GroupJoinReq
		if !decode(s, "GROUP_JOIN_RESP", payload, &req, d) {
			return
		}
		groupID, err := wire.ParseID(req.GroupID)
		if err != nil {
			fail(s, "GROUP_JOIN_RESP", wire.ErrInvalidParam, "malformed groupId", d.Logger)
			return
		}
		conv, err := d.Store.ConversationGet(groupID)
		if errors.Is(err, mysql.ErrNotFound) {
			fail(s, "GROUP_JOIN_RESP", wire.ErrNotFound, "group not found", d.Logger)
			return
		} else if err != nil {
			fail(s, "GROUP_JOIN_RESP", wire.ErrServerErrorDB, "group lookup failed", d.Logger)
			return
		}
		if conv.Type != types.ConvGroup {
			fail(s, "GROUP_JOIN_RESP", wire.ErrInvalidParam, "not a group conversation", d.Logger)
			return
		}

		userID := s.UserID()
		if _, err := d.Store.MemberGet(groupID, userID); err == nil {
			fail(s, "GROUP_JOIN_RESP", wire.ErrAlreadyMember, "already a member", d.Logger)
			return
		} else if !errors.Is(err, mysql.ErrNotFound) {
			fail(s, "GROUP_JOIN_RESP", wire.ErrServerErrorDB, "membership lookup failed", d.Logger)
			return
		}

		if pending, err := d.Store.GroupJoinRequestPending(userID, groupID); err != nil {
			fail(s, "GROUP_JOIN_RESP", wire.ErrServerErrorDB, "pending request lookup failed", d.Logger)
			return
		} else if pending != nil {
			fail(s, "GROUP_JOIN_RESP", wire.ErrAlreadyPending, "a join request is already pending", d.Logger)
			return
		}

		r := &types.GroupJoinRequest{
			FromUser:  userID,
			GroupID:   groupID,
			Status:    types.StatusPending,
			HelloMsg:  req.HelloMsg,
			CreatedAt: nowMs(),
		}
		id, err := d.Store.GroupJoinRequestCreate(r)
		if err != nil {
			fail(s, "GROUP_JOIN_RESP", wire.ErrServerErrorDB, "request creation failed", d.Logger)
			return
		}
		reply(s, "GROUP_JOIN_RESP", wire.GroupJoinResp{Envelope: wire.OK(), RequestID: wire.ID(id)}, d.Logger)

		ms, err := cachedMemberList(d, groupID)
		if err == nil {
			for _, m := range ms {
				if m.Role == types.RoleOwner || m.Role == types.RoleAdmin {
					pushGroupJoinRequestListTo(d, m.UserID, groupID)
				}
			}
		}
	}
}

// HandleGroupJoinRequestList implements GROUP_JOIN_REQ_LIST_REQ: only an
// OWNER or ADMIN of the group may list its join requests.
func HandleGroupJoinRequestList(d *Deps) session.Handler {
	return func(s *session.Session, payload string) {
		var req wire.GroupJoinReqListReq
		if !decode(s, "GROUP_JOIN_REQ_LIST_RESP", payload, &req, d) {
			return
		}
		groupID, err := wire.ParseID(req.GroupID)
		if err != nil {
			fail(s, "GROUP_JOIN_REQ_LIST_RESP", wire.ErrInvalidParam, "malformed groupId", d.Logger)
			return
		}
		if !requireOwnerOrAdmin(d, s, "GROUP_JOIN_REQ_LIST_RESP", groupID) {
			return
		}
		pushGroupJoinRequestListTo(d, s.UserID(), groupID)
	}
}

// HandleGroupJoinAccept implements GROUP_JOIN_ACCEPT_REQ: an OWNER or ADMIN
// approves or denies a pending request.
func HandleGroupJoinAccept(d *Deps) session.Handler {
	return func(s *session.Session, payload string) {
		var req wire.GroupJoinAcceptReq
		if !decode(s, "GROUP_JOIN_ACCEPT_RESP", payload, &req, d) {
			return
		}
		reqID, err := wire.ParseID(req.RequestID)
		if err != nil {
			fail(s, "GROUP_JOIN_ACCEPT_RESP", wire.ErrInvalidParam, "malformed requestId", d.Logger)
			return
		}
		gr, err := d.Store.GroupJoinRequestGet(reqID)
		if errors.Is(err, mysql.ErrNotFound) {
			fail(s, "GROUP_JOIN_ACCEPT_RESP", wire.ErrNotFound, "request not found", d.Logger)
			return
		} else if err != nil {
			fail(s, "GROUP_JOIN_ACCEPT_RESP", wire.ErrServerErrorDB, "request lookup failed", d.Logger)
			return
		}
		if gr.Status != types.StatusPending {
			fail(s, "GROUP_JOIN_ACCEPT_RESP", wire.ErrAlreadyHandled, "request already handled", d.Logger)
			return
		}
		if !requireOwnerOrAdmin(d, s, "GROUP_JOIN_ACCEPT_RESP", gr.GroupID) {
			return
		}

		actorID := s.UserID()
		status := types.StatusRejected
		if req.Approve {
			status = types.StatusAccepted
		}
		if err := d.Store.GroupJoinRequestSetStatus(reqID, status, actorID, nowMs()); err != nil {
			fail(s, "GROUP_JOIN_ACCEPT_RESP", wire.ErrServerErrorDB, "status update failed", d.Logger)
			return
		}
		if req.Approve {
			if err := d.Store.MemberAdd(gr.GroupID, gr.FromUser, types.RoleMember); err != nil {
				fail(s, "GROUP_JOIN_ACCEPT_RESP", wire.ErrServerErrorDB, "member add failed", d.Logger)
				return
			}
			d.Cache.InvalidateAll(gr.GroupID)
		}

		reply(s, "GROUP_JOIN_ACCEPT_RESP", wire.GroupJoinAcceptResp{Envelope: wire.OK()}, d.Logger)
		if req.Approve {
			pushConvListTo(d, gr.FromUser)
			pushConvMembersToAll(d, gr.GroupID)
			systemMessage(d, gr.GroupID, "a new member joined the group")
		}
	}
}
