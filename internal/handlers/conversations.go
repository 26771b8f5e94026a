package handlers

import (
	"errors"

	"github.com/chatd/chatd/internal/session"
	"github.com/chatd/chatd/internal/store/adapter/mysql"
	"github.com/chatd/chatd/internal/store/types"
	"github.com/chatd/chatd/internal/wire"
)

// HandleConvList implements CONV_LIST_REQ: the caller's full conversation
// list, each row carrying the last message's seq/time for client-side
// sorting (spec.md §4.7).
func HandleConvList(d *Deps) session.Handler {
	return func(s *session.Session, _ string) {
		pushConvListTo(d, s.UserID())
	}
}

// HandleConvMembers implements CONV_MEMBERS_REQ.
func HandleConvMembers(d *Deps) session.Handler {
	return func(s *session.Session, payload string) {
		var req wire.ConvMembersReq
		if !decode(s, "CONV_MEMBERS_RESP", payload, &req, d) {
			return
		}
		convID, err := wire.ParseID(req.ConversationID)
		if err != nil {
			fail(s, "CONV_MEMBERS_RESP", wire.ErrInvalidParam, "malformed conversationId", d.Logger)
			return
		}
		if _, err := d.Store.MemberGet(convID, s.UserID()); errors.Is(err, mysql.ErrNotFound) {
			fail(s, "CONV_MEMBERS_RESP", wire.ErrNotMember, "not a member of this conversation", d.Logger)
			return
		} else if err != nil {
			fail(s, "CONV_MEMBERS_RESP", wire.ErrServerErrorDB, "membership lookup failed", d.Logger)
			return
		}
		ms, err := cachedMemberList(d, convID)
		if err != nil {
			fail(s, "CONV_MEMBERS_RESP", wire.ErrServerErrorDB, "member list query failed", d.Logger)
			return
		}
		reply(s, "CONV_MEMBERS_RESP", wire.ConvMembersResp{
			Envelope:       wire.OK(),
			ConversationID: wire.ID(convID),
			Members:        memberInfosToWire(ms),
		}, d.Logger)
	}
}

// HandleOpenSingleConv implements OPEN_SINGLE_CONV_REQ: find-or-create the
// unordered-pair SINGLE conversation with a peer, per spec.md §4.7 and the
// minMax-keyed single_conv_index grounded on
// original_source/src/server/session/conversation.cpp.
func HandleOpenSingleConv(d *Deps) session.Handler {
	return func(s *session.Session, payload string) {
		var req wire.OpenSingleConvReq
		if !decode(s, "OPEN_SINGLE_CONV_RESP", payload, &req, d) {
			return
		}
		peerID, err := wire.ParseID(req.PeerUserID)
		if err != nil {
			fail(s, "OPEN_SINGLE_CONV_RESP", wire.ErrInvalidParam, "malformed peerUserId", d.Logger)
			return
		}
		userID := s.UserID()
		if peerID == userID {
			fail(s, "OPEN_SINGLE_CONV_RESP", wire.ErrInvalidParam, "cannot open a conversation with yourself", d.Logger)
			return
		}
		if _, err := d.Store.UserGet(peerID); errors.Is(err, mysql.ErrNotFound) {
			fail(s, "OPEN_SINGLE_CONV_RESP", wire.ErrNotFound, "peer user not found", d.Logger)
			return
		} else if err != nil {
			fail(s, "OPEN_SINGLE_CONV_RESP", wire.ErrServerErrorDB, "peer lookup failed", d.Logger)
			return
		}

		convID, created, err := d.Store.ConversationCreateSingle(userID, peerID)
		if err != nil {
			fail(s, "OPEN_SINGLE_CONV_RESP", wire.ErrServerErrorDB, "conversation lookup/creation failed", d.Logger)
			return
		}
		if created {
			d.Cache.InvalidateAll(convID)
		}
		reply(s, "OPEN_SINGLE_CONV_RESP", wire.OpenSingleConvResp{
			Envelope:       wire.OK(),
			ConversationID: wire.ID(convID),
			Created:        created,
		}, d.Logger)
	}
}

// HandleCreateGroup implements CREATE_GROUP_REQ: the caller becomes OWNER,
// the listed member IDs join as MEMBER (spec.md §4.7).
func HandleCreateGroup(d *Deps) session.Handler {
	return func(s *session.Session, payload string) {
		var req wire.CreateGroupReq
		if !decode(s, "CREATE_GROUP_RESP", payload, &req, d) {
			return
		}
		userID := s.UserID()
		memberIDs := make([]int64, 0, len(req.MemberIDs))
		seen := map[int64]bool{userID: true}
		for _, raw := range req.MemberIDs {
			id, err := wire.ParseID(raw)
			if err != nil {
				fail(s, "CREATE_GROUP_RESP", wire.ErrInvalidParam, "malformed member id "+raw, d.Logger)
				return
			}
			if seen[id] {
				continue
			}
			seen[id] = true
			memberIDs = append(memberIDs, id)
		}
		if len(memberIDs) < 2 {
			fail(s, "CREATE_GROUP_RESP", wire.ErrInvalidParam, "a group needs at least two other members", d.Logger)
			return
		}

		name := req.Name
		if name == "" {
			name = s.DisplayName() + "'s group"
		}

		convID, err := d.Store.ConversationCreateGroup(name, userID, memberIDs)
		if err != nil {
			fail(s, "CREATE_GROUP_RESP", wire.ErrServerErrorDB, "group creation failed", d.Logger)
			return
		}
		d.Cache.InvalidateAll(convID)

		reply(s, "CREATE_GROUP_RESP", wire.CreateGroupResp{
			Envelope:       wire.OK(),
			ConversationID: wire.ID(convID),
			Name:           name,
		}, d.Logger)

		for _, m := range append(memberIDs, userID) {
			pushConvListTo(d, m)
		}
	}
}

// actorRole resolves the actor's role in a conversation. A missing
// membership comes back as the store's error unchanged; callers translate
// mysql.ErrNotFound into wire.ErrNotMember.
func actorRole(d *Deps, convID, userID int64) (types.MemberRole, error) {
	m, err := d.Store.MemberGet(convID, userID)
	if err != nil {
		return "", err
	}
	return m.Role, nil
}

// requireOwnerOrAdmin enforces the moderation-actor policy shared by
// MUTE/UNMUTE/SET_ADMIN (spec.md §4.7: "require OWNER or ADMIN as actor").
// It replies with the appropriate error and returns false when denied.
func requireOwnerOrAdmin(d *Deps, s *session.Session, command string, convID int64) bool {
	role, err := actorRole(d, convID, s.UserID())
	if errors.Is(err, mysql.ErrNotFound) {
		fail(s, command, wire.ErrNotMember, "not a member of this conversation", d.Logger)
		return false
	}
	if err != nil {
		fail(s, command, wire.ErrServerErrorDB, "membership lookup failed", d.Logger)
		return false
	}
	if role != types.RoleOwner && role != types.RoleAdmin {
		fail(s, command, wire.ErrPermissionDenied, "requires OWNER or ADMIN", d.Logger)
		return false
	}
	return true
}

// HandleMuteMember implements MUTE_MEMBER_REQ.
func HandleMuteMember(d *Deps) session.Handler {
	return func(s *session.Session, payload string) {
		var req wire.MuteMemberReq
		if !decode(s, "MUTE_MEMBER_RESP", payload, &req, d) {
			return
		}
		convID, err := wire.ParseID(req.ConversationID)
		if err != nil {
			fail(s, "MUTE_MEMBER_RESP", wire.ErrInvalidParam, "malformed conversationId", d.Logger)
			return
		}
		targetID, err := wire.ParseID(req.TargetUserID)
		if err != nil {
			fail(s, "MUTE_MEMBER_RESP", wire.ErrInvalidParam, "malformed targetUserId", d.Logger)
			return
		}
		if !requireOwnerOrAdmin(d, s, "MUTE_MEMBER_RESP", convID) {
			return
		}
		target, err := d.Store.MemberGet(convID, targetID)
		if errors.Is(err, mysql.ErrNotFound) {
			fail(s, "MUTE_MEMBER_RESP", wire.ErrNotMember, "target is not a member", d.Logger)
			return
		} else if err != nil {
			fail(s, "MUTE_MEMBER_RESP", wire.ErrServerErrorDB, "target lookup failed", d.Logger)
			return
		}
		if target.Role == types.RoleOwner {
			fail(s, "MUTE_MEMBER_RESP", wire.ErrPermissionDenied, "cannot mute the owner", d.Logger)
			return
		}

		mutedUntil := nowMs() + req.DurationSeconds*1000
		if err := d.Store.MemberSetMute(convID, targetID, mutedUntil); err != nil {
			fail(s, "MUTE_MEMBER_RESP", wire.ErrServerErrorDB, "mute failed", d.Logger)
			return
		}
		d.Cache.InvalidateMemberList(convID)
		reply(s, "MUTE_MEMBER_RESP", wire.MuteMemberResp{Envelope: wire.OK(), MutedUntilMs: mutedUntil}, d.Logger)
		systemMessage(d, convID, s.DisplayName()+" muted a member")
		pushConvMembersToAll(d, convID)
	}
}

// HandleUnmuteMember implements UNMUTE_MEMBER_REQ.
func HandleUnmuteMember(d *Deps) session.Handler {
	return func(s *session.Session, payload string) {
		var req wire.UnmuteMemberReq
		if !decode(s, "UNMUTE_MEMBER_RESP", payload, &req, d) {
			return
		}
		convID, err := wire.ParseID(req.ConversationID)
		if err != nil {
			fail(s, "UNMUTE_MEMBER_RESP", wire.ErrInvalidParam, "malformed conversationId", d.Logger)
			return
		}
		targetID, err := wire.ParseID(req.TargetUserID)
		if err != nil {
			fail(s, "UNMUTE_MEMBER_RESP", wire.ErrInvalidParam, "malformed targetUserId", d.Logger)
			return
		}
		if !requireOwnerOrAdmin(d, s, "UNMUTE_MEMBER_RESP", convID) {
			return
		}
		if err := d.Store.MemberSetMute(convID, targetID, 0); err != nil {
			fail(s, "UNMUTE_MEMBER_RESP", wire.ErrServerErrorDB, "unmute failed", d.Logger)
			return
		}
		d.Cache.InvalidateMemberList(convID)
		reply(s, "UNMUTE_MEMBER_RESP", wire.UnmuteMemberResp{Envelope: wire.OK()}, d.Logger)
		systemMessage(d, convID, s.DisplayName()+" unmuted a member")
		pushConvMembersToAll(d, convID)
	}
}

// HandleSetAdmin implements SET_ADMIN_REQ: only the OWNER may promote or
// demote an ADMIN (spec.md §4.7), stricter than the mute/unmute policy.
func HandleSetAdmin(d *Deps) session.Handler {
	return func(s *session.Session, payload string) {
		var req wire.SetAdminReq
		if !decode(s, "SET_ADMIN_RESP", payload, &req, d) {
			return
		}
		convID, err := wire.ParseID(req.ConversationID)
		if err != nil {
			fail(s, "SET_ADMIN_RESP", wire.ErrInvalidParam, "malformed conversationId", d.Logger)
			return
		}
		targetID, err := wire.ParseID(req.TargetUserID)
		if err != nil {
			fail(s, "SET_ADMIN_RESP", wire.ErrInvalidParam, "malformed targetUserId", d.Logger)
			return
		}
		role, err := actorRole(d, convID, s.UserID())
		if errors.Is(err, mysql.ErrNotFound) {
			fail(s, "SET_ADMIN_RESP", wire.ErrNotMember, "not a member of this conversation", d.Logger)
			return
		} else if err != nil {
			fail(s, "SET_ADMIN_RESP", wire.ErrServerErrorDB, "membership lookup failed", d.Logger)
			return
		}
		if role != types.RoleOwner {
			fail(s, "SET_ADMIN_RESP", wire.ErrPermissionDenied, "requires OWNER", d.Logger)
			return
		}
		target, err := d.Store.MemberGet(convID, targetID)
		if errors.Is(err, mysql.ErrNotFound) {
			fail(s, "SET_ADMIN_RESP", wire.ErrNotMember, "target is not a member", d.Logger)
			return
		} else if err != nil {
			fail(s, "SET_ADMIN_RESP", wire.ErrServerErrorDB, "target lookup failed", d.Logger)
			return
		}
		if target.Role == types.RoleOwner {
			fail(s, "SET_ADMIN_RESP", wire.ErrPermissionDenied, "cannot change the owner's role", d.Logger)
			return
		}

		newRole := types.RoleMember
		if req.IsAdmin {
			newRole = types.RoleAdmin
		}
		if err := d.Store.MemberSetRole(convID, targetID, newRole); err != nil {
			fail(s, "SET_ADMIN_RESP", wire.ErrServerErrorDB, "role update failed", d.Logger)
			return
		}
		d.Cache.InvalidateMemberList(convID)
		reply(s, "SET_ADMIN_RESP", wire.SetAdminResp{Envelope: wire.OK()}, d.Logger)
		notice := " removed a member's admin role"
		if req.IsAdmin {
			notice = " made a member an admin"
		}
		systemMessage(d, convID, s.DisplayName()+notice)
		pushConvMembersToAll(d, convID)
	}
}

// HandleLeaveConv implements LEAVE_CONV_REQ, including the dissolution
// rule: the world conversation cannot be left, and a conversation is
// dissolved outright (not handed to a new owner) when the leaving member is
// its OWNER or membership would drop to one or fewer.
func HandleLeaveConv(d *Deps) session.Handler {
	return func(s *session.Session, payload string) {
		var req wire.LeaveConvReq
		if !decode(s, "LEAVE_CONV_RESP", payload, &req, d) {
			return
		}
		convID, err := wire.ParseID(req.ConversationID)
		if err != nil {
			fail(s, "LEAVE_CONV_RESP", wire.ErrInvalidParam, "malformed conversationId", d.Logger)
			return
		}
		worldID, err := d.WorldConversationID()
		if err == nil && convID == worldID {
			fail(s, "LEAVE_CONV_RESP", wire.ErrPermissionDenied, "cannot leave the world conversation", d.Logger)
			return
		}

		userID := s.UserID()
		member, err := d.Store.MemberGet(convID, userID)
		if errors.Is(err, mysql.ErrNotFound) {
			fail(s, "LEAVE_CONV_RESP", wire.ErrNotMember, "not a member of this conversation", d.Logger)
			return
		} else if err != nil {
			fail(s, "LEAVE_CONV_RESP", wire.ErrServerErrorDB, "membership lookup failed", d.Logger)
			return
		}

		count, err := d.Store.MemberCount(convID)
		if err != nil {
			fail(s, "LEAVE_CONV_RESP", wire.ErrServerErrorDB, "member count failed", d.Logger)
			return
		}

		if member.Role == types.RoleOwner || count <= 2 {
			members, _ := d.Store.MemberIDs(convID)
			convType := types.ConvGroup
			if conv, err := d.Store.ConversationGet(convID); err == nil {
				convType = conv.Type
			}
			broadcastDissolutionNotice(d, convID, convType, members, s.DisplayName()+" left, dissolving the conversation")

			if err := d.Store.ConversationDissolve(convID); err != nil {
				fail(s, "LEAVE_CONV_RESP", wire.ErrServerErrorDB, "dissolution failed", d.Logger)
				return
			}
			d.Cache.InvalidateAll(convID)
			if d.AuxKV != nil {
				if err := d.AuxKV.InvalidateHotWindow(convID); err != nil {
					d.Logger.Printf("handlers: LEAVE_CONV: hot window drop failed for conv %d: %v", convID, err)
				}
			}
			reply(s, "LEAVE_CONV_RESP", wire.LeaveConvResp{Envelope: wire.OK(), Dissolved: true}, d.Logger)
			for _, m := range members {
				pushConvListTo(d, m)
			}
			return
		}

		if err := d.Store.MemberRemove(convID, userID); err != nil {
			fail(s, "LEAVE_CONV_RESP", wire.ErrServerErrorDB, "leave failed", d.Logger)
			return
		}
		d.Cache.InvalidateAll(convID)
		reply(s, "LEAVE_CONV_RESP", wire.LeaveConvResp{Envelope: wire.OK(), Dissolved: false}, d.Logger)
		systemMessage(d, convID, s.DisplayName()+" left the group")
		pushConvMembersToAll(d, convID)
	}
}
