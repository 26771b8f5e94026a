package handlers

import (
	"errors"

	"github.com/chatd/chatd/internal/session"
	"github.com/chatd/chatd/internal/store/adapter/mysql"
	"github.com/chatd/chatd/internal/store/types"
	"github.com/chatd/chatd/internal/wire"
)

// HandleFriendList implements FRIEND_LIST_REQ.
func HandleFriendList(d *Deps) session.Handler {
	return func(s *session.Session, _ string) {
		pushFriendListTo(d, s.UserID())
	}
}

// HandleFriendSearch implements FRIEND_SEARCH_REQ: a plain account/display
// name substring search excluding the caller, grounded on
// original_source/src/server/session/friend.cpp's search handler.
func HandleFriendSearch(d *Deps) session.Handler {
	return func(s *session.Session, payload string) {
		var req wire.FriendSearchReq
		if !decode(s, "FRIEND_SEARCH_RESP", payload, &req, d) {
			return
		}
		users, err := d.Store.UserSearch(req.Query, s.UserID())
		if err != nil {
			fail(s, "FRIEND_SEARCH_RESP", wire.ErrServerErrorDB, "search failed", d.Logger)
			return
		}
		out := make([]wire.FriendInfo, len(users))
		for i, u := range users {
			out[i] = wire.FriendInfo{UserID: wire.ID(u.ID), Account: u.Account, DisplayName: u.DisplayName}
		}
		reply(s, "FRIEND_SEARCH_RESP", wire.FriendSearchResp{Envelope: wire.OK(), Results: out}, d.Logger)
	}
}

// HandleFriendAdd implements FRIEND_ADD_REQ: raise a pending request unless
// the two are already friends or a pending request already exists either
// direction.
func HandleFriendAdd(d *Deps) session.Handler {
	return func(s *session.Session, payload string) {
		var req wire.FriendAddReq
		if !decode(s, "FRIEND_ADD_RESP", payload, &req, d) {
			return
		}
		targetID, err := wire.ParseID(req.TargetUserID)
		if err != nil {
			fail(s, "FRIEND_ADD_RESP", wire.ErrInvalidParam, "malformed targetUserId", d.Logger)
			return
		}
		userID := s.UserID()
		if targetID == userID {
			fail(s, "FRIEND_ADD_RESP", wire.ErrInvalidParam, "cannot friend yourself", d.Logger)
			return
		}
		if _, err := d.Store.UserGet(targetID); errors.Is(err, mysql.ErrNotFound) {
			fail(s, "FRIEND_ADD_RESP", wire.ErrNotFound, "target user not found", d.Logger)
			return
		} else if err != nil {
			fail(s, "FRIEND_ADD_RESP", wire.ErrServerErrorDB, "target lookup failed", d.Logger)
			return
		}

		already, err := d.Store.AreFriends(userID, targetID)
		if err != nil {
			fail(s, "FRIEND_ADD_RESP", wire.ErrServerErrorDB, "friendship lookup failed", d.Logger)
			return
		}
		if already {
			fail(s, "FRIEND_ADD_RESP", wire.ErrAlreadyFriend, "already friends", d.Logger)
			return
		}

		if pending, err := d.Store.FriendRequestPendingBetween(userID, targetID); err != nil {
			fail(s, "FRIEND_ADD_RESP", wire.ErrServerErrorDB, "pending request lookup failed", d.Logger)
			return
		} else if pending != nil {
			fail(s, "FRIEND_ADD_RESP", wire.ErrAlreadyPending, "a request is already pending between these users", d.Logger)
			return
		}

		r := &types.FriendRequest{
			FromUser:  userID,
			ToUser:    targetID,
			Status:    types.StatusPending,
			Source:    "SEARCH",
			HelloMsg:  req.HelloMsg,
			CreatedAt: nowMs(),
		}
		id, err := d.Store.FriendRequestCreate(r)
		if err != nil {
			fail(s, "FRIEND_ADD_RESP", wire.ErrServerErrorDB, "request creation failed", d.Logger)
			return
		}
		reply(s, "FRIEND_ADD_RESP", wire.FriendAddResp{Envelope: wire.OK(), RequestID: wire.ID(id)}, d.Logger)
		pushFriendRequestListTo(d, targetID)
	}
}

// HandleFriendRequestList implements FRIEND_REQ_LIST_REQ.
func HandleFriendRequestList(d *Deps) session.Handler {
	return func(s *session.Session, _ string) {
		pushFriendRequestListTo(d, s.UserID())
	}
}

// HandleFriendAccept implements FRIEND_ACCEPT_REQ: only the request's
// recipient may accept it, and acceptance both marks the symmetric
// friendship and opens (or reuses) the SINGLE conversation between the two.
func HandleFriendAccept(d *Deps) session.Handler {
	return func(s *session.Session, payload string) {
		var req wire.FriendAcceptReq
		if !decode(s, "FRIEND_ACCEPT_RESP", payload, &req, d) {
			return
		}
		reqID, err := wire.ParseID(req.RequestID)
		if err != nil {
			fail(s, "FRIEND_ACCEPT_RESP", wire.ErrInvalidParam, "malformed requestId", d.Logger)
			return
		}
		fr, err := d.Store.FriendRequestGet(reqID)
		if errors.Is(err, mysql.ErrNotFound) {
			fail(s, "FRIEND_ACCEPT_RESP", wire.ErrNotFound, "request not found", d.Logger)
			return
		} else if err != nil {
			fail(s, "FRIEND_ACCEPT_RESP", wire.ErrServerErrorDB, "request lookup failed", d.Logger)
			return
		}
		if fr.ToUser != s.UserID() {
			fail(s, "FRIEND_ACCEPT_RESP", wire.ErrPermissionDenied, "only the recipient may accept", d.Logger)
			return
		}
		if fr.Status != types.StatusPending {
			fail(s, "FRIEND_ACCEPT_RESP", wire.ErrAlreadyHandled, "request already handled", d.Logger)
			return
		}

		if err := d.Store.FriendRequestSetStatus(reqID, types.StatusAccepted, nowMs()); err != nil {
			fail(s, "FRIEND_ACCEPT_RESP", wire.ErrServerErrorDB, "status update failed", d.Logger)
			return
		}
		if err := d.Store.FriendAddSymmetric(fr.FromUser, fr.ToUser); err != nil {
			fail(s, "FRIEND_ACCEPT_RESP", wire.ErrServerErrorDB, "friendship creation failed", d.Logger)
			return
		}
		convID, created, err := d.Store.ConversationCreateSingle(fr.FromUser, fr.ToUser)
		if err != nil {
			fail(s, "FRIEND_ACCEPT_RESP", wire.ErrServerErrorDB, "conversation creation failed", d.Logger)
			return
		}
		if created {
			d.Cache.InvalidateAll(convID)
		}

		reply(s, "FRIEND_ACCEPT_RESP", wire.FriendAcceptResp{Envelope: wire.OK(), ConversationID: wire.ID(convID)}, d.Logger)
		pushFriendListTo(d, fr.FromUser)
		pushFriendListTo(d, fr.ToUser)
		pushFriendRequestListTo(d, fr.FromUser)
		pushFriendRequestListTo(d, fr.ToUser)
		pushConvListTo(d, fr.FromUser)
		pushConvListTo(d, fr.ToUser)
	}
}

// HandleFriendReject implements FRIEND_REJECT_REQ.
func HandleFriendReject(d *Deps) session.Handler {
	return func(s *session.Session, payload string) {
		var req wire.FriendRejectReq
		if !decode(s, "FRIEND_REJECT_RESP", payload, &req, d) {
			return
		}
		reqID, err := wire.ParseID(req.RequestID)
		if err != nil {
			fail(s, "FRIEND_REJECT_RESP", wire.ErrInvalidParam, "malformed requestId", d.Logger)
			return
		}
		fr, err := d.Store.FriendRequestGet(reqID)
		if errors.Is(err, mysql.ErrNotFound) {
			fail(s, "FRIEND_REJECT_RESP", wire.ErrNotFound, "request not found", d.Logger)
			return
		} else if err != nil {
			fail(s, "FRIEND_REJECT_RESP", wire.ErrServerErrorDB, "request lookup failed", d.Logger)
			return
		}
		if fr.ToUser != s.UserID() {
			fail(s, "FRIEND_REJECT_RESP", wire.ErrPermissionDenied, "only the recipient may reject", d.Logger)
			return
		}
		if fr.Status != types.StatusPending {
			fail(s, "FRIEND_REJECT_RESP", wire.ErrAlreadyHandled, "request already handled", d.Logger)
			return
		}
		if err := d.Store.FriendRequestSetStatus(reqID, types.StatusRejected, nowMs()); err != nil {
			fail(s, "FRIEND_REJECT_RESP", wire.ErrServerErrorDB, "status update failed", d.Logger)
			return
		}
		reply(s, "FRIEND_REJECT_RESP", wire.FriendRejectResp{Envelope: wire.OK()}, d.Logger)
		pushFriendRequestListTo(d, fr.FromUser)
	}
}

// HandleFriendDelete implements FRIEND_DELETE_REQ.
func HandleFriendDelete(d *Deps) session.Handler {
	return func(s *session.Session, payload string) {
		var req wire.FriendDeleteReq
		if !decode(s, "FRIEND_DELETE_RESP", payload, &req, d) {
			return
		}
		targetID, err := wire.ParseID(req.TargetUserID)
		if err != nil {
			fail(s, "FRIEND_DELETE_RESP", wire.ErrInvalidParam, "malformed targetUserId", d.Logger)
			return
		}
		userID := s.UserID()
		already, err := d.Store.AreFriends(userID, targetID)
		if err != nil {
			fail(s, "FRIEND_DELETE_RESP", wire.ErrServerErrorDB, "friendship lookup failed", d.Logger)
			return
		}
		if !already {
			fail(s, "FRIEND_DELETE_RESP", wire.ErrNotFriend, "not friends", d.Logger)
			return
		}
		if err := d.Store.FriendDeleteSymmetric(userID, targetID); err != nil {
			fail(s, "FRIEND_DELETE_RESP", wire.ErrServerErrorDB, "deletion failed", d.Logger)
			return
		}
		reply(s, "FRIEND_DELETE_RESP", wire.FriendDeleteResp{Envelope: wire.OK()}, d.Logger)
		pushFriendListTo(d, userID)
		pushFriendListTo(d, targetID)
	}
}
