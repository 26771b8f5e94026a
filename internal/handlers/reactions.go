package handlers

import (
	"encoding/json"
	"errors"

	"github.com/chatd/chatd/internal/protocol"
	"github.com/chatd/chatd/internal/session"
	"github.com/chatd/chatd/internal/store/adapter/mysql"
	"github.com/chatd/chatd/internal/store/types"
	"github.com/chatd/chatd/internal/wire"
)

// HandleReact implements REACT_REQ, supplemented from
// original_source/src/server/session/reaction.cpp (SPEC_FULL.md M9): a
// second react from the same user with the same emoji on the same message
// toggles the reaction off, otherwise it's recorded or replaces a prior
// emoji from that user.
func HandleReact(d *Deps) session.Handler {
	return func(s *session.Session, payload string) {
		var req wire.ReactReq
		if !decode(s, "REACT_RESP", payload, &req, d) {
			return
		}
		convID, err := wire.ParseID(req.ConversationID)
		if err != nil {
			fail(s, "REACT_RESP", wire.ErrInvalidParam, "malformed conversationId", d.Logger)
			return
		}
		msgID, err := wire.ParseID(req.ServerMsgID)
		if err != nil {
			fail(s, "REACT_RESP", wire.ErrInvalidParam, "malformed serverMsgId", d.Logger)
			return
		}

		userID := s.UserID()
		if _, err := d.Store.MemberGet(convID, userID); errors.Is(err, mysql.ErrNotFound) {
			fail(s, "REACT_RESP", wire.ErrNotMember, "not a member of this conversation", d.Logger)
			return
		} else if err != nil {
			fail(s, "REACT_RESP", wire.ErrServerErrorDB, "membership lookup failed", d.Logger)
			return
		}

		senderID, err := d.Store.MessageSenderID(msgID)
		if errors.Is(err, mysql.ErrNotFound) {
			fail(s, "REACT_RESP", wire.ErrMessageNotFound, "message not found", d.Logger)
			return
		} else if err != nil {
			fail(s, "REACT_RESP", wire.ErrServerErrorDB, "message lookup failed", d.Logger)
			return
		}
		if senderID == userID {
			fail(s, "REACT_RESP", wire.ErrCannotReactOwn, "cannot react to your own message", d.Logger)
			return
		}

		removed, err := d.Store.ReactionToggle(msgID, userID, req.Emoji)
		if errors.Is(err, mysql.ErrNotFound) {
			fail(s, "REACT_RESP", wire.ErrMessageNotFound, "message not found", d.Logger)
			return
		} else if err != nil {
			fail(s, "REACT_RESP", wire.ErrServerErrorDB, "reaction update failed", d.Logger)
			return
		}

		reply(s, "REACT_RESP", wire.ReactResp{Envelope: wire.OK(), Removed: removed}, d.Logger)

		push := wire.ReactionPush{
			ConversationID: wire.ID(convID),
			ServerMsgID:    wire.ID(msgID),
			UserID:         wire.ID(userID),
			Emoji:          req.Emoji,
			Removed:        removed,
		}
		b, err := json.Marshal(push)
		if err != nil {
			return
		}
		frame := protocol.Encode("REACTION_PUSH", string(b))
		var convType types.ConversationType
		if conv, err := d.Store.ConversationGet(convID); err == nil {
			convType = conv.Type
		}
		memberIDs, cacheHit := cachedMemberIDs(d, convID, convType)
		d.Hub.BroadcastMessage(convID, memberIDs, cacheHit, frame)
	}
}
