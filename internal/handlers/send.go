package handlers

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/chatd/chatd/internal/metrics"
	"github.com/chatd/chatd/internal/protocol"
	"github.com/chatd/chatd/internal/session"
	"github.com/chatd/chatd/internal/store/adapter/mysql"
	"github.com/chatd/chatd/internal/store/types"
	"github.com/chatd/chatd/internal/wire"
)

// HandleSendMsg implements spec.md §4.6 end to end: resolve the
// conversation, check membership and mute state, allocate seq and persist
// atomically, ack the sender, then fan out MSG_PUSH via the cache-backed
// broadcast. Dispatched on its own goroutine by the session read loop so
// persistence I/O never blocks frame draining.
func HandleSendMsg(d *Deps) session.Handler {
	return func(s *session.Session, payload string) {
		var req wire.SendMsgReq
		if !decode(s, "SEND_ACK", payload, &req, d) {
			return
		}

		senderID := s.UserID()

		convID, err := wire.ParseID(req.ConversationID)
		if err != nil {
			fail(s, "SEND_ACK", wire.ErrInvalidParam, "malformed conversationId", d.Logger)
			return
		}
		if convID <= 0 {
			convID, err = d.WorldConversationID()
			if err != nil {
				fail(s, "SEND_ACK", wire.ErrServerErrorDB, "world conversation unavailable", d.Logger)
				return
			}
		}

		conv, err := d.Store.ConversationGet(convID)
		if errors.Is(err, mysql.ErrNotFound) {
			fail(s, "SEND_ACK", wire.ErrNotFound, "conversation not found", d.Logger)
			return
		}
		if err != nil {
			fail(s, "SEND_ACK", wire.ErrServerErrorDB, "conversation lookup failed", d.Logger)
			return
		}

		// Step 2: membership and mute check (spec.md §4.6, resolving Open
		// Question (i): not-a-member is rejected with NOT_MEMBER, not a
		// silent drop).
		member, err := d.Store.MemberGet(convID, senderID)
		if errors.Is(err, mysql.ErrNotFound) {
			fail(s, "SEND_ACK", wire.ErrNotMember, "not a member of this conversation", d.Logger)
			return
		}
		if err != nil {
			fail(s, "SEND_ACK", wire.ErrServerErrorDB, "membership lookup failed", d.Logger)
			return
		}
		nowMs := time.Now().UnixMilli()
		if member.IsMuted(nowMs) {
			fail(s, "SEND_ACK", wire.ErrMuted, "muted until "+time.UnixMilli(member.MutedUntilMs).UTC().Format(time.RFC3339), d.Logger)
			return
		}

		msgType := types.MsgText
		if req.MsgType != "" {
			msgType = types.MsgType(req.MsgType)
		}

		msgID, err := d.IDGen.NextMessageID()
		if err != nil {
			fail(s, "SEND_ACK", wire.ErrServerErrorDB, "message id allocation failed", d.Logger)
			return
		}

		msg := &types.Message{
			ID:             msgID,
			ConversationID: convID,
			SenderID:       senderID,
			MsgType:        msgType,
			Content:        req.Content,
			ServerTimeMs:   nowMs,
		}

		// Step 3: allocate seq and persist atomically (spec.md §4.5/§4.6).
		id, seq, err := d.Store.AllocateSeqAndInsert(msg)
		if err != nil {
			// A closed session aborts silently per spec.md §4.6's
			// failure modes; only reply if the socket is still usable.
			metrics.DBErrors.WithLabelValues("allocate_seq_and_insert").Inc()
			fail(s, "SEND_ACK", wire.ErrServerErrorDB, "message persistence failed", d.Logger)
			return
		}
		metrics.MessagesSent.Inc()
		if d.AuxKV != nil {
			msg.ID, msg.Seq = id, seq
			if err := d.AuxKV.PushHotMessage(*msg); err != nil {
				d.Logger.Printf("handlers: SEND_MSG: hot window push failed for conv %d: %v", convID, err)
			}
		}

		// Step 4: ack the sender.
		reply(s, "SEND_ACK", wire.SendAckResp{
			Envelope:     wire.OK(),
			ClientMsgID:  req.ClientMsgID,
			ServerMsgID:  wire.ID(id),
			ServerTimeMs: nowMs,
			Seq:          seq,
		}, d.Logger)

		// Step 5/6: build MSG_PUSH and broadcast via the cache.
		senderDisplayName := s.DisplayName()
		senderWire := wire.ID(senderID)
		if msgType == types.MsgSystem {
			senderWire = "0"
		}
		push := wire.MsgPush{
			ConversationID:    wire.ID(convID),
			ConversationType:  string(conv.Type),
			ServerMsgID:       wire.ID(id),
			SenderID:          senderWire,
			SenderDisplayName: senderDisplayName,
			MsgType:           string(msgType),
			ServerTimeMs:      nowMs,
			Seq:               seq,
			Content:           req.Content,
		}
		b, err := json.Marshal(push)
		if err != nil {
			fail(s, "ERROR", wire.ErrServerErrorPush, "failed to encode push", d.Logger)
			return
		}
		frame := protocol.Encode("MSG_PUSH", string(b))

		memberIDs, cacheHit := cachedMemberIDs(d, convID, conv.Type)
		d.Hub.BroadcastMessage(convID, memberIDs, cacheHit, frame)
	}
}

// cachedMemberIDs resolves conversation membership via the cache, falling
// back to a persistence read (and populating the cache) on a miss. It
// reports !ok only when that read fails, so the hub falls back to the
// documented all-authenticated-sessions degradation (spec.md §4.3/§4.4).
func cachedMemberIDs(d *Deps, convID int64, convType types.ConversationType) ([]int64, bool) {
	if entry, ok := d.Cache.GetConv(convID); ok {
		return entry.MemberIDs, true
	}
	ids, err := d.Store.MemberIDs(convID)
	if err != nil {
		return nil, false
	}
	d.Cache.PutConv(convID, convType, ids)
	return ids, true
}
