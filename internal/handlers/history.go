package handlers

import (
	"errors"

	"github.com/chatd/chatd/internal/session"
	"github.com/chatd/chatd/internal/store/adapter/mysql"
	"github.com/chatd/chatd/internal/store/types"
	"github.com/chatd/chatd/internal/wire"
)

// HandleHistory implements spec.md §4.7 HISTORY_REQ: ascending-seq pages,
// selecting the after/before/latest query shape per the precedence spec.md
// describes, with the hot window (SPEC_FULL.md M10) consulted first for
// the plain "most recent" case.
func HandleHistory(d *Deps) session.Handler {
	return func(s *session.Session, payload string) {
		var req wire.HistoryReq
		if !decode(s, "HISTORY_RESP", payload, &req, d) {
			return
		}

		convID, err := wire.ParseID(req.ConversationID)
		if err != nil {
			fail(s, "HISTORY_RESP", wire.ErrInvalidParam, "malformed conversationId", d.Logger)
			return
		}
		if convID <= 0 {
			convID, err = d.WorldConversationID()
			if err != nil {
				fail(s, "HISTORY_RESP", wire.ErrServerErrorDB, "world conversation unavailable", d.Logger)
				return
			}
		}

		if _, err := d.Store.MemberGet(convID, s.UserID()); errors.Is(err, mysql.ErrNotFound) {
			fail(s, "HISTORY_RESP", wire.ErrNotMember, "not a member of this conversation", d.Logger)
			return
		} else if err != nil {
			fail(s, "HISTORY_RESP", wire.ErrServerErrorDB, "membership lookup failed", d.Logger)
			return
		}

		limit := req.Limit
		if limit <= 0 {
			limit = d.HistoryDefaultLimit
		}
		if limit > d.HistoryMaxLimit {
			limit = d.HistoryMaxLimit
		}

		var msgs []types.Message
		switch {
		case req.AfterSeq > 0:
			msgs, err = d.Store.HistoryAfter(convID, req.AfterSeq, limit)
		case req.BeforeSeq > 0:
			msgs, err = d.Store.HistoryBefore(convID, req.BeforeSeq, limit)
		default:
			if d.AuxKV != nil {
				if hot, ok := d.AuxKV.LatestFromHotWindow(convID, limit); ok {
					msgs = hot
				}
			}
			if msgs == nil {
				msgs, err = d.Store.HistoryLatest(convID, limit)
			}
		}
		if err != nil {
			fail(s, "HISTORY_RESP", wire.ErrServerErrorDB, "history query failed", d.Logger)
			return
		}

		out := make([]wire.HistoryMessage, len(msgs))
		senderNames := map[int64]string{}
		for i, m := range msgs {
			name, ok := senderNames[m.SenderID]
			if !ok && m.SenderID != 0 {
				if u, err := d.Store.UserGet(m.SenderID); err == nil {
					name = u.DisplayName
				}
				senderNames[m.SenderID] = name
			}
			out[i] = wire.HistoryMessage{
				ServerMsgID:       wire.ID(m.ID),
				SenderID:          wire.ID(m.SenderID),
				SenderDisplayName: name,
				MsgType:           string(m.MsgType),
				Content:           m.Content,
				Seq:               m.Seq,
				ServerTimeMs:      m.ServerTimeMs,
			}
		}

		nextBeforeSeq := int64(0)
		if len(out) > 0 {
			nextBeforeSeq = out[0].Seq
		}
		reply(s, "HISTORY_RESP", wire.HistoryResp{
			Envelope:       wire.OK(),
			ConversationID: wire.ID(convID),
			Messages:       out,
			HasMore:        len(out) == limit,
			NextBeforeSeq:  nextBeforeSeq,
		}, d.Logger)
	}
}
