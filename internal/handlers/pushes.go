package handlers

import (
	"encoding/json"

	"github.com/chatd/chatd/internal/protocol"
	"github.com/chatd/chatd/internal/store/types"
	"github.com/chatd/chatd/internal/wire"
)

// The functions in this file are the Go analogues of the targeted push
// helpers declared private on Server in
// original_source/include/server.h (send_conv_list_to,
// send_friend_list_to, send_friend_request_list_to,
// send_group_join_request_list_to, send_conv_members): each recomputes a
// list from persistence and pushes it to every online session of one user,
// per spec.md §4.3.

func pushFrame(d *Deps, userID int64, command string, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		d.Logger.Printf("handlers: marshal push %s for user %d: %v", command, userID, err)
		return
	}
	d.Hub.PushToUser(userID, protocol.Encode(command, string(b)))
}

func convSummaryFor(d *Deps, userID int64, c types.Conversation) (wire.ConvSummary, error) {
	title := c.Name
	if c.Type == types.ConvSingle {
		members, err := d.Store.MemberIDs(c.ID)
		if err != nil {
			return wire.ConvSummary{}, err
		}
		for _, m := range members {
			if m != userID {
				if u, err := d.Store.UserGet(m); err == nil {
					title = u.DisplayName
				}
			}
		}
	}
	seq, ts, err := d.Store.LastMessageMeta(c.ID)
	if err != nil {
		return wire.ConvSummary{}, err
	}
	return wire.ConvSummary{
		ConversationID:   wire.ID(c.ID),
		ConversationType: string(c.Type),
		Title:            title,
		LastSeq:          seq,
		LastServerTimeMs: ts,
	}, nil
}

// pushConvListTo sends CONV_LIST_RESP to every online session of userID.
func pushConvListTo(d *Deps, userID int64) {
	convs, err := d.Store.ConversationsForUser(userID)
	if err != nil {
		d.Logger.Printf("handlers: pushConvListTo %d: %v", userID, err)
		return
	}
	summaries := make([]wire.ConvSummary, 0, len(convs))
	for _, c := range convs {
		sum, err := convSummaryFor(d, userID, c)
		if err != nil {
			continue
		}
		summaries = append(summaries, sum)
	}
	pushFrame(d, userID, "CONV_LIST_RESP", wire.ConvListResp{Envelope: wire.OK(), Conversations: summaries})
}

// pushFriendListTo sends FRIEND_LIST_RESP to every online session of userID.
func pushFriendListTo(d *Deps, userID int64) {
	friends, err := d.Store.FriendsOf(userID)
	if err != nil {
		d.Logger.Printf("handlers: pushFriendListTo %d: %v", userID, err)
		return
	}
	out := make([]wire.FriendInfo, 0, len(friends))
	for _, f := range friends {
		u, err := d.Store.UserGet(f.FriendUserID)
		if err != nil {
			continue
		}
		out = append(out, wire.FriendInfo{UserID: wire.ID(u.ID), Account: u.Account, DisplayName: u.DisplayName})
	}
	pushFrame(d, userID, "FRIEND_LIST_RESP", wire.FriendListResp{Envelope: wire.OK(), Friends: out})
}

// pushFriendRequestListTo sends FRIEND_REQ_LIST_RESP (PENDING-only, per
// SPEC_FULL.md's resolution of Open Question (ii)) to userID.
func pushFriendRequestListTo(d *Deps, userID int64) {
	reqs, err := d.Store.FriendRequestsForUser(userID)
	if err != nil {
		d.Logger.Printf("handlers: pushFriendRequestListTo %d: %v", userID, err)
		return
	}
	out := make([]wire.FriendReqInfo, 0, len(reqs))
	for _, r := range reqs {
		u, err := d.Store.UserGet(r.FromUser)
		if err != nil {
			continue
		}
		out = append(out, wire.FriendReqInfo{
			RequestID:       wire.ID(r.ID),
			FromUserID:      wire.ID(r.FromUser),
			FromAccount:     u.Account,
			FromDisplayName: u.DisplayName,
			Status:          string(r.Status),
			Source:          r.Source,
			HelloMsg:        r.HelloMsg,
			CreatedAt:       r.CreatedAt,
			HandledAt:       r.HandledAt,
		})
	}
	pushFrame(d, userID, "FRIEND_REQ_LIST_RESP", wire.FriendReqListResp{Envelope: wire.OK(), Requests: out})
}

// pushGroupJoinRequestListTo sends GROUP_JOIN_REQ_LIST_RESP to userID for
// the given group, including terminal requests per Open Question (iii).
func pushGroupJoinRequestListTo(d *Deps, userID, groupID int64) {
	reqs, err := d.Store.GroupJoinRequestsForGroup(groupID)
	if err != nil {
		d.Logger.Printf("handlers: pushGroupJoinRequestListTo %d/%d: %v", userID, groupID, err)
		return
	}
	out := make([]wire.GroupJoinReqInfo, 0, len(reqs))
	for _, r := range reqs {
		u, err := d.Store.UserGet(r.FromUser)
		if err != nil {
			continue
		}
		out = append(out, wire.GroupJoinReqInfo{
			RequestID:       wire.ID(r.ID),
			FromUserID:      wire.ID(r.FromUser),
			FromAccount:     u.Account,
			FromDisplayName: u.DisplayName,
			GroupID:         wire.ID(r.GroupID),
			Status:          string(r.Status),
			HelloMsg:        r.HelloMsg,
			CreatedAt:       r.CreatedAt,
			HandledAt:       r.HandledAt,
		})
	}
	pushFrame(d, userID, "GROUP_JOIN_REQ_LIST_RESP", wire.GroupJoinReqListResp{Envelope: wire.OK(), Requests: out})
}

// memberInfosToWire converts store member records to the wire shape.
func memberInfosToWire(members []types.MemberInfo) []wire.MemberInfo {
	out := make([]wire.MemberInfo, len(members))
	for i, m := range members {
		out[i] = wire.MemberInfo{
			UserID:       wire.ID(m.UserID),
			DisplayName:  m.DisplayName,
			Role:         string(m.Role),
			MutedUntilMs: m.MutedUntilMs,
		}
	}
	return out
}

// cachedMemberList resolves the full member-record list via the cache,
// falling back to persistence and repopulating on a miss.
func cachedMemberList(d *Deps, convID int64) ([]types.MemberInfo, error) {
	if ms, ok := d.Cache.GetMemberList(convID); ok {
		return ms, nil
	}
	ms, err := d.Store.MemberList(convID)
	if err != nil {
		return nil, err
	}
	d.Cache.PutMemberList(convID, ms)
	return ms, nil
}

// pushConvMembersToAll sends CONV_MEMBERS_RESP to every online member of the
// conversation, implementing Server::send_conv_members(conversation_id, 0).
func pushConvMembersToAll(d *Deps, convID int64) {
	ms, err := cachedMemberList(d, convID)
	if err != nil {
		d.Logger.Printf("handlers: pushConvMembersToAll %d: %v", convID, err)
		return
	}
	resp := wire.ConvMembersResp{Envelope: wire.OK(), ConversationID: wire.ID(convID), Members: memberInfosToWire(ms)}
	for _, m := range ms {
		pushFrame(d, m.UserID, "CONV_MEMBERS_RESP", resp)
	}
}

// broadcastDissolutionNotice pushes an unpersisted SYSTEM MSG_PUSH announcing
// a conversation's dissolution to memberIDs. It does not go through
// AllocateSeqAndInsert like systemMessage does: the conversation (and its
// seq counter) is about to be deleted by ConversationDissolve, so this must
// run before the dissolve and cannot reserve a real seq, per spec.md §4.7's
// "broadcast the dissolution SYSTEM message" before "dissolve the entire
// conversation."
func broadcastDissolutionNotice(d *Deps, convID int64, convType types.ConversationType, memberIDs []int64, content string) {
	push := wire.MsgPush{
		ConversationID:   wire.ID(convID),
		ConversationType: string(convType),
		ServerMsgID:      "0",
		SenderID:         "0",
		MsgType:          string(types.MsgSystem),
		ServerTimeMs:     nowMs(),
		Content:          content,
	}
	b, err := json.Marshal(push)
	if err != nil {
		d.Logger.Printf("handlers: broadcastDissolutionNotice for conv %d: %v", convID, err)
		return
	}
	frame := protocol.Encode("MSG_PUSH", string(b))
	d.Hub.BroadcastMessage(convID, memberIDs, true, frame)
}

// systemMessage persists and broadcasts a SYSTEM MSG_PUSH to a conversation,
// the common tail of the mute/admin/leave/join handlers (spec.md §4.7).
func systemMessage(d *Deps, convID int64, content string) {
	msgID, err := d.IDGen.NextMessageID()
	if err != nil {
		d.Logger.Printf("handlers: systemMessage for conv %d: id allocation failed: %v", convID, err)
		return
	}
	msg := &types.Message{
		ID:             msgID,
		ConversationID: convID,
		SenderID:       0,
		MsgType:        types.MsgSystem,
		Content:        content,
		ServerTimeMs:   nowMs(),
	}
	id, seq, err := d.Store.AllocateSeqAndInsert(msg)
	if err != nil {
		d.Logger.Printf("handlers: systemMessage for conv %d: %v", convID, err)
		return
	}
	conv, err := d.Store.ConversationGet(convID)
	convType := types.ConvGroup
	if err == nil {
		convType = conv.Type
	}
	push := wire.MsgPush{
		ConversationID:   wire.ID(convID),
		ConversationType: string(convType),
		ServerMsgID:      wire.ID(id),
		SenderID:         "0",
		MsgType:          string(types.MsgSystem),
		ServerTimeMs:     msg.ServerTimeMs,
		Seq:              seq,
		Content:          content,
	}
	b, err := json.Marshal(push)
	if err != nil {
		return
	}
	frame := protocol.Encode("MSG_PUSH", string(b))
	memberIDs, cacheHit := cachedMemberIDs(d, convID, convType)
	d.Hub.BroadcastSystemMessage(convID, memberIDs, cacheHit, frame)
}
