package handlers

import "github.com/chatd/chatd/internal/session"

// BuildDispatch wires every wire command to its handler (spec.md §6's
// command table). One Dispatch is built once at startup and shared by every
// session.
func BuildDispatch(d *Deps) session.Dispatch {
	return session.Dispatch{
		"REGISTER": HandleRegister(d),
		"LOGIN":    HandleLogin(d),

		"SEND_MSG":     HandleSendMsg(d),
		"HISTORY_REQ":  HandleHistory(d),
		"CONV_LIST_REQ":    HandleConvList(d),
		"CONV_MEMBERS_REQ": HandleConvMembers(d),

		"PROFILE_UPDATE": HandleProfileUpdate(d),
		"AVATAR_UPDATE":  HandleAvatarUpdate(d),

		"FRIEND_LIST_REQ":    HandleFriendList(d),
		"FRIEND_SEARCH_REQ":  HandleFriendSearch(d),
		"FRIEND_ADD_REQ":     HandleFriendAdd(d),
		"FRIEND_REQ_LIST_REQ": HandleFriendRequestList(d),
		"FRIEND_ACCEPT_REQ":  HandleFriendAccept(d),
		"FRIEND_REJECT_REQ":  HandleFriendReject(d),
		"FRIEND_DELETE_REQ":  HandleFriendDelete(d),

		"OPEN_SINGLE_CONV_REQ": HandleOpenSingleConv(d),
		"CREATE_GROUP_REQ":     HandleCreateGroup(d),
		"MUTE_MEMBER_REQ":      HandleMuteMember(d),
		"UNMUTE_MEMBER_REQ":    HandleUnmuteMember(d),
		"SET_ADMIN_REQ":        HandleSetAdmin(d),
		"LEAVE_CONV_REQ":       HandleLeaveConv(d),

		"GROUP_SEARCH_REQ":        HandleGroupSearch(d),
		"GROUP_JOIN_REQ":          HandleGroupJoin(d),
		"GROUP_JOIN_REQ_LIST_REQ": HandleGroupJoinRequestList(d),
		"GROUP_JOIN_ACCEPT_REQ":   HandleGroupJoinAccept(d),

		"REACT_REQ": HandleReact(d),
	}
}
