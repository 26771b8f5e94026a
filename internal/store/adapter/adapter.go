// Package adapter declares the persistence-gateway contract implemented by
// internal/store/adapter/mysql. Handlers and the hub talk only to this
// interface, the way tinode's handlers talk only to store.Store / the
// Adapter interface rather than to a concrete driver.
package adapter

import "github.com/chatd/chatd/internal/store/types"

// Adapter is the single relational persistence gateway. One implementation
// (mysql, via sqlx) backs it; see SPEC_FULL.md's DOMAIN STACK section for
// why the teacher's other adapters (mongo, rethinkdb) were not carried
// forward.
type Adapter interface {
	Open(dsn string) error
	Close() error
	CreateSchema() error

	// Users

	UserCreate(u *types.User) error
	UserGetByAccount(account string) (*types.User, error)
	UserGet(id int64) (*types.User, error)
	UserUpdateProfile(id int64, displayName string) error
	UserUpdateAvatar(id int64, avatarPath string) error

	// Conversations & membership

	WorldConversationID() (int64, error)
	ConversationGet(id int64) (*types.Conversation, error)
	ConversationCreateGroup(name string, ownerID int64, memberIDs []int64) (int64, error)
	ConversationCreateSingle(u1, u2 int64) (id int64, created bool, err error)
	ConversationFindSingle(u1, u2 int64) (int64, error)
	ConversationsForUser(userID int64) ([]types.Conversation, error)
	ConversationDissolve(conversationID int64) error

	MemberGet(conversationID, userID int64) (*types.Member, error)
	MemberList(conversationID int64) ([]types.MemberInfo, error)
	MemberIDs(conversationID int64) ([]int64, error)
	MemberAdd(conversationID, userID int64, role types.MemberRole) error
	MemberRemove(conversationID, userID int64) error
	MemberCount(conversationID int64) (int, error)
	MemberSetRole(conversationID, userID int64, role types.MemberRole) error
	MemberSetMute(conversationID, userID int64, mutedUntilMs int64) error

	// Messages & sequencing

	// AllocateSeqAndInsert atomically advances the conversation's seq
	// counter and inserts the message in the same transaction (spec.md
	// §4.5). Returns the assigned message id and seq.
	AllocateSeqAndInsert(msg *types.Message) (id int64, seq int64, err error)
	HistoryAfter(conversationID, afterSeq int64, limit int) ([]types.Message, error)
	HistoryBefore(conversationID, beforeSeq int64, limit int) ([]types.Message, error)
	HistoryLatest(conversationID int64, limit int) ([]types.Message, error)
	LastMessageMeta(conversationID int64) (seq int64, serverTimeMs int64, err error)

	// Reactions (SPEC_FULL.md M9)

	MessageSenderID(messageID int64) (int64, error)
	ReactionToggle(messageID, userID int64, emoji string) (removed bool, err error)

	// Friends

	FriendsOf(userID int64) ([]types.Friend, error)
	AreFriends(u1, u2 int64) (bool, error)
	FriendAddSymmetric(u1, u2 int64) error
	FriendDeleteSymmetric(u1, u2 int64) error

	FriendRequestCreate(r *types.FriendRequest) (int64, error)
	FriendRequestPendingBetween(u1, u2 int64) (*types.FriendRequest, error)
	FriendRequestGet(id int64) (*types.FriendRequest, error)
	FriendRequestsForUser(userID int64) ([]types.FriendRequest, error)
	FriendRequestSetStatus(id int64, status types.RequestStatus, handledAtMs int64) error

	UserSearch(query string, excludeUserID int64) ([]types.User, error)

	// Group join requests

	GroupJoinRequestCreate(r *types.GroupJoinRequest) (int64, error)
	GroupJoinRequestPending(userID, groupID int64) (*types.GroupJoinRequest, error)
	GroupJoinRequestGet(id int64) (*types.GroupJoinRequest, error)
	GroupJoinRequestsForGroup(groupID int64) ([]types.GroupJoinRequest, error)
	GroupJoinRequestSetStatus(id int64, status types.RequestStatus, handlerUserID, handledAtMs int64) error
	GroupSearch(query string) ([]types.Conversation, error)
}
