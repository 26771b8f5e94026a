// Package types holds the persisted domain entities, mirroring the role
// tinode's server/store/types package plays for the teacher: plain structs
// with db/json tags, no behavior beyond small predicates.
package types

// ConversationType enumerates the two conversation shapes of spec.md §3.
type ConversationType string

const (
	ConvSingle ConversationType = "SINGLE"
	ConvGroup  ConversationType = "GROUP"
)

// MemberRole enumerates conversation membership roles.
type MemberRole string

const (
	RoleOwner  MemberRole = "OWNER"
	RoleAdmin  MemberRole = "ADMIN"
	RoleMember MemberRole = "MEMBER"
)

// MsgType enumerates stored message kinds.
type MsgType string

const (
	MsgText   MsgType = "TEXT"
	MsgSystem MsgType = "SYSTEM"
)

// RequestStatus enumerates friend/group-join request lifecycle states.
type RequestStatus string

const (
	StatusPending  RequestStatus = "PENDING"
	StatusAccepted RequestStatus = "ACCEPTED"
	StatusRejected RequestStatus = "REJECTED"
)

// User is a registered account.
type User struct {
	ID          int64  `db:"id" json:"id"`
	Account     string `db:"account" json:"account"`
	Password    string `db:"password" json:"-"`
	DisplayName string `db:"display_name" json:"displayName"`
	AvatarPath  string `db:"avatar_path" json:"avatarPath"`
}

// Conversation is a chat room: either the world GROUP, an ad-hoc GROUP, or a
// SINGLE between exactly two users.
type Conversation struct {
	ID          int64            `db:"id" json:"id"`
	Type        ConversationType `db:"type" json:"type"`
	Name        string           `db:"name" json:"name"`
	OwnerUserID int64            `db:"owner_user_id" json:"ownerUserId"`
}

// Member is one row of a conversation's membership.
type Member struct {
	ConversationID int64      `db:"conversation_id" json:"conversationId"`
	UserID         int64      `db:"user_id" json:"userId"`
	Role           MemberRole `db:"role" json:"role"`
	MutedUntilMs   int64      `db:"muted_until_ms" json:"mutedUntilMs"`
}

// IsMuted reports whether the member is muted at the given wall-clock time.
func (m Member) IsMuted(nowMs int64) bool {
	return m.MutedUntilMs > 0 && m.MutedUntilMs > nowMs
}

// MemberInfo joins a Member row with the user's profile, used for
// CONV_MEMBERS_RESP and the member-list cache.
type MemberInfo struct {
	UserID       int64      `db:"user_id" json:"userId"`
	DisplayName  string     `db:"display_name" json:"displayName"`
	Role         MemberRole `db:"role" json:"role"`
	MutedUntilMs int64      `db:"muted_until_ms" json:"mutedUntilMs"`
}

// Message is one persisted message in a conversation's dense seq sequence.
type Message struct {
	ID             int64   `db:"id" json:"id"`
	ConversationID int64   `db:"conversation_id" json:"conversationId"`
	SenderID       int64   `db:"sender_id" json:"senderId"`
	Seq            int64   `db:"seq" json:"seq"`
	MsgType        MsgType `db:"msg_type" json:"msgType"`
	Content        string  `db:"content" json:"content"`
	ServerTimeMs   int64   `db:"server_time_ms" json:"serverTimeMs"`
}

// Friend is one direction of a symmetric friendship row.
type Friend struct {
	UserID       int64 `db:"user_id" json:"userId"`
	FriendUserID int64 `db:"friend_user_id" json:"friendUserId"`
}

// FriendRequest tracks a pending/accepted/rejected friend invitation.
type FriendRequest struct {
	ID        int64         `db:"id" json:"id"`
	FromUser  int64         `db:"from_user" json:"fromUser"`
	ToUser    int64         `db:"to_user" json:"toUser"`
	Status    RequestStatus `db:"status" json:"status"`
	Source    string        `db:"source" json:"source"`
	HelloMsg  string        `db:"hello_msg" json:"helloMsg"`
	CreatedAt int64         `db:"created_at" json:"createdAt"`
	HandledAt int64         `db:"handled_at" json:"handledAt"`
}

// GroupJoinRequest tracks a pending/accepted/rejected group join request.
type GroupJoinRequest struct {
	ID            int64         `db:"id" json:"id"`
	FromUser      int64         `db:"from_user" json:"fromUser"`
	GroupID       int64         `db:"group_id" json:"groupId"`
	Status        RequestStatus `db:"status" json:"status"`
	HelloMsg      string        `db:"hello_msg" json:"helloMsg"`
	HandlerUserID int64         `db:"handler_user_id" json:"handlerUserId"`
	CreatedAt     int64         `db:"created_at" json:"createdAt"`
	HandledAt     int64         `db:"handled_at" json:"handledAt"`
}

// Reaction is one user's reaction to one message (SPEC_FULL.md M9).
type Reaction struct {
	MessageID int64  `db:"message_id" json:"messageId"`
	UserID    int64  `db:"user_id" json:"userId"`
	Emoji     string `db:"emoji" json:"emoji"`
}
