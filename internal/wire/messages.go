package wire

// All IDs cross the wire as decimal strings (spec.md §6) to avoid client
// integer-precision loss. The Go side keeps them as int64 internally and
// converts at the json boundary with ID/ParseID (id.go).

// --- REGISTER ---

type RegisterReq struct {
	Account         string `json:"account" validate:"required,min=3,max=64"`
	Password        string `json:"password" validate:"required,min=1,max=256"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

type RegisterResp struct {
	Envelope
	UserID      string `json:"userId,omitempty"`
	Account     string `json:"account,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
}

// --- LOGIN ---

type LoginReq struct {
	Account  string `json:"account" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResp struct {
	Envelope
	UserID             string `json:"userId,omitempty"`
	Account            string `json:"account,omitempty"`
	DisplayName        string `json:"displayName,omitempty"`
	AvatarPath         string `json:"avatarPath,omitempty"`
	WorldConversationID string `json:"worldConversationId,omitempty"`
}

// --- PING / PONG ---

type PongResp struct {
	Envelope
}

// --- SEND_MSG / SEND_ACK / MSG_PUSH ---

type SendMsgReq struct {
	ConversationID   string `json:"conversationId"`
	ConversationType string `json:"conversationType"`
	SenderID         string `json:"senderId"`
	ClientMsgID      string `json:"clientMsgId" validate:"required"`
	MsgType          string `json:"msgType"`
	Content          string `json:"content" validate:"required"`
}

type SendAckResp struct {
	Envelope
	ClientMsgID  string `json:"clientMsgId,omitempty"`
	ServerMsgID  string `json:"serverMsgId,omitempty"`
	ServerTimeMs int64  `json:"serverTimeMs,omitempty"`
	Seq          int64  `json:"seq,omitempty"`
}

type MsgPush struct {
	ConversationID     string `json:"conversationId"`
	ConversationType   string `json:"conversationType"`
	ServerMsgID        string `json:"serverMsgId"`
	SenderID           string `json:"senderId"`
	SenderDisplayName  string `json:"senderDisplayName,omitempty"`
	MsgType            string `json:"msgType"`
	ServerTimeMs       int64  `json:"serverTimeMs"`
	Seq                int64  `json:"seq"`
	Content            string `json:"content"`
}

// --- HISTORY_REQ ---

type HistoryReq struct {
	ConversationID string `json:"conversationId"`
	BeforeSeq      int64  `json:"beforeSeq,omitempty"`
	AfterSeq       int64  `json:"afterSeq,omitempty"`
	Limit          int    `json:"limit,omitempty"`
}

type HistoryMessage struct {
	ServerMsgID       string `json:"serverMsgId"`
	SenderID          string `json:"senderId"`
	SenderDisplayName string `json:"senderDisplayName,omitempty"`
	MsgType           string `json:"msgType"`
	Content           string `json:"content"`
	Seq               int64  `json:"seq"`
	ServerTimeMs      int64  `json:"serverTimeMs"`
}

type HistoryResp struct {
	Envelope
	ConversationID string           `json:"conversationId,omitempty"`
	Messages       []HistoryMessage `json:"messages"`
	HasMore        bool             `json:"hasMore"`
	NextBeforeSeq  int64            `json:"nextBeforeSeq"`
}

// --- CONV_LIST_REQ ---

type ConvSummary struct {
	ConversationID   string `json:"conversationId"`
	ConversationType string `json:"conversationType"`
	Title            string `json:"title"`
	LastSeq          int64  `json:"lastSeq"`
	LastServerTimeMs int64  `json:"lastServerTimeMs"`
}

type ConvListResp struct {
	Envelope
	Conversations []ConvSummary `json:"conversations"`
}

// --- CONV_MEMBERS_REQ ---

type ConvMembersReq struct {
	ConversationID string `json:"conversationId" validate:"required"`
}

type MemberInfo struct {
	UserID        string `json:"userId"`
	DisplayName   string `json:"displayName"`
	Role          string `json:"role"`
	MutedUntilMs  int64  `json:"mutedUntilMs"`
}

type ConvMembersResp struct {
	Envelope
	ConversationID string       `json:"conversationId,omitempty"`
	Members        []MemberInfo `json:"members"`
}

// --- PROFILE_UPDATE ---

type ProfileUpdateReq struct {
	DisplayName string `json:"displayName" validate:"required,min=1,max=64"`
}

type ProfileUpdateResp struct {
	Envelope
	DisplayName string `json:"displayName,omitempty"`
}

// --- AVATAR_UPDATE ---

type AvatarUpdateReq struct {
	AvatarBase64 string `json:"avatarBase64" validate:"required"`
}

type AvatarUpdateResp struct {
	Envelope
	AvatarPath string `json:"avatarPath,omitempty"`
}

// --- FRIEND_* ---

type FriendListResp struct {
	Envelope
	Friends []FriendInfo `json:"friends"`
}

type FriendInfo struct {
	UserID      string `json:"userId"`
	Account     string `json:"account"`
	DisplayName string `json:"displayName"`
}

type FriendSearchReq struct {
	Query string `json:"query" validate:"required"`
}

type FriendSearchResp struct {
	Envelope
	Results []FriendInfo `json:"results"`
}

type FriendAddReq struct {
	TargetUserID string `json:"targetUserId" validate:"required"`
	HelloMsg     string `json:"helloMsg,omitempty"`
}

type FriendAddResp struct {
	Envelope
	RequestID string `json:"requestId,omitempty"`
}

type FriendReqInfo struct {
	RequestID string `json:"requestId"`
	FromUserID string `json:"fromUserId"`
	FromAccount string `json:"fromAccount"`
	FromDisplayName string `json:"fromDisplayName"`
	Status    string `json:"status"`
	Source    string `json:"source,omitempty"`
	HelloMsg  string `json:"helloMsg,omitempty"`
	CreatedAt int64  `json:"createdAt"`
	HandledAt int64  `json:"handledAt,omitempty"`
}

type FriendReqListResp struct {
	Envelope
	Requests []FriendReqInfo `json:"requests"`
}

type FriendAcceptReq struct {
	RequestID string `json:"requestId" validate:"required"`
}

type FriendAcceptResp struct {
	Envelope
	ConversationID string `json:"conversationId,omitempty"`
}

type FriendRejectReq struct {
	RequestID string `json:"requestId" validate:"required"`
}

type FriendRejectResp struct {
	Envelope
}

type FriendDeleteReq struct {
	TargetUserID string `json:"targetUserId" validate:"required"`
}

type FriendDeleteResp struct {
	Envelope
}

// --- OPEN_SINGLE_CONV_REQ ---

type OpenSingleConvReq struct {
	PeerUserID string `json:"peerUserId" validate:"required"`
}

type OpenSingleConvResp struct {
	Envelope
	ConversationID string `json:"conversationId,omitempty"`
	Created        bool   `json:"created,omitempty"`
}

// --- CREATE_GROUP_REQ ---

type CreateGroupReq struct {
	Name      string   `json:"name,omitempty"`
	MemberIDs []string `json:"memberIds" validate:"required,min=2"`
}

type CreateGroupResp struct {
	Envelope
	ConversationID string `json:"conversationId,omitempty"`
	Name           string `json:"name,omitempty"`
}

// --- MUTE/UNMUTE/SET_ADMIN ---

type MuteMemberReq struct {
	ConversationID  string `json:"conversationId" validate:"required"`
	TargetUserID    string `json:"targetUserId" validate:"required"`
	DurationSeconds int64  `json:"durationSeconds" validate:"required,gt=0"`
}

type MuteMemberResp struct {
	Envelope
	MutedUntilMs int64 `json:"mutedUntilMs,omitempty"`
}

type UnmuteMemberReq struct {
	ConversationID string `json:"conversationId" validate:"required"`
	TargetUserID   string `json:"targetUserId" validate:"required"`
}

type UnmuteMemberResp struct {
	Envelope
}

type SetAdminReq struct {
	ConversationID string `json:"conversationId" validate:"required"`
	TargetUserID   string `json:"targetUserId" validate:"required"`
	IsAdmin        bool   `json:"isAdmin"`
}

type SetAdminResp struct {
	Envelope
}

// --- LEAVE_CONV_REQ ---

type LeaveConvReq struct {
	ConversationID string `json:"conversationId" validate:"required"`
}

type LeaveConvResp struct {
	Envelope
	Dissolved bool `json:"dissolved"`
}

// --- GROUP_* ---

type GroupSearchReq struct {
	Query string `json:"query" validate:"required"`
}

type GroupSummary struct {
	ConversationID string `json:"conversationId"`
	Name           string `json:"name"`
	MemberCount    int    `json:"memberCount"`
}

type GroupSearchResp struct {
	Envelope
	Groups []GroupSummary `json:"groups"`
}

type GroupJoinReq struct {
	GroupID  string `json:"groupId" validate:"required"`
	HelloMsg string `json:"helloMsg,omitempty"`
}

type GroupJoinResp struct {
	Envelope
	RequestID string `json:"requestId,omitempty"`
}

type GroupJoinReqInfo struct {
	RequestID       string `json:"requestId"`
	FromUserID      string `json:"fromUserId"`
	FromAccount     string `json:"fromAccount"`
	FromDisplayName string `json:"fromDisplayName"`
	GroupID         string `json:"groupId"`
	Status          string `json:"status"`
	HelloMsg        string `json:"helloMsg,omitempty"`
	CreatedAt       int64  `json:"createdAt"`
	HandledAt       int64  `json:"handledAt,omitempty"`
}

type GroupJoinReqListReq struct {
	GroupID string `json:"groupId" validate:"required"`
}

type GroupJoinReqListResp struct {
	Envelope
	Requests []GroupJoinReqInfo `json:"requests"`
}

type GroupJoinAcceptReq struct {
	RequestID string `json:"requestId" validate:"required"`
	Approve   bool   `json:"approve"`
}

type GroupJoinAcceptResp struct {
	Envelope
}

// --- REACT_REQ / REACTION_PUSH (SPEC_FULL M9) ---

type ReactReq struct {
	ConversationID string `json:"conversationId" validate:"required"`
	ServerMsgID    string `json:"serverMsgId" validate:"required"`
	Emoji          string `json:"emoji" validate:"required"`
}

type ReactResp struct {
	Envelope
	Removed bool `json:"removed"`
}

type ReactionPush struct {
	ConversationID string `json:"conversationId"`
	ServerMsgID    string `json:"serverMsgId"`
	UserID         string `json:"userId"`
	Emoji          string `json:"emoji"`
	Removed        bool   `json:"removed"`
}

// --- ECHO / ERROR ---

type EchoResp struct {
	Command string `json:"command"`
}

type ErrorPush struct {
	Envelope
}
