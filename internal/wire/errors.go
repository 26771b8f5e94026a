// Package wire holds the JSON payload shapes and wire-stable error codes
// exchanged over the protocol codec, and the constructors handlers use to
// build response frames. It plays the role tinode's datamodel.go plays for
// the teacher: every outward-facing message shape lives here, independent
// of how a handler computed it.
package wire

// Error code constants, see spec.md §7. These strings are part of the wire
// contract; never rename one without a protocol version bump.
const (
	ErrInvalidJSON      = "INVALID_JSON"
	ErrInvalidParam     = "INVALID_PARAM"
	ErrPasswordMismatch = "PASSWORD_MISMATCH"

	ErrNotAuthenticated = "NOT_AUTHENTICATED"
	ErrLoginFailed      = "LOGIN_FAILED"
	ErrAccountExists    = "ACCOUNT_EXISTS"

	ErrForbidden       = "FORBIDDEN"
	ErrPermissionDenied = "PERMISSION_DENIED"
	ErrNoPermission    = "NO_PERMISSION"

	ErrNotFound       = "NOT_FOUND"
	ErrNotMember      = "NOT_MEMBER"
	ErrNotFriend      = "NOT_FRIEND"
	ErrAlreadyFriend  = "ALREADY_FRIEND"
	ErrAlreadyPending = "ALREADY_PENDING"
	ErrAlreadyMember  = "ALREADY_MEMBER"
	ErrAlreadyHandled = "ALREADY_HANDLED"
	ErrInvalidState   = "INVALID_STATE"
	ErrMuted          = "MUTED"

	ErrServer         = "SERVER_ERROR"
	ErrServerErrorDB  = "SERVER_ERROR_DB"
	ErrServerErrorPush = "SERVER_ERROR_PUSH"
	ErrProtocolError  = "PROTOCOL_ERROR"

	// Supplemented by SPEC_FULL.md M9 (reactions).
	ErrCannotReactOwn  = "CANNOT_REACT_OWN"
	ErrMessageNotFound = "MESSAGE_NOT_FOUND"
)

// Envelope is embedded at the front of every response payload.
type Envelope struct {
	OK        bool   `json:"ok"`
	ErrorCode string `json:"errorCode,omitempty"`
	ErrorMsg  string `json:"errorMsg,omitempty"`
}

// Fail builds a failure envelope for the given wire error code and a
// human-readable detail message. Handlers marshal this together with any
// command-specific fields they still want to echo (e.g. clientMsgId).
func Fail(code, msg string) Envelope {
	return Envelope{OK: false, ErrorCode: code, ErrorMsg: msg}
}

// OK builds a bare success envelope. Handlers compose it with their own
// struct fields via anonymous embedding.
func OK() Envelope {
	return Envelope{OK: true}
}
