package handlers

import (
	"encoding/json"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/chatd/chatd/internal/convcache"
	"github.com/chatd/chatd/internal/hub"
	"github.com/chatd/chatd/internal/session"
	"github.com/chatd/chatd/internal/store/adapter/mysql"
	"github.com/chatd/chatd/internal/store/types"
)

// fakeAdapter is an in-memory stand-in for adapter.Adapter, enough to drive
// REGISTER/LOGIN. Methods the auth handlers never call panic on use so a
// test that unexpectedly reaches them fails loudly instead of silently.
type fakeAdapter struct {
	usersByAccount map[string]*types.User
	usersByID      map[int64]*types.User
	nextID         int64
	worldID        int64
	members        map[int64]map[int64]types.MemberRole
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{
		usersByAccount: make(map[string]*types.User),
		usersByID:      make(map[int64]*types.User),
		worldID:        1,
		members:        make(map[int64]map[int64]types.MemberRole),
	}
}

func (f *fakeAdapter) Open(dsn string) error    { panic("not implemented") }
func (f *fakeAdapter) Close() error             { panic("not implemented") }
func (f *fakeAdapter) CreateSchema() error      { panic("not implemented") }

func (f *fakeAdapter) UserCreate(u *types.User) error {
	f.nextID++
	u.ID = f.nextID
	cp := *u
	f.usersByAccount[u.Account] = &cp
	f.usersByID[u.ID] = &cp
	return nil
}

func (f *fakeAdapter) UserGetByAccount(account string) (*types.User, error) {
	u, ok := f.usersByAccount[account]
	if !ok {
		return nil, mysql.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeAdapter) UserGet(id int64) (*types.User, error) {
	u, ok := f.usersByID[id]
	if !ok {
		return nil, mysql.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeAdapter) UserUpdateProfile(id int64, displayName string) error { panic("not implemented") }
func (f *fakeAdapter) UserUpdateAvatar(id int64, avatarPath string) error   { panic("not implemented") }

func (f *fakeAdapter) WorldConversationID() (int64, error) { return f.worldID, nil }
func (f *fakeAdapter) ConversationGet(id int64) (*types.Conversation, error) {
	panic("not implemented")
}
func (f *fakeAdapter) ConversationCreateGroup(name string, ownerID int64, memberIDs []int64) (int64, error) {
	panic("not implemented")
}
func (f *fakeAdapter) ConversationCreateSingle(u1, u2 int64) (int64, bool, error) {
	panic("not implemented")
}
func (f *fakeAdapter) ConversationFindSingle(u1, u2 int64) (int64, error) { panic("not implemented") }
func (f *fakeAdapter) ConversationsForUser(userID int64) ([]types.Conversation, error) {
	panic("not implemented")
}
func (f *fakeAdapter) ConversationDissolve(conversationID int64) error { panic("not implemented") }

func (f *fakeAdapter) MemberGet(conversationID, userID int64) (*types.Member, error) {
	panic("not implemented")
}
func (f *fakeAdapter) MemberList(conversationID int64) ([]types.MemberInfo, error) {
	panic("not implemented")
}
func (f *fakeAdapter) MemberIDs(conversationID int64) ([]int64, error) { panic("not implemented") }
func (f *fakeAdapter) MemberAdd(conversationID, userID int64, role types.MemberRole) error {
	if f.members[conversationID] == nil {
		f.members[conversationID] = make(map[int64]types.MemberRole)
	}
	f.members[conversationID][userID] = role
	return nil
}
func (f *fakeAdapter) MemberRemove(conversationID, userID int64) error { panic("not implemented") }
func (f *fakeAdapter) MemberCount(conversationID int64) (int, error)   { panic("not implemented") }
func (f *fakeAdapter) MemberSetRole(conversationID, userID int64, role types.MemberRole) error {
	panic("not implemented")
}
func (f *fakeAdapter) MemberSetMute(conversationID, userID int64, mutedUntilMs int64) error {
	panic("not implemented")
}

func (f *fakeAdapter) AllocateSeqAndInsert(msg *types.Message) (int64, int64, error) {
	panic("not implemented")
}
func (f *fakeAdapter) HistoryAfter(conversationID, afterSeq int64, limit int) ([]types.Message, error) {
	panic("not implemented")
}
func (f *fakeAdapter) HistoryBefore(conversationID, beforeSeq int64, limit int) ([]types.Message, error) {
	panic("not implemented")
}
func (f *fakeAdapter) HistoryLatest(conversationID int64, limit int) ([]types.Message, error) {
	panic("not implemented")
}
func (f *fakeAdapter) LastMessageMeta(conversationID int64) (int64, int64, error) {
	panic("not implemented")
}

func (f *fakeAdapter) MessageSenderID(messageID int64) (int64, error) { panic("not implemented") }
func (f *fakeAdapter) ReactionToggle(messageID, userID int64, emoji string) (bool, error) {
	panic("not implemented")
}

func (f *fakeAdapter) FriendsOf(userID int64) ([]types.Friend, error) { panic("not implemented") }
func (f *fakeAdapter) AreFriends(u1, u2 int64) (bool, error)          { panic("not implemented") }
func (f *fakeAdapter) FriendAddSymmetric(u1, u2 int64) error          { panic("not implemented") }
func (f *fakeAdapter) FriendDeleteSymmetric(u1, u2 int64) error       { panic("not implemented") }

func (f *fakeAdapter) FriendRequestCreate(r *types.FriendRequest) (int64, error) {
	panic("not implemented")
}
func (f *fakeAdapter) FriendRequestPendingBetween(u1, u2 int64) (*types.FriendRequest, error) {
	panic("not implemented")
}
func (f *fakeAdapter) FriendRequestGet(id int64) (*types.FriendRequest, error) {
	panic("not implemented")
}
func (f *fakeAdapter) FriendRequestsForUser(userID int64) ([]types.FriendRequest, error) {
	panic("not implemented")
}
func (f *fakeAdapter) FriendRequestSetStatus(id int64, status types.RequestStatus, handledAtMs int64) error {
	panic("not implemented")
}

func (f *fakeAdapter) UserSearch(query string, excludeUserID int64) ([]types.User, error) {
	panic("not implemented")
}

func (f *fakeAdapter) GroupJoinRequestCreate(r *types.GroupJoinRequest) (int64, error) {
	panic("not implemented")
}
func (f *fakeAdapter) GroupJoinRequestPending(userID, groupID int64) (*types.GroupJoinRequest, error) {
	panic("not implemented")
}
func (f *fakeAdapter) GroupJoinRequestGet(id int64) (*types.GroupJoinRequest, error) {
	panic("not implemented")
}
func (f *fakeAdapter) GroupJoinRequestsForGroup(groupID int64) ([]types.GroupJoinRequest, error) {
	panic("not implemented")
}
func (f *fakeAdapter) GroupJoinRequestSetStatus(id int64, status types.RequestStatus, handlerUserID, handledAtMs int64) error {
	panic("not implemented")
}
func (f *fakeAdapter) GroupSearch(query string) ([]types.Conversation, error) {
	panic("not implemented")
}

// fakeVerifier avoids paying bcrypt's cost in unit tests.
type fakeVerifier struct{}

func (fakeVerifier) Hash(password string) (string, error) { return "hashed:" + password, nil }
func (fakeVerifier) Verify(stored, attempt string) bool    { return stored == "hashed:"+attempt }

func newTestDeps(store *fakeAdapter) *Deps {
	d := NewDeps(store, convcache.New(time.Minute), hub.New(nil), nil, nil, fakeVerifier{}, nil)
	return d
}

func newPipeSession(t *testing.T, dispatch session.Dispatch) (*session.Session, net.Conn) {
	t.Helper()
	server, client := net.Pipe()
	t.Cleanup(func() { client.Close() })
	s := session.New(server, dispatch, 64*1024, nil, nil)
	// Serve starts the writer goroutine that actually drains QueueOut onto
	// the wire; its read loop just blocks on the unused client->server
	// direction until the test closes client in cleanup.
	go s.Serve()
	return s, client
}

func readFrame(t *testing.T, client net.Conn) (command string, payload map[string]interface{}) {
	t.Helper()
	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 4096)
	n, err := client.Read(buf)
	if err != nil {
		t.Fatalf("reading frame: %v", err)
	}
	line := strings.TrimSuffix(string(buf[:n]), "\n")
	idx := strings.Index(line, ":")
	if idx < 0 {
		t.Fatalf("malformed frame: %q", line)
	}
	command = line[:idx]
	payload = map[string]interface{}{}
	if err := json.Unmarshal([]byte(line[idx+1:]), &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	return command, payload
}

func TestHandleRegisterCreatesUserAndJoinsWorld(t *testing.T) {
	store := newFakeAdapter()
	d := newTestDeps(store)
	s, client := newPipeSession(t, nil)

	go HandleRegister(d)(s, `{"account":"alice","password":"pw123","confirmPassword":"pw123"}`)

	cmd, payload := readFrame(t, client)
	if cmd != "REGISTER_RESP" {
		t.Fatalf("expected REGISTER_RESP, got %s", cmd)
	}
	if payload["ok"] != true {
		t.Fatalf("expected ok:true, got %v", payload)
	}
	if payload["account"] != "alice" {
		t.Fatalf("expected echoed account, got %v", payload)
	}
	if store.members[store.worldID][1] != types.RoleMember {
		t.Fatalf("expected the new user auto-joined to the world conversation as MEMBER")
	}
}

func TestHandleRegisterRejectsPasswordMismatch(t *testing.T) {
	store := newFakeAdapter()
	d := newTestDeps(store)
	s, client := newPipeSession(t, nil)

	go HandleRegister(d)(s, `{"account":"alice","password":"pw123","confirmPassword":"other"}`)

	cmd, payload := readFrame(t, client)
	if cmd != "REGISTER_RESP" {
		t.Fatalf("expected REGISTER_RESP, got %s", cmd)
	}
	if payload["ok"] != false || payload["errorCode"] != "PASSWORD_MISMATCH" {
		t.Fatalf("expected PASSWORD_MISMATCH failure, got %v", payload)
	}
}

func TestHandleRegisterRejectsDuplicateAccount(t *testing.T) {
	store := newFakeAdapter()
	store.UserCreate(&types.User{Account: "alice", Password: "hashed:pw123"})
	d := newTestDeps(store)
	s, client := newPipeSession(t, nil)

	go HandleRegister(d)(s, `{"account":"alice","password":"pw123","confirmPassword":"pw123"}`)

	cmd, payload := readFrame(t, client)
	if cmd != "REGISTER_RESP" {
		t.Fatalf("expected REGISTER_RESP, got %s", cmd)
	}
	if payload["ok"] != false || payload["errorCode"] != "ACCOUNT_EXISTS" {
		t.Fatalf("expected ACCOUNT_EXISTS failure, got %v", payload)
	}
}

func TestHandleLoginSucceedsAndIndexesSession(t *testing.T) {
	store := newFakeAdapter()
	store.UserCreate(&types.User{Account: "alice", Password: "hashed:pw123", DisplayName: "Alice"})
	d := newTestDeps(store)
	s, client := newPipeSession(t, nil)

	go HandleLogin(d)(s, `{"account":"alice","password":"pw123"}`)

	cmd, payload := readFrame(t, client)
	if cmd != "LOGIN_RESP" {
		t.Fatalf("expected LOGIN_RESP, got %s", cmd)
	}
	if payload["ok"] != true {
		t.Fatalf("expected ok:true, got %v", payload)
	}
	if !s.Authenticated() {
		t.Fatal("expected the session to be authenticated after a successful LOGIN")
	}
	if s.UserID() != 1 {
		t.Fatalf("expected session userID 1, got %d", s.UserID())
	}
}

func TestHandleLoginFailsOnUnknownAccount(t *testing.T) {
	store := newFakeAdapter()
	d := newTestDeps(store)
	s, client := newPipeSession(t, nil)

	go HandleLogin(d)(s, `{"account":"ghost","password":"pw123"}`)

	cmd, payload := readFrame(t, client)
	if cmd != "LOGIN_RESP" {
		t.Fatalf("expected LOGIN_RESP, got %s", cmd)
	}
	if payload["ok"] != false || payload["errorCode"] != "LOGIN_FAILED" {
		t.Fatalf("expected LOGIN_FAILED, got %v", payload)
	}
	if s.Authenticated() {
		t.Fatal("expected the session to remain unauthenticated")
	}
}

func TestHandleLoginFailsOnWrongPassword(t *testing.T) {
	store := newFakeAdapter()
	store.UserCreate(&types.User{Account: "alice", Password: "hashed:pw123"})
	d := newTestDeps(store)
	s, client := newPipeSession(t, nil)

	go HandleLogin(d)(s, `{"account":"alice","password":"wrong"}`)

	cmd, payload := readFrame(t, client)
	if cmd != "LOGIN_RESP" {
		t.Fatalf("expected LOGIN_RESP, got %s", cmd)
	}
	if payload["ok"] != false || payload["errorCode"] != "LOGIN_FAILED" {
		t.Fatalf("expected LOGIN_FAILED, got %v", payload)
	}
}
