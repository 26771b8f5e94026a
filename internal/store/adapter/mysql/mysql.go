// Package mysql implements adapter.Adapter over MySQL using sqlx, the
// combination tinode itself ships (go-sql-driver/mysql + jmoiron/sqlx).
package mysql

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	_ "github.com/go-sql-driver/mysql"

	"github.com/chatd/chatd/internal/store/types"
)

// ErrNotFound is returned by single-row lookups that found nothing.
var ErrNotFound = errors.New("mysql: not found")

// Adapter is the sqlx-backed implementation of adapter.Adapter.
type Adapter struct {
	db *sqlx.DB
}

// New constructs an unopened adapter; call Open to establish the pool.
func New() *Adapter {
	return &Adapter{}
}

// Open connects and tunes the connection pool the way the teacher's own
// go-sql-driver/mysql based tooling does (see tinode-db/main.go for the
// provenance of the pool-sizing convention).
func (a *Adapter) Open(dsn string) error {
	db, err := sqlx.Connect("mysql", dsn)
	if err != nil {
		return fmt.Errorf("mysql: connect: %w", err)
	}
	db.SetMaxOpenConns(64)
	db.SetMaxIdleConns(16)
	db.SetConnMaxLifetime(30 * time.Minute)
	if err := db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("mysql: ping: %w", err)
	}
	a.db = db
	return nil
}

func (a *Adapter) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

// CreateSchema creates the tables this adapter needs if they don't exist.
// Schema migration tooling proper is out of scope (spec.md §1 non-goals).
func (a *Adapter) CreateSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			account VARCHAR(64) NOT NULL UNIQUE,
			password VARCHAR(256) NOT NULL,
			display_name VARCHAR(64) NOT NULL,
			avatar_path VARCHAR(256) NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS conversations (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			type VARCHAR(8) NOT NULL,
			name VARCHAR(128) NOT NULL DEFAULT '',
			owner_user_id BIGINT NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS conversation_members (
			conversation_id BIGINT NOT NULL,
			user_id BIGINT NOT NULL,
			role VARCHAR(8) NOT NULL,
			muted_until_ms BIGINT NOT NULL DEFAULT 0,
			PRIMARY KEY (conversation_id, user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS single_conv_index (
			uid_lo BIGINT NOT NULL,
			uid_hi BIGINT NOT NULL,
			conversation_id BIGINT NOT NULL,
			PRIMARY KEY (uid_lo, uid_hi)
		)`,
		`CREATE TABLE IF NOT EXISTS conversation_seq (
			conversation_id BIGINT PRIMARY KEY,
			next_seq BIGINT NOT NULL DEFAULT 1
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			conversation_id BIGINT NOT NULL,
			sender_id BIGINT NOT NULL,
			seq BIGINT NOT NULL,
			msg_type VARCHAR(8) NOT NULL,
			content TEXT NOT NULL,
			server_time_ms BIGINT NOT NULL,
			UNIQUE KEY uniq_conv_seq (conversation_id, seq)
		)`,
		`CREATE TABLE IF NOT EXISTS reactions (
			message_id BIGINT NOT NULL,
			user_id BIGINT NOT NULL,
			emoji VARCHAR(32) NOT NULL,
			PRIMARY KEY (message_id, user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS friends (
			user_id BIGINT NOT NULL,
			friend_user_id BIGINT NOT NULL,
			PRIMARY KEY (user_id, friend_user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS friend_requests (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			from_user BIGINT NOT NULL,
			to_user BIGINT NOT NULL,
			status VARCHAR(8) NOT NULL,
			source VARCHAR(32) NOT NULL DEFAULT '',
			hello_msg VARCHAR(256) NOT NULL DEFAULT '',
			created_at BIGINT NOT NULL,
			handled_at BIGINT NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS group_join_requests (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			from_user BIGINT NOT NULL,
			group_id BIGINT NOT NULL,
			status VARCHAR(8) NOT NULL,
			hello_msg VARCHAR(256) NOT NULL DEFAULT '',
			handler_user_id BIGINT NOT NULL DEFAULT 0,
			created_at BIGINT NOT NULL,
			handled_at BIGINT NOT NULL DEFAULT 0
		)`,
	}
	for _, s := range stmts {
		if _, err := a.db.Exec(s); err != nil {
			return fmt.Errorf("mysql: create schema: %w", err)
		}
	}
	return nil
}

// --- Users ---

func (a *Adapter) UserCreate(u *types.User) error {
	res, err := a.db.Exec(
		`INSERT INTO users (account, password, display_name, avatar_path) VALUES (?, ?, ?, ?)`,
		u.Account, u.Password, u.DisplayName, u.AvatarPath)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = id
	return nil
}

func (a *Adapter) UserGetByAccount(account string) (*types.User, error) {
	var u types.User
	err := a.db.Get(&u, `SELECT id, account, password, display_name, avatar_path FROM users WHERE account = ?`, account)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (a *Adapter) UserGet(id int64) (*types.User, error) {
	var u types.User
	err := a.db.Get(&u, `SELECT id, account, password, display_name, avatar_path FROM users WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (a *Adapter) UserUpdateProfile(id int64, displayName string) error {
	_, err := a.db.Exec(`UPDATE users SET display_name = ? WHERE id = ?`, displayName, id)
	return err
}

func (a *Adapter) UserUpdateAvatar(id int64, avatarPath string) error {
	_, err := a.db.Exec(`UPDATE users SET avatar_path = ? WHERE id = ?`, avatarPath, id)
	return err
}

func (a *Adapter) UserSearch(query string, excludeUserID int64) ([]types.User, error) {
	var users []types.User
	like := "%" + query + "%"
	err := a.db.Select(&users,
		`SELECT id, account, password, display_name, avatar_path FROM users
		 WHERE (account LIKE ? OR display_name LIKE ?) AND id != ? LIMIT 50`,
		like, like, excludeUserID)
	return users, err
}

// --- Conversations & membership ---

const worldConversationName = "World"

func (a *Adapter) WorldConversationID() (int64, error) {
	var id int64
	err := a.db.Get(&id, `SELECT id FROM conversations WHERE type = 'GROUP' AND name = ? ORDER BY id LIMIT 1`, worldConversationName)
	if errors.Is(err, sql.ErrNoRows) {
		tx, err := a.db.Beginx()
		if err != nil {
			return 0, err
		}
		res, err := tx.Exec(`INSERT INTO conversations (type, name, owner_user_id) VALUES ('GROUP', ?, 0)`, worldConversationName)
		if err != nil {
			tx.Rollback()
			return 0, err
		}
		id, err = res.LastInsertId()
		if err != nil {
			tx.Rollback()
			return 0, err
		}
		if _, err := tx.Exec(`INSERT INTO conversation_seq (conversation_id, next_seq) VALUES (?, 1)`, id); err != nil {
			tx.Rollback()
			return 0, err
		}
		return id, tx.Commit()
	}
	return id, err
}

func (a *Adapter) ConversationGet(id int64) (*types.Conversation, error) {
	var c types.Conversation
	err := a.db.Get(&c, `SELECT id, type, name, owner_user_id FROM conversations WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (a *Adapter) ConversationCreateGroup(name string, ownerID int64, memberIDs []int64) (int64, error) {
	tx, err := a.db.Beginx()
	if err != nil {
		return 0, err
	}
	res, err := tx.Exec(`INSERT INTO conversations (type, name, owner_user_id) VALUES ('GROUP', ?, ?)`, name, ownerID)
	if err != nil {
		tx.Rollback()
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		tx.Rollback()
		return 0, err
	}
	if _, err := tx.Exec(`INSERT INTO conversation_members (conversation_id, user_id, role) VALUES (?, ?, 'OWNER')`, id, ownerID); err != nil {
		tx.Rollback()
		return 0, err
	}
	for _, m := range memberIDs {
		if m == ownerID {
			continue
		}
		if _, err := tx.Exec(`INSERT INTO conversation_members (conversation_id, user_id, role) VALUES (?, ?, 'MEMBER')`, id, m); err != nil {
			tx.Rollback()
			return 0, err
		}
	}
	if _, err := tx.Exec(`INSERT INTO conversation_seq (conversation_id, next_seq) VALUES (?, 1)`, id); err != nil {
		tx.Rollback()
		return 0, err
	}
	return id, tx.Commit()
}

func minMax(a, b int64) (int64, int64) {
	if a < b {
		return a, b
	}
	return b, a
}

func (a *Adapter) ConversationFindSingle(u1, u2 int64) (int64, error) {
	lo, hi := minMax(u1, u2)
	var id int64
	err := a.db.Get(&id, `SELECT conversation_id FROM single_conv_index WHERE uid_lo = ? AND uid_hi = ?`, lo, hi)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return id, err
}

func (a *Adapter) ConversationCreateSingle(u1, u2 int64) (int64, bool, error) {
	lo, hi := minMax(u1, u2)
	tx, err := a.db.Beginx()
	if err != nil {
		return 0, false, err
	}
	var existing int64
	err = tx.Get(&existing, `SELECT conversation_id FROM single_conv_index WHERE uid_lo = ? AND uid_hi = ? FOR UPDATE`, lo, hi)
	if err == nil {
		tx.Commit()
		return existing, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		tx.Rollback()
		return 0, false, err
	}
	res, err := tx.Exec(`INSERT INTO conversations (type, name, owner_user_id) VALUES ('SINGLE', '', 0)`)
	if err != nil {
		tx.Rollback()
		return 0, false, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		tx.Rollback()
		return 0, false, err
	}
	if _, err := tx.Exec(`INSERT INTO conversation_members (conversation_id, user_id, role) VALUES (?, ?, 'MEMBER'), (?, ?, 'MEMBER')`, id, u1, id, u2); err != nil {
		tx.Rollback()
		return 0, false, err
	}
	if _, err := tx.Exec(`INSERT INTO single_conv_index (uid_lo, uid_hi, conversation_id) VALUES (?, ?, ?)`, lo, hi, id); err != nil {
		tx.Rollback()
		return 0, false, err
	}
	if _, err := tx.Exec(`INSERT INTO conversation_seq (conversation_id, next_seq) VALUES (?, 1)`, id); err != nil {
		tx.Rollback()
		return 0, false, err
	}
	return id, true, tx.Commit()
}

func (a *Adapter) ConversationsForUser(userID int64) ([]types.Conversation, error) {
	var cs []types.Conversation
	err := a.db.Select(&cs,
		`SELECT c.id, c.type, c.name, c.owner_user_id FROM conversations c
		 JOIN conversation_members m ON m.conversation_id = c.id
		 WHERE m.user_id = ?`, userID)
	return cs, err
}

func (a *Adapter) ConversationDissolve(conversationID int64) error {
	tx, err := a.db.Beginx()
	if err != nil {
		return err
	}
	stmts := []string{
		`DELETE FROM reactions WHERE message_id IN (SELECT id FROM messages WHERE conversation_id = ?)`,
		`DELETE FROM messages WHERE conversation_id = ?`,
		`DELETE FROM conversation_members WHERE conversation_id = ?`,
		`DELETE FROM single_conv_index WHERE conversation_id = ?`,
		`DELETE FROM conversation_seq WHERE conversation_id = ?`,
		`DELETE FROM conversations WHERE id = ?`,
	}
	for _, s := range stmts {
		if _, err := tx.Exec(s, conversationID); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (a *Adapter) MemberGet(conversationID, userID int64) (*types.Member, error) {
	var m types.Member
	err := a.db.Get(&m, `SELECT conversation_id, user_id, role, muted_until_ms FROM conversation_members WHERE conversation_id = ? AND user_id = ?`, conversationID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (a *Adapter) MemberList(conversationID int64) ([]types.MemberInfo, error) {
	var ms []types.MemberInfo
	err := a.db.Select(&ms,
		`SELECT m.user_id, u.display_name, m.role, m.muted_until_ms
		 FROM conversation_members m JOIN users u ON u.id = m.user_id
		 WHERE m.conversation_id = ? ORDER BY m.role, u.display_name`, conversationID)
	return ms, err
}

func (a *Adapter) MemberIDs(conversationID int64) ([]int64, error) {
	var ids []int64
	err := a.db.Select(&ids, `SELECT user_id FROM conversation_members WHERE conversation_id = ?`, conversationID)
	return ids, err
}

func (a *Adapter) MemberAdd(conversationID, userID int64, role types.MemberRole) error {
	_, err := a.db.Exec(`INSERT INTO conversation_members (conversation_id, user_id, role) VALUES (?, ?, ?)`, conversationID, userID, role)
	return err
}

func (a *Adapter) MemberRemove(conversationID, userID int64) error {
	_, err := a.db.Exec(`DELETE FROM conversation_members WHERE conversation_id = ? AND user_id = ?`, conversationID, userID)
	return err
}

func (a *Adapter) MemberCount(conversationID int64) (int, error) {
	var n int
	err := a.db.Get(&n, `SELECT COUNT(*) FROM conversation_members WHERE conversation_id = ?`, conversationID)
	return n, err
}

func (a *Adapter) MemberSetRole(conversationID, userID int64, role types.MemberRole) error {
	_, err := a.db.Exec(`UPDATE conversation_members SET role = ? WHERE conversation_id = ? AND user_id = ?`, role, conversationID, userID)
	return err
}

func (a *Adapter) MemberSetMute(conversationID, userID int64, mutedUntilMs int64) error {
	_, err := a.db.Exec(`UPDATE conversation_members SET muted_until_ms = ? WHERE conversation_id = ? AND user_id = ?`, mutedUntilMs, conversationID, userID)
	return err
}

// --- Messages & sequencing ---

// AllocateSeqAndInsert advances conversation_seq.next_seq and inserts the
// message in one transaction, satisfying the linearizability requirement of
// spec.md §4.5: allocate;insert must be atomic per conversation. msg.ID must
// already be populated by the caller via Deps.IDGen.NextMessageID() (the
// snowflake- or Redis-backed allocator, per spec.md §4.5/§9's "opaque
// message-id strategy"); the messages.id column is an AUTO_INCREMENT key
// only as a MySQL-required primary key mechanic, not the id's source of
// truth, and happily accepts the explicit value given here.
func (a *Adapter) AllocateSeqAndInsert(msg *types.Message) (int64, int64, error) {
	tx, err := a.db.Beginx()
	if err != nil {
		return 0, 0, err
	}
	var nextSeq int64
	err = tx.Get(&nextSeq, `SELECT next_seq FROM conversation_seq WHERE conversation_id = ? FOR UPDATE`, msg.ConversationID)
	if errors.Is(err, sql.ErrNoRows) {
		nextSeq = 1
		if _, err := tx.Exec(`INSERT INTO conversation_seq (conversation_id, next_seq) VALUES (?, 1)`, msg.ConversationID); err != nil {
			tx.Rollback()
			return 0, 0, err
		}
	} else if err != nil {
		tx.Rollback()
		return 0, 0, err
	}
	if _, err := tx.Exec(`UPDATE conversation_seq SET next_seq = ? WHERE conversation_id = ?`, nextSeq+1, msg.ConversationID); err != nil {
		tx.Rollback()
		return 0, 0, err
	}
	_, err = tx.Exec(
		`INSERT INTO messages (id, conversation_id, sender_id, seq, msg_type, content, server_time_ms) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.ConversationID, msg.SenderID, nextSeq, msg.MsgType, msg.Content, msg.ServerTimeMs)
	if err != nil {
		tx.Rollback()
		return 0, 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, 0, err
	}
	return msg.ID, nextSeq, nil
}

func (a *Adapter) HistoryAfter(conversationID, afterSeq int64, limit int) ([]types.Message, error) {
	var ms []types.Message
	err := a.db.Select(&ms,
		`SELECT id, conversation_id, sender_id, seq, msg_type, content, server_time_ms FROM messages
		 WHERE conversation_id = ? AND seq > ? ORDER BY seq ASC LIMIT ?`, conversationID, afterSeq, limit)
	return ms, err
}

func (a *Adapter) HistoryBefore(conversationID, beforeSeq int64, limit int) ([]types.Message, error) {
	var ms []types.Message
	err := a.db.Select(&ms,
		`SELECT id, conversation_id, sender_id, seq, msg_type, content, server_time_ms FROM messages
		 WHERE conversation_id = ? AND seq < ? ORDER BY seq DESC LIMIT ?`, conversationID, beforeSeq, limit)
	if err != nil {
		return nil, err
	}
	reverse(ms)
	return ms, nil
}

func (a *Adapter) HistoryLatest(conversationID int64, limit int) ([]types.Message, error) {
	var ms []types.Message
	err := a.db.Select(&ms,
		`SELECT id, conversation_id, sender_id, seq, msg_type, content, server_time_ms FROM messages
		 WHERE conversation_id = ? ORDER BY seq DESC LIMIT ?`, conversationID, limit)
	if err != nil {
		return nil, err
	}
	reverse(ms)
	return ms, nil
}

func reverse(ms []types.Message) {
	for i, j := 0, len(ms)-1; i < j; i, j = i+1, j-1 {
		ms[i], ms[j] = ms[j], ms[i]
	}
}

func (a *Adapter) LastMessageMeta(conversationID int64) (int64, int64, error) {
	var seq, ts int64
	err := a.db.QueryRow(
		`SELECT seq, server_time_ms FROM messages WHERE conversation_id = ? ORDER BY seq DESC LIMIT 1`,
		conversationID).Scan(&seq, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, 0, nil
	}
	return seq, ts, err
}

// --- Reactions ---

// MessageSenderID looks up the sender of a message, used by REACT_REQ to
// enforce that a user cannot react to their own message.
func (a *Adapter) MessageSenderID(messageID int64) (int64, error) {
	var senderID int64
	err := a.db.QueryRow(`SELECT sender_id FROM messages WHERE id = ?`, messageID).Scan(&senderID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	return senderID, err
}

func (a *Adapter) ReactionToggle(messageID, userID int64, emoji string) (bool, error) {
	tx, err := a.db.Beginx()
	if err != nil {
		return false, err
	}
	var existing string
	err = tx.Get(&existing, `SELECT emoji FROM reactions WHERE message_id = ? AND user_id = ? FOR UPDATE`, messageID, userID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := tx.Exec(`INSERT INTO reactions (message_id, user_id, emoji) VALUES (?, ?, ?)`, messageID, userID, emoji); err != nil {
			tx.Rollback()
			return false, err
		}
		return false, tx.Commit()
	case err != nil:
		tx.Rollback()
		return false, err
	case existing == emoji:
		if _, err := tx.Exec(`DELETE FROM reactions WHERE message_id = ? AND user_id = ?`, messageID, userID); err != nil {
			tx.Rollback()
			return false, err
		}
		return true, tx.Commit()
	default:
		if _, err := tx.Exec(`UPDATE reactions SET emoji = ? WHERE message_id = ? AND user_id = ?`, emoji, messageID, userID); err != nil {
			tx.Rollback()
			return false, err
		}
		return false, tx.Commit()
	}
}

// --- Friends ---

func (a *Adapter) FriendsOf(userID int64) ([]types.Friend, error) {
	var fs []types.Friend
	err := a.db.Select(&fs, `SELECT user_id, friend_user_id FROM friends WHERE user_id = ?`, userID)
	return fs, err
}

func (a *Adapter) AreFriends(u1, u2 int64) (bool, error) {
	var n int
	err := a.db.Get(&n, `SELECT COUNT(*) FROM friends WHERE user_id = ? AND friend_user_id = ?`, u1, u2)
	return n > 0, err
}

func (a *Adapter) FriendAddSymmetric(u1, u2 int64) error {
	tx, err := a.db.Beginx()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(`INSERT IGNORE INTO friends (user_id, friend_user_id) VALUES (?, ?)`, u1, u2); err != nil {
		tx.Rollback()
		return err
	}
	if _, err := tx.Exec(`INSERT IGNORE INTO friends (user_id, friend_user_id) VALUES (?, ?)`, u2, u1); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (a *Adapter) FriendDeleteSymmetric(u1, u2 int64) error {
	tx, err := a.db.Beginx()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM friends WHERE user_id = ? AND friend_user_id = ?`, u1, u2); err != nil {
		tx.Rollback()
		return err
	}
	if _, err := tx.Exec(`DELETE FROM friends WHERE user_id = ? AND friend_user_id = ?`, u2, u1); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (a *Adapter) FriendRequestCreate(r *types.FriendRequest) (int64, error) {
	res, err := a.db.Exec(
		`INSERT INTO friend_requests (from_user, to_user, status, source, hello_msg, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		r.FromUser, r.ToUser, r.Status, r.Source, r.HelloMsg, r.CreatedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (a *Adapter) FriendRequestPendingBetween(u1, u2 int64) (*types.FriendRequest, error) {
	var r types.FriendRequest
	err := a.db.Get(&r,
		`SELECT id, from_user, to_user, status, source, hello_msg, created_at, handled_at FROM friend_requests
		 WHERE status = 'PENDING' AND ((from_user = ? AND to_user = ?) OR (from_user = ? AND to_user = ?))`,
		u1, u2, u2, u1)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (a *Adapter) FriendRequestGet(id int64) (*types.FriendRequest, error) {
	var r types.FriendRequest
	err := a.db.Get(&r, `SELECT id, from_user, to_user, status, source, hello_msg, created_at, handled_at FROM friend_requests WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// FriendRequestsForUser returns PENDING requests addressed to userID, per
// SPEC_FULL.md's resolution of Open Question (ii).
func (a *Adapter) FriendRequestsForUser(userID int64) ([]types.FriendRequest, error) {
	var rs []types.FriendRequest
	err := a.db.Select(&rs,
		`SELECT id, from_user, to_user, status, source, hello_msg, created_at, handled_at FROM friend_requests
		 WHERE to_user = ? AND status = 'PENDING' ORDER BY created_at DESC`, userID)
	return rs, err
}

func (a *Adapter) FriendRequestSetStatus(id int64, status types.RequestStatus, handledAtMs int64) error {
	_, err := a.db.Exec(`UPDATE friend_requests SET status = ?, handled_at = ? WHERE id = ?`, status, handledAtMs, id)
	return err
}

// --- Group join requests ---

func (a *Adapter) GroupJoinRequestCreate(r *types.GroupJoinRequest) (int64, error) {
	res, err := a.db.Exec(
		`INSERT INTO group_join_requests (from_user, group_id, status, hello_msg, created_at) VALUES (?, ?, ?, ?, ?)`,
		r.FromUser, r.GroupID, r.Status, r.HelloMsg, r.CreatedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (a *Adapter) GroupJoinRequestPending(userID, groupID int64) (*types.GroupJoinRequest, error) {
	var r types.GroupJoinRequest
	err := a.db.Get(&r,
		`SELECT id, from_user, group_id, status, hello_msg, handler_user_id, created_at, handled_at FROM group_join_requests
		 WHERE from_user = ? AND group_id = ? AND status = 'PENDING'`, userID, groupID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (a *Adapter) GroupJoinRequestGet(id int64) (*types.GroupJoinRequest, error) {
	var r types.GroupJoinRequest
	err := a.db.Get(&r, `SELECT id, from_user, group_id, status, hello_msg, handler_user_id, created_at, handled_at FROM group_join_requests WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// GroupJoinRequestsForGroup returns every request ever made for the group,
// pending and terminal alike, per SPEC_FULL.md's resolution of Open
// Question (iii): admins see history, not just the pending queue.
func (a *Adapter) GroupJoinRequestsForGroup(groupID int64) ([]types.GroupJoinRequest, error) {
	var rs []types.GroupJoinRequest
	err := a.db.Select(&rs,
		`SELECT id, from_user, group_id, status, hello_msg, handler_user_id, created_at, handled_at FROM group_join_requests
		 WHERE group_id = ? ORDER BY created_at DESC`, groupID)
	return rs, err
}

func (a *Adapter) GroupJoinRequestSetStatus(id int64, status types.RequestStatus, handlerUserID, handledAtMs int64) error {
	_, err := a.db.Exec(`UPDATE group_join_requests SET status = ?, handler_user_id = ?, handled_at = ? WHERE id = ?`, status, handlerUserID, handledAtMs, id)
	return err
}

func (a *Adapter) GroupSearch(query string) ([]types.Conversation, error) {
	var cs []types.Conversation
	like := "%" + query + "%"
	err := a.db.Select(&cs, `SELECT id, type, name, owner_user_id FROM conversations WHERE type = 'GROUP' AND name LIKE ? LIMIT 50`, like)
	return cs, err
}
