// Package auxkv implements the optional auxiliary key-value store of
// spec.md §2 and §4.5: a centralized counter for global message-ID
// allocation, plus a hot recent-message window so
// HISTORY_REQ's common "give me the latest page" case doesn't round-trip to
// the relational store. Grounded on the go-redis/redis/v8 usage in
// other_examples' chit-chat and messaging-app reference files.
package auxkv

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/go-redis/redis/v8"

	"github.com/chatd/chatd/internal/store/types"
)

// Store wraps a redis.Client with the counter and hot-window operations the
// send pipeline and HISTORY_REQ need.
type Store struct {
	rdb *redis.Client

	// HotWindowSize caps how many trailing messages are kept per
	// conversation in the Redis list.
	HotWindowSize int64
}

// New connects to the configured Redis endpoint. addr is host:port.
func New(addr string, poolSize int) (*Store, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		PoolSize: poolSize,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return &Store{rdb: rdb, HotWindowSize: 200}, nil
}

func (s *Store) Close() error {
	return s.rdb.Close()
}

// NextMessageID implements idgen.Generator via a Redis INCR, satisfying the
// only externally visible property spec.md §4.5 requires: uniqueness.
func (s *Store) NextMessageID() (int64, error) {
	return s.rdb.Incr(context.Background(), "chatd:next_message_id").Result()
}

// NextSeq atomically advances a Redis per-conversation seq counter. Nothing
// in chatd calls it: persisted seq is always allocated by the SQL
// row-lock-based allocator (mysql.AllocateSeqAndInsert), and this counter
// is not kept in step with it.
func (s *Store) NextSeq(conversationID int64) (int64, error) {
	key := "chatd:seq:" + strconv.FormatInt(conversationID, 10)
	return s.rdb.Incr(context.Background(), key).Result()
}

// PushHotMessage appends a message to the conversation's hot window,
// trimming it to HotWindowSize.
func (s *Store) PushHotMessage(msg types.Message) error {
	ctx := context.Background()
	key := "chatd:hot:" + strconv.FormatInt(msg.ConversationID, 10)
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	pipe := s.rdb.TxPipeline()
	pipe.RPush(ctx, key, b)
	pipe.LTrim(ctx, key, -s.HotWindowSize, -1)
	_, err = pipe.Exec(ctx)
	return err
}

// LatestFromHotWindow returns up to limit of the most recent messages for a
// conversation from the hot window, or (nil, false) on a cache miss.
func (s *Store) LatestFromHotWindow(conversationID int64, limit int) ([]types.Message, bool) {
	ctx := context.Background()
	key := "chatd:hot:" + strconv.FormatInt(conversationID, 10)
	n, err := s.rdb.LLen(ctx, key).Result()
	if err != nil || n == 0 {
		return nil, false
	}
	start := n - int64(limit)
	if start < 0 {
		start = 0
	}
	raw, err := s.rdb.LRange(ctx, key, start, -1).Result()
	if err != nil {
		return nil, false
	}
	out := make([]types.Message, 0, len(raw))
	for _, r := range raw {
		var m types.Message
		if err := json.Unmarshal([]byte(r), &m); err != nil {
			return nil, false
		}
		out = append(out, m)
	}
	return out, true
}

// InvalidateHotWindow drops the hot window for a conversation, used when a
// conversation is dissolved.
func (s *Store) InvalidateHotWindow(conversationID int64) error {
	return s.rdb.Del(context.Background(), "chatd:hot:"+strconv.FormatInt(conversationID, 10)).Err()
}
