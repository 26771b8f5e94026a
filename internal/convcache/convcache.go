// Package convcache implements spec.md §4.4: two process-local caches keyed
// by conversation ID, used to avoid a persistence round trip on every
// broadcast. Ported from the original C++ Server::conv_cache_ /
// Server::member_cache_ design (original_source/include/server.h) into the
// mutex-protected map shape tinode's own in-process caches (e.g. the
// sessionStore long-poll tracker) use.
package convcache

import (
	"sync"
	"time"

	"github.com/chatd/chatd/internal/store/types"
)

// TTL is the default eviction window (spec.md §4.4: "e.g. 5 minutes").
const TTL = 5 * time.Minute

// ConvEntry is the cached {type, member_ids, last_access} tuple.
type ConvEntry struct {
	Type       types.ConversationType
	MemberIDs  []int64
	lastAccess time.Time
}

// MemberListEntry caches the full member records for member-list queries.
type MemberListEntry struct {
	Members    []types.MemberInfo
	lastAccess time.Time
}

// Cache holds both maps behind one mutex, mirroring the original's single
// cache_mutex_ protecting both conv_cache_ and member_cache_.
type Cache struct {
	mu      sync.Mutex
	conv    map[int64]*ConvEntry
	members map[int64]*MemberListEntry
	ttl     time.Duration
}

// New builds an empty cache with the given TTL (pass 0 for the default).
func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = TTL
	}
	return &Cache{
		conv:    make(map[int64]*ConvEntry),
		members: make(map[int64]*MemberListEntry),
		ttl:     ttl,
	}
}

// GetConv returns the cached conversation entry, updating last_access on a
// hit. A miss returns (ConvEntry{}, false) and GetConv itself never
// populates; the handlers' cachedMemberIDs reads persistence and calls
// PutConv on a miss.
func (c *Cache) GetConv(conversationID int64) (ConvEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.conv[conversationID]
	if !ok {
		return ConvEntry{}, false
	}
	e.lastAccess = time.Now()
	return *e, true
}

// PutConv populates or replaces the conversation entry. Its caller is the
// handlers' cachedMemberIDs, which fills the entry after a cache miss so
// later broadcasts to the same conversation skip the persistence read.
func (c *Cache) PutConv(conversationID int64, convType types.ConversationType, memberIDs []int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conv[conversationID] = &ConvEntry{
		Type:       convType,
		MemberIDs:  append([]int64(nil), memberIDs...),
		lastAccess: time.Now(),
	}
}

// InvalidateConv drops the conversation entry. Called on every
// membership-changing operation per spec.md §4.4.
func (c *Cache) InvalidateConv(conversationID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.conv, conversationID)
}

// GetMemberList returns the cached member-list entry.
func (c *Cache) GetMemberList(conversationID int64) ([]types.MemberInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.members[conversationID]
	if !ok {
		return nil, false
	}
	e.lastAccess = time.Now()
	return e.Members, true
}

// PutMemberList populates or replaces the member-list entry.
func (c *Cache) PutMemberList(conversationID int64, members []types.MemberInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.members[conversationID] = &MemberListEntry{
		Members:    append([]types.MemberInfo(nil), members...),
		lastAccess: time.Now(),
	}
}

// InvalidateMemberList drops the member-list entry.
func (c *Cache) InvalidateMemberList(conversationID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.members, conversationID)
}

// InvalidateAll drops both cache entries for a conversation, the common case
// on every membership-changing handler (add/remove member, role change,
// mute/unmute, leave/dissolve, accept-group-join, accept-friend-request).
func (c *Cache) InvalidateAll(conversationID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.conv, conversationID)
	delete(c.members, conversationID)
}

// EvictExpired runs a single eviction pass over both maps, dropping entries
// whose last_access exceeds the configured TTL. Callers run this on a
// ticker (see Cache.Run).
func (c *Cache) EvictExpired(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, e := range c.conv {
		if now.Sub(e.lastAccess) > c.ttl {
			delete(c.conv, id)
		}
	}
	for id, e := range c.members {
		if now.Sub(e.lastAccess) > c.ttl {
			delete(c.members, id)
		}
	}
}

// Run starts the background eviction loop; it returns a stop func.
func (c *Cache) Run(interval time.Duration) (stop func()) {
	if interval <= 0 {
		interval = time.Minute
	}
	done := make(chan struct{})
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.EvictExpired(time.Now())
			case <-done:
				return
			}
		}
	}()
	return func() { close(done) }
}
