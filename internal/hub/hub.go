// Package hub implements spec.md §4.3, the server registry: the primary
// strong-ref session table plus the user_id -> weak session ref multimap
// used for fan-out. All mutations of both tables are serialized under one
// mutex, the Go analogue of the original C++ server's asio::strand
// (original_source/include/server.h).
//
// The weak-reference side of the design is implemented with the standard
// library's weak package (Go 1.24): sessions_by_user stores weak.Pointer
// values that resolve to nil once the session has been dropped from the
// primary table and collected, exactly mirroring spec.md §9's "cyclic
// ownership between server and sessions is avoided by storing sessions in a
// strong-ref table and indexing them by user via weak references."
package hub

import (
	"log"
	"sync"
	"weak"

	"github.com/chatd/chatd/internal/metrics"
	"github.com/chatd/chatd/internal/store/types"
)

// Session is the subset of session.Session the hub needs. Declared here
// (rather than importing the session package) so hub and session don't
// import each other: the server package registers sessions with the hub,
// and the handlers call the broadcast primitives.
type Session interface {
	ID() string
	UserID() int64
	Authenticated() bool
	QueueOut(frame string) bool
}

// ref is the sole strong owner of a Session once it's registered; the
// sessions map below is the only place a ref lives with a hard reference.
// Weak pointers to ref are handed out to the per-user index so a session
// that's been removed becomes collectible even while stale index entries
// still exist.
type ref struct {
	s Session
}

// MemberLookup is the signature of a conversation-membership resolver. The
// hub itself does not call one: BroadcastMessage receives memberIDs and a
// cacheHit flag from its caller, and on a miss falls back to "every
// authenticated session" rather than guessing membership, per spec.md's
// explicit note that this fallback is a documented degradation, not a
// default.
type MemberLookup func(conversationID int64) (memberIDs []int64, ok bool)

// Hub owns the live session tables.
type Hub struct {
	mu        sync.Mutex
	sessions  map[Session]*ref
	byUser    map[int64][]weak.Pointer[ref]
	logger    *log.Logger
}

// New constructs an empty, ready-to-use Hub.
func New(logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.Default()
	}
	return &Hub{
		sessions: make(map[Session]*ref),
		byUser:   make(map[int64][]weak.Pointer[ref]),
		logger:   logger,
	}
}

// Add inserts a newly accepted session into the primary table. It is not
// yet indexed by user until Index is called on successful LOGIN.
func (h *Hub) Add(s Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions[s] = &ref{s: s}
	metrics.LiveSessions.Set(float64(len(h.sessions)))
}

// Remove drops a session from the primary table. Any weak refs still held
// in byUser become collectible and are pruned the next time that user's
// bucket is iterated.
func (h *Hub) Remove(s Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sessions, s)
	metrics.LiveSessions.Set(float64(len(h.sessions)))
}

// Index adds s to the per-user fan-out index. Called on successful LOGIN
// (spec.md §4.7). s must already have been Add-ed.
func (h *Hub) Index(userID int64, s Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.sessions[s]
	if !ok {
		// Defensive: a session must be registered before it can be indexed.
		r = &ref{s: s}
		h.sessions[s] = r
	}
	h.byUser[userID] = append(h.byUser[userID], weak.Make(r))
}

// forUserSessions invokes fn for every live session of userID, promoting
// each weak ref to a strong one for the duration of the call and pruning
// expired entries opportunistically, mirroring Server::for_user_sessions in
// original_source/include/server.h.
func (h *Hub) forUserSessions(userID int64, fn func(Session)) {
	h.mu.Lock()
	ptrs := h.byUser[userID]
	live := make([]Session, 0, len(ptrs))
	kept := ptrs[:0]
	for _, wp := range ptrs {
		if r := wp.Value(); r != nil {
			live = append(live, r.s)
			kept = append(kept, wp)
		}
	}
	if len(kept) == 0 {
		delete(h.byUser, userID)
	} else {
		h.byUser[userID] = kept
	}
	h.mu.Unlock()

	for _, s := range live {
		fn(s)
	}
}

// forAllAuthenticated invokes fn for every authenticated session in the
// primary table, mirroring Server::for_all_authenticated_sessions.
func (h *Hub) forAllAuthenticated(fn func(Session)) {
	h.mu.Lock()
	live := make([]Session, 0, len(h.sessions))
	for s := range h.sessions {
		if s.Authenticated() {
			live = append(live, s)
		}
	}
	h.mu.Unlock()

	for _, s := range live {
		fn(s)
	}
}

// PushToUser delivers one already-encoded frame to every online session of
// userID.
func (h *Hub) PushToUser(userID int64, frame string) {
	h.forUserSessions(userID, func(s Session) {
		s.QueueOut(frame)
	})
}

// BroadcastMessage implements spec.md §4.3's broadcast_message: push to
// every online session of every conversation member via memberIDs if the
// cache has them; otherwise fall back to every authenticated session.
func (h *Hub) BroadcastMessage(conversationID int64, memberIDs []int64, cacheHit bool, frame string) {
	metrics.RecordFanout(cacheHit)
	if !cacheHit {
		h.logger.Printf("hub: conversation cache miss for %d, broadcasting to all authenticated sessions", conversationID)
		h.forAllAuthenticated(func(s Session) {
			s.QueueOut(frame)
		})
		return
	}
	for _, uid := range memberIDs {
		h.PushToUser(uid, frame)
	}
}

// BroadcastSystemMessage is BroadcastMessage with the SYSTEM sender
// convention (senderId="0") already baked into frame by the caller.
func (h *Hub) BroadcastSystemMessage(conversationID int64, memberIDs []int64, cacheHit bool, frame string) {
	h.BroadcastMessage(conversationID, memberIDs, cacheHit, frame)
}

// LiveSessionCount reports the size of the primary table, for /metrics.
func (h *Hub) LiveSessionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// Shutdown empties both session tables, used by graceful shutdown
// (spec.md §5): "open sessions continue until their peer
// closes or their next write completes" — Shutdown only stops tracking
// them, it does not forcibly close sockets.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions = make(map[Session]*ref)
	h.byUser = make(map[int64][]weak.Pointer[ref])
}

// MemberInfoUserIDs turns a MemberInfo slice into the []int64
// BroadcastMessage wants.
func MemberInfoUserIDs(members []types.MemberInfo) []int64 {
	ids := make([]int64, len(members))
	for i, m := range members {
		ids[i] = m.UserID
	}
	return ids
}
