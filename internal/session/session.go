// Package session implements spec.md §4.2: the per-connection state
// machine, its line-framed read loop, and the FIFO outbound queue with the
// 10 MiB backpressure-kill policy. Modeled on tinode's server/session.go
// (the send/stop channel pair, one writer per session) adapted to this
// spec's byte-budgeted queue and plain TCP framing instead of websocket.
package session

import (
	"log"
	"net"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/chatd/chatd/internal/metrics"
	"github.com/chatd/chatd/internal/protocol"
)

// State is the session state machine of spec.md §4.2.
type State int32

const (
	Unauthenticated State = iota
	Authenticated
	Closing
	Closed
)

// MaxOutboundBytes is the per-session outbound queue byte budget of
// spec.md §4.2: a session accumulating more than this is congested and is
// closed, per the testable property in spec.md §8.
const MaxOutboundBytes = 10 * 1024 * 1024

// Handler processes one decoded frame for a session. Handlers live in the
// internal/handlers package; this package only needs the function shape.
type Handler func(s *Session, payload string)

// Dispatch is the fixed command -> handler table of spec.md §4.2.
type Dispatch map[string]Handler

// allowedUnauthenticated is the set of commands legal before LOGIN succeeds
// (spec.md §4.2: "REGISTER is legal in Unauthenticated and returns a
// response without transitioning"; every other non-auth command is
// rejected with NOT_AUTHENTICATED).
var allowedUnauthenticated = map[string]bool{
	"REGISTER": true,
	"LOGIN":    true,
}

// Session is one accepted TCP connection.
type Session struct {
	conn   net.Conn
	sid    string
	logger *log.Logger

	state State32

	// auth state, valid once state >= Authenticated
	userID      int64
	account     string
	displayName string
	avatarPath  string
	authMu      sync.RWMutex

	outMu      sync.Mutex
	outQueue   []string
	outBytes   int
	wake       chan struct{}
	closed     bool
	closeOnce  sync.Once

	dispatch Dispatch
	maxLine  int

	// RemoteAddr is cached at construction since conn may be gone by the
	// time something wants to log it after close.
	remoteAddr string

	onClose func(*Session)
}

// State32 is an atomically-accessed State.
type State32 struct{ v int32 }

func (s *State32) Load() State    { return State(atomic.LoadInt32(&s.v)) }
func (s *State32) Store(v State)  { atomic.StoreInt32(&s.v, int32(v)) }
func (s *State32) CAS(old, new_ State) bool {
	return atomic.CompareAndSwapInt32(&s.v, int32(old), int32(new_))
}

// New wraps an accepted connection. onClose is invoked exactly once when
// the session transitions to Closed, so the caller (the acceptor) can
// remove it from the hub.
func New(conn net.Conn, dispatch Dispatch, maxLine int, logger *log.Logger, onClose func(*Session)) *Session {
	if logger == nil {
		logger = log.Default()
	}
	s := &Session{
		conn:       conn,
		sid:        uuid.NewString(),
		logger:     logger,
		dispatch:   dispatch,
		maxLine:    maxLine,
		wake:       make(chan struct{}, 1),
		remoteAddr: conn.RemoteAddr().String(),
		onClose:    onClose,
	}
	return s
}

func (s *Session) ID() string         { return s.sid }
func (s *Session) RemoteAddr() string { return s.remoteAddr }

func (s *Session) Authenticated() bool {
	return s.state.Load() == Authenticated
}

func (s *Session) UserID() int64 {
	s.authMu.RLock()
	defer s.authMu.RUnlock()
	return s.userID
}

func (s *Session) Account() string {
	s.authMu.RLock()
	defer s.authMu.RUnlock()
	return s.account
}

func (s *Session) DisplayName() string {
	s.authMu.RLock()
	defer s.authMu.RUnlock()
	return s.displayName
}

func (s *Session) AvatarPath() string {
	s.authMu.RLock()
	defer s.authMu.RUnlock()
	return s.avatarPath
}

// SetAuthenticated transitions Unauthenticated -> Authenticated and records
// the identity fields, per LOGIN's contract in spec.md §4.7.
func (s *Session) SetAuthenticated(userID int64, account, displayName, avatarPath string) {
	s.authMu.Lock()
	s.userID = userID
	s.account = account
	s.displayName = displayName
	s.avatarPath = avatarPath
	s.authMu.Unlock()
	s.state.Store(Authenticated)
}

// SetDisplayName updates the cached display name after PROFILE_UPDATE.
func (s *Session) SetDisplayName(name string) {
	s.authMu.Lock()
	s.displayName = name
	s.authMu.Unlock()
}

// SetAvatarPath updates the cached avatar path after AVATAR_UPDATE.
func (s *Session) SetAvatarPath(path string) {
	s.authMu.Lock()
	s.avatarPath = path
	s.authMu.Unlock()
}

// QueueOut enqueues an already-encoded frame for the writer goroutine.
// Implements spec.md §4.2's backpressure policy: if the queue would exceed
// MaxOutboundBytes, the frame is dropped and the socket is closed. Returns
// false if the frame was dropped (either for backpressure or because the
// session is already closing).
func (s *Session) QueueOut(frame string) bool {
	s.outMu.Lock()
	if s.closed {
		s.outMu.Unlock()
		return false
	}
	if s.outBytes+len(frame) > MaxOutboundBytes {
		s.outMu.Unlock()
		s.logger.Printf("session %s: outbound queue would exceed %d bytes, closing", s.sid, MaxOutboundBytes)
		metrics.QueueDrops.Inc()
		s.Close()
		return false
	}
	s.outQueue = append(s.outQueue, frame)
	s.outBytes += len(frame)
	s.outMu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return true
}

// writerLoop drains the outbound queue strictly FIFO, one write at a time;
// writes are never interleaved within a single session (spec.md §4.2).
func (s *Session) writerLoop() {
	for {
		s.outMu.Lock()
		for len(s.outQueue) == 0 && !s.closed {
			s.outMu.Unlock()
			<-s.wake
			s.outMu.Lock()
		}
		if len(s.outQueue) == 0 && s.closed {
			s.outMu.Unlock()
			return
		}
		frame := s.outQueue[0]
		s.outQueue = s.outQueue[1:]
		s.outBytes -= len(frame)
		s.outMu.Unlock()

		if _, err := s.conn.Write([]byte(frame)); err != nil {
			s.logger.Printf("session %s: write error: %v", s.sid, err)
			s.Close()
			return
		}
	}
}

// Close transitions the session to Closing/Closed and shuts the socket
// down. Safe to call more than once and from multiple goroutines.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.state.Store(Closing)

		s.outMu.Lock()
		s.closed = true
		s.outMu.Unlock()
		select {
		case s.wake <- struct{}{}:
		default:
		}

		s.conn.Close()
		s.state.Store(Closed)
		if s.onClose != nil {
			s.onClose(s)
		}
	})
}

// Serve runs the read loop until the peer closes or a fatal read error
// occurs, dispatching each frame per spec.md §4.2. It blocks; callers run
// it in its own goroutine per accepted connection, with the writer loop in
// a second goroutine.
func (s *Session) Serve() {
	go s.writerLoop()
	defer s.Close()

	scanner := protocol.NewScanner(s.conn, s.maxLine)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		s.handleLine(line)
	}
}

func (s *Session) handleLine(line string) {
	frame, err := protocol.Decode(line)
	if err != nil {
		s.QueueOut(protocol.Encode("ERROR", `{"ok":false,"errorCode":"PROTOCOL_ERROR","errorMsg":"missing ':'"}`))
		return
	}

	if frame.Command == "PING" {
		s.QueueOut(protocol.Encode("PONG", `{}`))
		return
	}

	h, ok := s.dispatch[frame.Command]
	if !ok {
		s.QueueOut(protocol.Encode("ECHO", `{"command":"`+jsonEscape(frame.Command)+`"}`))
		return
	}

	if !allowedUnauthenticated[frame.Command] && !s.Authenticated() {
		s.QueueOut(protocol.Encode(frame.Command+"_RESP", `{"ok":false,"errorCode":"NOT_AUTHENTICATED","errorMsg":"login required"}`))
		return
	}

	// SEND_MSG (and any other persistence-bound command) must not block
	// the read loop while the store does I/O (spec.md §4.2); every
	// handler is dispatched on its own goroutine so Serve can keep
	// draining frames concurrently. Ordering is preserved downstream by
	// QueueOut's FIFO queue, not by serializing handler execution.
	go h(s, frame.Payload)
}

func jsonEscape(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '"' || c == '\\' {
			out = append(out, '\\')
		}
		out = append(out, c)
	}
	return string(out)
}
