package session

import (
	"net"
	"strings"
	"sync"
	"testing"
	"time"
)

func newTestSession(t *testing.T, dispatch Dispatch) (*Session, net.Conn) {
	t.Helper()
	server, client := net.Pipe()
	t.Cleanup(func() { client.Close() })
	s := New(server, dispatch, 64*1024, nil, nil)
	return s, client
}

func TestNewSessionStartsUnauthenticated(t *testing.T) {
	s, _ := newTestSession(t, Dispatch{})
	if s.Authenticated() {
		t.Fatal("expected a freshly constructed session to be unauthenticated")
	}
	if s.state.Load() != Unauthenticated {
		t.Fatalf("expected state Unauthenticated, got %v", s.state.Load())
	}
}

func TestSetAuthenticatedTransitionsAndRecordsIdentity(t *testing.T) {
	s, _ := newTestSession(t, Dispatch{})
	s.SetAuthenticated(42, "alice", "Alice", "avatars/42/abc")

	if !s.Authenticated() {
		t.Fatal("expected Authenticated() true after SetAuthenticated")
	}
	if s.UserID() != 42 || s.Account() != "alice" || s.DisplayName() != "Alice" || s.AvatarPath() != "avatars/42/abc" {
		t.Fatalf("identity fields not recorded correctly: %d %s %s %s", s.UserID(), s.Account(), s.DisplayName(), s.AvatarPath())
	}
}

func TestSetDisplayNameAndAvatarPathUpdateInPlace(t *testing.T) {
	s, _ := newTestSession(t, Dispatch{})
	s.SetAuthenticated(1, "bob", "Bob", "")
	s.SetDisplayName("Bobby")
	s.SetAvatarPath("avatars/1/xyz")

	if s.DisplayName() != "Bobby" || s.AvatarPath() != "avatars/1/xyz" {
		t.Fatalf("expected updated identity fields, got %s %s", s.DisplayName(), s.AvatarPath())
	}
}

func TestQueueOutFIFOOrdering(t *testing.T) {
	s, client := newTestSession(t, Dispatch{})
	go s.writerLoop()
	defer s.Close()

	s.QueueOut("A")
	s.QueueOut("B")
	s.QueueOut("C")

	buf := make([]byte, 3)
	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	n := 0
	for n < 3 {
		m, err := client.Read(buf[n:])
		if err != nil {
			t.Fatalf("read error: %v", err)
		}
		n += m
	}
	if string(buf) != "ABC" {
		t.Fatalf("expected frames delivered in FIFO order ABC, got %q", string(buf))
	}
}

func TestQueueOutBackpressureKillsSession(t *testing.T) {
	s, _ := newTestSession(t, Dispatch{})
	// No writer goroutine running: the queue is never drained, so a single
	// frame larger than the budget must be rejected and the session closed.
	huge := strings.Repeat("x", MaxOutboundBytes+1)

	ok := s.QueueOut(huge)
	if ok {
		t.Fatal("expected QueueOut to report the frame as dropped")
	}
	if s.state.Load() != Closed {
		t.Fatalf("expected session to be Closed after exceeding the outbound budget, got %v", s.state.Load())
	}
}

func TestQueueOutReturnsFalseOnceClosed(t *testing.T) {
	s, _ := newTestSession(t, Dispatch{})
	s.Close()
	if s.QueueOut("anything") {
		t.Fatal("expected QueueOut to refuse frames after Close")
	}
}

func TestCloseIsIdempotentAndInvokesOnCloseOnce(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	server, client := net.Pipe()
	defer client.Close()
	s := New(server, Dispatch{}, 64*1024, nil, func(*Session) {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	s.Close()
	s.Close()
	s.Close()

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Fatalf("expected onClose to fire exactly once, got %d", calls)
	}
}

func TestHandleLineRejectsUnauthenticatedCommand(t *testing.T) {
	called := false
	dispatch := Dispatch{
		"SEND_MSG": func(s *Session, payload string) { called = true },
	}
	s, _ := newTestSession(t, dispatch)

	s.handleLine(`SEND_MSG:{}`)

	if called {
		t.Fatal("expected the handler not to run before authentication")
	}
	s.outMu.Lock()
	defer s.outMu.Unlock()
	if len(s.outQueue) != 1 || !strings.Contains(s.outQueue[0], "NOT_AUTHENTICATED") {
		t.Fatalf("expected a queued NOT_AUTHENTICATED response, got %v", s.outQueue)
	}
}

func TestHandleLineAllowsRegisterAndLoginUnauthenticated(t *testing.T) {
	var wg sync.WaitGroup
	wg.Add(2)
	dispatch := Dispatch{
		"REGISTER": func(s *Session, payload string) { wg.Done() },
		"LOGIN":    func(s *Session, payload string) { wg.Done() },
	}
	s, _ := newTestSession(t, dispatch)

	s.handleLine(`REGISTER:{}`)
	s.handleLine(`LOGIN:{}`)

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("expected both REGISTER and LOGIN handlers to run while unauthenticated")
	}
}

func TestHandleLinePingIsAlwaysAllowed(t *testing.T) {
	s, _ := newTestSession(t, Dispatch{})
	s.handleLine("PING:")

	s.outMu.Lock()
	defer s.outMu.Unlock()
	if len(s.outQueue) != 1 || !strings.HasPrefix(s.outQueue[0], "PONG:") {
		t.Fatalf("expected a queued PONG response, got %v", s.outQueue)
	}
}

func TestHandleLineUnknownCommandIsEchoed(t *testing.T) {
	s, _ := newTestSession(t, Dispatch{})
	s.handleLine("WHATEVER:{}")

	s.outMu.Lock()
	defer s.outMu.Unlock()
	if len(s.outQueue) != 1 || !strings.HasPrefix(s.outQueue[0], "ECHO:") {
		t.Fatalf("expected a queued ECHO response for an unregistered command, got %v", s.outQueue)
	}
}

func TestHandleLineMalformedFrameYieldsProtocolError(t *testing.T) {
	s, _ := newTestSession(t, Dispatch{})
	s.handleLine("NOCOLON")

	s.outMu.Lock()
	defer s.outMu.Unlock()
	if len(s.outQueue) != 1 || !strings.Contains(s.outQueue[0], "PROTOCOL_ERROR") {
		t.Fatalf("expected a queued PROTOCOL_ERROR response, got %v", s.outQueue)
	}
}
