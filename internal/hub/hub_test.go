package hub

import (
	"runtime"
	"testing"
)

type fakeSession struct {
	id            string
	userID        int64
	authenticated bool
	queued        []string
	closed        bool
}

func (f *fakeSession) ID() string          { return f.id }
func (f *fakeSession) UserID() int64       { return f.userID }
func (f *fakeSession) Authenticated() bool { return f.authenticated }
func (f *fakeSession) QueueOut(frame string) bool {
	if f.closed {
		return false
	}
	f.queued = append(f.queued, frame)
	return true
}

func TestAddIndexPushToUser(t *testing.T) {
	h := New(nil)
	s := &fakeSession{id: "s1", userID: 7, authenticated: true}

	h.Add(s)
	h.Index(7, s)

	h.PushToUser(7, "MSG_PUSH:{}")

	if len(s.queued) != 1 || s.queued[0] != "MSG_PUSH:{}" {
		t.Fatalf("expected one queued frame, got %v", s.queued)
	}
	if got := h.LiveSessionCount(); got != 1 {
		t.Fatalf("expected 1 live session, got %d", got)
	}
}

func TestPushToUserIgnoresOtherUsers(t *testing.T) {
	h := New(nil)
	s := &fakeSession{id: "s1", userID: 7, authenticated: true}
	h.Add(s)
	h.Index(7, s)

	h.PushToUser(99, "MSG_PUSH:{}")

	if len(s.queued) != 0 {
		t.Fatalf("expected no frames delivered to an unrelated user, got %v", s.queued)
	}
}

func TestBroadcastMessageCacheHitFansOutToMembersOnly(t *testing.T) {
	h := New(nil)
	member := &fakeSession{id: "s1", userID: 1, authenticated: true}
	stranger := &fakeSession{id: "s2", userID: 2, authenticated: true}
	h.Add(member)
	h.Add(stranger)
	h.Index(1, member)
	h.Index(2, stranger)

	h.BroadcastMessage(500, []int64{1}, true, "MSG_PUSH:{}")

	if len(member.queued) != 1 {
		t.Fatalf("expected the member to receive the broadcast, got %v", member.queued)
	}
	if len(stranger.queued) != 0 {
		t.Fatalf("expected the non-member to receive nothing, got %v", stranger.queued)
	}
}

func TestBroadcastMessageCacheMissFansOutToAllAuthenticated(t *testing.T) {
	h := New(nil)
	a := &fakeSession{id: "a", userID: 1, authenticated: true}
	b := &fakeSession{id: "b", userID: 2, authenticated: true}
	anon := &fakeSession{id: "c", userID: 0, authenticated: false}
	h.Add(a)
	h.Add(b)
	h.Add(anon)

	h.BroadcastMessage(500, nil, false, "MSG_PUSH:{}")

	if len(a.queued) != 1 || len(b.queued) != 1 {
		t.Fatalf("expected every authenticated session to receive the fallback broadcast: a=%v b=%v", a.queued, b.queued)
	}
	if len(anon.queued) != 0 {
		t.Fatalf("expected unauthenticated sessions to be skipped, got %v", anon.queued)
	}
}

func TestRemoveDropsFromPrimaryTable(t *testing.T) {
	h := New(nil)
	s := &fakeSession{id: "s1", userID: 7, authenticated: true}
	h.Add(s)
	if h.LiveSessionCount() != 1 {
		t.Fatalf("expected 1 after add")
	}
	h.Remove(s)
	if h.LiveSessionCount() != 0 {
		t.Fatalf("expected 0 after remove")
	}
}

func TestWeakIndexStopsDeliveringAfterRemoveAndCollect(t *testing.T) {
	h := New(nil)
	s := &fakeSession{id: "s1", userID: 7, authenticated: true}
	h.Add(s)
	h.Index(7, s)
	h.Remove(s)

	// Force collection of the now-unreferenced *ref so the weak pointer in
	// byUser resolves to nil, mirroring a session that's been fully dropped.
	runtime.GC()
	runtime.GC()

	h.PushToUser(7, "MSG_PUSH:{}")
	if len(s.queued) != 0 {
		t.Fatalf("expected no delivery once the strong ref is gone, got %v", s.queued)
	}
}

func TestShutdownClearsBothTables(t *testing.T) {
	h := New(nil)
	s := &fakeSession{id: "s1", userID: 7, authenticated: true}
	h.Add(s)
	h.Index(7, s)

	h.Shutdown()

	if h.LiveSessionCount() != 0 {
		t.Fatalf("expected shutdown to clear the primary table")
	}
	h.PushToUser(7, "MSG_PUSH:{}")
	if len(s.queued) != 0 {
		t.Fatalf("expected shutdown to clear the per-user index too, got %v", s.queued)
	}
}

func TestMemberInfoUserIDs(t *testing.T) {
	ids := MemberInfoUserIDs(nil)
	if len(ids) != 0 {
		t.Fatalf("expected empty slice for nil input, got %v", ids)
	}
}
