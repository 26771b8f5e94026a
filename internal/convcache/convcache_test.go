package convcache

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/chatd/chatd/internal/store/types"
)

func TestPutGetConvRoundTrip(t *testing.T) {
	c := New(time.Minute)
	c.PutConv(1, types.ConvGroup, []int64{10, 20, 30})

	entry, ok := c.GetConv(1)
	if !ok {
		t.Fatal("expected a hit")
	}
	if entry.Type != types.ConvGroup {
		t.Errorf("got type %v, want %v", entry.Type, types.ConvGroup)
	}
	if diff := cmp.Diff([]int64{10, 20, 30}, entry.MemberIDs); diff != "" {
		t.Errorf("member ids mismatch (-want +got):\n%s", diff)
	}
}

func TestGetConvMissDoesNotAutoPopulate(t *testing.T) {
	c := New(time.Minute)
	if _, ok := c.GetConv(42); ok {
		t.Fatal("expected a miss on an empty cache")
	}
	if _, ok := c.GetConv(42); ok {
		t.Fatal("a miss must stay a miss; GetConv must never auto-populate")
	}
}

func TestInvalidateAllDropsBothMaps(t *testing.T) {
	c := New(time.Minute)
	c.PutConv(1, types.ConvSingle, []int64{1, 2})
	c.PutMemberList(1, []types.MemberInfo{{UserID: 1, Role: types.RoleOwner}})

	c.InvalidateAll(1)

	if _, ok := c.GetConv(1); ok {
		t.Error("expected conv entry to be gone")
	}
	if _, ok := c.GetMemberList(1); ok {
		t.Error("expected member list entry to be gone")
	}
}

func TestEvictExpiredDropsEntriesPastTTL(t *testing.T) {
	c := New(time.Minute)
	c.PutConv(1, types.ConvGroup, []int64{1})
	c.PutConv(2, types.ConvGroup, []int64{2})

	// Age both entries past the TTL by evicting with a far-future "now".
	c.EvictExpired(time.Now().Add(2 * time.Minute))

	if _, ok := c.GetConv(1); ok {
		t.Error("expected entry 1 to be evicted")
	}
	if _, ok := c.GetConv(2); ok {
		t.Error("expected entry 2 to be evicted too, both aged past ttl")
	}
}

func TestEvictExpiredKeepsFreshEntries(t *testing.T) {
	c := New(time.Hour)
	c.PutConv(1, types.ConvGroup, []int64{1})

	c.EvictExpired(time.Now())

	if _, ok := c.GetConv(1); !ok {
		t.Error("expected fresh entry to survive eviction")
	}
}

func TestRunStopsCleanly(t *testing.T) {
	c := New(time.Millisecond)
	stop := c.Run(time.Millisecond)
	c.PutConv(1, types.ConvGroup, []int64{1})
	time.Sleep(10 * time.Millisecond)
	stop()

	if _, ok := c.GetConv(1); ok {
		t.Error("expected background eviction to have dropped the stale entry")
	}
}
