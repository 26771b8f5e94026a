package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordFanoutLabelsCacheHitAsNotDegraded(t *testing.T) {
	before := testutil.ToFloat64(FanoutPushes.WithLabelValues("false"))
	RecordFanout(true)
	after := testutil.ToFloat64(FanoutPushes.WithLabelValues("false"))

	if after != before+1 {
		t.Fatalf("expected the false (not degraded) label to increment, got %v -> %v", before, after)
	}
}

func TestRecordFanoutLabelsCacheMissAsDegraded(t *testing.T) {
	before := testutil.ToFloat64(FanoutPushes.WithLabelValues("true"))
	RecordFanout(false)
	after := testutil.ToFloat64(FanoutPushes.WithLabelValues("true"))

	if after != before+1 {
		t.Fatalf("expected the true (degraded) label to increment, got %v -> %v", before, after)
	}
}

func TestQueueDropsIncrements(t *testing.T) {
	before := testutil.ToFloat64(QueueDrops)
	QueueDrops.Inc()
	after := testutil.ToFloat64(QueueDrops)

	if after != before+1 {
		t.Fatalf("expected QueueDrops to increment by 1, got %v -> %v", before, after)
	}
}
