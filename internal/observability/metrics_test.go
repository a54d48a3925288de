package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordExecute(t *testing.T) {
	RegisterMetrics()
	before := testutil.ToFloat64(executeRequests.WithLabelValues("volume", "list", "ok"))
	RecordExecute("volume", "list", "ok", 5*time.Millisecond)
	after := testutil.ToFloat64(executeRequests.WithLabelValues("volume", "list", "ok"))
	if after != before+1 {
		t.Fatalf("counter = %v, want %v", after, before+1)
	}
}

func TestConnGauge(t *testing.T) {
	RegisterMetrics()
	before := testutil.ToFloat64(openConnections)
	ConnOpened()
	ConnOpened()
	ConnClosed()
	after := testutil.ToFloat64(openConnections)
	if after != before+1 {
		t.Fatalf("gauge = %v, want %v", after, before+1)
	}
}
