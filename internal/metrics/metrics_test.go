package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInit(t *testing.T) {
	// Call Init multiple times to test idempotency.
	Init()
	Init()

	if recordsFetchedTotal == nil || recordsPersistedTotal == nil ||
		sourceErrorsTotal == nil || ingestDurationSeconds == nil {
		t.Fatal("Init() did not initialize metrics collectors")
	}

	ObserveFetched("arxiv", 3)
	if val := testutil.ToFloat64(recordsFetchedTotal.WithLabelValues("arxiv")); val != 3 {
		t.Errorf("Expected recordsFetchedTotal to be 3, got %f", val)
	}

	ObservePersisted("arxiv", "new")
	ObservePersisted("arxiv", "refresh")
	if val := testutil.ToFloat64(recordsPersistedTotal.WithLabelValues("arxiv", "new")); val != 1 {
		t.Errorf("Expected recordsPersistedTotal{new} to be 1, got %f", val)
	}

	ObserveNotifications(2)
	if val := testutil.ToFloat64(notificationsCreatedTotal); val != 2 {
		t.Errorf("Expected notificationsCreatedTotal to be 2, got %f", val)
	}
}

func TestWorkerGaugeAndDuration(t *testing.T) {
	Init()

	IncActiveWorkers()
	IncActiveWorkers()
	DecActiveWorkers()
	if val := testutil.ToFloat64(activeFetchWorkers); val != 1 {
		t.Errorf("Expected activeFetchWorkers to be 1, got %f", val)
	}
	DecActiveWorkers()

	ObserveIngestDuration("papers", 3*time.Second)
	if val := testutil.CollectAndCount(ingestDurationSeconds); val <= 0 {
		t.Errorf("Expected ingestDurationSeconds to be observed, got %d", val)
	}
}
