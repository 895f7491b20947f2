package tracker

import (
	"sync"
	"testing"
)

func TestTracker(t *testing.T) {
	tr := New()
	provider := "openweather"

	if stats := tr.Snapshot(); len(stats) != 0 {
		t.Errorf("Expected empty stats, got %d", len(stats))
	}

	tr.TrackCacheHit(provider)
	tr.TrackCacheMiss(provider)
	tr.TrackAPISuccess(provider)
	tr.TrackAPIFailure(provider)
	tr.TrackAPIZero(provider)

	pStats, ok := tr.Snapshot()[provider]
	if !ok {
		t.Fatalf("Expected stats for provider %s", provider)
	}
	if pStats.CacheHits != 1 || pStats.CacheMisses != 1 {
		t.Errorf("unexpected cache counters: %+v", pStats)
	}
	if pStats.APISuccess != 1 || pStats.APIFailures != 1 || pStats.APIZeroResult != 1 {
		t.Errorf("unexpected api counters: %+v", pStats)
	}
}

func TestTracker_Concurrent(t *testing.T) {
	tr := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.TrackAPISuccess("gemini")
		}()
	}
	wg.Wait()

	if got := tr.Snapshot()["gemini"].APISuccess; got != 50 {
		t.Errorf("Expected 50 successes, got %d", got)
	}
}

func TestReset(t *testing.T) {
	tr := New()
	tr.TrackAPIFailure("ip-api")
	tr.Reset()
	if len(tr.Snapshot()) != 0 {
		t.Error("Reset did not clear stats")
	}
}
