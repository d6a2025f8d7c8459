package metrics

import (
	"sync"
	"testing"
	"time"
)

type mockStatsProvider struct {
	mu    sync.Mutex
	stats Stats
	calls int
}

func (m *mockStatsProvider) GetStats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.stats
}

func (m *mockStatsProvider) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func TestNewCollector(t *testing.T) {
	provider := &mockStatsProvider{}
	collector := NewCollector(provider, 5*time.Second)

	if collector.statsProvider != provider {
		t.Error("statsProvider not set correctly")
	}
	if collector.interval != 5*time.Second {
		t.Errorf("interval = %v, want %v", collector.interval, 5*time.Second)
	}
	if collector.stopChan == nil {
		t.Error("stopChan not initialized")
	}
}

func TestCollectUpdatesGauges(t *testing.T) {
	provider := &mockStatsProvider{stats: Stats{Entries: 7, SizeBytes: 4096, Hits: 12}}
	collector := NewCollector(provider, time.Minute)

	collector.collect()

	if got := gaugeValue(t, CacheEntries); got != 7 {
		t.Errorf("CacheEntries = %v, want 7", got)
	}
	if got := gaugeValue(t, CacheSizeBytes); got != 4096 {
		t.Errorf("CacheSizeBytes = %v, want 4096", got)
	}
}

func TestCollectWithNilProvider(_ *testing.T) {
	collector := NewCollector(nil, time.Minute)
	// Must not panic.
	collector.collect()
}

func TestCollectorStartStop(t *testing.T) {
	provider := &mockStatsProvider{}
	collector := NewCollector(provider, 20*time.Millisecond)

	collector.Start()
	deadline := time.Now().Add(2 * time.Second)
	for provider.callCount() < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	collector.Stop()

	if provider.callCount() < 2 {
		t.Errorf("expected an immediate and a periodic collection, got %d", provider.callCount())
	}
}

func TestCollectorMultipleStops(_ *testing.T) {
	collector := NewCollector(&mockStatsProvider{}, time.Minute)
	collector.Start()
	collector.Stop()
	collector.Stop()
}
