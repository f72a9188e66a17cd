package telemetry

import (
	"testing"
	"time"
)

func TestSnapshotTracksCounters(t *testing.T) {
	m := New()

	m.PlayerOpened()
	m.PlayerOpened()
	m.PlayerClosed()
	m.TrackPlayed()
	m.CacheHit()
	m.CacheMiss()
	m.CacheMiss()
	m.ObservePermitWait(10 * time.Millisecond)

	snap := m.Snapshot()
	if snap["active_players"] != 1 {
		t.Errorf("expected 1 active player, got %d", snap["active_players"])
	}
	if snap["tracks_played"] != 1 {
		t.Errorf("expected 1 track played, got %d", snap["tracks_played"])
	}
	if snap["cache_hits"] != 1 || snap["cache_misses"] != 2 {
		t.Errorf("unexpected cache counters: %+v", snap)
	}
	if rate := m.CacheHitRate(); rate < 0.33 || rate > 0.34 {
		t.Errorf("expected hit rate 1/3, got %g", rate)
	}
}

func TestNilMetricsIsNoOp(t *testing.T) {
	var m *Metrics

	// Must not panic.
	m.PlayerOpened()
	m.TranscoderAcquired()
	m.TrackPlayed()
	m.SaveFailed()

	if len(m.Snapshot()) != 0 {
		t.Fatal("nil metrics snapshot should be empty")
	}
}
