// Package telemetry exposes engine counters both as Prometheus collectors
// and as a plain snapshot map for embedding applications.
package telemetry

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rae1st/oscillate/engine"
)

// Metrics aggregates all engine-level counters. A nil *Metrics is valid and
// turns every method into a no-op, so call sites never need guards.
type Metrics struct {
	registry *prometheus.Registry

	activePlayers     prometheus.Gauge
	activeTranscoders prometheus.Gauge
	tracksPlayed      prometheus.Counter
	transcoderWait    prometheus.Histogram
	cacheHits         prometheus.Counter
	cacheMisses       prometheus.Counter
	saveFailures      prometheus.Counter
	hookPanics        prometheus.Counter
	idleReaps         prometheus.Counter
	bitrateReductions prometheus.Counter

	// Mirrors for Snapshot, kept off the Prometheus types so reads do not
	// need collector gathering.
	players     atomic.Int64
	transcoders atomic.Int64
	played      atomic.Int64
	hits        atomic.Int64
	misses      atomic.Int64
	failures    atomic.Int64
	panics      atomic.Int64
	reaps       atomic.Int64
	reductions  atomic.Int64
}

// New creates a metrics set on its own registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		activePlayers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "oscillate_active_players",
			Help: "Players currently managed.",
		}),
		activeTranscoders: factory.NewGauge(prometheus.GaugeOpts{
			Name: "oscillate_active_transcoders",
			Help: "Transcoder permits currently held.",
		}),
		tracksPlayed: factory.NewCounter(prometheus.CounterOpts{
			Name: "oscillate_tracks_played_total",
			Help: "Tracks dequeued for playback.",
		}),
		transcoderWait: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "oscillate_transcoder_wait_seconds",
			Help:    "Time spent waiting for a transcoder permit.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
		cacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "oscillate_metadata_cache_hits_total",
			Help: "Metadata cache hits.",
		}),
		cacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "oscillate_metadata_cache_misses_total",
			Help: "Metadata cache misses.",
		}),
		saveFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "oscillate_state_save_failures_total",
			Help: "Failed player state persistence attempts.",
		}),
		hookPanics: factory.NewCounter(prometheus.CounterOpts{
			Name: "oscillate_hook_panics_total",
			Help: "Event hooks that panicked and were isolated.",
		}),
		idleReaps: factory.NewCounter(prometheus.CounterOpts{
			Name: "oscillate_idle_reaps_total",
			Help: "Players shut down by the idle reaper.",
		}),
		bitrateReductions: factory.NewCounter(prometheus.CounterOpts{
			Name: "oscillate_bitrate_reductions_total",
			Help: "Sessions admitted at the reduced bitrate.",
		}),
	}
}

func (m *Metrics) PlayerOpened() {
	if m == nil {
		return
	}
	m.activePlayers.Inc()
	m.players.Add(1)
}

func (m *Metrics) PlayerClosed() {
	if m == nil {
		return
	}
	m.activePlayers.Dec()
	m.players.Add(-1)
}

func (m *Metrics) TranscoderAcquired() {
	if m == nil {
		return
	}
	m.activeTranscoders.Inc()
	m.transcoders.Add(1)
}

func (m *Metrics) TranscoderReleased() {
	if m == nil {
		return
	}
	m.activeTranscoders.Dec()
	m.transcoders.Add(-1)
}

func (m *Metrics) TrackPlayed() {
	if m == nil {
		return
	}
	m.tracksPlayed.Inc()
	m.played.Add(1)
}

func (m *Metrics) ObservePermitWait(d time.Duration) {
	if m == nil {
		return
	}
	m.transcoderWait.Observe(d.Seconds())
}

func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.cacheHits.Inc()
	m.hits.Add(1)
}

func (m *Metrics) CacheMiss() {
	if m == nil {
		return
	}
	m.cacheMisses.Inc()
	m.misses.Add(1)
}

func (m *Metrics) SaveFailed() {
	if m == nil {
		return
	}
	m.saveFailures.Inc()
	m.failures.Add(1)
}

func (m *Metrics) HookPanicked() {
	if m == nil {
		return
	}
	m.hookPanics.Inc()
	m.panics.Add(1)
}

func (m *Metrics) IdleReaped() {
	if m == nil {
		return
	}
	m.idleReaps.Inc()
	m.reaps.Add(1)
}

func (m *Metrics) BitrateReduced() {
	if m == nil {
		return
	}
	m.bitrateReductions.Inc()
	m.reductions.Add(1)
}

// Snapshot returns the current counter values keyed by short names.
func (m *Metrics) Snapshot() map[string]int64 {
	if m == nil {
		return map[string]int64{}
	}
	return map[string]int64{
		"active_players":     m.players.Load(),
		"active_transcoders": m.transcoders.Load(),
		"tracks_played":      m.played.Load(),
		"cache_hits":         m.hits.Load(),
		"cache_misses":       m.misses.Load(),
		"save_failures":      m.failures.Load(),
		"hook_panics":        m.panics.Load(),
		"idle_reaps":         m.reaps.Load(),
		"bitrate_reductions": m.reductions.Load(),
	}
}

// CacheHitRate returns the fraction of cache lookups that hit, or 0 before
// any lookup happened.
func (m *Metrics) CacheHitRate() float64 {
	if m == nil {
		return 0
	}
	hits := m.hits.Load()
	total := hits + m.misses.Load()
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

// Serve exposes /metrics on addr until the context ends. It returns the
// http.Server error if listening fails.
func (m *Metrics) Serve(ctx context.Context, addr string, log engine.Logger) error {
	if m == nil || addr == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if log != nil {
		log.Info("metrics endpoint listening", "addr", addr)
	}
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
