package playback

import (
	"context"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/sync/semaphore"

	"github.com/rae1st/oscillate/engine"
	"github.com/rae1st/oscillate/engine/resolve"
	"github.com/rae1st/oscillate/engine/store"
	"github.com/rae1st/oscillate/engine/telemetry"
	"github.com/rae1st/oscillate/engine/worker"
)

// Options configures a Manager. Transcoder is required; everything else has
// a working default.
type Options struct {
	Logger     engine.Logger
	Config     engine.Config
	Store      engine.StateStore
	Transcoder engine.Transcoder
	Pool       engine.WorkerPool
	Metrics    *telemetry.Metrics
	Resolver   *resolve.Resolver

	// TransportFactory builds the voice transport for a new player. Nil
	// installs a transport that accepts everything and delivers nothing,
	// which suits tests and non-voice embeddings.
	TransportFactory func(entityID int64) engine.VoiceTransport
}

// Manager is the process-wide governor: it owns all players, the bounded
// transcoder permit pool, the shared adaptive bitrate, the metadata cache,
// the hook registry and the autosave and idle-reaper loops.
type Manager struct {
	log        engine.Logger
	store      engine.StateStore
	transcoder engine.Transcoder
	pool       engine.WorkerPool
	metrics    *telemetry.Metrics
	resolver   *resolve.Resolver
	transports func(entityID int64) engine.VoiceTransport

	maxQueueSize int
	historySize  int
	crossfade    time.Duration
	idleTimeout  time.Duration

	mu      sync.Mutex
	players map[int64]*Player
	closed  bool

	sem     *semaphore.Weighted
	permits int64

	bitrateMu      sync.Mutex
	bitrate        int
	defaultBitrate int
	reducedBitrate int
	activeStreams  int64

	cache   *Cache
	hooks   *hookRegistry
	limiter *saveLimiter
	breaker *gobreaker.CircuitBreaker

	loopCtx    context.Context
	loopCancel context.CancelFunc
	loopWG     sync.WaitGroup
}

// NewManager builds a manager from options and starts its background loops.
func NewManager(opts Options) (*Manager, error) {
	if opts.Transcoder == nil {
		return nil, engine.ErrManagerClosed
	}

	log := opts.Logger
	if log == nil {
		log = nopLogger{}
	}

	cfg := configOr(opts.Config)
	permits := int64(cfg.GetInt("MaxTranscoders"))
	if permits <= 0 {
		permits = 4
	}

	st := opts.Store
	if st == nil {
		st = store.NewMemoryStore()
	}
	pool := opts.Pool
	if pool == nil {
		pool = worker.New(cfg.GetInt("WorkerPoolSize"))
	}

	m := &Manager{
		log:            log,
		store:          st,
		transcoder:     opts.Transcoder,
		pool:           pool,
		metrics:        opts.Metrics,
		resolver:       opts.Resolver,
		transports:     opts.TransportFactory,
		maxQueueSize:   cfg.GetInt("MaxQueueSize"),
		historySize:    cfg.GetInt("HistorySize"),
		crossfade:      time.Duration(cfg.GetFloat64("CrossfadeSec") * float64(time.Second)),
		idleTimeout:    time.Duration(cfg.GetInt("IdleTimeoutSec")) * time.Second,
		players:        make(map[int64]*Player),
		sem:            semaphore.NewWeighted(permits),
		permits:        permits,
		defaultBitrate: cfg.GetInt("DefaultBitrate"),
		reducedBitrate: cfg.GetInt("ReducedBitrate"),
		cache:          NewCache(cfg.GetInt("CacheSize")),
		limiter:        newSaveLimiter(cfg.GetFloat64("SaveRatePerSec"), cfg.GetInt("SaveBurst")),
	}
	m.bitrate = m.defaultBitrate
	m.hooks = newHookRegistry(log, m.metrics.HookPanicked)

	m.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "state-store",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("state store breaker changed", "from", from.String(), "to", to.String())
		},
	})

	m.loopCtx, m.loopCancel = context.WithCancel(context.Background())
	m.startLoops(
		time.Duration(cfg.GetInt("AutosaveIntervalSec"))*time.Second,
		time.Duration(cfg.GetInt("IdleScanIntervalSec"))*time.Second,
	)

	return m, nil
}

// Player returns the entity's player, creating it on first use.
func (m *Manager) Player(entityID int64) (*Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, engine.ErrManagerClosed
	}
	if p, ok := m.players[entityID]; ok {
		return p, nil
	}

	transport := engine.VoiceTransport(noopTransport{})
	if m.transports != nil {
		transport = m.transports(entityID)
	}

	p := newPlayer(m.loopCtx, entityID, m, transport)
	m.players[entityID] = p
	m.metrics.PlayerOpened()
	m.log.Info("player created", "entity", entityID)
	return p, nil
}

// Lookup returns the entity's player without creating one.
func (m *Manager) Lookup(entityID int64) (*Player, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[entityID]
	return p, ok
}

// Players snapshots the current player list.
func (m *Manager) Players() []*Player {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*Player, 0, len(m.players))
	for _, p := range m.players {
		out = append(out, p)
	}
	return out
}

func (m *Manager) removePlayer(entityID int64) {
	m.mu.Lock()
	_, ok := m.players[entityID]
	delete(m.players, entityID)
	m.mu.Unlock()

	if ok {
		m.metrics.PlayerClosed()
		m.limiter.Forget(entityID)
		m.log.Info("player removed", "entity", entityID)
	}
}

// acquirePermit blocks until a transcoder permit is free or ctx ends. The
// returned release function is idempotent and must be called on every exit
// path. The admitted bitrate reflects load at acquisition time.
func (m *Manager) acquirePermit(ctx context.Context) (release func(), bitrate int, err error) {
	start := time.Now()
	if err := m.sem.Acquire(ctx, 1); err != nil {
		return nil, 0, err
	}
	m.metrics.ObservePermitWait(time.Since(start))
	m.metrics.TranscoderAcquired()

	bitrate = m.admitStream()

	var once sync.Once
	release = func() {
		once.Do(func() {
			m.releaseStream()
			m.sem.Release(1)
			m.metrics.TranscoderReleased()
		})
	}
	return release, bitrate, nil
}

// admitStream counts a new active stream and returns the bitrate it should
// use: reduced when more than half the pool is busy, default otherwise.
func (m *Manager) admitStream() int {
	m.bitrateMu.Lock()
	defer m.bitrateMu.Unlock()

	m.activeStreams++
	m.adaptLocked()
	if m.bitrate == m.reducedBitrate {
		m.metrics.BitrateReduced()
	}
	return m.bitrate
}

func (m *Manager) releaseStream() {
	m.bitrateMu.Lock()
	defer m.bitrateMu.Unlock()

	if m.activeStreams > 0 {
		m.activeStreams--
	}
	m.adaptLocked()
}

func (m *Manager) adaptLocked() {
	target := m.defaultBitrate
	if m.activeStreams > m.permits/2 {
		target = m.reducedBitrate
	}
	if target != m.bitrate {
		m.bitrate = target
		m.log.Info("adaptive bitrate changed", "bitrate", target, "active", m.activeStreams)
	}
}

// CurrentBitrate returns the shared target bitrate.
func (m *Manager) CurrentBitrate() int {
	m.bitrateMu.Lock()
	defer m.bitrateMu.Unlock()
	return m.bitrate
}

// On registers a hook callback for a named event.
func (m *Manager) On(event string, fn HookFunc) (int, error) {
	return m.hooks.on(event, fn)
}

// Off removes a previously registered hook.
func (m *Manager) Off(event string, id int) bool {
	return m.hooks.off(event, id)
}

func (m *Manager) emit(event string, entityID int64, payload HookPayload) {
	m.hooks.emit(event, entityID, payload)
}

// Cache returns the shared metadata cache.
func (m *Manager) Cache() *Cache {
	return m.cache
}

func (m *Manager) cacheTrack(track *engine.Track) {
	if track == nil {
		return
	}
	key := track.CacheKey()
	if _, ok := m.cache.Get(key); ok {
		m.metrics.CacheHit()
		return
	}
	m.metrics.CacheMiss()
	m.cache.Put(key, Metadata{
		Title:    track.Title,
		AudioURL: track.AudioURL,
		Duration: track.Duration,
		CachedAt: time.Now(),
	})
}

// resolveAsync probes the track's audio URL in the background and stores
// the final URL in the cache. Failures only log; playback will retry with
// the original URL.
func (m *Manager) resolveAsync(ctx context.Context, track *engine.Track) {
	if m.resolver == nil || track == nil {
		return
	}
	err := m.pool.Submit(func() {
		resolved, err := m.resolver.Resolve(ctx, track)
		if err != nil {
			m.log.Debug("url probe failed", "track", track.DisplayTitle(), "error", err)
			return
		}
		key := track.CacheKey()
		meta, _ := m.cache.Get(key)
		meta.Title = track.Title
		meta.AudioURL = track.AudioURL
		meta.ResolvedURL = resolved
		meta.Duration = track.Duration
		meta.CachedAt = time.Now()
		m.cache.Put(key, meta)
	})
	if err != nil {
		m.log.Debug("url probe skipped", "error", err)
	}
}

// SaveEntity persists one player's snapshot, subject to the per-entity rate
// limiter and the store circuit breaker. Failures are best-effort.
func (m *Manager) SaveEntity(ctx context.Context, p *Player) error {
	if !m.limiter.Allow(p.EntityID()) {
		return nil
	}
	return m.saveEntityNow(ctx, p)
}

func (m *Manager) saveEntityNow(ctx context.Context, p *Player) error {
	blob, err := p.SnapshotState()
	if err != nil {
		return err
	}

	_, err = m.breaker.Execute(func() (any, error) {
		return nil, m.store.SaveState(ctx, p.EntityID(), blob)
	})
	if err != nil {
		m.metrics.SaveFailed()
		m.log.Warn("state save failed", "entity", p.EntityID(), "error", err)
	}
	return err
}

func (m *Manager) saveAsync(p *Player) {
	err := m.pool.Submit(func() {
		_ = m.SaveEntity(m.loopCtx, p)
	})
	if err != nil {
		m.log.Debug("async save skipped", "error", err)
	}
}

// LoadEntity restores a player from its persisted snapshot. Without a
// stored blob it returns the fresh player unchanged.
func (m *Manager) LoadEntity(ctx context.Context, entityID int64) (*Player, error) {
	p, err := m.Player(entityID)
	if err != nil {
		return nil, err
	}

	blob, err := m.store.LoadState(ctx, entityID)
	if err != nil {
		return nil, err
	}
	if blob == nil {
		return p, nil
	}
	if err := p.RestoreState(blob); err != nil {
		return nil, err
	}
	return p, nil
}

func (m *Manager) clearState(entityID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.store.ClearState(ctx, entityID); err != nil {
		m.log.Debug("clear state failed", "entity", entityID, "error", err)
	}
}

func (m *Manager) recordHistory(entityID int64, track *engine.Track) {
	err := m.pool.Submit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := m.store.SaveHistory(ctx, entityID, track); err != nil {
			m.log.Debug("history save failed", "entity", entityID, "error", err)
		}
	})
	if err != nil {
		m.log.Debug("history save skipped", "error", err)
	}
}

// History returns the entity's persisted play history, newest first.
func (m *Manager) History(ctx context.Context, entityID int64, limit int) ([]*engine.Track, error) {
	return m.store.History(ctx, entityID, limit)
}

// EntityStats returns the entity's persisted aggregates.
func (m *Manager) EntityStats(ctx context.Context, entityID int64) (*engine.EntityStats, error) {
	return m.store.EntityStats(ctx, entityID)
}

// Snapshot exposes the telemetry counters.
func (m *Manager) Snapshot() map[string]int64 {
	return m.metrics.Snapshot()
}

func (m *Manager) startLoops(autosaveEvery, idleScanEvery time.Duration) {
	if autosaveEvery > 0 {
		m.loopWG.Add(1)
		go m.autosaveLoop(autosaveEvery)
	}
	if idleScanEvery > 0 {
		m.loopWG.Add(1)
		go m.idleLoop(idleScanEvery)
	}
}

func (m *Manager) autosaveLoop(every time.Duration) {
	defer m.loopWG.Done()

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-m.loopCtx.Done():
			return
		case <-ticker.C:
			m.SaveAll(m.loopCtx)
		}
	}
}

// SaveAll persists every active player, best-effort.
func (m *Manager) SaveAll(ctx context.Context) {
	for _, p := range m.Players() {
		_ = m.saveEntityNow(ctx, p)
	}
}

func (m *Manager) idleLoop(every time.Duration) {
	defer m.loopWG.Done()

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-m.loopCtx.Done():
			return
		case now := <-ticker.C:
			m.reapIdle(now)
		}
	}
}

func (m *Manager) reapIdle(now time.Time) {
	for _, p := range m.Players() {
		if !p.IsIdle(now, m.idleTimeout) {
			continue
		}
		m.log.Info("reaping idle player", "entity", p.EntityID())
		m.metrics.IdleReaped()
		m.emit(EventIdle, p.EntityID(), HookPayload{})
		p.Stop()
	}
}

// Shutdown stops intake, persists all players best-effort, cancels the
// background loops and stops every player.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	m.SaveAll(ctx)

	m.loopCancel()
	m.loopWG.Wait()

	for _, p := range m.Players() {
		p.Stop()
	}

	return m.pool.Shutdown(ctx)
}

func configOr(cfg engine.Config) engine.Config {
	if cfg != nil {
		return cfg
	}
	return defaultsConfig{}
}

// defaultsConfig supplies engine defaults when no Config is given.
type defaultsConfig struct{}

func (defaultsConfig) GetString(string) string { return "" }
func (defaultsConfig) GetBool(string) bool     { return false }

func (defaultsConfig) GetInt(key string) int {
	switch key {
	case "MaxTranscoders":
		return 4
	case "IdleTimeoutSec":
		return 300
	case "AutosaveIntervalSec":
		return 30
	case "IdleScanIntervalSec":
		return 10
	case "CacheSize":
		return 200
	case "MaxQueueSize":
		return 1000
	case "HistorySize":
		return 50
	case "DefaultBitrate":
		return 256000
	case "ReducedBitrate":
		return 128000
	case "WorkerPoolSize":
		return 4
	case "SaveBurst":
		return 2
	default:
		return 0
	}
}

func (defaultsConfig) GetFloat64(key string) float64 {
	switch key {
	case "CrossfadeSec":
		return 3.0
	case "SaveRatePerSec":
		return 1.0
	default:
		return 0
	}
}

// noopTransport accepts all transport calls without doing anything. It
// stands in when no voice integration is wired.
type noopTransport struct{}

func (noopTransport) Connect(context.Context, string) error { return nil }
func (noopTransport) Move(context.Context, string) error    { return nil }
func (noopTransport) Disconnect() error                     { return nil }
func (noopTransport) Play(engine.TranscodeSession) error    { return nil }
func (noopTransport) Stop()                                 {}
func (noopTransport) Pause()                                {}
func (noopTransport) Resume()                               {}
func (noopTransport) IsPlaying() bool                       { return false }
func (noopTransport) IsConnected() bool                     { return false }

type nopLogger struct{}

func (nopLogger) Debug(string, ...any)        {}
func (nopLogger) Info(string, ...any)         {}
func (nopLogger) Warn(string, ...any)         {}
func (nopLogger) Error(string, ...any)        {}
func (l nopLogger) With(...any) engine.Logger { return l }
