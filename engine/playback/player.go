// Package playback contains the per-entity player state machine and the
// process-wide manager that governs transcoder admission across players.
package playback

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rae1st/oscillate/engine"
	"github.com/rae1st/oscillate/engine/filter"
	"github.com/rae1st/oscillate/engine/queue"
)

// State is the player lifecycle state.
type State int

const (
	StateIdle State = iota
	StatePlaying
	StatePaused
)

func (s State) String() string {
	switch s {
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "idle"
	}
}

const (
	volumeMin = 0.0
	volumeMax = 2.0

	fadeStepsMin = 3
	fadeStepsMax = 20
)

// Player drives playback for one entity. It owns the entity's queue and
// filter chain and holds at most one active transcoder session plus one
// preloaded session for the upcoming track.
//
// Current is non-nil exactly while the state is playing or paused.
type Player struct {
	entityID  int64
	manager   *Manager
	transport engine.VoiceTransport
	queue     *queue.Queue
	chain     *filter.Chain
	log       engine.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	state      State
	current    *engine.Track
	session    engine.TranscodeSession
	preload    *preloadedSession
	startedAt  time.Time
	pausedAt   time.Time
	lastActive time.Time
	volume     float64
	crossfade  time.Duration
	advancing  bool
	stopped    bool
}

type preloadedSession struct {
	track   *engine.Track
	session engine.TranscodeSession
}

// Status is a read-only snapshot of the player for inspection surfaces.
type Status struct {
	EntityID int64
	State    string
	Current  *engine.Track
	Elapsed  time.Duration
	Volume   float64
	Queue    queue.Stats
	Filters  int
}

// playerState is the durable snapshot layout. This is the only format the
// store round-trips.
type playerState struct {
	Current   *engine.Track        `json:"current,omitempty"`
	Queue     queue.State          `json:"queue"`
	Volume    float64              `json:"volume"`
	Crossfade float64              `json:"crossfade"`
	Filters   []filter.Description `json:"filters,omitempty"`
	LastSaved float64              `json:"last_saved"`
}

func newPlayer(parent context.Context, entityID int64, m *Manager, transport engine.VoiceTransport) *Player {
	ctx, cancel := context.WithCancel(parent)
	return &Player{
		entityID:   entityID,
		manager:    m,
		transport:  transport,
		queue:      queue.New(m.maxQueueSize, m.historySize),
		chain:      filter.NewChain(),
		log:        m.log.With("entity", entityID),
		ctx:        ctx,
		cancel:     cancel,
		lastActive: time.Now(),
		volume:     1.0,
		crossfade:  m.crossfade,
	}
}

// EntityID returns the owning entity's id.
func (p *Player) EntityID() int64 { return p.entityID }

// Queue returns the player's queue.
func (p *Player) Queue() *queue.Queue { return p.queue }

// Filters returns the player's filter chain.
func (p *Player) Filters() *filter.Chain {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.chain
}

// State returns the current lifecycle state.
func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Current returns the track being played or held, or nil when idle.
func (p *Player) Current() *engine.Track {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// EnsureVoice connects the transport, or moves it if already connected.
func (p *Player) EnsureVoice(ctx context.Context, channelID string) error {
	var err error
	if p.transport.IsConnected() {
		err = p.transport.Move(ctx, channelID)
	} else {
		err = p.transport.Connect(ctx, channelID)
	}
	if err != nil {
		return &engine.ConnError{EntityID: p.entityID, Op: "connect", Err: err}
	}
	p.touch()
	return nil
}

// Add enqueues a track and starts playback if the player is idle. Track
// metadata enters the shared cache; when a resolver is configured the audio
// URL is probed in the background.
func (p *Player) Add(track *engine.Track) error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return engine.ErrManagerClosed
	}
	p.mu.Unlock()

	if err := p.queue.Put(track); err != nil {
		return err
	}
	p.touch()

	p.manager.cacheTrack(track)
	p.manager.resolveAsync(p.ctx, track)

	p.ProcessQueue()
	return nil
}

// AddMany enqueues a batch, returning how many were accepted.
func (p *Player) AddMany(tracks []*engine.Track) (int, error) {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return 0, engine.ErrManagerClosed
	}
	p.mu.Unlock()

	added, err := p.queue.PutMany(tracks)
	if added > 0 {
		p.touch()
		for _, track := range tracks[:added] {
			p.manager.cacheTrack(track)
		}
		p.ProcessQueue()
	}
	return added, err
}

// ProcessQueue advances to the next track when idle. Only one admission
// attempt runs at a time; calls while playing, advancing or stopped are
// no-ops.
func (p *Player) ProcessQueue() {
	p.mu.Lock()
	if p.stopped || p.advancing || p.state != StateIdle {
		p.mu.Unlock()
		return
	}

	track := p.queue.Get()
	if track == nil {
		p.lastActive = time.Now()
		p.mu.Unlock()
		return
	}

	p.advancing = true
	p.current = track
	p.state = StatePlaying
	p.lastActive = time.Now()
	p.mu.Unlock()

	go p.playCurrent(track)
}

// playCurrent acquires a permit, builds or reuses a session and waits for
// it to finish. The permit is released on every exit path.
func (p *Player) playCurrent(track *engine.Track) {
	release, bitrate, err := p.manager.acquirePermit(p.ctx)
	if err != nil {
		p.finishTrack(track, nil)
		return
	}
	defer release()

	session := p.takePreloaded(track)
	if session == nil {
		session, err = p.newSession(p.ctx, track, bitrate)
		if err != nil {
			p.log.Warn("session start failed", "track", track.DisplayTitle(), "error", err)
			p.finishTrack(track, err)
			return
		}
	}

	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		session.Stop()
		p.finishTrack(track, nil)
		return
	}
	p.session = session
	p.startedAt = time.Now()
	if p.state == StatePaused {
		// Paused before the session came up; keep the freeze point.
		p.pausedAt = p.startedAt
	} else {
		p.pausedAt = time.Time{}
	}
	session.SetVolume(p.volume)
	p.mu.Unlock()

	if err := p.transport.Play(session); err != nil {
		connErr := &engine.ConnError{EntityID: p.entityID, Op: "play", Err: err}
		p.finishTrack(track, connErr)
		return
	}

	p.manager.metrics.TrackPlayed()
	p.manager.emit(EventTrackStart, p.entityID, HookPayload{Track: track})
	p.manager.recordHistory(p.entityID, track)
	p.schedulePreload()

	select {
	case err = <-session.Done():
	case <-p.ctx.Done():
		session.Stop()
		err = nil
	}

	p.transport.Stop()
	p.finishTrack(track, err)
}

// newSession builds transcoder arguments from the chain and the admitted
// bitrate and starts a session.
func (p *Player) newSession(ctx context.Context, track *engine.Track, bitrate int) (engine.TranscodeSession, error) {
	p.mu.Lock()
	chain := p.chain
	volume := p.volume
	p.mu.Unlock()

	args := chain.Combined()
	args.Bitrate = bitrate
	args.Volume = volume

	source := track.AudioURL
	if meta, ok := p.manager.cache.GetTrack(track); ok && meta.ResolvedURL != "" {
		source = meta.ResolvedURL
	}

	session, err := p.manager.transcoder.NewSession(ctx, source, args)
	if err != nil {
		return nil, fmt.Errorf("start session for %s: %w", track.DisplayTitle(), err)
	}
	return session, nil
}

// schedulePreload builds the next head track's session ahead of time so the
// track transition is gapless. The preload holds its own permit only while
// building; the built session is parked until ProcessQueue consumes it. Its
// bitrate comes from its own admission, not the current track's.
func (p *Player) schedulePreload() {
	next := p.queue.Peek()
	if next == nil {
		return
	}

	task := func() {
		p.mu.Lock()
		already := p.preload != nil && p.preload.track.Same(next)
		stopped := p.stopped
		p.mu.Unlock()
		if already || stopped {
			return
		}

		release, bitrate, err := p.manager.acquirePermit(p.ctx)
		if err != nil {
			return
		}
		defer release()

		session, err := p.newSession(p.ctx, next, bitrate)
		if err != nil {
			p.log.Debug("preload failed", "track", next.DisplayTitle(), "error", err)
			return
		}

		p.mu.Lock()
		if p.stopped || p.preload != nil {
			p.mu.Unlock()
			session.Stop()
			return
		}
		p.preload = &preloadedSession{track: next, session: session}
		p.mu.Unlock()
	}

	if err := p.manager.pool.Submit(task); err != nil {
		p.log.Debug("preload skipped", "error", err)
	}
}

// takePreloaded returns the parked session when its track identity matches,
// discarding a stale one otherwise.
func (p *Player) takePreloaded(track *engine.Track) engine.TranscodeSession {
	p.mu.Lock()
	pre := p.preload
	p.preload = nil
	p.mu.Unlock()

	if pre == nil {
		return nil
	}
	if pre.track.Same(track) {
		return pre.session
	}
	pre.session.Stop()
	return nil
}

// finishTrack resets per-track state, reports the outcome and advances the
// queue. Errors surface through the error hook and the track_end payload;
// the player recovers by moving on rather than halting.
func (p *Player) finishTrack(track *engine.Track, err error) {
	p.mu.Lock()
	p.session = nil
	p.current = nil
	p.state = StateIdle
	p.advancing = false
	p.startedAt = time.Time{}
	p.pausedAt = time.Time{}
	p.lastActive = time.Now()
	stopped := p.stopped
	p.mu.Unlock()

	if err != nil {
		p.manager.emit(EventError, p.entityID, HookPayload{Track: track, Err: err})
	}
	p.manager.emit(EventTrackEnd, p.entityID, HookPayload{Track: track, Err: err})

	if !stopped {
		p.manager.saveAsync(p)
		p.ProcessQueue()
	}
}

// Pause holds the current track. Valid only while playing.
func (p *Player) Pause() error {
	p.mu.Lock()
	if p.state != StatePlaying {
		p.mu.Unlock()
		return engine.ErrInvalidState
	}
	p.state = StatePaused
	p.pausedAt = time.Now()
	p.lastActive = p.pausedAt
	p.mu.Unlock()

	p.transport.Pause()
	p.manager.emit(EventPause, p.entityID, HookPayload{Track: p.Current()})
	return nil
}

// Resume continues a paused track. The start anchor shifts forward by the
// paused duration so elapsed-time accounting stays correct.
func (p *Player) Resume() error {
	p.mu.Lock()
	if p.state != StatePaused {
		p.mu.Unlock()
		return engine.ErrInvalidState
	}
	p.state = StatePlaying
	p.startedAt = p.startedAt.Add(time.Since(p.pausedAt))
	p.pausedAt = time.Time{}
	p.lastActive = time.Now()
	p.mu.Unlock()

	p.transport.Resume()
	p.manager.emit(EventResume, p.entityID, HookPayload{Track: p.Current()})
	return nil
}

// Skip fades the current track out and terminates its session, which
// triggers the normal end-of-track transition. The skip hook fires before
// the skipped track's track_end.
func (p *Player) Skip() error {
	p.mu.Lock()
	if p.state != StatePlaying {
		p.mu.Unlock()
		return engine.ErrInvalidState
	}
	session := p.session
	track := p.current
	crossfade := p.crossfade
	p.mu.Unlock()

	p.manager.emit(EventSkip, p.entityID, HookPayload{Track: track})
	p.fade(session, crossfade)
	if session != nil {
		session.Stop()
	}
	return nil
}

// Stop is terminal: fade out, disconnect, clear everything, persist the
// cleared state and remove the player from the manager. A later Add on the
// same entity creates a fresh player.
func (p *Player) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	session := p.session
	crossfade := p.crossfade
	if crossfade > time.Second {
		crossfade = time.Second
	}
	p.mu.Unlock()

	p.fade(session, crossfade)
	p.cancel()
	if session != nil {
		session.Stop()
	}

	p.mu.Lock()
	if pre := p.preload; pre != nil {
		pre.session.Stop()
		p.preload = nil
	}
	p.session = nil
	p.current = nil
	p.state = StateIdle
	p.startedAt = time.Time{}
	p.pausedAt = time.Time{}
	p.mu.Unlock()

	p.queue.Clear()
	p.transport.Stop()
	if err := p.transport.Disconnect(); err != nil {
		p.log.Debug("disconnect failed", "error", err)
	}

	p.manager.clearState(p.entityID)
	p.manager.emit(EventStop, p.entityID, HookPayload{})
	p.manager.removePlayer(p.entityID)
}

// fade ramps the session volume linearly to zero over the duration, in
// clamp(duration*10, 3, 20) steps. It aborts as soon as the session is no
// longer the active one.
func (p *Player) fade(session engine.TranscodeSession, duration time.Duration) {
	if session == nil || duration <= 0 {
		return
	}

	steps := fadeStepCount(duration)
	start := session.Volume()
	stepWait := duration / time.Duration(steps)

	for i := 1; i <= steps; i++ {
		p.mu.Lock()
		active := p.session == session
		p.mu.Unlock()
		if !active && !p.isStopping(session) {
			return
		}

		session.SetVolume(start * float64(steps-i) / float64(steps))

		select {
		case <-time.After(stepWait):
		case <-p.ctx.Done():
			return
		}
	}
}

// fadeStepCount converts a fade duration into a step count at roughly
// ten steps per second, clamped so very short fades still ramp and very
// long ones stay cheap.
func fadeStepCount(duration time.Duration) int {
	steps := int(duration.Seconds() * 10)
	if steps < fadeStepsMin {
		return fadeStepsMin
	}
	if steps > fadeStepsMax {
		return fadeStepsMax
	}
	return steps
}

func (p *Player) isStopping(session engine.TranscodeSession) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopped && session != nil
}

// SetVolume clamps and stores the volume and applies it to the live session.
func (p *Player) SetVolume(v float64) {
	if v < volumeMin {
		v = volumeMin
	}
	if v > volumeMax {
		v = volumeMax
	}

	p.mu.Lock()
	p.volume = v
	session := p.session
	p.mu.Unlock()

	if session != nil {
		session.SetVolume(v)
	}
	p.touch()
}

// Volume returns the current volume.
func (p *Player) Volume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// SetCrossfade sets the fade duration used by Skip and Stop.
func (p *Player) SetCrossfade(d time.Duration) {
	if d < 0 {
		d = 0
	}
	p.mu.Lock()
	p.crossfade = d
	p.mu.Unlock()
}

// Crossfade returns the configured fade duration.
func (p *Player) Crossfade() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.crossfade
}

// Elapsed returns how long the current track has effectively played,
// excluding paused time.
func (p *Player) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.state {
	case StatePlaying:
		return time.Since(p.startedAt)
	case StatePaused:
		return p.pausedAt.Sub(p.startedAt)
	default:
		return 0
	}
}

// IsIdle reports whether the player has been inactive past the timeout:
// nothing current, nothing queued, not paused.
func (p *Player) IsIdle(now time.Time, timeout time.Duration) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StateIdle || p.stopped {
		return false
	}
	if !p.queue.IsEmpty() {
		return false
	}
	return now.Sub(p.lastActive) > timeout
}

// Status snapshots the player for inspection.
func (p *Player) Status() Status {
	p.mu.Lock()
	state := p.state
	current := p.current
	volume := p.volume
	chain := p.chain
	p.mu.Unlock()

	return Status{
		EntityID: p.entityID,
		State:    state.String(),
		Current:  current,
		Elapsed:  p.Elapsed(),
		Volume:   volume,
		Queue:    p.queue.Stats(),
		Filters:  chain.Len(),
	}
}

// SnapshotState serializes the player into the durable blob layout.
func (p *Player) SnapshotState() ([]byte, error) {
	p.mu.Lock()
	var current *engine.Track
	if p.current != nil {
		current = p.current.Clone()
	}
	volume := p.volume
	crossfade := p.crossfade.Seconds()
	chain := p.chain
	p.mu.Unlock()

	state := playerState{
		Current:   current,
		Queue:     p.queue.ExportState(),
		Volume:    volume,
		Crossfade: crossfade,
		Filters:   chain.Describe(),
		LastSaved: float64(time.Now().UnixMilli()) / 1000,
	}
	return json.Marshal(state)
}

// RestoreState rebuilds the player from a persisted blob. A track that was
// current at save time goes to the front of the queue so it plays first.
func (p *Player) RestoreState(blob []byte) error {
	var state playerState
	if err := json.Unmarshal(blob, &state); err != nil {
		return fmt.Errorf("decode player state: %w", err)
	}

	if err := p.queue.ImportState(state.Queue); err != nil {
		return err
	}
	if state.Current != nil {
		if err := p.queue.AddToFront(state.Current); err != nil {
			return err
		}
	}

	chain, err := filter.ChainFromDescriptions(state.Filters)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.chain = chain
	p.volume = clampVolume(state.Volume)
	if state.Crossfade >= 0 {
		p.crossfade = time.Duration(state.Crossfade * float64(time.Second))
	}
	p.mu.Unlock()

	p.touch()
	return nil
}

func (p *Player) touch() {
	p.mu.Lock()
	p.lastActive = time.Now()
	p.mu.Unlock()
}

func clampVolume(v float64) float64 {
	if v < volumeMin {
		return volumeMin
	}
	if v > volumeMax {
		return volumeMax
	}
	return v
}
