package engine

import "context"

// Logger is the minimal logging abstraction used across modules.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
}

// Config provides typed access to configuration values.
type Config interface {
	GetString(key string) string
	GetInt(key string) int
	GetFloat64(key string) float64
	GetBool(key string) bool
}

// TranscodeArgs is the resolved transcoder configuration for one session.
// Before holds input-side arguments, Options output-side arguments and
// FilterGraph the combined audio filter graph (empty when no filter is active).
// Bitrate and Volume are fixed at admission time; changes to the shared
// quality setting never affect sessions already started.
type TranscodeArgs struct {
	Before      string
	Options     string
	FilterGraph string
	Bitrate     int
	Volume      float64
}

// TranscodeSession is one running transcoder stream. Completion is signalled
// on Done: a nil error for a natural end, a non-nil error for a failure.
// The channel receives exactly one value per session.
type TranscodeSession interface {
	ID() string
	Source() string
	Done() <-chan error
	SetVolume(v float64)
	Volume() float64
	Stop()
}

// Transcoder builds playable sessions from a source URL and resolved arguments.
type Transcoder interface {
	NewSession(ctx context.Context, source string, args TranscodeArgs) (TranscodeSession, error)
}

// VoiceTransport abstracts the per-entity voice connection. Implementations
// deliver the session's audio to the entity's channel; the engine only drives
// lifecycle and timing.
type VoiceTransport interface {
	Connect(ctx context.Context, channelID string) error
	Move(ctx context.Context, channelID string) error
	Disconnect() error
	Play(session TranscodeSession) error
	Stop()
	Pause()
	Resume()
	IsPlaying() bool
	IsConnected() bool
}

// StateStore persists per-entity player snapshots and playback history.
type StateStore interface {
	SaveState(ctx context.Context, entityID int64, blob []byte) error
	LoadState(ctx context.Context, entityID int64) ([]byte, error)
	ClearState(ctx context.Context, entityID int64) error
	SaveHistory(ctx context.Context, entityID int64, track *Track) error
	History(ctx context.Context, entityID int64, limit int) ([]*Track, error)
	EntityStats(ctx context.Context, entityID int64) (*EntityStats, error)
	Close() error
}

// EntityStats aggregates persisted playback statistics for one entity.
type EntityStats struct {
	EntityID       int64
	TracksPlayed   int64
	PlaytimeSecond int64
}

// WorkerPool limits concurrency for background tasks.
type WorkerPool interface {
	Submit(task func()) error
	SubmitWait(task func() error) error
	SubmitWaitContext(ctx context.Context, task func() error) error
	Shutdown(ctx context.Context) error
	Size() int
}
