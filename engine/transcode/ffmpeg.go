package transcode

import (
	"context"
	"fmt"
	"io"
	"math"
	"os/exec"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/rae1st/oscillate/engine"
)

// FFmpeg spawns one external transcoder process per session.
type FFmpeg struct {
	path string
	log  engine.Logger
}

// NewFFmpeg creates a transcoder using the given binary path.
func NewFFmpeg(path string, log engine.Logger) *FFmpeg {
	if path == "" {
		path = "ffmpeg"
	}
	return &FFmpeg{path: path, log: log}
}

// Preflight verifies the transcoder binary is present on the host. Call it
// once at startup; session creation assumes the binary exists.
func (f *FFmpeg) Preflight() error {
	if _, err := exec.LookPath(f.path); err != nil {
		return fmt.Errorf("transcoder binary %q not found: %w", f.path, err)
	}
	return nil
}

// NewSession starts a transcoder process for the source. The returned
// session signals completion exactly once on Done: nil after a natural end
// or an explicit Stop, the process error otherwise.
func (f *FFmpeg) NewSession(ctx context.Context, source string, args engine.TranscodeArgs) (engine.TranscodeSession, error) {
	opt := Options{Bitrate: args.Bitrate, Volume: args.Volume}
	if opt.Volume <= 0 {
		opt.Volume = 1.0
	}
	return f.NewSessionOptions(ctx, source, args, opt)
}

// NewSessionOptions starts a session with explicit bitrate, seek and volume.
func (f *FFmpeg) NewSessionOptions(ctx context.Context, source string, args engine.TranscodeArgs, opt Options) (engine.TranscodeSession, error) {
	sessCtx, cancel := context.WithCancel(ctx)

	argv := BuildArgs(source, args, opt)
	cmd := exec.CommandContext(sessCtx, f.path, argv...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("transcoder stdout: %w", err)
	}

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("start transcoder: %w", err)
	}

	s := &Session{
		id:     uuid.NewString(),
		source: source,
		cmd:    cmd,
		stdout: stdout,
		cancel: cancel,
		done:   make(chan error, 1),
	}
	s.SetVolume(opt.Volume)

	if f.log != nil {
		f.log.Debug("transcoder session started", "session", s.id, "source", source, "args", argv)
	}

	go s.wait(f.log)
	return s, nil
}

// Session is one running transcoder process.
type Session struct {
	id      string
	source  string
	cmd     *exec.Cmd
	stdout  io.ReadCloser
	cancel  context.CancelFunc
	done    chan error
	stopped atomic.Bool
	volume  atomic.Uint64
}

func (s *Session) ID() string     { return s.id }
func (s *Session) Source() string { return s.source }

// Done reports session completion. The channel receives exactly one value.
func (s *Session) Done() <-chan error { return s.done }

// Stdout exposes the raw PCM stream for the voice transport.
func (s *Session) Stdout() io.ReadCloser { return s.stdout }

// SetVolume records the linear gain. The running process is unaffected; the
// player applies the value when it builds the next session.
func (s *Session) SetVolume(v float64) {
	if v < 0 {
		v = 0
	}
	s.volume.Store(math.Float64bits(v))
}

// Volume returns the recorded linear gain.
func (s *Session) Volume() float64 {
	return math.Float64frombits(s.volume.Load())
}

// Stop terminates the process. The Done channel receives nil; a stop is not
// a failure.
func (s *Session) Stop() {
	s.stopped.Store(true)
	s.cancel()
}

func (s *Session) wait(log engine.Logger) {
	err := s.cmd.Wait()
	s.cancel()

	if s.stopped.Load() || err == nil {
		s.done <- nil
		return
	}
	if log != nil {
		log.Warn("transcoder session failed", "session", s.id, "error", err)
	}
	s.done <- fmt.Errorf("transcoder exited: %w", err)
}
