package playback

import (
	"fmt"
	"sync"

	"github.com/rae1st/oscillate/engine"
)

// Event names accepted by the hook registry.
const (
	EventTrackStart = "track_start"
	EventTrackEnd   = "track_end"
	EventIdle       = "idle"
	EventPause      = "pause"
	EventResume     = "resume"
	EventStop       = "stop"
	EventSkip       = "skip"
	EventError      = "error"
)

// HookPayload carries the event context to callbacks.
type HookPayload struct {
	Track *engine.Track
	Err   error
}

// HookFunc is one registered callback.
type HookFunc func(entityID int64, payload HookPayload)

type hookRegistry struct {
	mu     sync.Mutex
	nextID int
	hooks  map[string][]registeredHook
	log    engine.Logger
	onFail func()
}

type registeredHook struct {
	id int
	fn HookFunc
}

func newHookRegistry(log engine.Logger, onFail func()) *hookRegistry {
	hooks := make(map[string][]registeredHook, 8)
	for _, event := range []string{
		EventTrackStart, EventTrackEnd, EventIdle, EventPause,
		EventResume, EventStop, EventSkip, EventError,
	} {
		hooks[event] = nil
	}
	return &hookRegistry{hooks: hooks, log: log, onFail: onFail}
}

// on registers a callback and returns its id for later removal. Unknown
// event names fail.
func (r *hookRegistry) on(event string, fn HookFunc) (int, error) {
	if fn == nil {
		return 0, fmt.Errorf("hook for %s: %w", event, engine.ErrUnknownEvent)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.hooks[event]; !ok {
		return 0, fmt.Errorf("register %q: %w", event, engine.ErrUnknownEvent)
	}
	r.nextID++
	r.hooks[event] = append(r.hooks[event], registeredHook{id: r.nextID, fn: fn})
	return r.nextID, nil
}

// off removes a callback by event and id.
func (r *hookRegistry) off(event string, id int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	list, ok := r.hooks[event]
	if !ok {
		return false
	}
	for i, h := range list {
		if h.id == id {
			r.hooks[event] = append(list[:i], list[i+1:]...)
			return true
		}
	}
	return false
}

// emit invokes every callback registered for the event in registration
// order. A panicking callback is isolated: logged, counted, and never
// prevents later callbacks from running.
func (r *hookRegistry) emit(event string, entityID int64, payload HookPayload) {
	r.mu.Lock()
	list := append([]registeredHook(nil), r.hooks[event]...)
	r.mu.Unlock()

	for _, h := range list {
		r.invoke(event, entityID, payload, h)
	}
}

func (r *hookRegistry) invoke(event string, entityID int64, payload HookPayload, h registeredHook) {
	defer func() {
		if rec := recover(); rec != nil {
			if r.log != nil {
				r.log.Error("hook panicked", "event", event, "entity", entityID, "panic", rec)
			}
			if r.onFail != nil {
				r.onFail()
			}
		}
	}()
	h.fn(entityID, payload)
}
