package engine

import (
	"errors"
	"fmt"
)

// Common engine errors that can be checked with errors.Is.
var (
	// ErrQueueFull is returned when an insertion would exceed the queue's max size.
	ErrQueueFull = errors.New("queue: capacity exceeded")

	// ErrIndexOutOfRange is returned for index-addressed queue operations with a bad index.
	ErrIndexOutOfRange = errors.New("queue: index out of range")

	// ErrTrackNotFound is returned when a referenced track is no longer queued.
	ErrTrackNotFound = errors.New("queue: track not found")

	// ErrNoAudioURL is returned when a track is constructed without an audio URL.
	ErrNoAudioURL = errors.New("track: audio url required")

	// ErrUnknownEvent is returned when registering a hook for an event that does not exist.
	ErrUnknownEvent = errors.New("manager: unknown event")

	// ErrManagerClosed is returned when work is submitted after shutdown began.
	ErrManagerClosed = errors.New("manager: closed")

	// ErrInvalidState is returned for player transitions that are not legal
	// from the current state, e.g. pausing while idle.
	ErrInvalidState = errors.New("player: invalid state")

	// ErrParamOutOfRange is the underlying error of every filter range violation.
	ErrParamOutOfRange = errors.New("filter: parameter out of range")

	// ErrUnknownPreset is returned when a filter preset name is not recognized.
	ErrUnknownPreset = errors.New("filter: unknown preset")
)

// QueueError wraps a queue failure with the operation that caused it.
type QueueError struct {
	Op  string
	Err error
}

func (e *QueueError) Error() string {
	return fmt.Sprintf("queue %s: %v", e.Op, e.Err)
}

func (e *QueueError) Unwrap() error {
	return e.Err
}

// NewQueueError wraps err with the failing queue operation.
func NewQueueError(op string, err error) error {
	return &QueueError{Op: op, Err: err}
}

// FilterError reports an invalid filter parameter. Range violations carry the
// offending value and its valid interval so callers can surface both.
type FilterError struct {
	Filter string
	Param  string
	Value  float64
	Min    float64
	Max    float64
	Err    error
}

func (e *FilterError) Error() string {
	if errors.Is(e.Err, ErrParamOutOfRange) {
		return fmt.Sprintf("filter %s: %s = %g out of range [%g, %g]", e.Filter, e.Param, e.Value, e.Min, e.Max)
	}
	if e.Param != "" {
		return fmt.Sprintf("filter %s: %s: %v", e.Filter, e.Param, e.Err)
	}
	return fmt.Sprintf("filter %s: %v", e.Filter, e.Err)
}

func (e *FilterError) Unwrap() error {
	return e.Err
}

// NewRangeError creates a FilterError for a parameter outside its valid interval.
func NewRangeError(filter, param string, value, min, max float64) error {
	return &FilterError{Filter: filter, Param: param, Value: value, Min: min, Max: max, Err: ErrParamOutOfRange}
}

// NewPresetError creates a FilterError for an unknown preset name.
func NewPresetError(filter, preset string) error {
	return &FilterError{Filter: filter, Param: preset, Err: ErrUnknownPreset}
}

// ConnError wraps a voice transport failure with the entity it belongs to.
type ConnError struct {
	EntityID int64
	Op       string
	Err      error
}

func (e *ConnError) Error() string {
	return fmt.Sprintf("voice %s for entity %d: %v", e.Op, e.EntityID, e.Err)
}

func (e *ConnError) Unwrap() error {
	return e.Err
}
