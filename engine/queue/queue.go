// Package queue implements the per-player track queue with loop modes,
// shuffle and bounded playback history.
package queue

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"

	"github.com/rae1st/oscillate/engine"
)

// LoopMode controls what happens to a track after it is dequeued.
type LoopMode int

const (
	// LoopNone plays each track once.
	LoopNone LoopMode = iota
	// LoopSingle replays the current track indefinitely.
	LoopSingle
	// LoopQueue re-appends each played track to the tail.
	LoopQueue
)

func (m LoopMode) String() string {
	switch m {
	case LoopSingle:
		return "single"
	case LoopQueue:
		return "queue"
	default:
		return "none"
	}
}

// ParseLoopMode maps the durable string form back to a LoopMode.
func ParseLoopMode(s string) (LoopMode, error) {
	switch strings.ToLower(s) {
	case "", "none", "off":
		return LoopNone, nil
	case "single", "track", "one":
		return LoopSingle, nil
	case "queue", "all":
		return LoopQueue, nil
	}
	return LoopNone, fmt.Errorf("unknown loop mode %q", s)
}

// Stats is a point-in-time summary of the queue. TotalDuration sums only
// tracks with a known duration; UnknownDurations counts the rest, so callers
// can tell a short queue from an unmeasured one.
type Stats struct {
	Length           int      `json:"length"`
	TotalDuration    int      `json:"total_duration"`
	UnknownDurations int      `json:"unknown_durations,omitempty"`
	HistoryLength    int      `json:"history_length"`
	TotalAdded       int64    `json:"total_added"`
	TotalPlayed      int64    `json:"total_played"`
	Shuffled         bool     `json:"shuffled"`
	Loop             LoopMode `json:"-"`
}

// State is the durable form of a queue, used by player snapshots. Order is
// the shuffle permutation as indices into Tracks, present only while shuffle
// is on, so a restore continues the exact upcoming play sequence.
type State struct {
	Tracks      []*engine.Track `json:"tracks"`
	History     []*engine.Track `json:"history,omitempty"`
	Loop        string          `json:"loop"`
	Shuffled    bool            `json:"shuffled"`
	Order       []int           `json:"order,omitempty"`
	TotalAdded  int64           `json:"total_added"`
	TotalPlayed int64           `json:"total_played"`
}

// Queue is a bounded ordered track sequence. When shuffled it maintains a
// random permutation of the pending tracks so each plays exactly once per
// cycle; the insertion order stays visible through Tracks and index-addressed
// operations. The queue is the only component that re-enqueues tracks for
// loop modes: Get performs the re-insertion itself.
//
// All methods are safe for concurrent use.
type Queue struct {
	mu          sync.Mutex
	tracks      []*engine.Track
	order       []int // upcoming play sequence as indices into tracks, shuffle only
	shuffled    bool
	loop        LoopMode
	maxSize     int
	history     []*engine.Track // most recent first
	historySize int

	// Lifetime counters, preserved across export/import.
	totalAdded  int64
	totalPlayed int64
}

// New creates a queue bounded to maxSize tracks and historySize history
// entries. Non-positive bounds fall back to engine defaults.
func New(maxSize, historySize int) *Queue {
	if maxSize <= 0 {
		maxSize = 1000
	}
	if historySize <= 0 {
		historySize = 50
	}
	return &Queue{maxSize: maxSize, historySize: historySize}
}

// Put appends a track to the tail.
func (q *Queue) Put(track *engine.Track) error {
	if track == nil {
		return engine.NewQueueError("put", engine.ErrTrackNotFound)
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.tracks) >= q.maxSize {
		return engine.NewQueueError("put", engine.ErrQueueFull)
	}
	q.tracks = append(q.tracks, track)
	q.orderAppend(len(q.tracks) - 1)
	q.totalAdded++
	return nil
}

// PutMany appends a batch atomically. A batch that would overflow the queue
// is rejected whole: nothing is inserted and ErrQueueFull is returned.
func (q *Queue) PutMany(tracks []*engine.Track) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	pending := make([]*engine.Track, 0, len(tracks))
	for _, track := range tracks {
		if track != nil {
			pending = append(pending, track)
		}
	}
	if len(q.tracks)+len(pending) > q.maxSize {
		return 0, engine.NewQueueError("put_many", engine.ErrQueueFull)
	}

	for _, track := range pending {
		q.tracks = append(q.tracks, track)
		q.orderAppend(len(q.tracks) - 1)
		q.totalAdded++
	}
	return len(pending), nil
}

// AddToFront inserts a track at the head so it plays next regardless of
// shuffle state.
func (q *Queue) AddToFront(track *engine.Track) error {
	if track == nil {
		return engine.NewQueueError("add_to_front", engine.ErrTrackNotFound)
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.tracks) >= q.maxSize {
		return engine.NewQueueError("add_to_front", engine.ErrQueueFull)
	}
	q.tracks = append([]*engine.Track{track}, q.tracks...)
	if q.shuffled {
		for i := range q.order {
			q.order[i]++
		}
		q.order = append([]int{0}, q.order...)
	}
	q.totalAdded++
	return nil
}

// Get removes and returns the next track, or nil when empty. The returned
// track's play count is incremented and it is recorded in history. Loop
// re-insertion happens here: single puts the track back at the head, queue
// at the tail.
func (q *Queue) Get() *engine.Track {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.tracks) == 0 {
		return nil
	}

	idx := 0
	if q.shuffled && len(q.order) > 0 {
		idx = q.order[0]
	}
	track := q.removeLocked(idx)

	track.IncrementPlayCount()
	q.pushHistoryLocked(track)
	q.totalPlayed++

	switch q.loop {
	case LoopSingle:
		q.tracks = append([]*engine.Track{track}, q.tracks...)
		if q.shuffled {
			for i := range q.order {
				q.order[i]++
			}
			q.order = append([]int{0}, q.order...)
		}
	case LoopQueue:
		q.tracks = append(q.tracks, track)
		q.orderAppend(len(q.tracks) - 1)
	}

	return track
}

// Peek returns the next track without removing it, or nil when empty.
func (q *Queue) Peek() *engine.Track {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.tracks) == 0 {
		return nil
	}
	if q.shuffled && len(q.order) > 0 {
		return q.tracks[q.order[0]]
	}
	return q.tracks[0]
}

// PeekN returns up to n upcoming tracks in play order without mutation.
func (q *Queue) PeekN(n int) []*engine.Track {
	q.mu.Lock()
	defer q.mu.Unlock()

	if n <= 0 || len(q.tracks) == 0 {
		return nil
	}
	if n > len(q.tracks) {
		n = len(q.tracks)
	}

	out := make([]*engine.Track, 0, n)
	if q.shuffled {
		for _, idx := range q.order {
			if len(out) == n {
				break
			}
			out = append(out, q.tracks[idx])
		}
		return out
	}
	return append(out, q.tracks[:n]...)
}

// RemoveAt removes the track at the given insertion-order index.
func (q *Queue) RemoveAt(index int) (*engine.Track, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if index < 0 || index >= len(q.tracks) {
		return nil, engine.NewQueueError("remove", engine.ErrIndexOutOfRange)
	}
	return q.removeLocked(index), nil
}

// Move relocates the track at index from to index to.
func (q *Queue) Move(from, to int) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.tracks)
	if from < 0 || from >= n || to < 0 || to >= n {
		return engine.NewQueueError("move", engine.ErrIndexOutOfRange)
	}
	if from == to {
		return nil
	}

	track := q.tracks[from]
	q.tracks = append(q.tracks[:from], q.tracks[from+1:]...)
	rest := append([]*engine.Track{}, q.tracks[to:]...)
	q.tracks = append(append(q.tracks[:to:to], track), rest...)

	// A move invalidates the shuffle permutation; rebuild it.
	q.reshuffleLocked()
	return nil
}

// Duplicate clones the track at index and inserts the copy right after it.
func (q *Queue) Duplicate(index int) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if index < 0 || index >= len(q.tracks) {
		return engine.NewQueueError("duplicate", engine.ErrIndexOutOfRange)
	}
	if len(q.tracks) >= q.maxSize {
		return engine.NewQueueError("duplicate", engine.ErrQueueFull)
	}

	clone := q.tracks[index].Clone()
	q.tracks = append(q.tracks, nil)
	copy(q.tracks[index+2:], q.tracks[index+1:])
	q.tracks[index+1] = clone

	if q.shuffled {
		for i, v := range q.order {
			if v > index {
				q.order[i] = v + 1
			}
		}
		q.orderAppend(index + 1)
	}
	return nil
}

// Clear drops all pending tracks. History is preserved.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tracks = nil
	q.order = nil
}

// SetShuffle enables or disables shuffle. Enabling builds a fresh random
// permutation of the pending tracks; disabling restores insertion order.
func (q *Queue) SetShuffle(enabled bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.shuffled = enabled
	q.reshuffleLocked()
}

// Shuffled reports whether shuffle is active.
func (q *Queue) Shuffled() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.shuffled
}

// SetLoopMode sets the loop behavior applied by Get.
func (q *Queue) SetLoopMode(mode LoopMode) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.loop = mode
}

// LoopMode returns the active loop behavior.
func (q *Queue) LoopMode() LoopMode {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.loop
}

// Len returns the number of pending tracks.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tracks)
}

// IsEmpty reports whether no tracks are pending.
func (q *Queue) IsEmpty() bool {
	return q.Len() == 0
}

// IsFull reports whether the queue is at capacity.
func (q *Queue) IsFull() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tracks) >= q.maxSize
}

// Tracks returns the pending tracks in insertion order.
func (q *Queue) Tracks() []*engine.Track {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]*engine.Track(nil), q.tracks...)
}

// History returns played tracks, most recent first.
func (q *Queue) History() []*engine.Track {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]*engine.Track(nil), q.history...)
}

// TotalDuration sums the known durations of all pending tracks in seconds.
// Tracks with an unknown duration contribute nothing; Stats reports how many
// there are.
func (q *Queue) TotalDuration() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	total, _ := q.durationsLocked()
	return total
}

// Stats summarizes the queue.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()

	total, unknown := q.durationsLocked()
	return Stats{
		Length:           len(q.tracks),
		TotalDuration:    total,
		UnknownDurations: unknown,
		HistoryLength:    len(q.history),
		TotalAdded:       q.totalAdded,
		TotalPlayed:      q.totalPlayed,
		Shuffled:         q.shuffled,
		Loop:             q.loop,
	}
}

func (q *Queue) durationsLocked() (total, unknown int) {
	for _, t := range q.tracks {
		if t.Duration <= 0 {
			unknown++
			continue
		}
		total += t.Duration
	}
	return total, unknown
}

// ExportState snapshots the queue for persistence.
func (q *Queue) ExportState() State {
	q.mu.Lock()
	defer q.mu.Unlock()

	return State{
		Tracks:      append([]*engine.Track(nil), q.tracks...),
		History:     append([]*engine.Track(nil), q.history...),
		Loop:        q.loop.String(),
		Shuffled:    q.shuffled,
		Order:       append([]int(nil), q.order...),
		TotalAdded:  q.totalAdded,
		TotalPlayed: q.totalPlayed,
	}
}

// ImportState replaces the queue contents with a persisted snapshot. Tracks
// beyond the queue's bounds are dropped rather than failing the restore.
func (q *Queue) ImportState(state State) error {
	loop, err := ParseLoopMode(state.Loop)
	if err != nil {
		return engine.NewQueueError("import", err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	tracks := state.Tracks
	if len(tracks) > q.maxSize {
		tracks = tracks[:q.maxSize]
	}
	history := state.History
	if len(history) > q.historySize {
		history = history[:q.historySize]
	}

	q.tracks = append([]*engine.Track(nil), tracks...)
	q.history = append([]*engine.Track(nil), history...)
	q.loop = loop
	q.shuffled = state.Shuffled
	q.totalAdded = state.TotalAdded
	q.totalPlayed = state.TotalPlayed

	// Restore the saved permutation so playback order survives the
	// round-trip. A snapshot whose permutation no longer matches the
	// restored tracks (truncation, corruption) gets a fresh shuffle.
	if q.shuffled && isPermutation(state.Order, len(q.tracks)) {
		q.order = append([]int(nil), state.Order...)
	} else {
		q.reshuffleLocked()
	}
	return nil
}

// isPermutation reports whether order contains every index in [0, n)
// exactly once.
func isPermutation(order []int, n int) bool {
	if len(order) != n {
		return false
	}
	seen := make([]bool, n)
	for _, v := range order {
		if v < 0 || v >= n || seen[v] {
			return false
		}
		seen[v] = true
	}
	return true
}

// removeLocked removes tracks[idx] and keeps the shuffle permutation
// consistent with the shifted indices.
func (q *Queue) removeLocked(idx int) *engine.Track {
	track := q.tracks[idx]
	q.tracks = append(q.tracks[:idx], q.tracks[idx+1:]...)

	if q.shuffled {
		filtered := q.order[:0]
		for _, v := range q.order {
			switch {
			case v == idx:
				continue
			case v > idx:
				filtered = append(filtered, v-1)
			default:
				filtered = append(filtered, v)
			}
		}
		q.order = filtered
	}
	return track
}

// orderAppend registers a freshly appended track index with the shuffle
// permutation, placing it at a random upcoming position.
func (q *Queue) orderAppend(idx int) {
	if !q.shuffled {
		return
	}
	pos := 0
	if len(q.order) > 0 {
		pos = rand.Intn(len(q.order) + 1)
	}
	q.order = append(q.order, 0)
	copy(q.order[pos+1:], q.order[pos:])
	q.order[pos] = idx
}

func (q *Queue) reshuffleLocked() {
	if !q.shuffled {
		q.order = nil
		return
	}
	q.order = rand.Perm(len(q.tracks))
}

func (q *Queue) pushHistoryLocked(track *engine.Track) {
	q.history = append([]*engine.Track{track}, q.history...)
	if len(q.history) > q.historySize {
		q.history = q.history[:q.historySize]
	}
}
