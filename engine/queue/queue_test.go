package queue

import (
	"errors"
	"fmt"
	"testing"

	"github.com/rae1st/oscillate/engine"
)

func makeTrack(t *testing.T, title string) *engine.Track {
	t.Helper()
	track, err := engine.NewTrack(engine.Track{
		Title:    title,
		AudioURL: "https://cdn.example.com/" + title,
		Duration: 180,
	})
	if err != nil {
		t.Fatalf("new track: %v", err)
	}
	return track
}

func fillQueue(t *testing.T, q *Queue, n int) []*engine.Track {
	t.Helper()
	tracks := make([]*engine.Track, n)
	for i := 0; i < n; i++ {
		tracks[i] = makeTrack(t, fmt.Sprintf("track-%d", i))
		if err := q.Put(tracks[i]); err != nil {
			t.Fatalf("put %d: %v", i, err)
		}
	}
	return tracks
}

func TestQueueFIFO(t *testing.T) {
	q := New(10, 5)
	tracks := fillQueue(t, q, 3)

	for i := 0; i < 3; i++ {
		got := q.Get()
		if got != tracks[i] {
			t.Fatalf("expected %s at position %d, got %v", tracks[i].Title, i, got)
		}
	}
	if q.Get() != nil {
		t.Fatal("empty queue must return nil")
	}
}

func TestQueueCapacity(t *testing.T) {
	q := New(2, 5)
	fillQueue(t, q, 2)

	if !q.IsFull() {
		t.Fatal("expected the queue to be full")
	}
	err := q.Put(makeTrack(t, "overflow"))
	if !errors.Is(err, engine.ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}

	var qerr *engine.QueueError
	if !errors.As(err, &qerr) || qerr.Op != "put" {
		t.Fatalf("expected *QueueError with op put, got %v", err)
	}

	// Draining one slot makes room for the rejected track.
	if got := q.Get(); got == nil {
		t.Fatal("expected a track from get")
	}
	if err := q.Put(makeTrack(t, "overflow")); err != nil {
		t.Fatalf("put after get: %v", err)
	}
	if q.Len() != 2 {
		t.Fatalf("expected len 2, got %d", q.Len())
	}
}

func TestQueuePutManyAtomic(t *testing.T) {
	q := New(3, 5)
	batch := []*engine.Track{
		makeTrack(t, "a"), makeTrack(t, "b"),
		makeTrack(t, "c"), makeTrack(t, "d"),
	}

	// An oversized batch is rejected whole and leaves the queue untouched.
	added, err := q.PutMany(batch)
	if added != 0 {
		t.Fatalf("expected 0 accepted, got %d", added)
	}
	if !errors.Is(err, engine.ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	if q.Len() != 0 {
		t.Fatalf("rejected batch must not mutate the queue, len=%d", q.Len())
	}

	added, err = q.PutMany(batch[:3])
	if err != nil || added != 3 {
		t.Fatalf("expected full batch accepted, got %d, %v", added, err)
	}
}

func TestQueueLoopSingle(t *testing.T) {
	q := New(10, 5)
	tracks := fillQueue(t, q, 2)
	q.SetLoopMode(LoopSingle)

	for i := 0; i < 3; i++ {
		if got := q.Get(); got != tracks[0] {
			t.Fatalf("loop single iteration %d: expected %s, got %s", i, tracks[0].Title, got.Title)
		}
	}
	if q.Len() != 2 {
		t.Fatalf("loop single must keep the queue length, got %d", q.Len())
	}
	if tracks[0].PlayCount != 3 {
		t.Fatalf("expected play count 3, got %d", tracks[0].PlayCount)
	}
}

func TestQueueLoopQueueCycles(t *testing.T) {
	q := New(10, 10)
	tracks := fillQueue(t, q, 3)
	q.SetLoopMode(LoopQueue)

	var played []*engine.Track
	for i := 0; i < 6; i++ {
		played = append(played, q.Get())
	}

	for i := 0; i < 3; i++ {
		if played[i] != tracks[i] || played[i+3] != tracks[i] {
			t.Fatalf("expected two full cycles in order, got %v", played)
		}
	}
	if q.Len() != 3 {
		t.Fatalf("loop queue must keep the queue length, got %d", q.Len())
	}
}

func TestQueueShuffleCoversAll(t *testing.T) {
	q := New(100, 5)
	tracks := fillQueue(t, q, 20)
	q.SetShuffle(true)

	seen := make(map[*engine.Track]bool)
	for i := 0; i < 20; i++ {
		track := q.Get()
		if track == nil {
			t.Fatalf("unexpected nil at %d", i)
		}
		if seen[track] {
			t.Fatalf("track %s played twice in one cycle", track.Title)
		}
		seen[track] = true
	}
	if len(seen) != len(tracks) {
		t.Fatalf("expected all %d tracks played, got %d", len(tracks), len(seen))
	}
}

func TestQueueShuffleDisableRestoresOrder(t *testing.T) {
	q := New(10, 5)
	tracks := fillQueue(t, q, 5)

	q.SetShuffle(true)
	q.SetShuffle(false)

	for i, want := range tracks {
		if got := q.Get(); got != want {
			t.Fatalf("position %d: expected %s, got %s", i, want.Title, got.Title)
		}
	}
}

func TestQueueAddToFrontPlaysNext(t *testing.T) {
	q := New(10, 5)
	fillQueue(t, q, 5)
	q.SetShuffle(true)

	urgent := makeTrack(t, "urgent")
	if err := q.AddToFront(urgent); err != nil {
		t.Fatalf("add to front: %v", err)
	}

	// The head insert wins even while shuffled.
	if got := q.Peek(); got != urgent {
		t.Fatalf("expected urgent next, got %s", got.Title)
	}
	if got := q.Get(); got != urgent {
		t.Fatalf("expected urgent dequeued first, got %s", got.Title)
	}
}

func TestQueueHistoryBounded(t *testing.T) {
	q := New(10, 3)
	tracks := fillQueue(t, q, 5)

	for i := 0; i < 5; i++ {
		q.Get()
	}

	history := q.History()
	if len(history) != 3 {
		t.Fatalf("expected history capped at 3, got %d", len(history))
	}
	// Most recent first.
	if history[0] != tracks[4] || history[2] != tracks[2] {
		t.Fatalf("expected most-recent-first ordering, got %v", history)
	}
}

func TestQueueRemoveAt(t *testing.T) {
	q := New(10, 5)
	tracks := fillQueue(t, q, 3)

	removed, err := q.RemoveAt(1)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if removed != tracks[1] {
		t.Fatalf("expected %s removed, got %s", tracks[1].Title, removed.Title)
	}
	if q.Len() != 2 {
		t.Fatalf("expected length 2, got %d", q.Len())
	}

	if _, err := q.RemoveAt(5); !errors.Is(err, engine.ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}
}

func TestQueueMove(t *testing.T) {
	q := New(10, 5)
	tracks := fillQueue(t, q, 4)

	if err := q.Move(3, 0); err != nil {
		t.Fatalf("move: %v", err)
	}
	got := q.Tracks()
	if got[0] != tracks[3] || got[1] != tracks[0] {
		t.Fatalf("unexpected order after move: %v", got)
	}

	if err := q.Move(0, 9); !errors.Is(err, engine.ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}
}

func TestQueueDuplicate(t *testing.T) {
	q := New(10, 5)
	tracks := fillQueue(t, q, 2)

	if err := q.Duplicate(0); err != nil {
		t.Fatalf("duplicate: %v", err)
	}
	got := q.Tracks()
	if len(got) != 3 {
		t.Fatalf("expected 3 tracks, got %d", len(got))
	}
	if got[1] == tracks[0] || !got[1].Same(tracks[0]) {
		t.Fatal("expected an independent copy right after the original")
	}
}

func TestQueueExportImportRoundTrip(t *testing.T) {
	q := New(10, 5)
	fillQueue(t, q, 3)
	q.SetLoopMode(LoopQueue)
	q.Get()

	state := q.ExportState()

	restored := New(10, 5)
	if err := restored.ImportState(state); err != nil {
		t.Fatalf("import: %v", err)
	}

	if restored.Len() != q.Len() {
		t.Fatalf("expected length %d, got %d", q.Len(), restored.Len())
	}
	if restored.LoopMode() != LoopQueue {
		t.Fatalf("expected loop mode queue, got %s", restored.LoopMode())
	}
	if len(restored.History()) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(restored.History()))
	}

	want := q.Tracks()
	got := restored.Tracks()
	for i := range want {
		if !got[i].Same(want[i]) {
			t.Fatalf("track %d differs after round trip", i)
		}
	}
}

func TestQueueShuffledRoundTripKeepsPlayOrder(t *testing.T) {
	q := New(20, 5)
	fillQueue(t, q, 12)
	q.SetShuffle(true)

	state := q.ExportState()
	restored := New(20, 5)
	if err := restored.ImportState(state); err != nil {
		t.Fatalf("import: %v", err)
	}

	// Both queues must now play the identical shuffled sequence.
	for i := 0; i < 12; i++ {
		want := q.Get()
		got := restored.Get()
		if !got.Same(want) {
			t.Fatalf("play order diverges at %d: want %s, got %s", i, want.Title, got.Title)
		}
	}
}

func TestQueueImportBadOrderReshuffles(t *testing.T) {
	q := New(10, 5)
	fillQueue(t, q, 4)
	q.SetShuffle(true)

	state := q.ExportState()
	state.Order = []int{0, 1, 2, 9}

	restored := New(10, 5)
	if err := restored.ImportState(state); err != nil {
		t.Fatalf("import: %v", err)
	}

	// The invalid permutation is discarded; every track still plays once.
	seen := make(map[string]bool, 4)
	for restored.Len() > 0 {
		seen[restored.Get().Title] = true
	}
	if len(seen) != 4 {
		t.Fatalf("expected 4 distinct tracks, got %d", len(seen))
	}
}

func TestQueueImportBadLoopMode(t *testing.T) {
	q := New(10, 5)
	if err := q.ImportState(State{Loop: "bounce"}); err == nil {
		t.Fatal("expected error for unknown loop mode")
	}
}

func TestParseLoopMode(t *testing.T) {
	cases := map[string]LoopMode{
		"":       LoopNone,
		"none":   LoopNone,
		"single": LoopSingle,
		"track":  LoopSingle,
		"queue":  LoopQueue,
		"all":    LoopQueue,
	}
	for in, want := range cases {
		got, err := ParseLoopMode(in)
		if err != nil || got != want {
			t.Fatalf("ParseLoopMode(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
}

func TestQueuePeekN(t *testing.T) {
	q := New(10, 5)
	tracks := fillQueue(t, q, 4)

	got := q.PeekN(2)
	if len(got) != 2 || got[0] != tracks[0] || got[1] != tracks[1] {
		t.Fatalf("unexpected peek result: %v", got)
	}
	if q.Len() != 4 {
		t.Fatal("peek must not mutate the queue")
	}
	if got := q.PeekN(10); len(got) != 4 {
		t.Fatalf("expected peek capped at queue length, got %d", len(got))
	}
}

func TestQueueLifetimeCountersSurviveImport(t *testing.T) {
	q := New(10, 5)
	fillQueue(t, q, 3)
	q.Get()
	q.Get()

	restored := New(10, 5)
	if err := restored.ImportState(q.ExportState()); err != nil {
		t.Fatalf("import: %v", err)
	}

	stats := restored.Stats()
	if stats.TotalAdded != 3 || stats.TotalPlayed != 2 {
		t.Fatalf("expected counters added=3 played=2, got %+v", stats)
	}
}

func TestQueueStats(t *testing.T) {
	q := New(10, 5)
	fillQueue(t, q, 4)
	q.SetShuffle(true)
	q.Get()

	stats := q.Stats()
	if stats.Length != 3 || stats.HistoryLength != 1 || !stats.Shuffled {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.TotalDuration != 3*180 {
		t.Fatalf("expected total duration 540, got %d", stats.TotalDuration)
	}
}

func TestQueueStatsUnknownDurations(t *testing.T) {
	q := New(10, 5)
	fillQueue(t, q, 2)

	unmeasured, err := engine.NewTrack(engine.Track{
		Title:    "live stream",
		AudioURL: "https://cdn.example.com/live",
	})
	if err != nil {
		t.Fatalf("new track: %v", err)
	}
	if err := q.Put(unmeasured); err != nil {
		t.Fatalf("put: %v", err)
	}

	stats := q.Stats()
	if stats.TotalDuration != 2*180 {
		t.Fatalf("expected known sum 360, got %d", stats.TotalDuration)
	}
	if stats.UnknownDurations != 1 {
		t.Fatalf("expected 1 unknown duration, got %d", stats.UnknownDurations)
	}
}
