package engine

import (
	"encoding/json"
	"testing"
	"time"
)

func TestNewTrackRequiresAudioURL(t *testing.T) {
	if _, err := NewTrack(Track{Title: "no url"}); err != ErrNoAudioURL {
		t.Fatalf("expected ErrNoAudioURL, got %v", err)
	}
}

func TestNewTrackNormalization(t *testing.T) {
	track, err := NewTrack(Track{AudioURL: "https://cdn.example/a.opus", Duration: -5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if track.Title != "Unknown Track" {
		t.Fatalf("expected default title, got %q", track.Title)
	}
	if track.Duration != 0 {
		t.Fatalf("expected non-positive duration normalized to 0, got %d", track.Duration)
	}
	if track.AddedAt.IsZero() {
		t.Fatal("expected AddedAt to be stamped")
	}
}

func TestTrackIdentityByAudioURL(t *testing.T) {
	a, _ := NewTrack(Track{Title: "A", AudioURL: "https://cdn.example/x"})
	b, _ := NewTrack(Track{Title: "B", AudioURL: "https://cdn.example/x", Uploader: "someone"})
	c, _ := NewTrack(Track{Title: "A", AudioURL: "https://cdn.example/y"})

	if !a.Same(b) {
		t.Fatal("tracks with the same audio URL must be the same track")
	}
	if a.Same(c) {
		t.Fatal("tracks with different audio URLs must differ")
	}
}

func TestTrackCacheKeyFallback(t *testing.T) {
	track, _ := NewTrack(Track{Title: "T", AudioURL: "audio", WebpageURL: "page"})
	if got := track.CacheKey(); got != "page" {
		t.Fatalf("expected webpage URL key, got %q", got)
	}
	track.WebpageURL = ""
	if got := track.CacheKey(); got != "audio" {
		t.Fatalf("expected audio URL key, got %q", got)
	}
}

func TestTrackCloneOwnsMetadata(t *testing.T) {
	track, _ := NewTrack(Track{
		AudioURL: "https://cdn.example/a",
		Metadata: map[string]any{"source": "import", "tags": map[string]any{"genre": "jazz"}},
	})
	clone := track.Clone()
	clone.Metadata["source"] = "clone"
	clone.Metadata["tags"].(map[string]any)["genre"] = "rock"

	if track.Metadata["source"] != "import" {
		t.Fatal("clone mutation leaked into original metadata")
	}
	if track.Metadata["tags"].(map[string]any)["genre"] != "jazz" {
		t.Fatal("clone mutation leaked into nested metadata")
	}
}

func TestTrackJSONRoundTrip(t *testing.T) {
	original, _ := NewTrack(Track{
		Title:      "Song",
		AudioURL:   "https://cdn.example/song.opus",
		WebpageURL: "https://example/song",
		Uploader:   "artist",
		Duration:   245,
		Requester:  &Requester{ID: 42, Name: "alice"},
		AddedAt:    time.UnixMilli(1700000000500),
		PlayCount:  3,
		Metadata:   map[string]any{"codec": "opus"},
	})

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var restored Track
	if err := json.Unmarshal(data, &restored); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if restored.Title != original.Title || restored.AudioURL != original.AudioURL {
		t.Fatalf("identity fields lost: %+v", restored)
	}
	if restored.Duration != 245 || restored.PlayCount != 3 {
		t.Fatalf("counters lost: %+v", restored)
	}
	if restored.Requester == nil || restored.Requester.ID != 42 || restored.Requester.Name != "alice" {
		t.Fatalf("requester lost: %+v", restored.Requester)
	}
	if !restored.AddedAt.Equal(original.AddedAt) {
		t.Fatalf("added_at lost precision: %v != %v", restored.AddedAt, original.AddedAt)
	}
	if restored.Metadata["codec"] != "opus" {
		t.Fatalf("metadata lost: %+v", restored.Metadata)
	}
}

func TestFormattedDuration(t *testing.T) {
	track, _ := NewTrack(Track{AudioURL: "u", Duration: 3723})
	if got := track.FormattedDuration(); got != "01:02:03" {
		t.Fatalf("expected 01:02:03, got %q", got)
	}
	track.Duration = 185
	if got := track.FormattedDuration(); got != "03:05" {
		t.Fatalf("expected 03:05, got %q", got)
	}
	track.Duration = 0
	if got := track.FormattedDuration(); got != "Unknown" {
		t.Fatalf("expected Unknown, got %q", got)
	}
}
