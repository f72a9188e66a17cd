package engine

import (
	"encoding/json"
	"fmt"
	"time"
)

// Requester identifies who queued a track.
type Requester struct {
	ID   int64
	Name string
}

// Track describes one playable item and its metadata. Two tracks are the
// same track when their audio URLs match, regardless of any other field.
type Track struct {
	Title      string
	AudioURL   string
	WebpageURL string
	Uploader   string
	Thumbnail  string
	Duration   int // seconds, 0 when unknown
	Requester  *Requester
	AddedAt    time.Time
	PlayCount  int
	Metadata   map[string]any
}

// NewTrack validates and normalizes a track seed. The audio URL is required;
// an empty title becomes "Unknown Track" and non-positive durations are
// treated as unknown. AddedAt is stamped when the seed leaves it zero.
func NewTrack(seed Track) (*Track, error) {
	if seed.AudioURL == "" {
		return nil, ErrNoAudioURL
	}
	if seed.Title == "" {
		seed.Title = "Unknown Track"
	}
	if seed.Duration < 0 {
		seed.Duration = 0
	}
	if seed.AddedAt.IsZero() {
		seed.AddedAt = time.Now()
	}
	seed.Metadata = copyMetadata(seed.Metadata)
	return &seed, nil
}

// Same reports whether other is the same track (audio URL identity).
func (t *Track) Same(other *Track) bool {
	return other != nil && t.AudioURL == other.AudioURL
}

// CacheKey returns the canonical metadata cache key: webpage URL when
// present, else audio URL, else title.
func (t *Track) CacheKey() string {
	if t.WebpageURL != "" {
		return t.WebpageURL
	}
	if t.AudioURL != "" {
		return t.AudioURL
	}
	return t.Title
}

// DisplayTitle returns "title - uploader" when the uploader is known.
func (t *Track) DisplayTitle() string {
	if t.Uploader != "" {
		return t.Title + " - " + t.Uploader
	}
	return t.Title
}

// FormattedDuration renders the duration as mm:ss or hh:mm:ss.
func (t *Track) FormattedDuration() string {
	if t.Duration <= 0 {
		return "Unknown"
	}
	hours := t.Duration / 3600
	minutes := (t.Duration % 3600) / 60
	seconds := t.Duration % 60
	if hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}

// RequesterName returns the requester's display name or "Unknown".
func (t *Track) RequesterName() string {
	if t.Requester == nil || t.Requester.Name == "" {
		return "Unknown"
	}
	return t.Requester.Name
}

// IncrementPlayCount records one playback of this track.
func (t *Track) IncrementPlayCount() {
	t.PlayCount++
}

// Clone returns a copy with its own metadata map.
func (t *Track) Clone() *Track {
	clone := *t
	if t.Requester != nil {
		requester := *t.Requester
		clone.Requester = &requester
	}
	clone.Metadata = copyMetadata(t.Metadata)
	return &clone
}

// trackJSON is the durable wire form of a track. The layout is the only
// persisted format the engine honors round-trip.
type trackJSON struct {
	Title         string         `json:"title"`
	AudioURL      string         `json:"audio_url"`
	WebpageURL    string         `json:"webpage_url,omitempty"`
	Duration      int            `json:"duration,omitempty"`
	Uploader      string         `json:"uploader,omitempty"`
	Thumbnail     string         `json:"thumbnail,omitempty"`
	RequesterID   int64          `json:"requester_id,omitempty"`
	RequesterName string         `json:"requester_name,omitempty"`
	AddedAt       float64        `json:"added_at"`
	PlayCount     int            `json:"play_count"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// MarshalJSON serializes an owned snapshot: the metadata map is deep-copied
// so live and persisted state never share references.
func (t *Track) MarshalJSON() ([]byte, error) {
	wire := trackJSON{
		Title:      t.Title,
		AudioURL:   t.AudioURL,
		WebpageURL: t.WebpageURL,
		Duration:   t.Duration,
		Uploader:   t.Uploader,
		Thumbnail:  t.Thumbnail,
		AddedAt:    float64(t.AddedAt.UnixMilli()) / 1000.0,
		PlayCount:  t.PlayCount,
		Metadata:   copyMetadata(t.Metadata),
	}
	if t.Requester != nil {
		wire.RequesterID = t.Requester.ID
		wire.RequesterName = t.Requester.Name
	}
	return json.Marshal(wire)
}

// UnmarshalJSON restores a track from its durable form, applying the same
// normalization as NewTrack.
func (t *Track) UnmarshalJSON(data []byte) error {
	var wire trackJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	if wire.AudioURL == "" {
		return ErrNoAudioURL
	}
	seed := Track{
		Title:      wire.Title,
		AudioURL:   wire.AudioURL,
		WebpageURL: wire.WebpageURL,
		Uploader:   wire.Uploader,
		Thumbnail:  wire.Thumbnail,
		Duration:   wire.Duration,
		AddedAt:    time.UnixMilli(int64(wire.AddedAt * 1000)),
		PlayCount:  wire.PlayCount,
		Metadata:   wire.Metadata,
	}
	if wire.RequesterName != "" || wire.RequesterID != 0 {
		seed.Requester = &Requester{ID: wire.RequesterID, Name: wire.RequesterName}
	}
	restored, err := NewTrack(seed)
	if err != nil {
		return err
	}
	*t = *restored
	return nil
}

func copyMetadata(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		switch value := v.(type) {
		case map[string]any:
			dst[k] = copyMetadata(value)
		case []any:
			nested := make([]any, len(value))
			copy(nested, value)
			dst[k] = nested
		default:
			dst[k] = v
		}
	}
	return dst
}
