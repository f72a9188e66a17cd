package store

import (
	"time"

	"gorm.io/gorm"

	"github.com/rae1st/oscillate/engine"
)

// PlayerStateModel holds one entity's serialized player snapshot.
type PlayerStateModel struct {
	gorm.Model
	EntityID int64  `gorm:"uniqueIndex;not null"`
	Blob     []byte `gorm:"not null"`
}

func (PlayerStateModel) TableName() string {
	return "player_states"
}

// TrackHistoryModel is one played-track record.
type TrackHistoryModel struct {
	gorm.Model
	EntityID      int64 `gorm:"index;not null"`
	Title         string
	AudioURL      string
	WebpageURL    string
	Uploader      string
	Thumbnail     string
	Duration      int
	RequesterID   int64
	RequesterName string
	PlayCount     int
	PlayedAt      time.Time `gorm:"index"`
}

func (TrackHistoryModel) TableName() string {
	return "track_history"
}

// EntityStatModel aggregates per-entity playback counters.
type EntityStatModel struct {
	gorm.Model
	EntityID       int64 `gorm:"uniqueIndex;not null"`
	TracksPlayed   int64
	PlaytimeSecond int64
}

func (EntityStatModel) TableName() string {
	return "entity_stats"
}

func historyToTrack(model TrackHistoryModel) *engine.Track {
	track := &engine.Track{
		Title:      model.Title,
		AudioURL:   model.AudioURL,
		WebpageURL: model.WebpageURL,
		Uploader:   model.Uploader,
		Thumbnail:  model.Thumbnail,
		Duration:   model.Duration,
		PlayCount:  model.PlayCount,
		AddedAt:    model.PlayedAt,
	}
	if model.RequesterID != 0 || model.RequesterName != "" {
		track.Requester = &engine.Requester{ID: model.RequesterID, Name: model.RequesterName}
	}
	return track
}

func trackToHistory(entityID int64, track *engine.Track) *TrackHistoryModel {
	model := &TrackHistoryModel{
		EntityID:   entityID,
		Title:      track.Title,
		AudioURL:   track.AudioURL,
		WebpageURL: track.WebpageURL,
		Uploader:   track.Uploader,
		Thumbnail:  track.Thumbnail,
		Duration:   track.Duration,
		PlayCount:  track.PlayCount,
		PlayedAt:   time.Now(),
	}
	if track.Requester != nil {
		model.RequesterID = track.Requester.ID
		model.RequesterName = track.Requester.Name
	}
	return model
}
