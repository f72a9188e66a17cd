// Package store persists player snapshots, playback history and per-entity
// statistics in SQLite.
package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/rae1st/oscillate/engine"
)

// Repository is a SQLite-backed engine.StateStore.
type Repository struct {
	db *gorm.DB
}

// NewSQLiteRepository creates a repository backed by SQLite.
func NewSQLiteRepository(dsn string, gormLogger logger.Interface) (*Repository, error) {
	if dsn == "" {
		return nil, fmt.Errorf("dsn required")
	}

	if gormLogger == nil {
		gormLogger = logger.Default.LogMode(logger.Silent)
	}

	dbDir := filepath.Dir(dsn)
	if dbDir != "" && dbDir != "." {
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		Logger:                 gormLogger,
	})
	if err != nil {
		return nil, err
	}

	if err := applySQLitePragmas(db); err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&PlayerStateModel{}, &TrackHistoryModel{}, &EntityStatModel{}); err != nil {
		return nil, err
	}

	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return &Repository{db: db}, nil
}

// ConfigurePool updates the database connection pool settings.
func (r *Repository) ConfigurePool(maxOpen, maxIdle int, maxLifetime time.Duration) error {
	if r == nil || r.db == nil {
		return errors.New("repository not configured")
	}
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	if maxOpen >= 0 {
		sqlDB.SetMaxOpenConns(maxOpen)
	}
	if maxIdle >= 0 {
		sqlDB.SetMaxIdleConns(maxIdle)
	}
	if maxLifetime >= 0 {
		sqlDB.SetConnMaxLifetime(maxLifetime)
	}
	return nil
}

// SaveState upserts the entity's serialized snapshot.
func (r *Repository) SaveState(ctx context.Context, entityID int64, blob []byte) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "entity_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"deleted_at",
			"updated_at",
			"blob",
		}),
	}).Create(&PlayerStateModel{EntityID: entityID, Blob: blob}).Error
}

// LoadState returns the entity's snapshot, or nil when none is stored.
func (r *Repository) LoadState(ctx context.Context, entityID int64) ([]byte, error) {
	var model PlayerStateModel
	err := r.db.WithContext(ctx).Where("entity_id = ?", entityID).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return model.Blob, nil
}

// ClearState removes the entity's snapshot.
func (r *Repository) ClearState(ctx context.Context, entityID int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Delete(&PlayerStateModel{}, "entity_id = ?", entityID).Error
	})
}

// SaveHistory records a played track and bumps the entity's aggregates.
func (r *Repository) SaveHistory(ctx context.Context, entityID int64, track *engine.Track) error {
	if track == nil {
		return errors.New("track required")
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(trackToHistory(entityID, track)).Error; err != nil {
			return err
		}

		res := tx.Model(&EntityStatModel{}).
			Where("entity_id = ?", entityID).
			UpdateColumns(map[string]any{
				"tracks_played":   gorm.Expr("tracks_played + ?", 1),
				"playtime_second": gorm.Expr("playtime_second + ?", track.Duration),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return nil
		}
		return tx.Create(&EntityStatModel{
			EntityID:       entityID,
			TracksPlayed:   1,
			PlaytimeSecond: int64(track.Duration),
		}).Error
	})
}

// History returns the entity's most recent plays, newest first.
func (r *Repository) History(ctx context.Context, entityID int64, limit int) ([]*engine.Track, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}

	var models []TrackHistoryModel
	err := r.db.WithContext(ctx).
		Where("entity_id = ?", entityID).
		Order("played_at DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	tracks := make([]*engine.Track, 0, len(models))
	for _, model := range models {
		tracks = append(tracks, historyToTrack(model))
	}
	return tracks, nil
}

// EntityStats returns aggregates for one entity; zero values when the entity
// has never played anything.
func (r *Repository) EntityStats(ctx context.Context, entityID int64) (*engine.EntityStats, error) {
	var model EntityStatModel
	err := r.db.WithContext(ctx).Where("entity_id = ?", entityID).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &engine.EntityStats{EntityID: entityID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &engine.EntityStats{
		EntityID:       model.EntityID,
		TracksPlayed:   model.TracksPlayed,
		PlaytimeSecond: model.PlaytimeSecond,
	}, nil
}

// PruneHistory drops history rows older than the cutoff.
func (r *Repository) PruneHistory(ctx context.Context, before time.Time) error {
	if r == nil || r.db == nil {
		return errors.New("repository not configured")
	}
	return r.db.WithContext(ctx).
		Where("played_at < ?", before).
		Delete(&TrackHistoryModel{}).Error
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("get sql.DB: %w", err)
	}
	return sqlDB.Close()
}

func applySQLitePragmas(db *gorm.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA cache_size=-64000;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, stmt := range pragmas {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}
