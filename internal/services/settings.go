package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/localnerve/assemblydb/internal/config"
	"github.com/localnerve/assemblydb/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Settings is the configuration store of the engine. Readers take an
// immutable snapshot; updates persist an override and swap the snapshot.
type Settings struct {
	db      *gorm.DB
	logger  *slog.Logger
	current atomic.Pointer[config.Assembly]
	mu      sync.Mutex
}

// NewSettings loads persisted overrides on top of defaults. A persisted
// value that no longer validates is a ConfigurationError.
func NewSettings(ctx context.Context, db *gorm.DB, defaults config.Assembly, log *slog.Logger) (*Settings, error) {
	s := &Settings{db: db, logger: ResolveLogger(log)}

	var entries []models.ConfigEntry
	if err := db.WithContext(ctx).
		Session(&gorm.Session{Logger: db.Logger.LogMode(logger.Silent)}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "setting_key"}}).
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	snapshot := defaults
	for _, entry := range entries {
		next, err := snapshot.With(entry.Key, json.RawMessage(entry.Value.JSON))
		if err != nil {
			s.logger.Error("persisted setting rejected",
				"event", "settings_override_rejected",
				"module", "settings",
				"layer", "service",
				"key", entry.Key,
				"error", err.Error(),
			)
			return nil, err
		}
		snapshot = next
	}
	if err := snapshot.Validate(); err != nil {
		return nil, err
	}

	s.current.Store(&snapshot)
	return s, nil
}

// StaticSettings serves a fixed snapshot without a store
func StaticSettings(snapshot config.Assembly) *Settings {
	s := &Settings{logger: slog.Default()}
	s.current.Store(&snapshot)
	return s
}

// Snapshot returns the current settings by value
func (s *Settings) Snapshot() config.Assembly {
	return *s.current.Load()
}

// UpdateConfig validates and persists one setting, then publishes the new
// snapshot
func (s *Settings) UpdateConfig(ctx context.Context, key string, value json.RawMessage, actor Actor) (config.Assembly, error) {
	if !actor.CanManage(models.KindMotion) && !actor.CanManage(models.KindAssignment) {
		return s.Snapshot(), forbidden("update settings")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := s.Snapshot().With(key, value)
	if err != nil {
		return s.Snapshot(), err
	}

	if s.db != nil {
		entry := models.ConfigEntry{Key: key, Value: models.JSON{JSON: datatypes.JSON(value)}}
		err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "setting_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).Create(&entry).Error
		if err != nil {
			return s.Snapshot(), fmt.Errorf("failed to persist setting: %w", err)
		}
	}

	s.current.Store(&next)
	s.logger.Info("setting updated",
		"event", "settings_updated",
		"module", "settings",
		"layer", "service",
		"key", key,
		"actor_id", actor.ID,
	)
	return next, nil
}
