// Package system holds the operator controlled settings of the service:
// maintenance mode, and the pause reconciliation enters after the node
// became unreachable.
package system

import (
	"database/sql"
	"fmt"
	"time"

	"gorm.io/gorm"
)

type Settings struct {
	gorm.Model
	MaintenanceMode bool         `gorm:"column:maintenance_mode;default:false"`
	PausedSince     sql.NullTime `gorm:"column:paused_since"`
}

type SettingsJSON struct {
	MaintenanceMode bool       `json:"maintenanceMode"`
	PausedSince     *time.Time `json:"pausedSince"`
}

func (Settings) TableName() string {
	return "system_settings"
}

func (s *Settings) String() string {
	if s.PausedSince.Valid {
		return fmt.Sprintf("MaintenanceMode: %t, PausedSince: %s", s.MaintenanceMode, s.PausedSince.Time.Format(time.RFC3339))
	}
	return fmt.Sprintf("MaintenanceMode: %t", s.MaintenanceMode)
}

func (s *Settings) ToJSON() SettingsJSON {
	j := SettingsJSON{MaintenanceMode: s.MaintenanceMode}
	if s.PausedSince.Valid {
		t := s.PausedSince.Time
		j.PausedSince = &t
	}
	return j
}

// FromJSON applies j. A null pausedSince lifts the pause; any other value
// keeps the stored one as the pause time is only set by Pause.
func (s *Settings) FromJSON(j SettingsJSON) {
	s.MaintenanceMode = j.MaintenanceMode
	if j.PausedSince == nil {
		s.PausedSince = sql.NullTime{}
	}
}

func (s *Settings) IsMaintenanceMode() bool {
	return s.MaintenanceMode
}

// IsPaused reports whether a pause started less than pauseDuration ago.
func (s *Settings) IsPaused(pauseDuration time.Duration) bool {
	return s.PausedSince.Valid && time.Since(s.PausedSince.Time) < pauseDuration
}
