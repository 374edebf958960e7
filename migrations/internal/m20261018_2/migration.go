package m20261018_2

import (
	"database/sql"

	"gorm.io/gorm"
)

const ID = "20261018_2"

type Settings struct {
	gorm.Model
	MaintenanceMode bool         `gorm:"column:maintenance_mode;default:false"`
	PausedSince     sql.NullTime `gorm:"column:paused_since"`
}

func (Settings) TableName() string {
	return "system_settings"
}

func Migrate(tx *gorm.DB) error {
	return tx.AutoMigrate(&Settings{})
}

func Rollback(tx *gorm.DB) error {
	return tx.Migrator().DropTable(&Settings{})
}
