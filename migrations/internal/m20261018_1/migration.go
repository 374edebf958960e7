package m20261018_1

import (
	"time"

	"gorm.io/gorm"
)

const ID = "20261018_1"

type Entry struct {
	Key       string `gorm:"column:entry_key;primaryKey;size:255"`
	Value     []byte `gorm:"column:value"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Entry) TableName() string {
	return "kv_entries"
}

func Migrate(tx *gorm.DB) error {
	return tx.AutoMigrate(&Entry{})
}

func Rollback(tx *gorm.DB) error {
	return tx.Migrator().DropTable(&Entry{})
}
