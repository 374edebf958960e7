package persistence

import (
	"context"
	"time"

	"github.com/flow-hydraulics/token-wallet-ledger/datastore/lib"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Entry is a row of the kv_entries table.
type Entry struct {
	Key       string `gorm:"column:entry_key;primaryKey;size:255"`
	Value     []byte `gorm:"column:value"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Entry) TableName() string {
	return "kv_entries"
}

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db}
}

func (s *GormStore) Load(ctx context.Context, key string) ([]byte, bool, error) {
	var entries []Entry
	err := s.db.WithContext(ctx).
		Where(&Entry{Key: key}).
		Limit(1).
		Find(&entries).Error
	if err != nil {
		return nil, false, err
	}
	if len(entries) == 0 {
		return nil, false, nil
	}
	return entries[0].Value, true, nil
}

func (s *GormStore) Save(ctx context.Context, key string, blob []byte) error {
	return lib.GormTransaction(ctx, s.db, func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "entry_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).Create(&Entry{Key: key, Value: blob}).Error
	})
}
