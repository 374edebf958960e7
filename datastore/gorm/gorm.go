package gorm

import (
	"fmt"

	"github.com/flow-hydraulics/token-wallet-ledger/configs"
	"github.com/flow-hydraulics/token-wallet-ledger/migrations"
	"github.com/go-gormigrate/gormigrate/v2"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// New opens the configured database and runs all pending migrations.
func New(cfg *configs.Config) (*gorm.DB, error) {
	gormCfg, err := ParseConfig(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(gormCfg.Dialector, gormCfg.Options)
	if err != nil {
		return nil, fmt.Errorf("error while opening database: %w", err)
	}

	m := gormigrate.New(db, gormigrate.DefaultOptions, migrations.List())
	if err := m.Migrate(); err != nil {
		Close(db)
		return nil, fmt.Errorf("error while migrating database: %w", err)
	}

	log.WithFields(log.Fields{"type": cfg.DatabaseType}).Debug("Database ready")

	return db, nil
}

func Close(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		log.WithFields(log.Fields{"error": err}).Warn("Unable to get database handle")
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.WithFields(log.Fields{"error": err}).Warn("Unable to close database")
	}
}
