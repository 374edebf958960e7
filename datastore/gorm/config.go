package gorm

import (
	"fmt"

	"github.com/flow-hydraulics/token-wallet-ledger/configs"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	dbTypePostgresql = "psql"
	dbTypeMysql      = "mysql"
	dbTypeSqlite     = "sqlite"
)

// Config for the gorm data store.
type Config struct {
	Dialector gorm.Dialector
	Options   *gorm.Config
}

// ParseConfig picks the dialector matching the configured database type.
func ParseConfig(cfg *configs.Config) (*Config, error) {
	var d gorm.Dialector
	switch cfg.DatabaseType {
	default:
		return nil, fmt.Errorf("database type '%s' not supported", cfg.DatabaseType)
	case dbTypePostgresql:
		d = postgres.Open(cfg.DatabaseDSN)
	case dbTypeMysql:
		d = mysql.Open(cfg.DatabaseDSN)
	case dbTypeSqlite:
		d = sqlite.Open(cfg.DatabaseDSN)
	}

	level := logger.Silent
	if log.IsLevelEnabled(log.TraceLevel) {
		level = logger.Info
	}

	return &Config{
		Dialector: d,
		Options: &gorm.Config{
			Logger: logger.Default.LogMode(level),
		},
	}, nil
}
