package lib

import (
	"context"

	"gorm.io/gorm"
)

// GormTransaction runs fn inside a database transaction bound to ctx.
// sqlite serializes writers on its own, so there fn runs on the plain
// database handle instead.
func GormTransaction(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	db = db.WithContext(ctx)

	if db.Config.Dialector.Name() == "sqlite" {
		return fn(db)
	}

	tx := db.Begin()
	if tx.Error != nil {
		return tx.Error
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}
