package migrations

import (
	"github.com/flow-hydraulics/token-wallet-ledger/migrations/internal/m20261018_1"
	"github.com/flow-hydraulics/token-wallet-ledger/migrations/internal/m20261018_2"
	"github.com/go-gormigrate/gormigrate/v2"
)

func List() []*gormigrate.Migration {
	ms := []*gormigrate.Migration{
		{
			ID:       m20261018_1.ID,
			Migrate:  m20261018_1.Migrate,
			Rollback: m20261018_1.Rollback,
		},
		{
			ID:       m20261018_2.ID,
			Migrate:  m20261018_2.Migrate,
			Rollback: m20261018_2.Rollback,
		},
	}
	return ms
}
