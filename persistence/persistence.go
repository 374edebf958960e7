// Package persistence provides the namespaced key-value storage the ledger
// and address book stores load from and save to.
package persistence

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/flow-hydraulics/token-wallet-ledger/errors"
	log "github.com/sirupsen/logrus"
)

const (
	ledgerKeyPrefix = "txHistory_"

	// AddressBookKey is the global, account independent address book key.
	AddressBookKey = "addressBook"
)

// Store is a namespaced key-value blob store.
type Store interface {
	// Load returns the blob stored under key. found is false when nothing has
	// been saved under key yet.
	Load(ctx context.Context, key string) (blob []byte, found bool, err error)
	Save(ctx context.Context, key string, blob []byte) error
}

// LedgerKey returns the key of the transaction history of account.
func LedgerKey(account string) string {
	return ledgerKeyPrefix + strings.ToLower(account)
}

// LoadJSON decodes the blob under key into v and reports whether anything
// was decoded. An undecodable blob is logged and reported as not found,
// v must then be ignored by the caller.
func LoadJSON(ctx context.Context, s Store, key string, v interface{}) (bool, error) {
	blob, found, err := s.Load(ctx, key)
	if err != nil {
		return false, err
	}
	if !found || len(blob) == 0 {
		return false, nil
	}

	if err := json.Unmarshal(blob, v); err != nil {
		log.
			WithFields(log.Fields{"key": key}).
			Warn((&errors.PersistenceCorruption{Key: key, Err: err}).Error())
		return false, nil
	}

	return true, nil
}

func SaveJSON(ctx context.Context, s Store, key string, v interface{}) error {
	blob, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Save(ctx, key, blob)
}
