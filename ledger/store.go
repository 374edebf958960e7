// Package ledger keeps the bounded, newest-first transaction history of the
// active account and persists it per account.
package ledger

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/flow-hydraulics/token-wallet-ledger/chain"
	"github.com/flow-hydraulics/token-wallet-ledger/errors"
	"github.com/flow-hydraulics/token-wallet-ledger/events"
	"github.com/flow-hydraulics/token-wallet-ledger/persistence"
	log "github.com/sirupsen/logrus"
)

const DefaultLimit = 10

// Filter tags that match on direction. Every other tag matches on status.
const (
	FilterAll      = "all"
	FilterSent     = string(Sent)
	FilterReceived = string(Received)
)

// Store holds the records of exactly one account at a time. The lock is held
// across persistence calls so a rekey can never interleave with a write.
type Store struct {
	mu       sync.RWMutex
	store    persistence.Store
	notifier events.Notifier
	limit    int
	now      func() time.Time

	account string
	records []TransactionRecord
}

func NewStore(store persistence.Store, opts ...Option) *Store {
	s := &Store{
		store:    store,
		notifier: events.Discard,
		limit:    DefaultLimit,
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func normalizeAccount(account string) string {
	return chain.NormalizeAddress(account)
}

// Account returns the account whose records are loaded, or "" when none is.
func (s *Store) Account() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.account
}

// Append prepends r to the history of the active account, dropping the
// oldest records beyond the limit, and persists the result.
func (s *Store) Append(ctx context.Context, r TransactionRecord) error {
	if !r.Direction.Valid() {
		return errors.NewValidationError("direction", "must be %q or %q", Sent, Received)
	}
	if r.Status == Unknown {
		r.Status = Pending
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = s.now()
	}

	s.mu.Lock()
	if s.account == "" {
		s.mu.Unlock()
		return &errors.ValidationError{Reason: "no account connected"}
	}

	previous := s.records
	records := make([]TransactionRecord, 0, len(s.records)+1)
	records = append(records, r)
	records = append(records, s.records...)
	if len(records) > s.limit {
		records = records[:s.limit]
	}
	s.records = records

	account := s.account
	if err := s.persist(ctx); err != nil {
		// Memory mirrors what is stored
		s.records = previous
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	s.notifier.Notify(events.New(events.LedgerAppended, account, r.Hash))

	return nil
}

// List returns all records, newest first.
func (s *Store) List() []TransactionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyRecords(s.records)
}

// Filter returns the records matching tag. "all" matches everything, "sent"
// and "received" match the direction and any other tag matches the status.
func (s *Store) Filter(tag string) []TransactionRecord {
	tag = strings.ToLower(strings.TrimSpace(tag))

	s.mu.RLock()
	defer s.mu.RUnlock()

	if tag == "" || tag == FilterAll {
		return copyRecords(s.records)
	}

	res := []TransactionRecord{}
	for _, r := range s.records {
		if matches(r, tag) {
			res = append(res, copyRecord(r))
		}
	}
	return res
}

func matches(r TransactionRecord, tag string) bool {
	switch tag {
	case FilterSent, FilterReceived:
		return string(r.Direction) == tag
	default:
		return r.Status.String() == tag
	}
}

// Pending returns the records that still await a receipt.
func (s *Store) Pending() []TransactionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res := []TransactionRecord{}
	for _, r := range s.records {
		if r.Status == Pending && r.Hash != "" {
			res = append(res, copyRecord(r))
		}
	}
	return res
}

// Find returns the record with the given hash.
func (s *Store) Find(hash string) (TransactionRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexOf(hash); i >= 0 {
		return copyRecord(s.records[i]), true
	}
	return TransactionRecord{}, false
}

func (s *Store) indexOf(hash string) int {
	if hash == "" {
		return -1
	}
	for i, r := range s.records {
		if strings.EqualFold(r.Hash, hash) {
			return i
		}
	}
	return -1
}

// RekeyForAccount discards the records in memory and loads the history of
// account. An empty account leaves the store without an active account, and
// so does a failed load: writing to an account whose history could not be
// read would overwrite it.
// Rekeying to the active account reloads the same records.
func (s *Store) RekeyForAccount(ctx context.Context, account string) error {
	account = normalizeAccount(account)

	s.mu.Lock()
	s.account = ""
	s.records = nil

	if account != "" {
		var records []TransactionRecord
		found, err := persistence.LoadJSON(ctx, s.store, persistence.LedgerKey(account), &records)
		if err != nil {
			s.mu.Unlock()
			log.
				WithFields(log.Fields{"account": account, "error": err}).
				Warn("Failed to load ledger")
			s.notifier.Notify(events.New(events.LedgerRekeyed, "", ""))
			return fmt.Errorf("error while loading ledger of %s: %w", account, err)
		}
		s.account = account
		if found {
			s.records = s.hydrate(records)
		}
	}
	count := len(s.records)
	s.mu.Unlock()

	log.
		WithFields(log.Fields{"account": account, "records": count}).
		Debug("Ledger rekeyed")

	s.notifier.Notify(events.New(events.LedgerRekeyed, account, ""))

	return nil
}

// Clear leaves the store without an active account. Persisted histories are
// kept.
func (s *Store) Clear(ctx context.Context) error {
	return s.RekeyForAccount(ctx, "")
}

// ApplyReceipt moves the pending record hash of account to a terminal status.
// It reports false and changes nothing when account is no longer the active
// account, the record is gone, or the record already holds the outcome.
func (s *Store) ApplyReceipt(ctx context.Context, account, hash string, o Outcome) (bool, error) {
	if !o.Status.IsTerminal() {
		return false, errors.NewValidationError("status", "%s is not a terminal status", o.Status)
	}

	account = normalizeAccount(account)

	s.mu.Lock()
	if account == "" || account != s.account {
		s.mu.Unlock()
		return false, nil
	}

	i := s.indexOf(hash)
	if i < 0 {
		s.mu.Unlock()
		return false, nil
	}

	r := &s.records[i]
	if r.Status == o.Status && r.Confirmations != nil && *r.Confirmations == o.Confirmations {
		s.mu.Unlock()
		return false, nil
	}

	previous := *r
	confirmations := o.Confirmations
	r.Status = o.Status
	r.Confirmations = &confirmations

	if err := s.persist(ctx); err != nil {
		*r = previous
		s.mu.Unlock()
		return false, err
	}
	s.mu.Unlock()

	e := events.New(events.TransactionResolved, account, hash)
	e.Status = o.Status.String()
	s.notifier.Notify(e)

	return true, nil
}

// hydrate normalizes records read from persistence. Must be called with the
// lock held.
func (s *Store) hydrate(records []TransactionRecord) []TransactionRecord {
	res := make([]TransactionRecord, 0, len(records))
	for _, r := range records {
		if !r.Direction.Valid() {
			continue
		}
		if r.Status == Unknown {
			r.Status = Pending
		}
		res = append(res, r)
	}
	if len(res) > s.limit {
		res = res[:s.limit]
	}
	return res
}

// persist must be called with the lock held.
func (s *Store) persist(ctx context.Context) error {
	records := s.records
	if records == nil {
		records = []TransactionRecord{}
	}
	if err := persistence.SaveJSON(ctx, s.store, persistence.LedgerKey(s.account), records); err != nil {
		log.
			WithFields(log.Fields{"account": s.account, "error": err}).
			Warn("Failed to persist ledger")
		return err
	}
	return nil
}

func copyRecord(r TransactionRecord) TransactionRecord {
	if r.Confirmations != nil {
		c := *r.Confirmations
		r.Confirmations = &c
	}
	return r
}

func copyRecords(rr []TransactionRecord) []TransactionRecord {
	res := make([]TransactionRecord, len(rr))
	for i, r := range rr {
		res[i] = copyRecord(r)
	}
	return res
}
