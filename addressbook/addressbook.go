// Package addressbook keeps labeled addresses, unique by address regardless
// of letter case.
package addressbook

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/flow-hydraulics/token-wallet-ledger/chain"
	"github.com/flow-hydraulics/token-wallet-ledger/errors"
	"github.com/flow-hydraulics/token-wallet-ledger/events"
	"github.com/flow-hydraulics/token-wallet-ledger/persistence"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type Entry struct {
	ID        uuid.UUID `json:"id"`
	Label     string    `json:"label"`
	Address   string    `json:"address"`
	AddedDate time.Time `json:"addedDate"`
}

// JSONResponse is the renderable row of an entry.
type JSONResponse struct {
	ID           uuid.UUID `json:"id"`
	Label        string    `json:"label"`
	Address      string    `json:"address"`
	ShortAddress string    `json:"shortAddress"`
	AddedDate    time.Time `json:"addedDate"`
}

func (e Entry) ToJSONResponse() JSONResponse {
	return JSONResponse{
		ID:           e.ID,
		Label:        e.Label,
		Address:      e.Address,
		ShortAddress: chain.ShortenAddress(e.Address),
		AddedDate:    e.AddedDate,
	}
}

type Store struct {
	mu        sync.RWMutex
	store     persistence.Store
	notifier  events.Notifier
	isAddress func(string) bool
	now       func() time.Time

	entries []Entry
}

type Option func(*Store)

func WithNotifier(n events.Notifier) Option {
	return func(s *Store) {
		s.notifier = n
	}
}

// WithAddressPredicate replaces the check used to accept addresses.
func WithAddressPredicate(isAddress func(string) bool) Option {
	return func(s *Store) {
		s.isAddress = isAddress
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

func NewStore(store persistence.Store, opts ...Option) *Store {
	s := &Store{
		store:     store,
		notifier:  events.Discard,
		isAddress: chain.IsAddress,
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Load replaces the entries in memory with the persisted ones. Entries
// without an id get one and later duplicates of an address are dropped.
func (s *Store) Load(ctx context.Context) error {
	var stored []Entry
	found, err := persistence.LoadJSON(ctx, s.store, persistence.AddressBookKey, &stored)
	if err != nil {
		return err
	}

	entries := []Entry{}
	if found {
		seen := make(map[string]bool, len(stored))
		for _, e := range stored {
			key := chain.NormalizeAddress(e.Address)
			if e.Address == "" || seen[key] {
				log.WithFields(log.Fields{"address": e.Address}).Warn("Dropping duplicate address book entry")
				continue
			}
			seen[key] = true
			if e.ID == uuid.Nil {
				e.ID = uuid.New()
			}
			entries = append(entries, e)
		}
	}

	s.mu.Lock()
	s.entries = entries
	s.mu.Unlock()

	return nil
}

// Add appends a new entry. The label must not be empty and the address must
// be well-formed and not yet in the book.
func (s *Store) Add(ctx context.Context, label, address string) (Entry, error) {
	label = strings.TrimSpace(label)
	address = strings.TrimSpace(address)

	if label == "" {
		return Entry{}, errors.NewValidationError("label", "must not be empty")
	}
	if !s.isAddress(address) {
		return Entry{}, errors.NewValidationError("address", "%q is not an address", address)
	}

	s.mu.Lock()
	if s.indexOf(address) >= 0 {
		s.mu.Unlock()
		return Entry{}, errors.NewValidationError("address", "%s is already in the address book", address)
	}

	e := Entry{
		ID:        uuid.New(),
		Label:     label,
		Address:   address,
		AddedDate: s.now(),
	}

	previous := s.entries
	s.entries = append(append([]Entry{}, s.entries...), e)
	if err := s.persist(ctx); err != nil {
		s.entries = previous
		s.mu.Unlock()
		return Entry{}, err
	}
	s.mu.Unlock()

	s.notifier.Notify(events.New(events.AddressBookChanged, "", ""))

	return e, nil
}

// Remove deletes the entry at index.
func (s *Store) Remove(ctx context.Context, index int) (Entry, error) {
	s.mu.Lock()
	if index < 0 || index >= len(s.entries) {
		n := len(s.entries)
		s.mu.Unlock()
		return Entry{}, &errors.IndexError{Index: index, Length: n}
	}
	return s.removeLocked(ctx, index)
}

func (s *Store) RemoveByID(ctx context.Context, id uuid.UUID) (Entry, error) {
	s.mu.Lock()
	for i, e := range s.entries {
		if e.ID == id {
			return s.removeLocked(ctx, i)
		}
	}
	s.mu.Unlock()
	return Entry{}, &errors.RequestError{StatusCode: http.StatusNotFound, Err: fmt.Errorf("address book entry %s not found", id)}
}

// removeLocked must be called with the lock held and releases it.
func (s *Store) removeLocked(ctx context.Context, index int) (Entry, error) {
	e := s.entries[index]

	previous := s.entries
	entries := make([]Entry, 0, len(s.entries)-1)
	entries = append(entries, s.entries[:index]...)
	entries = append(entries, s.entries[index+1:]...)
	s.entries = entries

	if err := s.persist(ctx); err != nil {
		s.entries = previous
		s.mu.Unlock()
		return Entry{}, err
	}
	s.mu.Unlock()

	s.notifier.Notify(events.New(events.AddressBookChanged, "", ""))

	return e, nil
}

// FindByAddress looks address up regardless of letter case and 0x prefix.
func (s *Store) FindByAddress(address string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexOf(strings.TrimSpace(address)); i >= 0 {
		return s.entries[i], true
	}
	return Entry{}, false
}

func (s *Store) List() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Entry{}, s.entries...)
}

// indexOf compares normalized addresses, so letter case and the 0x prefix do
// not matter.
func (s *Store) indexOf(address string) int {
	address = chain.NormalizeAddress(address)
	for i, e := range s.entries {
		if chain.NormalizeAddress(e.Address) == address {
			return i
		}
	}
	return -1
}

func (s *Store) persist(ctx context.Context) error {
	if err := persistence.SaveJSON(ctx, s.store, persistence.AddressBookKey, s.entries); err != nil {
		log.WithFields(log.Fields{"error": err}).Warn("Failed to persist address book")
		return err
	}
	return nil
}
