// Package events carries change notifications from the stores to the
// presentation layer and other subscribers.
package events

import (
	"sync"
	"time"
)

type Kind string

const (
	LedgerAppended      Kind = "ledger.appended"
	LedgerRekeyed       Kind = "ledger.rekeyed"
	TransactionResolved Kind = "transaction.resolved"
	AddressBookChanged  Kind = "address_book.changed"
	SessionChanged      Kind = "session.changed"
)

type Event struct {
	Kind       Kind      `json:"kind"`
	Account    string    `json:"account,omitempty"`
	Hash       string    `json:"hash,omitempty"`
	Status     string    `json:"status,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// New returns an event of kind stamped with the current time.
func New(kind Kind, account, hash string) Event {
	return Event{Kind: kind, Account: account, Hash: hash, OccurredAt: time.Now()}
}

// Notifier receives events. Implementations must not block for long as
// notifications are delivered on the goroutine that changed the state.
type Notifier interface {
	Notify(Event)
}

type NotifierFunc func(Event)

func (f NotifierFunc) Notify(e Event) {
	f(e)
}

// Discard drops every event.
var Discard Notifier = NotifierFunc(func(Event) {})

// Broadcaster fans an event out to every registered notifier.
type Broadcaster struct {
	mu        sync.RWMutex
	notifiers []Notifier
}

func NewBroadcaster(nn ...Notifier) *Broadcaster {
	return &Broadcaster{notifiers: nn}
}

// Register adds a notifier.
func (b *Broadcaster) Register(n Notifier) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.notifiers = append(b.notifiers, n)
}

func (b *Broadcaster) Notify(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, n := range b.notifiers {
		n.Notify(e)
	}
}
