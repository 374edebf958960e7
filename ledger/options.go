package ledger

import (
	"time"

	"github.com/flow-hydraulics/token-wallet-ledger/events"
)

type Option func(*Store)

// WithLimit sets the maximum number of records kept per account.
func WithLimit(limit int) Option {
	return func(s *Store) {
		if limit > 0 {
			s.limit = limit
		}
	}
}

func WithNotifier(n events.Notifier) Option {
	return func(s *Store) {
		s.notifier = n
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}
