// Package reconciler periodically resolves the pending transactions of the
// active account against a status provider.
package reconciler

import (
	"context"
	"sync"
	"time"

	"github.com/flow-hydraulics/token-wallet-ledger/chain"
	"github.com/flow-hydraulics/token-wallet-ledger/errors"
	"github.com/flow-hydraulics/token-wallet-ledger/ledger"
	log "github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"
)

const DefaultInterval = 10 * time.Second

// StatusProvider answers receipt and block height queries. A nil receipt
// without an error means the transaction is not mined yet.
type StatusProvider interface {
	Receipt(ctx context.Context, hash string) (*chain.Receipt, error)
	CurrentBlockHeight(ctx context.Context) (uint64, error)
}

type Ledger interface {
	Account() string
	Pending() []ledger.TransactionRecord
	ApplyReceipt(ctx context.Context, account, hash string, o ledger.Outcome) (bool, error)
}

type SystemService interface {
	IsMaintenanceMode() bool
	IsPaused() bool
	Pause() error
}

// Result summarizes a tick.
type Result struct {
	Checked   int
	Confirmed int
	Failed    int
	Skipped   bool
}

type Reconciler struct {
	provider StatusProvider
	ledger   Ledger
	interval time.Duration
	limiter  ratelimit.Limiter
	system   SystemService

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func New(provider StatusProvider, l Ledger, opts ...Option) *Reconciler {
	r := &Reconciler{
		provider: provider,
		ledger:   l,
		interval: DefaultInterval,
		limiter:  ratelimit.NewUnlimited(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Start schedules a tick every interval. Starting a running reconciler does
// nothing.
func (r *Reconciler) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.done = make(chan struct{})

	go r.run(ctx, r.done)

	log.WithFields(log.Fields{"interval": r.interval}).Debug("Reconciler started")
}

// Stop cancels the in-flight tick, if any, and waits for it to return.
func (r *Reconciler) Stop() {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel, r.done = nil, nil
	r.mu.Unlock()

	if cancel == nil {
		return
	}

	cancel()
	<-done

	log.Debug("Reconciler stopped")
}

func (r *Reconciler) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancel != nil
}

func (r *Reconciler) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			res, err := r.Tick(ctx)
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				r.handleError(err)
				continue
			}
			if res.Confirmed+res.Failed > 0 {
				log.
					WithFields(log.Fields{"checked": res.Checked, "confirmed": res.Confirmed, "failed": res.Failed}).
					Info("Resolved pending transactions")
			}
		}
	}
}

// Tick queries the provider once for every pending record of the active
// account and applies the receipts found. Records without a receipt stay
// pending.
func (r *Reconciler) Tick(ctx context.Context) (Result, error) {
	res := Result{}

	if r.system != nil && (r.system.IsMaintenanceMode() || r.system.IsPaused()) {
		res.Skipped = true
		return res, nil
	}

	account := r.ledger.Account()
	if account == "" {
		return res, nil
	}

	var height uint64
	heightKnown := false

	for _, p := range r.ledger.Pending() {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}

		r.limiter.Take()

		receipt, err := r.provider.Receipt(ctx, p.Hash)
		res.Checked++
		if err != nil {
			if errors.IsChainConnectionError(err) {
				return res, err
			}
			log.
				WithFields(log.Fields{"hash": p.Hash, "error": err}).
				Warn("Could not query transaction receipt")
			continue
		}
		if receipt == nil {
			continue
		}

		if !heightKnown {
			height, err = r.provider.CurrentBlockHeight(ctx)
			if err != nil {
				return res, err
			}
			heightKnown = true
		}

		o := ledger.Outcome{Status: ledger.Failed}
		if receipt.Success {
			o.Status = ledger.Confirmed
		}
		if height > receipt.BlockNumber {
			o.Confirmations = height - receipt.BlockNumber
		}

		applied, err := r.ledger.ApplyReceipt(ctx, account, p.Hash, o)
		if err != nil {
			log.
				WithFields(log.Fields{"hash": p.Hash, "error": err}).
				Warn("Could not apply transaction receipt")
			continue
		}
		if !applied {
			continue
		}

		if o.Status == ledger.Confirmed {
			res.Confirmed++
		} else {
			res.Failed++
		}
	}

	return res, nil
}

func (r *Reconciler) handleError(err error) {
	entry := log.WithFields(log.Fields{"error": err})

	if errors.IsChainConnectionError(err) {
		entry.Warn("Status provider unreachable")
		if r.system != nil {
			if err := r.system.Pause(); err != nil {
				log.WithFields(log.Fields{"error": err}).Warn("Unable to pause reconciliation")
			}
		}
		return
	}

	entry.Warn("Reconciliation tick failed")
}
