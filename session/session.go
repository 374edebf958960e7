// Package session holds the application state: which account is connected on
// which network. Changing it rekeys the ledger and restarts reconciliation.
package session

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/flow-hydraulics/token-wallet-ledger/chain"
	"github.com/flow-hydraulics/token-wallet-ledger/errors"
	"github.com/flow-hydraulics/token-wallet-ledger/events"
	log "github.com/sirupsen/logrus"
)

type Ledger interface {
	RekeyForAccount(ctx context.Context, account string) error
}

type Scheduler interface {
	Start()
	Stop()
}

type State struct {
	Connected bool   `json:"connected"`
	Account   string `json:"account,omitempty"`
	ChainID   uint64 `json:"chainId,omitempty"`
	Network   string `json:"network,omitempty"`
}

type Session struct {
	mu         sync.Mutex
	ledger     Ledger
	reconciler Scheduler
	networks   *chain.Networks
	notifier   events.Notifier
	state      State
}

type Option func(*Session)

func WithNotifier(n events.Notifier) Option {
	return func(s *Session) {
		s.notifier = n
	}
}

func WithNetworks(n *chain.Networks) Option {
	return func(s *Session) {
		s.networks = n
	}
}

func New(l Ledger, reconciler Scheduler, opts ...Option) *Session {
	s := &Session{
		ledger:     l,
		reconciler: reconciler,
		networks:   chain.DefaultNetworks(),
		notifier:   events.Discard,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Connect makes account on chainID the active account. Connecting the
// already active account on the same chain changes nothing.
func (s *Session) Connect(ctx context.Context, account string, chainID uint64) (State, error) {
	account = strings.TrimSpace(account)
	if !chain.IsAddress(account) {
		return State{}, errors.NewValidationError("account", "%q is not an address", account)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Connected && chain.NormalizeAddress(s.state.Account) == chain.NormalizeAddress(account) {
		if s.state.ChainID != chainID {
			s.setNetwork(chainID)
			s.notifier.Notify(events.New(events.SessionChanged, s.state.Account, ""))
		}
		return s.state, nil
	}

	return s.switchTo(ctx, account, chainID)
}

// SwitchAccount changes the active account, keeping the network.
func (s *Session) SwitchAccount(ctx context.Context, account string) (State, error) {
	s.mu.Lock()
	chainID, connected := s.state.ChainID, s.state.Connected
	s.mu.Unlock()

	if !connected {
		return State{}, &errors.ValidationError{Reason: "no account connected"}
	}

	return s.Connect(ctx, account, chainID)
}

// SwitchNetwork records that the wallet moved to chainID.
func (s *Session) SwitchNetwork(chainID uint64) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.Connected {
		return State{}, &errors.ValidationError{Reason: "no account connected"}
	}

	s.setNetwork(chainID)
	s.notifier.Notify(events.New(events.SessionChanged, s.state.Account, ""))

	return s.state, nil
}

// Disconnect stops reconciliation and unloads the ledger.
func (s *Session) Disconnect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reconciler.Stop()
	s.state = State{}
	err := s.ledger.RekeyForAccount(ctx, "")

	log.Info("Wallet disconnected")
	s.notifier.Notify(events.New(events.SessionChanged, "", ""))

	return err
}

// switchTo must be called with the lock held. Reconciliation is stopped
// while the ledger is rekeyed so no tick runs against a half swapped ledger.
// When the ledger cannot be loaded the session ends up disconnected.
func (s *Session) switchTo(ctx context.Context, account string, chainID uint64) (State, error) {
	s.reconciler.Stop()

	// Detached from the request so a client disconnect cannot fail the load
	if err := s.ledger.RekeyForAccount(context.WithoutCancel(ctx), account); err != nil {
		log.
			WithFields(log.Fields{"account": account, "error": err}).
			Warn("Could not load ledger of account")

		s.state = State{}
		s.notifier.Notify(events.New(events.SessionChanged, "", ""))

		return State{}, &errors.RequestError{StatusCode: http.StatusServiceUnavailable, Err: err}
	}

	s.state = State{Connected: true, Account: account}
	s.setNetwork(chainID)

	s.reconciler.Start()

	log.
		WithFields(log.Fields{"account": account, "network": s.state.Network}).
		Info("Wallet connected")

	s.notifier.Notify(events.New(events.SessionChanged, account, ""))

	return s.state, nil
}

func (s *Session) setNetwork(chainID uint64) {
	s.state.ChainID = chainID
	s.state.Network = s.networks.Name(chainID)
}
