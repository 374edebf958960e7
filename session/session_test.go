package session

import (
	"context"
	"net/http"
	"testing"

	"github.com/flow-hydraulics/token-wallet-ledger/chain"
	"github.com/flow-hydraulics/token-wallet-ledger/errors"
	"github.com/flow-hydraulics/token-wallet-ledger/ledger"
	"github.com/flow-hydraulics/token-wallet-ledger/persistence"
	"github.com/google/go-cmp/cmp"
)

const (
	accountA = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	accountB = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
)

type fakeScheduler struct {
	calls []string
}

func (s *fakeScheduler) Start() { s.calls = append(s.calls, "start") }
func (s *fakeScheduler) Stop()  { s.calls = append(s.calls, "stop") }

func setup() (*Session, *ledger.Store, *fakeScheduler) {
	l := ledger.NewStore(persistence.NewMemoryStore())
	sched := &fakeScheduler{}
	return New(l, sched), l, sched
}

func TestConnect(t *testing.T) {
	ctx := context.Background()
	s, l, sched := setup()

	state, err := s.Connect(ctx, accountA, 11155111)
	if err != nil {
		t.Fatal(err)
	}

	want := State{Connected: true, Account: accountA, ChainID: 11155111, Network: "Sepolia Testnet"}
	if diff := cmp.Diff(want, state); diff != "" {
		t.Errorf("unexpected state (-want +got):\n%s", diff)
	}
	if l.Account() != accountA {
		t.Errorf("expected ledger to be keyed to %s, got %s", accountA, l.Account())
	}
	if diff := cmp.Diff([]string{"stop", "start"}, sched.calls); diff != "" {
		t.Errorf("unexpected scheduler calls (-want +got):\n%s", diff)
	}

	// Same account again is a no-op
	if _, err := s.Connect(ctx, "0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA", 11155111); err != nil {
		t.Fatal(err)
	}
	if len(sched.calls) != 2 {
		t.Errorf("expected reconnecting the same account not to restart reconciliation, got %v", sched.calls)
	}

	if _, err := s.Connect(ctx, "nope", 1); !errors.IsValidation(err) {
		t.Fatalf("expected a validation error, got %v", err)
	}
	if s.State().Account != accountA {
		t.Fatal("expected state to be unchanged")
	}
}

func TestSwitchAccount(t *testing.T) {
	ctx := context.Background()
	s, l, sched := setup()

	if _, err := s.SwitchAccount(ctx, accountB); !errors.IsValidation(err) {
		t.Fatalf("expected a validation error without a connection, got %v", err)
	}

	if _, err := s.Connect(ctx, accountA, 1); err != nil {
		t.Fatal(err)
	}
	if err := l.Append(ctx, ledger.TransactionRecord{Hash: "0xA", Direction: ledger.Sent, Amount: "1"}); err != nil {
		t.Fatal(err)
	}

	state, err := s.SwitchAccount(ctx, accountB)
	if err != nil {
		t.Fatal(err)
	}
	if state.Account != accountB || state.Network != "Ethereum Mainnet" {
		t.Fatalf("unexpected state %+v", state)
	}
	if len(l.List()) != 0 {
		t.Fatal("expected ledger of the new account to be empty")
	}
	if diff := cmp.Diff([]string{"stop", "start", "stop", "start"}, sched.calls); diff != "" {
		t.Errorf("unexpected scheduler calls (-want +got):\n%s", diff)
	}

	if _, err := s.SwitchAccount(ctx, accountA); err != nil {
		t.Fatal(err)
	}
	if len(l.List()) != 1 {
		t.Fatal("expected ledger of the first account to be restored")
	}
}

func TestSwitchNetwork(t *testing.T) {
	ctx := context.Background()
	s, _, sched := setup()

	if _, err := s.SwitchNetwork(5); !errors.IsValidation(err) {
		t.Fatalf("expected a validation error without a connection, got %v", err)
	}

	if _, err := s.Connect(ctx, accountA, 1); err != nil {
		t.Fatal(err)
	}

	state, err := s.SwitchNetwork(1337)
	if err != nil {
		t.Fatal(err)
	}
	if state.Network != "Chain ID: 1337" || state.Account != accountA {
		t.Fatalf("unexpected state %+v", state)
	}
	if len(sched.calls) != 2 {
		t.Errorf("expected network switch not to restart reconciliation, got %v", sched.calls)
	}
}

func TestDisconnect(t *testing.T) {
	ctx := context.Background()
	s, l, sched := setup()

	if _, err := s.Connect(ctx, accountA, 1); err != nil {
		t.Fatal(err)
	}
	if err := s.Disconnect(ctx); err != nil {
		t.Fatal(err)
	}

	if s.State().Connected {
		t.Fatal("expected to be disconnected")
	}
	if l.Account() != "" {
		t.Fatal("expected ledger to be unloaded")
	}
	if sched.calls[len(sched.calls)-1] != "stop" {
		t.Fatalf("expected reconciliation to be stopped, got %v", sched.calls)
	}
}

func TestCustomNetworks(t *testing.T) {
	networks := chain.DefaultNetworks()
	s := New(ledger.NewStore(persistence.NewMemoryStore()), &fakeScheduler{}, WithNetworks(networks))

	state, err := s.Connect(context.Background(), accountA, 42)
	if err != nil {
		t.Fatal(err)
	}
	if state.Network != "Kovan Testnet" {
		t.Fatalf("unexpected network %q", state.Network)
	}
}

type unreadableStore struct {
	persistence.Store
}

func (unreadableStore) Load(context.Context, string) ([]byte, bool, error) {
	return nil, false, context.DeadlineExceeded
}

func TestConnectFailsWhenLedgerCannotBeLoaded(t *testing.T) {
	ctx := context.Background()
	l := ledger.NewStore(unreadableStore{persistence.NewMemoryStore()})
	sched := &fakeScheduler{}
	s := New(l, sched)

	_, err := s.Connect(ctx, accountA, 1)
	if errors.StatusCode(err) != http.StatusServiceUnavailable {
		t.Fatalf("expected a 503 error, got %v", err)
	}
	if s.State().Connected {
		t.Fatal("expected the session to stay disconnected")
	}
	if l.Account() != "" {
		t.Fatalf("expected no active ledger account, got %q", l.Account())
	}
	if diff := cmp.Diff([]string{"stop"}, sched.calls); diff != "" {
		t.Errorf("unexpected scheduler calls (-want +got):\n%s", diff)
	}
}

func TestConnectIgnoresAddressPrefix(t *testing.T) {
	ctx := context.Background()
	s, _, sched := setup()

	if _, err := s.Connect(ctx, accountA, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Connect(ctx, accountA[2:], 1); err != nil {
		t.Fatal(err)
	}
	if len(sched.calls) != 2 {
		t.Errorf("expected the unprefixed address to be the same account, got %v", sched.calls)
	}
}
