package ledger

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/flow-hydraulics/token-wallet-ledger/errors"
	"github.com/flow-hydraulics/token-wallet-ledger/events"
	"github.com/flow-hydraulics/token-wallet-ledger/persistence"
	"github.com/google/go-cmp/cmp"
)

const (
	accountA = "0xAAAAaaaaAAAAaaaaAAAAaaaaAAAAaaaaAAAAaaaa"
	accountB = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	peer     = "0x1234567890abcdef1234567890abcdef12345678"
)

var epoch = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *eventRecorder) Notify(e events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *eventRecorder) kinds() []events.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kk := make([]events.Kind, len(r.events))
	for i, e := range r.events {
		kk[i] = e.Kind
	}
	return kk
}

type failingStore struct {
	persistence.Store
}

func (failingStore) Save(context.Context, string, []byte) error {
	return fmt.Errorf("disk full")
}

// flakyStore fails loads and saves while down is set.
type flakyStore struct {
	persistence.Store
	mu   sync.Mutex
	down bool
}

func (f *flakyStore) setDown(down bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.down = down
}

func (f *flakyStore) Load(ctx context.Context, key string) ([]byte, bool, error) {
	f.mu.Lock()
	down := f.down
	f.mu.Unlock()
	if down {
		return nil, false, context.DeadlineExceeded
	}
	return f.Store.Load(ctx, key)
}

func (f *flakyStore) Save(ctx context.Context, key string, value []byte) error {
	f.mu.Lock()
	down := f.down
	f.mu.Unlock()
	if down {
		return context.DeadlineExceeded
	}
	return f.Store.Save(ctx, key, value)
}

func record(hash string, d Direction) TransactionRecord {
	return TransactionRecord{
		Hash:         hash,
		Direction:    d,
		Counterparty: peer,
		Amount:       "10",
		Timestamp:    epoch,
	}
}

func hashes(rr []TransactionRecord) []string {
	hh := make([]string, len(rr))
	for i, r := range rr {
		hh[i] = r.Hash
	}
	return hh
}

func newTestStore(t *testing.T, opts ...Option) (*Store, persistence.Store) {
	t.Helper()
	p := persistence.NewMemoryStore()
	s := NewStore(p, opts...)
	if err := s.RekeyForAccount(context.Background(), accountA); err != nil {
		t.Fatal(err)
	}
	return s, p
}

func TestAppend(t *testing.T) {
	ctx := context.Background()

	t.Run("newest first", func(t *testing.T) {
		s, _ := newTestStore(t)

		for _, h := range []string{"0xA", "0xB", "0xC"} {
			if err := s.Append(ctx, record(h, Sent)); err != nil {
				t.Fatal(err)
			}
		}

		if diff := cmp.Diff([]string{"0xC", "0xB", "0xA"}, hashes(s.List())); diff != "" {
			t.Errorf("unexpected order (-want +got):\n%s", diff)
		}
	})

	t.Run("bounded", func(t *testing.T) {
		s, _ := newTestStore(t)

		for i := 0; i < DefaultLimit+1; i++ {
			if err := s.Append(ctx, record(fmt.Sprintf("0x%d", i), Sent)); err != nil {
				t.Fatal(err)
			}
		}

		list := s.List()
		if len(list) != DefaultLimit {
			t.Fatalf("expected %d records, got %d", DefaultLimit, len(list))
		}
		if list[0].Hash != "0x10" || list[len(list)-1].Hash != "0x1" {
			t.Fatalf("expected the oldest record to be dropped, got %v", hashes(list))
		}
	})

	t.Run("custom limit", func(t *testing.T) {
		s, _ := newTestStore(t, WithLimit(100))
		for i := 0; i < 20; i++ {
			if err := s.Append(ctx, record(fmt.Sprintf("0x%d", i), Received)); err != nil {
				t.Fatal(err)
			}
		}
		if len(s.List()) != 20 {
			t.Fatalf("expected 20 records, got %d", len(s.List()))
		}
	})

	t.Run("defaults", func(t *testing.T) {
		s, _ := newTestStore(t, WithClock(func() time.Time { return epoch }))

		if err := s.Append(ctx, TransactionRecord{Hash: "0xA", Direction: Sent, Amount: "1"}); err != nil {
			t.Fatal(err)
		}

		r := s.List()[0]
		if r.Status != Pending {
			t.Errorf("expected new record to be pending, got %s", r.Status)
		}
		if !r.Timestamp.Equal(epoch) {
			t.Errorf("expected timestamp to default to now, got %s", r.Timestamp)
		}
	})

	t.Run("rejects invalid direction", func(t *testing.T) {
		s, _ := newTestStore(t)
		if err := s.Append(ctx, record("0xA", "sideways")); !errors.IsValidation(err) {
			t.Fatalf("expected a validation error, got %v", err)
		}
		if len(s.List()) != 0 {
			t.Fatal("expected store to be unchanged")
		}
	})

	t.Run("requires an account", func(t *testing.T) {
		s := NewStore(persistence.NewMemoryStore())
		if err := s.Append(ctx, record("0xA", Sent)); !errors.IsValidation(err) {
			t.Fatalf("expected a validation error, got %v", err)
		}
	})

	t.Run("persistence failure rolls back", func(t *testing.T) {
		rec := &eventRecorder{}
		s := NewStore(failingStore{persistence.NewMemoryStore()}, WithNotifier(rec))
		if err := s.RekeyForAccount(ctx, accountA); err != nil {
			t.Fatal(err)
		}
		if err := s.Append(ctx, record("0xA", Sent)); err == nil {
			t.Fatal("expected an error")
		}
		if len(s.List()) != 0 {
			t.Fatalf("expected no record in memory, got %v", hashes(s.List()))
		}
		if diff := cmp.Diff([]events.Kind{events.LedgerRekeyed}, rec.kinds()); diff != "" {
			t.Fatalf("unexpected events (-want +got):\n%s", diff)
		}
	})
}

func TestFilter(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	for _, r := range []TransactionRecord{
		record("0x1", Sent),
		record("0x2", Received),
		record("0x3", Sent),
	} {
		if err := s.Append(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	if _, err := s.ApplyReceipt(ctx, accountA, "0x3", Outcome{Status: Confirmed, Confirmations: 2}); err != nil {
		t.Fatal(err)
	}

	cases := map[string][]string{
		"all":       {"0x3", "0x2", "0x1"},
		"":          {"0x3", "0x2", "0x1"},
		"sent":      {"0x3", "0x1"},
		"Received":  {"0x2"},
		"pending":   {"0x2", "0x1"},
		"confirmed": {"0x3"},
		"failed":    {},
		"bogus":     {},
	}

	for tag, want := range cases {
		if diff := cmp.Diff(want, hashes(s.Filter(tag))); diff != "" {
			t.Errorf("filter %q (-want +got):\n%s", tag, diff)
		}
	}
}

func TestRekeyForAccount(t *testing.T) {
	ctx := context.Background()

	t.Run("never bleeds across accounts", func(t *testing.T) {
		s, _ := newTestStore(t)

		if err := s.Append(ctx, record("0xA1", Sent)); err != nil {
			t.Fatal(err)
		}

		if err := s.RekeyForAccount(ctx, accountB); err != nil {
			t.Fatal(err)
		}
		if len(s.List()) != 0 {
			t.Fatalf("expected empty ledger for a new account, got %v", hashes(s.List()))
		}

		if err := s.Append(ctx, record("0xB1", Received)); err != nil {
			t.Fatal(err)
		}

		if err := s.RekeyForAccount(ctx, accountA); err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff([]string{"0xA1"}, hashes(s.List())); diff != "" {
			t.Errorf("unexpected records for account A (-want +got):\n%s", diff)
		}

		if err := s.RekeyForAccount(ctx, accountB); err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff([]string{"0xB1"}, hashes(s.List())); diff != "" {
			t.Errorf("unexpected records for account B (-want +got):\n%s", diff)
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		s, _ := newTestStore(t)
		if err := s.Append(ctx, record("0xA", Sent)); err != nil {
			t.Fatal(err)
		}

		before := s.List()
		for i := 0; i < 2; i++ {
			if err := s.RekeyForAccount(ctx, accountA); err != nil {
				t.Fatal(err)
			}
		}

		if diff := cmp.Diff(before, s.List()); diff != "" {
			t.Errorf("expected rekey to same account to be a no-op (-want +got):\n%s", diff)
		}
	})

	t.Run("account is case insensitive", func(t *testing.T) {
		s, _ := newTestStore(t)
		if err := s.Append(ctx, record("0xA", Sent)); err != nil {
			t.Fatal(err)
		}
		if err := s.RekeyForAccount(ctx, accountB); err != nil {
			t.Fatal(err)
		}
		if err := s.RekeyForAccount(ctx, "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"); err != nil {
			t.Fatal(err)
		}
		if len(s.List()) != 1 {
			t.Fatal("expected records of the same account in a different case")
		}
	})

	t.Run("survives restarts", func(t *testing.T) {
		s, p := newTestStore(t)
		if err := s.Append(ctx, record("0xA", Sent)); err != nil {
			t.Fatal(err)
		}

		restarted := NewStore(p)
		if err := restarted.RekeyForAccount(ctx, accountA); err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(s.List(), restarted.List()); diff != "" {
			t.Errorf("unexpected records after restart (-want +got):\n%s", diff)
		}
	})

	t.Run("corrupt history loads empty", func(t *testing.T) {
		p := persistence.NewMemoryStore()
		if err := p.Save(ctx, persistence.LedgerKey(accountA), []byte("[{broken")); err != nil {
			t.Fatal(err)
		}

		s := NewStore(p)
		if err := s.RekeyForAccount(ctx, accountA); err != nil {
			t.Fatalf("expected corrupt data not to fail the rekey, got %s", err)
		}
		if len(s.List()) != 0 {
			t.Fatal("expected an empty ledger")
		}

		// Further writes work normally
		if err := s.Append(ctx, record("0xA", Sent)); err != nil {
			t.Fatal(err)
		}
	})

	t.Run("normalizes loaded records", func(t *testing.T) {
		p := persistence.NewMemoryStore()
		blob := `[{"hash":"0x1","direction":"sent","status":"weird"},{"hash":"0x2","direction":"up"},{"hash":"0x3","direction":"received","status":"failed"}]`
		if err := p.Save(ctx, persistence.LedgerKey(accountA), []byte(blob)); err != nil {
			t.Fatal(err)
		}

		s := NewStore(p)
		if err := s.RekeyForAccount(ctx, accountA); err != nil {
			t.Fatal(err)
		}

		list := s.List()
		if diff := cmp.Diff([]string{"0x1", "0x3"}, hashes(list)); diff != "" {
			t.Fatalf("unexpected records (-want +got):\n%s", diff)
		}
		if list[0].Status != Pending || list[1].Status != Failed {
			t.Errorf("unexpected statuses %s, %s", list[0].Status, list[1].Status)
		}
	})

	t.Run("clear", func(t *testing.T) {
		s, _ := newTestStore(t)
		if err := s.Append(ctx, record("0xA", Sent)); err != nil {
			t.Fatal(err)
		}
		if err := s.Clear(ctx); err != nil {
			t.Fatal(err)
		}
		if s.Account() != "" || len(s.List()) != 0 {
			t.Fatal("expected no active account")
		}
		if err := s.RekeyForAccount(ctx, accountA); err != nil {
			t.Fatal(err)
		}
		if len(s.List()) != 1 {
			t.Fatal("expected persisted history to be kept")
		}
	})
}

func TestApplyReceipt(t *testing.T) {
	ctx := context.Background()

	t.Run("resolves pending record", func(t *testing.T) {
		rec := &eventRecorder{}
		s, p := newTestStore(t, WithNotifier(rec))
		if err := s.Append(ctx, record("0xA", Sent)); err != nil {
			t.Fatal(err)
		}

		applied, err := s.ApplyReceipt(ctx, accountA, "0xa", Outcome{Status: Confirmed, Confirmations: 3})
		if err != nil {
			t.Fatal(err)
		}
		if !applied {
			t.Fatal("expected receipt to be applied")
		}

		r, ok := s.Find("0xA")
		if !ok {
			t.Fatal("expected record to be found")
		}
		if r.Status != Confirmed || r.Confirmations == nil || *r.Confirmations != 3 {
			t.Fatalf("unexpected record %+v", r)
		}

		if len(s.Pending()) != 0 {
			t.Error("expected no pending records")
		}

		restarted := NewStore(p)
		if err := restarted.RekeyForAccount(ctx, accountA); err != nil {
			t.Fatal(err)
		}
		if got := restarted.List()[0].Status; got != Confirmed {
			t.Errorf("expected resolved status to be persisted, got %s", got)
		}

		want := []events.Kind{events.LedgerRekeyed, events.LedgerAppended, events.TransactionResolved}
		if diff := cmp.Diff(want, rec.kinds()); diff != "" {
			t.Errorf("unexpected events (-want +got):\n%s", diff)
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		s, _ := newTestStore(t)
		if err := s.Append(ctx, record("0xA", Sent)); err != nil {
			t.Fatal(err)
		}

		o := Outcome{Status: Failed, Confirmations: 1}
		if applied, _ := s.ApplyReceipt(ctx, accountA, "0xA", o); !applied {
			t.Fatal("expected first apply to change the record")
		}
		if applied, _ := s.ApplyReceipt(ctx, accountA, "0xA", o); applied {
			t.Fatal("expected second apply to be a no-op")
		}
	})

	t.Run("discards results for a stale account", func(t *testing.T) {
		s, p := newTestStore(t)
		if err := s.Append(ctx, record("0xA", Sent)); err != nil {
			t.Fatal(err)
		}
		if err := s.RekeyForAccount(ctx, accountB); err != nil {
			t.Fatal(err)
		}

		applied, err := s.ApplyReceipt(ctx, accountA, "0xA", Outcome{Status: Confirmed})
		if err != nil {
			t.Fatal(err)
		}
		if applied {
			t.Fatal("expected receipt for a stale account to be discarded")
		}

		a := NewStore(p)
		if err := a.RekeyForAccount(ctx, accountA); err != nil {
			t.Fatal(err)
		}
		if got := a.List()[0].Status; got != Pending {
			t.Fatalf("expected record of the stale account to stay pending, got %s", got)
		}
	})

	t.Run("persistence failure keeps the record pending", func(t *testing.T) {
		rec := &eventRecorder{}
		store := &flakyStore{Store: persistence.NewMemoryStore()}
		s := NewStore(store, WithNotifier(rec))
		if err := s.RekeyForAccount(ctx, accountA); err != nil {
			t.Fatal(err)
		}
		if err := s.Append(ctx, record("0xA", Sent)); err != nil {
			t.Fatal(err)
		}

		store.setDown(true)
		applied, err := s.ApplyReceipt(ctx, accountA, "0xA", Outcome{Status: Confirmed, Confirmations: 1})
		if err == nil || applied {
			t.Fatalf("expected the save error, got applied=%t err=%v", applied, err)
		}

		r, _ := s.Find("0xA")
		if r.Status != Pending || r.Confirmations != nil {
			t.Fatalf("expected record to be rolled back, got %+v", r)
		}
		if len(s.Pending()) != 1 {
			t.Fatal("expected record to be retried on the next poll")
		}

		want := []events.Kind{events.LedgerRekeyed, events.LedgerAppended}
		if diff := cmp.Diff(want, rec.kinds()); diff != "" {
			t.Errorf("unexpected events (-want +got):\n%s", diff)
		}

		store.setDown(false)
		if applied, err := s.ApplyReceipt(ctx, accountA, "0xA", Outcome{Status: Confirmed, Confirmations: 1}); !applied || err != nil {
			t.Fatalf("expected retry to apply, got applied=%t err=%v", applied, err)
		}
	})

	t.Run("unknown hash", func(t *testing.T) {
		s, _ := newTestStore(t)
		if applied, err := s.ApplyReceipt(ctx, accountA, "0xmissing", Outcome{Status: Confirmed}); applied || err != nil {
			t.Fatalf("expected nothing to happen, got applied=%t err=%v", applied, err)
		}
	})

	t.Run("rejects non terminal outcome", func(t *testing.T) {
		s, _ := newTestStore(t)
		if _, err := s.ApplyReceipt(ctx, accountA, "0xA", Outcome{Status: Pending}); !errors.IsValidation(err) {
			t.Fatalf("expected a validation error, got %v", err)
		}
	})
}

func TestPending(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	for _, r := range []TransactionRecord{
		record("0x1", Sent),
		record("", Sent),
		record("0x3", Received),
	} {
		if err := s.Append(ctx, r); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := s.ApplyReceipt(ctx, accountA, "0x3", Outcome{Status: Confirmed}); err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff([]string{"0x1"}, hashes(s.Pending())); diff != "" {
		t.Errorf("unexpected pending records (-want +got):\n%s", diff)
	}
}

func TestListReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	if err := s.Append(ctx, record("0xA", Sent)); err != nil {
		t.Fatal(err)
	}
	if _, err := s.ApplyReceipt(ctx, accountA, "0xA", Outcome{Status: Confirmed, Confirmations: 1}); err != nil {
		t.Fatal(err)
	}

	list := s.List()
	list[0].Amount = "999"
	*list[0].Confirmations = 42

	r, _ := s.Find("0xA")
	if r.Amount != "10" || *r.Confirmations != 1 {
		t.Fatalf("expected store to be unaffected by caller mutations, got %+v", r)
	}
}

func TestConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				account := accountA
				if (i+j)%2 == 0 {
					account = accountB
				}
				_ = s.Append(ctx, record(fmt.Sprintf("0x%d_%d", i, j), Sent))
				_ = s.RekeyForAccount(ctx, account)
				_ = s.Filter("pending")
				_, _ = s.ApplyReceipt(ctx, account, fmt.Sprintf("0x%d_%d", i, j), Outcome{Status: Confirmed})
			}
		}(i)
	}
	wg.Wait()

	if len(s.List()) > DefaultLimit {
		t.Fatalf("expected at most %d records, got %d", DefaultLimit, len(s.List()))
	}
}

func TestRekeyLoadFailureKeepsHistory(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{Store: persistence.NewMemoryStore()}
	s := NewStore(store)

	if err := s.RekeyForAccount(ctx, accountA); err != nil {
		t.Fatal(err)
	}
	for _, h := range []string{"0x1", "0x2", "0x3"} {
		if err := s.Append(ctx, record(h, Sent)); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.RekeyForAccount(ctx, accountB); err != nil {
		t.Fatal(err)
	}

	store.setDown(true)
	if err := s.RekeyForAccount(ctx, accountA); err == nil {
		t.Fatal("expected the load error to be returned")
	}
	if s.Account() != "" {
		t.Fatalf("expected no active account after a failed load, got %q", s.Account())
	}
	if err := s.Append(ctx, record("0x4", Sent)); !errors.IsValidation(err) {
		t.Fatalf("expected append to be refused, got %v", err)
	}

	store.setDown(false)
	if err := s.RekeyForAccount(ctx, accountA); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"0x3", "0x2", "0x1"}, hashes(s.List())); diff != "" {
		t.Fatalf("unexpected history (-want +got):\n%s", diff)
	}
}

func TestAccountsWithAndWithoutPrefixShareHistory(t *testing.T) {
	ctx := context.Background()
	s := NewStore(persistence.NewMemoryStore())

	if err := s.RekeyForAccount(ctx, "0x"+strings.ToUpper(peer[2:])); err != nil {
		t.Fatal(err)
	}
	if err := s.Append(ctx, record("0x1", Received)); err != nil {
		t.Fatal(err)
	}

	if err := s.RekeyForAccount(ctx, peer[2:]); err != nil {
		t.Fatal(err)
	}
	if s.Account() != peer {
		t.Fatalf("expected account %s, got %s", peer, s.Account())
	}
	if diff := cmp.Diff([]string{"0x1"}, hashes(s.List())); diff != "" {
		t.Fatalf("unexpected history (-want +got):\n%s", diff)
	}
}
