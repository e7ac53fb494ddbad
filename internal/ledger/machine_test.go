package ledger_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boarder-portal/telegram-bot/internal/db"
	"github.com/boarder-portal/telegram-bot/internal/domain"
	"github.com/boarder-portal/telegram-bot/internal/ledger"
	"github.com/boarder-portal/telegram-bot/internal/repo"
	"github.com/boarder-portal/telegram-bot/internal/store"
)

var (
	alice = domain.Identity{ID: 101, Name: "@alice"}
	bob   = domain.Identity{ID: 99, Name: "@bob"}
	carol = domain.Identity{ID: 300, Name: "Carol"}
)

type fixture struct {
	machine *ledger.Machine
	ledger  *repo.Ledger
	store   store.Store
	mu      sync.Mutex
	now     time.Time
}

func (f *fixture) clock() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fixture) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newFixture(t *testing.T, opts ...ledger.Option) *fixture {
	t.Helper()
	f := &fixture{now: time.Date(2025, 12, 12, 18, 30, 0, 0, time.UTC)}

	sdb, err := db.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sdb.Close() })

	f.store = store.NewSQLite(sdb, store.WithClock(f.clock))
	f.ledger = repo.NewLedger(f.store)

	var seq int
	var seqMu sync.Mutex
	ids := func() string {
		seqMu.Lock()
		defer seqMu.Unlock()
		seq++
		return fmt.Sprintf("entry-%d", seq)
	}

	all := append([]ledger.Option{ledger.WithClock(f.clock), ledger.WithIDGenerator(ids)}, opts...)
	f.machine = ledger.NewMachine(repo.NewProposals(f.store, f.clock), f.ledger, all...)
	return f
}

func (f *fixture) dispatch(t *testing.T, ev ledger.Event) ledger.Outcome {
	t.Helper()
	out, err := f.machine.Dispatch(context.Background(), ev)
	require.NoError(t, err)
	return out
}

func (f *fixture) balance(t *testing.T, who domain.Identity, other domain.Identity) int64 {
	t.Helper()
	return f.dispatch(t, ledger.DebtEvent{Requester: who, TargetID: other.ID}).Balance
}

func (f *fixture) history(t *testing.T, a, b domain.Identity) []domain.Entry {
	t.Helper()
	entries, err := f.ledger.ReadAll(context.Background(), domain.PairKey(a.ID, b.ID))
	require.NoError(t, err)
	return entries
}

func TestMachine_SimpleDebt(t *testing.T) {
	f := newFixture(t)

	out := f.dispatch(t, ledger.ProposeEvent{QueryID: "q1", Proposer: alice, Amount: 500, Description: "dinner"})
	assert.Equal(t, ledger.OutcomeProposed, out.Kind)

	out = f.dispatch(t, ledger.TransactionEvent{Responder: bob, QueryID: "q1", Action: ledger.ActionAccept, Method: domain.MethodTake})
	require.Equal(t, ledger.OutcomeAccepted, out.Kind)
	assert.Equal(t, "entry-1", out.Entry.ID)

	assert.Equal(t, int64(-500), f.balance(t, alice, bob), "alice owes 500")
	assert.Equal(t, int64(500), f.balance(t, bob, alice), "bob is owed 500")
	assert.Equal(t, ledger.Owes, ledger.Classify(f.balance(t, alice, bob)))

	assert.Equal(t, []domain.Entry{{
		ID:               "entry-1",
		CounterpartyID:   alice.ID,
		CounterpartyName: alice.Name,
		Method:           domain.MethodTake,
		CommittedAt:      f.now,
		Amount:           500,
		Description:      "dinner",
	}}, f.history(t, alice, bob))
}

func TestMachine_Reversal(t *testing.T) {
	f := newFixture(t)

	f.dispatch(t, ledger.ProposeEvent{QueryID: "q1", Proposer: alice, Amount: 500, Description: "dinner"})
	f.dispatch(t, ledger.TransactionEvent{Responder: bob, QueryID: "q1", Action: ledger.ActionAccept, Method: domain.MethodTake})

	f.advance(time.Hour)
	f.dispatch(t, ledger.ProposeEvent{QueryID: "q2", Proposer: alice, Amount: 500})
	out := f.dispatch(t, ledger.TransactionEvent{Responder: bob, QueryID: "q2", Action: ledger.ActionAccept, Method: domain.MethodReturn})
	require.Equal(t, ledger.OutcomeAccepted, out.Kind)

	assert.Equal(t, int64(0), f.balance(t, alice, bob))
	assert.Equal(t, int64(0), f.balance(t, bob, alice))
	assert.Len(t, f.history(t, bob, alice), 2)
}

func TestMachine_ReversalByOtherSide(t *testing.T) {
	f := newFixture(t)

	f.dispatch(t, ledger.ProposeEvent{QueryID: "q1", Proposer: alice, Amount: 500})
	f.dispatch(t, ledger.TransactionEvent{Responder: bob, QueryID: "q1", Action: ledger.ActionAccept, Method: domain.MethodTake})

	// bob takes the same sum back from alice
	f.dispatch(t, ledger.ProposeEvent{QueryID: "q2", Proposer: bob, Amount: 500})
	f.dispatch(t, ledger.TransactionEvent{Responder: alice, QueryID: "q2", Action: ledger.ActionAccept, Method: domain.MethodTake})

	assert.Equal(t, int64(0), f.balance(t, alice, bob))
}

func TestMachine_Expiry(t *testing.T) {
	f := newFixture(t, ledger.WithProposalTTL(60*time.Second))

	f.dispatch(t, ledger.ProposeEvent{QueryID: "q1", Proposer: alice, Amount: 500})
	f.advance(61 * time.Second)

	out := f.dispatch(t, ledger.TransactionEvent{Responder: bob, QueryID: "q1", Action: ledger.ActionAccept, Method: domain.MethodTake})
	assert.Equal(t, ledger.OutcomeExpired, out.Kind)
	assert.Empty(t, f.history(t, alice, bob))
}

func TestMachine_UnknownProposalIsExpired(t *testing.T) {
	f := newFixture(t)

	out := f.dispatch(t, ledger.TransactionEvent{Responder: bob, QueryID: "never", Action: ledger.ActionDecline, Method: domain.MethodTake})
	assert.Equal(t, ledger.OutcomeExpired, out.Kind)
}

func TestMachine_SelfResponseKeepsProposal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.dispatch(t, ledger.ProposeEvent{QueryID: "q1", Proposer: alice, Amount: 500})

	_, err := f.machine.Dispatch(ctx, ledger.TransactionEvent{Responder: alice, QueryID: "q1", Action: ledger.ActionAccept, Method: domain.MethodTake})
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.True(t, ledger.IsSilent(err))
	assert.Empty(t, f.history(t, alice, bob))

	// still answerable by somebody else
	out := f.dispatch(t, ledger.TransactionEvent{Responder: bob, QueryID: "q1", Action: ledger.ActionAccept, Method: domain.MethodTake})
	assert.Equal(t, ledger.OutcomeAccepted, out.Kind)
}

func TestMachine_DeclineDiscards(t *testing.T) {
	f := newFixture(t)

	f.dispatch(t, ledger.ProposeEvent{QueryID: "q1", Proposer: alice, Amount: 500, Description: "cinema"})

	out := f.dispatch(t, ledger.TransactionEvent{Responder: bob, QueryID: "q1", Action: ledger.ActionDecline, Method: domain.MethodTake})
	require.Equal(t, ledger.OutcomeDeclined, out.Kind)
	assert.Equal(t, int64(500), out.Proposal.Amount)
	assert.Equal(t, "cinema", out.Proposal.Description)
	assert.Empty(t, f.history(t, alice, bob))

	// declining consumes the proposal too
	out = f.dispatch(t, ledger.TransactionEvent{Responder: bob, QueryID: "q1", Action: ledger.ActionAccept, Method: domain.MethodTake})
	assert.Equal(t, ledger.OutcomeExpired, out.Kind)
	assert.Empty(t, f.history(t, alice, bob))
}

func TestMachine_SecondResponseSeesNotFound(t *testing.T) {
	f := newFixture(t)

	f.dispatch(t, ledger.ProposeEvent{QueryID: "q1", Proposer: alice, Amount: 500})
	first := f.dispatch(t, ledger.TransactionEvent{Responder: bob, QueryID: "q1", Action: ledger.ActionAccept, Method: domain.MethodTake})
	second := f.dispatch(t, ledger.TransactionEvent{Responder: carol, QueryID: "q1", Action: ledger.ActionAccept, Method: domain.MethodTake})

	assert.Equal(t, ledger.OutcomeAccepted, first.Kind)
	assert.Equal(t, ledger.OutcomeExpired, second.Kind)
	assert.Len(t, f.history(t, alice, bob), 1)
	assert.Empty(t, f.history(t, alice, carol))
}

func TestMachine_ConcurrentTapsCommitOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.dispatch(t, ledger.ProposeEvent{QueryID: "q1", Proposer: alice, Amount: 500})

	responders := []domain.Identity{bob, bob, bob, carol, carol, bob}
	kinds := make([]ledger.OutcomeKind, len(responders))
	var wg sync.WaitGroup
	for i, r := range responders {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := f.machine.Dispatch(ctx, ledger.TransactionEvent{Responder: r, QueryID: "q1", Action: ledger.ActionAccept, Method: domain.MethodTake})
			assert.NoError(t, err)
			kinds[i] = out.Kind
		}()
	}
	wg.Wait()

	accepted := 0
	for _, k := range kinds {
		if k == ledger.OutcomeAccepted {
			accepted++
		} else {
			assert.Equal(t, ledger.OutcomeExpired, k)
		}
	}
	assert.Equal(t, 1, accepted)
	assert.Equal(t, 1, len(f.history(t, alice, bob))+len(f.history(t, alice, carol)))
}

func TestMachine_SelfQueriesAreRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.machine.Dispatch(ctx, ledger.DebtEvent{Requester: alice, TargetID: alice.ID})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = f.machine.Dispatch(ctx, ledger.HistoryEvent{Requester: alice, TargetID: alice.ID})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestMachine_EmptyHistory(t *testing.T) {
	f := newFixture(t)

	out := f.dispatch(t, ledger.HistoryEvent{Requester: bob, TargetID: alice.ID})
	assert.Equal(t, ledger.OutcomeHistory, out.Kind)
	assert.Empty(t, out.Entries)
	assert.Empty(t, out.Lines)

	out = f.dispatch(t, ledger.DebtEvent{Requester: bob, TargetID: alice.ID})
	assert.Equal(t, ledger.OutcomeBalance, out.Kind)
	assert.Equal(t, int64(0), out.Balance)
	assert.Equal(t, ledger.Even, ledger.Classify(out.Balance))
}

func TestMachine_HistoryLines(t *testing.T) {
	f := newFixture(t)

	f.dispatch(t, ledger.ProposeEvent{QueryID: "q1", Proposer: alice, Amount: 500, Description: "ужин"})
	f.dispatch(t, ledger.TransactionEvent{Responder: bob, QueryID: "q1", Action: ledger.ActionAccept, Method: domain.MethodTake})

	out := f.dispatch(t, ledger.HistoryEvent{Requester: bob, TargetID: alice.ID})
	assert.Equal(t, []string{"12 декабря 2025 в 18:30 UTC — @alice взял 500 ₽ (ужин)"}, out.Lines)
	assert.Equal(t, bob, out.Perspective)
}

func TestMachine_RejectsMalformedEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.machine.Dispatch(ctx, ledger.ProposeEvent{QueryID: "q1", Proposer: alice, Amount: -1})
	assert.ErrorIs(t, err, domain.ErrMalformedInput)

	_, err = f.machine.Dispatch(ctx, ledger.TransactionEvent{Responder: bob, QueryID: "q1", Action: "maybe", Method: domain.MethodTake})
	assert.ErrorIs(t, err, domain.ErrMalformedInput)

	_, err = f.machine.Dispatch(ctx, ledger.TransactionEvent{Responder: bob, QueryID: "q1", Action: ledger.ActionAccept, Method: "steal"})
	assert.ErrorIs(t, err, domain.ErrMalformedInput)

	_, err = f.machine.Dispatch(ctx, nil)
	assert.ErrorIs(t, err, domain.ErrMalformedInput)
}

type brokenRegistry struct{}

var errDown = errors.Join(store.ErrUnavailable, errors.New("connection refused"))

func (brokenRegistry) Create(context.Context, string, domain.Identity, int64, string, time.Duration) error {
	return errDown
}

func (brokenRegistry) Get(context.Context, string) (domain.Proposal, bool, error) {
	return domain.Proposal{}, false, errDown
}

func (brokenRegistry) Consume(context.Context, string) (domain.Proposal, bool, error) {
	return domain.Proposal{}, false, errDown
}

type brokenLedger struct{}

func (brokenLedger) Append(context.Context, string, domain.Entry) error { return errDown }

func (brokenLedger) ReadAll(context.Context, string) ([]domain.Entry, error) { return nil, errDown }

func TestMachine_StoreFailuresPropagate(t *testing.T) {
	ctx := context.Background()
	m := ledger.NewMachine(brokenRegistry{}, brokenLedger{})

	events := []ledger.Event{
		ledger.ProposeEvent{QueryID: "q1", Proposer: alice, Amount: 1},
		ledger.TransactionEvent{Responder: bob, QueryID: "q1", Action: ledger.ActionAccept, Method: domain.MethodTake},
		ledger.DebtEvent{Requester: bob, TargetID: alice.ID},
		ledger.HistoryEvent{Requester: bob, TargetID: alice.ID},
	}
	for _, ev := range events {
		_, err := m.Dispatch(ctx, ev)
		assert.ErrorIs(t, err, store.ErrUnavailable, "%T", ev)
		assert.False(t, ledger.IsSilent(err))
	}
}

func TestMachine_AppendFailureAfterConsume(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := ledger.NewMachine(repo.NewProposals(f.store, f.clock), brokenLedger{})

	_, err := m.Dispatch(ctx, ledger.ProposeEvent{QueryID: "q1", Proposer: alice, Amount: 5})
	require.NoError(t, err)

	tap := ledger.TransactionEvent{Responder: bob, QueryID: "q1", Action: ledger.ActionAccept, Method: domain.MethodTake}
	_, err = m.Dispatch(ctx, tap)
	assert.ErrorIs(t, err, store.ErrUnavailable)

	// the proposal was consumed before the append failed, a retry finds nothing
	_, ok, err := repo.NewProposals(f.store, f.clock).Get(ctx, "q1")
	require.NoError(t, err)
	assert.False(t, ok)

	out, err := m.Dispatch(ctx, tap)
	require.NoError(t, err)
	assert.Equal(t, ledger.OutcomeExpired, out.Kind)
}
