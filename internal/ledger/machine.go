// Package ledger turns proposals into confirmed pair history and derives
// balances and history views from it.
//
// A proposal is PENDING while it sits in the registry. A tap from a user other
// than the proposer moves it to ACCEPTED or DECLINED; a lookup after its TTL
// yields EXPIRED. Accepting appends one entry to the pair history; declining
// discards the proposal without touching the history.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/boarder-portal/telegram-bot/internal/domain"
)

// DefaultProposalTTL is how long a proposal waits for a response.
const DefaultProposalTTL = 24 * time.Hour

type ProposalRegistry interface {
	Create(ctx context.Context, queryID string, proposer domain.Identity, amount int64, description string, ttl time.Duration) error
	Get(ctx context.Context, queryID string) (domain.Proposal, bool, error)
	Consume(ctx context.Context, queryID string) (domain.Proposal, bool, error)
}

type PairLedger interface {
	Append(ctx context.Context, pairKey string, e domain.Entry) error
	ReadAll(ctx context.Context, pairKey string) ([]domain.Entry, error)
}

// Machine holds no per-request state; one instance serves all concurrent requests.
type Machine struct {
	proposals ProposalRegistry
	ledger    PairLedger
	formatter *Formatter
	ttl       time.Duration
	now       func() time.Time
	newID     func() string
	log       *slog.Logger
}

type Option func(*Machine)

func WithProposalTTL(ttl time.Duration) Option {
	return func(m *Machine) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Machine) {
		if now != nil {
			m.now = now
		}
	}
}

func WithIDGenerator(newID func() string) Option {
	return func(m *Machine) {
		if newID != nil {
			m.newID = newID
		}
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(m *Machine) {
		if log != nil {
			m.log = log
		}
	}
}

func NewMachine(proposals ProposalRegistry, ledger PairLedger, opts ...Option) *Machine {
	m := &Machine{
		proposals: proposals,
		ledger:    ledger,
		formatter: NewFormatter(),
		ttl:       DefaultProposalTTL,
		now:       time.Now,
		newID:     uuid.NewString,
		log:       slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Machine) Formatter() *Formatter {
	return m.formatter
}

// Dispatch applies ev. Errors wrap domain.ErrInvalidTransition,
// domain.ErrMalformedInput or store.ErrUnavailable. An absent or expired
// proposal is not an error: it is reported as OutcomeExpired.
func (m *Machine) Dispatch(ctx context.Context, ev Event) (Outcome, error) {
	switch ev := ev.(type) {
	case ProposeEvent:
		return m.propose(ctx, ev)
	case TransactionEvent:
		return m.respond(ctx, ev)
	case DebtEvent:
		return m.debt(ctx, ev)
	case HistoryEvent:
		return m.history(ctx, ev)
	default:
		return Outcome{}, fmt.Errorf("%w: unsupported event %T", domain.ErrMalformedInput, ev)
	}
}

func (m *Machine) propose(ctx context.Context, ev ProposeEvent) (Outcome, error) {
	if err := m.proposals.Create(ctx, ev.QueryID, ev.Proposer, ev.Amount, ev.Description, m.ttl); err != nil {
		return Outcome{}, fmt.Errorf("create proposal: %w", err)
	}
	p := domain.Proposal{
		ProposerID:   ev.Proposer.ID,
		ProposerName: ev.Proposer.Name,
		Amount:       ev.Amount,
		Description:  ev.Description,
	}
	m.log.Debug("proposal created", "query_id", ev.QueryID, "proposer_id", ev.Proposer.ID, "amount", ev.Amount)
	return Outcome{Kind: OutcomeProposed, Proposal: p}, nil
}

func (m *Machine) respond(ctx context.Context, ev TransactionEvent) (Outcome, error) {
	if _, ok := ParseAction(string(ev.Action)); !ok {
		return Outcome{}, fmt.Errorf("%w: action %q", domain.ErrMalformedInput, ev.Action)
	}
	if _, ok := domain.ParseMethod(string(ev.Method)); !ok {
		return Outcome{}, fmt.Errorf("%w: method %q", domain.ErrMalformedInput, ev.Method)
	}

	p, ok, err := m.proposals.Get(ctx, ev.QueryID)
	if err != nil {
		return Outcome{}, fmt.Errorf("load proposal: %w", err)
	}
	if !ok {
		return m.expired(ev.QueryID), nil
	}

	// The proposer tapping their own button must not consume the proposal:
	// the other side still has to be able to answer it.
	if ev.Responder.ID == p.ProposerID {
		return Outcome{}, fmt.Errorf("%w: user %d responded to own proposal", domain.ErrInvalidTransition, ev.Responder.ID)
	}

	p, ok, err = m.proposals.Consume(ctx, ev.QueryID)
	if err != nil {
		return Outcome{}, fmt.Errorf("consume proposal: %w", err)
	}
	if !ok {
		// someone else resolved it between Get and Consume
		return m.expired(ev.QueryID), nil
	}

	if ev.Action == ActionDecline {
		m.log.Info("proposal declined", "query_id", ev.QueryID, "proposer_id", p.ProposerID, "responder_id", ev.Responder.ID)
		return Outcome{Kind: OutcomeDeclined, Proposal: p, Method: ev.Method, Responder: ev.Responder}, nil
	}

	entry := domain.Entry{
		ID:               m.newID(),
		CounterpartyID:   p.ProposerID,
		CounterpartyName: p.ProposerName,
		Method:           ev.Method,
		CommittedAt:      m.now().UTC(),
		Amount:           p.Amount,
		Description:      p.Description,
	}
	key := domain.PairKey(ev.Responder.ID, p.ProposerID)
	if err := m.ledger.Append(ctx, key, entry); err != nil {
		return Outcome{}, fmt.Errorf("append entry to %s: %w", key, err)
	}

	m.log.Info("proposal accepted",
		"query_id", ev.QueryID,
		"pair", key,
		"entry_id", entry.ID,
		"method", string(entry.Method),
		"amount", entry.Amount,
	)
	return Outcome{Kind: OutcomeAccepted, Proposal: p, Entry: entry, Method: ev.Method, Responder: ev.Responder}, nil
}

func (m *Machine) expired(queryID string) Outcome {
	m.log.Debug("proposal not found", "query_id", queryID)
	return Outcome{Kind: OutcomeExpired}
}

func (m *Machine) debt(ctx context.Context, ev DebtEvent) (Outcome, error) {
	entries, err := m.pairHistory(ctx, ev.Requester, ev.TargetID)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{
		Kind:        OutcomeBalance,
		Perspective: ev.Requester,
		Balance:     ComputeBalance(entries, ev.Requester.ID),
	}, nil
}

func (m *Machine) history(ctx context.Context, ev HistoryEvent) (Outcome, error) {
	entries, err := m.pairHistory(ctx, ev.Requester, ev.TargetID)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{
		Kind:        OutcomeHistory,
		Perspective: ev.Requester,
		Entries:     entries,
		Lines:       m.formatter.Format(entries),
	}, nil
}

func (m *Machine) pairHistory(ctx context.Context, requester domain.Identity, targetID int64) ([]domain.Entry, error) {
	if requester.ID == targetID {
		return nil, fmt.Errorf("%w: user %d queried own ledger", domain.ErrInvalidTransition, targetID)
	}
	key := domain.PairKey(requester.ID, targetID)
	entries, err := m.ledger.ReadAll(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return entries, nil
}

// IsSilent reports errors that must not produce any user-visible reply.
func IsSilent(err error) bool {
	return errors.Is(err, domain.ErrInvalidTransition) || errors.Is(err, domain.ErrMalformedInput)
}
