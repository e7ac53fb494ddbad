package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/boarder-portal/telegram-bot/internal/domain"
	"github.com/boarder-portal/telegram-bot/internal/store"
)

// Proposals is the registry of pending transaction candidates.
type Proposals struct {
	store store.Store
	now   func() time.Time
}

func NewProposals(s store.Store, now func() time.Time) *Proposals {
	if now == nil {
		now = time.Now
	}
	return &Proposals{store: s, now: now}
}

// Create overwrites any candidate stored under the same query id.
func (r *Proposals) Create(ctx context.Context, queryID string, proposer domain.Identity, amount int64, description string, ttl time.Duration) error {
	if queryID == "" {
		return fmt.Errorf("%w: empty query id", domain.ErrMalformedInput)
	}
	if amount < 0 {
		return fmt.Errorf("%w: negative amount %d", domain.ErrMalformedInput, amount)
	}

	p := domain.Proposal{
		ProposerID:   proposer.ID,
		ProposerName: proposer.Name,
		Amount:       amount,
		Description:  description,
		CreatedAt:    r.now().UTC(),
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode proposal: %w", err)
	}
	return r.store.SetWithExpiry(ctx, ProposalKey(queryID), raw, ttl)
}

func (r *Proposals) Get(ctx context.Context, queryID string) (domain.Proposal, bool, error) {
	raw, ok, err := r.store.Get(ctx, ProposalKey(queryID))
	if err != nil || !ok {
		return domain.Proposal{}, false, err
	}
	return decodeProposal(raw)
}

// Consume fetches and deletes the candidate atomically. When two responders
// race, only one of them sees ok == true.
func (r *Proposals) Consume(ctx context.Context, queryID string) (domain.Proposal, bool, error) {
	raw, ok, err := r.store.Take(ctx, ProposalKey(queryID))
	if err != nil || !ok {
		return domain.Proposal{}, false, err
	}
	return decodeProposal(raw)
}

func (r *Proposals) Invalidate(ctx context.Context, queryID string) error {
	return r.store.Delete(ctx, ProposalKey(queryID))
}

func decodeProposal(raw []byte) (domain.Proposal, bool, error) {
	var p domain.Proposal
	if err := json.Unmarshal(raw, &p); err != nil {
		return domain.Proposal{}, false, fmt.Errorf("decode proposal: %w", err)
	}
	return p, true, nil
}
