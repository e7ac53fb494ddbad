package repo

import (
	"context"
	"fmt"

	"github.com/boarder-portal/telegram-bot/internal/domain"
	"github.com/boarder-portal/telegram-bot/internal/store"
)

// Ledger is the append-only history shared by two users.
type Ledger struct {
	store store.Store
}

func NewLedger(s store.Store) *Ledger {
	return &Ledger{store: s}
}

func (r *Ledger) Append(ctx context.Context, pairKey string, e domain.Entry) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode entry: %w", err)
	}
	return r.store.Append(ctx, HistoryKey(pairKey), raw)
}

// ReadAll returns entries oldest first. A pair without history yields an empty slice.
func (r *Ledger) ReadAll(ctx context.Context, pairKey string) ([]domain.Entry, error) {
	items, err := r.store.Range(ctx, HistoryKey(pairKey))
	if err != nil {
		return nil, err
	}

	out := make([]domain.Entry, 0, len(items))
	for i, raw := range items {
		var e domain.Entry
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, fmt.Errorf("decode entry %d of %s: %w", i, pairKey, err)
		}
		out = append(out, e)
	}
	return out, nil
}
