package bot

import (
	"context"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Run handles updates until ctx is done or updates is closed, with at most
// workers updates in flight. It waits for in-flight updates before returning.
func (h *Handler) Run(ctx context.Context, updates <-chan tgbotapi.Update, workers int) {
	if workers < 1 {
		workers = 1
	}
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			h.log.Info("shutdown")
			return
		case upd, ok := <-updates:
			if !ok {
				return
			}
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer func() { <-sem }()
				h.HandleUpdate(ctx, upd)
			}()
		}
	}
}
