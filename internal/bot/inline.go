package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/boarder-portal/telegram-bot/internal/domain"
	"github.com/boarder-portal/telegram-bot/internal/ledger"
)

func (h *Handler) HandleInlineQuery(ctx context.Context, q *tgbotapi.InlineQuery) {
	if q.Query == "" || q.From == nil {
		return
	}
	from := identityOf(q.From)

	var results []interface{}
	parsed := ParseQuery(q.Query)
	switch parsed.Kind {
	case QueryProposal:
		out, err := h.machine.Dispatch(ctx, ledger.ProposeEvent{
			QueryID:     q.ID,
			Proposer:    from,
			Amount:      parsed.Amount,
			Description: parsed.Description,
		})
		if err != nil {
			h.logFailure("inline proposal", err, "query_id", q.ID, "user_id", from.ID)
			return
		}
		results = h.proposalResults(q.ID, out.Proposal)

	case QueryDebt:
		article := tgbotapi.NewInlineQueryResultArticle("debt", "Кто кому должен",
			fmt.Sprintf("💰 %s предлагает посмотреть, кто кому должен", from.Name))
		kb := debtKeyboard(from.ID)
		article.ReplyMarkup = &kb
		results = []interface{}{article}

	case QueryHistory:
		article := tgbotapi.NewInlineQueryResultArticle("history", "История записей",
			fmt.Sprintf("📜 %s предлагает посмотреть историю", from.Name))
		kb := historyKeyboard(from.ID)
		article.ReplyMarkup = &kb
		results = []interface{}{article}

	default:
		return
	}

	cfg := tgbotapi.InlineConfig{
		InlineQueryID: q.ID,
		Results:       results,
		IsPersonal:    true,
		CacheTime:     0,
	}
	if _, err := h.api.Request(cfg); err != nil {
		h.log.Warn("answer inline query", "query_id", q.ID, "error", err)
	}
}

// proposalResults offers both directions for one stored proposal.
func (h *Handler) proposalResults(queryID string, p domain.Proposal) []interface{} {
	methods := []domain.Method{domain.MethodTake, domain.MethodReturn}
	results := make([]interface{}, 0, len(methods))
	for _, m := range methods {
		article := tgbotapi.NewInlineQueryResultArticle(string(m), h.render.proposalTitle(m, p.Amount), h.render.proposalText(p, m))
		article.Description = p.Description
		kb := confirmKeyboard(m, queryID)
		article.ReplyMarkup = &kb
		results = append(results, article)
	}
	return results
}

// logFailure keeps malformed input at debug level; anything else is a real failure.
func (h *Handler) logFailure(op string, err error, args ...any) {
	args = append(args, "error", err)
	if ledger.IsSilent(err) {
		h.log.Debug(op+" ignored", args...)
		return
	}
	h.log.Error(op+" failed", args...)
}
