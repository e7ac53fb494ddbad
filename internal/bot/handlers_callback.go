package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/boarder-portal/telegram-bot/internal/ledger"
)

func (h *Handler) HandleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	// обязательно отвечаем Telegram, иначе у кнопки крутится часик
	notice := ""
	alert := false
	defer func() {
		cb := tgbotapi.NewCallback(q.ID, notice)
		cb.ShowAlert = alert
		if _, err := h.api.Request(cb); err != nil {
			h.log.Warn("answer callback", "callback_id", q.ID, "error", err)
		}
	}()

	if q.From == nil {
		return
	}
	ev, ok := ParseCallback(q.Data, identityOf(q.From))
	if !ok {
		h.log.Debug("unknown callback data", "data", q.Data)
		return
	}

	out, err := h.machine.Dispatch(ctx, ev)
	if err != nil {
		h.logFailure("callback", err, "data", q.Data, "user_id", q.From.ID)
		if !ledger.IsSilent(err) {
			notice, alert = textFailure, true
		}
		return
	}

	switch out.Kind {
	case ledger.OutcomeAccepted:
		h.edit(q, h.render.accepted(out), nil)
	case ledger.OutcomeDeclined:
		h.edit(q, h.render.declined(out), nil)
	case ledger.OutcomeExpired:
		// A second tap on a resolved proposal ends up here too, so the message
		// text, possibly the confirmation, is left alone.
		notice = textExpired
	case ledger.OutcomeBalance:
		// keep the button so the balance can be refreshed later
		kb := debtKeyboard(targetOf(ev))
		h.edit(q, h.render.balance(out), &kb)
	case ledger.OutcomeHistory:
		kb := historyKeyboard(targetOf(ev))
		h.edit(q, h.render.history(out), &kb)
	case ledger.OutcomeProposed:
		// proposals only come from inline queries
	}
}

// edit rewrites the message the button belongs to. Buttons on messages sent
// through inline mode only carry an InlineMessageID.
func (h *Handler) edit(q *tgbotapi.CallbackQuery, text string, kb *tgbotapi.InlineKeyboardMarkup) {
	var cfg tgbotapi.EditMessageTextConfig
	switch {
	case q.InlineMessageID != "":
		cfg = tgbotapi.EditMessageTextConfig{
			BaseEdit: tgbotapi.BaseEdit{InlineMessageID: q.InlineMessageID},
			Text:     text,
		}
	case q.Message != nil && q.Message.Chat != nil:
		cfg = tgbotapi.NewEditMessageText(q.Message.Chat.ID, q.Message.MessageID, text)
	default:
		return
	}
	cfg.ReplyMarkup = kb

	// inline message edits answer with "true" instead of a Message, so Request, not Send
	if _, err := h.api.Request(cfg); err != nil {
		h.log.Warn("edit message", "callback_id", q.ID, "error", err)
	}
}

func targetOf(ev ledger.Event) int64 {
	switch ev := ev.(type) {
	case ledger.DebtEvent:
		return ev.TargetID
	case ledger.HistoryEvent:
		return ev.TargetID
	}
	return 0
}
