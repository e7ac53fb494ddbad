package bot

import (
	"context"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/boarder-portal/telegram-bot/internal/domain"
	"github.com/boarder-portal/telegram-bot/internal/ledger"
)

// API is the part of *tgbotapi.BotAPI the handler needs.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type Handler struct {
	api     API
	machine *ledger.Machine
	render  renderer
	log     *slog.Logger
}

func NewHandler(api API, machine *ledger.Machine, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Handler{
		api:     api,
		machine: machine,
		render:  renderer{f: machine.Formatter()},
		log:     log,
	}
}

func (h *Handler) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	switch {
	case upd.InlineQuery != nil:
		h.HandleInlineQuery(ctx, upd.InlineQuery)
	case upd.CallbackQuery != nil:
		h.HandleCallback(ctx, upd.CallbackQuery)
	case upd.Message != nil:
		h.handleMessage(upd.Message)
	}
}

func (h *Handler) handleMessage(msg *tgbotapi.Message) {
	// работаем только в личке
	if msg.Chat == nil || !msg.Chat.IsPrivate() {
		return
	}
	text := strings.TrimSpace(msg.Text)
	if strings.HasPrefix(text, "/start") || strings.HasPrefix(text, "/help") {
		h.reply(msg.Chat.ID, textUsage, true)
	}
}

func (h *Handler) reply(chatID int64, text string, markdown bool) {
	msg := tgbotapi.NewMessage(chatID, text)
	if markdown {
		msg.ParseMode = tgbotapi.ModeMarkdown
	}
	if _, err := h.api.Send(msg); err != nil {
		h.log.Warn("send message", "chat_id", chatID, "error", err)
	}
}

func identityOf(u *tgbotapi.User) domain.Identity {
	if u == nil {
		return domain.Identity{}
	}
	return domain.NewIdentity(u.ID, u.UserName, u.FirstName, u.LastName)
}
