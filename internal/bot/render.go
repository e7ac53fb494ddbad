package bot

import (
	"fmt"
	"strings"
	"unicode/utf16"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/boarder-portal/telegram-bot/internal/domain"
	"github.com/boarder-portal/telegram-bot/internal/ledger"
)

const (
	textUsage = "Привет! Я веду общий счёт между двумя людьми.\n\n" +
		"В любом чате напиши `@бот 500 ужин` и выбери «взял» или «вернул». " +
		"Собеседник подтверждает кнопкой, и запись попадает в историю.\n\n" +
		"`@бот долг` — кто кому должен\n`@бот история` — все записи"
	textExpired      = "⌛ Предложение устарело или уже обработано"
	textFailure      = "❌ Что-то пошло не так, попробуй позже"
	textHistoryEmpty = "📜 История пуста"

	textHistoryHeader  = "📜 История:\n"
	textHistoryOmitted = "…и ещё ранних записей: %d"
)

// maxMessageLen is the longest text editMessageText accepts.
const maxMessageLen = 4096

type renderer struct {
	f *ledger.Formatter
}

// action renders "@alice взял 500 ₽ (ужин)".
func (r renderer) action(name string, m domain.Method, amount int64, description string) string {
	s := fmt.Sprintf("%s %s %s", name, ledger.Verb(m), r.f.Amount(amount))
	if description != "" {
		s += " (" + description + ")"
	}
	return s
}

func (r renderer) proposalText(p domain.Proposal, m domain.Method) string {
	return "📝 " + r.action(p.ProposerName, m, p.Amount, p.Description) + "\nПодтверди, пожалуйста."
}

func (r renderer) proposalTitle(m domain.Method, amount int64) string {
	return fmt.Sprintf("Я %s %s", ledger.Verb(m), r.f.Amount(amount))
}

func (r renderer) accepted(out ledger.Outcome) string {
	e := out.Entry
	return fmt.Sprintf("✅ %s\nПодтвердил %s", r.action(e.CounterpartyName, e.Method, e.Amount, e.Description), out.Responder.Name)
}

func (r renderer) declined(out ledger.Outcome) string {
	p := out.Proposal
	return fmt.Sprintf("🚫 %s\nОтклонил %s", r.action(p.ProposerName, out.Method, p.Amount, p.Description), out.Responder.Name)
}

func (r renderer) balance(out ledger.Outcome) string {
	name := out.Perspective.Name
	switch ledger.Classify(out.Balance) {
	case ledger.Owed:
		return fmt.Sprintf("💰 %s дал взаймы %s", name, r.f.Amount(out.Balance))
	case ledger.Owes:
		return fmt.Sprintf("💰 %s должен %s", name, r.f.Amount(-out.Balance))
	default:
		return fmt.Sprintf("💰 %s ничего никому не должен", name)
	}
}

// history keeps the newest lines when the whole history does not fit in one message.
func (r renderer) history(out ledger.Outcome) string {
	lines := out.Lines
	if len(lines) == 0 {
		return textHistoryEmpty
	}
	full := textHistoryHeader + strings.Join(lines, "\n")
	if textLen(full) <= maxMessageLen {
		return full
	}

	// every kept line costs its length plus the newline before it
	budget := maxMessageLen - textLen(textHistoryHeader) - textLen(fmt.Sprintf(textHistoryOmitted, len(lines)))
	kept := 0
	for i := len(lines) - 1; i >= 0; i-- {
		n := textLen(lines[i]) + 1
		if n > budget {
			break
		}
		budget -= n
		kept++
	}
	omitted := len(lines) - kept
	return textHistoryHeader + fmt.Sprintf(textHistoryOmitted, omitted) + "\n" + strings.Join(lines[omitted:], "\n")
}

// textLen counts the way Telegram does, in UTF-16 code units.
func textLen(s string) int {
	return len(utf16.Encode([]rune(s)))
}

func confirmKeyboard(m domain.Method, queryID string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Подтвердить", transactionData(ledger.ActionAccept, m, queryID)),
			tgbotapi.NewInlineKeyboardButtonData("❌ Отклонить", transactionData(ledger.ActionDecline, m, queryID)),
		),
	)
}

func debtKeyboard(targetID int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💰 Показать долг", debtData(targetID)),
		),
	)
}

func historyKeyboard(targetID int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📜 Показать историю", historyData(targetID)),
		),
	)
}
