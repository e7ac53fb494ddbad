package ledger

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/boarder-portal/telegram-bot/internal/domain"
)

var ruMonthsGenitive = [...]string{
	"января", "февраля", "марта", "апреля", "мая", "июня",
	"июля", "августа", "сентября", "октября", "ноября", "декабря",
}

// Formatter renders amounts, timestamps and history lines in Russian.
type Formatter struct {
	printer *message.Printer
}

func NewFormatter() *Formatter {
	return &Formatter{printer: message.NewPrinter(language.Russian)}
}

// Amount renders n with Russian digit grouping and the ruble sign.
func (f *Formatter) Amount(n int64) string {
	return f.printer.Sprintf("%d ₽", n)
}

// Time renders t as "12 декабря 2025 в 18:30 UTC".
func (f *Formatter) Time(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("%02d %s %d в %02d:%02d UTC", t.Day(), ruMonthsGenitive[t.Month()-1], t.Year(), t.Hour(), t.Minute())
}

func Verb(m domain.Method) string {
	if m == domain.MethodReturn {
		return "вернул"
	}
	return "взял"
}

// Line renders a single entry.
func (f *Formatter) Line(e domain.Entry) string {
	line := fmt.Sprintf("%s — %s %s %s", f.Time(e.CommittedAt), e.CounterpartyName, Verb(e.Method), f.Amount(e.Amount))
	if e.Description != "" {
		line += " (" + e.Description + ")"
	}
	return line
}

// Format returns one line per entry in the given order.
func (f *Formatter) Format(entries []domain.Entry) []string {
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, f.Line(e))
	}
	return lines
}
