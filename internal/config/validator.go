package config

import (
	"fmt"
	"strings"

	"github.com/boarder-portal/telegram-bot/internal/logging"
)

type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e ValidationError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	switch len(e) {
	case 0:
		return ""
	case 1:
		return e[0].Error()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e))
	for i, err := range e {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

func (c *Config) Validate() ValidationErrors {
	var errs ValidationErrors

	if c.Bot.Workers < 1 {
		errs = append(errs, ValidationError{Field: "bot.workers", Value: c.Bot.Workers, Message: "must be at least 1"})
	}
	if c.HTTP.Addr == "" && c.HTTP.Port == "" {
		errs = append(errs, ValidationError{Field: "http.port", Message: "is required when http.addr is empty"})
	}

	switch c.Store.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		errs = append(errs, ValidationError{Field: "store.driver", Value: c.Store.Driver, Message: "must be postgres or sqlite"})
	}
	if c.Store.DSN == "" {
		errs = append(errs, ValidationError{Field: "store.dsn", Message: "is required"})
	}

	if c.Ledger.ProposalTTL <= 0 {
		errs = append(errs, ValidationError{Field: "ledger.proposal_ttl", Value: c.Ledger.ProposalTTL, Message: "must be positive"})
	}

	if !logging.ValidLevel(c.Log.Level) {
		errs = append(errs, ValidationError{Field: "log.level", Value: c.Log.Level, Message: "must be DEBUG, INFO, WARN or ERROR"})
	}
	switch strings.ToLower(c.Log.Format) {
	case logging.FormatJSON, logging.FormatText:
	default:
		errs = append(errs, ValidationError{Field: "log.format", Value: c.Log.Format, Message: "must be json or text"})
	}
	return errs
}
