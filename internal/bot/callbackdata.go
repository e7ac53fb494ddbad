package bot

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/boarder-portal/telegram-bot/internal/domain"
	"github.com/boarder-portal/telegram-bot/internal/ledger"
)

// Callback data, at most 64 bytes:
//
//	tx:<accept|decline>:<take|return>:<queryId>
//	debt:<targetId>
//	history:<targetId>
const (
	prefixTransaction = "tx"
	prefixDebt        = "debt"
	prefixHistory     = "history"
)

func transactionData(a ledger.Action, m domain.Method, queryID string) string {
	return strings.Join([]string{prefixTransaction, string(a), string(m), queryID}, ":")
}

func debtData(targetID int64) string {
	return fmt.Sprintf("%s:%d", prefixDebt, targetID)
}

func historyData(targetID int64) string {
	return fmt.Sprintf("%s:%d", prefixHistory, targetID)
}

// ParseCallback turns button data into an event on behalf of responder.
// ok is false for anything not produced by this bot.
func ParseCallback(data string, responder domain.Identity) (ledger.Event, bool) {
	parts := strings.Split(data, ":")
	if len(parts) < 2 {
		return nil, false
	}

	switch parts[0] {
	case prefixTransaction:
		if len(parts) != 4 || parts[3] == "" {
			return nil, false
		}
		action, ok := ledger.ParseAction(parts[1])
		if !ok {
			return nil, false
		}
		method, ok := domain.ParseMethod(parts[2])
		if !ok {
			return nil, false
		}
		return ledger.TransactionEvent{Responder: responder, QueryID: parts[3], Action: action, Method: method}, true

	case prefixDebt, prefixHistory:
		if len(parts) != 2 {
			return nil, false
		}
		targetID, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return nil, false
		}
		if parts[0] == prefixDebt {
			return ledger.DebtEvent{Requester: responder, TargetID: targetID}, true
		}
		return ledger.HistoryEvent{Requester: responder, TargetID: targetID}, true
	}
	return nil, false
}
