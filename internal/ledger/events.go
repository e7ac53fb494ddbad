package ledger

import "github.com/boarder-portal/telegram-bot/internal/domain"

// Event is one of ProposeEvent, TransactionEvent, DebtEvent or HistoryEvent.
type Event interface {
	event()
}

// Action is the button a responder tapped.
type Action string

const (
	ActionAccept  Action = "accept"
	ActionDecline Action = "decline"
)

func ParseAction(s string) (Action, bool) {
	switch Action(s) {
	case ActionAccept:
		return ActionAccept, true
	case ActionDecline:
		return ActionDecline, true
	default:
		return "", false
	}
}

// ProposeEvent stores a new candidate under QueryID.
type ProposeEvent struct {
	QueryID     string
	Proposer    domain.Identity
	Amount      int64
	Description string
}

// TransactionEvent is a tap on a confirm or decline button.
type TransactionEvent struct {
	Responder domain.Identity
	QueryID   string
	Action    Action
	Method    domain.Method
}

// DebtEvent asks for the balance between Requester and Target.
type DebtEvent struct {
	Requester domain.Identity
	TargetID  int64
}

// HistoryEvent asks for the history between Requester and Target.
type HistoryEvent struct {
	Requester domain.Identity
	TargetID  int64
}

func (ProposeEvent) event()     {}
func (TransactionEvent) event() {}
func (DebtEvent) event()        {}
func (HistoryEvent) event()     {}

type OutcomeKind int

const (
	OutcomeProposed OutcomeKind = iota + 1
	OutcomeAccepted
	OutcomeDeclined
	OutcomeExpired
	OutcomeBalance
	OutcomeHistory
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeProposed:
		return "proposed"
	case OutcomeAccepted:
		return "accepted"
	case OutcomeDeclined:
		return "declined"
	case OutcomeExpired:
		return "expired"
	case OutcomeBalance:
		return "balance"
	case OutcomeHistory:
		return "history"
	default:
		return "unknown"
	}
}

// Outcome is the result of a dispatched event. Which fields are set depends on Kind:
//
//	Proposed: Proposal
//	Accepted: Proposal, Entry, Responder
//	Declined: Proposal, Method, Responder
//	Expired:  nothing
//	Balance:  Perspective, Balance
//	History:  Perspective, Entries, Lines
type Outcome struct {
	Kind        OutcomeKind
	Proposal    domain.Proposal
	Entry       domain.Entry
	Method      domain.Method
	Responder   domain.Identity
	Perspective domain.Identity
	Balance     int64
	Entries     []domain.Entry
	Lines       []string
}
