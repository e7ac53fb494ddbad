package domain

import (
	"fmt"
	"strings"
	"time"
)

// Identity is a Telegram user as seen by the ledger: an id plus the name we show.
type Identity struct {
	ID   int64
	Name string
}

// NewIdentity prefers @username, then "first last".
func NewIdentity(id int64, username, firstName, lastName string) Identity {
	name := ""
	if u := strings.TrimSpace(username); u != "" {
		name = "@" + strings.TrimPrefix(u, "@")
	} else {
		name = strings.TrimSpace(strings.Join([]string{strings.TrimSpace(firstName), strings.TrimSpace(lastName)}, " "))
	}
	if name == "" {
		name = fmt.Sprintf("id%d", id)
	}
	return Identity{ID: id, Name: name}
}

// Method is the direction of a transaction from the proposer's side.
type Method string

const (
	MethodTake   Method = "take"
	MethodReturn Method = "return"
)

// ParseMethod accepts only "take" and "return".
func ParseMethod(s string) (Method, bool) {
	switch Method(s) {
	case MethodTake:
		return MethodTake, true
	case MethodReturn:
		return MethodReturn, true
	default:
		return "", false
	}
}

// Proposal is the pending, unconfirmed side of a transaction.
type Proposal struct {
	ProposerID   int64     `json:"proposerId"`
	ProposerName string    `json:"proposerDisplayName"`
	Amount       int64     `json:"amount"`
	Description  string    `json:"description"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (p Proposal) Proposer() Identity {
	return Identity{ID: p.ProposerID, Name: p.ProposerName}
}

// Entry is a committed ledger record. Counterparty is always the proposer,
// i.e. the one who took or returned the money.
type Entry struct {
	ID               string    `json:"id"`
	CounterpartyID   int64     `json:"counterpartyId"`
	CounterpartyName string    `json:"counterpartyDisplayName"`
	Method           Method    `json:"method"`
	CommittedAt      time.Time `json:"committedAt"`
	Amount           int64     `json:"amount"`
	Description      string    `json:"description"`
}

// PairKey is the same for (a, b) and (b, a).
func PairKey(a, b int64) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d-%d", a, b)
}
