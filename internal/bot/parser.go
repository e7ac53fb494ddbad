package bot

import (
	"regexp"
	"strconv"
	"strings"
)

type QueryKind int

const (
	QueryNone QueryKind = iota
	QueryProposal
	QueryDebt
	QueryHistory
)

type ParsedQuery struct {
	Kind        QueryKind
	Amount      int64
	Description string
}

// "<amount> [description]", amount is a non-negative integer
var reProposal = regexp.MustCompile(`^(\d+)(?:\s+([\s\S]+))?$`)

// ParseQuery reads the inline query text. Anything unrecognized, including
// negative or oversized amounts, is QueryNone.
func ParseQuery(text string) ParsedQuery {
	text = strings.TrimSpace(text)

	switch strings.ToLower(text) {
	case "get", "долг":
		return ParsedQuery{Kind: QueryDebt}
	case "history", "история":
		return ParsedQuery{Kind: QueryHistory}
	}

	m := reProposal.FindStringSubmatch(text)
	if m == nil {
		return ParsedQuery{}
	}
	amount, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return ParsedQuery{}
	}
	return ParsedQuery{
		Kind:        QueryProposal,
		Amount:      amount,
		Description: strings.Join(strings.Fields(m[2]), " "),
	}
}
