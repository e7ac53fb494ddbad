package ledger

import "github.com/boarder-portal/telegram-bot/internal/domain"

// ComputeBalance folds a pair history into a signed balance for perspectiveID.
//
// Positive means perspectiveID is owed money, negative means they owe.
// A "take" by the perspective holder lowers the balance, a "return" raises it;
// the other party's entries count with the opposite sign. For the two members
// of a pair the results are always negatives of each other.
func ComputeBalance(entries []domain.Entry, perspectiveID int64) int64 {
	var balance int64
	for _, e := range entries {
		delta := e.Amount
		if e.Method == domain.MethodTake {
			delta = -delta
		}
		if e.CounterpartyID != perspectiveID {
			delta = -delta
		}
		balance += delta
	}
	return balance
}

// Standing is the sign of a balance as the user sees it.
type Standing int

const (
	Even Standing = iota
	Owed
	Owes
)

// Classify maps a positive balance to Owed and a negative one to Owes.
func Classify(balance int64) Standing {
	switch {
	case balance > 0:
		return Owed
	case balance < 0:
		return Owes
	default:
		return Even
	}
}

func (s Standing) String() string {
	switch s {
	case Owed:
		return "owed"
	case Owes:
		return "owes"
	default:
		return "even"
	}
}
