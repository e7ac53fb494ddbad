package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/boarder-portal/telegram-bot/internal/domain"
	"github.com/boarder-portal/telegram-bot/internal/ledger"
)

type balanceResult struct {
	UserID         int64  `json:"userId" yaml:"userId"`
	CounterpartyID int64  `json:"counterpartyId" yaml:"counterpartyId"`
	Balance        int64  `json:"balance" yaml:"balance"`
	Standing       string `json:"standing" yaml:"standing"`
}

type historyEntry struct {
	ID               string    `json:"id" yaml:"id"`
	CounterpartyID   int64     `json:"counterpartyId" yaml:"counterpartyId"`
	CounterpartyName string    `json:"counterpartyDisplayName" yaml:"counterpartyDisplayName"`
	Method           string    `json:"method" yaml:"method"`
	CommittedAt      time.Time `json:"committedAt" yaml:"committedAt"`
	Amount           int64     `json:"amount" yaml:"amount"`
	Description      string    `json:"description,omitempty" yaml:"description,omitempty"`
}

func NewBalanceCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "balance <user-id> <counterparty-id>",
		Short: "Show the balance between two users",
		Long: `Balance prints what the first user is owed by the second one.
A positive balance means the first user lent money, a negative one that they owe it.

Examples:
  ledgerbot balance 101 99
  ledgerbot balance 101 99 --format json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, target, err := parsePair(args)
			if err != nil {
				return err
			}
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.close()

			out, err := a.machine.Dispatch(cmd.Context(), ledger.DebtEvent{Requester: user, TargetID: target})
			if err != nil {
				return err
			}
			res := balanceResult{
				UserID:         user.ID,
				CounterpartyID: target,
				Balance:        out.Balance,
				Standing:       ledger.Classify(out.Balance).String(),
			}
			return writeOutput(cmd.OutOrStdout(), opts.Format, res, func() string {
				return fmt.Sprintf("%d/%d: %d (%s)", res.UserID, res.CounterpartyID, res.Balance, res.Standing)
			})
		},
	}
}

func NewHistoryCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "history <user-id> <counterparty-id>",
		Short: "Show the confirmed history between two users",
		Long: `History prints every confirmed entry of the pair, oldest first.
The order of the two ids does not matter.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, target, err := parsePair(args)
			if err != nil {
				return err
			}
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.close()

			out, err := a.machine.Dispatch(cmd.Context(), ledger.HistoryEvent{Requester: user, TargetID: target})
			if err != nil {
				return err
			}
			entries := make([]historyEntry, 0, len(out.Entries))
			for _, e := range out.Entries {
				entries = append(entries, historyEntry{
					ID:               e.ID,
					CounterpartyID:   e.CounterpartyID,
					CounterpartyName: e.CounterpartyName,
					Method:           string(e.Method),
					CommittedAt:      e.CommittedAt,
					Amount:           e.Amount,
					Description:      e.Description,
				})
			}
			return writeOutput(cmd.OutOrStdout(), opts.Format, entries, func() string {
				if len(out.Lines) == 0 {
					return "no entries"
				}
				return strings.Join(out.Lines, "\n")
			})
		},
	}
}

func parsePair(args []string) (domain.Identity, int64, error) {
	ids := make([]int64, 2)
	for i, arg := range args[:2] {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return domain.Identity{}, 0, fmt.Errorf("invalid user id %q", arg)
		}
		ids[i] = id
	}
	if ids[0] == ids[1] {
		return domain.Identity{}, 0, fmt.Errorf("user ids must differ, got %d twice", ids[0])
	}
	return domain.NewIdentity(ids[0], "", "", ""), ids[1], nil
}
