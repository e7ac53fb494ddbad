package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewMigrateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the store schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// opening the store applies pending migrations
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.close()
			a.log.Info("schema up to date", "driver", a.cfg.Store.Driver)
			return nil
		},
	}
}

func NewPurgeCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Delete expired proposals",
		Long: `Expired proposals are never visible, purge only reclaims their storage.
Safe to run from cron while the bot is running.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.close()

			n, err := a.store.Purge(cmd.Context())
			if err != nil {
				return fmt.Errorf("purge: %w", err)
			}
			a.log.Info("expired proposals purged", "count", n)
			return writeOutput(cmd.OutOrStdout(), opts.Format, purgeResult{Purged: n}, func() string {
				return fmt.Sprintf("purged %d expired proposals", n)
			})
		},
	}
}

type purgeResult struct {
	Purged int64 `json:"purged" yaml:"purged"`
}
