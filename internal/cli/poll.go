package cli

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"

	"github.com/boarder-portal/telegram-bot/internal/bot"
)

func NewPollCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "poll",
		Short: "Receive updates through long polling",
		Long: `Poll removes any registered webhook and fetches updates with getUpdates.
At most bot.workers updates are handled at the same time.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPoll(cmd.Context(), opts)
		},
	}
}

func runPoll(ctx context.Context, opts *RootOptions) error {
	a, err := openApp(ctx, opts)
	if err != nil {
		return err
	}
	defer a.close()
	if err := a.cfg.RequireToken(); err != nil {
		return err
	}

	api, err := tgbotapi.NewBotAPI(a.cfg.Bot.Token)
	if err != nil {
		return fmt.Errorf("bot init: %w", err)
	}
	api.Debug = false

	// getUpdates is refused while a webhook is set
	if _, err := api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		return fmt.Errorf("delete webhook: %w", err)
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := api.GetUpdatesChan(u)
	defer api.StopReceivingUpdates()

	a.log.Info("bot started", "username", api.Self.UserName, "workers", a.cfg.Bot.Workers)
	bot.NewHandler(api, a.machine, a.log.With("component", "bot")).Run(ctx, updates, a.cfg.Bot.Workers)
	return nil
}
