package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"

	"github.com/boarder-portal/telegram-bot/internal/bot"
)

const shutdownTimeout = 10 * time.Second

func NewServeCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Receive updates through the Telegram webhook",
		Long: `Serve listens on http.addr (or :$PORT) and handles updates Telegram posts to
/new-message, or /new-message/<bot.webhook_secret> when a secret is set.

When bot.webhook_url is set the webhook is registered with Telegram on start.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
}

func runServe(ctx context.Context, opts *RootOptions) error {
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

	path := bot.WebhookPath(a.cfg.Bot.WebhookSecret)
	if base := a.cfg.Bot.WebhookURL; base != "" {
		wh, err := tgbotapi.NewWebhook(strings.TrimSuffix(base, "/") + path)
		if err != nil {
			return fmt.Errorf("webhook url: %w", err)
		}
		if _, err := api.Request(wh); err != nil {
			return fmt.Errorf("set webhook: %w", err)
		}
		a.log.Info("webhook registered", "url", base+webhookPathForLog(a.cfg.Bot.WebhookSecret))
	}

	h := bot.NewHandler(api, a.machine, a.log.With("component", "bot"))
	srv := &http.Server{
		Addr:              a.cfg.HTTP.ListenAddr(),
		Handler:           bot.NewRouter(h, a.cfg.Bot.WebhookSecret),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("bot started", "username", api.Self.UserName, "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.log.Info("shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// the secret is part of the path, keep it out of the logs
func webhookPathForLog(secret string) string {
	if secret == "" {
		return bot.WebhookPath("")
	}
	return bot.WebhookPath("***")
}
