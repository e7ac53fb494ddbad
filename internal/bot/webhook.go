package bot

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	jsoniter "github.com/json-iterator/go"
)

const webhookBasePath = "/new-message"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// WebhookPath is where Telegram posts updates. A non-empty secret becomes
// the last path segment so that only Telegram knows the URL.
func WebhookPath(secret string) string {
	if secret == "" {
		return webhookBasePath
	}
	return webhookBasePath + "/" + secret
}

// NewRouter serves the webhook and a health check.
func NewRouter(h *Handler, secret string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Post(WebhookPath(secret), h.serveWebhook)
	return r
}

// serveWebhook always answers 200 once the body is read: Telegram retries
// anything else, and a retried update would be handled twice.
func (h *Handler) serveWebhook(w http.ResponseWriter, r *http.Request) {
	var upd tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		h.log.Warn("decode update", "request_id", middleware.GetReqID(r.Context()), "error", err)
		w.WriteHeader(http.StatusOK)
		return
	}

	h.log.Debug("update received", "request_id", middleware.GetReqID(r.Context()), "update_id", upd.UpdateID)
	h.HandleUpdate(r.Context(), upd)
	w.WriteHeader(http.StatusOK)
}
