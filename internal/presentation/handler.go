package presentation

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/velstore/settlement-service/internal/logger"
	"github.com/velstore/settlement-service/internal/presentation/helpers"
	"github.com/velstore/settlement-service/internal/signature"
)

type SettlementService interface {
	Settle(ctx context.Context, paymentID, orderRef string) error
}

type WebhookHandler struct {
	svc    SettlementService
	secret string
}

func NewWebhookHandler(svc SettlementService, secret string) *WebhookHandler {
	return &WebhookHandler{svc: svc, secret: secret}
}

func (h *WebhookHandler) Register(r chi.Router) {
	r.Post("/webhook/payment", h.HandlePayment)
	r.Get("/healthz", h.Healthz)
}

// форма события провайдера; берём только payment id и order id
type webhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string `json:"id"`
				OrderID string `json:"order_id"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// Контракт ответа провайдеру: всегда 200, иначе он бесконечно редоставляет
// событие. Не-200 отдаём в единственном случае — сеттлмент упал на переходе
// в paid и редоставка реально нужна.
func (h *WebhookHandler) HandlePayment(w http.ResponseWriter, r *http.Request) {
	// подпись считается по сырым байтам; читаем тело ДО какого-либо декода
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		logger.Warn("webhook: body read failed", "err", err)
		helpers.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	sig := r.Header.Get("X-Razorpay-Signature")
	if !signature.Verify(body, sig, h.secret) {
		// чужое или испорченное событие: ноль побочных эффектов, только лог
		logger.Warn("webhook: signature mismatch, ignoring", "len", len(body))
		helpers.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	var ev webhookEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		logger.Warn("webhook: invalid json in signed event", "err", err)
		helpers.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	paymentID := ev.Payload.Payment.Entity.ID
	orderRef := ev.Payload.Payment.Entity.OrderID
	if paymentID == "" || orderRef == "" {
		logger.Warn("webhook: event without payment/order id", "event", ev.Event)
		helpers.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	if err := h.svc.Settle(r.Context(), paymentID, orderRef); err != nil {
		logger.Error("webhook: settlement failed, asking provider to retry", "ref", orderRef, "err", err)
		helpers.HttpError(w, http.StatusInternalServerError, "settlement failed")
		return
	}

	helpers.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *WebhookHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	helpers.WriteJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}
