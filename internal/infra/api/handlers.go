package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"pix-subscription/internal/infra/logging"
	"pix-subscription/internal/usecase"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

type createOrderRequest struct {
	PlanType string           `json:"planType" validate:"required,max=32"`
	Amount   *decimal.Decimal `json:"amount,omitempty"`
}

type createOrderResponse struct {
	PaymentID    string      `json:"paymentId"`
	QRCode       string      `json:"qrCode"`
	QRCodeBase64 string      `json:"qrCodeBase64"`
	TicketURL    string      `json:"ticketUrl,omitempty"`
	ExpiresAt    int64       `json:"expiresAt"`
	Amount       json.Number `json:"amount"`
	Currency     string      `json:"currency"`
}

type statusResponse struct {
	PaymentID string `json:"paymentId"`
	Status    string `json:"status"`
	CreatedAt string `json:"createdAt"`
}

type webhookBody struct {
	Action string `json:"action"`
	Data   struct {
		ID string `json:"id"`
	} `json:"data"`
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required", "NO_TOKEN")
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", "INVALID_REQUEST")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err), "INVALID_REQUEST")
		return
	}
	if req.Amount != nil && req.Amount.IsNegative() {
		writeError(w, http.StatusBadRequest, "Invalid amount", "INVALID_AMOUNT")
		return
	}

	order, err := s.payments.CreateOrder(r.Context(), caller, req.PlanType, req.Amount)
	if err != nil {
		logging.With(r.Context(), s.log).Warn().Err(err).Str("plan", req.PlanType).Msg("create pix order failed")
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, createOrderResponse{
		PaymentID:    order.PaymentID,
		QRCode:       order.CopyPasteCode,
		QRCodeBase64: order.QRCodeImage,
		TicketURL:    order.PaymentLink,
		ExpiresAt:    order.ExpiresAt.Unix(),
		Amount:       json.Number(order.Amount.StringFixed(2)),
		Currency:     order.Currency,
	})
}

func (s *Server) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required", "NO_TOKEN")
		return
	}
	paymentID := chi.URLParam(r, "paymentId")
	if paymentID == "" {
		paymentID = strings.TrimSpace(r.URL.Query().Get("paymentId"))
	}
	if paymentID == "" {
		writeError(w, http.StatusBadRequest, "paymentId is required", "INVALID_REQUEST")
		return
	}

	v, err := s.payments.GetStatus(r.Context(), caller.UserID, paymentID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{
		PaymentID: v.PaymentID,
		Status:    string(v.Status),
		CreatedAt: v.CreatedAt.UTC().Format(time.RFC3339),
	})
}

// handleWebhook always answers 200 {"received":true}; outcomes are only logged.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusOK, map[string]bool{"received": true})
		return
	}

	q := r.URL.Query()
	ev := usecase.WebhookEvent{
		Type:      q.Get("type"),
		DataID:    q.Get("data.id"),
		RequestID: r.Header.Get("x-request-id"),
		Signature: r.Header.Get("x-signature"),
	}
	if raw, err := io.ReadAll(r.Body); err == nil && len(raw) > 0 {
		var body webhookBody
		if json.Unmarshal(raw, &body) == nil {
			ev.Action = body.Action
			ev.BodyDataID = body.Data.ID
		}
	}

	s.reconciler.Reconcile(r.Context(), ev)
	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.db.Ping(ctx); err != nil {
			logging.With(r.Context(), s.log).Error().Err(err).Msg("health: database unreachable")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		if fe.Tag() == "required" {
			return fe.Field() + " is required"
		}
		return fe.Field() + " is invalid"
	}
	return "Invalid request body"
}
