// File: internal/infra/adapters/payment/mercadopago_gateway.go
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pix-subscription/internal/config"
	"pix-subscription/internal/domain/ports/adapter"
	"pix-subscription/internal/infra/metrics"

	"github.com/rs/zerolog"
)

var _ adapter.OrderGateway = (*MercadoPagoGateway)(nil)

const maxResponseBytes = 1 << 20

// MercadoPagoGateway implements adapter.OrderGateway against the Mercado Pago Orders API (v1/orders).
type MercadoPagoGateway struct {
	accessToken string
	baseURL     string
	client      *http.Client
	logger      *zerolog.Logger
}

func NewMercadoPagoGateway(cfg config.MercadoPagoConfig, logger *zerolog.Logger) (*MercadoPagoGateway, error) {
	if cfg.AccessToken == "" {
		return nil, errors.New("mercadopago access token empty")
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("invalid mercadopago base url: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	l := logger.With().Str("component", "mercadopago").Logger()
	return &MercadoPagoGateway{
		accessToken: cfg.AccessToken,
		baseURL:     base,
		client:      &http.Client{Timeout: timeout},
		logger:      &l,
	}, nil
}

func (g *MercadoPagoGateway) Name() string { return "mercadopago" }

// --- wire types ---

type mpPaymentMethod struct {
	ID           string `json:"id"`
	Type         string `json:"type"`
	QRCode       string `json:"qr_code,omitempty"`
	QRCodeBase64 string `json:"qr_code_base64,omitempty"`
	TicketURL    string `json:"ticket_url,omitempty"`
}

type mpPayment struct {
	ID             string          `json:"id,omitempty"`
	Amount         string          `json:"amount,omitempty"`
	Status         string          `json:"status,omitempty"`
	StatusDetail   string          `json:"status_detail,omitempty"`
	PaymentMethod  mpPaymentMethod `json:"payment_method"`
	ExpirationTime string          `json:"expiration_time,omitempty"`
	ExpirationDate string          `json:"expiration_date,omitempty"`
}

type mpTransactions struct {
	Payments []mpPayment `json:"payments"`
}

type mpPayer struct {
	Email string `json:"email"`
}

type mpOrderRequest struct {
	Type              string         `json:"type"`
	TotalAmount       string         `json:"total_amount"`
	ExternalReference string         `json:"external_reference"`
	ProcessingMode    string         `json:"processing_mode"`
	Transactions      mpTransactions `json:"transactions"`
	Payer             mpPayer        `json:"payer"`
}

type mpOrder struct {
	ID                string         `json:"id"`
	Status            string         `json:"status"`
	StatusDetail      string         `json:"status_detail"`
	ExternalReference string         `json:"external_reference"`
	Transactions      mpTransactions `json:"transactions"`
}

func (o *mpOrder) firstPayment() *mpPayment {
	if len(o.Transactions.Payments) == 0 {
		return nil
	}
	return &o.Transactions.Payments[0]
}

type mpErrorBody struct {
	Message string `json:"message"`
	Errors  []struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

// CreatePixOrder calls POST /v1/orders with one PIX bank-transfer payment line.
func (g *MercadoPagoGateway) CreatePixOrder(ctx context.Context, req adapter.PixOrderRequest) (*adapter.CreatedOrder, error) {
	amount := req.Amount.StringFixed(2)
	body := mpOrderRequest{
		Type:              "online",
		TotalAmount:       amount,
		ExternalReference: req.ExternalReference,
		ProcessingMode:    "automatic",
		Transactions: mpTransactions{Payments: []mpPayment{{
			Amount:         amount,
			PaymentMethod:  mpPaymentMethod{ID: "pix", Type: "bank_transfer"},
			ExpirationTime: isoMinutes(req.Expiry),
		}}},
		Payer: mpPayer{Email: req.PayerEmail},
	}

	var out mpOrder
	start := time.Now()
	err := g.do(ctx, http.MethodPost, "/v1/orders", req.ExternalReference, body, &out)
	metrics.ObserveGateway(g.Name(), "create_order", err == nil, time.Since(start))
	if err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, fmt.Errorf("%w: order id missing", adapter.ErrUnexpectedResponse)
	}

	created := &adapter.CreatedOrder{OrderID: out.ID, Status: out.Status}
	if p := out.firstPayment(); p != nil {
		created.PaymentID = p.ID
		created.QRCode = p.PaymentMethod.QRCode
		created.QRCodeBase64 = p.PaymentMethod.QRCodeBase64
		created.TicketURL = p.PaymentMethod.TicketURL
		if p.ExpirationDate != "" {
			if ts, perr := time.Parse(time.RFC3339, p.ExpirationDate); perr == nil {
				created.ExpiresAt = &ts
			} else {
				g.logger.Warn().Err(perr).Str("expiration_date", p.ExpirationDate).Msg("unparseable expiration date")
			}
		}
	}
	return created, nil
}

// GetOrder calls GET /v1/orders/{id}.
func (g *MercadoPagoGateway) GetOrder(ctx context.Context, orderID string) (*adapter.FetchedOrder, error) {
	if orderID == "" {
		return nil, errors.New("order id empty")
	}
	var out mpOrder
	start := time.Now()
	err := g.do(ctx, http.MethodGet, "/v1/orders/"+url.PathEscape(orderID), "", nil, &out)
	metrics.ObserveGateway(g.Name(), "get_order", err == nil, time.Since(start))
	if err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, fmt.Errorf("%w: order id missing", adapter.ErrUnexpectedResponse)
	}

	fetched := &adapter.FetchedOrder{
		OrderID:           out.ID,
		ExternalReference: out.ExternalReference,
		Status:            out.Status,
		StatusDetail:      out.StatusDetail,
	}
	if p := out.firstPayment(); p != nil {
		fetched.PaymentID = p.ID
		fetched.PaymentStatus = p.Status
	}
	return fetched, nil
}

func (g *MercadoPagoGateway) do(ctx context.Context, method, path, idempotencyKey string, in, out interface{}) error {
	var reader io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+g.accessToken)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idempotencyKey != "" {
		req.Header.Set("X-Idempotency-Key", idempotencyKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &adapter.GatewayError{StatusCode: resp.StatusCode, Message: errorMessage(raw, resp.Status)}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %v", adapter.ErrUnexpectedResponse, err)
	}
	return nil
}

func errorMessage(raw []byte, fallback string) string {
	var eb mpErrorBody
	if json.Unmarshal(raw, &eb) == nil {
		if eb.Message != "" {
			return eb.Message
		}
		if len(eb.Errors) > 0 && eb.Errors[0].Message != "" {
			return eb.Errors[0].Message
		}
	}
	return fallback
}

// isoMinutes renders d as an ISO-8601 duration in whole minutes (PT30M).
func isoMinutes(d time.Duration) string {
	m := int(d / time.Minute)
	if m <= 0 {
		m = 30
	}
	return fmt.Sprintf("PT%dM", m)
}
