//go:build !integration

package payment

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pix-subscription/internal/config"
	"pix-subscription/internal/domain/ports/adapter"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func newTestGateway(t *testing.T, h http.HandlerFunc) *MercadoPagoGateway {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	logger := zerolog.New(io.Discard)
	g, err := NewMercadoPagoGateway(config.MercadoPagoConfig{
		AccessToken: "TEST-TOKEN",
		BaseURL:     srv.URL,
		Timeout:     2 * time.Second,
	}, &logger)
	if err != nil {
		t.Fatalf("failed to build gateway: %v", err)
	}
	return g
}

func TestMercadoPagoGateway_CreatePixOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("sends the order contract and maps the response", func(t *testing.T) {
		// Arrange
		var got mpOrderRequest
		g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || r.URL.Path != "/v1/orders" {
				t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			}
			if r.Header.Get("Authorization") != "Bearer TEST-TOKEN" {
				t.Errorf("missing bearer token, got %q", r.Header.Get("Authorization"))
			}
			if r.Header.Get("X-Idempotency-Key") != "intent-1" {
				t.Errorf("expected idempotency key intent-1, got %q", r.Header.Get("X-Idempotency-Key"))
			}
			_ = json.NewDecoder(r.Body).Decode(&got)
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{
				"id": "ORD01",
				"status": "action_required",
				"transactions": {"payments": [{
					"id": "PAY01",
					"status": "action_required",
					"expiration_date": "2025-01-15T10:30:00.000-03:00",
					"payment_method": {"id": "pix", "type": "bank_transfer", "qr_code": "000201...", "qr_code_base64": "iVBORw0", "ticket_url": "https://mp.test/t/1"}
				}]}
			}`)
		})

		// Act
		out, err := g.CreatePixOrder(ctx, adapter.PixOrderRequest{
			ExternalReference: "intent-1",
			Amount:            decimal.RequireFromString("29.9"),
			PayerEmail:        "buyer@example.com",
			Expiry:            30 * time.Minute,
		})

		// Assert
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got.Type != "online" || got.ProcessingMode != "automatic" {
			t.Errorf("unexpected order type/mode: %+v", got)
		}
		if got.TotalAmount != "29.90" || got.ExternalReference != "intent-1" || got.Payer.Email != "buyer@example.com" {
			t.Errorf("unexpected order body: %+v", got)
		}
		if len(got.Transactions.Payments) != 1 {
			t.Fatalf("expected one payment line, got %d", len(got.Transactions.Payments))
		}
		line := got.Transactions.Payments[0]
		if line.Amount != "29.90" || line.PaymentMethod.ID != "pix" || line.PaymentMethod.Type != "bank_transfer" || line.ExpirationTime != "PT30M" {
			t.Errorf("unexpected payment line: %+v", line)
		}

		if out.OrderID != "ORD01" || out.PaymentID != "PAY01" {
			t.Errorf("unexpected ids: %+v", out)
		}
		if out.QRCode != "000201..." || out.QRCodeBase64 != "iVBORw0" || out.TicketURL != "https://mp.test/t/1" {
			t.Errorf("unexpected qr fields: %+v", out)
		}
		want := time.Date(2025, 1, 15, 13, 30, 0, 0, time.UTC)
		if out.ExpiresAt == nil || !out.ExpiresAt.Equal(want) {
			t.Errorf("expected expiry %s, got %v", want, out.ExpiresAt)
		}
	})

	t.Run("non-2xx becomes a GatewayError with the processor message", func(t *testing.T) {
		g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"message":"invalid payer email"}`)
		})

		_, err := g.CreatePixOrder(ctx, adapter.PixOrderRequest{ExternalReference: "x", Amount: decimal.NewFromInt(1)})

		var gerr *adapter.GatewayError
		if !errors.As(err, &gerr) {
			t.Fatalf("expected GatewayError, got %v", err)
		}
		if gerr.StatusCode != http.StatusBadRequest || gerr.Message != "invalid payer email" {
			t.Errorf("unexpected gateway error: %+v", gerr)
		}
	})

	t.Run("2xx without order id is rejected", func(t *testing.T) {
		g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"status":"created"}`)
		})

		_, err := g.CreatePixOrder(ctx, adapter.PixOrderRequest{ExternalReference: "x", Amount: decimal.NewFromInt(1)})

		if !errors.Is(err, adapter.ErrUnexpectedResponse) {
			t.Fatalf("expected ErrUnexpectedResponse, got %v", err)
		}
	})
}

func TestMercadoPagoGateway_GetOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("maps order and first payment status", func(t *testing.T) {
		g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet || r.URL.Path != "/v1/orders/ORD01" {
				t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			}
			_, _ = io.WriteString(w, `{"id":"ORD01","status":"processed","status_detail":"accredited","external_reference":"intent-1",
				"transactions":{"payments":[{"id":"PAY01","status":"processed"}]}}`)
		})

		o, err := g.GetOrder(ctx, "ORD01")

		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if o.Status != "processed" || o.StatusDetail != "accredited" || o.PaymentStatus != "processed" || o.ExternalReference != "intent-1" {
			t.Errorf("unexpected order: %+v", o)
		}
	})

	t.Run("context deadline surfaces as an error", func(t *testing.T) {
		g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(time.Second):
			}
		})
		ctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()

		if _, err := g.GetOrder(ctx, "ORD01"); err == nil {
			t.Fatal("expected timeout error")
		}
	})
}

func TestIsoMinutes(t *testing.T) {
	if got := isoMinutes(30 * time.Minute); got != "PT30M" {
		t.Errorf("expected PT30M, got %s", got)
	}
	if got := isoMinutes(0); got != "PT30M" {
		t.Errorf("expected default PT30M, got %s", got)
	}
	if got := isoMinutes(2 * time.Hour); got != "PT120M" {
		t.Errorf("expected PT120M, got %s", got)
	}
}

func TestNoopOrderGateway(t *testing.T) {
	ctx := context.Background()
	g := NewNoopOrderGateway()

	created, err := g.CreatePixOrder(ctx, adapter.PixOrderRequest{ExternalReference: "intent-9", Amount: decimal.NewFromInt(10), Expiry: time.Minute})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	o, _ := g.GetOrder(ctx, created.OrderID)
	if o.Status == "processed" {
		t.Fatal("new order must not be paid")
	}
	if !g.MarkPaid(created.OrderID) {
		t.Fatal("MarkPaid should find the order")
	}
	o, _ = g.GetOrder(ctx, created.OrderID)
	if o.Status != "processed" || o.StatusDetail != "accredited" {
		t.Errorf("expected paid order, got %+v", o)
	}
	if _, err := g.GetOrder(ctx, "missing"); err == nil {
		t.Error("expected error for unknown order")
	}
}
