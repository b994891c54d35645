package adapter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ErrUnexpectedResponse is returned when the processor answers 2xx without the fields we need.
var ErrUnexpectedResponse = errors.New("unexpected processor response")

// GatewayError carries a non-2xx processor answer.
type GatewayError struct {
	StatusCode int
	Message    string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("processor error: status=%d message=%s", e.StatusCode, e.Message)
}

// PixOrderRequest describes one PIX charge.
type PixOrderRequest struct {
	// ExternalReference is the local intent id; it is also sent as the idempotency key.
	ExternalReference string
	Amount            decimal.Decimal
	PayerEmail        string
	Expiry            time.Duration
}

// CreatedOrder is the typed result of a successful order creation.
type CreatedOrder struct {
	OrderID      string
	PaymentID    string // empty when the processor returned no payment line
	Status       string
	QRCode       string // EMV copy-paste code
	QRCodeBase64 string // PNG image, base64
	TicketURL    string
	ExpiresAt    *time.Time
}

// FetchedOrder is the authoritative order state re-read from the processor.
type FetchedOrder struct {
	OrderID           string
	ExternalReference string
	Status            string
	StatusDetail      string
	PaymentID         string
	PaymentStatus     string // status of the first payment line, if any
}

// OrderGateway is the hex port for the payment processor's Orders API.
type OrderGateway interface {
	Name() string
	CreatePixOrder(ctx context.Context, req PixOrderRequest) (*CreatedOrder, error)
	GetOrder(ctx context.Context, orderID string) (*FetchedOrder, error)
}
