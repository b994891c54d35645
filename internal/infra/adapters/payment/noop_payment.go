package payment

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pix-subscription/internal/domain/ports/adapter"
)

var _ adapter.OrderGateway = (*NoopOrderGateway)(nil)

// NoopOrderGateway is an in-memory processor for dev runs and tests.
// Orders stay "action_required" until MarkPaid is called.
type NoopOrderGateway struct {
	mu     sync.Mutex
	seq    int64
	orders map[string]*adapter.FetchedOrder
}

func NewNoopOrderGateway() *NoopOrderGateway {
	return &NoopOrderGateway{orders: make(map[string]*adapter.FetchedOrder)}
}

func (g *NoopOrderGateway) Name() string { return "noop" }

func (g *NoopOrderGateway) CreatePixOrder(ctx context.Context, req adapter.PixOrderRequest) (*adapter.CreatedOrder, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	orderID := fmt.Sprintf("ORD-NOOP-%d", g.seq)
	paymentID := fmt.Sprintf("PAY-NOOP-%d", g.seq)
	g.orders[orderID] = &adapter.FetchedOrder{
		OrderID:           orderID,
		ExternalReference: req.ExternalReference,
		Status:            "action_required",
		StatusDetail:      "waiting_transfer",
		PaymentID:         paymentID,
		PaymentStatus:     "action_required",
	}
	exp := time.Now().Add(req.Expiry)
	return &adapter.CreatedOrder{
		OrderID:      orderID,
		PaymentID:    paymentID,
		Status:       "action_required",
		QRCode:       "00020126580014br.gov.bcb.pix0136" + req.ExternalReference,
		QRCodeBase64: "",
		ExpiresAt:    &exp,
	}, nil
}

func (g *NoopOrderGateway) GetOrder(ctx context.Context, orderID string) (*adapter.FetchedOrder, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	o, ok := g.orders[orderID]
	if !ok {
		return nil, &adapter.GatewayError{StatusCode: 404, Message: "order not found"}
	}
	cp := *o
	return &cp, nil
}

// MarkPaid flips orderID to the processed/accredited state.
func (g *NoopOrderGateway) MarkPaid(orderID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	o, ok := g.orders[orderID]
	if !ok {
		return false
	}
	o.Status = "processed"
	o.StatusDetail = "accredited"
	o.PaymentStatus = "processed"
	return true
}
