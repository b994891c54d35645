package client

import (
	"context"
	"time"
)

const DefaultInterval = 3 * time.Second

// StatusFetcher is satisfied by *StatusClient.
type StatusFetcher interface {
	GetStatus(ctx context.Context, paymentID string) (*PaymentStatus, error)
}

// Poller asks for a payment's status until it is approved or ctx ends.
// It runs on the caller's goroutine.
type Poller struct {
	Fetcher  StatusFetcher
	Interval time.Duration

	// OnError sees failed fetches; the poller keeps going after calling it.
	OnError func(err error)
	// OnStatus sees every successful fetch, approved or not.
	OnStatus func(s *PaymentStatus)
}

// Poll fetches immediately, then every Interval. It returns the approved status,
// or ctx.Err() once the context is done.
func (p *Poller) Poll(ctx context.Context, paymentID string) (*PaymentStatus, error) {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	if s := p.check(ctx, paymentID); s != nil {
		return s, nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			if s := p.check(ctx, paymentID); s != nil {
				return s, nil
			}
		}
	}
}

// check returns the status only when it is approved.
func (p *Poller) check(ctx context.Context, paymentID string) *PaymentStatus {
	s, err := p.Fetcher.GetStatus(ctx, paymentID)
	if err != nil {
		if ctx.Err() == nil && p.OnError != nil {
			p.OnError(err)
		}
		return nil
	}
	if p.OnStatus != nil {
		p.OnStatus(s)
	}
	if s.Approved() {
		return s
	}
	return nil
}
