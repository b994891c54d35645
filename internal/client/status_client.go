// Package client polls the PIX status endpoint from the payer's side.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// ErrNotFound is returned when the payment does not exist or belongs to someone else.
var ErrNotFound = errors.New("payment not found")

// PaymentStatus mirrors the status endpoint answer.
type PaymentStatus struct {
	PaymentID string    `json:"paymentId"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

func (s *PaymentStatus) Approved() bool { return strings.EqualFold(s.Status, "approved") }

type apiError struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// StatusClient calls GET /api/v1/pix/payments/{id} with a bearer token.
type StatusClient struct {
	http *resty.Client
}

func NewStatusClient(baseURL, token string, timeout time.Duration) *StatusClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetAuthToken(token).
		SetHeader("Accept", "application/json").
		SetTimeout(timeout)
	return &StatusClient{http: c}
}

func (c *StatusClient) GetStatus(ctx context.Context, paymentID string) (*PaymentStatus, error) {
	var out PaymentStatus
	var apiErr apiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		SetError(&apiErr).
		Get("/api/v1/pix/payments/" + url.PathEscape(paymentID))
	if err != nil {
		return nil, fmt.Errorf("status request: %w", err)
	}
	switch {
	case resp.StatusCode() == 404:
		return nil, ErrNotFound
	case resp.IsError():
		return nil, fmt.Errorf("status request: http %d %s", resp.StatusCode(), apiErr.Code)
	}
	return &out, nil
}
