// File: internal/infra/adapters/notify/whatsapp.go
package notify

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode"

	"pix-subscription/internal/config"
	"pix-subscription/internal/domain/ports/adapter"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

var _ adapter.Notifier = (*WhatsAppNotifier)(nil)

// ErrInvalidPhone is returned when a number cannot be turned into a full international number.
var ErrInvalidPhone = errors.New("invalid phone number")

// WhatsAppNotifier sends text messages through an HTTP WhatsApp instance API.
// Every send first checks that the number has an account.
type WhatsAppNotifier struct {
	http     *resty.Client
	instance string
	log      *zerolog.Logger
}

func NewWhatsAppNotifier(cfg config.WhatsAppConfig, logger *zerolog.Logger) (*WhatsAppNotifier, error) {
	if cfg.APIBaseURL == "" || cfg.APIKey == "" {
		return nil, errors.New("whatsapp api not configured")
	}
	instance := cfg.InstanceID
	if instance == "" {
		instance = "default"
	}
	l := logger.With().Str("component", "whatsapp").Logger()
	c := resty.New().
		SetBaseURL(strings.TrimRight(cfg.APIBaseURL, "/")).
		SetAuthToken(cfg.APIKey).
		SetHeader("Content-Type", "application/json").
		SetTimeout(10 * time.Second)
	return &WhatsAppNotifier{http: c, instance: instance, log: &l}, nil
}

func (n *WhatsAppNotifier) Name() string { return "whatsapp" }

type checkPhoneResponse struct {
	Results []struct {
		JID        string `json:"jid"`
		OnWhatsApp bool   `json:"on_whatsapp"`
	} `json:"results"`
}

type sendTextResponse struct {
	Status string `json:"status"`
}

func (n *WhatsAppNotifier) SendText(ctx context.Context, to, text string) error {
	phone, err := NormalizePhone(to)
	if err != nil {
		return err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return errors.New("empty message")
	}

	var check checkPhoneResponse
	resp, err := n.http.R().
		SetContext(ctx).
		SetBody(map[string][]string{"phones": {phone}}).
		SetResult(&check).
		Post(n.path("check-phone"))
	if err != nil {
		return fmt.Errorf("check-phone: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("check-phone: status %d", resp.StatusCode())
	}

	reachable := false
	for _, r := range check.Results {
		if strings.HasPrefix(r.JID, phone) || strings.Contains(r.JID, phone) {
			reachable = r.OnWhatsApp
			break
		}
	}
	if !reachable {
		return adapter.ErrRecipientUnreachable
	}

	var sent sendTextResponse
	resp, err = n.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"to": phone, "text": text}).
		SetResult(&sent).
		Post(n.path("send-text"))
	if err != nil {
		return fmt.Errorf("send-text: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("send-text: status %d", resp.StatusCode())
	}
	n.log.Debug().Str("status", sent.Status).Msg("message enqueued")
	return nil
}

func (n *WhatsAppNotifier) path(op string) string {
	return "/instances/" + url.PathEscape(n.instance) + "/" + op
}

// NormalizePhone keeps digits only and adds the Brazilian country code to
// 10/11-digit national numbers. Results shorter than 12 digits are invalid.
func NormalizePhone(raw string) (string, error) {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, raw)
	if len(digits) == 10 || len(digits) == 11 {
		digits = "55" + digits
	}
	if len(digits) < 12 {
		return "", ErrInvalidPhone
	}
	return digits, nil
}
