//go:build !integration

package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"pix-subscription/internal/config"
	"pix-subscription/internal/domain/ports/adapter"

	"github.com/rs/zerolog"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"(11) 98765-4321", "5511987654321", false},
		{"11 3456-7890", "551134567890", false},
		{"+55 11 98765-4321", "5511987654321", false},
		{"551134567890", "551134567890", false},
		{"12345", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := NormalizePhone(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("NormalizePhone(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("NormalizePhone(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

type fakeWhatsApp struct {
	onWhatsApp bool
	checkCode  int
	sent       []map[string]string
}

func (f *fakeWhatsApp) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer key-1" {
			t.Errorf("missing bearer token")
		}
		switch r.URL.Path {
		case "/instances/inst-1/check-phone":
			if f.checkCode != 0 {
				w.WriteHeader(f.checkCode)
				return
			}
			var body struct {
				Phones []string `json:"phones"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"results": []map[string]any{{"jid": body.Phones[0] + "@s.whatsapp.net", "on_whatsapp": f.onWhatsApp}},
			})
		case "/instances/inst-1/send-text":
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			f.sent = append(f.sent, body)
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"status":"enqueued"}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func newTestNotifier(t *testing.T, f *fakeWhatsApp) *WhatsAppNotifier {
	t.Helper()
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)
	logger := zerolog.New(io.Discard)
	n, err := NewWhatsAppNotifier(config.WhatsAppConfig{APIBaseURL: srv.URL + "/", APIKey: "key-1", InstanceID: "inst-1"}, &logger)
	if err != nil {
		t.Fatalf("failed to build notifier: %v", err)
	}
	return n
}

func TestWhatsAppNotifier_SendText(t *testing.T) {
	ctx := context.Background()

	t.Run("checks the number then sends", func(t *testing.T) {
		f := &fakeWhatsApp{onWhatsApp: true}
		n := newTestNotifier(t, f)

		if err := n.SendText(ctx, "(11) 98765-4321", " Assinatura ativada "); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(f.sent) != 1 {
			t.Fatalf("expected one message, got %d", len(f.sent))
		}
		if f.sent[0]["to"] != "5511987654321" || f.sent[0]["text"] != "Assinatura ativada" {
			t.Errorf("unexpected payload: %v", f.sent[0])
		}
	})

	t.Run("number without account is not messaged", func(t *testing.T) {
		f := &fakeWhatsApp{onWhatsApp: false}
		n := newTestNotifier(t, f)

		err := n.SendText(ctx, "11987654321", "hi")
		if !errors.Is(err, adapter.ErrRecipientUnreachable) {
			t.Fatalf("expected ErrRecipientUnreachable, got %v", err)
		}
		if len(f.sent) != 0 {
			t.Error("send-text must not be called")
		}
	})

	t.Run("check-phone failure surfaces", func(t *testing.T) {
		f := &fakeWhatsApp{checkCode: http.StatusServiceUnavailable}
		n := newTestNotifier(t, f)

		if err := n.SendText(ctx, "11987654321", "hi"); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("invalid phone is rejected locally", func(t *testing.T) {
		f := &fakeWhatsApp{onWhatsApp: true}
		n := newTestNotifier(t, f)

		if err := n.SendText(ctx, "123", "hi"); !errors.Is(err, ErrInvalidPhone) {
			t.Fatalf("expected ErrInvalidPhone, got %v", err)
		}
	})
}

func TestNewWhatsAppNotifierRequiresConfig(t *testing.T) {
	logger := zerolog.New(io.Discard)
	if _, err := NewWhatsAppNotifier(config.WhatsAppConfig{}, &logger); err == nil {
		t.Fatal("expected error for empty config")
	}
}
