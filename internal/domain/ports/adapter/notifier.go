package adapter

import (
	"context"
	"errors"
)

// ErrRecipientUnreachable is returned when the messaging provider reports the number has no account.
var ErrRecipientUnreachable = errors.New("recipient not reachable on messaging provider")

// Notifier delivers short text messages to a user's phone.
type Notifier interface {
	Name() string
	SendText(ctx context.Context, to, text string) error
}
