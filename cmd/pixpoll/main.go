// Command pixpoll waits for a PIX payment to be approved.
//
//	pixpoll -base http://localhost:8080 -token $JWT -payment <paymentId>
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pix-subscription/internal/client"

	"github.com/rs/zerolog"
)

func main() {
	base := flag.String("base", "http://localhost:8080", "service base URL")
	token := flag.String("token", os.Getenv("PIX_TOKEN"), "bearer token (default $PIX_TOKEN)")
	paymentID := flag.String("payment", "", "payment id returned by POST /api/v1/pix/orders")
	interval := flag.Duration("interval", client.DefaultInterval, "poll interval")
	timeout := flag.Duration("timeout", 30*time.Minute, "give up after this long")
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).With().Timestamp().Logger()
	if *paymentID == "" || *token == "" {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	last := ""
	p := &client.Poller{
		Fetcher:  client.NewStatusClient(*base, *token, 10*time.Second),
		Interval: *interval,
		OnError: func(err error) {
			logger.Warn().Err(err).Msg("status check failed, retrying")
		},
		OnStatus: func(s *client.PaymentStatus) {
			if s.Status != last {
				logger.Info().Str("payment_id", s.PaymentID).Str("status", s.Status).Msg("status")
				last = s.Status
			}
		},
	}

	s, err := p.Poll(ctx, *paymentID)
	switch {
	case errors.Is(err, context.Canceled):
		logger.Info().Msg("interrupted")
		os.Exit(130)
	case errors.Is(err, context.DeadlineExceeded):
		logger.Error().Dur("timeout", *timeout).Msg("payment not approved in time")
		os.Exit(1)
	case err != nil:
		logger.Error().Err(err).Msg("poll failed")
		os.Exit(1)
	}
	logger.Info().Str("payment_id", s.PaymentID).Msg("payment approved")
}
