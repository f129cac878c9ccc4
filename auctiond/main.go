// Command auctiond serves the land auction engine over a stream socket.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/openland/landauction/engine"
	"github.com/openland/landauction/eventbus"
	"github.com/openland/landauction/receipt"
)

func run(ctx context.Context, cfg *Config) error {
	keyManager, err := receipt.LoadOrCreateKeyManager(cfg.ReceiptKeyFile)
	if err != nil {
		return fmt.Errorf("failed to initialize key manager: %w", err)
	}
	log.Printf("INFO: Receipt KeyManager initialized (key id %s)", keyManager.KeyID())

	var publisher engine.Publisher = eventbus.LogPublisher{}
	if cfg.AMQPURL != "" {
		p, err := eventbus.Dial(cfg.AMQPURL, cfg.AMQPExchange, cfg.EventCodec)
		if err != nil {
			return fmt.Errorf("failed to connect event bus: %w", err)
		}
		defer func() {
			if err := p.Close(); err != nil {
				log.Printf("ERROR: Failed to close event bus: %v", err)
			}
		}()
		publisher = p
		log.Printf("INFO: Publishing %s events to exchange %s", cfg.EventCodec, cfg.AMQPExchange)
	} else {
		log.Printf("WARNING: AMQP_URL not set, events are only logged")
	}

	e := engine.New(engine.Config{
		AntiSnipeWindow:  cfg.AntiSnipeWindow,
		PaymentGrace:     cfg.PaymentGrace,
		PenaltyDailyRate: cfg.PenaltyDailyRate,
		Publisher:        publisher,
		Signer:           keyManager,
	})

	listener, err := listen(cfg.Listen)
	if err != nil {
		return err
	}
	log.Printf("INFO: Auction engine listening on %s", cfg.Listen)

	go func() {
		_ = e.Run(ctx, cfg.TickInterval)
	}()

	err = NewServer(e, keyManager, cfg.MaxWorkers).Serve(ctx, listener)
	if errors.Is(err, context.Canceled) {
		// Deliver whatever the last turns queued before exiting
		if ferr := e.FlushEvents(context.Background()); ferr != nil {
			log.Printf("WARNING: %d events undelivered at shutdown: %v", e.PendingEvents(), ferr)
		}
		return nil
	}
	return err
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("WARNING: Failed to load .env: %v", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("ERROR: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatalf("ERROR: %v", err)
	}
}
