package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	cfnats "github.com/Strob0t/ChatForge/internal/adapter/nats"
	"github.com/Strob0t/ChatForge/internal/port/messagequeue"
)

// runEvents prints chat events as they are published.
func runEvents(args []string) error {
	fs := flag.NewFlagSet("events", flag.ContinueOnError)
	subject := fs.String("subject", messagequeue.SubjectAll, "subject filter")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, flush, err := setup()
	if err != nil {
		return err
	}
	defer flush()
	if cfg.NATS.URL == "" {
		return errors.New("nats is not configured")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	queue, err := cfnats.Connect(ctx, cfg.NATS.URL, cfg.NATS.Stream)
	if err != nil {
		return fmt.Errorf("nats: %w", err)
	}
	defer func() { _ = queue.Close() }()

	cancel, err := queue.Subscribe(ctx, *subject, func(_ context.Context, subj string, data []byte) error {
		fmt.Printf("%s %s\n", subj, data)
		return nil
	})
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	defer cancel()

	<-ctx.Done()
	return nil
}
