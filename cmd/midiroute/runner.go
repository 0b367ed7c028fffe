package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
)

// run polls every endpoint of n until ctx is done or an update fails.
func (n *network) run(ctx context.Context, poll time.Duration) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, e := range n.endpoints {
		if e.update == nil {
			continue
		}
		e := e
		g.Go(func() error {
			return e.poll(ctx, poll)
		})
	}
	return g.Wait()
}

func (e *endpoint) poll(ctx context.Context, d time.Duration) error {
	t := time.NewTicker(d)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if err := e.update(); err != nil {
				return fmt.Errorf("update %s: %w", e.name, err)
			}
		}
	}
}

// interruptible returns a context cancelled on SIGINT or SIGTERM.
func interruptible() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
