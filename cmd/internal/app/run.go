package app

import (
	"context"
	"os/signal"
	"syscall"
)

// Serve loads config, builds the App and serves until SIGINT or SIGTERM.
// It returns an error instead of calling os.Exit to keep defers effective.
func Serve(envFiles ...string) error {
	if err := LoadDotEnv(envFiles...); err != nil {
		return err
	}

	cfg := LoadConfig()
	log := NewLogger(cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := New(ctx, cfg, log)
	if err != nil {
		return err
	}
	return a.Run(ctx)
}
