// bragi is an OpenAI-compatible speech gateway: transcription, translation
// and synthesis over a set of locally configured model backends.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/bragi-audio/bragi/internal/dotenv"
	"github.com/bragi-audio/bragi/pkg/gateway/config"
	"github.com/bragi-audio/bragi/pkg/gateway/server"
	"github.com/bragi-audio/bragi/pkg/gateway/store"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	if err := dotenv.Load(".env"); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(cfg.Server.LogLevel),
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg.DatabaseURL, cfg.VoiceAudioDir)
	if err != nil {
		return err
	}

	if err := ensureFirstKey(ctx, logger, st); err != nil {
		st.Close()
		return err
	}

	srv, err := server.New(ctx, cfg, logger, st)
	if err != nil {
		st.Close()
		return err
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		return srv.Shutdown(context.Background())
	}
}

// ensureFirstKey mints a default API key on an empty database so a fresh
// deployment is reachable. The raw secret is logged exactly once.
func ensureFirstKey(ctx context.Context, logger *slog.Logger, st *store.Store) error {
	empty, err := st.KeysEmpty(ctx)
	if err != nil {
		return err
	}
	if !empty {
		return nil
	}
	_, raw, err := st.CreateKey(ctx, "default")
	if err != nil {
		return err
	}
	logger.Info("created first API key; store it now, it will not be shown again", "key", raw)
	return nil
}

func logLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
