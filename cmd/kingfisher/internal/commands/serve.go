package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/kingfisher/internal/api"
	"github.com/wolfeidau/kingfisher/internal/app"
	"github.com/wolfeidau/kingfisher/internal/qr"
)

// ServeCmd serves the HTTP API.
type ServeCmd struct {
	Listen      string   `help:"HTTP server listen address" default:"127.0.0.1:8080" env:"KINGFISHER_LISTEN"`
	CORSOrigins []string `name:"cors-origins" help:"allowed CORS origins for API requests" default:"http://localhost:8080" env:"KINGFISHER_CORS_ORIGINS"`
	Placeholder bool     `help:"render placeholders instead of QR codes"`
}

func (c *ServeCmd) Run(ctx context.Context, globals *Globals) error {
	defer globals.setup(ctx)()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctrl := globals.controller(ctx, app.Config{Encoder: qr.NewEncoder(!c.Placeholder)})
	defer closeController(ctrl)
	ctrl.ShowPage(app.PageGenerator)

	handler := api.NewHandler(ctrl, api.Options{
		CORSOrigins: c.CORSOrigins,
		Logger:      log.Logger,
	})
	srv := configureHTTPServer(c.Listen, handler)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", c.Listen).Str("version", globals.Version).Msg("Starting HTTP server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	log.Info().Msg("Shutting down HTTP server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	return nil
}

func configureHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       5 * time.Minute,
		MaxHeaderBytes:    8 * 1024, // 8KiB
	}
}
