package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ukydev/fleet-live/internal/auth"
	"github.com/ukydev/fleet-live/internal/backend"
	"github.com/ukydev/fleet-live/internal/config"
	"github.com/ukydev/fleet-live/internal/handlers"
	"github.com/ukydev/fleet-live/internal/middleware"
	"github.com/ukydev/fleet-live/internal/service"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the fleet REST API and live position push",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, a.cfg)
		},
	}
	cmd.Flags().Int("port", 0, "Listen port")
	_ = a.v.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	return cmd
}

// newServer wires the backing, auth and router into an http.Server whose
// request contexts end with ctx, so open position streams close on
// shutdown.
func newServer(ctx context.Context, cfg *config.Config, accessLog io.Writer) (*http.Server, *service.Backend, error) {
	authService := auth.NewService(cfg.JWT.Secret, cfg.JWT.Expiry)
	if cfg.JWT.Secret == "" {
		log.Warn("jwt.secret is not set, using the built-in development secret")
	}

	b, err := backend.New(cfg, backend.Options{
		Users:  service.UserFunc(middleware.CurrentUser),
		Tokens: authService,
		Log:    log.WithField("component", "backend"),
	})
	if err != nil {
		return nil, nil, err
	}

	router := handlers.NewRouter(handlers.RouterOptions{
		Backend:   b,
		Auth:      authService,
		API:       handlers.NewAPI(b, log.WithField("component", "api")),
		AccessLog: accessLog,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	return srv, b, nil
}

func serve(ctx context.Context, cfg *config.Config) error {
	accessLog := log.StandardLogger().WriterLevel(log.DebugLevel)
	defer accessLog.Close()

	srv, b, err := newServer(ctx, cfg, accessLog)
	if err != nil {
		return err
	}
	defer b.Shutdown()

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", srv.Addr).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("error starting server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}
	log.Info("Server stopped")
	return nil
}
