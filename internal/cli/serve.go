package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/opticshop/optics/internal/handler"
	"github.com/opticshop/optics/internal/middleware"
	"github.com/opticshop/optics/internal/router"
	"github.com/opticshop/optics/pkg/logger"
	"github.com/opticshop/optics/pkg/mailer"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "run migrations before serving")

	return cmd
}

func serve(parent context.Context, migrate bool) error {
	cfg, _, err := bootstrap()
	if err != nil {
		return err
	}
	log := logger.GetLogger()
	defer log.Sync()

	if migrate {
		if err := runMigrations(); err != nil {
			return err
		}
	}

	middleware.Configure(cfg)
	if cfg.SMTP.Host != "" {
		handler.SetMailer(mailer.New(cfg.SMTP))
		log.Info("Mailer enabled", zap.String("smtp_host", cfg.SMTP.Host))
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	e := router.New(ctx, cfg)

	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting server", zap.String("port", cfg.Server.Port))
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error("Server error", zap.Error(err))
			return err
		}
	case <-ctx.Done():
	}

	log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
