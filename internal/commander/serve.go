package commander

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"clickpredict/internal/api"
	"clickpredict/internal/persistence"
)

const shutdownTimeout = 10 * time.Second

func (c *Commander) newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve predictions and importances over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("addr") {
				c.cfg.Server.Addr = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return c.serve(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides server.addr")
	return cmd
}

func (c *Commander) serve(ctx context.Context) error {
	service, err := c.loadService()
	switch {
	case errors.Is(err, persistence.ErrModelNotFound):
		c.logger.Warn("no trained model, /predict answers 503 until one is trained and the server restarted",
			zap.String("model", c.cfg.Artifacts.Model))
	case err != nil:
		return err
	}

	server := api.NewServer(service, api.Config{
		ImportancesPath: c.cfg.Artifacts.Importances,
		DatasetPath:     c.cfg.Dataset.Path,
		IDColumn:        c.cfg.Dataset.IDColumn,
		TargetColumn:    c.cfg.Dataset.TargetColumn,
	}, c.logger)

	httpServer := &http.Server{
		Addr:              c.cfg.Server.Addr,
		Handler:           server.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		c.logger.Info("http server starting", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
		close(errCh)
	}()
	fmt.Fprintf(c.out, "Listening on %s\n", c.cyan(httpServer.Addr))

	select {
	case <-ctx.Done():
		c.logger.Info("shutting down")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	c.logger.Info("http server stopped")
	return nil
}
