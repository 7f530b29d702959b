// Author: Kaviru Hapuarachchi
// GitHub: https://github.com/Kavirubc
// Created: 2026-02-10
// Last Modified: 2026-10-18

package commands

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/similigh/jira-sync/internal/webhook"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook listener",
	Long: `Start the HTTP server receiving GitHub deliveries on /ghwh and Jira
deliveries on /jwh. Each delivery is processed before it is acknowledged.`,
	RunE: runServe,
}

var listenAddr string

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address (overrides server.listen)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	if listenAddr != "" {
		cfg.Server.Listen = listenAddr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	exec, err := connectors(ctx, cfg, logger)
	if err != nil {
		return err
	}
	engine := buildEngine(cfg, exec, logger)
	srv := webhook.NewServer(engine, cfg.GitHub.WebhookSecret, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("listen", cfg.Server.Listen).Infof("listening for webhooks (%d repositories)", len(cfg.Repositories))
		errCh <- srv.Start(cfg.Server.Listen)
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
