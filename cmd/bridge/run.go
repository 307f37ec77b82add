package main

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
	"github.com/spf13/cobra"

	"github.com/putioarr/bridge/internal/config"
	"github.com/putioarr/bridge/internal/domain"
	"github.com/putioarr/bridge/internal/download"
	"github.com/putioarr/bridge/internal/logging"
	"github.com/putioarr/bridge/internal/metrics"
	"github.com/putioarr/bridge/internal/notify"
	"github.com/putioarr/bridge/internal/orchestrate"
	"github.com/putioarr/bridge/internal/putio"
	"github.com/putioarr/bridge/internal/rpcapi"
	"github.com/putioarr/bridge/internal/target"
)

// runBridge wires every component together and blocks until an interrupt or
// terminate signal arrives, then shuts down gracefully.
func runBridge(cmd *cobra.Command, args []string) error {
	cfg, err := config.New(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(exitConfigError)
	}

	logging.Configure(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := putio.New(cfg.Putio.APIKey)

	if _, err := client.AccountInfo(ctx); err != nil {
		log.Error().Err(err).Msg("[BRIDGE] failed to authenticate with cloud download service")
		os.Exit(exitAuthFailure)
	}
	log.Info().Msg("[BRIDGE] cloud download service authenticated")

	downloader := download.New(client, cfg.UID, cfg.DownloadWorkers)
	downloader.SetDeleter(client)
	downloader.Start(ctx)

	notifier := notify.New(cfg.ArrManagers())
	downloader.SetOnComplete(func(ctx context.Context, transferHash, topLevelPath string) {
		notifier.NotifyCompletion(ctx, topLevelPath)
	})

	m := metrics.NewManager(downloader)
	downloader.SetMetrics(m)

	expander := orchestrate.ExpanderFunc(func(ctx context.Context, t *domain.RemoteTransfer) ([]domain.DownloadTarget, error) {
		return target.Expand(ctx, client, cfg.SkipDirectories, cfg.DownloadDirectory, t)
	})

	orch := orchestrate.New(
		client,
		expander,
		downloader,
		time.Duration(cfg.PollingInterval)*time.Second,
		cfg.OrchestrationWorkers,
	)

	server := rpcapi.New(client, client, client, cfg.Username, cfg.Password, cfg.DownloadDirectory, m)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.BindAddress, cfg.Port),
		Handler: server.Router(),
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", httpServer.Addr).Msg("[BRIDGE] listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	orch.Start(ctx)

	select {
	case <-ctx.Done():
		log.Info().Msg("[BRIDGE] shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			log.Error().Err(err).Msg("[BRIDGE] failed to bind listener")
			os.Exit(exitBindFailure)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	orch.Stop()
	_ = httpServer.Shutdown(shutdownCtx)
	downloader.Stop()

	log.Info().Msg("[BRIDGE] stopped cleanly")
	return nil
}
