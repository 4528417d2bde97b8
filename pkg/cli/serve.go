package cli

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/webchatter/pkg/cli/config"
	controller "github.com/m-mizutani/webchatter/pkg/controller/http"
	"github.com/m-mizutani/webchatter/pkg/usecase"
	"github.com/urfave/cli/v3"
)

func cmdServe() *cli.Command {
	var (
		serverCfg  config.Server
		chatterCfg chatterConfig
	)

	flags := append(serverCfg.Flags(), chatterCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start the local relay server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := ctxlog.From(ctx)

			env, err := chatterCfg.setup(ctx)
			if err != nil {
				return err
			}
			defer env.close()

			logger.Info("Starting webchatter relay",
				slog.String("addr", serverCfg.Addr),
				slog.String("backend", env.client.BackendURL()),
				slog.String("store", chatterCfg.store.URI),
			)

			// Create use cases
			relayUC := usecase.NewRelay(env.chatter, usecase.WithAutoTitle(serverCfg.AutoTitle))

			// Create HTTP server with options
			server, err := controller.NewServer(
				ctx,
				relayUC,
				controller.WithAddr(serverCfg.Addr),
				controller.WithBackend(env.client.BackendURL()),
			)
			if err != nil {
				return goerr.Wrap(err, "failed to create HTTP server")
			}

			// Start server in goroutine
			go func() {
				logger.Info("HTTP server starting", slog.String("addr", serverCfg.Addr))
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Error("HTTP server error", slog.Any("error", err))
				}
			}()

			// Wait for interrupt signal
			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

			select {
			case <-ctx.Done():
				logger.Info("Context cancelled, shutting down...")
			case sig := <-sigChan:
				logger.Info("Signal received, shutting down...", slog.Any("signal", sig))
			}

			// Graceful shutdown
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				return goerr.Wrap(err, "failed to shutdown server gracefully")
			}

			logger.Info("Server shutdown complete")
			return nil
		},
	}
}
