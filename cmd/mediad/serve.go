package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/totegamma/mediadb/client"
	"github.com/totegamma/mediadb/internal/config"
	"github.com/totegamma/mediadb/internal/infra/tracing"
	"github.com/totegamma/mediadb/internal/present/rest"
	"github.com/totegamma/mediadb/internal/present/rest/middleware"
	"github.com/totegamma/mediadb/internal/service"
	"github.com/totegamma/mediadb/internal/usecase"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(*configFlag)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			res := &resources{}

			if cfg.Server.EnableTrace {
				shutdown, err := tracing.Setup(ctx, "mediadb", rest.Version, cfg.Server.TraceEndpoint)
				if err != nil {
					return err
				}
				res.add(func() error {
					sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
					defer cancel()
					return shutdown(sctx)
				})
			}

			err = serve(ctx, cfg, res, logger)
			if cerr := res.Close(); cerr != nil {
				logger.Error("failed to release resources", "error", cerr)
				err = multierror.Append(err, cerr).ErrorOrNil()
			}
			return err
		},
	}
}

func serve(ctx context.Context, cfg config.Config, res *resources, logger hclog.Logger) error {
	store, err := openStore(ctx, cfg.Store, res, logger)
	if err != nil {
		return err
	}

	publishers, signalService, err := openEvents(ctx, cfg, res, logger)
	if err != nil {
		return err
	}

	fetcher := client.New(client.Options{
		Timeout:      cfg.Upstream.Timeout,
		UserAgent:    cfg.Upstream.UserAgent,
		MaxFailCount: cfg.Upstream.MaxFailCount,
		FailWindow:   cfg.Upstream.FailWindow,
		Logger:       logger.Named("client"),
	})

	media := usecase.NewMediaUsecase(store, fetcher, usecase.RecordOptions{
		OverwriteOnPatch: cfg.Concurrency.PatchRevision == config.PatchRevisionOverwrite,
		Publishers:       publishers,
		Logger:           logger,
	})

	handler := rest.NewHandler(media, signalService, cfg.Store.Driver, logger)
	auth := middleware.NewAuthMiddleware(service.NewAuthService(cfg.Server.AdminToken))
	if cfg.Server.AdminToken == "" {
		logger.Warn("no admin token configured, write endpoints are open")
	}

	e := rest.NewEcho(handler, auth, logger, cfg.Server.EnableTrace)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Server.Listen, "store", cfg.Store.Driver)
		errCh <- e.Start(cfg.Server.Listen)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "server")
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(sctx)
}
