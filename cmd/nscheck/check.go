package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"novasport-checker/config"
	"novasport-checker/internal/checker"
	"novasport-checker/internal/db"
	"novasport-checker/internal/logging"
	"novasport-checker/internal/notification"
	"novasport-checker/internal/novasport"
	"novasport-checker/internal/store"
	"novasport-checker/internal/tokensource"
)

func newCheckCmd(root *rootOptions) *cobra.Command {
	var port, interval int

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run the checking loop until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(root.configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.TokenSource.URL = fmt.Sprintf("http://localhost:%d", port)
			}
			if cmd.Flags().Changed("interval") {
				cfg.FixedInterval = interval
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration %s: %w", root.configPath, err)
			}

			logger, closeLog, err := logging.New(logging.Options{Name: "nscheck", File: cfg.Logfile, Level: cfg.LogLevel})
			if err != nil {
				return err
			}
			defer closeLog()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			return runCheck(ctx, cfg, logger)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "port of the local token relay")
	cmd.Flags().IntVarP(&interval, "interval", "i", 0, "fixed interval between checks in seconds, instead of a random one")
	return cmd
}

func runCheck(ctx context.Context, cfg *config.Config, logger hclog.Logger) error {
	tokens := tokensource.New(cfg.TokenSource.URL, cfg.TokenSource.Timeout, cfg.TokenSource.CacheTTL)
	client := novasport.NewClient(cfg, tokens, logger.Named("novasport"))

	var opts []checker.Option
	if cfg.Push.Enabled {
		gormDB, err := db.Init(&cfg.Database, logger.Named("db"))
		if err != nil {
			return err
		}
		defer closeDB(gormDB, logger)
		pool := notification.NewWorkerPool(cfg.WorkerPool.Size, store.NewGormStore(gormDB), webpushOptions(cfg), logger.Named("notification"))
		pool.Start(ctx)
		opts = append(opts, checker.WithNotifier(pool))
	}

	svc := checker.NewService(cfg, client, logger.Named("checker"), opts...)
	err := svc.Run(ctx)
	logger.Info(svc.Ledger().Report())
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
