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

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"novasport-checker/internal/api"
	"novasport-checker/internal/db"
	"novasport-checker/internal/logging"
	"novasport-checker/internal/mw"
	"novasport-checker/internal/store"
)

const (
	limiterCleanupEvery = time.Minute
	limiterMaxIdle      = 10 * time.Minute
	shutdownTimeout     = 5 * time.Second
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var (
		port     int
		mail     string
		interval int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local token relay serving the token and the userscript",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfigOrDefaults(root.configPath, cmd.Flags().Changed("config"))
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if cmd.Flags().Changed("mail") {
				cfg.Server.Mail = mail
			}
			if cmd.Flags().Changed("interval") {
				cfg.Server.TokenIntervalSeconds = interval
			}
			if cfg.Push.Enabled && (cfg.Push.PublicKey == "" || cfg.Push.PrivateKey == "") {
				return errors.New("push is enabled but VAPID keys are missing")
			}

			logger, closeLog, err := logging.New(logging.Options{Name: "nscheck", File: cfg.Logfile, Level: cfg.LogLevel})
			if err != nil {
				return err
			}
			defer closeLog()
			log := logger.Named("relay")

			gormDB, err := db.Init(&cfg.Database, logger.Named("db"))
			if err != nil {
				return err
			}
			defer closeDB(gormDB, log)

			handler := api.NewHandler(store.NewGormStore(gormDB), webpushOptions(cfg), api.UserscriptParams{
				Email:    cfg.Server.Mail,
				Port:     cfg.Server.Port,
				Interval: cfg.Server.TokenIntervalSeconds,
			}, log)
			limiter := mw.NewIPRateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst)
			router := api.NewRouter(handler, limiter, time.Duration(cfg.Server.CacheTTLSeconds)*time.Second)

			server := &http.Server{
				Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
				Handler: router,
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			go func() {
				ticker := time.NewTicker(limiterCleanupEvery)
				defer ticker.Stop()
				for {
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
						if n := limiter.Cleanup(limiterMaxIdle); n > 0 {
							log.Debug("forgot idle clients", "count", n)
						}
					}
				}
			}()

			errCh := make(chan error, 1)
			go func() {
				log.Info("HTTP server starting", "port", cfg.Server.Port,
					"userscript", fmt.Sprintf("http://localhost:%d%s", cfg.Server.Port, api.UserscriptPaths[2]))
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("HTTP server: %w", err)
				}
				return nil
			case <-ctx.Done():
			}
			log.Info("shutdown signal received, stopping relay")

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer shutdownCancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("HTTP server shutdown: %w", err)
			}
			log.Info("relay gracefully stopped")
			return nil
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "port the relay listens on")
	cmd.Flags().StringVarP(&mail, "mail", "m", "YOURMAIL@mail.com", "NovaSport account mail used by the userscript")
	cmd.Flags().IntVarP(&interval, "interval", "i", 10, "seconds between two token POSTs from the userscript")
	return cmd
}
