package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"novasport-checker/internal/logging"
	"novasport-checker/internal/novasport"
	"novasport-checker/internal/tokensource"
)

func newUnbookCmd(root *rootOptions) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "unbook <classId>",
		Short: "Cancel a booked class",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(root.configPath)
			if err != nil {
				return err
			}
			if cfg.NSAPI == "" && cfg.APIURL == "" {
				return errors.New("ns_api is required")
			}
			if cmd.Flags().Changed("port") {
				cfg.TokenSource.URL = fmt.Sprintf("http://localhost:%d", port)
			}

			logger, closeLog, err := logging.New(logging.Options{Name: "nscheck", File: cfg.Logfile, Level: cfg.LogLevel})
			if err != nil {
				return err
			}
			defer closeLog()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			tokens := tokensource.New(cfg.TokenSource.URL, cfg.TokenSource.Timeout, cfg.TokenSource.CacheTTL)
			client := novasport.NewClient(cfg, tokens, logger.Named("novasport"))

			res, err := client.Unbook(ctx, args[0])
			if err != nil {
				return fmt.Errorf("unbook %s: %w", args[0], err)
			}
			logger.Info("unbook answered", "class_id", args[0], "unbooked", res.Unbooked)
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", res.Raw)
			if !res.Unbooked {
				return fmt.Errorf("class %s was not unbooked", args[0])
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "port of the local token relay")
	return cmd
}
