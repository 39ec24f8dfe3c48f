package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"novasport-checker/config"
)

// configEnv overrides the default configuration path.
const configEnv = "NSCHECK_CONFIG"

const defaultConfigPath = "config.json"

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "nscheck",
		Short:         "Check NovaSport for wanted sport sessions and book them",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", configPathFromEnv(),
		"configuration file (.json or .yaml), defaults to $"+configEnv)

	root.AddCommand(newCheckCmd(opts))
	root.AddCommand(newServeCmd(opts))
	root.AddCommand(newUnbookCmd(opts))
	root.AddCommand(newVersionCmd())
	return root
}

func configPathFromEnv() string {
	if p := os.Getenv(configEnv); p != "" {
		return p
	}
	return defaultConfigPath
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from %s: %w", path, err)
	}
	return cfg, nil
}

// loadConfigOrDefaults falls back to the defaults when the file is absent and
// was not asked for explicitly.
func loadConfigOrDefaults(path string, explicit bool) (*config.Config, error) {
	cfg, err := config.Load(path)
	if errors.Is(err, fs.ErrNotExist) && !explicit {
		cfg = &config.Config{}
		cfg.ApplyDefaults()
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from %s: %w", path, err)
	}
	return cfg, nil
}

// webpushOptions returns nil when push notifications are disabled.
func webpushOptions(cfg *config.Config) *webpush.Options {
	if !cfg.Push.Enabled {
		return nil
	}
	return &webpush.Options{
		VAPIDPublicKey:  cfg.Push.PublicKey,
		VAPIDPrivateKey: cfg.Push.PrivateKey,
		Subscriber:      cfg.Push.Subject,
		TTL:             cfg.Push.TTL,
	}
}

// closeDB releases the connection pool behind gormDB.
func closeDB(gormDB *gorm.DB, log hclog.Logger) {
	sqlDB, err := gormDB.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Warn("failed to close database", "error", err)
	}
}
