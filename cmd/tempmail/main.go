package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/nhle/tempmail/internal/logging"
	"github.com/nhle/tempmail/internal/model"
	"github.com/nhle/tempmail/internal/tempmail"
)

// env is what every subcommand needs once flags are parsed.
type env struct {
	cfg        *model.AppConfig
	configPath string
	logger     *zap.SugaredLogger
	client     *tempmail.Client
}

func (e *env) newClient(s model.ServerConfig) *tempmail.Client {
	return tempmail.NewClient(s.BaseURL, s.RequestTimeout(), e.logger)
}

func main() {
	var (
		configPath string
		e          env
	)

	rootCmd := &cobra.Command{
		Use:           "tempmail",
		Short:         "Disposable mailbox in your terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v := model.NewViper(configPath)
			if err := bindFlags(cmd, v); err != nil {
				return err
			}

			cfg, err := model.LoadConfigFrom(v)
			if err != nil {
				return err
			}

			logger, err := logging.New(cfg.Log)
			if err != nil {
				return err
			}
			logger.Infow("starting tempmail", "server", cfg.Server.BaseURL, "command", cmd.Name())

			e = env{
				cfg:        cfg,
				configPath: configPath,
				logger:     logger,
			}
			e.client = e.newClient(cfg.Server)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if e.logger != nil {
				_ = e.logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(&e)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", model.DefaultConfigPath(), "Path to the YAML config file")
	flags.String("server", "", "Backend base URL (overrides server.base_url)")
	flags.String("log-level", "", "Log level: debug, info, warn, error")
	flags.String("log-file", "", "Log file path (overrides log.path)")

	rootCmd.AddCommand(
		newWatchCmd(&e),
		newDomainsCmd(&e),
		newHistoryCmd(&e),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// bindFlags lets explicitly set flags override file and environment values.
func bindFlags(cmd *cobra.Command, v *viper.Viper) error {
	keys := map[string]string{
		"server":    "server.base_url",
		"log-level": "log.level",
		"log-file":  "log.path",
	}
	for flag, key := range keys {
		f := cmd.Flags().Lookup(flag)
		if f == nil || !f.Changed {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("binding --%s: %w", flag, err)
		}
	}
	return nil
}
