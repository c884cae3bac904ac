package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"fenafar_admin/internal/config"
	"fenafar_admin/internal/logger"
)

type rootFlags struct {
	logLevel string
	logJSON  bool
	port     string
}

func main() {
	if err := RootCmd().Execute(); err != nil {
		logger.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

// RootCmd runs the server when no subcommand is given.
func RootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "fenafar",
		Short:         "FENAFAR union administration server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, flags)
		},
	}
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&flags.logJSON, "log-json", false, "emit JSON logs")
	root.PersistentFlags().StringVar(&flags.port, "port", "", "HTTP port, overrides APP_PORT")

	root.AddCommand(
		ServeCmd(flags),
		MigrateCmd(flags),
		SeedCmd(flags),
	)
	return root
}

// setup loads the configuration and installs the process logger.
func setup(ctx context.Context, cmd *cobra.Command, flags *rootFlags) (context.Context, config.Config) {
	cfg := config.Load()
	if flags.logLevel != "" {
		cfg.LogLevel = flags.logLevel
	}
	if cmd.Flags().Changed("log-json") {
		cfg.LogJSON = flags.logJSON
	}
	if flags.port != "" {
		cfg.AppPort = flags.port
	}

	logCfg := logger.DefaultConfig()
	logCfg.Level = logger.LogLevel(cfg.LogLevel)
	logCfg.JSON = cfg.LogJSON
	logger.Init(logCfg)

	log := logger.GetDefault()
	if !cfg.DotEnvLoaded {
		log.Debug("No .env file found, using process environment")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return logger.ContextWithLogger(ctx, log), cfg
}
