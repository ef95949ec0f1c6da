// Command davlockd serves a WebDAV lock store and If header evaluator over
// gRPC.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jathurchan/davlock/config"
	"github.com/jathurchan/davlock/logger"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config at path, or the defaults when path is empty,
// and applies the log level override.
func loadConfig(path, logLevel string) (*config.Config, error) {
	cfg := config.Default()
	if path != "" {
		var err error
		cfg, err = config.ReadFromFile(path)
		if err != nil {
			return nil, err
		}
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "davlockd",
		Short:        "WebDAV lock service",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringP("config", "c", "", "Path to the TOML config file (defaults are used when empty)")
	root.PersistentFlags().String("log-level", "", "Override log.level (debug, info, warn, error)")

	root.AddCommand(newServeCmd())
	root.AddCommand(newInitCmd())
	root.AddCommand(newConfigCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the lock service until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			level, _ := cmd.Flags().GetString("log-level")

			cfg, err := loadConfig(path, level)
			if err != nil {
				return err
			}
			log := logger.NewStdLogger(cfg.Log.Level).WithComponent("davlockd")

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			d, err := newDaemon(ctx, cfg, log)
			if err != nil {
				return err
			}
			return d.run(ctx)
		},
	}
}

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init PATH",
		Short: "Write a default config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Init(args[0], config.Default()); err != nil {
				return fmt.Errorf("failed to initialize config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration initialized at %s\n", args[0])
			return nil
		},
	}
}

func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Validate the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			if _, err := loadConfig(path, ""); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Configuration OK")
			return nil
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			level, _ := cmd.Flags().GetString("log-level")
			cfg, err := loadConfig(path, level)
			if err != nil {
				return err
			}
			m := &config.Manager{}
			return m.Write(cmd.OutOrStdout(), cfg)
		},
	})
	return configCmd
}
