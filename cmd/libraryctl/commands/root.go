// Package commands implements libraryctl, the operator CLI for the library
// backend. Every command reads the same configuration as the server.
package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var configFile string

func Execute() error {
	root := &cobra.Command{
		Use:           "libraryctl",
		Short:         "Operate the library backend",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configFile != "" {
				return os.Setenv("LIBRARY_CONFIG_FILE", configFile)
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "YAML config file (overrides LIBRARY_CONFIG_FILE)")

	root.AddCommand(migrateCmd(), scanOverdueCmd(), workerCmd(), seedCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return root.ExecuteContext(ctx)
}
