package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yungbote/library-backend/internal/app"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig()
			if err != nil {
				return err
			}
			log, err := app.NewLogger(cfg)
			if err != nil {
				return err
			}
			defer log.Sync()
			pg, err := app.OpenDB(log, cfg)
			if err != nil {
				return err
			}
			defer pg.Close()
			fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date.")
			return nil
		},
	}
}
