package commands

import (
	"github.com/spf13/cobra"

	"github.com/yungbote/library-backend/internal/app"
)

func workerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run job workers and the overdue scan trigger without the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			return a.RunWorkers(cmd.Context())
		},
	}
}
