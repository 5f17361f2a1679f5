package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yungbote/library-backend/internal/app"
)

func scanOverdueCmd() *cobra.Command {
	var deliver bool
	cmd := &cobra.Command{
		Use:   "scan-overdue",
		Short: "Scan for overdue loans now and enqueue reminders",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := app.New(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.Services.Scanner.ScanOverdue(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "overdue loans: %d, recipients: %d, reminders enqueued: %d, skipped: %d\n",
				res.Loans, res.Recipients, res.Enqueued, res.Skipped)

			if !deliver {
				return nil
			}
			n, err := a.Services.Worker.Drain(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "jobs processed: %d\n", n)
			return nil
		},
	}
	cmd.Flags().BoolVar(&deliver, "deliver", false, "run queued jobs in-process before exiting")
	return cmd
}
