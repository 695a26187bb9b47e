package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Kavirubc/cofound/internal/output"
)

func newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show your recent swipes",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			sess, err := a.requireSession()
			if err != nil {
				return err
			}

			records, err := a.client(sess).SwipeHistory(ctx, sess.UserID(), limit)
			if err != nil {
				return fmt.Errorf("failed to fetch swipe history: %w", err)
			}
			if len(records) == 0 {
				a.printer.Info("No swipes yet")
				return nil
			}
			return output.HistoryTable(a.printer.Out(), records)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "number of swipes to show")
	return cmd
}
