package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Kavirubc/cofound/internal/output"
)

func newOutboxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "outbox",
		Short: "Inspect and redeliver decisions that failed to send",
		Long: `Decisions that could not be recorded because of a network or server
error are kept in the outbox and retried with backoff. Only the redis
backend survives between runs.`,
	}

	cmd.AddCommand(newOutboxListCmd())
	cmd.AddCommand(newOutboxFlushCmd())
	return cmd
}

func newOutboxListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List pending decisions",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			ob, closeOutbox, err := a.openOutbox(ctx)
			if err != nil {
				return err
			}
			defer closeOutbox()
			if ob == nil {
				a.printer.Info("The outbox is disabled in config")
				return nil
			}

			entries, err := ob.List(ctx)
			if err != nil {
				return fmt.Errorf("failed to list outbox: %w", err)
			}
			if len(entries) == 0 {
				a.printer.Info("No pending decisions")
				return nil
			}
			return output.OutboxTable(a.printer.Out(), entries, time.Now())
		},
	}
}

func newOutboxFlushCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "flush",
		Short: "Redeliver pending decisions that are due",
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
			ob, closeOutbox, err := a.openOutbox(ctx)
			if err != nil {
				return err
			}
			defer closeOutbox()
			if ob == nil {
				a.printer.Info("The outbox is disabled in config")
				return nil
			}

			res, err := ob.Flush(ctx, a.client(sess))
			if err != nil {
				return fmt.Errorf("failed to flush outbox: %w", err)
			}
			a.printer.Success("Delivered %d, rescheduled %d, dropped %d", res.Delivered, res.Retried, res.Dropped)
			return nil
		},
	}
}
