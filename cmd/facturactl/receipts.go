package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/optica/backend/internal/bootstrap"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newReceiptsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "receipts",
		Short: "Manage invoice PDF receipts",
	}
	cmd.AddCommand(newReceiptsRepairCmd(c), newReceiptsRegenerateCmd(c))
	return cmd
}

func newReceiptsRepairCmd(c *cli) *cobra.Command {
	var (
		limit int
		after int64
	)

	cmd := &cobra.Command{
		Use:   "repair",
		Short: "Regenerate receipts for invoices that have none",
		Long: `Finds invoices whose receipt was never recorded (for example because
the PDF renderer was down when they were issued) and renders them again.
Invoices that still fail are listed and the command exits with an error.`,
		Example: `  facturactl receipts repair
  facturactl receipts repair --limit 50
  facturactl receipts repair --limit 50 --after 1200`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withInvoicing(cmd.Context(), func(ctx context.Context, svc *bootstrap.Invoicing) error {
				report, err := svc.Invoices.RepairMissingReceipts(ctx, after, limit)
				if err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "scanned: %d  regenerated: %d  failed: %d\n",
					report.Scanned, report.Regenerated, len(report.Failed))
				if !report.Exhausted {
					fmt.Fprintf(cmd.OutOrStdout(), "more invoices remain, continue with --after %d\n", report.LastID)
				}
				if len(report.Failed) == 0 {
					return nil
				}

				ids := make([]int64, 0, len(report.Failed))
				for id := range report.Failed {
					ids = append(ids, id)
				}
				sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
				for _, id := range ids {
					fmt.Fprintf(cmd.OutOrStdout(), "  factura %d: %s\n", id, report.Failed[id])
				}
				return fmt.Errorf("%d receipts could not be regenerated", len(report.Failed))
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of invoices to repair (0 = all)")
	cmd.Flags().Int64Var(&after, "after", 0, "Only repair invoices with an id above this one")
	return cmd
}

func newReceiptsRegenerateCmd(c *cli) *cobra.Command {
	var id int64

	cmd := &cobra.Command{
		Use:     "regenerate",
		Short:   "Render the receipt of one invoice again",
		Example: `  facturactl receipts regenerate --id 15`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if id <= 0 {
				return fmt.Errorf("--id must be a positive invoice id")
			}
			return c.withInvoicing(cmd.Context(), func(ctx context.Context, svc *bootstrap.Invoicing) error {
				receipt, err := svc.Invoices.RegenerateReceipt(ctx, id)
				if err != nil {
					return err
				}
				c.log.Info("Receipt regenerated",
					zap.Int64("invoice_id", receipt.InvoiceID),
					zap.String("receipt_file", receipt.ReceiptFile))
				fmt.Fprintln(cmd.OutOrStdout(), receipt.ReceiptFile)
				return nil
			})
		},
	}

	cmd.Flags().Int64Var(&id, "id", 0, "Invoice id")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

// withInvoicing opens the database and the invoicing services for one command
func (c *cli) withInvoicing(ctx context.Context, fn func(context.Context, *bootstrap.Invoicing) error) error {
	if ctx == nil {
		ctx = context.Background()
	}

	db, err := bootstrap.OpenDatabase(c.cfg, c.log)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			c.log.Warn("Error closing database", zap.Error(err))
		}
	}()

	svc, err := bootstrap.NewInvoicing(ctx, c.cfg, db, c.log, bootstrap.Options{})
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			c.log.Warn("Error releasing invoicing resources", zap.Error(err))
		}
	}()

	return fn(ctx, svc)
}
