package main

import (
	"context"
	"fmt"
	"os"
	"time"

	invoicingapp "github.com/optica/backend/internal/application/invoicing"
	"github.com/optica/backend/internal/bootstrap"
	"github.com/optica/backend/internal/infrastructure/export"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

func newExportCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export invoices",
	}
	cmd.AddCommand(newExportXLSXCmd(c))
	return cmd
}

func newExportXLSXCmd(c *cli) *cobra.Command {
	var (
		out      string
		status   string
		from     string
		to       string
		customer int64
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "xlsx",
		Short: "Write the invoice list to an Excel workbook",
		Example: `  facturactl export xlsx --from 2026-03-01 --to 2026-03-31
  facturactl export xlsx --status voided --out anuladas.xlsx`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter := invoicingapp.InvoiceListFilter{Status: status, CustomerID: customer}
			var err error
			if filter.From, err = parseDate(from); err != nil {
				return fmt.Errorf("--from: %w", err)
			}
			if filter.To, err = parseDate(to); err != nil {
				return fmt.Errorf("--to: %w", err)
			}
			if err := invoicingapp.Validate(filter); err != nil {
				return err
			}
			if limit <= 0 {
				limit = c.cfg.Invoice.ExportLimit
			}
			if out == "" {
				out = export.FileName(time.Now())
			}

			return c.withInvoicing(cmd.Context(), func(ctx context.Context, svc *bootstrap.Invoicing) error {
				invoices, err := svc.Invoices.ListForExport(ctx, filter, limit)
				if err != nil {
					return err
				}

				f, err := os.Create(out)
				if err != nil {
					return err
				}
				if err := export.WriteInvoices(f, invoices, export.Options{Precision: c.cfg.Invoice.CurrencyPrecision}); err != nil {
					_ = f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return err
				}

				c.log.Info("Invoices exported", zap.String("file", out), zap.Int("rows", len(invoices)))
				fmt.Fprintln(cmd.OutOrStdout(), out)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default: facturas_<timestamp>.xlsx)")
	cmd.Flags().StringVar(&status, "status", "", "Only invoices in this status (active, paid, pending, voided)")
	cmd.Flags().StringVar(&from, "from", "", "Issued on or after this date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "Issued on or before this date (YYYY-MM-DD)")
	cmd.Flags().Int64Var(&customer, "customer", 0, "Only invoices of this customer id")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum rows (default: invoice.export_limit)")
	return cmd
}

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(dateLayout, s, time.Local)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
