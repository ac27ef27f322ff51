// Package export writes invoice listings as spreadsheets.
package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/optica/backend/internal/domain/invoicing"
	"github.com/xuri/excelize/v2"
)

// XLSXContentType is the MIME type of the generated workbooks
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// DefaultSheetName is the name of the invoice sheet
const DefaultSheetName = "Facturas"

var invoiceHeaders = []string{
	"Número", "Fecha", "Tipo", "Cliente", "Empleado", "Estado",
	"Subtotal", "Descuento", "Subtotal neto", "ISV", "Total", "Recibo",
}

// first and last money columns (Subtotal..Total)
const (
	firstMoneyCol = 7
	lastMoneyCol  = 11
	statusCol     = 6
)

// Options control how the workbook is written
type Options struct {
	SheetName string
	// Precision is the number of decimals shown for amounts; negative means 2
	Precision int32
	// Location is used to render issue dates, defaults to time.Local
	Location *time.Location
}

func (o Options) withDefaults() Options {
	if o.SheetName == "" {
		o.SheetName = DefaultSheetName
	}
	if o.Precision < 0 {
		o.Precision = 2
	}
	if o.Location == nil {
		o.Location = time.Local
	}
	return o
}

// FileName returns the download name of an export produced at now
func FileName(now time.Time) string {
	return fmt.Sprintf("facturas_%s.xlsx", now.Format("20060102_150405"))
}

// WriteInvoices writes one row per invoice plus a totals row that ignores
// voided invoices.
func WriteInvoices(w io.Writer, invoices []invoicing.Invoice, opts Options) (err error) {
	opts = opts.withDefaults()

	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	sheet := opts.SheetName
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DCE6F1"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	moneyFormat := "#,##0"
	if opts.Precision > 0 {
		moneyFormat += "." + strings.Repeat("0", int(opts.Precision))
	}
	moneyStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &moneyFormat})
	if err != nil {
		return fmt.Errorf("money style: %w", err)
	}

	for i, header := range invoiceHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return err
		}
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(invoiceHeaders), 1)
	if err := f.SetCellStyle(sheet, "A1", lastHeader, headerStyle); err != nil {
		return err
	}

	for i := range invoices {
		if err := writeInvoiceRow(f, sheet, i+2, &invoices[i], opts); err != nil {
			return fmt.Errorf("invoice %d: %w", invoices[i].ID, err)
		}
	}

	lastRow := len(invoices) + 1
	totalsRow := lastRow + 1
	if err := f.SetCellValue(sheet, fmt.Sprintf("A%d", totalsRow), "Totales"); err != nil {
		return err
	}
	if len(invoices) > 0 {
		statusColName, _ := excelize.ColumnNumberToName(statusCol)
		for col := firstMoneyCol; col <= lastMoneyCol; col++ {
			name, _ := excelize.ColumnNumberToName(col)
			formula := fmt.Sprintf(`SUMIF(%s2:%s%d,"<>%s",%s2:%s%d)`,
				statusColName, statusColName, lastRow, invoicing.InvoiceStatusVoided, name, name, lastRow)
			if err := f.SetCellFormula(sheet, fmt.Sprintf("%s%d", name, totalsRow), formula); err != nil {
				return err
			}
		}
	}

	firstMoney, _ := excelize.CoordinatesToCellName(firstMoneyCol, 2)
	lastMoney, _ := excelize.CoordinatesToCellName(lastMoneyCol, totalsRow)
	if err := f.SetCellStyle(sheet, firstMoney, lastMoney, moneyStyle); err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "A", "B", 18); err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "L", "L", 22); err != nil {
		return err
	}
	if err := f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeInvoiceRow(f *excelize.File, sheet string, row int, inv *invoicing.Invoice, opts Options) error {
	receipt := ""
	if inv.ReceiptFile != nil {
		receipt = *inv.ReceiptFile
	}
	values := []any{
		inv.Number,
		inv.IssuedAt.In(opts.Location).Format("2006-01-02 15:04"),
		inv.DocumentType,
		inv.CustomerID,
		inv.EmployeeID,
		string(inv.Status),
	}
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return err
		}
	}

	amounts := []float64{
		inv.Subtotal.Round(opts.Precision).InexactFloat64(),
		inv.DiscountTotal.Round(opts.Precision).InexactFloat64(),
		inv.NetSubtotal.Round(opts.Precision).InexactFloat64(),
		inv.TaxAmount.Round(opts.Precision).InexactFloat64(),
		inv.Total.Round(opts.Precision).InexactFloat64(),
	}
	for i, amount := range amounts {
		cell, _ := excelize.CoordinatesToCellName(firstMoneyCol+i, row)
		if err := f.SetCellFloat(sheet, cell, amount, int(opts.Precision), 64); err != nil {
			return err
		}
	}

	cell, _ := excelize.CoordinatesToCellName(lastMoneyCol+1, row)
	return f.SetCellValue(sheet, cell, receipt)
}
