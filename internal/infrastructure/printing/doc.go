// Package printing turns invoice receipts into PDF files.
//
// A receipt goes through three steps:
//   - TemplateEngine fills the HTML receipt template with a ReceiptDocument
//   - PDFRenderer (ChromedpRenderer) prints the HTML to PDF in headless Chrome
//   - ReceiptRenderer stores the PDF under the invoice's receipt file name
//
// Example usage:
//
//	pdf, err := NewChromedpRenderer(&ChromedpConfig{NoSandbox: true})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer pdf.Close()
//
//	receipts := NewReceiptRenderer(pdf, store, WithCompany(company))
//	name, err := receipts.Render(ctx, doc) // "factura-42.pdf"
package printing
