package router

import (
	"net/http"

	"github.com/optica/backend/internal/interfaces/http/handler"
)

// InvoicingHandlers are the handlers mounted under the versioned API
type InvoicingHandlers struct {
	Invoices *handler.InvoiceHandler
	Payments *handler.PaymentHandler
	Reports  *handler.ReportHandler
}

// InvoicingRoutes is the route table of the invoicing API. The Spanish
// paths are the ones the point-of-sale dashboard calls.
func InvoicingRoutes(h InvoicingHandlers) []Group {
	return []Group{
		{
			Name: "documents",
			Routes: []Route{
				{http.MethodPost, "/factura-completa", h.Invoices.Create},
				{http.MethodGet, "/factura/:id/pdf", h.Invoices.DownloadReceipt},
			},
		},
		{
			Name:   "invoices",
			Prefix: "/facturas",
			Routes: []Route{
				{http.MethodGet, "", h.Invoices.List},
				{http.MethodGet, "/:id", h.Invoices.Get},
				{http.MethodPut, "/:id", h.Invoices.Update},
				{http.MethodPatch, "/:id/anular", h.Invoices.Void},
				{http.MethodPost, "/:id/pdf", h.Invoices.RegenerateReceipt},
				{http.MethodGet, "/:id/pagos", h.Payments.ListByInvoice},
			},
		},
		{
			Name:   "payments",
			Prefix: "/pagos",
			Routes: []Route{
				{http.MethodPost, "", h.Payments.Register},
				{http.MethodPatch, "/:id/anular", h.Payments.Void},
			},
		},
		{
			Name:   "reports",
			Prefix: "/reportes",
			Routes: []Route{
				{http.MethodGet, "/facturas.xlsx", h.Reports.ExportInvoices},
			},
		},
	}
}

// RegisterInvoicing queues the invoicing route table
func (r *Router) RegisterInvoicing(h InvoicingHandlers) *Router {
	return r.Register(InvoicingRoutes(h)...)
}
