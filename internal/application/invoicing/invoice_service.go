package invoicing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/optica/backend/internal/domain/catalog"
	"github.com/optica/backend/internal/domain/invoicing"
	"github.com/optica/backend/internal/domain/partner"
	"github.com/optica/backend/internal/domain/shared"
	"github.com/optica/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Reference lookup errors
var (
	ErrCustomerNotFound      = shared.NewDomainError("CUSTOMER_NOT_FOUND", "Customer not found")
	ErrEmployeeNotFound      = shared.NewDomainError("EMPLOYEE_NOT_FOUND", "Employee not found")
	ErrEmployeeInactive      = shared.NewDomainError("EMPLOYEE_INACTIVE", "Employee is not active")
	ErrPaymentMethodNotFound = shared.NewDomainError("PAYMENT_METHOD_NOT_FOUND", "Payment method not found")
	ErrPaymentMethodInactive = shared.NewDomainError("PAYMENT_METHOD_INACTIVE", "Payment method is not active")
	ErrProductNotFound       = shared.NewDomainError("PRODUCT_NOT_FOUND", "Product not found")
	ErrProductInactive       = shared.NewDomainError("PRODUCT_INACTIVE", "Product is not active")
	ErrAttributeNotFound     = shared.NewDomainError("ATTRIBUTE_NOT_FOUND", "Product attribute not found")
	ErrDiscountNotFound      = shared.NewDomainError("DISCOUNT_NOT_FOUND", "Discount not found")
	ErrDiscountInactive      = shared.NewDomainError("DISCOUNT_INACTIVE", "Discount is not active")
	ErrRequestInProgress     = shared.NewDomainError("IDEMPOTENCY_IN_PROGRESS", "A request with this idempotency key is still being processed")
	ErrReceiptNotFound       = shared.NewDomainError("RECEIPT_NOT_FOUND", "Receipt file not found")
)

// Metrics records business counters. A nil Metrics is allowed.
type Metrics interface {
	InvoiceCreated(ctx context.Context, total decimal.Decimal)
	InvoiceVoided(ctx context.Context)
	ReceiptRendered(ctx context.Context, ok bool)
	PaymentRegistered(ctx context.Context, amount decimal.Decimal, settled bool)
}

// InvoiceServiceConfig holds the collaborators of InvoiceService
type InvoiceServiceConfig struct {
	Invoices       invoicing.InvoiceRepository
	Payments       invoicing.PaymentRepository
	Catalog        catalog.Reader
	Partners       partner.Reader
	Calculator     *invoicing.Calculator
	Renderer       ReceiptRenderer
	Receipts       ReceiptStore
	Idempotency    shared.IdempotencyStore
	IdempotencyTTL time.Duration
	Metrics        Metrics
	Logger         *zap.Logger
}

// InvoiceService handles invoice issuing, voiding and receipts
type InvoiceService struct {
	invoices       invoicing.InvoiceRepository
	payments       invoicing.PaymentRepository
	catalog        catalog.Reader
	partners       partner.Reader
	calc           *invoicing.Calculator
	renderer       ReceiptRenderer
	receipts       ReceiptStore
	idempotency    shared.IdempotencyStore
	idempotencyTTL time.Duration
	metrics        Metrics
	logger         *zap.Logger
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(cfg InvoiceServiceConfig) *InvoiceService {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	calc := cfg.Calculator
	if calc == nil {
		calc = invoicing.NewCalculator(invoicing.DefaultTaxPolicy())
	}
	ttl := cfg.IdempotencyTTL
	if ttl == 0 {
		ttl = shared.DefaultIdempotencyTTL
	}
	return &InvoiceService{
		invoices:       cfg.Invoices,
		payments:       cfg.Payments,
		catalog:        cfg.Catalog,
		partners:       cfg.Partners,
		calc:           calc,
		renderer:       cfg.Renderer,
		receipts:       cfg.Receipts,
		idempotency:    cfg.Idempotency,
		idempotencyTTL: ttl,
		metrics:        cfg.Metrics,
		logger:         logger.Named("invoice_service"),
	}
}

func (s *InvoiceService) precision() int32 {
	return s.calc.Policy().Precision
}

// Create issues an invoice with its lines and discounts and renders its receipt.
// The receipt is best effort: a rendering failure is logged and reported in the
// result but the committed invoice stands.
func (s *InvoiceService) Create(ctx context.Context, actor Actor, req CreateInvoiceRequest, idempotencyKey string) (*CreateInvoiceResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "create")
	defer span.End()

	if err := Validate(req); err != nil {
		return nil, err
	}

	idempotencyKey = strings.TrimSpace(idempotencyKey)
	if idempotencyKey != "" && s.idempotency != nil {
		replay, err := s.replay(ctx, idempotencyKey)
		if err != nil || replay != nil {
			return replay, err
		}
		reserved, err := s.idempotency.Reserve(ctx, idempotencyKey, s.idempotencyTTL)
		if err != nil {
			return nil, fmt.Errorf("reserve idempotency key: %w", err)
		}
		if !reserved {
			return nil, ErrRequestInProgress
		}
	}

	result, err := s.create(ctx, actor, req)
	if idempotencyKey != "" && s.idempotency != nil {
		if err != nil {
			if relErr := s.idempotency.Release(ctx, idempotencyKey); relErr != nil {
				s.logger.Warn("failed to release idempotency key", zap.String("key", idempotencyKey), zap.Error(relErr))
			}
		} else if compErr := s.idempotency.Complete(ctx, idempotencyKey, strconv.FormatInt(result.Invoice.ID, 10), s.idempotencyTTL); compErr != nil {
			s.logger.Warn("failed to complete idempotency key", zap.String("key", idempotencyKey), zap.Error(compErr))
		}
	}
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	span.SetAttributes(
		telemetry.InvoiceID(result.Invoice.ID),
		telemetry.InvoiceNumber(result.Invoice.Number),
		telemetry.LineCount(len(req.Lines)),
		telemetry.AmountKey.String(result.Invoice.Total),
		telemetry.Replayed(result.Replayed),
	)
	return result, nil
}

func (s *InvoiceService) replay(ctx context.Context, key string) (*CreateInvoiceResult, error) {
	value, found, err := s.idempotency.Lookup(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("lookup idempotency key: %w", err)
	}
	if !found {
		return nil, nil
	}
	if value == "" {
		return nil, ErrRequestInProgress
	}
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt idempotency record %q: %w", key, err)
	}
	inv, err := s.invoices.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToInvoiceResponse(inv, s.precision())
	return &CreateInvoiceResult{Invoice: &resp, Replayed: true}, nil
}

func (s *InvoiceService) create(ctx context.Context, actor Actor, req CreateInvoiceRequest) (*CreateInvoiceResult, error) {
	if err := s.checkHeaderReferences(ctx, req); err != nil {
		return nil, err
	}

	lines, err := s.buildLines(ctx, req.Lines)
	if err != nil {
		return nil, err
	}
	discounts, err := s.buildDiscounts(ctx, req.Discounts, lines)
	if err != nil {
		return nil, err
	}

	inv, err := invoicing.NewInvoice(invoicing.IssueInvoiceInput{
		DocumentType:    req.DocumentType,
		CustomerID:      req.CustomerID,
		EmployeeID:      req.EmployeeID,
		PaymentMethodID: req.PaymentMethodID,
		Status:          invoicing.InvoiceStatus(req.Status),
		Notes:           req.Notes,
		IssuedBy:        actor.Name(),
		Lines:           lines,
		Discounts:       discounts,
	}, s.calc)
	if err != nil {
		return nil, err
	}

	if err := s.invoices.Create(ctx, inv); err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.InvoiceCreated(ctx, inv.Total)
	}

	s.logger.Info("invoice issued",
		zap.Int64("invoice_id", inv.ID),
		zap.String("number", inv.Number),
		zap.String("total", inv.Total.StringFixed(s.precision())),
		zap.String("issued_by", inv.IssuedBy))

	result := &CreateInvoiceResult{}
	if _, err := s.generateReceipt(ctx, inv); err != nil {
		s.logger.Warn("receipt generation failed, invoice kept without receipt",
			zap.Int64("invoice_id", inv.ID),
			zap.Error(err))
		result.ReceiptError = err.Error()
	}

	resp := ToInvoiceResponse(inv, s.precision())
	result.Invoice = &resp
	return result, nil
}

func (s *InvoiceService) checkHeaderReferences(ctx context.Context, req CreateInvoiceRequest) error {
	if _, err := s.partners.FindCustomer(ctx, req.CustomerID); err != nil {
		return mapNotFound(err, ErrCustomerNotFound)
	}
	employee, err := s.partners.FindEmployee(ctx, req.EmployeeID)
	if err != nil {
		return mapNotFound(err, ErrEmployeeNotFound)
	}
	if !employee.Active {
		return ErrEmployeeInactive
	}
	method, err := s.catalog.FindPaymentMethod(ctx, req.PaymentMethodID)
	if err != nil {
		return mapNotFound(err, ErrPaymentMethodNotFound)
	}
	if !method.Active {
		return ErrPaymentMethodInactive
	}
	return nil
}

func (s *InvoiceService) buildLines(ctx context.Context, inputs []CreateInvoiceLineInput) ([]invoicing.InvoiceLine, error) {
	lines := make([]invoicing.InvoiceLine, 0, len(inputs))
	for _, in := range inputs {
		if in.ProductID == nil {
			line, err := invoicing.NewManualLine(in.Description, in.Quantity, *in.UnitPrice)
			if err != nil {
				return nil, err
			}
			lines = append(lines, line)
			continue
		}

		product, err := s.catalog.FindProduct(ctx, *in.ProductID)
		if err != nil {
			return nil, mapNotFound(err, ErrProductNotFound)
		}
		if !product.IsActive() {
			return nil, shared.NewDomainError(ErrProductInactive.Code,
				fmt.Sprintf("Product %s is not active", product.Name))
		}

		price := product.Price
		description := product.Name
		if in.AttributeID != nil {
			attr, err := s.catalog.FindProductAttribute(ctx, *in.AttributeID)
			if err != nil {
				return nil, mapNotFound(err, ErrAttributeNotFound)
			}
			if attr.ProductID != product.ID {
				return nil, shared.NewDomainError(invoicing.CodeInvalidReference,
					fmt.Sprintf("Attribute %d does not belong to product %d", attr.ID, product.ID))
			}
			price = attr.Price
			description = product.Name + " - " + attr.Name
		}
		if in.UnitPrice != nil {
			price = *in.UnitPrice
		}
		if d := strings.TrimSpace(in.Description); d != "" {
			description = d
		}

		line, err := invoicing.NewCatalogLine(product.ID, in.AttributeID, description, in.Quantity, price)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func (s *InvoiceService) buildDiscounts(ctx context.Context, inputs []CreateInvoiceDiscountInput, lines []invoicing.InvoiceLine) ([]invoicing.InvoiceDiscount, error) {
	if len(inputs) == 0 {
		return nil, nil
	}

	amounts := make([]invoicing.LineAmount, len(lines))
	for i, l := range lines {
		amounts[i] = l.Amount()
	}
	subtotal := s.calc.Compute(amounts, nil).Subtotal

	discounts := make([]invoicing.InvoiceDiscount, 0, len(inputs))
	for _, in := range inputs {
		def, err := s.catalog.FindDiscount(ctx, in.DiscountID)
		if err != nil {
			return nil, mapNotFound(err, ErrDiscountNotFound)
		}
		if !def.Active {
			return nil, shared.NewDomainError(ErrDiscountInactive.Code,
				fmt.Sprintf("Discount %s is not active", def.Name))
		}

		amount := s.calc.PercentageOf(subtotal, def.Percentage)
		if in.Amount != nil {
			amount = *in.Amount
		}

		d, err := invoicing.NewInvoiceDiscount(def.ID, def.Name, amount)
		if err != nil {
			return nil, err
		}
		discounts = append(discounts, d)
	}
	return discounts, nil
}

// GetByID returns an invoice with its lines, discounts, payments and balance
func (s *InvoiceService) GetByID(ctx context.Context, id int64) (*InvoiceResponse, error) {
	inv, err := s.invoices.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToInvoiceResponse(inv, s.precision())

	if s.payments != nil {
		payments, err := s.payments.FindByInvoice(ctx, id)
		if err != nil {
			return nil, err
		}
		paid := invoicing.SumActive(payments)
		paidStr := paid.StringFixed(s.precision())
		balance := inv.Balance(paid).StringFixed(s.precision())
		resp.Payments = ToPaymentResponses(payments, s.precision())
		resp.PaidAmount = &paidStr
		resp.Balance = &balance
	}
	return &resp, nil
}

// List returns a page of invoices
func (s *InvoiceService) List(ctx context.Context, filter InvoiceListFilter) ([]InvoiceResponse, int64, error) {
	invoices, total, err := s.invoices.FindAll(ctx, toDomainFilter(filter))
	if err != nil {
		return nil, 0, err
	}
	out := make([]InvoiceResponse, len(invoices))
	for i := range invoices {
		out[i] = ToInvoiceResponse(&invoices[i], s.precision())
	}
	return out, total, nil
}

// ListForExport returns every invoice matching the filter, ignoring pagination
func (s *InvoiceService) ListForExport(ctx context.Context, filter InvoiceListFilter, limit int) ([]invoicing.Invoice, error) {
	f := toDomainFilter(filter)
	f.Page = 1
	f.PageSize = limit
	invoices, _, err := s.invoices.FindAll(ctx, f)
	return invoices, err
}

func toDomainFilter(filter InvoiceListFilter) invoicing.InvoiceFilter {
	f := shared.DefaultFilter()
	f.OrderBy = "issued_at"
	if filter.Page > 0 {
		f.Page = filter.Page
	}
	if filter.PageSize > 0 {
		f.PageSize = filter.PageSize
	}
	if filter.OrderBy != "" {
		f.OrderBy = filter.OrderBy
	}
	if filter.OrderDir != "" {
		f.OrderDir = filter.OrderDir
	}
	return invoicing.InvoiceFilter{
		Filter:     f,
		Status:     invoicing.InvoiceStatus(filter.Status),
		CustomerID: filter.CustomerID,
		EmployeeID: filter.EmployeeID,
		From:       filter.From,
		To:         filter.To,
	}
}

// Void cancels an invoice
func (s *InvoiceService) Void(ctx context.Context, actor Actor, id int64, req VoidInvoiceRequest) (*InvoiceResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "void",
		telemetry.InvoiceID(id))
	defer span.End()

	if err := Validate(req); err != nil {
		return nil, err
	}

	inv, err := s.invoices.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := inv.Void(req.Reason, actor.Name()); err != nil {
		return nil, err
	}
	if err := s.invoices.UpdateStatus(ctx, inv); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.InvoiceVoided(ctx)
	}

	s.logger.Info("invoice voided",
		zap.Int64("invoice_id", inv.ID),
		zap.String("voided_by", inv.VoidedBy),
		zap.String("reason", inv.VoidReason))

	resp := ToInvoiceResponse(inv, s.precision())
	return &resp, nil
}

// Amend handles a direct edit request. Issued invoices are immutable so it
// always fails once the invoice is known to exist.
func (s *InvoiceService) Amend(ctx context.Context, id int64) error {
	inv, err := s.invoices.FindByID(ctx, id)
	if err != nil {
		return err
	}
	return inv.Amend()
}

// RegenerateReceipt renders the receipt of an invoice again and records it
func (s *InvoiceService) RegenerateReceipt(ctx context.Context, id int64) (*ReceiptResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "regenerate_receipt",
		telemetry.InvoiceID(id))
	defer span.End()

	inv, err := s.invoices.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	name, err := s.generateReceipt(ctx, inv)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return &ReceiptResponse{InvoiceID: inv.ID, ReceiptFile: name}, nil
}

// RepairMissingReceipts regenerates receipts for up to limit invoices after
// afterID that have none recorded. Invoices that keep failing stay behind the
// cursor, so callers paging with LastID reach the newer ones.
func (s *InvoiceService) RepairMissingReceipts(ctx context.Context, afterID int64, limit int) (*RepairReport, error) {
	invoices, err := s.invoices.FindWithoutReceipt(ctx, afterID, limit)
	if err != nil {
		return nil, err
	}

	report := &RepairReport{
		Scanned:   len(invoices),
		Failed:    map[int64]string{},
		LastID:    afterID,
		Exhausted: limit <= 0 || len(invoices) < limit,
	}
	for i := range invoices {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.LastID = invoices[i].ID
		inv, err := s.invoices.FindByID(ctx, invoices[i].ID)
		if err == nil {
			_, err = s.generateReceipt(ctx, inv)
		}
		if err != nil {
			report.Failed[invoices[i].ID] = err.Error()
			s.logger.Warn("receipt repair failed", zap.Int64("invoice_id", invoices[i].ID), zap.Error(err))
			continue
		}
		report.Regenerated++
	}
	return report, nil
}

// OpenReceipt returns the receipt PDF of an invoice, regenerating it when it
// was never produced or has gone missing from the store.
func (s *InvoiceService) OpenReceipt(ctx context.Context, id int64) (io.ReadCloser, string, error) {
	inv, err := s.invoices.FindByID(ctx, id)
	if err != nil {
		return nil, "", err
	}

	name := ""
	if inv.HasReceipt() {
		name = *inv.ReceiptFile
		exists, err := s.receipts.Exists(ctx, name)
		if err != nil {
			return nil, "", err
		}
		if !exists {
			s.logger.Warn("receipt file missing, regenerating", zap.Int64("invoice_id", id), zap.String("file", name))
			name = ""
		}
	}
	if name == "" {
		name, err = s.generateReceipt(ctx, inv)
		if err != nil {
			return nil, "", err
		}
	}

	rc, err := s.receipts.Open(ctx, name)
	if err != nil {
		return nil, "", err
	}
	return rc, name, nil
}

func (s *InvoiceService) generateReceipt(ctx context.Context, inv *invoicing.Invoice) (string, error) {
	if s.renderer == nil {
		return "", errors.New("receipt renderer is not configured")
	}

	doc, err := s.buildReceiptDocument(ctx, inv)
	if err != nil {
		s.recordReceipt(ctx, false)
		return "", err
	}
	name, err := s.renderer.Render(ctx, doc)
	if err != nil {
		s.recordReceipt(ctx, false)
		return "", fmt.Errorf("render receipt: %w", err)
	}
	if err := s.invoices.SetReceiptFile(ctx, inv.ID, name); err != nil {
		s.recordReceipt(ctx, false)
		return "", fmt.Errorf("record receipt file: %w", err)
	}
	inv.AttachReceipt(name)
	s.recordReceipt(ctx, true)
	return name, nil
}

func (s *InvoiceService) recordReceipt(ctx context.Context, ok bool) {
	if s.metrics != nil {
		s.metrics.ReceiptRendered(ctx, ok)
	}
}

func (s *InvoiceService) buildReceiptDocument(ctx context.Context, inv *invoicing.Invoice) (*ReceiptDocument, error) {
	customer, err := s.partners.FindCustomer(ctx, inv.CustomerID)
	if err != nil {
		return nil, mapNotFound(err, ErrCustomerNotFound)
	}
	doc := &ReceiptDocument{
		FileName:       invoicing.ReceiptFileName(inv.ID),
		InvoiceID:      inv.ID,
		Number:         inv.Number,
		DocumentType:   inv.DocumentType,
		IssuedAt:       inv.IssuedAt,
		Status:         string(inv.Status),
		Subtotal:       inv.Subtotal,
		DiscountTotal:  inv.DiscountTotal,
		NetSubtotal:    inv.NetSubtotal,
		TaxRate:        inv.TaxRate,
		TaxAmount:      inv.TaxAmount,
		Total:          inv.Total,
		Notes:          inv.Notes,
		VoidReason:     inv.VoidReason,
		CurrencyDigits: s.precision(),
		GeneratedAt:    time.Now(),
		Customer: ReceiptParty{
			Name:    customer.Name,
			RTN:     customer.RTN,
			Phone:   customer.Phone,
			Email:   customer.Email,
			Address: customer.Address,
		},
	}

	if employee, err := s.partners.FindEmployee(ctx, inv.EmployeeID); err == nil {
		doc.EmployeeName = employee.Name
	}
	if method, err := s.catalog.FindPaymentMethod(ctx, inv.PaymentMethodID); err == nil {
		doc.PaymentMethod = method.Name
	}

	for _, l := range inv.Lines {
		line := ReceiptLine{
			Description: l.Description,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			LineTotal:   l.LineTotal,
		}
		if l.ProductID != nil {
			if product, err := s.catalog.FindProduct(ctx, *l.ProductID); err == nil {
				line.Code = product.Code
			}
		}
		doc.Lines = append(doc.Lines, line)
	}
	for _, d := range inv.Discounts {
		doc.Discounts = append(doc.Discounts, ReceiptDiscount{Name: d.Name, Amount: d.Amount})
	}
	return doc, nil
}

// mapNotFound replaces a generic not-found error with a specific one
func mapNotFound(err, specific error) error {
	if errors.Is(err, shared.ErrNotFound) {
		return specific
	}
	return err
}
