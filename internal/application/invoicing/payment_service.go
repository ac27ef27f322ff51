package invoicing

import (
	"context"

	"github.com/optica/backend/internal/domain/catalog"
	"github.com/optica/backend/internal/domain/invoicing"
	"github.com/optica/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PaymentService registers and voids payments against invoices
type PaymentService struct {
	invoices invoicing.InvoiceRepository
	payments invoicing.PaymentRepository
	catalog  catalog.Reader
	calc     *invoicing.Calculator
	metrics  Metrics
	logger   *zap.Logger
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(
	invoices invoicing.InvoiceRepository,
	payments invoicing.PaymentRepository,
	catalogReader catalog.Reader,
	calc *invoicing.Calculator,
	metrics Metrics,
	logger *zap.Logger,
) *PaymentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if calc == nil {
		calc = invoicing.NewCalculator(invoicing.DefaultTaxPolicy())
	}
	return &PaymentService{
		invoices: invoices,
		payments: payments,
		catalog:  catalogReader,
		calc:     calc,
		metrics:  metrics,
		logger:   logger.Named("payment_service"),
	}
}

// Register records a payment. The balance check and the status change run
// while the invoice row is locked, so two concurrent payments can never
// together exceed the invoice total.
func (s *PaymentService) Register(ctx context.Context, actor Actor, req RegisterPaymentRequest) (*PaymentResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "register",
		telemetry.InvoiceID(req.InvoiceID))
	defer span.End()

	if err := Validate(req); err != nil {
		return nil, err
	}

	method, err := s.catalog.FindPaymentMethod(ctx, req.PaymentMethodID)
	if err != nil {
		return nil, mapNotFound(err, ErrPaymentMethodNotFound)
	}
	if !method.Active {
		return nil, ErrPaymentMethodInactive
	}

	amount := s.calc.Policy().Round(req.Amount)
	var (
		remaining decimal.Decimal
		inv       *invoicing.Invoice
		payment   *invoicing.Payment
	)
	labels := telemetry.OperationLabels("payment.register", map[string]string{
		telemetry.ProfilingLabelRegion: "invoice_row_lock",
	})
	telemetry.WithProfilingLabels(ctx, labels, func(ctx context.Context) {
		inv, payment, err = s.payments.RegisterLocked(ctx, req.InvoiceID,
			func(inv *invoicing.Invoice, paid decimal.Decimal) (*invoicing.Payment, error) {
				p, err := invoicing.NewPayment(inv.ID, req.PaymentMethodID, amount, req.Notes, actor.Name())
				if err != nil {
					return nil, err
				}
				remaining, err = inv.ApplyPayment(paid, p)
				if err != nil {
					return nil, err
				}
				return p, nil
			})
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, mapNotFound(err, invoicing.ErrInvoiceNotFound)
	}

	settled := inv.Status == invoicing.InvoiceStatusPaid
	span.SetAttributes(
		telemetry.PaymentID(payment.ID),
		telemetry.Amount(payment.Amount),
		telemetry.InvoiceStatus(string(inv.Status)),
	)
	if s.metrics != nil {
		s.metrics.PaymentRegistered(ctx, payment.Amount, settled)
	}
	s.logger.Info("payment registered",
		zap.Int64("invoice_id", inv.ID),
		zap.Int64("payment_id", payment.ID),
		zap.String("amount", payment.Amount.StringFixed(s.precision())),
		zap.String("remaining", remaining.StringFixed(s.precision())),
		zap.Bool("settled", settled))

	return &PaymentResult{
		Payment:          ToPaymentResponse(payment, s.precision()),
		RemainingBalance: remaining.StringFixed(s.precision()),
		InvoiceStatus:    string(inv.Status),
	}, nil
}

// Void cancels a payment and reopens its invoice when it had been settled
func (s *PaymentService) Void(ctx context.Context, id int64, req VoidPaymentRequest) (*PaymentResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "void",
		telemetry.PaymentID(id))
	defer span.End()

	if err := Validate(req); err != nil {
		return nil, err
	}

	inv, payment, err := s.payments.VoidLocked(ctx, id,
		func(inv *invoicing.Invoice, p *invoicing.Payment) error {
			return inv.ReversePayment(p, req.Reason)
		})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, mapNotFound(err, invoicing.ErrPaymentNotFound)
	}

	paid, err := s.payments.SumActive(ctx, inv.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("payment voided",
		zap.Int64("invoice_id", inv.ID),
		zap.Int64("payment_id", payment.ID),
		zap.String("invoice_status", string(inv.Status)))

	return &PaymentResult{
		Payment:          ToPaymentResponse(payment, s.precision()),
		RemainingBalance: inv.Balance(paid).StringFixed(s.precision()),
		InvoiceStatus:    string(inv.Status),
	}, nil
}

// ListByInvoice returns the payments of an invoice together with its balance
func (s *PaymentService) ListByInvoice(ctx context.Context, invoiceID int64) (*InvoicePaymentsResponse, error) {
	inv, err := s.invoices.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	payments, err := s.payments.FindByInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	paid := invoicing.SumActive(payments)
	return &InvoicePaymentsResponse{
		InvoiceID:     inv.ID,
		InvoiceStatus: string(inv.Status),
		Total:         inv.Total.StringFixed(s.precision()),
		PaidAmount:    paid.StringFixed(s.precision()),
		Balance:       inv.Balance(paid).StringFixed(s.precision()),
		Payments:      ToPaymentResponses(payments, s.precision()),
	}, nil
}

func (s *PaymentService) precision() int32 {
	return s.calc.Policy().Precision
}
