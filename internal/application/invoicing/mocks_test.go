package invoicing

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"

	"github.com/optica/backend/internal/domain/catalog"
	"github.com/optica/backend/internal/domain/invoicing"
	"github.com/optica/backend/internal/domain/partner"
	"github.com/optica/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockInvoiceRepository is a mock implementation of InvoiceRepository
type MockInvoiceRepository struct {
	mock.Mock
}

func (m *MockInvoiceRepository) Create(ctx context.Context, inv *invoicing.Invoice) error {
	args := m.Called(ctx, inv)
	return args.Error(0)
}

func (m *MockInvoiceRepository) FindByID(ctx context.Context, id int64) (*invoicing.Invoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*invoicing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindAll(ctx context.Context, filter invoicing.InvoiceFilter) ([]invoicing.Invoice, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]invoicing.Invoice), args.Get(1).(int64), args.Error(2)
}

func (m *MockInvoiceRepository) UpdateStatus(ctx context.Context, inv *invoicing.Invoice) error {
	args := m.Called(ctx, inv)
	return args.Error(0)
}

func (m *MockInvoiceRepository) SetReceiptFile(ctx context.Context, id int64, filename string) error {
	args := m.Called(ctx, id, filename)
	return args.Error(0)
}

func (m *MockInvoiceRepository) FindWithoutReceipt(ctx context.Context, afterID int64, limit int) ([]invoicing.Invoice, error) {
	args := m.Called(ctx, afterID, limit)
	return args.Get(0).([]invoicing.Invoice), args.Error(1)
}

// fakePaymentRepository keeps payments in memory and serializes the locked
// callbacks with a mutex the way a row lock serializes them in the database.
type fakePaymentRepository struct {
	mu       sync.Mutex
	invoices map[int64]*invoicing.Invoice
	payments []invoicing.Payment
	nextID   int64
}

func newFakePaymentRepository(invoices ...*invoicing.Invoice) *fakePaymentRepository {
	r := &fakePaymentRepository{invoices: map[int64]*invoicing.Invoice{}}
	for _, inv := range invoices {
		r.invoices[inv.ID] = inv
	}
	return r
}

func (r *fakePaymentRepository) RegisterLocked(_ context.Context, invoiceID int64, decide invoicing.PaymentDecision) (*invoicing.Invoice, *invoicing.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.invoices[invoiceID]
	if !ok {
		return nil, nil, invoicing.ErrInvoiceNotFound
	}
	inv := *stored
	p, err := decide(&inv, r.sumActive(invoiceID))
	if err != nil {
		return nil, nil, err
	}
	r.nextID++
	p.ID = r.nextID
	r.payments = append(r.payments, *p)
	*stored = inv
	return &inv, p, nil
}

func (r *fakePaymentRepository) VoidLocked(_ context.Context, paymentID int64, reverse invoicing.PaymentReversal) (*invoicing.Invoice, *invoicing.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.payments {
		if r.payments[i].ID != paymentID {
			continue
		}
		p := r.payments[i]
		stored := r.invoices[p.InvoiceID]
		inv := *stored
		if err := reverse(&inv, &p); err != nil {
			return nil, nil, err
		}
		r.payments[i] = p
		*stored = inv
		return &inv, &p, nil
	}
	return nil, nil, invoicing.ErrPaymentNotFound
}

func (r *fakePaymentRepository) FindByID(_ context.Context, id int64) (*invoicing.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.payments {
		if r.payments[i].ID == id {
			p := r.payments[i]
			return &p, nil
		}
	}
	return nil, invoicing.ErrPaymentNotFound
}

func (r *fakePaymentRepository) FindByInvoice(_ context.Context, invoiceID int64) ([]invoicing.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []invoicing.Payment
	for _, p := range r.payments {
		if p.InvoiceID == invoiceID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakePaymentRepository) SumActive(_ context.Context, invoiceID int64) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sumActive(invoiceID), nil
}

func (r *fakePaymentRepository) sumActive(invoiceID int64) decimal.Decimal {
	sum := decimal.Zero
	for _, p := range r.payments {
		if p.InvoiceID == invoiceID && p.IsActive() {
			sum = sum.Add(p.Amount)
		}
	}
	return sum
}

// stubCatalog serves catalog records from maps
type stubCatalog struct {
	products   map[int64]*catalog.Product
	attributes map[int64]*catalog.ProductAttribute
	discounts  map[int64]*catalog.Discount
	methods    map[int64]*catalog.PaymentMethod
}

func newStubCatalog() *stubCatalog {
	product := &catalog.Product{Code: "LEN-001", Name: "Lente monofocal", Price: decimal.NewFromInt(100), Status: catalog.ProductStatusActive}
	product.ID = 1
	frame := &catalog.Product{Code: "ARM-002", Name: "Aro metalico", Price: decimal.NewFromInt(80), Status: catalog.ProductStatusInactive}
	frame.ID = 2
	discount := &catalog.Discount{Name: "Tercera edad", Percentage: decimal.NewFromInt(10), Active: true}
	discount.ID = 1
	cash := &catalog.PaymentMethod{Name: "Efectivo", Active: true}
	cash.ID = 1
	card := &catalog.PaymentMethod{Name: "Cheque", Active: false}
	card.ID = 2
	return &stubCatalog{
		products: map[int64]*catalog.Product{1: product, 2: frame},
		attributes: map[int64]*catalog.ProductAttribute{
			10: {ID: 10, ProductID: 1, Name: "Antirreflejo", Price: decimal.NewFromInt(150)},
		},
		discounts: map[int64]*catalog.Discount{1: discount},
		methods:   map[int64]*catalog.PaymentMethod{1: cash, 2: card},
	}
}

func (c *stubCatalog) FindProduct(_ context.Context, id int64) (*catalog.Product, error) {
	if p, ok := c.products[id]; ok {
		return p, nil
	}
	return nil, shared.ErrNotFound
}

func (c *stubCatalog) FindProductAttribute(_ context.Context, id int64) (*catalog.ProductAttribute, error) {
	if a, ok := c.attributes[id]; ok {
		return a, nil
	}
	return nil, shared.ErrNotFound
}

func (c *stubCatalog) FindDiscount(_ context.Context, id int64) (*catalog.Discount, error) {
	if d, ok := c.discounts[id]; ok {
		return d, nil
	}
	return nil, shared.ErrNotFound
}

func (c *stubCatalog) FindPaymentMethod(_ context.Context, id int64) (*catalog.PaymentMethod, error) {
	if m, ok := c.methods[id]; ok {
		return m, nil
	}
	return nil, shared.ErrNotFound
}

// stubPartners serves one customer and one employee
type stubPartners struct{}

func (stubPartners) FindCustomer(_ context.Context, id int64) (*partner.Customer, error) {
	if id != 1 {
		return nil, shared.ErrNotFound
	}
	c := &partner.Customer{Name: "Maria Lopez", RTN: "08011990123456"}
	c.ID = 1
	return c, nil
}

func (stubPartners) FindEmployee(_ context.Context, id int64) (*partner.Employee, error) {
	switch id {
	case 1:
		e := &partner.Employee{Name: "Carlos Mejia", Active: true}
		e.ID = 1
		return e, nil
	case 2:
		e := &partner.Employee{Name: "Ana Reyes", Active: false}
		e.ID = 2
		return e, nil
	}
	return nil, shared.ErrNotFound
}

// MockReceiptRenderer is a mock implementation of ReceiptRenderer
type MockReceiptRenderer struct {
	mock.Mock
}

func (m *MockReceiptRenderer) Render(ctx context.Context, doc *ReceiptDocument) (string, error) {
	args := m.Called(ctx, doc)
	return args.String(0), args.Error(1)
}

// memoryReceiptStore holds receipt bytes by name
type memoryReceiptStore struct {
	files map[string][]byte
}

func (s *memoryReceiptStore) Open(_ context.Context, name string) (io.ReadCloser, error) {
	b, ok := s.files[name]
	if !ok {
		return nil, ErrReceiptNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (s *memoryReceiptStore) Exists(_ context.Context, name string) (bool, error) {
	_, ok := s.files[name]
	return ok, nil
}

// memoryIdempotencyStore is a minimal IdempotencyStore
type memoryIdempotencyStore struct {
	mu   sync.Mutex
	keys map[string]string
}

func newMemoryIdempotencyStore() *memoryIdempotencyStore {
	return &memoryIdempotencyStore{keys: map[string]string{}}
}

func (s *memoryIdempotencyStore) Reserve(_ context.Context, key string, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.keys[key]; ok {
		return false, nil
	}
	s.keys[key] = ""
	return true, nil
}

func (s *memoryIdempotencyStore) Complete(_ context.Context, key, result string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[key] = result
	return nil
}

func (s *memoryIdempotencyStore) Lookup(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.keys[key]
	return v, ok, nil
}

func (s *memoryIdempotencyStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, key)
	return nil
}

func (s *memoryIdempotencyStore) Close() error { return nil }

// recordingMetrics counts metric calls
type recordingMetrics struct {
	mu              sync.Mutex
	created         int
	voided          int
	receiptOK       int
	receiptFailed   int
	payments        int
	settledPayments int
}

func (m *recordingMetrics) InvoiceCreated(context.Context, decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created++
}

func (m *recordingMetrics) InvoiceVoided(context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.voided++
}

func (m *recordingMetrics) ReceiptRendered(_ context.Context, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ok {
		m.receiptOK++
	} else {
		m.receiptFailed++
	}
}

func (m *recordingMetrics) PaymentRegistered(_ context.Context, _ decimal.Decimal, settled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments++
	if settled {
		m.settledPayments++
	}
}

var (
	_ invoicing.InvoiceRepository = (*MockInvoiceRepository)(nil)
	_ invoicing.PaymentRepository = (*fakePaymentRepository)(nil)
	_ catalog.Reader              = (*stubCatalog)(nil)
	_ partner.Reader              = stubPartners{}
	_ ReceiptRenderer             = (*MockReceiptRenderer)(nil)
	_ ReceiptStore                = (*memoryReceiptStore)(nil)
	_ shared.IdempotencyStore     = (*memoryIdempotencyStore)(nil)
	_ Metrics                     = (*recordingMetrics)(nil)
)
