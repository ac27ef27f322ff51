package invoicing

// InvoiceStatus represents the lifecycle status of an issued invoice
type InvoiceStatus string

const (
	InvoiceStatusActive  InvoiceStatus = "active"
	InvoiceStatusPaid    InvoiceStatus = "paid"
	InvoiceStatusPending InvoiceStatus = "pending"
	InvoiceStatusVoided  InvoiceStatus = "voided"
)

// IsValid checks if the status is a valid invoice status
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusActive, InvoiceStatusPaid, InvoiceStatusPending, InvoiceStatusVoided:
		return true
	}
	return false
}

// String returns the string representation of the status
func (s InvoiceStatus) String() string {
	return string(s)
}

// IsOpen reports whether the invoice still accepts payments
func (s InvoiceStatus) IsOpen() bool {
	return s == InvoiceStatusActive || s == InvoiceStatusPending
}

// CanTransitionTo checks if the status can transition to the target status.
// Voided is terminal. Paid returns to active only when a payment is reversed.
func (s InvoiceStatus) CanTransitionTo(target InvoiceStatus) bool {
	switch s {
	case InvoiceStatusActive, InvoiceStatusPending:
		return target == InvoiceStatusPaid || target == InvoiceStatusVoided
	case InvoiceStatusPaid:
		return target == InvoiceStatusVoided || target == InvoiceStatusActive
	}
	return false
}

// AllInvoiceStatuses returns all valid invoice statuses
func AllInvoiceStatuses() []InvoiceStatus {
	return []InvoiceStatus{
		InvoiceStatusActive,
		InvoiceStatusPaid,
		InvoiceStatusPending,
		InvoiceStatusVoided,
	}
}

// PaymentStatus represents the status of a payment
type PaymentStatus string

const (
	PaymentStatusActive PaymentStatus = "active"
	PaymentStatusVoided PaymentStatus = "voided"
)

// IsValid checks if the status is a valid payment status
func (s PaymentStatus) IsValid() bool {
	return s == PaymentStatusActive || s == PaymentStatusVoided
}

// String returns the string representation of the status
func (s PaymentStatus) String() string {
	return string(s)
}
