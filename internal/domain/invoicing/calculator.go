package invoicing

import (
	"github.com/shopspring/decimal"
)

// DefaultTaxRate is the ISV sales tax rate
var DefaultTaxRate = decimal.NewFromFloat(0.15)

// DefaultCurrencyPrecision is the number of decimal places money is kept at
const DefaultCurrencyPrecision int32 = 2

// TaxPolicy carries the tax rate and money precision applied to invoices.
// It is built from configuration and injected into the calculator.
type TaxPolicy struct {
	Rate      decimal.Decimal
	Precision int32
}

// DefaultTaxPolicy returns the 15% ISV policy with 2 decimal places
func DefaultTaxPolicy() TaxPolicy {
	return TaxPolicy{
		Rate:      DefaultTaxRate,
		Precision: DefaultCurrencyPrecision,
	}
}

// Round rounds an amount to the policy precision (half away from zero)
func (p TaxPolicy) Round(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(p.Precision)
}

// LineAmount is the priced part of a line needed for totals
type LineAmount struct {
	Quantity  int
	UnitPrice decimal.Decimal
}

// Totals is the result of an invoice computation
type Totals struct {
	Subtotal      decimal.Decimal
	DiscountTotal decimal.Decimal
	NetSubtotal   decimal.Decimal
	TaxRate       decimal.Decimal
	Tax           decimal.Decimal
	Total         decimal.Decimal
}

// Calculator computes invoice totals.
// It has no state beyond its policy and never fails; a discount total larger
// than the subtotal yields a negative NetSubtotal and callers decide whether
// to accept it.
type Calculator struct {
	policy TaxPolicy
}

// NewCalculator creates a calculator for the given policy
func NewCalculator(policy TaxPolicy) *Calculator {
	return &Calculator{policy: policy}
}

// Policy returns the calculator tax policy
func (c *Calculator) Policy() TaxPolicy {
	return c.policy
}

// LineTotal returns quantity x unit price at the policy precision
func (c *Calculator) LineTotal(quantity int, unitPrice decimal.Decimal) decimal.Decimal {
	return c.policy.Round(unitPrice.Mul(decimal.NewFromInt(int64(quantity))))
}

// Compute derives subtotal, discounts, tax and total
func (c *Calculator) Compute(lines []LineAmount, discounts []decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(c.LineTotal(l.Quantity, l.UnitPrice))
	}

	discountTotal := decimal.Zero
	for _, d := range discounts {
		discountTotal = discountTotal.Add(c.policy.Round(d))
	}

	net := subtotal.Sub(discountTotal)
	tax := c.policy.Round(net.Mul(c.policy.Rate))

	return Totals{
		Subtotal:      subtotal,
		DiscountTotal: discountTotal,
		NetSubtotal:   net,
		TaxRate:       c.policy.Rate,
		Tax:           tax,
		Total:         net.Add(tax),
	}
}

// PercentageOf returns percent% of base at the policy precision
func (c *Calculator) PercentageOf(base, percent decimal.Decimal) decimal.Decimal {
	return c.policy.Round(base.Mul(percent).Div(decimal.NewFromInt(100)))
}
