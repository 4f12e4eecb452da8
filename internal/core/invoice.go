package core

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	CodeEmptyItems  = "empty_items"
	CodeInvalidItem = "invalid_item"
)

var (
	ErrEmptyItems  = errors.New(CodeEmptyItems)
	ErrInvalidItem = errors.New(CodeInvalidItem)
)

// ValidationError reports malformed totalizer input. Index is the offending line
// (or -1 when the error is about the whole list).
type ValidationError struct {
	Code   string
	Index  int
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Index < 0 {
		return "validation error: " + e.Code
	}
	return fmt.Sprintf("validation error: %s at item %d: %s %s", e.Code, e.Index, e.Field, e.Reason)
}

// Is lets callers match with errors.Is(err, ErrEmptyItems) / ErrInvalidItem.
func (e *ValidationError) Is(target error) bool {
	switch target {
	case ErrEmptyItems:
		return e.Code == CodeEmptyItems
	case ErrInvalidItem:
		return e.Code == CodeInvalidItem
	}
	return false
}

func invalidItem(index int, field, reason string) *ValidationError {
	return &ValidationError{Code: CodeInvalidItem, Index: index, Field: field, Reason: reason}
}

// Validate checks a single line item. index is only used for error reporting.
func (it InvoiceLineItem) Validate(index int) error {
	if it.Quantity <= 0 {
		return invalidItem(index, "quantity", "must be a positive integer")
	}
	if it.UnitPriceNet.IsNegative() {
		return invalidItem(index, "unit_price_net", "must not be negative")
	}
	if it.VATRate.IsNegative() {
		return invalidItem(index, "vat_rate", "must not be negative")
	}
	return nil
}

// ComputeLineItem derives gross price and line totals for one validated item.
// The gross line total is built from the already rounded gross unit price.
func ComputeLineItem(it InvoiceLineItem) ComputedLineItem {
	qty := decimal.NewFromInt(it.Quantity)
	multiplier := hundred.Add(it.VATRate).Div(hundred)
	unitGross := RoundCents(it.UnitPriceNet.Mul(multiplier))
	return ComputedLineItem{
		InvoiceLineItem: it,
		UnitPriceGross:  unitGross,
		TotalNet:        RoundCents(it.UnitPriceNet.Mul(qty)),
		TotalGross:      RoundCents(unitGross.Mul(qty)),
	}
}

// ComputeInvoice validates the items and produces per-line and invoice totals.
//
// Rounding happens in two stages: every line figure is rounded to the cent, and
// the invoice totals are the rounded sums of those already rounded figures. The
// result may therefore differ by a cent from rounding the unrounded sum once.
// Validation stops at the first bad item; nothing is coerced.
func ComputeInvoice(items []InvoiceLineItem) (Invoice, error) {
	if len(items) == 0 {
		return Invoice{}, &ValidationError{Code: CodeEmptyItems, Index: -1}
	}
	for i, it := range items {
		if err := it.Validate(i); err != nil {
			return Invoice{}, err
		}
	}

	out := Invoice{Items: make([]ComputedLineItem, 0, len(items))}
	sumNet, sumGross := decimal.Zero, decimal.Zero
	for _, it := range items {
		c := ComputeLineItem(it)
		out.Items = append(out.Items, c)
		sumNet = sumNet.Add(c.TotalNet)
		sumGross = sumGross.Add(c.TotalGross)
	}
	out.Totals = InvoiceTotals{
		TotalNet:   RoundCents(sumNet),
		TotalGross: RoundCents(sumGross),
	}
	return out, nil
}
