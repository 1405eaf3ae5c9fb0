package biz

import (
	"errors"
	"fmt"

	"github.com/elakshat/mystamoura-e-commerce-launch/internal/constants"

	"github.com/shopspring/decimal"
)

var (
	hundred        = decimal.NewFromInt(100)
	maxOrderAmount = decimal.RequireFromString(constants.MaxOrderAmount)
)

// ErrAmountOutOfRange is returned by MinorUnits for negative amounts and
// amounts the order total column cannot hold.
var ErrAmountOutOfRange = errors.New("amount out of range")

// Totals is the server-side price breakdown of a cart.
type Totals struct {
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Shipping decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// ShippingFor 满额免运费，否则收取基础运费
func ShippingFor(subtotal decimal.Decimal, s ShippingSettings) decimal.Decimal {
	if subtotal.GreaterThanOrEqual(s.FreeThreshold) {
		return decimal.Zero
	}
	return s.BasePrice.Round(2)
}

// TaxFor applies a flat percentage to subtotal, rounded to 2 decimals.
func TaxFor(subtotal decimal.Decimal, rate decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(rate).Div(hundred).Round(2)
}

// ComputeTotals returns subtotal - discount + shipping + tax rounded to two
// decimals and never negative.
func ComputeTotals(subtotal, discount decimal.Decimal, settings *SettingsSnapshot) Totals {
	subtotal = subtotal.Round(2)
	discount = decimal.Min(discount.Round(2), subtotal)
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	t := Totals{
		Subtotal: subtotal,
		Discount: discount,
		Shipping: ShippingFor(subtotal, settings.Shipping),
		Tax:      TaxFor(subtotal, settings.Tax.Rate),
	}
	t.Total = t.Subtotal.Sub(t.Discount).Add(t.Shipping).Add(t.Tax).Round(2)
	if t.Total.IsNegative() {
		t.Total = decimal.Zero
	}
	return t
}

// MinorUnits converts a major-unit amount to integral minor units with
// half-up rounding, e.g. 149.999 -> 15000.
func MinorUnits(amount decimal.Decimal) (int64, error) {
	if !WithinOrderLimit(amount) {
		return 0, fmt.Errorf("%w: %s", ErrAmountOutOfRange, amount.String())
	}
	return amount.Mul(hundred).Round(0).IntPart(), nil
}

// WithinOrderLimit reports whether amount fits the order total column.
func WithinOrderLimit(amount decimal.Decimal) bool {
	return !amount.IsNegative() && !amount.Round(2).GreaterThan(maxOrderAmount)
}

// EffectivePrice 有效售价：促销价有效且低于原价时使用促销价
func EffectivePrice(price decimal.Decimal, salePrice decimal.NullDecimal) decimal.Decimal {
	if salePrice.Valid && salePrice.Decimal.IsPositive() && salePrice.Decimal.LessThan(price) {
		return salePrice.Decimal
	}
	return price
}
