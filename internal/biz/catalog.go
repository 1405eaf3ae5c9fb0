package biz

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Product 商品 (只读，用于服务端定价)
type Product struct {
	ID        string
	Name      string
	SKU       string
	Price     decimal.Decimal
	SalePrice decimal.NullDecimal
	Visible   bool
}

// ProductVariant 商品规格
type ProductVariant struct {
	ID        string
	ProductID string
	Size      string
	SKU       string
	Price     decimal.Decimal
	SalePrice decimal.NullDecimal
	Visible   bool
}

// CatalogRepo 商品目录读模型
type CatalogRepo interface {
	Enabled() bool
	FindProducts(ctx context.Context, ids []string) (map[string]*Product, error)
	FindVariants(ctx context.Context, ids []string) (map[string]*ProductVariant, error)
}

const (
	DiscountTypePercentage = "percentage"
	DiscountTypeFixed      = "fixed"
)

// Coupon 优惠券
type Coupon struct {
	ID             string
	Code           string
	DiscountType   string
	DiscountValue  decimal.Decimal
	MinOrderAmount decimal.Decimal
	MaxUses        *int
	UsedCount      int
	Active         bool
	ExpiresAt      *time.Time
}

// CouponRepo 优惠券仓库接口
type CouponRepo interface {
	// FindByCode returns nil when no coupon matches.
	FindByCode(ctx context.Context, code string) (*Coupon, error)
	IncrementUsage(ctx context.Context, id string) error
}

// Discount validates the coupon against subtotal and returns the discount,
// capped at the subtotal. A non-nil error explains why it cannot be used.
func (c *Coupon) Discount(subtotal decimal.Decimal, now time.Time) (decimal.Decimal, error) {
	if !c.Active {
		return decimal.Zero, fmt.Errorf("coupon %s is not active", c.Code)
	}
	if c.ExpiresAt != nil && !now.Before(*c.ExpiresAt) {
		return decimal.Zero, fmt.Errorf("coupon %s has expired", c.Code)
	}
	if c.MaxUses != nil && c.UsedCount >= *c.MaxUses {
		return decimal.Zero, fmt.Errorf("coupon %s has reached its usage limit", c.Code)
	}
	if subtotal.LessThan(c.MinOrderAmount) {
		return decimal.Zero, fmt.Errorf("coupon %s requires a minimum order of %s", c.Code, c.MinOrderAmount.StringFixed(2))
	}

	var d decimal.Decimal
	switch strings.ToLower(c.DiscountType) {
	case DiscountTypePercentage:
		d = subtotal.Mul(c.DiscountValue).Div(hundred).Round(2)
	case DiscountTypeFixed:
		d = c.DiscountValue.Round(2)
	default:
		return decimal.Zero, fmt.Errorf("coupon %s has an unknown discount type", c.Code)
	}
	if d.IsNegative() {
		return decimal.Zero, nil
	}
	return decimal.Min(d, subtotal), nil
}
