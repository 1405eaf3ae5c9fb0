package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product 商品 (只读)
type Product struct {
	ID        string              `gorm:"primaryKey;type:varchar(36);column:id"`
	Name      string              `gorm:"type:varchar(255);not null;column:name"`
	Slug      string              `gorm:"type:varchar(255);column:slug"`
	SKU       *string             `gorm:"type:varchar(64);column:sku"`
	Price     decimal.Decimal     `gorm:"type:decimal(12,2);not null;column:price"`
	SalePrice decimal.NullDecimal `gorm:"type:decimal(12,2);column:sale_price"`
	IsVisible *bool               `gorm:"column:is_visible"`
	UpdatedAt time.Time           `gorm:"column:updated_at"`
}

func (Product) TableName() string { return "products" }

// ProductVariant 商品规格 (只读)
type ProductVariant struct {
	ID        string              `gorm:"primaryKey;type:varchar(36);column:id"`
	ProductID string              `gorm:"index;type:varchar(36);not null;column:product_id"`
	Size      string              `gorm:"type:varchar(32);column:size"`
	SKU       *string             `gorm:"type:varchar(64);column:sku"`
	Price     decimal.Decimal     `gorm:"type:decimal(12,2);not null;column:price"`
	SalePrice decimal.NullDecimal `gorm:"type:decimal(12,2);column:sale_price"`
	IsVisible *bool               `gorm:"column:is_visible"`
	UpdatedAt time.Time           `gorm:"column:updated_at"`
}

func (ProductVariant) TableName() string { return "product_variants" }

// Coupon 优惠券
type Coupon struct {
	ID             string              `gorm:"primaryKey;type:varchar(36);column:id"`
	Code           string              `gorm:"uniqueIndex;type:varchar(64);not null;column:code"`
	DiscountType   string              `gorm:"type:varchar(20);not null;column:discount_type"`
	DiscountValue  decimal.Decimal     `gorm:"type:decimal(12,2);not null;column:discount_value"`
	MinOrderAmount decimal.NullDecimal `gorm:"type:decimal(12,2);column:min_order_amount"`
	MaxUses        *int                `gorm:"column:max_uses"`
	UsedCount      int                 `gorm:"not null;default:0;column:used_count"`
	IsActive       *bool               `gorm:"column:is_active"`
	ExpiresAt      *time.Time          `gorm:"column:expires_at"`
	CreatedAt      time.Time           `gorm:"autoCreateTime;column:created_at"`
}

func (Coupon) TableName() string { return "coupons" }
