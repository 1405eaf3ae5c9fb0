package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Address 收货地址快照 (JSON 列)
type Address struct {
	FullName     string `json:"full_name"`
	Phone        string `json:"phone"`
	Email        string `json:"email,omitempty"`
	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2,omitempty"`
	City         string `json:"city"`
	State        string `json:"state"`
	PostalCode   string `json:"postal_code"`
	Country      string `json:"country"`
}

// Order 订单模型
type Order struct {
	ID              string                      `gorm:"primaryKey;type:varchar(36);column:id"`
	OrderNumber     string                      `gorm:"uniqueIndex;type:varchar(32);not null;column:order_number"`
	UserID          *string                     `gorm:"index;type:varchar(36);column:user_id"`
	GuestEmail      *string                     `gorm:"type:varchar(255);column:guest_email"`
	Status          string                      `gorm:"index:idx_orders_status_payment;type:varchar(20);not null;default:pending;column:status"`
	PaymentStatus   string                      `gorm:"index:idx_orders_status_payment;type:varchar(20);not null;default:pending;column:payment_status"`
	PaymentMethod   string                      `gorm:"type:varchar(20);not null;column:payment_method"`
	PaymentID       *string                     `gorm:"type:varchar(64);column:payment_id"`
	Subtotal        decimal.Decimal             `gorm:"type:decimal(12,2);not null;column:subtotal"`
	ShippingAmount  decimal.Decimal             `gorm:"type:decimal(12,2);not null;column:shipping_amount"`
	TaxAmount       decimal.Decimal             `gorm:"type:decimal(12,2);not null;column:tax_amount"`
	DiscountAmount  decimal.Decimal             `gorm:"type:decimal(12,2);not null;column:discount_amount"`
	Total           decimal.Decimal             `gorm:"type:decimal(12,2);not null;column:total"`
	ShippingAddress datatypes.JSONType[Address] `gorm:"column:shipping_address"`
	CouponID        *string                     `gorm:"type:varchar(36);column:coupon_id"`
	Notes           *string                     `gorm:"type:text;column:notes"`
	CreatedAt       time.Time                   `gorm:"index;autoCreateTime;column:created_at"`
	UpdatedAt       time.Time                   `gorm:"autoUpdateTime;column:updated_at"`
	Items           []OrderItem                 `gorm:"foreignKey:OrderID;references:ID"`
}

func (Order) TableName() string { return "orders" }

// OrderItem 订单明细，创建后不可变
type OrderItem struct {
	ID           string          `gorm:"primaryKey;type:varchar(36);column:id"`
	OrderID      string          `gorm:"index;type:varchar(36);not null;column:order_id"`
	ProductID    *string         `gorm:"type:varchar(36);column:product_id"`
	ProductName  string          `gorm:"type:varchar(255);not null;column:product_name"`
	ProductImage *string         `gorm:"type:text;column:product_image"`
	VariantID    *string         `gorm:"type:varchar(36);column:variant_id"`
	VariantSize  *string         `gorm:"type:varchar(32);column:variant_size"`
	VariantSKU   *string         `gorm:"type:varchar(64);column:variant_sku"`
	Quantity     int             `gorm:"not null;column:quantity"`
	UnitPrice    decimal.Decimal `gorm:"type:decimal(12,2);not null;column:unit_price"`
	TotalPrice   decimal.Decimal `gorm:"type:decimal(12,2);not null;column:total_price"`
	CreatedAt    time.Time       `gorm:"autoCreateTime;column:created_at"`
}

func (OrderItem) TableName() string { return "order_items" }
