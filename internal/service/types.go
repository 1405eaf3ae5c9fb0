package service

import (
	"strings"

	"github.com/elakshat/mystamoura-e-commerce-launch/internal/constants"
	bizErrors "github.com/elakshat/mystamoura-e-commerce-launch/internal/errors"

	"github.com/shopspring/decimal"
)

// Operation names used for middleware selection.
const (
	OperationCreatePayment     = "/storefront.v1.Payment/CreatePayment"
	OperationVerifyPayment     = "/storefront.v1.Payment/VerifyPayment"
	OperationPaymentStatus     = "/storefront.v1.Payment/PaymentStatus"
	OperationCreateOrder       = "/storefront.v1.Order/CreateOrder"
	OperationGetOrder          = "/storefront.v1.Order/GetOrder"
	OperationUpdateOrderStatus = "/storefront.v1.Order/UpdateOrderStatus"
	OperationSubmitContact     = "/storefront.v1.Contact/SubmitContact"
)

// CreatePaymentRequest starts or resumes the gateway hand-off for an order.
type CreatePaymentRequest struct {
	OrderNumber string            `json:"orderNumber"`
	Amount      decimal.Decimal   `json:"amount"`
	Currency    string            `json:"currency,omitempty"`
	Notes       map[string]string `json:"notes,omitempty"`
}

func (r *CreatePaymentRequest) Validate() error {
	fields := map[string]string{}
	r.OrderNumber = strings.TrimSpace(r.OrderNumber)
	if r.OrderNumber == "" {
		fields["orderNumber"] = "Order number is required"
	}
	if r.Amount.LessThan(decimal.NewFromInt(1)) {
		fields["amount"] = "Amount must be at least 1"
	}
	r.Currency = strings.ToUpper(strings.TrimSpace(r.Currency))
	if r.Currency == "" {
		r.Currency = constants.DefaultCurrency
	}
	if !constants.SupportedCurrencies[r.Currency] {
		fields["currency"] = "Currency must be one of INR, USD, EUR"
	}
	if len(fields) > 0 {
		return bizErrors.Validation("Validation failed", fields)
	}
	return nil
}

type CreatePaymentReply struct {
	Success  bool   `json:"success"`
	OrderID  string `json:"orderId"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	KeyID    string `json:"keyId"`
}

type VerifyPaymentRequest struct {
	RazorpayOrderID   string `json:"razorpay_order_id"`
	RazorpayPaymentID string `json:"razorpay_payment_id"`
	RazorpaySignature string `json:"razorpay_signature"`
	OrderNumber       string `json:"order_number"`
}

type VerifyPaymentReply struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	OrderNumber string `json:"order_number"`
	PaymentID   string `json:"payment_id"`
}

type PaymentStatusRequest struct {
	OrderID string `json:"orderId"`
}

type GatewayOrderInfo struct {
	ID        string `json:"id"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Status    string `json:"status"`
	CreatedAt int64  `json:"created_at"`
}

type PaymentStatusReply struct {
	Success bool              `json:"success"`
	Order   *GatewayOrderInfo `json:"order"`
}

type AddressInput struct {
	FullName     string `json:"full_name"`
	Phone        string `json:"phone"`
	Email        string `json:"email,omitempty"`
	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2,omitempty"`
	City         string `json:"city"`
	State        string `json:"state"`
	PostalCode   string `json:"postal_code"`
	Country      string `json:"country,omitempty"`
}

type OrderItemInput struct {
	ProductID    string          `json:"product_id"`
	VariantID    string          `json:"variant_id,omitempty"`
	ProductName  string          `json:"product_name"`
	ProductImage string          `json:"product_image,omitempty"`
	VariantSize  string          `json:"variant_size,omitempty"`
	VariantSKU   string          `json:"variant_sku,omitempty"`
	Quantity     int             `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
}

// CreateOrderRequest is the checkout body. Totals sent by the client are not
// read; they are recomputed on the server. The customer comes from the bearer
// token only.
type CreateOrderRequest struct {
	IdempotencyKey  string            `json:"idempotency_key,omitempty"`
	GuestEmail      string            `json:"guest_email,omitempty"`
	ShippingAddress AddressInput      `json:"shipping_address"`
	Items           []*OrderItemInput `json:"items"`
	PaymentMethod   string            `json:"payment_method"`
	Currency        string            `json:"currency,omitempty"`
	CouponCode      string            `json:"coupon_code,omitempty"`
	Notes           string            `json:"notes,omitempty"`
}

type PaymentHandoff struct {
	GatewayOrderID string `json:"gateway_order_id"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	KeyID          string `json:"key_id"`
}

type CreateOrderReply struct {
	Success     bool            `json:"success"`
	OrderNumber string          `json:"order_number"`
	OrderID     string          `json:"order_id,omitempty"`
	Message     string          `json:"message"`
	Total       float64         `json:"total"`
	Payment     *PaymentHandoff `json:"payment,omitempty"`
}

type GetOrderRequest struct {
	OrderNumber string `json:"orderNumber"`
}

type OrderItemInfo struct {
	ID           string  `json:"id"`
	ProductID    string  `json:"product_id,omitempty"`
	ProductName  string  `json:"product_name"`
	ProductImage string  `json:"product_image,omitempty"`
	VariantID    string  `json:"variant_id,omitempty"`
	VariantSize  string  `json:"variant_size,omitempty"`
	VariantSKU   string  `json:"variant_sku,omitempty"`
	Quantity     int     `json:"quantity"`
	UnitPrice    float64 `json:"unit_price"`
	TotalPrice   float64 `json:"total_price"`
}

type OrderInfo struct {
	ID              string           `json:"id"`
	OrderNumber     string           `json:"order_number"`
	UserID          string           `json:"user_id,omitempty"`
	GuestEmail      string           `json:"guest_email,omitempty"`
	Status          string           `json:"status"`
	PaymentStatus   string           `json:"payment_status"`
	PaymentMethod   string           `json:"payment_method"`
	PaymentID       string           `json:"payment_id,omitempty"`
	Subtotal        float64          `json:"subtotal"`
	ShippingAmount  float64          `json:"shipping_amount"`
	TaxAmount       float64          `json:"tax_amount"`
	DiscountAmount  float64          `json:"discount_amount"`
	Total           float64          `json:"total"`
	ShippingAddress AddressInput     `json:"shipping_address"`
	Notes           string           `json:"notes,omitempty"`
	Items           []*OrderItemInfo `json:"items"`
	CreatedAt       string           `json:"created_at"`
	UpdatedAt       string           `json:"updated_at"`
}

type GetOrderReply struct {
	Success bool       `json:"success"`
	Order   *OrderInfo `json:"order"`
}

type UpdateOrderStatusRequest struct {
	OrderNumber   string `json:"-"`
	Status        string `json:"status,omitempty"`
	PaymentStatus string `json:"payment_status,omitempty"`
	PaymentID     string `json:"payment_id,omitempty"`
}

type UpdateOrderStatusReply struct {
	Success bool       `json:"success"`
	Message string     `json:"message"`
	Order   *OrderInfo `json:"order"`
}

type ContactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone,omitempty"`
	Subject string `json:"subject,omitempty"`
	Message string `json:"message"`
}

type ContactReply struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type HealthReply struct {
	Status      string `json:"status"`
	Timestamp   string `json:"timestamp"`
	Environment string `json:"environment"`
	Database    bool   `json:"database"`
	Gateway     bool   `json:"gateway"`
}
