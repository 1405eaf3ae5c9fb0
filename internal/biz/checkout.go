package biz

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/elakshat/mystamoura-e-commerce-launch/internal/conf"
	"github.com/elakshat/mystamoura-e-commerce-launch/internal/constants"
	bizErrors "github.com/elakshat/mystamoura-e-commerce-launch/internal/errors"
	"github.com/elakshat/mystamoura-e-commerce-launch/internal/pkg/telemetry"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/shopspring/decimal"
)

// ErrCheckoutLocked is returned by CheckoutGuard.Lock when another request
// holds the lock for the same checkout.
var ErrCheckoutLocked = errors.New("checkout already in progress")

var (
	phonePattern      = regexp.MustCompile(`^[6-9]\d{9}$`)
	postalCodePattern = regexp.MustCompile(`^\d{6}$`)
	emailPattern      = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// CheckoutItem is one cart line. UnitPrice and the display fields are only
// trusted when the catalog cannot be read.
type CheckoutItem struct {
	ProductID    string
	VariantID    string
	ProductName  string
	ProductImage string
	VariantSize  string
	VariantSKU   string
	Quantity     int
	UnitPrice    decimal.Decimal
}

// CheckoutRequest 结账请求
type CheckoutRequest struct {
	IdempotencyKey  string
	UserID          string
	GuestEmail      string
	ShippingAddress ShippingAddress
	Items           []*CheckoutItem
	PaymentMethod   string
	Currency        string
	CouponCode      string
	Notes           string
}

// CheckoutResult is also the memo replayed for a repeated submit.
type CheckoutResult struct {
	OrderNumber   string          `json:"order_number"`
	OrderID       string          `json:"order_id,omitempty"`
	PaymentMethod string          `json:"payment_method"`
	Currency      string          `json:"currency"`
	Total         decimal.Decimal `json:"total"`
	Payment       *GatewayOrder   `json:"payment,omitempty"`
	Replayed      bool            `json:"-"`
}

// CheckoutGuard 结账防重 (分布式锁 + 结果缓存)
type CheckoutGuard interface {
	// Lock returns ErrCheckoutLocked when the key is held by another request.
	Lock(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
	// Recall returns nil when nothing is remembered for key.
	Recall(ctx context.Context, key string) (*CheckoutResult, error)
	Remember(ctx context.Context, key string, res *CheckoutResult, ttl time.Duration) error
}

// ValidateCheckout returns field-level messages for an invalid request.
func ValidateCheckout(req *CheckoutRequest) map[string]string {
	fields := map[string]string{}
	a := req.ShippingAddress

	if n := utf8.RuneCountInString(strings.TrimSpace(a.FullName)); n < 2 || n > 100 {
		fields["shipping_address.full_name"] = "Name must be between 2 and 100 characters"
	}
	if !phonePattern.MatchString(strings.TrimSpace(a.Phone)) {
		fields["shipping_address.phone"] = "Please enter a valid 10-digit phone number"
	}
	if n := utf8.RuneCountInString(strings.TrimSpace(a.AddressLine1)); n < 5 || n > 200 {
		fields["shipping_address.address_line1"] = "Address must be between 5 and 200 characters"
	}
	if strings.TrimSpace(a.City) == "" {
		fields["shipping_address.city"] = "City is required"
	}
	if strings.TrimSpace(a.State) == "" {
		fields["shipping_address.state"] = "State is required"
	}
	if !postalCodePattern.MatchString(strings.TrimSpace(a.PostalCode)) {
		fields["shipping_address.postal_code"] = "Please enter a valid 6-digit postal code"
	}
	if a.Email != "" && !emailPattern.MatchString(a.Email) {
		fields["shipping_address.email"] = "Please enter a valid email address"
	}

	if req.UserID == "" {
		if req.GuestEmail == "" {
			fields["guest_email"] = "Email is required for guest checkout"
		} else if !emailPattern.MatchString(req.GuestEmail) {
			fields["guest_email"] = "Please enter a valid email address"
		}
	}

	if len(req.Items) == 0 {
		fields["items"] = "Cart is empty"
	}
	for i, it := range req.Items {
		if it == nil || (it.ProductID == "" && it.ProductName == "") {
			fields[fmt.Sprintf("items[%d].product_id", i)] = "Product is required"
			continue
		}
		if it.Quantity < 1 || it.Quantity > constants.MaxItemQuantity {
			fields[fmt.Sprintf("items[%d].quantity", i)] = fmt.Sprintf("Quantity must be between 1 and %d", constants.MaxItemQuantity)
		}
	}

	switch req.PaymentMethod {
	case constants.PaymentMethodRazorpay, constants.PaymentMethodCOD:
	default:
		fields["payment_method"] = "Payment method must be razorpay or cod"
	}
	if req.Currency != "" && !constants.SupportedCurrencies[req.Currency] {
		fields["currency"] = "Currency must be INR, USD or EUR"
	}
	return fields
}

// CheckoutFingerprint derives an idempotency key from the cart and contact
// details when the client does not send one.
func CheckoutFingerprint(req *CheckoutRequest) string {
	lines := make([]string, 0, len(req.Items))
	for _, it := range req.Items {
		if it == nil {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s/%s/%s/%d", it.ProductID, it.VariantID, it.ProductName, it.Quantity))
	}
	sort.Strings(lines)
	h := sha256.New()
	for _, part := range []string{
		req.UserID,
		strings.ToLower(req.GuestEmail),
		req.ShippingAddress.Phone,
		req.PaymentMethod,
		strings.ToUpper(req.CouponCode),
		strings.Join(lines, ","),
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// CheckoutUsecase turns a cart into exactly one local order per checkout attempt.
type CheckoutUsecase struct {
	orders    *OrderUsecase
	payments  *PaymentUsecase
	notifier  *NotificationUsecase
	catalog   CatalogRepo
	coupons   CouponRepo
	settings  SettingsRepo
	guard     CheckoutGuard
	metrics   *telemetry.Metrics
	lockTTL   time.Duration
	resultTTL time.Duration
	now       func() time.Time
	log       *log.Helper
}

func NewCheckoutUsecase(c *conf.Bootstrap, orders *OrderUsecase, payments *PaymentUsecase, notifier *NotificationUsecase, catalog CatalogRepo, coupons CouponRepo, settings SettingsRepo, guard CheckoutGuard, metrics *telemetry.Metrics, logger log.Logger) *CheckoutUsecase {
	uc := &CheckoutUsecase{
		orders:    orders,
		payments:  payments,
		notifier:  notifier,
		catalog:   catalog,
		coupons:   coupons,
		settings:  settings,
		guard:     guard,
		metrics:   metrics,
		lockTTL:   constants.CheckoutLockExpiration,
		resultTTL: constants.CheckoutResultExpiration,
		now:       time.Now,
		log:       log.NewHelper(logger),
	}
	if c != nil && c.Order != nil {
		uc.lockTTL = conf.Duration(c.Order.CheckoutLockTTL, constants.CheckoutLockExpiration)
		uc.resultTTL = conf.Duration(c.Order.IdempotencyTTL, constants.CheckoutResultExpiration)
	}
	return uc
}

// Checkout validates and prices the cart, creates the order and, for online
// payment, opens a gateway order for the server-computed total.
func (uc *CheckoutUsecase) Checkout(ctx context.Context, req *CheckoutRequest) (*CheckoutResult, error) {
	normalizeCheckout(req)
	if fields := ValidateCheckout(req); len(fields) > 0 {
		return nil, bizErrors.Validation("Validation failed", fields)
	}

	key := req.IdempotencyKey
	if key == "" {
		key = CheckoutFingerprint(req)
	}

	unlock, err := uc.guard.Lock(ctx, constants.RedisKeyCheckoutLock+key, uc.lockTTL)
	switch {
	case errors.Is(err, ErrCheckoutLocked):
		uc.log.Warnf("Checkout %s already in progress, rejecting duplicate submit", key)
		return nil, bizErrors.CheckoutInProgress()
	case err != nil:
		uc.log.Warnf("Checkout lock unavailable for %s, continuing without it: %v", key, err)
		unlock = func() {}
	}
	defer unlock()

	if prev := uc.recall(ctx, key); prev != nil {
		return uc.replay(ctx, key, prev)
	}

	settings := loadSettings(ctx, uc.settings, uc.log)
	if req.PaymentMethod == constants.PaymentMethodRazorpay {
		if !uc.payments.gateway.Configured() || !settings.Gateway.Enabled {
			uc.log.Errorf("Online checkout rejected: payment gateway not configured or disabled")
			return nil, bizErrors.GatewayNotConfigured()
		}
	}

	items, subtotal, err := uc.priceItems(ctx, req.Items)
	if err != nil {
		return nil, err
	}
	discount, coupon, err := uc.applyCoupon(ctx, req.CouponCode, subtotal)
	if err != nil {
		return nil, err
	}
	totals := ComputeTotals(subtotal, discount, settings)
	if !WithinOrderLimit(totals.Total) {
		uc.log.Warnf("Checkout rejected: total %s exceeds the order limit", totals.Total.StringFixed(2))
		return nil, bizErrors.Validation("Order total exceeds the maximum allowed amount", map[string]string{
			"total": fmt.Sprintf("Order total must not exceed %s", constants.MaxOrderAmount),
		})
	}

	order := &Order{
		UserID:          req.UserID,
		GuestEmail:      req.GuestEmail,
		Status:          constants.OrderStatusPending,
		PaymentStatus:   constants.PaymentStatusPending,
		PaymentMethod:   req.PaymentMethod,
		Subtotal:        totals.Subtotal,
		ShippingAmount:  totals.Shipping,
		TaxAmount:       totals.Tax,
		DiscountAmount:  totals.Discount,
		Total:           totals.Total,
		ShippingAddress: req.ShippingAddress,
		Notes:           req.Notes,
		Items:           items,
	}
	if req.PaymentMethod == constants.PaymentMethodRazorpay {
		order.PaymentStatus = constants.PaymentStatusAwaiting
	}
	if coupon != nil {
		order.CouponID = coupon.ID
	}

	created, err := uc.orders.CreateOrder(ctx, order)
	if err != nil {
		return nil, err
	}
	if coupon != nil && created.ID != "" {
		if err := uc.coupons.IncrementUsage(ctx, coupon.ID); err != nil {
			uc.log.Warnf("Failed to increment usage of coupon %s for %s: %v", coupon.Code, created.OrderNumber, err)
		}
	}
	uc.metrics.OrderCreated(ctx, req.PaymentMethod)

	res := &CheckoutResult{
		OrderNumber:   created.OrderNumber,
		OrderID:       created.ID,
		PaymentMethod: req.PaymentMethod,
		Currency:      req.Currency,
		Total:         created.Total,
	}

	if req.PaymentMethod == constants.PaymentMethodCOD {
		uc.log.Infof("COD order %s placed, total %s", created.OrderNumber, created.Total.StringFixed(2))
		uc.notifier.DispatchOrderConfirmation(ctx, created.OrderNumber)
		uc.remember(ctx, key, res)
		return res, nil
	}

	gw, err := uc.payments.openGatewayOrder(ctx, created.OrderNumber, created.Total, req.Currency, nil)
	// 网关失败时订单保持 pending/awaiting，可通过 create-order 重新发起支付
	uc.remember(ctx, key, res)
	if err != nil {
		return nil, err
	}
	res.Payment = gw
	uc.remember(ctx, key, res)
	return res, nil
}

// replay answers a repeated submit from the remembered result. An online
// order whose gateway call failed is resumed against the same order number.
func (uc *CheckoutUsecase) replay(ctx context.Context, key string, prev *CheckoutResult) (*CheckoutResult, error) {
	prev.Replayed = true
	if prev.PaymentMethod != constants.PaymentMethodRazorpay || prev.Payment != nil {
		uc.log.Infof("Replaying checkout result for %s", prev.OrderNumber)
		return prev, nil
	}
	uc.log.Infof("Resuming payment for %s from a repeated checkout", prev.OrderNumber)
	gw, err := uc.payments.CreatePayment(ctx, prev.OrderNumber, prev.Total, prev.Currency, nil)
	if err != nil {
		return nil, err
	}
	prev.Payment = gw
	uc.remember(ctx, key, prev)
	return prev, nil
}

func (uc *CheckoutUsecase) recall(ctx context.Context, key string) *CheckoutResult {
	res, err := uc.guard.Recall(ctx, constants.RedisKeyCheckoutResult+key)
	if err != nil {
		uc.log.Warnf("Failed to read checkout memo %s: %v", key, err)
		return nil
	}
	return res
}

func (uc *CheckoutUsecase) remember(ctx context.Context, key string, res *CheckoutResult) {
	if err := uc.guard.Remember(ctx, constants.RedisKeyCheckoutResult+key, res, uc.resultTTL); err != nil {
		uc.log.Warnf("Failed to store checkout memo for %s: %v", res.OrderNumber, err)
	}
}

// priceItems builds order lines from catalog prices. Client prices are used
// only when the catalog is not available.
func (uc *CheckoutUsecase) priceItems(ctx context.Context, in []*CheckoutItem) ([]*OrderItem, decimal.Decimal, error) {
	subtotal := decimal.Zero
	items := make([]*OrderItem, 0, len(in))

	if !uc.catalog.Enabled() {
		uc.log.Warnf("Catalog not available, pricing %d item(s) from client-supplied prices", len(in))
		for i, it := range in {
			if !it.UnitPrice.IsPositive() {
				return nil, decimal.Zero, bizErrors.Validation("Validation failed", map[string]string{
					fmt.Sprintf("items[%d].price", i): "Price must be greater than 0",
				})
			}
			line := &OrderItem{
				ProductID:    it.ProductID,
				ProductName:  it.ProductName,
				ProductImage: it.ProductImage,
				VariantID:    it.VariantID,
				VariantSize:  it.VariantSize,
				VariantSKU:   it.VariantSKU,
				Quantity:     it.Quantity,
				UnitPrice:    it.UnitPrice.Round(2),
			}
			line.TotalPrice = line.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
			subtotal = subtotal.Add(line.TotalPrice)
			items = append(items, line)
		}
		return items, subtotal, nil
	}

	var productIDs, variantIDs []string
	for _, it := range in {
		productIDs = append(productIDs, it.ProductID)
		if it.VariantID != "" {
			variantIDs = append(variantIDs, it.VariantID)
		}
	}
	products, err := uc.catalog.FindProducts(ctx, productIDs)
	if err != nil {
		return nil, decimal.Zero, bizErrors.Internal(fmt.Errorf("load products: %w", err))
	}
	variants := map[string]*ProductVariant{}
	if len(variantIDs) > 0 {
		if variants, err = uc.catalog.FindVariants(ctx, variantIDs); err != nil {
			return nil, decimal.Zero, bizErrors.Internal(fmt.Errorf("load variants: %w", err))
		}
	}

	for _, it := range in {
		p, ok := products[it.ProductID]
		if !ok || !p.Visible {
			return nil, decimal.Zero, bizErrors.ProductUnavailable(displayName(it))
		}
		line := &OrderItem{
			ProductID:    p.ID,
			ProductName:  p.Name,
			ProductImage: it.ProductImage,
			Quantity:     it.Quantity,
			UnitPrice:    EffectivePrice(p.Price, p.SalePrice),
		}
		if it.VariantID != "" {
			v, ok := variants[it.VariantID]
			if !ok || !v.Visible || v.ProductID != p.ID {
				return nil, decimal.Zero, bizErrors.ProductUnavailable(displayName(it))
			}
			line.VariantID = v.ID
			line.VariantSize = v.Size
			line.VariantSKU = v.SKU
			line.UnitPrice = EffectivePrice(v.Price, v.SalePrice)
		}
		if !it.UnitPrice.IsZero() && !it.UnitPrice.Equal(line.UnitPrice) {
			uc.log.Warnf("Client price %s for %s ignored, catalog price is %s",
				it.UnitPrice.StringFixed(2), p.Name, line.UnitPrice.StringFixed(2))
		}
		line.TotalPrice = line.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
		subtotal = subtotal.Add(line.TotalPrice)
		items = append(items, line)
	}
	return items, subtotal, nil
}

func (uc *CheckoutUsecase) applyCoupon(ctx context.Context, code string, subtotal decimal.Decimal) (decimal.Decimal, *Coupon, error) {
	if code == "" {
		return decimal.Zero, nil, nil
	}
	coupon, err := uc.coupons.FindByCode(ctx, code)
	if err != nil {
		return decimal.Zero, nil, bizErrors.Internal(fmt.Errorf("load coupon: %w", err))
	}
	if coupon == nil {
		return decimal.Zero, nil, bizErrors.CouponInvalid("Invalid coupon code")
	}
	discount, err := coupon.Discount(subtotal, uc.now())
	if err != nil {
		return decimal.Zero, nil, bizErrors.CouponInvalid(err.Error())
	}
	return discount, coupon, nil
}

func normalizeCheckout(req *CheckoutRequest) {
	req.GuestEmail = strings.TrimSpace(strings.ToLower(req.GuestEmail))
	req.PaymentMethod = strings.ToLower(strings.TrimSpace(req.PaymentMethod))
	req.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))
	if req.Currency == "" {
		req.Currency = constants.DefaultCurrency
	}
	req.CouponCode = strings.ToUpper(strings.TrimSpace(req.CouponCode))
	if req.ShippingAddress.Country == "" {
		req.ShippingAddress.Country = constants.DefaultCountry
	}
	if req.ShippingAddress.Email == "" {
		req.ShippingAddress.Email = req.GuestEmail
	}
}

func displayName(it *CheckoutItem) string {
	if it.ProductName != "" {
		return it.ProductName
	}
	return "Product " + it.ProductID
}
