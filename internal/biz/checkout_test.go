package biz

import (
	"context"
	"errors"
	"testing"

	"github.com/elakshat/mystamoura-e-commerce-launch/internal/constants"
	bizErrors "github.com/elakshat/mystamoura-e-commerce-launch/internal/errors"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckoutCashOnDelivery(t *testing.T) {
	h := newHarness()
	h.settings = settingsWith(99, 1500, 10)
	h.build(testConfig())

	res, err := h.checkout.Checkout(context.Background(), validCheckout("cod", clientItem("Oud Royale", 2, 1000)))
	require.NoError(t, err)
	h.notifier.Wait()

	assert.True(t, ValidOrderNumber(res.OrderNumber))
	assert.Regexp(t, `^MYS-\d{8}-\d{4}$`, res.OrderNumber)
	assert.Equal(t, "2200.00", res.Total.StringFixed(2))
	assert.Nil(t, res.Payment)
	assert.Zero(t, h.gateway.calls(), "no gateway call for cash on delivery")

	o := h.orders.snapshot(res.OrderNumber)
	assert.Equal(t, constants.OrderStatusPending, o.Status)
	assert.Equal(t, constants.PaymentStatusPending, o.PaymentStatus)
	assert.Equal(t, "2000.00", o.Subtotal.StringFixed(2))
	assert.True(t, o.ShippingAmount.IsZero())
	assert.Equal(t, "200.00", o.TaxAmount.StringFixed(2))
	assert.Equal(t, "India", o.ShippingAddress.Country)
	require.Len(t, o.Items, 1)
	assert.Equal(t, "2000.00", o.Items[0].TotalPrice.StringFixed(2))

	msgs := h.mailer.messages()
	require.Len(t, msgs, 2)
	recipients := []string{msgs[0].To[0], msgs[1].To[0]}
	assert.ElementsMatch(t, []string{"asha@example.com", "admin@example.com"}, recipients)
}

func TestCheckoutOnlineCreatesGatewayOrderForServerTotal(t *testing.T) {
	h := newHarness()
	h.settings = settingsWith(99, 500, 0)
	h.build(testConfig())

	req := validCheckout("razorpay", clientItem("Attar", 1, 500))
	req.Currency = "inr"
	res, err := h.checkout.Checkout(context.Background(), req)
	require.NoError(t, err)

	require.NotNil(t, res.Payment)
	assert.Equal(t, int64(50000), res.Payment.Amount)
	assert.Equal(t, "INR", res.Payment.Currency)
	assert.Equal(t, res.OrderNumber, res.Payment.Receipt)
	assert.Equal(t, "rzp_test_key", res.Payment.KeyID)
	require.Len(t, h.gateway.created, 1)
	assert.Equal(t, map[string]string{"order_number": res.OrderNumber}, h.gateway.created[0].Notes)

	o := h.orders.snapshot(res.OrderNumber)
	assert.Equal(t, constants.OrderStatusPending, o.Status)
	assert.Equal(t, constants.PaymentStatusAwaiting, o.PaymentStatus)
	assert.Empty(t, h.mailer.messages(), "online orders notify after verification")
}

func TestCheckoutReplaysRepeatedSubmit(t *testing.T) {
	h := newHarness()
	req := validCheckout("cod", clientItem("Musk", 1, 1200))
	req.IdempotencyKey = "cart-123"

	first, err := h.checkout.Checkout(context.Background(), req)
	require.NoError(t, err)
	again := validCheckout("cod", clientItem("Musk", 1, 1200))
	again.IdempotencyKey = "cart-123"
	second, err := h.checkout.Checkout(context.Background(), again)
	require.NoError(t, err)
	h.notifier.Wait()

	assert.Equal(t, first.OrderNumber, second.OrderNumber)
	assert.True(t, second.Replayed)
	assert.Len(t, h.orders.orders, 1)
	assert.Len(t, h.mailer.messages(), 2)
}

func TestCheckoutFingerprintGuardsWithoutKey(t *testing.T) {
	h := newHarness()
	first, err := h.checkout.Checkout(context.Background(), validCheckout("cod", clientItem("Musk", 1, 1200)))
	require.NoError(t, err)
	second, err := h.checkout.Checkout(context.Background(), validCheckout("cod", clientItem("Musk", 1, 1200)))
	require.NoError(t, err)
	assert.Equal(t, first.OrderNumber, second.OrderNumber)

	third, err := h.checkout.Checkout(context.Background(), validCheckout("cod", clientItem("Musk", 2, 1200)))
	require.NoError(t, err)
	assert.NotEqual(t, first.OrderNumber, third.OrderNumber)
	h.notifier.Wait()
}

func TestCheckoutRejectsConcurrentSubmit(t *testing.T) {
	h := newHarness()
	req := validCheckout("cod", clientItem("Musk", 1, 1200))
	req.IdempotencyKey = "cart-456"
	h.guard.locked[constants.RedisKeyCheckoutLock+"cart-456"] = true

	_, err := h.checkout.Checkout(context.Background(), req)
	assert.True(t, bizErrors.Is(err, bizErrors.ErrCodeCheckoutInProgress))
	assert.Equal(t, 409, bizErrors.HTTPStatus(int(kerrors.FromError(err).Code)))
	assert.Empty(t, h.orders.orders)
}

func TestCheckoutProceedsWhenLockBackendFails(t *testing.T) {
	h := newHarness()
	h.guard.lockErr = errors.New("redis: connection refused")

	res, err := h.checkout.Checkout(context.Background(), validCheckout("cod", clientItem("Musk", 1, 1200)))
	require.NoError(t, err)
	assert.NotEmpty(t, res.OrderNumber)
	h.notifier.Wait()
}

func TestCheckoutValidation(t *testing.T) {
	h := newHarness()
	req := validCheckout("upi")
	req.GuestEmail = ""
	req.ShippingAddress.Phone = "12345"
	req.ShippingAddress.PostalCode = "ABC123"
	req.ShippingAddress.FullName = "A"
	req.Currency = "GBP"

	_, err := h.checkout.Checkout(context.Background(), req)
	require.Error(t, err)
	se := kerrors.FromError(err)
	assert.Equal(t, int32(bizErrors.ErrCodeValidation), se.Code)
	for _, field := range []string{
		"shipping_address.phone",
		"shipping_address.postal_code",
		"shipping_address.full_name",
		"guest_email",
		"items",
		"payment_method",
		"currency",
	} {
		assert.Contains(t, se.Metadata, field)
	}
	assert.Empty(t, h.orders.orders, "no order on validation failure")

	bad := validCheckout("cod", &CheckoutItem{ProductID: "p1", Quantity: 0})
	fields := ValidateCheckout(bad)
	assert.Contains(t, fields, "items[0].quantity")

	member := validCheckout("cod", clientItem("Musk", 1, 100))
	member.GuestEmail = ""
	member.UserID = "user-1"
	assert.Empty(t, ValidateCheckout(member))
}

func TestCheckoutQuantityBounds(t *testing.T) {
	over := validCheckout("cod", &CheckoutItem{ProductID: "p1", ProductName: "Musk", Quantity: constants.MaxItemQuantity + 1, UnitPrice: dec("100")})
	fields := ValidateCheckout(over)
	assert.Contains(t, fields, "items[0].quantity")

	huge := validCheckout("cod", &CheckoutItem{ProductID: "p1", ProductName: "Musk", Quantity: 1_000_000_000, UnitPrice: dec("100")})
	assert.Contains(t, ValidateCheckout(huge), "items[0].quantity")

	atLimit := validCheckout("cod", &CheckoutItem{ProductID: "p1", ProductName: "Musk", Quantity: constants.MaxItemQuantity, UnitPrice: dec("100")})
	assert.Empty(t, ValidateCheckout(atLimit))
}

func TestCheckoutRejectsTotalAboveLimit(t *testing.T) {
	h := newHarness()
	req := validCheckout("razorpay", &CheckoutItem{ProductID: "p1", ProductName: "Musk", Quantity: 100, UnitPrice: dec("1000000000")})

	_, err := h.checkout.Checkout(context.Background(), req)
	require.Error(t, err)
	se := kerrors.FromError(err)
	assert.Equal(t, int32(bizErrors.ErrCodeValidation), se.Code)
	assert.Contains(t, se.Metadata, "total")
	assert.Empty(t, h.orders.orders)
	assert.Zero(t, h.gateway.calls())
}

func TestCheckoutOnlineRequiresGateway(t *testing.T) {
	h := newHarness()
	h.gateway.configured = false

	_, err := h.checkout.Checkout(context.Background(), validCheckout("razorpay", clientItem("Musk", 1, 1200)))
	assert.True(t, bizErrors.Is(err, bizErrors.ErrCodeGatewayNotConfigured))
	assert.Empty(t, h.orders.orders)

	h = newHarness()
	h.settings.snap.Gateway.Enabled = false
	_, err = h.checkout.Checkout(context.Background(), validCheckout("razorpay", clientItem("Musk", 1, 1200)))
	assert.True(t, bizErrors.Is(err, bizErrors.ErrCodeGatewayNotConfigured))
}

func TestCheckoutPricesFromCatalog(t *testing.T) {
	h := newHarness()
	h.catalog.enabled = true
	h.catalog.products["p1"] = &Product{ID: "p1", Name: "Oud Royale", Price: dec("2499"), SalePrice: decimal.NewNullDecimal(dec("1999")), Visible: true}
	h.catalog.products["p2"] = &Product{ID: "p2", Name: "Rose Attar", Price: dec("899"), Visible: true}
	h.catalog.variants["v1"] = &ProductVariant{ID: "v1", ProductID: "p2", Size: "50ml", SKU: "RA-50", Price: dec("1299"), Visible: true}
	h.catalog.products["p3"] = &Product{ID: "p3", Name: "Hidden", Price: dec("10"), Visible: false}

	req := validCheckout("cod",
		&CheckoutItem{ProductID: "p1", Quantity: 1, UnitPrice: dec("1")},
		&CheckoutItem{ProductID: "p2", VariantID: "v1", Quantity: 2},
	)
	res, err := h.checkout.Checkout(context.Background(), req)
	require.NoError(t, err)
	h.notifier.Wait()

	o := h.orders.snapshot(res.OrderNumber)
	require.Len(t, o.Items, 2)
	assert.Equal(t, "1999.00", o.Items[0].UnitPrice.StringFixed(2), "client price ignored")
	assert.Equal(t, "Oud Royale", o.Items[0].ProductName)
	assert.Equal(t, "50ml", o.Items[1].VariantSize)
	assert.Equal(t, "RA-50", o.Items[1].VariantSKU)
	assert.Equal(t, "2598.00", o.Items[1].TotalPrice.StringFixed(2))
	assert.Equal(t, "4597.00", o.Subtotal.StringFixed(2))

	_, err = h.checkout.Checkout(context.Background(), validCheckout("cod", &CheckoutItem{ProductID: "p3", ProductName: "Hidden", Quantity: 1}))
	assert.True(t, bizErrors.Is(err, bizErrors.ErrCodeProductUnavailable))
	_, err = h.checkout.Checkout(context.Background(), validCheckout("cod", &CheckoutItem{ProductID: "p1", VariantID: "v1", Quantity: 1}))
	assert.True(t, bizErrors.Is(err, bizErrors.ErrCodeProductUnavailable), "variant of another product")
}

func TestCheckoutAppliesCoupon(t *testing.T) {
	h := newHarness()
	h.coupons.coupons["WELCOME10"] = &Coupon{ID: "c1", Code: "WELCOME10", DiscountType: "percentage", DiscountValue: dec("10"), Active: true}

	req := validCheckout("cod", clientItem("Musk", 1, 1000))
	req.CouponCode = " welcome10 "
	res, err := h.checkout.Checkout(context.Background(), req)
	require.NoError(t, err)
	h.notifier.Wait()

	o := h.orders.snapshot(res.OrderNumber)
	assert.Equal(t, "100.00", o.DiscountAmount.StringFixed(2))
	assert.Equal(t, "900.00", o.Total.StringFixed(2))
	assert.Equal(t, "c1", o.CouponID)
	assert.Equal(t, []string{"c1"}, h.coupons.incremented)

	bad := validCheckout("cod", clientItem("Musk", 3, 1000))
	bad.CouponCode = "NOPE"
	_, err = h.checkout.Checkout(context.Background(), bad)
	assert.True(t, bizErrors.Is(err, bizErrors.ErrCodeCouponInvalid))
}

func TestCheckoutGatewayFailureLeavesOrderRecoverable(t *testing.T) {
	h := newHarness()
	h.gateway.createErr = bizErrors.GatewayRequest("Authentication failed")

	req := validCheckout("razorpay", clientItem("Attar", 1, 1500))
	req.IdempotencyKey = "cart-789"
	_, err := h.checkout.Checkout(context.Background(), req)
	assert.True(t, bizErrors.Is(err, bizErrors.ErrCodeGatewayRequest))
	require.Len(t, h.orders.orders, 1)

	h.gateway.createErr = nil
	retry := validCheckout("razorpay", clientItem("Attar", 1, 1500))
	retry.IdempotencyKey = "cart-789"
	res, err := h.checkout.Checkout(context.Background(), retry)
	require.NoError(t, err)

	assert.Len(t, h.orders.orders, 1, "retry resumes the same order")
	require.NotNil(t, res.Payment)
	assert.Equal(t, int64(150000), res.Payment.Amount)
	assert.Equal(t, res.OrderNumber, res.Payment.Receipt)
	assert.Equal(t, 2, h.gateway.calls())
}
