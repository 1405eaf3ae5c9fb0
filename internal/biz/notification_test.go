package biz

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedOrder(h *harness) *Order {
	o := &Order{
		OrderNumber:   "MYS-20260101-0007",
		GuestEmail:    "asha@example.com",
		Status:        "paid",
		PaymentStatus: "completed",
		PaymentMethod: "razorpay",
		PaymentID:     "pay_007",
		Subtotal:      dec("1998"),
		TaxAmount:     dec("0"),
		Total:         dec("1998"),
		ShippingAddress: ShippingAddress{
			FullName: "Asha <script>Rao</script>", Phone: "9876543210",
			AddressLine1: "12 MG Road", City: "Bengaluru", State: "Karnataka", PostalCode: "560001", Country: "India",
		},
		Items: []*OrderItem{
			{ProductName: "Oud Royale", VariantSize: "50ml", Quantity: 2, UnitPrice: dec("999"), TotalPrice: dec("1998")},
		},
		CreatedAt: time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC),
	}
	h.orders.put(o)
	return o
}

func TestSendOrderConfirmation(t *testing.T) {
	h := newHarness()
	seedOrder(h)

	res, err := h.notifier.SendOrderConfirmation(context.Background(), "MYS-20260101-0007")
	require.NoError(t, err)
	assert.True(t, res.CustomerSent)
	assert.True(t, res.AdminSent)

	msgs := h.mailer.messages()
	require.Len(t, msgs, 2)
	customer, admin := msgs[0], msgs[1]
	assert.Equal(t, []string{"asha@example.com"}, customer.To)
	assert.Equal(t, "Order Confirmed - MYS-20260101-0007", customer.Subject)
	assert.Contains(t, customer.HTML, "₹1998.00")
	assert.Contains(t, customer.HTML, "Oud Royale (50ml)")
	assert.Contains(t, customer.HTML, "payment was successful")
	assert.NotContains(t, customer.HTML, "<script>", "customer input is escaped")

	assert.Equal(t, []string{"admin@example.com"}, admin.To)
	assert.Equal(t, "asha@example.com", admin.ReplyTo)
	assert.Contains(t, admin.HTML, "pay_007")
}

func TestSendOrderConfirmationFailuresAreIndependent(t *testing.T) {
	h := newHarness()
	seedOrder(h)
	h.mailer.sendFn = func(msg *EmailMessage) error {
		if msg.To[0] == "asha@example.com" {
			return errors.New("mailbox unavailable")
		}
		return nil
	}

	res, err := h.notifier.SendOrderConfirmation(context.Background(), "MYS-20260101-0007")
	require.NoError(t, err)
	assert.False(t, res.CustomerSent)
	assert.True(t, res.AdminSent)
}

func TestSendOrderConfirmationWithoutKeyIsNoop(t *testing.T) {
	h := newHarness()
	h.mailer.enabled = false
	seedOrder(h)

	res, err := h.notifier.SendOrderConfirmation(context.Background(), "MYS-20260101-0007")
	require.NoError(t, err)
	assert.Equal(t, &NotificationResult{}, res)
	assert.Empty(t, h.mailer.messages())
}

func TestSendOrderConfirmationUnknownOrder(t *testing.T) {
	h := newHarness()
	_, err := h.notifier.SendOrderConfirmation(context.Background(), "MYS-20260101-0404")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestDispatchOrderConfirmationOncePerOrder(t *testing.T) {
	h := newHarness()
	seedOrder(h)

	ctx, cancel := context.WithCancel(context.Background())
	h.notifier.DispatchOrderConfirmation(ctx, "MYS-20260101-0007")
	cancel()
	h.notifier.DispatchOrderConfirmation(context.Background(), "MYS-20260101-0007")
	h.notifier.Wait()

	assert.Len(t, h.mailer.messages(), 2, "request cancellation does not abort the send")
}

func TestDispatchSendsWhenLedgerUnavailable(t *testing.T) {
	h := newHarness()
	seedOrder(h)
	h.ledger.err = errors.New("redis down")

	h.notifier.DispatchOrderConfirmation(context.Background(), "MYS-20260101-0007")
	h.notifier.Wait()
	assert.Len(t, h.mailer.messages(), 2)
}
