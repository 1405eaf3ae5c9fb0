package biz

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/elakshat/mystamoura-e-commerce-launch/internal/conf"
	"github.com/elakshat/mystamoura-e-commerce-launch/internal/constants"
	bizErrors "github.com/elakshat/mystamoura-e-commerce-launch/internal/errors"
	"github.com/elakshat/mystamoura-e-commerce-launch/internal/pkg/telemetry"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/shopspring/decimal"
)

// GatewayOrderRequest 创建网关订单请求
type GatewayOrderRequest struct {
	OrderNumber string
	Amount      decimal.Decimal
	Currency    string
	Notes       map[string]string
}

// GatewayOrder is the remote order resource. Amount is in minor units.
type GatewayOrder struct {
	ID        string `json:"id"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Receipt   string `json:"receipt"`
	Status    string `json:"status"`
	KeyID     string `json:"key_id,omitempty"`
	CreatedAt int64  `json:"created_at"`
}

// GatewayClient 支付网关客户端接口 (防腐层)
type GatewayClient interface {
	Configured() bool
	KeyID() string
	// CreateOrder creates a billable-intent order at the gateway. It is never
	// retried internally; the receipt carries the local order number.
	CreateOrder(ctx context.Context, req *GatewayOrderRequest) (*GatewayOrder, error)
	FetchOrder(ctx context.Context, gatewayOrderID string) (*GatewayOrder, error)
}

// VerifyPaymentRequest is the tuple the client posts back after the widget completes.
type VerifyPaymentRequest struct {
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
	OrderNumber      string
	ClientIP         string
}

// VerifyPaymentResult 支付校验结果
type VerifyPaymentResult struct {
	OrderNumber     string
	PaymentID       string
	AlreadyVerified bool
}

// PaymentUsecase drives the gateway hand-off and verifies callbacks.
type PaymentUsecase struct {
	gateway     GatewayClient
	settings    SettingsRepo
	orders      OrderRepo
	activity    ActivityRepo
	tm          Transaction
	notifier    *NotificationUsecase
	metrics     *telemetry.Metrics
	secret      string
	gatewayName string
	log         *log.Helper
}

func NewPaymentUsecase(c *conf.Bootstrap, gateway GatewayClient, settings SettingsRepo, orders OrderRepo, activity ActivityRepo, tm Transaction, notifier *NotificationUsecase, metrics *telemetry.Metrics, logger log.Logger) *PaymentUsecase {
	uc := &PaymentUsecase{
		gateway:     gateway,
		settings:    settings,
		orders:      orders,
		activity:    activity,
		tm:          tm,
		notifier:    notifier,
		metrics:     metrics,
		gatewayName: constants.PaymentMethodRazorpay,
		log:         log.NewHelper(logger),
	}
	if c != nil && c.Gateway != nil {
		uc.secret = c.Gateway.KeySecret
		if c.Gateway.Name != "" {
			uc.gatewayName = c.Gateway.Name
		}
	}
	return uc
}

// CreatePayment creates a gateway order for an existing local order. The
// charged amount is always the stored order total; the requested amount is
// only used when no database is configured.
func (uc *PaymentUsecase) CreatePayment(ctx context.Context, orderNumber string, requested decimal.Decimal, currency string, notes map[string]string) (*GatewayOrder, error) {
	if !uc.gateway.Configured() {
		uc.log.Errorf("Payment gateway not configured, cannot create payment for %s", orderNumber)
		return nil, bizErrors.GatewayNotConfigured()
	}
	if snap := loadSettings(ctx, uc.settings, uc.log); !snap.Gateway.Enabled {
		uc.log.Errorf("Payment gateway disabled in site settings, cannot create payment for %s", orderNumber)
		return nil, bizErrors.GatewayNotConfigured()
	}
	if currency == "" {
		currency = constants.DefaultCurrency
	}

	amount := requested
	if uc.orders.Enabled() {
		o, err := uc.orders.GetByNumber(ctx, orderNumber)
		if err != nil {
			if errors.Is(err, ErrOrderNotFound) {
				return nil, bizErrors.OrderNotFound()
			}
			return nil, bizErrors.Internal(err)
		}
		if o.Status != constants.OrderStatusPending ||
			(o.PaymentStatus != constants.PaymentStatusAwaiting && o.PaymentStatus != constants.PaymentStatusFailed) {
			return nil, bizErrors.OrderNotPayable(o.Status, o.PaymentStatus)
		}
		if !requested.IsZero() && !requested.Round(2).Equal(o.Total) {
			uc.log.Warnf("Requested amount %s for %s differs from stored total %s, charging stored total",
				requested.StringFixed(2), orderNumber, o.Total.StringFixed(2))
		}
		amount = o.Total
		if o.PaymentStatus == constants.PaymentStatusFailed {
			if _, err := uc.orders.UpdateStatus(ctx, orderNumber, StatusUpdate{PaymentStatus: constants.PaymentStatusAwaiting}); err != nil {
				uc.log.Warnf("Failed to reset payment status for %s: %v", orderNumber, err)
			}
		}
	} else {
		uc.log.Warnf("Database not configured, charging client supplied amount %s for %s", amount.StringFixed(2), orderNumber)
	}

	return uc.openGatewayOrder(ctx, orderNumber, amount, currency, notes)
}

func (uc *PaymentUsecase) openGatewayOrder(ctx context.Context, orderNumber string, amount decimal.Decimal, currency string, notes map[string]string) (*GatewayOrder, error) {
	if _, err := MinorUnits(amount); err != nil {
		uc.log.Warnf("Gateway order for %s rejected: %v", orderNumber, err)
		return nil, bizErrors.Validation("Amount exceeds the maximum allowed", map[string]string{
			"amount": fmt.Sprintf("Amount must not exceed %s", constants.MaxOrderAmount),
		})
	}
	if len(notes) == 0 {
		notes = map[string]string{"order_number": orderNumber}
	}
	gwOrder, err := uc.gateway.CreateOrder(ctx, &GatewayOrderRequest{
		OrderNumber: orderNumber,
		Amount:      amount,
		Currency:    currency,
		Notes:       notes,
	})
	if err != nil {
		uc.log.Errorf("Gateway order creation failed for %s: %v", orderNumber, err)
		return nil, err
	}
	gwOrder.KeyID = uc.gateway.KeyID()
	uc.log.Infof("Gateway order %s created for %s: %d %s", gwOrder.ID, orderNumber, gwOrder.Amount, gwOrder.Currency)
	return gwOrder, nil
}

// PaymentStatus fetches the remote gateway order.
func (uc *PaymentUsecase) PaymentStatus(ctx context.Context, gatewayOrderID string) (*GatewayOrder, error) {
	if !uc.gateway.Configured() {
		return nil, bizErrors.GatewayNotConfigured()
	}
	return uc.gateway.FetchOrder(ctx, gatewayOrderID)
}

// VerifyPayment is the single point where money received is recorded.
func (uc *PaymentUsecase) VerifyPayment(ctx context.Context, req *VerifyPaymentRequest) (*VerifyPaymentResult, error) {
	if fields := validateVerifyRequest(req); len(fields) > 0 {
		return nil, bizErrors.Validation("Missing required payment verification fields", fields)
	}
	if uc.secret == "" {
		uc.log.Errorf("Gateway secret not configured, cannot verify payment for %s", req.OrderNumber)
		return nil, bizErrors.GatewayNotConfigured()
	}

	if !VerifyPaymentSignature(req.GatewayOrderID, req.GatewayPaymentID, req.Signature, uc.secret) {
		uc.rejectSignature(ctx, req)
		return nil, bizErrors.SignatureMismatch()
	}

	if !uc.orders.Enabled() {
		uc.log.Warnf("Database not configured, payment %s verified for %s without recording it", req.GatewayPaymentID, req.OrderNumber)
		uc.metrics.PaymentVerification(ctx, "verified_unrecorded")
		return &VerifyPaymentResult{OrderNumber: req.OrderNumber, PaymentID: req.GatewayPaymentID}, nil
	}

	current, err := uc.orders.GetByNumber(ctx, req.OrderNumber)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, bizErrors.OrderNotFound()
		}
		return nil, bizErrors.Internal(err)
	}
	if current.PaymentStatus == constants.PaymentStatusCompleted {
		return uc.alreadyVerified(ctx, current, req), nil
	}
	if err := uc.checkBinding(ctx, current, req); err != nil {
		return nil, err
	}

	var (
		updated       *Order
		alreadyDone   bool
		recordedPayID string
	)
	err = uc.tm.Exec(ctx, func(ctx context.Context) error {
		o, err := uc.orders.LockByNumber(ctx, req.OrderNumber)
		if err != nil {
			return err
		}
		if o.PaymentStatus == constants.PaymentStatusCompleted {
			alreadyDone = true
			updated = o
			return nil
		}
		upd := StatusUpdate{
			PaymentStatus: constants.PaymentStatusCompleted,
			PaymentID:     req.GatewayPaymentID,
			PaymentMethod: uc.gatewayName,
		}
		// 只从 pending 推进到 paid，不回退已进入履约流程的订单
		if o.Status == constants.OrderStatusPending {
			upd.Status = constants.OrderStatusPaid
		}
		updated, err = uc.orders.UpdateStatus(ctx, req.OrderNumber, upd)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, bizErrors.OrderNotFound()
		}
		uc.log.Errorf("Failed to record payment %s for %s: %v", req.GatewayPaymentID, req.OrderNumber, err)
		return nil, bizErrors.OrderUpdateFailed(err)
	}
	if alreadyDone {
		return uc.alreadyVerified(ctx, updated, req), nil
	}
	recordedPayID = updated.PaymentID

	uc.log.Infof("Payment verified: order=%s payment=%s", req.OrderNumber, recordedPayID)
	uc.metrics.PaymentVerification(ctx, "verified")
	if err := uc.activity.Record(ctx, &Activity{
		Action:     constants.ActivityPaymentReceived,
		EntityType: constants.EntityOrder,
		EntityID:   updated.ID,
		UserID:     updated.UserID,
		Details: map[string]any{
			"order_number":     req.OrderNumber,
			"payment_id":       req.GatewayPaymentID,
			"gateway_order_id": req.GatewayOrderID,
			"amount":           updated.Total.StringFixed(2),
		},
	}); err != nil {
		uc.log.Warnf("Failed to record payment activity for %s: %v", req.OrderNumber, err)
	}

	uc.notifier.DispatchOrderConfirmation(ctx, req.OrderNumber)

	return &VerifyPaymentResult{OrderNumber: req.OrderNumber, PaymentID: recordedPayID}, nil
}

// alreadyVerified handles duplicate callbacks without touching financial state.
func (uc *PaymentUsecase) alreadyVerified(ctx context.Context, o *Order, req *VerifyPaymentRequest) *VerifyPaymentResult {
	if o.PaymentID != "" && o.PaymentID != req.GatewayPaymentID {
		uc.log.Warnf("Order %s already paid with %s, ignoring second payment %s", o.OrderNumber, o.PaymentID, req.GatewayPaymentID)
		uc.metrics.PaymentVerification(ctx, "conflicting_payment")
	} else {
		uc.log.Infof("Order %s already verified, skipping (idempotent)", o.OrderNumber)
		uc.metrics.PaymentVerification(ctx, "duplicate")
	}
	return &VerifyPaymentResult{OrderNumber: o.OrderNumber, PaymentID: o.PaymentID, AlreadyVerified: true}
}

// checkBinding confirms the signed gateway order was opened for this local
// order and amount, so a valid tuple from another order cannot settle this one.
func (uc *PaymentUsecase) checkBinding(ctx context.Context, o *Order, req *VerifyPaymentRequest) error {
	gw, err := uc.gateway.FetchOrder(ctx, req.GatewayOrderID)
	if err != nil {
		uc.log.Errorf("Failed to fetch gateway order %s for %s: %v", req.GatewayOrderID, o.OrderNumber, err)
		return err
	}
	want, convErr := MinorUnits(o.Total)
	if convErr != nil || gw.Receipt != o.OrderNumber || gw.Amount != want {
		uc.log.Warnf("Possible tampering: gateway order %s (receipt=%s amount=%d) does not match order %s (amount=%s) ip=%s",
			req.GatewayOrderID, gw.Receipt, gw.Amount, o.OrderNumber, o.Total.StringFixed(2), req.ClientIP)
		uc.metrics.PaymentVerification(ctx, "binding_mismatch")
		return bizErrors.SignatureMismatch()
	}
	return nil
}

// rejectSignature marks the payment attempt failed without touching the
// fulfilment status. A completed payment is never downgraded.
func (uc *PaymentUsecase) rejectSignature(ctx context.Context, req *VerifyPaymentRequest) {
	uc.log.Warnf("Possible tampering: signature mismatch for order=%s gateway_order=%s payment=%s ip=%s",
		req.OrderNumber, req.GatewayOrderID, req.GatewayPaymentID, req.ClientIP)
	uc.metrics.PaymentVerification(ctx, "signature_mismatch")
	if !uc.orders.Enabled() {
		return
	}

	var o *Order
	err := uc.tm.Exec(ctx, func(ctx context.Context) error {
		var err error
		o, err = uc.orders.LockByNumber(ctx, req.OrderNumber)
		if err != nil {
			return err
		}
		if o.PaymentStatus == constants.PaymentStatusCompleted {
			uc.log.Warnf("Order %s is already paid, not marking it failed", req.OrderNumber)
			return nil
		}
		o, err = uc.orders.UpdateStatus(ctx, req.OrderNumber, StatusUpdate{PaymentStatus: constants.PaymentStatusFailed})
		return err
	})
	if err != nil {
		if !errors.Is(err, ErrOrderNotFound) {
			uc.log.Errorf("Failed to mark payment failed for %s: %v", req.OrderNumber, err)
		}
		return
	}
	if err := uc.activity.Record(ctx, &Activity{
		Action:     constants.ActivityPaymentVerificationFailed,
		EntityType: constants.EntityOrder,
		EntityID:   o.ID,
		Details: map[string]any{
			"order_number":     req.OrderNumber,
			"payment_id":       req.GatewayPaymentID,
			"gateway_order_id": req.GatewayOrderID,
			"client_ip":        req.ClientIP,
		},
	}); err != nil {
		uc.log.Warnf("Failed to record verification failure for %s: %v", req.OrderNumber, err)
	}
}

func validateVerifyRequest(req *VerifyPaymentRequest) map[string]string {
	fields := map[string]string{}
	if strings.TrimSpace(req.GatewayOrderID) == "" {
		fields["razorpay_order_id"] = "Razorpay order ID is required"
	}
	if strings.TrimSpace(req.GatewayPaymentID) == "" {
		fields["razorpay_payment_id"] = "Razorpay payment ID is required"
	}
	if strings.TrimSpace(req.Signature) == "" {
		fields["razorpay_signature"] = "Razorpay signature is required"
	}
	if strings.TrimSpace(req.OrderNumber) == "" {
		fields["order_number"] = "Order number is required"
	}
	return fields
}
