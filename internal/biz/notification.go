package biz

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/elakshat/mystamoura-e-commerce-launch/internal/conf"
	"github.com/elakshat/mystamoura-e-commerce-launch/internal/constants"
	"github.com/elakshat/mystamoura-e-commerce-launch/internal/pkg/telemetry"

	"github.com/go-kratos/kratos/v2/log"
)

// EmailMessage 待发送邮件
type EmailMessage struct {
	To      []string
	Subject string
	HTML    string
	ReplyTo string
}

// Mailer 邮件发送客户端接口 (防腐层)
type Mailer interface {
	// Enabled is false when no provider credential is configured.
	Enabled() bool
	Send(ctx context.Context, msg *EmailMessage) error
}

// NotificationLedger records which notifications were already dispatched.
type NotificationLedger interface {
	// MarkOnce returns true the first time key is marked within ttl.
	MarkOnce(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// NotificationResult 通知发送结果
type NotificationResult struct {
	CustomerSent bool
	AdminSent    bool
}

// NotificationUsecase sends best-effort order emails. Failures are logged and
// never returned to checkout or payment callers.
type NotificationUsecase struct {
	orders     OrderRepo
	mailer     Mailer
	ledger     NotificationLedger
	metrics    *telemetry.Metrics
	adminEmail string
	storeName  string
	timeout    time.Duration
	wg         sync.WaitGroup
	log        *log.Helper
}

func NewNotificationUsecase(c *conf.Bootstrap, orders OrderRepo, mailer Mailer, ledger NotificationLedger, metrics *telemetry.Metrics, logger log.Logger) *NotificationUsecase {
	uc := &NotificationUsecase{
		orders:    orders,
		mailer:    mailer,
		ledger:    ledger,
		metrics:   metrics,
		storeName: "Mystamoura",
		timeout:   constants.DefaultNotificationTimeout,
		log:       log.NewHelper(logger),
	}
	if c != nil && c.Notification != nil {
		uc.adminEmail = c.Notification.AdminEmail
		if c.Notification.StoreName != "" {
			uc.storeName = c.Notification.StoreName
		}
		uc.timeout = conf.Duration(c.Notification.Timeout, constants.DefaultNotificationTimeout)
	}
	return uc
}

// SendOrderConfirmation loads the order fresh and sends the customer and admin
// emails independently of each other.
func (uc *NotificationUsecase) SendOrderConfirmation(ctx context.Context, orderNumber string) (*NotificationResult, error) {
	res := &NotificationResult{}
	if !uc.mailer.Enabled() || !uc.orders.Enabled() {
		return res, nil
	}

	o, err := uc.orders.GetByNumber(ctx, orderNumber)
	if err != nil {
		return res, fmt.Errorf("load order %s: %w", orderNumber, err)
	}
	data := map[string]any{
		"Order":         o,
		"Paid":          o.PaymentStatus == constants.PaymentStatusCompleted,
		"StoreName":     uc.storeName,
		"CustomerEmail": o.CustomerEmail(),
	}

	if to := o.CustomerEmail(); to != "" {
		res.CustomerSent = uc.send(ctx, "customer", "customer", &EmailMessage{
			To:      []string{to},
			Subject: fmt.Sprintf("Order Confirmed - %s", o.OrderNumber),
		}, data)
	} else {
		uc.log.Warnf("Order %s has no customer email, skipping confirmation", orderNumber)
	}

	if uc.adminEmail != "" {
		res.AdminSent = uc.send(ctx, "admin", "admin", &EmailMessage{
			To:      []string{uc.adminEmail},
			Subject: fmt.Sprintf("New Order Received - %s", o.OrderNumber),
			ReplyTo: o.CustomerEmail(),
		}, data)
	}
	return res, nil
}

func (uc *NotificationUsecase) send(ctx context.Context, recipient, tmpl string, msg *EmailMessage, data any) bool {
	html, err := renderEmail(tmpl, data)
	if err != nil {
		uc.log.Errorf("Failed to render %s email: %v", tmpl, err)
		uc.metrics.Notification(ctx, recipient, "render_error")
		return false
	}
	msg.HTML = html
	if err := uc.mailer.Send(ctx, msg); err != nil {
		uc.log.Errorf("Failed to send %s email to %v: %v", recipient, msg.To, err)
		uc.metrics.Notification(ctx, recipient, "failed")
		return false
	}
	uc.metrics.Notification(ctx, recipient, "sent")
	return true
}

// DispatchOrderConfirmation sends the confirmation in the background at most
// once per order number. The caller's response is never delayed by it.
func (uc *NotificationUsecase) DispatchOrderConfirmation(ctx context.Context, orderNumber string) {
	if !uc.mailer.Enabled() {
		uc.log.Debugf("Email not configured, skipping notification for %s", orderNumber)
		return
	}
	first, err := uc.ledger.MarkOnce(ctx, constants.RedisKeyNotified+orderNumber, constants.NotificationDedupeExpiration)
	if err != nil {
		uc.log.Warnf("Notification dedupe unavailable for %s, sending anyway: %v", orderNumber, err)
		first = true
	}
	if !first {
		uc.log.Infof("Notification for %s already dispatched, skipping (idempotent)", orderNumber)
		return
	}

	uc.wg.Add(1)
	go func() {
		defer uc.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), uc.timeout)
		defer cancel()

		res, err := uc.SendOrderConfirmation(ctx, orderNumber)
		if err != nil {
			uc.log.Errorf("Order notification for %s failed: %v", orderNumber, err)
			return
		}
		uc.log.Infof("Order notification for %s: customer=%t admin=%t", orderNumber, res.CustomerSent, res.AdminSent)
	}()
}

// NotifyAdmin sends a rendered template to the admin address.
func (uc *NotificationUsecase) NotifyAdmin(ctx context.Context, subject, tmpl string, data any) bool {
	if !uc.mailer.Enabled() || uc.adminEmail == "" {
		return false
	}
	return uc.send(ctx, "admin", tmpl, &EmailMessage{To: []string{uc.adminEmail}, Subject: subject}, data)
}

// SendStaleOrderDigest emails the admin the list of orders still awaiting payment.
func (uc *NotificationUsecase) SendStaleOrderDigest(ctx context.Context, orders []*Order, age time.Duration) bool {
	return uc.NotifyAdmin(ctx, fmt.Sprintf("%d order(s) awaiting payment", len(orders)), "stale", map[string]any{
		"Orders": orders,
		"Age":    age,
	})
}

// Wait blocks until background notifications have finished.
func (uc *NotificationUsecase) Wait() {
	uc.wg.Wait()
}
