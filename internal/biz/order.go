package biz

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"regexp"
	"time"

	"github.com/elakshat/mystamoura-e-commerce-launch/internal/conf"
	"github.com/elakshat/mystamoura-e-commerce-launch/internal/constants"
	bizErrors "github.com/elakshat/mystamoura-e-commerce-launch/internal/errors"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/shopspring/decimal"
)

// ErrDuplicateOrderNumber is returned by OrderRepo.Create when the generated
// order number is already taken.
var ErrDuplicateOrderNumber = errors.New("order number already exists")

// ErrOrderNotFound is returned by OrderRepo lookups.
var ErrOrderNotFound = errors.New("order not found")

// ShippingAddress 下单时的收货地址快照
type ShippingAddress struct {
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

// Order 订单聚合根
type Order struct {
	ID              string
	OrderNumber     string
	UserID          string
	GuestEmail      string
	Status          string
	PaymentStatus   string
	PaymentMethod   string
	PaymentID       string
	Subtotal        decimal.Decimal
	ShippingAmount  decimal.Decimal
	TaxAmount       decimal.Decimal
	DiscountAmount  decimal.Decimal
	Total           decimal.Decimal
	ShippingAddress ShippingAddress
	CouponID        string
	Notes           string
	Items           []*OrderItem
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// CustomerEmail is the address order confirmations go to.
func (o *Order) CustomerEmail() string {
	if o.GuestEmail != "" {
		return o.GuestEmail
	}
	return o.ShippingAddress.Email
}

// OrderItem 订单行快照，创建后不可变
type OrderItem struct {
	ID           string
	OrderID      string
	ProductID    string
	ProductName  string
	ProductImage string
	VariantID    string
	VariantSize  string
	VariantSKU   string
	Quantity     int
	UnitPrice    decimal.Decimal
	TotalPrice   decimal.Decimal
}

// StatusUpdate is a partial update; empty fields are left unchanged.
type StatusUpdate struct {
	Status        string
	PaymentStatus string
	PaymentID     string
	PaymentMethod string
}

func (u StatusUpdate) Empty() bool {
	return u.Status == "" && u.PaymentStatus == "" && u.PaymentID == "" && u.PaymentMethod == ""
}

// OrderRepo 订单仓库接口
type OrderRepo interface {
	// Enabled reports whether a database is configured.
	Enabled() bool
	// Create inserts the order and its items. The order number must already
	// be set; ErrDuplicateOrderNumber signals a collision.
	Create(ctx context.Context, order *Order) (*Order, error)
	GetByNumber(ctx context.Context, orderNumber string) (*Order, error)
	// LockByNumber loads the order row for update inside the current transaction.
	LockByNumber(ctx context.Context, orderNumber string) (*Order, error)
	UpdateStatus(ctx context.Context, orderNumber string, upd StatusUpdate) (*Order, error)
	ListStale(ctx context.Context, before time.Time, limit int) ([]*Order, error)
}

var orderNumberPattern = regexp.MustCompile(`^[A-Z0-9]+-\d{8}-\d{4}$`)

// ValidOrderNumber reports whether s looks like PREFIX-YYYYMMDD-NNNN.
func ValidOrderNumber(s string) bool {
	return orderNumberPattern.MatchString(s)
}

// OrderNumberGenerator 生成 PREFIX-YYYYMMDD-NNNN 格式订单号
type OrderNumberGenerator struct {
	prefix string
	now    func() time.Time
	suffix func() int
}

func NewOrderNumberGenerator(prefix string) *OrderNumberGenerator {
	return &OrderNumberGenerator{
		prefix: prefix,
		now:    time.Now,
		suffix: func() int { return rand.IntN(10000) },
	}
}

func (g *OrderNumberGenerator) Next() string {
	return fmt.Sprintf("%s-%s-%04d", g.prefix, g.now().UTC().Format("20060102"), g.suffix()%10000)
}

// OrderUsecase 订单业务逻辑
type OrderUsecase struct {
	repo        OrderRepo
	activity    ActivityRepo
	notifier    *NotificationUsecase
	numbers     *OrderNumberGenerator
	maxAttempts int
	staleAfter  time.Duration
	log         *log.Helper
}

func NewOrderUsecase(c *conf.Bootstrap, repo OrderRepo, activity ActivityRepo, notifier *NotificationUsecase, logger log.Logger) *OrderUsecase {
	uc := &OrderUsecase{
		repo:        repo,
		activity:    activity,
		notifier:    notifier,
		numbers:     NewOrderNumberGenerator("MYS"),
		maxAttempts: 5,
		staleAfter:  constants.DefaultStaleOrderAge,
		log:         log.NewHelper(logger),
	}
	if c != nil && c.Order != nil {
		if c.Order.NumberPrefix != "" {
			uc.numbers = NewOrderNumberGenerator(c.Order.NumberPrefix)
		}
		if c.Order.MaxNumberAttempts > 0 {
			uc.maxAttempts = c.Order.MaxNumberAttempts
		}
		uc.staleAfter = conf.Duration(c.Order.StaleAfter, constants.DefaultStaleOrderAge)
	}
	return uc
}

// CreateOrder assigns an order number and persists the order, retrying with a
// fresh number when the datastore reports a collision. Without a database the
// order only receives a number.
func (uc *OrderUsecase) CreateOrder(ctx context.Context, order *Order) (*Order, error) {
	if !uc.repo.Enabled() {
		order.OrderNumber = uc.numbers.Next()
		uc.log.Warnf("Database not configured, order number %s generated without persisting", order.OrderNumber)
		return order, nil
	}

	var lastErr error
	for attempt := 1; attempt <= uc.maxAttempts; attempt++ {
		order.OrderNumber = uc.numbers.Next()
		created, err := uc.repo.Create(ctx, order)
		if err == nil {
			uc.log.Infof("Order created: %s (attempt %d)", created.OrderNumber, attempt)
			return created, nil
		}
		if !errors.Is(err, ErrDuplicateOrderNumber) {
			uc.log.Errorf("Failed to create order: %v", err)
			return nil, bizErrors.OrderCreateFailed(err)
		}
		uc.log.Warnf("Order number %s already taken, retrying (%d/%d)", order.OrderNumber, attempt, uc.maxAttempts)
		lastErr = err
	}
	return nil, bizErrors.OrderCreateFailed(fmt.Errorf("no free order number after %d attempts: %w", uc.maxAttempts, lastErr))
}

// GetOrder 按订单号查询订单及明细
func (uc *OrderUsecase) GetOrder(ctx context.Context, orderNumber string) (*Order, error) {
	if !uc.repo.Enabled() {
		return nil, bizErrors.StorageDisabled()
	}
	o, err := uc.repo.GetByNumber(ctx, orderNumber)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, bizErrors.OrderNotFound()
		}
		uc.log.Errorf("Failed to get order %s: %v", orderNumber, err)
		return nil, bizErrors.Internal(err)
	}
	return o, nil
}

// UpdateStatus applies an administrative status update.
func (uc *OrderUsecase) UpdateStatus(ctx context.Context, orderNumber string, upd StatusUpdate, actor string) (*Order, error) {
	if upd.Empty() {
		return nil, bizErrors.Validation("At least one of status, payment_status or payment_id is required", nil)
	}
	fields := map[string]string{}
	if upd.Status != "" && !ValidOrderStatus(upd.Status) {
		fields["status"] = "Invalid order status"
	}
	if upd.PaymentStatus != "" && !ValidPaymentStatus(upd.PaymentStatus) {
		fields["payment_status"] = "Invalid payment status"
	}
	if len(fields) > 0 {
		return nil, bizErrors.Validation("Validation failed", fields)
	}

	current, err := uc.GetOrder(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if upd.Status != "" {
		probe := *current
		if upd.PaymentStatus != "" {
			probe.PaymentStatus = upd.PaymentStatus
		}
		if !CanTransition(&probe, upd.Status) {
			return nil, bizErrors.InvalidTransition(current.Status, upd.Status)
		}
	}

	updated, err := uc.repo.UpdateStatus(ctx, orderNumber, upd)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, bizErrors.OrderNotFound()
		}
		uc.log.Errorf("Failed to update order %s: %v", orderNumber, err)
		return nil, bizErrors.OrderUpdateFailed(err)
	}
	uc.log.Infof("Order %s updated: status=%s payment_status=%s", orderNumber, updated.Status, updated.PaymentStatus)

	details := map[string]any{
		"order_number": orderNumber,
		"from_status":  current.Status,
		"to_status":    updated.Status,
	}
	if upd.PaymentStatus != "" {
		details["payment_status"] = upd.PaymentStatus
	}
	if err := uc.activity.Record(ctx, &Activity{
		Action:     constants.ActivityOrderStatusUpdated,
		EntityType: constants.EntityOrder,
		EntityID:   updated.ID,
		UserID:     actor,
		Details:    details,
	}); err != nil {
		// 不影响主流程，只记录日志
		uc.log.Warnf("Failed to record status activity for %s: %v", orderNumber, err)
	}
	return updated, nil
}

// ListStaleOrders returns pending orders whose online payment never completed.
func (uc *OrderUsecase) ListStaleOrders(ctx context.Context, now time.Time) ([]*Order, error) {
	if !uc.repo.Enabled() {
		return nil, nil
	}
	return uc.repo.ListStale(ctx, now.Add(-uc.staleAfter), constants.MaxPageSize)
}

// ReportStaleOrders 汇总滞留的待支付订单并通知管理员，不会自动取消订单
func (uc *OrderUsecase) ReportStaleOrders(ctx context.Context, now time.Time) (int, error) {
	orders, err := uc.ListStaleOrders(ctx, now)
	if err != nil {
		uc.log.Errorf("Failed to list stale orders: %v", err)
		return 0, err
	}
	for _, o := range orders {
		uc.log.Infof("Stale order %s: payment_status=%s total=%s created_at=%s",
			o.OrderNumber, o.PaymentStatus, o.Total.StringFixed(2), o.CreatedAt.Format(time.RFC3339))
	}
	if len(orders) > 0 {
		uc.notifier.SendStaleOrderDigest(ctx, orders, uc.staleAfter)
	}
	return len(orders), nil
}
