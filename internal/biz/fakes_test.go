package biz

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/elakshat/mystamoura-e-commerce-launch/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/shopspring/decimal"
)

// memOrderRepo keeps orders in memory. createFn overrides Create when set.
type memOrderRepo struct {
	mu       sync.Mutex
	disabled bool
	orders   map[string]*Order
	seq      int
	createFn func(o *Order) error
	updates  []StatusUpdate
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{orders: map[string]*Order{}}
}

func (r *memOrderRepo) Enabled() bool { return !r.disabled }

func (r *memOrderRepo) Create(_ context.Context, o *Order) (*Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createFn != nil {
		if err := r.createFn(o); err != nil {
			return nil, err
		}
	}
	if _, ok := r.orders[o.OrderNumber]; ok {
		return nil, ErrDuplicateOrderNumber
	}
	r.seq++
	cp := *o
	cp.ID = fmt.Sprintf("order-%d", r.seq)
	cp.CreatedAt = time.Now().UTC()
	cp.UpdatedAt = cp.CreatedAt
	r.orders[o.OrderNumber] = &cp
	out := cp
	return &out, nil
}

func (r *memOrderRepo) GetByNumber(_ context.Context, number string) (*Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[number]
	if !ok {
		return nil, ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *memOrderRepo) LockByNumber(ctx context.Context, number string) (*Order, error) {
	return r.GetByNumber(ctx, number)
}

func (r *memOrderRepo) UpdateStatus(_ context.Context, number string, upd StatusUpdate) (*Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[number]
	if !ok {
		return nil, ErrOrderNotFound
	}
	r.updates = append(r.updates, upd)
	if upd.Status != "" {
		o.Status = upd.Status
	}
	if upd.PaymentStatus != "" {
		o.PaymentStatus = upd.PaymentStatus
	}
	if upd.PaymentID != "" {
		o.PaymentID = upd.PaymentID
	}
	if upd.PaymentMethod != "" {
		o.PaymentMethod = upd.PaymentMethod
	}
	o.UpdatedAt = time.Now().UTC()
	cp := *o
	return &cp, nil
}

func (r *memOrderRepo) ListStale(_ context.Context, before time.Time, limit int) ([]*Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Order
	for _, o := range r.orders {
		if o.Status == "pending" && (o.PaymentStatus == "awaiting" || o.PaymentStatus == "failed") && o.CreatedAt.Before(before) {
			cp := *o
			out = append(out, &cp)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memOrderRepo) put(o *Order) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o.ID == "" {
		r.seq++
		o.ID = fmt.Sprintf("order-%d", r.seq)
	}
	r.orders[o.OrderNumber] = o
}

func (r *memOrderRepo) snapshot(number string) Order {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.orders[number]
}

type passthroughTx struct{}

func (passthroughTx) Exec(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeActivityRepo struct {
	mu      sync.Mutex
	records []*Activity
	err     error
}

func (r *fakeActivityRepo) Record(_ context.Context, a *Activity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.records = append(r.records, a)
	return nil
}

func (r *fakeActivityRepo) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, a := range r.records {
		out = append(out, a.Action)
	}
	return out
}

type fakeGateway struct {
	mu         sync.Mutex
	configured bool
	orders     map[string]*GatewayOrder
	created    []*GatewayOrderRequest
	createErr  error
	fetchErr   error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{configured: true, orders: map[string]*GatewayOrder{}}
}

func (g *fakeGateway) Configured() bool { return g.configured }
func (g *fakeGateway) KeyID() string    { return "rzp_test_key" }

func (g *fakeGateway) CreateOrder(_ context.Context, req *GatewayOrderRequest) (*GatewayOrder, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.created = append(g.created, req)
	if g.createErr != nil {
		return nil, g.createErr
	}
	amount, err := MinorUnits(req.Amount)
	if err != nil {
		return nil, err
	}
	o := &GatewayOrder{
		ID:        fmt.Sprintf("order_gw%d", len(g.created)),
		Amount:    amount,
		Currency:  req.Currency,
		Receipt:   req.OrderNumber,
		Status:    "created",
		CreatedAt: time.Now().Unix(),
	}
	g.orders[o.ID] = o
	cp := *o
	return &cp, nil
}

func (g *fakeGateway) FetchOrder(_ context.Context, id string) (*GatewayOrder, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fetchErr != nil {
		return nil, g.fetchErr
	}
	o, ok := g.orders[id]
	if !ok {
		return nil, fmt.Errorf("gateway order %s not found", id)
	}
	cp := *o
	return &cp, nil
}

func (g *fakeGateway) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.created)
}

type fakeMailer struct {
	mu      sync.Mutex
	enabled bool
	sent    []*EmailMessage
	sendFn  func(msg *EmailMessage) error
}

func (m *fakeMailer) Enabled() bool { return m.enabled }

func (m *fakeMailer) Send(_ context.Context, msg *EmailMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendFn != nil {
		if err := m.sendFn(msg); err != nil {
			return err
		}
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *fakeMailer) messages() []*EmailMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*EmailMessage(nil), m.sent...)
}

type memLedger struct {
	mu   sync.Mutex
	seen map[string]bool
	err  error
}

func (l *memLedger) MarkOnce(_ context.Context, key string, _ time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return false, l.err
	}
	if l.seen == nil {
		l.seen = map[string]bool{}
	}
	if l.seen[key] {
		return false, nil
	}
	l.seen[key] = true
	return true, nil
}

type memGuard struct {
	mu      sync.Mutex
	locked  map[string]bool
	memo    map[string]*CheckoutResult
	lockErr error
}

func newMemGuard() *memGuard {
	return &memGuard{locked: map[string]bool{}, memo: map[string]*CheckoutResult{}}
}

func (g *memGuard) Lock(_ context.Context, key string, _ time.Duration) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.lockErr != nil {
		return nil, g.lockErr
	}
	if g.locked[key] {
		return nil, ErrCheckoutLocked
	}
	g.locked[key] = true
	return func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		delete(g.locked, key)
	}, nil
}

func (g *memGuard) Recall(_ context.Context, key string) (*CheckoutResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	res, ok := g.memo[key]
	if !ok {
		return nil, nil
	}
	cp := *res
	return &cp, nil
}

func (g *memGuard) Remember(_ context.Context, key string, res *CheckoutResult, _ time.Duration) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	cp := *res
	g.memo[key] = &cp
	return nil
}

type fakeCatalog struct {
	enabled  bool
	products map[string]*Product
	variants map[string]*ProductVariant
}

func (c *fakeCatalog) Enabled() bool { return c.enabled }

func (c *fakeCatalog) FindProducts(_ context.Context, ids []string) (map[string]*Product, error) {
	out := map[string]*Product{}
	for _, id := range ids {
		if p, ok := c.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (c *fakeCatalog) FindVariants(_ context.Context, ids []string) (map[string]*ProductVariant, error) {
	out := map[string]*ProductVariant{}
	for _, id := range ids {
		if v, ok := c.variants[id]; ok {
			out[id] = v
		}
	}
	return out, nil
}

type fakeCoupons struct {
	coupons     map[string]*Coupon
	incremented []string
}

func (c *fakeCoupons) FindByCode(_ context.Context, code string) (*Coupon, error) {
	return c.coupons[code], nil
}

func (c *fakeCoupons) IncrementUsage(_ context.Context, id string) error {
	c.incremented = append(c.incremented, id)
	return nil
}

type staticSettings struct {
	snap *SettingsSnapshot
	err  error
}

func (s staticSettings) Snapshot(context.Context) (*SettingsSnapshot, error) {
	return s.snap, s.err
}

func settingsWith(base, threshold, tax int64) staticSettings {
	snap := DefaultSettings()
	snap.Shipping.BasePrice = decimal.NewFromInt(base)
	snap.Shipping.FreeThreshold = decimal.NewFromInt(threshold)
	snap.Tax.Rate = decimal.NewFromInt(tax)
	return staticSettings{snap: snap}
}

const testSecret = "test_secret"

func testConfig() *conf.Bootstrap {
	return &conf.Bootstrap{
		Env:          "test",
		Gateway:      &conf.Gateway{Name: "razorpay", KeyID: "rzp_test_key", KeySecret: testSecret},
		Notification: &conf.Notification{AdminEmail: "admin@example.com", StoreName: "Mystamoura", Timeout: "2s"},
		Order:        &conf.Order{NumberPrefix: "MYS", MaxNumberAttempts: 5},
	}
}

// harness wires every usecase against in-memory collaborators.
type harness struct {
	orders   *memOrderRepo
	activity *fakeActivityRepo
	gateway  *fakeGateway
	mailer   *fakeMailer
	ledger   *memLedger
	guard    *memGuard
	catalog  *fakeCatalog
	coupons  *fakeCoupons
	settings staticSettings

	notifier *NotificationUsecase
	order    *OrderUsecase
	payment  *PaymentUsecase
	checkout *CheckoutUsecase
	contact  *ContactUsecase
}

func newHarness() *harness {
	h := &harness{
		orders:   newMemOrderRepo(),
		activity: &fakeActivityRepo{},
		gateway:  newFakeGateway(),
		mailer:   &fakeMailer{enabled: true},
		ledger:   &memLedger{},
		guard:    newMemGuard(),
		catalog:  &fakeCatalog{products: map[string]*Product{}, variants: map[string]*ProductVariant{}},
		coupons:  &fakeCoupons{coupons: map[string]*Coupon{}},
		settings: settingsWith(99, 999, 0),
	}
	h.build(testConfig())
	return h
}

func (h *harness) build(c *conf.Bootstrap) {
	logger := log.DefaultLogger
	h.notifier = NewNotificationUsecase(c, h.orders, h.mailer, h.ledger, nil, logger)
	h.order = NewOrderUsecase(c, h.orders, h.activity, h.notifier, logger)
	h.payment = NewPaymentUsecase(c, h.gateway, h.settings, h.orders, h.activity, passthroughTx{}, h.notifier, nil, logger)
	h.checkout = NewCheckoutUsecase(c, h.order, h.payment, h.notifier, h.catalog, h.coupons, h.settings, h.guard, nil, logger)
	h.contact = NewContactUsecase(h.activity, h.notifier, logger)
}

func validCheckout(method string, items ...*CheckoutItem) *CheckoutRequest {
	return &CheckoutRequest{
		GuestEmail: "asha@example.com",
		ShippingAddress: ShippingAddress{
			FullName:     "Asha Rao",
			Phone:        "9876543210",
			AddressLine1: "12 MG Road",
			City:         "Bengaluru",
			State:        "Karnataka",
			PostalCode:   "560001",
		},
		Items:         items,
		PaymentMethod: method,
	}
}

func clientItem(name string, qty int, price int64) *CheckoutItem {
	return &CheckoutItem{ProductID: "p-" + name, ProductName: name, Quantity: qty, UnitPrice: decimal.NewFromInt(price)}
}
