package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/elakshat/mystamoura-e-commerce-launch/internal/biz"
	"github.com/elakshat/mystamoura-e-commerce-launch/internal/conf"
	"github.com/elakshat/mystamoura-e-commerce-launch/internal/constants"
	"github.com/elakshat/mystamoura-e-commerce-launch/internal/data/model"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// orderRepo 订单仓库实现
type orderRepo struct {
	data *Data
	// itemsOutsideTx selects the at-least-once mode: the order row is kept
	// even when its items fail to insert.
	itemsOutsideTx bool
	log            *log.Helper
}

// NewOrderRepo 创建订单仓库
func NewOrderRepo(c *conf.Bootstrap, data *Data, logger log.Logger) biz.OrderRepo {
	r := &orderRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
	if c != nil && c.Data != nil {
		r.itemsOutsideTx = c.Data.Database.NonTransactionalItems
	}
	return r
}

func (r *orderRepo) Enabled() bool {
	return r.data.Enabled()
}

// Create 创建订单及明细
func (r *orderRepo) Create(ctx context.Context, order *biz.Order) (*biz.Order, error) {
	m := toOrderModel(order)
	m.ID = uuid.NewString()
	items := m.Items
	m.Items = nil
	for i := range items {
		items[i].ID = uuid.NewString()
		items[i].OrderID = m.ID
	}

	if r.itemsOutsideTx {
		return r.createAtLeastOnce(ctx, m, items)
	}

	err := r.data.Exec(ctx, func(ctx context.Context) error {
		if err := r.data.DB(ctx).Create(m).Error; err != nil {
			return err
		}
		if len(items) > 0 {
			if err := r.data.DB(ctx).Create(&items).Error; err != nil {
				return fmt.Errorf("insert order items: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		if isDuplicateKey(err) {
			return nil, biz.ErrDuplicateOrderNumber
		}
		r.log.Errorf("Failed to create order %s: %v", order.OrderNumber, err)
		return nil, err
	}
	m.Items = items
	return toOrderBiz(m), nil
}

func (r *orderRepo) createAtLeastOnce(ctx context.Context, m *model.Order, items []model.OrderItem) (*biz.Order, error) {
	if err := r.data.DB(ctx).Create(m).Error; err != nil {
		if isDuplicateKey(err) {
			return nil, biz.ErrDuplicateOrderNumber
		}
		r.log.Errorf("Failed to create order %s: %v", m.OrderNumber, err)
		return nil, err
	}
	if len(items) > 0 {
		if err := r.data.DB(ctx).Create(&items).Error; err != nil {
			// 订单已提交，不回滚，需人工补录明细
			r.log.Errorf("PartialCreationFailure: order %s (%s) committed without its %d item(s): %v",
				m.OrderNumber, m.ID, len(items), err)
			items = nil
		}
	}
	m.Items = items
	return toOrderBiz(m), nil
}

// GetByNumber 按订单号查询订单及明细
func (r *orderRepo) GetByNumber(ctx context.Context, orderNumber string) (*biz.Order, error) {
	var m model.Order
	err := r.data.DB(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at, id") }).
		Where("order_number = ?", orderNumber).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, biz.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order %s: %w", orderNumber, err)
	}
	return toOrderBiz(&m), nil
}

// LockByNumber 在当前事务中锁定订单行 (SELECT ... FOR UPDATE)
func (r *orderRepo) LockByNumber(ctx context.Context, orderNumber string) (*biz.Order, error) {
	var m model.Order
	err := forUpdate(r.data.DB(ctx)).Where("order_number = ?", orderNumber).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, biz.ErrOrderNotFound
		}
		return nil, fmt.Errorf("lock order %s: %w", orderNumber, err)
	}
	return toOrderBiz(&m), nil
}

// UpdateStatus 部分更新订单状态，空字段保持不变
func (r *orderRepo) UpdateStatus(ctx context.Context, orderNumber string, upd biz.StatusUpdate) (*biz.Order, error) {
	updates := map[string]any{"updated_at": time.Now().UTC()}
	if upd.Status != "" {
		updates["status"] = upd.Status
	}
	if upd.PaymentStatus != "" {
		updates["payment_status"] = upd.PaymentStatus
	}
	if upd.PaymentID != "" {
		updates["payment_id"] = upd.PaymentID
	}
	if upd.PaymentMethod != "" {
		updates["payment_method"] = upd.PaymentMethod
	}

	res := r.data.DB(ctx).Model(&model.Order{}).Where("order_number = ?", orderNumber).Updates(updates)
	if res.Error != nil {
		return nil, fmt.Errorf("update order %s: %w", orderNumber, res.Error)
	}
	// MySQL reports zero affected rows for unchanged values, so existence is
	// checked by reading the row back.
	return r.GetByNumber(ctx, orderNumber)
}

// ListStale 查询超时未支付的在线订单
func (r *orderRepo) ListStale(ctx context.Context, before time.Time, limit int) ([]*biz.Order, error) {
	var ms []model.Order
	err := r.data.DB(ctx).
		Where("status = ? AND payment_status IN ? AND created_at < ?",
			constants.OrderStatusPending,
			[]string{constants.PaymentStatusAwaiting, constants.PaymentStatusFailed},
			before).
		Order("created_at").
		Limit(limit).
		Find(&ms).Error
	if err != nil {
		return nil, fmt.Errorf("list stale orders: %w", err)
	}
	out := make([]*biz.Order, 0, len(ms))
	for i := range ms {
		out = append(out, toOrderBiz(&ms[i]))
	}
	return out, nil
}

func toOrderModel(o *biz.Order) *model.Order {
	a := o.ShippingAddress
	m := &model.Order{
		ID:             o.ID,
		OrderNumber:    o.OrderNumber,
		UserID:         model.StringPtr(o.UserID),
		GuestEmail:     model.StringPtr(o.GuestEmail),
		Status:         o.Status,
		PaymentStatus:  o.PaymentStatus,
		PaymentMethod:  o.PaymentMethod,
		PaymentID:      model.StringPtr(o.PaymentID),
		Subtotal:       o.Subtotal,
		ShippingAmount: o.ShippingAmount,
		TaxAmount:      o.TaxAmount,
		DiscountAmount: o.DiscountAmount,
		Total:          o.Total,
		ShippingAddress: datatypes.NewJSONType(model.Address{
			FullName:     a.FullName,
			Phone:        a.Phone,
			Email:        a.Email,
			AddressLine1: a.AddressLine1,
			AddressLine2: a.AddressLine2,
			City:         a.City,
			State:        a.State,
			PostalCode:   a.PostalCode,
			Country:      a.Country,
		}),
		CouponID: model.StringPtr(o.CouponID),
		Notes:    model.StringPtr(o.Notes),
	}
	for _, it := range o.Items {
		m.Items = append(m.Items, model.OrderItem{
			ProductID:    model.StringPtr(it.ProductID),
			ProductName:  it.ProductName,
			ProductImage: model.StringPtr(it.ProductImage),
			VariantID:    model.StringPtr(it.VariantID),
			VariantSize:  model.StringPtr(it.VariantSize),
			VariantSKU:   model.StringPtr(it.VariantSKU),
			Quantity:     it.Quantity,
			UnitPrice:    it.UnitPrice,
			TotalPrice:   it.TotalPrice,
		})
	}
	return m
}

func toOrderBiz(m *model.Order) *biz.Order {
	a := m.ShippingAddress.Data()
	o := &biz.Order{
		ID:             m.ID,
		OrderNumber:    m.OrderNumber,
		UserID:         model.StringVal(m.UserID),
		GuestEmail:     model.StringVal(m.GuestEmail),
		Status:         m.Status,
		PaymentStatus:  m.PaymentStatus,
		PaymentMethod:  m.PaymentMethod,
		PaymentID:      model.StringVal(m.PaymentID),
		Subtotal:       m.Subtotal,
		ShippingAmount: m.ShippingAmount,
		TaxAmount:      m.TaxAmount,
		DiscountAmount: m.DiscountAmount,
		Total:          m.Total,
		ShippingAddress: biz.ShippingAddress{
			FullName:     a.FullName,
			Phone:        a.Phone,
			Email:        a.Email,
			AddressLine1: a.AddressLine1,
			AddressLine2: a.AddressLine2,
			City:         a.City,
			State:        a.State,
			PostalCode:   a.PostalCode,
			Country:      a.Country,
		},
		CouponID:  model.StringVal(m.CouponID),
		Notes:     model.StringVal(m.Notes),
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	for _, it := range m.Items {
		o.Items = append(o.Items, &biz.OrderItem{
			ID:           it.ID,
			OrderID:      it.OrderID,
			ProductID:    model.StringVal(it.ProductID),
			ProductName:  it.ProductName,
			ProductImage: model.StringVal(it.ProductImage),
			VariantID:    model.StringVal(it.VariantID),
			VariantSize:  model.StringVal(it.VariantSize),
			VariantSKU:   model.StringVal(it.VariantSKU),
			Quantity:     it.Quantity,
			UnitPrice:    it.UnitPrice,
			TotalPrice:   it.TotalPrice,
		})
	}
	return o
}
