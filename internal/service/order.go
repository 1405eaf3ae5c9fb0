package service

import (
	"context"
	"time"

	"github.com/elakshat/mystamoura-e-commerce-launch/internal/auth"
	"github.com/elakshat/mystamoura-e-commerce-launch/internal/biz"
)

// CreateOrder 结账下单
func (s *StorefrontService) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*CreateOrderReply, error) {
	in := &biz.CheckoutRequest{
		IdempotencyKey: req.IdempotencyKey,
		GuestEmail:     req.GuestEmail,
		ShippingAddress: biz.ShippingAddress{
			FullName:     req.ShippingAddress.FullName,
			Phone:        req.ShippingAddress.Phone,
			Email:        req.ShippingAddress.Email,
			AddressLine1: req.ShippingAddress.AddressLine1,
			AddressLine2: req.ShippingAddress.AddressLine2,
			City:         req.ShippingAddress.City,
			State:        req.ShippingAddress.State,
			PostalCode:   req.ShippingAddress.PostalCode,
			Country:      req.ShippingAddress.Country,
		},
		PaymentMethod: req.PaymentMethod,
		Currency:      req.Currency,
		CouponCode:    req.CouponCode,
		Notes:         req.Notes,
	}
	if key := requestHeader(ctx, "Idempotency-Key"); key != "" {
		in.IdempotencyKey = key
	}
	if uid, ok := auth.GetUIDFromContext(ctx); ok {
		in.UserID = uid
	}
	for _, it := range req.Items {
		if it == nil {
			continue
		}
		in.Items = append(in.Items, &biz.CheckoutItem{
			ProductID:    it.ProductID,
			VariantID:    it.VariantID,
			ProductName:  it.ProductName,
			ProductImage: it.ProductImage,
			VariantSize:  it.VariantSize,
			VariantSKU:   it.VariantSKU,
			Quantity:     it.Quantity,
			UnitPrice:    it.UnitPrice,
		})
	}

	res, err := s.checkout.Checkout(ctx, in)
	if err != nil {
		return nil, err
	}

	reply := &CreateOrderReply{
		Success:     true,
		OrderNumber: res.OrderNumber,
		OrderID:     res.OrderID,
		Message:     "Order placed successfully",
		Total:       res.Total.InexactFloat64(),
	}
	if res.Payment != nil {
		reply.Message = "Order created, awaiting payment"
		reply.Payment = &PaymentHandoff{
			GatewayOrderID: res.Payment.ID,
			Amount:         res.Payment.Amount,
			Currency:       res.Payment.Currency,
			KeyID:          res.Payment.KeyID,
		}
	}
	return reply, nil
}

// GetOrder 查询订单
func (s *StorefrontService) GetOrder(ctx context.Context, req *GetOrderRequest) (*GetOrderReply, error) {
	o, err := s.orders.GetOrder(ctx, req.OrderNumber)
	if err != nil {
		return nil, err
	}
	return &GetOrderReply{Success: true, Order: toOrderInfo(o)}, nil
}

// UpdateOrderStatus 管理端更新订单状态
func (s *StorefrontService) UpdateOrderStatus(ctx context.Context, req *UpdateOrderStatusRequest) (*UpdateOrderStatusReply, error) {
	actor, _ := auth.GetUIDFromContext(ctx)
	o, err := s.orders.UpdateStatus(ctx, req.OrderNumber, biz.StatusUpdate{
		Status:        req.Status,
		PaymentStatus: req.PaymentStatus,
		PaymentID:     req.PaymentID,
	}, actor)
	if err != nil {
		return nil, err
	}
	return &UpdateOrderStatusReply{
		Success: true,
		Message: "Order updated successfully",
		Order:   toOrderInfo(o),
	}, nil
}

func toOrderInfo(o *biz.Order) *OrderInfo {
	info := &OrderInfo{
		ID:             o.ID,
		OrderNumber:    o.OrderNumber,
		UserID:         o.UserID,
		GuestEmail:     o.GuestEmail,
		Status:         o.Status,
		PaymentStatus:  o.PaymentStatus,
		PaymentMethod:  o.PaymentMethod,
		PaymentID:      o.PaymentID,
		Subtotal:       o.Subtotal.InexactFloat64(),
		ShippingAmount: o.ShippingAmount.InexactFloat64(),
		TaxAmount:      o.TaxAmount.InexactFloat64(),
		DiscountAmount: o.DiscountAmount.InexactFloat64(),
		Total:          o.Total.InexactFloat64(),
		ShippingAddress: AddressInput{
			FullName:     o.ShippingAddress.FullName,
			Phone:        o.ShippingAddress.Phone,
			Email:        o.ShippingAddress.Email,
			AddressLine1: o.ShippingAddress.AddressLine1,
			AddressLine2: o.ShippingAddress.AddressLine2,
			City:         o.ShippingAddress.City,
			State:        o.ShippingAddress.State,
			PostalCode:   o.ShippingAddress.PostalCode,
			Country:      o.ShippingAddress.Country,
		},
		Notes:     o.Notes,
		Items:     make([]*OrderItemInfo, 0, len(o.Items)),
		CreatedAt: o.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: o.UpdatedAt.UTC().Format(time.RFC3339),
	}
	for _, it := range o.Items {
		info.Items = append(info.Items, &OrderItemInfo{
			ID:           it.ID,
			ProductID:    it.ProductID,
			ProductName:  it.ProductName,
			ProductImage: it.ProductImage,
			VariantID:    it.VariantID,
			VariantSize:  it.VariantSize,
			VariantSKU:   it.VariantSKU,
			Quantity:     it.Quantity,
			UnitPrice:    it.UnitPrice.InexactFloat64(),
			TotalPrice:   it.TotalPrice.InexactFloat64(),
		})
	}
	return info
}
