package service

import (
	"context"

	"github.com/elakshat/mystamoura-e-commerce-launch/internal/biz"
	bizErrors "github.com/elakshat/mystamoura-e-commerce-launch/internal/errors"
)

// CreatePayment 为已有订单创建网关订单 (支付中断后可重复调用)
func (s *StorefrontService) CreatePayment(ctx context.Context, req *CreatePaymentRequest) (*CreatePaymentReply, error) {
	gw, err := s.payments.CreatePayment(ctx, req.OrderNumber, req.Amount, req.Currency, req.Notes)
	if err != nil {
		return nil, err
	}
	return &CreatePaymentReply{
		Success:  true,
		OrderID:  gw.ID,
		Amount:   gw.Amount,
		Currency: gw.Currency,
		KeyID:    gw.KeyID,
	}, nil
}

// VerifyPayment 校验支付回调签名并确认收款
func (s *StorefrontService) VerifyPayment(ctx context.Context, req *VerifyPaymentRequest) (*VerifyPaymentReply, error) {
	res, err := s.payments.VerifyPayment(ctx, &biz.VerifyPaymentRequest{
		GatewayOrderID:   req.RazorpayOrderID,
		GatewayPaymentID: req.RazorpayPaymentID,
		Signature:        req.RazorpaySignature,
		OrderNumber:      req.OrderNumber,
		ClientIP:         s.clientIP(ctx),
	})
	if err != nil {
		return nil, err
	}
	return &VerifyPaymentReply{
		Success:     true,
		Message:     "Payment verified successfully",
		OrderNumber: res.OrderNumber,
		PaymentID:   res.PaymentID,
	}, nil
}

// PaymentStatus 查询网关订单状态
func (s *StorefrontService) PaymentStatus(ctx context.Context, req *PaymentStatusRequest) (*PaymentStatusReply, error) {
	if req.OrderID == "" {
		return nil, bizErrors.Validation("Validation failed", map[string]string{"orderId": "Order ID is required"})
	}
	gw, err := s.payments.PaymentStatus(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	return &PaymentStatusReply{
		Success: true,
		Order: &GatewayOrderInfo{
			ID:        gw.ID,
			Amount:    gw.Amount,
			Currency:  gw.Currency,
			Status:    gw.Status,
			CreatedAt: gw.CreatedAt,
		},
	}, nil
}
