package service

import (
	"context"

	"github.com/elakshat/mystamoura-e-commerce-launch/internal/biz"
)

// SubmitContact 提交联系表单
func (s *StorefrontService) SubmitContact(ctx context.Context, req *ContactRequest) (*ContactReply, error) {
	err := s.contact.Submit(ctx, &biz.ContactMessage{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Subject: req.Subject,
		Message: req.Message,
	})
	if err != nil {
		return nil, err
	}
	return &ContactReply{Success: true, Message: "Message sent successfully"}, nil
}
