package biz

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/elakshat/mystamoura-e-commerce-launch/internal/constants"
	bizErrors "github.com/elakshat/mystamoura-e-commerce-launch/internal/errors"

	"github.com/go-kratos/kratos/v2/log"
)

// ContactMessage 联系表单
type ContactMessage struct {
	Name    string
	Email   string
	Phone   string
	Subject string
	Message string
}

func (m *ContactMessage) validate() map[string]string {
	fields := map[string]string{}
	if n := utf8.RuneCountInString(m.Name); n < 2 || n > 100 {
		fields["name"] = "Name must be between 2 and 100 characters"
	}
	if !emailPattern.MatchString(m.Email) {
		fields["email"] = "Please enter a valid email address"
	}
	if m.Phone != "" && !phonePattern.MatchString(m.Phone) {
		fields["phone"] = "Please enter a valid 10-digit phone number"
	}
	if utf8.RuneCountInString(m.Subject) > 200 {
		fields["subject"] = "Subject must be at most 200 characters"
	}
	if n := utf8.RuneCountInString(m.Message); n < 10 || n > 2000 {
		fields["message"] = "Message must be between 10 and 2000 characters"
	}
	return fields
}

type ContactUsecase struct {
	activity ActivityRepo
	notifier *NotificationUsecase
	log      *log.Helper
}

func NewContactUsecase(activity ActivityRepo, notifier *NotificationUsecase, logger log.Logger) *ContactUsecase {
	return &ContactUsecase{
		activity: activity,
		notifier: notifier,
		log:      log.NewHelper(logger),
	}
}

// Submit stores the message in the activity log and forwards it to the admin.
func (uc *ContactUsecase) Submit(ctx context.Context, m *ContactMessage) error {
	m.Name = strings.TrimSpace(m.Name)
	m.Email = strings.TrimSpace(strings.ToLower(m.Email))
	m.Phone = strings.TrimSpace(m.Phone)
	m.Subject = strings.TrimSpace(m.Subject)
	m.Message = strings.TrimSpace(m.Message)
	if fields := m.validate(); len(fields) > 0 {
		return bizErrors.Validation("Validation failed", fields)
	}

	if err := uc.activity.Record(ctx, &Activity{
		Action:     constants.ActivityContactFormSubmission,
		EntityType: constants.EntityContact,
		Details: map[string]any{
			"name":    m.Name,
			"email":   m.Email,
			"phone":   m.Phone,
			"subject": m.Subject,
			"message": m.Message,
		},
	}); err != nil {
		uc.log.Errorf("Failed to store contact message from %s: %v", m.Email, err)
		return bizErrors.Internal(err)
	}

	subject := m.Subject
	if subject == "" {
		subject = "New contact message"
	}
	if !uc.notifier.NotifyAdmin(ctx, fmt.Sprintf("[Contact] %s", subject), "contact", m) {
		uc.log.Infof("Contact message from %s stored without admin email", m.Email)
	}
	return nil
}
