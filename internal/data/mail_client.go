package data

import (
	"context"
	"fmt"

	"github.com/elakshat/mystamoura-e-commerce-launch/internal/biz"
	"github.com/elakshat/mystamoura-e-commerce-launch/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/resend/resend-go/v2"
)

// resendMailer 邮件服务客户端 (防腐层)
type resendMailer struct {
	client *resend.Client
	from   string
	log    *log.Helper
}

// NewMailer 创建邮件客户端。未配置 API key 时返回禁用的客户端。
func NewMailer(c *conf.Bootstrap, logger log.Logger) biz.Mailer {
	m := &resendMailer{log: log.NewHelper(logger)}
	if c == nil || c.Notification == nil {
		return m
	}
	m.from = c.Notification.From
	if c.Notification.ResendAPIKey != "" {
		m.client = resend.NewClient(c.Notification.ResendAPIKey)
	}
	return m
}

func (m *resendMailer) Enabled() bool {
	return m.client != nil
}

func (m *resendMailer) Send(ctx context.Context, msg *biz.EmailMessage) error {
	if !m.Enabled() {
		m.log.Debugf("mailer disabled, dropping %q to %v", msg.Subject, msg.To)
		return nil
	}
	sent, err := m.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    m.from,
		To:      msg.To,
		Subject: msg.Subject,
		Html:    msg.HTML,
		ReplyTo: msg.ReplyTo,
	})
	if err != nil {
		return fmt.Errorf("send email %q: %w", msg.Subject, err)
	}
	m.log.Infof("email %q sent to %v (id=%s)", msg.Subject, msg.To, sent.Id)
	return nil
}
