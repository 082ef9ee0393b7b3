package service

import (
	"context"
	"fmt"
	"prep_backend/internal/config"
	"prep_backend/pkg/logger"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

// Mailer 发送验证码等通知邮件
type Mailer interface {
	Send(ctx context.Context, toName, toEmail, subject, plain, html string) error
}

// SendGridMailer 通过 SendGrid API 发送
type SendGridMailer struct {
	Client   *sendgrid.Client
	From     string
	FromName string
}

func NewSendGridMailer(cfg *config.MailConfig) *SendGridMailer {
	return &SendGridMailer{
		Client:   sendgrid.NewSendClient(cfg.SendGridAPIKey),
		From:     cfg.FromEmail,
		FromName: cfg.FromName,
	}
}

func (m *SendGridMailer) Send(ctx context.Context, toName, toEmail, subject, plain, html string) error {
	msg := mail.NewSingleEmail(
		mail.NewEmail(m.FromName, m.From),
		subject,
		mail.NewEmail(toName, toEmail),
		plain,
		html,
	)
	resp, err := m.Client.SendWithContext(ctx, msg)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid returned status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

// LogMailer 开发环境使用，只写日志
type LogMailer struct{}

func (LogMailer) Send(ctx context.Context, toName, toEmail, subject, plain, html string) error {
	logger.Log.Info("mail not sent (log provider)",
		zap.String("to", toEmail),
		zap.String("subject", subject),
		zap.String("body", plain),
	)
	return nil
}

// NewMailer 按 mail.provider 选择实现
func NewMailer(cfg *config.MailConfig) Mailer {
	if cfg.Provider == "sendgrid" && cfg.SendGridAPIKey != "" {
		return NewSendGridMailer(cfg)
	}
	return LogMailer{}
}
