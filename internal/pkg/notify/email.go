package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lostmahbles/listial-api/internal/config"

	"gopkg.in/gomail.v2"
)

// EmailNotifier 实现邮件通知。
type EmailNotifier struct {
	cfg    *config.EmailConfig
	logger *slog.Logger
}

// NewEmailNotifier 创建一个新的邮件通知器。
func NewEmailNotifier(cfg *config.EmailConfig, logger *slog.Logger) *EmailNotifier {
	return &EmailNotifier{
		cfg:    cfg,
		logger: logger,
	}
}

// SendInvitation 给受邀邮箱发送清单邀请。
//
// SMTP 未配置或收件人为空时静默跳过；调用方把发送失败当作
// 尽力而为，不影响邀请本身。
func (n *EmailNotifier) SendInvitation(ctx context.Context, listID uint, toEmail, listTitle, inviterEmail string) error {
	if n == nil || n.cfg == nil || n.cfg.SMTPHost == "" || n.cfg.SMTPUser == "" || n.cfg.FromEmail == "" {
		if n != nil && n.logger != nil {
			n.logger.Warn("email config missing, skip invitation mail")
		}
		return nil
	}
	if strings.TrimSpace(toEmail) == "" {
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.cfg.FromEmail)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", fmt.Sprintf("[Listial] You were invited to %q", listTitle))

	body := fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif;">
  <div style="max-width: 520px; margin: 0 auto; padding: 16px;">
    <h2>You have a new list invitation</h2>
    <p>%s invited you to the shared list <strong>%s</strong>.</p>
    <p>Sign in (or sign up with this address) to accept or decline.</p>
  </div>
</body>
</html>`, inviterEmail, listTitle)
	m.SetBody("text/html", body)

	d := gomail.NewDialer(n.cfg.SMTPHost, n.cfg.SMTPPort, n.cfg.SMTPUser, n.cfg.SMTPPass)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	if n.logger != nil {
		n.logger.Info("invitation email sent",
			slog.Uint64("list_id", uint64(listID)),
			slog.String("to", toEmail))
	}
	return nil
}
