package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/yeomjw0907/catchdeal/internal/config"
	"github.com/yeomjw0907/catchdeal/internal/model"

	"gopkg.in/gomail.v2"
)

// EmailNotifier sends deal alerts over SMTP.
type EmailNotifier struct {
	cfg    *config.EmailConfig
	logger *slog.Logger
}

func NewEmailNotifier(cfg *config.EmailConfig, logger *slog.Logger) *EmailNotifier {
	return &EmailNotifier{
		cfg:    cfg,
		logger: logger,
	}
}

// Send sends an HTML deal mail. Missing SMTP config or an empty
// recipient skips the mail without failing the caller.
func (n *EmailNotifier) Send(ctx context.Context, product *model.ScannedProduct, reason string, toEmail string) error {
	if n.cfg.SMTPHost == "" || n.cfg.SMTPUser == "" || n.cfg.FromEmail == "" {
		n.logger.Warn("email config missing, skip notification")
		return nil
	}
	if strings.TrimSpace(toEmail) == "" {
		n.logger.Warn("email recipient empty, skip notification")
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.cfg.FromEmail)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", fmt.Sprintf("[CatchDeal] %s", reason))
	m.SetBody("text/html", n.buildHTMLBody(product, reason))

	d := gomail.NewDialer(n.cfg.SMTPHost, n.cfg.SMTPPort, n.cfg.SMTPUser, n.cfg.SMTPPass)

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	n.logger.Info("email notification sent", slog.String("to", toEmail), slog.String("reason", reason))
	return nil
}

func (n *EmailNotifier) buildHTMLBody(product *model.ScannedProduct, reason string) string {
	priceLine := fmt.Sprintf("%s원", formatKRW(product.Price))
	if product.OriginalPrice > product.Price {
		priceLine = fmt.Sprintf("%s원 → %s원 (-%d%%)",
			formatKRW(product.OriginalPrice), formatKRW(product.Price), product.DiscountRate)
	}

	template := `
<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8" />
<style>
  body { font-family: Arial, sans-serif; background: #f6f7fb; color: #1f2937; }
  .card { max-width: 600px; margin: 24px auto; background: #ffffff; border-radius: 12px; overflow: hidden; border: 1px solid #e5e7eb; }
  .header { background: #0f172a; color: #ffffff; padding: 16px 20px; font-size: 16px; font-weight: bold; }
  .content { padding: 20px; }
  .price { font-size: 26px; font-weight: bold; color: #ef4444; margin: 8px 0 12px; }
  .title { font-size: 16px; margin-bottom: 16px; }
  .cta { display: inline-block; padding: 12px 20px; background: #22c55e; color: #fff; text-decoration: none; border-radius: 8px; font-weight: bold; }
</style>
</head>
<body>
  <div class="card">
    <div class="header">[CatchDeal] %s</div>
    <div class="content">
      <div class="price">%s</div>
      <div class="title">%s</div>
      <div style="text-align:center;">
        <a class="cta" href="%s" target="_blank">상품 보러가기</a>
      </div>
    </div>
  </div>
</body>
</html>`

	return fmt.Sprintf(template, reason, priceLine, product.Title, product.Link)
}

func formatKRW(v int64) string {
	s := fmt.Sprintf("%d", v)
	n := len(s)
	if n <= 3 {
		return s
	}
	out := make([]byte, 0, n+2)
	for i, ch := range []byte(s) {
		out = append(out, ch)
		if (n-i-1)%3 == 0 && i != n-1 {
			out = append(out, ',')
		}
	}
	return string(out)
}
