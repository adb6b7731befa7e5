// Package alerts notifies operators about conditions that need manual
// intervention, currently credential refresh failures. Alerts are best
// effort; a failed send is logged and never propagated into the pipeline.
package alerts

import (
	"context"
	"fmt"
	"time"

	"callscore_backend/platform/config"
	"callscore_backend/platform/logger"

	"github.com/google/uuid"
	gomail "github.com/wneessen/go-mail"
)

// Notifier sends operator alert emails over SMTP. When SMTP is not
// configured every method is a no-op.
type Notifier struct {
	enabled  bool
	host     string
	port     int
	username string
	password string
	from     string
	to       string
	log      *logger.Logger
}

// NewNotifier creates an alert notifier from config.
func NewNotifier(cfg config.AlertConfig, log *logger.Logger) *Notifier {
	return &Notifier{
		enabled:  cfg.IsAlertEnabled(),
		host:     cfg.GetSMTPHost(),
		port:     cfg.GetSMTPPort(),
		username: cfg.GetSMTPUsername(),
		password: cfg.GetSMTPPassword(),
		from:     cfg.GetAlertFromAddress(),
		to:       cfg.GetAlertToAddress(),
		log:      log,
	}
}

// CredentialFailure alerts operators that a tenant's platform credential
// stopped working. Token refresh is not auto-retried, so without operator
// action the tenant stays unprocessable.
func (n *Notifier) CredentialFailure(ctx context.Context, tenantID uuid.UUID, platform string, cause error) {
	if !n.enabled {
		return
	}

	subject := fmt.Sprintf("[callscore] credential failure for tenant %s on %s", tenantID, platform)
	body := fmt.Sprintf(
		"The %s credential for tenant %s failed and requires reconnection.\n\nTime: %s\nError: %v\n\nCalls for this tenant will not be scored until the integration is reconnected.\n",
		platform, tenantID, time.Now().UTC().Format(time.RFC3339), cause,
	)

	if err := n.send(ctx, subject, body); err != nil {
		n.log.Error("credential failure alert not sent",
			"tenant_id", tenantID.String(),
			"platform", platform,
			"error", err.Error(),
		)
	}
}

func (n *Notifier) send(ctx context.Context, subject, body string) error {
	msg := gomail.NewMsg()
	if err := msg.From(n.from); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(n.to); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextPlain, body)

	client, err := gomail.NewClient(n.host,
		gomail.WithPort(n.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(n.username),
		gomail.WithPassword(n.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
