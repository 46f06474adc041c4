package alert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mrz1836/postmark"
)

// EmailConfig configures the Postmark escalation channel.
type EmailConfig struct {
	ServerToken  string `env:"POSTMARK_SERVER_TOKEN,required"`
	AccountToken string `env:"POSTMARK_ACCOUNT_TOKEN,required"`
	SenderEmail  string `env:"ALERT_SENDER_EMAIL,required"`
	OpsEmail     string `env:"ALERT_OPS_EMAIL,required"`
}

// ErrInvalidEmailConfig indicates missing or malformed email settings.
var ErrInvalidEmailConfig = errors.New("alert: invalid email config")

// postmarkSender is the slice of the Postmark client the notifier uses.
type postmarkSender interface {
	SendEmail(ctx context.Context, email postmark.Email) (postmark.EmailResponse, error)
}

// EmailNotifier mails escalations to the ops mailbox via Postmark.
// Send failures are logged and swallowed; an unreachable mail provider
// must not take the alerting caller down with it.
type EmailNotifier struct {
	client postmarkSender
	cfg    EmailConfig
	log    *slog.Logger
}

// NewEmailNotifier validates the config and builds the notifier.
func NewEmailNotifier(cfg EmailConfig, log *slog.Logger) (*EmailNotifier, error) {
	if cfg.ServerToken == "" || cfg.AccountToken == "" {
		return nil, fmt.Errorf("%w: postmark tokens are required", ErrInvalidEmailConfig)
	}
	if cfg.SenderEmail == "" || cfg.OpsEmail == "" {
		return nil, fmt.Errorf("%w: sender and ops addresses are required", ErrInvalidEmailConfig)
	}
	if log == nil {
		log = slog.Default()
	}

	return &EmailNotifier{
		client: postmark.NewClient(cfg.ServerToken, cfg.AccountToken),
		cfg:    cfg,
		log:    log,
	}, nil
}

func (n *EmailNotifier) Critical(ctx context.Context, subject string, kv ...any) {
	var body strings.Builder
	body.WriteString(subject)
	body.WriteString("\n\n")
	for i := 0; i+1 < len(kv); i += 2 {
		fmt.Fprintf(&body, "%v: %v\n", kv[i], kv[i+1])
	}

	resp, err := n.client.SendEmail(ctx, postmark.Email{
		From:     n.cfg.SenderEmail,
		To:       n.cfg.OpsEmail,
		Subject:  "[tenant-isolation] " + subject,
		TextBody: body.String(),
		Tag:      "tenant-isolation-alert",
	})
	if err != nil {
		n.log.ErrorContext(ctx, "alert email failed", slog.Any("error", err))
		return
	}
	if resp.ErrorCode > 0 {
		n.log.ErrorContext(ctx, "alert email rejected",
			slog.Int64("code", resp.ErrorCode),
			slog.String("message", resp.Message),
		)
	}
}
