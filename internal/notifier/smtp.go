package notifier

import (
	"crypto/tls"
	"fmt"

	"github.com/rentdesk/rentdesk/internal/models"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

type SMTPNotifier struct {
	client *mail.Client
	sender string
}

func NewSMTPNotifier(config models.MailerConfiguration) (*SMTPNotifier, error) {
	options := []mail.Option{
		mail.WithPort(config.Port),
		mail.WithTLSConfig(&tls.Config{
			ServerName:         config.Host,
			InsecureSkipVerify: config.SkipVerifyTLS, //nolint:gosec // opt-in for local relays
			MinVersion:         tls.VersionTLS12,
		}),
	}

	if config.EnableTLS {
		options = append(options, mail.WithTLSPolicy(mail.TLSMandatory))
	} else {
		options = append(options, mail.WithTLSPolicy(mail.NoTLS))
	}

	if config.Username != "" {
		options = append(options,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(config.Username),
			mail.WithPassword(config.Password),
		)
	}

	client, err := mail.NewClient(config.Host, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail client: %w", err)
	}

	return &SMTPNotifier{client: client, sender: config.Sender}, nil
}

func (s *SMTPNotifier) NotifyFromTemplate(to string, subject string, templateName string, data any) error {
	tpl, err := lookupTemplate(templateName)
	if err != nil {
		return err
	}

	msg := mail.NewMsg()
	if err = msg.From(s.sender); err != nil {
		return fmt.Errorf("invalid sender: %w", err)
	}
	if err = msg.To(to); err != nil {
		return fmt.Errorf("invalid recipient: %w", err)
	}
	msg.Subject(subject)

	if err = msg.SetBodyHTMLTemplate(tpl, data); err != nil {
		return fmt.Errorf("failed to render %s: %w", templateName, err)
	}

	if err = s.client.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send e-mail: %w", err)
	}

	zap.L().Debug("Notification sent", zap.String("template", templateName), zap.String("to", to))
	return nil
}
