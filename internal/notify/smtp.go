package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/spec-kit/intake-desk/internal/config"
)

// SMTPNotifier sends mail through an authenticated relay.
type SMTPNotifier struct {
	cfg    config.SMTPConfig
	logger *zap.Logger
}

// NewSMTPNotifier returns an SMTP notifier, or Disabled when the relay
// credentials are incomplete.
func NewSMTPNotifier(cfg config.SMTPConfig, logger *zap.Logger) Notifier {
	if !cfg.Ready() {
		logger.Warn("smtp credentials missing; outbound email disabled", zap.String("host", cfg.Host))
		return Disabled()
	}
	return &SMTPNotifier{cfg: cfg, logger: logger}
}

// Ready reports whether the relay is configured.
func (n *SMTPNotifier) Ready() bool {
	return n.cfg.Ready()
}

// Send dials the relay, authenticates and delivers msg.
func (n *SMTPNotifier) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return errors.New("message has no recipients")
	}
	m, err := n.build(msg)
	if err != nil {
		return err
	}
	client, err := mail.NewClient(n.cfg.Host, n.clientOptions()...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("smtp send to %v: %w", msg.To, err)
	}
	n.logger.Debug("email sent", zap.String("subject", msg.Subject), zap.Strings("to", msg.To))
	return nil
}

func (n *SMTPNotifier) clientOptions() []mail.Option {
	opts := []mail.Option{
		mail.WithPort(n.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(n.cfg.User),
		mail.WithPassword(n.cfg.Password),
		mail.WithTimeout(n.cfg.Timeout()),
	}
	if n.cfg.Secure == "ssl" {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	}
	return opts
}

func (n *SMTPNotifier) build(msg Message) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(n.cfg.From); err != nil {
		return nil, fmt.Errorf("from %q: %w", n.cfg.From, err)
	}
	if err := m.To(msg.To...); err != nil {
		return nil, fmt.Errorf("to %v: %w", msg.To, err)
	}
	if msg.ReplyTo != "" {
		if err := m.ReplyTo(msg.ReplyTo); err != nil {
			return nil, fmt.Errorf("reply-to %q: %w", msg.ReplyTo, err)
		}
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Text)
	if msg.HTML != "" {
		m.AddAlternativeString(mail.TypeTextHTML, msg.HTML)
	}
	return m, nil
}
