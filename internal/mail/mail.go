package mail

import (
	"context"
	"fmt"
	"time"

	"github.com/projtrack/tracker/internal/config"
	log "github.com/sirupsen/logrus"
	gomail "github.com/wneessen/go-mail"
)

const sslPort = 465

type Message struct {
	To      string
	Subject string
	Body    string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// New returns an SMTP mailer, or one that only logs when the SMTP settings
// are incomplete.
func New(cfg config.SMTP) Mailer {
	if !cfg.Ready() {
		return &NoopMailer{cfg: cfg}
	}
	return &SMTPMailer{cfg: cfg}
}

// SMTPMailer uses implicit TLS on port 465 and STARTTLS on any other port.
type SMTPMailer struct {
	cfg config.SMTP
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	message := gomail.NewMsg()
	if err := message.From(m.cfg.Sender()); err != nil {
		return fmt.Errorf("invalid sender address: %w", err)
	}
	if err := message.To(msg.To); err != nil {
		return fmt.Errorf("invalid recipient address: %w", err)
	}
	message.Subject(msg.Subject)
	message.SetBodyString(gomail.TypeTextPlain, msg.Body)

	client, err := gomail.NewClient(m.cfg.Host, m.options()...)
	if err != nil {
		return fmt.Errorf("failed to create smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, message); err != nil {
		log.Errorf("SMTP error sending to %s: %v", msg.To, err)
		return fmt.Errorf("failed to send mail: %w", err)
	}
	log.Infof("SMTP OK: message sent to %s", msg.To)
	return nil
}

func (m *SMTPMailer) options() []gomail.Option {
	opts := []gomail.Option{
		gomail.WithPort(m.cfg.Port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(m.cfg.User),
		gomail.WithPassword(m.cfg.Pass),
		gomail.WithTimeout(20 * time.Second),
	}
	if m.cfg.Port == sslPort {
		return append(opts, gomail.WithSSL())
	}
	return append(opts, gomail.WithTLSPolicy(gomail.TLSMandatory))
}

type NoopMailer struct {
	cfg config.SMTP
}

func (m *NoopMailer) Send(_ context.Context, msg Message) error {
	log.Warnf("SMTP config missing (host=%q port=%d user=%q password set=%t from=%q), not sending %q to %s",
		m.cfg.Host, m.cfg.Port, m.cfg.User, m.cfg.Pass != "", m.cfg.Sender(), msg.Subject, msg.To)
	return nil
}
