package notify

import (
	"bytes"
	"context"
	"fmt"
	"time"

	mail "github.com/wneessen/go-mail"
)

// SMTPTransport sends messages through an authenticated SMTP relay. Port 465
// uses implicit TLS; any other port requires STARTTLS.
type SMTPTransport struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

func (t SMTPTransport) client() (*mail.Client, error) {
	opts := []mail.Option{
		mail.WithPort(t.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(t.Username),
		mail.WithPassword(t.Password),
	}
	if t.Port == 465 {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPortPolicy(mail.TLSMandatory))
	}
	if t.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(t.Timeout))
	}
	return mail.NewClient(t.Host, opts...)
}

// build converts m into a go-mail message.
func (t SMTPTransport) build(m Message) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(t.From); err != nil {
		return nil, fmt.Errorf("from %q: %w", t.From, err)
	}
	if err := msg.To(m.To); err != nil {
		return nil, fmt.Errorf("to %q: %w", m.To, err)
	}
	msg.Subject(m.Subject)
	msg.SetBodyString(mail.TypeTextPlain, m.Body)
	if a := m.Attachment; a != nil {
		ct := a.ContentType
		if ct == "" {
			ct = string(mail.TypeAppOctetStream)
		}
		if err := msg.AttachReader(a.Name, bytes.NewReader(a.Data), mail.WithFileContentType(mail.ContentType(ct))); err != nil {
			return nil, fmt.Errorf("attach %s: %w", a.Name, err)
		}
	}
	return msg, nil
}

// Send dials the relay, authenticates and delivers m.
func (t SMTPTransport) Send(ctx context.Context, m Message) error {
	msg, err := t.build(m)
	if err != nil {
		return err
	}
	c, err := t.client()
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := c.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
