package email

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	gomail "github.com/wneessen/go-mail"
)

// SMTPSender delivers over a direct SMTP connection via go-mail.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

// NewSMTPSender creates a new SMTPSender with the given SMTP credentials.
func NewSMTPSender(host string, port int, username, password, fromEmail, fromName string) *SMTPSender {
	return &SMTPSender{
		host:      host,
		port:      port,
		username:  username,
		password:  password,
		fromName:  fromName,
		fromEmail: fromEmail,
	}
}

func (s *SMTPSender) buildMessage(msg Message) (*gomail.Msg, error) {
	m := gomail.NewMsg()
	if err := m.FromFormat(s.fromName, s.fromEmail); err != nil {
		return nil, fmt.Errorf("smtp from: %w", err)
	}
	if msg.ToName != "" {
		if err := m.AddToFormat(msg.ToName, msg.To); err != nil {
			return nil, fmt.Errorf("smtp to: %w", err)
		}
	} else if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("smtp to: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetMessageID()
	if len(msg.Tags) > 0 {
		m.SetGenHeader(gomail.Header("X-Leadflow-Tags"), strings.Join(msg.Tags, ","))
	}
	m.SetBodyString(gomail.TypeTextHTML, msg.HTML)
	return m, nil
}

// Send implements Sender. The returned id is the generated Message-ID header.
func (s *SMTPSender) Send(ctx context.Context, msg Message) (SendResult, error) {
	m, err := s.buildMessage(msg)
	if err != nil {
		return SendResult{}, err
	}

	opts := []gomail.Option{
		gomail.WithPort(s.port),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15 * time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	}
	if s.username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(s.username),
			gomail.WithPassword(s.password),
		)
	}

	client, err := gomail.NewClient(s.host, opts...)
	if err != nil {
		return SendResult{}, fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return SendResult{}, fmt.Errorf("smtp send: %w", err)
	}

	return SendResult{ID: m.GetMessageID()}, nil
}
