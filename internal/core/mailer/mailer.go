// Package mailer 负责对外投递通知邮件。Host 为空时使用 LogMailer，只记录收件人与主题。
package mailer

import (
	"context"
	"errors"
	"fmt"
	"html"
	"time"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

type Message struct {
	To      string
	Subject string
	HTML    string
}

// Notifier 投递一封邮件；返回错误表示未送达
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	BCC      string
	Timeout  time.Duration
}

type SMTPMailer struct {
	client *mail.Client
	from   string
	bcc    string
}

func NewSMTP(cfg SMTPConfig) (*SMTPMailer, error) {
	if cfg.Host == "" {
		return nil, errors.New("mailer: smtp host is empty")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
		mail.WithTimeout(cfg.Timeout),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	c, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("mailer: new client: %w", err)
	}
	return &SMTPMailer{client: c, from: cfg.From, bcc: cfg.BCC}, nil
}

func (m *SMTPMailer) build(msg Message) (*mail.Msg, error) {
	out := mail.NewMsg()
	if err := out.From(m.from); err != nil {
		return nil, fmt.Errorf("mailer: from: %w", err)
	}
	if err := out.To(msg.To); err != nil {
		return nil, fmt.Errorf("mailer: to: %w", err)
	}
	if m.bcc != "" {
		if err := out.Bcc(m.bcc); err != nil {
			return nil, fmt.Errorf("mailer: bcc: %w", err)
		}
	}
	out.Subject(msg.Subject)
	out.SetBodyString(mail.TypeTextHTML, msg.HTML)
	return out, nil
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	out, err := m.build(msg)
	if err != nil {
		return err
	}
	if err := m.client.DialAndSendWithContext(ctx, out); err != nil {
		return fmt.Errorf("mailer: send: %w", err)
	}
	return nil
}

// LogMailer 开发环境使用，不记录正文（正文里有重置令牌）
type LogMailer struct{ l *zap.Logger }

func NewLogMailer(l *zap.Logger) *LogMailer { return &LogMailer{l: l.Named("mailer")} }

func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.l.Info("mail suppressed (no smtp host)",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
	)
	return nil
}

// ResetPasswordMessage 生成重置密码邮件；link 已包含令牌
func ResetPasswordMessage(to, link string, ttl time.Duration) Message {
	safe := html.EscapeString(link)
	body := fmt.Sprintf(
		`<p>Forgot your password? Submit a PATCH request with your new password to: <a href="%s">%s</a></p>`+
			`<p>This link is valid for %d minutes. If you didn't forget your password, please ignore this email.</p>`,
		safe, safe, int(ttl.Minutes()),
	)
	return Message{
		To:      to,
		Subject: fmt.Sprintf("Your password reset token (valid for %d min)", int(ttl.Minutes())),
		HTML:    body,
	}
}
