package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/wneessen/go-mail"

	"github.com/capitalize-ai/omnilead/internal/model"
)

const emailFooter = "Please log in to OmniLead to view details."

// EmailSender delivers notifications over SMTP.
type EmailSender struct {
	from string
	send func(ctx context.Context, msg *mail.Msg) error
}

// NewEmailSender creates an SMTP sender. Auth is skipped when username is
// empty; STARTTLS is used when the server offers it.
func NewEmailSender(host string, port int, username, password, from string) (*EmailSender, error) {
	opts := []mail.Option{
		mail.WithPort(port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(username),
			mail.WithPassword(password),
		)
	}

	client, err := mail.NewClient(host, opts...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}
	return &EmailSender{
		from: from,
		send: func(ctx context.Context, msg *mail.Msg) error {
			return client.DialAndSendWithContext(ctx, msg)
		},
	}, nil
}

// Name returns the channel name.
func (e *EmailSender) Name() string { return "email" }

// Send emails the notification to the user.
func (e *EmailSender) Send(ctx context.Context, user model.User, n Notification) error {
	if user.Email == "" {
		return nil
	}

	msg, err := e.buildMessage(user.Email, n)
	if err != nil {
		return err
	}
	if err := e.send(ctx, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func (e *EmailSender) buildMessage(to string, n Notification) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(e.from); err != nil {
		return nil, fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(singleLine(n.Subject))

	var body strings.Builder
	body.WriteString(n.Message)
	body.WriteString("\n\n")
	body.WriteString(emailFooter)
	body.WriteString("\n")
	if n.ReferenceID != "" {
		body.WriteString("\nReference ID: " + n.ReferenceID + "\n")
	}
	msg.SetBodyString(mail.TypeTextPlain, body.String())
	return msg, nil
}

func singleLine(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}
