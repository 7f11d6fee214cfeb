package services

import (
	"context"
	"fmt"
	"html"
	"log"
	"net/smtp"
	"strings"

	"github.com/chachabrian/fleetshare-backend/internal/config"
)

const emailHeader = `<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333; margin: 0; padding: 0;">
	<div style="max-width: 600px; margin: 0 auto; padding: 20px;">
		<div style="text-align: center; margin-bottom: 30px; background-color: #f9f9f9; padding: 20px;">
			<h2 style="color: #4CAF50; margin: 0;">FleetShare</h2>
		</div>
`

const emailFooter = `
		<div style="text-align: center; margin-top: 20px; font-size: 12px; color: #666; border-top: 1px solid #eee; padding-top: 20px;">
			<p>This is an automated message, please do not reply to this email.</p>
		</div>
	</div>
</body>
</html>
`

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailNotifier mails each event to the recipients' addresses in one message.
type EmailNotifier struct {
	cfg   config.Email
	users UserStore
	send  sendMailFunc
}

func NewEmailNotifier(cfg config.Email, users UserStore) *EmailNotifier {
	return &EmailNotifier{cfg: cfg, users: users, send: smtp.SendMail}
}

func (n *EmailNotifier) Notify(ctx context.Context, e Event) error {
	var to []string
	for _, userID := range e.Recipients {
		user, err := n.users.GetByID(ctx, userID)
		if err != nil || user.Email == "" {
			continue
		}
		to = append(to, user.Email)
	}
	if len(to) == 0 {
		return nil
	}

	subject := e.Title
	if subject == "" {
		subject = "Update on " + strings.ReplaceAll(e.Kind, "_", " ") + fmt.Sprintf(" #%d", e.ID)
	}
	body := emailHeader +
		"\t\t<h3>" + html.EscapeString(subject) + "</h3>\n" +
		"\t\t<p>" + html.EscapeString(e.Body) + "</p>\n" +
		fmt.Sprintf("\t\t<p>Status: <strong>%s</strong></p>\n", html.EscapeString(e.Status)) +
		emailFooter

	headers := []string{
		"From: FleetShare <" + n.cfg.From + ">",
		"To: " + strings.Join(to, ","),
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=UTF-8",
	}
	msg := strings.Join(headers, "\r\n") + "\r\n\r\n" + body

	auth := smtp.PlainAuth("", n.cfg.From, n.cfg.Password, n.cfg.Host)
	if err := n.send(n.cfg.Host+":"+n.cfg.Port, auth, n.cfg.From, to, []byte(msg)); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	log.Printf("Sent %s email to %d recipients", e.Type(), len(to))
	return nil
}
