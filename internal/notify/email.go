package notify

import (
	"fmt"
	"net/smtp"
	"time"

	"github.com/jordan-wright/email"
	log "github.com/sirupsen/logrus"
)

// EmailNotifier sends back-office alert mails to the operations inbox.
// Sending is best-effort: failures are logged, never surfaced to callers.
type EmailNotifier struct {
	host string
	port string
	user string
	pass string
	from string
	to   string
}

func NewEmailNotifier(host, port, user, pass, from, to string) *EmailNotifier {
	return &EmailNotifier{host: host, port: port, user: user, pass: pass, from: from, to: to}
}

func (n *EmailNotifier) SendAlert(subject string, body string) {
	addr := fmt.Sprintf("%s:%s", n.host, n.port)
	auth := smtp.PlainAuth("", n.user, n.pass, n.host)

	e := email.NewEmail()
	e.From = n.from
	e.To = []string{n.to}
	e.Subject = subject
	e.Text = []byte(body)

	maxAttempts := 3
	delay := time.Second
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err = e.Send(addr, auth); err == nil {
			if attempt > 1 {
				log.WithField("attempt", attempt).Info("Alert email sent after retry")
			}
			return
		}
		if attempt < maxAttempts {
			log.WithError(err).WithField("attempt", attempt).Warn("Failed to send alert email, retrying")
			time.Sleep(delay)
			delay *= 2
		}
	}
	log.WithError(err).Error("Failed to send alert email")
}
