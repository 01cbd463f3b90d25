// Package notify sends low daily clip alerts by email.
package notify

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"

	"moneyclip/internal/models"
)

// SMTPConfig holds mail server settings
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	To       []string
}

// Configured reports whether alerts can be sent
func (c SMTPConfig) Configured() bool {
	return c.Host != "" && c.From != "" && len(c.To) > 0
}

// sendFunc delivers a prepared message; replaced in tests
type sendFunc func(e *email.Email, addr string, auth smtp.Auth) error

// Sender sends alert emails via SMTP
type Sender struct {
	cfg    SMTPConfig
	logger *logrus.Entry
	send   sendFunc
}

// NewSender creates a new email sender
func NewSender(cfg SMTPConfig, logger *logrus.Entry) *Sender {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Sender{
		cfg:    cfg,
		logger: logger.WithField("component", "notify"),
		send: func(e *email.Email, addr string, auth smtp.Auth) error {
			return e.Send(addr, auth)
		},
	}
}

// LowClipAlert builds the message for a snapshot below threshold
func (s *Sender) LowClipAlert(snap models.ClipSnapshot, threshold models.Money) *email.Email {
	e := email.NewEmail()
	e.From = s.cfg.From
	e.To = s.cfg.To
	e.Subject = fmt.Sprintf("Daily clip is %s", snap.DailyClip)

	var body strings.Builder
	fmt.Fprintf(&body, "Hello %s,\n\n", snap.UserID)
	fmt.Fprintf(&body, "Your daily clip for %s is %s, below your alert threshold of %s.\n\n",
		snap.CalculationDate, snap.DailyClip, threshold)
	fmt.Fprintf(&body, "Current balance: %s\n", snap.CurrentBalance)
	fmt.Fprintf(&body, "Net available:   %s\n", snap.NetAvailable)
	fmt.Fprintf(&body, "Days remaining:  %d (until %s)\n", snap.DaysRemaining, snap.PeriodEndDate)
	if snap.Degraded {
		body.WriteString("\nSome planning data could not be loaded; the figure may be incomplete.\n")
	}
	body.WriteString("\nmoneyclip\n")
	e.Text = []byte(body.String())
	return e
}

// SendLowClipAlert emails a low clip alert
func (s *Sender) SendLowClipAlert(snap models.ClipSnapshot, threshold models.Money) error {
	if !s.cfg.Configured() {
		return fmt.Errorf("smtp is not configured")
	}
	e := s.LowClipAlert(snap, threshold)

	addr := fmt.Sprintf("%s:%s", s.cfg.Host, s.cfg.Port)
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	if err := s.send(e, addr, auth); err != nil {
		s.logger.Errorf("Failed to send low clip alert for %s: %v", snap.UserID, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Infof("Low clip alert sent for %s: %s", snap.UserID, e.Subject)
	return nil
}
