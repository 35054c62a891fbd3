package notify

import (
	"fmt"

	"formdesk/internal/domain/billing"

	"gopkg.in/gomail.v2"
)

type Config struct {
	Host     string
	Port     int
	From     string
	Password string
	BaseURL  string
}

// Mailer sends transactional email over SMTP. With no host configured it
// degrades to a no-op so local setups work without a mail server.
type Mailer struct {
	config Config
	dialer *gomail.Dialer
}

func NewMailer(config Config) *Mailer {
	m := &Mailer{config: config}
	if config.Host != "" {
		m.dialer = gomail.NewDialer(config.Host, config.Port, config.From, config.Password)
	}
	return m
}

func (m *Mailer) send(to, subject, body string) error {
	if m.dialer == nil {
		return nil
	}
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.config.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)
	return m.dialer.DialAndSend(msg)
}

func (m *Mailer) SendVerificationEmail(to, token string) error {
	link := fmt.Sprintf("%s/verify?token=%s", m.config.BaseURL, token)
	body := fmt.Sprintf("Click the following link to verify your account:\n\n%s", link)
	return m.send(to, "Verify Your Account", body)
}

func (m *Mailer) SendPasswordResetEmail(to, token string) error {
	link := fmt.Sprintf("%s/reset-password?token=%s", m.config.BaseURL, token)
	body := fmt.Sprintf("We received a request to reset your password. Use this link:\n\n%s\n\nThe link expires in 1 hour. If you didn't ask for this, ignore this email.", link)
	return m.send(to, "Reset Your Password", body)
}

// PaymentReceived mails the payer a receipt for a settled transaction.
func (m *Mailer) PaymentReceived(tx *billing.Transaction) error {
	body := fmt.Sprintf(
		"Your registration payment has been confirmed.\n\nAmount: %d %s\nReference: %s\n\nThank you.",
		tx.Amount, tx.Currency, tx.Reference,
	)
	return m.send(tx.CustomerEmail, "Payment received", body)
}

// ResponseReceived tells the organizer a new registration arrived.
func (m *Mailer) ResponseReceived(ownerEmail, formTitle string) error {
	body := fmt.Sprintf("Your form %q just received a new registration.", formTitle)
	return m.send(ownerEmail, "New registration", body)
}

// PlanActivated confirms a plan change.
func (m *Mailer) PlanActivated(userEmail, planType string) error {
	body := fmt.Sprintf("Your %s plan is now active.", planType)
	return m.send(userEmail, "Plan activated", body)
}
