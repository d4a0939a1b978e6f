package services

import (
	"fmt"
	"net/smtp"
	"strings"
)

// Mailer sends OTP and password-reset mails over plain SMTP. When
// credentials are not configured sending fails explicitly instead of
// silently dropping the mail.
type Mailer struct {
	Host string
	Port int
	User string
	Pass string
	From string
}

func (m Mailer) Configured() bool {
	return m.Host != "" && m.User != "" && m.Pass != ""
}

func (m Mailer) Send(to, subject, body string) error {
	if !m.Configured() {
		return ErrBadRequest("Mail is not configured on this server")
	}
	msg := strings.Join([]string{
		"From: " + m.From,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}, "\r\n")
	addr := fmt.Sprintf("%s:%d", m.Host, m.Port)
	auth := smtp.PlainAuth("", m.User, m.Pass, m.Host)
	if err := smtp.SendMail(addr, auth, m.From, []string{to}, []byte(msg)); err != nil {
		return WrapError(err, "send mail")
	}
	return nil
}

func (m Mailer) SendOTP(to, code string) error {
	body := fmt.Sprintf("Your SmartScribe verification code is %s. It expires in 10 minutes.", code)
	return m.Send(to, "SmartScribe verification code", body)
}
