package service

import (
	"fmt"
	"log"
	"net/smtp"
	"strings"

	"learnhub-server/internal/config"
)

// EmailService sends transactional mail over SMTP. The config is built once
// at startup and never mutated.
type EmailService struct {
	config config.EmailConfig
}

func NewEmailService(cfg config.EmailConfig) *EmailService {
	return &EmailService{config: cfg}
}

func (e *EmailService) send(subject, body string, recipients []string) error {
	message := fmt.Appendf(nil, "From: %s\r\n"+
		"To: %s\r\n"+
		"Subject: %s\r\n"+
		"\r\n"+
		"%s\r\n", e.config.From, strings.Join(recipients, ","), subject, body)

	auth := smtp.PlainAuth("", e.config.Username, e.config.Password, e.config.Host)
	addr := e.config.Host + ":" + e.config.Port

	if err := smtp.SendMail(addr, auth, e.config.From, recipients, message); err != nil {
		log.Printf("Error sending email to %s: %s", strings.Join(recipients, ","), err)
		return err
	}
	return nil
}

func (e *EmailService) SendOTP(to, code, purpose string) error {
	subject := "Your verification code"
	intro := "Use this code to verify your email address."
	if purpose == OTPPurposeReset {
		subject = "Your password reset code"
		intro = "Use this code to reset your password."
	}
	body := fmt.Sprintf("%s\n\nCode: %s\n\nIt expires in 10 minutes. If you did not request it, ignore this email.", intro, code)
	return e.send(subject, body, []string{to})
}

func (e *EmailService) SendPasswordReset(to, resetURL string) error {
	body := fmt.Sprintf("We received a request to reset your password.\n\nReset it here: %s\n\nThe link expires in 10 minutes. If you did not request it, ignore this email.", resetURL)
	return e.send("Reset your password", body, []string{to})
}

func (e *EmailService) SendWelcome(to, name string) error {
	if name == "" {
		name = "there"
	}
	body := fmt.Sprintf("Hi %s,\n\nYour email is verified and your account is ready. Happy learning!", name)
	return e.send("Welcome to LearnHub", body, []string{to})
}
