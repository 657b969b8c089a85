package mailer

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/rs/zerolog"

	"chessreg/internal/model"
)

// Config carries the SMTP settings for organizer notifications.
type Config struct {
	Host     string
	Port     int
	From     string
	Password string
	To       []string
}

// SendRegistrationNotification mails the organizers a summary of a newly
// stored registration so payments can be matched against the reference.
func SendRegistrationNotification(log *zerolog.Logger, cfg Config, reg *model.Registration) error {
	subject := fmt.Sprintf("New tournament registration: %s (%s)", reg.FullName, reg.AgeCategory)
	body := fmt.Sprintf(
		"A new player registered for the tournament.\n\n"+
			"Name: %s\nName with initials: %s\nAge category: %s\nContact: %s\n"+
			"Reference number: %s\nRegistered at: %s\n",
		reg.FullName, reg.NameWithInitials, reg.AgeCategory, reg.ContactNumber,
		reg.ReferenceNumber, reg.CreatedAt.Format("2006-01-02 15:04:05"),
	)

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		cfg.From, strings.Join(cfg.To, ", "), subject, body,
	)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	auth := smtp.PlainAuth("", cfg.From, cfg.Password, cfg.Host)

	if err := smtp.SendMail(addr, auth, cfg.From, cfg.To, []byte(msg)); err != nil {
		log.Warn().Msgf("failed to send organizer notification for %s: %v", reg.ReferenceNumber, err)
		return fmt.Errorf("send email: %w", err)
	}

	log.Info().Msgf("organizer notification sent for registration %s", reg.ReferenceNumber)
	return nil
}
