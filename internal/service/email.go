package service

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"locar-backend/internal/domain"
	"locar-backend/internal/logger"
	"locar-backend/internal/utils"
)

type emailService struct {
	host     string
	port     int
	username string
	password string
	from     string
	money    utils.MoneyFormat
}

func NewEmailService(host string, port int, username, password, from string, money utils.MoneyFormat) EmailService {
	return &emailService{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		money:    money,
	}
}

func reminderSubject(item domain.Receivable) string {
	if item.DueStatus == domain.DueStatusOverdue {
		return fmt.Sprintf("Installment overdue - rental #%d", item.Rental.ID)
	}
	return fmt.Sprintf("Installment due soon - rental #%d", item.Rental.ID)
}

func (s *emailService) reminderBody(clientName string, item domain.Receivable) string {
	body := fmt.Sprintf("Hello %s,\n\n", clientName)
	if item.DueStatus == domain.DueStatusOverdue {
		body += fmt.Sprintf("The installment of your rental of %s was due on %s and has not been paid yet.",
			item.Rental.VehicleModel, item.NextDueDate.Format("02/01/2006"))
	} else {
		body += fmt.Sprintf("The next installment of your rental of %s is due on %s.",
			item.Rental.VehicleModel, item.NextDueDate.Format("02/01/2006"))
	}
	body += fmt.Sprintf("\n\nInstallment: %s\nWeeks paid: %d of %d\nRemaining balance: %s",
		s.money.Format(item.Installment), item.PaidWeeks, item.Rental.Weeks, s.money.Format(item.Balance))
	body += "\n\nBest regards,\nLocar"
	return body
}

func (s *emailService) SendInstallmentReminder(ctx context.Context, email, clientName string, item domain.Receivable) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", email)
	m.SetHeader("Subject", reminderSubject(item))
	m.SetBody("text/plain", s.reminderBody(clientName, item))

	logger.ExternalServiceCall("smtp", "SendInstallmentReminder", "rentalID", item.Rental.ID)
	d := gomail.NewDialer(s.host, s.port, s.username, s.password)
	if err := d.DialAndSend(m); err != nil {
		logger.ExternalServiceResult("smtp", "SendInstallmentReminder", err, "rentalID", item.Rental.ID)
		return fmt.Errorf("failed to send installment reminder: %w", err)
	}
	logger.ExternalServiceResult("smtp", "SendInstallmentReminder", nil, "rentalID", item.Rental.ID)
	return nil
}
