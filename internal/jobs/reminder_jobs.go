package jobs

import (
	"context"
	"fmt"

	"locar-backend/internal/domain"
	"locar-backend/internal/logger"
)

// SendInstallmentReminders emails clients whose next weekly installment is
// overdue or falls inside the upcoming window.
func (jr *JobRunner) SendInstallmentReminders() error {
	return jr.runWithRecovery(JobInstallmentReminders, func(ctx context.Context) error {
		log := logger.WithJob(JobInstallmentReminders)
		if jr.services.Email == nil {
			log.Info("Email not configured, skipping reminders")
			return nil
		}

		groups, err := jr.services.Billing.Receivables(ctx, "")
		if err != nil {
			return fmt.Errorf("failed to load receivables: %w", err)
		}

		sent, failed := 0, 0
		for _, g := range groups {
			for _, item := range g.Items {
				if item.DueStatus == domain.DueStatusOnTrack || item.RemainingWeeks == 0 {
					continue
				}
				client, err := jr.services.Clients.GetClient(ctx, item.Rental.ClientID)
				if err != nil {
					log.Error("Failed to load client", "rental_id", item.Rental.ID, "error", err)
					failed++
					continue
				}
				if client.Email == "" {
					log.Debug("Client has no email", "rental_id", item.Rental.ID, "client_id", client.ID)
					continue
				}
				if err := jr.services.Email.SendInstallmentReminder(ctx, client.Email, client.Name, item); err != nil {
					log.Error("Failed to send installment reminder",
						"rental_id", item.Rental.ID,
						"client_id", client.ID,
						"error", err)
					failed++
					continue
				}
				sent++
				jr.metrics.ReminderSent()
				log.Debug("Sent installment reminder",
					"rental_id", item.Rental.ID,
					"due_status", item.DueStatus,
					"next_due_date", item.NextDueDate.Format("2006-01-02"))
			}
		}

		log.Info("Installment reminders processed", "sent", sent, "failed", failed)
		if failed > 0 {
			return fmt.Errorf("%d installment reminders failed", failed)
		}
		return nil
	})
}
