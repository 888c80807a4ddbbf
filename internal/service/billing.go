package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"locar-backend/internal/domain"
	"locar-backend/internal/logger"
	"locar-backend/internal/metrics"
	"locar-backend/internal/repository"
	"locar-backend/internal/utils"
)

const FullyPaidMessage = "All installments are already paid."

type billingService struct {
	store    repository.Repositories
	tx       repository.Transactor
	metrics  *metrics.Metrics
	settings Settings
}

func NewBillingService(
	store repository.Repositories,
	tx repository.Transactor,
	m *metrics.Metrics,
	settings Settings,
) BillingService {
	return &billingService{
		store:    store,
		tx:       tx,
		metrics:  m,
		settings: settings.withDefaults(),
	}
}

// RecordPayment registers the next weekly installment. The payment row and
// the paid weeks counter are written in one transaction while the rental row
// is locked; the counter update is additionally guarded on its previous value.
func (s *billingService) RecordPayment(ctx context.Context, rentalID int32) (*PaymentResult, error) {
	logger.EnterMethod("billingService.RecordPayment", "rentalID", rentalID)

	result := &PaymentResult{}
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		rt, err := repos.Rentals.GetByIDForUpdate(ctx, rentalID)
		if err != nil {
			return err
		}
		if !rt.IsActive() {
			return domain.ErrRentalNotActive
		}
		result.Rental = rt
		if rt.PaidWeeks >= rt.Weeks {
			result.FullyPaid = true
			result.Message = FullyPaidMessage
			return nil
		}

		payment := &domain.Payment{
			RentalID: rt.ID,
			Week:     rt.PaidWeeks + 1,
			Amount:   utils.InstallmentAmount(rt),
			PaidAt:   s.settings.now(),
		}
		if err := repos.Payments.Create(ctx, payment); err != nil {
			return err
		}
		if err := repos.Rentals.IncrementPaidWeeks(ctx, rt.ID, rt.PaidWeeks); err != nil {
			return err
		}
		rt.PaidWeeks++

		result.Payment = payment
		result.Message = fmt.Sprintf("Payment for week %d/%d recorded.", rt.PaidWeeks, rt.Weeks)
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("billingService.RecordPayment", err, "rentalID", rentalID)
		return nil, err
	}

	if result.FullyPaid {
		logger.Warn("Payment skipped, rental fully paid", "rentalID", rentalID)
	} else {
		s.metrics.PaymentRecorded(result.Payment.Amount)
		logger.Info("Payment recorded", "rentalID", rentalID, "week", result.Payment.Week, "amount", result.Payment.Amount.StringFixed(2))
	}
	logger.ExitMethod("billingService.RecordPayment", "rentalID", rentalID, "fullyPaid", result.FullyPaid)
	return result, nil
}

func (s *billingService) Schedule(ctx context.Context, rentalID int32) (*ScheduleView, error) {
	rt, err := s.store.Rentals.GetByID(ctx, rentalID)
	if err != nil {
		return nil, err
	}

	s.settings.localize(rt)
	view := &ScheduleView{
		Rental:       rt,
		Financials:   utils.Financials(rt),
		Installments: utils.Schedule(rt),
	}
	if rt.IsActive() && rt.Weeks > 0 && rt.PaidWeeks < rt.Weeks {
		next, status := utils.ScheduleStatus(rt, s.settings.now(), s.settings.UpcomingWindowDays)
		view.NextDueDate = &next
		view.DueStatus = status
	}
	return view, nil
}

func (s *billingService) ListPayments(ctx context.Context, rentalID int32) ([]domain.Payment, error) {
	if _, err := s.store.Rentals.GetByID(ctx, rentalID); err != nil {
		return nil, err
	}
	return s.store.Payments.ListByRental(ctx, rentalID)
}

func (s *billingService) Balance(ctx context.Context, rentalID int32) (*domain.RentalFinancials, error) {
	rt, err := s.store.Rentals.GetByID(ctx, rentalID)
	if err != nil {
		return nil, err
	}
	f := utils.Financials(rt)
	return &f, nil
}

// Receivables groups active rentals by the weekday their contract started,
// which is the weekday their installments fall due.
func (s *billingService) Receivables(ctx context.Context, query string) ([]domain.ReceivableGroup, error) {
	rentals, err := s.store.Rentals.List(ctx, strings.TrimSpace(query), domain.RentalStatusActive)
	if err != nil {
		return nil, err
	}

	now := s.settings.now()
	groups := map[int]*domain.ReceivableGroup{}
	for i := range rentals {
		rt := rentals[i]
		s.settings.localize(&rt)
		item, err := s.receivable(ctx, &rt, now)
		if err != nil {
			return nil, err
		}

		day := utils.WeekdayIndex(rt.StartAt)
		g, ok := groups[day]
		if !ok {
			g = &domain.ReceivableGroup{Weekday: day, Name: s.settings.WeekdayNames[day], Total: decimal.Zero}
			groups[day] = g
		}
		g.Total = g.Total.Add(item.Balance)
		g.Items = append(g.Items, item)
	}

	out := make([]domain.ReceivableGroup, 0, len(groups))
	for _, g := range groups {
		sort.SliceStable(g.Items, func(i, j int) bool {
			return g.Items[i].NextDueDate.Before(g.Items[j].NextDueDate)
		})
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Weekday < out[j].Weekday })
	return out, nil
}

func (s *billingService) receivable(ctx context.Context, rt *domain.Rental, now time.Time) (domain.Receivable, error) {
	last, err := s.store.Payments.LastByRental(ctx, rt.ID)
	if err != nil {
		return domain.Receivable{}, err
	}

	installment := utils.InstallmentAmount(rt)
	next, status := utils.ScheduleStatus(rt, now, s.settings.UpcomingWindowDays)
	item := domain.Receivable{
		Rental:         *rt,
		TotalValue:     rt.TotalValue(),
		Installment:    installment,
		PaidWeeks:      rt.PaidWeeks,
		RemainingWeeks: utils.RemainingWeeks(rt),
		TotalPaid:      installment.Mul(decimal.NewFromInt32(rt.PaidWeeks)),
		Balance:        utils.Balance(rt),
		NextDueDate:    next,
		DueStatus:      status,
	}
	if last != nil {
		paidAt := last.PaidAt
		item.LastPaymentAt = &paidAt
	}
	return item, nil
}
