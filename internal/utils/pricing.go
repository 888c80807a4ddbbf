package utils

import (
	"time"

	"github.com/shopspring/decimal"

	"locar-backend/internal/domain"
)

const DefaultUpcomingWindowDays = 3

// InstallmentAmount is the rental total split over its weeks, rounded to
// cents. Rentals without weeks have no installment and yield zero; every
// caller goes through here so the guard is uniform.
func InstallmentAmount(r *domain.Rental) decimal.Decimal {
	if r.Weeks <= 0 {
		return decimal.Zero
	}
	return r.TotalValue().Div(decimal.NewFromInt32(r.Weeks)).Round(2)
}

// Collected counts paid installments plus a retained deposit. A deposit
// returned to the client is not income.
func Collected(r *domain.Rental) decimal.Decimal {
	paid := InstallmentAmount(r).Mul(decimal.NewFromInt32(r.PaidWeeks))
	return paid.Add(r.RetainedDeposit())
}

// Balance is what is still owed on the contract.
func Balance(r *domain.Rental) decimal.Decimal {
	return r.TotalValue().Sub(Collected(r))
}

// Financials bundles the derived amounts of a rental.
func Financials(r *domain.Rental) domain.RentalFinancials {
	collected := Collected(r)
	total := r.TotalValue()
	return domain.RentalFinancials{
		TotalValue:  total,
		Installment: InstallmentAmount(r),
		Collected:   collected,
		Outstanding: total.Sub(collected),
	}
}

// RemainingWeeks never goes below zero.
func RemainingWeeks(r *domain.Rental) int32 {
	if r.PaidWeeks >= r.Weeks {
		return 0
	}
	return r.Weeks - r.PaidWeeks
}

// NextDueDate is the start date plus one week per paid installment plus one.
func NextDueDate(r *domain.Rental) time.Time {
	return AddDays(DateOf(r.StartAt), int(r.PaidWeeks+1)*daysPerWeek)
}

// ClassifyDue compares a due date against a reference day.
func ClassifyDue(due, ref time.Time, upcomingDays int) domain.DueStatus {
	d := DateOf(due)
	today := DateOf(ref)
	switch {
	case !d.After(today):
		return domain.DueStatusOverdue
	case !d.After(AddDays(today, upcomingDays)):
		return domain.DueStatusUpcoming
	default:
		return domain.DueStatusOnTrack
	}
}

// ScheduleStatus returns the next due date of r and its classification
// relative to ref.
func ScheduleStatus(r *domain.Rental, ref time.Time, upcomingDays int) (time.Time, domain.DueStatus) {
	next := NextDueDate(r)
	return next, ClassifyDue(next, ref, upcomingDays)
}

// Schedule lists every weekly installment of r. Week n falls due n weeks
// after the start date.
func Schedule(r *domain.Rental) []domain.Installment {
	if r.Weeks <= 0 {
		return nil
	}
	amount := InstallmentAmount(r)
	start := DateOf(r.StartAt)
	items := make([]domain.Installment, 0, r.Weeks)
	for week := int32(1); week <= r.Weeks; week++ {
		items = append(items, domain.Installment{
			Week:    week,
			DueDate: AddDays(start, int(week)*daysPerWeek),
			Amount:  amount,
			Paid:    week <= r.PaidWeeks,
		})
	}
	return items
}
