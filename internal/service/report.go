package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"locar-backend/internal/domain"
	"locar-backend/internal/logger"
	"locar-backend/internal/repository"
	"locar-backend/internal/utils"
)

type reportService struct {
	store    repository.Repositories
	settings Settings
}

func NewReportService(store repository.Repositories, settings Settings) ReportService {
	return &reportService{
		store:    store,
		settings: settings.withDefaults(),
	}
}

// ResolveWindow turns optional yyyy-mm-dd bounds into a date window. When
// either bound is missing the current calendar month is used.
func (s *reportService) ResolveWindow(start, end string) (domain.DateWindow, error) {
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)
	if start == "" || end == "" {
		return utils.MonthWindow(s.settings.now()), nil
	}

	from, err := utils.ParseDate(start, s.settings.Location)
	if err != nil {
		return domain.DateWindow{}, domain.Invalid("start: %v", err)
	}
	to, err := utils.ParseDate(end, s.settings.Location)
	if err != nil {
		return domain.DateWindow{}, domain.Invalid("end: %v", err)
	}
	if to.Before(from) {
		return domain.DateWindow{}, domain.Invalid("end date %s is before start date %s", end, start)
	}
	return domain.DateWindow{Start: from, End: to}, nil
}

func (s *reportService) Dashboard(ctx context.Context, start, end string) (*domain.Dashboard, error) {
	logger.EnterMethod("reportService.Dashboard", "start", start, "end", end)

	window, err := s.ResolveWindow(start, end)
	if err != nil {
		return nil, err
	}

	candidates, err := s.store.Rentals.ListStartedBefore(ctx, utils.AddDays(window.End, 1))
	if err != nil {
		return nil, err
	}
	for i := range candidates {
		s.settings.localize(&candidates[i])
	}
	selected := SelectRentals(candidates, window)

	expenses, err := s.store.Expenses.ListByDateRange(ctx, window)
	if err != nil {
		return nil, err
	}

	groups, labels, counts := GroupByWeekday(selected, s.settings.now(), s.settings.UpcomingWindowDays, s.settings.WeekdayNames)
	d := &domain.Dashboard{
		Window:      window,
		Summary:     Summarize(selected, expenses),
		ByWeekday:   groups,
		ChartLabels: labels,
		ChartCounts: counts,
		RentalCount: int32(len(selected)),
	}

	if d.TotalVehicles, err = s.store.Vehicles.Count(ctx); err != nil {
		return nil, err
	}
	if d.RentedVehicles, err = s.store.Vehicles.CountByStatus(ctx, domain.VehicleStatusRented); err != nil {
		return nil, err
	}
	if d.TotalClients, err = s.store.Clients.Count(ctx); err != nil {
		return nil, err
	}

	logger.ExitMethod("reportService.Dashboard", "rentals", d.RentalCount, "expenses", len(expenses))
	return d, nil
}

// SelectRentals keeps every active rental plus the rentals whose effective
// range overlaps the window.
func SelectRentals(rentals []domain.Rental, window domain.DateWindow) []domain.Rental {
	var out []domain.Rental
	for i := range rentals {
		rt := &rentals[i]
		if rt.IsActive() {
			out = append(out, *rt)
			continue
		}
		start, end := utils.EffectiveRange(rt)
		if utils.Overlaps(window, start, end) {
			out = append(out, *rt)
		}
	}
	return out
}

// Summarize totals the selected rentals and the window's expenses.
func Summarize(rentals []domain.Rental, expenses []domain.Expense) domain.FinancialSummary {
	sum := domain.FinancialSummary{
		TotalReceivable:  decimal.Zero,
		TotalCollected:   decimal.Zero,
		TotalOutstanding: decimal.Zero,
		TotalExpenses:    decimal.Zero,
	}
	for i := range rentals {
		f := utils.Financials(&rentals[i])
		sum.TotalReceivable = sum.TotalReceivable.Add(f.TotalValue)
		sum.TotalCollected = sum.TotalCollected.Add(f.Collected)
		sum.TotalOutstanding = sum.TotalOutstanding.Add(f.Outstanding)
	}
	for _, e := range expenses {
		sum.TotalExpenses = sum.TotalExpenses.Add(e.Amount)
	}
	sum.NetProfit = sum.TotalCollected.Sub(sum.TotalExpenses)
	return sum
}

// GroupByWeekday buckets rentals by the weekday of their start date. Due
// status is evaluated against now, not against any reporting window, and is
// left empty for closed or fully paid rentals. Labels and counts follow
// weekday order and skip empty days.
func GroupByWeekday(rentals []domain.Rental, now time.Time, upcomingDays int, names [7]string) ([]domain.WeekdayGroup, []string, []int) {
	var buckets [7][]domain.WeekdayEntry
	for i := range rentals {
		rt := &rentals[i]
		f := utils.Financials(rt)
		next, status := utils.ScheduleStatus(rt, now, upcomingDays)
		remaining := utils.RemainingWeeks(rt)
		if rt.IsClosed() || remaining == 0 {
			status = ""
		}
		day := utils.WeekdayIndex(rt.StartAt)
		buckets[day] = append(buckets[day], domain.WeekdayEntry{
			RentalID:       rt.ID,
			ClientName:     rt.ClientName,
			VehicleModel:   rt.VehicleModel,
			NextDueDate:    next,
			DueStatus:      status,
			Installment:    f.Installment,
			PaidWeeks:      rt.PaidWeeks,
			RemainingWeeks: remaining,
			Collected:      f.Collected,
		})
	}

	var (
		groups []domain.WeekdayGroup
		labels []string
		counts []int
	)
	for day, entries := range buckets {
		if len(entries) == 0 {
			continue
		}
		sort.SliceStable(entries, func(i, j int) bool { return entries[i].NextDueDate.Before(entries[j].NextDueDate) })
		groups = append(groups, domain.WeekdayGroup{Weekday: day, Name: names[day], Entries: entries})
		labels = append(labels, names[day])
		counts = append(counts, len(entries))
	}
	return groups, labels, counts
}
