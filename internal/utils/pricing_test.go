package utils

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"locar-backend/internal/domain"
)

func newRental(rate string, weeks, paid int32) *domain.Rental {
	return &domain.Rental{
		StartAt:       time.Date(2024, 3, 4, 9, 30, 0, 0, time.UTC), // Monday
		WeeklyRate:    decimal.RequireFromString(rate),
		Weeks:         weeks,
		PaidWeeks:     paid,
		Deposit:       decimal.RequireFromString("300.00"),
		DepositStatus: domain.DepositStatusPending,
		Status:        domain.RentalStatusActive,
	}
}

func TestInstallmentAmount(t *testing.T) {
	t.Run("Splits total over weeks", func(t *testing.T) {
		r := newRental("500.00", 4, 0)
		assert.True(t, decimal.RequireFromString("2000").Equal(r.TotalValue()))
		assert.True(t, decimal.RequireFromString("500").Equal(InstallmentAmount(r)))
	})

	t.Run("Zero weeks yields zero", func(t *testing.T) {
		r := newRental("500.00", 0, 0)
		assert.NotPanics(t, func() { InstallmentAmount(r) })
		assert.True(t, InstallmentAmount(r).IsZero())
		assert.True(t, Balance(r).IsZero())
		assert.Empty(t, Schedule(r))
	})

	t.Run("Rounds to cents", func(t *testing.T) {
		r := newRental("333.335", 3, 0)
		assert.Equal(t, "333.34", InstallmentAmount(r).StringFixed(2))
	})
}

func TestCollectedAndBalance(t *testing.T) {
	t.Run("Two payments of four", func(t *testing.T) {
		r := newRental("500.00", 4, 2)
		f := Financials(r)
		assert.Equal(t, "1000.00", f.Collected.StringFixed(2))
		assert.Equal(t, "1000.00", f.Outstanding.StringFixed(2))
		assert.Equal(t, "2000.00", f.TotalValue.StringFixed(2))
	})

	t.Run("Retained deposit counts as collected", func(t *testing.T) {
		r := newRental("500.00", 4, 4)
		r.DepositStatus = domain.DepositStatusRetained
		assert.Equal(t, "2300.00", Collected(r).StringFixed(2))
		assert.Equal(t, "-300.00", Balance(r).StringFixed(2))
	})

	t.Run("Returned deposit is excluded", func(t *testing.T) {
		r := newRental("500.00", 4, 4)
		r.DepositStatus = domain.DepositStatusReturned
		assert.Equal(t, "2000.00", Collected(r).StringFixed(2))
		assert.True(t, Balance(r).IsZero())
	})

	t.Run("Remaining weeks never negative", func(t *testing.T) {
		assert.Equal(t, int32(3), RemainingWeeks(newRental("100", 4, 1)))
		assert.Equal(t, int32(0), RemainingWeeks(newRental("100", 4, 4)))
	})
}

func TestScheduleStatus(t *testing.T) {
	r := newRental("500.00", 4, 2)
	start := DateOf(r.StartAt)

	tests := []struct {
		name     string
		offset   int
		expected domain.DueStatus
	}{
		{"Well before due", 15, domain.DueStatusOnTrack},
		{"Day before upcoming window", 17, domain.DueStatusOnTrack},
		{"Start of upcoming window", 18, domain.DueStatusUpcoming},
		{"Day before due", 20, domain.DueStatusUpcoming},
		{"Due today", 21, domain.DueStatusOverdue},
		{"Past due", 30, domain.DueStatusOverdue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref := AddDays(start, tt.offset).Add(14 * time.Hour)
			next, status := ScheduleStatus(r, ref, DefaultUpcomingWindowDays)
			assert.Equal(t, AddDays(start, 21), next)
			assert.Equal(t, tt.expected, status)
		})
	}
}

func TestSchedule(t *testing.T) {
	r := newRental("250.00", 3, 1)
	items := Schedule(r)
	require.Len(t, items, 3)

	assert.Equal(t, int32(1), items[0].Week)
	assert.True(t, items[0].Paid)
	assert.False(t, items[1].Paid)
	assert.Equal(t, time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), items[0].DueDate)
	assert.Equal(t, time.Date(2024, 3, 25, 0, 0, 0, 0, time.UTC), items[2].DueDate)
	assert.Equal(t, "250.00", items[2].Amount.StringFixed(2))
}
