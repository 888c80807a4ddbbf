package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"locar-backend/internal/domain"
	"locar-backend/internal/repository"
)

func TestBillingService_RecordPayment_FullCycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	rt, _ := env.rental(t, "500.00", 4)

	for week := int32(1); week <= 4; week++ {
		res, err := env.billing.RecordPayment(ctx, rt.ID)
		require.NoError(t, err)
		require.False(t, res.FullyPaid)
		require.NotNil(t, res.Payment)
		assert.Equal(t, week, res.Payment.Week)
		assert.Equal(t, "500.00", res.Payment.Amount.StringFixed(2))
		assert.Equal(t, week, res.Rental.PaidWeeks)
	}

	bal, err := env.billing.Balance(ctx, rt.ID)
	require.NoError(t, err)
	assert.True(t, bal.Outstanding.IsZero())
	assert.Equal(t, "2000.00", bal.Collected.StringFixed(2))

	res, err := env.billing.RecordPayment(ctx, rt.ID)
	require.NoError(t, err)
	assert.True(t, res.FullyPaid)
	assert.Nil(t, res.Payment)
	assert.Equal(t, FullyPaidMessage, res.Message)

	payments, err := env.billing.ListPayments(ctx, rt.ID)
	require.NoError(t, err)
	assert.Len(t, payments, 4)

	_, err = env.rentals.CloseRental(ctx, rt.ID, CloseRentalRequest{EndMileage: 5000, DepositStatus: domain.DepositStatusRetained})
	require.NoError(t, err)
	bal, err = env.billing.Balance(ctx, rt.ID)
	require.NoError(t, err)
	assert.Equal(t, "-300.00", bal.Outstanding.StringFixed(2))
	assert.Equal(t, "2300.00", bal.Collected.StringFixed(2))
}

func TestBillingService_RecordPayment_ReturnedDeposit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	rt, _ := env.rental(t, "500.00", 4)
	for i := 0; i < 4; i++ {
		_, err := env.billing.RecordPayment(ctx, rt.ID)
		require.NoError(t, err)
	}
	_, err := env.rentals.CloseRental(ctx, rt.ID, CloseRentalRequest{EndMileage: 5000, DepositStatus: domain.DepositStatusReturned})
	require.NoError(t, err)

	bal, err := env.billing.Balance(ctx, rt.ID)
	require.NoError(t, err)
	assert.True(t, bal.Outstanding.IsZero())
}

func TestBillingService_RecordPayment_Rejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("No weeks is already fully paid", func(t *testing.T) {
		rt, _ := env.rental(t, "500.00", 0)
		res, err := env.billing.RecordPayment(ctx, rt.ID)
		require.NoError(t, err)
		assert.True(t, res.FullyPaid)
		assert.Equal(t, FullyPaidMessage, res.Message)

		payments, err := env.billing.ListPayments(ctx, rt.ID)
		require.NoError(t, err)
		assert.Empty(t, payments)
		stored, err := env.rentals.GetRental(ctx, rt.ID)
		require.NoError(t, err)
		assert.Equal(t, int32(0), stored.PaidWeeks)
	})

	t.Run("Closed rental", func(t *testing.T) {
		rt, _ := env.rental(t, "500.00", 4)
		_, err := env.rentals.CloseRental(ctx, rt.ID, CloseRentalRequest{EndMileage: 1500})
		require.NoError(t, err)

		_, err = env.billing.RecordPayment(ctx, rt.ID)
		assert.ErrorIs(t, err, domain.ErrRentalNotActive)
		assert.Equal(t, domain.KindStateConflict, domain.KindOf(err))

		payments, err := env.billing.ListPayments(ctx, rt.ID)
		require.NoError(t, err)
		assert.Empty(t, payments)
	})

	t.Run("Unknown rental", func(t *testing.T) {
		_, err := env.billing.RecordPayment(ctx, 4242)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestBillingService_RecordPayment_Concurrent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	rt, _ := env.rental(t, "250.00", 4)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		recorded  int
		fullyPaid int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := env.billing.RecordPayment(ctx, rt.ID)
			if err != nil {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if res.FullyPaid {
				fullyPaid++
			} else {
				recorded++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 4, recorded)
	assert.Equal(t, 6, fullyPaid)

	stored, err := env.rentals.GetRental(ctx, rt.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(4), stored.PaidWeeks)

	payments, err := env.billing.ListPayments(ctx, rt.ID)
	require.NoError(t, err)
	require.Len(t, payments, 4)
	for i, p := range payments {
		assert.Equal(t, int32(i+1), p.Week)
	}
}

func TestBillingService_RecordPayment_GuardFailureRollsBack(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	rt, _ := env.rental(t, "500.00", 4)

	rentals := &MockRentalRepo{}
	rentals.On("IncrementPaidWeeks", mock.Anything, rt.ID, int32(0)).Return(domain.ErrConcurrentUpdate)
	tx := &failingTx{store: env.store, wrap: func(r repository.Repositories) repository.Repositories {
		rentals.RentalRepository = r.Rentals
		r.Rentals = rentals
		return r
	}}
	svc := NewBillingService(env.store.Repositories, tx, nil, env.settings)

	_, err := svc.RecordPayment(ctx, rt.ID)
	assert.ErrorIs(t, err, domain.ErrConcurrentUpdate)
	rentals.AssertExpectations(t)

	payments, err := env.billing.ListPayments(ctx, rt.ID)
	require.NoError(t, err)
	assert.Empty(t, payments)
	stored, err := env.rentals.GetRental(ctx, rt.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(0), stored.PaidWeeks)
}

func TestBillingService_Schedule(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	rt, _ := env.rental(t, "500.00", 4)

	view, err := env.billing.Schedule(ctx, rt.ID)
	require.NoError(t, err)
	require.Len(t, view.Installments, 4)
	assert.Equal(t, time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC), view.Installments[0].DueDate)
	assert.Equal(t, time.Date(2024, 1, 29, 0, 0, 0, 0, time.UTC), view.Installments[3].DueDate)
	require.NotNil(t, view.NextDueDate)
	assert.Equal(t, domain.DueStatusOverdue, view.DueStatus)

	for i := 0; i < 2; i++ {
		_, err = env.billing.RecordPayment(ctx, rt.ID)
		require.NoError(t, err)
	}
	view, err = env.billing.Schedule(ctx, rt.ID)
	require.NoError(t, err)
	assert.True(t, view.Installments[1].Paid)
	assert.False(t, view.Installments[2].Paid)
	assert.Equal(t, time.Date(2024, 1, 22, 0, 0, 0, 0, time.UTC), *view.NextDueDate)
	assert.Equal(t, domain.DueStatusOnTrack, view.DueStatus)

	env.now = time.Date(2024, 1, 20, 9, 0, 0, 0, time.UTC)
	view, err = env.billing.Schedule(ctx, rt.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DueStatusUpcoming, view.DueStatus)
}

func TestBillingService_Receivables(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	monday, _ := env.rental(t, "500.00", 4)
	_, err := env.billing.RecordPayment(ctx, monday.ID)
	require.NoError(t, err)

	c := env.client(t, "Bruno", "222")
	v := env.vehicle(t, "WED0001", domain.VehicleStatusAvailable)
	wednesday, err := env.rentals.CreateRental(ctx, CreateRentalRequest{
		ClientID: c.ID, VehicleID: v.ID,
		StartAt:    testStart.AddDate(0, 0, 2),
		WeeklyRate: decimal.RequireFromString("300.00"), Weeks: 2,
	})
	require.NoError(t, err)

	closed, _ := env.rental(t, "100.00", 1)
	_, err = env.rentals.CloseRental(ctx, closed.ID, CloseRentalRequest{EndMileage: 1100})
	require.NoError(t, err)

	groups, err := env.billing.Receivables(ctx, "")
	require.NoError(t, err)
	require.Len(t, groups, 2)

	assert.Equal(t, 0, groups[0].Weekday)
	assert.Equal(t, "Segunda-feira", groups[0].Name)
	require.Len(t, groups[0].Items, 1)
	item := groups[0].Items[0]
	assert.Equal(t, monday.ID, item.Rental.ID)
	assert.Equal(t, int32(3), item.RemainingWeeks)
	assert.Equal(t, "1500.00", item.Balance.StringFixed(2))
	assert.Equal(t, "500.00", item.TotalPaid.StringFixed(2))
	require.NotNil(t, item.LastPaymentAt)
	assert.Equal(t, "1500.00", groups[0].Total.StringFixed(2))

	assert.Equal(t, 2, groups[1].Weekday)
	require.Len(t, groups[1].Items, 1)
	assert.Equal(t, wednesday.ID, groups[1].Items[0].Rental.ID)
	assert.Nil(t, groups[1].Items[0].LastPaymentAt)
	assert.Equal(t, "600.00", groups[1].Total.StringFixed(2))

	filtered, err := env.billing.Receivables(ctx, "Bruno")
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, 2, filtered[0].Weekday)
}
