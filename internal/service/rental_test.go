package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"locar-backend/internal/domain"
	"locar-backend/internal/repository"
)

func TestRentalService_CreateRental(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c := env.client(t, "Ana", "111")
	v := env.vehicle(t, "CRT0001", domain.VehicleStatusAvailable)

	rt, err := env.rentals.CreateRental(ctx, CreateRentalRequest{
		ClientID:   c.ID,
		VehicleID:  v.ID,
		StartAt:    testStart,
		WeeklyRate: decimal.RequireFromString("500.00"),
		Weeks:      4,
		Deposit:    decimal.RequireFromString("300.00"),
	})
	require.NoError(t, err)

	assert.Equal(t, domain.RentalStatusActive, rt.Status)
	assert.Equal(t, int32(0), rt.PaidWeeks)
	assert.Equal(t, domain.DepositStatusPending, rt.DepositStatus)
	assert.Equal(t, domain.PaymentModeWeekly, rt.PaymentMode)
	assert.Equal(t, int32(1000), rt.StartMileage)
	assert.Equal(t, "2000", rt.TotalValue().String())
	assert.Equal(t, domain.VehicleStatusRented, env.vehicleState(t, v.ID).Status)
}

func TestRentalService_CreateRental_UnavailableVehicle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c := env.client(t, "Ana", "111")

	for i, status := range []domain.VehicleStatus{domain.VehicleStatusRented, domain.VehicleStatusMaintenance, domain.VehicleStatusInactive} {
		v := env.vehicle(t, "UNV000"+string(rune('1'+i)), status)
		_, err := env.rentals.CreateRental(ctx, CreateRentalRequest{
			ClientID: c.ID, VehicleID: v.ID, StartAt: testStart,
			WeeklyRate: decimal.NewFromInt(100), Weeks: 1,
		})
		assert.ErrorIs(t, err, domain.ErrVehicleUnavailable)
		assert.Equal(t, domain.KindValidation, domain.KindOf(err))
		assert.Equal(t, status, env.vehicleState(t, v.ID).Status)
	}

	rentals, err := env.rentals.ListRentals(ctx, "", "")
	require.NoError(t, err)
	assert.Empty(t, rentals)
}

func TestRentalService_CreateRental_NotFoundAndInvalid(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c := env.client(t, "Ana", "111")
	v := env.vehicle(t, "NFD0001", domain.VehicleStatusAvailable)

	_, err := env.rentals.CreateRental(ctx, CreateRentalRequest{ClientID: 999, VehicleID: v.ID})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = env.rentals.CreateRental(ctx, CreateRentalRequest{ClientID: c.ID, VehicleID: 999})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = env.rentals.CreateRental(ctx, CreateRentalRequest{ClientID: c.ID, VehicleID: v.ID, Weeks: -1})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = env.rentals.CreateRental(ctx, CreateRentalRequest{ClientID: c.ID, VehicleID: v.ID, WeeklyRate: decimal.NewFromInt(-5)})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	assert.Equal(t, domain.VehicleStatusAvailable, env.vehicleState(t, v.ID).Status)
}

func TestRentalService_CreateRental_AtomicOnVehicleFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c := env.client(t, "Ana", "111")
	v := env.vehicle(t, "ATM0001", domain.VehicleStatusAvailable)

	vehicles := &MockVehicleRepo{}
	vehicles.On("Update", mock.Anything, mock.Anything).Return(errors.New("disk full"))
	tx := &failingTx{store: env.store, wrap: func(r repository.Repositories) repository.Repositories {
		vehicles.VehicleRepository = r.Vehicles
		r.Vehicles = vehicles
		return r
	}}
	svc := NewRentalService(env.store.Repositories, tx, env.files, nil, env.settings)

	_, err := svc.CreateRental(ctx, CreateRentalRequest{
		ClientID: c.ID, VehicleID: v.ID, StartAt: testStart,
		WeeklyRate: decimal.NewFromInt(100), Weeks: 2,
	})
	assert.EqualError(t, err, "disk full")
	vehicles.AssertExpectations(t)

	rentals, err := env.store.Rentals.List(ctx, "", "")
	require.NoError(t, err)
	assert.Empty(t, rentals)
	assert.Equal(t, domain.VehicleStatusAvailable, env.vehicleState(t, v.ID).Status)
}

func TestRentalService_CloseRental(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("Invalid mileage leaves state unchanged", func(t *testing.T) {
		rt, v := env.rental(t, "500.00", 4)
		for _, end := range []int32{rt.StartMileage, rt.StartMileage - 1, 0} {
			_, err := env.rentals.CloseRental(ctx, rt.ID, CloseRentalRequest{EndMileage: end, DepositStatus: domain.DepositStatusReturned})
			assert.ErrorIs(t, err, domain.ErrInvalidMileage)
			assert.Equal(t, domain.KindValidation, domain.KindOf(err))
		}
		stored, err := env.rentals.GetRental(ctx, rt.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.RentalStatusActive, stored.Status)
		assert.Nil(t, stored.EndMileage)
		assert.Nil(t, stored.EndAt)
		assert.Equal(t, domain.VehicleStatusRented, env.vehicleState(t, v.ID).Status)
	})

	t.Run("Success releases vehicle", func(t *testing.T) {
		rt, v := env.rental(t, "500.00", 4)
		res, err := env.rentals.CloseRental(ctx, rt.ID, CloseRentalRequest{
			EndMileage: 2500, DepositStatus: domain.DepositStatusRetained, Notes: "scratched bumper",
		})
		require.NoError(t, err)
		assert.True(t, res.VehicleReleased)
		assert.Equal(t, DepositRetainedMessage, res.Message)

		stored, err := env.rentals.GetRental(ctx, rt.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.RentalStatusClosed, stored.Status)
		require.NotNil(t, stored.EndAt)
		assert.Equal(t, env.now, *stored.EndAt)
		require.NotNil(t, stored.EndMileage)
		assert.Equal(t, int32(2500), *stored.EndMileage)
		assert.Equal(t, domain.DepositStatusRetained, stored.DepositStatus)
		assert.True(t, strings.Contains(stored.Notes, "scratched bumper"))

		vehicle := env.vehicleState(t, v.ID)
		assert.Equal(t, domain.VehicleStatusAvailable, vehicle.Status)
		assert.Equal(t, int32(2500), vehicle.Mileage)

		_, err = env.rentals.CloseRental(ctx, rt.ID, CloseRentalRequest{EndMileage: 3000})
		assert.ErrorIs(t, err, domain.ErrClosedRental)
		assert.Equal(t, domain.KindStateConflict, domain.KindOf(err))
	})

	t.Run("Deposit messages", func(t *testing.T) {
		for status, want := range map[domain.DepositStatus]string{
			domain.DepositStatusReturned: DepositReturnedMessage,
			domain.DepositStatusPending:  DepositPendingMessage,
		} {
			rt, _ := env.rental(t, "100.00", 1)
			res, err := env.rentals.CloseRental(ctx, rt.ID, CloseRentalRequest{EndMileage: 1200, DepositStatus: status})
			require.NoError(t, err)
			assert.Equal(t, want, res.Message)
		}
	})
}

func TestRentalService_UpdateRental(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("Closed rental is rejected before mutating", func(t *testing.T) {
		rt, _ := env.rental(t, "100.00", 2)
		_, err := env.rentals.CloseRental(ctx, rt.ID, CloseRentalRequest{EndMileage: 1100})
		require.NoError(t, err)

		notes := "changed"
		_, err = env.rentals.UpdateRental(ctx, rt.ID, UpdateRentalRequest{Notes: &notes})
		assert.ErrorIs(t, err, domain.ErrClosedRental)

		stored, err := env.rentals.GetRental(ctx, rt.ID)
		require.NoError(t, err)
		assert.NotEqual(t, "changed", stored.Notes)
	})

	t.Run("End mileage correction releases vehicle", func(t *testing.T) {
		rt, v := env.rental(t, "100.00", 2)
		end := int32(1800)
		res, err := env.rentals.UpdateRental(ctx, rt.ID, UpdateRentalRequest{EndMileage: &end})
		require.NoError(t, err)
		assert.True(t, res.VehicleReleased)
		assert.Equal(t, domain.RentalStatusActive, res.Rental.Status)

		vehicle := env.vehicleState(t, v.ID)
		assert.Equal(t, domain.VehicleStatusAvailable, vehicle.Status)
		assert.Equal(t, int32(1800), vehicle.Mileage)
	})

	t.Run("Released vehicle rented again stays with the new rental", func(t *testing.T) {
		first, v := env.rental(t, "100.00", 2)
		end := int32(1500)
		res, err := env.rentals.UpdateRental(ctx, first.ID, UpdateRentalRequest{EndMileage: &end})
		require.NoError(t, err)
		require.True(t, res.VehicleReleased)

		other := env.client(t, "Second Renter", "tax-rerent-1")
		second, err := env.rentals.CreateRental(ctx, CreateRentalRequest{
			ClientID: other.ID, VehicleID: v.ID, StartAt: testStart,
			WeeklyRate: decimal.RequireFromString("120.00"), Weeks: 2,
			Deposit: decimal.RequireFromString("300.00"), PaymentMode: domain.PaymentModeWeekly,
		})
		require.NoError(t, err)
		assert.Equal(t, int32(1500), second.StartMileage)

		closed, err := env.rentals.CloseRental(ctx, first.ID, CloseRentalRequest{EndMileage: 1600})
		require.NoError(t, err)
		assert.False(t, closed.VehicleReleased)

		vehicle := env.vehicleState(t, v.ID)
		assert.Equal(t, domain.VehicleStatusRented, vehicle.Status)
		assert.Equal(t, int32(1500), vehicle.Mileage)
		stored, err := env.rentals.GetRental(ctx, second.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.RentalStatusActive, stored.Status)

		third := env.client(t, "Third Renter", "tax-rerent-2")
		_, err = env.rentals.CreateRental(ctx, CreateRentalRequest{
			ClientID: third.ID, VehicleID: v.ID, StartAt: testStart,
			WeeklyRate: decimal.RequireFromString("120.00"), Weeks: 2,
			Deposit: decimal.RequireFromString("300.00"), PaymentMode: domain.PaymentModeWeekly,
		})
		assert.ErrorIs(t, err, domain.ErrVehicleUnavailable)

		require.NoError(t, env.rentals.DeleteRental(ctx, first.ID))
		assert.Equal(t, domain.VehicleStatusRented, env.vehicleState(t, v.ID).Status)

		closed, err = env.rentals.CloseRental(ctx, second.ID, CloseRentalRequest{EndMileage: 2100})
		require.NoError(t, err)
		assert.True(t, closed.VehicleReleased)
		vehicle = env.vehicleState(t, v.ID)
		assert.Equal(t, domain.VehicleStatusAvailable, vehicle.Status)
		assert.Equal(t, int32(2100), vehicle.Mileage)
	})

	t.Run("Swap after release keeps the other rental's vehicle", func(t *testing.T) {
		first, v := env.rental(t, "100.00", 2)
		end := int32(1400)
		_, err := env.rentals.UpdateRental(ctx, first.ID, UpdateRentalRequest{EndMileage: &end})
		require.NoError(t, err)

		other := env.client(t, "Swap Renter", "tax-rerent-3")
		_, err = env.rentals.CreateRental(ctx, CreateRentalRequest{
			ClientID: other.ID, VehicleID: v.ID, StartAt: testStart,
			WeeklyRate: decimal.RequireFromString("120.00"), Weeks: 2,
			Deposit: decimal.RequireFromString("300.00"), PaymentMode: domain.PaymentModeWeekly,
		})
		require.NoError(t, err)

		next := env.vehicle(t, "SWP0003", domain.VehicleStatusAvailable)
		res, err := env.rentals.UpdateRental(ctx, first.ID, UpdateRentalRequest{VehicleID: &next.ID})
		require.NoError(t, err)
		assert.Nil(t, res.Rental.EndMileage)
		assert.Equal(t, domain.VehicleStatusRented, env.vehicleState(t, v.ID).Status)
		assert.Equal(t, domain.VehicleStatusRented, env.vehicleState(t, next.ID).Status)

		holder, err := env.store.Rentals.HolderOf(ctx, next.ID)
		require.NoError(t, err)
		require.NotNil(t, holder)
		assert.Equal(t, first.ID, holder.ID)
	})

	t.Run("Vehicle swap", func(t *testing.T) {
		rt, old := env.rental(t, "100.00", 2)
		next := env.vehicle(t, "SWP0001", domain.VehicleStatusAvailable)
		busy := env.vehicle(t, "SWP0002", domain.VehicleStatusMaintenance)

		_, err := env.rentals.UpdateRental(ctx, rt.ID, UpdateRentalRequest{VehicleID: &busy.ID})
		assert.ErrorIs(t, err, domain.ErrVehicleUnavailable)
		assert.Equal(t, domain.VehicleStatusRented, env.vehicleState(t, old.ID).Status)

		res, err := env.rentals.UpdateRental(ctx, rt.ID, UpdateRentalRequest{VehicleID: &next.ID})
		require.NoError(t, err)
		assert.Equal(t, next.ID, *res.Rental.VehicleID)
		assert.Equal(t, domain.VehicleStatusAvailable, env.vehicleState(t, old.ID).Status)
		assert.Equal(t, domain.VehicleStatusRented, env.vehicleState(t, next.ID).Status)
	})

	t.Run("Weeks below paid weeks", func(t *testing.T) {
		rt, _ := env.rental(t, "100.00", 3)
		_, err := env.billing.RecordPayment(ctx, rt.ID)
		require.NoError(t, err)
		_, err = env.billing.RecordPayment(ctx, rt.ID)
		require.NoError(t, err)

		weeks := int32(1)
		_, err = env.rentals.UpdateRental(ctx, rt.ID, UpdateRentalRequest{Weeks: &weeks})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestRentalService_DeleteRental(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("Active rental cannot be deleted", func(t *testing.T) {
		rt, v := env.rental(t, "100.00", 2)
		err := env.rentals.DeleteRental(ctx, rt.ID)
		assert.ErrorIs(t, err, domain.ErrOpenRental)
		assert.Equal(t, domain.KindStateConflict, domain.KindOf(err))

		_, err = env.rentals.GetRental(ctx, rt.ID)
		assert.NoError(t, err)
		assert.Equal(t, domain.VehicleStatusRented, env.vehicleState(t, v.ID).Status)
	})

	t.Run("Closed rental with inconsistent vehicle", func(t *testing.T) {
		rt, v := env.rental(t, "100.00", 2)
		_, err := env.rentals.CloseRental(ctx, rt.ID, CloseRentalRequest{EndMileage: 1300})
		require.NoError(t, err)
		vehicle := env.vehicleState(t, v.ID)
		vehicle.Status = domain.VehicleStatusRented
		require.NoError(t, env.store.Vehicles.Update(ctx, vehicle))

		require.NoError(t, env.rentals.DeleteRental(ctx, rt.ID))

		_, err = env.rentals.GetRental(ctx, rt.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		restored := env.vehicleState(t, v.ID)
		assert.Equal(t, domain.VehicleStatusAvailable, restored.Status)
		assert.Equal(t, int32(1300), restored.Mileage)
	})
}

func TestRentalService_ListRentals(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a, _ := env.rental(t, "100.00", 1)
	b, _ := env.rental(t, "200.00", 1)
	_, err := env.rentals.CloseRental(ctx, b.ID, CloseRentalRequest{EndMileage: 1100})
	require.NoError(t, err)

	active, err := env.rentals.ListRentals(ctx, "", domain.RentalStatusActive)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, a.ID, active[0].ID)

	byPlate, err := env.rentals.ListRentals(ctx, b.VehiclePlate, "")
	require.NoError(t, err)
	require.Len(t, byPlate, 1)
	assert.Equal(t, b.ID, byPlate[0].ID)

	_, err = env.rentals.ListRentals(ctx, "", "bogus")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRentalService_AttachDocument(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	rt, _ := env.rental(t, "100.00", 1)

	got, err := env.rentals.AttachDocument(ctx, rt.ID, "contract.pdf", strings.NewReader("%PDF"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got.DocumentKey, "rentals/"))

	exists, size, err := env.files.Exists(ctx, got.DocumentKey)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, int64(4), size)
}
