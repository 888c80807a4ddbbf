package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"locar-backend/internal/domain"
	"locar-backend/internal/repository"
	"locar-backend/internal/repository/postgres"
)

var rentalCols = []string{"id", "vehicle_id", "client_id", "start_at", "end_at", "start_mileage", "end_mileage",
	"weekly_rate", "weeks", "deposit", "deposit_status", "payment_mode", "status", "paid_weeks",
	"notes", "document_key", "created_at", "client_name", "plate", "model"}

func TestRentalRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewRentalRepository(db)
	vehicleID := int32(4)
	rt := &domain.Rental{
		VehicleID:     &vehicleID,
		ClientID:      2,
		StartAt:       time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		StartMileage:  1000,
		WeeklyRate:    decimal.RequireFromString("500.00"),
		Weeks:         4,
		Deposit:       decimal.RequireFromString("300.00"),
		DepositStatus: domain.DepositStatusPending,
		PaymentMode:   domain.PaymentModeWeekly,
		Status:        domain.RentalStatusActive,
	}

	mock.ExpectQuery("INSERT INTO rentals").
		WithArgs(vehicleID, rt.ClientID, rt.StartAt, sqlmock.AnyArg(), rt.StartMileage, sqlmock.AnyArg(),
			sqlmock.AnyArg(), rt.Weeks, sqlmock.AnyArg(), rt.DepositStatus, rt.PaymentMode, rt.Status, int32(0),
			"", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))

	err = repo.Create(context.Background(), rt)
	assert.NoError(t, err)
	assert.Equal(t, int32(11), rt.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRentalRepository_GetByIDForUpdate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewRentalRepository(db)
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT (.+) FROM rentals r (.+) WHERE r.id = \\$1 FOR UPDATE OF r").
		WithArgs(int32(11)).
		WillReturnRows(sqlmock.NewRows(rentalCols).
			AddRow(11, 4, 2, start, nil, 1000, nil, "500.00", 4, "300.00", "pending", "weekly", "active", 1,
				"", "", start, "Ana", "ABC1D23", "Argo"))

	rt, err := repo.GetByIDForUpdate(context.Background(), 11)
	require.NoError(t, err)
	require.NotNil(t, rt.VehicleID)
	assert.Equal(t, int32(4), *rt.VehicleID)
	assert.Nil(t, rt.EndAt)
	assert.Nil(t, rt.EndMileage)
	assert.Equal(t, int32(1), rt.PaidWeeks)
	assert.Equal(t, "Ana", rt.ClientName)
	assert.True(t, rt.WeeklyRate.Equal(decimal.NewFromInt(500)))
}

func TestRentalRepository_HolderOf(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewRentalRepository(db)
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	query := "SELECT (.+) FROM rentals r (.+) WHERE r.vehicle_id = \\$1 AND r.status = 'active' AND r.end_mileage IS NULL"

	mock.ExpectQuery(query).
		WithArgs(int32(4)).
		WillReturnRows(sqlmock.NewRows(rentalCols).
			AddRow(12, 4, 2, start, nil, 1000, nil, "500.00", 4, "300.00", "pending", "weekly", "active", 0,
				"", "", start, "Ana", "ABC1D23", "Argo"))
	mock.ExpectQuery(query).
		WithArgs(int32(5)).
		WillReturnRows(sqlmock.NewRows(rentalCols))

	holder, err := repo.HolderOf(context.Background(), 4)
	require.NoError(t, err)
	require.NotNil(t, holder)
	assert.Equal(t, int32(12), holder.ID)

	none, err := repo.HolderOf(context.Background(), 5)
	assert.NoError(t, err)
	assert.Nil(t, none)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRentalRepository_IncrementPaidWeeks(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewRentalRepository(db)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectExec("UPDATE rentals SET paid_weeks = paid_weeks \\+ 1").
			WithArgs(int32(11), int32(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.IncrementPaidWeeks(ctx, 11, 1))
	})

	t.Run("GuardRejected", func(t *testing.T) {
		mock.ExpectExec("UPDATE rentals SET paid_weeks = paid_weeks \\+ 1").
			WithArgs(int32(11), int32(1)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.IncrementPaidWeeks(ctx, 11, 1)
		assert.ErrorIs(t, err, domain.ErrConcurrentUpdate)
		assert.Equal(t, domain.KindStateConflict, domain.KindOf(err))
	})
}

func TestRentalRepository_ListStartedBefore(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewRentalRepository(db)
	before := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	start := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("WHERE r.status = 'active' OR r.start_at < \\$1").
		WithArgs(before).
		WillReturnRows(sqlmock.NewRows(rentalCols).
			AddRow(1, nil, 2, start, end, 10, 20, "100.00", 2, "0", "returned", "single", "closed", 2,
				"", "", start, "Bia", "", ""))

	rentals, err := repo.ListStartedBefore(context.Background(), before)
	require.NoError(t, err)
	require.Len(t, rentals, 1)
	assert.Nil(t, rentals[0].VehicleID)
	require.NotNil(t, rentals[0].EndMileage)
	assert.Equal(t, int32(20), *rentals[0].EndMileage)
}

func TestRentalRepository_Delete_Referenced(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewRentalRepository(db)

	mock.ExpectExec("DELETE FROM rentals WHERE id = \\$1").
		WithArgs(int32(3)).
		WillReturnError(&pq.Error{Code: "23503"})

	err = repo.Delete(context.Background(), 3)
	assert.ErrorIs(t, err, domain.ErrReferenced)
	assert.Equal(t, domain.KindReferentialIntegrity, domain.KindOf(err))
}

func TestStore_WithinTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	store := postgres.NewStore(db)
	ctx := context.Background()

	t.Run("Commit", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE rentals SET paid_weeks").
			WithArgs(int32(1), int32(0)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
			return repos.Rentals.IncrementPaidWeeks(ctx, 1, 0)
		})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Rollback", func(t *testing.T) {
		boom := errors.New("boom")
		mock.ExpectBegin()
		mock.ExpectRollback()

		err := store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
